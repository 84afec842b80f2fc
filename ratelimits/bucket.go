package ratelimits

import (
	"errors"
	"sync"
	"time"
)

const (
	// how many keys a bucket holds when created
	BUCKET_INITIAL_FILL = 16

	// the maximum amount of keys a user may possess
	BUCKET_UPPER_BOUND = 32

	// how often new keys drip into the buckets
	DROP_INTERVAL = 10 * time.Second

	// how many keys drop at a time
	DROP_SIZE = 1
)

// Container is the global bucket container
var Container = &BucketContainer{}

// BucketContainer maps user ids to their remaining key counts
type BucketContainer struct {
	sync.RWMutex

	buckets map[string]int8
}

// Init allocates the bucket map and starts the refill routine
func (b *BucketContainer) Init() {
	b.Lock()
	b.buckets = make(map[string]int8)
	b.Unlock()

	go b.refiller()
}

// refiller refills user buckets in a set interval
func (b *BucketContainer) refiller() {
	for {
		b.Lock()
		for user, keys := range b.buckets {
			switch {
			// users in the chill zone slowly work their way back to zero
			case keys < 0:
				b.buckets[user]++

			case keys == 0:
				b.buckets[user] = BUCKET_INITIAL_FILL

			case keys < BUCKET_UPPER_BOUND:
				b.buckets[user] += DROP_SIZE
			}
		}
		b.Unlock()

		time.Sleep(DROP_INTERVAL)
	}
}

func (b *BucketContainer) createBucketIfNotExists(user string) {
	b.RLock()
	_, ok := b.buckets[user]
	b.RUnlock()

	if !ok {
		b.Lock()
		b.buckets[user] = BUCKET_INITIAL_FILL
		b.Unlock()
	}
}

// Drain removes $amount keys from $user's bucket if enough keys are left
func (b *BucketContainer) Drain(amount int8, user string) error {
	b.createBucketIfNotExists(user)

	b.RLock()
	remaining := b.buckets[user]
	b.RUnlock()

	if amount > remaining {
		return errors.New("no keys left")
	}

	b.Lock()
	b.buckets[user] -= amount
	b.Unlock()

	return nil
}

// HasKeys checks if the user still has keys
func (b *BucketContainer) HasKeys(user string) bool {
	b.createBucketIfNotExists(user)

	b.RLock()
	defer b.RUnlock()

	return b.buckets[user] > 0
}

// Set overrides the key count for $user, negative values put them in the chill zone
func (b *BucketContainer) Set(user string, value int8) {
	b.Lock()
	b.buckets[user] = value
	b.Unlock()
}
