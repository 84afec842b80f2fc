package cache

import "sync"

var (
	readyOnce sync.Once
	readyCh   = make(chan struct{})
)

// SetReady marks the discord session and database clients as usable.
// Closing is idempotent, the gateway may fire Ready again on reconnects.
func SetReady() {
	readyOnce.Do(func() {
		close(readyCh)
	})
}

// WaitReady returns a channel that is closed once SetReady was called.
// Background workers block on this before touching the discord API.
func WaitReady() <-chan struct{} {
	return readyCh
}
