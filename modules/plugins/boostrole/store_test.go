package boostrole

import (
	"os"
	"testing"
	"time"

	"github.com/boostrole/boostrole/helpers"
	"github.com/boostrole/boostrole/models"
	"github.com/globalsign/mgo/bson"
)

// TestMongoStore runs the real mongo implementation against the database
// named by TEST_MONGODB_URL, for example mongodb://localhost:27017/boostrole_test
func TestMongoStore(t *testing.T) {
	url := os.Getenv("TEST_MONGODB_URL")
	if url == "" {
		t.Skip("TEST_MONGODB_URL not set")
	}

	helpers.ConnectMDB(url, "boostrole_test")
	defer helpers.GetMDbSession().Close()

	if err := helpers.EnsureIndexes(); err != nil {
		t.Fatalf("failed to ensure indexes: %v", err)
	}

	store := newMongoStore()
	guildID := "test-" + bson.NewObjectId().Hex()

	entry := models.BoostRoleEntry{
		GuildID:   guildID,
		RoleID:    "role-1",
		UserID:    "user-1",
		RoleName:  "test role",
		Color:     "#ff0000",
		CreatedAt: time.Now().UTC(),
	}

	id, err := store.Insert(entry)
	if err != nil {
		t.Fatalf("insert failed: %v", err)
	}
	entry.ID = id

	t.Cleanup(func() {
		helpers.MdbCollection(models.BoostRoleTable).RemoveAll(bson.M{"guildid": guildID})
	})

	t.Run("duplicate insert hits the unique index", func(t *testing.T) {
		second := entry
		second.ID = ""
		second.RoleID = "role-2"

		if _, err := store.Insert(second); err != ErrAlreadyTracked {
			t.Errorf("err = %v, want ErrAlreadyTracked", err)
		}
	})

	t.Run("find by owner", func(t *testing.T) {
		found, err := store.FindByOwner(guildID, "user-1")
		if err != nil {
			t.Fatalf("find failed: %v", err)
		}
		if found.ID != entry.ID || found.RoleID != "role-1" {
			t.Errorf("found = %+v", found)
		}
	})

	t.Run("find by role", func(t *testing.T) {
		found, err := store.FindByRole(guildID, "role-1")
		if err != nil {
			t.Fatalf("find failed: %v", err)
		}
		if found.UserID != "user-1" {
			t.Errorf("found = %+v", found)
		}
	})

	t.Run("miss maps to ErrNotTracked", func(t *testing.T) {
		if _, err := store.FindByOwner(guildID, "nobody"); err != ErrNotTracked {
			t.Errorf("err = %v, want ErrNotTracked", err)
		}
	})

	t.Run("update", func(t *testing.T) {
		entry.RoleName = "renamed"
		if err := store.Update(entry); err != nil {
			t.Fatalf("update failed: %v", err)
		}

		found, err := store.FindByOwner(guildID, "user-1")
		if err != nil {
			t.Fatalf("find failed: %v", err)
		}
		if found.RoleName != "renamed" {
			t.Errorf("name = %q, want renamed", found.RoleName)
		}
	})

	t.Run("count and guild listing", func(t *testing.T) {
		count, err := store.CountForOwner(guildID, "user-1")
		if err != nil {
			t.Fatalf("count failed: %v", err)
		}
		if count != 1 {
			t.Errorf("count = %d, want 1", count)
		}

		guildIDs, err := store.GuildsWithEntries()
		if err != nil {
			t.Fatalf("guild listing failed: %v", err)
		}
		found := false
		for _, id := range guildIDs {
			if id == guildID {
				found = true
			}
		}
		if !found {
			t.Errorf("guild %s missing from %v", guildID, guildIDs)
		}
	})

	t.Run("batch delete reports the removed count", func(t *testing.T) {
		other, err := store.Insert(models.BoostRoleEntry{
			GuildID:   guildID,
			RoleID:    "role-3",
			UserID:    "user-2",
			RoleName:  "second role",
			Color:     "blue",
			CreatedAt: time.Now().UTC(),
		})
		if err != nil {
			t.Fatalf("insert failed: %v", err)
		}

		// one real id and one that no longer exists
		removed, err := store.DeleteMany(guildID, []bson.ObjectId{other, bson.NewObjectId()})
		if err != nil {
			t.Fatalf("batch delete failed: %v", err)
		}
		if removed != 1 {
			t.Errorf("removed = %d, want 1", removed)
		}
	})

	t.Run("delete", func(t *testing.T) {
		if err := store.Delete(entry.ID); err != nil {
			t.Fatalf("delete failed: %v", err)
		}
		if _, err := store.FindByOwner(guildID, "user-1"); err != ErrNotTracked {
			t.Errorf("err = %v, want ErrNotTracked", err)
		}
	})
}
