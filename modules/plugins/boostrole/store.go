package boostrole

import (
	"github.com/boostrole/boostrole/helpers"
	"github.com/boostrole/boostrole/models"
	"github.com/globalsign/mgo/bson"
	"github.com/pkg/errors"
)

var (
	// ErrAlreadyTracked means an entry for (guild, user) already exists
	ErrAlreadyTracked = errors.New("user already has a tracked role")
	// ErrNotTracked means no entry matched the lookup
	ErrNotTracked = errors.New("no tracked role found")
)

// roleStore is the slice of the ownership store the workflows and the
// reconciler need. The mongo implementation below is the production one,
// tests drop in an in-memory fake.
type roleStore interface {
	// Insert persists a new entry. The store enforces at most one entry per
	// (guild, user), a second insert fails with ErrAlreadyTracked.
	Insert(entry models.BoostRoleEntry) (bson.ObjectId, error)
	Update(entry models.BoostRoleEntry) error
	Delete(id bson.ObjectId) error
	// DeleteMany removes the given entries in one batch and reports how many
	// documents actually got removed.
	DeleteMany(guildID string, ids []bson.ObjectId) (int, error)

	FindByOwner(guildID string, userID string) (models.BoostRoleEntry, error)
	FindByRole(guildID string, roleID string) (models.BoostRoleEntry, error)
	GuildEntries(guildID string) ([]models.BoostRoleEntry, error)
	GuildsWithEntries() ([]string, error)
	CountForOwner(guildID string, userID string) (int, error)

	Settings(guildID string) (models.BoostRoleSettings, error)
}

// mongoStore implements roleStore on the shared mongo connection
type mongoStore struct{}

func newMongoStore() *mongoStore {
	return &mongoStore{}
}

func (s *mongoStore) Insert(entry models.BoostRoleEntry) (bson.ObjectId, error) {
	id, err := helpers.MDbInsert(models.BoostRoleTable, entry)
	if err != nil {
		if helpers.IsMdbDup(err) {
			return "", ErrAlreadyTracked
		}
		return "", errors.Wrap(err, "failed to insert boostrole entry")
	}

	return id, nil
}

func (s *mongoStore) Update(entry models.BoostRoleEntry) error {
	return helpers.MDbUpdate(models.BoostRoleTable, entry.ID, entry)
}

func (s *mongoStore) Delete(id bson.ObjectId) error {
	return helpers.MDbDelete(models.BoostRoleTable, id)
}

func (s *mongoStore) DeleteMany(guildID string, ids []bson.ObjectId) (int, error) {
	return helpers.MdbDeleteAllQuery(models.BoostRoleTable, bson.M{
		"guildid": guildID,
		"_id":     bson.M{"$in": ids},
	})
}

func (s *mongoStore) FindByOwner(guildID string, userID string) (entry models.BoostRoleEntry, err error) {
	err = helpers.MdbOne(
		helpers.MdbCollection(models.BoostRoleTable).Find(bson.M{"guildid": guildID, "userid": userID}),
		&entry,
	)
	if helpers.IsMdbNotFound(err) {
		return entry, ErrNotTracked
	}

	return entry, err
}

func (s *mongoStore) FindByRole(guildID string, roleID string) (entry models.BoostRoleEntry, err error) {
	err = helpers.MdbOne(
		helpers.MdbCollection(models.BoostRoleTable).Find(bson.M{"guildid": guildID, "roleid": roleID}),
		&entry,
	)
	if helpers.IsMdbNotFound(err) {
		return entry, ErrNotTracked
	}

	return entry, err
}

func (s *mongoStore) GuildEntries(guildID string) (entries []models.BoostRoleEntry, err error) {
	err = helpers.MdbCollection(models.BoostRoleTable).Find(bson.M{"guildid": guildID}).All(&entries)

	return entries, err
}

func (s *mongoStore) GuildsWithEntries() (guildIDs []string, err error) {
	err = helpers.MdbCollection(models.BoostRoleTable).Find(nil).Distinct("guildid", &guildIDs)

	return guildIDs, err
}

func (s *mongoStore) CountForOwner(guildID string, userID string) (int, error) {
	return helpers.MdbCount(models.BoostRoleTable, bson.M{"guildid": guildID, "userid": userID})
}

func (s *mongoStore) Settings(guildID string) (models.BoostRoleSettings, error) {
	return helpers.BoostRoleSettingsGet(guildID)
}
