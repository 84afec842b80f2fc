package models

import (
	"time"

	"github.com/globalsign/mgo/bson"
)

const (
	BoostRoleTable         MongoDbCollection = "boostrole_roles"
	BoostRoleSettingsTable MongoDbCollection = "boostrole_settings"
)

// BoostRoleEntry tracks one perk role managed for exactly one member.
// The ObjectId is the identity anchor, RoleID is not reliable as a key
// because discord may hand out a recycled id after a role got deleted.
type BoostRoleEntry struct {
	ID        bson.ObjectId `bson:"_id,omitempty"`
	GuildID   string
	RoleID    string
	UserID    string
	RoleName  string
	Color     string // color spec as entered, name or #RRGGBB
	ImageURL  string `bson:",omitempty"`
	ImageHash string `bson:",omitempty"`
	CreatedAt time.Time
}

// BoostRoleSettings stores the per-guild boostrole configuration.
type BoostRoleSettings struct {
	ID             bson.ObjectId `bson:"_id,omitempty"`
	GuildID        string
	RemoveRoles    bool     // run the reconciliation sweep for this guild
	AllowedRoleIDs []string // roles whose holders keep their perk role without boosting
}

func (s BoostRoleSettings) Default(guildID string) BoostRoleSettings {
	return BoostRoleSettings{
		GuildID:        guildID,
		RemoveRoles:    true,
		AllowedRoleIDs: []string{},
	}
}

// RoleAllowed reports whether any of the passed role ids is exempt.
func (s BoostRoleSettings) RoleAllowed(roleIDs []string) bool {
	for _, allowed := range s.AllowedRoleIDs {
		for _, id := range roleIDs {
			if allowed == id {
				return true
			}
		}
	}

	return false
}
