package models

import (
	"github.com/globalsign/mgo/bson"
)

const (
	GuildConfigTable MongoDbCollection = "guild_configs"
)

// Config holds the per-guild bot configuration that is not boostrole specific.
type Config struct {
	ID      bson.ObjectId `bson:"_id,omitempty"`
	GuildID string

	Prefix string
}

func (c Config) Default(guildID string) Config {
	return Config{
		GuildID: guildID,

		Prefix: "_",
	}
}
