package helpers

import (
	"sync"
	"time"

	"github.com/boostrole/boostrole/cache"
	"github.com/boostrole/boostrole/models"
	"github.com/getsentry/raven-go"
	"github.com/globalsign/mgo/bson"
)

var (
	guildConfigCache = make(map[string]models.Config)
	configCacheMutex sync.RWMutex
)

// GuildConfigSet writes the guild config into the db and refreshes the cache
func GuildConfigSet(guildID string, config models.Config) error {
	var current models.Config

	err := MdbOne(
		MdbCollection(models.GuildConfigTable).Find(bson.M{"guildid": guildID}),
		&current,
	)

	if IsMdbNotFound(err) {
		_, err = MDbInsert(models.GuildConfigTable, config)
	} else if err != nil {
		return err
	} else {
		config.ID = current.ID
		err = MDbUpdate(models.GuildConfigTable, current.ID, config)
	}
	if err != nil {
		return err
	}

	configCacheMutex.Lock()
	guildConfigCache[guildID] = config
	configCacheMutex.Unlock()

	return nil
}

// GuildConfigGet returns the guild config or a default object
func GuildConfigGet(guildID string) (models.Config, error) {
	var config models.Config

	err := MdbOne(
		MdbCollection(models.GuildConfigTable).Find(bson.M{"guildid": guildID}),
		&config,
	)

	if IsMdbNotFound(err) {
		return models.Config{}.Default(guildID), nil
	}

	return config, err
}

func GuildConfigGetCached(guildID string) models.Config {
	configCacheMutex.RLock()
	config, ok := guildConfigCache[guildID]
	configCacheMutex.RUnlock()

	if !ok {
		return models.Config{}.Default(guildID)
	}

	return config
}

// GetPrefixForServer gets the command prefix for $guildID
func GetPrefixForServer(guildID string) string {
	return GuildConfigGetCached(guildID).Prefix
}

// SetPrefixForServer sets the command prefix for $guildID to $prefix
func SetPrefixForServer(guildID string, prefix string) error {
	config := GuildConfigGetCached(guildID)

	config.Prefix = prefix

	return GuildConfigSet(guildID, config)
}

// GuildConfigUpdater refreshes the config cache for all connected guilds
func GuildConfigUpdater() {
	for {
		for _, guild := range cache.GetSession().State.Guilds {
			config, err := GuildConfigGet(guild.ID)
			if err != nil {
				raven.CaptureError(err, map[string]string{})
				continue
			}

			configCacheMutex.Lock()
			guildConfigCache[guild.ID] = config
			configCacheMutex.Unlock()
		}

		time.Sleep(15 * time.Second)
	}
}

// BoostRoleSettingsSet writes the boostrole settings for a guild,
// lazily creating the document on first use
func BoostRoleSettingsSet(guildID string, settings models.BoostRoleSettings) error {
	var current models.BoostRoleSettings

	err := MdbOne(
		MdbCollection(models.BoostRoleSettingsTable).Find(bson.M{"guildid": guildID}),
		&current,
	)

	if IsMdbNotFound(err) {
		_, err = MDbInsert(models.BoostRoleSettingsTable, settings)
		return err
	} else if err != nil {
		return err
	}

	settings.ID = current.ID
	return MDbUpdate(models.BoostRoleSettingsTable, current.ID, settings)
}

// BoostRoleSettingsGet returns the boostrole settings for a guild or a default object
func BoostRoleSettingsGet(guildID string) (models.BoostRoleSettings, error) {
	var settings models.BoostRoleSettings

	err := MdbOne(
		MdbCollection(models.BoostRoleSettingsTable).Find(bson.M{"guildid": guildID}),
		&settings,
	)

	if IsMdbNotFound(err) {
		return models.BoostRoleSettings{}.Default(guildID), nil
	}

	return settings, err
}
