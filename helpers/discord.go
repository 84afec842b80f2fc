package helpers

import (
	"regexp"
	"strings"

	"github.com/boostrole/boostrole/cache"
	"github.com/bwmarrin/discordgo"
)

var mentionRegex = regexp.MustCompile(`<@!?(\d+)>`)

// GetBotOwnerID reads the configured override owner, "" when unset
func GetBotOwnerID() string {
	return ConfigString("boostrole.owner_id")
}

// IsBotOwner checks if $id is the configured override owner.
// The override owner is always treated as entitled and mod, no matter
// which permissions discord reports for them.
func IsBotOwner(id string) bool {
	ownerID := GetBotOwnerID()

	return ownerID != "" && ownerID == id
}

// GetGuild resolves a guild, state first, REST as fallback
func GetGuild(guildID string) (*discordgo.Guild, error) {
	guild, err := cache.GetSession().State.Guild(guildID)
	if err == nil {
		return guild, nil
	}

	return cache.GetSession().Guild(guildID)
}

// GetChannel resolves a channel, state first, REST as fallback
func GetChannel(channelID string) (*discordgo.Channel, error) {
	channel, err := cache.GetSession().State.Channel(channelID)
	if err == nil {
		return channel, nil
	}

	return cache.GetSession().Channel(channelID)
}

// GetGuildMember resolves a member, state first, REST as fallback
func GetGuildMember(guildID string, userID string) (*discordgo.Member, error) {
	member, err := cache.GetSession().State.Member(guildID, userID)
	if err == nil && member.User != nil {
		return member, nil
	}

	member, err = cache.GetSession().GuildMember(guildID, userID)
	if err != nil {
		return nil, err
	}
	member.GuildID = guildID

	return member, nil
}

// GetUserFromMention extracts the user id from a <@id> or <@!id> mention
func GetUserFromMention(mention string) (userID string) {
	parts := mentionRegex.FindStringSubmatch(strings.TrimSpace(mention))
	if len(parts) >= 2 {
		return parts[1]
	}

	return ""
}

// SendMessage sends a message to a channel
func SendMessage(channelID string, content string) (*discordgo.Message, error) {
	return cache.GetSession().ChannelMessageSend(channelID, content)
}

// SendComplex sends a rich message to a channel
func SendComplex(channelID string, data *discordgo.MessageSend) (*discordgo.Message, error) {
	return cache.GetSession().ChannelMessageSendComplex(channelID, data)
}
