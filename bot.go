package main

import (
	"fmt"
	"strings"
	"time"

	"github.com/boostrole/boostrole/cache"
	"github.com/boostrole/boostrole/helpers"
	"github.com/boostrole/boostrole/modules"
	"github.com/boostrole/boostrole/ratelimits"
	"github.com/bwmarrin/discordgo"
	"github.com/getsentry/raven-go"
)

// BotOnReady gets called after the gateway connected
func BotOnReady(session *discordgo.Session, event *discordgo.Ready) {
	log := cache.GetLogger()

	log.WithField("module", "bot").Info("Connected to discord!")
	log.WithField("module", "bot").Info("Invite link: " + fmt.Sprintf(
		"https://discordapp.com/oauth2/authorize?client_id=%s&scope=bot%%20applications.commands&permissions=%s",
		helpers.ConfigString("discord.id"),
		helpers.ConfigString("discord.perms"),
	))

	// Cache the session
	cache.SetSession(session)

	// Load and init all modules
	modules.Init(session)

	// Run async worker for guild config changes
	go helpers.GuildConfigUpdater()

	// Run async game-changer
	go changeGameInterval(session)

	// Run ratelimiter
	ratelimits.Container.Init()

	// Register slash commands
	go registerSlashCommands(session)

	// Unblock workers that wait for a warm state
	cache.SetReady()
}

// BotOnMessageCreate gets called after a new message was sent
// This will be called after *every* message on *every* server so it should die
// as soon as possible or spawn costly work inside of coroutines.
func BotOnMessageCreate(session *discordgo.Session, message *discordgo.MessageCreate) {
	// Ignore other bots and @everyone/@here
	if message.Author == nil || message.Author.Bot || message.MentionEveryone {
		return
	}

	// Get the channel
	// Ignore the event if we cannot resolve the channel
	channel, err := helpers.GetChannel(message.ChannelID)
	if err != nil {
		go raven.CaptureError(err, map[string]string{})
		return
	}

	// Commands only make sense inside guilds
	if channel.Type == discordgo.ChannelTypeDM {
		return
	}

	// Only continue if a prefix is set
	prefix := helpers.GetPrefixForServer(channel.GuildID)
	if prefix == "" {
		return
	}

	// Check if the message is prefixed for us
	// If not exit
	if !strings.HasPrefix(message.Content, prefix) {
		return
	}

	// Check if the user is allowed to request commands
	if !ratelimits.Container.HasKeys(message.Author.ID) && !helpers.IsBotOwner(message.Author.ID) {
		helpers.SendMessage(message.ChannelID, fmt.Sprintf("<@%s> slow down a bit :speak_no_evil:", message.Author.ID))

		ratelimits.Container.Set(message.Author.ID, -1)
		return
	}

	// Split the message into parts
	parts := strings.Fields(message.Content)

	// Save a sanitized version of the command (no prefix)
	cmd := strings.Replace(parts[0], prefix, "", 1)

	// Separate arguments from the command
	content := strings.TrimSpace(strings.Replace(message.Content, prefix+cmd, "", 1))

	cache.GetLogger().WithField("module", "bot").Debug(fmt.Sprintf("%s (#%s): %s",
		message.Author.Username, message.Author.ID, message.Content))

	// Check if a module matches said command
	modules.CallBotPlugin(cmd, content, message.Message)
}

// BotOnInteractionCreate gets called for slash command invocations
func BotOnInteractionCreate(session *discordgo.Session, interaction *discordgo.InteractionCreate) {
	modules.CallPluginInteraction(interaction)
}

func registerSlashCommands(session *discordgo.Session) {
	defer helpers.Recover()

	commands := modules.SlashCommands()
	if len(commands) == 0 {
		return
	}

	_, err := session.ApplicationCommandBulkOverwrite(session.State.User.ID, "", commands)
	if err != nil {
		cache.GetLogger().WithField("module", "bot").Error("failed to register slash commands: " + err.Error())
		return
	}

	cache.GetLogger().WithField("module", "bot").Infof("registered %d slash commands", len(commands))
}

// Changes the game status every hour after called
func changeGameInterval(session *discordgo.Session) {
	defer helpers.Recover()

	for {
		members := 0
		guilds := session.State.Guilds
		for _, guild := range guilds {
			members += guild.MemberCount
		}

		err := session.UpdateGameStatus(0, fmt.Sprintf("%d members on %d servers | _boostrole", members, len(guilds)))
		if err != nil {
			raven.CaptureError(err, map[string]string{})
		}

		time.Sleep(1 * time.Hour)
	}
}

// BotDestroy gets called before the bot disconnects
func BotDestroy() {
	modules.Uninit(cache.GetSession())
}
