package modules

import "github.com/bwmarrin/discordgo"

type Plugin interface {
	Commands() []string

	Init(session *discordgo.Session)

	Action(
		command string,
		content string,
		msg *discordgo.Message,
		session *discordgo.Session,
	)
}

// UninitPlugin is implemented by plugins that run background workers
// and need to stop them on shutdown
type UninitPlugin interface {
	Plugin

	Uninit(session *discordgo.Session)
}

// InteractionPlugin additionally receives application command interactions
type InteractionPlugin interface {
	Plugin

	SlashCommands() []*discordgo.ApplicationCommand

	ActionInteraction(
		interaction *discordgo.InteractionCreate,
		session *discordgo.Session,
	)
}
