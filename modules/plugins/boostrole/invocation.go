package boostrole

import (
	"github.com/boostrole/boostrole/helpers"
	"github.com/bwmarrin/discordgo"
	"github.com/pkg/errors"
)

// Invocation abstracts how a command reached us, classic prefixed message
// or slash command interaction. The workflows only ever see this interface,
// they never branch on the invocation kind.
type Invocation interface {
	GuildID() string
	ChannelID() string
	Actor() (*discordgo.Member, error)
	Respond(outcome Outcome) error
}

// messageInvocation wraps a prefixed text command
type messageInvocation struct {
	msg     *discordgo.Message
	guildID string
}

func newMessageInvocation(msg *discordgo.Message) (*messageInvocation, error) {
	channel, err := helpers.GetChannel(msg.ChannelID)
	if err != nil {
		return nil, errors.Wrap(err, "failed to resolve channel")
	}

	return &messageInvocation{msg: msg, guildID: channel.GuildID}, nil
}

func (i *messageInvocation) GuildID() string {
	return i.guildID
}

func (i *messageInvocation) ChannelID() string {
	return i.msg.ChannelID
}

func (i *messageInvocation) Actor() (*discordgo.Member, error) {
	member, err := helpers.GetGuildMember(i.guildID, i.msg.Author.ID)
	if err != nil {
		return nil, err
	}
	if member.User == nil {
		member.User = i.msg.Author
	}

	return member, nil
}

func (i *messageInvocation) Respond(outcome Outcome) error {
	_, err := helpers.SendMessage(i.msg.ChannelID, outcome.Message)

	return err
}

// interactionInvocation wraps an application command interaction
type interactionInvocation struct {
	session *discordgo.Session
	event   *discordgo.InteractionCreate
}

func newInteractionInvocation(session *discordgo.Session, event *discordgo.InteractionCreate) *interactionInvocation {
	return &interactionInvocation{session: session, event: event}
}

func (i *interactionInvocation) GuildID() string {
	return i.event.GuildID
}

func (i *interactionInvocation) ChannelID() string {
	return i.event.ChannelID
}

func (i *interactionInvocation) Actor() (*discordgo.Member, error) {
	if i.event.Member == nil {
		return nil, errors.New("interaction carries no member, used outside a guild?")
	}

	member := i.event.Member
	member.GuildID = i.event.GuildID

	return member, nil
}

func (i *interactionInvocation) Respond(outcome Outcome) error {
	flags := discordgo.MessageFlags(0)
	if outcome.Kind != OutcomeSuccess {
		flags = discordgo.MessageFlagsEphemeral
	}

	return i.session.InteractionRespond(i.event.Interaction, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseChannelMessageWithSource,
		Data: &discordgo.InteractionResponseData{
			Content: outcome.Message,
			Flags:   flags,
		},
	})
}
