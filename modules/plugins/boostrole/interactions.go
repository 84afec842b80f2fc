package boostrole

import (
	"context"

	"github.com/boostrole/boostrole/helpers"
	"github.com/bwmarrin/discordgo"
)

// SlashCommands declares the application command mirror of the text commands
func (h *Handler) SlashCommands() []*discordgo.ApplicationCommand {
	return []*discordgo.ApplicationCommand{
		{
			Name:        "boostrole",
			Description: "Manage your booster perk role",
			Options: []*discordgo.ApplicationCommandOption{
				{
					Type:        discordgo.ApplicationCommandOptionSubCommand,
					Name:        "create",
					Description: "Create your perk role",
					Options: []*discordgo.ApplicationCommandOption{
						{Type: discordgo.ApplicationCommandOptionString, Name: "color", Description: "Color name or #RRGGBB", Required: true},
						{Type: discordgo.ApplicationCommandOptionString, Name: "name", Description: "Role name", Required: true},
						{Type: discordgo.ApplicationCommandOptionUser, Name: "user", Description: "Grant the role to someone else (mods only)"},
						{Type: discordgo.ApplicationCommandOptionString, Name: "image", Description: "Image url for the role icon"},
					},
				},
				{
					Type:        discordgo.ApplicationCommandOptionSubCommand,
					Name:        "edit",
					Description: "Change your perk role",
					Options: []*discordgo.ApplicationCommandOption{
						{Type: discordgo.ApplicationCommandOptionString, Name: "name", Description: "New role name"},
						{Type: discordgo.ApplicationCommandOptionString, Name: "color", Description: "New color"},
						{Type: discordgo.ApplicationCommandOptionString, Name: "image", Description: "New image url"},
						{Type: discordgo.ApplicationCommandOptionUser, Name: "user", Description: "Edit someone else's role (mods only)"},
					},
				},
				{
					Type:        discordgo.ApplicationCommandOptionSubCommand,
					Name:        "untrack",
					Description: "Remove a perk role",
					Options: []*discordgo.ApplicationCommandOption{
						{Type: discordgo.ApplicationCommandOptionUser, Name: "user", Description: "Whose role to remove"},
						{Type: discordgo.ApplicationCommandOptionBoolean, Name: "keep", Description: "Keep the role on the server (mods only)"},
					},
				},
				{
					Type:        discordgo.ApplicationCommandOptionSubCommand,
					Name:        "track",
					Description: "Adopt an existing role as a perk role",
					Options: []*discordgo.ApplicationCommandOption{
						{Type: discordgo.ApplicationCommandOptionRole, Name: "role", Description: "The role to track", Required: true},
						{Type: discordgo.ApplicationCommandOptionUser, Name: "user", Description: "Owner when the role has no holder yet"},
					},
				},
			},
		},
	}
}

// ActionInteraction routes a slash command into the same workflows the
// text commands use, wrapped in the interaction invocation.
func (h *Handler) ActionInteraction(event *discordgo.InteractionCreate, session *discordgo.Session) {
	data := event.ApplicationCommandData()
	if len(data.Options) < 1 {
		return
	}

	inv := newInteractionInvocation(session, event)
	actor, err := inv.Actor()
	if err != nil {
		helpers.RelaxLog(err)
		return
	}

	subcommand := data.Options[0]
	options := make(map[string]*discordgo.ApplicationCommandInteractionDataOption, len(subcommand.Options))
	for _, option := range subcommand.Options {
		options[option.Name] = option
	}

	stringOption := func(name string) string {
		if option, ok := options[name]; ok {
			return option.StringValue()
		}
		return ""
	}
	userOption := func(name string) string {
		if option, ok := options[name]; ok {
			if user := option.UserValue(nil); user != nil {
				return user.ID
			}
		}
		return ""
	}

	ctx := context.Background()

	switch subcommand.Name {
	case "create":
		h.respond(inv, h.workflow.Create(ctx, CreateInput{
			GuildID:      inv.GuildID(),
			Actor:        actor,
			TargetUserID: userOption("user"),
			ColorSpec:    stringOption("color"),
			RoleName:     stringOption("name"),
			ImageURL:     stringOption("image"),
		}))

	case "edit":
		h.respond(inv, h.workflow.Modify(ctx, ModifyInput{
			GuildID:      inv.GuildID(),
			Actor:        actor,
			TargetUserID: userOption("user"),
			NewName:      stringOption("name"),
			NewColorSpec: stringOption("color"),
			NewImageURL:  stringOption("image"),
		}))

	case "untrack":
		deleteRole := true
		if option, ok := options["keep"]; ok && option.BoolValue() {
			deleteRole = false
		}
		h.respond(inv, h.workflow.Untrack(ctx, UntrackInput{
			GuildID:      inv.GuildID(),
			Actor:        actor,
			TargetUserID: userOption("user"),
			DeleteRole:   deleteRole,
		}))

	case "track":
		roleID := ""
		if option, ok := options["role"]; ok {
			if role := option.RoleValue(nil, ""); role != nil {
				roleID = role.ID
			}
		}
		h.respond(inv, h.workflow.Track(ctx, TrackInput{
			GuildID:    inv.GuildID(),
			Actor:      actor,
			RoleID:     roleID,
			NewOwnerID: userOption("user"),
		}))
	}
}
