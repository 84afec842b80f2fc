package boostrole

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/boostrole/boostrole/cache"
	"github.com/boostrole/boostrole/helpers"
	"github.com/boostrole/boostrole/models"
	"github.com/bwmarrin/discordgo"
)

var roleMentionRegex = regexp.MustCompile(`<@&(\d+)>`)

const defaultSweepInterval = 30 * time.Minute

// Handler is the boostrole plugin: self-service perk roles for boosters,
// kept honest by a background reconciliation sweep.
type Handler struct {
	workflow   *Workflow
	reconciler *Reconciler

	cancelReconciler context.CancelFunc
}

func (h *Handler) Commands() []string {
	return []string{
		"boostrole",
		"br",
	}
}

func (h *Handler) Init(session *discordgo.Session) {
	api := newSessionAPI(session)
	store := newMongoStore()
	ownerID := helpers.GetBotOwnerID()

	h.workflow = NewWorkflow(api, store, ownerID)
	h.reconciler = NewReconciler(api, store, h.workflow, sweepInterval(), cache.WaitReady(), ownerID)

	ctx, cancel := context.WithCancel(context.Background())
	h.cancelReconciler = cancel
	go func() {
		defer helpers.Recover()
		h.reconciler.Run(ctx)
	}()
}

func (h *Handler) Uninit(session *discordgo.Session) {
	if h.cancelReconciler != nil {
		h.cancelReconciler()
	}
}

func sweepInterval() time.Duration {
	config := helpers.GetConfig()
	if config != nil && config.ExistsP("boostrole.interval_minutes") {
		if minutes, ok := config.Path("boostrole.interval_minutes").Data().(float64); ok && minutes > 0 {
			return time.Duration(minutes) * time.Minute
		}
	}

	return defaultSweepInterval
}

func (h *Handler) Action(command string, content string, msg *discordgo.Message, session *discordgo.Session) {
	args := strings.Fields(content)
	if len(args) < 1 {
		helpers.SendMessage(msg.ChannelID, "Usage: `create <color> <name>`, `edit`, `untrack`, `track`, `list`, `removal`, `allowrole`")
		return
	}

	inv, err := newMessageInvocation(msg)
	if err != nil {
		helpers.RelaxLog(err)
		return
	}

	session.ChannelTyping(msg.ChannelID)

	subcommand := strings.ToLower(args[0])
	rest := strings.TrimSpace(strings.TrimPrefix(content, args[0]))
	ctx := context.Background()

	switch subcommand {
	case "create", "make":
		h.actionCreate(ctx, inv, msg, rest)
	case "edit", "modify":
		h.actionModify(ctx, inv, rest)
	case "untrack", "remove", "delete":
		h.actionUntrack(ctx, inv, args[1:])
	case "track", "adopt":
		h.actionTrack(ctx, inv, args[1:])
	case "list":
		h.actionList(inv)
	case "removal":
		h.actionRemoval(inv, args[1:])
	case "allowrole":
		h.actionAllowRole(inv, args[1:])
	default:
		helpers.SendMessage(msg.ChannelID, "I don't know `"+subcommand+"`, try `create`, `edit`, `untrack`, `track` or `list`")
	}
}

func (h *Handler) respond(inv Invocation, outcome Outcome) {
	err := inv.Respond(outcome)
	if err != nil {
		// failing to notify must not re-run the workflow, just log it
		helpers.RelaxLog(err)
	}
}

func (h *Handler) actionCreate(ctx context.Context, inv Invocation, msg *discordgo.Message, content string) {
	actor, err := inv.Actor()
	if err != nil {
		helpers.RelaxLog(err)
		return
	}

	kv, words := helpers.ParseKeyValueString(content)
	if len(words) < 2 {
		h.respond(inv, UserError("usage: `create <color> <name>` with optional `user=@mention` and `image=<url>`"))
		return
	}

	imageURL := kv["image"]
	if imageURL == "" && len(msg.Attachments) > 0 {
		imageURL = msg.Attachments[0].URL
	}

	h.respond(inv, h.workflow.Create(ctx, CreateInput{
		GuildID:      inv.GuildID(),
		Actor:        actor,
		TargetUserID: helpers.GetUserFromMention(kv["user"]),
		ColorSpec:    words[0],
		RoleName:     strings.Join(words[1:], " "),
		ImageURL:     imageURL,
	}))
}

func (h *Handler) actionModify(ctx context.Context, inv Invocation, content string) {
	actor, err := inv.Actor()
	if err != nil {
		helpers.RelaxLog(err)
		return
	}

	kv, _ := helpers.ParseKeyValueString(content)

	h.respond(inv, h.workflow.Modify(ctx, ModifyInput{
		GuildID:      inv.GuildID(),
		Actor:        actor,
		TargetUserID: helpers.GetUserFromMention(kv["user"]),
		NewName:      kv["name"],
		NewColorSpec: kv["color"],
		NewImageURL:  kv["image"],
	}))
}

func (h *Handler) actionUntrack(ctx context.Context, inv Invocation, args []string) {
	actor, err := inv.Actor()
	if err != nil {
		helpers.RelaxLog(err)
		return
	}

	in := UntrackInput{
		GuildID:    inv.GuildID(),
		Actor:      actor,
		DeleteRole: true,
	}

	for _, arg := range args {
		if strings.EqualFold(arg, "keep") {
			in.DeleteRole = false
			continue
		}
		if userID := helpers.GetUserFromMention(arg); userID != "" {
			in.TargetUserID = userID
			continue
		}
		if roleID := roleIDFromArg(arg); roleID != "" {
			in.RoleID = roleID
		}
	}

	h.respond(inv, h.workflow.Untrack(ctx, in))
}

func (h *Handler) actionTrack(ctx context.Context, inv Invocation, args []string) {
	actor, err := inv.Actor()
	if err != nil {
		helpers.RelaxLog(err)
		return
	}

	if len(args) < 1 {
		h.respond(inv, UserError("usage: `track <role> [user]`"))
		return
	}

	in := TrackInput{
		GuildID: inv.GuildID(),
		Actor:   actor,
		RoleID:  roleIDFromArg(args[0]),
	}
	if len(args) >= 2 {
		in.NewOwnerID = helpers.GetUserFromMention(args[1])
	}
	if in.RoleID == "" {
		h.respond(inv, UserError("that doesn't look like a role, pass a role mention or id"))
		return
	}

	h.respond(inv, h.workflow.Track(ctx, in))
}

func (h *Handler) actionList(inv Invocation) {
	entries, err := h.workflow.store.GuildEntries(inv.GuildID())
	if err != nil {
		h.respond(inv, SystemError(err, "failed to list tracked roles"))
		return
	}

	if len(entries) == 0 {
		h.respond(inv, Success("No tracked perk roles on this server yet"))
		return
	}

	result := "Tracked perk roles on this server:\n"
	for _, entry := range entries {
		result += fmt.Sprintf("`%s` (`%s`) owned by <@%s>\n", entry.RoleName, entry.Color, entry.UserID)
	}
	result += fmt.Sprintf("_%d role(s) in total_", len(entries))

	_, err = helpers.SendComplex(inv.ChannelID(), &discordgo.MessageSend{
		Content:         result,
		AllowedMentions: &discordgo.MessageAllowedMentions{},
	})
	helpers.RelaxMessage(err, inv.ChannelID(), "")
}

func (h *Handler) actionRemoval(inv Invocation, args []string) {
	h.requireMod(inv, func(actor *discordgo.Member) {
		if len(args) < 1 || (args[0] != "on" && args[0] != "off") {
			h.respond(inv, UserError("usage: `removal on|off`"))
			return
		}

		settings, err := helpers.BoostRoleSettingsGet(inv.GuildID())
		if err != nil {
			h.respond(inv, SystemError(err, "failed to load the settings"))
			return
		}

		settings.RemoveRoles = args[0] == "on"

		if err = helpers.BoostRoleSettingsSet(inv.GuildID(), settings); err != nil {
			h.respond(inv, SystemError(err, "failed to save the settings"))
			return
		}

		if settings.RemoveRoles {
			h.respond(inv, Success("Okay, I'll remove perk roles of members who stop boosting"))
		} else {
			h.respond(inv, Success("Okay, I'll leave perk roles alone on this server"))
		}
	})
}

func (h *Handler) actionAllowRole(inv Invocation, args []string) {
	h.requireMod(inv, func(actor *discordgo.Member) {
		if len(args) < 1 {
			h.respond(inv, UserError("usage: `allowrole add|remove <role>` or `allowrole list`"))
			return
		}

		settings, err := helpers.BoostRoleSettingsGet(inv.GuildID())
		if err != nil {
			h.respond(inv, SystemError(err, "failed to load the settings"))
			return
		}

		switch strings.ToLower(args[0]) {
		case "list":
			if len(settings.AllowedRoleIDs) == 0 {
				h.respond(inv, Success("No exempt roles configured"))
				return
			}
			result := "Holders of these roles keep their perk role without boosting:\n"
			for _, roleID := range settings.AllowedRoleIDs {
				result += fmt.Sprintf("<@&%s>\n", roleID)
			}
			h.respond(inv, Success("%s", result))

		case "add":
			if len(args) < 2 {
				h.respond(inv, UserError("which role should be exempt?"))
				return
			}
			roleID := roleIDFromArg(args[1])
			if roleID == "" {
				h.respond(inv, UserError("that doesn't look like a role, pass a role mention or id"))
				return
			}
			for _, existing := range settings.AllowedRoleIDs {
				if existing == roleID {
					h.respond(inv, UserError("that role is already exempt"))
					return
				}
			}
			settings.AllowedRoleIDs = append(settings.AllowedRoleIDs, roleID)
			if err = helpers.BoostRoleSettingsSet(inv.GuildID(), settings); err != nil {
				h.respond(inv, SystemError(err, "failed to save the settings"))
				return
			}
			h.respond(inv, Success("Holders of <@&%s> now keep their perk role without boosting", roleID))

		case "remove":
			if len(args) < 2 {
				h.respond(inv, UserError("which role should stop being exempt?"))
				return
			}
			roleID := roleIDFromArg(args[1])
			newAllowed := make([]string, 0, len(settings.AllowedRoleIDs))
			found := false
			for _, existing := range settings.AllowedRoleIDs {
				if existing == roleID {
					found = true
					continue
				}
				newAllowed = append(newAllowed, existing)
			}
			if !found {
				h.respond(inv, UserError("that role is not exempt"))
				return
			}
			settings.AllowedRoleIDs = newAllowed
			if err = helpers.BoostRoleSettingsSet(inv.GuildID(), settings); err != nil {
				h.respond(inv, SystemError(err, "failed to save the settings"))
				return
			}
			h.respond(inv, Success("Removed the exemption for <@&%s>", roleID))

		default:
			h.respond(inv, UserError("usage: `allowrole add|remove <role>` or `allowrole list`"))
		}
	})
}

// requireMod resolves the actor and only calls cb when they are a mod
func (h *Handler) requireMod(inv Invocation, cb func(actor *discordgo.Member)) {
	actor, err := inv.Actor()
	if err != nil {
		helpers.RelaxLog(err)
		return
	}

	guild, err := helpers.GetGuild(inv.GuildID())
	if err != nil {
		h.respond(inv, SystemError(err, "failed to look up the server"))
		return
	}

	if !MemberIsMod(guild, actor, h.workflow.ownerID) {
		h.respond(inv, UserError("you need the manage roles permission to do that"))
		return
	}

	cb(actor)
}

func roleIDFromArg(arg string) string {
	parts := roleMentionRegex.FindStringSubmatch(strings.TrimSpace(arg))
	if len(parts) >= 2 {
		return parts[1]
	}

	if regexp.MustCompile(`^\d+$`).MatchString(arg) {
		return arg
	}

	return ""
}

// ListEntries exposes the tracked roles of a guild for the REST API
func ListEntries(guildID string) ([]models.BoostRoleEntry, error) {
	return newMongoStore().GuildEntries(guildID)
}
