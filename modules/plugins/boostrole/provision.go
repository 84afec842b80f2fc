package boostrole

import (
	"context"
	"time"

	"github.com/boostrole/boostrole/cache"
	"github.com/boostrole/boostrole/metrics"
	"github.com/boostrole/boostrole/models"
	"github.com/bwmarrin/discordgo"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

// role icons require guild boost tier 2, which discord unlocks at this many boosts
const tierTwoBoosts = 7

// Workflow orchestrates provisioning of tracked perk roles against the
// discord API and the ownership store.
type Workflow struct {
	api     chatAPI
	store   roleStore
	ownerID string
}

func NewWorkflow(api chatAPI, store roleStore, ownerID string) *Workflow {
	return &Workflow{
		api:     api,
		store:   store,
		ownerID: ownerID,
	}
}

func (w *Workflow) log() *logrus.Entry {
	return cache.GetLogger().WithField("module", "boostrole")
}

// CreateInput carries the parsed arguments of a create request
type CreateInput struct {
	GuildID      string
	Actor        *discordgo.Member
	TargetUserID string // empty = the actor themselves
	RoleName     string
	ColorSpec    string
	ImageURL     string // optional
}

// Create provisions a new tracked perk role: policy check, optional icon
// ingestion, external role creation, persistence, assignment and a
// best-effort move of the role right below the bot's own top role.
func (w *Workflow) Create(ctx context.Context, in CreateInput) Outcome {
	if in.RoleName == "" {
		return UserError("I need a name for the role")
	}

	guild, err := w.api.Guild(in.GuildID)
	if err != nil {
		return SystemError(err, "failed to look up the server")
	}

	targetID := in.TargetUserID
	if targetID == "" {
		targetID = in.Actor.User.ID
	}

	target := in.Actor
	if targetID != in.Actor.User.ID {
		target, err = w.api.Member(in.GuildID, targetID)
		if err != nil {
			return UserError("I can't find that user on this server")
		}
	}

	count, err := w.store.CountForOwner(in.GuildID, targetID)
	if err != nil {
		return SystemError(err, "failed to check existing roles")
	}

	actorIsMod := MemberIsMod(guild, in.Actor, w.ownerID)
	if err = CanProvision(in.Actor.User.ID, targetID, memberIsBoosting(target), actorIsMod, count, true); err != nil {
		switch err {
		case ErrQuotaExceeded:
			return UserError("<@%s> already has a perk role, edit it instead", targetID)
		default:
			return UserError("only server boosters can get a perk role")
		}
	}

	// validate everything before touching the external API
	color, err := ResolveColor(in.ColorSpec)
	if err != nil {
		return UserError("`%s` is not a color I know, use a color name or #RRGGBB", in.ColorSpec)
	}

	var icon, imageHash string
	if in.ImageURL != "" {
		icon, imageHash, err = IngestIcon(ctx, in.ImageURL)
		if err != nil {
			return imageOutcome(err)
		}
	}

	params := &discordgo.RoleParams{
		Name:  in.RoleName,
		Color: &color,
	}
	if icon != "" {
		params.Icon = &icon
	}

	role, err := w.api.CreateRole(in.GuildID, params)
	if err != nil {
		return SystemError(err, "failed to create the role")
	}

	entry := models.BoostRoleEntry{
		GuildID:   in.GuildID,
		RoleID:    role.ID,
		UserID:    targetID,
		RoleName:  in.RoleName,
		Color:     in.ColorSpec,
		ImageURL:  in.ImageURL,
		ImageHash: imageHash,
		CreatedAt: time.Now().UTC(),
	}
	entryID, err := w.store.Insert(entry)
	if err != nil {
		if err == ErrAlreadyTracked {
			// a concurrent create won the conditional insert, clean our role up
			if deleteErr := w.api.DeleteRole(in.GuildID, role.ID); deleteErr != nil {
				w.log().Error("failed to delete role after losing insert race: ", deleteErr.Error())
			}
			return UserError("<@%s> already has a perk role, edit it instead", targetID)
		}

		// the role now exists externally but is untracked, surface it instead of retrying
		w.log().WithFields(logrus.Fields{
			"guild": in.GuildID,
			"role":  role.ID,
		}).Error("persistence failed after role creation, role is orphaned: ", err.Error())
		return SystemError(err, "the role got created but I couldn't save it, an admin has to remove role `"+role.ID+"` manually")
	}
	entry.ID = entryID

	if err = w.api.AddMemberRole(in.GuildID, targetID, role.ID); err != nil {
		return SystemError(err, "failed to assign the new role")
	}

	metrics.BoostRolesCreated.Add(1)

	message := "Created the role <@&" + role.ID + "> for <@" + targetID + "> 🎉"
	if err = w.repositionBelowBot(in.GuildID, role.ID); err != nil {
		w.log().Info("failed to reposition role " + role.ID + ": " + err.Error())
		message += "\nI couldn't move the role up the list, please reorder it manually."
	}

	return Success("%s", message)
}

// ModifyInput carries the parsed arguments of a modify request,
// empty fields stay unchanged
type ModifyInput struct {
	GuildID      string
	Actor        *discordgo.Member
	TargetUserID string
	NewName      string
	NewColorSpec string
	NewImageURL  string
}

// Modify applies name/color/icon changes to a tracked role. The external
// role is changed first, the store record only after that succeeded. A
// store failure after the external change is reported but not rolled back.
func (w *Workflow) Modify(ctx context.Context, in ModifyInput) Outcome {
	if in.NewName == "" && in.NewColorSpec == "" && in.NewImageURL == "" {
		return UserError("tell me what to change: a name, a color or an image")
	}

	guild, err := w.api.Guild(in.GuildID)
	if err != nil {
		return SystemError(err, "failed to look up the server")
	}

	targetID := in.TargetUserID
	if targetID == "" {
		targetID = in.Actor.User.ID
	}

	entry, err := w.store.FindByOwner(in.GuildID, targetID)
	if err == ErrNotTracked {
		return UserError("<@%s> has no perk role on this server", targetID)
	} else if err != nil {
		return SystemError(err, "failed to look up the tracked role")
	}

	if in.Actor.User.ID != entry.UserID && !MemberIsMod(guild, in.Actor, w.ownerID) {
		return UserError("only the role owner or a mod can change this role")
	}

	params := &discordgo.RoleParams{}
	if in.NewName != "" {
		params.Name = in.NewName
	}
	if in.NewColorSpec != "" {
		color, err := ResolveColor(in.NewColorSpec)
		if err != nil {
			return UserError("`%s` is not a color I know, use a color name or #RRGGBB", in.NewColorSpec)
		}
		params.Color = &color
	}

	var imageHash string
	if in.NewImageURL != "" {
		// role icons need boost tier 2, check before we bother uploading
		if guild.PremiumTier < discordgo.PremiumTier2 {
			missing := tierTwoBoosts - guild.PremiumSubscriptionCount
			if missing < 1 {
				missing = 1
			}
			return UserError("role images need server boost tier 2, %d more boost(s) required", missing)
		}

		var icon string
		icon, imageHash, err = IngestIcon(ctx, in.NewImageURL)
		if err != nil {
			return imageOutcome(err)
		}
		params.Icon = &icon
	}

	if _, err = w.api.EditRole(in.GuildID, entry.RoleID, params); err != nil {
		return SystemError(err, "failed to change the role")
	}

	if in.NewName != "" {
		entry.RoleName = in.NewName
	}
	if in.NewColorSpec != "" {
		entry.Color = in.NewColorSpec
	}
	if in.NewImageURL != "" {
		entry.ImageURL = in.NewImageURL
		entry.ImageHash = imageHash
	}

	if err = w.store.Update(entry); err != nil {
		// the external change sticks, we only failed to remember it
		w.log().Error("failed to persist role modification for entry " + entry.ID.Hex() + ": " + err.Error())
		return SystemError(err, "the role got changed but I couldn't save the change")
	}

	return Success("Updated the role <@&%s> ✏️", entry.RoleID)
}

// UntrackInput carries the parsed arguments of an untrack request
type UntrackInput struct {
	GuildID      string
	Actor        *discordgo.Member
	TargetUserID string
	RoleID       string // alternative lookup when the owner left
	DeleteRole   bool
}

// Untrack drops a role from management. The store record goes first, the
// external role and assignment are removed best-effort afterwards.
func (w *Workflow) Untrack(ctx context.Context, in UntrackInput) Outcome {
	guild, err := w.api.Guild(in.GuildID)
	if err != nil {
		return SystemError(err, "failed to look up the server")
	}

	var entry models.BoostRoleEntry
	if in.RoleID != "" {
		entry, err = w.store.FindByRole(in.GuildID, in.RoleID)
	} else {
		targetID := in.TargetUserID
		if targetID == "" {
			targetID = in.Actor.User.ID
		}
		entry, err = w.store.FindByOwner(in.GuildID, targetID)
	}
	if err == ErrNotTracked {
		return UserError("I'm not tracking that role")
	} else if err != nil {
		return SystemError(err, "failed to look up the tracked role")
	}

	actorIsMod := MemberIsMod(guild, in.Actor, w.ownerID)
	if in.DeleteRole {
		if in.Actor.User.ID != entry.UserID && !actorIsMod {
			return UserError("only the role owner or a mod can delete this role")
		}
	} else {
		// keeping the role while dropping tracking would let owners dodge
		// reconciliation, so this is mod territory
		if !actorIsMod {
			return UserError("only a mod can untrack a role without deleting it")
		}
	}

	if err = w.store.Delete(entry.ID); err != nil {
		return SystemError(err, "failed to remove the tracked role")
	}

	if in.DeleteRole {
		if err = w.api.RemoveMemberRole(in.GuildID, entry.UserID, entry.RoleID); err != nil && !isUnknownRole(err) {
			w.log().Error("failed to unassign role " + entry.RoleID + ": " + err.Error())
		}
		if err = w.api.DeleteRole(in.GuildID, entry.RoleID); err != nil && !isUnknownRole(err) {
			// once untracked we no longer manage the role, log and move on
			w.log().Error("failed to delete role " + entry.RoleID + ": " + err.Error())
		}

		return Success("Deleted the role `%s` 🗑️", entry.RoleName)
	}

	return Success("Stopped tracking the role `%s`, it stays on the server", entry.RoleName)
}

// TrackInput carries the parsed arguments of a track request
type TrackInput struct {
	GuildID    string
	Actor      *discordgo.Member
	RoleID     string
	NewOwnerID string // required when the role has no holder yet
}

// Track adopts a pre-existing role into management. The role may have at
// most one holder, with zero holders an explicit new owner is required and
// gets the role assigned as a side effect.
func (w *Workflow) Track(ctx context.Context, in TrackInput) Outcome {
	guild, err := w.api.Guild(in.GuildID)
	if err != nil {
		return SystemError(err, "failed to look up the server")
	}

	if _, err = w.store.FindByRole(in.GuildID, in.RoleID); err == nil {
		return UserError("I'm already tracking that role")
	} else if err != ErrNotTracked {
		return SystemError(err, "failed to look up the tracked role")
	}

	roles, err := w.api.GuildRoles(in.GuildID)
	if err != nil {
		return SystemError(err, "failed to list the server roles")
	}
	var role *discordgo.Role
	for _, candidate := range roles {
		if candidate.ID == in.RoleID {
			role = candidate
			break
		}
	}
	if role == nil {
		return UserError("there is no role with id `%s` on this server", in.RoleID)
	}

	holders, err := w.roleHolders(ctx, in.GuildID, in.RoleID)
	if err != nil {
		return SystemError(err, "failed to list the role holders")
	}
	if len(holders) > 1 {
		return UserError("that role has %d holders, a perk role belongs to exactly one user", len(holders))
	}

	var owner *discordgo.Member
	assignNeeded := false
	if len(holders) == 1 {
		owner = holders[0]
	} else {
		if in.NewOwnerID == "" {
			return UserError("nobody holds that role, tell me which user should own it")
		}
		owner, err = w.api.Member(in.GuildID, in.NewOwnerID)
		if err != nil {
			return UserError("I can't find that user on this server")
		}
		assignNeeded = true
	}

	count, err := w.store.CountForOwner(in.GuildID, owner.User.ID)
	if err != nil {
		return SystemError(err, "failed to check existing roles")
	}

	actorIsMod := MemberIsMod(guild, in.Actor, w.ownerID)
	if err = CanProvision(in.Actor.User.ID, owner.User.ID, memberIsBoosting(owner), actorIsMod, count, true); err != nil {
		switch err {
		case ErrQuotaExceeded:
			return UserError("<@%s> already has a perk role", owner.User.ID)
		default:
			return UserError("only server boosters can get a perk role")
		}
	}

	if assignNeeded {
		if err = w.api.AddMemberRole(in.GuildID, owner.User.ID, in.RoleID); err != nil {
			return SystemError(err, "failed to assign the role")
		}
	}

	entry := models.BoostRoleEntry{
		GuildID:   in.GuildID,
		RoleID:    role.ID,
		UserID:    owner.User.ID,
		RoleName:  role.Name,
		Color:     HexFromColor(role.Color),
		CreatedAt: time.Now().UTC(),
	}
	if _, err = w.store.Insert(entry); err != nil {
		if err == ErrAlreadyTracked {
			return UserError("<@%s> already has a perk role", owner.User.ID)
		}
		return SystemError(err, "failed to save the tracked role")
	}

	return Success("Now tracking `%s` for <@%s>", role.Name, owner.User.ID)
}

// Recreate rebuilds the external role for an existing store entry and
// updates the stored role id. Used by the reconciler when the exempt
// owner role vanished externally.
func (w *Workflow) Recreate(ctx context.Context, entry *models.BoostRoleEntry) error {
	color, err := ResolveColor(entry.Color)
	if err != nil {
		// stored specs were validated on the way in, fall back to no color
		color = 0
	}

	params := &discordgo.RoleParams{
		Name:  entry.RoleName,
		Color: &color,
	}

	if entry.ImageURL != "" {
		icon, imageHash, err := IngestIcon(ctx, entry.ImageURL)
		if err != nil {
			w.log().Warn("skipping icon while recreating role: " + err.Error())
		} else {
			params.Icon = &icon
			entry.ImageHash = imageHash
		}
	}

	role, err := w.api.CreateRole(entry.GuildID, params)
	if err != nil {
		return errors.Wrap(err, "failed to recreate role")
	}

	if err = w.api.AddMemberRole(entry.GuildID, entry.UserID, role.ID); err != nil {
		return errors.Wrap(err, "failed to assign recreated role")
	}

	if err = w.repositionBelowBot(entry.GuildID, role.ID); err != nil {
		w.log().Info("failed to reposition recreated role " + role.ID + ": " + err.Error())
	}

	entry.RoleID = role.ID
	if err = w.store.Update(*entry); err != nil {
		return errors.Wrap(err, "failed to persist recreated role id")
	}

	return nil
}

// repositionBelowBot moves the role right below the bot's own highest role
// so the perk color wins over the plain member roles. Callers treat a
// failure here as cosmetic.
func (w *Workflow) repositionBelowBot(guildID string, roleID string) error {
	roles, err := w.api.GuildRoles(guildID)
	if err != nil {
		return err
	}

	botMember, err := w.api.Member(guildID, w.api.BotUserID())
	if err != nil {
		return err
	}

	botRoles := make(map[string]struct{}, len(botMember.Roles))
	for _, id := range botMember.Roles {
		botRoles[id] = struct{}{}
	}

	botTop := 0
	for _, role := range roles {
		if _, ok := botRoles[role.ID]; ok && role.Position > botTop {
			botTop = role.Position
		}
	}

	target := botTop - 1
	if target < 1 {
		target = 1
	}

	reordered := make([]*discordgo.Role, 0, len(roles))
	for _, role := range roles {
		if role.ID == roleID {
			moved := *role
			moved.Position = target
			reordered = append(reordered, &moved)
			continue
		}
		reordered = append(reordered, role)
	}

	return w.api.ReorderRoles(guildID, reordered)
}

// roleHolders pages through the guild members and collects everyone holding the role
func (w *Workflow) roleHolders(ctx context.Context, guildID string, roleID string) ([]*discordgo.Member, error) {
	var holders []*discordgo.Member

	after := ""
	for {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		page, err := w.api.ListMembers(guildID, after, memberPageSize)
		if err != nil {
			return nil, err
		}
		if len(page) == 0 {
			break
		}

		for _, member := range page {
			for _, id := range member.Roles {
				if id == roleID {
					holders = append(holders, member)
					break
				}
			}
		}

		after = page[len(page)-1].User.ID
	}

	return holders, nil
}

// imageOutcome maps image pipeline failures onto user errors
func imageOutcome(err error) Outcome {
	if formatErr, ok := err.(*UnsupportedFormatError); ok {
		return UserError("%s images don't work as role icons, use JPEG, PNG or GIF", formatErr.Name)
	}
	if unreachable, ok := err.(*UnreachableImageError); ok {
		return UserError("I couldn't load an image from `%s`", unreachable.URL)
	}

	return SystemError(err, "failed to process the image")
}
