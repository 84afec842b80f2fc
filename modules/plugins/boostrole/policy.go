package boostrole

import (
	"github.com/bwmarrin/discordgo"
	"github.com/pkg/errors"
)

var (
	// ErrQuotaExceeded means the target already has a tracked perk role
	ErrQuotaExceeded = errors.New("user already has a perk role")
	// ErrNotEntitled means the actor may not provision a role for the target
	ErrNotEntitled = errors.New("not entitled to a perk role")
)

// CanProvision decides whether actor may provision a perk role for target.
// The quota check runs first for creates so that even self-entitled boosters
// and mods cannot stack a second role onto the same user. After that:
// boosters may provision for themselves, mods may provision for anyone.
func CanProvision(actorID string, targetID string, targetIsBoosting bool, actorIsMod bool, existingRoles int, creating bool) error {
	if creating && existingRoles > 0 {
		return ErrQuotaExceeded
	}

	if actorID == targetID && targetIsBoosting {
		return nil
	}

	if actorIsMod {
		return nil
	}

	return ErrNotEntitled
}

// MemberIsMod reports whether the member may manage perk roles for others:
// manage roles or administrator permission, guild ownership, or the
// configured override owner.
func MemberIsMod(guild *discordgo.Guild, member *discordgo.Member, overrideOwnerID string) bool {
	if member == nil || member.User == nil {
		return false
	}

	if overrideOwnerID != "" && member.User.ID == overrideOwnerID {
		return true
	}

	if guild != nil && guild.OwnerID == member.User.ID {
		return true
	}

	if guild == nil {
		return false
	}

	modRoles := modRoleSet(guild.Roles)
	for _, roleID := range member.Roles {
		if _, ok := modRoles[roleID]; ok {
			return true
		}
	}

	return false
}

// modRoleSet collects the ids of all roles carrying manage-roles or administrator
func modRoleSet(roles []*discordgo.Role) map[string]struct{} {
	set := make(map[string]struct{})
	for _, role := range roles {
		if role.Permissions&discordgo.PermissionAdministrator == discordgo.PermissionAdministrator ||
			role.Permissions&discordgo.PermissionManageRoles == discordgo.PermissionManageRoles {
			set[role.ID] = struct{}{}
		}
	}

	return set
}

// memberIsBoosting reports whether the member currently boosts the guild
func memberIsBoosting(member *discordgo.Member) bool {
	return member != nil && member.PremiumSince != nil
}
