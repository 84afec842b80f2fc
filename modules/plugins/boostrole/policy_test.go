package boostrole

import (
	"testing"

	"github.com/bwmarrin/discordgo"
)

func TestCanProvision(t *testing.T) {
	tests := []struct {
		name string

		actorID          string
		targetID         string
		targetIsBoosting bool
		actorIsMod       bool
		existingRoles    int
		creating         bool

		want error
	}{
		{
			name:    "booster provisions for themselves",
			actorID: "1", targetID: "1", targetIsBoosting: true,
			want: nil,
		},
		{
			name:    "non-booster cannot provision for themselves",
			actorID: "1", targetID: "1", targetIsBoosting: false,
			want: ErrNotEntitled,
		},
		{
			name:    "mod provisions for a non-boosting target",
			actorID: "1", targetID: "2", actorIsMod: true,
			want: nil,
		},
		{
			name:    "regular member cannot provision for someone else",
			actorID: "1", targetID: "2", targetIsBoosting: true,
			want: ErrNotEntitled,
		},
		{
			name:    "quota beats self entitlement on create",
			actorID: "1", targetID: "1", targetIsBoosting: true, existingRoles: 1, creating: true,
			want: ErrQuotaExceeded,
		},
		{
			name:    "quota beats mod entitlement on create",
			actorID: "1", targetID: "2", actorIsMod: true, existingRoles: 1, creating: true,
			want: ErrQuotaExceeded,
		},
		{
			name:    "quota only binds creates",
			actorID: "1", targetID: "1", targetIsBoosting: true, existingRoles: 1, creating: false,
			want: nil,
		},
		{
			name:    "neither entitled nor mod",
			actorID: "1", targetID: "2",
			want: ErrNotEntitled,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := CanProvision(tt.actorID, tt.targetID, tt.targetIsBoosting, tt.actorIsMod, tt.existingRoles, tt.creating)
			if got != tt.want {
				t.Errorf("CanProvision() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestMemberIsMod(t *testing.T) {
	guild := &discordgo.Guild{
		ID:      "g1",
		OwnerID: "owner",
		Roles: []*discordgo.Role{
			{ID: "admin", Permissions: discordgo.PermissionAdministrator},
			{ID: "manager", Permissions: discordgo.PermissionManageRoles},
			{ID: "plain", Permissions: discordgo.PermissionSendMessages},
		},
	}

	member := func(userID string, roleIDs ...string) *discordgo.Member {
		return &discordgo.Member{User: &discordgo.User{ID: userID}, Roles: roleIDs}
	}

	tests := []struct {
		name     string
		member   *discordgo.Member
		override string
		want     bool
	}{
		{"admin role", member("1", "admin"), "", true},
		{"manage roles role", member("1", "manager"), "", true},
		{"plain role", member("1", "plain"), "", false},
		{"no roles", member("1"), "", false},
		{"guild owner", member("owner"), "", true},
		{"override owner", member("2"), "2", true},
		{"override owner does not match others", member("3", "plain"), "2", false},
		{"nil member", nil, "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := MemberIsMod(guild, tt.member, tt.override); got != tt.want {
				t.Errorf("MemberIsMod() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestMemberIsBoosting(t *testing.T) {
	if memberIsBoosting(&discordgo.Member{}) {
		t.Error("member without premium timestamp counts as boosting")
	}

	since := boostTime
	if !memberIsBoosting(&discordgo.Member{PremiumSince: &since}) {
		t.Error("member with premium timestamp does not count as boosting")
	}

	if memberIsBoosting(nil) {
		t.Error("nil member counts as boosting")
	}
}
