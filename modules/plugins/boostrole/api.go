package boostrole

import (
	"github.com/bwmarrin/discordgo"
)

// chatAPI is the slice of the discord REST API the workflows and the
// reconciler touch. Kept narrow so tests can drop in a fake.
type chatAPI interface {
	Guild(guildID string) (*discordgo.Guild, error)
	GuildRoles(guildID string) ([]*discordgo.Role, error)
	Member(guildID string, userID string) (*discordgo.Member, error)
	ListMembers(guildID string, after string, limit int) ([]*discordgo.Member, error)

	CreateRole(guildID string, params *discordgo.RoleParams) (*discordgo.Role, error)
	EditRole(guildID string, roleID string, params *discordgo.RoleParams) (*discordgo.Role, error)
	DeleteRole(guildID string, roleID string) error
	ReorderRoles(guildID string, roles []*discordgo.Role) error

	AddMemberRole(guildID string, userID string, roleID string) error
	RemoveMemberRole(guildID string, userID string, roleID string) error

	BotUserID() string
}

// sessionAPI implements chatAPI on a live discordgo session
type sessionAPI struct {
	session *discordgo.Session
}

func newSessionAPI(session *discordgo.Session) *sessionAPI {
	return &sessionAPI{session: session}
}

func (a *sessionAPI) Guild(guildID string) (*discordgo.Guild, error) {
	guild, err := a.session.State.Guild(guildID)
	if err == nil {
		return guild, nil
	}

	return a.session.Guild(guildID)
}

func (a *sessionAPI) GuildRoles(guildID string) ([]*discordgo.Role, error) {
	return a.session.GuildRoles(guildID)
}

func (a *sessionAPI) Member(guildID string, userID string) (*discordgo.Member, error) {
	member, err := a.session.State.Member(guildID, userID)
	if err == nil && member.User != nil {
		return member, nil
	}

	return a.session.GuildMember(guildID, userID)
}

func (a *sessionAPI) ListMembers(guildID string, after string, limit int) ([]*discordgo.Member, error) {
	return a.session.GuildMembers(guildID, after, limit)
}

func (a *sessionAPI) CreateRole(guildID string, params *discordgo.RoleParams) (*discordgo.Role, error) {
	return a.session.GuildRoleCreate(guildID, params)
}

func (a *sessionAPI) EditRole(guildID string, roleID string, params *discordgo.RoleParams) (*discordgo.Role, error) {
	return a.session.GuildRoleEdit(guildID, roleID, params)
}

func (a *sessionAPI) DeleteRole(guildID string, roleID string) error {
	return a.session.GuildRoleDelete(guildID, roleID)
}

func (a *sessionAPI) ReorderRoles(guildID string, roles []*discordgo.Role) error {
	_, err := a.session.GuildRoleReorder(guildID, roles)
	return err
}

func (a *sessionAPI) AddMemberRole(guildID string, userID string, roleID string) error {
	return a.session.GuildMemberRoleAdd(guildID, userID, roleID)
}

func (a *sessionAPI) RemoveMemberRole(guildID string, userID string, roleID string) error {
	return a.session.GuildMemberRoleRemove(guildID, userID, roleID)
}

func (a *sessionAPI) BotUserID() string {
	if a.session.State != nil && a.session.State.User != nil {
		return a.session.State.User.ID
	}

	return ""
}

// isUnknownRole reports whether err is discord telling us the role is already gone
func isUnknownRole(err error) bool {
	if restErr, ok := err.(*discordgo.RESTError); ok && restErr.Message != nil {
		return restErr.Message.Code == discordgo.ErrCodeUnknownRole
	}

	return false
}
