package cache

import (
	"errors"

	"github.com/bwmarrin/discordgo"
)

var session *discordgo.Session

func SetSession(s *discordgo.Session) {
	session = s
}

func GetSession() *discordgo.Session {
	if session == nil {
		panic(errors.New("tried to get discord session before cache#SetSession() was called"))
	}

	return session
}
