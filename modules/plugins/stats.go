package plugins

import (
	"fmt"
	"runtime"
	"strconv"
	"time"

	"github.com/boostrole/boostrole/helpers"
	"github.com/boostrole/boostrole/metrics"
	"github.com/boostrole/boostrole/version"
	"github.com/bwmarrin/discordgo"
	"github.com/dustin/go-humanize"
)

type Stats struct{}

func (s *Stats) Commands() []string {
	return []string{
		"stats",
		"uptime",
	}
}

func (s *Stats) Init(session *discordgo.Session) {
}

func (s *Stats) Action(command string, content string, msg *discordgo.Message, session *discordgo.Session) {
	switch command {
	case "stats":
		session.ChannelTyping(msg.ChannelID)

		channels := 0
		members := 0
		boosters := 0
		guilds := session.State.Guilds
		for _, guild := range guilds {
			channels += len(guild.Channels)
			members += guild.MemberCount
			boosters += guild.PremiumSubscriptionCount
		}

		var ram runtime.MemStats
		runtime.ReadMemStats(&ram)

		session.ChannelMessageSendEmbed(msg.ChannelID, &discordgo.MessageEmbed{
			Color: 0x0FADED,
			Thumbnail: &discordgo.MessageEmbedThumbnail{
				URL: fmt.Sprintf(
					"https://cdn.discordapp.com/avatars/%s/%s.jpg",
					session.State.User.ID,
					session.State.User.Avatar,
				),
			},
			Fields: []*discordgo.MessageEmbedField{
				// Build
				{Name: "Build Time", Value: version.BUILD_TIME, Inline: false},
				{Name: "Build Host", Value: version.BUILD_HOST, Inline: false},

				// System
				{Name: "Bot Uptime", Value: s.uptime(), Inline: true},
				{Name: "Bot Version", Value: version.BOT_VERSION, Inline: true},
				{Name: "GO Version", Value: runtime.Version(), Inline: true},

				// Bot
				{Name: "Used RAM", Value: humanize.Bytes(ram.Alloc) + "/" + humanize.Bytes(ram.Sys), Inline: true},
				{Name: "Collected garbage", Value: humanize.Bytes(ram.TotalAlloc), Inline: true},
				{Name: "Running coroutines", Value: strconv.Itoa(runtime.NumGoroutine()), Inline: true},

				// Discord
				{Name: "Connected servers", Value: humanize.Comma(int64(len(guilds))), Inline: true},
				{Name: "Watching channels", Value: humanize.Comma(int64(channels)), Inline: true},
				{Name: "Members", Value: humanize.Comma(int64(members)), Inline: true},
				{Name: "Boosters", Value: humanize.Comma(int64(boosters)), Inline: true},

				// Perk roles
				{Name: "Perk roles created", Value: metrics.BoostRolesCreated.String(), Inline: true},
				{Name: "Perk roles removed", Value: metrics.BoostRolesRemoved.String(), Inline: true},
				{Name: "Sweeps completed", Value: metrics.SweepsCompleted.String(), Inline: true},
			},
		})
	case "uptime":
		session.ChannelTyping(msg.ChannelID)

		_, err := helpers.SendMessage(msg.ChannelID, "I'm up since "+s.uptime())
		helpers.RelaxMessage(err, msg.ChannelID, msg.ID)
	}
}

func (s *Stats) uptime() string {
	bootTime, err := strconv.ParseInt(metrics.Uptime.String(), 10, 64)
	if err != nil || bootTime == 0 {
		return "unknown"
	}

	return time.Since(time.Unix(bootTime, 0)).Round(time.Second).String()
}
