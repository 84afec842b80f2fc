package metrics

import (
	"expvar"
	"net/http"
	"runtime"
	"time"

	"github.com/boostrole/boostrole/cache"
	"github.com/boostrole/boostrole/helpers"
	"github.com/bwmarrin/discordgo"
)

var (
	// MessagesReceived counts all ever received messages
	MessagesReceived = expvar.NewInt("messages_received")

	// UserCount counts all known users
	UserCount = expvar.NewInt("user_count")

	// GuildCount counts all joined guilds
	GuildCount = expvar.NewInt("guild_count")

	// CommandsExecuted increases after each command execution
	CommandsExecuted = expvar.NewInt("commands_executed")

	// BoostRolesCreated increases whenever a perk role gets provisioned
	BoostRolesCreated = expvar.NewInt("boostroles_created")

	// BoostRolesRemoved increases for every perk role the reconciler revokes
	BoostRolesRemoved = expvar.NewInt("boostroles_removed")

	// SweepsCompleted increases after every full reconciliation sweep
	SweepsCompleted = expvar.NewInt("sweeps_completed")

	// CoroutineCount counts all running goroutines
	CoroutineCount = expvar.NewInt("coroutine_count")

	// Uptime stores the timestamp of the bot's boot
	Uptime = expvar.NewInt("uptime")
)

// Init starts the expvar http listener
func Init() {
	listenIP := helpers.ConfigString("metrics_ip")
	if listenIP == "" {
		listenIP = "127.0.0.1"
	}

	cache.GetLogger().WithField("module", "metrics").Info("Listening on " + listenIP + ":1337")
	Uptime.Set(time.Now().Unix())
	go http.ListenAndServe(listenIP+":1337", nil)
}

// OnReady listens for said discord event
func OnReady(session *discordgo.Session, event *discordgo.Ready) {
	go CollectDiscordMetrics(session)
	go CollectRuntimeMetrics()
}

// OnMessageCreate listens for said discord event
func OnMessageCreate(session *discordgo.Session, event *discordgo.MessageCreate) {
	MessagesReceived.Add(1)
}

// CollectDiscordMetrics counts guilds and users
func CollectDiscordMetrics(session *discordgo.Session) {
	for {
		time.Sleep(15 * time.Second)

		users := make(map[string]struct{})
		guilds := session.State.Guilds

		for _, guild := range guilds {
			for _, member := range guild.Members {
				users[member.User.ID] = struct{}{}
			}
		}

		UserCount.Set(int64(len(users)))
		GuildCount.Set(int64(len(guilds)))
	}
}

// CollectRuntimeMetrics counts all running goroutines
func CollectRuntimeMetrics() {
	for {
		time.Sleep(15 * time.Second)
		CoroutineCount.Set(int64(runtime.NumGoroutine()))
	}
}
