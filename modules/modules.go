package modules

import (
	"fmt"
	"os"
	"reflect"
	"strconv"

	"github.com/boostrole/boostrole/cache"
	"github.com/boostrole/boostrole/helpers"
	"github.com/boostrole/boostrole/metrics"
	"github.com/boostrole/boostrole/modules/plugins"
	"github.com/boostrole/boostrole/modules/plugins/boostrole"
	"github.com/boostrole/boostrole/ratelimits"
	"github.com/bwmarrin/discordgo"
)

var (
	pluginCache map[string]*Plugin

	PluginList = []Plugin{
		&boostrole.Handler{},
		&plugins.Stats{},
	}
)

// Init warms the caches and initializes the plugins
func Init(session *discordgo.Session) {
	checkDuplicateCommands()

	pluginCache = make(map[string]*Plugin)

	logTemplate := "[PLUG] %s reacts to [ %s]"
	listeners := ""

	for i := 0; i < len(PluginList); i++ {
		ref := &PluginList[i]

		for _, cmd := range (*ref).Commands() {
			pluginCache[cmd] = ref
			listeners += cmd + " "
		}

		cache.GetLogger().WithField("module", "modules").Infof(
			logTemplate,
			typeOf(*ref),
			listeners,
		)
		listeners = ""

		(*ref).Init(session)
	}

	cache.GetLogger().WithField("module", "modules").Info(
		"Initializer finished. Loaded " + strconv.Itoa(len(PluginList)) + " plugins",
	)
}

// CallBotPlugin routes a parsed command to the plugin that registered it.
// command - the command that triggered this execution
// content - the content without the command
// msg     - the message object
func CallBotPlugin(command string, content string, msg *discordgo.Message) {
	// Defer a recovery in case anything panics
	defer helpers.RecoverDiscord(msg)

	// Consume a key for this action
	ratelimits.Container.Drain(1, msg.Author.ID)

	// Track metrics
	metrics.CommandsExecuted.Add(1)

	if ref, ok := pluginCache[command]; ok {
		(*ref).Action(command, content, msg, cache.GetSession())
	}
}

// CallPluginInteraction routes an application command interaction
func CallPluginInteraction(interaction *discordgo.InteractionCreate) {
	defer helpers.Recover()

	if interaction.Type != discordgo.InteractionApplicationCommand {
		return
	}

	name := interaction.ApplicationCommandData().Name
	for _, plug := range PluginList {
		interactionPlug, ok := plug.(InteractionPlugin)
		if !ok {
			continue
		}
		for _, slashCommand := range interactionPlug.SlashCommands() {
			if slashCommand.Name == name {
				metrics.CommandsExecuted.Add(1)
				interactionPlug.ActionInteraction(interaction, cache.GetSession())
				return
			}
		}
	}
}

// Uninit stops plugins that run background workers
func Uninit(session *discordgo.Session) {
	for _, plug := range PluginList {
		if uninitPlug, ok := plug.(UninitPlugin); ok {
			uninitPlug.Uninit(session)

			cache.GetLogger().WithField("module", "modules").Info(
				"Uninitialized " + typeOf(plug),
			)
		}
	}
}

// SlashCommands collects the application commands of every plugin
// for registration with discord
func SlashCommands() []*discordgo.ApplicationCommand {
	commands := make([]*discordgo.ApplicationCommand, 0)
	for _, plug := range PluginList {
		if interactionPlug, ok := plug.(InteractionPlugin); ok {
			commands = append(commands, interactionPlug.SlashCommands()...)
		}
	}

	return commands
}

func typeOf(i interface{}) string {
	return reflect.TypeOf(i).String()
}

func checkDuplicateCommands() {
	cmds := make(map[string]string)

	for _, plug := range PluginList {
		for _, cmd := range plug.Commands() {
			t := typeOf(plug)

			if occupant, ok := cmds[cmd]; ok {
				cache.GetLogger().WithField("module", "modules").Info(
					fmt.Sprintf("Failed to load %s because '%s' was already registered by %s", t, cmd, occupant),
				)
				os.Exit(1)
			}

			cmds[cmd] = t
		}
	}
}
