// Except.go: helpers to keep panic handling in command handlers bearable

package helpers

import (
	"fmt"
	"runtime"
	"strconv"

	"github.com/boostrole/boostrole/cache"
	"github.com/bwmarrin/discordgo"
	"github.com/getsentry/raven-go"
)

var DEBUG_MODE = false

// RecoverDiscord recover()s and sends the error to the invoking channel
func RecoverDiscord(msg *discordgo.Message) {
	err := recover()
	if err != nil {
		SendError(msg, err)
	}
}

// Recover recover()s and reports the error to sentry
func Recover() {
	err := recover()
	if err != nil {
		cache.GetLogger().WithField("module", "except").Errorf("recovered from panic: %#v", err)

		raven.CaptureError(fmt.Errorf("%#v", err), map[string]string{})
	}
}

// Relax is a helper to reduce if-checks if panicking is allowed
// If $err is nil this is a no-op. Panics otherwise.
func Relax(err error) {
	if err != nil {
		if DEBUG_MODE {
			fmt.Printf("%#v\n", err)
		}
		panic(err)
	}
}

// RelaxLog logs the error to console and sentry but neither panics nor notifies the user
func RelaxLog(err error) {
	if err != nil {
		cache.GetLogger().WithField("module", "except").Error("error: ", err.Error())

		raven.CaptureError(err, map[string]string{})
	}
}

// RelaxMessage does nothing when $err is nil or a missing-permissions REST
// error, else hands the error to Relax()
func RelaxMessage(err error, channelID string, commandMessageID string) {
	if err != nil {
		if errD, ok := err.(*discordgo.RESTError); ok && errD.Message != nil {
			if errD.Message.Code == discordgo.ErrCodeMissingPermissions {
				return
			}
		}
		Relax(err)
	}
}

// SendError takes an error and sends it to discord and sentry
func SendError(msg *discordgo.Message, err interface{}) {
	if DEBUG_MODE {
		buf := make([]byte, 1<<16)
		stackSize := runtime.Stack(buf, false)

		if msg != nil {
			cache.GetSession().ChannelMessageSend(
				msg.ChannelID,
				"Error 😞\n```\n"+fmt.Sprintf("%#v\n", err)+fmt.Sprintf("%s\n", string(buf[0:stackSize]))+"\n```",
			)
		}
	} else if msg != nil {
		if errR, ok := err.(*discordgo.RESTError); ok && errR != nil && errR.Message != nil {
			cache.GetSession().ChannelMessageSend(
				msg.ChannelID,
				"Error 😞\n```\n"+fmt.Sprintf("%#v", errR.Message.Message)+"\n```",
			)
		} else {
			cache.GetSession().ChannelMessageSend(
				msg.ChannelID,
				"Error 😞\n```\n"+fmt.Sprintf("%#v", err)+"\n```",
			)
		}
	}

	if msg != nil {
		raven.SetUserContext(&raven.User{
			ID:       msg.ID,
			Username: msg.Author.Username + "#" + msg.Author.Discriminator,
		})

		raven.CaptureError(fmt.Errorf("%#v", err), map[string]string{
			"ChannelID":       msg.ChannelID,
			"Content":         msg.Content,
			"TTS":             strconv.FormatBool(msg.TTS),
			"MentionEveryone": strconv.FormatBool(msg.MentionEveryone),
			"IsBot":           strconv.FormatBool(msg.Author.Bot),
		})
		return
	}

	raven.CaptureError(fmt.Errorf("%#v", err), map[string]string{})
}
