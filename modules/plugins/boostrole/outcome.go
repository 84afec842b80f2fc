package boostrole

import (
	"fmt"

	"github.com/boostrole/boostrole/cache"
	"github.com/getsentry/raven-go"
)

type OutcomeKind int

const (
	// OutcomeSuccess means the workflow completed and the message describes the result
	OutcomeSuccess OutcomeKind = iota
	// OutcomeUserError means the input was bad, the message tells the user what to fix
	OutcomeUserError
	// OutcomeSystemError means something on our side failed, the detail got logged
	OutcomeSystemError
)

// Outcome is the tri-state result every workflow entry point returns.
type Outcome struct {
	Kind    OutcomeKind
	Message string
}

func Success(format string, args ...interface{}) Outcome {
	return Outcome{Kind: OutcomeSuccess, Message: fmt.Sprintf(format, args...)}
}

func UserError(format string, args ...interface{}) Outcome {
	return Outcome{Kind: OutcomeUserError, Message: fmt.Sprintf(format, args...)}
}

// SystemError logs the detail and hands the user a retry message
func SystemError(err error, format string, args ...interface{}) Outcome {
	message := fmt.Sprintf(format, args...)

	cache.GetLogger().WithField("module", "boostrole").Error(message + ": " + err.Error())
	raven.CaptureError(err, map[string]string{})

	return Outcome{Kind: OutcomeSystemError, Message: message + ", please try again later"}
}
