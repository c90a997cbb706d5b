package notify

import (
	"sync/atomic"

	"github.com/gen2brain/beeep"

	"improve/log"
)

const title = "improve"

var (
	disabled atomic.Bool

	// send is swapped out in tests.
	send = beeep.Notify
)

func Disable() { disabled.Store(true) }

// Error shows a desktop notification for a failed dispatch.
func Error(message string) {
	show("Error: " + message)
}

func Warn(message string) {
	show(message)
}

func show(message string) {
	if disabled.Load() {
		return
	}
	if err := send(title, message, ""); err != nil {
		log.Debugf("notification failed: %v", err)
	}
}
