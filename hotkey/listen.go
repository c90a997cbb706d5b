package hotkey

import (
	"context"
	"time"
)

// ListenConfig tunes the platform listener returned by Start.
type ListenConfig struct {
	Interval time.Duration
	Cooldown time.Duration
	// Hotplug rescans when new input nodes appear (linux only).
	Hotplug bool
}

// Listener produces chord events into its queue until ctx is done and closes
// the queue on exit.
type Listener interface {
	Run(ctx context.Context) error
}
