//go:build linux

package hotkey

import (
	"context"
	"time"

	"improve/log"
)

const hotplugDebounce = 500 * time.Millisecond

type evdevListener struct {
	poller  *Poller
	watcher *HotplugWatcher
}

// Start opens every keyboard under /dev/input and returns a poller-backed
// listener. It fails with ErrNoKeyboards before anything runs when no
// keyboard is readable.
func Start(table *Table, q *Queue, cfg ListenConfig) (Listener, error) {
	finder := DefaultEnumerator()
	devices, err := finder.FindKeyboards()
	if err != nil {
		return nil, err
	}
	log.Infof("found %d keyboard(s)", len(devices))

	var opts []Option
	if cfg.Interval > 0 {
		opts = append(opts, WithInterval(cfg.Interval))
	}
	if cfg.Cooldown > 0 {
		opts = append(opts, WithCooldown(cfg.Cooldown))
	}

	var watcher *HotplugWatcher
	if cfg.Hotplug {
		watcher, err = WatchHotplug(finder.Dir, hotplugDebounce)
		if err != nil {
			log.Warnf("hot-plug watch disabled: %v", err)
		} else {
			opts = append(opts, WithHotplug(watcher.Hints()))
		}
	}

	p, err := NewPoller(table, finder, q, devices, opts...)
	if err != nil {
		if watcher != nil {
			watcher.Close()
		}
		return nil, err
	}
	return &evdevListener{poller: p, watcher: watcher}, nil
}

func (l *evdevListener) Run(ctx context.Context) error {
	if l.watcher != nil {
		defer l.watcher.Close()
	}
	return l.poller.Run(ctx)
}
