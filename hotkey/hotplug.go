package hotkey

import (
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"improve/log"
)

// HotplugWatcher watches an input directory and emits a hint once new event
// nodes have settled. udev usually fixes permissions shortly after creating
// the node, so both creates and chmods restart the debounce timer.
type HotplugWatcher struct {
	w        *fsnotify.Watcher
	hints    chan struct{}
	done     chan struct{}
	debounce time.Duration
	once     sync.Once
}

func WatchHotplug(dir string, debounce time.Duration) (*HotplugWatcher, error) {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if err := w.Add(dir); err != nil {
		w.Close()
		return nil, err
	}
	h := &HotplugWatcher{
		w:        w,
		hints:    make(chan struct{}, 1),
		done:     make(chan struct{}),
		debounce: debounce,
	}
	go h.run()
	return h, nil
}

// Hints delivers at most one pending rescan request.
func (h *HotplugWatcher) Hints() <-chan struct{} { return h.hints }

func (h *HotplugWatcher) Close() error {
	var err error
	h.once.Do(func() {
		close(h.done)
		err = h.w.Close()
	})
	return err
}

func (h *HotplugWatcher) run() {
	var timer *time.Timer
	var fire <-chan time.Time
	defer func() {
		if timer != nil {
			timer.Stop()
		}
	}()

	for {
		select {
		case <-h.done:
			return
		case ev, ok := <-h.w.Events:
			if !ok {
				return
			}
			if !strings.HasPrefix(filepath.Base(ev.Name), "event") {
				continue
			}
			if !ev.Has(fsnotify.Create) && !ev.Has(fsnotify.Chmod) {
				continue
			}
			log.Debugf("input node changed: %s", ev)
			if timer == nil {
				timer = time.NewTimer(h.debounce)
			} else {
				timer.Reset(h.debounce)
			}
			fire = timer.C
		case err, ok := <-h.w.Errors:
			if !ok {
				return
			}
			log.Warnf("hot-plug watcher: %v", err)
		case <-fire:
			fire = nil
			select {
			case h.hints <- struct{}{}:
			default:
			}
		}
	}
}
