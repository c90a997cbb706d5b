//go:build darwin || windows

package hotkey

import (
	"context"
	"fmt"
	"time"

	"golang.design/x/hotkey"
)

var nativeKeys = map[Key]hotkey.Key{
	KeyA: hotkey.KeyA, KeyB: hotkey.KeyB, KeyC: hotkey.KeyC, KeyD: hotkey.KeyD,
	KeyE: hotkey.KeyE, KeyF: hotkey.KeyF, KeyG: hotkey.KeyG, KeyH: hotkey.KeyH,
	KeyI: hotkey.KeyI, KeyJ: hotkey.KeyJ, KeyK: hotkey.KeyK, KeyL: hotkey.KeyL,
	KeyM: hotkey.KeyM, KeyN: hotkey.KeyN, KeyO: hotkey.KeyO, KeyP: hotkey.KeyP,
	KeyQ: hotkey.KeyQ, KeyR: hotkey.KeyR, KeyS: hotkey.KeyS, KeyT: hotkey.KeyT,
	KeyU: hotkey.KeyU, KeyV: hotkey.KeyV, KeyW: hotkey.KeyW, KeyX: hotkey.KeyX,
	KeyY: hotkey.KeyY, KeyZ: hotkey.KeyZ,

	Key0: hotkey.Key0, Key1: hotkey.Key1, Key2: hotkey.Key2, Key3: hotkey.Key3,
	Key4: hotkey.Key4, Key5: hotkey.Key5, Key6: hotkey.Key6, Key7: hotkey.Key7,
	Key8: hotkey.Key8, Key9: hotkey.Key9,

	KeyF1: hotkey.KeyF1, KeyF2: hotkey.KeyF2, KeyF3: hotkey.KeyF3, KeyF4: hotkey.KeyF4,
	KeyF5: hotkey.KeyF5, KeyF6: hotkey.KeyF6, KeyF7: hotkey.KeyF7, KeyF8: hotkey.KeyF8,
	KeyF9: hotkey.KeyF9, KeyF10: hotkey.KeyF10, KeyF11: hotkey.KeyF11, KeyF12: hotkey.KeyF12,

	KeySpace:  hotkey.KeySpace,
	KeyDelete: hotkey.KeyDelete,
}

func nativeMods(m Modifiers) []hotkey.Modifier {
	var mods []hotkey.Modifier
	if m.Ctrl {
		mods = append(mods, hotkey.ModCtrl)
	}
	if m.Shift {
		mods = append(mods, hotkey.ModShift)
	}
	if m.Alt {
		mods = append(mods, modAlt)
	}
	return mods
}

// NativeListener registers each chord with the OS hotkey API and feeds
// presses into a Queue, standing in for the evdev poller.
type NativeListener struct {
	hks []*hotkey.Hotkey
}

func NewNativeListener(table *Table) (*NativeListener, error) {
	l := &NativeListener{}
	for _, c := range table.Chords() {
		key, ok := nativeKeys[c.Key]
		if !ok {
			l.unregister()
			return nil, fmt.Errorf("%w for native hotkeys: %q", ErrUnknownKey, c.Key.String())
		}
		hk := hotkey.New(nativeMods(c.Mods), key)
		if err := hk.Register(); err != nil {
			l.unregister()
			return nil, fmt.Errorf("registering %s: %w", c, err)
		}
		l.hks = append(l.hks, hk)
	}
	return l, nil
}

// Run forwards presses to q until ctx is done, then unregisters and closes q.
func (l *NativeListener) Run(ctx context.Context, q *Queue) error {
	defer func() {
		l.unregister()
		q.Close(nil)
	}()

	fired := make(chan int)
	for i, hk := range l.hks {
		go func(idx int, hk *hotkey.Hotkey) {
			for {
				select {
				case <-hk.Keydown():
				case <-ctx.Done():
					return
				}
				select {
				case fired <- idx:
				case <-ctx.Done():
					return
				}
			}
		}(i, hk)
	}

	for {
		select {
		case <-ctx.Done():
			return nil
		case idx := <-fired:
			_ = q.Send(Event{Chord: idx, Phase: PhasePress, At: time.Now()})
		}
	}
}

type nativeRunner struct {
	l *NativeListener
	q *Queue
}

func (r nativeRunner) Run(ctx context.Context) error { return r.l.Run(ctx, r.q) }

// Start registers the chords with the OS. Polling and hot-plug settings do
// not apply.
func Start(table *Table, q *Queue, _ ListenConfig) (Listener, error) {
	l, err := NewNativeListener(table)
	if err != nil {
		return nil, err
	}
	return nativeRunner{l: l, q: q}, nil
}

func (l *NativeListener) unregister() {
	for _, hk := range l.hks {
		hk.Unregister()
	}
	l.hks = nil
}
