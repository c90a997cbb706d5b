package hotkey

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"improve/log"
)

// DefaultInputDir is where the kernel exposes evdev nodes.
const DefaultInputDir = "/dev/input"

// VirtualKeyboardName is the name of the uinput device used to type output.
// The enumerator skips it so synthesized keystrokes are not read back.
const VirtualKeyboardName = "improve-keyboard"

var (
	// ErrWouldBlock is returned by Device.Read when no event is pending.
	ErrWouldBlock = errors.New("hotkey: no pending input")

	ErrNoKeyboards = errors.New("no keyboards found")
)

// Device is an open input device. It is owned by a single goroutine.
type Device interface {
	Name() string
	Path() string
	HasKey(k Key) bool
	// SetNonblock makes Read return ErrWouldBlock instead of waiting.
	SetNonblock() error
	// Read returns the next key-class event. Other event types are skipped.
	Read() (KeyEvent, error)
	Close() error
}

// InputNode is an evdev node as listed by the kernel.
type InputNode struct {
	Name string
	Path string
}

// Finder produces a fresh set of open keyboards.
type Finder interface {
	FindKeyboards() ([]Device, error)
}

// FinderFunc adapts a function to Finder.
type FinderFunc func() ([]Device, error)

func (f FinderFunc) FindKeyboards() ([]Device, error) { return f() }

// Enumerator scans an input directory for keyboard-class devices.
type Enumerator struct {
	Dir    string
	Open   func(path string) (Device, error)
	Ignore []string
}

// FindKeyboards opens every event node in Dir and keeps those that expose
// KEY_A. Nodes that fail to open are skipped. It returns ErrNoKeyboards when
// nothing qualifies.
func (e Enumerator) FindKeyboards() ([]Device, error) {
	dir := e.Dir
	if dir == "" {
		dir = DefaultInputDir
	}
	open := e.Open
	if open == nil {
		open = OpenDevice
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("scanning %s: %w", dir, err)
	}

	var keyboards []Device
	for _, entry := range entries {
		if !strings.HasPrefix(entry.Name(), "event") {
			continue
		}
		path := filepath.Join(dir, entry.Name())
		dev, err := open(path)
		if err != nil {
			log.Debugf("skipping %s: %v", path, err)
			continue
		}
		if slices.Contains(e.Ignore, dev.Name()) || !dev.HasKey(KeyA) {
			dev.Close()
			continue
		}
		log.Debugf("found keyboard %q at %s", dev.Name(), path)
		keyboards = append(keyboards, dev)
	}

	if len(keyboards) == 0 {
		return nil, fmt.Errorf("%w in %s (join the 'input' group: sudo usermod -aG input $USER, then re-login, or run as root)", ErrNoKeyboards, dir)
	}
	return keyboards, nil
}

// DefaultEnumerator scans /dev/input and skips our own virtual keyboard.
func DefaultEnumerator() Enumerator {
	return Enumerator{
		Dir:    DefaultInputDir,
		Open:   OpenDevice,
		Ignore: []string{VirtualKeyboardName},
	}
}

func closeAll(devs []Device) {
	for _, d := range devs {
		if err := d.Close(); err != nil {
			log.Debugf("closing %s: %v", d.Path(), err)
		}
	}
}
