//go:build linux

package clipboard

import (
	"encoding/binary"
	"errors"
	"fmt"
	"os"
	"time"

	"golang.org/x/sys/unix"

	"improve/hotkey"
)

// ioctl constants from linux/uinput.h
const (
	uiSetEvbit   = 0x40045564 // UI_SET_EVBIT
	uiSetKeybit  = 0x40045565 // UI_SET_KEYBIT
	uiDevCreate  = 0x5501     // UI_DEV_CREATE
	uiDevDestroy = 0x5502     // UI_DEV_DESTROY
)

// input event types from linux/input-event-codes.h
const (
	evSyn = 0x00
	evKey = 0x01
)

const busUSB = 0x03

// keyDelay lets the compositor register modifier state between events.
const keyDelay = 5 * time.Millisecond

type inputEvent struct {
	Time  unix.Timeval
	Type  uint16
	Code  uint16
	Value int32
}

type inputID struct {
	Bustype uint16
	Vendor  uint16
	Product uint16
	Version uint16
}

type uinputUserDev struct {
	Name         [80]byte
	ID           inputID
	FfEffectsMax uint32
	Absmax       [64]int32
	Absmin       [64]int32
	Absfuzz      [64]int32
	Absflat      [64]int32
}

// Keyboard is a virtual uinput keyboard.
type Keyboard struct {
	f    *os.File
	name string
}

func uinputPath() (string, error) {
	for _, p := range []string{"/dev/uinput", "/dev/input/uinput"} {
		if _, err := os.Stat(p); err == nil {
			return p, nil
		}
	}
	return "", errors.New("uinput device not found, try: sudo modprobe uinput")
}

// OpenKeyboard creates a virtual keyboard called name.
func OpenKeyboard(name string) (*Keyboard, error) {
	path, err := uinputPath()
	if err != nil {
		return nil, err
	}
	f, err := os.OpenFile(path, os.O_WRONLY|unix.O_NONBLOCK, os.ModeDevice)
	if err != nil {
		return nil, err
	}
	fd := int(f.Fd())

	setup := func() error {
		if err := unix.IoctlSetInt(fd, uiSetEvbit, evKey); err != nil {
			return fmt.Errorf("UI_SET_EVBIT EV_KEY: %w", err)
		}
		if err := unix.IoctlSetInt(fd, uiSetEvbit, evSyn); err != nil {
			return fmt.Errorf("UI_SET_EVBIT EV_SYN: %w", err)
		}
		// Register all standard keys so udev classifies this as a keyboard
		for code := range 256 {
			if err := unix.IoctlSetInt(fd, uiSetKeybit, code); err != nil {
				return fmt.Errorf("UI_SET_KEYBIT %d: %w", code, err)
			}
		}
		dev := uinputUserDev{}
		copy(dev.Name[:], name)
		dev.ID.Bustype = busUSB
		dev.ID.Vendor = 0x1234
		dev.ID.Product = 0x5678
		dev.ID.Version = 1
		if err := binary.Write(f, binary.NativeEndian, &dev); err != nil {
			return err
		}
		if err := unix.IoctlSetInt(fd, uiDevCreate, 0); err != nil {
			return fmt.Errorf("UI_DEV_CREATE: %w", err)
		}
		return nil
	}
	if err := setup(); err != nil {
		f.Close()
		return nil, err
	}

	// Give compositor time to recognize the new input device
	time.Sleep(200 * time.Millisecond)
	return &Keyboard{f: f, name: name}, nil
}

func (k *Keyboard) Close() error {
	if k.f == nil {
		return nil
	}
	unix.IoctlSetInt(int(k.f.Fd()), uiDevDestroy, 0)
	err := k.f.Close()
	k.f = nil
	return err
}

func (k *Keyboard) write(typ, code uint16, value int32) error {
	ev := inputEvent{Type: typ, Code: code, Value: value}
	return binary.Write(k.f, binary.NativeEndian, &ev)
}

// key sends one key event followed by a sync report.
func (k *Keyboard) key(code hotkey.Key, phase hotkey.Phase) error {
	if err := k.write(evKey, uint16(code), int32(phase)); err != nil {
		return err
	}
	return k.write(evSyn, 0, 0)
}

// Tap presses and releases code, holding mod around it when mod is non-zero.
func (k *Keyboard) Tap(code, mod hotkey.Key) error {
	if mod != 0 {
		if err := k.key(mod, hotkey.PhasePress); err != nil {
			return err
		}
		time.Sleep(keyDelay)
	}
	if err := k.key(code, hotkey.PhasePress); err != nil {
		return err
	}
	if err := k.key(code, hotkey.PhaseRelease); err != nil {
		return err
	}
	if mod != 0 {
		time.Sleep(keyDelay)
		return k.key(mod, hotkey.PhaseRelease)
	}
	return nil
}

func (k *Keyboard) Paste() error {
	return k.Tap(hotkey.KeyV, hotkey.KeyLeftCtrl)
}

func (k *Keyboard) ClearLine() error {
	if err := k.Tap(hotkey.KeyU, hotkey.KeyLeftCtrl); err != nil {
		return err
	}
	time.Sleep(50 * time.Millisecond)
	return nil
}

// Type sends text as keystrokes. Text with characters outside the US layout
// is pasted through the clipboard instead.
func (k *Keyboard) Type(text string) error {
	if !typeable(text) {
		if err := Copy(text); err != nil {
			return err
		}
		return k.Paste()
	}
	for i := 0; i < len(text); i++ {
		code, shift, _ := charToKey(text[i])
		var mod hotkey.Key
		if shift {
			mod = hotkey.KeyLeftShift
		}
		if err := k.Tap(code, mod); err != nil {
			return err
		}
	}
	return nil
}
