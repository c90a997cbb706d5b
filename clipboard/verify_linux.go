//go:build linux

package clipboard

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"improve/hotkey"
)

// Verify creates a virtual keyboard, taps Shift on it and reads the tap back
// from the kernel input layer to confirm delivery.
func Verify() (string, error) {
	name := hotkey.VirtualKeyboardName + "-doctor"
	kb, err := OpenKeyboard(name)
	if err != nil {
		return "", fmt.Errorf("uinput init: %w", err)
	}
	defer kb.Close()

	path, err := findInputNode(name)
	if err != nil {
		return "", err
	}
	dev, err := hotkey.OpenDevice(path)
	if err != nil {
		return "", fmt.Errorf("cannot open %s: %w", path, err)
	}
	defer dev.Close()
	if err := dev.SetNonblock(); err != nil {
		return "", err
	}

	if err := kb.Tap(hotkey.KeyLeftShift, 0); err != nil {
		return "", fmt.Errorf("keystroke send: %w", err)
	}

	deadline := time.Now().Add(500 * time.Millisecond)
	for time.Now().Before(deadline) {
		ev, err := dev.Read()
		if errors.Is(err, hotkey.ErrWouldBlock) {
			time.Sleep(10 * time.Millisecond)
			continue
		}
		if err != nil {
			return "", fmt.Errorf("reading events: %w", err)
		}
		if ev.Key == hotkey.KeyLeftShift && ev.Phase == hotkey.PhasePress {
			return fmt.Sprintf("keystroke verified via %s", path), nil
		}
	}
	return "", errors.New("timed out waiting for keystroke events")
}

// findInputNode maps a device name to its /dev/input/event* node via sysfs.
func findInputNode(name string) (string, error) {
	entries, err := os.ReadDir("/sys/class/input")
	if err != nil {
		return "", fmt.Errorf("cannot scan input devices: %w", err)
	}
	for _, e := range entries {
		if !strings.HasPrefix(e.Name(), "event") {
			continue
		}
		data, err := os.ReadFile(filepath.Join("/sys/class/input", e.Name(), "device", "name"))
		if err != nil {
			continue
		}
		if strings.TrimSpace(string(data)) == name {
			return filepath.Join(hotkey.DefaultInputDir, e.Name()), nil
		}
	}
	return "", fmt.Errorf("%s evdev device not found", name)
}
