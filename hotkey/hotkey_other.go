//go:build !linux

package hotkey

import (
	"errors"
	"runtime"
)

var errNoEvdev = errors.New("raw input devices are only supported on linux (" + runtime.GOOS + ")")

func OpenDevice(path string) (Device, error) {
	return nil, errNoEvdev
}

func ListInputNodes() ([]InputNode, error) {
	return nil, errNoEvdev
}
