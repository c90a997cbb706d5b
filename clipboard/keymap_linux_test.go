package clipboard

import (
	"testing"

	"improve/hotkey"
)

func TestCharToKey(t *testing.T) {
	for _, tt := range []struct {
		c     byte
		code  hotkey.Key
		shift bool
	}{
		{'a', hotkey.KeyA, false},
		{'Z', hotkey.KeyZ, true},
		{'0', hotkey.Key0, false},
		{'7', hotkey.Key7, false},
		{' ', hotkey.KeySpace, false},
		{'\n', hotkey.KeyEnter, false},
		{'!', hotkey.Key1, true},
		{')', hotkey.Key0, true},
		{'.', 52, false},
		{'?', 53, true},
	} {
		code, shift, ok := charToKey(tt.c)
		if !ok || code != tt.code || shift != tt.shift {
			t.Errorf("charToKey(%q) = (%d, %v, %v), want (%d, %v, true)", tt.c, code, shift, ok, tt.code, tt.shift)
		}
	}
}

func TestTypeable(t *testing.T) {
	if !typeable("ls -la | grep \"foo\" && echo $HOME") {
		t.Error("ascii shell command should be typeable")
	}
	for _, s := range []string{"café", "“quoted”", "a\x00b"} {
		if typeable(s) {
			t.Errorf("%q should not be typeable", s)
		}
	}
}
