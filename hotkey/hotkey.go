package hotkey

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// Key is a Linux input-event key code (linux/input-event-codes.h).
type Key uint16

const (
	KeyEsc        Key = 1
	Key1          Key = 2
	Key2          Key = 3
	Key3          Key = 4
	Key4          Key = 5
	Key5          Key = 6
	Key6          Key = 7
	Key7          Key = 8
	Key8          Key = 9
	Key9          Key = 10
	Key0          Key = 11
	KeyTab        Key = 15
	KeyQ          Key = 16
	KeyW          Key = 17
	KeyE          Key = 18
	KeyR          Key = 19
	KeyT          Key = 20
	KeyY          Key = 21
	KeyU          Key = 22
	KeyI          Key = 23
	KeyO          Key = 24
	KeyP          Key = 25
	KeyEnter      Key = 28
	KeyLeftCtrl   Key = 29
	KeyA          Key = 30
	KeyS          Key = 31
	KeyD          Key = 32
	KeyF          Key = 33
	KeyG          Key = 34
	KeyH          Key = 35
	KeyJ          Key = 36
	KeyK          Key = 37
	KeyL          Key = 38
	KeyLeftShift  Key = 42
	KeyZ          Key = 44
	KeyX          Key = 45
	KeyC          Key = 46
	KeyV          Key = 47
	KeyB          Key = 48
	KeyN          Key = 49
	KeyM          Key = 50
	KeyRightShift Key = 54
	KeyLeftAlt    Key = 56
	KeySpace      Key = 57
	KeyF1         Key = 59
	KeyF2         Key = 60
	KeyF3         Key = 61
	KeyF4         Key = 62
	KeyF5         Key = 63
	KeyF6         Key = 64
	KeyF7         Key = 65
	KeyF8         Key = 66
	KeyF9         Key = 67
	KeyF10        Key = 68
	KeyScrollLock Key = 70
	KeyF11        Key = 87
	KeyF12        Key = 88
	KeyRightCtrl  Key = 97
	KeyRightAlt   Key = 100
	KeyHome       Key = 102
	KeyPageUp     Key = 104
	KeyEnd        Key = 107
	KeyPageDown   Key = 109
	KeyInsert     Key = 110
	KeyDelete     Key = 111
	KeyPause      Key = 119
)

// keyNames is the symbolic vocabulary accepted in chord strings.
var keyNames = map[string]Key{
	"A": KeyA, "B": KeyB, "C": KeyC, "D": KeyD, "E": KeyE, "F": KeyF,
	"G": KeyG, "H": KeyH, "I": KeyI, "J": KeyJ, "K": KeyK, "L": KeyL,
	"M": KeyM, "N": KeyN, "O": KeyO, "P": KeyP, "Q": KeyQ, "R": KeyR,
	"S": KeyS, "T": KeyT, "U": KeyU, "V": KeyV, "W": KeyW, "X": KeyX,
	"Y": KeyY, "Z": KeyZ,

	"0": Key0, "1": Key1, "2": Key2, "3": Key3, "4": Key4,
	"5": Key5, "6": Key6, "7": Key7, "8": Key8, "9": Key9,

	"F1": KeyF1, "F2": KeyF2, "F3": KeyF3, "F4": KeyF4,
	"F5": KeyF5, "F6": KeyF6, "F7": KeyF7, "F8": KeyF8,
	"F9": KeyF9, "F10": KeyF10, "F11": KeyF11, "F12": KeyF12,

	"SCROLLLOCK": KeyScrollLock,
	"PAUSE":      KeyPause,
	"INSERT":     KeyInsert,
	"DELETE":     KeyDelete,
	"HOME":       KeyHome,
	"END":        KeyEnd,
	"PAGEUP":     KeyPageUp,
	"PAGEDOWN":   KeyPageDown,
	"SPACE":      KeySpace,
}

var keyLabels = func() map[Key]string {
	m := make(map[Key]string, len(keyNames))
	for name, k := range keyNames {
		m[k] = name
	}
	return m
}()

func (k Key) String() string {
	if name, ok := keyLabels[k]; ok {
		return name
	}
	return fmt.Sprintf("KEY(%d)", uint16(k))
}

// Phase is the kernel's key event value.
type Phase int32

const (
	PhaseRelease Phase = 0
	PhasePress   Phase = 1
	PhaseRepeat  Phase = 2
)

func (p Phase) String() string {
	switch p {
	case PhaseRelease:
		return "release"
	case PhasePress:
		return "press"
	case PhaseRepeat:
		return "repeat"
	default:
		return fmt.Sprintf("phase(%d)", int32(p))
	}
}

// Modifiers is the logical shift/ctrl/alt state. Compare with ==.
type Modifiers struct {
	Shift bool
	Ctrl  bool
	Alt   bool
}

func (m Modifiers) String() string {
	var parts []string
	if m.Ctrl {
		parts = append(parts, "Ctrl")
	}
	if m.Alt {
		parts = append(parts, "Alt")
	}
	if m.Shift {
		parts = append(parts, "Shift")
	}
	if len(parts) == 0 {
		return "none"
	}
	return strings.Join(parts, "+")
}

// Chord is a trigger key plus the exact modifier set that must be held.
type Chord struct {
	Key  Key
	Mods Modifiers
}

func (c Chord) String() string {
	if c.Mods == (Modifiers{}) {
		return c.Key.String()
	}
	return c.Mods.String() + "+" + c.Key.String()
}

// KeyEvent is one key-class event read from a device.
type KeyEvent struct {
	Key   Key
	Phase Phase
	Time  time.Time
}

// Event is emitted when a registered chord fires. Chord is the index
// returned by Table.Register.
type Event struct {
	Chord int
	Phase Phase
	At    time.Time
}

var (
	ErrEmptyChord      = errors.New("empty chord")
	ErrUnknownModifier = errors.New("unknown modifier")
	ErrUnknownKey      = errors.New("unknown key")
)

// ParseChord parses strings like "F9", "Shift+F9" or "Ctrl+Alt+F1".
// Tokens are case-insensitive; the last token is the trigger key.
func ParseChord(s string) (Chord, error) {
	if strings.TrimSpace(s) == "" {
		return Chord{}, ErrEmptyChord
	}
	parts := strings.Split(s, "+")
	var c Chord

	for _, part := range parts[:len(parts)-1] {
		tok := strings.TrimSpace(part)
		switch strings.ToUpper(tok) {
		case "SHIFT":
			c.Mods.Shift = true
		case "CTRL", "CONTROL":
			c.Mods.Ctrl = true
		case "ALT":
			c.Mods.Alt = true
		default:
			return Chord{}, fmt.Errorf("%w: %q", ErrUnknownModifier, tok)
		}
	}

	keyTok := strings.TrimSpace(parts[len(parts)-1])
	k, ok := keyNames[strings.ToUpper(keyTok)]
	if !ok {
		return Chord{}, fmt.Errorf("%w: %q", ErrUnknownKey, keyTok)
	}
	c.Key = k
	return c, nil
}
