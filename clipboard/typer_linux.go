//go:build linux

package clipboard

import (
	"fmt"

	"improve/hotkey"
	"improve/log"
)

// NewTyper builds the typer for mode. Auto prefers the uinput keyboard and
// falls back to wtype.
func NewTyper(mode string) (Typer, error) {
	switch mode {
	case ModeUinput:
		kb, err := OpenKeyboard(hotkey.VirtualKeyboardName)
		if err != nil {
			return nil, err
		}
		return kb, nil
	case ModeWtype:
		w, err := newWtypeTyper()
		if err != nil {
			return nil, err
		}
		return w, nil
	case ModePaste:
		keys, err := pasteKeys()
		if err != nil {
			return nil, err
		}
		return newPasteTyper(keys), nil
	case ModeAuto, "":
		kb, err := OpenKeyboard(hotkey.VirtualKeyboardName)
		if err == nil {
			return kb, nil
		}
		log.Warnf("uinput keyboard unavailable (%v), trying wtype", err)
		w, werr := newWtypeTyper()
		if werr != nil {
			return nil, fmt.Errorf("no typer available: uinput: %v; %w", err, werr)
		}
		return w, nil
	default:
		return nil, fmt.Errorf("unknown typer %q", mode)
	}
}

func pasteKeys() (keystroker, error) {
	kb, err := OpenKeyboard(hotkey.VirtualKeyboardName)
	if err == nil {
		return kb, nil
	}
	w, werr := newWtypeTyper()
	if werr != nil {
		return nil, fmt.Errorf("paste needs uinput or wtype: %v; %w", err, werr)
	}
	return w, nil
}
