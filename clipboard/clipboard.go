package clipboard

import (
	"errors"

	cb "github.com/atotto/clipboard"
)

const (
	ModeAuto   = "auto"
	ModeUinput = "uinput"
	ModeWtype  = "wtype"
	ModePaste  = "paste"
)

var ErrUnsupported = errors.New("not supported on this platform")

// Typer writes text at the cursor of the focused window.
type Typer interface {
	Type(text string) error
	// ClearLine erases the current input line with Ctrl+U.
	ClearLine() error
	Close() error
}

func Read() (string, error) {
	return cb.ReadAll()
}

func Copy(text string) error {
	return cb.WriteAll(text)
}

// keystroker sends the shortcuts a paste-based typer needs.
type keystroker interface {
	Paste() error
	ClearLine() error
	Close() error
}

// pasteTyper puts text on the clipboard and sends the paste shortcut.
type pasteTyper struct {
	keys keystroker
	copy func(string) error
}

func newPasteTyper(keys keystroker) *pasteTyper {
	return &pasteTyper{keys: keys, copy: Copy}
}

func (p *pasteTyper) Type(text string) error {
	if text == "" {
		return nil
	}
	if err := p.copy(text); err != nil {
		return err
	}
	return p.keys.Paste()
}

func (p *pasteTyper) ClearLine() error { return p.keys.ClearLine() }
func (p *pasteTyper) Close() error     { return p.keys.Close() }
