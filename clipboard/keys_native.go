//go:build darwin || windows

package clipboard

import (
	"context"
	"fmt"
	"time"

	"github.com/micmonay/keybd_event"
)

// nativeKeys sends shortcuts through the OS input APIs.
type nativeKeys struct{}

func newNativeKeys() (*nativeKeys, error) {
	if _, err := keybd_event.NewKeyBonding(); err != nil {
		return nil, err
	}
	return &nativeKeys{}, nil
}

// shortcut taps key with Cmd (macOS) or Ctrl held, or plain Ctrl when
// primary is false. Each call gets a fresh bonding so modifiers never carry
// over.
func (n *nativeKeys) shortcut(key int, primary bool) error {
	kb, err := keybd_event.NewKeyBonding()
	if err != nil {
		return err
	}
	kb.SetKeys(key)
	if primary {
		setPrimaryModifier(&kb)
	} else {
		kb.HasCTRL(true)
	}
	return kb.Launching()
}

func (n *nativeKeys) Copy() error  { return n.shortcut(keybd_event.VK_C, true) }
func (n *nativeKeys) Paste() error { return n.shortcut(keybd_event.VK_V, true) }

func (n *nativeKeys) ClearLine() error {
	if err := n.shortcut(keybd_event.VK_U, false); err != nil {
		return err
	}
	time.Sleep(50 * time.Millisecond)
	return nil
}

func (n *nativeKeys) Close() error { return nil }

// NewTyper returns a paste-based typer; the native platforms have no uinput
// or wtype.
func NewTyper(mode string) (Typer, error) {
	switch mode {
	case ModeAuto, ModePaste, "":
	default:
		return nil, fmt.Errorf("typer %q: %w", mode, ErrUnsupported)
	}
	keys, err := newNativeKeys()
	if err != nil {
		return nil, err
	}
	return newPasteTyper(keys), nil
}

// ReadSelection copies the highlighted text with the copy shortcut and reads
// it back from the clipboard.
func ReadSelection(ctx context.Context) (string, error) {
	keys, err := newNativeKeys()
	if err != nil {
		return "", err
	}
	if err := keys.Copy(); err != nil {
		return "", fmt.Errorf("simulating copy: %w", err)
	}
	select {
	case <-ctx.Done():
		return "", ctx.Err()
	case <-time.After(100 * time.Millisecond):
	}
	return Read()
}

// Verify checks that the keyboard event binding is initialized.
func Verify() (string, error) {
	if _, err := newNativeKeys(); err != nil {
		return "", err
	}
	return "keyboard event binding OK", nil
}
