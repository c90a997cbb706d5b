//go:build linux

package clipboard

import (
	"fmt"
	"os/exec"
	"strings"
	"time"
)

// wtypeTyper drives the wtype Wayland client.
type wtypeTyper struct {
	bin string
}

func newWtypeTyper() (*wtypeTyper, error) {
	bin, err := exec.LookPath("wtype")
	if err != nil {
		return nil, fmt.Errorf("wtype not found (install wtype): %w", err)
	}
	return &wtypeTyper{bin: bin}, nil
}

func (w *wtypeTyper) run(args ...string) error {
	out, err := exec.Command(w.bin, args...).CombinedOutput()
	if err != nil {
		return fmt.Errorf("wtype: %w: %s", err, strings.TrimSpace(string(out)))
	}
	return nil
}

func (w *wtypeTyper) Type(text string) error {
	if text == "" {
		return nil
	}
	return w.run("--", text)
}

func (w *wtypeTyper) ClearLine() error {
	if err := w.run("-M", "ctrl", "-k", "u", "-m", "ctrl"); err != nil {
		return err
	}
	time.Sleep(50 * time.Millisecond)
	return nil
}

func (w *wtypeTyper) Paste() error {
	return w.run("-M", "ctrl", "-k", "v", "-m", "ctrl")
}

func (w *wtypeTyper) Close() error { return nil }
