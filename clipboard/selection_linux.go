//go:build linux

package clipboard

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"time"

	"improve/log"
)

var ErrNoSelectionTool = errors.New("no primary selection tool found (install wl-clipboard, xclip or xsel)")

const selectionTimeout = 2 * time.Second

// selectionCommands lists the tools that print the primary selection,
// Wayland first when a Wayland session is running.
func selectionCommands(wayland bool) [][]string {
	wl := []string{"wl-paste", "--primary", "--no-newline"}
	x11 := [][]string{
		{"xclip", "-o", "-selection", "primary"},
		{"xsel", "-o", "-p"},
	}
	if wayland {
		return append([][]string{wl}, x11...)
	}
	return append(x11, wl)
}

// ReadSelection returns the highlighted text. An empty selection is not an
// error.
func ReadSelection(ctx context.Context) (string, error) {
	for _, cmd := range selectionCommands(os.Getenv("WAYLAND_DISPLAY") != "") {
		bin, err := exec.LookPath(cmd[0])
		if err != nil {
			continue
		}
		ctx, cancel := context.WithTimeout(ctx, selectionTimeout)
		out, err := exec.CommandContext(ctx, bin, cmd[1:]...).Output()
		timedOut := ctx.Err() != nil
		cancel()
		if err != nil {
			if timedOut {
				return "", fmt.Errorf("%s: %w", cmd[0], context.DeadlineExceeded)
			}
			var exitErr *exec.ExitError
			if errors.As(err, &exitErr) {
				// wl-paste and xclip exit non-zero when nothing is selected
				log.Debugf("%s: %v: %s", cmd[0], err, exitErr.Stderr)
				return "", nil
			}
			return "", fmt.Errorf("%s: %w", cmd[0], err)
		}
		return string(out), nil
	}
	return "", ErrNoSelectionTool
}
