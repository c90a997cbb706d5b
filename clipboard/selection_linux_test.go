package clipboard

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
)

// fakeTool installs an executable shell script named name on PATH.
func fakeTool(t *testing.T, dir, name, script string) {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte("#!/bin/sh\n"+script+"\n"), 0755); err != nil {
		t.Fatal(err)
	}
}

func TestSelectionCommandsOrder(t *testing.T) {
	if got := selectionCommands(true)[0][0]; got != "wl-paste" {
		t.Errorf("wayland: first tool = %s, want wl-paste", got)
	}
	if got := selectionCommands(false)[0][0]; got != "xclip" {
		t.Errorf("x11: first tool = %s, want xclip", got)
	}
}

func TestReadSelection(t *testing.T) {
	dir := t.TempDir()
	fakeTool(t, dir, "wl-paste", `printf 'teh quick fox'`)
	t.Setenv("PATH", dir)
	t.Setenv("WAYLAND_DISPLAY", "wayland-0")

	got, err := ReadSelection(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if got != "teh quick fox" {
		t.Errorf("got %q", got)
	}
}

func TestReadSelectionEmpty(t *testing.T) {
	dir := t.TempDir()
	fakeTool(t, dir, "xclip", `echo "Error: target STRING not available" >&2; exit 1`)
	t.Setenv("PATH", dir)
	t.Setenv("WAYLAND_DISPLAY", "")

	got, err := ReadSelection(context.Background())
	if err != nil {
		t.Fatalf("empty selection should not be an error: %v", err)
	}
	if got != "" {
		t.Errorf("got %q, want empty", got)
	}
}

func TestReadSelectionNoTool(t *testing.T) {
	t.Setenv("PATH", t.TempDir())
	if _, err := ReadSelection(context.Background()); !errors.Is(err, ErrNoSelectionTool) {
		t.Errorf("got %v, want ErrNoSelectionTool", err)
	}
}
