package main

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"improve/hotkey"
	"improve/llm"
	"improve/log"
)

// startPipeline runs a poller over kb and a dispatcher over its queue.
func startPipeline(t *testing.T, kb *hotkey.FakeDevice, d *Dispatcher, table *hotkey.Table) (context.CancelFunc, <-chan error) {
	t.Helper()
	q := hotkey.NewQueue()
	finder := hotkey.FinderFunc(func() ([]hotkey.Device, error) { return nil, hotkey.ErrNoKeyboards })
	p, err := hotkey.NewPoller(table, finder, q, []hotkey.Device{kb}, hotkey.WithInterval(time.Millisecond))
	if err != nil {
		t.Fatal(err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	go p.Run(ctx)

	done := make(chan error, 1)
	go func() { done <- runLoop(ctx, q, d) }()
	return cancel, done
}

func waitTyped(t *testing.T, typer *fakeTyper, n int) []string {
	t.Helper()
	deadline := time.Now().Add(3 * time.Second)
	for time.Now().Before(deadline) {
		typer.mu.Lock()
		got := append([]string(nil), typer.typed...)
		typer.mu.Unlock()
		if len(got) >= n {
			return got
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for %d typed outputs", n)
	return nil
}

func TestPipelineChordToTypedOutput(t *testing.T) {
	dir := t.TempDir()
	log.SetDir(dir)
	if err := log.Init(log.Options{Verbose: true}); err != nil {
		t.Fatal(err)
	}

	d, typer, _ := newTestDispatcher(t, "hello", upper)
	table := hotkey.NewTable()
	for _, b := range d.bindings {
		table.Register(b.Chord)
	}

	kb := hotkey.NewFakeKeyboard("kbd")
	kb.Tap(hotkey.KeyF10) // no shift: not bound
	kb.Press(hotkey.KeyLeftShift)
	kb.Tap(hotkey.KeyF10)
	kb.Release(hotkey.KeyLeftShift)
	kb.Tap(hotkey.KeyF12)

	cancel, done := startPipeline(t, kb, d, table)
	got := waitTyped(t, typer, 2)
	cancel()
	if err := <-done; err != nil {
		t.Fatalf("runLoop: %v", err)
	}
	log.Close()

	if got[0] != "HELLO" || got[1] != "HELLO" {
		t.Errorf("typed %q", got)
	}
	if typer.cleared != 1 {
		t.Errorf("command chord cleared the line %d times, want 1", typer.cleared)
	}

	history, err := os.ReadFile(filepath.Join(dir, "history_log.txt"))
	if err != nil {
		t.Fatal(err)
	}
	if n := strings.Count(string(history), "\thello\tHELLO\n"); n != 2 {
		t.Errorf("history has %d entries, want 2:\n%s", n, history)
	}
	diag, err := os.ReadFile(filepath.Join(dir, "diagnostics_log.txt"))
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(diag), "dispatch") {
		t.Errorf("diagnostics log has no dispatch record:\n%s", diag)
	}
}

func TestPipelineSurvivesBackendFailure(t *testing.T) {
	bindings := []Binding{{Chord: hotkey.Chord{Key: hotkey.KeyF9}, Action: ActionImprove}}
	backend := llm.NewFake(upper, errors.New("connection refused"))
	typer := &fakeTyper{}
	d := NewDispatcher(bindings, llm.NewImprover(backend).WithRetry(1, 0), typer, backend.Name())
	d.readSelection = func(context.Context) (string, error) { return "again", nil }

	kb := hotkey.NewFakeKeyboard("kbd")
	kb.Tap(hotkey.KeyF9)
	kb.Tap(hotkey.KeyF9)

	cancel, done := startPipeline(t, kb, d, hotkey.NewTable(bindings[0].Chord))
	got := waitTyped(t, typer, 1)
	cancel()
	<-done

	if got[0] != "AGAIN" {
		t.Errorf("typed %q, want the second press to succeed", got)
	}
	if n := len(backend.Calls()); n != 2 {
		t.Errorf("backend called %d times, want 2", n)
	}
}

func TestPipelineReportsListenerPanic(t *testing.T) {
	d, typer, _ := newTestDispatcher(t, "text", upper)
	kb := hotkey.NewFakeKeyboard("kbd")
	kb.Panic("evdev handle torn down")

	cancel, done := startPipeline(t, kb, d, hotkey.NewTable(d.bindings[0].Chord))
	defer cancel()

	select {
	case err := <-done:
		if err == nil || !strings.Contains(err.Error(), "listener disconnected") || !strings.Contains(err.Error(), "panic") {
			t.Fatalf("runLoop returned %v, want a disconnected listener", err)
		}
	case <-time.After(3 * time.Second):
		t.Fatal("runLoop kept running after the poller died")
	}
	if len(typer.typed) != 0 {
		t.Errorf("typed %q", typer.typed)
	}
}
