package log

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func setupLogDir(t *testing.T) string {
	t.Helper()
	tmp := t.TempDir()
	SetDir(tmp)
	t.Cleanup(func() { Close(); SetDir("") })
	return tmp
}

func readLog(t *testing.T, dir, name string) string {
	t.Helper()
	data, err := os.ReadFile(filepath.Join(dir, name))
	if err != nil {
		t.Fatal(err)
	}
	return string(data)
}

func TestResolveDirFlag(t *testing.T) {
	got, err := ResolveDir("/tmp/mylog")
	if err != nil {
		t.Fatal(err)
	}
	if got != "/tmp/mylog" {
		t.Errorf("got %q, want /tmp/mylog", got)
	}
}

func TestResolveDirFlagRelative(t *testing.T) {
	got, err := ResolveDir("logs")
	if err != nil {
		t.Fatal(err)
	}
	wd, err := os.Getwd()
	if err != nil {
		t.Fatal(err)
	}
	want := filepath.Join(wd, "logs")
	if got != want {
		t.Errorf("got %q, want %q", got, want)
	}
}

func TestResolveDirEnv(t *testing.T) {
	t.Setenv("IMPROVE_LOG_PATH", "/tmp/improve-env-log")
	got, err := ResolveDir("")
	if err != nil {
		t.Fatal(err)
	}
	if got != "/tmp/improve-env-log" {
		t.Errorf("got %q, want /tmp/improve-env-log", got)
	}
}

func TestResolveDirFlagBeatsEnv(t *testing.T) {
	t.Setenv("IMPROVE_LOG_PATH", "/tmp/improve-env-log")
	got, err := ResolveDir("/tmp/flag-log")
	if err != nil {
		t.Fatal(err)
	}
	if got != "/tmp/flag-log" {
		t.Errorf("got %q, want /tmp/flag-log", got)
	}
}

func TestResolveDirDefault(t *testing.T) {
	t.Setenv("IMPROVE_LOG_PATH", "")
	got, err := ResolveDir("")
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(got, "improve") {
		t.Errorf("default directory %q should mention improve", got)
	}
}

func TestInitCreatesFiles(t *testing.T) {
	tmp := setupLogDir(t)

	if err := Init(Options{}); err != nil {
		t.Fatal(err)
	}

	for _, name := range []string{"diagnostics_log.txt", "history_log.txt"} {
		path := filepath.Join(tmp, name)
		if _, err := os.Stat(path); err != nil {
			t.Errorf("%s not created: %v", name, err)
		}
	}
}

func TestDebugNeedsVerbose(t *testing.T) {
	tmp := setupLogDir(t)

	if err := Init(Options{}); err != nil {
		t.Fatal(err)
	}
	Debugf("quiet %d", 1)
	Infof("loud %d", 2)
	Close()

	got := readLog(t, tmp, "diagnostics_log.txt")
	if strings.Contains(got, "quiet 1") {
		t.Error("debug line written without verbose")
	}
	if !strings.Contains(got, "loud 2") {
		t.Errorf("info line missing, got: %q", got)
	}

	if err := Init(Options{Verbose: true}); err != nil {
		t.Fatal(err)
	}
	Debug("now visible")
	Close()
	if got := readLog(t, tmp, "diagnostics_log.txt"); !strings.Contains(got, "now visible") {
		t.Errorf("verbose debug line missing, got: %q", got)
	}
}

func TestLoggingBeforeInitIsNoop(t *testing.T) {
	Close()
	Info("dropped")
	Warnf("dropped %s", "too")
	History("a", "b")
	Rescan(1, true)
}

func TestHistory(t *testing.T) {
	tmp := setupLogDir(t)

	if err := Init(Options{}); err != nil {
		t.Fatal(err)
	}

	History("teh cat\nsat", "The cat sat.")

	line := readLog(t, tmp, "history_log.txt")
	if !strings.Contains(line, "teh cat sat\tThe cat sat.") {
		t.Errorf("history_log.txt missing pair, got: %q", line)
	}
	if strings.Count(line, "\n") != 1 {
		t.Errorf("expected a single line, got: %q", line)
	}
}

func TestDispatchAndRescanFields(t *testing.T) {
	tmp := setupLogDir(t)

	if err := Init(Options{}); err != nil {
		t.Fatal(err)
	}
	Dispatch(DispatchMetrics{RequestID: "abc123", Chord: "Shift+F10", Action: "improve", SelectionLen: 12})
	Rescan(2, true)

	got := readLog(t, tmp, "diagnostics_log.txt")
	for _, want := range []string{"dispatch", "req=abc123", "selection_len=12", "keyboard_rescan", "devices=2", "reason=recover"} {
		if !strings.Contains(got, want) {
			t.Errorf("diagnostics log missing %q, got: %q", want, got)
		}
	}
}

func TestCloseIdempotent(t *testing.T) {
	setupLogDir(t)

	if err := Init(Options{}); err != nil {
		t.Fatal(err)
	}
	Close()
	Close() // should not panic
}

func TestDispatchNetworkFields(t *testing.T) {
	tmp := setupLogDir(t)

	if err := Init(Options{}); err != nil {
		t.Fatal(err)
	}
	Dispatch(DispatchMetrics{RequestID: "n1"})
	Dispatch(DispatchMetrics{RequestID: "n2", Network: &NetworkTiming{DNSMs: 1.5, TTFBMs: 40, ConnReused: true}})

	lines := strings.Split(strings.TrimSpace(readLog(t, tmp, "diagnostics_log.txt")), "\n")
	if len(lines) != 2 {
		t.Fatalf("got %d lines, want 2", len(lines))
	}
	if strings.Contains(lines[0], "ttfb_ms") {
		t.Errorf("untraced dispatch has network fields: %q", lines[0])
	}
	for _, want := range []string{"dns_ms=1.5", "ttfb_ms=40", "conn_reused=true"} {
		if !strings.Contains(lines[1], want) {
			t.Errorf("traced dispatch missing %q: %q", want, lines[1])
		}
	}
}

func TestLoggingDuringClose(t *testing.T) {
	setupLogDir(t)
	if err := Init(Options{Verbose: true}); err != nil {
		t.Fatal(err)
	}

	done := make(chan struct{})
	go func() {
		defer close(done)
		for i := range 200 {
			Debugf("tick %d", i)
			Rescan(1, false)
		}
	}()
	Close()
	<-done

	// after Close every call is a no-op
	Info("dropped")
	Dispatch(DispatchMetrics{RequestID: "late"})
}
