package log

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/term"
)

var (
	diagLog     zerolog.Logger
	diagFile    *os.File
	historyFile *os.File
	logMu       sync.Mutex
	logReady    atomic.Bool
	pid         int
	dir         string
)

// Options controls Init. Console mirrors the diagnostics log to stderr.
type Options struct {
	Verbose bool
	Console bool
}

type DispatchMetrics struct {
	RequestID    string
	Chord        string
	Action       string
	Backend      string
	SelectionLen int
	OutputLen    int
	LLMMs        float64
	TotalMs      float64

	// Network is set when the backend traced its HTTP exchange.
	Network *NetworkTiming
}

type NetworkTiming struct {
	DNSMs      float64
	TCPMs      float64
	TLSMs      float64
	TTFBMs     float64
	ConnReused bool
}

func ResolveDir(flagPath string) (string, error) {
	// Priority 1: -logpath flag
	if flagPath != "" {
		return absPath(flagPath)
	}

	// Priority 2: IMPROVE_LOG_PATH environment variable
	if envPath := os.Getenv("IMPROVE_LOG_PATH"); envPath != "" {
		return absPath(envPath)
	}

	// Priority 3: Default OS-specific location
	return getDefaultDir()
}

func absPath(p string) (string, error) {
	if filepath.IsAbs(p) {
		return p, nil
	}
	wd, err := os.Getwd()
	if err != nil {
		return "", err
	}
	return filepath.Join(wd, p), nil
}

func SetDir(d string) {
	dir = d
}

func Dir() string {
	return dir
}

func EnsureDir() error {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create log directory: %w", err)
	}
	return nil
}

func Init(opts Options) error {
	logMu.Lock()
	defer logMu.Unlock()

	if err := EnsureDir(); err != nil {
		return err
	}

	pid = os.Getpid()

	var err error

	diagPath := filepath.Join(dir, "diagnostics_log.txt")
	diagFile, err = os.OpenFile(diagPath, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return err
	}

	historyPath := filepath.Join(dir, "history_log.txt")
	historyFile, err = os.OpenFile(historyPath, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		diagFile.Close()
		return err
	}

	var out io.Writer = zerolog.ConsoleWriter{
		Out:        diagFile,
		TimeFormat: "2006-01-02 15:04:05",
		NoColor:    true,
	}
	if opts.Console {
		console := zerolog.ConsoleWriter{
			Out:        os.Stderr,
			TimeFormat: "15:04:05",
			NoColor:    !term.IsTerminal(int(os.Stderr.Fd())),
		}
		out = zerolog.MultiLevelWriter(out, console)
	}

	level := zerolog.InfoLevel
	if opts.Verbose {
		level = zerolog.DebugLevel
	}
	diagLog = zerolog.New(out).Level(level).With().Timestamp().Int("pid", pid).Logger()

	logReady.Store(true)
	return nil
}

func Close() {
	logMu.Lock()
	defer logMu.Unlock()
	if diagFile != nil {
		diagFile.Close()
		diagFile = nil
	}
	if historyFile != nil {
		historyFile.Close()
		historyFile = nil
	}
	logReady.Store(false)
}

func Debug(msg string) {
	if logReady.Load() {
		diagLog.Debug().Msg(msg)
	}
}

func Debugf(format string, args ...any) {
	if logReady.Load() {
		diagLog.Debug().Msg(fmt.Sprintf(format, args...))
	}
}

func Info(msg string) {
	if logReady.Load() {
		diagLog.Info().Msg(msg)
	}
}

func Infof(format string, args ...any) {
	if logReady.Load() {
		diagLog.Info().Msg(fmt.Sprintf(format, args...))
	}
}

func Error(msg string) {
	if logReady.Load() {
		diagLog.Error().Msg(msg)
	}
}

func Errorf(format string, args ...any) {
	if logReady.Load() {
		diagLog.Error().Msg(fmt.Sprintf(format, args...))
	}
}

func Warn(msg string) {
	if logReady.Load() {
		diagLog.Warn().Msg(msg)
	}
}

func Warnf(format string, args ...any) {
	if logReady.Load() {
		diagLog.Warn().Msg(fmt.Sprintf(format, args...))
	}
}

// Dispatch records one completed chord dispatch.
func Dispatch(m DispatchMetrics) {
	if !logReady.Load() {
		return
	}
	e := diagLog.Info().
		Str("req", m.RequestID).
		Str("chord", m.Chord).
		Str("action", m.Action).
		Str("backend", m.Backend).
		Int("selection_len", m.SelectionLen).
		Int("output_len", m.OutputLen).
		Float64("llm_ms", m.LLMMs).
		Float64("total_ms", m.TotalMs)
	if n := m.Network; n != nil {
		e = e.Float64("dns_ms", n.DNSMs).
			Float64("tcp_ms", n.TCPMs).
			Float64("tls_ms", n.TLSMs).
			Float64("ttfb_ms", n.TTFBMs).
			Bool("conn_reused", n.ConnReused)
	}
	e.Msg("dispatch")
}

func Rescan(devices int, recovering bool) {
	if !logReady.Load() {
		return
	}
	reason := "hotplug"
	if recovering {
		reason = "recover"
	}
	diagLog.Info().
		Int("devices", devices).
		Str("reason", reason).
		Msg("keyboard_rescan")
}

// History appends a tab-separated original/output pair to history_log.txt.
func History(original, output string) {
	if !logReady.Load() {
		return
	}
	logMu.Lock()
	defer logMu.Unlock()
	if historyFile == nil {
		return
	}
	line := fmt.Sprintf("%s\t[%d]\t%s\t%s\n", time.Now().Format("2006-01-02 15:04:05"), pid, flatten(original), flatten(output))
	historyFile.WriteString(line)
}

func flatten(s string) string {
	out := make([]rune, 0, len(s))
	for _, r := range s {
		switch r {
		case '\n', '\r', '\t':
			out = append(out, ' ')
		default:
			out = append(out, r)
		}
	}
	return string(out)
}

func SessionStart(backend, model string, chords []string) {
	if !logReady.Load() {
		return
	}
	diagLog.Info().
		Str("backend", backend).
		Str("model", model).
		Strs("chords", chords).
		Msg("session_start")
}

func SessionEnd(count int) {
	if !logReady.Load() {
		return
	}
	diagLog.Info().
		Int("count", count).
		Msg("session_end")
}
