package doctor

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"runtime"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"

	"improve/clipboard"
	"improve/hotkey"
	"improve/llm"
	"improve/shutdown"
)

// Options carries what the checks exercise: the primary chord, the LLM
// backend and the typer mode.
type Options struct {
	Chord   hotkey.Chord
	Backend llm.Backend
	Typer   string
}

var (
	titleStyle  = lipgloss.NewStyle().Bold(true)
	stepStyle   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("12"))
	passStyle   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("10"))
	failStyle   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("9"))
	detailStyle = lipgloss.NewStyle().Faint(true)
)

type reporter struct {
	w io.Writer
}

func (r reporter) step(i, n int, name string) {
	fmt.Fprintln(r.w)
	fmt.Fprintln(r.w, stepStyle.Render(fmt.Sprintf("[%d/%d] %s", i, n, name)))
}

func (r reporter) info(format string, args ...any) {
	fmt.Fprintln(r.w, "  "+fmt.Sprintf(format, args...))
}

func (r reporter) detail(format string, args ...any) {
	fmt.Fprintln(r.w, "  "+detailStyle.Render(fmt.Sprintf(format, args...)))
}

func (r reporter) pass(format string, args ...any) bool {
	fmt.Fprintln(r.w, "  "+passStyle.Render("PASS:")+" "+fmt.Sprintf(format, args...))
	return true
}

func (r reporter) fail(format string, args ...any) bool {
	fmt.Fprintln(r.w, "  "+failStyle.Render("FAIL:")+" "+fmt.Sprintf(format, args...))
	return false
}

type check struct {
	name string
	run  func(r reporter) bool
}

// Run executes interactive diagnostic checks and returns an exit code (0=all pass, 1=any fail).
func Run(opts Options) int {
	resetTerminal()
	setupInterruptHandler()

	checks := []check{
		{"Keyboard access", checkKeyboards},
		{"Hotkey detection", func(r reporter) bool { return checkHotkey(r, opts.Chord) }},
		{"Selection read", checkSelection},
		{"LLM backend", func(r reporter) bool { return checkBackend(r, opts.Backend) }},
		{"Keystroke output", func(r reporter) bool { return checkTyper(r, opts.Typer) }},
	}
	return runChecks(os.Stdout, checks)
}

func runChecks(w io.Writer, checks []check) int {
	r := reporter{w: w}
	fmt.Fprintln(w, titleStyle.Render("improve doctor - interactive system diagnostics"))

	failed := 0
	for i, c := range checks {
		r.step(i+1, len(checks), c.name)
		if !c.run(r) {
			failed++
		}
	}

	fmt.Fprintln(w)
	if failed == 0 {
		fmt.Fprintln(w, passStyle.Render("All checks passed!"))
		return 0
	}
	fmt.Fprintln(w, failStyle.Render(fmt.Sprintf("%d of %d checks failed. See details above.", failed, len(checks))))
	return 1
}

func checkKeyboards(r reporter) bool {
	if runtime.GOOS != "linux" {
		return r.pass("native hotkey API on %s, no device access needed", runtime.GOOS)
	}

	if nodes, err := hotkey.ListInputNodes(); err == nil {
		r.detail("%d input node(s) visible", len(nodes))
	}

	devices, err := hotkey.DefaultEnumerator().FindKeyboards()
	if err != nil {
		return r.fail("%v", err)
	}
	defer func() {
		for _, d := range devices {
			d.Close()
		}
	}()
	for _, d := range devices {
		r.detail("%s  %s", d.Path(), d.Name())
	}
	return r.pass("%d keyboard(s) readable", len(devices))
}

func checkHotkey(r reporter, chord hotkey.Chord) bool {
	r.info("Press %s...", chord)

	table := hotkey.NewTable(chord)
	q := hotkey.NewQueue()
	listener, err := hotkey.Start(table, q, hotkey.ListenConfig{})
	if err != nil {
		return r.fail("could not start listener: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	done := make(chan struct{})
	go func() {
		listener.Run(ctx)
		close(done)
	}()
	defer func() {
		cancel()
		<-done
	}()

	for {
		ev, err := q.Receive(100 * time.Millisecond)
		switch {
		case err == nil:
			resetTerminal()
			return r.pass("%s detected", table.Chord(ev.Chord))
		case errors.Is(err, hotkey.ErrTimeout):
			continue
		default:
			if cause := q.Err(); cause != nil {
				return r.fail("listener stopped: %v", cause)
			}
			return r.fail("timeout waiting for %s", chord)
		}
	}
}

func checkSelection(r reporter) bool {
	r.info("Select some text in another window within 5 seconds...")
	for i := 5; i > 0; i-- {
		r.detail("%d...", i)
		time.Sleep(time.Second)
	}

	text, err := clipboard.ReadSelection(context.Background())
	if err != nil {
		return r.fail("%v", err)
	}
	text = strings.TrimSpace(text)
	if text == "" {
		return r.fail("selection is empty")
	}
	return r.pass("read %d characters: %q", len(text), truncate(text, 60))
}

func checkBackend(r reporter, b llm.Backend) bool {
	if b == nil {
		return r.fail("no backend configured")
	}
	r.info("Asking %s (%s) to improve a sample sentence...", b.Name(), b.Model())

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()
	if w, ok := b.(llm.Warmer); ok {
		if err := w.Warm(ctx); err != nil {
			return r.fail("loading model: %v", err)
		}
	}

	start := time.Now()
	res, err := llm.NewImprover(b).WithRetry(1, 0).Improve(ctx, "teh quick brown fox jump over the lazy dog")
	if err != nil {
		return r.fail("%v", err)
	}
	if res.Text == "" {
		return r.fail("backend returned an empty response")
	}
	r.detail("%s", res.Text)
	return r.pass("response in %s", time.Since(start).Round(time.Millisecond))
}

func checkTyper(r reporter, mode string) bool {
	typer, err := clipboard.NewTyper(mode)
	if err != nil {
		r.detail("Fix uinput access with: sudo chmod 660 /dev/uinput && sudo chgrp input /dev/uinput")
		return r.fail("%v", err)
	}
	typer.Close()

	msg, err := clipboard.Verify()
	if err != nil {
		if mode == clipboard.ModeWtype {
			return r.pass("wtype available (uinput readback skipped: %v)", err)
		}
		return r.fail("%v", err)
	}
	r.pass("%s", msg)

	r.info("Focus a text editor within 5 seconds...")
	for i := 5; i > 0; i-- {
		r.detail("%d...", i)
		time.Sleep(time.Second)
	}
	typer, err = clipboard.NewTyper(mode)
	if err != nil {
		return r.fail("%v", err)
	}
	defer typer.Close()
	if err := typer.Type("improve-doctor-test"); err != nil {
		return r.fail("typing failed: %v", err)
	}

	resetTerminal()
	fmt.Fprint(r.w, "  Did the text \"improve-doctor-test\" appear? [y/n]: ")
	confirm, _ := bufio.NewReader(os.Stdin).ReadString('\n')
	confirm = strings.TrimSpace(strings.ToLower(confirm))
	if confirm != "y" && confirm != "yes" {
		return r.fail("typing not confirmed")
	}
	return r.pass("typing verified by user")
}

func setupInterruptHandler() {
	sigChan := make(chan os.Signal, 1)
	shutdown.Notify(sigChan)
	go func() {
		<-sigChan
		fmt.Println("\nInterrupted")
		os.Exit(1)
	}()
}

func truncate(s string, n int) string {
	if len([]rune(s)) <= n {
		return s
	}
	return string([]rune(s)[:n]) + "..."
}
