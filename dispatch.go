package main

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/sergi/go-diff/diffmatchpatch"

	"improve/beep"
	"improve/clipboard"
	"improve/hotkey"
	"improve/llm"
	"improve/log"
	"improve/notify"
)

type Action int

const (
	ActionImprove Action = iota
	ActionImproveShowOriginal
	ActionCommand
)

func (a Action) String() string {
	switch a {
	case ActionImprove:
		return "improve"
	case ActionImproveShowOriginal:
		return "improve+original"
	case ActionCommand:
		return "command"
	default:
		return fmt.Sprintf("action(%d)", int(a))
	}
}

// Binding ties a registered chord to what it does.
type Binding struct {
	Chord  hotkey.Chord
	Action Action
}

type textImprover interface {
	Improve(ctx context.Context, text string) (*llm.Result, error)
	GenerateCommand(ctx context.Context, description string) (*llm.Result, error)
}

// Handler processes one trigger event.
type Handler interface {
	Handle(ctx context.Context, ev hotkey.Event) error
}

// Dispatcher turns chord events into read-selection, transform and type.
type Dispatcher struct {
	bindings []Binding
	improver textImprover
	typer    clipboard.Typer
	backend  string

	// ShowOriginal renders "original | improved" for the improve action.
	ShowOriginal bool
	// BackupClipboard copies the selection to the clipboard before it is replaced.
	BackupClipboard bool

	readSelection func(ctx context.Context) (string, error)
	copyText      func(string) error

	handled atomic.Int64
}

// NewDispatcher takes bindings indexed like the chord table.
func NewDispatcher(bindings []Binding, improver textImprover, typer clipboard.Typer, backend string) *Dispatcher {
	return &Dispatcher{
		bindings:      bindings,
		improver:      improver,
		typer:         typer,
		backend:       backend,
		readSelection: clipboard.ReadSelection,
		copyText:      clipboard.Copy,
	}
}

// Handled is the number of dispatches that typed output.
func (d *Dispatcher) Handled() int { return int(d.handled.Load()) }

var errEmptyResponse = errors.New("backend returned an empty response")

func (d *Dispatcher) Handle(ctx context.Context, ev hotkey.Event) error {
	if ev.Chord < 0 || ev.Chord >= len(d.bindings) {
		log.Debugf("ignoring unbound chord index %d", ev.Chord)
		return nil
	}
	b := d.bindings[ev.Chord]
	reqID := uuid.NewString()[:8]
	start := time.Now()
	log.Infof("[%s] %s pressed, running %s", reqID, b.Chord, b.Action)

	selection, err := d.readSelection(ctx)
	if err != nil {
		return d.fail(reqID, fmt.Errorf("reading selection: %w", err))
	}
	selection = strings.TrimSpace(selection)
	if selection == "" {
		log.Warnf("[%s] no text selected", reqID)
		notify.Warn("No text selected")
		return nil
	}
	log.Debugf("[%s] selected %q", reqID, selection)
	beep.PlayStart()

	if d.BackupClipboard {
		if err := d.copyText(selection); err != nil {
			log.Warnf("[%s] clipboard backup failed: %v", reqID, err)
		}
	}

	llmStart := time.Now()
	var res *llm.Result
	if b.Action == ActionCommand {
		res, err = d.improver.GenerateCommand(ctx, selection)
	} else {
		res, err = d.improver.Improve(ctx, selection)
	}
	if err != nil {
		return d.fail(reqID, err)
	}
	llmMs := ms(time.Since(llmStart))
	if res.Text == "" {
		log.Warnf("[%s] %v", reqID, errEmptyResponse)
		notify.Warn("The model returned nothing")
		beep.PlayError()
		return nil
	}
	if b.Action != ActionCommand {
		log.Debugf("[%s] diff: %s", reqID, diffSummary(selection, res.Text))
	}

	output := render(b.Action, d.ShowOriginal, selection, res.Text)

	if b.Action == ActionCommand {
		if err := d.typer.ClearLine(); err != nil {
			return d.fail(reqID, fmt.Errorf("clearing line: %w", err))
		}
	}
	if err := d.typer.Type(output); err != nil {
		return d.fail(reqID, fmt.Errorf("typing output: %w", err))
	}
	beep.PlayEnd()
	d.handled.Add(1)

	log.History(selection, output)
	log.Dispatch(log.DispatchMetrics{
		RequestID:    reqID,
		Chord:        b.Chord.String(),
		Action:       b.Action.String(),
		Backend:      d.backend,
		SelectionLen: len(selection),
		OutputLen:    len(output),
		LLMMs:        llmMs,
		TotalMs:      ms(time.Since(start)),
		Network:      networkTiming(res.Metrics),
	})
	return nil
}

func networkTiming(m *llm.NetworkMetrics) *log.NetworkTiming {
	if m == nil {
		return nil
	}
	return &log.NetworkTiming{
		DNSMs:      ms(m.DNS),
		TCPMs:      ms(m.TCP),
		TLSMs:      ms(m.TLS),
		TTFBMs:     ms(m.TTFB),
		ConnReused: m.ConnReused,
	}
}

func ms(d time.Duration) float64 { return float64(d.Microseconds()) / 1000 }

func (d *Dispatcher) fail(reqID string, err error) error {
	beep.PlayError()
	notify.Error(err.Error())
	return fmt.Errorf("[%s] %w", reqID, err)
}

// render builds the text to type. Newlines become two spaces so chat tools
// do not send early.
func render(action Action, showOriginal bool, original, result string) string {
	out := flattenNewlines(result)
	if action == ActionImproveShowOriginal || (action == ActionImprove && showOriginal) {
		out = flattenNewlines(original) + " | " + out
	}
	return out
}

func flattenNewlines(s string) string {
	s = strings.ReplaceAll(s, "\r\n", "\n")
	return strings.ReplaceAll(s, "\n", "  ")
}

// diffSummary renders word-level changes as [-removed-]{+added+}.
func diffSummary(before, after string) string {
	dmp := diffmatchpatch.New()
	diffs := dmp.DiffCleanupSemantic(dmp.DiffMain(before, after, false))
	var sb strings.Builder
	for _, d := range diffs {
		switch d.Type {
		case diffmatchpatch.DiffEqual:
			sb.WriteString(d.Text)
		case diffmatchpatch.DiffDelete:
			sb.WriteString("[-" + d.Text + "-]")
		case diffmatchpatch.DiffInsert:
			sb.WriteString("{+" + d.Text + "+}")
		}
	}
	return sb.String()
}

// runLoop hands queued events to h in order until ctx is done or the queue
// closes. A queue closed with an error means the listener died.
func runLoop(ctx context.Context, q *hotkey.Queue, h Handler) error {
	for ctx.Err() == nil {
		ev, err := q.Receive(100 * time.Millisecond)
		switch {
		case errors.Is(err, hotkey.ErrTimeout):
			continue
		case errors.Is(err, hotkey.ErrQueueClosed):
			cause := q.Err()
			if cause == nil || errors.Is(cause, context.Canceled) {
				log.Debug("listener stopped")
				return nil
			}
			return fmt.Errorf("listener disconnected: %w", cause)
		case err != nil:
			return err
		}
		if err := h.Handle(ctx, ev); err != nil {
			log.Errorf("%v", err)
		}
	}
	return nil
}
