package hotkey

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"
)

// scriptedFinder hands out one result per call.
type scriptedFinder struct {
	results []finderResult
	calls   int
}

type finderResult struct {
	devices []Device
	err     error
}

func (f *scriptedFinder) FindKeyboards() ([]Device, error) {
	f.calls++
	if len(f.results) == 0 {
		return nil, ErrNoKeyboards
	}
	r := f.results[0]
	f.results = f.results[1:]
	return r.devices, r.err
}

func newTestPoller(t *testing.T, finder Finder, devices ...Device) (*Poller, *Queue, *Table) {
	t.Helper()
	table := NewTable(
		Chord{Key: KeyF8},
		Chord{Key: KeyF8, Mods: Modifiers{Shift: true}},
		Chord{Key: KeyF9, Mods: Modifiers{Ctrl: true, Alt: true}},
	)
	q := NewQueue()
	p, err := NewPoller(table, finder, q, devices, WithCooldown(3*time.Second))
	if err != nil {
		t.Fatal(err)
	}
	return p, q, table
}

func drainQueue(q *Queue) []Event {
	var out []Event
	for {
		ev, err := q.Receive(0)
		if err != nil {
			return out
		}
		out = append(out, ev)
	}
}

func chords(evs []Event) []int {
	out := make([]int, len(evs))
	for i, ev := range evs {
		out[i] = ev.Chord
	}
	return out
}

func equalInts(a, b []int) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func TestNewPollerSetsNonblock(t *testing.T) {
	kb := NewFakeKeyboard("kb")
	newTestPoller(t, &scriptedFinder{}, kb)
	if !kb.Nonblocking() {
		t.Error("device not switched to non-blocking mode")
	}
}

func TestPollerOneEventPerPress(t *testing.T) {
	kb := NewFakeKeyboard("kb")
	p, q, _ := newTestPoller(t, &scriptedFinder{}, kb)

	kb.Press(KeyF8)
	kb.Repeat(KeyF8)
	kb.Repeat(KeyF8)
	kb.Release(KeyF8)
	p.poll(time.Now())

	got := drainQueue(q)
	if len(got) != 1 || got[0].Chord != 0 || got[0].Phase != PhasePress {
		t.Fatalf("got %+v, want a single press of chord 0", got)
	}
}

func TestPollerModifierSelectsChord(t *testing.T) {
	kb := NewFakeKeyboard("kb")
	p, q, _ := newTestPoller(t, &scriptedFinder{}, kb)

	kb.Tap(KeyF8)
	kb.Press(KeyRightShift)
	kb.Tap(KeyF8)
	kb.Release(KeyRightShift)
	kb.Press(KeyLeftCtrl)
	kb.Tap(KeyF8) // ctrl+F8 is not registered
	kb.Press(KeyRightAlt)
	kb.Tap(KeyF9)
	p.poll(time.Now())

	if got, want := chords(drainQueue(q)), []int{0, 1, 2}; !equalInts(got, want) {
		t.Errorf("got %v, want %v", got, want)
	}
}

func TestPollerPreservesOrderAcrossDevices(t *testing.T) {
	a := NewFakeKeyboard("a")
	b := NewFakeKeyboard("b")
	p, q, _ := newTestPoller(t, &scriptedFinder{}, a, b)

	a.Tap(KeyF8)
	p.poll(time.Now())
	b.Press(KeyLeftShift)
	b.Tap(KeyF8)
	p.poll(time.Now())

	if got, want := chords(drainQueue(q)), []int{0, 1}; !equalInts(got, want) {
		t.Errorf("got %v, want %v", got, want)
	}
}

func TestPollerModifiersSharedAcrossDevices(t *testing.T) {
	a := NewFakeKeyboard("a")
	b := NewFakeKeyboard("b")
	p, q, _ := newTestPoller(t, &scriptedFinder{}, a, b)

	a.Press(KeyLeftShift)
	b.Tap(KeyF8)
	p.poll(time.Now())

	if got, want := chords(drainQueue(q)), []int{1}; !equalInts(got, want) {
		t.Errorf("got %v, want %v", got, want)
	}
}

func TestPollerRecoversAfterCooldown(t *testing.T) {
	old := NewFakeKeyboard("old")
	fresh := NewFakeKeyboard("fresh")
	finder := &scriptedFinder{results: []finderResult{{devices: []Device{fresh}}}}
	p, q, _ := newTestPoller(t, finder, old)

	t0 := time.Unix(1000, 0)
	old.Press(KeyLeftShift)
	old.Fail(errors.New("no such device"))
	p.poll(t0)
	if p.State() != StateBackoff {
		t.Fatalf("state = %v, want backoff", p.State())
	}

	fresh.Tap(KeyF8)
	p.poll(t0.Add(time.Second))
	if finder.calls != 0 {
		t.Fatal("rescanned before cooldown elapsed")
	}
	if q.Len() != 0 {
		t.Fatal("read devices while in backoff")
	}

	p.poll(t0.Add(3 * time.Second))
	if p.State() != StatePolling {
		t.Fatalf("state = %v, want polling", p.State())
	}
	if !old.Closed() {
		t.Error("failed device not closed after rescan")
	}
	if !fresh.Nonblocking() {
		t.Error("rescanned device not non-blocking")
	}

	// The shift held on the old device must not leak into the new set.
	p.poll(t0.Add(3*time.Second + 10*time.Millisecond))
	if got, want := chords(drainQueue(q)), []int{0}; !equalInts(got, want) {
		t.Errorf("got %v, want %v", got, want)
	}
}

func TestPollerRetriesFailedRescan(t *testing.T) {
	kb := NewFakeKeyboard("kb")
	fresh := NewFakeKeyboard("fresh")
	finder := &scriptedFinder{results: []finderResult{
		{err: ErrNoKeyboards},
		{devices: []Device{fresh}},
	}}
	p, _, _ := newTestPoller(t, finder, kb)

	t0 := time.Unix(1000, 0)
	kb.Fail(errors.New("read error"))
	p.poll(t0)

	p.poll(t0.Add(3 * time.Second))
	if finder.calls != 1 || p.State() != StateBackoff {
		t.Fatalf("calls = %d state = %v, want 1 and backoff", finder.calls, p.State())
	}

	// cooldown restarts from the failed rescan
	p.poll(t0.Add(5 * time.Second))
	if finder.calls != 1 {
		t.Fatal("retried before a full cooldown")
	}

	p.poll(t0.Add(6 * time.Second))
	if finder.calls != 2 || p.State() != StatePolling {
		t.Fatalf("calls = %d state = %v, want 2 and polling", finder.calls, p.State())
	}
}

func TestPollerHotplugRescan(t *testing.T) {
	kb := NewFakeKeyboard("kb")
	reopened := NewFakeKeyboard("kb")
	plugged := NewFakeKeyboard("plugged")
	finder := &scriptedFinder{results: []finderResult{
		{devices: []Device{reopened, plugged}},
		{err: ErrNoKeyboards},
	}}
	hints := make(chan struct{}, 1)
	table := NewTable(Chord{Key: KeyF8})
	q := NewQueue()
	p, err := NewPoller(table, finder, q, []Device{kb}, WithHotplug(hints))
	if err != nil {
		t.Fatal(err)
	}

	hints <- struct{}{}
	plugged.Tap(KeyF8)
	p.poll(time.Now())
	if finder.calls != 1 {
		t.Fatalf("calls = %d, want 1", finder.calls)
	}
	if got := chords(drainQueue(q)); !equalInts(got, []int{0}) {
		t.Errorf("got %v, want [0]", got)
	}
	if !kb.Closed() {
		t.Error("previous device set not closed")
	}

	// a failed hint-driven rescan keeps the current devices
	hints <- struct{}{}
	plugged.Tap(KeyF8)
	p.poll(time.Now())
	if p.State() != StatePolling || plugged.Closed() {
		t.Fatalf("state = %v closed = %v after failed hint rescan", p.State(), plugged.Closed())
	}
	if got := chords(drainQueue(q)); !equalInts(got, []int{0}) {
		t.Errorf("got %v, want [0]", got)
	}
}

func TestPollerHotplugKeepsBufferedPresses(t *testing.T) {
	kb := NewFakeKeyboard("kb")
	reopened := NewFakeKeyboard("kb")
	finder := &scriptedFinder{results: []finderResult{{devices: []Device{reopened}}}}
	hints := make(chan struct{}, 1)
	q := NewQueue()
	p, err := NewPoller(NewTable(Chord{Key: KeyF8}), finder, q, []Device{kb}, WithHotplug(hints))
	if err != nil {
		t.Fatal(err)
	}

	kb.Tap(KeyF8)
	hints <- struct{}{}
	p.poll(time.Now())

	if finder.calls != 1 || !kb.Closed() {
		t.Fatalf("calls = %d closed = %v, want the hint to swap devices", finder.calls, kb.Closed())
	}
	if got := chords(drainQueue(q)); !equalInts(got, []int{0}) {
		t.Errorf("got %v, want the press read before the swap", got)
	}
}

func TestPollerRunRecoversPanic(t *testing.T) {
	dev := NewFakeKeyboard("bad")
	dev.Panic("read on torn-down handle")
	q := NewQueue()
	p, err := NewPoller(NewTable(Chord{Key: KeyF8}), &scriptedFinder{}, q, []Device{dev}, WithInterval(time.Millisecond))
	if err != nil {
		t.Fatal(err)
	}

	done := make(chan error, 1)
	go func() { done <- p.Run(context.Background()) }()

	var runErr error
	select {
	case runErr = <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not return after a panic")
	}
	if runErr == nil || !strings.Contains(runErr.Error(), "panic") {
		t.Fatalf("Run returned %v, want a panic error", runErr)
	}
	if !errors.Is(q.Err(), runErr) {
		t.Errorf("queue cause = %v, want %v", q.Err(), runErr)
	}
	if _, err := q.Receive(0); !errors.Is(err, ErrQueueClosed) {
		t.Errorf("got %v, want ErrQueueClosed", err)
	}
	if !dev.Closed() || p.State() != StateStopped {
		t.Errorf("closed = %v state = %v after panic", dev.Closed(), p.State())
	}
}

func TestPollerRunStops(t *testing.T) {
	kb := NewFakeKeyboard("kb")
	table := NewTable(Chord{Key: KeyF8})
	q := NewQueue()
	p, err := NewPoller(table, &scriptedFinder{}, q, []Device{kb}, WithInterval(time.Millisecond))
	if err != nil {
		t.Fatal(err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- p.Run(ctx) }()

	kb.Tap(KeyF8)
	ev, err := q.Receive(2 * time.Second)
	if err != nil {
		t.Fatal(err)
	}
	if ev.Chord != 0 {
		t.Errorf("got chord %d, want 0", ev.Chord)
	}

	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Errorf("Run returned %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not stop")
	}

	if !kb.Closed() {
		t.Error("device not closed on stop")
	}
	if p.State() != StateStopped {
		t.Errorf("state = %v, want stopped", p.State())
	}
	if _, err := q.Receive(time.Second); !errors.Is(err, ErrQueueClosed) {
		t.Errorf("got %v, want ErrQueueClosed", err)
	}
}
