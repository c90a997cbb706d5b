package hotkey

import (
	"context"
	"errors"
	"fmt"
	"time"

	"improve/log"
)

const (
	DefaultInterval = 10 * time.Millisecond
	DefaultCooldown = 3 * time.Second

	// maxDrain bounds how many events are taken from one device per
	// iteration so a flooding device cannot starve the others.
	maxDrain = 256
)

// State is the poller's recovery state.
type State int

const (
	StatePolling State = iota
	StateBackoff
	StateStopped
)

func (s State) String() string {
	switch s {
	case StatePolling:
		return "polling"
	case StateBackoff:
		return "backoff"
	case StateStopped:
		return "stopped"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// Poller owns the open keyboards and the modifier tracker. It drains
// devices without blocking, matches presses against the chord table and
// pushes matches onto the queue. A device error sends it into backoff; after
// the cooldown it rescans and swaps in the new device set.
type Poller struct {
	table   *Table
	finder  Finder
	queue   *Queue
	devices []Device
	tracker Tracker

	state    State
	failedAt time.Time

	interval time.Duration
	cooldown time.Duration
	now      func() time.Time
	hotplug  <-chan struct{}
}

type Option func(*Poller)

func WithInterval(d time.Duration) Option {
	return func(p *Poller) { p.interval = d }
}

func WithCooldown(d time.Duration) Option {
	return func(p *Poller) { p.cooldown = d }
}

func WithClock(now func() time.Time) Option {
	return func(p *Poller) { p.now = now }
}

// WithHotplug makes the poller rescan whenever a value arrives on hints.
func WithHotplug(hints <-chan struct{}) Option {
	return func(p *Poller) { p.hotplug = hints }
}

// NewPoller takes ownership of devices and puts them in non-blocking mode.
// On error the devices are closed.
func NewPoller(table *Table, finder Finder, queue *Queue, devices []Device, opts ...Option) (*Poller, error) {
	p := &Poller{
		table:    table,
		finder:   finder,
		queue:    queue,
		interval: DefaultInterval,
		cooldown: DefaultCooldown,
		now:      time.Now,
	}
	for _, o := range opts {
		o(p)
	}
	for _, d := range devices {
		if err := d.SetNonblock(); err != nil {
			closeAll(devices)
			return nil, fmt.Errorf("set non-blocking on %s: %w", d.Path(), err)
		}
	}
	p.devices = devices
	return p, nil
}

func (p *Poller) State() State { return p.state }

// Run polls until ctx is done. It closes every owned device and then the
// queue before returning; the queue's cause is the returned error.
func (p *Poller) Run(ctx context.Context) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("hotkey poller panic: %v", r)
			log.Errorf("%v", err)
		}
		closeAll(p.devices)
		p.devices = nil
		p.state = StateStopped
		p.queue.Close(err)
	}()

	timer := time.NewTimer(p.interval)
	defer timer.Stop()
	for {
		if ctx.Err() != nil {
			return nil
		}
		p.poll(p.now())

		timer.Reset(p.interval)
		select {
		case <-ctx.Done():
			return nil
		case <-timer.C:
		}
	}
}

// poll runs one iteration of the state machine.
func (p *Poller) poll(now time.Time) {
	switch p.state {
	case StatePolling:
		// Presses buffered on the old handles must be read before a
		// hot-plug swap closes them.
		if !p.drainAll(now) {
			return
		}
		if p.hotplugPending() && p.rescan(now, false) {
			p.drainAll(now)
		}
	case StateBackoff:
		if now.Sub(p.failedAt) < p.cooldown {
			return
		}
		p.rescan(now, true)
	}
}

// drainAll drains every device and reports false when one failed and the
// poller entered backoff.
func (p *Poller) drainAll(now time.Time) bool {
	for _, d := range p.devices {
		if err := p.drain(d); err != nil {
			log.Warnf("device %s (%s) failed: %v; rescanning in %s", d.Name(), d.Path(), err, p.cooldown)
			p.state = StateBackoff
			p.failedAt = now
			return false
		}
	}
	return true
}

func (p *Poller) drain(d Device) error {
	for range maxDrain {
		ev, err := d.Read()
		if errors.Is(err, ErrWouldBlock) {
			return nil
		}
		if err != nil {
			return err
		}
		p.tracker.Update(ev.Key, ev.Phase)
		idx, ok := p.table.Match(ev.Key, ev.Phase, p.tracker.State())
		if !ok {
			continue
		}
		log.Debugf("chord %d (%s) pressed on %s", idx, p.table.Chord(idx), d.Name())
		// A closed queue means the consumer is gone; nothing to do.
		_ = p.queue.Send(Event{Chord: idx, Phase: ev.Phase, At: eventTime(ev)})
	}
	return nil
}

// rescan replaces the device set. After a failure the poller stays in
// backoff and the cooldown restarts; a failed hint-driven rescan keeps the
// current devices.
func (p *Poller) rescan(now time.Time, recovering bool) bool {
	devices, err := p.finder.FindKeyboards()
	if err == nil {
		devices, err = setNonblock(devices)
	}
	if err != nil {
		if recovering {
			log.Warnf("rescan failed: %v; retrying in %s", err, p.cooldown)
			p.failedAt = now
		} else {
			log.Debugf("hot-plug rescan failed: %v", err)
		}
		return false
	}

	closeAll(p.devices)
	p.devices = devices
	p.tracker.Reset()
	p.state = StatePolling
	log.Rescan(len(devices), recovering)
	return true
}

func (p *Poller) hotplugPending() bool {
	if p.hotplug == nil {
		return false
	}
	select {
	case <-p.hotplug:
		return true
	default:
		return false
	}
}

// setNonblock prepares freshly found devices; ones that refuse are dropped.
func setNonblock(devices []Device) ([]Device, error) {
	ready := devices[:0]
	for _, d := range devices {
		if err := d.SetNonblock(); err != nil {
			log.Warnf("dropping %s: %v", d.Path(), err)
			d.Close()
			continue
		}
		ready = append(ready, d)
	}
	if len(ready) == 0 {
		return nil, ErrNoKeyboards
	}
	return ready, nil
}

func eventTime(ev KeyEvent) time.Time {
	if ev.Time.IsZero() {
		return time.Now()
	}
	return ev.Time
}
