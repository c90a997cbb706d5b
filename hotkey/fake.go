package hotkey

import (
	"os"
	"sync"
)

// FakeDevice is an in-memory keyboard for tests and headless runs.
type FakeDevice struct {
	name string
	path string
	keys map[Key]bool

	mu       sync.Mutex
	events   []KeyEvent
	err      error
	panicMsg string
	nonblock bool
	closed   bool
}

// NewFakeKeyboard returns a device that reports letter keys, so the
// enumerator treats it as a keyboard.
func NewFakeKeyboard(name string) *FakeDevice {
	return NewFakeDevice(name, KeyA, KeyZ, KeyF1, KeyF12)
}

func NewFakeDevice(name string, keys ...Key) *FakeDevice {
	f := &FakeDevice{name: name, path: "/dev/input/fake-" + name, keys: make(map[Key]bool)}
	for _, k := range keys {
		f.keys[k] = true
	}
	return f
}

func (f *FakeDevice) Name() string      { return f.name }
func (f *FakeDevice) Path() string      { return f.path }
func (f *FakeDevice) HasKey(k Key) bool { return f.keys[k] }

func (f *FakeDevice) SetNonblock() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.nonblock = true
	return nil
}

func (f *FakeDevice) Read() (KeyEvent, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.closed {
		return KeyEvent{}, os.ErrClosed
	}
	if f.panicMsg != "" {
		panic(f.panicMsg)
	}
	if len(f.events) > 0 {
		ev := f.events[0]
		f.events = f.events[1:]
		return ev, nil
	}
	if f.err != nil {
		return KeyEvent{}, f.err
	}
	return KeyEvent{}, ErrWouldBlock
}

func (f *FakeDevice) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closed = true
	return nil
}

func (f *FakeDevice) Closed() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.closed
}

func (f *FakeDevice) Nonblocking() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.nonblock
}

func (f *FakeDevice) Press(k Key)   { f.push(k, PhasePress) }
func (f *FakeDevice) Release(k Key) { f.push(k, PhaseRelease) }
func (f *FakeDevice) Repeat(k Key)  { f.push(k, PhaseRepeat) }

// Tap presses and releases k.
func (f *FakeDevice) Tap(k Key) {
	f.Press(k)
	f.Release(k)
}

// Fail makes Read return err once queued events are drained.
func (f *FakeDevice) Fail(err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.err = err
}

// Panic makes the next Read panic with msg.
func (f *FakeDevice) Panic(msg string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.panicMsg = msg
}

func (f *FakeDevice) push(k Key, p Phase) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.events = append(f.events, KeyEvent{Key: k, Phase: p})
}
