//go:build linux

package hotkey

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"os"
	"time"
	"unsafe"

	evdev "github.com/holoplot/go-evdev"
	"golang.org/x/sys/unix"
)

const evKey = 1

// struct input_event: timeval + type (2) + code (2) + value (4).
var (
	timevalSize    = int(unsafe.Sizeof(unix.Timeval{}))
	inputEventSize = timevalSize + 8
)

type evdevDevice struct {
	fd      int
	path    string
	name    string
	keys    map[Key]struct{}
	buf     []byte
	pending []KeyEvent
	head    int
}

// OpenDevice probes path for its name and key capabilities and opens a raw
// descriptor for reading. The descriptor blocks until SetNonblock is called.
func OpenDevice(path string) (Device, error) {
	probe, err := evdev.Open(path)
	if err != nil {
		return nil, err
	}
	name, err := probe.Name()
	if err != nil {
		name = path
	}
	codes := probe.CapableEvents(evdev.EV_KEY)
	probe.Close()

	keys := make(map[Key]struct{}, len(codes))
	for _, c := range codes {
		keys[Key(c)] = struct{}{}
	}

	fd, err := unix.Open(path, unix.O_RDONLY|unix.O_CLOEXEC, 0)
	if err != nil {
		return nil, &os.PathError{Op: "open", Path: path, Err: err}
	}
	return &evdevDevice{
		fd:   fd,
		path: path,
		name: name,
		keys: keys,
		buf:  make([]byte, inputEventSize*64),
	}, nil
}

func (d *evdevDevice) Name() string { return d.name }

func (d *evdevDevice) Path() string { return d.path }

func (d *evdevDevice) HasKey(k Key) bool {
	_, ok := d.keys[k]
	return ok
}

func (d *evdevDevice) SetNonblock() error {
	return unix.SetNonblock(d.fd, true)
}

func (d *evdevDevice) Read() (KeyEvent, error) {
	for {
		if d.head < len(d.pending) {
			ev := d.pending[d.head]
			d.head++
			return ev, nil
		}
		if d.fd < 0 {
			return KeyEvent{}, os.ErrClosed
		}

		n, err := unix.Read(d.fd, d.buf)
		switch {
		case errors.Is(err, unix.EAGAIN):
			return KeyEvent{}, ErrWouldBlock
		case errors.Is(err, unix.EINTR):
			continue
		case err != nil:
			return KeyEvent{}, &os.PathError{Op: "read", Path: d.path, Err: err}
		case n == 0:
			return KeyEvent{}, &os.PathError{Op: "read", Path: d.path, Err: io.EOF}
		case n%inputEventSize != 0:
			return KeyEvent{}, fmt.Errorf("read %s: short input event (%d bytes)", d.path, n)
		}
		d.decode(d.buf[:n])
	}
}

func (d *evdevDevice) decode(b []byte) {
	d.pending = d.pending[:0]
	d.head = 0
	half := timevalSize / 2
	for i := 0; i+inputEventSize <= len(b); i += inputEventSize {
		ev := b[i : i+inputEventSize]
		evType := binary.NativeEndian.Uint16(ev[timevalSize:])
		if evType != evKey {
			continue
		}
		evCode := binary.NativeEndian.Uint16(ev[timevalSize+2:])
		evValue := int32(binary.NativeEndian.Uint32(ev[timevalSize+4:]))

		var sec, usec int64
		if half == 8 {
			sec = int64(binary.NativeEndian.Uint64(ev[0:]))
			usec = int64(binary.NativeEndian.Uint64(ev[8:]))
		} else {
			sec = int64(int32(binary.NativeEndian.Uint32(ev[0:])))
			usec = int64(int32(binary.NativeEndian.Uint32(ev[4:])))
		}

		d.pending = append(d.pending, KeyEvent{
			Key:   Key(evCode),
			Phase: Phase(evValue),
			Time:  time.Unix(sec, usec*int64(time.Microsecond)),
		})
	}
}

func (d *evdevDevice) Close() error {
	if d.fd < 0 {
		return nil
	}
	err := unix.Close(d.fd)
	d.fd = -1
	return err
}

// ListInputNodes returns every evdev node with its name, keyboard or not.
func ListInputNodes() ([]InputNode, error) {
	paths, err := evdev.ListDevicePaths()
	if err != nil {
		return nil, err
	}
	nodes := make([]InputNode, len(paths))
	for i, p := range paths {
		nodes[i] = InputNode{Name: p.Name, Path: p.Path}
	}
	return nodes, nil
}
