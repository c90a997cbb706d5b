package hotkey

import (
	"errors"
	"sync"
	"time"
)

var (
	ErrTimeout     = errors.New("hotkey: receive timed out")
	ErrQueueClosed = errors.New("hotkey: event queue closed")
)

// Queue is an unbounded FIFO of trigger events between one producer (the
// poller) and one consumer (the application loop). Closing the queue is the
// producer's terminal signal; the consumer drains what is left and then
// receives ErrQueueClosed.
type Queue struct {
	mu     sync.Mutex
	items  []Event
	closed bool
	cause  error
	ready  chan struct{}
}

func NewQueue() *Queue {
	return &Queue{ready: make(chan struct{}, 1)}
}

func (q *Queue) Send(ev Event) error {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return ErrQueueClosed
	}
	q.items = append(q.items, ev)
	q.mu.Unlock()
	q.wake()
	return nil
}

// Close marks the producer side as finished. cause is nil for an orderly
// stop. Only the first call has an effect.
func (q *Queue) Close(cause error) {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return
	}
	q.closed = true
	q.cause = cause
	q.mu.Unlock()
	q.wake()
}

// Err returns the cause passed to Close.
func (q *Queue) Err() error {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.cause
}

func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items)
}

// Receive returns the oldest pending event, waiting up to timeout for one to
// arrive. It returns ErrTimeout when nothing arrived in time and
// ErrQueueClosed once the queue is closed and drained.
func (q *Queue) Receive(timeout time.Duration) (Event, error) {
	var timer *time.Timer
	for {
		if ev, ok, closed := q.pop(); ok {
			if timer != nil {
				timer.Stop()
			}
			return ev, nil
		} else if closed {
			if timer != nil {
				timer.Stop()
			}
			return Event{}, ErrQueueClosed
		}

		if timer == nil {
			timer = time.NewTimer(timeout)
		}
		select {
		case <-q.ready:
		case <-timer.C:
			if ev, ok, _ := q.pop(); ok {
				return ev, nil
			}
			return Event{}, ErrTimeout
		}
	}
}

func (q *Queue) pop() (Event, bool, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if len(q.items) == 0 {
		return Event{}, false, q.closed
	}
	ev := q.items[0]
	q.items[0] = Event{}
	q.items = q.items[1:]
	return ev, true, q.closed
}

func (q *Queue) wake() {
	select {
	case q.ready <- struct{}{}:
	default:
	}
}
