package keypad

import (
	"context"
	"errors"
	"io"
	"sync"

	"github.com/oshokin/keypad-controller/internal/domain/device"
)

var (
	// ErrQueueFull is returned when a push would exceed the queue capacity.
	ErrQueueFull = errors.New("key queue is full")
	// ErrQueueClosed is returned when pushing into a closed queue.
	ErrQueueClosed = errors.New("key queue is closed")
	// errSyntheticSignal is returned when a verification outcome is pushed as a key.
	errSyntheticSignal = errors.New("synthetic signals cannot be pushed")
)

// Queue buffers physical key presses for a single consumer.
type Queue struct {
	signals chan device.Signal
	space   chan struct{}
	closed  chan struct{}
	once    sync.Once
	mu      sync.Mutex
}

// NewQueue creates a queue holding up to size pending presses.
func NewQueue(size int) *Queue {
	if size <= 0 {
		size = 1
	}

	return &Queue{
		signals: make(chan device.Signal, size),
		space:   make(chan struct{}, 1),
		closed:  make(chan struct{}),
	}
}

// Push enqueues the signals in order without blocking. Either all signals are
// queued or none are.
func (q *Queue) Push(signals ...device.Signal) error {
	for _, sig := range signals {
		if !device.Physical.Contains(sig) {
			return errSyntheticSignal
		}
	}

	// Serialize pushers so a batch is never interleaved or split.
	q.mu.Lock()
	defer q.mu.Unlock()

	select {
	case <-q.closed:
		return ErrQueueClosed
	default:
	}

	if len(signals) > cap(q.signals)-len(q.signals) {
		return ErrQueueFull
	}

	for _, sig := range signals {
		select {
		case q.signals <- sig:
		default:
			return ErrQueueFull
		}
	}

	return nil
}

// PushWait enqueues one signal, waiting for room while the queue is full.
func (q *Queue) PushWait(ctx context.Context, sig device.Signal) error {
	for {
		err := q.Push(sig)
		if !errors.Is(err, ErrQueueFull) {
			return err
		}

		select {
		case <-q.space:
		case <-q.closed:
			return ErrQueueClosed
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

// Close stops accepting presses. Pending presses are still delivered.
func (q *Queue) Close() {
	q.once.Do(func() {
		close(q.closed)
	})
}

// Len returns the number of pending presses.
func (q *Queue) Len() int {
	return len(q.signals)
}

// NextSignal blocks until a press is available, the queue is closed and
// drained (io.EOF), or ctx is done.
func (q *Queue) NextSignal(ctx context.Context) (device.Signal, error) {
	select {
	case sig := <-q.signals:
		return q.taken(sig), nil
	default:
	}

	select {
	case sig := <-q.signals:
		return q.taken(sig), nil
	case <-q.closed:
		// Drain presses that raced with Close.
		select {
		case sig := <-q.signals:
			return q.taken(sig), nil
		default:
			return device.SignalNone, io.EOF
		}
	case <-ctx.Done():
		return device.SignalNone, ctx.Err()
	}
}

// taken wakes a writer blocked in PushWait.
func (q *Queue) taken(sig device.Signal) device.Signal {
	select {
	case q.space <- struct{}{}:
	default:
	}

	return sig
}
