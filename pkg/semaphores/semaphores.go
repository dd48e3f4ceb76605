// Package semaphores provides a single-slot wake/wait primitive with "wake
// whoever is waiting, or remember the wake if nobody is waiting yet"
// semantics. pkg/uring's Backend.Wakeup signals one alongside the no-op ring
// submission it posts to unpark a blocking wait.
package semaphores

import (
	"context"
	"sync/atomic"
)

// New creates an unsignalled wake primitive.
func New() *Semaphore {
	return &Semaphore{ch: make(chan struct{}, 1)}
}

// Semaphore is a single-slot signal: at most one pending Signal is
// remembered between Wait calls, matching the teacher's CAS-guarded channel
// send rather than a buffered counting semaphore.
type Semaphore struct {
	ch     chan struct{}
	signal atomic.Bool
	closed atomic.Bool
}

// Signal wakes a pending or future Wait. Signalling when already signalled
// is a no-op (the slot holds at most one pending wake).
func (s *Semaphore) Signal() {
	if s.closed.Load() {
		return
	}
	if s.signal.CompareAndSwap(false, true) {
		select {
		case s.ch <- struct{}{}:
		default:
		}
	}
}

// Wait blocks until Signal is called, ctx is done, or the Semaphore is
// closed.
func (s *Semaphore) Wait(ctx context.Context) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	case _, ok := <-s.ch:
		s.signal.Store(false)
		if !ok {
			return context.Canceled
		}
		return nil
	}
}

// Close releases any waiter with context.Canceled and makes further Signal
// calls no-ops.
func (s *Semaphore) Close() error {
	if s.closed.CompareAndSwap(false, true) {
		close(s.ch)
	}
	return nil
}
