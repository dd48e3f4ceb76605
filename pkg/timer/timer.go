// Package timer implements the timer layer (C5): a shared-granularity
// ticker that multiplexes many sleep/deadline waiters onto a single periodic
// tick, plus (in timeout.go) the per-op ring timeout built atop pkg/uring.
//
// Grounded on the teacher's acquireTimer/releaseTimer sync.Pool-backed timer
// idiom in pkg/ring/operation.go — generalized from "one timer per in-flight
// op" to "one ticker for every waiter" — with a per-fiber list of deadline
// records that reset() pushes out in place.
package timer

import (
	"sync"
	"time"

	"github.com/brickingsoft/errors"
	"github.com/brickingsoft/fibio/pkg/fiber"
)

// ErrTimedOut is the default exception CancelAfter raises when the caller
// supplies no exception template, per spec.md §4.5.
var ErrTimedOut = errors.Define("timed out")

// record is one fiber's pending deadline, per spec.md §3's Timeout record.
// A single fiber may hold several records at once (nested cancel_after /
// move_on_after scopes, or an Every loop alongside an enclosing cancel
// scope) — Shared keeps a per-fiber list rather than a single slot.
type record struct {
	deadline  time.Time
	interval  time.Duration // 0 for a plain one-shot sleep
	recurring bool          // true for Every
	tick      any           // value delivered on a non-error fire (sleep/Every tick)
	err       error         // non-nil for cancel_after/move_on_after deadlines
}

// Shared multiplexes every currently-waiting sleeper/deadline onto one
// time.Ticker, per spec.md §4.5's "shared-granularity timer."
type Shared struct {
	sched      *fiber.Scheduler
	resolution time.Duration

	mu      sync.Mutex
	records map[*fiber.Fiber][]*record
	ticker  *time.Ticker
	stop    chan struct{}
	started bool
}

// NewShared creates a Shared ticking at resolution (the "shared granularity"
// every waiter is multiplexed onto). A non-positive resolution falls back to
// 10ms.
func NewShared(sched *fiber.Scheduler, resolution time.Duration) *Shared {
	if resolution <= 0 {
		resolution = 10 * time.Millisecond
	}
	return &Shared{
		sched:      sched,
		resolution: resolution,
		records:    make(map[*fiber.Fiber][]*record),
		stop:       make(chan struct{}),
	}
}

// Start begins the background tick loop. Safe to call once; later calls are
// no-ops.
func (s *Shared) Start() {
	s.mu.Lock()
	if s.started {
		s.mu.Unlock()
		return
	}
	s.started = true
	s.ticker = time.NewTicker(s.resolution)
	s.mu.Unlock()
	go s.loop()
}

// Stop halts the tick loop. Any still-pending records are left untouched —
// callers are expected to have already unwound their scopes.
func (s *Shared) Stop() {
	s.mu.Lock()
	if !s.started {
		s.mu.Unlock()
		return
	}
	s.started = false
	ticker := s.ticker
	s.mu.Unlock()
	close(s.stop)
	ticker.Stop()
}

func (s *Shared) loop() {
	for {
		select {
		case <-s.stop:
			return
		case now := <-s.ticker.C:
			s.tick(now)
		}
	}
}

// fired is one record that matured during a tick, queued for delivery after
// mu is released so Schedule/Interrupt (which themselves lock the run
// queue) never run while this package's own mutex is held.
type fired struct {
	f *fiber.Fiber
	r *record
}

// tick implements spec.md §4.5's "on each tick, for every record whose
// deadline is reached, schedule its owner" rule. Recurring records advance
// their deadline by whole multiples of interval, collapsing any missed
// ticks into the next future deadline rather than firing once per missed
// tick ("every ticks are never lost or doubled"). Among several non-
// recurring records belonging to the same fiber (nested cancel_after /
// move_on_after), only the one with the earliest matured deadline fires —
// spec.md §4.5's "the innermost timer that expires decides the exception;
// outer timers pending remain pending until their ensure-paths cancel them."
func (s *Shared) tick(now time.Time) {
	s.mu.Lock()
	var due []fired
	for f, list := range s.records {
		var earliest *record
		for _, r := range list {
			if r.recurring {
				if !now.Before(r.deadline) {
					for !r.deadline.After(now) {
						r.deadline = r.deadline.Add(r.interval)
					}
					due = append(due, fired{f, r})
				}
				continue
			}
			if now.Before(r.deadline) {
				continue
			}
			if earliest == nil || r.deadline.Before(earliest.deadline) {
				earliest = r
			}
		}
		if earliest != nil {
			due = append(due, fired{f, earliest})
			s.removeLocked(f, earliest)
		}
	}
	s.mu.Unlock()

	for _, d := range due {
		if d.r.recurring || d.r.err == nil {
			s.sched.Schedule(d.f, d.r.tick, false)
		} else {
			s.sched.Interrupt(d.f, d.r.err, false)
		}
	}
}

func (s *Shared) register(f *fiber.Fiber, r *record) {
	s.mu.Lock()
	s.records[f] = append(s.records[f], r)
	s.mu.Unlock()
}

// unregister removes r from f's record list — the "removal occurs on every
// exit path" half of spec.md §4.5's guarantee. A no-op if r already fired
// and was removed by tick.
func (s *Shared) unregister(f *fiber.Fiber, r *record) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.removeLocked(f, r)
}

func (s *Shared) removeLocked(f *fiber.Fiber, r *record) {
	list := s.records[f]
	for i, rr := range list {
		if rr == r {
			list = append(list[:i], list[i+1:]...)
			break
		}
	}
	if len(list) == 0 {
		delete(s.records, f)
	} else {
		s.records[f] = list
	}
}

// Sleep suspends the current fiber for dur, per spec.md §4.5's `sleep(dur)`.
// sleep(0) still yields once, per spec.md §8's boundary behavior, rather
// than returning immediately.
func (s *Shared) Sleep(dur time.Duration) error {
	self := s.sched.Current()
	if dur <= 0 {
		_, err := s.sched.Snooze()
		return err
	}
	r := &record{deadline: time.Now().Add(dur)}
	s.register(self, r)
	defer s.unregister(self, r)
	_, err := s.sched.Suspend()
	return err
}

// After spawns a fiber that sleeps dur and then runs block, per spec.md
// §4.5's `after(dur){block}`.
func (s *Shared) After(dur time.Duration, block func()) *fiber.Fiber {
	return s.sched.Spawn(func(self *fiber.Fiber) {
		if err := s.Sleep(dur); err != nil {
			return
		}
		block()
	})
}

// Every runs block once per interval until the current fiber is interrupted
// (typically by an enclosing cancel_after/move_on_after or an external
// Interrupt), per spec.md §4.5's `every(interval){block}`.
func (s *Shared) Every(interval time.Duration, block func()) error {
	self := s.sched.Current()
	r := &record{deadline: time.Now().Add(interval), interval: interval, recurring: true}
	s.register(self, r)
	defer s.unregister(self, r)
	for {
		_, err := s.sched.Suspend()
		if err != nil {
			return err
		}
		block()
	}
}

// Reset re-arms the current fiber's innermost cancel_after/move_on_after (or
// Every) record to now + its original interval, per spec.md §4.5's
// `reset()`. A silent no-op if the current fiber holds no such record.
func (s *Shared) Reset() {
	self := s.sched.Current()
	s.mu.Lock()
	defer s.mu.Unlock()
	list := s.records[self]
	if len(list) == 0 {
		return
	}
	r := list[len(list)-1]
	if r.interval <= 0 {
		return
	}
	r.deadline = time.Now().Add(r.interval)
}
