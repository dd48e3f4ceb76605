// Package fiber implements the fiber scheduler (C3): strictly
// single-threaded cooperative scheduling over the run queue (pkg/runqueue).
// Exactly one fiber executes at any instant; every suspension point is
// explicit.
//
// Go has no native asymmetric-coroutine primitive, so fibers are modeled as
// goroutines gated by a single-slot channel each — only the fiber currently
// holding the baton is ever unblocked, the same single-slot channel idiom
// pkg/semaphores is built on. This folds in
// the tagged resume-value idea (a value is either a normal return or an
// exception that re-raises at the suspension point) that would otherwise
// have lived in a dedicated futures package.
package fiber

import (
	"sync"
	"sync/atomic"

	"github.com/brickingsoft/fibio/pkg/runqueue"
)

// State is a fiber's coarse lifecycle stage.
type State int32

const (
	StateWaiting State = iota
	StateRunnable
	StateRunning
	StateDead
)

func (s State) String() string {
	switch s {
	case StateWaiting:
		return "waiting"
	case StateRunnable:
		return "runnable"
	case StateRunning:
		return "running"
	case StateDead:
		return "dead"
	default:
		return "unknown"
	}
}

// Resume is the tagged resume value delivered across a suspension point. A
// non-nil Err means the suspension point must re-raise rather than return
// normally — this is how cancellation and timeouts propagate into a
// snoozing or suspended fiber.
type Resume struct {
	Value any
	Err   error
}

// Fiber is a cooperative execution context: a goroutine plus the single-slot
// channel used to hand it the baton.
type Fiber struct {
	id       uint64
	resumeCh chan Resume
	state    atomic.Int32
	parked   atomic.Bool
}

func newFiber(id uint64) *Fiber {
	f := &Fiber{id: id, resumeCh: make(chan Resume, 1)}
	f.state.Store(int32(StateWaiting))
	return f
}

// ID returns the fiber's scheduler-assigned identity, stable for its
// lifetime and suitable as a map/run-queue key.
func (f *Fiber) ID() uint64 { return f.id }

// State reports the fiber's current lifecycle stage.
func (f *Fiber) State() State { return State(f.state.Load()) }

// Parked reports whether the fiber is currently blocked waiting on a
// backend operation rather than merely runnable-but-not-yet-scheduled.
func (f *Fiber) Parked() bool { return f.parked.Load() }

func (f *Fiber) setState(s State) { f.state.Store(int32(s)) }

// Scheduler owns the run queue and the identity of the fiber currently
// holding the baton. It is not safe for concurrent use from multiple OS
// threads — by design, since the model is single-threaded cooperative.
type Scheduler struct {
	rq      *runqueue.Queue
	mu      sync.Mutex
	current *Fiber
	nextID  atomic.Uint64
	idle    func()
	poll    func(blocking bool)
}

// New creates a scheduler backed by rq. poll is the C4 backend's idle pump:
// switch_fiber calls poll(true) when the run queue is empty and must block
// the OS thread until the backend makes at least one fiber runnable again.
func New(rq *runqueue.Queue, poll func(blocking bool)) *Scheduler {
	return &Scheduler{rq: rq, poll: poll}
}

// SetIdle installs a hook switch_fiber runs immediately before every poll,
// per spec.md's "run idle tasks before each poll" policy (§4.4's GC sweep).
func (s *Scheduler) SetIdle(fn func()) { s.idle = fn }

// Current returns the fiber presently holding the baton, or nil before the
// first call to Root/Spawn resumes.
func (s *Scheduler) Current() *Fiber {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.current
}

// Root wraps the calling goroutine as the scheduler's first fiber. Call it
// once, from the goroutine that will drive the event loop; it does not
// spawn a new goroutine since the caller already is one.
func (s *Scheduler) Root() *Fiber {
	f := newFiber(s.nextID.Add(1))
	f.setState(StateRunning)
	s.mu.Lock()
	s.current = f
	s.mu.Unlock()
	return f
}

// Spawn starts fn on a new goroutine as a new fiber and schedules it to run.
// fn receives its own Fiber handle so it can call Snooze/Suspend/etc. on
// itself via the scheduler.
func (s *Scheduler) Spawn(fn func(self *Fiber)) *Fiber {
	f := newFiber(s.nextID.Add(1))
	go func() {
		r := <-f.resumeCh
		s.mu.Lock()
		s.current = f
		s.mu.Unlock()
		f.setState(StateRunning)
		if r.Err == nil {
			fn(f)
		}
		f.setState(StateDead)
		s.rq.Delete(f)
		s.retire(f)
	}()
	s.Schedule(f, nil, false)
	return f
}

// Schedule makes f runnable with the given resume value, per run queue
// push semantics (no-op if f is already scheduled).
func (s *Scheduler) Schedule(f *Fiber, value any, prioritize bool) {
	f.setState(StateRunnable)
	s.rq.Push(f, Resume{Value: value}, prioritize)
}

// Interrupt schedules f with an exception-carrying resume value, so its next
// suspension point re-raises instead of returning normally.
func (s *Scheduler) Interrupt(f *Fiber, err error, prioritize bool) {
	f.setState(StateRunnable)
	s.rq.Push(f, Resume{Err: err}, prioritize)
}

// Unschedule removes f from the run queue if present (used by cancellation
// to retract a pending wakeup before it's delivered).
func (s *Scheduler) Unschedule(f *Fiber) bool {
	return s.rq.Delete(f)
}

// Snooze marks the current fiber runnable (appended to the queue's tail) and
// yields to the scheduler. It returns the value or error the fiber is later
// resumed with.
func (s *Scheduler) Snooze() (any, error) {
	self := s.Current()
	self.setState(StateRunnable)
	s.rq.Push(self, Resume{}, false)
	return s.switchFiber(self)
}

// Suspend yields without scheduling the current fiber — only an external
// Schedule call can make it runnable again.
func (s *Scheduler) Suspend() (any, error) {
	self := s.Current()
	self.parked.Store(true)
	self.setState(StateWaiting)
	r, err := s.switchFiber(self)
	self.parked.Store(false)
	return r, err
}

// switchFiber hands the baton to the next runnable fiber, blocking the
// caller until it is itself chosen again. If the run queue is empty it runs
// idle tasks and polls the backend (blocking) until at least one fiber
// becomes runnable.
func (s *Scheduler) switchFiber(yielding *Fiber) (any, error) {
	s.handOff()

	r := <-yielding.resumeCh
	s.mu.Lock()
	s.current = yielding
	s.mu.Unlock()
	yielding.setState(StateRunning)
	return r.Value, r.Err
}

// retire hands the baton onward when a fiber's function has returned; unlike
// switchFiber it never blocks waiting to be resumed, since the dying
// goroutine is about to exit.
func (s *Scheduler) retire(dying *Fiber) {
	s.handOff()
}

// handOff pops the next runnable fiber (polling/idling as needed when the
// queue is empty) and delivers its resume value, without waiting on any
// particular fiber's own channel.
func (s *Scheduler) handOff() {
	for {
		entry, ok := s.rq.Pop()
		if !ok {
			if s.idle != nil {
				s.idle()
			}
			if s.poll != nil {
				s.poll(true)
			}
			continue
		}
		next, _ := entry.Owner.(*Fiber)
		if next == nil {
			continue
		}
		resume, _ := entry.Value.(Resume)
		s.mu.Lock()
		s.current = next
		s.mu.Unlock()
		next.setState(StateRunning)
		next.resumeCh <- resume
		return
	}
}

// Poll runs one non-blocking pass of the backend's poll hook without
// switching fibers, useful for draining ready completions between two
// fibers' explicit suspension points (e.g. after a non-blocking submit).
func (s *Scheduler) Poll() {
	if s.poll != nil {
		s.poll(false)
	}
}
