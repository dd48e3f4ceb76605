// Package uring implements the ring backend (C4): the operation catalogue
// that submits io_uring entries on behalf of a fiber, yields the fiber via
// C3 until the corresponding completion arrives, and reaps completions on
// the scheduler's idle pump.
//
// Grounded on the teacher's pkg/ring.Ring (sync.Pool-backed operation
// objects, a single listening loop that drains the completion queue and
// dispatches by user-data) adapted from "two background goroutines plus a
// lock-free MPSC queue" to "one cooperative fiber submits, the scheduler's
// idle hook reaps" — the single-OS-thread model removes the need for
// Ring.listenSQ/listenCQ's separate goroutines and queue.
package uring

import (
	"runtime"
	"sync"
	"syscall"
	"time"
	"unsafe"

	"github.com/brickingsoft/fibio/pkg/fiber"
	"github.com/brickingsoft/fibio/pkg/kernel"
	"github.com/brickingsoft/fibio/pkg/liburing"
	"github.com/brickingsoft/fibio/pkg/opctx"
	"github.com/brickingsoft/fibio/pkg/runqueue"
	"github.com/brickingsoft/fibio/pkg/semaphores"
)

// defaultPreparedLimit bounds how many filled-but-unsubmitted SQEs
// accumulate before an automatic flush, per spec.md §4.4's "defer submit,
// flush when pending reaches the prepared limit."
const defaultPreparedLimit = 32

// minEntries is the floor spec.md §6 gives for ring-depth backoff on ENOMEM.
const minEntries = 64

// Options configures a Backend at construction.
type Options struct {
	// Entries is the initial ring depth; it halves on ENOMEM down to
	// minEntries before New gives up. Zero uses spec.md §6's default of 1024.
	Entries uint32
	// PreparedLimit overrides defaultPreparedLimit.
	PreparedLimit uint32
	// IdleGCPeriod, if nonzero, triggers runtime.GC() from the idle hook no
	// more often than this period, per spec.md §4.4's "idle_gc_period."
	IdleGCPeriod time.Duration
	// OnIdle, if set, runs from the idle hook before every blocking poll.
	// It must never itself block.
	OnIdle func()
}

// Backend owns the ring, the op context store, the run queue and the fiber
// scheduler, wiring C1–C4 together.
type Backend struct {
	mu   sync.Mutex // guards ring SQE/CQE access; see Wakeup.
	ring *liburing.Ring

	store *opctx.Store
	rq    *runqueue.Queue
	sched *fiber.Scheduler

	preparedLimit uint32
	pending       uint32

	cqeBuf []*liburing.CompletionQueueEvent

	idleGCPeriod time.Duration
	onIdle       func()
	lastGC       time.Time

	wake *semaphores.Semaphore

	acceptFIFOs sync.Map // fd (int) -> *multishotFIFO, for multishot accept

	closed bool
}

// New creates a Backend, probing IORING_SETUP_COOP_TASKRUN support the way
// pkg/kernel probes the running kernel's version, and backing off the ring
// depth on ENOMEM per spec.md §6.
func New(opts Options) (*Backend, error) {
	entries := opts.Entries
	if entries == 0 {
		entries = 1024
	}
	limit := opts.PreparedLimit
	if limit == 0 {
		limit = defaultPreparedLimit
	}

	flags := liburing.IORING_SETUP_SUBMIT_ALL
	if kernel.AtLeast(5, 19, 0) {
		flags |= liburing.IORING_SETUP_COOP_TASKRUN
	}

	var ring *liburing.Ring
	var err error
	for {
		ring, err = liburing.New(liburing.WithEntries(entries), liburing.WithFlags(flags))
		if err == nil {
			break
		}
		if err != syscall.ENOMEM || entries <= minEntries {
			return nil, err
		}
		entries /= 2
	}

	b := &Backend{
		ring:          ring,
		store:         opctx.NewStore(),
		rq:            runqueue.New(),
		preparedLimit: limit,
		cqeBuf:        make([]*liburing.CompletionQueueEvent, entries),
		idleGCPeriod:  opts.IdleGCPeriod,
		onIdle:        opts.OnIdle,
		wake:          semaphores.New(),
	}
	b.sched = fiber.New(b.rq, b.poll)
	b.sched.SetIdle(b.idle)
	return b, nil
}

// Scheduler returns the backend's fiber scheduler.
func (b *Backend) Scheduler() *fiber.Scheduler { return b.sched }

// Store returns the backend's op context store, mainly for leak-detection
// tests (spec.md §8's free-list invariant).
func (b *Backend) Store() *opctx.Store { return b.store }

// Run wraps the calling goroutine as the root fiber and runs fn on it. fn is
// expected to Spawn further fibers and return once the runtime's work is
// done; Run itself does not loop — callers that want an event-loop-forever
// backend should have fn block on its own termination signal.
func (b *Backend) Run(fn func()) {
	b.sched.Root()
	fn()
}

// Shutdown tears down the ring. It is not safe to call while fibers are still
// in flight.
func (b *Backend) Shutdown() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return nil
	}
	b.closed = true
	return b.ring.Close()
}

// Wakeup posts a no-op submission so a thread parked in a blocking poll
// returns immediately, per spec.md §4.4. This is the one backend entry
// point meant to be called from outside the fiber currently holding the
// baton (e.g. a signal handler or another OS thread); it goes through mu
// because every other ring access assumes single-threaded cooperative use.
func (b *Backend) Wakeup() {
	b.wake.Signal()
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return
	}
	sqe := b.ring.GetSQE()
	if sqe == nil {
		return
	}
	sqe.PrepareNop()
	sqe.SetData(nil)
	_, _ = b.ring.Submit()
}

// idle runs before every blocking poll: the user's OnIdle hook, then a GC
// sweep if idleGCPeriod has elapsed, per spec.md §4.4.
func (b *Backend) idle() {
	if b.onIdle != nil {
		b.onIdle()
	}
	if b.idleGCPeriod <= 0 {
		return
	}
	now := time.Now()
	if b.lastGC.IsZero() || now.Sub(b.lastGC) >= b.idleGCPeriod {
		runtime.GC()
		b.lastGC = now
	}
}

// acquireSQE returns a submission entry, submitting to free space and
// snoozing the current fiber if the ring is momentarily full.
func (b *Backend) acquireSQE() *liburing.SubmissionQueueEntry {
	for {
		b.mu.Lock()
		sqe := b.ring.GetSQE()
		if sqe != nil {
			b.mu.Unlock()
			return sqe
		}
		b.flushLocked()
		sqe = b.ring.GetSQE()
		b.mu.Unlock()
		if sqe != nil {
			return sqe
		}
		b.sched.Snooze()
	}
}

// deferOrFlush increments the pending-submission counter and flushes once it
// reaches preparedLimit.
func (b *Backend) deferOrFlush() {
	b.mu.Lock()
	b.pending++
	full := b.pending >= b.preparedLimit
	if full {
		b.flushLocked()
	}
	b.mu.Unlock()
}

func (b *Backend) flushLocked() {
	if b.pending == 0 {
		return
	}
	_, _ = b.ring.Submit()
	b.pending = 0
}

// flush submits any deferred SQEs immediately.
func (b *Backend) flush() {
	b.mu.Lock()
	b.flushLocked()
	b.mu.Unlock()
}

// submit acquires a context and SQE for kind, lets fill populate the entry,
// tags it with the context, and defers submission per the prepared-limit
// policy. The returned context carries ref count 2 until await releases the
// fiber's share.
func (b *Backend) submit(kind opctx.Kind, fill func(sqe *liburing.SubmissionQueueEntry, ctx *opctx.Context)) *opctx.Context {
	self := b.sched.Current()
	ctx := b.store.Acquire(kind, self)
	sqe := b.acquireSQE()
	fill(sqe, ctx)
	sqe.SetData(unsafe.Pointer(ctx))
	runtime.KeepAlive(ctx)
	b.deferOrFlush()
	return ctx
}

// await flushes any deferred submission immediately, yields the current
// fiber, and interprets the resume. A non-nil interrupt error runs the
// cancellation protocol (spec.md §4.4) before re-raising.
func (b *Backend) await(ctx *opctx.Context) (int, error) {
	b.flush()
	v, interrupted := b.sched.Suspend()
	if interrupted != nil {
		if !ctx.Release() {
			b.submitCancel(ctx)
		}
		return 0, interrupted
	}
	res, _ := v.(opResult)
	ctx.Release()
	return res.n, res.err
}

// opResult is the value Schedule delivers to a fiber waiting on a ring op.
type opResult struct {
	n   int
	err error
}

// submitCancel posts an async-cancel entry targeting target with no owner,
// per the cancellation protocol's step 2. Completions with UserData == 0
// are dropped by poll.
func (b *Backend) submitCancel(target *opctx.Context) {
	b.mu.Lock()
	sqe := b.ring.GetSQE()
	if sqe == nil {
		b.flushLocked()
		sqe = b.ring.GetSQE()
	}
	if sqe == nil {
		b.mu.Unlock()
		return
	}
	sqe.PrepareCancel64(uint64(uintptr(unsafe.Pointer(target))), 0)
	sqe.SetData(nil)
	b.pending++
	b.flushLocked()
	b.mu.Unlock()
}

// poll is the scheduler's idle pump: switchFiber calls it with blocking=true
// when the run queue is empty. It drains every ready completion, dispatching
// each per spec.md §4.4's reaping discipline.
func (b *Backend) poll(blocking bool) {
	b.mu.Lock()
	b.flushLocked()

	if blocking {
		_, err := b.ring.SubmitAndWait(1)
		for err == syscall.EINTR {
			if b.rq.Len() > 0 {
				break
			}
			_, err = b.ring.SubmitAndWait(1)
		}
	}

	n := b.ring.PeekBatchCQE(b.cqeBuf)
	for i := uint32(0); i < n; i++ {
		cqe := b.cqeBuf[i]
		b.cqeBuf[i] = nil
		if cqe.UserData == 0 {
			continue
		}
		ctx := (*opctx.Context)(unsafe.Pointer(uintptr(cqe.UserData)))
		b.dispatch(ctx, cqe)
	}
	if n > 0 {
		b.ring.CQAdvance(n)
	}
	b.mu.Unlock()
}

// Poll runs one non-blocking reap pass without switching fibers, useful
// after a non-blocking submit that might already have a result ready.
func (b *Backend) Poll() { b.poll(false) }

// dispatch implements spec.md §4.4's unified reaping rule: a completion
// delivered while the owning fiber still holds its share (ref_count == 2)
// is scheduled with the result and the submission's share is released;
// otherwise the fiber already gave up (cancelled or torn down) and the
// remaining share is released without touching the run queue. Multishot
// contexts are dispatched through dispatchMultishot instead.
func (b *Backend) dispatch(ctx *opctx.Context, cqe *liburing.CompletionQueueEvent) {
	if ctx.RefCount() == opctx.Multishot {
		b.dispatchMultishot(ctx, cqe)
		return
	}
	if ctx.Kind == opctx.KindTimeout {
		b.dispatchTimeout(ctx, cqe)
		return
	}
	if m, ok := ctx.UserData.(*chainMember); ok {
		b.dispatchChainMember(m, cqe)
		return
	}

	var res opResult
	if cqe.Res < 0 {
		res.err = syscall.Errno(-cqe.Res)
	} else {
		res.n = int(cqe.Res)
	}
	ctx.Result = cqe.Res

	if ctx.RefCount() == 2 {
		if owner, ok := ctx.Owner.(*fiber.Fiber); ok {
			ctx.Resume = res
			b.sched.Schedule(owner, res, false)
		}
	}
	ctx.Release()
}
