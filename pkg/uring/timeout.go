package uring

import (
	"runtime"
	"syscall"
	"time"
	"unsafe"

	"github.com/brickingsoft/fibio/pkg/fiber"
	"github.com/brickingsoft/fibio/pkg/liburing"
	"github.com/brickingsoft/fibio/pkg/opctx"
)

// timeoutUserData is the per-submission state a TIMEOUT context's UserData
// points at: err is delivered as an interrupt if the deadline actually
// fires, fired/cancelled record which of the two races (kernel expiry vs.
// the ensure-path's explicit cancel) won, so the other is a no-op.
type timeoutUserData struct {
	err       error
	fired     bool
	cancelled bool
}

// TimeoutHandle is an opaque handle to a still-pending ring TIMEOUT
// submission, returned by SubmitTimeout and consumed by CancelTimeoutOp.
type TimeoutHandle struct {
	ctx *opctx.Context
	ud  *timeoutUserData
}

// SubmitTimeout submits a ring TIMEOUT entry for dur against the current
// fiber, per spec.md §4.5's per-op timeout mechanism. If the kernel delivers
// the expiry before CancelTimeoutOp retires it, err is delivered to the
// owning fiber as an interrupt at its next (or current) suspension point —
// the same delivery path ordinary cancellation uses (spec.md §4.3's "value
// propagation" rule).
func (b *Backend) SubmitTimeout(dur time.Duration, err error) *TimeoutHandle {
	self := b.sched.Current()
	ctx := b.store.Acquire(opctx.KindTimeout, self)
	// Nobody calls await/Suspend for this specific context — the owning
	// fiber is off running block() and may be suspended on something else
	// entirely — so only the submission's own share is meaningful here.
	ctx.Release()

	ud := &timeoutUserData{err: err}
	ctx.UserData = ud

	spec := syscall.NsecToTimespec(dur.Nanoseconds())
	sqe := b.acquireSQE()
	sqe.PrepareTimeout(&spec, 0, 0)
	sqe.SetData(unsafe.Pointer(ctx))
	runtime.KeepAlive(ctx)
	b.deferOrFlush()
	b.flush()

	return &TimeoutHandle{ctx: ctx, ud: ud}
}

// CancelTimeoutOp retires a still-pending timeout submission, per the
// per-op timeout's ensure-path ("If the block finishes first, the
// ensure-path cancels the timeout submission", spec.md §4.5). A no-op if
// the deadline already fired.
func (b *Backend) CancelTimeoutOp(h *TimeoutHandle) {
	if h.ud.fired {
		return
	}
	h.ud.cancelled = true
	b.submitCancel(h.ctx)
	b.flush()
}

// dispatchTimeout implements the per-op timeout's completion rule: a
// completion that lost the race against an explicit cancel is just
// released; the one that won interrupts the owning fiber with the error
// SubmitTimeout was given.
func (b *Backend) dispatchTimeout(ctx *opctx.Context, cqe *liburing.CompletionQueueEvent) {
	ud, _ := ctx.UserData.(*timeoutUserData)
	owner, _ := ctx.Owner.(*fiber.Fiber)
	ctx.Release()
	if ud == nil || ud.cancelled {
		return
	}
	ud.fired = true
	if owner != nil {
		b.sched.Interrupt(owner, ud.err, false)
	}
}
