package uring

import (
	"syscall"

	"github.com/brickingsoft/fibio/pkg/fiber"
	"github.com/brickingsoft/fibio/pkg/liburing"
	"github.com/brickingsoft/fibio/pkg/opctx"
)

// multishotFIFO is the per-socket queue spec.md §4.4 describes for multishot
// accept: every completion the kernel reports while IORING_CQE_F_MORE is set
// pushes one result here; AcceptLoop pops them one at a time, suspending the
// owning fiber when the queue runs dry.
type multishotFIFO struct {
	listenerFD int
	ctx        *opctx.Context
	results    []acceptResult
	waiter     *fiber.Fiber
}

type acceptResult struct {
	fd   int
	err  error
	more bool
}

func (f *multishotFIFO) push(res acceptResult) {
	f.results = append(f.results, res)
}

func (f *multishotFIFO) pop() (acceptResult, bool) {
	if len(f.results) == 0 {
		return acceptResult{}, false
	}
	res := f.results[0]
	f.results = f.results[1:]
	return res, true
}

// dispatchMultishot implements spec.md §4.4's multishot reaping rule: as
// long as the kernel keeps setting CQE_F_MORE the context persists and each
// completion feeds the socket's FIFO; once MORE is clear the context is
// finalized and the FIFO is retired.
func (b *Backend) dispatchMultishot(ctx *opctx.Context, cqe *liburing.CompletionQueueEvent) {
	fifo, _ := ctx.UserData.(*multishotFIFO)
	if fifo == nil {
		return
	}

	more := cqe.Flags&liburing.IORING_CQE_F_MORE != 0
	res := acceptResult{more: more}
	if cqe.Res < 0 {
		res.err = syscall.Errno(-cqe.Res)
	} else {
		res.fd = int(cqe.Res)
	}
	fifo.push(res)

	if waiter := fifo.waiter; waiter != nil {
		fifo.waiter = nil
		b.sched.Schedule(waiter, struct{}{}, false)
	}

	if !more {
		b.acceptFIFOs.Delete(fifo.listenerFD)
		ctx.Finalize()
	}
}

// cancelMultishot tears down a multishot accept loop the owning fiber is
// abandoning: an async-cancel targeting the FIFO's context, mirroring the
// ordinary cancellation protocol but without dropping the fiber's own share
// (AcquireMultishot never gave the fiber one to drop). Any results already
// queued but never popped by AcceptLoop are accepted connections the caller
// will never see again, so their fds are closed here rather than leaked.
func (b *Backend) cancelMultishot(fifo *multishotFIFO) {
	b.acceptFIFOs.Delete(fifo.listenerFD)
	for _, res := range fifo.results {
		if res.err == nil {
			_ = syscall.Close(res.fd)
		}
	}
	fifo.results = nil
	b.submitCancel(fifo.ctx)
}
