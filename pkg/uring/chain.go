package uring

import (
	"errors"
	"runtime"
	"syscall"
	"unsafe"

	"github.com/brickingsoft/fibio/pkg/fiber"
	"github.com/brickingsoft/fibio/pkg/liburing"
	"github.com/brickingsoft/fibio/pkg/opctx"
)

// ChainOpKind selects which ring opcode a ChainOp submits, per spec.md
// §4.4's "chain(ops…)" catalogue entry — a fixed set of opcodes the kernel
// is willing to link with IOSQE_IO_LINK: write, send and splice.
type ChainOpKind uint8

const (
	ChainWrite ChainOpKind = iota
	ChainSend
	ChainSplice
)

// ErrInvalidChainOp is returned by Chain when a ChainOp is missing a field
// its Kind requires.
var ErrInvalidChainOp = errors.New("fibio: invalid chain op")

// ChainOp describes one linked submission within a Chain call.
type ChainOp struct {
	Kind ChainOpKind

	// FD is the op's target file descriptor for every kind.
	FD int

	// Buf is the payload for ChainWrite/ChainSend.
	Buf []byte
	// SendFlags are send(2) flags, used only by ChainSend.
	SendFlags int

	// SpliceFromFD/SpliceLen are the source pipe fd and byte count for
	// ChainSplice; FD is the destination.
	SpliceFromFD int
	SpliceLen    uint32
}

// chainGroup is the shared completion-accounting state for one Chain call:
// every member decrements remaining as it completes, and the last one to
// do so wakes the waiting fiber.
type chainGroup struct {
	members   []*chainMember
	remaining int
	firstErr  error
	waiter    *fiber.Fiber
	done      bool
}

// chainMember correlates one linked SQE's completion back to its group.
type chainMember struct {
	grp       *chainGroup
	ctx       *opctx.Context
	completed bool
}

// Chain submits every op in ops as one linked io_uring chain — all but the
// last carry IOSQE_IO_LINK, per spec.md §4.4's "linked SQEs" semantics: if
// an earlier op fails, the kernel short-circuits the rest with ECANCELED
// rather than executing them. The call blocks the current fiber until every
// member has completed (successfully or not) and returns the number of
// members whose completion arrived, counting members the kernel cancelled
// with ECANCELED as well, plus the first member error encountered, if any.
func (b *Backend) Chain(ops ...ChainOp) (int, error) {
	if len(ops) == 0 {
		return 0, nil
	}
	self := b.sched.Current()
	grp := &chainGroup{remaining: len(ops)}
	grp.members = make([]*chainMember, len(ops))

	for i, op := range ops {
		ctx := b.store.Acquire(opctx.KindChain, self)
		// The group, not any single member, owns the fiber wakeup; each
		// member keeps only the submission's own share.
		ctx.Release()
		m := &chainMember{grp: grp, ctx: ctx}
		ctx.UserData = m
		grp.members[i] = m

		sqe := b.acquireSQE()
		if err := prepareChainOp(sqe, op); err != nil {
			return 0, err
		}
		if i < len(ops)-1 {
			sqe.SetFlags(liburing.IOSQE_IO_LINK)
		}
		sqe.SetData(unsafe.Pointer(ctx))
		runtime.KeepAlive(ctx)
		b.deferOrFlush()
	}

	grp.waiter = self
	b.flush()
	_, err := b.sched.Suspend()
	if err != nil {
		for _, m := range grp.members {
			if !m.completed {
				b.submitCancel(m.ctx)
			}
		}
		b.flush()
		return grp.completedCount(), err
	}
	return grp.completedCount(), grp.firstErr
}

func (g *chainGroup) completedCount() int {
	n := 0
	for _, m := range g.members {
		if m.completed {
			n++
		}
	}
	return n
}

func prepareChainOp(sqe *liburing.SubmissionQueueEntry, op ChainOp) error {
	switch op.Kind {
	case ChainWrite:
		if len(op.Buf) == 0 {
			return ErrInvalidChainOp
		}
		sqe.PrepareWrite(op.FD, uintptr(unsafe.Pointer(&op.Buf[0])), uint32(len(op.Buf)), noOffset)
	case ChainSend:
		if len(op.Buf) == 0 {
			return ErrInvalidChainOp
		}
		sqe.PrepareSend(op.FD, uintptr(unsafe.Pointer(&op.Buf[0])), uint32(len(op.Buf)), op.SendFlags)
	case ChainSplice:
		if op.SpliceLen == 0 {
			return ErrInvalidChainOp
		}
		sqe.PrepareSplice(op.SpliceFromFD, -1, op.FD, -1, op.SpliceLen, 0)
	default:
		return ErrInvalidChainOp
	}
	return nil
}

// dispatchChainMember records one linked submission's completion against
// its group and wakes the waiting fiber once every member has reported in.
func (b *Backend) dispatchChainMember(m *chainMember, cqe *liburing.CompletionQueueEvent) {
	m.completed = true
	m.ctx.Release()
	grp := m.grp
	if cqe.Res < 0 {
		if grp.firstErr == nil {
			grp.firstErr = syscall.Errno(-cqe.Res)
		}
	}
	grp.remaining--
	if grp.remaining > 0 {
		return
	}
	grp.done = true
	if grp.waiter != nil {
		waiter := grp.waiter
		grp.waiter = nil
		b.sched.Schedule(waiter, nil, false)
	}
}
