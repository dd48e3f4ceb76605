package uring

import (
	"net"
	"runtime"
	"syscall"
	"unsafe"

	"github.com/brickingsoft/fibio/pkg/liburing"
	"github.com/brickingsoft/fibio/pkg/opctx"
)

// Accept submits one accept(2) through the ring and blocks the calling fiber
// until a connection arrives, grounded on the teacher's
// pkg/ring/operation.go PrepareAccept pattern (a fresh RawSockaddrAny per
// call, since a one-shot completion never reuses the buffer).
func (b *Backend) Accept(listenerFD int) (fd int, addr net.Addr, err error) {
	var raw syscall.RawSockaddrAny
	ctx := b.submit(opctx.KindAccept, func(sqe *liburing.SubmissionQueueEntry, _ *opctx.Context) {
		sqe.PrepareAccept(listenerFD, &raw, uint64(syscall.SizeofSockaddrAny), 0)
	})
	n, aerr := b.await(ctx)
	if aerr != nil {
		return 0, nil, aerr
	}
	addr, err = rawToSockaddr(&raw)
	return n, addr, err
}

// AcceptLoop drives handle once per inbound connection on listenerFD using a
// single IORING_ACCEPT_MULTISHOT submission, per spec.md §4.4's "Multishot
// op (accept)" rule. The peer address is intentionally not reported: the
// kernel reuses the same result slot across completions it may batch before
// userspace drains them, so there is no safe buffer to decode from once more
// than one completion has landed — callers that need the peer address call
// syscall.Getpeername on the accepted fd. handle returning false, or the
// calling fiber being interrupted, ends the loop and cancels the multishot
// op.
func (b *Backend) AcceptLoop(listenerFD int, handle func(fd int) bool) error {
	self := b.sched.Current()
	ctx := b.store.AcquireMultishot(opctx.KindMultishotAccept, self)
	fifo := &multishotFIFO{listenerFD: listenerFD, ctx: ctx}
	ctx.UserData = fifo
	b.acceptFIFOs.Store(listenerFD, fifo)

	sqe := b.acquireSQE()
	sqe.PrepareAcceptMultishot(listenerFD, nil, 0, 0)
	sqe.SetData(unsafe.Pointer(ctx))
	runtime.KeepAlive(ctx)
	b.deferOrFlush()
	b.flush()

	for {
		res, ok := fifo.pop()
		if !ok {
			fifo.waiter = self
			if _, err := b.sched.Suspend(); err != nil {
				b.cancelMultishot(fifo)
				return err
			}
			continue
		}
		if res.err != nil {
			return res.err
		}
		if !handle(res.fd) {
			b.cancelMultishot(fifo)
			return nil
		}
		if !res.more {
			return nil
		}
	}
}

// Connect submits connect(2) through the ring and blocks until it completes.
func (b *Backend) Connect(fd int, addr *net.TCPAddr) error {
	raw, rawLen := sockaddrToRaw(addr)
	ctx := b.submit(opctx.KindConnect, func(sqe *liburing.SubmissionQueueEntry, _ *opctx.Context) {
		sqe.PrepareConnect(fd, raw, rawLen)
	})
	_, err := b.await(ctx)
	return err
}
