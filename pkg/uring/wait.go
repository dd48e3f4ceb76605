package uring

import (
	"encoding/binary"

	"golang.org/x/sys/unix"

	"github.com/brickingsoft/fibio/pkg/liburing"
	"github.com/brickingsoft/fibio/pkg/opctx"
)

// WaitIO blocks the calling fiber until fd is ready for the requested
// direction, per spec.md §4.4's `wait_io(io, write?)` — the ring-native way
// to park on readiness without performing the I/O itself (e.g. waiting for
// a non-blocking connect, or for a descriptor this package has no dedicated
// op for).
func (b *Backend) WaitIO(fd int, write bool) error {
	mask := uint32(unix.POLLIN)
	if write {
		mask = uint32(unix.POLLOUT)
	}
	ctx := b.submit(opctx.KindPoll, func(sqe *liburing.SubmissionQueueEntry, _ *opctx.Context) {
		sqe.PreparePollAdd(fd, mask)
	})
	_, err := b.await(ctx)
	return err
}

// WaitEvent implements spec.md §4.4's `wait_event(raise?)`: an eventfd-based
// rendezvous a fiber can park on (raise=false) while another fiber or an
// external OS thread signals it (raise=true) via Raise on the same handle.
// Unlike pkg/semaphores.Semaphore this rendezvous is itself a ring op, so a
// fiber can wait on it alongside other ring operations with a single
// suspension point.
type WaitEvent struct {
	fd int
	b  *Backend
}

// NewWaitEvent creates an eventfd-backed rendezvous.
func (b *Backend) NewWaitEvent() (*WaitEvent, error) {
	fd, err := unix.Eventfd(0, unix.EFD_CLOEXEC|unix.EFD_NONBLOCK)
	if err != nil {
		return nil, err
	}
	return &WaitEvent{fd: fd, b: b}, nil
}

// Wait blocks the calling fiber until Raise is called (by any fiber, or any
// OS thread).
func (e *WaitEvent) Wait() error {
	if err := e.b.WaitIO(e.fd, false); err != nil {
		return err
	}
	var buf [8]byte
	_, err := e.b.Read(e.fd, buf[:], -1)
	if err != nil && err != unix.EAGAIN {
		return err
	}
	return nil
}

// Raise wakes every fiber currently parked in Wait on this handle.
func (e *WaitEvent) Raise() error {
	var buf [8]byte
	binary.NativeEndian.PutUint64(buf[:], 1)
	_, err := unix.Write(e.fd, buf[:])
	return err
}

// Close releases the eventfd.
func (e *WaitEvent) Close() error {
	return unix.Close(e.fd)
}
