package uring

import (
	"io"
	"runtime"
	"syscall"
	"unsafe"

	"github.com/brickingsoft/fibio/pkg/bytebufferpool"
	"github.com/brickingsoft/fibio/pkg/liburing"
	"github.com/brickingsoft/fibio/pkg/opctx"
)

// noOffset tells the kernel to use the file's current position, the same
// convention preadv2(2)/pwritev2(2) use for a negative offset argument —
// required for non-seekable descriptors such as pipes and sockets.
const noOffset = ^uint64(0)

// readChunkSize bounds how much ReadToEOF/ReadLoop/RecvLoop/FeedLoop read
// per ring submission.
const readChunkSize = 64 * 1024

func posArg(pos int64) uint64 {
	if pos < 0 {
		return noOffset
	}
	return uint64(pos)
}

// Read performs one read(2) into buf through the ring at file position pos
// (pos < 0 uses the file's current position), per spec.md §4.4's
// `read(io, buf, maxlen, to_eof=false, pos)`. Per spec.md §8's boundary
// behavior, a zero-length buf returns immediately without submitting an op.
// EOF is reported as (0, io.EOF), the idiomatic Go rendering of "nil on
// immediate EOF."
func (b *Backend) Read(fd int, buf []byte, pos int64) (int, error) {
	if len(buf) == 0 {
		return 0, nil
	}
	ctx := b.submit(opctx.KindRead, func(sqe *liburing.SubmissionQueueEntry, c *opctx.Context) {
		c.AttachBuffer(buf)
		sqe.PrepareRead(fd, uintptr(unsafe.Pointer(&buf[0])), uint32(len(buf)), posArg(pos))
	})
	n, err := b.await(ctx)
	if err == nil && n == 0 {
		return 0, io.EOF
	}
	return n, err
}

// ReadToEOF implements `read(..., to_eof=true)`: it loops, growing an
// internal buffer from the pool, until EOF or maxlen bytes have been read
// (maxlen <= 0 means unbounded). It returns nil on a clean zero-byte EOF,
// matching spec.md §4.4's "at EOF, returns all bytes read (nil if zero)."
func (b *Backend) ReadToEOF(fd int, maxlen int) ([]byte, error) {
	buf := bytebufferpool.Get()
	defer bytebufferpool.Put(buf)

	total := 0
	for maxlen <= 0 || total < maxlen {
		want := readChunkSize
		if maxlen > 0 && maxlen-total < want {
			want = maxlen - total
		}
		chunk := buf.Allocate(want)
		n, err := b.Read(fd, chunk, -1)
		buf.AllocatedWrote(n)
		if err != nil && err != io.EOF {
			return nil, err
		}
		if err == io.EOF || n == 0 {
			break
		}
		total += n
	}
	if total == 0 {
		return nil, nil
	}
	out := make([]byte, total)
	copy(out, buf.Peek(total))
	return out, nil
}

// ReadLoop implements `read_loop(io, chunk_size){block}`: it invokes handle
// once per chunk read and exits cleanly on EOF. handle returning false ends
// the loop early.
func (b *Backend) ReadLoop(fd int, chunkSize int, handle func(chunk []byte) bool) error {
	if chunkSize <= 0 {
		chunkSize = readChunkSize
	}
	buf := make([]byte, chunkSize)
	for {
		n, err := b.Read(fd, buf, -1)
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return err
		}
		if n == 0 || !handle(buf[:n]) {
			return nil
		}
	}
}

// FeedLoop is the Go rendering of spec.md §4.4's "(receiver, method)
// invocation per chunk" variant of read_loop: each chunk read is written to
// w, the natural Go receiver for a stream of bytes. It returns the total
// number of bytes fed.
func (b *Backend) FeedLoop(fd int, chunkSize int, w io.Writer) (int64, error) {
	var total int64
	var writeErr error
	err := b.ReadLoop(fd, chunkSize, func(chunk []byte) bool {
		n, werr := w.Write(chunk)
		total += int64(n)
		if werr != nil {
			writeErr = werr
			return false
		}
		return true
	})
	if writeErr != nil {
		return total, writeErr
	}
	return total, err
}

// Write performs one write(2) of buf through the ring.
func (b *Backend) Write(fd int, buf []byte) (int, error) {
	if len(buf) == 0 {
		return 0, nil
	}
	ctx := b.submit(opctx.KindWrite, func(sqe *liburing.SubmissionQueueEntry, c *opctx.Context) {
		c.AttachBuffer(buf)
		sqe.PrepareWrite(fd, uintptr(unsafe.Pointer(&buf[0])), uint32(len(buf)), noOffset)
	})
	return b.await(ctx)
}

// Writev performs `writev(io, bufs…)`: one vectored write indistinguishable
// to the reader from a single write of every buf concatenated, per spec.md
// §8's round-trip property.
func (b *Backend) Writev(fd int, bufs ...[]byte) (int, error) {
	if len(bufs) == 0 {
		return 0, nil
	}
	iovecs := make([]syscall.Iovec, 0, len(bufs))
	for _, buf := range bufs {
		if len(buf) == 0 {
			continue
		}
		iovecs = append(iovecs, syscall.Iovec{Base: &buf[0], Len: uint64(len(buf))})
	}
	if len(iovecs) == 0 {
		return 0, nil
	}
	ctx := b.submit(opctx.KindWritev, func(sqe *liburing.SubmissionQueueEntry, c *opctx.Context) {
		for _, buf := range bufs {
			c.AttachBuffer(buf)
		}
		c.AttachBuffer(iovecs)
		sqe.PrepareWritev(fd, uintptr(unsafe.Pointer(&iovecs[0])), uint32(len(iovecs)), noOffset)
	})
	return b.await(ctx)
}

// Recv performs one recv(2) through the ring. pos is accepted for symmetry
// with spec.md §4.4's `recv(io, buf, maxlen, pos)` signature but has no
// effect — sockets have no file position.
func (b *Backend) Recv(fd int, buf []byte, pos int64) (int, error) {
	if len(buf) == 0 {
		return 0, nil
	}
	ctx := b.submit(opctx.KindRecv, func(sqe *liburing.SubmissionQueueEntry, c *opctx.Context) {
		c.AttachBuffer(buf)
		sqe.PrepareRecv(fd, uintptr(unsafe.Pointer(&buf[0])), uint32(len(buf)), 0)
	})
	n, err := b.await(ctx)
	if err == nil && n == 0 {
		return 0, io.EOF
	}
	return n, err
}

// RecvLoop is recv's read_loop analogue.
func (b *Backend) RecvLoop(fd int, chunkSize int, handle func(chunk []byte) bool) error {
	if chunkSize <= 0 {
		chunkSize = readChunkSize
	}
	buf := make([]byte, chunkSize)
	for {
		n, err := b.Recv(fd, buf, -1)
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return err
		}
		if n == 0 || !handle(buf[:n]) {
			return nil
		}
	}
}

// RecvMsg performs one recvmsg(2) through the ring, reporting the sender
// address alongside the payload.
func (b *Backend) RecvMsg(fd int, buf []byte) (n int, from syscall.RawSockaddrAny, err error) {
	if len(buf) == 0 {
		return 0, from, nil
	}
	iov := syscall.Iovec{Base: &buf[0], Len: uint64(len(buf))}
	msg := syscall.Msghdr{
		Name:    (*byte)(unsafe.Pointer(&from)),
		Namelen: uint32(syscall.SizeofSockaddrAny),
		Iov:     &iov,
		Iovlen:  1,
	}
	ctx := b.submit(opctx.KindRecvMsg, func(sqe *liburing.SubmissionQueueEntry, c *opctx.Context) {
		c.AttachBuffer(buf)
		c.AttachBuffer(&iov)
		sqe.PrepareRecvMsg(fd, &msg, 0)
	})
	n, err = b.await(ctx)
	return n, from, err
}

// Send performs one send(2) through the ring with the given send(2) flags.
func (b *Backend) Send(fd int, buf []byte, flags int) (int, error) {
	if len(buf) == 0 {
		return 0, nil
	}
	ctx := b.submit(opctx.KindSend, func(sqe *liburing.SubmissionQueueEntry, c *opctx.Context) {
		c.AttachBuffer(buf)
		sqe.PrepareSend(fd, uintptr(unsafe.Pointer(&buf[0])), uint32(len(buf)), flags)
	})
	return b.await(ctx)
}

// SendMsg performs one sendmsg(2) through the ring, directed at to if
// non-nil (a connected socket may pass nil).
func (b *Backend) SendMsg(fd int, buf []byte, to *syscall.RawSockaddrAny, toLen uint32, flags int) (int, error) {
	if len(buf) == 0 {
		return 0, nil
	}
	iov := syscall.Iovec{Base: &buf[0], Len: uint64(len(buf))}
	msg := syscall.Msghdr{Iov: &iov, Iovlen: 1}
	if to != nil {
		msg.Name = (*byte)(unsafe.Pointer(to))
		msg.Namelen = toLen
	}
	ctx := b.submit(opctx.KindSendMsg, func(sqe *liburing.SubmissionQueueEntry, c *opctx.Context) {
		c.AttachBuffer(buf)
		c.AttachBuffer(&iov)
		sqe.PrepareSendMsg(fd, &msg, uint32(flags))
	})
	return b.await(ctx)
}

// Close performs close(2) through the ring — exposed mainly so a caller
// driving everything through the ring (including teardown) never needs a
// synchronous syscall on the hot path.
func (b *Backend) Close(fd int) error {
	ctx := b.submit(opctx.KindClose, func(sqe *liburing.SubmissionQueueEntry, _ *opctx.Context) {
		sqe.PrepareClose(fd)
	})
	_, err := b.await(ctx)
	runtime.KeepAlive(b)
	return err
}
