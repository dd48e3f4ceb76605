package bytebufferpool

import (
	"io"
)

// buffer is the concrete growable, pool-friendly implementation of Buffer.
// It keeps a single backing slice with a read cursor and write cursor, the
// way bytes.Buffer does, plus Allocate/AllocatedWrote so a pending kernel
// read can target the backing array directly instead of copying into it
// afterwards — this is the "raw pointer, length, grow-to-fit, set-length"
// abstraction spec.md §6 asks for.
type buffer struct {
	buf     []byte
	rpos    int
	wpos    int
	pending int // bytes reserved by Allocate but not yet committed
}

func newBuffer() *buffer {
	return &buffer{buf: make([]byte, 0, pageszie)}
}

func (b *buffer) Len() int {
	return b.wpos - b.rpos
}

func (b *buffer) Cap() int {
	return cap(b.buf)
}

func (b *buffer) Available() int {
	return cap(b.buf) - b.wpos
}

func (b *buffer) Empty() bool {
	return b.rpos == b.wpos
}

func (b *buffer) WritePending() bool {
	return b.pending > 0
}

// compact slides unread bytes to the front of the backing array, reclaiming
// space consumed by Discard/Next/Read on the low end.
func (b *buffer) compact() {
	if b.rpos == 0 {
		return
	}
	n := copy(b.buf, b.buf[b.rpos:b.wpos])
	b.rpos = 0
	b.wpos = n
}

func (b *buffer) growTo(size int) {
	if cap(b.buf)-b.wpos >= size {
		return
	}
	if b.rpos > 0 {
		b.compact()
		if cap(b.buf)-b.wpos >= size {
			return
		}
	}
	need := b.wpos + size
	grown := make([]byte, b.wpos, need*2)
	copy(grown, b.buf[:b.wpos])
	b.buf = grown
}

func (b *buffer) Peek(n int) []byte {
	if n <= 0 {
		return nil
	}
	end := b.rpos + n
	if end > b.wpos {
		end = b.wpos
	}
	return b.buf[b.rpos:end]
}

func (b *buffer) Next(n int) ([]byte, error) {
	if n < 0 {
		return nil, io.ErrShortBuffer
	}
	if b.rpos+n > b.wpos {
		n = b.wpos - b.rpos
	}
	p := b.buf[b.rpos : b.rpos+n]
	b.rpos += n
	if b.rpos == b.wpos {
		b.rpos, b.wpos = 0, 0
	}
	return p, nil
}

func (b *buffer) Discard(n int) {
	if n <= 0 {
		return
	}
	if b.rpos+n > b.wpos {
		n = b.wpos - b.rpos
	}
	b.rpos += n
	if b.rpos == b.wpos {
		b.rpos, b.wpos = 0, 0
	}
}

func (b *buffer) Read(p []byte) (n int, err error) {
	if b.Empty() {
		if len(p) == 0 {
			return 0, nil
		}
		return 0, io.EOF
	}
	n = copy(p, b.buf[b.rpos:b.wpos])
	b.rpos += n
	if b.rpos == b.wpos {
		b.rpos, b.wpos = 0, 0
	}
	return
}

func (b *buffer) Write(p []byte) (n int, err error) {
	b.growTo(len(p))
	b.buf = b.buf[:b.wpos+len(p)]
	n = copy(b.buf[b.wpos:], p)
	b.wpos += n
	return
}

func (b *buffer) WriteString(s string) (n int, err error) {
	return b.Write([]byte(s))
}

func (b *buffer) WriteByte(c byte) error {
	_, err := b.Write([]byte{c})
	return err
}

func (b *buffer) WriteRune(r rune) (n int, err error) {
	return b.Write([]byte(string(r)))
}

// Allocate reserves size bytes at the write cursor and returns them as a
// slice the caller (typically a pending kernel read) may fill directly.
// The bytes are not considered written until AllocatedWrote commits some
// prefix of them.
func (b *buffer) Allocate(size int) []byte {
	b.growTo(size)
	b.buf = b.buf[:b.wpos+size]
	b.pending = size
	return b.buf[b.wpos : b.wpos+size]
}

// AllocatedWrote commits n of the previously Allocate'd bytes as written,
// advancing the write cursor. It trims the unused remainder of the
// reservation.
func (b *buffer) AllocatedWrote(n int) {
	if n > b.pending {
		n = b.pending
	}
	b.wpos += n
	b.buf = b.buf[:b.wpos]
	b.pending = 0
}

func (b *buffer) Reset() {
	b.rpos, b.wpos, b.pending = 0, 0, 0
	b.buf = b.buf[:0]
}
