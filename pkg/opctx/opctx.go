// Package opctx implements the op context store (C1): a pool of reusable
// per-operation control blocks that correlate a ring submission with the
// fiber awaiting its completion.
//
// Grounded on the teacher's pkg/ring.Operation (kind tag, reset(), the
// 0-1-inline / N-overflow buffer attachment split) and pkg/reference's
// ref-counted release discipline, generalized from "close an io.Closer" to
// "run an arbitrary release callback."
package opctx

import (
	"sync"

	"github.com/brickingsoft/fibio/pkg/reference"
)

// Kind identifies the ring opcode a Context was acquired for.
type Kind uint8

const (
	KindNop Kind = iota
	KindPoll
	KindRead
	KindWrite
	KindWritev
	KindRecv
	KindRecvMsg
	KindSend
	KindSendMsg
	KindAccept
	KindMultishotAccept
	KindConnect
	KindSplice
	KindTee
	KindTimeout
	KindChain
	KindClose
	KindCancel
)

func (k Kind) String() string {
	switch k {
	case KindNop:
		return "nop"
	case KindPoll:
		return "poll"
	case KindRead:
		return "read"
	case KindWrite:
		return "write"
	case KindWritev:
		return "writev"
	case KindRecv:
		return "recv"
	case KindRecvMsg:
		return "recvmsg"
	case KindSend:
		return "send"
	case KindSendMsg:
		return "sendmsg"
	case KindAccept:
		return "accept"
	case KindMultishotAccept:
		return "multishot_accept"
	case KindConnect:
		return "connect"
	case KindSplice:
		return "splice"
	case KindTee:
		return "tee"
	case KindTimeout:
		return "timeout"
	case KindChain:
		return "chain"
	case KindClose:
		return "close"
	case KindCancel:
		return "cancel"
	default:
		return "unknown"
	}
}

// Multishot is the distinguished ref_count value marking a context that may
// be completed many times (used by multishot accept). A context carrying
// this value is never returned to the free list by ordinary Release calls —
// only an explicit Finalize call (once the kernel reports IORING_CQE_F_MORE
// is clear) retires it.
const Multishot = -1

// inlineBuffers is how many attached buffer references a Context stores
// without heap-allocating an overflow slice — the "fast path for 0-1
// buffers" spec.md §4.1 describes. writev/chain ops with more buffers than
// this spill into the overflow slice transparently.
const inlineBuffers = 1

// Context is the per-operation control block. At most one fiber owns a
// Context at any time (spec.md §3); Owner is opaque to this package (the
// ring backend and fiber scheduler agree on its concrete type) so that
// opctx has no import-time dependency on the fiber package.
type Context struct {
	Kind   Kind
	Owner  any // owning fiber handle; nil for fire-and-forget ops
	Result int32
	Resume any // value to deliver to Owner on completion

	refs *reference.Counter

	inline   [inlineBuffers]any
	inlineN  int
	overflow []any

	// UserData lets the ring backend stash opcode-specific submission state
	// (e.g. the syscall.Msghdr or splice byte range) without opctx needing
	// to know about any particular opcode's shape.
	UserData any
}

// AttachBuffer pins an opaque buffer reference for the lifetime of the
// context. Buffers attached this way are only released when the context
// itself is released (spec.md §3 invariant).
func (c *Context) AttachBuffer(buf any) {
	if c.inlineN < inlineBuffers {
		c.inline[c.inlineN] = buf
		c.inlineN++
		return
	}
	c.overflow = append(c.overflow, buf)
}

// Buffers returns every buffer reference currently attached to the context.
func (c *Context) Buffers() []any {
	if len(c.overflow) == 0 {
		return c.inline[:c.inlineN]
	}
	out := make([]any, 0, c.inlineN+len(c.overflow))
	out = append(out, c.inline[:c.inlineN]...)
	out = append(out, c.overflow...)
	return out
}

func (c *Context) releaseBuffers() {
	c.inline = [inlineBuffers]any{}
	c.inlineN = 0
	c.overflow = nil
}

// Retain adds one reference to the context (used when the backend submits
// an async-cancel that must keep the context alive independently of the
// fiber's own share).
func (c *Context) Retain() int64 {
	return c.refs.Retain()
}

// Release drops one reference. It reports true when the reference count
// reached zero, meaning no kernel submission or fiber still references the
// context — the caller may then treat the operation as fully completed.
// Multishot contexts never self-release through Release; call Finalize once
// the kernel signals no more completions are coming.
func (c *Context) Release() (completed bool) {
	if c.refs.Count() == Multishot {
		return false
	}
	return c.refs.Release()
}

// RefCount reports the current reference count, including the Multishot
// sentinel.
func (c *Context) RefCount() int64 {
	return c.refs.Count()
}

// Finalize force-releases a multishot context once the kernel reports no
// further completions are pending for it.
func (c *Context) Finalize() {
	c.refs.Reset(1)
	c.refs.Release()
}

// Store is a free list of reusable Contexts, grounded on the teacher's
// sync.Pool-backed Ring.operations pool. Nothing is allocated up front; see
// NewStore.
type Store struct {
	pool sync.Pool
	// live counts outstanding (acquired, not yet released) contexts, used
	// by leak-detection tests (spec.md §8: "after all fibers terminate, the
	// free list size equals the initial capacity").
	live int64
	mu   sync.Mutex
}

// NewStore creates an empty context store. Contexts are allocated lazily on
// first Acquire and returned to an internal sync.Pool on Release, the same
// discipline the teacher's pkg/ring.Ring uses for *Operation.
func NewStore() *Store {
	s := &Store{}
	s.pool.New = func() any { return &Context{} }
	return s
}

// Acquire returns a Context with ref count 2 — one share for the
// submission, one for the fiber awaiting it — per spec.md §4.1.
func (s *Store) Acquire(kind Kind, owner any) *Context {
	c := s.pool.Get().(*Context)
	c.Kind = kind
	c.Owner = owner
	c.Result = 0
	c.Resume = nil
	c.UserData = nil
	c.refs = reference.NewCounter(2, func() { s.release(c) })

	s.mu.Lock()
	s.live++
	s.mu.Unlock()
	return c
}

// AcquireMultishot is like Acquire but marks the context with the
// Multishot ref-count sentinel so ordinary Release calls never retire it.
func (s *Store) AcquireMultishot(kind Kind, owner any) *Context {
	c := s.Acquire(kind, owner)
	c.refs.Reset(Multishot)
	// the sentinel value is never decremented by Release; rearm the
	// release closure so Finalize's Reset(1)+Release still routes here.
	c.refs = reference.NewCounter(Multishot, func() { s.release(c) })
	return c
}

func (s *Store) release(c *Context) {
	c.releaseBuffers()
	c.Owner = nil
	c.Resume = nil
	c.UserData = nil
	s.pool.Put(c)

	s.mu.Lock()
	s.live--
	s.mu.Unlock()
}

// Live reports the number of contexts currently acquired and not yet
// released — zero once every fiber has terminated and every op has either
// completed or been cancelled-and-reaped, per spec.md §8's leak invariant.
func (s *Store) Live() int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.live
}
