// Package reference provides a ref-counted release discipline, grounded on
// the teacher's io.Closer-scoped Pointer[E]. It is generalized here to an
// arbitrary release callback so it can back both op-context ref counting
// (pkg/opctx) and buffer pinning, neither of which releases by closing.
package reference

import "sync/atomic"

// Counter is a ref count whose owner decides what "released" means by
// supplying the callback at construction. It starts at n references.
type Counter struct {
	count   atomic.Int64
	release func()
	done    atomic.Bool
}

// NewCounter creates a Counter with an initial reference count of n,
// invoking release exactly once when Release brings the count to zero.
func NewCounter(n int64, release func()) *Counter {
	c := &Counter{release: release}
	c.count.Store(n)
	return c
}

// Retain adds one reference and returns the new count.
func (c *Counter) Retain() int64 {
	return c.count.Add(1)
}

// Release removes one reference. When the count reaches zero it invokes the
// release callback exactly once and reports true; otherwise it reports
// false. Calling Release when the count is already at or below zero is a
// no-op that reports false.
func (c *Counter) Release() (released bool) {
	n := c.count.Add(-1)
	if n > 0 {
		return false
	}
	if n < 0 {
		// already released; restore so repeated misuse doesn't drift further
		c.count.Add(1)
		return false
	}
	if c.done.CompareAndSwap(false, true) {
		if c.release != nil {
			c.release()
		}
		released = true
	}
	return
}

// Count reports the current reference count.
func (c *Counter) Count() int64 {
	return c.count.Load()
}

// Reset rearms the counter to n references and clears the released flag,
// for reuse from a free list.
func (c *Counter) Reset(n int64) {
	c.count.Store(n)
	c.done.Store(false)
}
