// Package runqueue implements the run queue (C2): the ordered set of fibers
// ready to run, with "prioritize" and "remove" operations.
//
// Grounded on webriots-corio's use of github.com/gammazero/deque as a ready
// queue for its own cooperative task scheduler (sema.go), generalized from a
// semaphore's waiter list to the fiber scheduler's general-purpose ready
// queue, plus the teacher's pkg/ring.Operation's "already scheduled" guard
// idiom (op.done/hijacked CAS flags) adapted into the scheduled-bit on Entry.
package runqueue

import (
	"sync"

	"github.com/gammazero/deque"
)

// Entry is a (fiber, value) pair ready to run. Owner is opaque to this
// package; the fiber scheduler (pkg/fiber) owns the concrete type.
type Entry struct {
	Owner any
	Value any
}

// Queue is a doubly ended queue of Entry values with O(1) push-head,
// push-tail and pop-head, plus a linear remove-by-owner. A fiber already
// present in the queue cannot be pushed again until it is popped or
// removed — this is what makes schedule() idempotent per spec.md §4.2.
type Queue struct {
	mu        sync.Mutex
	entries   deque.Deque[Entry]
	scheduled map[any]struct{}
}

// New creates an empty run queue.
func New() *Queue {
	return &Queue{scheduled: make(map[any]struct{})}
}

// Push appends (or, when prioritize is set, prepends) owner/value to the
// queue. It is a no-op if owner is already scheduled.
func (q *Queue) Push(owner any, value any, prioritize bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if _, already := q.scheduled[owner]; already {
		return
	}
	q.scheduled[owner] = struct{}{}
	entry := Entry{Owner: owner, Value: value}
	if prioritize {
		q.entries.PushFront(entry)
	} else {
		q.entries.PushBack(entry)
	}
}

// Pop removes and returns the head entry, clearing its scheduled bit. It
// reports false when the queue is empty.
func (q *Queue) Pop() (Entry, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.entries.Len() == 0 {
		return Entry{}, false
	}
	e := q.entries.PopFront()
	delete(q.scheduled, e.Owner)
	return e, true
}

// Delete removes owner from the queue if present, clearing its scheduled
// bit. It reports whether an entry was removed.
func (q *Queue) Delete(owner any) bool {
	q.mu.Lock()
	defer q.mu.Unlock()

	if _, ok := q.scheduled[owner]; !ok {
		return false
	}
	for i := 0; i < q.entries.Len(); i++ {
		if q.entries.At(i).Owner == owner {
			q.entries.Remove(i)
			delete(q.scheduled, owner)
			return true
		}
	}
	// scheduled bit was set without a matching entry; shouldn't happen,
	// but don't leave the bit stuck.
	delete(q.scheduled, owner)
	return false
}

// Scheduled reports whether owner currently has an entry in the queue.
func (q *Queue) Scheduled(owner any) bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	_, ok := q.scheduled[owner]
	return ok
}

// Len reports the number of entries currently queued.
func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.entries.Len()
}
