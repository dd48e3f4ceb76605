package runqueue_test

import (
	"testing"

	"github.com/brickingsoft/fibio/pkg/runqueue"
)

func TestPushPopFIFO(t *testing.T) {
	q := runqueue.New()
	q.Push("a", 1, false)
	q.Push("b", 2, false)

	e, ok := q.Pop()
	if !ok || e.Owner != "a" {
		t.Fatalf("got %+v, want a first", e)
	}
	e, ok = q.Pop()
	if !ok || e.Owner != "b" {
		t.Fatalf("got %+v, want b second", e)
	}
	if _, ok = q.Pop(); ok {
		t.Fatal("expected empty queue")
	}
}

func TestPrioritizePushesToHead(t *testing.T) {
	q := runqueue.New()
	q.Push("a", nil, false)
	q.Push("b", nil, true)

	e, _ := q.Pop()
	if e.Owner != "b" {
		t.Fatalf("owner = %v, want b", e.Owner)
	}
}

func TestPushIsIdempotentWhileScheduled(t *testing.T) {
	q := runqueue.New()
	q.Push("a", 1, false)
	q.Push("a", 2, false)

	if q.Len() != 1 {
		t.Fatalf("len = %d, want 1", q.Len())
	}
	e, _ := q.Pop()
	if e.Value != 1 {
		t.Fatalf("value = %v, want first push's value", e.Value)
	}
}

func TestDeleteRemovesEntry(t *testing.T) {
	q := runqueue.New()
	q.Push("a", nil, false)
	q.Push("b", nil, false)

	if !q.Delete("a") {
		t.Fatal("expected delete to find a")
	}
	if q.Scheduled("a") {
		t.Fatal("a should no longer be scheduled")
	}
	e, ok := q.Pop()
	if !ok || e.Owner != "b" {
		t.Fatalf("got %+v, want only b remaining", e)
	}
}

func TestPushAfterPopIsAllowedAgain(t *testing.T) {
	q := runqueue.New()
	q.Push("a", 1, false)
	q.Pop()
	q.Push("a", 2, false)

	e, ok := q.Pop()
	if !ok || e.Value != 2 {
		t.Fatalf("got %+v, want a rescheduled with value 2", e)
	}
}
