package opctx_test

import (
	"testing"

	"github.com/brickingsoft/fibio/pkg/opctx"
)

func TestAcquireReleaseRoundTrip(t *testing.T) {
	s := opctx.NewStore()

	c := s.Acquire(opctx.KindRead, "fiber-1")
	if c.RefCount() != 2 {
		t.Fatalf("ref count = %d, want 2", c.RefCount())
	}
	if s.Live() != 1 {
		t.Fatalf("live = %d, want 1", s.Live())
	}

	if c.Release() {
		t.Fatal("released after dropping submission share only")
	}
	if s.Live() != 1 {
		t.Fatal("context should still be live with one share remaining")
	}
	if !c.Release() {
		t.Fatal("expected release after dropping fiber share")
	}
	if s.Live() != 0 {
		t.Fatalf("live = %d, want 0 after release", s.Live())
	}
}

func TestBuffersInlineThenOverflow(t *testing.T) {
	s := opctx.NewStore()
	c := s.Acquire(opctx.KindWritev, nil)

	a, b, d := []byte("a"), []byte("b"), []byte("c")
	c.AttachBuffer(a)
	c.AttachBuffer(b)
	c.AttachBuffer(d)

	got := c.Buffers()
	if len(got) != 3 {
		t.Fatalf("buffers = %d, want 3", len(got))
	}
}

func TestMultishotSurvivesOrdinaryRelease(t *testing.T) {
	s := opctx.NewStore()
	c := s.AcquireMultishot(opctx.KindMultishotAccept, "fiber-1")

	if c.Release() {
		t.Fatal("multishot context must not release via ordinary Release")
	}
	if s.Live() != 1 {
		t.Fatal("multishot context should remain live")
	}

	c.Finalize()
	if s.Live() != 0 {
		t.Fatalf("live = %d, want 0 after Finalize", s.Live())
	}
}

func TestStoreRecyclesContexts(t *testing.T) {
	s := opctx.NewStore()

	c1 := s.Acquire(opctx.KindRead, "owner")
	c1.AttachBuffer([]byte("leftover"))
	c1.Release()
	c1.Release()

	c2 := s.Acquire(opctx.KindWrite, "owner-2")
	if len(c2.Buffers()) != 0 {
		t.Fatal("recycled context carried over stale buffers")
	}
	if c2.Owner != "owner-2" {
		t.Fatalf("owner = %v, want owner-2", c2.Owner)
	}
}

func TestLiveCountTracksOutstandingContexts(t *testing.T) {
	s := opctx.NewStore()

	var ctxs []*opctx.Context
	for i := 0; i < 5; i++ {
		ctxs = append(ctxs, s.Acquire(opctx.KindNop, nil))
	}
	if s.Live() != 5 {
		t.Fatalf("live = %d, want 5", s.Live())
	}
	for _, c := range ctxs {
		c.Release()
		c.Release()
	}
	if s.Live() != 0 {
		t.Fatalf("live = %d, want 0", s.Live())
	}
}
