//go:build linux

package liburing_test

import (
	"testing"

	"github.com/brickingsoft/fibio/pkg/liburing"
)

func TestNew(t *testing.T) {
	ring, ringErr := liburing.New(liburing.WithEntries(4))
	if ringErr != nil {
		t.Fatal(ringErr)
	}
	defer ring.Close()

	if ring.SQEntries() == 0 {
		t.Fatal("SQEntries: want nonzero ring depth")
	}
	if ring.CQEntries() == 0 {
		t.Fatal("CQEntries: want nonzero ring depth")
	}

	probe, probeErr := ring.Probe()
	if probeErr != nil {
		t.Fatal(probeErr)
	}
	t.Logf("bind supported: %v", probe.IsSupported(liburing.IORING_OP_BIND))
	t.Logf("listen supported: %v", probe.IsSupported(liburing.IORING_OP_LISTEN))
	t.Logf("recv_zc supported: %v", probe.IsSupported(liburing.IORING_OP_RECV_ZC))

	sq := ring.GetSQE()
	if sq == nil {
		t.Fatal("GetSQE: want a free submission entry on an empty ring")
	}
	sq.PrepareNop()
	sq.SetData64(1)

	n, subErr := ring.Submit()
	if subErr != nil {
		t.Fatal(subErr)
	}
	if n != 1 {
		t.Fatalf("Submit: n = %d, want 1", n)
	}

	cqe, waitErr := ring.WaitCQE()
	if waitErr != nil {
		t.Fatal(waitErr)
	}
	if cqe.UserData != sq.UserData {
		t.Fatalf("UserData = %d, want %d", cqe.UserData, sq.UserData)
	}
}
