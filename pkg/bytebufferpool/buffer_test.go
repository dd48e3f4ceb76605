package bytebufferpool_test

import (
	"testing"

	"github.com/brickingsoft/fibio/pkg/bytebufferpool"
)

func TestBufferWriteReadRoundTrip(t *testing.T) {
	buf := bytebufferpool.Get()
	defer bytebufferpool.Put(buf)

	if _, err := buf.WriteString("0123456789"); err != nil {
		t.Fatal(err)
	}
	if buf.Len() != 10 {
		t.Fatalf("len = %d, want 10", buf.Len())
	}
	if got := string(buf.Peek(5)); got != "01234" {
		t.Fatalf("peek = %q", got)
	}
	buf.Discard(5)
	next, err := buf.Next(5)
	if err != nil {
		t.Fatal(err)
	}
	if string(next) != "56789" {
		t.Fatalf("next = %q", next)
	}
	if !buf.Empty() {
		t.Fatal("expected buffer to be empty after draining")
	}
}

func TestBufferAllocateAndCommit(t *testing.T) {
	buf := bytebufferpool.Get()
	defer bytebufferpool.Put(buf)

	_, _ = buf.WriteString("prefix-")
	p := buf.Allocate(17)
	n := copy(p, "kernel-wrote-this")
	buf.AllocatedWrote(n)

	want := "prefix-kernel-wrote-this"
	if got := string(buf.Peek(buf.Len())); got != want {
		t.Fatalf("peek = %q, want %q", got, want)
	}
	if buf.WritePending() {
		t.Fatal("expected no pending allocation after commit")
	}
}

func TestBufferReadPartial(t *testing.T) {
	buf := bytebufferpool.Get()
	defer bytebufferpool.Put(buf)

	_, _ = buf.WriteString("0123456789")
	p := make([]byte, 5)
	n, err := buf.Read(p)
	if err != nil {
		t.Fatal(err)
	}
	if n != 5 || string(p) != "01234" {
		t.Fatalf("read %d bytes %q", n, p)
	}
	if got := string(buf.Peek(5)); got != "56789" {
		t.Fatalf("remaining = %q", got)
	}
}

func TestBufferGrowsPastInitialCapacity(t *testing.T) {
	buf := bytebufferpool.Get()
	defer bytebufferpool.Put(buf)

	big := make([]byte, buf.Cap()*4)
	for i := range big {
		big[i] = byte(i)
	}
	n, err := buf.Write(big)
	if err != nil {
		t.Fatal(err)
	}
	if n != len(big) {
		t.Fatalf("wrote %d, want %d", n, len(big))
	}
	if buf.Len() != len(big) {
		t.Fatalf("len = %d, want %d", buf.Len(), len(big))
	}
}
