package kernel_test

import (
	"testing"

	"github.com/brickingsoft/fibio/pkg/kernel"
)

func TestGet(t *testing.T) {
	v, err := kernel.Get()
	if err != nil {
		t.Skipf("kernel.Get: %v", err)
	}
	t.Logf("kernel version: %s", v)
}

func TestCompare(t *testing.T) {
	a := kernel.Version{Major: 5, Minor: 19, Patch: 0}
	b := kernel.Version{Major: 6, Minor: 0, Patch: 0}
	if kernel.Compare(a, b) >= 0 {
		t.Fatalf("expected %s < %s", a, b)
	}
	if kernel.Compare(a, a) != 0 {
		t.Fatalf("expected %s == %s", a, a)
	}
}
