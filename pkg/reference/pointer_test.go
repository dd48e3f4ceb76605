package reference_test

import (
	"testing"

	"github.com/brickingsoft/fibio/pkg/reference"
)

func TestCounterReleasesOnZero(t *testing.T) {
	released := 0
	c := reference.NewCounter(2, func() { released++ })

	if c.Release() {
		t.Fatal("released too early")
	}
	if !c.Release() {
		t.Fatal("expected release on second Release")
	}
	if released != 1 {
		t.Fatalf("release callback called %d times, want 1", released)
	}
}

func TestCounterRetainExtendsLifetime(t *testing.T) {
	released := 0
	c := reference.NewCounter(1, func() { released++ })
	c.Retain()

	c.Release()
	if released != 0 {
		t.Fatal("released while a retained reference remained")
	}
	c.Release()
	if released != 1 {
		t.Fatal("expected release after final reference dropped")
	}
}

func TestCounterReset(t *testing.T) {
	released := 0
	c := reference.NewCounter(1, func() { released++ })
	c.Release()
	if released != 1 {
		t.Fatal("expected release")
	}
	c.Reset(2)
	c.Release()
	if released != 1 {
		t.Fatal("reset counter released too early")
	}
	c.Release()
	if released != 2 {
		t.Fatal("expected second release after reset")
	}
}
