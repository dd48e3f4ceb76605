package semaphores_test

import (
	"context"
	"testing"
	"time"

	"github.com/brickingsoft/fibio/pkg/semaphores"
)

func TestSignalWakesWaiter(t *testing.T) {
	s := semaphores.New()
	done := make(chan error, 1)
	go func() {
		done <- s.Wait(context.Background())
	}()

	time.Sleep(10 * time.Millisecond)
	s.Signal()

	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	case <-time.After(time.Second):
		t.Fatal("wait did not wake up")
	}
}

func TestSignalBeforeWaitIsRemembered(t *testing.T) {
	s := semaphores.New()
	s.Signal()

	if err := s.Wait(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestContextCancelUnblocksWait(t *testing.T) {
	s := semaphores.New()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if err := s.Wait(ctx); err == nil {
		t.Fatal("expected error from cancelled context")
	}
}

func TestCloseUnblocksWait(t *testing.T) {
	s := semaphores.New()
	done := make(chan error, 1)
	go func() {
		done <- s.Wait(context.Background())
	}()

	time.Sleep(10 * time.Millisecond)
	s.Close()

	select {
	case err := <-done:
		if err == nil {
			t.Fatal("expected error after close")
		}
	case <-time.After(time.Second):
		t.Fatal("wait did not wake up after close")
	}
}
