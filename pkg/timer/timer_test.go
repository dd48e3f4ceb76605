package timer_test

import (
	"testing"
	"time"

	"github.com/brickingsoft/fibio/pkg/fiber"
	"github.com/brickingsoft/fibio/pkg/runqueue"
	"github.com/brickingsoft/fibio/pkg/timer"
)

func newScheduler() *fiber.Scheduler {
	rq := runqueue.New()
	return fiber.New(rq, func(blocking bool) {})
}

// drive keeps popping the run queue (via Snooze on the root fiber) until
// done fires or the deadline passes, letting the background ticker's
// Schedule/Interrupt calls actually reach spawned fibers.
func drive(t *testing.T, s *fiber.Scheduler, done <-chan struct{}) {
	t.Helper()
	deadline := time.After(2 * time.Second)
	for {
		select {
		case <-done:
			return
		case <-deadline:
			t.Fatal("timed out waiting for fiber to finish")
		default:
		}
		s.Snooze()
	}
}

func TestSleepResumesAfterDuration(t *testing.T) {
	s := newScheduler()
	s.Root()
	shared := timer.NewShared(s, time.Millisecond)
	shared.Start()
	defer shared.Stop()

	done := make(chan struct{})
	start := time.Now()
	s.Spawn(func(self *fiber.Fiber) {
		if err := shared.Sleep(20 * time.Millisecond); err != nil {
			t.Errorf("Sleep: %v", err)
		}
		close(done)
	})

	drive(t, s, done)
	if elapsed := time.Since(start); elapsed < 15*time.Millisecond {
		t.Fatalf("Sleep returned too early: %v", elapsed)
	}
}

func TestSleepZeroYieldsOnce(t *testing.T) {
	s := newScheduler()
	s.Root()
	shared := timer.NewShared(s, time.Millisecond)

	done := make(chan struct{})
	s.Spawn(func(self *fiber.Fiber) {
		if err := shared.Sleep(0); err != nil {
			t.Errorf("Sleep(0): %v", err)
		}
		close(done)
	})
	drive(t, s, done)
}

func TestEveryTicksUntilCancelled(t *testing.T) {
	s := newScheduler()
	s.Root()
	shared := timer.NewShared(s, 2*time.Millisecond)
	shared.Start()
	defer shared.Stop()

	var ticks int
	done := make(chan struct{})
	target := s.Spawn(func(self *fiber.Fiber) {
		err := shared.Every(2*time.Millisecond, func() { ticks++ })
		if err == nil {
			t.Error("Every returned nil error, want cancellation")
		}
		close(done)
	})

	deadline := time.After(2 * time.Second)
	interrupted := false
	for {
		select {
		case <-done:
			if ticks < 2 {
				t.Fatalf("ticks = %d, want a handful before cancellation", ticks)
			}
			return
		case <-deadline:
			t.Fatal("Every fiber never finished")
		default:
		}
		s.Snooze()
		if !interrupted && ticks >= 3 {
			interrupted = true
			s.Interrupt(target, errCancelled, true)
		}
	}
}

func TestCancelAfterRaisesOnExpiry(t *testing.T) {
	s := newScheduler()
	s.Root()
	shared := timer.NewShared(s, time.Millisecond)
	shared.Start()
	defer shared.Stop()

	done := make(chan struct{})
	var gotErr error
	s.Spawn(func(self *fiber.Fiber) {
		gotErr = shared.CancelAfter(10*time.Millisecond, nil, func() error {
			return shared.Sleep(time.Second)
		})
		close(done)
	})

	drive(t, s, done)
	if gotErr != timer.ErrTimedOut {
		t.Fatalf("err = %v, want timer.ErrTimedOut", gotErr)
	}
}

func TestCancelAfterResetAvoidsExpiry(t *testing.T) {
	s := newScheduler()
	s.Root()
	shared := timer.NewShared(s, time.Millisecond)
	shared.Start()
	defer shared.Stop()

	done := make(chan struct{})
	var gotErr error
	s.Spawn(func(self *fiber.Fiber) {
		gotErr = shared.CancelAfter(15*time.Millisecond, nil, func() error {
			for i := 0; i < 3; i++ {
				if err := shared.Sleep(10 * time.Millisecond); err != nil {
					return err
				}
				shared.Reset()
			}
			return nil
		})
		close(done)
	})

	drive(t, s, done)
	if gotErr != nil {
		t.Fatalf("err = %v, want nil (reset should have avoided expiry)", gotErr)
	}
}

func TestMoveOnAfterReturnsValueOnExpiry(t *testing.T) {
	s := newScheduler()
	s.Root()
	shared := timer.NewShared(s, time.Millisecond)
	shared.Start()
	defer shared.Stop()

	done := make(chan struct{})
	var got any
	s.Spawn(func(self *fiber.Fiber) {
		v, err := shared.MoveOnAfter(10*time.Millisecond, "oops", func() (any, error) {
			if err := shared.Sleep(time.Second); err != nil {
				return nil, err
			}
			return 42, nil
		})
		if err != nil {
			t.Errorf("MoveOnAfter: %v", err)
		}
		got = v
		close(done)
	})

	drive(t, s, done)
	if got != "oops" {
		t.Fatalf("got = %v, want %q", got, "oops")
	}
}

func TestResetOnNonexistentRecordIsNoop(t *testing.T) {
	s := newScheduler()
	s.Root()
	shared := timer.NewShared(s, time.Millisecond)
	shared.Reset() // no panic, no effect
}

var errCancelled = fiberError("cancelled")

type fiberError string

func (e fiberError) Error() string { return string(e) }
