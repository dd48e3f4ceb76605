package fiber_test

import (
	"errors"
	"testing"
	"time"

	"github.com/brickingsoft/fibio/pkg/fiber"
	"github.com/brickingsoft/fibio/pkg/runqueue"
)

func newScheduler() *fiber.Scheduler {
	rq := runqueue.New()
	return fiber.New(rq, func(blocking bool) {})
}

func TestSpawnedFibersInterleaveAndFinish(t *testing.T) {
	s := newScheduler()
	root := s.Root()

	order := make([]string, 0, 4)
	record := func(s string) { order = append(order, s) }

	aDone := make(chan struct{})
	bDone := make(chan struct{})

	s.Spawn(func(self *fiber.Fiber) {
		record("a-start")
		s.Snooze()
		record("a-end")
		close(aDone)
	})
	s.Spawn(func(self *fiber.Fiber) {
		record("b-start")
		s.Snooze()
		record("b-end")
		close(bDone)
	})

	_ = root
	deadline := time.After(time.Second)
	for {
		s.Snooze()
		select {
		case <-aDone:
			select {
			case <-bDone:
				if len(order) != 4 {
					t.Fatalf("order = %v, want 4 entries", order)
				}
				return
			default:
			}
		case <-deadline:
			t.Fatalf("fibers did not complete, order so far: %v", order)
		default:
		}
	}
}

func TestInterruptReRaisesAtSuspensionPoint(t *testing.T) {
	s := newScheduler()
	root := s.Root()

	gotErr := make(chan error, 1)
	target := s.Spawn(func(self *fiber.Fiber) {
		_, err := s.Suspend()
		gotErr <- err
	})

	s.Snooze()

	wantErr := errors.New("cancelled")
	s.Interrupt(target, wantErr, true)

	s.Snooze()

	select {
	case err := <-gotErr:
		if err != wantErr {
			t.Fatalf("err = %v, want %v", err, wantErr)
		}
	case <-time.After(time.Second):
		t.Fatal("interrupted fiber never resumed")
	}
}

func TestUnscheduleRetractsPendingWakeup(t *testing.T) {
	s := newScheduler()
	root := s.Root()

	s.Schedule(root, "v", false)
	if !s.Unschedule(root) {
		t.Fatal("expected root to be scheduled and removable")
	}
}
