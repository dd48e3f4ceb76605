package timer

import (
	"time"

	"github.com/brickingsoft/fibio/pkg/uring"
)

// timeoutSignal is the sentinel a ring TIMEOUT completion delivers to the
// waiting fiber when it fires before block returns. A pointer per call, per
// spec.md §4.5's nested-timeout rule (see moveOnSignal).
type timeoutSignal struct{}

func (*timeoutSignal) Error() string { return "operation timed out" }

// Timeout bounds block with a ring TIMEOUT submission through b, per
// spec.md §4.5's `timeout(duration, exception_template, move_on_value)
// {block}` — distinct from Shared's coarse ticker: this one is a real ring
// TIMEOUT entry with sub-tick precision. It is a standalone entry, not linked
// to any single op, so it bounds block as a whole, interrupting whatever
// suspension point the fiber is parked on. If the deadline fires first, exc
// is returned when non-nil,
// otherwise moveOnValue; any other error from block propagates unchanged.
// If block finishes first, the still-pending TIMEOUT submission is
// cancelled via the ensure-path, per the backend's async-cancel protocol.
func Timeout(b *uring.Backend, dur time.Duration, exc error, moveOnValue any, block func() (any, error)) (any, error) {
	sentinel := &timeoutSignal{}
	h := b.SubmitTimeout(dur, sentinel)
	defer b.CancelTimeoutOp(h)

	v, err := block()
	if err == sentinel {
		if exc != nil {
			return nil, exc
		}
		return moveOnValue, nil
	}
	return v, err
}
