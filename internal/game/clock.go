// internal/game/clock.go
//
// Turn clock: one waiter goroutine per armed session.
//
// A clock is armed while the caller holds the session lock and has just
// advanced the session epoch. Both timers are created before armClock
// returns, so the waiter can never miss the deadline it was armed for.
// The callbacks re-take the session lock and compare the captured epoch;
// a mismatch means the turn already moved on and the callback is a no-op.
// The returned CancelFunc only releases the goroutine early.

package game

import (
	"context"
	"time"

	"github.com/jonboulle/clockwork"
)

// armClock starts a countdown of budget. onWarn (optional) runs once when
// the remaining time first drops to warnAt or below; onExpire runs once at
// the deadline unless the clock is cancelled first.
func (e *Engine) armClock(budget, warnAt time.Duration, onWarn, onExpire func()) context.CancelFunc {
	ctx, cancel := context.WithCancel(e.ctx)

	expiry := e.clock.NewTimer(budget)
	var (
		warn  clockwork.Timer
		warnC <-chan time.Time
	)
	if onWarn != nil && warnAt > 0 {
		d := budget - warnAt
		if d < 0 {
			d = 0
		}
		warn = e.clock.NewTimer(d)
		warnC = warn.Chan()
	}

	go func() {
		defer expiry.Stop()
		if warn != nil {
			defer warn.Stop()
		}
		for {
			select {
			case <-ctx.Done():
				return
			case <-warnC:
				warnC = nil
				onWarn()
			case <-expiry.Chan():
				onExpire()
				return
			}
		}
	}()
	return cancel
}

func stop(cancel context.CancelFunc) {
	if cancel != nil {
		cancel()
	}
}
