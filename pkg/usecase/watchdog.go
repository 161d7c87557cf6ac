package usecase

import (
	"context"
	"os"
	"time"
)

// watchdog cancels its context when no progress is reported for timeout.
// A zero timeout disables it.
type watchdog struct {
	cancel  context.CancelCauseFunc
	timer   *time.Timer
	timeout time.Duration
}

func newWatchdog(parent context.Context, timeout time.Duration) (context.Context, *watchdog) {
	ctx, cancel := context.WithCancelCause(parent)
	wd := &watchdog{
		cancel:  cancel,
		timeout: timeout,
	}
	if timeout > 0 {
		wd.timer = time.AfterFunc(timeout, func() {
			cancel(os.ErrDeadlineExceeded)
		})
	}
	return ctx, wd
}

// Kick postpones the deadline by another timeout
func (wd *watchdog) Kick() {
	if wd.timer != nil {
		wd.timer.Reset(wd.timeout)
	}
}

// Stop releases the timer and the context
func (wd *watchdog) Stop() {
	if wd.timer != nil {
		wd.timer.Stop()
	}
	wd.cancel(nil)
}
