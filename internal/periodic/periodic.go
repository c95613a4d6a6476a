// Package periodic provides the cancellable wait and loop every simulated
// component is built on. A loop observes cancellation at the top of each
// iteration and while sleeping, so shutdown never waits for a full interval.
package periodic

import (
	"context"
	"errors"
	"time"
)

var ErrInvalidInterval = errors.New("interval must be positive")

// Sleep pauses for d or until ctx is done, whichever comes first. It
// returns ctx.Err() if the wait was interrupted.
func Sleep(ctx context.Context, d time.Duration) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if d <= 0 {
		return nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// Run calls fn, then sleeps for interval, until ctx is done. A positive
// limit bounds the number of calls; Run does not sleep after the last one.
// Cancellation is a normal way to finish, so Run returns nil in that case.
func Run(ctx context.Context, interval time.Duration, limit int, fn func(context.Context)) error {
	if interval <= 0 {
		return ErrInvalidInterval
	}
	for i := 1; ; i++ {
		if ctx.Err() != nil {
			return nil
		}
		fn(ctx)
		if limit > 0 && i >= limit {
			return nil
		}
		if Sleep(ctx, interval) != nil {
			return nil
		}
	}
}
