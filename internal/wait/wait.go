// Package wait provides bounded polling for conditions that become true over time.
package wait

import (
	"context"
	"errors"
	"time"
)

// ErrTimeout is returned by Until when the condition is still false after the timeout.
var ErrTimeout = errors.New("timed out waiting for condition")

// ConditionFunc reports whether the awaited state has been reached. A non-nil
// error stops the polling and is returned to the caller as is.
type ConditionFunc func(ctx context.Context) (bool, error)

// Until evaluates cond immediately and then every interval until it returns
// true, returns an error, the timeout elapses, or ctx is cancelled.
func Until(ctx context.Context, interval, timeout time.Duration, cond ConditionFunc) error {
	if interval <= 0 {
		interval = time.Second
	}

	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		done, err := cond(ctx)
		if err != nil {
			return err
		}
		if done {
			return nil
		}

		select {
		case <-ctx.Done():
			if errors.Is(ctx.Err(), context.DeadlineExceeded) {
				return ErrTimeout
			}
			return ctx.Err()
		case <-ticker.C:
		}
	}
}
