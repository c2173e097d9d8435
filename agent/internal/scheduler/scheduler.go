// Package scheduler drives host ticks: one synchronous callback at a time,
// on a fixed wall-clock interval, until cancelled.
package scheduler

import (
	"context"
	"fmt"
	"time"
)

// Loop calls OnTick every Interval on the goroutine that called Run.
type Loop struct {
	Interval time.Duration
	// Limit stops the loop after that many ticks. Zero runs until the
	// context is cancelled.
	Limit int
	// OnTick receives the 1-based tick number and the tick time.
	OnTick func(n int, now time.Time)
}

// Run blocks until ctx is cancelled or Limit ticks have run. Cancellation
// is not an error.
func (l *Loop) Run(ctx context.Context) error {
	if l.Interval <= 0 {
		return fmt.Errorf("scheduler: interval must be positive, got %v", l.Interval)
	}
	if l.OnTick == nil {
		return fmt.Errorf("scheduler: OnTick is required")
	}

	ticker := time.NewTicker(l.Interval)
	defer ticker.Stop()

	for n := 1; l.Limit == 0 || n <= l.Limit; n++ {
		select {
		case <-ctx.Done():
			return nil
		case now := <-ticker.C:
			l.OnTick(n, now)
		}
	}
	return nil
}
