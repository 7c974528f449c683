package controller

import (
	"context"
	"errors"
	"math"
	"time"

	"github.com/QwerMotion/the-Azathoth-project/internal/bounded"
	"github.com/QwerMotion/the-Azathoth-project/internal/config"
)

// NextDelay returns the wait before poll attempt N (1-based).
func NextDelay(cfg config.Backoff, attempt int) time.Duration {
	if attempt <= 1 || cfg.Initial <= 0 {
		return max(cfg.Initial, 0)
	}
	mult := cfg.Multiplier
	if mult < 1.0 {
		mult = 1.0
	}
	delay := float64(cfg.Initial) * math.Pow(mult, float64(attempt-1))
	if cfg.Max > 0 && delay > float64(cfg.Max) {
		delay = float64(cfg.Max)
	}
	return time.Duration(delay)
}

// Poller re-checks a condition with growing waits until it holds or ctx ends.
type Poller struct {
	Backoff config.Backoff
}

// Until calls check until it reports true. Errors from check are treated as
// "not yet" and the last one is returned if ctx ends first.
func (p Poller) Until(ctx context.Context, check func(context.Context) (bool, error)) error {
	var lastErr error
	for attempt := 1; ; attempt++ {
		ok, err := check(ctx)
		if err == nil && ok {
			return nil
		}
		if err != nil {
			lastErr = err
		}
		if err := bounded.Sleep(ctx, NextDelay(p.Backoff, attempt)); err != nil {
			if lastErr != nil {
				return errors.Join(err, lastErr)
			}
			return err
		}
	}
}
