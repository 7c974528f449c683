// Package bounded races a remote operation against a wall-clock deadline.
//
// The operation runs on its own goroutine with a context that is cancelled
// when the deadline passes. The caller never waits past the deadline. The
// remote side receives no cancellation of its own: an HTTP request aborted
// client-side may still have been applied by the server, so a timed-out
// result reports MayHaveApplied.
package bounded

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/QwerMotion/the-Azathoth-project/internal/logger"
	"github.com/QwerMotion/the-Azathoth-project/internal/metrics"
)

type Outcome int

const (
	Completed Outcome = iota
	Failed
	TimedOut
	Cancelled
)

func (o Outcome) String() string {
	switch o {
	case Completed:
		return "completed"
	case Failed:
		return "failed"
	case TimedOut:
		return "timed_out"
	case Cancelled:
		return "cancelled"
	default:
		return fmt.Sprintf("outcome(%d)", int(o))
	}
}

var ErrTimeout = errors.New("bounded: deadline exceeded")

type Result[T any] struct {
	Value   T
	Outcome Outcome
	Err     error
	Elapsed time.Duration
	// MayHaveApplied is set when the caller stopped waiting while the remote
	// side-effect could still land afterwards.
	MayHaveApplied bool
}

func (r Result[T]) OK() bool { return r.Outcome == Completed }

type reply[T any] struct {
	value T
	err   error
}

// Run executes op with a deadline of timeout. A completed op returns its
// value; an op still running at the deadline yields TimedOut and is left to
// unwind on its cancelled context.
func Run[T any](ctx context.Context, name string, timeout time.Duration, op func(context.Context) (T, error)) Result[T] {
	start := time.Now()
	opCtx, cancel := context.WithTimeout(ctx, timeout)

	done := make(chan reply[T], 1)
	go func() {
		v, err := op(opCtx)
		done <- reply[T]{value: v, err: err}
	}()

	var res Result[T]
	select {
	case r := <-done:
		// Read the deadline before cancel, which would mark opCtx done.
		deadlineHit := errors.Is(opCtx.Err(), context.DeadlineExceeded)
		cancel()
		res.Value, res.Err = r.value, r.err
		switch {
		case r.err == nil:
			res.Outcome = Completed
		case ctx.Err() != nil:
			res.Outcome = Cancelled
		case deadlineHit:
			res.Outcome = TimedOut
			res.MayHaveApplied = true
		default:
			res.Outcome = Failed
		}
	case <-opCtx.Done():
		cancel()
		if ctx.Err() != nil {
			res.Outcome = Cancelled
			res.Err = ctx.Err()
		} else {
			res.Outcome = TimedOut
			res.Err = fmt.Errorf("%s after %s: %w", name, timeout, ErrTimeout)
		}
		res.MayHaveApplied = true
	}
	res.Elapsed = time.Since(start)

	metrics.RecordBounded(name, res.Outcome.String())
	if res.Outcome == TimedOut {
		logger.Log.Warn().Str("op", name).Dur("timeout", timeout).Msg("bounded operation timed out")
	}
	return res
}

// Do is Run for operations without a value.
func Do(ctx context.Context, name string, timeout time.Duration, op func(context.Context) error) Result[struct{}] {
	return Run(ctx, name, timeout, func(ctx context.Context) (struct{}, error) {
		return struct{}{}, op(ctx)
	})
}

// Sleep waits for d or until ctx ends, whichever comes first.
func Sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
