// Package controller converges the agent onto the center of a voxel cell.
//
// A convergence attempt clears the target column, makes sure there is a
// floor, then runs a vertical and a horizontal phase. Each phase is a poll
// loop: read the position, command a velocity toward the target, sleep.
// Phases give up on their own deadlines; the attempt as a whole is
// best-effort and only reports what it achieved.
package controller

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/go-gl/mathgl/mgl64"
	"golang.org/x/sync/errgroup"

	"github.com/QwerMotion/the-Azathoth-project/internal/bounded"
	"github.com/QwerMotion/the-Azathoth-project/internal/config"
	"github.com/QwerMotion/the-Azathoth-project/internal/logger"
	"github.com/QwerMotion/the-Azathoth-project/internal/trace"
	"github.com/QwerMotion/the-Azathoth-project/internal/world"
)

// Outcome summarises one MoveToBlockCenter call.
type Outcome struct {
	Target             world.Cell
	Reached            bool
	VerticalTimedOut   bool
	HorizontalTimedOut bool
	Cleared            int
	Placed             int
	Failures           []string
	Start              time.Time
	Elapsed            time.Duration
}

type Controller struct {
	agent  Agent
	clear  *Clearance
	tuning config.Tuning
	rec    trace.Recorder
}

type Option func(*Controller)

func WithRecorder(rec trace.Recorder) Option {
	return func(c *Controller) {
		if rec != nil {
			c.rec = rec
		}
	}
}

func New(agent Agent, tuning config.Tuning, opts ...Option) *Controller {
	c := &Controller{agent: agent, tuning: tuning, rec: trace.Nop}
	for _, opt := range opts {
		opt(c)
	}
	c.clear = NewClearance(agent, tuning, c.rec)
	return c
}

func (c *Controller) Clearance() *Clearance { return c.clear }

func (c *Controller) Tuning() config.Tuning { return c.tuning }

// MoveToBlockCenter drives the agent onto target. The returned error is
// non-nil only when ctx ends; a failed convergence is reported in Outcome.
func (c *Controller) MoveToBlockCenter(ctx context.Context, target world.Cell) (out Outcome, err error) {
	out = Outcome{Target: target, Start: time.Now()}
	overallDeadline := out.Start.Add(c.tuning.ConvergenceTimeout)
	defer func() { out.Elapsed = time.Since(out.Start) }()

	start, err := c.readPosition(ctx, overallDeadline)
	if err != nil {
		if ctx.Err() != nil {
			return out, ctx.Err()
		}
		out.Failures = append(out.Failures, err.Error())
		return out, nil
	}
	pureAscent := target == start.Cell().Up(1)

	column, err := c.survey(ctx, target)
	if err != nil {
		return out, err
	}

	obstacles := []world.Cell{target.Up(1)}
	if c.tuning.ClearHeadroom2 {
		obstacles = append(obstacles, target.Up(2))
	}
	obstacles = append(obstacles, target)
	for _, cell := range obstacles {
		if column[cell].IsAir() {
			continue
		}
		res := c.clear.TimedDestroy(ctx, cell)
		if ctx.Err() != nil {
			return out, ctx.Err()
		}
		if res.OK() {
			if res.Value {
				out.Cleared++
			}
			continue
		}
		out.Failures = append(out.Failures, fmt.Sprintf("break %s: %s", cell, describe(res)))
		if errors.Is(res.Err, ErrLiquid) {
			logger.Log.Info().Str("cell", cell.String()).Msg("left liquid in place")
		}
	}

	ascended := false
	below := target.Down(1)
	if column[below].IsAir() {
		if pureAscent && c.tuning.PureAscentShortcut {
			timedOut, err := c.VerticalPhase(ctx, float64(target.Y))
			if err != nil {
				return c.stop(ctx, out, err)
			}
			out.VerticalTimedOut = out.VerticalTimedOut || timedOut
			ascended = true
		}
		res := c.clear.TimedPlace(ctx, below, world.BlockStatus(c.tuning.FloorMaterial))
		if ctx.Err() != nil {
			return c.stop(ctx, out, ctx.Err())
		}
		if res.OK() {
			out.Placed++
		} else {
			out.Failures = append(out.Failures, fmt.Sprintf("place %s: %s", below, describe(res)))
		}
	}

	dy0 := float64(target.Y) - start.Y
	var vTimedOut, hTimedOut bool
	if dy0 < -c.tuning.VerticalTolerance {
		if hTimedOut, err = c.HorizontalPhase(ctx, target, overallDeadline); err != nil {
			return c.stop(ctx, out, err)
		}
		if vTimedOut, err = c.VerticalPhase(ctx, float64(target.Y)); err != nil {
			return c.stop(ctx, out, err)
		}
	} else {
		if !ascended {
			if vTimedOut, err = c.VerticalPhase(ctx, float64(target.Y)); err != nil {
				return c.stop(ctx, out, err)
			}
		}
		if hTimedOut, err = c.HorizontalPhase(ctx, target, overallDeadline); err != nil {
			return c.stop(ctx, out, err)
		}
	}
	out.VerticalTimedOut = out.VerticalTimedOut || vTimedOut
	out.HorizontalTimedOut = hTimedOut
	out.Reached = !out.VerticalTimedOut && !out.HorizontalTimedOut

	if err := c.agent.SetVelocity(ctx, mgl64.Vec3{}); err != nil {
		logger.Log.Warn().Err(err).Str("target", target.String()).Msg("final stop failed")
	}
	return out, nil
}

// stop zeroes the velocity even though ctx has ended, so a cancelled
// attempt does not leave the agent drifting.
func (c *Controller) stop(ctx context.Context, out Outcome, cause error) (Outcome, error) {
	stopCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), c.tuning.PlaceTimeout)
	defer cancel()
	if err := c.agent.SetVelocity(stopCtx, mgl64.Vec3{}); err != nil {
		logger.Log.Warn().Err(err).Msg("stop after cancellation failed")
	}
	return out, cause
}

// survey reads the column around target concurrently. Cells that fail to
// read are left unknown.
func (c *Controller) survey(ctx context.Context, target world.Cell) (map[world.Cell]world.BlockStatus, error) {
	cells := []world.Cell{target.Up(2), target.Up(1), target, target.Down(1)}
	statuses := make([]world.BlockStatus, len(cells))

	g, gctx := errgroup.WithContext(ctx)
	for i, cell := range cells {
		g.Go(func() error {
			s, err := c.agent.BlockStatus(gctx, cell)
			if err != nil {
				if ctx.Err() != nil {
					return ctx.Err()
				}
				logger.Log.Debug().Err(err).Str("cell", cell.String()).Msg("column survey read failed")
				return nil
			}
			statuses[i] = s
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	column := make(map[world.Cell]world.BlockStatus, len(cells))
	for i, cell := range cells {
		column[cell] = statuses[i]
	}
	return column, nil
}

// readPosition retries transient read failures until deadline.
func (c *Controller) readPosition(ctx context.Context, deadline time.Time) (world.Position, error) {
	for {
		pos, err := c.agent.Position(ctx)
		if err == nil {
			return pos, nil
		}
		if ctx.Err() != nil {
			return world.Position{}, ctx.Err()
		}
		logger.Log.Debug().Err(err).Msg("position read failed")
		if !time.Now().Before(deadline) {
			return world.Position{}, fmt.Errorf("no position before deadline: %w", err)
		}
		if err := bounded.Sleep(ctx, c.tuning.PollInterval); err != nil {
			return world.Position{}, err
		}
	}
}

func describe[T any](res bounded.Result[T]) string {
	if res.Err != nil {
		return fmt.Sprintf("%s: %v", res.Outcome, res.Err)
	}
	return res.Outcome.String()
}
