package controller

import (
	"context"
	"math"
	"time"

	"github.com/go-gl/mathgl/mgl64"

	"github.com/QwerMotion/the-Azathoth-project/internal/bounded"
	"github.com/QwerMotion/the-Azathoth-project/internal/logger"
	"github.com/QwerMotion/the-Azathoth-project/internal/metrics"
	"github.com/QwerMotion/the-Azathoth-project/internal/trace"
	"github.com/QwerMotion/the-Azathoth-project/internal/world"
)

// VerticalPhase moves the agent straight up or down until its feet are at
// ty. It reports whether the phase timeout cut it short. Nothing is sent
// when the agent is already level.
func (c *Controller) VerticalPhase(ctx context.Context, ty float64) (timedOut bool, err error) {
	deadline := time.Now().Add(c.tuning.PhaseTimeout)
	target := world.Cell{Y: int(math.Floor(ty))}
	commanded := false

	for {
		if !time.Now().Before(deadline) {
			logger.Log.Warn().Float64("ty", ty).Dur("timeout", c.tuning.PhaseTimeout).Msg("vertical phase timed out")
			metrics.RecordPhaseTimeout(trace.PhaseVertical)
			timedOut = true
			break
		}
		pos, err := c.agent.Position(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return false, ctx.Err()
			}
			logger.Log.Debug().Err(err).Msg("vertical phase: position read failed")
			if err := bounded.Sleep(ctx, c.tuning.PollInterval); err != nil {
				return false, err
			}
			continue
		}

		dy := ty - pos.Y
		if math.Abs(dy) <= c.tuning.VerticalTolerance {
			break
		}
		vy := math.Copysign(math.Min(math.Abs(dy), c.tuning.VerticalSpeedCap), dy)
		cmd := mgl64.Vec3{0, vy, 0}
		c.rec.Record(trace.Sample{
			Time:     time.Now(),
			Phase:    trace.PhaseVertical,
			Target:   target,
			Position: [3]float64{pos.X, pos.Y, pos.Z},
			Command:  &[3]float64{cmd[0], cmd[1], cmd[2]},
		})
		if err := c.agent.SetVelocity(ctx, cmd); err != nil {
			if ctx.Err() != nil {
				return false, ctx.Err()
			}
			logger.Log.Debug().Err(err).Msg("vertical phase: set velocity failed")
		}
		commanded = true
		if err := bounded.Sleep(ctx, c.tuning.PollInterval); err != nil {
			return false, err
		}
	}

	if commanded {
		if err := c.agent.SetVelocity(ctx, mgl64.Vec3{}); err != nil {
			logger.Log.Debug().Err(err).Msg("vertical phase: stop failed")
		}
	}
	return timedOut, nil
}

// HorizontalPhase walks the agent onto the center of target's column at its
// current height, facing the direction of travel. deadline is shared with
// the whole convergence attempt.
func (c *Controller) HorizontalPhase(ctx context.Context, target world.Cell, deadline time.Time) (timedOut bool, err error) {
	center := target.Center()
	tx, tz := center.X(), center.Z()

	for {
		if !time.Now().Before(deadline) {
			logger.Log.Warn().Str("target", target.String()).Msg("horizontal phase timed out")
			metrics.RecordPhaseTimeout(trace.PhaseHorizontal)
			return true, nil
		}
		pos, err := c.agent.Position(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return false, ctx.Err()
			}
			logger.Log.Debug().Err(err).Msg("horizontal phase: position read failed")
			if err := bounded.Sleep(ctx, c.tuning.PollInterval); err != nil {
				return false, err
			}
			continue
		}

		dx, dz := tx-pos.X, tz-pos.Z
		distH := math.Hypot(dx, dz)
		if distH <= c.tuning.HorizontalTolerance {
			return false, nil
		}

		yaw := world.HeadingYaw(dx, dz)
		if err := c.agent.Look(ctx, yaw, 0); err != nil && ctx.Err() == nil {
			logger.Log.Debug().Err(err).Msg("horizontal phase: look failed")
		}
		speed := math.Min(distH, c.tuning.HorizontalSpeedCap)
		cmd := mgl64.Vec3{dx / distH * speed, 0, dz / distH * speed}
		c.rec.Record(trace.Sample{
			Time:     time.Now(),
			Phase:    trace.PhaseHorizontal,
			Target:   target,
			Position: [3]float64{pos.X, pos.Y, pos.Z},
			Command:  &[3]float64{cmd[0], cmd[1], cmd[2]},
			Yaw:      &yaw,
		})
		if err := c.agent.SetVelocity(ctx, cmd); err != nil {
			if ctx.Err() != nil {
				return false, ctx.Err()
			}
			logger.Log.Debug().Err(err).Msg("horizontal phase: set velocity failed")
		}
		if err := bounded.Sleep(ctx, c.tuning.PollInterval); err != nil {
			return false, err
		}
	}
}
