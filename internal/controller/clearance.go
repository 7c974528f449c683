package controller

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/QwerMotion/the-Azathoth-project/internal/bounded"
	"github.com/QwerMotion/the-Azathoth-project/internal/config"
	"github.com/QwerMotion/the-Azathoth-project/internal/logger"
	"github.com/QwerMotion/the-Azathoth-project/internal/trace"
	"github.com/QwerMotion/the-Azathoth-project/internal/world"
)

// ErrLiquid is returned instead of breaking a liquid cell.
var ErrLiquid = errors.New("controller: cell holds liquid")

// Clearance breaks and places single blocks and waits until the world shows
// the change.
type Clearance struct {
	agent  Agent
	tuning config.Tuning
	poll   Poller
	rec    trace.Recorder
}

func NewClearance(agent Agent, tuning config.Tuning, rec trace.Recorder) *Clearance {
	if rec == nil {
		rec = trace.Nop
	}
	return &Clearance{
		agent:  agent,
		tuning: tuning,
		poll:   Poller{Backoff: tuning.StatusBackoff},
		rec:    rec,
	}
}

// DestroyBlock aims at cell and breaks it, returning once it reads as air.
// broke is false when the cell was already air. Liquid is never broken.
func (c *Clearance) DestroyBlock(ctx context.Context, cell world.Cell) (broke bool, err error) {
	pos, err := c.agent.Position(ctx)
	if err != nil {
		return false, fmt.Errorf("destroy %s: read position: %w", cell, err)
	}
	yaw, pitch := world.LookAt(pos.Eye(c.tuning.EyeHeight), cell.BlockCenter())
	if err := c.agent.Look(ctx, yaw, pitch); err != nil {
		logger.Log.Debug().Err(err).Str("cell", cell.String()).Msg("look before break failed")
	}

	status, err := c.agent.BlockStatus(ctx, cell)
	if err != nil {
		return false, fmt.Errorf("destroy %s: read status: %w", cell, err)
	}
	switch {
	case status.IsWater():
		return false, fmt.Errorf("destroy %s (%s): %w", cell, status, ErrLiquid)
	case status.IsAir():
		return false, nil
	}

	c.rec.Record(trace.Sample{
		Time:     time.Now(),
		Phase:    trace.PhaseClear,
		Target:   cell,
		Position: [3]float64{pos.X, pos.Y, pos.Z},
		Yaw:      &yaw,
		Note:     string(status),
	})
	if err := c.agent.BreakBlock(ctx, cell); err != nil {
		return false, fmt.Errorf("destroy %s: %w", cell, err)
	}
	err = c.poll.Until(ctx, func(ctx context.Context) (bool, error) {
		s, err := c.agent.BlockStatus(ctx, cell)
		return err == nil && s.IsAir(), err
	})
	return err == nil, err
}

// PlaceBlock puts material into cell and returns once the world reports it.
func (c *Clearance) PlaceBlock(ctx context.Context, cell world.Cell, material world.BlockStatus) error {
	c.rec.Record(trace.Sample{
		Time:   time.Now(),
		Phase:  trace.PhasePlace,
		Target: cell,
		Note:   string(material),
	})
	if err := c.agent.PlaceBlock(ctx, cell, material); err != nil {
		return fmt.Errorf("place %s at %s: %w", material, cell, err)
	}
	return c.poll.Until(ctx, func(ctx context.Context) (bool, error) {
		s, err := c.agent.BlockStatus(ctx, cell)
		return err == nil && s.Same(material), err
	})
}

// TimedDestroy is DestroyBlock bounded by the break timeout.
func (c *Clearance) TimedDestroy(ctx context.Context, cell world.Cell) bounded.Result[bool] {
	return bounded.Run(ctx, "break_block", c.tuning.BreakTimeout, func(ctx context.Context) (bool, error) {
		return c.DestroyBlock(ctx, cell)
	})
}

// TimedPlace is PlaceBlock bounded by the place timeout.
func (c *Clearance) TimedPlace(ctx context.Context, cell world.Cell, material world.BlockStatus) bounded.Result[struct{}] {
	return bounded.Do(ctx, "place_block", c.tuning.PlaceTimeout, func(ctx context.Context) error {
		return c.PlaceBlock(ctx, cell, material)
	})
}
