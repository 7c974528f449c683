package supervisor

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"time"

	"github.com/QwerMotion/the-Azathoth-project/internal/bounded"
	"github.com/QwerMotion/the-Azathoth-project/internal/config"
	"github.com/QwerMotion/the-Azathoth-project/internal/executor"
	"github.com/QwerMotion/the-Azathoth-project/internal/logger"
	"github.com/QwerMotion/the-Azathoth-project/internal/world"
)

var (
	// ErrExhausted ends a mission that used up its tries.
	ErrExhausted = errors.New("supervisor: tries exhausted")
	// ErrUnreachable is returned when no path to a goto target exists.
	ErrUnreachable = errors.New("supervisor: target unreachable")
)

type Locator interface {
	NextBlocksSorted(ctx context.Context, material world.BlockStatus, radius, n int, origin world.Cell) ([]world.Cell, error)
}

type Navigator interface {
	Goto(ctx context.Context, goal world.Cell, path world.Path) (executor.Report, error)
}

type MineResult struct {
	Target world.Cell
	// Tries counts consumed attempts, the successful one included.
	Tries   int
	Reports []executor.Report
}

type WanderResult struct {
	Target   world.Cell
	Attempts int
	Reports  []executor.Report
}

type RunResult struct {
	Rounds   int
	Mined    int
	Wandered int
	Reports  []executor.Report
}

// Miner strings together target lookup, path requests and Goto runs.
type Miner struct {
	pos    executor.Positioner
	locate Locator
	paths  executor.Pathfinder
	nav    Navigator
	tuning config.Tuning
	rng    *rand.Rand
}

type MinerOption func(*Miner)

func WithRand(r *rand.Rand) MinerOption {
	return func(m *Miner) { m.rng = r }
}

func NewMiner(pos executor.Positioner, locate Locator, paths executor.Pathfinder, nav Navigator, tuning config.Tuning, opts ...MinerOption) *Miner {
	m := &Miner{pos: pos, locate: locate, paths: paths, nav: nav, tuning: tuning}
	for _, opt := range opts {
		opt(m)
	}
	if m.rng == nil {
		now := uint64(time.Now().UnixNano())
		m.rng = rand.New(rand.NewPCG(now, now>>17))
	}
	return m
}

func (m *Miner) Tuning() config.Tuning { return m.tuning }

// Mine walks into the nearest reachable block of material. Candidates are
// tried nearest first; every empty path, failed lookup and failed Goto
// consumes one try, so the loop ends after at most maxTries of them.
func (m *Miner) Mine(ctx context.Context, material world.BlockStatus, maxTries int) (MineResult, error) {
	if maxTries <= 0 {
		maxTries = m.tuning.MaxTries
	}
	var res MineResult
	var candidates []world.Cell
	idx, tries := 0, 0
	refetch := true

	for tries < maxTries {
		if err := ctx.Err(); err != nil {
			return res, err
		}
		pos, err := m.pos.Position(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return res, ctx.Err()
			}
			logger.Log.Warn().Err(err).Int("try", tries).Msg("mine: position read failed")
			tries++
			continue
		}
		cur := pos.Cell()

		if refetch {
			candidates, err = m.locate.NextBlocksSorted(ctx, material, m.tuning.SearchRadius, maxTries, cur)
			idx, refetch = 0, false
			if err != nil {
				if ctx.Err() != nil {
					return res, ctx.Err()
				}
				logger.Log.Warn().Err(err).Str("material", string(material)).Int("try", tries).Msg("mine: candidate lookup failed")
				tries++
				refetch = true
				continue
			}
		}
		if idx >= len(candidates) {
			logger.Log.Info().Str("material", string(material)).Int("candidates", len(candidates)).Int("try", tries).
				Msg("mine: no candidates left, searching again")
			tries++
			refetch = true
			continue
		}

		target := candidates[idx]
		path := m.requestPath(ctx, cur, target, m.tuning.PathRadius)
		if ctx.Err() != nil {
			return res, ctx.Err()
		}
		if len(path) == 0 {
			logger.Log.Info().Str("target", target.String()).Int("try", tries).Msg("mine: no path to candidate")
			idx++
			tries++
			continue
		}

		logger.Log.Info().Str("target", target.String()).Int("steps", len(path)).Msg("mine: path found")
		rep, err := m.nav.Goto(ctx, target, path)
		res.Reports = append(res.Reports, rep)
		tries++
		if err == nil {
			res.Target, res.Tries = target, tries
			logger.Log.Info().Str("target", target.String()).Int("tries", tries).Msg("mine: target reached")
			return res, nil
		}
		if ctx.Err() != nil {
			return res, ctx.Err()
		}
		logger.Log.Warn().Err(err).Str("target", target.String()).Int("try", tries).Msg("mine: goto failed, searching again")
		refetch = true
	}

	res.Tries = tries
	return res, fmt.Errorf("mine %s after %d tries: %w", material, tries, ErrExhausted)
}

// Wander picks random cells on the agent's layer within ±rangeXZ until one
// has a path, then walks it once. Each pick is one attempt.
func (m *Miner) Wander(ctx context.Context, rangeXZ, maxAttempts int) (WanderResult, error) {
	if rangeXZ <= 0 {
		rangeXZ = m.tuning.WanderRange
	}
	if maxAttempts <= 0 {
		maxAttempts = m.tuning.MaxTries
	}
	var res WanderResult
	logger.Log.Info().Int("range", rangeXZ).Msg("wander started")

	for res.Attempts < maxAttempts {
		if err := ctx.Err(); err != nil {
			return res, err
		}
		res.Attempts++
		pos, err := m.pos.Position(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return res, ctx.Err()
			}
			logger.Log.Warn().Err(err).Msg("wander: position read failed")
			continue
		}
		cur := pos.Cell()
		target := world.Cell{
			X: cur.X + m.rng.IntN(2*rangeXZ+1) - rangeXZ,
			Y: cur.Y,
			Z: cur.Z + m.rng.IntN(2*rangeXZ+1) - rangeXZ,
		}

		path := m.requestPath(ctx, cur, target, rangeXZ*2)
		if ctx.Err() != nil {
			return res, ctx.Err()
		}
		if len(path) == 0 {
			logger.Log.Debug().Str("target", target.String()).Msg("wander: no path, picking another target")
			if err := bounded.Sleep(ctx, 4*m.tuning.PollInterval); err != nil {
				return res, err
			}
			continue
		}

		res.Target = target
		rep, err := m.nav.Goto(ctx, target, path)
		res.Reports = append(res.Reports, rep)
		if err != nil {
			return res, fmt.Errorf("wander to %s: %w", target, err)
		}
		logger.Log.Info().Str("target", target.String()).Msg("wander: arrived")
		return res, nil
	}
	return res, fmt.Errorf("wander: no reachable target in %d attempts: %w", maxAttempts, ErrExhausted)
}

// Run repeats mining; a failed round wanders off before the next one.
// rounds <= 0 runs until ctx ends.
func (m *Miner) Run(ctx context.Context, material world.BlockStatus, rounds, tries int) (RunResult, error) {
	var res RunResult
	for rounds <= 0 || res.Rounds < rounds {
		if err := ctx.Err(); err != nil {
			return res, err
		}
		res.Rounds++
		mined, err := m.Mine(ctx, material, tries)
		res.Reports = append(res.Reports, mined.Reports...)
		if err == nil {
			res.Mined++
			continue
		}
		if ctx.Err() != nil {
			return res, ctx.Err()
		}
		logger.Log.Info().Err(err).Int("round", res.Rounds).Msg("run: mining failed, wandering")
		wandered, err := m.Wander(ctx, m.tuning.WanderRange, 0)
		res.Reports = append(res.Reports, wandered.Reports...)
		if err == nil {
			res.Wandered++
			continue
		}
		if ctx.Err() != nil {
			return res, ctx.Err()
		}
		if err := bounded.Sleep(ctx, 4*m.tuning.PollInterval); err != nil {
			return res, err
		}
	}
	return res, nil
}

// GotoCell requests a path from the agent's cell to goal and walks it.
func (m *Miner) GotoCell(ctx context.Context, goal world.Cell, radius int) (executor.Report, error) {
	if radius <= 0 {
		radius = m.tuning.PathRadius
	}
	pos, err := m.pos.Position(ctx)
	if err != nil {
		return executor.Report{Goal: goal}, fmt.Errorf("goto %s: %w", goal, err)
	}
	cur := pos.Cell()
	if cur == goal {
		return executor.Report{Goal: goal}, nil
	}
	path := m.requestPath(ctx, cur, goal, radius)
	if ctx.Err() != nil {
		return executor.Report{Goal: goal}, ctx.Err()
	}
	if len(path) == 0 {
		return executor.Report{Goal: goal}, fmt.Errorf("goto %s from %s: %w", goal, cur, ErrUnreachable)
	}
	return m.nav.Goto(ctx, goal, path)
}

// requestPath is a bounded FindPath; any failure reads as no path.
func (m *Miner) requestPath(ctx context.Context, from, to world.Cell, radius int) world.Path {
	res := bounded.Run(ctx, "find_path", m.tuning.PathTimeout, func(ctx context.Context) (world.Path, error) {
		return m.paths.FindPath(ctx, from, to, radius)
	})
	if !res.OK() {
		logger.Log.Debug().Err(res.Err).Str("outcome", res.Outcome.String()).Str("target", to.String()).Msg("path request failed")
		return nil
	}
	return res.Value
}
