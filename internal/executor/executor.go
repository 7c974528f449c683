// Package executor follows a path of voxel cells waypoint by waypoint.
package executor

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/QwerMotion/the-Azathoth-project/internal/bounded"
	"github.com/QwerMotion/the-Azathoth-project/internal/config"
	"github.com/QwerMotion/the-Azathoth-project/internal/controller"
	"github.com/QwerMotion/the-Azathoth-project/internal/logger"
	"github.com/QwerMotion/the-Azathoth-project/internal/metrics"
	"github.com/QwerMotion/the-Azathoth-project/internal/trace"
	"github.com/QwerMotion/the-Azathoth-project/internal/world"
)

var ErrTimeout = errors.New("executor: goto timed out")

type Mover interface {
	MoveToBlockCenter(ctx context.Context, target world.Cell) (controller.Outcome, error)
}

type Positioner interface {
	Position(ctx context.Context) (world.Position, error)
}

type Pathfinder interface {
	FindPath(ctx context.Context, start, goal world.Cell, radius int) (world.Path, error)
}

// Report describes one Goto run.
type Report struct {
	Goal          world.Cell
	Steps         int
	Replans       int
	FailedReplans int
	Elapsed       time.Duration
	Outcomes      []controller.Outcome
	Metrics       metrics.GotoMetrics
}

type Executor struct {
	mover  Mover
	pos    Positioner
	paths  Pathfinder
	tuning config.Tuning
	rec    trace.Recorder
}

type Option func(*Executor)

// WithRecorder traces every replan request.
func WithRecorder(rec trace.Recorder) Option {
	return func(e *Executor) {
		if rec != nil {
			e.rec = rec
		}
	}
}

func New(mover Mover, pos Positioner, paths Pathfinder, tuning config.Tuning, opts ...Option) *Executor {
	e := &Executor{mover: mover, pos: pos, paths: paths, tuning: tuning, rec: trace.Nop}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Goto walks path toward goal. Every waypoint must be a neighbor of the
// agent's cell when it is taken; otherwise a replacement path is requested
// before anything moves. The whole walk is bounded by the global timeout
// for the steps still ahead.
func (e *Executor) Goto(ctx context.Context, goal world.Cell, path world.Path) (rep Report, err error) {
	start := time.Now()
	rep = Report{Goal: goal}
	rep.Metrics = metrics.GotoMetrics{Goal: goal.String(), Start: start}
	defer func() {
		rep.Elapsed = time.Since(start)
		rep.Metrics.End = time.Now()
		rep.Metrics.Replans = rep.Replans
		rep.Metrics.FailedReplans = rep.FailedReplans
		rep.Metrics.Succeeded = err == nil
		rep.Metrics.Finalize()
		metrics.RecordGoto(err == nil, rep.Replans)
	}()

	route := NewRoute(path)
	if route.Done() {
		return rep, nil
	}
	logger.Log.Info().Str("goal", goal.String()).Int("steps", route.Remaining()).Msg("goto started")

	for !route.Done() {
		if err := ctx.Err(); err != nil {
			return rep, err
		}
		budget := e.tuning.GlobalTimeout(route.Remaining())
		if elapsed := time.Since(start); elapsed > budget {
			logger.Log.Warn().Str("goal", goal.String()).Dur("elapsed", elapsed).Dur("budget", budget).
				Int("remaining", route.Remaining()).Msg("goto timed out")
			return rep, fmt.Errorf("goto %s: %d steps left after %s: %w", goal, route.Remaining(), elapsed.Round(time.Millisecond), ErrTimeout)
		}

		pos, err := e.pos.Position(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return rep, ctx.Err()
			}
			logger.Log.Debug().Err(err).Msg("goto: position read failed")
			if err := bounded.Sleep(ctx, e.tuning.PollInterval); err != nil {
				return rep, err
			}
			continue
		}
		cur := pos.Cell()
		head, _ := route.Head()

		if !world.IsNeighbor(cur, head) {
			if err := e.replan(ctx, &rep, route, pos, head); err != nil {
				return rep, err
			}
			continue
		}

		wm := metrics.WaypointMetrics{Cell: head.String(), Start: time.Now()}
		outcome, err := e.mover.MoveToBlockCenter(ctx, head)
		wm.End = time.Now()
		wm.Reached = outcome.Reached
		wm.Cleared = outcome.Cleared
		wm.Placed = outcome.Placed
		wm.VerticalTimedOut = outcome.VerticalTimedOut
		wm.HorizontalTimedOut = outcome.HorizontalTimedOut
		wm.Finalize()
		rep.Metrics.Waypoints = append(rep.Metrics.Waypoints, wm)
		rep.Outcomes = append(rep.Outcomes, outcome)
		if err != nil {
			return rep, err
		}

		route.Advance()
		rep.Steps++
	}

	logger.Log.Info().Str("goal", goal.String()).Int("steps", rep.Steps).Int("replans", rep.Replans).Msg("goto finished")
	return rep, nil
}

// replan asks for a new route from pos. A failed or empty answer keeps the
// current route and waits one poll interval; the global timeout ends a walk
// that never gets a usable path.
func (e *Executor) replan(ctx context.Context, rep *Report, route *Route, pos world.Position, head world.Cell) error {
	cur := pos.Cell()
	target := rep.Goal
	if e.tuning.ReplanTarget == config.ReplanToWaypoint {
		target = head
	}
	rep.Replans++
	logger.Log.Info().Str("cell", cur.String()).Str("head", head.String()).Str("target", target.String()).
		Msg("waypoint out of reach, requesting new path")

	res := bounded.Run(ctx, "find_path", e.tuning.PathTimeout, func(ctx context.Context) (world.Path, error) {
		return e.paths.FindPath(ctx, cur, target, e.tuning.ReplanRadius)
	})
	if ctx.Err() != nil {
		return ctx.Err()
	}
	sample := trace.Sample{
		Time:     time.Now(),
		Phase:    trace.PhaseReplan,
		Target:   target,
		Position: [3]float64{pos.X, pos.Y, pos.Z},
		Note:     res.Outcome.String(),
	}
	if res.OK() && len(res.Value) > 0 {
		route.Replace(res.Value)
		sample.Note = fmt.Sprintf("%s steps=%d", res.Outcome, route.Remaining())
		e.rec.Record(sample)
		logger.Log.Info().Int("steps", route.Remaining()).Msg("new path")
		return nil
	}
	e.rec.Record(sample)

	rep.FailedReplans++
	stale := route.Rest()
	ev := logger.Log.Warn().Str("outcome", res.Outcome.String()).Str("target", target.String()).
		Int("stale_steps", len(stale)).Str("stale_head", head.String()).Str("stale_last", stale[len(stale)-1].String())
	if res.Err != nil {
		ev = ev.Err(res.Err)
	}
	ev.Msg("replan gave no path, keeping stale route")
	return bounded.Sleep(ctx, e.tuning.PollInterval)
}
