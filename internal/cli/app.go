package cli

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/QwerMotion/the-Azathoth-project/internal/agentapi"
	"github.com/QwerMotion/the-Azathoth-project/internal/bounded"
	"github.com/QwerMotion/the-Azathoth-project/internal/config"
	"github.com/QwerMotion/the-Azathoth-project/internal/controller"
	"github.com/QwerMotion/the-Azathoth-project/internal/executor"
	"github.com/QwerMotion/the-Azathoth-project/internal/llm_client"
	"github.com/QwerMotion/the-Azathoth-project/internal/logger"
	"github.com/QwerMotion/the-Azathoth-project/internal/metrics"
	"github.com/QwerMotion/the-Azathoth-project/internal/supervisor"
	"github.com/QwerMotion/the-Azathoth-project/internal/trace"
	"github.com/QwerMotion/the-Azathoth-project/internal/world"
)

// agentAPI is everything the console needs from the remote agent.
type agentAPI interface {
	controller.Agent
	executor.Pathfinder
	supervisor.Locator
	NextBlock(ctx context.Context, material world.BlockStatus, radius int) (world.Cell, error)
}

type app struct {
	agent  agentAPI
	tuning config.Tuning
	sup    *supervisor.Supervisor
	llm    *llm_client.Client

	tracer     *trace.Writer
	metricsSrv *http.Server
}

// newApp wires the HTTP agent, the navigation stack and the supervisor from
// settings.
func newApp(ctx context.Context, s config.Settings) (*app, error) {
	tuning := config.DefaultTuning()
	if s.TuningPath != "" {
		t, err := config.LoadTuning(s.TuningPath)
		if err != nil {
			return nil, err
		}
		tuning = t
	}

	api, err := agentapi.New(agentapi.Config{BaseURL: s.BaseURL, HTTPTimeout: s.HTTPTimeout})
	if err != nil {
		return nil, err
	}

	var rec trace.Recorder
	var tracer *trace.Writer
	if s.TraceDir != "" {
		tracer = trace.NewWriter(s.TraceDir, "trace")
		rec = tracer
	}

	a := assemble(api, tuning, rec)
	a.tracer = tracer

	llm, err := llm_client.New(ctx, llm_client.ConfigFromSettings(s))
	switch {
	case err == nil:
		a.llm = llm
		logger.Log.Info().Str("backend", llm.Backend()).Str("model", llm.Model()).Msg("llm fallback enabled")
	case errors.Is(err, llm_client.ErrDisabled):
	default:
		logger.Log.Warn().Err(err).Msg("llm fallback disabled")
	}

	if s.MetricsAddr != "" {
		a.metricsSrv = serveMetrics(s.MetricsAddr)
	}

	logger.Log.Info().Str("base_url", api.BaseURL()).Dur("startup_delay", s.StartupDelay).Msg("agent client ready")
	if err := bounded.Sleep(ctx, s.StartupDelay); err != nil && s.StartupDelay > 0 {
		a.close()
		return nil, err
	}
	return a, nil
}

// assemble builds the stack on top of any agent implementation. rec may be
// nil.
func assemble(agent agentAPI, tuning config.Tuning, rec trace.Recorder) *app {
	ctrl := controller.New(agent, tuning, controller.WithRecorder(rec))
	exec := executor.New(ctrl, agent, agent, tuning, executor.WithRecorder(rec))
	miner := supervisor.NewMiner(agent, agent, agent, exec, tuning)
	return &app{
		agent:  agent,
		tuning: tuning,
		sup:    supervisor.New(miner),
	}
}

func serveMetrics(addr string) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", metrics.Handler())
	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Log.Error().Err(err).Str("addr", addr).Msg("metrics server stopped")
		}
	}()
	logger.Log.Info().Str("addr", addr).Msg("serving /metrics")
	return srv
}

func (a *app) close() {
	if a.metricsSrv != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		_ = a.metricsSrv.Shutdown(ctx)
		cancel()
	}
	if a.tracer != nil {
		if err := a.tracer.Close(); err != nil {
			logger.Log.Warn().Err(err).Msg("closing trace")
		}
	}
}

// flushTrace makes the samples of a finished mission readable on disk.
func (a *app) flushTrace() {
	if a.tracer == nil {
		return
	}
	if err := a.tracer.Flush(); err != nil {
		logger.Log.Warn().Err(err).Msg("flushing trace")
	}
}

// status reads the position and the block under the agent's feet.
func (a *app) status(ctx context.Context) (world.Position, world.BlockStatus, error) {
	pos, err := a.agent.Position(ctx)
	if err != nil {
		return world.Position{}, "", fmt.Errorf("read position: %w", err)
	}
	under, err := a.agent.BlockStatus(ctx, pos.Cell().Down(1))
	if err != nil {
		return pos, "", fmt.Errorf("read block underfoot: %w", err)
	}
	return pos, under, nil
}

// locate lists up to n blocks of material nearest to the agent.
func (a *app) locate(ctx context.Context, material world.BlockStatus, n, radius int) (world.Cell, []world.Cell, error) {
	if n <= 0 {
		n = 1
	}
	if radius <= 0 {
		radius = a.tuning.SearchRadius
	}
	pos, err := a.agent.Position(ctx)
	if err != nil {
		return world.Cell{}, nil, fmt.Errorf("read position: %w", err)
	}
	origin := pos.Cell()
	if n == 1 {
		c, err := a.agent.NextBlock(ctx, material, radius)
		if err != nil {
			return origin, nil, err
		}
		return origin, []world.Cell{c}, nil
	}
	cells, err := a.agent.NextBlocksSorted(ctx, material, radius, n, origin)
	return origin, cells, err
}
