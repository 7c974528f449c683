// Package supervisor runs agent missions one at a time.
package supervisor

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/QwerMotion/the-Azathoth-project/internal/executor"
	"github.com/QwerMotion/the-Azathoth-project/internal/logger"
	"github.com/QwerMotion/the-Azathoth-project/internal/metrics"
)

var (
	ErrQueueFull = errors.New("supervisor: mission queue is full")
	ErrClosed    = errors.New("supervisor: closed")
)

// Supervisor owns the agent: a single worker drains the mission queue, so
// at most one mission (and one Goto) is ever in flight.
type Supervisor struct {
	miner      *Miner
	queue      chan *Mission
	results    chan MissionResult
	retryDelay time.Duration

	curMu      sync.Mutex
	curMission *Mission
	curCancel  context.CancelFunc

	qMu     sync.Mutex
	started bool
	closed  bool
	done    chan struct{}
}

func New(miner *Miner) *Supervisor {
	return &Supervisor{
		miner:      miner,
		queue:      make(chan *Mission, 100),
		results:    make(chan MissionResult, 100),
		retryDelay: time.Second,
		done:       make(chan struct{}),
	}
}

// Start launches the worker. Missions still queued when ctx ends are
// dropped.
func (s *Supervisor) Start(ctx context.Context) {
	s.qMu.Lock()
	defer s.qMu.Unlock()
	if s.started || s.closed {
		return
	}
	s.started = true

	go func() {
		defer close(s.done)
		defer close(s.results)
		for {
			select {
			case <-ctx.Done():
				return
			case m, ok := <-s.queue:
				if !ok {
					return
				}
				logger.Log.Info().Str("mission", m.ID).Str("goal", m.Describe()).Msg("starting mission")
				s.results <- s.runMission(ctx, m)
			}
		}
	}()
}

// Close stops accepting missions and waits for the worker to finish the
// queue.
func (s *Supervisor) Close() {
	s.qMu.Lock()
	started := s.started
	if !s.closed {
		s.closed = true
		close(s.queue)
	}
	s.qMu.Unlock()
	if started {
		<-s.done
	}
}

func (s *Supervisor) Results() <-chan MissionResult { return s.results }

// Submit validates and queues m, returning its id.
func (s *Supervisor) Submit(m Mission) (string, error) {
	if err := m.Validate(); err != nil {
		return "", err
	}
	m.ID = uuid.New().String()[:8]
	m.State = StatusPending
	m.CurrentAttempt = 0
	if m.MaxRetries <= 0 {
		m.MaxRetries = 1
	}

	s.qMu.Lock()
	defer s.qMu.Unlock()
	if s.closed {
		return "", ErrClosed
	}
	select {
	case s.queue <- &m:
		return m.ID, nil
	default:
		return "", ErrQueueFull
	}
}

// Cancel stops the running mission. An empty id matches whatever runs.
func (s *Supervisor) Cancel(id string) (bool, error) {
	s.curMu.Lock()
	defer s.curMu.Unlock()

	if s.curMission == nil || s.curMission.State != StatusRunning {
		return false, fmt.Errorf("no mission is currently running")
	}
	if id != "" && !strings.EqualFold(s.curMission.ID, id) {
		return false, fmt.Errorf("mission %s is not running (current running: %s)", id, s.curMission.ID)
	}
	s.curCancel()
	return true, nil
}

func (s *Supervisor) CancelMostRecent() (string, error) {
	s.curMu.Lock()
	id := ""
	if s.curMission != nil {
		id = s.curMission.ID
	}
	s.curMu.Unlock()
	if _, err := s.Cancel(id); err != nil {
		return "", err
	}
	return id, nil
}

// Current returns a copy of the running mission.
func (s *Supervisor) Current() (Mission, bool) {
	s.curMu.Lock()
	defer s.curMu.Unlock()
	if s.curMission == nil {
		return Mission{}, false
	}
	return *s.curMission, true
}

func (s *Supervisor) runMission(parent context.Context, m *Mission) (result MissionResult) {
	mm := &metrics.MissionMetrics{MissionID: m.ID, Kind: string(m.Kind), Start: time.Now()}
	result = MissionResult{MissionID: m.ID, Name: m.Name, Kind: m.Kind, Goal: m.Describe(), Metrics: mm}

	missionCtx, cancel := context.WithCancel(parent)
	s.curMu.Lock()
	m.State = StatusRunning
	s.curMission = m
	s.curCancel = cancel
	s.curMu.Unlock()
	defer func() {
		cancel()
		s.curMu.Lock()
		if s.curMission != nil && s.curMission.ID == m.ID {
			s.curMission = nil
			s.curCancel = nil
		}
		s.curMu.Unlock()

		mm.End = time.Now()
		mm.Succeeded = m.State == StatusSucceeded
		mm.Finalize()
		metrics.RecordMission(string(m.Kind), mm.Succeeded)
		result.State = m.State
	}()

	var finalErr error
	for m.CurrentAttempt < m.MaxRetries {
		m.CurrentAttempt++

		summary, reports, tries, err := s.execute(missionCtx, m)
		for _, rep := range reports {
			mm.Gotos = append(mm.Gotos, rep.Metrics)
		}
		mm.Tries += tries
		result.Summary = summary
		finalErr = err

		if err == nil {
			logger.Log.Info().Str("mission", m.ID).Str("goal", m.Describe()).Msg("mission succeeded")
			s.setState(m, StatusSucceeded)
			break
		}
		if errors.Is(err, context.Canceled) {
			logger.Log.Info().Str("mission", m.ID).Msg("mission cancelled")
			s.setState(m, StatusCancelled)
			break
		}
		logger.Log.Warn().Err(err).Str("mission", m.ID).Int("attempt", m.CurrentAttempt).Int("max", m.MaxRetries).
			Msg("mission attempt failed")
		if m.CurrentAttempt >= m.MaxRetries {
			s.setState(m, StatusFailed)
			break
		}
		select {
		case <-missionCtx.Done():
			s.setState(m, StatusCancelled)
			finalErr = missionCtx.Err()
		case <-time.After(s.retryDelay):
			continue
		}
		break
	}

	if finalErr != nil {
		result.Error = finalErr.Error()
	}
	return result
}

func (s *Supervisor) setState(m *Mission, state string) {
	s.curMu.Lock()
	defer s.curMu.Unlock()
	m.State = state
}

// execute runs one attempt; a panic becomes a failed attempt.
func (s *Supervisor) execute(ctx context.Context, m *Mission) (summary string, reports []executor.Report, tries int, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			err = fmt.Errorf("panic in mission %s: %v", m.ID, rec)
			logger.Log.Error().Str("mission", m.ID).Interface("panic", rec).Msg("mission panicked")
		}
	}()

	switch m.Kind {
	case KindMine:
		res, err := s.miner.Mine(ctx, m.Material, m.Tries)
		if err != nil {
			return "", res.Reports, res.Tries, err
		}
		return fmt.Sprintf("reached %s at %s after %d tries", m.Material, res.Target, res.Tries), res.Reports, res.Tries, nil
	case KindGoto:
		rep, err := s.miner.GotoCell(ctx, m.Target, m.Radius)
		reports := []executor.Report{rep}
		if err != nil {
			return "", reports, 1, err
		}
		return fmt.Sprintf("arrived at %s in %d steps (%d replans)", m.Target, rep.Steps, rep.Replans), reports, 1, nil
	case KindWander:
		res, err := s.miner.Wander(ctx, m.Range, m.Tries)
		if err != nil {
			return "", res.Reports, res.Attempts, err
		}
		return fmt.Sprintf("wandered to %s", res.Target), res.Reports, res.Attempts, nil
	case KindRun:
		res, err := s.miner.Run(ctx, m.Material, m.Rounds, m.Tries)
		summary := fmt.Sprintf("%d rounds: %d mined, %d wanders", res.Rounds, res.Mined, res.Wandered)
		return summary, res.Reports, res.Rounds, err
	default:
		return "", nil, 0, fmt.Errorf("unknown mission kind %q", m.Kind)
	}
}
