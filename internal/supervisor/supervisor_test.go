package supervisor

import (
	"context"
	"errors"
	"math/rand/v2"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/QwerMotion/the-Azathoth-project/internal/config"
	"github.com/QwerMotion/the-Azathoth-project/internal/controller"
	"github.com/QwerMotion/the-Azathoth-project/internal/executor"
	"github.com/QwerMotion/the-Azathoth-project/internal/testutil/fakeagent"
	"github.com/QwerMotion/the-Azathoth-project/internal/world"
)

const ore world.BlockStatus = "minecraft:diamond_ore"

func testTuning() config.Tuning {
	t := config.DefaultTuning()
	t.PollInterval = time.Millisecond
	t.PathTimeout = 500 * time.Millisecond
	t.GlobalTimeoutFloor = 5 * time.Second
	t.GlobalTimeoutPerStep = time.Second
	return t
}

type teleportMover struct{ agent *fakeagent.Agent }

func (m teleportMover) MoveToBlockCenter(_ context.Context, target world.Cell) (controller.Outcome, error) {
	m.agent.TeleportTo(target)
	return controller.Outcome{Target: target, Reached: true}, nil
}

// navFunc adapts a function to Navigator.
type navFunc func(ctx context.Context, goal world.Cell, path world.Path) (executor.Report, error)

func (f navFunc) Goto(ctx context.Context, goal world.Cell, path world.Path) (executor.Report, error) {
	return f(ctx, goal, path)
}

func newMiner(agent *fakeagent.Agent, nav Navigator, tuning config.Tuning) *Miner {
	if nav == nil {
		nav = executor.New(teleportMover{agent: agent}, agent, agent, tuning)
	}
	return NewMiner(agent, agent, agent, nav, tuning, WithRand(rand.New(rand.NewPCG(1, 2))))
}

func TestIsMissionRisky(t *testing.T) {
	testCases := []struct {
		name        string
		mission     Mission
		expectRisky bool
	}{
		{name: "endless run", mission: Mission{Kind: KindRun, Material: ore}, expectRisky: true},
		{name: "bounded run", mission: Mission{Kind: KindRun, Material: ore, Rounds: 3}, expectRisky: false},
		{name: "mine", mission: Mission{Kind: KindMine, Material: ore}, expectRisky: false},
		{name: "goto", mission: Mission{Kind: KindGoto}, expectRisky: false},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			if got := IsMissionRisky(tc.mission); got != tc.expectRisky {
				t.Errorf("Expected risky=%v, but got risky=%v", tc.expectRisky, got)
			}
		})
	}
}

func TestMissionValidate(t *testing.T) {
	testCases := []struct {
		name    string
		mission Mission
		wantErr bool
	}{
		{name: "mine with material", mission: Mission{Kind: KindMine, Material: ore}},
		{name: "mine without material", mission: Mission{Kind: KindMine}, wantErr: true},
		{name: "run without material", mission: Mission{Kind: KindRun, Rounds: 2}, wantErr: true},
		{name: "goto", mission: Mission{Kind: KindGoto, Target: world.Cell{X: 1}}},
		{name: "unknown kind", mission: Mission{Kind: "dance"}, wantErr: true},
		{name: "negative tries", mission: Mission{Kind: KindWander, Tries: -1}, wantErr: true},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			err := tc.mission.Validate()
			if (err != nil) != tc.wantErr {
				t.Fatalf("Validate() = %v, wantErr %v", err, tc.wantErr)
			}
		})
	}
}

func TestMine_TerminatesWhenEveryPathIsEmpty(t *testing.T) {
	for _, maxTries := range []int{1, 3, 7} {
		agent := fakeagent.At(world.Cell{Y: 64})
		for x := 2; x < 12; x++ {
			agent.SetBlock(world.Cell{X: x, Y: 64}, ore)
		}
		agent.SetPathFunc(func(start, goal world.Cell, radius int) (world.Path, error) { return nil, nil })
		m := newMiner(agent, nil, testTuning())

		res, err := m.Mine(context.Background(), ore, maxTries)
		if !errors.Is(err, ErrExhausted) {
			t.Fatalf("maxTries=%d: err = %v, want ErrExhausted", maxTries, err)
		}
		if res.Tries != maxTries {
			t.Fatalf("maxTries=%d: tries = %d", maxTries, res.Tries)
		}
		if n := agent.Count(fakeagent.MethodFindPath); n > maxTries {
			t.Fatalf("maxTries=%d: %d path requests", maxTries, n)
		}
		if agent.Count(fakeagent.MethodSetVelocity) != 0 {
			t.Fatal("moved without a path")
		}
	}
}

func TestMine_ReachesNearestCandidate(t *testing.T) {
	agent := fakeagent.At(world.Cell{Y: 64})
	agent.SetBlock(world.Cell{X: 6, Y: 64}, ore)
	agent.SetBlock(world.Cell{X: -2, Y: 64, Z: 1}, ore)
	tuning := testTuning()
	m := newMiner(agent, nil, tuning)

	res, err := m.Mine(context.Background(), ore, 5)
	if err != nil {
		t.Fatalf("Mine: %v", err)
	}
	want := world.Cell{X: -2, Y: 64, Z: 1}
	if res.Target != want || res.Tries != 1 {
		t.Fatalf("result = %+v, want target %v after 1 try", res, want)
	}
	if got := agent.Current().Cell(); got != want {
		t.Fatalf("agent ended in %v", got)
	}
	call := agent.Calls()[agent.First(fakeagent.MethodFindPath)]
	if call.Radius != tuning.PathRadius {
		t.Fatalf("path radius = %d, want %d", call.Radius, tuning.PathRadius)
	}
}

func TestMine_SkipsUnreachableCandidate(t *testing.T) {
	agent := fakeagent.At(world.Cell{Y: 64})
	near := world.Cell{X: 2, Y: 64}
	far := world.Cell{X: 5, Y: 64}
	agent.SetBlock(near, ore)
	agent.SetBlock(far, ore)
	agent.SetPathFunc(func(start, goal world.Cell, radius int) (world.Path, error) {
		if goal == near {
			return nil, nil
		}
		return fakeagent.StraightPath(start, goal), nil
	})
	m := newMiner(agent, nil, testTuning())

	res, err := m.Mine(context.Background(), ore, 5)
	if err != nil {
		t.Fatalf("Mine: %v", err)
	}
	if res.Target != far || res.Tries != 2 {
		t.Fatalf("result = %+v", res)
	}
}

func TestMine_GotoFailuresConsumeTries(t *testing.T) {
	agent := fakeagent.At(world.Cell{Y: 64})
	agent.SetBlock(world.Cell{X: 3, Y: 64}, ore)
	var gotos int
	nav := navFunc(func(ctx context.Context, goal world.Cell, path world.Path) (executor.Report, error) {
		gotos++
		return executor.Report{Goal: goal}, executor.ErrTimeout
	})
	m := newMiner(agent, nav, testTuning())

	res, err := m.Mine(context.Background(), ore, 4)
	if !errors.Is(err, ErrExhausted) {
		t.Fatalf("err = %v, want ErrExhausted", err)
	}
	if gotos != 4 || len(res.Reports) != 4 {
		t.Fatalf("gotos = %d reports = %d, want 4", gotos, len(res.Reports))
	}
	if n := agent.Count(fakeagent.MethodNextBlocks); n != 4 {
		t.Fatalf("candidate lookups = %d, want a fresh one per failed goto", n)
	}
}

func TestMine_NoCandidates(t *testing.T) {
	agent := fakeagent.At(world.Cell{Y: 64})
	m := newMiner(agent, nil, testTuning())

	_, err := m.Mine(context.Background(), ore, 3)
	if !errors.Is(err, ErrExhausted) {
		t.Fatalf("err = %v, want ErrExhausted", err)
	}
	if n := agent.Count(fakeagent.MethodNextBlocks); n != 3 {
		t.Fatalf("lookups = %d, want 3", n)
	}
}

func TestWander(t *testing.T) {
	start := world.Cell{X: 10, Y: 70, Z: -4}
	agent := fakeagent.At(start)
	tuning := testTuning()
	m := newMiner(agent, nil, tuning)

	res, err := m.Wander(context.Background(), 5, 3)
	if err != nil {
		t.Fatalf("Wander: %v", err)
	}
	if res.Attempts < 1 || res.Attempts > 3 {
		t.Fatalf("attempts = %d", res.Attempts)
	}
	if res.Target.Y != start.Y || abs(res.Target.X-start.X) > 5 || abs(res.Target.Z-start.Z) > 5 {
		t.Fatalf("target %v outside ±5 of %v", res.Target, start)
	}
	if got := agent.Current().Cell(); got != res.Target {
		t.Fatalf("agent ended in %v, want %v", got, res.Target)
	}
	call := agent.Calls()[agent.First(fakeagent.MethodFindPath)]
	if call.Radius != 10 {
		t.Fatalf("path radius = %d, want 10", call.Radius)
	}
}

func TestWander_Exhausted(t *testing.T) {
	agent := fakeagent.At(world.Cell{Y: 64})
	agent.SetPathFunc(func(start, goal world.Cell, radius int) (world.Path, error) { return nil, nil })
	m := newMiner(agent, nil, testTuning())

	res, err := m.Wander(context.Background(), 3, 4)
	if !errors.Is(err, ErrExhausted) {
		t.Fatalf("err = %v, want ErrExhausted", err)
	}
	if res.Attempts != 4 || agent.Count(fakeagent.MethodFindPath) != 4 {
		t.Fatalf("attempts = %d, path requests = %d", res.Attempts, agent.Count(fakeagent.MethodFindPath))
	}
}

func TestRun_WandersAfterFailedRounds(t *testing.T) {
	agent := fakeagent.At(world.Cell{Y: 64})
	m := newMiner(agent, nil, testTuning())

	res, err := m.Run(context.Background(), ore, 3, 1)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if res.Rounds != 3 || res.Mined != 0 || res.Wandered != 3 {
		t.Fatalf("result = %+v", res)
	}
}

func TestRun_MinesEachRound(t *testing.T) {
	agent := fakeagent.At(world.Cell{Y: 64})
	agent.SetBlock(world.Cell{X: 2, Y: 64}, ore)
	agent.SetBlock(world.Cell{X: 4, Y: 64}, ore)
	nav := executor.New(clearingMover{agent: agent}, agent, agent, testTuning())
	m := newMiner(agent, nav, testTuning())

	res, err := m.Run(context.Background(), ore, 2, 1)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if res.Mined != 2 || res.Wandered != 0 {
		t.Fatalf("result = %+v", res)
	}
}

// clearingMover empties every cell it reaches, like the controller breaking
// the ore on arrival.
type clearingMover struct{ agent *fakeagent.Agent }

func (m clearingMover) MoveToBlockCenter(_ context.Context, target world.Cell) (controller.Outcome, error) {
	m.agent.SetBlock(target, world.Air)
	m.agent.TeleportTo(target)
	return controller.Outcome{Target: target, Reached: true, Cleared: 1}, nil
}

func TestGotoCell(t *testing.T) {
	agent := fakeagent.At(world.Cell{Y: 64})
	m := newMiner(agent, nil, testTuning())

	goal := world.Cell{X: 3, Y: 64, Z: 3}
	rep, err := m.GotoCell(context.Background(), goal, 0)
	if err != nil {
		t.Fatalf("GotoCell: %v", err)
	}
	if rep.Steps != 3 {
		t.Fatalf("steps = %d", rep.Steps)
	}

	agent.SetPathFunc(func(start, goal world.Cell, radius int) (world.Path, error) { return nil, nil })
	if _, err := m.GotoCell(context.Background(), world.Cell{Y: 64}, 0); !errors.Is(err, ErrUnreachable) {
		t.Fatalf("err = %v, want ErrUnreachable", err)
	}
}

func waitResult(t *testing.T, s *Supervisor) MissionResult {
	t.Helper()
	select {
	case r := <-s.Results():
		return r
	case <-time.After(5 * time.Second):
		t.Fatal("no mission result")
		return MissionResult{}
	}
}

func TestSupervisor_RunsMission(t *testing.T) {
	agent := fakeagent.At(world.Cell{Y: 64})
	s := New(newMiner(agent, nil, testTuning()))
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	s.Start(ctx)

	id, err := s.Submit(Mission{Kind: KindGoto, Target: world.Cell{X: 2, Y: 64}})
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}
	r := waitResult(t, s)
	if r.MissionID != id || r.State != StatusSucceeded || r.Error != "" {
		t.Fatalf("result = %+v", r)
	}
	if r.Metrics == nil || !r.Metrics.Succeeded || len(r.Metrics.Gotos) != 1 || r.Metrics.Steps() != 2 {
		t.Fatalf("metrics = %+v", r.Metrics)
	}
}

func TestSupervisor_RunsMissionsInOrder(t *testing.T) {
	agent := fakeagent.At(world.Cell{Y: 64})
	s := New(newMiner(agent, nil, testTuning()))
	s.Start(context.Background())

	first, _ := s.Submit(Mission{Kind: KindGoto, Target: world.Cell{X: 2, Y: 64}})
	second, _ := s.Submit(Mission{Kind: KindGoto, Target: world.Cell{X: 2, Y: 64, Z: 2}})
	s.Close()

	var got []string
	for r := range s.Results() {
		got = append(got, r.MissionID)
	}
	if len(got) != 2 || got[0] != first || got[1] != second {
		t.Fatalf("results = %v, want [%s %s]", got, first, second)
	}
	if _, err := s.Submit(Mission{Kind: KindWander}); !errors.Is(err, ErrClosed) {
		t.Fatalf("Submit after Close = %v, want ErrClosed", err)
	}
}

func TestSupervisor_Cancel(t *testing.T) {
	agent := fakeagent.At(world.Cell{Y: 64})
	started := make(chan struct{})
	var once sync.Once
	nav := navFunc(func(ctx context.Context, goal world.Cell, path world.Path) (executor.Report, error) {
		once.Do(func() { close(started) })
		<-ctx.Done()
		return executor.Report{Goal: goal}, ctx.Err()
	})
	s := New(newMiner(agent, nav, testTuning()))
	s.Start(context.Background())
	defer s.Close()

	if _, err := s.Cancel(""); err == nil {
		t.Fatal("Cancel with nothing running should fail")
	}
	id, err := s.Submit(Mission{Kind: KindGoto, Target: world.Cell{X: 3, Y: 64}})
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}
	<-started
	if cur, ok := s.Current(); !ok || cur.ID != id || cur.State != StatusRunning {
		t.Fatalf("Current = %+v, %v", cur, ok)
	}
	if _, err := s.Cancel("deadbeef"); err == nil {
		t.Fatal("Cancel of a different id should fail")
	}
	if ok, err := s.Cancel(strings.ToUpper(id)); !ok || err != nil {
		t.Fatalf("Cancel = %v, %v", ok, err)
	}
	r := waitResult(t, s)
	if r.State != StatusCancelled {
		t.Fatalf("result = %+v", r)
	}
}

func TestSupervisor_PanicBecomesFailure(t *testing.T) {
	agent := fakeagent.At(world.Cell{Y: 64})
	nav := navFunc(func(ctx context.Context, goal world.Cell, path world.Path) (executor.Report, error) {
		panic("wheel fell off")
	})
	s := New(newMiner(agent, nav, testTuning()))
	s.Start(context.Background())
	defer s.Close()

	if _, err := s.Submit(Mission{Kind: KindGoto, Target: world.Cell{X: 3, Y: 64}}); err != nil {
		t.Fatalf("Submit: %v", err)
	}
	r := waitResult(t, s)
	if r.State != StatusFailed || !strings.Contains(r.Error, "wheel fell off") {
		t.Fatalf("result = %+v", r)
	}
}

func TestSupervisor_RetriesFailedAttempts(t *testing.T) {
	agent := fakeagent.At(world.Cell{Y: 64})
	var calls int
	nav := navFunc(func(ctx context.Context, goal world.Cell, path world.Path) (executor.Report, error) {
		calls++
		if calls < 2 {
			return executor.Report{Goal: goal}, executor.ErrTimeout
		}
		return executor.Report{Goal: goal, Steps: len(path)}, nil
	})
	s := New(newMiner(agent, nav, testTuning()))
	s.retryDelay = time.Millisecond
	s.Start(context.Background())
	defer s.Close()

	if _, err := s.Submit(Mission{Kind: KindGoto, Target: world.Cell{X: 3, Y: 64}, MaxRetries: 3}); err != nil {
		t.Fatalf("Submit: %v", err)
	}
	r := waitResult(t, s)
	if r.State != StatusSucceeded || calls != 2 {
		t.Fatalf("result = %+v after %d gotos", r, calls)
	}
}

func TestSupervisor_RejectsInvalidMission(t *testing.T) {
	s := New(newMiner(fakeagent.At(world.Cell{}), nil, testTuning()))
	if _, err := s.Submit(Mission{Kind: KindMine}); err == nil {
		t.Fatal("accepted a mine mission without material")
	}
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
