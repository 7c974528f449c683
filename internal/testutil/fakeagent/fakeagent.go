// Package fakeagent is an in-memory stand-in for the remote agent API.
//
// Motion is discrete: each SetVelocity call displaces the agent by the
// commanded vector once, so convergence loops finish in a predictable number
// of polls. Every call is logged for assertions on ordering.
package fakeagent

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"

	"github.com/go-gl/mathgl/mgl64"

	"github.com/QwerMotion/the-Azathoth-project/internal/world"
)

const (
	MethodPosition    = "Position"
	MethodBlockStatus = "BlockStatus"
	MethodBreakBlock  = "BreakBlock"
	MethodPlaceBlock  = "PlaceBlock"
	MethodSetVelocity = "SetVelocity"
	MethodLook        = "Look"
	MethodFindPath    = "FindPath"
	MethodNextBlocks  = "NextBlocks"
)

// Bedrock never breaks.
const Bedrock world.BlockStatus = "minecraft:bedrock"

var (
	ErrInjected = errors.New("fakeagent: injected failure")
	ErrNotFound = errors.New("fakeagent: no block found")
)

type Call struct {
	Method   string
	Cell     world.Cell
	Velocity mgl64.Vec3
	Yaw      float64
	Pitch    float64
	Material world.BlockStatus
	Goal     world.Cell
	Radius   int
}

// PathFunc answers FindPath. Returning an empty path means no route.
type PathFunc func(start, goal world.Cell, radius int) (world.Path, error)

type Agent struct {
	mu       sync.Mutex
	pos      world.Position
	blocks   map[world.Cell]world.BlockStatus
	groundY  *int
	groundAs world.BlockStatus
	frozen   bool
	failPos  int
	calls    []Call
	paths    PathFunc
}

// New places the agent at start in an empty (all air) world.
func New(start world.Position) *Agent {
	return &Agent{
		pos:    start,
		blocks: map[world.Cell]world.BlockStatus{},
	}
}

// At places the agent on the center of cell.
func At(cell world.Cell) *Agent {
	c := cell.Center()
	return New(world.Position{X: c.X(), Y: c.Y(), Z: c.Z()})
}

func (a *Agent) SetBlock(cell world.Cell, s world.BlockStatus) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.blocks[cell] = s
}

func (a *Agent) Block(cell world.Cell) world.BlockStatus {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.blockLocked(cell)
}

// SetGround fills every cell at or below y with material unless set
// explicitly.
func (a *Agent) SetGround(y int, material world.BlockStatus) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.groundY = &y
	a.groundAs = material
}

// Freeze makes velocity commands have no effect.
func (a *Agent) Freeze(frozen bool) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.frozen = frozen
}

func (a *Agent) Teleport(p world.Position) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.pos = p
}

// TeleportTo moves the agent onto the center of cell.
func (a *Agent) TeleportTo(cell world.Cell) {
	c := cell.Center()
	a.Teleport(world.Position{X: c.X(), Y: c.Y(), Z: c.Z()})
}

// FailPositions makes the next n position reads fail.
func (a *Agent) FailPositions(n int) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.failPos = n
}

func (a *Agent) SetPathFunc(f PathFunc) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.paths = f
}

func (a *Agent) Current() world.Position {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.pos
}

func (a *Agent) Calls() []Call {
	a.mu.Lock()
	defer a.mu.Unlock()
	return slices.Clone(a.calls)
}

func (a *Agent) Count(method string) int {
	a.mu.Lock()
	defer a.mu.Unlock()
	n := 0
	for _, c := range a.calls {
		if c.Method == method {
			n++
		}
	}
	return n
}

// First returns the index of the first call to method, or -1.
func (a *Agent) First(method string) int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return slices.IndexFunc(a.calls, func(c Call) bool { return c.Method == method })
}

func (a *Agent) ResetCalls() {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.calls = nil
}

func (a *Agent) Position(ctx context.Context) (world.Position, error) {
	if err := ctx.Err(); err != nil {
		return world.Position{}, err
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	a.calls = append(a.calls, Call{Method: MethodPosition})
	if a.failPos > 0 {
		a.failPos--
		return world.Position{}, ErrInjected
	}
	return a.pos, nil
}

func (a *Agent) BlockStatus(ctx context.Context, cell world.Cell) (world.BlockStatus, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	a.calls = append(a.calls, Call{Method: MethodBlockStatus, Cell: cell})
	return a.blockLocked(cell), nil
}

func (a *Agent) BreakBlock(ctx context.Context, cell world.Cell) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	a.calls = append(a.calls, Call{Method: MethodBreakBlock, Cell: cell})
	s := a.blockLocked(cell)
	if s.Same(Bedrock) || s.IsWater() {
		return nil
	}
	a.blocks[cell] = world.Air
	return nil
}

func (a *Agent) PlaceBlock(ctx context.Context, cell world.Cell, material world.BlockStatus) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	a.calls = append(a.calls, Call{Method: MethodPlaceBlock, Cell: cell, Material: material})
	if a.blockLocked(cell).IsAir() {
		a.blocks[cell] = material
	}
	return nil
}

func (a *Agent) SetVelocity(ctx context.Context, v mgl64.Vec3) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	a.calls = append(a.calls, Call{Method: MethodSetVelocity, Velocity: v})
	if !a.frozen {
		a.pos.X += v.X()
		a.pos.Y += v.Y()
		a.pos.Z += v.Z()
	}
	return nil
}

func (a *Agent) Look(ctx context.Context, yaw, pitch float64) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	a.calls = append(a.calls, Call{Method: MethodLook, Yaw: yaw, Pitch: pitch})
	a.pos.Yaw, a.pos.Pitch = yaw, pitch
	return nil
}

// FindPath answers with the configured PathFunc, or a straight neighbor
// chain when none is set.
func (a *Agent) FindPath(ctx context.Context, start, goal world.Cell, radius int) (world.Path, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	a.mu.Lock()
	a.calls = append(a.calls, Call{Method: MethodFindPath, Cell: start, Goal: goal, Radius: radius})
	f := a.paths
	a.mu.Unlock()
	if f == nil {
		return StraightPath(start, goal), nil
	}
	return f(start, goal, radius)
}

// NextBlocks lists cells holding material within radius of the agent,
// ordered by coordinates, at most n.
func (a *Agent) NextBlocks(ctx context.Context, material world.BlockStatus, radius, n int) ([]world.Cell, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	a.calls = append(a.calls, Call{Method: MethodNextBlocks, Material: material, Radius: radius})

	origin := a.pos.Cell()
	var out []world.Cell
	for cell, s := range a.blocks {
		if s.Same(material) && cell.DistanceSq(origin) <= radius*radius {
			out = append(out, cell)
		}
	}
	slices.SortFunc(out, compareCells)
	if n > 0 && len(out) > n {
		out = out[:n]
	}
	return out, nil
}

func (a *Agent) NextBlocksSorted(ctx context.Context, material world.BlockStatus, radius, n int, origin world.Cell) ([]world.Cell, error) {
	cells, err := a.NextBlocks(ctx, material, radius, n)
	if err != nil {
		return nil, err
	}
	world.SortByDistance(cells, origin)
	return cells, nil
}

func (a *Agent) NextBlock(ctx context.Context, material world.BlockStatus, radius int) (world.Cell, error) {
	origin := a.Current().Cell()
	cells, err := a.NextBlocksSorted(ctx, material, radius, 0, origin)
	if err != nil {
		return world.Cell{}, err
	}
	if len(cells) == 0 {
		return world.Cell{}, fmt.Errorf("%s within %d: %w", material, radius, ErrNotFound)
	}
	return cells[0], nil
}

func (a *Agent) blockLocked(cell world.Cell) world.BlockStatus {
	if s, ok := a.blocks[cell]; ok {
		return s
	}
	if a.groundY != nil && cell.Y <= *a.groundY {
		return a.groundAs
	}
	return world.Air
}

// StraightPath steps from start toward goal one cell at a time, moving on
// every axis that still differs. start is excluded, goal included.
func StraightPath(start, goal world.Cell) world.Path {
	var path world.Path
	cur := start
	for cur != goal {
		cur = world.Cell{
			X: cur.X + sign(goal.X-cur.X),
			Y: cur.Y + sign(goal.Y-cur.Y),
			Z: cur.Z + sign(goal.Z-cur.Z),
		}
		path = append(path, cur)
	}
	return path
}

func sign(v int) int {
	switch {
	case v > 0:
		return 1
	case v < 0:
		return -1
	}
	return 0
}

func compareCells(a, b world.Cell) int {
	if a.X != b.X {
		return a.X - b.X
	}
	if a.Y != b.Y {
		return a.Y - b.Y
	}
	return a.Z - b.Z
}
