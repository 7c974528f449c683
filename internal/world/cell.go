package world

import (
	"fmt"
	"math"
	"slices"

	"github.com/go-gl/mathgl/mgl64"
)

// Cell is one block of the voxel lattice.
type Cell struct {
	X int `json:"x"`
	Y int `json:"y"`
	Z int `json:"z"`
}

// Path is an ordered list of cells, front first.
type Path []Cell

func (c Cell) String() string {
	return fmt.Sprintf("[%d, %d, %d]", c.X, c.Y, c.Z)
}

func (c Cell) Up(n int) Cell   { return Cell{X: c.X, Y: c.Y + n, Z: c.Z} }
func (c Cell) Down(n int) Cell { return Cell{X: c.X, Y: c.Y - n, Z: c.Z} }

// Center is the standing point on the cell: middle of the floor face.
func (c Cell) Center() mgl64.Vec3 {
	return mgl64.Vec3{float64(c.X) + 0.5, float64(c.Y), float64(c.Z) + 0.5}
}

// BlockCenter is the volumetric middle of the block, used for aiming.
func (c Cell) BlockCenter() mgl64.Vec3 {
	return mgl64.Vec3{float64(c.X) + 0.5, float64(c.Y) + 0.5, float64(c.Z) + 0.5}
}

func (c Cell) DistanceSq(o Cell) int {
	dx, dy, dz := c.X-o.X, c.Y-o.Y, c.Z-o.Z
	return dx*dx + dy*dy + dz*dz
}

// IsNeighbor reports whether b lies within Chebyshev distance 1 of a.
// A cell is its own neighbor.
func IsNeighbor(a, b Cell) bool {
	return max(abs(a.X-b.X), abs(a.Y-b.Y), abs(a.Z-b.Z)) <= 1
}

// SortByDistance orders cells by squared distance from origin. Ties keep
// their input order.
func SortByDistance(cells []Cell, origin Cell) {
	slices.SortStableFunc(cells, func(a, b Cell) int {
		return a.DistanceSq(origin) - b.DistanceSq(origin)
	})
}

// cellEpsilon absorbs float noise left by the remote physics, e.g. 64.99999999
// when standing on y=65.
const cellEpsilon = 1e-9

func CellAt(v mgl64.Vec3) Cell {
	return Cell{
		X: int(math.Floor(v[0] + cellEpsilon)),
		Y: int(math.Floor(v[1] + cellEpsilon)),
		Z: int(math.Floor(v[2] + cellEpsilon)),
	}
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
