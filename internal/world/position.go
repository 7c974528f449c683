package world

import (
	"fmt"
	"math"

	"github.com/go-gl/mathgl/mgl64"
)

// EyeHeight is the offset from the agent's feet to its eyes.
const EyeHeight = 1.62

// Position is a snapshot of the agent as reported by the remote side. It is
// stale as soon as it is read; never keep one across control iterations.
type Position struct {
	X     float64 `json:"x"`
	Y     float64 `json:"y"`
	Z     float64 `json:"z"`
	Yaw   float64 `json:"look_x"`
	Pitch float64 `json:"look_y"`
}

func (p Position) Vec() mgl64.Vec3 { return mgl64.Vec3{p.X, p.Y, p.Z} }

func (p Position) Cell() Cell { return CellAt(p.Vec()) }

// Eye returns the eye point given an eye offset above the feet.
func (p Position) Eye(height float64) mgl64.Vec3 {
	return mgl64.Vec3{p.X, p.Y + height, p.Z}
}

func (p Position) String() string {
	return fmt.Sprintf("(%.3f, %.3f, %.3f yaw=%.1f pitch=%.1f)", p.X, p.Y, p.Z, p.Yaw, p.Pitch)
}

// HeadingYaw returns the yaw in degrees that faces along the planar vector
// (dx, dz). 0° looks down +Z, 90° looks down -X.
func HeadingYaw(dx, dz float64) float64 {
	return mgl64.RadToDeg(math.Atan2(-dx, dz))
}

// LookAt returns yaw and pitch in degrees to aim from one point at another.
// Positive pitch looks down.
func LookAt(from, to mgl64.Vec3) (yaw, pitch float64) {
	d := to.Sub(from)
	yaw = HeadingYaw(d[0], d[2])
	pitch = -mgl64.RadToDeg(math.Atan2(d[1], math.Hypot(d[0], d[2])))
	return yaw, pitch
}
