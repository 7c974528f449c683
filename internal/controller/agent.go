package controller

import (
	"context"

	"github.com/go-gl/mathgl/mgl64"

	"github.com/QwerMotion/the-Azathoth-project/internal/world"
)

// Agent is the remote body the controller steers. Every call is one blocking
// round trip; implementations must honour ctx.
type Agent interface {
	Position(ctx context.Context) (world.Position, error)
	BlockStatus(ctx context.Context, cell world.Cell) (world.BlockStatus, error)
	BreakBlock(ctx context.Context, cell world.Cell) error
	PlaceBlock(ctx context.Context, cell world.Cell, material world.BlockStatus) error
	SetVelocity(ctx context.Context, v mgl64.Vec3) error
	Look(ctx context.Context, yaw, pitch float64) error
}
