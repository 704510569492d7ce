package sim

import (
	"math"

	"hardmode/server/internal/entity"
)

// CollisionMask is the static world-geometry collaborator. It answers
// whether an actor may travel between two points; tile and obstacle layout
// live outside the sync core.
type CollisionMask interface {
	CanMove(x0, y0, x1, y1 float64) bool
}

// OpenMask accepts every move. Useful for tests and empty arenas.
type OpenMask struct{}

func (OpenMask) CanMove(x0, y0, x1, y1 float64) bool { return true }

const diagonalFactor = 0.7071067811865476

// MoveInput is one movement sample, shared verbatim between the server
// processor and the client predictor so replaying inputs is deterministic.
type MoveInput struct {
	Keys   []string
	Facing entity.Facing
	Dt     float64
}

// MoveParams bundles the tuning Step needs.
type MoveParams struct {
	Speed          float64 // units per frame at 60 FPS
	Radius         float64
	Width          float64
	Height         float64
	BackwardFactor float64
	StrafeFactor   float64
}

// intentVector turns held keys into a movement direction. Diagonals are
// normalized by a fixed factor so replay on both sides agrees bit for bit.
func intentVector(keys []string) (float64, float64) {
	var dx, dy float64
	for _, k := range keys {
		switch k {
		case "w", "up":
			dy = -1
		case "s", "down":
			dy = 1
		case "a", "left":
			dx = -1
		case "d", "right":
			dx = 1
		}
	}
	if dx != 0 && dy != 0 {
		dx *= diagonalFactor
		dy *= diagonalFactor
	}
	return dx, dy
}

// speedModifier applies the facing-vs-movement rule: full speed moving with
// facing, reduced moving backward, intermediate while strafing.
func speedModifier(facing entity.Facing, dx, dy float64, backward, strafe float64) float64 {
	if dx == 0 && dy == 0 {
		return 0
	}
	fx, fy := entity.FacingVector(facing)
	length := math.Hypot(dx, dy)
	dot := (fx*dx + fy*dy) / length
	switch {
	case dot > 0.5:
		return 1
	case dot < -0.5:
		return backward
	default:
		return strafe
	}
}

// Step advances one movement sample with collision constraints and world
// bounds. It returns the new position and facing. On a full block, axis
// separated sliding is attempted only for diagonal moves.
func Step(x, y float64, in MoveInput, params MoveParams, mask CollisionMask) (float64, float64, entity.Facing) {
	dx, dy := intentVector(in.Keys)

	facing := in.Facing
	if _, ok := entity.ParseFacing(string(facing)); !ok || facing == "" {
		facing = entity.DeriveFacing(dx, dy, entity.DefaultFacing)
	}
	if dx == 0 && dy == 0 {
		return x, y, facing
	}

	modifier := speedModifier(facing, dx, dy, params.BackwardFactor, params.StrafeFactor)
	displacement := params.Speed * in.Dt * 60 * modifier

	targetX := x + dx*displacement
	targetY := y + dy*displacement

	if mask == nil {
		mask = OpenMask{}
	}

	newX, newY := x, y
	switch {
	case mask.CanMove(x, y, targetX, targetY):
		newX, newY = targetX, targetY
	case dx != 0 && dy != 0:
		// Diagonal block: slide along whichever single axis stays clear.
		if mask.CanMove(x, y, targetX, y) {
			newX = targetX
		} else if mask.CanMove(x, y, x, targetY) {
			newY = targetY
		}
	}

	newX = clamp(newX, params.Radius, params.Width-params.Radius)
	newY = clamp(newY, params.Radius, params.Height-params.Radius)
	return newX, newY, facing
}

func clamp(v, lo, hi float64) float64 {
	if hi < lo {
		return lo
	}
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
