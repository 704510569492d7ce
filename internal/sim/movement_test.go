package sim

import (
	"math"
	"testing"

	"hardmode/server/internal/entity"
)

func testParams(speed float64) MoveParams {
	return MoveParams{
		Speed:          speed,
		Radius:         16,
		Width:          2400,
		Height:         2400,
		BackwardFactor: 0.5,
		StrafeFactor:   0.75,
	}
}

func TestStepMatchesReferenceScenario(t *testing.T) {
	// Player at (100,100), class speed 5, keys ['d'], dt 0.1s, no
	// obstruction: x moves to 100 + 5*0.1*60 = 130, y unchanged.
	x, y, facing := Step(100, 100, MoveInput{Keys: []string{"d"}, Dt: 0.1}, testParams(5), nil)
	if math.Abs(x-130) > 1e-9 || y != 100 {
		t.Fatalf("expected (130,100), got (%f,%f)", x, y)
	}
	if facing != entity.FacingRight {
		t.Fatalf("expected facing right, got %q", facing)
	}
}

func TestStepDiagonalNormalized(t *testing.T) {
	x, y, _ := Step(100, 100, MoveInput{Keys: []string{"d", "s"}, Dt: 0.1}, testParams(5), nil)
	dist := math.Hypot(x-100, y-100)
	if math.Abs(dist-30) > 1e-9 {
		t.Fatalf("expected diagonal displacement 30, got %f", dist)
	}
	if math.Abs((x-100)-(y-100)) > 1e-9 {
		t.Fatalf("expected equal axis displacement, got dx=%f dy=%f", x-100, y-100)
	}
}

func TestStepFacingSpeedModifiers(t *testing.T) {
	cases := []struct {
		name   string
		facing entity.Facing
		keys   []string
		want   float64 // displacement for speed 5, dt 0.1
	}{
		{"with facing", entity.FacingRight, []string{"d"}, 30},
		{"backward", entity.FacingLeft, []string{"d"}, 15},
		{"strafe", entity.FacingUp, []string{"d"}, 22.5},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			x, y, _ := Step(100, 100, MoveInput{Keys: tc.keys, Facing: tc.facing, Dt: 0.1}, testParams(5), nil)
			dist := math.Hypot(x-100, y-100)
			if math.Abs(dist-tc.want) > 1e-9 {
				t.Fatalf("expected displacement %f, got %f", tc.want, dist)
			}
		})
	}
}

func TestStepIdleKeepsPosition(t *testing.T) {
	x, y, facing := Step(100, 100, MoveInput{Keys: nil, Facing: entity.FacingLeft, Dt: 0.1}, testParams(5), nil)
	if x != 100 || y != 100 {
		t.Fatalf("expected no movement, got (%f,%f)", x, y)
	}
	if facing != entity.FacingLeft {
		t.Fatalf("expected facing preserved, got %q", facing)
	}
}

type blockEastMask struct{}

// blockEastMask refuses any move that increases x.
func (blockEastMask) CanMove(x0, y0, x1, y1 float64) bool { return x1 <= x0 }

func TestStepDiagonalSlidesAlongClearAxis(t *testing.T) {
	mask := blockEastMask{}
	x, y, _ := Step(100, 100, MoveInput{Keys: []string{"d", "s"}, Dt: 0.1}, testParams(5), mask)
	if x != 100 {
		t.Fatalf("expected blocked x axis to hold, got %f", x)
	}
	if y <= 100 {
		t.Fatalf("expected slide along y, got %f", y)
	}
}

func TestStepStraightMoveBlocksWithoutSlide(t *testing.T) {
	mask := blockEastMask{}
	x, y, _ := Step(100, 100, MoveInput{Keys: []string{"d"}, Dt: 0.1}, testParams(5), mask)
	if x != 100 || y != 100 {
		t.Fatalf("expected straight blocked move to stay put, got (%f,%f)", x, y)
	}
}

func TestStepClampsToWorldBounds(t *testing.T) {
	params := testParams(5)
	x, _, _ := Step(20, 100, MoveInput{Keys: []string{"a"}, Facing: entity.FacingLeft, Dt: 0.1}, params, nil)
	if x != params.Radius {
		t.Fatalf("expected clamp at radius %f, got %f", params.Radius, x)
	}
}

func TestRectMask(t *testing.T) {
	mask := RectMask{Rects: []Rect{{X: 200, Y: 200, Width: 100, Height: 100}}, Half: 16}
	if mask.CanMove(100, 250, 210, 250) {
		t.Fatalf("expected move into obstacle to be blocked")
	}
	if !mask.CanMove(100, 250, 150, 250) {
		t.Fatalf("expected move outside obstacle to pass")
	}
	// Padding: stopping just inside the half-size margin still blocks.
	if mask.CanMove(100, 250, 190, 250) {
		t.Fatalf("expected padded boundary to block")
	}
}
