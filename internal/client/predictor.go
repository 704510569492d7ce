package client

import (
	"hardmode/server/internal/entity"
	"hardmode/server/internal/sim"
)

// Predictor applies movement inputs locally with the same step function the
// server runs. Identical function, identical parameters, identical result;
// that identity is what makes silent reconciliation possible.
type Predictor struct {
	params sim.MoveParams
	mask   sim.CollisionMask
}

// NewPredictor builds a predictor against the class parameters and
// collision mask the server advertised at join time.
func NewPredictor(params sim.MoveParams, mask sim.CollisionMask) *Predictor {
	return &Predictor{params: params, mask: mask}
}

// SetSpeed updates the speed parameter when a level bonus lands.
func (p *Predictor) SetSpeed(speed float64) {
	p.params.Speed = speed
}

// Apply advances one input sample from the given position.
func (p *Predictor) Apply(x, y float64, in PendingInput) (float64, float64, entity.Facing) {
	move := sim.MoveInput{Keys: in.Keys, Facing: in.Facing, Dt: in.Dt}
	return sim.Step(x, y, move, p.params, p.mask)
}
