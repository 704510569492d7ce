package client

import (
	"math"

	"github.com/rs/zerolog"

	"hardmode/server/internal/entity"
)

// snapEpsilon is the squared distance under which a correction is applied
// silently. Anything larger is logged; it means prediction diverged beyond
// float noise, usually a collision the client resolved differently.
const snapEpsilon = 1e-6

// Reconciler folds each authoritative broadcast back into the predicted
// position: acknowledge processed inputs, snap to the server's answer, then
// replay everything still in flight.
type Reconciler struct {
	sequencer *Sequencer
	predictor *Predictor
	log       zerolog.Logger
}

// NewReconciler wires reconciliation around a sequencer and predictor pair.
func NewReconciler(sequencer *Sequencer, predictor *Predictor, log zerolog.Logger) *Reconciler {
	return &Reconciler{sequencer: sequencer, predictor: predictor, log: log}
}

// Reconcile accepts the server's position for this client along with the
// acknowledgment cursor, and returns the corrected predicted position after
// replaying the unacknowledged inputs in sequence order.
func (r *Reconciler) Reconcile(predX, predY, authX, authY float64, facing entity.Facing, processedSeq uint64) (float64, float64, entity.Facing) {
	r.sequencer.Ack(processedSeq)

	dx, dy := predX-authX, predY-authY
	if dx*dx+dy*dy > snapEpsilon {
		r.log.Debug().
			Float64("error", math.Hypot(dx, dy)).
			Uint64("seq", processedSeq).
			Msg("prediction corrected")
	}

	x, y := authX, authY
	f := facing
	for _, in := range r.sequencer.Pending() {
		x, y, f = r.predictor.Apply(x, y, in)
	}
	return x, y, f
}
