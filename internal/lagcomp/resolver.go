// Package lagcomp resolves attack claims against historical world snapshots
// so a high-latency attacker is judged by what their screen actually showed,
// not by where the target has since moved.
package lagcomp

import (
	"math"
	"time"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/rs/zerolog"

	"hardmode/server/internal/entity"
	"hardmode/server/internal/history"
	"hardmode/server/internal/latency"
)

// Reject reasons surfaced for anti-cheat tuning.
const (
	RejectNoSnapshot      = "no_snapshot"
	RejectMissingAttacker = "missing_attacker"
	RejectMissingTarget   = "missing_target"
	RejectOutOfRange      = "out_of_range"
	RejectOutOfCone       = "out_of_cone"
)

// Geometry is an attack's reach and, for directional attacks, its cone.
// ConeDegrees of zero means the attack is omnidirectional within range.
type Geometry struct {
	Range       float64
	ConeDegrees float64
}

// Result reports a hit validation with the historical states it was judged
// against, so combat can compute outcomes from the same picture.
type Result struct {
	Valid         bool
	Reason        string
	CompensatedAt int64
	Attacker      entity.State
	Target        entity.State
}

// Resolver rewinds attack claims. It only ever reads the latency tracker
// and the snapshot ring.
type Resolver struct {
	history *history.Ring
	tracker *latency.Tracker
	maxComp time.Duration
	log     zerolog.Logger
}

// NewResolver builds a resolver with a hard ceiling on applied
// compensation; claims needing more lookback than maxComp fail closed.
func NewResolver(hist *history.Ring, tracker *latency.Tracker, maxComp time.Duration, log zerolog.Logger) *Resolver {
	if maxComp <= 0 {
		maxComp = 200 * time.Millisecond
	}
	return &Resolver{history: hist, tracker: tracker, maxComp: maxComp, log: log}
}

// ValidateHit re-runs the geometric hit check at the moment the attacker's
// screen showed the action: compensatedTime = clientTime − one-way latency,
// with the compensation capped. A missing snapshot or missing entity
// rejects the hit; the resolver never guesses.
func (r *Resolver) ValidateHit(attackerID, targetID string, geom Geometry, clientTime int64) Result {
	if r == nil {
		return Result{Reason: RejectNoSnapshot}
	}

	comp := r.tracker.OneWay(attackerID)
	if comp > r.maxComp {
		comp = r.maxComp
	}
	compensatedAt := clientTime - comp.Milliseconds()

	snap, ok := r.history.At(compensatedAt)
	if !ok {
		r.reject(attackerID, RejectNoSnapshot)
		return Result{Reason: RejectNoSnapshot, CompensatedAt: compensatedAt}
	}

	attacker, ok := snap.Lookup(attackerID)
	if !ok {
		r.reject(attackerID, RejectMissingAttacker)
		return Result{Reason: RejectMissingAttacker, CompensatedAt: compensatedAt}
	}
	target, ok := snap.Lookup(targetID)
	if !ok {
		r.reject(attackerID, RejectMissingTarget)
		return Result{Reason: RejectMissingTarget, CompensatedAt: compensatedAt}
	}

	attackVec := mgl64.Vec2{target.X - attacker.X, target.Y - attacker.Y}
	dist := attackVec.Len()
	if dist > geom.Range+target.Radius {
		r.reject(attackerID, RejectOutOfRange)
		return Result{Reason: RejectOutOfRange, CompensatedAt: compensatedAt, Attacker: attacker, Target: target}
	}

	if geom.ConeDegrees > 0 && dist > 1e-9 {
		fx, fy := entity.FacingVector(attacker.Facing)
		facingVec := mgl64.Vec2{fx, fy}
		cos := attackVec.Normalize().Dot(facingVec)
		angle := math.Acos(mgl64.Clamp(cos, -1, 1)) * 180 / math.Pi
		if angle > geom.ConeDegrees/2 {
			r.reject(attackerID, RejectOutOfCone)
			return Result{Reason: RejectOutOfCone, CompensatedAt: compensatedAt, Attacker: attacker, Target: target}
		}
	}

	return Result{Valid: true, CompensatedAt: compensatedAt, Attacker: attacker, Target: target}
}

func (r *Resolver) reject(attackerID, reason string) {
	r.log.Debug().Str("attacker", attackerID).Str("reason", reason).Msg("hit rejected")
}
