// Package anticheat gates both input frequency and realized movement against
// per-class limits. Both gates are lenient by default: lossy networks batch
// and reorder legitimate traffic, so single jitter events never strike.
package anticheat

import (
	"math"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// Violation types recorded against a player.
const (
	ViolationInputRate    = "input_rate"
	ViolationMovementRate = "movement_rate"
)

// Config tunes both gates and the strike escalation.
type Config struct {
	// MinInputInterval is the fastest cadence a client may sustain.
	MinInputInterval time.Duration
	// BurstTolerance is how many consecutive too-fast inputs are forgiven
	// before one violation is raised.
	BurstTolerance int
	// GracePeriod after connect or level change during which the input
	// gate is skipped entirely.
	GracePeriod time.Duration
	// MovementWindow is the sampling interval for the displacement check.
	MovementWindow time.Duration
	// SpeedBuffer widens the allowed displacement so collision nudges and
	// latency never strike an honest client.
	SpeedBuffer float64
	// AbilitySpeedBuffer replaces SpeedBuffer while a scripted ability
	// owns the player's movement; dashes legitimately exceed run speed.
	AbilitySpeedBuffer float64
	// MaxStrikes ends the session once crossed.
	MaxStrikes int
}

// DefaultConfig mirrors the tuning the live game shipped with.
func DefaultConfig() Config {
	return Config{
		MinInputInterval:   8 * time.Millisecond,
		BurstTolerance:     5,
		GracePeriod:        2 * time.Second,
		MovementWindow:     time.Second,
		SpeedBuffer:        1.5,
		AbilitySpeedBuffer: 3.0,
		MaxStrikes:         10,
	}
}

// Violation is one recorded strike with enough detail for tuning.
type Violation struct {
	Type   string
	Detail string
	At     time.Time
}

// InputResult reports the input gate's decision.
type InputResult struct {
	OK   bool
	Kick bool
}

// MovementResult reports the movement gate's decision. When OK is false the
// caller must revert the player to (RevertX, RevertY), the last position the
// gate accepted.
type MovementResult struct {
	OK      bool
	Kick    bool
	RevertX float64
	RevertY float64
}

type record struct {
	graceUntil  time.Time
	lastInputAt time.Time
	fastInputs  int

	sampleX  float64
	sampleY  float64
	sampleAt time.Time
	sampled  bool

	strikes    int
	violations []Violation
}

// Validator tracks per-player gate state and strikes. Intake goroutines call
// the input gate while the tick loop calls the movement gate, so state is
// locked internally.
type Validator struct {
	mu      sync.Mutex
	cfg     Config
	log     zerolog.Logger
	records map[string]*record
}

// NewValidator builds a validator with the provided tuning.
func NewValidator(cfg Config, log zerolog.Logger) *Validator {
	if cfg.BurstTolerance < 1 {
		cfg.BurstTolerance = 1
	}
	if cfg.SpeedBuffer <= 0 {
		cfg.SpeedBuffer = 1.5
	}
	if cfg.AbilitySpeedBuffer < cfg.SpeedBuffer {
		cfg.AbilitySpeedBuffer = cfg.SpeedBuffer
	}
	if cfg.MaxStrikes < 1 {
		cfg.MaxStrikes = 10
	}
	return &Validator{
		cfg:     cfg,
		log:     log,
		records: make(map[string]*record),
	}
}

// Register starts tracking a player and opens its grace window.
func (v *Validator) Register(playerID string, now time.Time) {
	if v == nil || playerID == "" {
		return
	}
	v.mu.Lock()
	defer v.mu.Unlock()
	v.records[playerID] = &record{graceUntil: now.Add(v.cfg.GracePeriod)}
}

// NoteLevelChange reopens the grace window; level transitions stall clients
// long enough to make the cadence check meaningless.
func (v *Validator) NoteLevelChange(playerID string, now time.Time) {
	if v == nil {
		return
	}
	v.mu.Lock()
	defer v.mu.Unlock()
	if rec, ok := v.records[playerID]; ok {
		rec.graceUntil = now.Add(v.cfg.GracePeriod)
		rec.fastInputs = 0
	}
}

// NoteTeleport resets the movement sample after a server-initiated
// teleport such as a respawn, so the jump never reads as a violation.
func (v *Validator) NoteTeleport(playerID string, x, y float64, now time.Time) {
	if v == nil {
		return
	}
	v.mu.Lock()
	defer v.mu.Unlock()
	if rec, ok := v.records[playerID]; ok {
		rec.sampleX, rec.sampleY, rec.sampleAt, rec.sampled = x, y, now, true
	}
}

// ValidateInput runs the input-rate gate for one inbound command.
// The gate fails safe toward rejection: a player the validator has never
// seen gets denied, not waved through.
func (v *Validator) ValidateInput(playerID string, now time.Time) InputResult {
	if v == nil {
		return InputResult{OK: false}
	}
	v.mu.Lock()
	defer v.mu.Unlock()

	rec, ok := v.records[playerID]
	if !ok {
		return InputResult{OK: false}
	}

	if now.Before(rec.graceUntil) {
		rec.lastInputAt = now
		rec.fastInputs = 0
		return InputResult{OK: true}
	}

	fast := !rec.lastInputAt.IsZero() && now.Sub(rec.lastInputAt) < v.cfg.MinInputInterval
	rec.lastInputAt = now

	if !fast {
		rec.fastInputs = 0
		return InputResult{OK: true}
	}

	rec.fastInputs++
	if rec.fastInputs < v.cfg.BurstTolerance {
		// Tolerated jitter; the input still counts.
		return InputResult{OK: true}
	}

	// One strike per sustained burst, not one per input.
	rec.fastInputs = 0
	kick := v.strikeLocked(playerID, rec, ViolationInputRate, "sustained input burst below minimum interval", now)
	return InputResult{OK: false, Kick: kick}
}

// ValidateMovement runs the displacement gate once per sampling window.
// speedCap is the class cap in units per frame; abilityActive widens the
// allowance since scripted abilities may dash or teleport. The gate fails
// safe toward acceptance: a missing record must not brick legitimate play.
func (v *Validator) ValidateMovement(playerID string, x, y, speedCap float64, abilityActive bool, now time.Time) MovementResult {
	if v == nil {
		return MovementResult{OK: true}
	}
	v.mu.Lock()
	defer v.mu.Unlock()

	rec, ok := v.records[playerID]
	if !ok {
		return MovementResult{OK: true}
	}

	if !rec.sampled {
		rec.sampleX, rec.sampleY, rec.sampleAt, rec.sampled = x, y, now, true
		return MovementResult{OK: true}
	}

	elapsed := now.Sub(rec.sampleAt)
	if elapsed < v.cfg.MovementWindow {
		return MovementResult{OK: true}
	}

	buffer := v.cfg.SpeedBuffer
	if abilityActive {
		buffer = v.cfg.AbilitySpeedBuffer
	}
	// speedCap is units per frame at the canonical 60 FPS step.
	allowed := speedCap * 60 * elapsed.Seconds() * buffer
	dist := math.Hypot(x-rec.sampleX, y-rec.sampleY)

	if dist <= allowed || speedCap <= 0 {
		rec.sampleX, rec.sampleY, rec.sampleAt = x, y, now
		return MovementResult{OK: true}
	}

	revertX, revertY := rec.sampleX, rec.sampleY
	rec.sampleAt = now
	kick := v.strikeLocked(playerID, rec, ViolationMovementRate, "displacement exceeded class speed allowance", now)
	return MovementResult{OK: false, Kick: kick, RevertX: revertX, RevertY: revertY}
}

func (v *Validator) strikeLocked(playerID string, rec *record, vtype, detail string, now time.Time) bool {
	rec.strikes++
	rec.violations = append(rec.violations, Violation{Type: vtype, Detail: detail, At: now})
	v.log.Warn().
		Str("player", playerID).
		Str("violation", vtype).
		Int("strikes", rec.strikes).
		Msg("anticheat violation")
	return rec.strikes >= v.cfg.MaxStrikes
}

// Strikes reports a player's accumulated strike count.
func (v *Validator) Strikes(playerID string) int {
	if v == nil {
		return 0
	}
	v.mu.Lock()
	defer v.mu.Unlock()
	if rec, ok := v.records[playerID]; ok {
		return rec.strikes
	}
	return 0
}

// Violations returns a copy of a player's violation log.
func (v *Validator) Violations(playerID string) []Violation {
	if v == nil {
		return nil
	}
	v.mu.Lock()
	defer v.mu.Unlock()
	rec, ok := v.records[playerID]
	if !ok || len(rec.violations) == 0 {
		return nil
	}
	out := make([]Violation, len(rec.violations))
	copy(out, rec.violations)
	return out
}

// Remove drops a player's record on disconnect. Strikes reset only this way.
func (v *Validator) Remove(playerID string) {
	if v == nil {
		return
	}
	v.mu.Lock()
	defer v.mu.Unlock()
	delete(v.records, playerID)
}
