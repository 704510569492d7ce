package sim

import (
	"hardmode/server/internal/entity"
)

// Ability names the server-controlled movement scripts.
const (
	AbilityRoll = "roll"
	AbilityDash = "dash"
)

type abilityRun struct {
	untilTick uint64
	stepX     float64
	stepY     float64
}

// AbilityManager owns player movement while a scripted ability runs.
// While active, the player's input queue is cleared and skipped; normal
// input processing resumes the tick after the ability ends.
type AbilityManager struct {
	cfg    Config
	active map[string]abilityRun
}

// NewAbilityManager returns an empty manager.
func NewAbilityManager(cfg Config) *AbilityManager {
	return &AbilityManager{cfg: cfg, active: make(map[string]abilityRun)}
}

// IsActive reports whether an ability currently owns the player's movement.
func (m *AbilityManager) IsActive(playerID string) bool {
	if m == nil {
		return false
	}
	_, ok := m.active[playerID]
	return ok
}

// Activate starts an ability for the player. Roll requires the level
// unlock; both scripts displace along the current facing for a fixed
// number of ticks.
func (m *AbilityManager) Activate(player *entity.Actor, ability string, tick uint64) bool {
	if m == nil || player == nil || player.Dead {
		return false
	}
	if _, running := m.active[player.ID]; running {
		return false
	}

	var durationTicks uint64
	var perTick float64
	switch ability {
	case AbilityRoll:
		if !player.Progression.RollUnlocked {
			return false
		}
		durationTicks = 6
		perTick = 18
	case AbilityDash:
		durationTicks = 4
		perTick = 26
	default:
		return false
	}

	fx, fy := entity.FacingVector(player.Facing)
	m.active[player.ID] = abilityRun{
		untilTick: tick + durationTicks,
		stepX:     fx * perTick,
		stepY:     fy * perTick,
	}
	player.AbilityUntilTick = tick + durationTicks
	return true
}

// Advance moves every active player one ability step and retires finished
// runs. The mask still applies: scripted movement does not pass through
// walls, it stops at them.
func (m *AbilityManager) Advance(players map[string]*entity.Actor, tick uint64, mask CollisionMask) {
	if m == nil {
		return
	}
	for id, run := range m.active {
		player, ok := players[id]
		if !ok || player.Dead || tick >= run.untilTick {
			delete(m.active, id)
			if ok {
				player.AbilityUntilTick = 0
			}
			continue
		}
		targetX := player.X + run.stepX
		targetY := player.Y + run.stepY
		if mask == nil || mask.CanMove(player.X, player.Y, targetX, targetY) {
			player.X = clamp(targetX, player.Radius, m.cfg.Width-player.Radius)
			player.Y = clamp(targetY, player.Radius, m.cfg.Height-player.Radius)
		}
	}
}

// Drop forgets a disconnecting player's run.
func (m *AbilityManager) Drop(playerID string) {
	if m != nil {
		delete(m.active, playerID)
	}
}
