package sim

import (
	"fmt"
	"math"
	"time"

	"hardmode/server/internal/combat"
	"hardmode/server/internal/entity"
	"hardmode/server/internal/lagcomp"
	"hardmode/server/internal/protocol"
)

// Dispatch routes one drained command into the world. Unknown actors are
// dropped quietly; they raced a disconnect.
func (w *World) Dispatch(cmd Command, now time.Time) {
	switch {
	case cmd.Input != nil:
		w.QueueInput(cmd.ActorID, *cmd.Input, cmd.ReceivedAt)
	case cmd.Attack != nil:
		w.HandleAttack(cmd.ActorID, *cmd.Attack, now)
	case cmd.AttackMonster != nil:
		w.HandleAttackMonster(cmd.ActorID, *cmd.AttackMonster, now)
	case cmd.Ability != nil:
		w.HandleAbility(cmd.ActorID, *cmd.Ability)
	}
}

// HandleAttack resolves a directional attack claim against every other
// player, judged at the moment the attacker's screen showed it. Projectile
// attack types spawn a projectile instead of resolving instantly.
func (w *World) HandleAttack(playerID string, msg protocol.AttackMessage, now time.Time) {
	p, ok := w.players[playerID]
	if !ok || p.actor.Dead {
		return
	}
	spec, ok := w.cfg.Attacks[msg.Attack]
	if !ok {
		w.log.Warn().Str("player", playerID).Str("attack", msg.Attack).Msg("unknown attack type")
		return
	}
	if !w.attackReady(p) {
		return
	}

	if facing, valid := entity.ParseFacing(msg.Facing); valid {
		p.actor.Facing = facing
	}

	if spec.Projectile {
		w.spawnProjectile(p.actor, spec)
		return
	}

	geom := lagcomp.Geometry{Range: spec.Range, ConeDegrees: spec.ConeDegrees}
	preLevel := p.actor.Progression.Level
	for _, targetID := range w.sortedPlayerIDs() {
		if targetID == playerID {
			continue
		}
		target := w.players[targetID].actor
		if target.Dead {
			continue
		}
		if res := w.hits.ValidateHit(playerID, targetID, geom, msg.T); res.Valid {
			w.resolver.ApplyDamage(p.actor, target, spec.Damage, combat.DamageMelee, w.tick)
		}
	}
	w.noteLevelChange(p.actor, preLevel, now)
}

// HandleAttackMonster resolves a claimed hit on one monster through the
// rollback resolver. The damage number is the server's, never the client's.
func (w *World) HandleAttackMonster(playerID string, msg protocol.AttackMonsterMessage, now time.Time) {
	p, ok := w.players[playerID]
	if !ok || p.actor.Dead {
		return
	}
	spec, ok := w.cfg.Attacks[msg.Attack]
	if !ok || spec.Projectile {
		w.log.Warn().Str("player", playerID).Str("attack", msg.Attack).Msg("invalid monster attack type")
		return
	}
	monster, ok := w.monsters[msg.MonsterID]
	if !ok || monster.Dead {
		return
	}
	if !w.attackReady(p) {
		return
	}

	geom := lagcomp.Geometry{Range: spec.Range, ConeDegrees: spec.ConeDegrees}
	res := w.hits.ValidateHit(playerID, msg.MonsterID, geom, msg.T)
	if !res.Valid {
		w.log.Debug().Str("player", playerID).Str("monster", msg.MonsterID).
			Str("reason", res.Reason).Msg("monster hit rejected")
		return
	}

	preLevel := p.actor.Progression.Level
	w.resolver.ApplyDamage(p.actor, monster, spec.Damage, combat.DamageMelee, w.tick)
	w.noteLevelChange(p.actor, preLevel, now)
}

// HandleAbility hands the player's movement to a scripted ability.
func (w *World) HandleAbility(playerID string, msg protocol.AbilityMessage) {
	p, ok := w.players[playerID]
	if !ok {
		return
	}
	if !w.abilities.Activate(p.actor, msg.Ability, w.tick) {
		w.log.Debug().Str("player", playerID).Str("ability", msg.Ability).Msg("ability refused")
		return
	}
	// The ability owns movement from here; pending inputs are void.
	p.queue = p.queue[:0]
}

// attackReady enforces the per-player attack cooldown with the level-driven
// reduction applied.
func (w *World) attackReady(p *playerState) bool {
	if w.tick < p.attackReadyAt {
		return false
	}
	cooldown := w.cfg.AttackCooldownTicks
	reduced := float64(cooldown) * (1 - p.actor.Progression.AttackCooldownReduction)
	p.attackReadyAt = w.tick + uint64(math.Max(1, math.Round(reduced)))
	return true
}

func (w *World) spawnProjectile(owner *entity.Actor, spec AttackSpec) {
	fx, fy := entity.FacingVector(owner.Facing)
	perTick := spec.Speed * 60 / float64(w.cfg.TickRate)

	w.nextID++
	proj := &entity.Actor{
		ID:      fmt.Sprintf("projectile-%d", w.nextID),
		Kind:    entity.KindProjectile,
		OwnerID: owner.ID,
		X:       owner.X + fx*owner.Radius,
		Y:       owner.Y + fy*owner.Radius,
		Facing:  owner.Facing,
		Radius:  4,
		HP:      1,
		MaxHP:   1,
		VelX:    fx * perTick,
		VelY:    fy * perTick,
		TTL:     spec.TTLTicks,
		Damage:  spec.Damage,
	}
	w.projectiles[proj.ID] = proj
}
