package sim

import (
	"sort"
	"time"

	"hardmode/server/internal/entity"
	"hardmode/server/internal/protocol"
)

type queuedInput struct {
	msg        protocol.InputMessage
	receivedAt time.Time
}

// QueueInput stages one movement command for the player. It returns false
// with no side effect when anti-cheat flags the command, the sequence is
// stale, or the player is unknown. The queue is bounded; past the limit the
// oldest entry is dropped to keep the newest intent.
func (w *World) QueueInput(playerID string, msg protocol.InputMessage, receivedAt time.Time) bool {
	p, ok := w.players[playerID]
	if !ok {
		return false
	}

	gate := w.validator.ValidateInput(playerID, receivedAt)
	if gate.Kick {
		w.kicks = append(w.kicks, KickRequest{PlayerID: playerID, Reason: "input rate violations"})
	}
	if !gate.OK {
		return false
	}

	if msg.Seq <= p.lastProcessedSeq {
		// Duplicate or reordered behind the processed cursor; already final.
		return false
	}

	if len(p.queue) >= w.cfg.InputQueueLimit {
		copy(p.queue, p.queue[1:])
		p.queue = p.queue[:len(p.queue)-1]
	}
	p.queue = append(p.queue, queuedInput{msg: msg, receivedAt: receivedAt})
	return true
}

// processInputs drains each player's queue in sequence order, at most the
// configured batch per tick. Remaining inputs carry over; that is the
// backpressure that keeps a flooding client from stretching the tick.
func (w *World) processInputs(dt float64, now time.Time) {
	for _, id := range w.sortedPlayerIDs() {
		p := w.players[id]

		if p.actor.Dead {
			p.queue = p.queue[:0]
			continue
		}
		if w.abilities.IsActive(id) {
			// The ability owns movement for its duration.
			p.queue = p.queue[:0]
			continue
		}
		if len(p.queue) == 0 {
			continue
		}

		// The network may reorder; the simulation never does.
		sort.Slice(p.queue, func(i, j int) bool {
			return p.queue[i].msg.Seq < p.queue[j].msg.Seq
		})

		batch := w.cfg.InputBatchPerTick
		if batch > len(p.queue) {
			batch = len(p.queue)
		}

		stats := w.cfg.ClassFor(p.actor.Class)
		params := MoveParams{
			Speed:          stats.MoveSpeed + p.actor.Progression.MoveSpeedBonus,
			Radius:         p.actor.Radius,
			Width:          w.cfg.Width,
			Height:         w.cfg.Height,
			BackwardFactor: w.cfg.BackwardFactor,
			StrafeFactor:   w.cfg.StrafeFactor,
		}

		for i := 0; i < batch; i++ {
			in := p.queue[i].msg
			if in.Seq <= p.lastProcessedSeq {
				continue
			}
			move := MoveInput{Keys: in.Keys, Facing: entity.Facing(in.Facing), Dt: in.Dt}
			p.actor.X, p.actor.Y, p.actor.Facing = Step(p.actor.X, p.actor.Y, move, params, w.mask)
			p.lastProcessedSeq = in.Seq
		}
		p.queue = append(p.queue[:0], p.queue[batch:]...)

		// Second authority: the realized displacement must survive the
		// movement-rate gate or the whole window is rolled back.
		res := w.validator.ValidateMovement(id, p.actor.X, p.actor.Y, params.Speed,
			p.actor.AbilityUntilTick > w.tick, now)
		if !res.OK {
			p.actor.X, p.actor.Y = res.RevertX, res.RevertY
		}
		if res.Kick {
			w.kicks = append(w.kicks, KickRequest{PlayerID: id, Reason: "movement rate violations"})
		}
	}
}
