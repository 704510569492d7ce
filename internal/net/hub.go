// Package net owns the websocket boundary: connection lifecycle, frame
// decode, per-connection intake limiting, and the tick-driven broadcast
// loop. Nothing in here mutates the world directly; inbound intents go
// through the command buffer and surface on the next tick.
package net

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
	"golang.org/x/time/rate"

	"hardmode/server/internal/deltasync"
	"hardmode/server/internal/entity"
	"hardmode/server/internal/latency"
	"hardmode/server/internal/protocol"
	"hardmode/server/internal/sim"
)

const (
	commandBufferSize = 1024
	writeTimeout      = 5 * time.Second
	readTimeout       = 60 * time.Second
	maxFrameBytes     = 4096

	// Intake limiting sits above the anti-cheat input gate: the gate
	// judges cadence per input, this bounds raw frames per connection so
	// a flood never reaches the decoder at full volume.
	intakeRate  = 150
	intakeBurst = 30
)

type subscriber struct {
	playerID string
	conn     *websocket.Conn
	enc      protocol.Encoding
	limiter  *rate.Limiter

	mu sync.Mutex // serializes writes to conn
}

func (s *subscriber) messageType() int {
	if s.enc == protocol.EncodingCBOR {
		return websocket.BinaryMessage
	}
	return websocket.TextMessage
}

func (s *subscriber) write(payload []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
	return s.conn.WriteMessage(s.messageType(), payload)
}

func (s *subscriber) send(v any) error {
	payload, err := s.enc.Marshal(v)
	if err != nil {
		return err
	}
	return s.write(payload)
}

// Hub connects websocket sessions to one world. Readers push commands into
// the buffer; Run drains it, advances the simulation, and broadcasts each
// client its own delta view.
type Hub struct {
	cfg     sim.Config
	log     zerolog.Logger
	tracker *latency.Tracker
	buffer  *sim.CommandBuffer

	upgrader websocket.Upgrader

	mu          sync.Mutex // guards world, subscribers, sync
	world       *sim.World
	subscribers map[string]*subscriber
	sync        *deltasync.Synchronizer
}

// NewHub wires a hub around an already constructed world.
func NewHub(cfg sim.Config, world *sim.World, tracker *latency.Tracker, log zerolog.Logger) *Hub {
	return &Hub{
		cfg:     cfg,
		log:     log,
		tracker: tracker,
		buffer:  sim.NewCommandBuffer(commandBufferSize),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
		world:       world,
		subscribers: make(map[string]*subscriber),
		sync:        deltasync.NewSynchronizer(),
	}
}

// HandleWS upgrades one connection, joins the player, answers with the full
// starting picture, and runs the read loop until the session ends.
func (h *Hub) HandleWS(w http.ResponseWriter, r *http.Request) {
	enc, ok := protocol.ParseEncoding(r.URL.Query().Get("encoding"))
	if !ok {
		http.Error(w, "unknown encoding", http.StatusBadRequest)
		return
	}
	class := r.URL.Query().Get("class")
	if class == "" {
		class = "knight"
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.Warn().Err(err).Msg("websocket upgrade failed")
		return
	}
	conn.SetReadLimit(maxFrameBytes)

	sub, joined := h.subscribe(conn, enc, class, time.Now())
	if err := sub.send(joined); err != nil {
		h.disconnect(sub)
		return
	}
	h.log.Info().Str("player", sub.playerID).Str("encoding", string(enc)).Msg("session opened")

	h.readLoop(sub)
}

func (h *Hub) subscribe(conn *websocket.Conn, enc protocol.Encoding, class string, now time.Time) (*subscriber, protocol.JoinedMessage) {
	h.mu.Lock()
	defer h.mu.Unlock()

	player := h.world.AddPlayer(class, now)
	sub := &subscriber{
		playerID: player.ID,
		conn:     conn,
		enc:      enc,
		limiter:  rate.NewLimiter(rate.Limit(intakeRate), intakeBurst),
	}
	h.subscribers[player.ID] = sub

	// The join answer is built through the synchronizer so the client's
	// cache starts aligned with the server's view of it.
	combined := append(h.world.PlayerStates(), h.world.MonsterStates()...)
	updates := h.sync.BuildUpdates(player.ID, combined)
	players, monsters, _ := splitByKind(updates)

	return sub, protocol.JoinedMessage{
		Ver:        protocol.ProtocolVersion,
		Type:       protocol.TypeJoined,
		ID:         player.ID,
		TickRate:   h.cfg.TickRate,
		ConfigHash: h.cfg.Hash(),
		Players:    players,
		Monsters:   monsters,
	}
}

func (h *Hub) readLoop(sub *subscriber) {
	defer h.disconnect(sub)

	for {
		sub.conn.SetReadDeadline(time.Now().Add(readTimeout))
		_, payload, err := sub.conn.ReadMessage()
		if err != nil {
			return
		}
		if !sub.limiter.Allow() {
			h.log.Warn().Str("player", sub.playerID).Msg("intake limit exceeded, frame dropped")
			continue
		}

		msg, err := protocol.ParseClient(payload, sub.enc)
		if err != nil {
			if errors.Is(err, protocol.ErrMalformed) {
				h.log.Warn().Str("player", sub.playerID).Err(err).Msg("discarding malformed frame")
				continue
			}
			return
		}

		if !h.dispatch(sub, msg, time.Now()) {
			return
		}
	}
}

// dispatch stages one decoded message. Pings are answered inline; every
// other message becomes a command for the next tick. It returns false when
// the session should end.
func (h *Hub) dispatch(sub *subscriber, msg protocol.ClientMessage, now time.Time) bool {
	switch m := msg.(type) {
	case protocol.PingMessage:
		if m.RTT > 0 {
			h.tracker.Observe(sub.playerID, time.Duration(m.RTT)*time.Millisecond)
		}
		pong := protocol.PongMessage{
			Ver:        protocol.ProtocolVersion,
			Type:       protocol.TypePong,
			T:          m.T,
			ServerTime: now.UnixMilli(),
		}
		return sub.send(pong) == nil
	case protocol.InputMessage:
		return h.push(sub, sim.Command{ActorID: sub.playerID, ReceivedAt: now, Input: &m})
	case protocol.AttackMessage:
		return h.push(sub, sim.Command{ActorID: sub.playerID, ReceivedAt: now, Attack: &m})
	case protocol.AttackMonsterMessage:
		return h.push(sub, sim.Command{ActorID: sub.playerID, ReceivedAt: now, AttackMonster: &m})
	case protocol.AbilityMessage:
		return h.push(sub, sim.Command{ActorID: sub.playerID, ReceivedAt: now, Ability: &m})
	default:
		return true
	}
}

func (h *Hub) push(sub *subscriber, cmd sim.Command) bool {
	if !h.buffer.Push(cmd) {
		// Shedding here keeps the tick loop honest; the client retries
		// through its normal input cadence.
		h.log.Warn().Str("player", sub.playerID).Msg("command buffer full, dropping")
	}
	return true
}

func (h *Hub) disconnect(sub *subscriber) {
	h.mu.Lock()
	if _, ok := h.subscribers[sub.playerID]; ok {
		delete(h.subscribers, sub.playerID)
		h.world.RemovePlayer(sub.playerID)
		h.sync.DropClient(sub.playerID)
		h.tracker.Forget(sub.playerID)
	}
	h.mu.Unlock()

	sub.conn.Close()
	h.log.Info().Str("player", sub.playerID).Msg("session closed")
}

// Run drives the fixed tick loop until the context ends: drain staged
// commands, advance the world, then fan out per-client broadcasts.
func (h *Hub) Run(ctx context.Context) {
	interval := time.Second / time.Duration(h.cfg.TickRate)
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			h.step(now)
		}
	}
}

type outbound struct {
	sub     *subscriber
	payload any
	kick    bool
}

func (h *Hub) step(now time.Time) {
	// One bad tick must not take the instance down with every session on it.
	defer func() {
		if r := recover(); r != nil {
			h.log.Error().Interface("panic", r).Msg("tick recovered")
		}
	}()

	sends := h.advance(now)

	// Network writes happen outside the world lock; per-connection order
	// is preserved by the subscriber write mutex.
	var kicked []*subscriber
	for _, out := range sends {
		if err := out.sub.send(out.payload); err != nil {
			kicked = append(kicked, out.sub)
			continue
		}
		if out.kick {
			kicked = append(kicked, out.sub)
		}
	}
	for _, sub := range kicked {
		h.disconnect(sub)
	}
}

// advance runs one tick under the world lock and returns the messages to
// deliver, per subscriber, in send order.
func (h *Hub) advance(now time.Time) []outbound {
	h.mu.Lock()
	defer h.mu.Unlock()

	for _, cmd := range h.buffer.Drain() {
		h.world.Dispatch(cmd, now)
	}
	h.world.Advance(now)

	events := h.world.DrainEvents()
	kicks := h.world.DrainKicks()

	players := h.world.PlayerStates()
	monsters := h.world.MonsterStates()
	projectiles := h.world.ProjectileStates()
	combined := make([]entity.State, 0, len(players)+len(monsters)+len(projectiles))
	combined = append(combined, players...)
	combined = append(combined, monsters...)
	combined = append(combined, projectiles...)

	var sends []outbound
	for id, sub := range h.subscribers {
		updates := h.sync.BuildUpdates(id, combined)
		pl, mo, pr := splitByKind(updates)
		state := protocol.StateMessage{
			Ver:              protocol.ProtocolVersion,
			Type:             protocol.TypeState,
			Tick:             h.world.CurrentTick(),
			ServerTime:       now.UnixMilli(),
			LastProcessedSeq: h.world.LastProcessedSeq(id),
			Players:          pl,
			Monsters:         mo,
			Projectiles:      pr,
		}
		sends = append(sends, outbound{sub: sub, payload: state})
	}

	// Combat and progression events go to everyone after the state that
	// already reflects them.
	for _, ev := range events {
		for _, sub := range h.subscribers {
			sends = append(sends, outbound{sub: sub, payload: ev})
		}
	}

	for _, kick := range kicks {
		sub, ok := h.subscribers[kick.PlayerID]
		if !ok {
			continue
		}
		sends = append(sends, outbound{
			sub: sub,
			payload: protocol.KickedMessage{
				Ver:    protocol.ProtocolVersion,
				Type:   protocol.TypeKicked,
				Reason: kick.Reason,
			},
			kick: true,
		})
	}
	return sends
}

func splitByKind(updates []protocol.EntityUpdate) (players, monsters, projectiles []protocol.EntityUpdate) {
	for _, u := range updates {
		switch u.Kind {
		case entity.KindPlayer:
			players = append(players, u)
		case entity.KindMonster:
			monsters = append(monsters, u)
		case entity.KindProjectile:
			projectiles = append(projectiles, u)
		}
	}
	return players, monsters, projectiles
}
