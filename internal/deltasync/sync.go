// Package deltasync shrinks state broadcasts by tracking, per receiving
// client, the last state sent for every entity and emitting only the fields
// that changed since. The first time a client hears about an entity it gets
// the full record; every later update is a diff against the per-client
// cache, never against another client's view.
package deltasync

import (
	"github.com/elliotchance/orderedmap/v2"

	"hardmode/server/internal/entity"
	"hardmode/server/internal/protocol"
)

// Synchronizer owns every per-client entity cache. It is not safe for
// concurrent use; the hub serializes broadcast assembly.
type Synchronizer struct {
	clients map[string]*orderedmap.OrderedMap[string, entity.State]
}

// NewSynchronizer returns an empty synchronizer.
func NewSynchronizer() *Synchronizer {
	return &Synchronizer{
		clients: make(map[string]*orderedmap.OrderedMap[string, entity.State]),
	}
}

func (s *Synchronizer) cacheFor(clientID string) *orderedmap.OrderedMap[string, entity.State] {
	cache, ok := s.clients[clientID]
	if !ok {
		cache = orderedmap.NewOrderedMap[string, entity.State]()
		s.clients[clientID] = cache
	}
	return cache
}

// BuildUpdates renders one entity group for one client. Entities the client
// has never seen become full updates; known entities become deltas carrying
// the stability fields plus whatever changed. Cached entities absent from
// the batch are forgotten, so a re-appearing ID starts over with a full.
func (s *Synchronizer) BuildUpdates(clientID string, states []entity.State) []protocol.EntityUpdate {
	cache := s.cacheFor(clientID)

	present := make(map[string]struct{}, len(states))
	updates := make([]protocol.EntityUpdate, 0, len(states))
	for _, st := range states {
		present[st.ID] = struct{}{}
		cached, known := cache.Get(st.ID)
		if !known {
			updates = append(updates, fullUpdate(st))
		} else {
			updates = append(updates, deltaUpdate(cached, st))
		}
		cache.Set(st.ID, st)
	}

	for _, id := range cache.Keys() {
		if _, ok := present[id]; !ok {
			cache.Delete(id)
		}
	}
	return updates
}

// Forget drops one entity from a client's cache, forcing the next update
// for it to be full.
func (s *Synchronizer) Forget(clientID, entityID string) {
	if cache, ok := s.clients[clientID]; ok {
		cache.Delete(entityID)
	}
}

// DropClient releases everything tracked for a disconnected client.
func (s *Synchronizer) DropClient(clientID string) {
	delete(s.clients, clientID)
}

func ptr[T any](v T) *T { return &v }

func fullUpdate(st entity.State) protocol.EntityUpdate {
	u := protocol.EntityUpdate{
		ID:         st.ID,
		Kind:       st.Kind,
		UpdateType: protocol.UpdateFull,
		Dead:       st.Dead,
		HP:         st.HP,
		Facing:     st.Facing,
		X:          ptr(st.X),
		Y:          ptr(st.Y),
		MaxHP:      ptr(st.MaxHP),
		ArmorHP:    ptr(st.ArmorHP),
		Radius:     ptr(st.Radius),
		Stunned:    ptr(st.Stunned),
		Invuln:     ptr(st.Invulnerable),
	}
	if st.Class != "" {
		u.Class = ptr(st.Class)
	}
	if st.AI != "" {
		u.AI = ptr(st.AI)
	}
	if st.Kind == entity.KindPlayer {
		u.Level = ptr(st.Level)
		u.XP = ptr(st.XP)
		u.MoveBonus = ptr(st.MoveBonus)
		u.RollUnlock = ptr(st.RollUnlocked)
	}
	return u
}

func deltaUpdate(prev, st entity.State) protocol.EntityUpdate {
	u := protocol.EntityUpdate{
		ID:         st.ID,
		Kind:       st.Kind,
		UpdateType: protocol.UpdateDelta,
		Dead:       st.Dead,
		HP:         st.HP,
		Facing:     st.Facing,
	}
	if st.X != prev.X {
		u.X = ptr(st.X)
	}
	if st.Y != prev.Y {
		u.Y = ptr(st.Y)
	}
	if st.MaxHP != prev.MaxHP {
		u.MaxHP = ptr(st.MaxHP)
	}
	if st.ArmorHP != prev.ArmorHP {
		u.ArmorHP = ptr(st.ArmorHP)
	}
	if st.Radius != prev.Radius {
		u.Radius = ptr(st.Radius)
	}
	if st.Class != prev.Class {
		u.Class = ptr(st.Class)
	}
	if st.Stunned != prev.Stunned {
		u.Stunned = ptr(st.Stunned)
	}
	if st.Invulnerable != prev.Invulnerable {
		u.Invuln = ptr(st.Invulnerable)
	}
	if st.AI != prev.AI {
		u.AI = ptr(st.AI)
	}
	if st.Level != prev.Level {
		u.Level = ptr(st.Level)
	}
	if st.XP != prev.XP {
		u.XP = ptr(st.XP)
	}
	if st.MoveBonus != prev.MoveBonus {
		u.MoveBonus = ptr(st.MoveBonus)
	}
	if st.RollUnlocked != prev.RollUnlocked {
		u.RollUnlock = ptr(st.RollUnlocked)
	}
	return u
}
