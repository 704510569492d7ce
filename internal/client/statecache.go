package client

import (
	"hardmode/server/internal/entity"
	"hardmode/server/internal/protocol"
)

// StateCache reassembles the authoritative entity picture from full and
// delta updates. Merging a delta into the cached record reproduces exactly
// the state the server diffed against; that is the round-trip contract.
type StateCache struct {
	entities map[string]entity.State
}

// NewStateCache returns an empty cache.
func NewStateCache() *StateCache {
	return &StateCache{entities: make(map[string]entity.State)}
}

// ApplyUpdate merges one update into the cache and returns the resulting
// state. The desync flag reports a delta that arrived for an entity the
// cache has never seen; the update is still applied as well as possible,
// and the caller should request or await a full refresh.
func (c *StateCache) ApplyUpdate(u protocol.EntityUpdate) (entity.State, bool) {
	cached, known := c.entities[u.ID]
	desync := !known && u.UpdateType == protocol.UpdateDelta

	st := cached
	st.ID = u.ID
	st.Kind = u.Kind
	st.Dead = u.Dead
	st.HP = u.HP
	st.Facing = u.Facing

	if u.X != nil {
		st.X = *u.X
	}
	if u.Y != nil {
		st.Y = *u.Y
	}
	if u.MaxHP != nil {
		st.MaxHP = *u.MaxHP
	}
	if u.ArmorHP != nil {
		st.ArmorHP = *u.ArmorHP
	}
	if u.Radius != nil {
		st.Radius = *u.Radius
	}
	if u.Class != nil {
		st.Class = *u.Class
	}
	if u.Stunned != nil {
		st.Stunned = *u.Stunned
	}
	if u.Invuln != nil {
		st.Invulnerable = *u.Invuln
	}
	if u.AI != nil {
		st.AI = *u.AI
	}
	if u.Level != nil {
		st.Level = *u.Level
	}
	if u.XP != nil {
		st.XP = *u.XP
	}
	if u.MoveBonus != nil {
		st.MoveBonus = *u.MoveBonus
	}
	if u.RollUnlock != nil {
		st.RollUnlocked = *u.RollUnlock
	}

	c.entities[u.ID] = st
	return st, desync
}

// Get returns the cached state for an entity.
func (c *StateCache) Get(id string) (entity.State, bool) {
	st, ok := c.entities[id]
	return st, ok
}

// Remove drops an entity from the cache.
func (c *StateCache) Remove(id string) {
	delete(c.entities, id)
}

// Len reports how many entities the cache tracks.
func (c *StateCache) Len() int { return len(c.entities) }
