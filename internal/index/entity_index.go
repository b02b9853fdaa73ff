// Package index provides O(1) id lookups and radius queries over the
// world state (§4.4): an EntityIndex (id → agent/entity) and a
// SharedSpatialIndex (uniform grid of entity ids by position).
package index

import (
	"github.com/talgya/simkernel/internal/state"
)

// EntityIndex reseeds id→agent and id→entity maps from State on rebuild.
type EntityIndex struct {
	agents   map[state.EntityID]*state.Agent
	entities map[state.EntityID]*state.Entity
}

// NewEntityIndex creates an empty index; call Rebuild before first use.
func NewEntityIndex() *EntityIndex {
	return &EntityIndex{
		agents:   make(map[state.EntityID]*state.Agent),
		entities: make(map[state.EntityID]*state.Entity),
	}
}

// Rebuild reseeds the index from the current world state and ensures every
// live agent is also present in the entity collection with matching
// position, per syncAgentsToEntities (§4.4).
func (idx *EntityIndex) Rebuild(s *state.State) {
	idx.agents = make(map[state.EntityID]*state.Agent, len(s.Agents))
	idx.entities = make(map[state.EntityID]*state.Entity, len(s.Entities))

	for id, a := range s.Agents {
		idx.agents[id] = a
	}
	idx.SyncAgentsToEntities(s)
	for id, e := range s.Entities {
		idx.entities[id] = e
	}
}

// SyncAgentsToEntities ensures every live agent also has a matching entity
// record, copying the agent's position and dead flag onto it — agents are
// first-class entities.
func (idx *EntityIndex) SyncAgentsToEntities(s *state.State) {
	for id, a := range s.Agents {
		e, ok := s.Entities[id]
		if !ok {
			e = &state.Entity{ID: id, Type: state.EntityAgent, Stats: map[string]float64{}, Tags: map[string]bool{}}
			s.Entities[id] = e
		}
		e.Position = a.Position
		e.IsDead = a.IsDead
	}
}

// Agent looks up an agent by id.
func (idx *EntityIndex) Agent(id state.EntityID) (*state.Agent, bool) {
	a, ok := idx.agents[id]
	return a, ok
}

// Entity looks up an entity (agent, animal, or object) by id.
func (idx *EntityIndex) Entity(id state.EntityID) (*state.Entity, bool) {
	e, ok := idx.entities[id]
	return e, ok
}

// AllEntities returns every indexed entity, including dead ones (callers
// filter as needed).
func (idx *EntityIndex) AllEntities() map[state.EntityID]*state.Entity {
	return idx.entities
}
