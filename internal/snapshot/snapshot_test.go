package snapshot

import (
	"testing"

	"github.com/talgya/simkernel/internal/state"
)

func TestBuildFullClonesGlobalMaterials(t *testing.T) {
	s := state.NewState()
	s.GlobalMaterials[state.ResourceWood] = 10

	full := BuildFull(s)
	full.GlobalMaterials[state.ResourceWood] = 999

	if s.GlobalMaterials[state.ResourceWood] != 10 {
		t.Fatal("mutating the snapshot's clone should not affect live state")
	}
}

func TestBuildTickSkipsDeadEntities(t *testing.T) {
	s := state.NewState()
	s.Entities["alive-1"] = &state.Entity{ID: "alive-1", Position: state.Point{X: 1, Y: 1}, Stats: map[string]float64{"health": 90}}
	s.Entities["dead-1"] = &state.Entity{ID: "dead-1", IsDead: true, Stats: map[string]float64{"health": 0}}

	tick := BuildTick(s)
	if _, ok := tick.Position["dead-1"]; ok {
		t.Fatal("expected a dead entity omitted from the tick snapshot")
	}
	if _, ok := tick.Position["alive-1"]; !ok {
		t.Fatal("expected a live entity present in the tick snapshot")
	}
}

// TestBuildDeltaOmitsUnchangedSections is the §5 invariant 8 scenario
// (S6): a delta against a prior full snapshot must report only what
// actually changed, leaving untouched agents and entities out entirely.
func TestBuildDeltaOmitsUnchangedSections(t *testing.T) {
	s := state.NewState()
	unchanged := &state.Agent{ID: "unchanged-1", Position: state.Point{X: 0, Y: 0}, LifeStage: state.StageAdult}
	moved := &state.Agent{ID: "moved-1", Position: state.Point{X: 0, Y: 0}, LifeStage: state.StageAdult}
	s.Agents[unchanged.ID] = unchanged
	s.Agents[moved.ID] = moved

	calmEntity := &state.Entity{ID: "calm-1", Position: state.Point{X: 2, Y: 2}, Stats: map[string]float64{"health": 100}}
	hitEntity := &state.Entity{ID: "hit-1", Position: state.Point{X: 3, Y: 3}, Stats: map[string]float64{"health": 100}}
	s.Entities[calmEntity.ID] = calmEntity
	s.Entities[hitEntity.ID] = hitEntity

	prev := BuildFull(s)

	// Mutate only "moved-1" and "hit-1" after the snapshot was taken.
	moved.Position = state.Point{X: 10, Y: 10}
	hitEntity.SetStat("health", 80, 0, 100)

	delta := BuildDelta(prev, s)

	if len(delta.ChangedAgents) != 1 || delta.ChangedAgents[0].ID != moved.ID {
		t.Fatalf("expected only %s in ChangedAgents, got %v", moved.ID, ids(delta.ChangedAgents))
	}
	if len(delta.ChangedEntities) != 1 || delta.ChangedEntities[0].ID != hitEntity.ID {
		t.Fatalf("expected only %s in ChangedEntities, got %v", hitEntity.ID, entityIDs(delta.ChangedEntities))
	}
	if len(delta.RemovedIDs) != 0 {
		t.Fatalf("expected no removals, got %v", delta.RemovedIDs)
	}
}

func TestBuildDeltaReportsDeathAsRemoved(t *testing.T) {
	s := state.NewState()
	a := &state.Agent{ID: "agent-1", Position: state.Point{X: 0, Y: 0}}
	s.Agents[a.ID] = a
	prev := BuildFull(s)

	a.IsDead = true

	delta := BuildDelta(prev, s)
	if len(delta.RemovedIDs) != 1 || delta.RemovedIDs[0] != a.ID {
		t.Fatalf("expected %s reported removed on death, got %v", a.ID, delta.RemovedIDs)
	}
	if len(delta.ChangedAgents) != 1 {
		t.Fatalf("expected the now-dead agent also reported as changed, got %d", len(delta.ChangedAgents))
	}
}

func TestBuildDeltaWithNilPrevReportsEverything(t *testing.T) {
	s := state.NewState()
	s.Agents["agent-1"] = &state.Agent{ID: "agent-1"}
	s.Entities["entity-1"] = &state.Entity{ID: "entity-1"}

	delta := BuildDelta(nil, s)
	if len(delta.ChangedAgents) != 1 {
		t.Fatalf("expected every agent reported changed with a nil prev, got %d", len(delta.ChangedAgents))
	}
	if len(delta.ChangedEntities) != 1 {
		t.Fatalf("expected every entity reported changed with a nil prev, got %d", len(delta.ChangedEntities))
	}
}

func TestDirtyCacheStartsFullyDirty(t *testing.T) {
	c := NewDirtyCache()
	if !c.IsDirty() {
		t.Fatal("expected a fresh cache to be dirty so the first snapshot is a full one")
	}
	sections := c.DirtySections()
	if len(sections) != 7 {
		t.Fatalf("expected all 7 sections dirty initially, got %d", len(sections))
	}
}

func TestDirtyCacheSectionsClearAfterRead(t *testing.T) {
	c := NewDirtyCache()
	c.DirtySections() // drain the initial all-dirty state

	if c.IsDirty() {
		t.Fatal("expected no dirty sections immediately after draining")
	}

	c.Mark(SectionSocial)
	if !c.IsDirty() {
		t.Fatal("expected marking a section to flip IsDirty")
	}
	sections := c.DirtySections()
	if len(sections) != 1 || sections[0] != SectionSocial {
		t.Fatalf("expected only SectionSocial reported dirty, got %v", sections)
	}
	if c.IsDirty() {
		t.Fatal("expected DirtySections to clear the flags it returned")
	}
}

func ids(agents []*state.Agent) []state.EntityID {
	out := make([]state.EntityID, len(agents))
	for i, a := range agents {
		out[i] = a.ID
	}
	return out
}

func entityIDs(entities []*state.Entity) []state.EntityID {
	out := make([]state.EntityID, len(entities))
	for i, e := range entities {
		out[i] = e.ID
	}
	return out
}
