package snapshot

import (
	"golang.org/x/exp/maps"

	"github.com/talgya/simkernel/internal/state"
)

// Full is the complete observable world state, built for an observer's
// first connect and kept as the baseline later deltas are compared against.
type Full struct {
	Tick            uint64                       `json:"tick"`
	Agents          []*state.Agent               `json:"agents"`
	Entities        []*state.Entity               `json:"entities"`
	Zones           []*state.Zone                 `json:"zones"`
	GlobalMaterials map[state.ResourceType]int    `json:"global_materials"`
	TimeScale       float64                        `json:"time_scale"`
}

// Tick is the lightweight per-tick snapshot: positions and vital stats
// only, throttled to at most one publish per config.TickSnapshotThrottle.
type Tick struct {
	TickNum  uint64                                `json:"tick"`
	Position map[state.EntityID]state.Point        `json:"positions"`
	Vitals   map[state.EntityID]map[string]float64 `json:"vitals"`
}

// Delta is the set of entities that changed (position or any stat) since
// the previous Full snapshot, plus ids removed because the entity died.
type Delta struct {
	Tick            uint64          `json:"tick"`
	ChangedAgents   []*state.Agent  `json:"changed_agents"`
	ChangedEntities []*state.Entity `json:"changed_entities"`
	RemovedIDs      []state.EntityID `json:"removed_ids"`
}

// BuildFull assembles a complete snapshot from the current world state.
func BuildFull(s *state.State) *Full {
	f := &Full{
		Tick:            s.Tick,
		GlobalMaterials: maps.Clone(s.GlobalMaterials),
		TimeScale:       s.TimeScale,
	}
	for _, a := range s.Agents {
		cp := *a
		f.Agents = append(f.Agents, &cp)
	}
	for _, e := range s.Entities {
		cp := *e
		cp.Stats = maps.Clone(e.Stats)
		cp.Tags = maps.Clone(e.Tags)
		f.Entities = append(f.Entities, &cp)
	}
	for _, z := range s.Zones {
		f.Zones = append(f.Zones, z)
	}
	return f
}

// BuildTick assembles the lightweight per-tick view.
func BuildTick(s *state.State) *Tick {
	t := &Tick{
		TickNum:  s.Tick,
		Position: make(map[state.EntityID]state.Point, len(s.Entities)),
		Vitals:   make(map[state.EntityID]map[string]float64, len(s.Entities)),
	}
	for id, e := range s.Entities {
		if e.IsDead {
			continue
		}
		t.Position[id] = e.Position
		t.Vitals[id] = maps.Clone(e.Stats)
	}
	return t
}

// BuildDelta compares the current state against the last published Full
// snapshot and returns only what changed. prev may be nil, in which case
// every agent and entity, dead or alive, is reported changed (equivalent to
// a full snapshot in delta form).
func BuildDelta(prev *Full, s *state.State) *Delta {
	d := &Delta{Tick: s.Tick}

	prevAgents := make(map[state.EntityID]*state.Agent)
	prevEntities := make(map[state.EntityID]*state.Entity)
	if prev != nil {
		for _, a := range prev.Agents {
			prevAgents[a.ID] = a
		}
		for _, e := range prev.Entities {
			prevEntities[e.ID] = e
		}
	}

	for id, a := range s.Agents {
		old, existed := prevAgents[id]
		if !existed || agentChanged(old, a) {
			d.ChangedAgents = append(d.ChangedAgents, a)
		}
		if a.IsDead && existed && !old.IsDead {
			d.RemovedIDs = append(d.RemovedIDs, id)
		}
	}
	for id, e := range s.Entities {
		old, existed := prevEntities[id]
		if !existed || entityChanged(old, e) {
			d.ChangedEntities = append(d.ChangedEntities, e)
		}
	}
	return d
}

func agentChanged(a, b *state.Agent) bool {
	return a.Position != b.Position || a.IsDead != b.IsDead || a.LifeStage != b.LifeStage || a.AgeYears != b.AgeYears
}

func entityChanged(a, b *state.Entity) bool {
	if a.Position != b.Position || a.IsDead != b.IsDead || a.EquippedWeapon != b.EquippedWeapon {
		return true
	}
	if len(a.Stats) != len(b.Stats) {
		return true
	}
	for k, v := range b.Stats {
		if a.Stats[k] != v {
			return true
		}
	}
	return false
}
