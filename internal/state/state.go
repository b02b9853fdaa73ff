package state

// State is the single authoritative record of the simulated world (§3/§5).
// It is exclusively owned by the runner; subsystems borrow it mutably one
// at a time and never retain references into another subsystem's private
// collections.
type State struct {
	Tick uint64

	Agents   map[EntityID]*Agent
	Entities map[EntityID]*Entity
	Zones    map[EntityID]*Zone

	AgentInventories map[EntityID]*Inventory

	Tasks            map[EntityID]*Task
	ConstructionJobs map[EntityID]*ConstructionJob
	BuildingStates   map[EntityID]*BuildingState

	Households map[EntityID]*Household // keyed by zone id

	SocialEdgeMeta map[EntityID]map[EntityID]SocialEdgeMeta
	Reputations    map[EntityID]*Reputation
	MarriageGroups map[EntityID]*MarriageGroup

	AIStates map[EntityID]*AIState

	// Roles mirrors governance's current role assignment per agent so the
	// AI planner can read it without importing governance; governance.
	// Governor remains the writer and the authority on reassignment cooldown.
	Roles map[EntityID]string

	GlobalMaterials map[ResourceType]int
	Reservations    map[EntityID]*Reservation

	TerrainTiles interface{} // opaque terrain/biome data from worldgen, static after seeding
	Roads        interface{}
	ObjectLayers interface{}

	TimeScale float64
}

// NewState creates an empty world state with all maps initialized.
func NewState() *State {
	return &State{
		Agents:           make(map[EntityID]*Agent),
		Entities:         make(map[EntityID]*Entity),
		Zones:            make(map[EntityID]*Zone),
		AgentInventories: make(map[EntityID]*Inventory),
		Tasks:            make(map[EntityID]*Task),
		ConstructionJobs: make(map[EntityID]*ConstructionJob),
		BuildingStates:   make(map[EntityID]*BuildingState),
		Households:       make(map[EntityID]*Household),
		SocialEdgeMeta:   make(map[EntityID]map[EntityID]SocialEdgeMeta),
		Reputations:      make(map[EntityID]*Reputation),
		MarriageGroups:   make(map[EntityID]*MarriageGroup),
		AIStates:         make(map[EntityID]*AIState),
		Roles:            make(map[EntityID]string),
		GlobalMaterials:  make(map[ResourceType]int),
		Reservations:     make(map[EntityID]*Reservation),
		TimeScale:        1.0,
	}
}

// AddAgent registers a new living agent and its backing entity/inventory/AI
// records. Ownership: State.Agents is the sole owner; all other references
// are weak lookups by id.
func (s *State) AddAgent(a *Agent) {
	s.Agents[a.ID] = a
	if a.Inventory == nil {
		a.Inventory = NewAgentInventory(a.ID)
	}
	s.AgentInventories[a.ID] = a.Inventory
	s.Entities[a.ID] = &Entity{
		ID:       a.ID,
		Type:     EntityAgent,
		Position: a.Position,
		Stats: map[string]float64{
			"health": 100, "stamina": 100, "morale": 50, "stress": 0, "wounds": 0, "money": 0,
			"hunger": 100, "thirst": 100, "energy": 100, "social": 100, "fun": 100,
		},
		Tags: map[string]bool{},
	}
	s.AIStates[a.ID] = &AIState{AgentID: a.ID, Memory: make(map[string]ResourceMemory)}
	if _, ok := s.Reputations[a.ID]; !ok {
		s.Reputations[a.ID] = &Reputation{AgentID: a.ID, Value: 0.5}
	}
}

// RemoveAgent marks an agent and its entity dead rather than deleting them
// (§3's dead-entity invariant): both records stay in State and in the
// EntityIndex, and the spatial index leaves the entity out from its next
// rebuild on.
func (s *State) RemoveAgent(id EntityID) {
	if a, ok := s.Agents[id]; ok {
		a.IsDead = true
	}
	if e, ok := s.Entities[id]; ok {
		e.IsDead = true
	}
	if ai, ok := s.AIStates[id]; ok {
		ai.CurrentGoal = nil
		ai.CurrentAction = nil
		ai.GoalQueue = nil
		ai.OffDuty = true
	}
}

// LivingAgents returns every non-dead agent, in map iteration order (the
// caller sorts if determinism is required).
func (s *State) LivingAgents() []*Agent {
	out := make([]*Agent, 0, len(s.Agents))
	for _, a := range s.Agents {
		if !a.IsDead {
			out = append(out, a)
		}
	}
	return out
}

// AvailableGlobal returns global material counts not already claimed by any
// active reservation, for the resource kinds reservations track.
func (s *State) AvailableGlobal() ReservationCost {
	wood := s.GlobalMaterials[ResourceWood]
	stone := s.GlobalMaterials[ResourceStone]
	for _, z := range s.Zones {
		for _, sp := range z.Stockpiles {
			wood += sp.Inventory.Amounts[ResourceWood]
			stone += sp.Inventory.Amounts[ResourceStone]
		}
	}
	for _, r := range s.Reservations {
		wood -= r.Cost.Wood
		stone -= r.Cost.Stone
	}
	return ReservationCost{Wood: wood, Stone: stone}
}
