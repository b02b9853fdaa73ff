package state

// HouseholdMember records one agent's membership in a household.
type HouseholdMember struct {
	AgentID  EntityID
	Role     string
	JoinedAt uint64
}

// Household is a set of agent members bound to a shelter zone, with shared
// inventory and capacity derived from zone area (§3).
type Household struct {
	ZoneID    EntityID
	Members   []HouseholdMember
	Capacity  int
	Inventory *Inventory
}

// HasMember reports whether an agent already belongs to this household.
func (h *Household) HasMember(agentID EntityID) bool {
	for _, m := range h.Members {
		if m.AgentID == agentID {
			return true
		}
	}
	return false
}

// Occupancy returns the fraction of capacity in use.
func (h *Household) Occupancy() float64 {
	if h.Capacity <= 0 {
		return 0
	}
	return float64(len(h.Members)) / float64(h.Capacity)
}
