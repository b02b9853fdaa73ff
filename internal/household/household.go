// Package household implements shelter assignment and shared household
// inventory (§4.10): capacity derived from zone area, idempotent
// assignment, and deposit/withdraw against the shared pool.
package household

import (
	"fmt"

	"github.com/talgya/simkernel/internal/config"
	"github.com/talgya/simkernel/internal/eventbus"
	"github.com/talgya/simkernel/internal/inventory"
	"github.com/talgya/simkernel/internal/state"
)

// capacityForArea derives a household's member capacity from its zone's
// footprint: larger shelters house more people, floored at one.
func capacityForArea(bounds state.Bounds) int {
	area := bounds.W * bounds.H
	capacity := int(area / 20)
	if capacity < 1 {
		capacity = 1
	}
	return capacity
}

// EnsureHousehold returns the household bound to a shelter zone, creating
// it (with capacity derived from the zone's bounds) if it doesn't exist
// yet.
func EnsureHousehold(s *state.State, zoneID state.EntityID) (*state.Household, error) {
	if h, ok := s.Households[zoneID]; ok {
		return h, nil
	}
	zone, ok := s.Zones[zoneID]
	if !ok {
		return nil, fmt.Errorf("ensure household: zone %s not found", zoneID)
	}
	h := &state.Household{
		ZoneID:   zoneID,
		Capacity: capacityForArea(zone.Bounds),
		Inventory: &state.Inventory{
			OwnerID:  zoneID,
			Amounts:  make(map[state.ResourceType]int),
			Capacity: config.HouseholdSharedCapacity,
		},
	}
	s.Households[zoneID] = h
	return h, nil
}

// AssignToHouse adds agentID to the household at zoneID. Re-assigning an
// already-member agent is a no-op (idempotent), matching the semantics a
// repeated command dispatch must have. Fails if the household is already
// at capacity.
func AssignToHouse(s *state.State, bus *eventbus.Bus, zoneID, agentID state.EntityID, role string, tick uint64) error {
	h, err := EnsureHousehold(s, zoneID)
	if err != nil {
		return err
	}
	if h.HasMember(agentID) {
		return nil
	}
	if len(h.Members) >= h.Capacity {
		if bus != nil {
			bus.Emit(eventbus.EventNoFreeHouses, map[string]any{"zone_id": zoneID, "agent_id": agentID})
		}
		return fmt.Errorf("assign to house: %s is at capacity (%d/%d)", zoneID, len(h.Members), h.Capacity)
	}

	h.Members = append(h.Members, state.HouseholdMember{AgentID: agentID, Role: role, JoinedAt: tick})
	if bus != nil {
		bus.Emit(eventbus.EventAgentAssigned, map[string]any{"zone_id": zoneID, "agent_id": agentID, "role": role})
		if h.Occupancy() >= config.HouseholdHighOccupancyFrac {
			bus.Emit(eventbus.EventHighOccupancy, map[string]any{"zone_id": zoneID, "occupancy": h.Occupancy()})
		}
	}
	return nil
}

// RemoveFromHouse drops agentID from the household at zoneID, if present.
func RemoveFromHouse(s *state.State, zoneID, agentID state.EntityID) {
	h, ok := s.Households[zoneID]
	if !ok {
		return
	}
	for i, m := range h.Members {
		if m.AgentID == agentID {
			h.Members = append(h.Members[:i], h.Members[i+1:]...)
			return
		}
	}
}

// Deposit moves resources from an agent's personal inventory into their
// household's shared pool.
func Deposit(s *state.State, zoneID, agentID state.EntityID, rt state.ResourceType, amount int) error {
	h, ok := s.Households[zoneID]
	if !ok {
		return fmt.Errorf("deposit: no household at %s", zoneID)
	}
	personal, ok := s.AgentInventories[agentID]
	if !ok {
		return fmt.Errorf("deposit: no inventory for agent %s", agentID)
	}
	return inventory.Transfer(personal, h.Inventory, rt, amount)
}

// Withdraw moves resources from a household's shared pool into an agent's
// personal inventory.
func Withdraw(s *state.State, zoneID, agentID state.EntityID, rt state.ResourceType, amount int) error {
	h, ok := s.Households[zoneID]
	if !ok {
		return fmt.Errorf("withdraw: no household at %s", zoneID)
	}
	personal, ok := s.AgentInventories[agentID]
	if !ok {
		return fmt.Errorf("withdraw: no inventory for agent %s", agentID)
	}
	return inventory.Transfer(h.Inventory, personal, rt, amount)
}

// CheckHomeless emits a homelessness signal for every living agent not a
// member of any household, called periodically rather than every tick.
func CheckHomeless(s *state.State, bus *eventbus.Bus) {
	housed := make(map[state.EntityID]bool)
	for _, h := range s.Households {
		for _, m := range h.Members {
			housed[m.AgentID] = true
		}
	}
	var homeless []state.EntityID
	for _, a := range s.LivingAgents() {
		if !housed[a.ID] {
			homeless = append(homeless, a.ID)
		}
	}
	if len(homeless) > 0 && bus != nil {
		bus.Emit(eventbus.EventAgentsHomeless, map[string]any{"agent_ids": homeless, "count": len(homeless)})
	}
}
