package building

import (
	"fmt"

	"github.com/talgya/simkernel/internal/config"
	"github.com/talgya/simkernel/internal/eventbus"
	"github.com/talgya/simkernel/internal/inventory"
	"github.com/talgya/simkernel/internal/state"
)

// Manager tracks per-zone worker assignment and production cadence. A
// single Manager serves every production zone in the world.
type Manager struct {
	workers      map[state.EntityID][]state.EntityID
	lastProduced map[state.EntityID]uint64
}

// NewManager creates an empty production manager.
func NewManager() *Manager {
	return &Manager{
		workers:      make(map[state.EntityID][]state.EntityID),
		lastProduced: make(map[state.EntityID]uint64),
	}
}

// AssignWorker adds agentID to zoneID's production crew, rejecting the
// assignment once the zone is at config.ProductionMaxWorkersPerZone.
func (m *Manager) AssignWorker(s *state.State, bus *eventbus.Bus, zoneID, agentID state.EntityID) error {
	zone, ok := s.Zones[zoneID]
	if !ok || zone.ProductionType == "" {
		return fmt.Errorf("assign worker: zone %s is not a production zone", zoneID)
	}
	for _, id := range m.workers[zoneID] {
		if id == agentID {
			return nil
		}
	}
	if len(m.workers[zoneID]) >= config.ProductionMaxWorkersPerZone {
		return fmt.Errorf("assign worker: zone %s already has %d workers", zoneID, config.ProductionMaxWorkersPerZone)
	}
	m.workers[zoneID] = append(m.workers[zoneID], agentID)
	if bus != nil {
		bus.Emit(eventbus.EventAgentAssigned, map[string]any{"zone_id": zoneID, "agent_id": agentID})
	}
	return nil
}

// RemoveWorker drops agentID from zoneID's crew, if present. Missing a
// removal from a production zone that has closed silently frees no one,
// which is the right default: a gone zone just produces nothing on its
// next cycle.
func (m *Manager) RemoveWorker(s *state.State, bus *eventbus.Bus, zoneID, agentID state.EntityID) {
	crew := m.workers[zoneID]
	for i, id := range crew {
		if id == agentID {
			m.workers[zoneID] = append(crew[:i], crew[i+1:]...)
			if bus != nil {
				bus.Emit(eventbus.EventProductionWorkerRemoved, map[string]any{"zone_id": zoneID, "agent_id": agentID})
			}
			return
		}
	}
}

// RunCycle produces output for every due production zone: yield is
// BaseYield times the crew size, and a zone with no crew still yields a
// quarter of BaseYield (rounded down).
func (m *Manager) RunCycle(s *state.State, bus *eventbus.Bus, tick uint64) {
	intervalTicks := uint64(config.ProductionInterval / config.FastRate)

	for zoneID, zone := range s.Zones {
		if zone.ProductionType == "" || zone.UnderConstruction {
			continue
		}
		if tick-m.lastProduced[zoneID] < intervalTicks {
			continue
		}
		m.lastProduced[zoneID] = tick

		crew := len(m.workers[zoneID])
		multiplier := float64(crew)
		if multiplier < 1 {
			multiplier = 0.25 // unworked zones still trickle output
		}
		yield := int(zone.BaseYield * multiplier)
		if yield <= 0 {
			continue
		}

		sp := zone.FirstStockpile()
		if err := inventory.Add(sp.Inventory, state.ResourceType(zone.ProductionType), yield); err != nil {
			continue // stockpile full — output lost this cycle, not an error worth logging per-zone per-tick
		}

		if bus != nil {
			bus.Emit(eventbus.EventProductionOutput, map[string]any{
				"zone_id": zoneID, "resource": zone.ProductionType, "amount": yield,
			})
		}
	}
}
