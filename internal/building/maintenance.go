package building

import (
	"github.com/talgya/simkernel/internal/config"
	"github.com/talgya/simkernel/internal/eventbus"
	"github.com/talgya/simkernel/internal/state"
)

// ApplyMaintenance runs the periodic decay pass over every completed
// building: durability drops by the deterioration rate once per maintenance
// interval, buildings flagged Abandoned lose three times as much, and every
// change of condition bucket is announced with EventBuildingDamaged.
func ApplyMaintenance(s *state.State, bus *eventbus.Bus, tick uint64) {
	maintenanceTicks := uint64(config.BuildingMaintenanceInterval / config.FastRate)

	for zoneID, bs := range s.BuildingStates {
		if tick-bs.LastMaintenance < maintenanceTicks {
			continue
		}
		bs.LastMaintenance = tick

		before := bs.Condition()

		rate := bs.DeteriorationRate
		if rate <= 0 {
			rate = 1.0
		}
		decay := rate
		if bs.Abandoned {
			decay *= 3
		}
		bs.Durability -= decay
		if bs.Durability < 0 {
			bs.Durability = 0
		}

		if z, ok := s.Zones[zoneID]; ok {
			z.Durability = bs.Durability
		}

		after := bs.Condition()
		if after != before && bus != nil {
			bus.Emit(eventbus.EventBuildingDamaged, map[string]any{
				"zone_id": zoneID, "condition": string(after), "durability": bs.Durability,
			})
		}
	}
}

// RecordUsage marks a building as used this tick, resetting its abandoned
// flag and incrementing the wear counter that drives extra-durability loss
// every config.BuildingUsageDurabilityEvery uses.
func RecordUsage(s *state.State, bus *eventbus.Bus, zoneID state.EntityID, tick uint64) {
	bs, ok := s.BuildingStates[zoneID]
	if !ok {
		return
	}
	bs.LastUsage = tick
	bs.Abandoned = false
	bs.UsageCount++

	if bs.UsageCount%config.BuildingUsageDurabilityEvery == 0 {
		bs.Durability -= 1
		if bs.Durability < 0 {
			bs.Durability = 0
		}
		if z, ok := s.Zones[zoneID]; ok {
			z.Durability = bs.Durability
		}
	}
}

// Repair raises a building's durability by amount, capped at MaxDurability,
// and emits EventBuildingRepaired. It draws no material and charges no
// cost, and MaxDurability is left unchanged.
func Repair(s *state.State, bus *eventbus.Bus, zoneID state.EntityID, amount float64, tick uint64) {
	bs, ok := s.BuildingStates[zoneID]
	if !ok {
		return
	}
	bs.Durability += amount
	if bs.Durability > bs.MaxDurability {
		bs.Durability = bs.MaxDurability
	}
	if z, ok := s.Zones[zoneID]; ok {
		z.Durability = bs.Durability
	}
	if bus != nil {
		bus.Emit(eventbus.EventBuildingRepaired, map[string]any{"zone_id": zoneID, "durability": bs.Durability})
	}
}
