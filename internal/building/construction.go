// Package building implements construction placement, maintenance and
// decay, and per-zone production (§4.9), grounded on the cadence-driven
// lifecycle style of the kernel's settlement systems and a tech-tree-style
// cost catalog.
package building

import (
	"fmt"
	"log/slog"
	"math/rand"

	"github.com/google/uuid"

	"github.com/talgya/simkernel/internal/config"
	"github.com/talgya/simkernel/internal/eventbus"
	"github.com/talgya/simkernel/internal/household"
	"github.com/talgya/simkernel/internal/inventory"
	"github.com/talgya/simkernel/internal/state"
)

// finishedZoneType returns the zone type a building key settles into once
// construction completes: houses become rest zones (and gain a household),
// everything else becomes a work zone.
func finishedZoneType(buildingKey string) state.ZoneType {
	if buildingKey == "house" {
		return state.ZoneRest
	}
	return state.ZoneWork
}

// TryScheduleConstruction reserves the cost for buildingKey, finds a
// non-overlapping placement away from water, and registers a
// ConstructionJob. Placement search gives up after
// config.ConstructionMaxPlacementAttempts candidates.
func TryScheduleConstruction(s *state.State, bus *eventbus.Bus, buildingKey string, width, height float64, tick uint64) (*state.ConstructionJob, error) {
	def, ok := Catalog[buildingKey]
	if !ok {
		return nil, fmt.Errorf("schedule construction: unknown building %q", buildingKey)
	}

	bounds, ok := findPlacement(s, width, height)
	if !ok {
		return nil, fmt.Errorf("schedule construction: no valid placement found for %q after %d attempts", buildingKey, config.ConstructionMaxPlacementAttempts)
	}

	taskID := state.EntityID(uuid.NewString())
	cost := state.ReservationCost{Wood: def.Wood, Stone: def.Stone}
	if _, err := inventory.Reserve(s, taskID, cost, tick); err != nil {
		return nil, fmt.Errorf("schedule construction: %w", err)
	}

	zoneID := state.EntityID(uuid.NewString())
	zone := &state.Zone{
		ID:                zoneID,
		Type:              state.ZoneWork,
		Bounds:            bounds,
		Props:             map[string]float64{},
		BuildingLabel:     def.Label,
		UnderConstruction: true,
		MaxDurability:     def.MaxDurability,
		Durability:        def.MaxDurability,
	}
	s.Zones[zoneID] = zone

	job := &state.ConstructionJob{
		ZoneID:        zoneID,
		Label:         def.Label,
		BuildingKey:   buildingKey,
		ReservationID: taskID,
		CompletesAt:   tick + def.BuildTicks,
	}
	s.ConstructionJobs[zoneID] = job

	if bus != nil {
		bus.Emit(eventbus.EventConstructionStarted, map[string]any{"zone_id": zoneID, "label": def.Label, "completes_at": job.CompletesAt})
	}
	return job, nil
}

func findPlacement(s *state.State, width, height float64) (state.Bounds, bool) {
	for attempt := 0; attempt < config.ConstructionMaxPlacementAttempts; attempt++ {
		x := rand.Float64() * (config.WorldExtent - width)
		y := rand.Float64() * (config.WorldExtent - height)
		candidate := state.Bounds{X: x, Y: y, W: width, H: height}

		if overlapsAny(s, candidate) || tooCloseToWater(s, candidate) {
			continue
		}
		return candidate, true
	}
	return state.Bounds{}, false
}

func overlapsAny(s *state.State, candidate state.Bounds) bool {
	for _, z := range s.Zones {
		if z.Bounds.Overlaps(candidate) {
			return true
		}
	}
	return false
}

func tooCloseToWater(s *state.State, candidate state.Bounds) bool {
	center := candidate.Center()
	for _, z := range s.Zones {
		if z.Type != state.ZoneWater {
			continue
		}
		wc := z.Bounds.Center()
		dx := wc.X - center.X
		dy := wc.Y - center.Y
		if dx*dx+dy*dy < config.ConstructionWaterExclusionRadius*config.ConstructionWaterExclusionRadius {
			return true
		}
	}
	return false
}

// AdvanceConstruction completes any construction job whose tick has
// arrived, consuming its reservation and flipping the zone live.
func AdvanceConstruction(s *state.State, bus *eventbus.Bus, tick uint64) {
	for zoneID, job := range s.ConstructionJobs {
		if tick < job.CompletesAt {
			continue
		}
		if err := inventory.Consume(s, job.ReservationID); err != nil {
			// Supply evaporated mid-build (e.g. raided stockpile) — push
			// the deadline back by one maintenance interval instead of
			// silently completing without having paid for it.
			job.CompletesAt = tick + uint64(config.BuildingMaintenanceInterval/config.FastRate)
			continue
		}
		z, ok := s.Zones[zoneID]
		if !ok {
			delete(s.ConstructionJobs, zoneID)
			continue
		}
		z.UnderConstruction = false
		z.Type = finishedZoneType(job.BuildingKey)
		z.Durability = z.MaxDurability
		s.BuildingStates[zoneID] = &state.BuildingState{
			ZoneID:            zoneID,
			Durability:        z.MaxDurability,
			MaxDurability:     z.MaxDurability,
			DeteriorationRate: 1.0,
		}
		delete(s.ConstructionJobs, zoneID)
		if z.Type == state.ZoneRest {
			if _, err := household.EnsureHousehold(s, zoneID); err != nil {
				slog.Error("building: failed to create household for newly-built house", "zone_id", zoneID, "error", err)
			}
		}
		if bus != nil {
			bus.Emit(eventbus.EventBuildingConstructed, map[string]any{"zone_id": zoneID, "label": job.Label})
		}
	}
}
