// Package governance implements the shape-only demand/response poll
// described in §4.12: per-capita food and water shortages are tracked with
// hysteresis, housing pressure is raised whenever a household runs near
// capacity and cleared once it has been acted on, and a capped number of
// agents are reassigned toward whichever role best matches both their
// skills and traits and the shortage being addressed.
package governance

import (
	"sort"

	"github.com/talgya/simkernel/internal/config"
	"github.com/talgya/simkernel/internal/eventbus"
	"github.com/talgya/simkernel/internal/state"
)

// DemandKind tags a governance demand.
type DemandKind string

const (
	DemandFoodShortage  DemandKind = "food_shortage"
	DemandWaterShortage DemandKind = "water_shortage"
	DemandHousingFull   DemandKind = "housing_full"
)

// demand tracks whether a kind is currently active (raised and unresolved).
type demand struct {
	kind   DemandKind
	active bool
}

// Governor polls settlement-wide stats on a fixed cadence and reassigns
// agents toward roles that relieve active demands. A single Governor
// serves the whole world — the kernel models one settlement.
type Governor struct {
	lastPoll uint64
	demands  map[DemandKind]*demand

	// roles is governance's own record of reassignments, kept the same way
	// building.Manager owns its worker-crew map; respond mirrors every
	// assignment into state.Roles so the AI planner can read it.
	roles map[state.EntityID]string
}

// NewGovernor creates a Governor with no active demands.
func NewGovernor() *Governor {
	return &Governor{
		demands: map[DemandKind]*demand{
			DemandFoodShortage:  {kind: DemandFoodShortage},
			DemandWaterShortage: {kind: DemandWaterShortage},
			DemandHousingFull:   {kind: DemandHousingFull},
		},
		roles: make(map[state.EntityID]string),
	}
}

// RoleOf returns the currently assigned role for agentID, "" if unassigned.
func (g *Governor) RoleOf(agentID state.EntityID) string {
	return g.roles[agentID]
}

// ForcePoll runs the governance cycle immediately regardless of cadence,
// then resumes normal interval gating from tick — used by the
// FORCE_EMERGENCE_EVALUATION command for operator-triggered diagnostics.
func (g *Governor) ForcePoll(s *state.State, bus *eventbus.Bus, tick uint64) {
	// Backdate the gate by exactly one interval: Poll's unsigned elapsed
	// check then passes even within the first interval of the run.
	g.lastPoll = tick - uint64(config.GovernancePollInterval/config.FastRate)
	g.Poll(s, bus, tick)
}

// Poll runs the governance cycle if config.GovernancePollInterval has
// elapsed since the last one.
func (g *Governor) Poll(s *state.State, bus *eventbus.Bus, tick uint64) {
	intervalTicks := uint64(config.GovernancePollInterval / config.FastRate)
	if tick-g.lastPoll < intervalTicks {
		return
	}
	g.lastPoll = tick

	living := s.LivingAgents()
	population := len(living)
	if population == 0 {
		return
	}

	foodPerCapita := float64(totalFood(s)) / float64(population)
	waterPerCapita := float64(totalWater(s)) / float64(population)
	occupancy := peakOccupancy(s)

	g.updateOngoingDemand(DemandFoodShortage, foodPerCapita, config.FoodPerCapitaEmergency, config.FoodPerCapitaSafe, bus)
	g.updateOngoingDemand(DemandWaterShortage, waterPerCapita, config.WaterPerCapitaEmergency, config.WaterPerCapitaSafe, bus)
	g.updateImmediateDemand(DemandHousingFull, occupancy >= config.HouseholdHighOccupancyFrac, bus)

	for _, kind := range []DemandKind{DemandFoodShortage, DemandWaterShortage, DemandHousingFull} {
		if g.demands[kind].active {
			g.respond(s, bus, kind, living)
			if kind == DemandHousingFull {
				// Only the food/water shortages are ongoing; housing
				// pressure resolves as soon as it has been acted on.
				g.demands[kind].active = false
				emit(bus, eventbus.EventGovernanceUpdate, kind, false)
			}
		}
	}
}

func totalFood(s *state.State) int {
	total := s.GlobalMaterials[state.ResourceFood]
	for _, z := range s.Zones {
		for _, sp := range z.Stockpiles {
			total += sp.Inventory.Amounts[state.ResourceFood]
		}
	}
	return total
}

func totalWater(s *state.State) int {
	total := s.GlobalMaterials[state.ResourceWater]
	for _, z := range s.Zones {
		for _, sp := range z.Stockpiles {
			total += sp.Inventory.Amounts[state.ResourceWater]
		}
	}
	return total
}

// peakOccupancy returns the highest fractional occupancy across all
// households, 0 if there are none.
func peakOccupancy(s *state.State) float64 {
	var peak float64
	for _, h := range s.Households {
		if occ := h.Occupancy(); occ > peak {
			peak = occ
		}
	}
	return peak
}

// updateOngoingDemand applies the hysteresis rule from §4.12: a demand
// already active only resolves once value rises strictly above safe;
// an inactive demand is raised once value drops to or below emergency.
func (g *Governor) updateOngoingDemand(kind DemandKind, value, emergency, safe float64, bus *eventbus.Bus) {
	d := g.demands[kind]
	switch {
	case !d.active && value <= emergency:
		d.active = true
		emit(bus, eventbus.EventGovernanceUpdate, kind, true)
	case d.active && value > safe:
		d.active = false
		emit(bus, eventbus.EventGovernanceUpdate, kind, false)
	}
}

// updateImmediateDemand raises or resolves a demand with no hysteresis band.
func (g *Governor) updateImmediateDemand(kind DemandKind, triggered bool, bus *eventbus.Bus) {
	d := g.demands[kind]
	if d.active == triggered {
		return
	}
	d.active = triggered
	emit(bus, eventbus.EventGovernanceUpdate, kind, triggered)
}

func emit(bus *eventbus.Bus, name eventbus.Name, kind DemandKind, active bool) {
	if bus != nil {
		bus.Emit(name, map[string]any{"demand": string(kind), "active": active})
	}
}

// targetRole maps a demand to the role it needs staffed.
func targetRole(kind DemandKind) string {
	switch kind {
	case DemandFoodShortage:
		return "farmer"
	case DemandWaterShortage:
		return "water_bearer"
	case DemandHousingFull:
		return "builder"
	default:
		return ""
	}
}

// roleScore scores an agent's fit for role from its skills and traits
// only. The agent's current role, and how satisfied it is with that role,
// do not enter the score.
func roleScore(role string, a *state.Agent) float64 {
	switch role {
	case "farmer":
		return a.Skills.Farming*0.7 + a.Traits.Diligence*0.3
	case "water_bearer":
		return a.Traits.Diligence*0.6 + (1 - a.Traits.Neuroticism*0.4)
	case "builder":
		return a.Skills.Crafting*0.6 + a.Traits.Diligence*0.4
	default:
		return 0
	}
}

// respond reassigns up to config.GovernanceMaxReassignPerPoll agents
// toward the role that addresses kind, scored by traits, skipping agents
// already holding that role. Each reassignment emits EventRoleAssigned,
// and each call that reassigns anyone emits one EventGovernanceAction, so
// a poll emits one per demand it acted on.
func (g *Governor) respond(s *state.State, bus *eventbus.Bus, kind DemandKind, living []*state.Agent) {
	role := targetRole(kind)
	if role == "" {
		return
	}

	candidates := make([]*state.Agent, 0, len(living))
	for _, a := range living {
		if g.roles[a.ID] != role {
			candidates = append(candidates, a)
		}
	}
	sort.Slice(candidates, func(i, j int) bool {
		return roleScore(role, candidates[i]) > roleScore(role, candidates[j])
	})

	n := config.GovernanceMaxReassignPerPoll
	if n > len(candidates) {
		n = len(candidates)
	}
	reassigned := make([]state.EntityID, 0, n)
	for _, a := range candidates[:n] {
		g.roles[a.ID] = role
		if s.Roles != nil {
			s.Roles[a.ID] = role
		}
		reassigned = append(reassigned, a.ID)
		if bus != nil {
			bus.Emit(eventbus.EventRoleAssigned, map[string]any{"agent_id": a.ID, "role": role})
		}
	}

	if bus != nil && len(reassigned) > 0 {
		bus.Emit(eventbus.EventGovernanceAction, map[string]any{"demand": string(kind), "role": role, "agent_ids": reassigned})
	}
}
