package ai

import (
	"math"

	"github.com/talgya/simkernel/internal/config"
	"github.com/talgya/simkernel/internal/eventbus"
	"github.com/talgya/simkernel/internal/index"
	"github.com/talgya/simkernel/internal/state"
)

const arriveEpsilon = 2.0

// planAction picks the next action in service of goal: move toward a
// target if not yet in range, otherwise interact with it.
func (p *Planner) planAction(ai *state.AIState, goal *state.Goal, agent *state.Agent, entity *state.Entity, s *state.State, idx *index.EntityIndex, spatial *index.SharedSpatialIndex) *state.Action {
	switch goal.Type {
	case state.GoalEat:
		return p.resourceSeekingAction(ai, agent, entity, s, state.ResourceFood, state.ZoneFood, state.ActionGather)
	case state.GoalDrink:
		return p.resourceSeekingAction(ai, agent, entity, s, state.ResourceWater, state.ZoneWater, state.ActionGather)
	case state.GoalRest:
		return p.zoneSeekingAction(ai, agent, entity, s, state.ZoneBedroom, state.ActionInteract)
	case state.GoalFun:
		return p.zoneSeekingAction(ai, agent, entity, s, state.ZoneSocial, state.ActionInteract)
	case state.GoalSocial:
		return socializeAction(agent, entity, s, spatial)
	case state.GoalGather:
		return p.resourceSeekingAction(ai, agent, entity, s, state.ResourceFood, state.ZoneFood, state.ActionGather)
	case state.GoalWork:
		if goal.Target.ZoneID != nil {
			if zone, ok := s.Zones[*goal.Target.ZoneID]; ok && !zone.UnderConstruction {
				if distance(entity.Position, zone.Bounds.Center()) > arriveEpsilon {
					return &state.Action{Type: state.ActionMove, Target: goal.Target}
				}
				return &state.Action{Type: state.ActionWork, Target: goal.Target}
			}
		}
		return p.zoneSeekingAction(ai, agent, entity, s, state.ZoneWork, state.ActionWork)
	case state.GoalExplore:
		return exploreAction(agent)
	case state.GoalCombat:
		return combatSeekingAction(goal, entity)
	default:
		return &state.Action{Type: state.ActionInteract}
	}
}

// zoneSeekingAction moves the agent toward the nearest zone of kind, using
// the planner's zone cache, and switches to finalAction once in range.
func (p *Planner) zoneSeekingAction(ai *state.AIState, agent *state.Agent, entity *state.Entity, s *state.State, kind state.ZoneType, finalAction state.ActionKind) *state.Action {
	zoneID, ok := p.nearestZone(agent.ID, entity.Position, s, kind)
	if !ok {
		return &state.Action{Type: state.ActionInteract} // nothing of this kind exists yet; idle in place
	}
	zone := s.Zones[zoneID]
	if distance(entity.Position, zone.Bounds.Center()) > arriveEpsilon {
		return &state.Action{Type: state.ActionMove, Target: state.TargetRef{ZoneID: &zoneID}}
	}
	return &state.Action{Type: finalAction, Target: state.TargetRef{ZoneID: &zoneID}}
}

// resourceSeekingAction targets the nearest live world resource node tagged
// with resource before falling back to a zone of kind (§4.6 S2: an eat or
// gather_food goal targets a berry_bush-style node's entity id directly
// when one exists, rather than only ever seeking a food zone).
func (p *Planner) resourceSeekingAction(ai *state.AIState, agent *state.Agent, entity *state.Entity, s *state.State, resource state.ResourceType, kind state.ZoneType, finalAction state.ActionKind) *state.Action {
	if nodeID, ok := p.nearestResourceNode(agent.ID, entity.Position, s, resource); ok {
		node := s.Entities[nodeID]
		ai.Memory[string(resource)] = state.ResourceMemory{ResourceType: string(resource), Position: node.Position, LastSeenTick: s.Tick}
		if distance(entity.Position, node.Position) > arriveEpsilon {
			return &state.Action{Type: state.ActionMove, Target: state.TargetRef{EntityID: &nodeID}}
		}
		return &state.Action{Type: finalAction, Target: state.TargetRef{EntityID: &nodeID}}
	}
	return p.zoneSeekingAction(ai, agent, entity, s, kind, finalAction)
}

// nearestResourceNode finds the closest live object entity tagged
// "resource_node" and resource, caching the hit for
// config.NearestResourceCacheTTL and giving up past
// config.NearestResourceMaxRadius. Scanning stops early once a candidate
// within config.NearestResourceEarlyExit turns up, trading strict
// nearest-of-all for a cheaper scan over a large entity population.
func (p *Planner) nearestResourceNode(agentID state.EntityID, from state.Point, s *state.State, resource state.ResourceType) (state.EntityID, bool) {
	key := resourceCacheKey{agentID: agentID, resource: resource}
	if id, ok := p.resourceCache.get(key); ok {
		if e, exists := s.Entities[id]; exists && !e.IsDead {
			return id, true
		}
		p.resourceCache.invalidate(key)
	}

	var best state.EntityID
	bestDist := math.MaxFloat64
	found := false
	for id, e := range s.Entities {
		if e.IsDead || e.Type != state.EntityObject || !e.Tags["resource_node"] || !e.Tags[string(resource)] {
			continue
		}
		d := distance(from, e.Position)
		if d > config.NearestResourceMaxRadius {
			continue
		}
		if d < bestDist {
			bestDist = d
			best = id
			found = true
		}
		if d <= config.NearestResourceEarlyExit {
			break
		}
	}
	if !found {
		return "", false
	}
	p.resourceCache.set(key, best)
	return best, true
}

func (p *Planner) nearestZone(agentID state.EntityID, from state.Point, s *state.State, kind state.ZoneType) (state.EntityID, bool) {
	key := zoneCacheKey{agentID: agentID, zone: kind}
	if id, ok := p.zoneCache.get(key); ok {
		if _, exists := s.Zones[id]; exists {
			return id, true
		}
		p.zoneCache.invalidate(key)
	}

	var best state.EntityID
	bestDist := math.MaxFloat64
	found := false
	for id, z := range s.Zones {
		if z.Type != kind || z.UnderConstruction {
			continue
		}
		d := distance(from, z.Bounds.Center())
		if d < bestDist {
			bestDist = d
			best = id
			found = true
		}
	}
	if !found {
		return "", false
	}
	p.zoneCache.set(key, best)
	return best, true
}

func socializeAction(agent *state.Agent, entity *state.Entity, s *state.State, spatial *index.SharedSpatialIndex) *state.Action {
	if spatial == nil {
		return &state.Action{Type: state.ActionInteract}
	}
	results := spatial.QueryRadius(entity.Position, config.SocialProximityRadius, func(id state.EntityID) bool {
		if id == agent.ID {
			return false
		}
		other, ok := s.Entities[id]
		return ok && other.Type == state.EntityAgent && !other.IsDead
	})
	defer spatial.Release(results)

	if len(results) == 0 {
		return exploreAction(agent)
	}
	target := results[0].EntityID
	bestDistSq := results[0].DistanceSq
	for _, r := range results[1:] {
		if r.DistanceSq < bestDistSq {
			bestDistSq = r.DistanceSq
			target = r.EntityID
		}
	}
	other := s.Entities[target]
	if distance(entity.Position, other.Position) > config.SocialProximityRadius/4 {
		return &state.Action{Type: state.ActionMove, Target: state.TargetRef{EntityID: &target}}
	}
	return &state.Action{Type: state.ActionInteract, Target: state.TargetRef{EntityID: &target}}
}

func exploreAction(agent *state.Agent) *state.Action {
	angle := float64(hash(string(agent.ID))%360) * math.Pi / 180
	dest := state.Point{
		X: agent.Position.X + config.ExploreRange*math.Cos(angle),
		Y: agent.Position.Y + config.ExploreRange*math.Sin(angle),
	}
	return &state.Action{Type: state.ActionMove, Target: state.TargetRef{Position: &dest}}
}

func combatSeekingAction(goal *state.Goal, entity *state.Entity) *state.Action {
	if goal.Target.EntityID == nil {
		return &state.Action{Type: state.ActionInteract}
	}
	return &state.Action{Type: state.ActionMove, Target: goal.Target}
}

func hash(s string) int {
	h := 0
	for _, r := range s {
		h = h*31 + int(r)
	}
	if h < 0 {
		h = -h
	}
	return h
}

func distance(a, b state.Point) float64 {
	dx := a.X - b.X
	dy := a.Y - b.Y
	return math.Sqrt(dx*dx + dy*dy)
}

// ApplyAction executes the effects of an agent's current action against
// the world state for one tick: move advances position, gather/deposit/
// withdraw move resources, interact resolves the goal in place.
func ApplyAction(agent *state.Agent, entity *state.Entity, ai *state.AIState, s *state.State, bus *eventbus.Bus) {
	action := ai.CurrentAction
	if action == nil {
		return
	}

	switch action.Type {
	case state.ActionMove:
		applyMove(agent, entity, action, s)
	case state.ActionGather:
		applyGather(agent, entity, ai, action, s, bus)
	case state.ActionDeposit:
		applyDeposit(agent, action, s)
	case state.ActionWithdraw:
		applyWithdraw(agent, action, s)
	case state.ActionWork:
		applyWorkContribute(agent, action, s)
	case state.ActionInteract:
		applyInteract(entity, ai)
	}
}

func resolveTargetPosition(t state.TargetRef, s *state.State) (state.Point, bool) {
	if t.Position != nil {
		return *t.Position, true
	}
	if t.ZoneID != nil {
		if z, ok := s.Zones[*t.ZoneID]; ok {
			return z.Bounds.Center(), true
		}
	}
	if t.EntityID != nil {
		if e, ok := s.Entities[*t.EntityID]; ok {
			return e.Position, true
		}
	}
	return state.Point{}, false
}

func applyMove(agent *state.Agent, entity *state.Entity, action *state.Action, s *state.State) {
	dest, ok := resolveTargetPosition(action.Target, s)
	if !ok {
		return
	}
	dx := dest.X - entity.Position.X
	dy := dest.Y - entity.Position.Y
	d := math.Sqrt(dx*dx + dy*dy)
	if d <= config.AgentMoveSpeed || d == 0 {
		entity.Position = dest
	} else {
		entity.Position.X += dx / d * config.AgentMoveSpeed
		entity.Position.Y += dy / d * config.AgentMoveSpeed
	}
	agent.Position = entity.Position
}

func applyGather(agent *state.Agent, entity *state.Entity, ai *state.AIState, action *state.Action, s *state.State, bus *eventbus.Bus) {
	if action.Target.EntityID != nil {
		applyGatherFromNode(entity, ai, *action.Target.EntityID, s, bus)
		return
	}
	if action.Target.ZoneID == nil {
		return
	}
	zone, ok := s.Zones[*action.Target.ZoneID]
	if !ok {
		return
	}
	switch zone.Type {
	case state.ZoneFood:
		entity.SetStat("hunger", entity.StatOrDefault("hunger", 0)+30, 0, 100)
	case state.ZoneWater:
		entity.SetStat("thirst", entity.StatOrDefault("thirst", 0)+30, 0, 100)
	}
	if ai.CurrentGoal != nil {
		ai.CurrentGoal.Status = state.GoalCompleted
	}
}

const resourceNodeHarvestPerGather = 10.0

// applyGatherFromNode harvests from a world resource node: satisfies the
// matching need (food or water), decrements the node's remaining amount,
// and marks it dead once exhausted.
func applyGatherFromNode(entity *state.Entity, ai *state.AIState, nodeID state.EntityID, s *state.State, bus *eventbus.Bus) {
	node, ok := s.Entities[nodeID]
	if !ok || node.IsDead {
		if ai.CurrentGoal != nil {
			ai.CurrentGoal.Status = state.GoalFailed
		}
		return
	}

	remaining := node.StatOrDefault("amount", 0)
	take := math.Min(resourceNodeHarvestPerGather, remaining)
	node.SetStat("amount", remaining-take, 0, math.MaxFloat64)

	if node.Tags["food"] {
		entity.SetStat("hunger", entity.StatOrDefault("hunger", 0)+30, 0, 100)
	}
	if node.Tags["water"] {
		entity.SetStat("thirst", entity.StatOrDefault("thirst", 0)+30, 0, 100)
	}

	if node.StatOrDefault("amount", 0) <= 0 {
		node.IsDead = true
		if bus != nil {
			bus.Emit(eventbus.EventWorldResourceNodeDepleted, map[string]any{"node_id": nodeID})
		}
	}
	if ai.CurrentGoal != nil {
		ai.CurrentGoal.Status = state.GoalCompleted
	}
}

func applyDeposit(agent *state.Agent, action *state.Action, s *state.State) {
	if action.Target.ZoneID == nil {
		return
	}
	zone, ok := s.Zones[*action.Target.ZoneID]
	if !ok {
		return
	}
	sp := zone.FirstStockpile()
	inv := s.AgentInventories[agent.ID]
	if inv == nil {
		return
	}
	for _, rt := range state.AllResourceTypes {
		amount := inv.Amounts[rt]
		if amount == 0 {
			continue
		}
		room := sp.Inventory.Remaining()
		if room <= 0 {
			break
		}
		move := amount
		if move > room {
			move = room
		}
		inv.Amounts[rt] -= move
		sp.Inventory.Amounts[rt] += move
	}
}

func applyWithdraw(agent *state.Agent, action *state.Action, s *state.State) {
	if action.Target.ZoneID == nil {
		return
	}
	zone, ok := s.Zones[*action.Target.ZoneID]
	if !ok {
		return
	}
	sp := zone.FirstStockpile()
	inv := s.AgentInventories[agent.ID]
	if inv == nil {
		return
	}
	for _, rt := range state.AllResourceTypes {
		amount := sp.Inventory.Amounts[rt]
		if amount == 0 {
			continue
		}
		room := inv.Remaining()
		if room <= 0 {
			break
		}
		move := amount
		if move > room {
			move = room
		}
		sp.Inventory.Amounts[rt] -= move
		inv.Amounts[rt] += move
	}
}

func applyWorkContribute(agent *state.Agent, action *state.Action, s *state.State) {
	entity := s.Entities[agent.ID]
	if entity != nil {
		entity.SetStat("energy", entity.StatOrDefault("energy", 0)-0.5, 0, 100)
		entity.SetStat("money", entity.StatOrDefault("money", 0)+config.WorkContributePerTick, 0, math.MaxFloat64)
	}
}

func applyInteract(entity *state.Entity, ai *state.AIState) {
	if ai.CurrentGoal == nil {
		return
	}
	switch ai.CurrentGoal.Type {
	case state.GoalRest:
		entity.SetStat("energy", entity.StatOrDefault("energy", 0)+20, 0, 100)
	case state.GoalFun:
		entity.SetStat("fun", entity.StatOrDefault("fun", 0)+20, 0, 100)
	case state.GoalSocial:
		entity.SetStat("social", entity.StatOrDefault("social", 0)+15, 0, 100)
	}
	ai.CurrentGoal.Status = state.GoalCompleted
}
