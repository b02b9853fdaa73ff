// Package ai implements the need-driven goal/action planner (§4.6): needs
// decay each tick, crossing a critical threshold synthesizes an urgent
// goal that preempts whatever the agent was doing, and a soft per-tick
// decision-time budget spreads planning load across ticks rather than
// stalling the scheduler on a large population.
package ai

import (
	"math/rand"
	"time"

	"github.com/talgya/simkernel/internal/config"
	"github.com/talgya/simkernel/internal/eventbus"
	"github.com/talgya/simkernel/internal/gpu"
	"github.com/talgya/simkernel/internal/index"
	"github.com/talgya/simkernel/internal/socialgraph"
	"github.com/talgya/simkernel/internal/state"
)

type zoneCacheKey struct {
	agentID state.EntityID
	zone    state.ZoneType
}

type resourceCacheKey struct {
	agentID  state.EntityID
	resource state.ResourceType
}

// Planner holds the TTL caches and last-cleanup bookkeeping shared across
// decisions. One Planner serves the whole population.
type Planner struct {
	zoneCache     *ttlCache[zoneCacheKey, state.EntityID]
	resourceCache *ttlCache[resourceCacheKey, state.EntityID]

	// nearbyAgentCounts is rebuilt once per DecideBatch call from the
	// batched distance pass and consumed by rankGoals — it never outlives
	// the tick that produced it.
	nearbyAgentCounts map[state.EntityID]int
}

// NewPlanner creates a planner with the kernel's default cache TTLs.
func NewPlanner() *Planner {
	return &Planner{
		zoneCache:         newTTLCache[zoneCacheKey, state.EntityID](config.ZoneCacheTTL),
		resourceCache:     newTTLCache[resourceCacheKey, state.EntityID](config.NearestResourceCacheTTL),
		nearbyAgentCounts: make(map[state.EntityID]int),
	}
}

// DecideBatch decays needs and plans the next action for every agent whose
// current goal is stale, spending at most config.MaxDecisionTimeMS total
// before deferring the rest to the following tick.
func (p *Planner) DecideBatch(s *state.State, idx *index.EntityIndex, spatial *index.SharedSpatialIndex, social *socialgraph.Graph, bus *eventbus.Bus, tick uint64) {
	budget := time.Duration(config.MaxDecisionTimeMS) * time.Millisecond
	start := time.Now()

	agents := s.LivingAgents()
	for _, a := range agents {
		decayNeeds(s.Entities[a.ID])
	}

	var pending []*state.Agent
	for _, a := range agents {
		ai := s.AIStates[a.ID]
		if ai.OffDuty {
			continue
		}
		if needsDecision(ai, tick) {
			pending = append(pending, a)
		}
	}

	p.prewarmNearbyAgentCounts(pending, s, spatial)

	for i, a := range pending {
		if i > 0 && time.Since(start) > budget {
			break // remaining agents decide next tick — soft batch budget (§4.6)
		}
		p.decideOne(a, s, idx, spatial, social, bus, tick)
	}

	maybeCleanMemory(s, tick)
}

// prewarmNearbyAgentCounts runs one batched distance pass across the
// pending population and folds the result into a per-agent neighbor count
// within config.SocialProximityRadius, which rankGoals reads when weighing
// the social goal instead of every agent issuing its own spatial query.
func (p *Planner) prewarmNearbyAgentCounts(pending []*state.Agent, s *state.State, spatial *index.SharedSpatialIndex) {
	counts := make(map[state.EntityID]int, len(pending))
	if spatial == nil || len(pending) == 0 {
		p.nearbyAgentCounts = counts
		return
	}
	points := make([]gpu.Point, len(pending))
	for i, a := range pending {
		points[i] = gpu.Point{X: a.Position.X, Y: a.Position.Y}
		counts[a.ID] = 0
	}
	pairs := make([]gpu.Pair, 0, len(pending)*(len(pending)-1)/2)
	for i := range pending {
		for j := i + 1; j < len(pending); j++ {
			pairs = append(pairs, gpu.Pair{QueryIndex: i, CandidateIndex: j})
		}
	}
	radiusSq := config.SocialProximityRadius * config.SocialProximityRadius
	results := gpu.ComputeDistancesBatch(points, points, pairs, config.CombatBatchThreshold)
	for i, res := range results {
		if res.DistanceSq > radiusSq {
			continue
		}
		pair := pairs[i]
		counts[pending[pair.QueryIndex].ID]++
		counts[pending[pair.CandidateIndex].ID]++
	}
	p.nearbyAgentCounts = counts
}

func needsDecision(ai *state.AIState, tick uint64) bool {
	if ai.CurrentGoal == nil {
		return true
	}
	switch ai.CurrentGoal.Status {
	case state.GoalCompleted, state.GoalFailed, state.GoalInvalidated:
		return true
	}
	if ai.CurrentGoal.ExpiresAt != 0 && tick >= ai.CurrentGoal.ExpiresAt {
		return true
	}
	return false
}

func (p *Planner) decideOne(agent *state.Agent, s *state.State, idx *index.EntityIndex, spatial *index.SharedSpatialIndex, social *socialgraph.Graph, bus *eventbus.Bus, tick uint64) {
	ai := s.AIStates[agent.ID]
	entity := s.Entities[agent.ID]
	if entity == nil {
		return
	}

	decisionStart := time.Now()
	deadline := decisionStart.Add(time.Duration(config.MaxDecisionTimeMS) * time.Millisecond)

	goal := synthesizeUrgentGoal(entity, tick)
	if goal == nil {
		if len(ai.GoalQueue) > 0 {
			goal = &ai.GoalQueue[0]
			ai.GoalQueue = ai.GoalQueue[1:]
		} else {
			goal = p.makeDecision(agent, entity, ai, s, spatial, social, deadline, tick)
		}
	}
	goal.Status = state.GoalActive

	changed := ai.CurrentGoal == nil || ai.CurrentGoal.Type != goal.Type
	ai.CurrentGoal = goal
	if changed && bus != nil {
		bus.Emit(eventbus.EventAgentGoalChanged, map[string]any{"agent_id": agent.ID, "goal": string(goal.Type)})
	}

	ai.CurrentAction = p.planAction(ai, goal, agent, entity, s, idx, spatial)
	ai.LastDecisionTime = uint64(time.Since(decisionStart).Microseconds())
}

// makeDecision is the non-urgent goal planner (§4.6): it scores a handful
// of candidate goals against a dependency bundle (needs, role, inventory,
// equipped weapon, nearby-agent density, active tasks) and returns the
// highest-scoring one, or a fallback explore goal if deadline passes before
// any candidate is produced.
func (p *Planner) makeDecision(agent *state.Agent, entity *state.Entity, ai *state.AIState, s *state.State, spatial *index.SharedSpatialIndex, social *socialgraph.Graph, deadline time.Time, tick uint64) *state.Goal {
	ranked := p.rankGoals(agent, entity, ai, s, spatial, social, deadline, tick)
	if len(ranked) == 0 {
		return fallbackExploreGoal(agent, tick)
	}
	return ranked[0]
}

// candidateGoal pairs a goal with the score rankGoals assigned it.
type candidateGoal struct {
	goal  *state.Goal
	score float64
}

// rankGoals builds the dependency bundle and scores each non-urgent
// candidate goal, returning them sorted best-first. Bails out (returning
// whatever was scored so far) if deadline passes mid-scan, so a slow tick
// degrades to fewer candidates rather than blowing the decision budget.
func (p *Planner) rankGoals(agent *state.Agent, entity *state.Entity, ai *state.AIState, s *state.State, spatial *index.SharedSpatialIndex, social *socialgraph.Graph, deadline time.Time, tick uint64) []*state.Goal {
	role := s.Roles[agent.ID]
	inv := s.AgentInventories[agent.ID]
	nearbyAgents := p.nearbyAgentCounts[agent.ID]
	threatened := nearbyHostileAgent(agent, entity, s, spatial, social)

	var candidates []candidateGoal

	if threatened != nil && entity.EquippedWeapon != "" {
		candidates = append(candidates, candidateGoal{
			goal: &state.Goal{
				ID: state.EntityID("combat-" + string(agent.ID)), Type: state.GoalCombat,
				Priority: 8.5, CreatedAt: tick, ExpiresAt: tick + 150, Status: state.GoalActive,
				Target: state.TargetRef{EntityID: threatened},
			},
			score: 8.5,
		})
	}

	if time.Now().After(deadline) {
		return sortedGoals(candidates)
	}

	if task := openTaskFor(s, role); task != nil {
		score := 3.0
		if role != "" && task.Type == role {
			score += 1.0 // an agent with a matching role prefers its own work
		}
		candidates = append(candidates, candidateGoal{
			goal: &state.Goal{
				ID: task.ID, Type: state.GoalWork, Priority: score, CreatedAt: tick, ExpiresAt: tick + 300,
				Status: state.GoalActive, Target: targetFromTask(task),
			},
			score: score,
		})
	} else {
		candidates = append(candidates, candidateGoal{
			goal:  defaultWorkGoal(agent, tick),
			score: 1.0,
		})
	}

	if time.Now().After(deadline) {
		return sortedGoals(candidates)
	}

	// An agent with room to carry more and a gathering-leaning role treats
	// gathering as more attractive than generic work.
	if role == "farmer" && inv != nil && inv.Remaining() > 0 {
		candidates = append(candidates, candidateGoal{
			goal: &state.Goal{
				ID: state.EntityID("gather-" + string(agent.ID)), Type: state.GoalGather,
				Priority: 3.5, CreatedAt: tick, ExpiresAt: tick + 300, Status: state.GoalActive,
			},
			score: 3.5,
		})
	}

	// Isolated agents with slack in their social need seek company
	// proactively instead of waiting for it to become critical.
	if nearbyAgents == 0 && entity.StatOrDefault("social", 100) < 60 {
		candidates = append(candidates, candidateGoal{
			goal: &state.Goal{
				ID: state.EntityID("social-" + string(agent.ID)), Type: state.GoalSocial,
				Priority: 2.0, CreatedAt: tick, ExpiresAt: tick + 300, Status: state.GoalActive,
			},
			score: 2.0,
		})
	}

	return sortedGoals(candidates)
}

func sortedGoals(candidates []candidateGoal) []*state.Goal {
	out := make([]*state.Goal, len(candidates))
	for i := range candidates {
		out[i] = candidates[i].goal
	}
	for i := 1; i < len(out); i++ {
		for j := i; j > 0 && out[j].Priority > out[j-1].Priority; j-- {
			out[j], out[j-1] = out[j-1], out[j]
		}
	}
	return out
}

// nearbyHostileAgent reports an eligible combat target within social
// proximity range, mirroring combat.Resolver's own target-eligibility rule
// (mutual affinity <= -0.4 or an aggression roll) so an armed agent can
// deliberately approach a known enemy rather than only ever reacting once
// already in the combat resolver's engagement radius.
func nearbyHostileAgent(agent *state.Agent, entity *state.Entity, s *state.State, spatial *index.SharedSpatialIndex, social *socialgraph.Graph) *state.EntityID {
	if spatial == nil || social == nil || entity.IsDead {
		return nil
	}
	aggression := agent.Traits.Aggression
	results := spatial.QueryRadius(entity.Position, config.SocialProximityRadius, func(id state.EntityID) bool {
		if id == agent.ID {
			return false
		}
		other, ok := s.Entities[id]
		if !ok || other.IsDead || other.Type != state.EntityAgent {
			return false
		}
		if a, ok := s.Agents[other.ID]; ok && a.Immortal {
			return false
		}
		return social.Affinity(agent.ID, id) <= -0.4 || (aggression >= 0.6 && rand.Float64() < aggression*0.25)
	})
	defer spatial.Release(results)
	if len(results) == 0 {
		return nil
	}
	id := results[0].EntityID
	return &id
}

// openTaskFor returns an in-progress or newly-created task still short of
// its minimum workers, preferring one whose Type matches role.
func openTaskFor(s *state.State, role string) *state.Task {
	var fallback *state.Task
	for _, t := range s.Tasks {
		if t.Status != state.TaskCreated && t.Status != state.TaskInProgress {
			continue
		}
		if len(t.Contributed) >= t.MinWorkers {
			continue
		}
		if role != "" && t.Type == role {
			return t
		}
		if fallback == nil {
			fallback = t
		}
	}
	return fallback
}

func targetFromTask(t *state.Task) state.TargetRef {
	if t.ZoneID != nil {
		return state.TargetRef{ZoneID: t.ZoneID}
	}
	return state.TargetRef{}
}

func fallbackExploreGoal(agent *state.Agent, tick uint64) *state.Goal {
	return &state.Goal{
		ID:        state.EntityID("explore-" + string(agent.ID)),
		Type:      state.GoalExplore,
		Priority:  0.5,
		CreatedAt: tick,
		ExpiresAt: tick + 100,
		Status:    state.GoalActive,
	}
}

// synthesizeUrgentGoal returns a preempting goal when any need has crossed
// its critical threshold, highest-priority need first. Returns nil when no
// need is currently critical.
func synthesizeUrgentGoal(e *state.Entity, tick uint64) *state.Goal {
	type need struct {
		value    float64
		critical float64
		priority float64
		goal     state.GoalType
	}
	needs := []need{
		{e.StatOrDefault("hunger", 100), config.NeedHungerCritical, config.PriorityHungerGoal, state.GoalEat},
		{e.StatOrDefault("thirst", 100), config.NeedThirstCritical, config.PriorityThirstGoal, state.GoalDrink},
		{e.StatOrDefault("energy", 100), config.NeedEnergyCritical, config.PriorityRestGoal, state.GoalRest},
		{e.StatOrDefault("social", 100), config.NeedSocialCritical, config.PrioritySocialGoal, state.GoalSocial},
		{e.StatOrDefault("fun", 100), config.NeedFunCritical, config.PriorityFunGoal, state.GoalFun},
	}

	var best *need
	for i := range needs {
		n := &needs[i]
		if n.value >= n.critical {
			continue
		}
		if best == nil || n.priority > best.priority {
			best = n
		}
	}
	if best == nil {
		return nil
	}
	return &state.Goal{
		ID:        state.EntityID(string(best.goal)),
		Type:      best.goal,
		Priority:  best.priority,
		CreatedAt: tick,
		ExpiresAt: tick + 600,
		Status:    state.GoalActive,
	}
}

func defaultWorkGoal(agent *state.Agent, tick uint64) *state.Goal {
	return &state.Goal{
		ID:        state.EntityID("work-" + string(agent.ID)),
		Type:      state.GoalWork,
		Priority:  1.0,
		CreatedAt: tick,
		ExpiresAt: tick + 300,
		Status:    state.GoalActive,
	}
}

func decayNeeds(e *state.Entity) {
	if e == nil {
		return
	}
	e.SetStat("hunger", e.StatOrDefault("hunger", 100)-0.03, 0, 100)
	e.SetStat("thirst", e.StatOrDefault("thirst", 100)-0.04, 0, 100)
	e.SetStat("energy", e.StatOrDefault("energy", 100)-0.02, 0, 100)
	e.SetStat("social", e.StatOrDefault("social", 100)-0.015, 0, 100)
	e.SetStat("fun", e.StatOrDefault("fun", 100)-0.01, 0, 100)

	if e.StatOrDefault("hunger", 100) <= 0 || e.StatOrDefault("thirst", 100) <= 0 {
		health := e.StatOrDefault("health", 100) - 0.05
		e.SetStat("health", health, 0, 100)
	}
}

func maybeCleanMemory(s *state.State, tick uint64) {
	for _, ai := range s.AIStates {
		if ai.LastMemoryClean != 0 && tick-ai.LastMemoryClean < uint64(config.MemoryCleanupInterval/config.FastRate) {
			continue
		}
		for key, mem := range ai.Memory {
			if tick-mem.LastSeenTick > uint64(config.MemoryCleanupInterval/config.FastRate) {
				delete(ai.Memory, key)
			}
		}
		ai.LastMemoryClean = tick
	}
}
