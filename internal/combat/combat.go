// Package combat resolves engagements between hostile entities (§4.7).
// Animals are first-class state.Entity records tagged "animal" from
// creation — there is no transient synthesis of an animal entity just to
// resolve one fight, unlike the crime/theft rolls this package's structure
// is otherwise grounded on.
package combat

import (
	"math"
	"math/rand"

	"github.com/google/uuid"

	"github.com/talgya/simkernel/internal/config"
	"github.com/talgya/simkernel/internal/eventbus"
	"github.com/talgya/simkernel/internal/gpu"
	"github.com/talgya/simkernel/internal/index"
	"github.com/talgya/simkernel/internal/socialgraph"
	"github.com/talgya/simkernel/internal/state"
)

// Resolver tracks per-entity attack cooldowns and the decision cadence
// across ticks.
type Resolver struct {
	lastAttackTick   map[state.EntityID]uint64
	attackedBefore   map[state.EntityID]bool
	lastDecisionTick uint64
}

// NewResolver creates an empty resolver.
func NewResolver() *Resolver {
	return &Resolver{
		lastAttackTick: make(map[state.EntityID]uint64),
		attackedBefore: make(map[state.EntityID]bool),
	}
}

// isCandidateAttacker reports whether e can initiate an attack this cycle:
// live agents always qualify, animals only when tagged aggressive.
func isCandidateAttacker(e *state.Entity) bool {
	if e.IsDead {
		return false
	}
	switch e.Type {
	case state.EntityAgent:
		return true
	case state.EntityAnimal:
		return e.Tags["aggressive"]
	default:
		return false
	}
}

// aggressionOf returns the attacker's aggression scalar feeding both target
// eligibility and damage scaling: an agent's trait, or 1.0 for a tagged
// aggressive animal (always fully aggressive).
func aggressionOf(s *state.State, e *state.Entity) float64 {
	if a, ok := s.Agents[e.ID]; ok {
		return a.Traits.Aggression
	}
	return 1.0
}

func isImmortal(s *state.State, id state.EntityID) bool {
	a, ok := s.Agents[id]
	return ok && a.Immortal
}

// eligibleTarget implements the §4.7 target-selection rule: distinct,
// live, not immortal; animals are always eligible targets; agent targets
// require either deep mutual hostility (affinity ≤ -0.4) or an aggression
// roll.
func eligibleTarget(s *state.State, social *socialgraph.Graph, attacker, target *state.Entity, aggression float64) bool {
	if target.ID == attacker.ID || target.IsDead || isImmortal(s, target.ID) {
		return false
	}
	if target.Type == state.EntityAnimal {
		return true
	}
	if social != nil && social.Affinity(attacker.ID, target.ID) <= -0.4 {
		return true
	}
	return aggression >= 0.6 && rand.Float64() < aggression*0.25
}

// Tick runs the combat decision cycle at most once per
// config.CombatDecisionCadence: it finds every currently-eligible attacker,
// resolves one attack each against its nearest eligible target within
// engagement radius (subject to per-weapon cooldown), and emits combat
// events. Candidate gathering switches to the batched distance path once
// the candidate population crosses config.CombatGPUThreshold.
func (r *Resolver) Tick(s *state.State, idx *index.EntityIndex, spatial *index.SharedSpatialIndex, social *socialgraph.Graph, bus *eventbus.Bus, tick uint64) {
	cadenceTicks := uint64(config.CombatDecisionCadence / config.FastRate)
	if tick-r.lastDecisionTick < cadenceTicks {
		return
	}
	r.lastDecisionTick = tick

	var attackers []*state.Entity
	for _, e := range s.Entities {
		if isCandidateAttacker(e) {
			attackers = append(attackers, e)
		}
	}
	if len(attackers) == 0 {
		return
	}

	useGPU := len(attackers) >= config.CombatGPUThreshold
	for _, attacker := range attackers {
		weapon := WeaponFor(attacker)
		if r.attackedBefore[attacker.ID] && tick-r.lastAttackTick[attacker.ID] < ticksFromCooldown(weapon) {
			continue
		}
		aggression := aggressionOf(s, attacker)
		target := r.findTarget(attacker, weapon, aggression, s, social, spatial, useGPU)
		if target == nil {
			continue
		}
		r.engage(attacker, target, weapon, aggression, s, bus, tick)
	}
}

// ticksFromCooldown converts a weapon's attack speed (or, if unset, the
// global base cooldown) to a tick count.
func ticksFromCooldown(weapon WeaponDef) uint64 {
	cooldown := config.CombatBaseCooldown
	if weapon.AttackSpeed > 0 {
		cooldown = weapon.AttackSpeed
	}
	return uint64(cooldown / config.FastRate)
}

func (r *Resolver) findTarget(attacker *state.Entity, weapon WeaponDef, aggression float64, s *state.State, social *socialgraph.Graph, spatial *index.SharedSpatialIndex, useGPU bool) *state.Entity {
	if spatial == nil {
		return nil
	}
	radius := math.Max(config.CombatEngagementRadius, weapon.Range)
	results := spatial.QueryRadius(attacker.Position, radius, func(id state.EntityID) bool {
		if id == attacker.ID {
			return false
		}
		e, ok := s.Entities[id]
		if !ok || e.Type == state.EntityObject {
			return false
		}
		return eligibleTarget(s, social, attacker, e, aggression)
	})
	defer spatial.Release(results)
	if len(results) == 0 {
		return nil
	}

	if useGPU && len(results) >= config.CombatBatchThreshold {
		return r.nearestViaBatch(attacker, results, s)
	}

	best := results[0]
	for _, cand := range results[1:] {
		if cand.DistanceSq < best.DistanceSq {
			best = cand
		}
	}
	return s.Entities[best.EntityID]
}

// nearestViaBatch recomputes distances through the shared batched-distance
// path instead of the query's own squared distances, exercising the same
// CPU/GPU-equivalent surface combat shares with the AI planner and social
// graph.
func (r *Resolver) nearestViaBatch(attacker *state.Entity, results []index.QueryResult, s *state.State) *state.Entity {
	candidates := make([]gpu.Point, len(results))
	for i, res := range results {
		e := s.Entities[res.EntityID]
		candidates[i] = gpu.Point{X: e.Position.X, Y: e.Position.Y}
	}
	queries := []gpu.Point{{X: attacker.Position.X, Y: attacker.Position.Y}}
	pairs := make([]gpu.Pair, len(results))
	for i := range results {
		pairs[i] = gpu.Pair{QueryIndex: 0, CandidateIndex: i}
	}
	distances := gpu.ComputeDistancesBatch(queries, candidates, pairs, config.CombatBatchThreshold)

	bestIdx := 0
	for i, d := range distances {
		if d.DistanceSq < distances[bestIdx].DistanceSq {
			bestIdx = i
		}
	}
	return s.Entities[results[bestIdx].EntityID]
}

// engage resolves one attack per §4.7's damage formula: a uniform roll
// scaled by aggression, a chance of a critical multiplier, rounded and
// floored at 1. Secondary stats (morale, stress, wounds, stamina) move
// proportionally to the damage dealt.
func (r *Resolver) engage(attacker, target *state.Entity, weapon WeaponDef, aggression float64, s *state.State, bus *eventbus.Bus, tick uint64) {
	r.lastAttackTick[attacker.ID] = tick
	r.attackedBefore[attacker.ID] = true

	if bus != nil {
		bus.Emit(eventbus.EventCombatEngaged, map[string]any{"attacker": attacker.ID, "target": target.ID})
	}

	damage := weapon.BaseDamage * (0.8 + rand.Float64()*0.4)
	damage *= 0.5 + aggression*0.7
	if rand.Float64() < weapon.CritChance {
		damage *= weapon.CritMultiplier
	}
	damage = math.Round(damage)
	if damage < 1 {
		damage = 1
	}

	health := target.StatOrDefault("health", 100) - damage
	target.SetStat("health", health, 0, 100)
	target.SetStat("morale", target.StatOrDefault("morale", 50)-0.6*damage, 0, 100)
	target.SetStat("stress", target.StatOrDefault("stress", 0)+0.4*damage, 0, 100)
	target.SetStat("wounds", target.StatOrDefault("wounds", 0)+0.5*damage, 0, 100)
	target.SetStat("stamina", target.StatOrDefault("stamina", 100)-0.3*damage, 0, 100)

	entry := state.CombatLogEntry{
		UUID:      uuid.NewString(),
		Kind:      state.LogHit,
		ActorID:   attacker.ID,
		TargetID:  target.ID,
		ActorPos:  attacker.Position,
		TargetPos: target.Position,
		Damage:    damage,
		Tick:      tick,
	}
	if bus != nil {
		bus.Emit(eventbus.EventCombatHit, entry)
	}

	if health <= 0 && !target.IsDead {
		target.IsDead = true
		target.EquippedWeapon = ""
		if bus != nil {
			bus.Emit(eventbus.EventCombatKill, state.CombatLogEntry{
				UUID: uuid.NewString(), Kind: state.LogKill,
				ActorID: attacker.ID, TargetID: target.ID, Tick: tick,
			})
			if target.Type == state.EntityAnimal {
				bus.Emit(eventbus.EventAnimalHunted, map[string]any{"hunter": attacker.ID, "animal": target.ID})
			}
		}
		if a, ok := s.Agents[target.ID]; ok {
			s.RemoveAgent(a.ID)
		}
	}
}
