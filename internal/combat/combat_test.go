package combat

import (
	"testing"
	"time"

	"github.com/talgya/simkernel/internal/config"
	"github.com/talgya/simkernel/internal/eventbus"
	"github.com/talgya/simkernel/internal/index"
	"github.com/talgya/simkernel/internal/state"
)

func TestEligibleTargetAnimalAlwaysEligible(t *testing.T) {
	s := state.NewState()
	attacker := &state.Entity{ID: "attacker", Type: state.EntityAgent}
	animal := &state.Entity{ID: "deer", Type: state.EntityAnimal}
	if !eligibleTarget(s, nil, attacker, animal, 0.1) {
		t.Fatal("expected an animal target to always be eligible")
	}
}

func TestEligibleTargetExcludesSelfDeadAndImmortal(t *testing.T) {
	s := state.NewState()
	s.Agents["immortal-1"] = &state.Agent{ID: "immortal-1", Immortal: true}
	attacker := &state.Entity{ID: "attacker", Type: state.EntityAgent}

	self := &state.Entity{ID: "attacker", Type: state.EntityAgent}
	if eligibleTarget(s, nil, attacker, self, 1.0) {
		t.Fatal("an entity should never be eligible to target itself")
	}

	dead := &state.Entity{ID: "dead-1", Type: state.EntityAgent, IsDead: true}
	if eligibleTarget(s, nil, attacker, dead, 1.0) {
		t.Fatal("a dead entity should never be an eligible target")
	}

	immortal := &state.Entity{ID: "immortal-1", Type: state.EntityAgent}
	if eligibleTarget(s, nil, attacker, immortal, 1.0) {
		t.Fatal("an immortal agent should never be an eligible target")
	}
}

func TestIsCandidateAttackerRequiresAggressiveAnimal(t *testing.T) {
	calm := &state.Entity{ID: "deer", Type: state.EntityAnimal, Tags: map[string]bool{}}
	if isCandidateAttacker(calm) {
		t.Fatal("a non-aggressive animal should not be a candidate attacker")
	}
	wolf := &state.Entity{ID: "wolf", Type: state.EntityAnimal, Tags: map[string]bool{"aggressive": true}}
	if !isCandidateAttacker(wolf) {
		t.Fatal("an aggressive animal should be a candidate attacker")
	}
	dead := &state.Entity{ID: "agent-1", Type: state.EntityAgent, IsDead: true}
	if isCandidateAttacker(dead) {
		t.Fatal("a dead entity should never be a candidate attacker")
	}
}

func TestTicksFromCooldownUsesWeaponOverride(t *testing.T) {
	unarmedTicks := ticksFromCooldown(Catalog["unarmed"])
	expectedUnarmed := uint64(config.CombatBaseCooldown / config.FastRate)
	if unarmedTicks != expectedUnarmed {
		t.Fatalf("unarmed should fall back to base cooldown: got %d ticks, want %d", unarmedTicks, expectedUnarmed)
	}

	clubTicks := ticksFromCooldown(Catalog["wooden_club"])
	expectedClub := uint64(3500 * time.Millisecond / config.FastRate)
	if clubTicks != expectedClub {
		t.Fatalf("wooden_club should use its own attack speed: got %d ticks, want %d", clubTicks, expectedClub)
	}
	if clubTicks == unarmedTicks {
		t.Fatal("a weapon override should differ from the base cooldown")
	}
}

// TestCombatCooldownTiming mirrors the §4.7 combat-cadence scenario: an
// armed attacker adjacent to an always-eligible target (an animal, so the
// test doesn't depend on the affinity/aggression roll's randomness), run
// for 5s at the 50ms FAST cadence with a wooden_club (3.5s cooldown).
// Exactly two hits land: the first at the earliest 750ms decision cycle,
// the second at the first decision cycle on or after the cooldown elapses.
func TestCombatCooldownTiming(t *testing.T) {
	s := state.NewState()
	attacker := &state.Agent{ID: "attacker", Name: "attacker", Position: state.Point{X: 0, Y: 0}, Traits: state.Traits{Aggression: 1.0}}
	s.AddAgent(attacker)
	s.Entities[attacker.ID].EquippedWeapon = "wooden_club"

	prey := &state.Entity{
		ID: "deer", Type: state.EntityAnimal, Position: state.Point{X: 5, Y: 0},
		Stats: map[string]float64{"health": 100},
		Tags:  map[string]bool{"animal": true},
	}
	s.Entities[prey.ID] = prey

	spatial := index.NewSharedSpatialIndex()
	spatial.MarkDirty()
	spatial.RebuildIfNeeded(s.Entities)

	bus := eventbus.New()
	var hits []uint64
	bus.On(eventbus.EventCombatHit, func(ev eventbus.Event) {
		entry, ok := ev.Payload.(state.CombatLogEntry)
		if !ok {
			t.Fatalf("unexpected COMBAT_HIT payload type %T", ev.Payload)
		}
		hits = append(hits, entry.Tick)
	})

	resolver := NewResolver()
	totalTicks := uint64(5 * time.Second / config.FastRate)
	for tick := uint64(1); tick <= totalTicks; tick++ {
		resolver.Tick(s, nil, spatial, nil, bus, tick)
		bus.Flush()
		bus.Dispatch()
	}

	if len(hits) != 2 {
		t.Fatalf("expected exactly 2 COMBAT_HIT events, got %d: %v", len(hits), hits)
	}

	cadenceTicks := uint64(config.CombatDecisionCadence / config.FastRate)
	if hits[0] != cadenceTicks {
		t.Fatalf("expected first hit at tick %d (~%v), got tick %d", cadenceTicks, config.CombatDecisionCadence, hits[0])
	}

	cooldownTicks := ticksFromCooldown(Catalog["wooden_club"])
	if hits[1] < hits[0]+cooldownTicks {
		t.Fatalf("second hit at tick %d violates the weapon's %d-tick cooldown from tick %d", hits[1], cooldownTicks, hits[0])
	}
	if hits[1] >= hits[0]+cooldownTicks+cadenceTicks {
		t.Fatalf("second hit at tick %d should land on the first decision cycle after cooldown, not a later one", hits[1])
	}
}

// TestCombatEngageAppliesSecondaryStatsAndClamps verifies the damage
// formula's secondary-stat fallout and that health never drops below 0.
func TestCombatEngageAppliesSecondaryStatsAndClamps(t *testing.T) {
	s := state.NewState()
	attacker := &state.Entity{ID: "attacker", Type: state.EntityAgent, Stats: map[string]float64{}}
	target := &state.Entity{ID: "target", Type: state.EntityAgent, Stats: map[string]float64{"health": 2}}
	s.Agents[target.ID] = &state.Agent{ID: target.ID}

	r := NewResolver()
	weapon := Catalog["sword"] // high base damage to force a kill in one hit
	r.engage(attacker, target, weapon, 1.0, s, nil, 1)

	if target.StatOrDefault("health", -1) != 0 {
		t.Fatalf("health should clamp at 0, got %v", target.StatOrDefault("health", -1))
	}
	if target.StatOrDefault("morale", 50) >= 50 {
		t.Fatalf("expected morale to fall below its default of 50, got %v", target.StatOrDefault("morale", 50))
	}
	if target.StatOrDefault("stress", 0) <= 0 {
		t.Fatalf("expected stress to rise above 0, got %v", target.StatOrDefault("stress", 0))
	}
	if target.StatOrDefault("wounds", 0) <= 0 {
		t.Fatalf("expected wounds to rise above 0, got %v", target.StatOrDefault("wounds", 0))
	}
	if target.StatOrDefault("stamina", 100) >= 100 {
		t.Fatalf("expected stamina to fall below its default of 100, got %v", target.StatOrDefault("stamina", 100))
	}
	if !target.IsDead {
		t.Fatal("expected target to die from a sword hit on 2 health")
	}
	if target.EquippedWeapon != "" {
		t.Fatal("expected a dead target's equipped weapon to be dropped")
	}
	if _, ok := s.Agents[target.ID]; ok && !s.Agents[target.ID].IsDead {
		t.Fatal("expected the backing agent record to be marked dead too")
	}
}
