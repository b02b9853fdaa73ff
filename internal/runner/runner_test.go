package runner

import (
	"testing"

	"github.com/talgya/simkernel/internal/command"
	"github.com/talgya/simkernel/internal/eventbus"
	"github.com/talgya/simkernel/internal/state"
)

func newTestRunner(t *testing.T, population int) *Runner {
	t.Helper()
	r := New()
	if err := r.Initialize(Config{InitialPopulation: population}); err != nil {
		t.Fatalf("initialize: %v", err)
	}
	return r
}

// runTick drives one tick synchronously, bypassing the scheduler's
// real-time loop — deterministic and fast for tests that only care about
// command/event ordering within a single tick.
func runTick(r *Runner, tick uint64) {
	r.preTick(tick)
	r.postTick(tick)
}

func TestInitializeSpawnsInitialPopulation(t *testing.T) {
	r := newTestRunner(t, 5)
	r.mu.Lock()
	count := len(r.state.LivingAgents())
	r.mu.Unlock()
	if count != 5 {
		t.Fatalf("expected 5 agents, got %d", count)
	}
	if r.GetPlayerId() == "" {
		t.Fatal("expected a player id to be assigned to the first spawned agent")
	}
}

func TestInitializeDefaultsPopulationWhenUnset(t *testing.T) {
	r := newTestRunner(t, 0)
	r.mu.Lock()
	count := len(r.state.LivingAgents())
	r.mu.Unlock()
	if count != 10 {
		t.Fatalf("expected default population of 10, got %d", count)
	}
}

func TestEnqueueCommandAlwaysAdmits(t *testing.T) {
	r := newTestRunner(t, 1)
	for i := 0; i < 500; i++ {
		if !r.EnqueueCommand(command.Command{ID: "x", Kind: command.KindPing}) {
			t.Fatal("EnqueueCommand must never reject a command outright")
		}
	}
}

func TestSpawnAgentCommandIncreasesPopulation(t *testing.T) {
	r := newTestRunner(t, 1)
	r.EnqueueCommand(command.Command{ID: "spawn-1", Kind: command.KindSpawnAgent, Payload: map[string]any{"x": 1.0, "y": 2.0}})
	runTick(r, 1)

	r.mu.Lock()
	count := len(r.state.LivingAgents())
	r.mu.Unlock()
	if count != 2 {
		t.Fatalf("expected 2 agents after spawn command, got %d", count)
	}
}

func TestKillAgentCommandRemovesAgentAndFiresEvent(t *testing.T) {
	r := newTestRunner(t, 2)
	var targetID state.EntityID
	r.mu.Lock()
	for _, a := range r.state.LivingAgents() {
		if a.ID != r.playerID {
			targetID = a.ID
			break
		}
	}
	r.mu.Unlock()
	if targetID == "" {
		t.Fatal("expected a non-player agent to target")
	}

	died := false
	unsubscribe := r.On(eventbus.EventAgentDied, func(ev eventbus.Event) { died = true })
	defer unsubscribe()

	r.EnqueueCommand(command.Command{ID: "kill-1", Kind: command.KindKillAgent, Payload: map[string]any{"agent_id": string(targetID)}})
	runTick(r, 1)

	if !died {
		t.Fatal("expected agentDied event to fire")
	}
	r.mu.Lock()
	agent, ok := r.state.Agents[targetID]
	r.mu.Unlock()
	if !ok || !agent.IsDead {
		t.Fatal("expected agent to be marked dead, not deleted, per the dead-entity invariant")
	}
}

func TestGetEntityDetailsUnknownID(t *testing.T) {
	r := newTestRunner(t, 1)
	_, ok := r.GetEntityDetails("does-not-exist")
	if ok {
		t.Fatal("expected unknown entity id to report false")
	}
}

func TestGetEntityDetailsKnownAgent(t *testing.T) {
	r := newTestRunner(t, 1)
	details, ok := r.GetEntityDetails(r.GetPlayerId())
	if !ok {
		t.Fatal("expected player entity to be found")
	}
	if details.Entity == nil || details.Inventory == nil || details.AI == nil {
		t.Fatal("expected a fully populated detail bundle for a spawned agent")
	}
}

func TestSaveGameWithoutPersistenceConfiguredFails(t *testing.T) {
	r := newTestRunner(t, 1)
	if _, _, err := r.SaveGame(0); err == nil {
		t.Fatal("expected save to fail without a configured database")
	}
}

func TestOnOffUnsubscribeStopsDelivery(t *testing.T) {
	r := newTestRunner(t, 1)
	// Deliver the initial population's buffered born event before
	// subscribing, so the counts below see only the spawn commands.
	runTick(r, 1)

	calls := 0
	unsubscribe := r.On(eventbus.EventAgentBorn, func(ev eventbus.Event) { calls++ })

	r.EnqueueCommand(command.Command{ID: "spawn-1", Kind: command.KindSpawnAgent})
	runTick(r, 2)
	if calls != 1 {
		t.Fatalf("expected one born event delivered, got %d", calls)
	}

	unsubscribe()

	r.EnqueueCommand(command.Command{ID: "spawn-2", Kind: command.KindSpawnAgent})
	runTick(r, 3)
	if calls != 1 {
		t.Fatalf("expected no further delivery after unsubscribe, got %d total", calls)
	}
}

func TestForceEmergenceEvalCommandRunsGovernancePoll(t *testing.T) {
	r := newTestRunner(t, 1)
	updated := false
	unsubscribe := r.On(eventbus.EventGovernanceUpdate, func(ev eventbus.Event) { updated = true })
	defer unsubscribe()

	r.EnqueueCommand(command.Command{ID: "force-1", Kind: command.KindForceEmergenceEval})
	runTick(r, 1)

	// A fresh world starts with empty stockpiles, so a forced poll should
	// immediately surface at least the food/water shortage demands.
	if !updated {
		t.Fatal("expected a forced governance poll to raise at least one demand update")
	}
}

func TestGetDeltaSnapshotForceFullThenDelta(t *testing.T) {
	r := newTestRunner(t, 1)
	full, delta := r.GetDeltaSnapshot(true)
	if full == nil || delta != nil {
		t.Fatal("expected a full snapshot and nil delta when forceFull is set")
	}

	full2, delta2 := r.GetDeltaSnapshot(false)
	if full2 != nil || delta2 == nil {
		t.Fatal("expected a delta and nil full snapshot on the second call")
	}
}
