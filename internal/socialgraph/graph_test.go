package socialgraph

import (
	"testing"

	"github.com/talgya/simkernel/internal/config"
	"github.com/talgya/simkernel/internal/eventbus"
	"github.com/talgya/simkernel/internal/index"
	"github.com/talgya/simkernel/internal/state"
)

func TestAddEdgeIsSymmetricAndClamped(t *testing.T) {
	g := New()
	bus := eventbus.New()
	g.addEdge(bus, "a", "b", 1.5)
	if g.Affinity("a", "b") != 1 || g.Affinity("b", "a") != 1 {
		t.Fatalf("expected both directions clamped to 1, got a->b=%v b->a=%v", g.Affinity("a", "b"), g.Affinity("b", "a"))
	}

	g.addEdge(bus, "a", "b", -5)
	if g.Affinity("a", "b") != -1 || g.Affinity("b", "a") != -1 {
		t.Fatalf("expected both directions clamped to -1, got a->b=%v b->a=%v", g.Affinity("a", "b"), g.Affinity("b", "a"))
	}
}

func TestAddEdgeEmitsOnlyOnMeaningfulChange(t *testing.T) {
	g := New()
	bus := eventbus.New()
	var fired int
	bus.On(eventbus.EventSocialRelationChanged, func(eventbus.Event) { fired++ })

	g.addEdge(bus, "a", "b", 0.05) // above edgeEpsilon (0.01)
	bus.Flush()
	bus.Dispatch()
	if fired != 1 {
		t.Fatalf("expected exactly one relation-changed event, got %d", fired)
	}

	g.addEdge(bus, "a", "b", 0.001) // below edgeEpsilon, should not re-fire
	bus.Flush()
	bus.Dispatch()
	if fired != 1 {
		t.Fatalf("expected no additional event for a sub-epsilon change, got %d total", fired)
	}
}

func TestReinforceProximityOnlyBondsWithinRadius(t *testing.T) {
	s := state.NewState()
	near1 := &state.Agent{ID: "near-1", Position: state.Point{X: 0, Y: 0}}
	near2 := &state.Agent{ID: "near-2", Position: state.Point{X: 10, Y: 0}}
	far := &state.Agent{ID: "far-1", Position: state.Point{X: config.SocialProximityRadius * 5, Y: 0}}
	s.AddAgent(near1)
	s.AddAgent(near2)
	s.AddAgent(far)

	spatial := index.NewSharedSpatialIndex()
	spatial.MarkDirty()
	spatial.RebuildIfNeeded(s.Entities)

	g := New()
	// SocialSubBatches gates each call to one slice of agents; iterate
	// enough sub-batches to guarantee every agent's turn comes up.
	for i := 0; i < config.SocialSubBatches; i++ {
		g.ReinforceProximity(s, nil, spatial, nil, i, 1.0)
	}

	if g.Affinity(near1.ID, near2.ID) <= 0 {
		t.Fatalf("expected agents within proximity radius to gain affinity, got %v", g.Affinity(near1.ID, near2.ID))
	}
	if g.Affinity(near1.ID, far.ID) != 0 {
		t.Fatalf("expected no affinity gain across a far pair, got %v", g.Affinity(near1.ID, far.ID))
	}
}

func TestDecayMovesMagnitudeTowardZeroSlowerWhenBonded(t *testing.T) {
	s := state.NewState()
	g := New()
	g.set("free-a", "free-b", 0.5)
	g.set("free-b", "free-a", 0.5)
	g.set("bond-a", "bond-b", 0.5)
	g.set("bond-b", "bond-a", 0.5)
	s.SocialEdgeMeta["bond-a"] = map[state.EntityID]state.SocialEdgeMeta{"bond-b": {Bond: state.BondMarriage}}

	intervalTicks := uint64(config.SocialDecayInterval / config.FastRate)
	g.Decay(s, intervalTicks, float64(config.SocialDecayInterval)/1e9) // first eligible tick; lastDecayTick starts at 0

	free := g.Affinity("free-a", "free-b")
	bonded := g.Affinity("bond-a", "bond-b")
	if free >= 0.5 {
		t.Fatalf("expected unbonded edge to decay, got %v", free)
	}
	if bonded >= 0.5 {
		t.Fatalf("expected bonded edge to decay too, got %v", bonded)
	}
	if 0.5-bonded >= 0.5-free {
		t.Fatalf("expected bonded edge to decay slower than unbonded: bonded drop=%v free drop=%v", 0.5-bonded, 0.5-free)
	}
}

func TestDecaySnapsTinyMagnitudeToZero(t *testing.T) {
	s := state.NewState()
	g := New()
	g.set("a", "b", 0.0005)
	g.set("b", "a", 0.0005)

	intervalTicks := uint64(config.SocialDecayInterval / config.FastRate)
	g.Decay(s, intervalTicks, float64(config.SocialDecayInterval)/1e9)

	if g.Affinity("a", "b") != 0 {
		t.Fatalf("expected sub-threshold magnitude snapped to 0, got %v", g.Affinity("a", "b"))
	}
}

func TestDecayRespectsCadence(t *testing.T) {
	s := state.NewState()
	g := New()
	g.set("a", "b", 0.5)
	g.set("b", "a", 0.5)

	intervalTicks := uint64(config.SocialDecayInterval / config.FastRate)
	g.Decay(s, intervalTicks, 1.0) // first eligible tick; lastDecayTick starts at 0
	afterFirst := g.Affinity("a", "b")

	g.Decay(s, intervalTicks+1, 1.0) // one tick later, well inside the next cadence window
	if g.Affinity("a", "b") != afterFirst {
		t.Fatalf("expected decay to skip before the next cadence window, got %v want %v", g.Affinity("a", "b"), afterFirst)
	}
}

func TestImposeTruceHalvesNegativeAffinityAndSetsExpiry(t *testing.T) {
	s := state.NewState()
	g := New()
	g.set("a", "b", -0.8)
	g.set("b", "a", -0.8)
	bus := eventbus.New()

	g.ImposeTruce(s, bus, "a", "b", 100, 10)

	if g.Affinity("a", "b") != -0.4 {
		t.Fatalf("expected negative affinity halved, got %v", g.Affinity("a", "b"))
	}
	meta := s.SocialEdgeMeta["a"]["b"]
	if meta.TruceExpiry != 110 {
		t.Fatalf("expected truce expiry at tick 110, got %v", meta.TruceExpiry)
	}
}

func TestSweepTruceExpiryEmitsEvent(t *testing.T) {
	s := state.NewState()
	s.SocialEdgeMeta["a"] = map[state.EntityID]state.SocialEdgeMeta{"b": {TruceExpiry: 5}}
	bus := eventbus.New()
	var expired []string
	bus.On(eventbus.EventTruceExpired, func(ev eventbus.Event) {
		payload := ev.Payload.(map[string]any)
		expired = append(expired, string(payload["a"].(state.EntityID))+"-"+string(payload["b"].(state.EntityID)))
	})

	SweepTruces(s, bus, 4)
	bus.Flush()
	bus.Dispatch()
	if len(expired) != 0 {
		t.Fatalf("truce should not expire before tick 5, got %v", expired)
	}

	SweepTruces(s, bus, 5)
	bus.Flush()
	bus.Dispatch()
	if len(expired) != 1 {
		t.Fatalf("expected exactly one truce expiry event at tick 5, got %d", len(expired))
	}
	if s.SocialEdgeMeta["a"]["b"].TruceExpiry != 0 {
		t.Fatal("expected expired truce's expiry reset to 0")
	}
}

func TestDeriveGroupsFindsConnectedComponent(t *testing.T) {
	s := state.NewState()
	g := New()
	g.set("a", "b", 0.9)
	g.set("b", "a", 0.9)
	g.set("b", "c", 0.8)
	g.set("c", "b", 0.8)
	g.set("z", "y", 0.1) // below SocialGroupThreshold, must not join any group
	g.set("y", "z", 0.1)
	g.dirty = true

	bus := eventbus.New()
	intervalTicks := uint64(config.SocialGroupDerivationPeriod / config.FastRate)
	g.DeriveGroups(s, bus, intervalTicks)

	if len(g.Groups) != 1 {
		t.Fatalf("expected exactly one derived group, got %d", len(g.Groups))
	}
	grp := g.Groups[0]
	if len(grp.Members) != 3 {
		t.Fatalf("expected a,b,c in one component, got %v", grp.Members)
	}
	if grp.Leader == "" {
		t.Fatal("expected a non-empty leader")
	}
}

func TestDeriveGroupsSkipsWhenNotDirty(t *testing.T) {
	s := state.NewState()
	g := New()
	g.set("a", "b", 0.9)
	g.set("b", "a", 0.9)
	g.dirty = false

	intervalTicks := uint64(config.SocialGroupDerivationPeriod / config.FastRate)
	g.DeriveGroups(s, nil, intervalTicks)
	if g.Groups != nil {
		t.Fatal("expected no groups derived while the graph is clean")
	}
}
