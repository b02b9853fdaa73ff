package household

import (
	"testing"

	"github.com/talgya/simkernel/internal/eventbus"
	"github.com/talgya/simkernel/internal/state"
)

func newShelterZone(s *state.State, id state.EntityID, w, h float64) {
	s.Zones[id] = &state.Zone{ID: id, Type: state.ZoneShelter, Bounds: state.Bounds{W: w, H: h}}
}

func TestEnsureHouseholdDerivesCapacityFromArea(t *testing.T) {
	s := state.NewState()
	newShelterZone(s, "shelter-1", 10, 10) // area 100 -> capacity 5

	h, err := EnsureHousehold(s, "shelter-1")
	if err != nil {
		t.Fatalf("EnsureHousehold: %v", err)
	}
	if h.Capacity != 5 {
		t.Fatalf("expected capacity 5 for a 10x10 shelter, got %d", h.Capacity)
	}

	// A second call must return the same household, not recompute/overwrite it.
	again, err := EnsureHousehold(s, "shelter-1")
	if err != nil {
		t.Fatalf("EnsureHousehold (second call): %v", err)
	}
	if again != h {
		t.Fatal("expected the same household instance on a repeat ensure")
	}
}

func TestEnsureHouseholdCapacityFloorsAtOne(t *testing.T) {
	s := state.NewState()
	newShelterZone(s, "tiny-1", 1, 1) // area 1 -> floor division gives 0, floored to 1

	h, err := EnsureHousehold(s, "tiny-1")
	if err != nil {
		t.Fatalf("EnsureHousehold: %v", err)
	}
	if h.Capacity != 1 {
		t.Fatalf("expected capacity floored at 1, got %d", h.Capacity)
	}
}

func TestEnsureHouseholdFailsForMissingZone(t *testing.T) {
	s := state.NewState()
	if _, err := EnsureHousehold(s, "does-not-exist"); err == nil {
		t.Fatal("expected an error for a non-existent zone")
	}
}

func TestAssignToHouseIsIdempotent(t *testing.T) {
	s := state.NewState()
	newShelterZone(s, "shelter-1", 20, 20) // capacity 20
	bus := eventbus.New()

	if err := AssignToHouse(s, bus, "shelter-1", "agent-1", "farmer", 0); err != nil {
		t.Fatalf("first assign: %v", err)
	}
	if err := AssignToHouse(s, bus, "shelter-1", "agent-1", "farmer", 5); err != nil {
		t.Fatalf("repeat assign should be a no-op, got error: %v", err)
	}

	h := s.Households["shelter-1"]
	if len(h.Members) != 1 {
		t.Fatalf("expected exactly one member after a repeat assign, got %d", len(h.Members))
	}
	if h.Members[0].JoinedAt != 0 {
		t.Fatalf("repeat assign must not overwrite the original JoinedAt, got %d", h.Members[0].JoinedAt)
	}
}

func TestAssignToHouseFailsAtCapacity(t *testing.T) {
	s := state.NewState()
	newShelterZone(s, "shelter-1", 1, 1) // capacity 1
	bus := eventbus.New()

	if err := AssignToHouse(s, bus, "shelter-1", "agent-1", "farmer", 0); err != nil {
		t.Fatalf("first assign: %v", err)
	}

	var noFreeHouses int
	bus.On(eventbus.EventNoFreeHouses, func(eventbus.Event) { noFreeHouses++ })

	err := AssignToHouse(s, bus, "shelter-1", "agent-2", "farmer", 1)
	if err == nil {
		t.Fatal("expected an at-capacity error for the second agent")
	}
	bus.Flush()
	bus.Dispatch()
	if noFreeHouses != 1 {
		t.Fatalf("expected exactly one no-free-houses event, got %d", noFreeHouses)
	}

	h := s.Households["shelter-1"]
	if len(h.Members) != 1 {
		t.Fatalf("rejected assignment must not add a member, got %d", len(h.Members))
	}
}

func TestRemoveFromHouseDropsMember(t *testing.T) {
	s := state.NewState()
	newShelterZone(s, "shelter-1", 20, 20)
	bus := eventbus.New()
	if err := AssignToHouse(s, bus, "shelter-1", "agent-1", "farmer", 0); err != nil {
		t.Fatalf("assign: %v", err)
	}

	RemoveFromHouse(s, "shelter-1", "agent-1")
	if s.Households["shelter-1"].HasMember("agent-1") {
		t.Fatal("expected agent removed from household")
	}

	// Removing a non-member or from a non-existent household must not panic.
	RemoveFromHouse(s, "shelter-1", "agent-1")
	RemoveFromHouse(s, "no-such-zone", "agent-1")
}

func TestDepositAndWithdrawTransferAgainstSharedPool(t *testing.T) {
	s := state.NewState()
	newShelterZone(s, "shelter-1", 20, 20)
	bus := eventbus.New()
	if err := AssignToHouse(s, bus, "shelter-1", "agent-1", "farmer", 0); err != nil {
		t.Fatalf("assign: %v", err)
	}
	personal := s.AgentInventories["agent-1"]
	if personal == nil {
		personal = state.NewAgentInventory("agent-1")
		s.AgentInventories["agent-1"] = personal
	}
	personal.Amounts[state.ResourceFood] = 10

	if err := Deposit(s, "shelter-1", "agent-1", state.ResourceFood, 6); err != nil {
		t.Fatalf("deposit: %v", err)
	}
	if personal.Amounts[state.ResourceFood] != 4 {
		t.Fatalf("expected 4 left in personal inventory, got %d", personal.Amounts[state.ResourceFood])
	}
	if s.Households["shelter-1"].Inventory.Amounts[state.ResourceFood] != 6 {
		t.Fatalf("expected 6 deposited into the shared pool, got %d", s.Households["shelter-1"].Inventory.Amounts[state.ResourceFood])
	}

	if err := Withdraw(s, "shelter-1", "agent-1", state.ResourceFood, 2); err != nil {
		t.Fatalf("withdraw: %v", err)
	}
	if personal.Amounts[state.ResourceFood] != 6 {
		t.Fatalf("expected 6 back in personal inventory, got %d", personal.Amounts[state.ResourceFood])
	}
}

func TestCheckHomelessEmitsForUnhousedAgents(t *testing.T) {
	s := state.NewState()
	newShelterZone(s, "shelter-1", 20, 20)
	bus := eventbus.New()

	housed := &state.Agent{ID: "housed-1"}
	homeless := &state.Agent{ID: "homeless-1"}
	s.AddAgent(housed)
	s.AddAgent(homeless)
	if err := AssignToHouse(s, bus, "shelter-1", housed.ID, "farmer", 0); err != nil {
		t.Fatalf("assign: %v", err)
	}

	var got []state.EntityID
	bus.On(eventbus.EventAgentsHomeless, func(ev eventbus.Event) {
		payload := ev.Payload.(map[string]any)
		got = payload["agent_ids"].([]state.EntityID)
	})

	CheckHomeless(s, bus)
	bus.Flush()
	bus.Dispatch()

	if len(got) != 1 || got[0] != homeless.ID {
		t.Fatalf("expected only %s reported homeless, got %v", homeless.ID, got)
	}
}
