package inventory

import (
	"testing"

	"github.com/talgya/simkernel/internal/state"
)

func newInv(capacity int, amounts map[state.ResourceType]int) *state.Inventory {
	inv := &state.Inventory{OwnerID: "owner", Amounts: make(map[state.ResourceType]int), Capacity: capacity}
	for rt, v := range amounts {
		inv.Amounts[rt] = v
	}
	return inv
}

func TestAddRejectsOverCapacity(t *testing.T) {
	inv := newInv(10, map[state.ResourceType]int{state.ResourceWood: 8})
	if err := Add(inv, state.ResourceWood, 3); err == nil {
		t.Fatal("expected capacity-exceeded error")
	}
	if inv.Amounts[state.ResourceWood] != 8 {
		t.Fatalf("failed add should not mutate inventory, got %d", inv.Amounts[state.ResourceWood])
	}
}

func TestRemoveRejectsInsufficientStock(t *testing.T) {
	inv := newInv(10, map[state.ResourceType]int{state.ResourceWood: 2})
	if err := Remove(inv, state.ResourceWood, 5); err == nil {
		t.Fatal("expected insufficient-stock error")
	}
	if inv.Amounts[state.ResourceWood] != 2 {
		t.Fatalf("failed remove should not mutate inventory, got %d", inv.Amounts[state.ResourceWood])
	}
}

func TestTransferMovesBetweenInventories(t *testing.T) {
	src := newInv(10, map[state.ResourceType]int{state.ResourceWood: 6})
	dst := newInv(10, nil)
	if err := Transfer(src, dst, state.ResourceWood, 4); err != nil {
		t.Fatalf("transfer: %v", err)
	}
	if src.Amounts[state.ResourceWood] != 2 {
		t.Fatalf("expected source left with 2, got %d", src.Amounts[state.ResourceWood])
	}
	if dst.Amounts[state.ResourceWood] != 4 {
		t.Fatalf("expected destination holding 4, got %d", dst.Amounts[state.ResourceWood])
	}
}

// TestTransferMultiAtomicSuccess covers the all-succeed path of the §4.8
// transferBetweenAgents scenario: multiple resources move in one call.
func TestTransferMultiAtomicSuccess(t *testing.T) {
	src := newInv(50, map[state.ResourceType]int{state.ResourceWood: 10, state.ResourceStone: 5, state.ResourceFood: 3})
	dst := newInv(50, map[state.ResourceType]int{state.ResourceWood: 1})

	err := TransferMulti(src, dst, map[state.ResourceType]int{
		state.ResourceWood:  4,
		state.ResourceStone: 5,
		state.ResourceFood:  2,
	})
	if err != nil {
		t.Fatalf("TransferMulti: %v", err)
	}
	if src.Amounts[state.ResourceWood] != 6 || src.Amounts[state.ResourceStone] != 0 || src.Amounts[state.ResourceFood] != 1 {
		t.Fatalf("unexpected source balances after transfer: %+v", src.Amounts)
	}
	if dst.Amounts[state.ResourceWood] != 5 || dst.Amounts[state.ResourceStone] != 5 || dst.Amounts[state.ResourceFood] != 2 {
		t.Fatalf("unexpected destination balances after transfer: %+v", dst.Amounts)
	}
}

// TestTransferMultiFailsAtomically checks that a shortfall on one resource
// leaves every balance untouched, including the legs that would have
// individually succeeded.
func TestTransferMultiFailsAtomically(t *testing.T) {
	src := newInv(50, map[state.ResourceType]int{state.ResourceWood: 10, state.ResourceStone: 1})
	dst := newInv(50, nil)

	err := TransferMulti(src, dst, map[state.ResourceType]int{
		state.ResourceWood:  4,
		state.ResourceStone: 5, // short by 4
	})
	if err == nil {
		t.Fatal("expected insufficient-stock error on the stone leg")
	}
	if src.Amounts[state.ResourceWood] != 10 || src.Amounts[state.ResourceStone] != 1 {
		t.Fatalf("source mutated despite atomic failure: %+v", src.Amounts)
	}
	if dst.Total() != 0 {
		t.Fatalf("destination mutated despite atomic failure: %+v", dst.Amounts)
	}
}

func TestTransferMultiFailsOnDestinationCapacity(t *testing.T) {
	src := newInv(50, map[state.ResourceType]int{state.ResourceWood: 10, state.ResourceStone: 10})
	dst := newInv(5, map[state.ResourceType]int{state.ResourceWood: 3})

	err := TransferMulti(src, dst, map[state.ResourceType]int{
		state.ResourceWood:  1,
		state.ResourceStone: 5, // total delta 6, dst only has 2 free
	})
	if err == nil {
		t.Fatal("expected destination-capacity error")
	}
	if src.Amounts[state.ResourceWood] != 10 || src.Amounts[state.ResourceStone] != 10 {
		t.Fatalf("source mutated despite atomic failure: %+v", src.Amounts)
	}
}

func TestReserveIsIdempotentPerTask(t *testing.T) {
	s := state.NewState()
	s.GlobalMaterials[state.ResourceWood] = 10
	s.GlobalMaterials[state.ResourceStone] = 10

	cost := state.ReservationCost{Wood: 6, Stone: 4}
	first, err := Reserve(s, "task-1", cost, 0)
	if err != nil {
		t.Fatalf("first reserve: %v", err)
	}

	// A second reserve call for the same task must not re-check
	// availability against its own prior claim (which AvailableGlobal
	// already subtracts), and must return the identical reservation.
	second, err := Reserve(s, "task-1", cost, 5)
	if err != nil {
		t.Fatalf("second reserve should be idempotent, got error: %v", err)
	}
	if second != first {
		t.Fatal("expected the same reservation instance back from a repeat reserve")
	}
	if len(s.Reservations) != 1 {
		t.Fatalf("expected exactly one reservation, got %d", len(s.Reservations))
	}
}

func TestReserveFailsWhenSupplyShort(t *testing.T) {
	s := state.NewState()
	s.GlobalMaterials[state.ResourceWood] = 2

	if _, err := Reserve(s, "task-1", state.ReservationCost{Wood: 5}, 0); err == nil {
		t.Fatal("expected insufficient-supply error")
	}
	if len(s.Reservations) != 0 {
		t.Fatalf("no reservation should be registered on failure, got %d", len(s.Reservations))
	}
}

func TestConsumeDrawsStockpileBeforeGlobal(t *testing.T) {
	s := state.NewState()
	s.GlobalMaterials[state.ResourceWood] = 10
	zone := &state.Zone{ID: "zone-1", Type: state.ZoneStorage}
	sp := zone.FirstStockpile()
	sp.Inventory.Amounts[state.ResourceWood] = 3
	s.Zones[zone.ID] = zone

	if _, err := Reserve(s, "task-1", state.ReservationCost{Wood: 5}, 0); err != nil {
		t.Fatalf("reserve: %v", err)
	}
	if err := Consume(s, "task-1"); err != nil {
		t.Fatalf("consume: %v", err)
	}
	if sp.Inventory.Amounts[state.ResourceWood] != 0 {
		t.Fatalf("expected stockpile drained first, got %d left", sp.Inventory.Amounts[state.ResourceWood])
	}
	if s.GlobalMaterials[state.ResourceWood] != 8 {
		t.Fatalf("expected global pool to cover the remaining 2, got %d", s.GlobalMaterials[state.ResourceWood])
	}
	if _, ok := s.Reservations["task-1"]; ok {
		t.Fatal("expected reservation cleared after consume")
	}
}

func TestReleaseCancelsWithoutDrawingMaterial(t *testing.T) {
	s := state.NewState()
	s.GlobalMaterials[state.ResourceWood] = 10

	if _, err := Reserve(s, "task-1", state.ReservationCost{Wood: 5}, 0); err != nil {
		t.Fatalf("reserve: %v", err)
	}
	Release(s, "task-1")
	if _, ok := s.Reservations["task-1"]; ok {
		t.Fatal("expected reservation removed")
	}
	if s.GlobalMaterials[state.ResourceWood] != 10 {
		t.Fatalf("release must not draw material, got %d", s.GlobalMaterials[state.ResourceWood])
	}
}
