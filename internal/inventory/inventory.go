// Package inventory implements resource transfer and reservation (§4.8):
// atomic add/remove/transfer against capacity, and a reserve → consume or
// release lifecycle stockpiles and the global material pool share.
package inventory

import (
	"fmt"

	"github.com/talgya/simkernel/internal/state"
)

// Add increases amount of rt by delta, failing if it would exceed
// capacity. Never partially applies.
func Add(inv *state.Inventory, rt state.ResourceType, delta int) error {
	if delta < 0 {
		return fmt.Errorf("inventory add: negative delta %d", delta)
	}
	if inv.Total()+delta > inv.Capacity {
		return fmt.Errorf("inventory add: capacity exceeded (have %d, capacity %d, want +%d)", inv.Total(), inv.Capacity, delta)
	}
	if inv.Amounts == nil {
		inv.Amounts = make(map[state.ResourceType]int)
	}
	inv.Amounts[rt] += delta
	return nil
}

// Remove decreases amount of rt by delta, failing if insufficient stock.
// Never partially applies.
func Remove(inv *state.Inventory, rt state.ResourceType, delta int) error {
	if delta < 0 {
		return fmt.Errorf("inventory remove: negative delta %d", delta)
	}
	if inv.Amounts[rt] < delta {
		return fmt.Errorf("inventory remove: insufficient %s (have %d, want %d)", rt, inv.Amounts[rt], delta)
	}
	inv.Amounts[rt] -= delta
	return nil
}

// Transfer moves delta units of rt from src to dst atomically: on failure
// neither inventory is mutated.
func Transfer(src, dst *state.Inventory, rt state.ResourceType, delta int) error {
	if src.Amounts[rt] < delta {
		return fmt.Errorf("inventory transfer: insufficient %s in source (have %d, want %d)", rt, src.Amounts[rt], delta)
	}
	if dst.Total()+delta > dst.Capacity {
		return fmt.Errorf("inventory transfer: destination capacity exceeded (have %d, capacity %d, want +%d)", dst.Total(), dst.Capacity, delta)
	}
	src.Amounts[rt] -= delta
	if dst.Amounts == nil {
		dst.Amounts = make(map[state.ResourceType]int)
	}
	dst.Amounts[rt] += delta
	return nil
}

// TransferMulti moves every resource in amounts from src to dst as one
// all-or-nothing operation (§4.8 transferBetweenAgents): every source
// balance and the destination's total capacity are validated up front, and
// nothing is mutated unless every leg would succeed, so a failure leaves
// both inventories byte-identical to their pre-call state.
func TransferMulti(src, dst *state.Inventory, amounts map[state.ResourceType]int) error {
	totalDelta := 0
	for rt, delta := range amounts {
		if delta < 0 {
			return fmt.Errorf("inventory transfer: negative amount for %s", rt)
		}
		if src.Amounts[rt] < delta {
			return fmt.Errorf("inventory transfer: insufficient %s in source (have %d, want %d)", rt, src.Amounts[rt], delta)
		}
		totalDelta += delta
	}
	if dst.Total()+totalDelta > dst.Capacity {
		return fmt.Errorf("inventory transfer: destination capacity exceeded (have %d, capacity %d, want +%d)", dst.Total(), dst.Capacity, totalDelta)
	}

	if dst.Amounts == nil {
		dst.Amounts = make(map[state.ResourceType]int)
	}
	for rt, delta := range amounts {
		src.Amounts[rt] -= delta
		dst.Amounts[rt] += delta
	}
	return nil
}
