package inventory

import (
	"fmt"

	"github.com/talgya/simkernel/internal/config"
	"github.com/talgya/simkernel/internal/state"
)

// Reserve claims cost against currently-available global+stockpile supply
// for taskID. Idempotent per taskID: a second call for a taskID that
// already holds a reservation returns the existing reservation without
// re-checking availability against its own prior claim (AvailableGlobal
// already deducts every live reservation, including this one, so checking
// again here would spuriously fail a repeat reserve of the same cost).
func Reserve(s *state.State, taskID state.EntityID, cost state.ReservationCost, tick uint64) (*state.Reservation, error) {
	if existing, ok := s.Reservations[taskID]; ok {
		return existing, nil
	}
	avail := s.AvailableGlobal()
	if avail.Wood < cost.Wood || avail.Stone < cost.Stone {
		return nil, fmt.Errorf("reserve %s: insufficient supply (have wood=%d stone=%d, want wood=%d stone=%d)",
			taskID, avail.Wood, avail.Stone, cost.Wood, cost.Stone)
	}
	r := &state.Reservation{TaskID: taskID, Cost: cost, CreatedAt: tick}
	s.Reservations[taskID] = r
	return r, nil
}

// Release cancels a reservation without drawing any material.
func Release(s *state.State, taskID state.EntityID) {
	delete(s.Reservations, taskID)
}

// Consume draws a reservation's cost from stockpiles first, then the
// global material pool, in that order. If supply runs out partway through,
// whatever was already drawn is refunded before returning the error, so a
// failed consume never leaves the world short of material it claims to
// still have.
func Consume(s *state.State, taskID state.EntityID) error {
	r, ok := s.Reservations[taskID]
	if !ok {
		return fmt.Errorf("consume %s: no active reservation", taskID)
	}

	drawnWood, drawnStone, err := drawCost(s, r.Cost)
	if err != nil {
		refund(s, drawnWood, drawnStone)
		return fmt.Errorf("consume %s: %w", taskID, err)
	}
	delete(s.Reservations, taskID)
	return nil
}

func drawCost(s *state.State, cost state.ReservationCost) (drawnWood, drawnStone int, err error) {
	needWood, needStone := cost.Wood, cost.Stone

	for _, z := range s.Zones {
		for _, sp := range z.Stockpiles {
			if needWood > 0 {
				take := min(needWood, sp.Inventory.Amounts[state.ResourceWood])
				sp.Inventory.Amounts[state.ResourceWood] -= take
				needWood -= take
				drawnWood += take
			}
			if needStone > 0 {
				take := min(needStone, sp.Inventory.Amounts[state.ResourceStone])
				sp.Inventory.Amounts[state.ResourceStone] -= take
				needStone -= take
				drawnStone += take
			}
		}
	}

	if needWood > 0 {
		take := min(needWood, s.GlobalMaterials[state.ResourceWood])
		s.GlobalMaterials[state.ResourceWood] -= take
		needWood -= take
		drawnWood += take
	}
	if needStone > 0 {
		take := min(needStone, s.GlobalMaterials[state.ResourceStone])
		s.GlobalMaterials[state.ResourceStone] -= take
		needStone -= take
		drawnStone += take
	}

	if needWood > 0 || needStone > 0 {
		return drawnWood, drawnStone, fmt.Errorf("short by wood=%d stone=%d", needWood, needStone)
	}
	return drawnWood, drawnStone, nil
}

// refund returns drawn material to the global pool — the simplest
// reversible sink, since drawCost no longer knows which specific stockpile
// each unit came from once drained.
func refund(s *state.State, wood, stone int) {
	s.GlobalMaterials[state.ResourceWood] += wood
	s.GlobalMaterials[state.ResourceStone] += stone
}

// CleanupStale releases reservations older than config.ReservationMaxAge,
// expressed in ticks, so an abandoned task never holds material forever.
func CleanupStale(s *state.State, tick uint64) {
	maxAgeTicks := uint64(config.ReservationMaxAge / config.FastRate)
	for id, r := range s.Reservations {
		if tick-r.CreatedAt > maxAgeTicks {
			delete(s.Reservations, id)
		}
	}
}
