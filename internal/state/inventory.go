package state

import "github.com/talgya/simkernel/internal/config"

// ResourceType enumerates the kernel's tradeable/storable resources (§3).
type ResourceType string

const (
	ResourceWood         ResourceType = "wood"
	ResourceStone        ResourceType = "stone"
	ResourceFood         ResourceType = "food"
	ResourceWater        ResourceType = "water"
	ResourceRareMaterial ResourceType = "rare_materials"
	ResourceMetal        ResourceType = "metal"
)

// AllResourceTypes lists every resource type, used when iterating
// deterministically over an inventory.
var AllResourceTypes = []ResourceType{
	ResourceWood, ResourceStone, ResourceFood, ResourceWater, ResourceRareMaterial, ResourceMetal,
}

// Inventory maps resource type to non-negative integer amount, bounded by
// a scalar capacity: Σ(amounts) ≤ capacity (§3 invariant).
type Inventory struct {
	OwnerID  EntityID             `json:"owner_id"`
	Amounts  map[ResourceType]int `json:"amounts"`
	Capacity int                  `json:"capacity"`
}

// NewAgentInventory creates a per-agent inventory at the default capacity.
func NewAgentInventory(owner EntityID) *Inventory {
	return &Inventory{OwnerID: owner, Amounts: make(map[ResourceType]int), Capacity: config.DefaultAgentInventoryCapacity}
}

// Total returns Σ(amounts).
func (inv *Inventory) Total() int {
	total := 0
	for _, v := range inv.Amounts {
		total += v
	}
	return total
}

// Remaining returns the unused capacity.
func (inv *Inventory) Remaining() int {
	r := inv.Capacity - inv.Total()
	if r < 0 {
		return 0
	}
	return r
}

// StockpileType tags a stockpile's intended contents.
type StockpileType string

const (
	StockpileGeneral   StockpileType = "general"
	StockpileFood      StockpileType = "food"
	StockpileMaterials StockpileType = "materials"
)

// Stockpile is an inventory bound to a zone with a type tag (§3).
type Stockpile struct {
	ZoneID    EntityID      `json:"zone_id"`
	Type      StockpileType `json:"type"`
	Inventory *Inventory    `json:"inventory"`
}

// NewStockpile creates a stockpile-backed inventory at the given capacity.
func NewStockpile(zoneID EntityID, kind StockpileType, capacity int) *Stockpile {
	return &Stockpile{
		ZoneID: zoneID,
		Type:   kind,
		Inventory: &Inventory{
			OwnerID:  zoneID,
			Amounts:  make(map[ResourceType]int),
			Capacity: capacity,
		},
	}
}

// ReservationCost is the (wood, stone) cost a reservation claims against
// future stockpile/global supply (§3).
type ReservationCost struct {
	Wood  int
	Stone int
}

// Reservation is a named intent to consume a cost against future supply.
type Reservation struct {
	TaskID    EntityID
	Cost      ReservationCost
	CreatedAt uint64 // tick of creation, used for cleanupStale
}
