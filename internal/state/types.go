// Package state holds the single authoritative world record (§3 of the
// kernel spec): agents, entities, zones, inventories, social edges, tasks
// and the rest of the data model every subsystem reads and mutates through
// owning handles.
package state

import "github.com/talgya/simkernel/internal/config"

// EntityID is an opaque, stable identifier for an agent or entity.
type EntityID string

// LifeStage classifies an agent's age bracket.
type LifeStage string

const (
	StageChild LifeStage = "child"
	StageAdult LifeStage = "adult"
	StageElder LifeStage = "elder"
)

// Traits are five scalar personality axes in [0,1].
type Traits struct {
	Cooperation float64 `json:"cooperation"`
	Aggression  float64 `json:"aggression"`
	Diligence   float64 `json:"diligence"`
	Curiosity   float64 `json:"curiosity"`
	Neuroticism float64 `json:"neuroticism"`
}

// Point is a 2D world position.
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Skills tracks an agent's capability scalars in [0,1], feeding the AI
// planner's role/decision bundle.
type Skills struct {
	Farming  float64 `json:"farming"`
	Crafting float64 `json:"crafting"`
	Combat   float64 `json:"combat"`
	Trade    float64 `json:"trade"`
}

// Agent is the semantic record for a living simulated person (§3).
type Agent struct {
	ID         EntityID  `json:"id"`
	Name       string    `json:"name"`
	Sex        string    `json:"sex"`
	AgeYears   float64   `json:"age_years"`
	LifeStage  LifeStage `json:"life_stage"`
	Generation int       `json:"generation"`
	IsDead     bool      `json:"is_dead"`

	FatherID *EntityID `json:"father_id,omitempty"`
	MotherID *EntityID `json:"mother_id,omitempty"`

	Traits   Traits `json:"traits"`
	Skills   Skills `json:"skills"`
	Position Point  `json:"position"`

	Immortal     bool   `json:"immortal"`
	SocialStatus string `json:"social_status"`

	Inventory *Inventory `json:"-"`

	BornTick uint64 `json:"born_tick"`
}

// EntityType classifies a generalized simulation object.
type EntityType string

const (
	EntityAgent  EntityType = "agent"
	EntityAnimal EntityType = "animal"
	EntityObject EntityType = "object"
)

// Entity is the generalized simulation object superset (§3): agents,
// animals, props. Animals are first-class entities tagged "animal" — see
// the Open Question resolution on animal-as-entity synthesis in combat.
type Entity struct {
	ID       EntityID           `json:"id"`
	Type     EntityType         `json:"type"`
	Position Point              `json:"position"`
	Stats    map[string]float64 `json:"stats"` // health, stamina, morale, stress, wounds, money...
	Tags     map[string]bool    `json:"tags"`
	IsDead   bool               `json:"is_dead"`

	EquippedWeapon string `json:"equipped_weapon,omitempty"` // catalog id, empty if unarmed
}

// StatOrDefault returns a stat value or a default when absent.
func (e *Entity) StatOrDefault(key string, def float64) float64 {
	if e.Stats == nil {
		return def
	}
	if v, ok := e.Stats[key]; ok {
		return v
	}
	return def
}

// SetStat writes a stat, clamping to [lo, hi].
func (e *Entity) SetStat(key string, value, lo, hi float64) {
	if e.Stats == nil {
		e.Stats = make(map[string]float64)
	}
	if value < lo {
		value = lo
	}
	if value > hi {
		value = hi
	}
	e.Stats[key] = value
}

// ZoneType is the semantic purpose of a zone.
type ZoneType string

const (
	ZoneRest      ZoneType = "rest"
	ZoneWork      ZoneType = "work"
	ZoneFood      ZoneType = "food"
	ZoneWater     ZoneType = "water"
	ZoneSocial    ZoneType = "social"
	ZoneStorage   ZoneType = "storage"
	ZoneKitchen   ZoneType = "kitchen"
	ZoneShelter   ZoneType = "shelter"
	ZoneCrafting  ZoneType = "crafting"
	ZoneBedroom   ZoneType = "bedroom"
)

// Bounds is an axis-aligned rectangle.
type Bounds struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	W float64 `json:"w"`
	H float64 `json:"h"`
}

// Contains reports whether p lies within the bounds.
func (b Bounds) Contains(p Point) bool {
	return p.X >= b.X && p.X <= b.X+b.W && p.Y >= b.Y && p.Y <= b.Y+b.H
}

// Overlaps reports whether two bounds' AABBs intersect.
func (b Bounds) Overlaps(o Bounds) bool {
	return b.X < o.X+o.W && b.X+b.W > o.X && b.Y < o.Y+o.H && b.Y+b.H > o.Y
}

// Center returns the bounds' midpoint.
func (b Bounds) Center() Point {
	return Point{X: b.X + b.W/2, Y: b.Y + b.H/2}
}

// Zone is a rectangular region with semantic type and a typed property bag.
type Zone struct {
	ID     EntityID           `json:"id"`
	Type   ZoneType           `json:"type"`
	Bounds Bounds             `json:"bounds"`
	Props  map[string]float64 `json:"props"`

	BuildingLabel     string    `json:"building_label,omitempty"`
	UnderConstruction bool      `json:"under_construction"`
	CraftingStation   bool      `json:"crafting_station"`
	Durability        float64   `json:"durability"`
	MaxDurability     float64   `json:"max_durability"`
	ParentZoneID      *EntityID `json:"parent_zone_id,omitempty"`

	ProductionType string  `json:"production_type,omitempty"` // resource type produced, if any
	BaseYield      float64 `json:"base_yield"`

	Stockpiles []*Stockpile `json:"stockpiles"`
}

// FirstStockpile returns the zone's first stockpile, creating a "general"
// one on demand (§4.9 production semantics).
func (z *Zone) FirstStockpile() *Stockpile {
	if len(z.Stockpiles) == 0 {
		z.Stockpiles = append(z.Stockpiles, NewStockpile(z.ID, StockpileGeneral, config.DefaultStockpileInventoryCapacity))
	}
	return z.Stockpiles[0]
}
