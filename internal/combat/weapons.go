package combat

import (
	"time"

	"github.com/talgya/simkernel/internal/state"
)

// WeaponDef describes a craftable/equippable weapon's combat stats (§4.7):
// a base damage roll, a crit chance/multiplier, an engagement range, and an
// optional attack-speed override for the resolver's per-attacker cooldown.
type WeaponDef struct {
	ID             string                `json:"id"`
	Name           string                `json:"name"`
	BaseDamage     float64               `json:"base_damage"`
	CritChance     float64               `json:"crit_chance"`
	CritMultiplier float64               `json:"crit_multiplier"`
	Range          float64               `json:"range"`
	AttackSpeed    time.Duration         `json:"attack_speed,omitempty"` // 0 means fall back to config.CombatBaseCooldown
	CraftCost      state.ReservationCost `json:"craft_cost"`
}

// Catalog is the fixed weapon table; unarmed combat falls back to Unarmed
// when an entity's EquippedWeapon is empty or unrecognized.
var Catalog = map[string]WeaponDef{
	"unarmed": {
		ID: "unarmed", Name: "Fists",
		BaseDamage: 3, CritChance: 0.05, CritMultiplier: 1.5, Range: 5,
	},
	"wooden_club": {
		ID: "wooden_club", Name: "Wooden Club",
		BaseDamage: 8, CritChance: 0.1, CritMultiplier: 1.5, Range: 8,
		AttackSpeed: 3500 * time.Millisecond,
		CraftCost:   state.ReservationCost{Wood: 4},
	},
	"spear": {
		ID: "spear", Name: "Spear",
		BaseDamage: 12, CritChance: 0.1, CritMultiplier: 1.75, Range: 15,
		AttackSpeed: 3 * time.Second,
		CraftCost:   state.ReservationCost{Wood: 6, Stone: 2},
	},
	"sword": {
		ID: "sword", Name: "Sword",
		BaseDamage: 18, CritChance: 0.15, CritMultiplier: 2.0, Range: 10,
		AttackSpeed: 2500 * time.Millisecond,
		CraftCost:   state.ReservationCost{Wood: 2, Stone: 8},
	},
}

// WeaponFor returns the catalog entry for an entity's equipped weapon,
// defaulting to unarmed.
func WeaponFor(e *state.Entity) WeaponDef {
	if e.EquippedWeapon == "" {
		return Catalog["unarmed"]
	}
	if w, ok := Catalog[e.EquippedWeapon]; ok {
		return w
	}
	return Catalog["unarmed"]
}
