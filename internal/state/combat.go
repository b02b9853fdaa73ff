package state

// CombatLogKind tags the variant of a combat log entry (§3).
type CombatLogKind string

const (
	LogEngaged        CombatLogKind = "engaged"
	LogHit            CombatLogKind = "hit"
	LogKill           CombatLogKind = "kill"
	LogWeaponCrafted  CombatLogKind = "weapon_crafted"
	LogWeaponEquipped CombatLogKind = "weapon_equipped"
)

// CombatLogEntry is a tagged-variant combat event record (§3).
type CombatLogEntry struct {
	UUID      string
	Kind      CombatLogKind
	ActorID   EntityID
	TargetID  EntityID
	ActorPos  Point
	TargetPos Point
	WeaponID  string
	Damage    float64
	Tick      uint64
}
