// Package config holds the kernel's tuning constants: rates, budgets,
// thresholds and cadences referenced by every subsystem. A flat constants
// file keeps tunables in one place without a runtime config loader — the
// kernel has no external config surface (see spec §1 Non-goals).
package config

import "time"

// Scheduler rates (§4.1).
const (
	FastRate   = 50 * time.Millisecond
	MediumRate = 250 * time.Millisecond
	SlowRate   = 1000 * time.Millisecond
)

// Command queue (§4.2).
const (
	DefaultCommandQueueSize = 200
	MinTimeScale            = 0.1
	MaxTimeScale            = 10.0
)

// Entity & spatial indices (§4.4).
const (
	IndexRebuildEveryFastTicks = 5
	SpatialGridCellSize        = 50.0
)

// Snapshot pipeline (§4.5).
const (
	TickSnapshotThrottle = 250 * time.Millisecond
)

// AI planner (§4.6).
const (
	AIBatchSize              = 10
	MaxDecisionTimeMS        = 5
	ExploreRange             = 200.0
	ZoneCacheTTL             = 1 * time.Second
	NearestResourceCacheTTL  = 2 * time.Second
	NearestResourceMaxRadius = 500.0
	NearestResourceEarlyExit = 100.0
	MemoryCleanupInterval    = 5 * time.Minute
	GPUNearbyAgentThreshold  = 30

	AgentMoveSpeed      = 4.0 // world units per tick
	WorkContributePerTick = 0.5

	NeedHungerCritical  = 20.0
	NeedThirstCritical  = 20.0
	NeedEnergyCritical  = 15.0
	NeedSocialCritical  = 20.0
	NeedFunCritical     = 15.0
	PriorityHungerGoal  = 10.0
	PriorityThirstGoal  = 10.0
	PriorityRestGoal    = 9.0
	PrioritySocialGoal  = 9.0
	PriorityFunGoal     = 8.0
)

// Combat resolver (§4.7).
const (
	CombatDecisionCadence  = 750 * time.Millisecond
	CombatEngagementRadius = 70.0
	CombatBaseCooldown     = 4 * time.Second
	CombatGPUThreshold     = 30
	CombatBatchThreshold   = 10
)

// Inventory & reservations (§4.8).
const (
	DefaultAgentInventoryCapacity     = 50
	DefaultStockpileInventoryCapacity = 1000
	ReservationMaxAge                 = 5 * time.Minute
	ReservationCleanupAfterNeed       = 2 * time.Minute
	SpoilageMinInterval               = 10 * time.Second
	FoodSpoilageRate                  = 0.02
	WaterSpoilageRate                 = 0.01
)

// Building & production (§4.9).
const (
	WorldExtent                      = 2000.0
	ConstructionMaxPlacementAttempts = 50
	ConstructionWaterExclusionRadius = 60.0
	BuildingMaintenanceInterval      = 5 * time.Second
	BuildingUsageDurabilityEvery     = 10
	ProductionInterval               = 12 * time.Second
	ProductionMaxWorkersPerZone      = 2
	ProductionTillageTiles           = 3
)

// Household (§4.10).
const (
	HouseholdObserverInterval  = 5 * time.Second
	HouseholdHighOccupancyFrac = 0.8
	HouseholdSharedCapacity    = 100
)

// Social graph & reputation (§4.11).
const (
	SocialProximityRadius       = 100.0
	SocialDecayInterval         = 2 * time.Second
	SocialGroupThreshold        = 0.6
	SocialGroupDerivationPeriod = 1 * time.Second
	SocialRallyMinMembers       = 3
	SocialRallyMinCohesion      = 0.7
	SocialGPUThreshold          = 20
	SocialSubBatches            = 10
	ReputationInitial           = 0.5
	ReputationTarget            = 0.5
	ReputationHistoryMax        = 50
)

// Governance (§4.12).
const (
	GovernancePollInterval = 30 * time.Second

	// Per-capita food/water thresholds below which a shortage demand is
	// raised (emergency) and above which it is cleared (safe); the gap
	// between them is the hysteresis band that prevents flapping.
	FoodPerCapitaEmergency  = 2.0
	FoodPerCapitaSafe       = 5.0
	WaterPerCapitaEmergency = 2.0
	WaterPerCapitaSafe      = 5.0

	GovernanceMaxReassignPerPoll = 5
)

// Auto-save cadence (§6).
const AutoSaveInterval = 60 * time.Second
