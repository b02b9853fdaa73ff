package state

// GoalType enumerates the kinds of AI goals (§4.6).
type GoalType string

const (
	GoalEat      GoalType = "eat"
	GoalDrink    GoalType = "drink"
	GoalRest     GoalType = "rest"
	GoalSocial   GoalType = "socialize"
	GoalFun      GoalType = "fun"
	GoalWork     GoalType = "work"
	GoalExplore  GoalType = "explore"
	GoalGather   GoalType = "gather_food"
	GoalCombat   GoalType = "combat"
)

// GoalStatus is the goal lifecycle state (§4.6): none → active → completed
// | failed | invalidated.
type GoalStatus string

const (
	GoalNone        GoalStatus = "none"
	GoalActive      GoalStatus = "active"
	GoalCompleted   GoalStatus = "completed"
	GoalFailed      GoalStatus = "failed"
	GoalInvalidated GoalStatus = "invalidated"
)

// TargetRef points a goal or action at an entity, a zone, or a raw position.
type TargetRef struct {
	EntityID *EntityID
	ZoneID   *EntityID
	Position *Point
}

// Goal is a per-agent current or queued objective (§3 AI State).
type Goal struct {
	ID        EntityID
	Type      GoalType
	Priority  float64
	Target    TargetRef
	CreatedAt uint64
	ExpiresAt uint64
	Data      map[string]string
	Status    GoalStatus
}

// ActionKind enumerates in-flight action kinds executed for a goal.
type ActionKind string

const (
	ActionMove     ActionKind = "move"
	ActionGather   ActionKind = "gather"
	ActionWork     ActionKind = "work_contribute"
	ActionDeposit  ActionKind = "deposit"
	ActionWithdraw ActionKind = "withdraw"
	ActionInteract ActionKind = "interact"
)

// Action is an agent's current in-flight action.
type Action struct {
	Type   ActionKind
	Target TargetRef
	Params map[string]string
}

// ResourceMemory records a known resource location for an agent.
type ResourceMemory struct {
	ResourceType string
	Position     Point
	LastSeenTick uint64
}

// AIState is the per-agent AI record (§3).
type AIState struct {
	AgentID          EntityID
	CurrentGoal      *Goal
	GoalQueue        []Goal
	CurrentAction    *Action
	Memory           map[string]ResourceMemory // keyed by resourceType
	LastMemoryClean  uint64
	OffDuty          bool
	LastDecisionTime uint64
}
