package state

// TaskStatus is the lifecycle stage of a cooperative work item (§3).
type TaskStatus string

const (
	TaskCreated    TaskStatus = "created"
	TaskInProgress TaskStatus = "in_progress"
	TaskCompleted  TaskStatus = "completed"
	TaskCancelled  TaskStatus = "cancelled"
)

// Task is a cooperative work item with required-work units, a contributor
// map and optional resource requirements (§3).
type Task struct {
	ID              EntityID
	Type            string
	RequiredWork    float64
	Contributed     map[EntityID]float64
	MinWorkers      int
	ResourceNeeds   ReservationCost
	Bounds          *Bounds
	ZoneID          *EntityID
	Metadata        map[string]string
	Status          TaskStatus
}

// TotalContribution sums all contributor work so far.
func (t *Task) TotalContribution() float64 {
	total := 0.0
	for _, v := range t.Contributed {
		total += v
	}
	return total
}

// IsComplete reports whether accumulated work meets the requirement.
func (t *Task) IsComplete() bool {
	return t.TotalContribution() >= t.RequiredWork
}

// ConstructionJob links a zone under construction to a reservation and
// optional task (§3).
type ConstructionJob struct {
	ZoneID        EntityID
	Label         string
	BuildingKey   string // catalog key, e.g. "house" — determines the zone's type on completion
	ReservationID EntityID // == TaskID of the backing reservation
	TaskID        *EntityID
	CompletesAt   uint64 // tick timestamp
}

// BuildingCondition buckets a building's durability into a coarse label.
type BuildingCondition string

const (
	ConditionHealthy   BuildingCondition = "healthy"
	ConditionWorn      BuildingCondition = "worn"
	ConditionCritical  BuildingCondition = "critical"
	ConditionRuined    BuildingCondition = "ruined"
	ConditionDestroyed BuildingCondition = "destroyed"
)

// BuildingState tracks durability and maintenance bookkeeping for a zone (§3).
type BuildingState struct {
	ZoneID            EntityID
	Durability        float64
	MaxDurability     float64
	LastMaintenance   uint64
	LastUsage         uint64
	UsageCount        int
	Abandoned         bool
	DeteriorationRate float64
	Upgrade           bool
}

// Condition derives the coarse durability bucket.
func (b *BuildingState) Condition() BuildingCondition {
	if b.MaxDurability <= 0 {
		return ConditionDestroyed
	}
	frac := b.Durability / b.MaxDurability
	switch {
	case b.Durability <= 0:
		return ConditionDestroyed
	case frac < 0.15:
		return ConditionRuined
	case frac < 0.4:
		return ConditionCritical
	case frac < 0.75:
		return ConditionWorn
	default:
		return ConditionHealthy
	}
}
