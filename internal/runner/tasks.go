package runner

import (
	"strconv"

	"github.com/google/uuid"

	"github.com/talgya/simkernel/internal/config"
	"github.com/talgya/simkernel/internal/eventbus"
	"github.com/talgya/simkernel/internal/inventory"
	"github.com/talgya/simkernel/internal/state"
)

// taskStallTicks is how long a task may sit with zero new contribution
// before it is reported stalled; tasks aren't abandoned automatically —
// stalled is a signal, not a terminal status.
const taskStallTicks = uint64(config.ReservationCleanupAfterNeed / config.FastRate)

// createTask reserves any resource needs up front and registers a new
// cooperative work item.
func createTask(s *state.State, bus *eventbus.Bus, taskType string, requiredWork float64, minWorkers int, needs state.ReservationCost, tick uint64) (*state.Task, error) {
	id := state.EntityID(uuid.NewString())
	if needs.Wood > 0 || needs.Stone > 0 {
		if _, err := inventory.Reserve(s, id, needs, tick); err != nil {
			return nil, err
		}
	}
	t := &state.Task{
		ID:            id,
		Type:          taskType,
		RequiredWork:  requiredWork,
		Contributed:   make(map[state.EntityID]float64),
		MinWorkers:    minWorkers,
		ResourceNeeds: needs,
		Metadata:      map[string]string{"last_progress_tick": "0"},
		Status:        state.TaskCreated,
	}
	s.Tasks[id] = t
	if bus != nil {
		bus.Emit(eventbus.EventTaskCreated, map[string]any{"task_id": id, "type": taskType})
	}
	return t, nil
}

// contributeToTask records work from an agent, completing the task (and
// consuming its reservation) once RequiredWork is met.
func contributeToTask(s *state.State, bus *eventbus.Bus, taskID, agentID state.EntityID, amount float64, tick uint64) error {
	t, ok := s.Tasks[taskID]
	if !ok || t.Status != state.TaskCreated && t.Status != state.TaskInProgress {
		return nil
	}
	t.Contributed[agentID] += amount
	t.Status = state.TaskInProgress
	t.Metadata["last_progress_tick"] = strconv.FormatUint(tick, 10)

	if bus != nil {
		bus.Emit(eventbus.EventTaskProgress, map[string]any{"task_id": taskID, "agent_id": agentID, "total": t.TotalContribution()})
	}

	if t.IsComplete() && len(t.Contributed) >= t.MinWorkers {
		t.Status = state.TaskCompleted
		if t.ResourceNeeds.Wood > 0 || t.ResourceNeeds.Stone > 0 {
			_ = inventory.Consume(s, taskID)
		}
		if bus != nil {
			bus.Emit(eventbus.EventTaskCompleted, map[string]any{"task_id": taskID})
		}
	}
	return nil
}

// cancelTask releases any reservation and marks the task cancelled without
// deleting it, preserving its contribution history.
func cancelTask(s *state.State, taskID state.EntityID) {
	t, ok := s.Tasks[taskID]
	if !ok {
		return
	}
	inventory.Release(s, taskID)
	t.Status = state.TaskCancelled
}

// sweepStalledTasks announces, but does not cancel, any in-progress task
// that hasn't seen a contribution within taskStallTicks.
func sweepStalledTasks(s *state.State, bus *eventbus.Bus, tick uint64) {
	for id, t := range s.Tasks {
		if t.Status != state.TaskInProgress {
			continue
		}
		last, _ := strconv.ParseUint(t.Metadata["last_progress_tick"], 10, 64)
		if tick-last > taskStallTicks {
			if bus != nil {
				bus.Emit(eventbus.EventTaskStalled, map[string]any{"task_id": id})
			}
			t.Metadata["last_progress_tick"] = strconv.FormatUint(tick, 10) // avoid re-announcing every poll
		}
	}
}
