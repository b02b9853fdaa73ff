package runner

import (
	"testing"

	"github.com/talgya/simkernel/internal/eventbus"
	"github.com/talgya/simkernel/internal/state"
)

func TestCreateTaskReservesMaterial(t *testing.T) {
	s := state.NewState()
	s.GlobalMaterials[state.ResourceWood] = 10
	s.GlobalMaterials[state.ResourceStone] = 4

	task, err := createTask(s, nil, "build_wall", 20, 1, state.ReservationCost{Wood: 5, Stone: 2}, 0)
	if err != nil {
		t.Fatalf("createTask: %v", err)
	}
	if task.Status != state.TaskCreated {
		t.Fatalf("expected TaskCreated, got %v", task.Status)
	}
	if _, ok := s.Reservations[task.ID]; !ok {
		t.Fatal("expected a reservation to be registered")
	}
}

func TestCreateTaskFailsWhenSupplyShort(t *testing.T) {
	s := state.NewState()
	s.GlobalMaterials[state.ResourceWood] = 1

	_, err := createTask(s, nil, "build_wall", 20, 1, state.ReservationCost{Wood: 5}, 0)
	if err == nil {
		t.Fatal("expected insufficient supply error")
	}
	if len(s.Tasks) != 0 {
		t.Fatalf("task should not be registered on reservation failure, got %d", len(s.Tasks))
	}
}

func TestContributeToTaskCompletesAndConsumes(t *testing.T) {
	s := state.NewState()
	s.GlobalMaterials[state.ResourceWood] = 10
	bus := eventbus.New()

	task, err := createTask(s, bus, "gather_wood", 10, 1, state.ReservationCost{Wood: 5}, 0)
	if err != nil {
		t.Fatalf("createTask: %v", err)
	}

	agentID := state.EntityID("agent-1")
	if err := contributeToTask(s, bus, task.ID, agentID, 6, 1); err != nil {
		t.Fatalf("contribute: %v", err)
	}
	if task.Status != state.TaskInProgress {
		t.Fatalf("expected in progress after partial contribution, got %v", task.Status)
	}

	if err := contributeToTask(s, bus, task.ID, agentID, 10, 2); err != nil {
		t.Fatalf("contribute: %v", err)
	}
	if task.Status != state.TaskCompleted {
		t.Fatalf("expected completed after meeting required work, got %v", task.Status)
	}
	if _, stillReserved := s.Reservations[task.ID]; stillReserved {
		t.Fatal("expected reservation to be consumed on completion")
	}
}

func TestContributeIgnoresCompletedOrCancelledTask(t *testing.T) {
	s := state.NewState()
	task, err := createTask(s, nil, "idle", 5, 1, state.ReservationCost{}, 0)
	if err != nil {
		t.Fatalf("createTask: %v", err)
	}
	task.Status = state.TaskCancelled

	if err := contributeToTask(s, nil, task.ID, "agent-1", 100, 1); err != nil {
		t.Fatalf("contribute on cancelled task: %v", err)
	}
	if task.Status != state.TaskCancelled {
		t.Fatalf("cancelled task must not be reopened by a stray contribution, got %v", task.Status)
	}
}

func TestCancelTaskReleasesReservation(t *testing.T) {
	s := state.NewState()
	s.GlobalMaterials[state.ResourceWood] = 10

	task, err := createTask(s, nil, "build_wall", 20, 1, state.ReservationCost{Wood: 5}, 0)
	if err != nil {
		t.Fatalf("createTask: %v", err)
	}

	cancelTask(s, task.ID)
	if task.Status != state.TaskCancelled {
		t.Fatalf("expected cancelled, got %v", task.Status)
	}
	if _, ok := s.Reservations[task.ID]; ok {
		t.Fatal("expected reservation to be released on cancel")
	}
}

func TestSweepStalledTasksAnnouncesOnce(t *testing.T) {
	s := state.NewState()
	task, err := createTask(s, nil, "build_wall", 20, 1, state.ReservationCost{}, 0)
	if err != nil {
		t.Fatalf("createTask: %v", err)
	}
	task.Status = state.TaskInProgress

	var stalledCount int
	bus := eventbus.New()
	bus.On(eventbus.EventTaskStalled, func(ev eventbus.Event) { stalledCount++ })

	farFuture := taskStallTicks + 100
	sweepStalledTasks(s, bus, farFuture)
	bus.Flush()
	bus.Dispatch()
	if stalledCount != 1 {
		t.Fatalf("expected one stalled announcement, got %d", stalledCount)
	}

	// A second sweep immediately after should not re-announce, since
	// sweepStalledTasks refreshes last_progress_tick once it fires.
	sweepStalledTasks(s, bus, farFuture)
	bus.Flush()
	bus.Dispatch()
	if stalledCount != 1 {
		t.Fatalf("expected no repeat announcement, got %d total", stalledCount)
	}
}
