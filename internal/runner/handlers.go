package runner

import (
	"log/slog"
	"math/rand"

	"github.com/google/uuid"

	"github.com/talgya/simkernel/internal/building"
	"github.com/talgya/simkernel/internal/combat"
	"github.com/talgya/simkernel/internal/command"
	"github.com/talgya/simkernel/internal/config"
	"github.com/talgya/simkernel/internal/eventbus"
	"github.com/talgya/simkernel/internal/household"
	"github.com/talgya/simkernel/internal/inventory"
	"github.com/talgya/simkernel/internal/socialgraph"
	"github.com/talgya/simkernel/internal/state"
)

// buildHandlers wires every command.Kind to a concrete mutation against
// r.state. Each handler takes r.mu itself rather than assuming the caller
// holds it — commands dispatch from the scheduler's preTick hook, outside
// any lock.
func (r *Runner) buildHandlers() command.Handlers {
	return command.Handlers{
		SetTimeScale:       r.handleSetTimeScale,
		ApplyResourceDelta: r.handleApplyResourceDelta,
		GatherResource:     r.handleGatherResource,
		GiveResource:       r.handleGiveResource,
		SpawnAgent:         r.handleSpawnAgent,
		KillAgent:          r.handleKillAgent,
		AgentCommand:       r.handleAgentCommand,
		AnimalCommand:      r.handleAnimalCommand,
		NeedsCommand:       r.handleNeedsCommand,
		RecipeCommand:      r.handleRecipeCommand,
		SocialCommand:      r.handleSocialCommand,
		ResearchCommand:    r.handleResearchCommand,
		WorldResource:      r.handleWorldResource,
		DialogueCommand:    r.handleDialogueCommand,
		BuildingCommand:    r.handleBuildingCommand,
		ReputationCommand:  r.handleReputationCommand,
		TaskCommand:        r.handleTaskCommand,
		TimeCommand:        r.handleTimeCommand,
		ForceEmergenceEval: r.handleForceEmergenceEval,
		SaveGame:           r.handleSaveGame,
		Ping:               r.handlePing,
	}
}

func (r *Runner) currentTick() uint64 {
	return r.sched.CurrentTick()
}

func (r *Runner) handleSetTimeScale(c command.Command) {
	scale, ok := c.FloatField("scale")
	if !ok {
		return
	}
	if scale < config.MinTimeScale {
		scale = config.MinTimeScale
	}
	if scale > config.MaxTimeScale {
		scale = config.MaxTimeScale
	}
	r.mu.Lock()
	r.state.TimeScale = scale
	r.mu.Unlock()
	r.sched.SetSpeed(scale)
}

func (r *Runner) handleApplyResourceDelta(c command.Command) {
	resource, ok := c.StringField("resource")
	if !ok {
		return
	}
	amount, ok := c.IntField("amount")
	if !ok {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.state.GlobalMaterials[state.ResourceType(resource)] += amount
	if r.state.GlobalMaterials[state.ResourceType(resource)] < 0 {
		r.state.GlobalMaterials[state.ResourceType(resource)] = 0
	}
}

func (r *Runner) handleGatherResource(c command.Command) {
	agentID, ok := c.StringField("agent_id")
	zoneID, ok2 := c.StringField("zone_id")
	resource, ok3 := c.StringField("resource")
	amount, ok4 := c.IntField("amount")
	if !ok || !ok2 || !ok3 || !ok4 {
		return
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	zone, ok := r.state.Zones[state.EntityID(zoneID)]
	agentInv, okInv := r.state.AgentInventories[state.EntityID(agentID)]
	if !ok || !okInv {
		return
	}
	sp := zone.FirstStockpile()
	if err := inventory.Transfer(sp.Inventory, agentInv, state.ResourceType(resource), amount); err != nil {
		slog.Debug("gather resource failed", "error", err)
		return
	}
	if r.bus != nil {
		r.bus.Emit(eventbus.EventResourceGathered, map[string]any{"agent_id": agentID, "resource": resource, "amount": amount})
	}
}

func (r *Runner) handleGiveResource(c command.Command) {
	from, ok := c.StringField("from_agent_id")
	to, ok2 := c.StringField("to_agent_id")
	resource, ok3 := c.StringField("resource")
	amount, ok4 := c.IntField("amount")
	if !ok || !ok2 || !ok3 || !ok4 {
		return
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	src, okSrc := r.state.AgentInventories[state.EntityID(from)]
	dst, okDst := r.state.AgentInventories[state.EntityID(to)]
	if !okSrc || !okDst {
		return
	}
	if err := inventory.Transfer(src, dst, state.ResourceType(resource), amount); err != nil {
		slog.Debug("give resource failed", "error", err)
	}
}

func (r *Runner) handleSpawnAgent(c command.Command) {
	x, _ := c.FloatField("x")
	y, _ := c.FloatField("y")
	r.mu.Lock()
	defer r.mu.Unlock()
	r.spawnAgentLocked(state.Point{X: x, Y: y})
}

func (r *Runner) handleKillAgent(c command.Command) {
	agentID, ok := c.StringField("agent_id")
	if !ok {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.state.RemoveAgent(state.EntityID(agentID))
	if r.bus != nil {
		r.bus.Emit(eventbus.EventAgentDied, map[string]any{"agent_id": state.EntityID(agentID)})
	}
}

// handleAgentCommand pushes a goal directly onto an agent's queue,
// preempting whatever the planner would have chosen next decision cycle.
func (r *Runner) handleAgentCommand(c command.Command) {
	agentID, ok := c.StringField("agent_id")
	goalType, ok2 := c.StringField("goal")
	if !ok || !ok2 {
		return
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	ai, ok := r.state.AIStates[state.EntityID(agentID)]
	if !ok {
		return
	}
	ai.GoalQueue = append([]state.Goal{{
		ID:        state.EntityID(goalType),
		Type:      state.GoalType(goalType),
		Priority:  5,
		CreatedAt: r.state.Tick,
		Status:    state.GoalActive,
	}}, ai.GoalQueue...)
}

// handleAnimalCommand toggles an animal entity's aggression tag — the only
// externally controllable facet of animal behavior, since animals have no
// AI state of their own.
func (r *Runner) handleAnimalCommand(c command.Command) {
	entityID, ok := c.StringField("entity_id")
	if !ok {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.state.Entities[state.EntityID(entityID)]
	if !ok || e.Type != state.EntityAnimal {
		return
	}
	if aggressive, ok := c.Payload["aggressive"].(bool); ok {
		if e.Tags == nil {
			e.Tags = make(map[string]bool)
		}
		e.Tags["aggressive"] = aggressive
	}
}

func (r *Runner) handleNeedsCommand(c command.Command) {
	agentID, ok := c.StringField("agent_id")
	need, ok2 := c.StringField("need")
	value, ok3 := c.FloatField("value")
	if !ok || !ok2 || !ok3 {
		return
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.state.Entities[state.EntityID(agentID)]
	if !ok {
		return
	}
	e.SetStat(need, value, 0, 100)
	if r.bus == nil {
		return
	}
	if value <= 20 {
		r.bus.Emit(eventbus.EventNeedCritical, map[string]any{"agent_id": agentID, "need": need, "value": value})
	} else {
		r.bus.Emit(eventbus.EventNeedSatisfied, map[string]any{"agent_id": agentID, "need": need, "value": value})
	}
}

// handleRecipeCommand crafts and equips a weapon for an agent, consuming
// its craft cost from the agent's personal inventory.
func (r *Runner) handleRecipeCommand(c command.Command) {
	agentID, ok := c.StringField("agent_id")
	weaponID, ok2 := c.StringField("weapon_id")
	if !ok || !ok2 {
		return
	}
	weapon, known := combat.Catalog[weaponID]
	if !known {
		return
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	inv, okInv := r.state.AgentInventories[state.EntityID(agentID)]
	entity, okEnt := r.state.Entities[state.EntityID(agentID)]
	if !okInv || !okEnt {
		return
	}
	if weapon.CraftCost.Wood > 0 {
		if err := inventory.Remove(inv, state.ResourceWood, weapon.CraftCost.Wood); err != nil {
			return
		}
	}
	if weapon.CraftCost.Stone > 0 {
		if err := inventory.Remove(inv, state.ResourceStone, weapon.CraftCost.Stone); err != nil {
			inv.Amounts[state.ResourceWood] += weapon.CraftCost.Wood // refund wood, stone draw failed
			return
		}
	}
	entity.EquippedWeapon = weaponID
}

// handleSocialCommand routes a tagged sub-variant to the social graph
// package: propose/accept/divorce marriage, or impose a truce.
func (r *Runner) handleSocialCommand(c command.Command) {
	sub, ok := c.StringField("action")
	a, okA := c.StringField("agent_a")
	b, okB := c.StringField("agent_b")
	if !ok || !okA || !okB {
		return
	}
	aID, bID := state.EntityID(a), state.EntityID(b)

	r.mu.Lock()
	defer r.mu.Unlock()
	tick := r.state.Tick

	switch sub {
	case "propose_marriage":
		socialgraph.ProposeMarriage(aID, bID, tick)
	case "accept_proposal":
		socialgraph.AcceptProposal(r.state, r.bus, aID, bID, tick)
	case "divorce":
		socialgraph.InitiateDivorce(r.state, aID)
	case "impose_truce":
		durationTicks := uint64(300)
		if d, ok := c.IntField("duration_ticks"); ok {
			durationTicks = uint64(d)
		}
		r.social.ImposeTruce(r.state, r.bus, aID, bID, durationTicks, tick)
	}
}

// handleResearchCommand is a shape-only stub: the kernel models no
// research/knowledge subsystem, so an incoming research command is
// acknowledged and dropped.
func (r *Runner) handleResearchCommand(c command.Command) {
	slog.Debug("research command received, no-op (unmodeled subsystem)", "id", c.ID)
}

// handleWorldResource either mutates a zone's stockpile directly (default,
// and the only behavior prior to world resource nodes) or, with
// action="spawn_node", drops a standalone gatherable entity (e.g. a
// berry_bush) into the world that agents can target by id instead of by
// zone (§4.6 S2).
func (r *Runner) handleWorldResource(c command.Command) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if action, ok := c.StringField("action"); ok && action == "spawn_node" {
		r.handleSpawnResourceNodeLocked(c)
		return
	}

	zoneID, ok := c.StringField("zone_id")
	resource, ok2 := c.StringField("resource")
	amount, ok3 := c.IntField("amount")
	if !ok || !ok2 || !ok3 {
		return
	}
	zone, ok := r.state.Zones[state.EntityID(zoneID)]
	if !ok {
		return
	}
	sp := zone.FirstStockpile()
	if amount >= 0 {
		_ = inventory.Add(sp.Inventory, state.ResourceType(resource), amount)
	} else {
		_ = inventory.Remove(sp.Inventory, state.ResourceType(resource), -amount)
	}
}

// handleSpawnResourceNodeLocked creates a resource-node entity (caller
// holds r.mu): a tagged, gatherable object with a finite amount that
// decrements as agents harvest it and disappears (IsDead) once exhausted.
func (r *Runner) handleSpawnResourceNodeLocked(c command.Command) {
	resource, ok := c.StringField("resource")
	x, okX := c.FloatField("x")
	y, okY := c.FloatField("y")
	if !ok || !okX || !okY {
		return
	}
	amount, okA := c.FloatField("amount")
	if !okA || amount <= 0 {
		amount = 100
	}

	id := state.EntityID(uuid.NewString())
	r.state.Entities[id] = &state.Entity{
		ID:       id,
		Type:     state.EntityObject,
		Position: state.Point{X: x, Y: y},
		Tags:     map[string]bool{"resource_node": true, resource: true},
		Stats:    map[string]float64{"amount": amount},
	}
	if r.bus != nil {
		r.bus.Emit(eventbus.EventWorldResourceNodeSpawned, map[string]any{"node_id": id, "resource": resource, "amount": amount})
	}
}

// handleDialogueCommand is a shape-only stub, matching handleResearchCommand.
func (r *Runner) handleDialogueCommand(c command.Command) {
	slog.Debug("dialogue command received, no-op (unmodeled subsystem)", "id", c.ID)
}

// handleBuildingCommand routes a tagged sub-variant to the building
// package: schedule construction, assign/remove a production worker, or
// repair.
func (r *Runner) handleBuildingCommand(c command.Command) {
	sub, ok := c.StringField("action")
	if !ok {
		return
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	tick := r.state.Tick

	switch sub {
	case "enqueue_construction":
		label, ok := c.StringField("label")
		width, okW := c.FloatField("width")
		height, okH := c.FloatField("height")
		if !ok || !okW || !okH {
			return
		}
		if _, err := building.TryScheduleConstruction(r.state, r.bus, label, width, height, tick); err != nil {
			slog.Debug("construction scheduling failed", "error", err)
		}
	case "assign_worker":
		zoneID, okZ := c.StringField("zone_id")
		agentID, okA := c.StringField("agent_id")
		if !okZ || !okA {
			return
		}
		_ = r.buildMgr.AssignWorker(r.state, r.bus, state.EntityID(zoneID), state.EntityID(agentID))
	case "remove_worker":
		zoneID, okZ := c.StringField("zone_id")
		agentID, okA := c.StringField("agent_id")
		if !okZ || !okA {
			return
		}
		r.buildMgr.RemoveWorker(r.state, r.bus, state.EntityID(zoneID), state.EntityID(agentID))
	case "repair":
		zoneID, okZ := c.StringField("zone_id")
		amount, okAmt := c.FloatField("amount")
		if !okZ || !okAmt {
			return
		}
		building.Repair(r.state, r.bus, state.EntityID(zoneID), amount, tick)
	case "assign_household":
		zoneID, okZ := c.StringField("zone_id")
		agentID, okA := c.StringField("agent_id")
		role, _ := c.StringField("role")
		if !okZ || !okA {
			return
		}
		if err := household.AssignToHouse(r.state, r.bus, state.EntityID(zoneID), state.EntityID(agentID), role, tick); err != nil {
			slog.Debug("household assignment failed", "error", err)
		}
	}
}

func (r *Runner) handleReputationCommand(c command.Command) {
	agentID, ok := c.StringField("agent_id")
	delta, ok2 := c.FloatField("delta")
	reason, _ := c.StringField("reason")
	if !ok || !ok2 {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	socialgraph.UpdateReputation(r.state, r.bus, state.EntityID(agentID), delta, reason, r.state.Tick)
}

// handleTaskCommand routes a tagged sub-variant to the task lifecycle
// helpers: create, contribute, or cancel.
func (r *Runner) handleTaskCommand(c command.Command) {
	sub, ok := c.StringField("action")
	if !ok {
		return
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	tick := r.state.Tick

	switch sub {
	case "create":
		taskType, _ := c.StringField("type")
		requiredWork, _ := c.FloatField("required_work")
		minWorkers, _ := c.IntField("min_workers")
		wood, _ := c.IntField("wood")
		stone, _ := c.IntField("stone")
		if _, err := createTask(r.state, r.bus, taskType, requiredWork, minWorkers, state.ReservationCost{Wood: wood, Stone: stone}, tick); err != nil {
			slog.Debug("task creation failed", "error", err)
		}
	case "contribute":
		taskID, okT := c.StringField("task_id")
		agentID, okA := c.StringField("agent_id")
		amount, okAmt := c.FloatField("amount")
		if !okT || !okA || !okAmt {
			return
		}
		_ = contributeToTask(r.state, r.bus, state.EntityID(taskID), state.EntityID(agentID), amount, tick)
	case "cancel":
		taskID, okT := c.StringField("task_id")
		if !okT {
			return
		}
		cancelTask(r.state, state.EntityID(taskID))
	}
}

func (r *Runner) handleTimeCommand(c command.Command) {
	// Reserved for future wall-clock/calendar controls; the kernel tracks
	// time purely as a tick counter today, so there is nothing to mutate
	// beyond what SET_TIME_SCALE already covers.
	slog.Debug("time command received, no additional time model to mutate", "id", c.ID)
}

// handleForceEmergenceEval runs an out-of-cadence governance poll
// immediately, bypassing config.GovernancePollInterval — useful for tests
// and operator-triggered diagnostics.
func (r *Runner) handleForceEmergenceEval(c command.Command) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.gov.ForcePoll(r.state, r.bus, r.state.Tick)
}

func (r *Runner) handleSaveGame(c command.Command) {
	tick := r.currentTick()
	if _, _, err := r.SaveGame(tick); err != nil {
		slog.Warn("save game command failed", "error", err)
	}
}

func (r *Runner) handlePing(c command.Command) {
	if r.bus != nil {
		r.bus.Emit(eventbus.EventTick, map[string]any{"pong": true, "jitter": rand.Float64()})
	}
}
