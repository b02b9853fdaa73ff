package command

import "log/slog"

// Handlers holds one callback per command kind. The runner populates the
// fields it supports when wiring subsystems together; dispatch never
// imports subsystem packages directly, which keeps command free of the
// cycles a direct call-in would create.
type Handlers struct {
	SetTimeScale       func(Command)
	ApplyResourceDelta func(Command)
	GatherResource     func(Command)
	GiveResource       func(Command)
	SpawnAgent         func(Command)
	KillAgent          func(Command)
	AgentCommand       func(Command)
	AnimalCommand      func(Command)
	NeedsCommand       func(Command)
	RecipeCommand      func(Command)
	SocialCommand      func(Command)
	ResearchCommand    func(Command)
	WorldResource      func(Command)
	DialogueCommand    func(Command)
	BuildingCommand    func(Command)
	ReputationCommand  func(Command)
	TaskCommand        func(Command)
	TimeCommand        func(Command)
	ForceEmergenceEval func(Command)
	SaveGame           func(Command)
	Ping               func(Command)
}

// Dispatch routes a drained command to the matching handler, if the runner
// registered one. An unrecognized kind, or a kind with no registered
// handler, is logged and otherwise ignored — a malformed or unsupported
// command must never stall the tick.
func Dispatch(h Handlers, c Command) {
	handler := handlerFor(h, c.Kind)
	if handler == nil {
		slog.Warn("command dispatch: no handler for kind", "kind", c.Kind, "id", c.ID)
		return
	}
	handler(c)
}

// DispatchAll routes every command in order, in a single synchronous pass,
// ahead of the tick's scheduler run (§5 ordering).
func DispatchAll(h Handlers, cmds []Command) {
	for _, c := range cmds {
		Dispatch(h, c)
	}
}

func handlerFor(h Handlers, kind Kind) func(Command) {
	switch kind {
	case KindSetTimeScale:
		return h.SetTimeScale
	case KindApplyResourceDelta:
		return h.ApplyResourceDelta
	case KindGatherResource:
		return h.GatherResource
	case KindGiveResource:
		return h.GiveResource
	case KindSpawnAgent:
		return h.SpawnAgent
	case KindKillAgent:
		return h.KillAgent
	case KindAgentCommand:
		return h.AgentCommand
	case KindAnimalCommand:
		return h.AnimalCommand
	case KindNeedsCommand:
		return h.NeedsCommand
	case KindRecipeCommand:
		return h.RecipeCommand
	case KindSocialCommand:
		return h.SocialCommand
	case KindResearchCommand:
		return h.ResearchCommand
	case KindWorldResourceCommand:
		return h.WorldResource
	case KindDialogueCommand:
		return h.DialogueCommand
	case KindBuildingCommand:
		return h.BuildingCommand
	case KindReputationCommand:
		return h.ReputationCommand
	case KindTaskCommand:
		return h.TaskCommand
	case KindTimeCommand:
		return h.TimeCommand
	case KindForceEmergenceEval:
		return h.ForceEmergenceEval
	case KindSaveGame:
		return h.SaveGame
	case KindPing:
		return h.Ping
	default:
		return nil
	}
}
