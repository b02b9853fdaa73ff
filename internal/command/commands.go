// Package command implements the bounded inbound command queue (§4.2):
// external callers enqueue typed commands, which the runner drains and
// dispatches once per tick ahead of the scheduler's system pass.
package command

// Kind identifies a command's shape, used to route dispatch.
type Kind string

const (
	KindSetTimeScale            Kind = "SET_TIME_SCALE"
	KindApplyResourceDelta      Kind = "APPLY_RESOURCE_DELTA"
	KindGatherResource          Kind = "GATHER_RESOURCE"
	KindGiveResource            Kind = "GIVE_RESOURCE"
	KindSpawnAgent              Kind = "SPAWN_AGENT"
	KindKillAgent               Kind = "KILL_AGENT"
	KindAgentCommand            Kind = "AGENT_COMMAND"
	KindAnimalCommand           Kind = "ANIMAL_COMMAND"
	KindNeedsCommand            Kind = "NEEDS_COMMAND"
	KindRecipeCommand           Kind = "RECIPE_COMMAND"
	KindSocialCommand           Kind = "SOCIAL_COMMAND"
	KindResearchCommand         Kind = "RESEARCH_COMMAND"
	KindWorldResourceCommand    Kind = "WORLD_RESOURCE_COMMAND"
	KindDialogueCommand         Kind = "DIALOGUE_COMMAND"
	KindBuildingCommand         Kind = "BUILDING_COMMAND"
	KindReputationCommand       Kind = "REPUTATION_COMMAND"
	KindTaskCommand             Kind = "TASK_COMMAND"
	KindTimeCommand             Kind = "TIME_COMMAND"
	KindForceEmergenceEval      Kind = "FORCE_EMERGENCE_EVALUATION"
	KindSaveGame                Kind = "SAVE_GAME"
	KindPing                    Kind = "PING"
)

// Command is one inbound request. Payload shape depends on Kind; dispatch
// type-asserts the fields it expects and rejects malformed payloads rather
// than panicking.
type Command struct {
	ID      string
	Kind    Kind
	Payload map[string]any
}

// Field helpers used by handler closures — payloads arrive as
// map[string]any from JSON-ish callers, so these centralize the type
// assertions for both this package and the runner package that builds
// Handlers.

func (c Command) StringField(key string) (string, bool) {
	v, ok := c.Payload[key]
	if !ok {
		return "", false
	}
	s, ok := v.(string)
	return s, ok
}

func (c Command) FloatField(key string) (float64, bool) {
	v, ok := c.Payload[key]
	if !ok {
		return 0, false
	}
	switch n := v.(type) {
	case float64:
		return n, true
	case int:
		return float64(n), true
	}
	return 0, false
}

func (c Command) IntField(key string) (int, bool) {
	f, ok := c.FloatField(key)
	if !ok {
		return 0, false
	}
	return int(f), true
}
