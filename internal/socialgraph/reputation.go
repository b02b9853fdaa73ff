package socialgraph

import (
	"github.com/talgya/simkernel/internal/config"
	"github.com/talgya/simkernel/internal/eventbus"
	"github.com/talgya/simkernel/internal/state"
)

// reputationDecayPerSecond pulls every agent's reputation toward the
// neutral midpoint; applied on the same cadence as edge decay.
const reputationDecayPerSecond = 0.01

// UpdateReputation applies delta to agent's reputation, clamps to [0,1],
// appends a bounded history entry (dropping the oldest past
// config.ReputationHistoryMax), and emits EventReputationUpdated.
func UpdateReputation(s *state.State, bus *eventbus.Bus, agentID state.EntityID, delta float64, reason string, tick uint64) {
	rep, ok := s.Reputations[agentID]
	if !ok {
		rep = newReputation(agentID)
		s.Reputations[agentID] = rep
	}

	rep.Value = clamp(rep.Value+delta, 0, 1)
	rep.History = append(rep.History, state.ReputationEntry{Tick: tick, Delta: delta, Reason: reason})
	if len(rep.History) > config.ReputationHistoryMax {
		rep.History = rep.History[len(rep.History)-config.ReputationHistoryMax:]
	}

	if bus != nil {
		bus.Emit(eventbus.EventReputationUpdated, map[string]any{"agent_id": agentID, "value": rep.Value, "reason": reason})
	}
}

func newReputation(agentID state.EntityID) *state.Reputation {
	return &state.Reputation{AgentID: agentID, Value: config.ReputationInitial}
}

// DecayReputations runs on a config.SocialDecayInterval cadence, pulling
// every agent's reputation toward config.ReputationTarget.
func (g *Graph) DecayReputations(s *state.State, tick uint64, dtSeconds float64) {
	intervalTicks := uint64(config.SocialDecayInterval / config.FastRate)
	if tick-g.lastReputationDecayTick < intervalTicks {
		return
	}
	g.lastReputationDecayTick = tick

	step := reputationDecayPerSecond * dtSeconds
	for _, rep := range s.Reputations {
		if rep.Value > config.ReputationTarget {
			rep.Value -= step
			if rep.Value < config.ReputationTarget {
				rep.Value = config.ReputationTarget
			}
		} else if rep.Value < config.ReputationTarget {
			rep.Value += step
			if rep.Value > config.ReputationTarget {
				rep.Value = config.ReputationTarget
			}
		}
	}
}
