package state

// BondKind tags a permanent social bond.
type BondKind string

const (
	BondNone     BondKind = ""
	BondFamily   BondKind = "family"
	BondMarriage BondKind = "marriage"
)

// SocialEdgeMeta carries the bond tag and any active truce expiry for a
// pair of agents. Affinity itself lives in the sparse adjacency map owned
// by package socialgraph; this struct is the per-pair metadata the spec's
// "permanent bonds" and "truces" concepts require.
type SocialEdgeMeta struct {
	Bond        BondKind
	TruceExpiry uint64 // tick; 0 means no active truce
}

// Reputation is a scalar in [0,1] per agent with bounded history (§3).
type Reputation struct {
	AgentID EntityID
	Value   float64
	History []ReputationEntry
}

// ReputationEntry is one bounded history record.
type ReputationEntry struct {
	Tick   uint64
	Delta  float64
	Reason string
}

// MarriageGroup is a poly-sized set (≤8) of agent ids with cohesion,
// founding timestamp and optional children (§3).
type MarriageGroup struct {
	ID          EntityID
	Members     []EntityID
	Cohesion    float64
	FoundedTick uint64
	Children    []EntityID
}

// Contains reports membership.
func (g *MarriageGroup) Contains(agentID EntityID) bool {
	for _, m := range g.Members {
		if m == agentID {
			return true
		}
	}
	return false
}
