package socialgraph

import (
	"github.com/google/uuid"

	"github.com/talgya/simkernel/internal/eventbus"
	"github.com/talgya/simkernel/internal/state"
)

// proposalKey orders a pair so from/to order doesn't matter for lookup.
type proposalKey struct{ a, b state.EntityID }

func newProposalKey(a, b state.EntityID) proposalKey {
	if a > b {
		a, b = b, a
	}
	return proposalKey{a, b}
}

// Proposal is a pending marriage offer awaiting acceptance.
type Proposal struct {
	From, To state.EntityID
	Tick     uint64
}

// proposals is package-private pending state, not persisted in
// state.State: an unaccepted proposal has no lasting world effect and is
// safe to lose on restart.
var proposals = make(map[proposalKey]*Proposal)

// ProposeMarriage records a pending proposal from one agent to another.
func ProposeMarriage(from, to state.EntityID, tick uint64) *Proposal {
	p := &Proposal{From: from, To: to, Tick: tick}
	proposals[newProposalKey(from, to)] = p
	return p
}

// AcceptProposal resolves a pending proposal between a and b into a
// marriage bond: joins an existing group containing either party (up to
// the 8-member cap) or founds a new one, and tags their social edge
// `marriage`.
func AcceptProposal(s *state.State, bus *eventbus.Bus, a, b state.EntityID, tick uint64) (*state.MarriageGroup, bool) {
	key := newProposalKey(a, b)
	if _, ok := proposals[key]; !ok {
		return nil, false
	}
	delete(proposals, key)

	group := findGroupContaining(s, a)
	if group == nil {
		group = findGroupContaining(s, b)
	}
	if group == nil {
		group = &state.MarriageGroup{ID: state.EntityID(uuid.NewString()), FoundedTick: tick, Cohesion: 1}
		s.MarriageGroups[group.ID] = group
	}
	if len(group.Members) >= 8 {
		return nil, false
	}
	addMember(group, a)
	addMember(group, b)

	tagBond(s, a, b, state.BondMarriage)
	return group, true
}

func addMember(g *state.MarriageGroup, id state.EntityID) {
	if g.Contains(id) {
		return
	}
	g.Members = append(g.Members, id)
}

func tagBond(s *state.State, a, b state.EntityID, bond state.BondKind) {
	for _, pair := range [][2]state.EntityID{{a, b}, {b, a}} {
		if s.SocialEdgeMeta[pair[0]] == nil {
			s.SocialEdgeMeta[pair[0]] = make(map[state.EntityID]state.SocialEdgeMeta)
		}
		meta := s.SocialEdgeMeta[pair[0]][pair[1]]
		meta.Bond = bond
		s.SocialEdgeMeta[pair[0]][pair[1]] = meta
	}
}

func findGroupContaining(s *state.State, id state.EntityID) *state.MarriageGroup {
	for _, g := range s.MarriageGroups {
		if g.Contains(id) {
			return g
		}
	}
	return nil
}

// AreMarried reports whether a and b are members of the same marriage
// group.
func AreMarried(s *state.State, a, b state.EntityID) bool {
	g := findGroupContaining(s, a)
	return g != nil && g.Contains(b)
}

// InitiateDivorce removes agentID from every marriage group it belongs to,
// clearing the marriage bond tag against its former group-mates and
// dissolving any group that drops below two members.
func InitiateDivorce(s *state.State, agentID state.EntityID) {
	for id, g := range s.MarriageGroups {
		if !g.Contains(agentID) {
			continue
		}
		var remaining []state.EntityID
		for _, m := range g.Members {
			if m == agentID {
				continue
			}
			remaining = append(remaining, m)
			clearBond(s, agentID, m)
		}
		g.Members = remaining
		if len(g.Members) < 2 {
			delete(s.MarriageGroups, id)
		}
	}
}

func clearBond(s *state.State, a, b state.EntityID) {
	for _, pair := range [][2]state.EntityID{{a, b}, {b, a}} {
		if meta, ok := s.SocialEdgeMeta[pair[0]][pair[1]]; ok {
			meta.Bond = state.BondNone
			s.SocialEdgeMeta[pair[0]][pair[1]] = meta
		}
	}
}
