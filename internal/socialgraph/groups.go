package socialgraph

import (
	"github.com/google/uuid"

	"github.com/talgya/simkernel/internal/config"
	"github.com/talgya/simkernel/internal/eventbus"
	"github.com/talgya/simkernel/internal/state"
)

// Group is a derived connected component of agents bonded above
// config.SocialGroupThreshold.
type Group struct {
	ID       string
	Members  []state.EntityID
	Leader   state.EntityID
	Cohesion float64
	Morale   float64
}

// DeriveGroups recomputes connected components over edges with affinity at
// or above config.SocialGroupThreshold, at most once per
// config.SocialGroupDerivationPeriod and only when the graph is dirty. A
// group whose cohesion exceeds config.SocialRallyMinCohesion and whose
// membership reaches config.SocialRallyMinMembers additionally emits
// EventSocialRally.
func (g *Graph) DeriveGroups(s *state.State, bus *eventbus.Bus, tick uint64) {
	intervalTicks := uint64(config.SocialGroupDerivationPeriod / config.FastRate)
	if tick-g.lastGroupsTick < intervalTicks {
		return
	}
	if !g.IsDirty() {
		return
	}
	g.lastGroupsTick = tick

	g.mu.Lock()
	visited := make(map[state.EntityID]bool)
	var groups []*Group
	for a := range g.edges {
		if visited[a] {
			continue
		}
		members := g.bfsComponent(a, visited)
		if len(members) < 2 {
			continue
		}
		groups = append(groups, g.buildGroup(members))
	}
	g.dirty = false
	g.mu.Unlock()

	g.Groups = groups

	if bus != nil {
		bus.Emit(eventbus.EventSocialGroupsUpdate, map[string]any{"groups": groups})
		for _, grp := range groups {
			if grp.Cohesion > config.SocialRallyMinCohesion && len(grp.Members) >= config.SocialRallyMinMembers {
				bus.Emit(eventbus.EventSocialRally, map[string]any{"group_id": grp.ID, "cohesion": grp.Cohesion, "members": grp.Members})
			}
		}
	}
}

// bfsComponent must be called with g.mu held; it walks edges at or above
// config.SocialGroupThreshold from start, marking every reached id visited.
func (g *Graph) bfsComponent(start state.EntityID, visited map[state.EntityID]bool) []state.EntityID {
	queue := []state.EntityID{start}
	visited[start] = true
	var members []state.EntityID
	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		members = append(members, cur)
		for other, affinity := range g.edges[cur] {
			if affinity < config.SocialGroupThreshold || visited[other] {
				continue
			}
			visited[other] = true
			queue = append(queue, other)
		}
	}
	return members
}

// buildGroup must be called with g.mu held.
func (g *Graph) buildGroup(members []state.EntityID) *Group {
	var leader state.EntityID
	var best float64
	var sum float64
	var positiveEdges int

	for _, m := range members {
		var score float64
		for _, affinity := range g.edges[m] {
			if affinity > 0 {
				score += affinity
				sum += affinity
				positiveEdges++
			}
		}
		if leader == "" || score > best {
			leader = m
			best = score
		}
	}

	cohesion := 0.0
	if positiveEdges > 0 {
		cohesion = sum / float64(positiveEdges)
	}

	return &Group{
		ID:       uuid.NewString(),
		Members:  members,
		Leader:   leader,
		Cohesion: cohesion,
		Morale:   100,
	}
}
