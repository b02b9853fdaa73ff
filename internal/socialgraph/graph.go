// Package socialgraph implements affinity edges, proximity reinforcement,
// decay, truces, and connected-component group derivation (§4.11).
// Affinity lives in a sparse adjacency map owned by this package;
// state.SocialEdgeMeta carries only the per-pair bond tag and truce expiry,
// which are permanent facts the rest of the kernel needs to read directly.
package socialgraph

import (
	"math"
	"sync"

	"github.com/talgya/simkernel/internal/config"
	"github.com/talgya/simkernel/internal/eventbus"
	"github.com/talgya/simkernel/internal/gpu"
	"github.com/talgya/simkernel/internal/index"
	"github.com/talgya/simkernel/internal/state"
)

const edgeEpsilon = 0.01

// Graph holds the sparse affinity adjacency and tracks whether any edge
// has changed since the last group derivation pass.
type Graph struct {
	mu    sync.Mutex
	edges map[state.EntityID]map[state.EntityID]float64

	dirty bool

	lastDecayTick           uint64
	lastGroupsTick          uint64
	lastReputationDecayTick uint64

	Groups []*Group
}

// New creates an empty affinity graph.
func New() *Graph {
	return &Graph{edges: make(map[state.EntityID]map[state.EntityID]float64)}
}

// Affinity returns the current edge weight between a and b, 0 if absent.
func (g *Graph) Affinity(a, b state.EntityID) float64 {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.edges[a][b]
}

// addEdge adjusts the affinity between a and b symmetrically by delta,
// clamped to [-1, 1]. A change in either direction greater than
// edgeEpsilon marks the graph dirty and emits SocialRelationChanged.
func (g *Graph) addEdge(bus *eventbus.Bus, a, b state.EntityID, delta float64) {
	if a == b {
		return
	}
	g.mu.Lock()
	before := g.edges[a][b]
	after := clamp(before+delta, -1, 1)
	g.set(a, b, after)
	g.set(b, a, after)
	changed := math.Abs(after-before) > edgeEpsilon
	if changed {
		g.dirty = true
	}
	g.mu.Unlock()

	if changed && bus != nil {
		bus.Emit(eventbus.EventSocialRelationChanged, map[string]any{"a": a, "b": b, "affinity": after})
	}
}

func (g *Graph) set(from, to state.EntityID, v float64) {
	if g.edges[from] == nil {
		g.edges[from] = make(map[state.EntityID]float64)
	}
	g.edges[from][to] = v
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// ReinforceProximity strengthens the edge between every pair of living
// agents within config.SocialProximityRadius. Above config.SocialGPUThreshold
// candidates, pairwise distances are computed via the batched GPU/CPU
// distance service; otherwise work is staggered across
// config.SocialSubBatches calls to smooth per-tick cost, advanced by
// subBatchIndex on each invocation.
func (g *Graph) ReinforceProximity(s *state.State, idx *index.EntityIndex, spatial *index.SharedSpatialIndex, bus *eventbus.Bus, subBatchIndex int, dtSeconds float64) {
	living := s.LivingAgents()
	if len(living) < 2 {
		return
	}

	reinforcement := reinforcementPerSecond * dtSeconds

	if len(living) >= config.SocialGPUThreshold {
		g.reinforceBatched(living, spatial, bus, reinforcement)
		return
	}

	batch := subBatchIndex % config.SocialSubBatches
	for i, a := range living {
		if i%config.SocialSubBatches != batch {
			continue
		}
		selfID := a.ID
		results := spatial.QueryRadius(a.Position, config.SocialProximityRadius, func(id state.EntityID) bool {
			if id == selfID {
				return false
			}
			other, ok := s.Entities[id]
			return ok && other.Type == state.EntityAgent && !other.IsDead
		})
		for _, r := range results {
			g.addEdge(bus, a.ID, r.EntityID, reinforcement)
		}
		spatial.Release(results)
	}
}

func (g *Graph) reinforceBatched(living []*state.Entity, spatial *index.SharedSpatialIndex, bus *eventbus.Bus, reinforcement float64) {
	points := make([]gpu.Point, len(living))
	for i, a := range living {
		points[i] = gpu.Point{X: a.Position.X, Y: a.Position.Y}
	}
	var pairs []gpu.Pair
	for i := range living {
		for j := i + 1; j < len(living); j++ {
			pairs = append(pairs, gpu.Pair{QueryIndex: i, CandidateIndex: j})
		}
	}
	results := gpu.ComputeDistancesBatch(points, points, pairs, config.SocialGPUThreshold)
	radiusSq := config.SocialProximityRadius * config.SocialProximityRadius
	for k, pair := range pairs {
		if results[k].DistanceSq <= radiusSq {
			g.addEdge(bus, living[pair.QueryIndex].ID, living[pair.CandidateIndex].ID, reinforcement)
		}
	}
}

// reinforcementPerSecond is the proximity bond-strengthening rate; kept as
// a package constant rather than config since it is derived, not tuned,
// from decayPerSecond below.
const reinforcementPerSecond = 0.01

// decayPerSecond is the baseline magnitude decay rate for unbonded edges;
// bonded edges decay at 5% of this.
const decayPerSecond = 0.02

// Decay runs on a config.SocialDecayInterval cadence: every edge's
// magnitude moves toward zero, bonded pairs twenty times slower, with
// magnitudes below 1e-3 snapped to exactly 0.
func (g *Graph) Decay(s *state.State, tick uint64, dtSeconds float64) {
	intervalTicks := uint64(config.SocialDecayInterval / config.FastRate)
	if tick-g.lastDecayTick < intervalTicks {
		return
	}
	g.lastDecayTick = tick

	g.mu.Lock()
	defer g.mu.Unlock()

	for a, row := range g.edges {
		for b, v := range row {
			if v == 0 {
				continue
			}
			rate := decayPerSecond
			if meta, ok := s.SocialEdgeMeta[a][b]; ok && meta.Bond != state.BondNone {
				rate *= 0.05
			}
			step := rate * dtSeconds
			next := v
			if v > 0 {
				next = math.Max(0, v-step)
			} else {
				next = math.Min(0, v+step)
			}
			if math.Abs(next) < 1e-3 {
				next = 0
			}
			row[b] = next
		}
	}
}

// SweepTruces clears expired truces from state's edge metadata, emitting
// EventTruceExpired for each.
func SweepTruces(s *state.State, bus *eventbus.Bus, tick uint64) {
	for a, row := range s.SocialEdgeMeta {
		for b, meta := range row {
			if meta.TruceExpiry != 0 && tick >= meta.TruceExpiry {
				meta.TruceExpiry = 0
				row[b] = meta
				if bus != nil {
					bus.Emit(eventbus.EventTruceExpired, map[string]any{"a": a, "b": b})
				}
			}
		}
	}
}

// ImposeTruce sets an expiry for the pair and, if their current affinity
// is negative, halves its magnitude.
func (g *Graph) ImposeTruce(s *state.State, bus *eventbus.Bus, a, b state.EntityID, durationTicks, tick uint64) {
	g.mu.Lock()
	if v := g.edges[a][b]; v < 0 {
		g.set(a, b, v/2)
		g.set(b, a, v/2)
	}
	g.mu.Unlock()

	setTruce(s, a, b, tick+durationTicks)
	if bus != nil {
		bus.Emit(eventbus.EventTruceAccepted, map[string]any{"a": a, "b": b, "expires_at": tick + durationTicks})
	}
}

func setTruce(s *state.State, a, b state.EntityID, expiry uint64) {
	for _, pair := range [][2]state.EntityID{{a, b}, {b, a}} {
		if s.SocialEdgeMeta[pair[0]] == nil {
			s.SocialEdgeMeta[pair[0]] = make(map[state.EntityID]state.SocialEdgeMeta)
		}
		meta := s.SocialEdgeMeta[pair[0]][pair[1]]
		meta.TruceExpiry = expiry
		s.SocialEdgeMeta[pair[0]][pair[1]] = meta
	}
}

// IsDirty reports whether any edge has changed since the last group
// derivation.
func (g *Graph) IsDirty() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.dirty
}

// Tick runs the full per-tick social pass: proximity reinforcement, the
// cadenced decay and reputation-decay sweeps, truce expiry, and group
// derivation. subBatchIndex should advance by one every call so the
// non-GPU reinforcement path eventually covers every agent.
func (g *Graph) Tick(s *state.State, idx *index.EntityIndex, spatial *index.SharedSpatialIndex, bus *eventbus.Bus, tick uint64, subBatchIndex int) {
	dt := float64(config.FastRate) / float64(1e9)
	g.ReinforceProximity(s, idx, spatial, bus, subBatchIndex, dt)
	g.Decay(s, tick, dt)
	g.DecayReputations(s, tick, dt)
	SweepTruces(s, bus, tick)
	g.DeriveGroups(s, bus, tick)
}
