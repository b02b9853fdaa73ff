package index

import (
	"math"
	"sort"

	"golang.org/x/exp/maps"

	"github.com/talgya/simkernel/internal/config"
	"github.com/talgya/simkernel/internal/state"
)

type cellKey struct{ cx, cy int }

// QueryResult is one hit from a radius query: a borrowed entry the caller
// must release via SharedSpatialIndex.Release after use.
type QueryResult struct {
	EntityID   state.EntityID
	DistanceSq float64
}

// SharedSpatialIndex is a uniform-grid spatial index over entity positions,
// used by every proximity-sensitive subsystem (§4.4).
type SharedSpatialIndex struct {
	cellSize float64
	cells    map[cellKey][]state.EntityID
	lastPos  map[state.EntityID]state.Point

	dirty      bool
	rebuilding bool

	resultPool [][]QueryResult
}

// NewSharedSpatialIndex creates an index with the default grid cell size.
func NewSharedSpatialIndex() *SharedSpatialIndex {
	return &SharedSpatialIndex{
		cellSize: config.SpatialGridCellSize,
		cells:    make(map[cellKey][]state.EntityID),
		lastPos:  make(map[state.EntityID]state.Point),
		dirty:    true,
	}
}

func (si *SharedSpatialIndex) cellOf(p state.Point) cellKey {
	return cellKey{cx: int(math.Floor(p.X / si.cellSize)), cy: int(math.Floor(p.Y / si.cellSize))}
}

// IsDirty reports whether entities moved enough that a rebuild is warranted.
func (si *SharedSpatialIndex) IsDirty() bool {
	return si.dirty
}

// MarkDirty flags the index as needing a rebuild (called by movement code
// when an entity's cell would change).
func (si *SharedSpatialIndex) MarkDirty() {
	si.dirty = true
}

// RebuildIfNeeded rebuilds the grid from the given entity collections.
// Concurrent rebuild requests are coalesced: a rebuild already in flight
// causes the second caller's request to be skipped (§4.4 concurrency note).
// The kernel is single-threaded cooperative, so this guard only protects
// against accidental re-entrant calls within one tick, not real races.
func (si *SharedSpatialIndex) RebuildIfNeeded(entities map[state.EntityID]*state.Entity) {
	if !si.dirty {
		return
	}
	if si.rebuilding {
		return
	}
	si.rebuilding = true
	defer func() { si.rebuilding = false }()

	si.cells = make(map[cellKey][]state.EntityID)
	si.lastPos = make(map[state.EntityID]state.Point, len(entities))

	ids := maps.Keys(entities)
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	for _, id := range ids {
		e := entities[id]
		if e.IsDead {
			continue
		}
		key := si.cellOf(e.Position)
		si.cells[key] = append(si.cells[key], id)
		si.lastPos[id] = e.Position
	}
	si.dirty = false
}

// QueryFilter optionally excludes candidates from a radius query.
type QueryFilter func(id state.EntityID) bool

// QueryRadius returns every indexed entity within radius of center passing
// filter, as a borrowed slice the caller must Release. Results include a
// squared distance to avoid an unnecessary sqrt per candidate.
func (si *SharedSpatialIndex) QueryRadius(center state.Point, radius float64, filter QueryFilter) []QueryResult {
	var out []QueryResult
	if len(si.resultPool) > 0 {
		out = si.resultPool[len(si.resultPool)-1][:0]
		si.resultPool = si.resultPool[:len(si.resultPool)-1]
	}

	radiusSq := radius * radius
	cellRadius := int(math.Ceil(radius/si.cellSize)) + 1
	base := si.cellOf(center)

	for dx := -cellRadius; dx <= cellRadius; dx++ {
		for dy := -cellRadius; dy <= cellRadius; dy++ {
			key := cellKey{cx: base.cx + dx, cy: base.cy + dy}
			ids, ok := si.cells[key]
			if !ok {
				continue
			}
			for _, id := range ids {
				p := si.lastPos[id]
				ddx := p.X - center.X
				ddy := p.Y - center.Y
				distSq := ddx*ddx + ddy*ddy
				if distSq > radiusSq {
					continue
				}
				if filter != nil && !filter(id) {
					continue
				}
				out = append(out, QueryResult{EntityID: id, DistanceSq: distSq})
			}
		}
	}
	return out
}

// Release returns a query result slice to the pool for reuse.
func (si *SharedSpatialIndex) Release(results []QueryResult) {
	si.resultPool = append(si.resultPool, results)
}
