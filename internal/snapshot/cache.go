// Package snapshot builds and publishes world-state snapshots for
// observers (§4.5): a full snapshot on connect, throttled incremental
// snapshots each tick, and delta snapshots against the last published
// state. Serialization happens off the tick goroutine so a slow observer
// or a large payload never stalls the scheduler.
package snapshot

import "sync"

// Section names the coarse world-state partitions the dirty cache tracks.
// The snapshot builders in this package do not read the cache: BuildFull
// and BuildDelta always walk the whole state, and no cached copy of a clean
// section is reused.
type Section string

const (
	SectionAgents    Section = "agents"
	SectionEntities  Section = "entities"
	SectionZones     Section = "zones"
	SectionTasks     Section = "tasks"
	SectionHousehold Section = "households"
	SectionSocial    Section = "social"
	SectionEconomy   Section = "economy"
)

// DirtyCache tracks which sections changed since the last snapshot,
// coalescing repeated marks within a tick.
type DirtyCache struct {
	mu    sync.Mutex
	dirty map[Section]bool
}

// NewDirtyCache creates a cache with every section marked dirty, so the
// first snapshot built is always a full one.
func NewDirtyCache() *DirtyCache {
	c := &DirtyCache{dirty: make(map[Section]bool)}
	c.MarkAll()
	return c
}

// Mark flags a section as changed.
func (c *DirtyCache) Mark(s Section) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.dirty[s] = true
}

// MarkAll flags every known section as changed.
func (c *DirtyCache) MarkAll() {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, s := range []Section{SectionAgents, SectionEntities, SectionZones, SectionTasks, SectionHousehold, SectionSocial, SectionEconomy} {
		c.dirty[s] = true
	}
}

// DirtySections returns and clears the set of sections marked since the
// last call.
func (c *DirtyCache) DirtySections() []Section {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]Section, 0, len(c.dirty))
	for s, v := range c.dirty {
		if v {
			out = append(out, s)
		}
	}
	c.dirty = make(map[Section]bool)
	return out
}

// IsDirty reports whether any section changed since the last DirtySections
// call, without consuming the flag.
func (c *DirtyCache) IsDirty() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, v := range c.dirty {
		if v {
			return true
		}
	}
	return false
}
