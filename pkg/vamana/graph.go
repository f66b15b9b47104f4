package vamana

import (
	"sync"
	"sync/atomic"
)

// nodeRecord is the graph-store-internal state for one ordinal: its
// neighbor list and a publication flag. A node's vector lives in the
// Provider, not here (spec section 3, "Ownership").
type nodeRecord struct {
	neighbors *NeighborList
	published atomic.Bool
}

// GraphStore holds the set of nodes (as neighbor lists keyed by ordinal)
// plus the single entry-point ordinal every search starts from (spec
// section 4.5, component C6).
//
// Allocation (reserving the next ordinal and growing the node slice) is
// guarded by mu, a short critical section. Publication state and the
// entry-point ordinal are atomics so a concurrent reader never blocks and
// never observes a torn update (spec section 5).
type GraphStore struct {
	m int // hard per-node neighbor-list capacity

	mu    sync.RWMutex
	nodes []*nodeRecord

	publishedCount atomic.Int64
	entryPoint     atomic.Uint32
	hasEntry       atomic.Bool
}

// NewGraphStore creates an empty graph store whose nodes carry neighbor
// lists capped at m entries.
func NewGraphStore(m int) *GraphStore {
	return &GraphStore{m: m}
}

// AllocateNode reserves the next ordinal and creates its (initially empty,
// unpublished) neighbor list. The node is not visible to searches until
// Publish is called (spec section 4.5, "allocate_node").
func (g *GraphStore) AllocateNode() uint32 {
	g.mu.Lock()
	defer g.mu.Unlock()
	ord := uint32(len(g.nodes))
	g.nodes = append(g.nodes, &nodeRecord{neighbors: NewNeighborList(ord, g.m)})
	return ord
}

// Publish marks ord visible to concurrent searches (spec section 4.5,
// "publish"). Callers must have already populated the node's initial
// neighbor list via Seed.
func (g *GraphStore) Publish(ord uint32) {
	g.mu.RLock()
	rec := g.nodes[ord]
	g.mu.RUnlock()

	if !rec.published.CompareAndSwap(false, true) {
		return
	}
	g.publishedCount.Add(1)
}

// IsPublished reports whether ord is currently visible to searches.
func (g *GraphStore) IsPublished(ord uint32) bool {
	g.mu.RLock()
	if int(ord) >= len(g.nodes) {
		g.mu.RUnlock()
		return false
	}
	rec := g.nodes[ord]
	g.mu.RUnlock()
	return rec.published.Load()
}

// Allocated returns the number of ordinals reserved so far, published or
// not.
func (g *GraphStore) Allocated() int {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return len(g.nodes)
}

// Size returns the number of currently published nodes (spec section 4.5,
// "size").
func (g *GraphStore) Size() int64 {
	return g.publishedCount.Load()
}

// Neighbors returns the neighbor list for ord, or nil if ord was never
// allocated.
func (g *GraphStore) Neighbors(ord uint32) *NeighborList {
	g.mu.RLock()
	defer g.mu.RUnlock()
	if int(ord) >= len(g.nodes) {
		return nil
	}
	return g.nodes[ord].neighbors
}

// SetEntry unconditionally installs ord as the entry point. Used for the
// very first insertion (spec section 4.7 step 2) and by ReadGraph when
// restoring a serialized entry point.
func (g *GraphStore) SetEntry(ord uint32) {
	g.entryPoint.Store(ord)
	g.hasEntry.Store(true)
}

// Entry returns the current entry-point ordinal and whether one has been
// set yet.
func (g *GraphStore) Entry() (uint32, bool) {
	if !g.hasEntry.Load() {
		return 0, false
	}
	return g.entryPoint.Load(), true
}

// PromoteEntry atomically swaps the entry point to candidate if it is
// still expected, implementing the single compare-and-set required by
// spec section 4.7 step 6 so readers always see one ordinal or the other,
// never a torn state.
func (g *GraphStore) PromoteEntry(expected, candidate uint32) bool {
	return g.entryPoint.CompareAndSwap(expected, candidate)
}
