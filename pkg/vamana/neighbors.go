package vamana

import (
	"sync"
	"sync/atomic"
)

// NeighborList is a per-node, bounded, score-ordered neighbor set (spec
// section 4.4, component C5). Writers serialize through mu; readers take a
// lock-free Snapshot via an atomic pointer swap, so a concurrent
// InsertDiverse can never hand a reader a torn list — it sees either the
// pre- or the post-diversification list, atomically.
type NeighborList struct {
	owner    uint32
	capacity int

	mu   sync.Mutex // serializes writers only
	list atomic.Pointer[[]Candidate]
}

// NewNeighborList creates an empty neighbor list for the given owner
// ordinal with a hard capacity of M.
func NewNeighborList(owner uint32, capacity int) *NeighborList {
	nl := &NeighborList{owner: owner, capacity: capacity}
	empty := make([]Candidate, 0)
	nl.list.Store(&empty)
	return nl
}

// Snapshot returns a valid past state of the neighbor list: every pair in
// the returned slice was simultaneously present at some moment (spec
// section 4.4). The returned slice must not be mutated by the caller.
func (nl *NeighborList) Snapshot() []Candidate {
	return *nl.list.Load()
}

// Seed replaces the list wholesale without diversification. Used once, by
// the builder, to install a node's initial (already-diversified) neighbor
// set at publication time (spec section 4.7 step 4).
func (nl *NeighborList) Seed(neighbors []Candidate) {
	nl.mu.Lock()
	defer nl.mu.Unlock()
	cp := make([]Candidate, len(neighbors))
	copy(cp, neighbors)
	nl.list.Store(&cp)
}

// InsertDiverse attempts to add (newOrd, newScore) to the list (spec
// section 4.4, "insert_diverse"). It merges the candidate into the current
// list, runs diversification with the given alpha, and atomically
// publishes the survivors. A self-reference or an already-present ordinal
// is a no-op.
func (nl *NeighborList) InsertDiverse(
	newOrd uint32, newScore float32,
	provider Provider, sim Similarity, alpha float64,
) {
	if newOrd == nl.owner {
		return
	}

	nl.mu.Lock()
	defer nl.mu.Unlock()

	current := *nl.list.Load()
	for _, c := range current {
		if c.Ordinal == newOrd {
			return
		}
	}

	merged := make([]Candidate, len(current), len(current)+1)
	copy(merged, current)
	merged = append(merged, Candidate{Ordinal: newOrd, Score: newScore})

	ownerVec, ok := provider.VectorAt(nl.owner)
	if !ok {
		return
	}
	selected := robustPrune(nl.owner, ownerVec, merged, provider, sim, alpha, nl.capacity)
	nl.list.Store(&selected)
}

// Len returns the current neighbor count.
func (nl *NeighborList) Len() int {
	return len(*nl.list.Load())
}
