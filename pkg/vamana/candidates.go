package vamana

import "container/heap"

// Candidate is a transient (ordinal, score) pair. It lives inside a single
// search session or insertion transaction only (spec section 3, "Neighbor
// candidate").
type Candidate struct {
	Ordinal uint32
	Score   float32
}

// candHeap is a min-heap on Score, used internally by BoundedCandidates so
// the lowest-scoring (worst) element sits at the root for O(log n)
// eviction. Ties break by larger ordinal losing the comparison so that,
// between two equal scores, the smaller ordinal is considered "better" and
// survives eviction — the deterministic tie-break spec section 4.2 calls
// for ("larger ordinal wins" the eviction, i.e. is more likely evicted).
type candHeap []Candidate

func (h candHeap) Len() int { return len(h) }
func (h candHeap) Less(i, j int) bool {
	if h[i].Score != h[j].Score {
		return h[i].Score < h[j].Score
	}
	return h[i].Ordinal > h[j].Ordinal
}
func (h candHeap) Swap(i, j int) { h[i], h[j] = h[j], h[i] }
func (h *candHeap) Push(x interface{}) {
	*h = append(*h, x.(Candidate))
}
func (h *candHeap) Pop() interface{} {
	old := *h
	n := len(old)
	x := old[n-1]
	*h = old[:n-1]
	return x
}

// BoundedCandidates is a dual-ended priority queue of (ordinal, score)
// pairs bounded to a fixed capacity C, with an associated visited-ordinal
// set that rejects duplicate pushes (spec section 4.2, component C3).
type BoundedCandidates struct {
	capacity int
	heap     candHeap
	visited  *Bitset
}

// NewBoundedCandidates creates a bounded candidate queue of capacity cap,
// rejecting ordinals that collide with an already-visited one.
func NewBoundedCandidates(capacity int) *BoundedCandidates {
	return &BoundedCandidates{
		capacity: capacity,
		visited:  NewBitset(1024),
	}
}

// Push inserts (ord, score) unless ord was already visited. If the queue is
// at capacity, the lowest-scoring element is evicted to make room; if the
// incoming candidate itself would be the worst element of an already-full
// queue, it still gets inserted and then immediately evicted (the push is
// accepted, the visited bit is still set, matching spec's "if ord already
// visited, reject; otherwise insert; if size exceeds C, evict the
// lowest-scoring element").
func (b *BoundedCandidates) Push(ord uint32, score float32) bool {
	if b.visited.Get(ord) {
		return false
	}
	b.visited.Set(ord)
	heap.Push(&b.heap, Candidate{Ordinal: ord, Score: score})
	if b.heap.Len() > b.capacity {
		heap.Pop(&b.heap)
	}
	return true
}

// Len returns the number of candidates currently held.
func (b *BoundedCandidates) Len() int { return b.heap.Len() }

// Full reports whether the queue holds capacity elements.
func (b *BoundedCandidates) Full() bool { return b.heap.Len() >= b.capacity }

// PeekWorstScore returns the lowest score currently held, used to prune
// candidates that cannot improve the frontier. Returns (0, false) when
// empty.
func (b *BoundedCandidates) PeekWorstScore() (float32, bool) {
	if b.heap.Len() == 0 {
		return 0, false
	}
	return b.heap[0].Score, true
}

// PopBest removes and returns the highest-scoring element.
func (b *BoundedCandidates) PopBest() (Candidate, bool) {
	if b.heap.Len() == 0 {
		return Candidate{}, false
	}
	best := 0
	for i := 1; i < len(b.heap); i++ {
		if b.heap[i].Score > b.heap[best].Score ||
			(b.heap[i].Score == b.heap[best].Score && b.heap[i].Ordinal < b.heap[best].Ordinal) {
			best = i
		}
	}
	item := b.heap[best]
	last := len(b.heap) - 1
	b.heap[best] = b.heap[last]
	b.heap = b.heap[:last]
	heap.Init(&b.heap)
	return item, true
}

// TopK returns the k highest-scoring candidates, sorted best-first, with
// ties broken by smaller ordinal (spec section 4.2 and the determinism law
// in section 8).
func (b *BoundedCandidates) TopK(k int) []Candidate {
	items := make([]Candidate, len(b.heap))
	copy(items, b.heap)
	sortCandidatesDesc(items)
	if k < len(items) {
		items = items[:k]
	}
	return items
}

func sortCandidatesDesc(items []Candidate) {
	for i := 1; i < len(items); i++ {
		j := i
		for j > 0 && less(items[j], items[j-1]) {
			items[j], items[j-1] = items[j-1], items[j]
			j--
		}
	}
}

// less reports whether a should sort before b in best-first, ordinal-tie-
// broken order: higher score first, then smaller ordinal.
func less(a, b Candidate) bool {
	if a.Score != b.Score {
		return a.Score > b.Score
	}
	return a.Ordinal < b.Ordinal
}

// frontierHeap is a best-first heap of unexpanded nodes: Pop always
// returns the highest-scoring (best) unexpanded candidate, implementing
// the "frontier" of spec section 4.6 step 3-4.
type frontierHeap []Candidate

func (h frontierHeap) Len() int { return len(h) }
func (h frontierHeap) Less(i, j int) bool {
	if h[i].Score != h[j].Score {
		return h[i].Score > h[j].Score
	}
	return h[i].Ordinal < h[j].Ordinal
}
func (h frontierHeap) Swap(i, j int) { h[i], h[j] = h[j], h[i] }
func (h *frontierHeap) Push(x interface{}) {
	*h = append(*h, x.(Candidate))
}
func (h *frontierHeap) Pop() interface{} {
	old := *h
	n := len(old)
	x := old[n-1]
	*h = old[:n-1]
	return x
}
