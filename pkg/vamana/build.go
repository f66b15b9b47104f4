package vamana

import "sync"

// Index is the top-level, concurrency-safe ANN index (spec section 3,
// component C1): a graph store plus the vector provider backing it, wired
// together through a Searcher used both for queries and, internally, for
// build-time candidate discovery (spec section 4.7, component C8).
type Index struct {
	cfg      Config
	provider *OwningProvider
	graph    *GraphStore
	search   *Searcher

	// allocMu serializes the (provider-append, graph-allocate) pair so a
	// node's provider ordinal and graph ordinal are always the same number,
	// even under concurrent Insert calls (spec section 5: insertion may run
	// concurrently with other insertions and with searches).
	allocMu sync.Mutex
}

// NewIndex creates an empty index per cfg. Callers normally reach this
// through a higher-level constructor (e.g. the IPC CREATE handler); it is
// exported directly for embedding/tests.
func NewIndex(cfg Config) (*Index, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	provider := NewOwningProvider(cfg.Dimension)
	graph := NewGraphStore(cfg.M)
	idx := &Index{
		cfg:      cfg,
		provider: provider,
		graph:    graph,
	}
	idx.search = NewSearcher(graph, provider, cfg.Similarity)
	return idx, nil
}

// Size returns the number of published (searchable) nodes.
func (idx *Index) Size() int64 { return idx.graph.Size() }

// Dimension returns the configured vector dimension.
func (idx *Index) Dimension() int { return idx.cfg.Dimension }

// ConfigSimilarity returns the index's configured similarity metric.
func (idx *Index) ConfigSimilarity() Similarity { return idx.cfg.Similarity }

// RerankFactor returns the configured PQ rerank over-fetch multiplier.
func (idx *Index) RerankFactor() int { return idx.cfg.RerankFactor }

// Vectors returns a snapshot of every raw vector currently stored, in
// ordinal order, for PQ training (spec section 4.9: OPTIMIZE trains
// against the vectors already resident in the index).
func (idx *Index) Vectors() [][]float32 {
	n := idx.provider.Size()
	out := make([][]float32, 0, n)
	for ord := uint32(0); int(ord) < n; ord++ {
		if v, ok := idx.provider.VectorAt(ord); ok {
			out = append(out, v)
		}
	}
	return out
}

// InstallCompressed wires a trained PQ provider into the index's searcher,
// so subsequent Search calls score the frontier against PQ distance tables
// and rerank the shortlist against raw vectors (spec section 4.9's OPTIMIZE
// operation, component C9).
func (idx *Index) InstallCompressed(cp CompressedProvider, rerankFactor int) {
	idx.search.WithCompressed(cp, rerankFactor)
}

// Search runs a top-K query against the index with beam width efSearch
// (spec section 4.6's search(query, top_k, ef_search)).
func (idx *Index) Search(query []float32, topK int, efSearch int) ([]Candidate, error) {
	if len(query) != idx.cfg.Dimension {
		return nil, newErr(KindDimensionMismatch, "query dimension does not match index dimension")
	}
	return idx.search.Search(query, topK, efSearch)
}

// Insert adds a vector to the index, wiring it into the proximity graph via
// RobustPrune-diversified forward and back edges (spec section 4.7,
// component C8, the concurrent incremental insertion algorithm).
func (idx *Index) Insert(vector []float32) (uint32, error) {
	if len(vector) != idx.cfg.Dimension {
		return 0, newErr(KindDimensionMismatch, "insert vector dimension does not match index dimension")
	}
	if idx.cfg.Similarity.NeedsPreNormalization() {
		vector = NormalizeInPlace(append([]float32(nil), vector...))
	}

	ord := idx.allocate(vector)

	// Step 1: bootstrap. The very first node has no graph to search.
	if _, ok := idx.graph.Entry(); !ok {
		idx.graph.Neighbors(ord).Seed(nil)
		idx.graph.Publish(ord)
		idx.graph.SetEntry(ord)
		return ord, nil
	}

	// Step 2: discover a candidate pool via best-first search from the
	// current entry point, then diversify it into the new node's initial
	// neighbor set (spec section 4.7 steps 3-4).
	candidates, err := idx.search.Search(vector, idx.cfg.EfConstruction, idx.cfg.EfConstruction)
	if err != nil {
		return 0, err
	}
	initial := robustPrune(ord, vector, candidates, idx.provider, idx.cfg.Similarity, idx.cfg.Alpha, idx.cfg.M)
	idx.graph.Neighbors(ord).Seed(initial)
	idx.graph.Publish(ord)

	// Step 3: back-link. Every node that made it into the new node's
	// diversified neighbor set gets offered a forward edge to the new node
	// in return, itself subject to that node's own diversification (spec
	// section 4.7 step 5).
	for _, nb := range initial {
		nl := idx.graph.Neighbors(nb.Ordinal)
		if nl == nil {
			continue
		}
		nl.InsertDiverse(ord, nb.Score, idx.provider, idx.cfg.Similarity, idx.cfg.Alpha)
	}

	idx.maybePromoteEntry(ord, initial)
	return ord, nil
}

// allocate reserves the same ordinal in both the provider and the graph
// store, under a single critical section so the two never drift apart.
func (idx *Index) allocate(vector []float32) uint32 {
	idx.allocMu.Lock()
	defer idx.allocMu.Unlock()
	provOrd := idx.provider.Append(vector)
	graphOrd := idx.graph.AllocateNode()
	if provOrd != graphOrd {
		// Provider and graph store are both simple monotonic appends
		// serialized by allocMu; they can only diverge if a caller reached
		// into one of them directly, which the package never does.
		panic("vamana: provider/graph ordinal drift")
	}
	return graphOrd
}

// maybePromoteEntry advances the graph's entry point to the newly inserted
// node when the new node scores better against the current entry point
// than the entry point's own best neighbor does, using a single atomic
// compare-and-swap so concurrent readers always see one consistent entry
// ordinal (spec section 4.7 step 6, pinned decision in SPEC_FULL section 1).
func (idx *Index) maybePromoteEntry(newOrd uint32, newNeighbors []Candidate) {
	if len(newNeighbors) == 0 {
		return
	}
	entry, ok := idx.graph.Entry()
	if !ok || entry == newOrd {
		return
	}
	entryVec, ok := idx.provider.VectorAt(entry)
	if !ok {
		return
	}
	newVec, ok := idx.provider.VectorAt(newOrd)
	if !ok {
		return
	}
	scoreToEntry := idx.cfg.Similarity.Score(newVec, entryVec)
	entryNeighbors := idx.graph.Neighbors(entry).Snapshot()
	if len(entryNeighbors) == 0 || scoreToEntry > entryNeighbors[0].Score {
		idx.graph.PromoteEntry(entry, newOrd)
	}
}
