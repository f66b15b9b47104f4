package vamana

import "container/heap"

// searchConfig bundles the parameters a beam search needs beyond the graph
// and query itself (spec section 4.6, component C7). The bounded-candidates
// capacity is not part of this config: it is ef_search, supplied per call to
// Search, since spec section 4.6 and section 8's "Monotonicity in ef" law
// both treat it as a query-time parameter distinct from the build-time
// EfConstruction.
type searchConfig struct {
	sim          Similarity
	rerankFactor int // PQ rerank over-fetch multiplier; 0 or 1 disables rerank
}

// Searcher runs best-first beam search over a GraphStore, starting from its
// entry point (spec section 4.6). It is stateless and safe to share across
// goroutines; each call to Search builds its own transient visited set and
// frontier.
type Searcher struct {
	graph      *GraphStore
	provider   Provider
	compressed CompressedProvider
	cfg        searchConfig

	pool *bitsetPool
}

// NewSearcher builds a searcher over graph using provider for raw-vector
// lookups (the path taken when no PQ codec is installed).
func NewSearcher(graph *GraphStore, provider Provider, sim Similarity) *Searcher {
	return &Searcher{
		graph:    graph,
		provider: provider,
		cfg:      searchConfig{sim: sim},
		pool:     newBitsetPool(),
	}
}

// WithCompressed installs a CompressedProvider so the searcher scores the
// frontier against PQ asymmetric distance tables instead of raw vectors,
// and reranks the final top_k*rerankFactor candidates against the raw
// provider when rerankFactor > 1 (spec section 9's optional rerank).
func (s *Searcher) WithCompressed(cp CompressedProvider, rerankFactor int) *Searcher {
	s.compressed = cp
	s.cfg.rerankFactor = rerankFactor
	return s
}

// Search returns the topK candidates most similar to query, best-first, with
// ties broken by smaller ordinal (spec section 8, "Search determinism").
// efSearch is the beam width: the bounded-candidates working-set capacity
// held constant for the duration of this call (spec section 4.6's
// search(query, top_k, ef_search) and section 8's ef-monotonicity law).
// efSearch is clamped up to the fetch count (topK, or topK*rerankFactor
// when a PQ rerank is active), since a working set smaller than the
// requested result count can never fill it.
func (s *Searcher) Search(query []float32, topK int, efSearch int) ([]Candidate, error) {
	entry, ok := s.graph.Entry()
	if !ok {
		return nil, newErr(KindEmptyGraph, "search called before any node was published")
	}

	fetchK := topK
	usePQ := s.compressed != nil
	if usePQ && s.cfg.rerankFactor > 1 {
		fetchK = topK * s.cfg.rerankFactor
	}

	beam := efSearch
	if beam < fetchK {
		beam = fetchK
	}

	visited := s.pool.get()
	defer s.pool.put(visited)

	// The asymmetric distance table is query-dependent only, so it is built
	// once here and reused for every candidate this call scores, instead of
	// being recomputed per candidate (spec section 4.9: "the table is
	// computed once per query").
	var cq CompressedQuery
	if usePQ {
		cq = s.compressed.PrepareQuery(query)
	}

	scoreOf := func(ord uint32) (float32, bool) {
		if usePQ {
			return cq.SimilarityTo(ord)
		}
		vec, ok := s.provider.VectorAt(ord)
		if !ok {
			return 0, false
		}
		return s.cfg.sim.Score(query, vec), true
	}

	entryScore, ok := scoreOf(entry)
	if !ok {
		return nil, newErr(KindOrdinalOutOfRange, "entry point has no vector")
	}

	bounded := NewBoundedCandidates(beam)
	visited.Set(entry)
	bounded.Push(entry, entryScore)

	frontier := frontierHeap{{Ordinal: entry, Score: entryScore}}
	heap.Init(&frontier)

	for frontier.Len() > 0 {
		cur := heap.Pop(&frontier).(Candidate)

		worst, full := bounded.PeekWorstScore()
		if full && bounded.Full() && cur.Score < worst {
			// Nothing left in the frontier can beat the current worst kept
			// candidate; best-first order guarantees this holds for every
			// remaining frontier entry too.
			break
		}

		nl := s.graph.Neighbors(cur.Ordinal)
		if nl == nil {
			continue
		}
		for _, nb := range nl.Snapshot() {
			if visited.Get(nb.Ordinal) {
				continue
			}
			if !s.graph.IsPublished(nb.Ordinal) {
				continue
			}
			visited.Set(nb.Ordinal)

			score, ok := scoreOf(nb.Ordinal)
			if !ok {
				continue
			}
			if bounded.Push(nb.Ordinal, score) {
				heap.Push(&frontier, Candidate{Ordinal: nb.Ordinal, Score: score})
			}
		}
	}

	top := bounded.TopK(fetchK)

	if usePQ && s.cfg.rerankFactor > 1 {
		top = s.rerank(query, top, topK)
	} else if len(top) > topK {
		top = top[:topK]
	}
	return top, nil
}

// rerank rescoes the PQ-shortlisted candidates against raw vectors and
// truncates to topK, the same two-phase approximate-then-exact shape the
// teacher's disk-resident searcher uses.
func (s *Searcher) rerank(query []float32, shortlist []Candidate, topK int) []Candidate {
	rescored := make([]Candidate, 0, len(shortlist))
	for _, c := range shortlist {
		vec, ok := s.provider.VectorAt(c.Ordinal)
		if !ok {
			continue
		}
		rescored = append(rescored, Candidate{Ordinal: c.Ordinal, Score: s.cfg.sim.Score(query, vec)})
	}
	sortCandidatesDesc(rescored)
	if topK < len(rescored) {
		rescored = rescored[:topK]
	}
	return rescored
}
