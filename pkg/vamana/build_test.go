package vamana

import (
	"math/rand"
	"sync"
	"testing"
)

func TestNewIndexValidatesConfig(t *testing.T) {
	cfg := DefaultConfig(0, Euclidean)
	if _, err := NewIndex(cfg); err == nil {
		t.Fatal("expected NewIndex to reject an invalid config")
	}
}

func TestIndexInsertRejectsDimensionMismatch(t *testing.T) {
	idx, err := NewIndex(DefaultConfig(3, Euclidean))
	if err != nil {
		t.Fatalf("NewIndex: %v", err)
	}
	if _, err := idx.Insert([]float32{1, 2}); err == nil {
		t.Fatal("expected dimension mismatch error")
	}
}

func TestIndexSearchOnEmptyGraphFails(t *testing.T) {
	idx, err := NewIndex(DefaultConfig(3, Euclidean))
	if err != nil {
		t.Fatalf("NewIndex: %v", err)
	}
	if _, err := idx.Search([]float32{1, 2, 3}, 5, 20); err == nil {
		t.Fatal("expected search on empty graph to fail")
	}
}

func TestIndexInsertAndSearchFindsExactMatch(t *testing.T) {
	idx, err := NewIndex(DefaultConfig(4, Euclidean))
	if err != nil {
		t.Fatalf("NewIndex: %v", err)
	}

	vectors := [][]float32{
		{1, 0, 0, 0},
		{0, 1, 0, 0},
		{0, 0, 1, 0},
		{0, 0, 0, 1},
		{1, 1, 1, 1},
	}
	for _, v := range vectors {
		if _, err := idx.Insert(v); err != nil {
			t.Fatalf("Insert(%v): %v", v, err)
		}
	}

	results, err := idx.Search([]float32{0, 1, 0, 0}, 1, 10)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(results) != 1 {
		t.Fatalf("expected 1 result, got %d", len(results))
	}
	got, _ := idx.provider.VectorAt(results[0].Ordinal)
	if got[0] != 0 || got[1] != 1 || got[2] != 0 || got[3] != 0 {
		t.Fatalf("expected nearest neighbor to be the exact match, got %v", got)
	}
}

func TestIndexCosineNormalizesVectorsAtInsertion(t *testing.T) {
	idx, err := NewIndex(DefaultConfig(2, Cosine))
	if err != nil {
		t.Fatalf("NewIndex: %v", err)
	}
	ord, err := idx.Insert([]float32{3, 4})
	if err != nil {
		t.Fatalf("Insert: %v", err)
	}
	stored, _ := idx.provider.VectorAt(ord)
	mag := stored[0]*stored[0] + stored[1]*stored[1]
	if mag < 0.999 || mag > 1.001 {
		t.Fatalf("expected stored vector to be unit-normalized, squared magnitude = %v", mag)
	}
}

func TestIndexConcurrentInsertsPreserveOrdinalAlignment(t *testing.T) {
	idx, err := NewIndex(DefaultConfig(8, Euclidean))
	if err != nil {
		t.Fatalf("NewIndex: %v", err)
	}

	const n = 200
	var wg sync.WaitGroup
	rng := rand.New(rand.NewSource(1))
	vectors := make([][]float32, n)
	for i := range vectors {
		v := make([]float32, 8)
		for j := range v {
			v[j] = rng.Float32()
		}
		vectors[i] = v
	}

	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(v []float32) {
			defer wg.Done()
			if _, err := idx.Insert(v); err != nil {
				t.Errorf("concurrent Insert failed: %v", err)
			}
		}(vectors[i])
	}
	wg.Wait()

	if idx.Size() != int64(n) {
		t.Fatalf("Size() = %d, want %d", idx.Size(), n)
	}

	// Every ordinal up to n must resolve to some vector, confirming the
	// provider and graph never drifted apart under concurrent allocation.
	for ord := uint32(0); int(ord) < n; ord++ {
		if _, ok := idx.provider.VectorAt(ord); !ok {
			t.Fatalf("ordinal %d has no vector", ord)
		}
		if idx.graph.Neighbors(ord) == nil {
			t.Fatalf("ordinal %d has no neighbor list", ord)
		}
	}
}

func TestIndexSearchRecallAgainstBruteForce(t *testing.T) {
	const dim = 16
	const n = 300
	idx, err := NewIndex(DefaultConfig(dim, Euclidean))
	if err != nil {
		t.Fatalf("NewIndex: %v", err)
	}

	rng := rand.New(rand.NewSource(42))
	vectors := make([][]float32, n)
	for i := range vectors {
		v := make([]float32, dim)
		for j := range v {
			v[j] = rng.Float32()
		}
		vectors[i] = v
		if _, err := idx.Insert(v); err != nil {
			t.Fatalf("Insert: %v", err)
		}
	}

	query := vectors[0]
	const topK = 10
	const efSearch = 100
	results, err := idx.Search(query, topK, efSearch)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}

	bruteForce := make([]Candidate, n)
	for i, v := range vectors {
		bruteForce[i] = Candidate{Ordinal: uint32(i), Score: Euclidean.Score(query, v)}
	}
	sortCandidatesDesc(bruteForce)
	exactTopK := bruteForce[:topK]

	exactSet := make(map[uint32]bool, topK)
	for _, c := range exactTopK {
		exactSet[c.Ordinal] = true
	}

	hits := 0
	for _, r := range results {
		if exactSet[r.Ordinal] {
			hits++
		}
	}
	recall := float64(hits) / float64(topK)
	if recall < 0.7 {
		t.Fatalf("recall@%d = %v, want >= 0.7 (got %d/%d hits)", topK, recall, hits, topK)
	}
}
