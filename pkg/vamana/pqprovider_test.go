package vamana

import (
	"math/rand"
	"testing"

	"github.com/therealutkarshpriyadarshi/vamanadb/internal/quantization"
)

// trainTestCodec trains a small PQ codec against every vector currently in
// provider, using 2 subspaces (dimension in these tests is small so 2 is
// the most it can meaningfully support).
func trainTestCodec(t *testing.T, provider *OwningProvider, n int) *quantization.Codec {
	t.Helper()
	dim := provider.Dimension()
	m := 2
	if dim < m {
		m = dim
	}
	widths := quantization.EqualSubspaces(dim, m)
	codec, err := quantization.NewCodec(dim, widths, false, quantization.DefaultConfig())
	if err != nil {
		t.Fatalf("NewCodec: %v", err)
	}

	vectors := make([][]float32, 0, n)
	for i := 0; i < n; i++ {
		v, ok := provider.VectorAt(uint32(i))
		if !ok {
			continue
		}
		vectors = append(vectors, v)
	}
	// Pad with random vectors if the provider doesn't yet have the 256
	// samples PQ training requires per subspace.
	rng := rand.New(rand.NewSource(7))
	for len(vectors) < 256 {
		v := make([]float32, dim)
		for j := range v {
			v[j] = rng.Float32() * 100
		}
		vectors = append(vectors, v)
	}

	if err := codec.Train(vectors); err != nil {
		t.Fatalf("Train: %v", err)
	}
	return codec
}

func TestPQProviderAppendAndSize(t *testing.T) {
	provider := NewOwningProvider(4)
	for i := 0; i < 300; i++ {
		provider.Append([]float32{float32(i), 1, 2, 3})
	}
	codec := trainTestCodec(t, provider, 300)

	pq := NewPQProvider(codec, Euclidean)
	for i := 0; i < 300; i++ {
		v, _ := provider.VectorAt(uint32(i))
		pq.Append(v)
	}
	if pq.Size() != 300 {
		t.Fatalf("Size() = %d, want 300", pq.Size())
	}
	if pq.Dimension() != 4 {
		t.Fatalf("Dimension() = %d, want 4", pq.Dimension())
	}
}

func TestPQProviderSimilarityToOutOfRangeOrdinal(t *testing.T) {
	provider := NewOwningProvider(4)
	for i := 0; i < 300; i++ {
		provider.Append([]float32{float32(i), 1, 2, 3})
	}
	codec := trainTestCodec(t, provider, 300)
	pq := NewPQProvider(codec, Euclidean)

	if _, ok := pq.PrepareQuery([]float32{0, 0, 0, 0}).SimilarityTo(0); ok {
		t.Fatal("expected SimilarityTo to fail before any Append")
	}
}

func TestPQProviderSimilarityToInRange(t *testing.T) {
	provider := NewOwningProvider(4)
	for i := 0; i < 300; i++ {
		provider.Append([]float32{float32(i % 10), 1, 2, 3})
	}
	codec := trainTestCodec(t, provider, 300)
	pq := NewPQProvider(codec, Euclidean)
	for i := 0; i < 300; i++ {
		v, _ := provider.VectorAt(uint32(i))
		pq.Append(v)
	}

	score, ok := pq.PrepareQuery([]float32{5, 1, 2, 3}).SimilarityTo(5)
	if !ok {
		t.Fatal("expected SimilarityTo to succeed for a stored ordinal")
	}
	if score < 0 || score > 1 {
		t.Fatalf("SimilarityTo score = %v, out of (0,1] range", score)
	}
}
