package vamana

import (
	"sync"

	"github.com/therealutkarshpriyadarshi/vamanadb/internal/quantization"
)

// PQProvider is a CompressedProvider backed by a trained PQ codec: it
// stores one code vector per ordinal instead of the raw float32s, and
// scores queries against them via the codec's asymmetric distance table
// (spec section 4.9 and section 3's "compressed" provider variant).
type PQProvider struct {
	codec *quantization.Codec
	sim   Similarity

	mu    sync.RWMutex
	codes [][]byte
}

// NewPQProvider wraps a trained codec. sim selects how raw asymmetric
// distances are mapped into the core's (0, 1] score space, mirroring
// Similarity.Score's per-metric shape.
func NewPQProvider(codec *quantization.Codec, sim Similarity) *PQProvider {
	return &PQProvider{codec: codec, sim: sim}
}

// Append encodes vector and stores its code, returning the assigned
// ordinal. Ordinals assigned here are expected to line up with the
// OwningProvider's ordinals for the same vectors (the builder encodes
// every inserted vector into both providers under the same allocation
// lock).
func (p *PQProvider) Append(vector []float32) uint32 {
	code := p.codec.Encode(vector)
	p.mu.Lock()
	defer p.mu.Unlock()
	ord := uint32(len(p.codes))
	p.codes = append(p.codes, code)
	return ord
}

// Size returns the number of codes stored.
func (p *PQProvider) Size() int {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return len(p.codes)
}

// Dimension returns the pre-quantization vector dimension.
func (p *PQProvider) Dimension() int { return p.codec.Dimension() }

// PrepareQuery builds the asymmetric distance table for query once (spec
// section 4.9: "the table is computed once per query ... the performance
// reason PQ exists"), returning a handle that scores any number of
// ordinals against that single table.
func (p *PQProvider) PrepareQuery(query []float32) CompressedQuery {
	return &pqQuery{provider: p, table: p.codec.ComputeDistanceTable(query)}
}

type pqQuery struct {
	provider *PQProvider
	table    *quantization.DistanceTable
}

// SimilarityTo scores the prepared query against the ordinal's stored code
// via a single table lookup, mapped into the core's (0, 1] score space the
// same way Similarity.Score maps raw distances (spec section 4.6's
// PQ-scored frontier path).
func (q *pqQuery) SimilarityTo(ord uint32) (float32, bool) {
	p := q.provider
	p.mu.RLock()
	if int(ord) >= len(p.codes) {
		p.mu.RUnlock()
		return 0, false
	}
	code := p.codes[ord]
	p.mu.RUnlock()

	raw := q.table.AsymmetricDistance(code)
	return scoreFromAsymmetricDistance(p.sim, raw), true
}

// scoreFromAsymmetricDistance maps a codec asymmetric distance into the
// core's (0, 1] score space, one branch per similarity metric.
func scoreFromAsymmetricDistance(sim Similarity, raw float32) float32 {
	switch sim {
	case Euclidean:
		// raw is the squared Euclidean distance (see quantization.distanceFor);
		// Similarity.Score's Euclidean branch is already defined in terms of
		// squared distance, so this mirrors it exactly rather than
		// re-deriving from a square root.
		return 1.0 / (1.0 + raw)
	case DotProduct:
		// raw is the codec's -dot(query, approx) accumulated additively
		// across subspaces.
		dp := -raw
		return (1 + dp) / 2
	case Cosine:
		// raw approximates 1 - cos(query, approx) by summing per-subspace
		// cosine distances; not exact, but monotone enough to rank the PQ
		// frontier before the rerank pass corrects it against raw vectors.
		cos := 1 - raw
		return (1 + cos) / 2
	default:
		return 0
	}
}
