package quantization

import (
	"errors"
	"fmt"
)

// codebookSize is the fixed number of centroids per subspace (K=256, one
// byte per code). The system this package's spec was distilled from pins K
// at 256 rather than exposing it as a tunable bits-per-code parameter.
const codebookSize = 256

// Codec is a trained Product Quantization codec: it partitions a vector
// into contiguous subspaces, and independently vector-quantizes each
// subspace against its own 256-centroid codebook (spec section 4.9,
// component C9).
//
// Subspaces need not be equal width: SubspaceDims is an explicit partition
// of [0, D) into contiguous ranges, generalizing the equal-division-only
// scheme a fixed numSubvectors/subvectorDim pair would force.
type Codec struct {
	dim          int
	subspaceDims []int // width of each subspace; sums to dim
	offsets      []int // starting dim of each subspace, len(subspaceDims)+1 (last = dim)

	centered bool
	centroid []float32 // global mean, subtracted before encoding when centered

	codebooks [][][]float32 // codebooks[subspace][code] = centroid, len(codebooks[s]) == codebookSize

	config *QuantizationConfig
}

// NewCodec creates an untrained codec over vectors of the given dimension,
// partitioned into subspaces of the given widths (which must sum to dim).
// When centered is true, Train additionally computes and subtracts the
// global mean vector before partitioning, which tends to tighten clusters
// for data with a nonzero centroid (spec section 9, "PQ centering").
func NewCodec(dim int, subspaceDims []int, centered bool, config *QuantizationConfig) (*Codec, error) {
	sum := 0
	for _, w := range subspaceDims {
		if w <= 0 {
			return nil, fmt.Errorf("quantization: subspace width must be positive, got %d", w)
		}
		sum += w
	}
	if sum != dim {
		return nil, fmt.Errorf("quantization: subspace widths sum to %d, want %d", sum, dim)
	}
	if config == nil {
		config = DefaultConfig()
	}

	offsets := make([]int, len(subspaceDims)+1)
	for i, w := range subspaceDims {
		offsets[i+1] = offsets[i] + w
	}

	return &Codec{
		dim:          dim,
		subspaceDims: append([]int(nil), subspaceDims...),
		offsets:      offsets,
		centered:     centered,
		codebooks:    make([][][]float32, len(subspaceDims)),
		config:       config,
	}, nil
}

// EqualSubspaces builds the widths argument for NewCodec's common case: m
// subspaces as close to equal width as possible (the extra dims, if dim
// isn't evenly divisible by m, go to the first dim%m subspaces).
func EqualSubspaces(dim, m int) []int {
	base := dim / m
	extra := dim % m
	widths := make([]int, m)
	for i := range widths {
		widths[i] = base
		if i < extra {
			widths[i]++
		}
	}
	return widths
}

// NumSubspaces returns the number of independently quantized subspaces.
func (c *Codec) NumSubspaces() int { return len(c.subspaceDims) }

// Dimension returns the full (pre-partition) vector dimension.
func (c *Codec) Dimension() int { return c.dim }

func (c *Codec) subspace(v []float32, s int) []float32 {
	return v[c.offsets[s]:c.offsets[s+1]]
}

func (c *Codec) center(vector []float32) []float32 {
	if !c.centered {
		return vector
	}
	centered := make([]float32, len(vector))
	for i, x := range vector {
		centered[i] = x - c.centroid[i]
	}
	return centered
}

// Train fits a 256-centroid k-means++ codebook per subspace from the
// supplied training vectors (spec section 4.9, "train"). Every subspace
// requires at least codebookSize training samples.
func (c *Codec) Train(vectors [][]float32) error {
	if len(vectors) == 0 {
		return fmt.Errorf("quantization: no training data provided")
	}
	if len(vectors) < codebookSize {
		return newTrainingErr(len(vectors))
	}

	if c.centered {
		c.centroid = make([]float32, c.dim)
		for _, v := range vectors {
			for d := 0; d < c.dim; d++ {
				c.centroid[d] += v[d]
			}
		}
		for d := 0; d < c.dim; d++ {
			c.centroid[d] /= float32(len(vectors))
		}
	}

	for s := range c.subspaceDims {
		sub := make([][]float32, len(vectors))
		for i, v := range vectors {
			cv := c.center(v)
			width := c.subspaceDims[s]
			chunk := make([]float32, width)
			copy(chunk, c.subspace(cv, s))
			sub[i] = chunk
		}

		centroids, err := kMeansPlusPlus(sub, codebookSize, c.config)
		if err != nil {
			return fmt.Errorf("quantization: k-means failed for subspace %d: %w", s, err)
		}
		c.codebooks[s] = centroids
	}
	return nil
}

// Encode quantizes vector into one byte per subspace, each the index of
// its nearest codebook centroid (spec section 4.9, "encode").
func (c *Codec) Encode(vector []float32) []byte {
	cv := c.center(vector)
	codes := make([]byte, len(c.subspaceDims))
	for s := range c.subspaceDims {
		sub := c.subspace(cv, s)
		best := 0
		bestDist := float32(-1)
		for code, centroid := range c.codebooks[s] {
			d := distanceFor(c.config.DistanceMetric, sub, centroid)
			if bestDist < 0 || d < bestDist {
				bestDist = d
				best = code
			}
		}
		codes[s] = byte(best)
	}
	return codes
}

// Decode reconstructs an approximate vector from codes by concatenating
// the codebook centroids they index (spec section 4.9, "decode").
func (c *Codec) Decode(codes []byte) ([]float32, error) {
	if len(codes) != len(c.subspaceDims) {
		return nil, fmt.Errorf("quantization: expected %d codes, got %d", len(c.subspaceDims), len(codes))
	}
	out := make([]float32, c.dim)
	for s, code := range codes {
		if int(code) >= len(c.codebooks[s]) {
			return nil, fmt.Errorf("quantization: code %d out of range for subspace %d", code, s)
		}
		copy(out[c.offsets[s]:c.offsets[s+1]], c.codebooks[s][code])
	}
	if c.centered {
		for d := range out {
			out[d] += c.centroid[d]
		}
	}
	return out, nil
}

// DistanceTable precomputes, for a query vector, the distance from each of
// its subspace projections to every centroid in that subspace's codebook
// (spec section 4.9, "compute_distance_table"). Scoring an encoded vector
// against it is then O(numSubspaces) table lookups rather than O(dim)
// float arithmetic (component C9's asymmetric distance path, used by the
// searcher in place of raw-vector scoring).
type DistanceTable struct {
	metric DistanceMetric
	table  [][]float32 // table[subspace][code]
}

// ComputeDistanceTable builds the asymmetric distance table for query.
func (c *Codec) ComputeDistanceTable(query []float32) *DistanceTable {
	cq := c.center(query)
	table := make([][]float32, len(c.subspaceDims))
	for s := range c.subspaceDims {
		sub := c.subspace(cq, s)
		table[s] = make([]float32, len(c.codebooks[s]))
		for code, centroid := range c.codebooks[s] {
			table[s][code] = distanceFor(c.config.DistanceMetric, sub, centroid)
		}
	}
	return &DistanceTable{metric: c.config.DistanceMetric, table: table}
}

// AsymmetricDistance sums the table lookups for codes, the fast scoring
// path used while a query's frontier is still PQ-compressed.
func (t *DistanceTable) AsymmetricDistance(codes []byte) float32 {
	var total float32
	for s, code := range codes {
		total += t.table[s][code]
	}
	return total
}

// GetConfig returns the codec's quantization configuration.
func (c *Codec) GetConfig() *QuantizationConfig { return c.config }

// CompressionRatio reports the ratio of raw float32 storage to PQ-coded
// storage per vector.
func (c *Codec) CompressionRatio() float32 {
	return float32(c.dim*4) / float32(len(c.subspaceDims))
}

// distanceFor scores one subspace's contribution to a codec-wide distance.
// Euclidean uses squared distance rather than euclideanDistanceFloat32's
// square root: squared per-subspace distances sum to the squared distance
// of the full vector, so the codec-wide total stays correct; taking a
// square root per subspace first would not. Dot product is exactly
// additive across a partition. Cosine distance is not additive across
// subspaces in general; summing per-subspace cosine distances is an
// approximation the asymmetric path accepts in exchange for O(1)
// table lookups, corrected later by the searcher's raw-vector rerank
// pass.
func distanceFor(metric DistanceMetric, a, b []float32) float32 {
	switch metric {
	case EuclideanDistance:
		var sum float32
		for i := range a {
			d := a[i] - b[i]
			sum += d * d
		}
		return sum
	case CosineDistance:
		return cosineDistanceFloat32(a, b)
	case DotProductDistance:
		return -dotProductFloat32(a, b)
	default:
		var sum float32
		for i := range a {
			d := a[i] - b[i]
			sum += d * d
		}
		return sum
	}
}

func newTrainingErr(got int) error {
	return fmt.Errorf("quantization: need at least %d training vectors, got %d: %w", codebookSize, got, errTrainingInsufficient)
}

var errTrainingInsufficient = fmt.Errorf("insufficient training data")

// ErrTrainingInsufficient reports whether err was caused by too few
// training vectors, so callers can map it to the core's
// TrainingInsufficient error kind.
func ErrTrainingInsufficient(err error) bool {
	return errors.Is(err, errTrainingInsufficient)
}
