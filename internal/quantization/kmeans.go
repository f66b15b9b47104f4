package quantization

import (
	"fmt"
	"math"
	"math/rand"
)

// euclideanDistanceFloat32 computes Euclidean distance between two float32
// vectors, used by kMeansPlusPlus to score subspace training samples
// against candidate centroids. It takes the square root, unlike
// distanceFor's Euclidean branch, since k-means assignment only needs
// nearest-centroid comparisons, not a sum that must stay additive across
// subspaces.
func euclideanDistanceFloat32(a, b []float32) float32 {
	var sum float32
	for i := range a {
		diff := a[i] - b[i]
		sum += diff * diff
	}
	return float32(math.Sqrt(float64(sum)))
}

// cosineDistanceFloat32 computes cosine distance (1 - cosine similarity).
func cosineDistanceFloat32(a, b []float32) float32 {
	var dotProduct, normA, normB float32
	for i := range a {
		dotProduct += a[i] * b[i]
		normA += a[i] * a[i]
		normB += b[i] * b[i]
	}
	normA = float32(math.Sqrt(float64(normA)))
	normB = float32(math.Sqrt(float64(normB)))

	if normA == 0 || normB == 0 {
		return 1.0
	}

	cosineSim := dotProduct / (normA * normB)
	return 1.0 - cosineSim
}

// dotProductFloat32 computes the dot product of two vectors.
func dotProductFloat32(a, b []float32) float32 {
	var sum float32
	for i := range a {
		sum += a[i] * b[i]
	}
	return sum
}

func trainingDistance(metric DistanceMetric, a, b []float32) float32 {
	switch metric {
	case CosineDistance:
		return cosineDistanceFloat32(a, b)
	case DotProductDistance:
		return -dotProductFloat32(a, b)
	default:
		return euclideanDistanceFloat32(a, b)
	}
}

// kMeansPlusPlus fits k centroids over vectors using k-means++
// initialization (spreading the initial centroids out by squared distance
// rather than picking them uniformly at random) followed by standard
// Lloyd's-algorithm iterations, the codec's per-subspace codebook trainer
// (spec section 4.9, "train").
func kMeansPlusPlus(vectors [][]float32, k int, config *QuantizationConfig) ([][]float32, error) {
	if len(vectors) < k {
		return nil, fmt.Errorf("not enough vectors (%d) for %d clusters", len(vectors), k)
	}
	if len(vectors[0]) == 0 {
		return nil, fmt.Errorf("empty vectors")
	}

	dim := len(vectors[0])
	centroids := make([][]float32, k)
	r := rand.New(rand.NewSource(config.RandomSeed))

	firstIdx := r.Intn(len(vectors))
	centroids[0] = make([]float32, dim)
	copy(centroids[0], vectors[firstIdx])

	for c := 1; c < k; c++ {
		distances := make([]float32, len(vectors))
		var totalDist float32

		for i, vec := range vectors {
			minDist := float32(math.MaxFloat32)
			for j := 0; j < c; j++ {
				if d := trainingDistance(config.DistanceMetric, vec, centroids[j]); d < minDist {
					minDist = d
				}
			}
			distances[i] = minDist * minDist
			totalDist += distances[i]
		}

		if totalDist > 0 {
			target := r.Float32() * totalDist
			var cumulative float32
			for i, dist := range distances {
				cumulative += dist
				if cumulative >= target {
					centroids[c] = make([]float32, dim)
					copy(centroids[c], vectors[i])
					break
				}
			}
		} else {
			idx := r.Intn(len(vectors))
			centroids[c] = make([]float32, dim)
			copy(centroids[c], vectors[idx])
		}
	}

	for iter := 0; iter < config.NumIterations; iter++ {
		clusters := make([][][]float32, k)
		for _, vec := range vectors {
			minDist := float32(math.MaxFloat32)
			minCluster := 0
			for c, centroid := range centroids {
				if d := trainingDistance(config.DistanceMetric, vec, centroid); d < minDist {
					minDist = d
					minCluster = c
				}
			}
			clusters[minCluster] = append(clusters[minCluster], vec)
		}

		converged := true
		for c := range centroids {
			if len(clusters[c]) == 0 {
				continue
			}

			newCentroid := make([]float32, dim)
			for _, vec := range clusters[c] {
				for d := 0; d < dim; d++ {
					newCentroid[d] += vec[d]
				}
			}
			for d := 0; d < dim; d++ {
				newCentroid[d] /= float32(len(clusters[c]))
			}

			if euclideanDistanceFloat32(centroids[c], newCentroid) > 1e-6 {
				converged = false
			}
			centroids[c] = newCentroid
		}

		if converged {
			if config.Verbose {
				fmt.Printf("k-means converged at iteration %d\n", iter)
			}
			break
		}
	}

	return centroids, nil
}
