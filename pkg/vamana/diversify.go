package vamana

import "sort"

// robustPrune implements the Vamana/DiskANN neighbor diversification
// described in spec section 4.8: given a candidate pool and the owning
// node u's vector, select at most M neighbors biased toward
// nearby-but-geometrically-spread-out points.
//
// alpha >= 1.0 controls density: 1.0 is strict occlusion pruning, ~1.2 is
// the typical looser setting that keeps slightly more redundant edges for
// better recall.
func robustPrune(
	owner uint32, ownerVec []float32,
	candidates []Candidate,
	provider Provider, sim Similarity, alpha float64,
	m int,
) []Candidate {
	pool := make([]Candidate, 0, len(candidates))
	for _, c := range candidates {
		if c.Ordinal == owner {
			continue
		}
		pool = append(pool, c)
	}

	// Sort by score descending; ties break by lower ordinal first, so
	// builds are reproducible given a fixed insertion order (spec section
	// 4.8, "Tie-breaks").
	sort.Slice(pool, func(i, j int) bool {
		if pool[i].Score != pool[j].Score {
			return pool[i].Score > pool[j].Score
		}
		return pool[i].Ordinal < pool[j].Ordinal
	})

	selected := make([]Candidate, 0, m)
	for _, cand := range pool {
		if len(selected) >= m {
			break
		}

		candVec, ok := provider.VectorAt(cand.Ordinal)
		if !ok {
			continue
		}
		distToOwner := sim.RawDistance(candVec, ownerVec)

		occluded := false
		for _, s := range selected {
			sVec, ok := provider.VectorAt(s.Ordinal)
			if !ok {
				continue
			}
			distToSelected := sim.RawDistance(candVec, sVec)
			// s is closer to cand than u is, scaled by alpha: cand is
			// occluded by s and gets skipped.
			if alpha*float64(distToSelected) <= float64(distToOwner) {
				occluded = true
				break
			}
		}

		if !occluded {
			selected = append(selected, cand)
		}
	}

	return selected
}
