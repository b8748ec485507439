package search

import (
	"math"
	"math/rand"
	"sort"

	"github.com/BaSui01/thoughtflow/types"
)

// selectGreedy returns the indices of the k highest scores. Ties keep candidate order.
func selectGreedy(scores []float64, k int) []int {
	ids := make([]int, len(scores))
	for i := range ids {
		ids[i] = i
	}
	sort.SliceStable(ids, func(a, b int) bool {
		return scores[ids[a]] > scores[ids[b]]
	})
	if k < len(ids) {
		ids = ids[:k]
	}
	return ids
}

// selectSample draws k indices with replacement, each with probability score/sum.
func selectSample(rng *rand.Rand, scores []float64, k int) ([]int, error) {
	var sum float64
	lastPositive := -1
	for i, v := range scores {
		if v < 0 || math.IsNaN(v) {
			return nil, types.Errorf(types.ErrDegenerateDistribution, "score %v at index %d is not a valid weight", v, i)
		}
		if v > 0 {
			lastPositive = i
		}
		sum += v
	}
	if !(sum > 0) || math.IsInf(sum, 0) {
		return nil, types.Errorf(types.ErrDegenerateDistribution, "cannot draw %d of %d candidates: score sum is %v", k, len(scores), sum)
	}

	cdf := make([]float64, len(scores))
	var acc float64
	for i, v := range scores {
		acc += v / sum
		cdf[i] = acc
	}

	picks := make([]int, k)
	for j := range picks {
		r := rng.Float64()
		i := sort.Search(len(cdf), func(n int) bool { return cdf[n] > r })
		if i > lastPositive {
			// rounding left cdf[last] slightly below 1
			i = lastPositive
		}
		picks[j] = i
	}
	return picks, nil
}

// argmax returns the first index holding the maximum score, or -1 when empty.
func argmax(scores []float64) int {
	best := -1
	for i, v := range scores {
		if best < 0 || v > scores[best] {
			best = i
		}
	}
	return best
}
