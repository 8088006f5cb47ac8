package evaluation

import "math/rand"

// newRand returns the private generator of one strategy.
func newRand(seed int64) *rand.Rand {
	return rand.New(rand.NewSource(seed)) //nolint:gosec // reproducible sampling, not security
}

// sampleIndices draws min(k, n) distinct indices of [0, n) without replacement.
func sampleIndices(rng *rand.Rand, n, k int) []int {
	k = max(0, min(k, n))
	if k == 0 {
		return nil
	}
	return rng.Perm(n)[:k]
}

// sampleStrings draws min(k, len(pool)) distinct elements of pool.
func sampleStrings(rng *rand.Rand, pool []string, k int) []string {
	idx := sampleIndices(rng, len(pool), k)
	out := make([]string, len(idx))
	for i, j := range idx {
		out[i] = pool[j]
	}
	return out
}
