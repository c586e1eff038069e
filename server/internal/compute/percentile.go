package compute

import "math"

// P95 returns the 95th percentile of sorted using the nearest-rank method:
// the element at index floor(0.95*n), clamped to n-1.
//
// sorted must already be in ascending order; the store returns samples that
// way and P95 does not re-sort them. An empty slice yields 0.
func P95(sorted []float64) float64 {
	n := len(sorted)
	if n == 0 {
		return 0
	}
	idx := int(math.Floor(0.95 * float64(n)))
	if idx > n-1 {
		idx = n - 1
	}
	return sorted[idx]
}
