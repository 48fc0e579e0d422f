package embedding

import "math"

// EuclideanDistance computes the Euclidean distance between two embedding
// vectors. This is the metric face matching thresholds are calibrated
// against: the same person typically scores below 0.6 on 128-dim face
// embeddings. Mismatched or empty vectors return +Inf so they can never pass
// a threshold.
func EuclideanDistance(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return math.Inf(1)
	}

	var sum float64
	for i := range a {
		d := float64(a[i]) - float64(b[i])
		sum += d * d
	}
	return math.Sqrt(sum)
}
