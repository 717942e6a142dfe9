package facematch

import "math"

// EuclideanDistance computes the Euclidean distance between two descriptors.
// Returns ErrDescriptorDimensionMismatch if the vectors differ in length.
func EuclideanDistance(a, b []float32) (float64, error) {
	if len(a) != len(b) {
		return 0, ErrDescriptorDimensionMismatch
	}

	var sum float64
	for i := range a {
		d := float64(a[i]) - float64(b[i])
		sum += d * d
	}
	return math.Sqrt(sum), nil
}

// Confidence converts a descriptor distance to a score in [0, 1].
// It is a monotonically decreasing function of distance, not a calibrated
// probability: the raw distance distribution of the extraction model is
// never measured, so treat the value as a ranking signal only.
func Confidence(distance float64) float64 {
	c := 1 - distance
	if c < 0 {
		return 0
	}
	if c > 1 {
		return 1
	}
	return c
}
