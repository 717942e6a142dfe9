package facematch

import "sort"

// Aggregate computes a representative descriptor from multiple enrollment
// samples of the same person.
//
// Samples without a descriptor are skipped; if fewer than minSamples valid
// samples remain the call fails with ErrInsufficientSamples. Valid samples
// are ranked by bounding-box area descending (larger face crops are assumed
// higher quality) and at most maxSamples are retained. The result is the
// element-wise arithmetic mean of the retained descriptors.
//
// Aggregate is a pure function: repeated calls on identical input produce an
// identical result. Persisting the output is the caller's responsibility.
func Aggregate(samples []Detection, minSamples, maxSamples int) ([]float32, error) {
	if minSamples <= 0 {
		minSamples = DefaultMinSamples
	}
	if maxSamples <= 0 {
		maxSamples = DefaultMaxSamples
	}

	valid := make([]Detection, 0, len(samples))
	for i := range samples {
		if len(samples[i].Descriptor) > 0 {
			valid = append(valid, samples[i])
		}
	}
	if len(valid) < minSamples {
		return nil, ErrInsufficientSamples
	}

	// Largest faces first; stable so equal areas keep submission order.
	sort.SliceStable(valid, func(i, j int) bool {
		return valid[i].BBox.Area() > valid[j].BBox.Area()
	})
	if len(valid) > maxSamples {
		valid = valid[:maxSamples]
	}

	dim := len(valid[0].Descriptor)
	for i := range valid {
		if len(valid[i].Descriptor) != dim {
			return nil, ErrDescriptorDimensionMismatch
		}
	}

	// Sum in float64 to keep the mean deterministic and precise.
	sums := make([]float64, dim)
	for i := range valid {
		for d, v := range valid[i].Descriptor {
			sums[d] += float64(v)
		}
	}

	mean := make([]float32, dim)
	for d := range sums {
		mean[d] = float32(sums[d] / float64(len(valid)))
	}
	return mean, nil
}

// SelectBestSamples returns the samples Aggregate would retain, in rank
// order. Used by the enrollment flow to persist the contributing samples
// alongside the representative descriptor.
func SelectBestSamples(samples []Detection, minSamples, maxSamples int) ([]Detection, error) {
	if minSamples <= 0 {
		minSamples = DefaultMinSamples
	}
	if maxSamples <= 0 {
		maxSamples = DefaultMaxSamples
	}

	valid := make([]Detection, 0, len(samples))
	for i := range samples {
		if len(samples[i].Descriptor) > 0 {
			valid = append(valid, samples[i])
		}
	}
	if len(valid) < minSamples {
		return nil, ErrInsufficientSamples
	}

	sort.SliceStable(valid, func(i, j int) bool {
		return valid[i].BBox.Area() > valid[j].BBox.Area()
	})
	if len(valid) > maxSamples {
		valid = valid[:maxSamples]
	}
	return valid, nil
}
