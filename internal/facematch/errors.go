package facematch

import "errors"

var (
	// ErrInsufficientSamples is returned when fewer than the minimum number
	// of samples carry a usable descriptor.
	ErrInsufficientSamples = errors.New("insufficient face samples")

	// ErrDescriptorDimensionMismatch is returned when descriptors of
	// different lengths are combined or compared.
	ErrDescriptorDimensionMismatch = errors.New("descriptor dimension mismatch")
)
