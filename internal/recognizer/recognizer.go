// Package recognizer talks to the face extraction service and converts its
// detections into descriptors the matching core understands.
package recognizer

import (
	"context"
	"errors"

	"github.com/crewpix/crewpix/internal/facematch"
)

var (
	// ErrExtractionFailed wraps any failure of the extraction backend so
	// callers can distinguish it from matching or storage errors.
	ErrExtractionFailed = errors.New("face extraction failed")
	// ErrNotReady means the extraction backend has not finished loading
	// its model yet.
	ErrNotReady = errors.New("recognizer not ready")
)

// Extractor detects faces in an image and returns one detection per face.
// An image with no faces yields an empty slice, not an error.
type Extractor interface {
	Extract(ctx context.Context, imageData []byte) ([]facematch.Detection, error)
	Ready(ctx context.Context) error
}
