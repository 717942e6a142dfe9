// Package facematch implements the face matching core: descriptor aggregation
// for enrollment and similarity matching against the enrolled gallery.
// Everything in this package is pure computation; persistence and the
// detection model live behind interfaces elsewhere.
package facematch

// Default tuning values, shared between the HTTP handlers and the CLI.
const (
	// DefaultThreshold is the minimum confidence for an accepted match.
	DefaultThreshold = 0.6

	// DefaultMinSamples is the minimum number of valid enrollment samples.
	DefaultMinSamples = 3

	// DefaultMaxSamples caps how many samples contribute to the
	// representative descriptor.
	DefaultMaxSamples = 5
)

// BBox is a face bounding box in pixel coordinates.
type BBox struct {
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// Area returns the box area in square pixels.
func (b BBox) Area() float64 {
	return b.Width * b.Height
}

// Valid reports whether the box has positive extent and non-negative origin.
func (b BBox) Valid() bool {
	return b.X >= 0 && b.Y >= 0 && b.Width > 0 && b.Height > 0
}

// Point is a 2D landmark position in pixel coordinates.
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Detection is a single face found in an image by the descriptor extractor.
// The descriptor dimensionality is fixed by the extraction model and treated
// as opaque here.
type Detection struct {
	BBox       BBox      `json:"bounding_box"`
	Descriptor []float32 `json:"descriptor"`
	Landmarks  []Point   `json:"landmarks,omitempty"`
	DetScore   float64   `json:"det_score,omitempty"`
}

// GalleryEntry is one enrolled person's representative descriptor.
type GalleryEntry struct {
	PersonID   string
	Descriptor []float32
}

// MatchCandidate is the result of matching one query descriptor against the
// gallery. It is ephemeral: either promoted to a stored match or discarded.
type MatchCandidate struct {
	PersonID   string
	Distance   float64
	Confidence float64
}
