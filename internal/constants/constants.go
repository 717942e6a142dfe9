// Package constants provides shared constants used across the codebase.
// Centralizing these values ensures consistency and makes them easier to modify.
package constants

// File upload constants
const (
	// MaxUploadSize is the maximum file upload size in bytes (100MB)
	MaxUploadSize = 100 << 20
)

// Image processing constants
const (
	// MaxImageSize is the maximum dimension (width or height) sent to the
	// descriptor extraction service
	MaxImageSize = 1920
)
