// Package database defines the storage contracts for enrollments, photos and
// face matches, plus the record types shared by the PostgreSQL and mock
// implementations.
package database

import (
	"time"

	"github.com/crewpix/crewpix/internal/facematch"
)

// Person links an authenticated user to an enrollable identity.
type Person struct {
	ID          string
	UserID      string
	DisplayName string
	TeamName    string
	CreatedAt   time.Time
}

// Photo is the minimal photo record the matching core needs: ownership for
// scoping and the denormalized match counter.
type Photo struct {
	ID             string
	PhotographerID string
	Title          string
	MatchCount     int
	CreatedAt      time.Time
}

// EnrollmentSample is one face sample that contributed to an enrollment.
type EnrollmentSample struct {
	Descriptor []float32
	BBox       facematch.BBox
}

// EnrollmentRecord holds one person's representative descriptor and the
// samples it was aggregated from. The record is replaced wholesale on each
// enrollment submission; the descriptor is always the element-wise mean of
// the stored samples.
type EnrollmentRecord struct {
	PersonID   string
	Descriptor []float32
	Dim        int
	Samples    []EnrollmentSample
	UpdatedAt  time.Time
}

// StoredMatch is a persisted face match awaiting or past human review.
type StoredMatch struct {
	ID         string
	PhotoID    string
	PersonID   string
	Confidence float64
	BBox       facematch.BBox
	Approved   bool
	CreatedAt  time.Time
	UpdatedAt  time.Time
}
