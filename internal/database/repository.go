package database

import (
	"context"

	"github.com/crewpix/crewpix/internal/facematch"
)

// PersonReader provides read access to person records.
type PersonReader interface {
	// GetPerson retrieves a person by ID, ErrNotFound if unknown.
	GetPerson(ctx context.Context, id string) (*Person, error)
	// GetPersonByUser retrieves the person profile for a user identity.
	GetPersonByUser(ctx context.Context, userID string) (*Person, error)
	// GetPersonByName retrieves a person by display name. Names are
	// normalized before comparison (lowercase, no diacritics, dashes to
	// spaces) so slugs match display names.
	GetPersonByName(ctx context.Context, name string) (*Person, error)
}

// PhotoReader provides read access to photo records.
type PhotoReader interface {
	// GetPhoto retrieves a photo by ID, ErrNotFound if unknown.
	GetPhoto(ctx context.Context, id string) (*Photo, error)
	// ListPhotoIDsByPhotographer returns the IDs of all photos owned by a
	// photographer. Used to derive list scopes server-side.
	ListPhotoIDsByPhotographer(ctx context.Context, photographerID string) ([]string, error)
}

// PhotoWriter provides write access to photo records.
type PhotoWriter interface {
	PhotoReader

	// CreatePhoto inserts a photo record with a zero match counter.
	CreatePhoto(ctx context.Context, photo Photo) error
}

// EnrollmentReader provides read access to enrollment records.
type EnrollmentReader interface {
	// GetEnrollment retrieves the enrollment for a person, ErrNotFound if
	// the person has never enrolled.
	GetEnrollment(ctx context.Context, personID string) (*EnrollmentRecord, error)
	// ListGallery returns one entry per person with a representative
	// descriptor present. Persons without one are excluded entirely, never
	// surfaced as zero vectors.
	ListGallery(ctx context.Context) ([]facematch.GalleryEntry, error)
	// CountEnrollments returns the number of enrolled persons.
	CountEnrollments(ctx context.Context) (int, error)
}

// EnrollmentWriter provides write access to enrollment records.
type EnrollmentWriter interface {
	EnrollmentReader

	// SaveEnrollment replaces the person's enrollment wholesale: the
	// previous descriptor and samples are discarded in the same
	// transaction that writes the new ones.
	SaveEnrollment(ctx context.Context, record EnrollmentRecord) error
	// DeleteEnrollment removes a person's enrollment.
	DeleteEnrollment(ctx context.Context, personID string) error
}

// MatchReader provides read access to stored face matches.
type MatchReader interface {
	// GetMatch retrieves a match by ID, ErrNotFound if unknown.
	GetMatch(ctx context.Context, id string) (*StoredMatch, error)
	// ListMatches returns all matches, newest first. Admin scope only;
	// callers are responsible for never exposing it to narrower roles.
	ListMatches(ctx context.Context) ([]StoredMatch, error)
	// ListMatchesByPhotoIDs returns matches for the given photos, newest first.
	ListMatchesByPhotoIDs(ctx context.Context, photoIDs []string) ([]StoredMatch, error)
	// ListMatchesByPerson returns matches for one person, newest first.
	ListMatchesByPerson(ctx context.Context, personID string) ([]StoredMatch, error)
	// CountMatchesByPhoto returns the number of match rows for a photo.
	CountMatchesByPhoto(ctx context.Context, photoID string) (int, error)
}

// MatchWriter provides write access to stored face matches. Implementations
// must mutate the photo match counter with an atomic storage-level add inside
// the same transaction as the row change - never a read-then-write round
// trip - so concurrent writes for one photo cannot lose increments.
type MatchWriter interface {
	MatchReader

	// UpsertMatch records a match keyed on (photoID, personID). A new pair
	// inserts a row and increments the photo counter; an existing pair
	// keeps whichever record has the higher confidence and leaves the
	// counter untouched. Returns the surviving record and whether a new
	// row was inserted.
	UpsertMatch(ctx context.Context, match StoredMatch) (*StoredMatch, bool, error)
	// SetApproval sets the approval flag, idempotently. ErrNotFound if the
	// match is unknown.
	SetApproval(ctx context.Context, id string, approved bool) (*StoredMatch, error)
	// DeleteMatch removes a match and decrements the owning photo's
	// counter atomically. ErrNotFound if the match is unknown.
	DeleteMatch(ctx context.Context, id string) error
}
