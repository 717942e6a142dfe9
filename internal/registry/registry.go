// Package registry manages stored face matches and enforces who may see
// and change them.
package registry

import (
	"context"
	"errors"
	"fmt"

	"github.com/crewpix/crewpix/internal/auth"
	"github.com/crewpix/crewpix/internal/database"
	"github.com/crewpix/crewpix/internal/facematch"
)

// Registry provides scoped access to the match store.
type Registry struct {
	matches  database.MatchWriter
	photos   database.PhotoReader
	persons  database.PersonReader
	resolver auth.Resolver
}

// New creates a registry over the given stores.
func New(matches database.MatchWriter, photos database.PhotoReader, persons database.PersonReader, resolver auth.Resolver) *Registry {
	return &Registry{
		matches:  matches,
		photos:   photos,
		persons:  persons,
		resolver: resolver,
	}
}

// RecordMatch persists a confirmed match. Duplicate (photo, person) pairs
// collapse into one record keeping the highest confidence; the photo match
// counter only moves when a new record is created.
func (r *Registry) RecordMatch(
	ctx context.Context, photoID, personID string, confidence float64, bbox facematch.BBox,
) (*database.StoredMatch, bool, error) {
	if confidence < 0 || confidence > 1 {
		return nil, false, fmt.Errorf("confidence %f out of range", confidence)
	}

	if _, err := r.photos.GetPhoto(ctx, photoID); err != nil {
		return nil, false, fmt.Errorf("record match: photo %s: %w", photoID, err)
	}

	stored, inserted, err := r.matches.UpsertMatch(ctx, database.StoredMatch{
		PhotoID:    photoID,
		PersonID:   personID,
		Confidence: confidence,
		BBox:       bbox,
	})
	if err != nil {
		return nil, false, fmt.Errorf("record match: %w", err)
	}
	return stored, inserted, nil
}

// ListMatches returns the matches the identity is allowed to see. The scope
// is derived server-side: admins see everything, photographers see matches
// on their own photos, persons see their own matches.
func (r *Registry) ListMatches(ctx context.Context, identity auth.Identity) ([]database.StoredMatch, error) {
	scope, err := r.resolver.ResolveScope(ctx, identity)
	if err != nil {
		return nil, err
	}

	switch {
	case scope.All:
		return r.matches.ListMatches(ctx)
	case scope.PersonID != "":
		return r.matches.ListMatchesByPerson(ctx, scope.PersonID)
	case len(scope.PhotoIDs) > 0:
		return r.matches.ListMatchesByPhotoIDs(ctx, scope.PhotoIDs)
	default:
		return nil, nil
	}
}

// SetApproval flips the approval flag on a match. Repeating the current
// value succeeds without effect.
func (r *Registry) SetApproval(ctx context.Context, identity auth.Identity, matchID string, approved bool) (*database.StoredMatch, error) {
	match, err := r.matches.GetMatch(ctx, matchID)
	if err != nil {
		return nil, err
	}

	if err := r.authorizeChange(ctx, identity, match); err != nil {
		return nil, err
	}

	return r.matches.SetApproval(ctx, matchID, approved)
}

// DeleteMatch removes a match. The photo's match counter is decremented by
// the store in the same transaction.
func (r *Registry) DeleteMatch(ctx context.Context, identity auth.Identity, matchID string) error {
	match, err := r.matches.GetMatch(ctx, matchID)
	if err != nil {
		return err
	}

	if err := r.authorizeChange(ctx, identity, match); err != nil {
		return err
	}

	return r.matches.DeleteMatch(ctx, matchID)
}

// authorizeChange checks whether an identity may approve or delete a match.
// Admins always may, photographers may for photos they own, persons may for
// their own matches.
func (r *Registry) authorizeChange(ctx context.Context, identity auth.Identity, match *database.StoredMatch) error {
	switch identity.Role {
	case auth.RoleAdmin:
		return nil

	case auth.RolePhotographer:
		photo, err := r.photos.GetPhoto(ctx, match.PhotoID)
		if errors.Is(err, database.ErrNotFound) {
			return auth.ErrForbidden
		}
		if err != nil {
			return fmt.Errorf("authorize change: %w", err)
		}
		if photo.PhotographerID != identity.UserID {
			return auth.ErrForbidden
		}
		return nil

	case auth.RolePerson:
		person, err := r.persons.GetPersonByUser(ctx, identity.UserID)
		if errors.Is(err, database.ErrNotFound) {
			return auth.ErrForbidden
		}
		if err != nil {
			return fmt.Errorf("authorize change: %w", err)
		}
		if person.ID != match.PersonID {
			return auth.ErrForbidden
		}
		return nil

	default:
		return auth.ErrForbidden
	}
}
