// Package auth defines caller identities and derives their data access scope.
package auth

import (
	"context"
	"errors"
	"fmt"

	"github.com/crewpix/crewpix/internal/database"
)

// Role determines which match records a caller may see and change.
type Role string

const (
	// RolePerson sees only matches of their own person profile.
	RolePerson Role = "person"
	// RolePhotographer sees matches on photos they uploaded.
	RolePhotographer Role = "photographer"
	// RoleAdmin sees and manages everything.
	RoleAdmin Role = "admin"
)

var (
	// ErrUnauthorized means no valid identity was presented.
	ErrUnauthorized = errors.New("unauthorized")
	// ErrForbidden means the identity is valid but lacks permission.
	ErrForbidden = errors.New("forbidden")
)

// Identity is an authenticated caller.
type Identity struct {
	UserID string
	Role   Role
}

// Scope describes which match records an identity may read. Exactly one of
// the fields is meaningful: All for admins, PhotoIDs for photographers,
// PersonID for persons.
type Scope struct {
	All      bool
	PhotoIDs []string
	PersonID string
}

// Resolver derives a read scope for an identity. Scopes are always computed
// server-side from stored ownership, never from client-supplied filters.
type Resolver interface {
	ResolveScope(ctx context.Context, identity Identity) (*Scope, error)
}

// StoreResolver resolves scopes against the persons and photos tables.
type StoreResolver struct {
	persons database.PersonReader
	photos  database.PhotoReader
}

// NewStoreResolver creates a resolver backed by the given stores.
func NewStoreResolver(persons database.PersonReader, photos database.PhotoReader) *StoreResolver {
	return &StoreResolver{persons: persons, photos: photos}
}

// ResolveScope derives the read scope for an identity from stored ownership.
// A photographer with no photos or a person with no profile gets an empty
// scope, not an error.
func (r *StoreResolver) ResolveScope(ctx context.Context, identity Identity) (*Scope, error) {
	switch identity.Role {
	case RoleAdmin:
		return &Scope{All: true}, nil

	case RolePhotographer:
		ids, err := r.photos.ListPhotoIDsByPhotographer(ctx, identity.UserID)
		if err != nil {
			return nil, fmt.Errorf("resolve photographer scope: %w", err)
		}
		return &Scope{PhotoIDs: ids}, nil

	case RolePerson:
		person, err := r.persons.GetPersonByUser(ctx, identity.UserID)
		if errors.Is(err, database.ErrNotFound) {
			return &Scope{}, nil
		}
		if err != nil {
			return nil, fmt.Errorf("resolve person scope: %w", err)
		}
		return &Scope{PersonID: person.ID}, nil

	default:
		return nil, fmt.Errorf("unknown role %q: %w", identity.Role, ErrForbidden)
	}
}

// Verify interface compliance.
var _ Resolver = (*StoreResolver)(nil)
