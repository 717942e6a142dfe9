package auth

import (
	"context"
	"errors"
	"testing"

	"github.com/crewpix/crewpix/internal/database"
	"github.com/crewpix/crewpix/internal/database/mock"
)

func TestResolveScope_Admin(t *testing.T) {
	resolver := NewStoreResolver(mock.NewMockPersonStore(), mock.NewMockPhotoStore())

	scope, err := resolver.ResolveScope(context.Background(), Identity{UserID: "u1", Role: RoleAdmin})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if !scope.All {
		t.Error("expected admin scope to cover everything")
	}
}

func TestResolveScope_Photographer(t *testing.T) {
	photos := mock.NewMockPhotoStore()
	photos.AddPhoto(database.Photo{ID: "ph1", PhotographerID: "u1"})
	photos.AddPhoto(database.Photo{ID: "ph2", PhotographerID: "u1"})
	photos.AddPhoto(database.Photo{ID: "ph3", PhotographerID: "other"})

	resolver := NewStoreResolver(mock.NewMockPersonStore(), photos)

	scope, err := resolver.ResolveScope(context.Background(), Identity{UserID: "u1", Role: RolePhotographer})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if scope.All {
		t.Error("photographer scope must not cover everything")
	}
	if len(scope.PhotoIDs) != 2 {
		t.Fatalf("expected 2 photo IDs, got %d", len(scope.PhotoIDs))
	}
	for _, id := range scope.PhotoIDs {
		if id == "ph3" {
			t.Error("scope must not include other photographers' photos")
		}
	}
}

func TestResolveScope_PhotographerWithoutPhotos(t *testing.T) {
	resolver := NewStoreResolver(mock.NewMockPersonStore(), mock.NewMockPhotoStore())

	scope, err := resolver.ResolveScope(context.Background(), Identity{UserID: "u1", Role: RolePhotographer})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if scope.All || len(scope.PhotoIDs) != 0 || scope.PersonID != "" {
		t.Error("expected empty scope for photographer without photos")
	}
}

func TestResolveScope_Person(t *testing.T) {
	persons := mock.NewMockPersonStore()
	persons.AddPerson(database.Person{ID: "p1", UserID: "u1", DisplayName: "Jan Novák"})

	resolver := NewStoreResolver(persons, mock.NewMockPhotoStore())

	scope, err := resolver.ResolveScope(context.Background(), Identity{UserID: "u1", Role: RolePerson})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if scope.PersonID != "p1" {
		t.Errorf("expected person scope p1, got '%s'", scope.PersonID)
	}
}

func TestResolveScope_PersonWithoutProfile(t *testing.T) {
	resolver := NewStoreResolver(mock.NewMockPersonStore(), mock.NewMockPhotoStore())

	scope, err := resolver.ResolveScope(context.Background(), Identity{UserID: "u9", Role: RolePerson})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if scope.All || scope.PersonID != "" {
		t.Error("expected empty scope for person without a profile")
	}
}

func TestResolveScope_UnknownRole(t *testing.T) {
	resolver := NewStoreResolver(mock.NewMockPersonStore(), mock.NewMockPhotoStore())

	_, err := resolver.ResolveScope(context.Background(), Identity{UserID: "u1", Role: "intern"})
	if !errors.Is(err, ErrForbidden) {
		t.Errorf("expected ErrForbidden, got %v", err)
	}
}
