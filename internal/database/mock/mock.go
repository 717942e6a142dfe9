// Package mock provides mock implementations of database interfaces for testing.
package mock

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/crewpix/crewpix/internal/database"
	"github.com/crewpix/crewpix/internal/facematch"
)

// MockPersonStore is a mock implementation of database.PersonReader
type MockPersonStore struct {
	mu      sync.RWMutex
	persons map[string]*database.Person

	// Error injection
	GetPersonError       error
	GetPersonByUserError error
	GetPersonByNameError error
}

// NewMockPersonStore creates a new mock person store
func NewMockPersonStore() *MockPersonStore {
	return &MockPersonStore{
		persons: make(map[string]*database.Person),
	}
}

// AddPerson adds a person to the mock store
func (m *MockPersonStore) AddPerson(person database.Person) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.persons[person.ID] = &person
}

// GetPerson retrieves a person by ID
func (m *MockPersonStore) GetPerson(ctx context.Context, id string) (*database.Person, error) {
	if m.GetPersonError != nil {
		return nil, m.GetPersonError
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	p, ok := m.persons[id]
	if !ok {
		return nil, database.ErrNotFound
	}
	cp := *p
	return &cp, nil
}

// GetPersonByUser retrieves the person profile for a user identity
func (m *MockPersonStore) GetPersonByUser(ctx context.Context, userID string) (*database.Person, error) {
	if m.GetPersonByUserError != nil {
		return nil, m.GetPersonByUserError
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, p := range m.persons {
		if p.UserID == userID {
			cp := *p
			return &cp, nil
		}
	}
	return nil, database.ErrNotFound
}

// GetPersonByName retrieves a person by normalized display name
func (m *MockPersonStore) GetPersonByName(ctx context.Context, name string) (*database.Person, error) {
	if m.GetPersonByNameError != nil {
		return nil, m.GetPersonByNameError
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	normalized := strings.ToLower(facematch.NormalizePersonName(name))
	for _, p := range m.persons {
		if strings.ToLower(facematch.NormalizePersonName(p.DisplayName)) == normalized {
			cp := *p
			return &cp, nil
		}
	}
	return nil, database.ErrNotFound
}

// MockPhotoStore is a mock implementation of database.PhotoWriter
type MockPhotoStore struct {
	mu     sync.RWMutex
	photos map[string]*database.Photo

	// Track calls
	CreatePhotoCalls []string

	// Error injection
	GetPhotoError    error
	ListIDsError     error
	CreatePhotoError error
}

// NewMockPhotoStore creates a new mock photo store
func NewMockPhotoStore() *MockPhotoStore {
	return &MockPhotoStore{
		photos: make(map[string]*database.Photo),
	}
}

// AddPhoto adds a photo to the mock store
func (m *MockPhotoStore) AddPhoto(photo database.Photo) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.photos[photo.ID] = &photo
}

// GetPhoto retrieves a photo by ID
func (m *MockPhotoStore) GetPhoto(ctx context.Context, id string) (*database.Photo, error) {
	if m.GetPhotoError != nil {
		return nil, m.GetPhotoError
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	p, ok := m.photos[id]
	if !ok {
		return nil, database.ErrNotFound
	}
	cp := *p
	return &cp, nil
}

// ListPhotoIDsByPhotographer returns the IDs of all photos owned by a photographer
func (m *MockPhotoStore) ListPhotoIDsByPhotographer(ctx context.Context, photographerID string) ([]string, error) {
	if m.ListIDsError != nil {
		return nil, m.ListIDsError
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	var ids []string
	for id, p := range m.photos {
		if p.PhotographerID == photographerID {
			ids = append(ids, id)
		}
	}
	sort.Strings(ids)
	return ids, nil
}

// CreatePhoto inserts a photo record
func (m *MockPhotoStore) CreatePhoto(ctx context.Context, photo database.Photo) error {
	if m.CreatePhotoError != nil {
		return m.CreatePhotoError
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.CreatePhotoCalls = append(m.CreatePhotoCalls, photo.ID)
	photo.MatchCount = 0
	m.photos[photo.ID] = &photo
	return nil
}

// addMatchCount adjusts a photo's counter while the caller holds no lock.
// Used by MockMatchStore so row changes and counter moves stay in step.
func (m *MockPhotoStore) addMatchCount(photoID string, delta int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if p, ok := m.photos[photoID]; ok {
		p.MatchCount += delta
	}
}

// MockEnrollmentStore is a mock implementation of database.EnrollmentWriter
type MockEnrollmentStore struct {
	mu          sync.RWMutex
	enrollments map[string]*database.EnrollmentRecord

	// Track calls
	SaveEnrollmentCalls []string

	// Error injection
	GetEnrollmentError    error
	ListGalleryError      error
	CountError            error
	SaveEnrollmentError   error
	DeleteEnrollmentError error
}

// NewMockEnrollmentStore creates a new mock enrollment store
func NewMockEnrollmentStore() *MockEnrollmentStore {
	return &MockEnrollmentStore{
		enrollments: make(map[string]*database.EnrollmentRecord),
	}
}

// AddEnrollment adds an enrollment to the mock store
func (m *MockEnrollmentStore) AddEnrollment(record database.EnrollmentRecord) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.enrollments[record.PersonID] = &record
}

// GetEnrollment retrieves the enrollment for a person
func (m *MockEnrollmentStore) GetEnrollment(ctx context.Context, personID string) (*database.EnrollmentRecord, error) {
	if m.GetEnrollmentError != nil {
		return nil, m.GetEnrollmentError
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	r, ok := m.enrollments[personID]
	if !ok {
		return nil, database.ErrNotFound
	}
	cp := *r
	return &cp, nil
}

// ListGallery returns one entry per enrolled person
func (m *MockEnrollmentStore) ListGallery(ctx context.Context) ([]facematch.GalleryEntry, error) {
	if m.ListGalleryError != nil {
		return nil, m.ListGalleryError
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	var entries []facematch.GalleryEntry
	for personID, r := range m.enrollments {
		if len(r.Descriptor) == 0 {
			continue
		}
		entries = append(entries, facematch.GalleryEntry{
			PersonID:   personID,
			Descriptor: r.Descriptor,
		})
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].PersonID < entries[j].PersonID })
	return entries, nil
}

// CountEnrollments returns the number of enrolled persons
func (m *MockEnrollmentStore) CountEnrollments(ctx context.Context) (int, error) {
	if m.CountError != nil {
		return 0, m.CountError
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.enrollments), nil
}

// SaveEnrollment replaces a person's enrollment wholesale
func (m *MockEnrollmentStore) SaveEnrollment(ctx context.Context, record database.EnrollmentRecord) error {
	if m.SaveEnrollmentError != nil {
		return m.SaveEnrollmentError
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.SaveEnrollmentCalls = append(m.SaveEnrollmentCalls, record.PersonID)
	record.UpdatedAt = time.Now()
	m.enrollments[record.PersonID] = &record
	return nil
}

// DeleteEnrollment removes a person's enrollment
func (m *MockEnrollmentStore) DeleteEnrollment(ctx context.Context, personID string) error {
	if m.DeleteEnrollmentError != nil {
		return m.DeleteEnrollmentError
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.enrollments, personID)
	return nil
}

// MockMatchStore is a mock implementation of database.MatchWriter. It keeps
// the photo match counter in a MockPhotoStore so tests can assert the
// row-change and counter-move invariant across both stores.
type MockMatchStore struct {
	mu      sync.Mutex
	matches map[string]*database.StoredMatch
	byPair  map[string]string // "photoID/personID" -> match ID
	counter int

	photos *MockPhotoStore

	// Track calls
	UpsertMatchCalls []database.StoredMatch
	SetApprovalCalls []string
	DeleteMatchCalls []string

	// Error injection
	GetMatchError    error
	ListError        error
	CountError       error
	UpsertMatchError error
	SetApprovalError error
	DeleteMatchError error
}

// NewMockMatchStore creates a new mock match store backed by the given photo store
func NewMockMatchStore(photos *MockPhotoStore) *MockMatchStore {
	return &MockMatchStore{
		matches: make(map[string]*database.StoredMatch),
		byPair:  make(map[string]string),
		photos:  photos,
	}
}

// AddMatch adds a match to the mock store without touching photo counters
func (m *MockMatchStore) AddMatch(match database.StoredMatch) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.matches[match.ID] = &match
	m.byPair[match.PhotoID+"/"+match.PersonID] = match.ID
}

// GetMatch retrieves a match by ID
func (m *MockMatchStore) GetMatch(ctx context.Context, id string) (*database.StoredMatch, error) {
	if m.GetMatchError != nil {
		return nil, m.GetMatchError
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	match, ok := m.matches[id]
	if !ok {
		return nil, database.ErrNotFound
	}
	cp := *match
	return &cp, nil
}

// ListMatches returns all matches, newest first
func (m *MockMatchStore) ListMatches(ctx context.Context) ([]database.StoredMatch, error) {
	if m.ListError != nil {
		return nil, m.ListError
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	var result []database.StoredMatch
	for _, match := range m.matches {
		result = append(result, *match)
	}
	sortNewestFirst(result)
	return result, nil
}

// ListMatchesByPhotoIDs returns matches for the given photos, newest first
func (m *MockMatchStore) ListMatchesByPhotoIDs(ctx context.Context, photoIDs []string) ([]database.StoredMatch, error) {
	if m.ListError != nil {
		return nil, m.ListError
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	idSet := make(map[string]struct{}, len(photoIDs))
	for _, id := range photoIDs {
		idSet[id] = struct{}{}
	}
	var result []database.StoredMatch
	for _, match := range m.matches {
		if _, ok := idSet[match.PhotoID]; ok {
			result = append(result, *match)
		}
	}
	sortNewestFirst(result)
	return result, nil
}

// ListMatchesByPerson returns matches for one person, newest first
func (m *MockMatchStore) ListMatchesByPerson(ctx context.Context, personID string) ([]database.StoredMatch, error) {
	if m.ListError != nil {
		return nil, m.ListError
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	var result []database.StoredMatch
	for _, match := range m.matches {
		if match.PersonID == personID {
			result = append(result, *match)
		}
	}
	sortNewestFirst(result)
	return result, nil
}

// CountMatchesByPhoto returns the number of match rows for a photo
func (m *MockMatchStore) CountMatchesByPhoto(ctx context.Context, photoID string) (int, error) {
	if m.CountError != nil {
		return 0, m.CountError
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	count := 0
	for _, match := range m.matches {
		if match.PhotoID == photoID {
			count++
		}
	}
	return count, nil
}

// UpsertMatch records a match keyed on (photoID, personID)
func (m *MockMatchStore) UpsertMatch(ctx context.Context, match database.StoredMatch) (*database.StoredMatch, bool, error) {
	if m.UpsertMatchError != nil {
		return nil, false, m.UpsertMatchError
	}
	m.mu.Lock()
	m.UpsertMatchCalls = append(m.UpsertMatchCalls, match)
	pair := match.PhotoID + "/" + match.PersonID
	if existingID, ok := m.byPair[pair]; ok {
		existing := m.matches[existingID]
		if match.Confidence > existing.Confidence {
			existing.Confidence = match.Confidence
			existing.BBox = match.BBox
			existing.UpdatedAt = time.Now()
		}
		cp := *existing
		m.mu.Unlock()
		return &cp, false, nil
	}
	m.counter++
	if match.ID == "" {
		match.ID = fmt.Sprintf("match-%d", m.counter)
	}
	now := time.Now()
	match.CreatedAt = now
	match.UpdatedAt = now
	m.matches[match.ID] = &match
	m.byPair[pair] = match.ID
	cp := match
	m.mu.Unlock()

	if m.photos != nil {
		m.photos.addMatchCount(match.PhotoID, 1)
	}
	return &cp, true, nil
}

// SetApproval sets the approval flag
func (m *MockMatchStore) SetApproval(ctx context.Context, id string, approved bool) (*database.StoredMatch, error) {
	if m.SetApprovalError != nil {
		return nil, m.SetApprovalError
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.SetApprovalCalls = append(m.SetApprovalCalls, id)
	match, ok := m.matches[id]
	if !ok {
		return nil, database.ErrNotFound
	}
	if match.Approved != approved {
		match.Approved = approved
		match.UpdatedAt = time.Now()
	}
	cp := *match
	return &cp, nil
}

// DeleteMatch removes a match and decrements the owning photo's counter
func (m *MockMatchStore) DeleteMatch(ctx context.Context, id string) error {
	if m.DeleteMatchError != nil {
		return m.DeleteMatchError
	}
	m.mu.Lock()
	m.DeleteMatchCalls = append(m.DeleteMatchCalls, id)
	match, ok := m.matches[id]
	if !ok {
		m.mu.Unlock()
		return database.ErrNotFound
	}
	delete(m.matches, id)
	delete(m.byPair, match.PhotoID+"/"+match.PersonID)
	photoID := match.PhotoID
	m.mu.Unlock()

	if m.photos != nil {
		m.photos.addMatchCount(photoID, -1)
	}
	return nil
}

func sortNewestFirst(matches []database.StoredMatch) {
	sort.SliceStable(matches, func(i, j int) bool {
		if matches[i].CreatedAt.Equal(matches[j].CreatedAt) {
			return matches[i].ID > matches[j].ID
		}
		return matches[i].CreatedAt.After(matches[j].CreatedAt)
	})
}

// Verify interface compliance
var _ database.PersonReader = (*MockPersonStore)(nil)
var _ database.PhotoWriter = (*MockPhotoStore)(nil)
var _ database.EnrollmentWriter = (*MockEnrollmentStore)(nil)
var _ database.MatchWriter = (*MockMatchStore)(nil)
