package matching

import (
	"context"
	"errors"
	"testing"

	"github.com/crewpix/crewpix/internal/auth"
	"github.com/crewpix/crewpix/internal/database"
	"github.com/crewpix/crewpix/internal/database/mock"
	"github.com/crewpix/crewpix/internal/facematch"
	"github.com/crewpix/crewpix/internal/recognizer"
	"github.com/crewpix/crewpix/internal/registry"
)

// fakeExtractor returns canned detections without a backend.
type fakeExtractor struct {
	detections []facematch.Detection
	err        error
}

func (f *fakeExtractor) Extract(ctx context.Context, imageData []byte) ([]facematch.Detection, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.detections, nil
}

func (f *fakeExtractor) Ready(ctx context.Context) error { return nil }

type orchFixture struct {
	photos      *mock.MockPhotoStore
	matches     *mock.MockMatchStore
	enrollments *mock.MockEnrollmentStore
}

func newOrchestrator(extractor recognizer.Extractor, opts Options) (*Orchestrator, *orchFixture) {
	persons := mock.NewMockPersonStore()
	photos := mock.NewMockPhotoStore()
	matches := mock.NewMockMatchStore(photos)
	enrollments := mock.NewMockEnrollmentStore()
	resolver := auth.NewStoreResolver(persons, photos)
	reg := registry.New(matches, photos, persons, resolver)

	return NewOrchestrator(extractor, enrollments, reg, opts),
		&orchFixture{photos: photos, matches: matches, enrollments: enrollments}
}

func TestProcessPhoto_NoFaces(t *testing.T) {
	orch, _ := newOrchestrator(&fakeExtractor{}, Options{})

	report, err := orch.ProcessPhoto(context.Background(), "ph1", []byte("img"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if report.FacesFound != 0 || report.Matched != 0 || len(report.Detections) != 0 {
		t.Errorf("expected empty report, got %+v", report)
	}
}

func TestProcessPhoto_ExtractionFailureWritesNothing(t *testing.T) {
	extractor := &fakeExtractor{err: recognizer.ErrExtractionFailed}
	orch, f := newOrchestrator(extractor, Options{})

	_, err := orch.ProcessPhoto(context.Background(), "ph1", []byte("img"))
	if !errors.Is(err, recognizer.ErrExtractionFailed) {
		t.Fatalf("expected ErrExtractionFailed, got %v", err)
	}

	if len(f.matches.UpsertMatchCalls) != 0 {
		t.Error("extraction failure must not write any matches")
	}
}

func TestProcessPhoto_MatchesAndRecords(t *testing.T) {
	extractor := &fakeExtractor{detections: []facematch.Detection{
		{Descriptor: []float32{0, 0.05}, BBox: facematch.BBox{X: 10, Y: 10, Width: 50, Height: 50}},
		{Descriptor: []float32{1, 1.05}, BBox: facematch.BBox{X: 100, Y: 10, Width: 40, Height: 40}},
	}}
	orch, f := newOrchestrator(extractor, Options{})

	f.photos.AddPhoto(database.Photo{ID: "ph1"})
	f.enrollments.AddEnrollment(database.EnrollmentRecord{PersonID: "p1", Descriptor: []float32{0, 0}})
	f.enrollments.AddEnrollment(database.EnrollmentRecord{PersonID: "p2", Descriptor: []float32{1, 1}})

	report, err := orch.ProcessPhoto(context.Background(), "ph1", []byte("img"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if report.FacesFound != 2 {
		t.Errorf("expected 2 faces found, got %d", report.FacesFound)
	}
	if report.Matched != 2 {
		t.Errorf("expected 2 matched, got %d", report.Matched)
	}
	if report.Summary() != "2 persons recognized" {
		t.Errorf("unexpected summary '%s'", report.Summary())
	}

	photo, _ := f.photos.GetPhoto(context.Background(), "ph1")
	if photo.MatchCount != 2 {
		t.Errorf("expected photo match count 2, got %d", photo.MatchCount)
	}

	// Results keep detection order regardless of goroutine scheduling.
	if report.Detections[0].PersonID != "p1" || report.Detections[1].PersonID != "p2" {
		t.Errorf("expected ordered results p1, p2; got %s, %s",
			report.Detections[0].PersonID, report.Detections[1].PersonID)
	}
}

func TestProcessPhoto_BelowThresholdNotRecorded(t *testing.T) {
	extractor := &fakeExtractor{detections: []facematch.Detection{
		{Descriptor: []float32{10, 10}, BBox: facematch.BBox{Width: 50, Height: 50}},
	}}
	orch, f := newOrchestrator(extractor, Options{})

	f.photos.AddPhoto(database.Photo{ID: "ph1"})
	f.enrollments.AddEnrollment(database.EnrollmentRecord{PersonID: "p1", Descriptor: []float32{0, 0}})

	report, err := orch.ProcessPhoto(context.Background(), "ph1", []byte("img"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if report.Matched != 0 || report.Failed != 0 {
		t.Errorf("expected no matches and no failures, got %+v", report)
	}
	if len(f.matches.UpsertMatchCalls) != 0 {
		t.Error("rejected candidates must not be recorded")
	}
	if report.Summary() != "0 persons recognized" {
		t.Errorf("unexpected summary '%s'", report.Summary())
	}
}

func TestProcessPhoto_EmptyGallery(t *testing.T) {
	extractor := &fakeExtractor{detections: []facematch.Detection{
		{Descriptor: []float32{0, 0}, BBox: facematch.BBox{Width: 10, Height: 10}},
	}}
	orch, f := newOrchestrator(extractor, Options{})
	f.photos.AddPhoto(database.Photo{ID: "ph1"})

	report, err := orch.ProcessPhoto(context.Background(), "ph1", []byte("img"))
	if err != nil {
		t.Fatalf("empty gallery must not error, got %v", err)
	}
	if report.Matched != 0 {
		t.Errorf("expected no matches against empty gallery, got %d", report.Matched)
	}
}

func TestProcessPhoto_PartialFailureCollected(t *testing.T) {
	// The second detection has a mismatched dimension and fails; the
	// first still goes through.
	extractor := &fakeExtractor{detections: []facematch.Detection{
		{Descriptor: []float32{0, 0.05}, BBox: facematch.BBox{Width: 50, Height: 50}},
		{Descriptor: []float32{0, 0, 0}, BBox: facematch.BBox{Width: 40, Height: 40}},
	}}
	orch, f := newOrchestrator(extractor, Options{})

	f.photos.AddPhoto(database.Photo{ID: "ph1"})
	f.enrollments.AddEnrollment(database.EnrollmentRecord{PersonID: "p1", Descriptor: []float32{0, 0}})

	report, err := orch.ProcessPhoto(context.Background(), "ph1", []byte("img"))
	if err != nil {
		t.Fatalf("collect mode must not fail the run, got %v", err)
	}

	if report.Matched != 1 {
		t.Errorf("expected 1 match, got %d", report.Matched)
	}
	if report.Failed != 1 {
		t.Errorf("expected 1 failure, got %d", report.Failed)
	}
	if report.Detections[1].Err == "" {
		t.Error("expected error recorded for the failed detection")
	}
}

func TestProcessPhoto_FailFast(t *testing.T) {
	extractor := &fakeExtractor{detections: []facematch.Detection{
		{Descriptor: []float32{0, 0, 0}, BBox: facematch.BBox{Width: 40, Height: 40}},
	}}
	orch, f := newOrchestrator(extractor, Options{FailFast: true})

	f.photos.AddPhoto(database.Photo{ID: "ph1"})
	f.enrollments.AddEnrollment(database.EnrollmentRecord{PersonID: "p1", Descriptor: []float32{0, 0}})

	report, err := orch.ProcessPhoto(context.Background(), "ph1", []byte("img"))
	if err == nil {
		t.Fatal("expected error in fail-fast mode")
	}
	if report == nil || report.Failed != 1 {
		t.Error("expected report with the failure even in fail-fast mode")
	}
}

func TestProcessPhoto_DuplicateFacesSamePerson(t *testing.T) {
	// Two detections of the same person collapse into one record.
	extractor := &fakeExtractor{detections: []facematch.Detection{
		{Descriptor: []float32{0, 0.05}, BBox: facematch.BBox{Width: 50, Height: 50}},
		{Descriptor: []float32{0, 0.1}, BBox: facematch.BBox{Width: 45, Height: 45}},
	}}
	orch, f := newOrchestrator(extractor, Options{})

	f.photos.AddPhoto(database.Photo{ID: "ph1"})
	f.enrollments.AddEnrollment(database.EnrollmentRecord{PersonID: "p1", Descriptor: []float32{0, 0}})

	report, err := orch.ProcessPhoto(context.Background(), "ph1", []byte("img"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if report.Matched != 2 {
		t.Errorf("expected both detections to report the person, got %d", report.Matched)
	}

	photo, _ := f.photos.GetPhoto(context.Background(), "ph1")
	if photo.MatchCount != 1 {
		t.Errorf("expected a single stored match for one person, counter is %d", photo.MatchCount)
	}

	matches, _ := f.matches.ListMatchesByPerson(context.Background(), "p1")
	if len(matches) != 1 {
		t.Fatalf("expected 1 stored match, got %d", len(matches))
	}
	// The higher confidence of the two detections survives.
	if matches[0].Confidence < 0.94 {
		t.Errorf("expected highest confidence kept, got %f", matches[0].Confidence)
	}
}
