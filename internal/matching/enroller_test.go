package matching

import (
	"context"
	"errors"
	"testing"

	"github.com/crewpix/crewpix/internal/database"
	"github.com/crewpix/crewpix/internal/database/mock"
	"github.com/crewpix/crewpix/internal/facematch"
)

func newEnrollerFixture(extractor *fakeExtractor) (*Enroller, *mock.MockPersonStore, *mock.MockEnrollmentStore) {
	persons := mock.NewMockPersonStore()
	enrollments := mock.NewMockEnrollmentStore()
	return NewEnroller(extractor, enrollments, persons, 0, 0), persons, enrollments
}

func TestEnrollDetections_BuildsMeanDescriptor(t *testing.T) {
	enroller, persons, enrollments := newEnrollerFixture(&fakeExtractor{})
	persons.AddPerson(database.Person{ID: "p1", DisplayName: "Jan Novák"})

	samples := []facematch.Detection{
		{Descriptor: []float32{1, 1}, BBox: facematch.BBox{Width: 10, Height: 10}},
		{Descriptor: []float32{3, 3}, BBox: facematch.BBox{Width: 20, Height: 20}},
		{Descriptor: []float32{2, 2}, BBox: facematch.BBox{Width: 10, Height: 20}},
	}

	record, err := enroller.EnrollDetections(context.Background(), "p1", samples)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if record.Descriptor[0] != 2 || record.Descriptor[1] != 2 {
		t.Errorf("expected mean descriptor [2, 2], got %v", record.Descriptor)
	}
	if record.Dim != 2 {
		t.Errorf("expected dim 2, got %d", record.Dim)
	}
	if len(record.Samples) != 3 {
		t.Errorf("expected 3 stored samples, got %d", len(record.Samples))
	}

	// Samples stored by rank: largest bbox area first.
	if record.Samples[0].BBox.Area() != 400 {
		t.Errorf("expected largest sample first, got area %f", record.Samples[0].BBox.Area())
	}

	stored, err := enrollments.GetEnrollment(context.Background(), "p1")
	if err != nil {
		t.Fatalf("enrollment not persisted: %v", err)
	}
	if stored.Descriptor[0] != 2 {
		t.Errorf("persisted descriptor differs: %v", stored.Descriptor)
	}
}

func TestEnrollDetections_TooFewSamples(t *testing.T) {
	enroller, persons, _ := newEnrollerFixture(&fakeExtractor{})
	persons.AddPerson(database.Person{ID: "p1", DisplayName: "Jan Novák"})

	samples := []facematch.Detection{
		{Descriptor: []float32{1, 1}, BBox: facematch.BBox{Width: 10, Height: 10}},
		{Descriptor: []float32{2, 2}, BBox: facematch.BBox{Width: 10, Height: 10}},
	}

	_, err := enroller.EnrollDetections(context.Background(), "p1", samples)
	if !errors.Is(err, facematch.ErrInsufficientSamples) {
		t.Errorf("expected ErrInsufficientSamples, got %v", err)
	}
}

func TestEnrollDetections_UnknownPerson(t *testing.T) {
	enroller, _, _ := newEnrollerFixture(&fakeExtractor{})

	samples := []facematch.Detection{
		{Descriptor: []float32{1, 1}, BBox: facematch.BBox{Width: 10, Height: 10}},
		{Descriptor: []float32{2, 2}, BBox: facematch.BBox{Width: 10, Height: 10}},
		{Descriptor: []float32{3, 3}, BBox: facematch.BBox{Width: 10, Height: 10}},
	}

	_, err := enroller.EnrollDetections(context.Background(), "missing", samples)
	if !errors.Is(err, database.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestEnrollDetections_WholesaleReplace(t *testing.T) {
	enroller, persons, enrollments := newEnrollerFixture(&fakeExtractor{})
	persons.AddPerson(database.Person{ID: "p1", DisplayName: "Jan Novák"})

	old := database.EnrollmentRecord{
		PersonID:   "p1",
		Descriptor: []float32{9, 9},
		Dim:        2,
		Samples: []database.EnrollmentSample{
			{Descriptor: []float32{9, 9}, BBox: facematch.BBox{Width: 1, Height: 1}},
		},
	}
	enrollments.AddEnrollment(old)

	samples := []facematch.Detection{
		{Descriptor: []float32{1, 1}, BBox: facematch.BBox{Width: 10, Height: 10}},
		{Descriptor: []float32{1, 1}, BBox: facematch.BBox{Width: 10, Height: 10}},
		{Descriptor: []float32{1, 1}, BBox: facematch.BBox{Width: 10, Height: 10}},
	}

	if _, err := enroller.EnrollDetections(context.Background(), "p1", samples); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	stored, _ := enrollments.GetEnrollment(context.Background(), "p1")
	if stored.Descriptor[0] != 1 {
		t.Errorf("expected old descriptor replaced, got %v", stored.Descriptor)
	}
	if len(stored.Samples) != 3 {
		t.Errorf("expected old samples replaced, got %d", len(stored.Samples))
	}
}

func TestEnrollImages_PicksLargestFacePerImage(t *testing.T) {
	// Each extraction call returns the same pair of faces; the larger one
	// should contribute to the enrollment.
	extractor := &fakeExtractor{detections: []facematch.Detection{
		{Descriptor: []float32{5, 5}, BBox: facematch.BBox{Width: 5, Height: 5}},
		{Descriptor: []float32{2, 2}, BBox: facematch.BBox{Width: 50, Height: 50}},
	}}
	enroller, persons, _ := newEnrollerFixture(extractor)
	persons.AddPerson(database.Person{ID: "p1", DisplayName: "Jan Novák"})

	record, err := enroller.EnrollImages(context.Background(), "p1", [][]byte{
		[]byte("img1"), []byte("img2"), []byte("img3"),
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if record.Descriptor[0] != 2 {
		t.Errorf("expected descriptor from the dominant faces, got %v", record.Descriptor)
	}
}

func TestEnrollImages_ExtractionFailure(t *testing.T) {
	extractor := &fakeExtractor{err: errors.New("backend down")}
	enroller, persons, _ := newEnrollerFixture(extractor)
	persons.AddPerson(database.Person{ID: "p1", DisplayName: "Jan Novák"})

	if _, err := enroller.EnrollImages(context.Background(), "p1", [][]byte{[]byte("img")}); err == nil {
		t.Error("expected error when extraction fails")
	}
}
