package matching

import (
	"context"
	"fmt"

	"github.com/crewpix/crewpix/internal/database"
	"github.com/crewpix/crewpix/internal/facematch"
	"github.com/crewpix/crewpix/internal/observability"
	"github.com/crewpix/crewpix/internal/recognizer"
)

// Enroller builds and stores a person's representative descriptor from
// sample detections.
type Enroller struct {
	extractor   recognizer.Extractor
	enrollments database.EnrollmentWriter
	persons     database.PersonReader
	minSamples  int
	maxSamples  int
}

// NewEnroller creates an enroller. Zero sample bounds fall back to the
// defaults.
func NewEnroller(extractor recognizer.Extractor, enrollments database.EnrollmentWriter, persons database.PersonReader, minSamples, maxSamples int) *Enroller {
	if minSamples <= 0 {
		minSamples = facematch.DefaultMinSamples
	}
	if maxSamples <= 0 {
		maxSamples = facematch.DefaultMaxSamples
	}
	return &Enroller{
		extractor:   extractor,
		enrollments: enrollments,
		persons:     persons,
		minSamples:  minSamples,
		maxSamples:  maxSamples,
	}
}

// EnrollDetections replaces the person's enrollment with a descriptor built
// from the given sample detections. The previous enrollment is discarded
// wholesale; there is no incremental update.
func (e *Enroller) EnrollDetections(ctx context.Context, personID string, samples []facematch.Detection) (*database.EnrollmentRecord, error) {
	if _, err := e.persons.GetPerson(ctx, personID); err != nil {
		return nil, fmt.Errorf("enroll: person %s: %w", personID, err)
	}

	best, err := facematch.SelectBestSamples(samples, e.minSamples, e.maxSamples)
	if err != nil {
		return nil, err
	}

	descriptor, err := facematch.Aggregate(best, e.minSamples, e.maxSamples)
	if err != nil {
		return nil, err
	}

	record := database.EnrollmentRecord{
		PersonID:   personID,
		Descriptor: descriptor,
		Dim:        len(descriptor),
	}
	for _, sample := range best {
		record.Samples = append(record.Samples, database.EnrollmentSample{
			Descriptor: sample.Descriptor,
			BBox:       sample.BBox,
		})
	}

	if err := e.enrollments.SaveEnrollment(ctx, record); err != nil {
		return nil, fmt.Errorf("save enrollment: %w", err)
	}

	observability.EnrollmentsSaved.Inc()
	return &record, nil
}

// EnrollImages extracts faces from sample images and enrolls the person
// from them. Each image contributes its most prominent face; images where
// extraction finds nothing are skipped.
func (e *Enroller) EnrollImages(ctx context.Context, personID string, images [][]byte) (*database.EnrollmentRecord, error) {
	var samples []facematch.Detection
	for i, imageData := range images {
		detections, err := e.extractor.Extract(ctx, imageData)
		if err != nil {
			return nil, fmt.Errorf("sample image %d: %w", i, err)
		}
		if best := largestFace(detections); best != nil {
			samples = append(samples, *best)
		}
	}

	return e.EnrollDetections(ctx, personID, samples)
}

// largestFace picks the detection with the biggest bounding box, the face
// the sample photo is presumably of.
func largestFace(detections []facematch.Detection) *facematch.Detection {
	var best *facematch.Detection
	for i := range detections {
		if best == nil || detections[i].BBox.Area() > best.BBox.Area() {
			best = &detections[i]
		}
	}
	return best
}
