// Package matching drives photo processing: extraction, per-detection
// similarity matching against the enrollment gallery, and match recording.
package matching

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/crewpix/crewpix/internal/database"
	"github.com/crewpix/crewpix/internal/facematch"
	"github.com/crewpix/crewpix/internal/observability"
	"github.com/crewpix/crewpix/internal/recognizer"
	"github.com/crewpix/crewpix/internal/registry"
)

// Options tune a processing run.
type Options struct {
	// Threshold is the minimum confidence for accepting a match.
	Threshold float64
	// FailFast aborts the run on the first per-detection failure instead
	// of collecting failures into the report.
	FailFast bool
}

// DetectionResult describes the outcome for one detected face.
type DetectionResult struct {
	Index      int            `json:"index"`
	BBox       facematch.BBox `json:"bbox"`
	PersonID   string         `json:"person_id,omitempty"`
	Confidence float64        `json:"confidence,omitempty"`
	MatchID    string         `json:"match_id,omitempty"`
	Inserted   bool           `json:"inserted,omitempty"`
	Err        string         `json:"error,omitempty"`
}

// Report is the outcome of processing one photo.
type Report struct {
	PhotoID    string            `json:"photo_id"`
	FacesFound int               `json:"faces_found"`
	Matched    int               `json:"matched"`
	Failed     int               `json:"failed"`
	Detections []DetectionResult `json:"detections"`
}

// Summary returns a human-readable outcome line.
func (r *Report) Summary() string {
	if r.Matched == 1 {
		return "1 person recognized"
	}
	return fmt.Sprintf("%d persons recognized", r.Matched)
}

// Orchestrator runs the full matching pipeline for a photo.
type Orchestrator struct {
	extractor   recognizer.Extractor
	enrollments database.EnrollmentReader
	registry    *registry.Registry
	opts        Options
}

// NewOrchestrator creates an orchestrator. A zero threshold falls back to
// the default.
func NewOrchestrator(extractor recognizer.Extractor, enrollments database.EnrollmentReader, reg *registry.Registry, opts Options) *Orchestrator {
	if opts.Threshold <= 0 {
		opts.Threshold = facematch.DefaultThreshold
	}
	return &Orchestrator{
		extractor:   extractor,
		enrollments: enrollments,
		registry:    reg,
		opts:        opts,
	}
}

// ProcessPhoto extracts faces from the image, matches each against the
// enrollment gallery, and records accepted matches. A photo with no faces
// yields an empty report. Extraction failure writes nothing.
func (o *Orchestrator) ProcessPhoto(ctx context.Context, photoID string, imageData []byte) (*Report, error) {
	start := time.Now()
	detections, err := o.extractor.Extract(ctx, imageData)
	observability.ExtractionDuration.Observe(time.Since(start).Seconds())
	if err != nil {
		observability.PhotosProcessed.WithLabelValues("extraction_failed").Inc()
		return nil, err
	}

	report := &Report{PhotoID: photoID, FacesFound: len(detections)}
	observability.FacesDetected.Add(float64(len(detections)))

	if len(detections) == 0 {
		observability.PhotosProcessed.WithLabelValues("ok").Inc()
		return report, nil
	}

	// One gallery snapshot per run, shared read-only across goroutines.
	gallery, err := o.enrollments.ListGallery(ctx)
	if err != nil {
		observability.PhotosProcessed.WithLabelValues("error").Inc()
		return nil, fmt.Errorf("load gallery: %w", err)
	}

	results := o.matchDetections(ctx, photoID, detections, gallery)

	for _, res := range results {
		report.Detections = append(report.Detections, res)
		switch {
		case res.Err != "":
			report.Failed++
		case res.PersonID != "":
			report.Matched++
		}
	}

	if o.opts.FailFast && report.Failed > 0 {
		observability.PhotosProcessed.WithLabelValues("error").Inc()
		for _, res := range results {
			if res.Err != "" {
				return report, fmt.Errorf("detection %d: %s", res.Index, res.Err)
			}
		}
	}

	observability.PhotosProcessed.WithLabelValues("ok").Inc()
	return report, nil
}

// matchDetections fans out per-detection matching and recording, one
// goroutine per detection, and collects results in detection order.
func (o *Orchestrator) matchDetections(
	ctx context.Context, photoID string, detections []facematch.Detection, gallery []facematch.GalleryEntry,
) []DetectionResult {
	results := make([]DetectionResult, len(detections))

	var wg sync.WaitGroup
	for i := range detections {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i] = o.matchOne(ctx, photoID, i, detections[i], gallery)
		}(i)
	}
	wg.Wait()

	return results
}

// matchOne matches a single detection and records the result when it clears
// the threshold.
func (o *Orchestrator) matchOne(
	ctx context.Context, photoID string, index int, detection facematch.Detection, gallery []facematch.GalleryEntry,
) DetectionResult {
	result := DetectionResult{Index: index, BBox: detection.BBox}

	candidate, err := facematch.Match(detection.Descriptor, gallery, o.opts.Threshold)
	if err != nil {
		result.Err = err.Error()
		return result
	}
	if candidate == nil {
		// No enrolled person close enough. Not a failure.
		return result
	}

	stored, inserted, err := o.registry.RecordMatch(ctx, photoID, candidate.PersonID, candidate.Confidence, detection.BBox)
	if err != nil {
		result.Err = err.Error()
		return result
	}

	result.PersonID = candidate.PersonID
	result.Confidence = candidate.Confidence
	result.MatchID = stored.ID
	result.Inserted = inserted
	if inserted {
		observability.MatchesRecorded.Inc()
	}
	return result
}
