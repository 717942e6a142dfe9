package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	PhotosProcessed = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "crewpix",
		Name:      "photos_processed_total",
		Help:      "Total number of photos run through matching",
	}, []string{"result"})

	FacesDetected = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "crewpix",
		Name:      "faces_detected_total",
		Help:      "Total number of faces detected in processed photos",
	})

	MatchesRecorded = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "crewpix",
		Name:      "matches_recorded_total",
		Help:      "Total number of new face matches recorded",
	})

	ExtractionDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: "crewpix",
		Name:      "extraction_duration_seconds",
		Help:      "Duration of face extraction requests",
		Buckets:   prometheus.ExponentialBuckets(0.01, 2, 10),
	})

	EnrollmentsSaved = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "crewpix",
		Name:      "enrollments_saved_total",
		Help:      "Total number of enrollment descriptor updates",
	})

	HTTPRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "crewpix",
		Name:      "http_request_duration_seconds",
		Help:      "HTTP request duration",
		Buckets:   prometheus.DefBuckets,
	}, []string{"method", "path", "status"})
)
