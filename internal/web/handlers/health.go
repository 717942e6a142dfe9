package handlers

import (
	"context"
	"database/sql"
	"net/http"
	"time"

	"github.com/crewpix/crewpix/internal/recognizer"
)

// HealthCheck returns a handler that reports service health including the
// database and the descriptor extraction backend. Either dependency may be
// nil when the deployment does not carry it.
func HealthCheck(db *sql.DB, extractor recognizer.Extractor) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()

		status := map[string]string{"status": "ok"}
		code := http.StatusOK

		if db != nil {
			if err := db.PingContext(ctx); err != nil {
				status["status"] = "degraded"
				status["database"] = "unavailable"
				code = http.StatusServiceUnavailable
			} else {
				status["database"] = "ok"
			}
		}

		if extractor != nil {
			if err := extractor.Ready(ctx); err != nil {
				status["status"] = "degraded"
				status["recognizer"] = "unavailable"
				code = http.StatusServiceUnavailable
			} else {
				status["recognizer"] = "ok"
			}
		}

		respondJSON(w, code, status)
	}
}
