package web

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/crewpix/crewpix/internal/config"
	"github.com/crewpix/crewpix/internal/database/mock"
	"github.com/crewpix/crewpix/internal/facematch"
)

type stubExtractor struct{}

func (stubExtractor) Extract(ctx context.Context, imageData []byte) ([]facematch.Detection, error) {
	return nil, nil
}

func (stubExtractor) Ready(ctx context.Context) error { return nil }

func newTestServer() *Server {
	cfg := &config.Config{}
	cfg.Web.Port = 8080
	cfg.Web.SessionSecret = "test-secret"
	cfg.Web.AdminToken = "api-token"
	cfg.Matching.Threshold = facematch.DefaultThreshold
	cfg.Matching.MinSamples = facematch.DefaultMinSamples
	cfg.Matching.MaxSamples = facematch.DefaultMaxSamples

	photos := mock.NewMockPhotoStore()
	stores := Stores{
		Persons:     mock.NewMockPersonStore(),
		Photos:      photos,
		Enrollments: mock.NewMockEnrollmentStore(),
		Matches:     mock.NewMockMatchStore(photos),
	}

	return NewServer(cfg, "127.0.0.1", stores, stubExtractor{}, nil)
}

func TestServer_HealthEndpoint(t *testing.T) {
	s := newTestServer()

	req := httptest.NewRequest(http.MethodGet, "/api/v1/health", nil)
	rec := httptest.NewRecorder()
	s.Router().ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Errorf("status = %d, want %d", rec.Code, http.StatusOK)
	}
}

func TestServer_MetricsEndpoint(t *testing.T) {
	s := newTestServer()

	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	rec := httptest.NewRecorder()
	s.Router().ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Errorf("status = %d, want %d", rec.Code, http.StatusOK)
	}
}

func TestServer_ProtectedRoutesRequireAuth(t *testing.T) {
	s := newTestServer()

	paths := []struct {
		method string
		path   string
	}{
		{http.MethodPost, "/api/v1/faces/match"},
		{http.MethodGet, "/api/v1/faces/matches"},
		{http.MethodPut, "/api/v1/faces/matches/abc/approval"},
		{http.MethodDelete, "/api/v1/faces/matches/abc"},
		{http.MethodPost, "/api/v1/faces/enroll"},
	}

	for _, tt := range paths {
		req := httptest.NewRequest(tt.method, tt.path, nil)
		rec := httptest.NewRecorder()
		s.Router().ServeHTTP(rec, req)

		if rec.Code != http.StatusUnauthorized {
			t.Errorf("%s %s: status = %d, want %d", tt.method, tt.path, rec.Code, http.StatusUnauthorized)
		}
	}
}

func TestServer_AdminTokenGrantsAccess(t *testing.T) {
	s := newTestServer()

	req := httptest.NewRequest(http.MethodGet, "/api/v1/faces/matches", nil)
	req.Header.Set("Authorization", "Bearer api-token")
	rec := httptest.NewRecorder()
	s.Router().ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Errorf("status = %d, want %d, body %s", rec.Code, http.StatusOK, rec.Body.String())
	}
}
