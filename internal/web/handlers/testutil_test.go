package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"

	"github.com/crewpix/crewpix/internal/auth"
	"github.com/crewpix/crewpix/internal/database"
	"github.com/crewpix/crewpix/internal/database/mock"
	"github.com/crewpix/crewpix/internal/facematch"
	"github.com/crewpix/crewpix/internal/matching"
	"github.com/crewpix/crewpix/internal/registry"
	"github.com/crewpix/crewpix/internal/web/middleware"
)

// fakeExtractor returns canned detections without a real backend.
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

// testEnv wires a faces handler against in-memory stores.
type testEnv struct {
	handler     *FacesHandler
	extractor   *fakeExtractor
	persons     *mock.MockPersonStore
	photos      *mock.MockPhotoStore
	enrollments *mock.MockEnrollmentStore
	matches     *mock.MockMatchStore
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	persons := mock.NewMockPersonStore()
	photos := mock.NewMockPhotoStore()
	enrollments := mock.NewMockEnrollmentStore()
	matches := mock.NewMockMatchStore(photos)
	extractor := &fakeExtractor{}

	resolver := auth.NewStoreResolver(persons, photos)
	reg := registry.New(matches, photos, persons, resolver)
	orchestrator := matching.NewOrchestrator(extractor, enrollments, reg, matching.Options{
		Threshold: facematch.DefaultThreshold,
	})
	enroller := matching.NewEnroller(extractor, enrollments, persons,
		facematch.DefaultMinSamples, facematch.DefaultMaxSamples)

	return &testEnv{
		handler:     NewFacesHandler(orchestrator, enroller, reg, photos, persons),
		extractor:   extractor,
		persons:     persons,
		photos:      photos,
		enrollments: enrollments,
		matches:     matches,
	}
}

// seedMatchScenario adds a photographer's photo and one enrolled person.
func (env *testEnv) seedMatchScenario(t *testing.T) {
	t.Helper()
	env.photos.AddPhoto(database.Photo{ID: "photo1", PhotographerID: "shooter"})
	env.persons.AddPerson(database.Person{ID: "p1", UserID: "alice", DisplayName: "Alice"})
	env.enrollments.AddEnrollment(database.EnrollmentRecord{
		PersonID:   "p1",
		Descriptor: []float32{1, 0},
		Dim:        2,
	})
}

// withIdentity stamps an authenticated identity on the request context.
func withIdentity(r *http.Request, identity auth.Identity) *http.Request {
	return r.WithContext(middleware.SetIdentityInContext(r.Context(), identity))
}

// withChiParams adds chi URL parameters to the request.
func withChiParams(r *http.Request, params map[string]string) *http.Request {
	rctx := chi.NewRouteContext()
	for key, value := range params {
		rctx.URLParams.Add(key, value)
	}
	return r.WithContext(context.WithValue(r.Context(), chi.RouteCtxKey, rctx))
}

// newMatchRequest builds the multipart form the match endpoint expects.
func newMatchRequest(t *testing.T, photoID string, fileData []byte) *http.Request {
	t.Helper()

	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)
	if photoID != "" {
		if err := writer.WriteField("photo_id", photoID); err != nil {
			t.Fatalf("writing photo_id field: %v", err)
		}
	}
	if fileData != nil {
		part, err := writer.CreateFormFile("file", "photo.jpg")
		if err != nil {
			t.Fatalf("creating file part: %v", err)
		}
		if _, err := part.Write(fileData); err != nil {
			t.Fatalf("writing file part: %v", err)
		}
	}
	writer.Close()

	req := httptest.NewRequest(http.MethodPost, "/api/v1/faces/match", &buf)
	req.Header.Set("Content-Type", writer.FormDataContentType())
	return req
}

// newJSONRequest builds a request with a JSON body.
func newJSONRequest(t *testing.T, method, path string, body any) *http.Request {
	t.Helper()

	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshaling request body: %v", err)
		}
		reader = bytes.NewReader(data)
	}
	return httptest.NewRequest(method, path, reader)
}

// decodeBody decodes a JSON response body into a generic map.
func decodeBody(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()

	var body map[string]any
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatalf("decoding response body: %v", err)
	}
	return body
}
