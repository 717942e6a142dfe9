// Package handlers provides HTTP handlers for the web API.
package handlers

import (
	"encoding/json"
	"errors"
	"io"
	"log"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/crewpix/crewpix/internal/auth"
	"github.com/crewpix/crewpix/internal/constants"
	"github.com/crewpix/crewpix/internal/database"
	"github.com/crewpix/crewpix/internal/facematch"
	"github.com/crewpix/crewpix/internal/matching"
	"github.com/crewpix/crewpix/internal/recognizer"
	"github.com/crewpix/crewpix/internal/registry"
	"github.com/crewpix/crewpix/internal/web/middleware"
)

// FacesHandler handles the face matching and enrollment endpoints.
type FacesHandler struct {
	orchestrator *matching.Orchestrator
	enroller     *matching.Enroller
	registry     *registry.Registry
	photos       database.PhotoReader
	persons      database.PersonReader
}

// NewFacesHandler creates a new faces handler.
func NewFacesHandler(
	orchestrator *matching.Orchestrator,
	enroller *matching.Enroller,
	reg *registry.Registry,
	photos database.PhotoReader,
	persons database.PersonReader,
) *FacesHandler {
	return &FacesHandler{
		orchestrator: orchestrator,
		enroller:     enroller,
		registry:     reg,
		photos:       photos,
		persons:      persons,
	}
}

// matchJSON is the wire representation of a stored match.
type matchJSON struct {
	ID         string         `json:"id"`
	PhotoID    string         `json:"photo_id"`
	PersonID   string         `json:"person_id"`
	PersonName string         `json:"person_name,omitempty"`
	TeamName   string         `json:"team_name,omitempty"`
	Confidence float64        `json:"confidence"`
	BBox       facematch.BBox `json:"bbox"`
	Approved   bool           `json:"approved"`
	CreatedAt  string         `json:"created_at"`
	UpdatedAt  string         `json:"updated_at"`
}

func toMatchJSON(m *database.StoredMatch) matchJSON {
	return matchJSON{
		ID:         m.ID,
		PhotoID:    m.PhotoID,
		PersonID:   m.PersonID,
		Confidence: m.Confidence,
		BBox:       m.BBox,
		Approved:   m.Approved,
		CreatedAt:  m.CreatedAt.Format(time.RFC3339),
		UpdatedAt:  m.UpdatedAt.Format(time.RFC3339),
	}
}

// Match processes an uploaded photo against the enrollment gallery and
// records the accepted matches. Photographers may only submit their own
// photos; admins may submit any photo.
func (h *FacesHandler) Match(w http.ResponseWriter, r *http.Request) {
	identity, ok := middleware.GetIdentityFromContext(r.Context())
	if !ok {
		respondError(w, http.StatusUnauthorized, codeUnauthorized, "authentication required")
		return
	}

	if err := r.ParseMultipartForm(constants.MaxUploadSize); err != nil {
		respondError(w, http.StatusBadRequest, codeValidationFailed, "failed to parse multipart form")
		return
	}

	photoID := r.FormValue("photo_id")
	if photoID == "" {
		respondError(w, http.StatusBadRequest, codeValidationFailed, "photo_id is required")
		return
	}

	photo, err := h.photos.GetPhoto(r.Context(), photoID)
	if err != nil {
		if errors.Is(err, database.ErrNotFound) {
			respondError(w, http.StatusNotFound, codeNotFound, "photo not found")
			return
		}
		respondError(w, http.StatusInternalServerError, codeInternalFailure, "failed to load photo")
		return
	}

	switch identity.Role {
	case auth.RoleAdmin:
	case auth.RolePhotographer:
		if photo.PhotographerID != identity.UserID {
			respondError(w, http.StatusForbidden, codeForbidden, "photo belongs to another photographer")
			return
		}
	default:
		respondError(w, http.StatusForbidden, codeForbidden, "matching requires photographer or admin role")
		return
	}

	file, _, err := r.FormFile("file")
	if err != nil {
		respondError(w, http.StatusBadRequest, codeValidationFailed, "file is required")
		return
	}
	defer file.Close()

	imageData, err := io.ReadAll(file)
	if err != nil {
		respondError(w, http.StatusInternalServerError, codeInternalFailure, "failed to read uploaded file")
		return
	}

	// Shrink large uploads before shipping them to the extraction service.
	if resized, err := recognizer.ResizeImage(imageData, constants.MaxImageSize); err == nil {
		imageData = resized
	}

	report, err := h.orchestrator.ProcessPhoto(r.Context(), photoID, imageData)
	if err != nil {
		log.Printf("matching photo %s failed: %v", sanitizeForLog(photoID), err)
		if errors.Is(err, recognizer.ErrExtractionFailed) || errors.Is(err, recognizer.ErrNotReady) {
			respondError(w, http.StatusInternalServerError, codeExtractionFailed, "face extraction failed")
			return
		}
		respondError(w, http.StatusInternalServerError, codeInternalFailure, "failed to process photo")
		return
	}

	respondJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"message": report.Summary(),
		"report":  report,
	})
}

// ListMatches returns the matches visible to the caller. Admins see all
// matches, photographers the matches on their photos, persons their own.
func (h *FacesHandler) ListMatches(w http.ResponseWriter, r *http.Request) {
	identity, ok := middleware.GetIdentityFromContext(r.Context())
	if !ok {
		respondError(w, http.StatusUnauthorized, codeUnauthorized, "authentication required")
		return
	}

	matches, err := h.registry.ListMatches(r.Context(), identity)
	if err != nil {
		if errors.Is(err, auth.ErrForbidden) {
			respondError(w, http.StatusForbidden, codeForbidden, "access denied")
			return
		}
		respondError(w, http.StatusInternalServerError, codeInternalFailure, "failed to list matches")
		return
	}

	// Decorate with person names for list consumers. Lookups are cached
	// per distinct person within the request.
	people := make(map[string]*database.Person)
	out := make([]matchJSON, 0, len(matches))
	for i := range matches {
		mj := toMatchJSON(&matches[i])
		person, seen := people[mj.PersonID]
		if !seen {
			var lookupErr error
			person, lookupErr = h.persons.GetPerson(r.Context(), mj.PersonID)
			if lookupErr != nil && !errors.Is(lookupErr, database.ErrNotFound) {
				log.Printf("person lookup for match decoration failed (%s): %v",
					sanitizeForLog(mj.PersonID), lookupErr)
			}
			people[mj.PersonID] = person
		}
		if person != nil {
			mj.PersonName = person.DisplayName
			mj.TeamName = person.TeamName
		}
		out = append(out, mj)
	}

	respondJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"matches": out,
		"count":   len(out),
	})
}

// SetApproval marks a match approved or rejected.
func (h *FacesHandler) SetApproval(w http.ResponseWriter, r *http.Request) {
	identity, ok := middleware.GetIdentityFromContext(r.Context())
	if !ok {
		respondError(w, http.StatusUnauthorized, codeUnauthorized, "authentication required")
		return
	}

	matchID := chi.URLParam(r, "matchID")
	if matchID == "" {
		respondError(w, http.StatusBadRequest, codeValidationFailed, "match ID is required")
		return
	}

	var req struct {
		Approved *bool `json:"approved"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Approved == nil {
		respondError(w, http.StatusBadRequest, codeValidationFailed, errInvalidRequestBody)
		return
	}

	match, err := h.registry.SetApproval(r.Context(), identity, matchID, *req.Approved)
	if err != nil {
		h.respondRegistryError(w, matchID, err)
		return
	}

	respondJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"match":   toMatchJSON(match),
	})
}

// DeleteMatch removes a match and releases its slot in the photo counter.
func (h *FacesHandler) DeleteMatch(w http.ResponseWriter, r *http.Request) {
	identity, ok := middleware.GetIdentityFromContext(r.Context())
	if !ok {
		respondError(w, http.StatusUnauthorized, codeUnauthorized, "authentication required")
		return
	}

	matchID := chi.URLParam(r, "matchID")
	if matchID == "" {
		respondError(w, http.StatusBadRequest, codeValidationFailed, "match ID is required")
		return
	}

	if err := h.registry.DeleteMatch(r.Context(), identity, matchID); err != nil {
		h.respondRegistryError(w, matchID, err)
		return
	}

	respondJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"message": "match deleted",
	})
}

func (h *FacesHandler) respondRegistryError(w http.ResponseWriter, matchID string, err error) {
	switch {
	case errors.Is(err, database.ErrNotFound):
		respondError(w, http.StatusNotFound, codeNotFound, "match not found")
	case errors.Is(err, auth.ErrForbidden):
		respondError(w, http.StatusForbidden, codeForbidden, "access denied")
	default:
		log.Printf("match %s operation failed: %v", sanitizeForLog(matchID), err)
		respondError(w, http.StatusInternalServerError, codeInternalFailure, "operation failed")
	}
}

// enrollRequest carries pre-extracted face samples for enrollment.
type enrollRequest struct {
	PersonID string `json:"person_id,omitempty"`
	FaceData []struct {
		Descriptor []float32      `json:"descriptor"`
		BBox       facematch.BBox `json:"bbox"`
	} `json:"face_data"`
}

// Enroll registers or replaces a person's enrollment from submitted face
// samples. Persons enroll themselves; admins may enroll anyone by ID.
func (h *FacesHandler) Enroll(w http.ResponseWriter, r *http.Request) {
	identity, ok := middleware.GetIdentityFromContext(r.Context())
	if !ok {
		respondError(w, http.StatusUnauthorized, codeUnauthorized, "authentication required")
		return
	}

	var req enrollRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, codeValidationFailed, errInvalidRequestBody)
		return
	}

	personID, errCode, errStatus, errMsg := h.resolveEnrollTarget(r, identity, req.PersonID)
	if errMsg != "" {
		respondError(w, errStatus, errCode, errMsg)
		return
	}

	samples := make([]facematch.Detection, 0, len(req.FaceData))
	for _, fd := range req.FaceData {
		samples = append(samples, facematch.Detection{
			Descriptor: fd.Descriptor,
			BBox:       fd.BBox,
		})
	}

	record, err := h.enroller.EnrollDetections(r.Context(), personID, samples)
	if err != nil {
		switch {
		case errors.Is(err, facematch.ErrInsufficientSamples):
			respondError(w, http.StatusBadRequest, codeValidationFailed, err.Error())
		case errors.Is(err, database.ErrNotFound):
			respondError(w, http.StatusNotFound, codeNotFound, "person not found")
		default:
			log.Printf("enrolling person %s failed: %v", sanitizeForLog(personID), err)
			respondError(w, http.StatusInternalServerError, codeInternalFailure, "enrollment failed")
		}
		return
	}

	respondJSON(w, http.StatusOK, map[string]any{
		"success":   true,
		"message":   "enrollment saved",
		"person_id": record.PersonID,
		"samples":   len(record.Samples),
		"dim":       record.Dim,
	})
}

// resolveEnrollTarget decides whose enrollment this request updates. A person
// always enrolls the profile linked to their own user; an admin enrolls the
// person named in the request.
func (h *FacesHandler) resolveEnrollTarget(
	r *http.Request, identity auth.Identity, requested string,
) (personID, errCode string, errStatus int, errMsg string) {
	switch identity.Role {
	case auth.RolePerson:
		person, err := h.persons.GetPersonByUser(r.Context(), identity.UserID)
		if err != nil {
			if errors.Is(err, database.ErrNotFound) {
				return "", codeNotFound, http.StatusNotFound, "no person profile linked to this user"
			}
			return "", codeInternalFailure, http.StatusInternalServerError, "failed to load person profile"
		}
		return person.ID, "", 0, ""
	case auth.RoleAdmin:
		if requested == "" {
			return "", codeValidationFailed, http.StatusBadRequest, "person_id is required for admin enrollment"
		}
		return requested, "", 0, ""
	default:
		return "", codeForbidden, http.StatusForbidden, "enrollment requires person or admin role"
	}
}
