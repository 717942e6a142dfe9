package handlers

import (
	"crypto/subtle"
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/crewpix/crewpix/internal/auth"
	"github.com/crewpix/crewpix/internal/web/middleware"
)

// AuthHandler handles authentication endpoints
type AuthHandler struct {
	sessionManager *middleware.SessionManager
	adminToken     string
}

// NewAuthHandler creates a new auth handler
func NewAuthHandler(sm *middleware.SessionManager, adminToken string) *AuthHandler {
	return &AuthHandler{
		sessionManager: sm,
		adminToken:     adminToken,
	}
}

// sessionRequest represents a session creation request
type sessionRequest struct {
	UserID string    `json:"user_id"`
	Role   auth.Role `json:"role"`
}

// SessionResponse represents a session creation response
type SessionResponse struct {
	Success   bool   `json:"success"`
	SessionID string `json:"session_id,omitempty"`
	ExpiresAt string `json:"expires_at,omitempty"`
	Message   string `json:"message,omitempty"`
}

func validRole(role auth.Role) bool {
	switch role {
	case auth.RolePerson, auth.RolePhotographer, auth.RoleAdmin:
		return true
	}
	return false
}

// CreateSession mints a session for a user. Session creation is reserved
// for the identity provider fronting this service, which authenticates
// with the configured API token.
func (h *AuthHandler) CreateSession(w http.ResponseWriter, r *http.Request) {
	if h.adminToken == "" {
		respondError(w, http.StatusForbidden, codeForbidden, "session issuing is not configured")
		return
	}

	token := strings.TrimPrefix(r.Header.Get("Authorization"), "Bearer ")
	if subtle.ConstantTimeCompare([]byte(token), []byte(h.adminToken)) != 1 {
		respondError(w, http.StatusUnauthorized, codeUnauthorized, "invalid API token")
		return
	}

	var req sessionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, codeValidationFailed, errInvalidRequestBody)
		return
	}

	if req.UserID == "" || !validRole(req.Role) {
		respondError(w, http.StatusBadRequest, codeValidationFailed, "user_id and a valid role are required")
		return
	}

	session, err := h.sessionManager.CreateSession(req.UserID, req.Role)
	if err != nil {
		respondError(w, http.StatusInternalServerError, codeInternalFailure, "failed to create session")
		return
	}

	h.sessionManager.SetSessionCookie(w, session)

	respondJSON(w, http.StatusOK, SessionResponse{
		Success:   true,
		SessionID: session.ID,
		ExpiresAt: session.ExpiresAt.Format(time.RFC3339),
	})
}

// Logout deletes the caller's session
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	session := h.sessionManager.GetSessionFromRequest(r)
	if session != nil {
		h.sessionManager.DeleteSession(session.ID)
	}

	h.sessionManager.ClearSessionCookie(w)
	respondJSON(w, http.StatusOK, map[string]bool{"success": true})
}

// StatusResponse represents the auth status response
type StatusResponse struct {
	Authenticated bool      `json:"authenticated"`
	UserID        string    `json:"user_id,omitempty"`
	Role          auth.Role `json:"role,omitempty"`
	ExpiresAt     string    `json:"expires_at,omitempty"`
}

// Status checks if the user is authenticated by validating the session.
func (h *AuthHandler) Status(w http.ResponseWriter, r *http.Request) {
	session := h.sessionManager.GetSessionFromRequest(r)
	if session == nil {
		respondJSON(w, http.StatusOK, StatusResponse{Authenticated: false})
		return
	}

	respondJSON(w, http.StatusOK, StatusResponse{
		Authenticated: true,
		UserID:        session.UserID,
		Role:          session.Role,
		ExpiresAt:     session.ExpiresAt.Format(time.RFC3339),
	})
}
