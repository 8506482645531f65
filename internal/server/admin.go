package server

import (
	"net/http"
	"strconv"
	"strings"
)

// LoginRequest carries operator credentials.
type LoginRequest struct {
	Username string `json:"username" validate:"required"`
	Password string `json:"password" validate:"required"`
}

// handleLogin exchanges operator credentials for a JWT.
func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if err := decodeJSON(r, &req); err != nil {
		s.errorResponse(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := s.validate.Struct(&req); err != nil {
		s.errorResponse(w, HTTPStatus(err), err.Error())
		return
	}

	if !s.admin.Verify(req.Username, req.Password) {
		s.errorResponse(w, http.StatusUnauthorized, "invalid username or password")
		return
	}

	token, expiresAt, err := s.jwtService.GenerateToken(req.Username)
	if err != nil {
		s.errorResponse(w, http.StatusInternalServerError, "failed to generate token")
		return
	}

	s.jsonResponse(w, http.StatusOK, map[string]any{
		"token":      token,
		"expires_at": expiresAt,
	})
}

// withAuth requires a valid Bearer token on the wrapped handler.
func (s *Server) withAuth(next http.HandlerFunc) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		header := r.Header.Get("Authorization")
		token, ok := strings.CutPrefix(header, "Bearer ")
		if !ok || token == "" {
			s.errorResponse(w, http.StatusUnauthorized, "missing bearer token")
			return
		}

		if _, err := s.jwtService.ValidateToken(token); err != nil {
			s.errorResponse(w, http.StatusUnauthorized, "invalid token")
			return
		}

		next.ServeHTTP(w, r)
	})
}

// handleListWorkflows returns recent workflows, most recently updated first.
func (s *Server) handleListWorkflows(w http.ResponseWriter, r *http.Request) {
	limit := 50
	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 1 {
			s.errorResponse(w, http.StatusBadRequest, "invalid limit")
			return
		}
		limit = parsed
	}

	records, err := s.store.ListWorkflows(r.Context(), limit)
	if err != nil {
		s.errorResponse(w, HTTPStatus(err), err.Error())
		return
	}
	s.jsonResponse(w, http.StatusOK, map[string]any{"workflows": records})
}

// handleGetWorkflow returns one workflow record.
func (s *Server) handleGetWorkflow(w http.ResponseWriter, r *http.Request) {
	rec, err := s.store.GetWorkflow(r.Context(), r.PathValue("thread_id"))
	if err != nil {
		s.errorResponse(w, HTTPStatus(err), err.Error())
		return
	}
	s.jsonResponse(w, http.StatusOK, rec)
}

// handleRetryWorkflow re-drives a thread from its persisted status. This is
// the operator path for threads stuck after a stage failure.
func (s *Server) handleRetryWorkflow(w http.ResponseWriter, r *http.Request) {
	rec, err := s.engine.Advance(r.Context(), r.PathValue("thread_id"))
	if err != nil {
		s.errorResponse(w, HTTPStatus(err), err.Error())
		return
	}
	s.jsonResponse(w, http.StatusOK, rec)
}

// FailRequest carries the operator's reason for parking a thread.
type FailRequest struct {
	Reason string `json:"reason" validate:"required"`
}

// handleFailWorkflow parks a thread in the failed status.
func (s *Server) handleFailWorkflow(w http.ResponseWriter, r *http.Request) {
	var req FailRequest
	if err := decodeJSON(r, &req); err != nil {
		s.errorResponse(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := s.validate.Struct(&req); err != nil {
		s.errorResponse(w, HTTPStatus(err), err.Error())
		return
	}

	threadID := r.PathValue("thread_id")
	if err := s.store.MarkFailed(r.Context(), threadID, req.Reason); err != nil {
		s.errorResponse(w, HTTPStatus(err), err.Error())
		return
	}

	rec, err := s.store.GetWorkflow(r.Context(), threadID)
	if err != nil {
		s.errorResponse(w, HTTPStatus(err), err.Error())
		return
	}
	s.jsonResponse(w, http.StatusOK, rec)
}
