package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"slotboard/internal/auth"
	"slotboard/internal/metrics"
)

// AuthRequest is the request body for register and login.
type AuthRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// POST /api/auth/register
func (s *HTTPServer) handleRegister(w http.ResponseWriter, r *http.Request) {
	metrics.IncHTTP("register")

	req, ok := decodeAuthRequest(w, r)
	if !ok {
		return
	}
	if err := s.auth.Register(r.Context(), req.Username, req.Password); err != nil {
		if errors.Is(err, auth.ErrUsernameTaken) {
			writeError(w, http.StatusConflict, err.Error())
			return
		}
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{"success": true})
}

// POST /api/auth/login
func (s *HTTPServer) handleLogin(w http.ResponseWriter, r *http.Request) {
	metrics.IncHTTP("login")

	req, ok := decodeAuthRequest(w, r)
	if !ok {
		return
	}
	if err := s.auth.Login(r.Context(), req.Username, req.Password); err != nil {
		if errors.Is(err, auth.ErrBadCredentials) {
			writeError(w, http.StatusUnauthorized, err.Error())
			return
		}
		s.logger.Error().Err(err).Msg("login")
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true})
}

func decodeAuthRequest(w http.ResponseWriter, r *http.Request) (AuthRequest, bool) {
	var req AuthRequest
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return AuthRequest{}, false
	}
	return req, true
}
