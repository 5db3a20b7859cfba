// Package api exposes the slot board operations as a JSON HTTP API consumed
// by the board UI.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/rs/zerolog"

	"slotboard/internal/auth"
	"slotboard/internal/database"
	"slotboard/internal/engine"
	"slotboard/internal/service"
)

// HTTPServer serves the board API.
type HTTPServer struct {
	slots  *service.SlotService
	auth   *auth.Service
	logger zerolog.Logger
}

// NewHTTPServer creates the API server.
func NewHTTPServer(slots *service.SlotService, authSvc *auth.Service, logger zerolog.Logger) *HTTPServer {
	return &HTTPServer{
		slots:  slots,
		auth:   authSvc,
		logger: logger.With().Str("component", "api").Logger(),
	}
}

// Handler returns the routed handler.
func (s *HTTPServer) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /api/slots", s.handleListSlots)
	mux.HandleFunc("POST /api/slots", s.handleCreateSlot)
	mux.HandleFunc("POST /api/slots/{id}/join", s.handleJoinSlot)
	mux.HandleFunc("POST /api/slots/{id}/leave", s.handleLeaveSlot)
	mux.HandleFunc("POST /api/slots/{id}/remove-self", s.handleRemoveSelf)
	mux.HandleFunc("POST /api/slots/{id}/cancel", s.handleCancelSlot)
	mux.HandleFunc("POST /api/slots/{id}/time", s.handleEditTime)
	mux.HandleFunc("POST /api/slots/{id}/note", s.handleSetNote)
	mux.HandleFunc("POST /api/slots/{id}/queue/join", s.handleJoinQueue)
	mux.HandleFunc("POST /api/slots/{id}/queue/leave", s.handleLeaveQueue)
	mux.HandleFunc("POST /api/auth/register", s.handleRegister)
	mux.HandleFunc("POST /api/auth/login", s.handleLogin)

	return mux
}

// Run serves the API until ctx is cancelled.
func (s *HTTPServer) Run(ctx context.Context, port int) error {
	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", port),
		Handler:           s.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		<-ctx.Done()
		ctxShutdown, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		defer cancel()
		_ = srv.Shutdown(ctxShutdown)
	}()

	s.logger.Info().Int("port", port).Msg("api server started")
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}

// writeOperationError maps the engine/store error taxonomy to HTTP statuses.
func writeOperationError(w http.ResponseWriter, err error) {
	var (
		validation *engine.ValidationError
		authz      *engine.AuthorizationError
		conflict   *engine.StateConflictError
	)
	switch {
	case errors.As(err, &validation):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.As(err, &authz):
		writeError(w, http.StatusForbidden, err.Error())
	case errors.As(err, &conflict):
		writeError(w, http.StatusConflict, err.Error())
	case errors.Is(err, database.ErrVersionConflict):
		writeError(w, http.StatusConflict, "concurrent modification, refresh and retry")
	case errors.Is(err, database.ErrNotFound):
		writeError(w, http.StatusNotFound, "slot not found")
	default:
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}
