package api

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"slotboard/internal/access"
	"slotboard/internal/auth"
	"slotboard/internal/database"
	"slotboard/internal/engine"
	"slotboard/internal/models"
	"slotboard/internal/service"
)

// newTestAPI wires the handler over a real sqlite store in a temp dir.
func newTestAPI(t *testing.T, blocked ...string) http.Handler {
	t.Helper()
	logger := zerolog.Nop()
	db, err := database.NewDB(filepath.Join(t.TempDir(), "api.db"), &logger)
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	slots := service.New(db, engine.New(), access.NewPolicy(blocked), nil, logger)
	authSvc := auth.NewService(db, bcrypt.MinCost, logger)
	return NewHTTPServer(slots, authSvc, logger).Handler()
}

func doJSON(t *testing.T, handler http.Handler, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	return rec
}

func createSlot(t *testing.T, handler http.Handler, identity, startTime string) models.Slot {
	t.Helper()
	rec := doJSON(t, handler, http.MethodPost, "/api/slots",
		`{"identity": "`+identity+`", "start_time": "`+startTime+`"}`)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var slot models.Slot
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &slot))
	return slot
}

func TestSlotLifecycleOverHTTP(t *testing.T) {
	handler := newTestAPI(t)

	slot := createSlot(t, handler, "Alice", "18:00")
	assert.Equal(t, "alice", slot.CreatorName)
	assert.Equal(t, "alice", slot.Player1)

	rec := doJSON(t, handler, http.MethodPost, "/api/slots/"+slot.ID+"/join", `{"identity": "bob"}`)
	assert.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = doJSON(t, handler, http.MethodGet, "/api/slots", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var board struct {
		Slots []models.Slot `json:"slots"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &board))
	require.Len(t, board.Slots, 1)
	assert.Equal(t, "bob", board.Slots[0].Player2)

	rec = doJSON(t, handler, http.MethodPost, "/api/slots/"+slot.ID+"/cancel", `{"identity": "alice"}`)
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = doJSON(t, handler, http.MethodGet, "/api/slots", "")
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &board))
	assert.Empty(t, board.Slots)
}

func TestErrorStatusMapping(t *testing.T) {
	handler := newTestAPI(t, "mallory")
	slot := createSlot(t, handler, "alice", "18:00")

	tests := []struct {
		name   string
		path   string
		body   string
		status int
	}{
		{"duplicate join", "/api/slots/" + slot.ID + "/join", `{"identity": "alice"}`, http.StatusConflict},
		{"non-creator cancel", "/api/slots/" + slot.ID + "/cancel", `{"identity": "bob"}`, http.StatusForbidden},
		{"blocked identity", "/api/slots/" + slot.ID + "/join", `{"identity": "mallory"}`, http.StatusForbidden},
		{"empty identity", "/api/slots/" + slot.ID + "/join", `{"identity": ""}`, http.StatusBadRequest},
		{"unknown slot", "/api/slots/nope/join", `{"identity": "bob"}`, http.StatusNotFound},
		{"bad json", "/api/slots/" + slot.ID + "/join", `{"identity": `, http.StatusBadRequest},
		{"unknown field", "/api/slots/" + slot.ID + "/join", `{"identity": "bob", "extra": 1}`, http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := doJSON(t, handler, http.MethodPost, tt.path, tt.body)
			assert.Equal(t, tt.status, rec.Code, rec.Body.String())
		})
	}
}

func TestSecondActiveSlotRejected(t *testing.T) {
	handler := newTestAPI(t)
	createSlot(t, handler, "alice", "18:00")

	rec := doJSON(t, handler, http.MethodPost, "/api/slots", `{"identity": "alice", "start_time": "20:00"}`)
	assert.Equal(t, http.StatusConflict, rec.Code, rec.Body.String())
}

func TestSeatNoteOverHTTP(t *testing.T) {
	handler := newTestAPI(t)
	slot := createSlot(t, handler, "alice", "18:00")

	rec := doJSON(t, handler, http.MethodPost, "/api/slots/"+slot.ID+"/note",
		`{"identity": "alice", "seat": 0, "text": "bring snacks"}`)
	assert.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	// Seat is required.
	rec = doJSON(t, handler, http.MethodPost, "/api/slots/"+slot.ID+"/note",
		`{"identity": "alice", "text": "hi"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestQueueOverHTTP(t *testing.T) {
	handler := newTestAPI(t)
	slot := createSlot(t, handler, "alice", "18:00")

	rec := doJSON(t, handler, http.MethodPost, "/api/slots/"+slot.ID+"/queue/join", `{"identity": "erin"}`)
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = doJSON(t, handler, http.MethodPost, "/api/slots/"+slot.ID+"/queue/join", `{"identity": "erin"}`)
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec = doJSON(t, handler, http.MethodPost, "/api/slots/"+slot.ID+"/queue/leave", `{"identity": "erin"}`)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestAuthOverHTTP(t *testing.T) {
	handler := newTestAPI(t)

	rec := doJSON(t, handler, http.MethodPost, "/api/auth/register", `{"username": "alice", "password": "hunter22"}`)
	assert.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	rec = doJSON(t, handler, http.MethodPost, "/api/auth/register", `{"username": "Alice", "password": "other-pass"}`)
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec = doJSON(t, handler, http.MethodPost, "/api/auth/register", `{"username": "bob", "password": "short"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = doJSON(t, handler, http.MethodPost, "/api/auth/login", `{"username": "ALICE", "password": "hunter22"}`)
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = doJSON(t, handler, http.MethodPost, "/api/auth/login", `{"username": "alice", "password": "wrong"}`)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}
