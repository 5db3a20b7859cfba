package api

import (
	"encoding/json"
	"net/http"

	"slotboard/internal/metrics"
	"slotboard/internal/models"
)

// SlotRequest is the common request body for slot mutations.
type SlotRequest struct {
	Identity  string `json:"identity"`
	StartTime string `json:"start_time,omitempty"` // Format: HH:MM
	Seat      *int   `json:"seat,omitempty"`       // Zero-based seat index
	Text      string `json:"text,omitempty"`
}

// handleListSlots returns the visible board.
// GET /api/slots
func (s *HTTPServer) handleListSlots(w http.ResponseWriter, r *http.Request) {
	metrics.IncHTTP("list_slots")

	slots, err := s.slots.ListActive(r.Context())
	if err != nil {
		s.logger.Error().Err(err).Msg("list slots")
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	if slots == nil {
		slots = []models.Slot{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"slots": slots})
}

// handleCreateSlot creates a slot for the acting identity.
// POST /api/slots
func (s *HTTPServer) handleCreateSlot(w http.ResponseWriter, r *http.Request) {
	metrics.IncHTTP("create_slot")

	req, ok := decodeSlotRequest(w, r)
	if !ok {
		return
	}

	slot, err := s.slots.Create(r.Context(), req.Identity, req.StartTime)
	if err != nil {
		writeOperationError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, slot)
}

// POST /api/slots/{id}/join
func (s *HTTPServer) handleJoinSlot(w http.ResponseWriter, r *http.Request) {
	metrics.IncHTTP("join_slot")
	s.mutate(w, r, func(id string, req SlotRequest) error {
		return s.slots.Join(r.Context(), id, req.Identity)
	})
}

// POST /api/slots/{id}/leave
func (s *HTTPServer) handleLeaveSlot(w http.ResponseWriter, r *http.Request) {
	metrics.IncHTTP("leave_slot")
	s.mutate(w, r, func(id string, req SlotRequest) error {
		return s.slots.Leave(r.Context(), id, req.Identity)
	})
}

// POST /api/slots/{id}/remove-self
func (s *HTTPServer) handleRemoveSelf(w http.ResponseWriter, r *http.Request) {
	metrics.IncHTTP("remove_self")
	s.mutate(w, r, func(id string, req SlotRequest) error {
		return s.slots.RemoveSelfAsCreator(r.Context(), id, req.Identity)
	})
}

// POST /api/slots/{id}/cancel
func (s *HTTPServer) handleCancelSlot(w http.ResponseWriter, r *http.Request) {
	metrics.IncHTTP("cancel_slot")
	s.mutate(w, r, func(id string, req SlotRequest) error {
		return s.slots.Cancel(r.Context(), id, req.Identity)
	})
}

// POST /api/slots/{id}/time
func (s *HTTPServer) handleEditTime(w http.ResponseWriter, r *http.Request) {
	metrics.IncHTTP("edit_time")
	s.mutate(w, r, func(id string, req SlotRequest) error {
		return s.slots.EditStartTime(r.Context(), id, req.Identity, req.StartTime)
	})
}

// POST /api/slots/{id}/note
func (s *HTTPServer) handleSetNote(w http.ResponseWriter, r *http.Request) {
	metrics.IncHTTP("set_note")
	s.mutate(w, r, func(id string, req SlotRequest) error {
		seat := -1
		if req.Seat != nil {
			seat = *req.Seat
		}
		return s.slots.SetSeatNote(r.Context(), id, req.Identity, seat, req.Text)
	})
}

// POST /api/slots/{id}/queue/join
func (s *HTTPServer) handleJoinQueue(w http.ResponseWriter, r *http.Request) {
	metrics.IncHTTP("join_queue")
	s.mutate(w, r, func(id string, req SlotRequest) error {
		return s.slots.JoinQueue(r.Context(), id, req.Identity)
	})
}

// POST /api/slots/{id}/queue/leave
func (s *HTTPServer) handleLeaveQueue(w http.ResponseWriter, r *http.Request) {
	metrics.IncHTTP("leave_queue")
	s.mutate(w, r, func(id string, req SlotRequest) error {
		return s.slots.LeaveQueue(r.Context(), id, req.Identity)
	})
}

func (s *HTTPServer) mutate(w http.ResponseWriter, r *http.Request, apply func(id string, req SlotRequest) error) {
	id := r.PathValue("id")
	if id == "" {
		writeError(w, http.StatusBadRequest, "slot id is required")
		return
	}
	req, ok := decodeSlotRequest(w, r)
	if !ok {
		return
	}
	if err := apply(id, req); err != nil {
		writeOperationError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true})
}

func decodeSlotRequest(w http.ResponseWriter, r *http.Request) (SlotRequest, bool) {
	var req SlotRequest
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return SlotRequest{}, false
	}
	return req, true
}
