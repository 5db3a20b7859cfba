package models

import (
	"strings"
	"time"
)

// Slot statuses. Cancellation is terminal.
const (
	StatusActive    = "active"
	StatusCancelled = "cancelled"
)

// SeatCount is the number of named player positions in a slot.
const SeatCount = 4

// Slot represents one squad slot on the board.
// The json tags are the persisted field names shared with the board UI
// and the bot; they must not be renamed.
type Slot struct {
	ID           string    `json:"id"`
	CreatorName  string    `json:"creator_name"`
	StartTime    time.Time `json:"start_time"`
	Player1      string    `json:"player1"`
	Player2      string    `json:"player2"`
	Player3      string    `json:"player3"`
	Player4      string    `json:"player4"`
	Player1Note  string    `json:"player1_comment"`
	Player2Note  string    `json:"player2_comment"`
	Player3Note  string    `json:"player3_comment"`
	Player4Note  string    `json:"player4_comment"`
	WaitingQueue []string  `json:"waiting_queue"`
	Status       string    `json:"status"`
	ReminderSent bool      `json:"reminder_sent"`
	CreatedAt    time.Time `json:"created_at"`
	Version      int64     `json:"version"`
}

// SeatFields are the seat column names in fixed order.
var SeatFields = [SeatCount]string{"player1", "player2", "player3", "player4"}

// NoteFields are the per-seat comment column names, index-aligned with SeatFields.
var NoteFields = [SeatCount]string{"player1_comment", "player2_comment", "player3_comment", "player4_comment"}

// NormalizeIdentity canonicalizes a user identity for comparison and storage.
func NormalizeIdentity(identity string) string {
	return strings.ToLower(strings.TrimSpace(identity))
}

// Seats returns the seat occupants in fixed order. Empty string means vacant.
func (s *Slot) Seats() [SeatCount]string {
	return [SeatCount]string{s.Player1, s.Player2, s.Player3, s.Player4}
}

// Notes returns the per-seat comments, index-aligned with Seats.
func (s *Slot) Notes() [SeatCount]string {
	return [SeatCount]string{s.Player1Note, s.Player2Note, s.Player3Note, s.Player4Note}
}

// SeatOf returns the zero-based seat index occupied by identity, or -1.
// Comparison is case-insensitive.
func (s *Slot) SeatOf(identity string) int {
	for i, occupant := range s.Seats() {
		if occupant != "" && strings.EqualFold(occupant, identity) {
			return i
		}
	}
	return -1
}

// IsFull reports whether all four seats are occupied.
func (s *Slot) IsFull() bool {
	for _, occupant := range s.Seats() {
		if occupant == "" {
			return false
		}
	}
	return true
}

// IsActive reports whether the slot accepts mutations.
func (s *Slot) IsActive() bool {
	return s.Status == StatusActive
}

// IsCreator reports whether identity owns the slot.
func (s *Slot) IsCreator(identity string) bool {
	return strings.EqualFold(s.CreatorName, identity)
}

// InQueue reports whether identity is in the waiting queue.
func (s *Slot) InQueue(identity string) bool {
	for _, name := range s.WaitingQueue {
		if strings.EqualFold(name, identity) {
			return true
		}
	}
	return false
}

// Players returns the occupied seats in order, skipping vacant ones.
func (s *Slot) Players() []string {
	var players []string
	for _, occupant := range s.Seats() {
		if occupant != "" {
			players = append(players, occupant)
		}
	}
	return players
}
