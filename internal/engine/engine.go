// Package engine holds the slot state-transition rules. It performs no I/O:
// every operation takes the current slot plus the acting identity and returns
// either a partial-update instruction for the store or a rejection.
package engine

import (
	"time"

	"slotboard/internal/models"
)

// Update describes an accepted state transition as a set of field writes,
// keyed by persisted field name. An empty update is an accepted no-op.
type Update struct {
	Fields map[string]any
}

func noop() Update {
	return Update{}
}

func fields(kv map[string]any) Update {
	return Update{Fields: kv}
}

// IsNoop reports whether the update carries no writes.
func (u Update) IsNoop() bool {
	return len(u.Fields) == 0
}

// Engine computes slot transitions. The clock is injectable for tests.
type Engine struct {
	now func() time.Time
}

// New returns an engine using the system clock.
func New() *Engine {
	return &Engine{now: time.Now}
}

// NewWithClock returns an engine with a fixed clock source.
func NewWithClock(now func() time.Time) *Engine {
	return &Engine{now: now}
}

// NewSlot builds a fresh slot for creator starting at the given "15:04" clock
// time on the current calendar day. The creator is seated as player1.
// The caller must have verified that the creator has no other active slot.
func (e *Engine) NewSlot(creator, clock string) (*models.Slot, error) {
	creator = models.NormalizeIdentity(creator)
	if creator == "" {
		return nil, &ValidationError{Reason: "identity is empty"}
	}
	start, err := e.clockToday(clock)
	if err != nil {
		return nil, err
	}

	now := e.now()
	return &models.Slot{
		CreatorName:  creator,
		StartTime:    start,
		Player1:      creator,
		WaitingQueue: []string{},
		Status:       models.StatusActive,
		ReminderSent: false,
		CreatedAt:    now,
		Version:      1,
	}, nil
}

// Join seats identity at the first vacant seat among player2..player4.
// player1 is never filled by joining; it belongs to the creator.
func (e *Engine) Join(slot *models.Slot, identity string) (Update, error) {
	identity, err := requireIdentity(identity)
	if err != nil {
		return Update{}, err
	}
	if !slot.IsActive() {
		return Update{}, ErrSlotNotActive
	}
	if slot.SeatOf(identity) >= 0 {
		return Update{}, ErrAlreadyInSlot
	}
	seats := slot.Seats()
	for i := 1; i < models.SeatCount; i++ {
		if seats[i] == "" {
			return fields(map[string]any{models.SeatFields[i]: identity}), nil
		}
	}
	return Update{}, ErrSlotFull
}

// Leave vacates every seat among player2..player4 held by identity and clears
// the seat notes. Leaving a slot one is not in is an accepted no-op.
func (e *Engine) Leave(slot *models.Slot, identity string) (Update, error) {
	identity, err := requireIdentity(identity)
	if err != nil {
		return Update{}, err
	}
	if !slot.IsActive() {
		return Update{}, ErrSlotNotActive
	}
	if slot.IsCreator(identity) {
		return Update{}, ErrCreatorCannotLeave
	}

	kv := make(map[string]any)
	seats := slot.Seats()
	for i := 1; i < models.SeatCount; i++ {
		if seats[i] != "" && models.NormalizeIdentity(seats[i]) == identity {
			kv[models.SeatFields[i]] = ""
			kv[models.NoteFields[i]] = ""
		}
	}
	if len(kv) == 0 {
		return noop(), nil
	}
	return fields(kv), nil
}

// RemoveSelfAsCreator vacates player1. The slot stays active and keeps its
// creator for authorization purposes; the seat itself is simply open.
// Joiners still only fill player2..player4.
func (e *Engine) RemoveSelfAsCreator(slot *models.Slot, identity string) (Update, error) {
	identity, err := requireIdentity(identity)
	if err != nil {
		return Update{}, err
	}
	if !slot.IsCreator(identity) {
		return Update{}, ErrNotCreator
	}
	if !slot.IsActive() {
		return Update{}, ErrSlotNotActive
	}
	if slot.Player1 == "" {
		return noop(), nil
	}
	return fields(map[string]any{
		models.SeatFields[0]: "",
		models.NoteFields[0]: "",
	}), nil
}

// Cancel moves the slot to cancelled. Only the creator may cancel.
// Cancelling an already-cancelled slot is an accepted no-op.
func (e *Engine) Cancel(slot *models.Slot, identity string) (Update, error) {
	identity, err := requireIdentity(identity)
	if err != nil {
		return Update{}, err
	}
	if !slot.IsCreator(identity) {
		return Update{}, ErrNotCreator
	}
	if slot.Status == models.StatusCancelled {
		return noop(), nil
	}
	return fields(map[string]any{"status": models.StatusCancelled}), nil
}

// EditStartTime replaces the start time with the given "15:04" clock time on
// the current calendar day. Only the creator may edit, only while active.
func (e *Engine) EditStartTime(slot *models.Slot, identity, clock string) (Update, error) {
	identity, err := requireIdentity(identity)
	if err != nil {
		return Update{}, err
	}
	if !slot.IsCreator(identity) {
		return Update{}, ErrNotCreator
	}
	if !slot.IsActive() {
		return Update{}, ErrSlotNotActive
	}
	start, err := e.clockToday(clock)
	if err != nil {
		return Update{}, err
	}
	return fields(map[string]any{"start_time": start}), nil
}

// SetSeatNote writes the note of the given zero-based seat. Only the current
// occupant of that seat may write its note.
func (e *Engine) SetSeatNote(slot *models.Slot, identity string, seat int, text string) (Update, error) {
	identity, err := requireIdentity(identity)
	if err != nil {
		return Update{}, err
	}
	if seat < 0 || seat >= models.SeatCount {
		return Update{}, &ValidationError{Reason: "seat index out of range"}
	}
	if !slot.IsActive() {
		return Update{}, ErrSlotNotActive
	}
	occupant := slot.Seats()[seat]
	if occupant == "" || models.NormalizeIdentity(occupant) != identity {
		return Update{}, ErrNotSeatOccupant
	}
	return fields(map[string]any{models.NoteFields[seat]: text}), nil
}

// JoinQueue appends identity to the waiting queue. Queue entries are unique;
// a seated identity may still queue.
func (e *Engine) JoinQueue(slot *models.Slot, identity string) (Update, error) {
	identity, err := requireIdentity(identity)
	if err != nil {
		return Update{}, err
	}
	if !slot.IsActive() {
		return Update{}, ErrSlotNotActive
	}
	if slot.InQueue(identity) {
		return Update{}, ErrAlreadyQueued
	}
	queue := append(append([]string{}, slot.WaitingQueue...), identity)
	return fields(map[string]any{"waiting_queue": queue}), nil
}

// LeaveQueue removes identity from the waiting queue, preserving the relative
// order of the rest. Leaving a queue one is not in is an accepted no-op.
func (e *Engine) LeaveQueue(slot *models.Slot, identity string) (Update, error) {
	identity, err := requireIdentity(identity)
	if err != nil {
		return Update{}, err
	}
	if !slot.IsActive() {
		return Update{}, ErrSlotNotActive
	}
	if !slot.InQueue(identity) {
		return noop(), nil
	}
	queue := make([]string, 0, len(slot.WaitingQueue))
	for _, name := range slot.WaitingQueue {
		if models.NormalizeIdentity(name) != identity {
			queue = append(queue, name)
		}
	}
	return fields(map[string]any{"waiting_queue": queue}), nil
}

// NeedsReminder reports whether the slot is owed a reminder at the given
// instant: active, not yet reminded, and starting within the window.
func (e *Engine) NeedsReminder(slot *models.Slot, now time.Time, window time.Duration) bool {
	if !slot.IsActive() || slot.ReminderSent {
		return false
	}
	return !slot.StartTime.Before(now) && !slot.StartTime.After(now.Add(window))
}

func requireIdentity(identity string) (string, error) {
	identity = models.NormalizeIdentity(identity)
	if identity == "" {
		return "", &ValidationError{Reason: "identity is empty"}
	}
	return identity, nil
}

// clockToday parses a "15:04" clock time on the current calendar day.
func (e *Engine) clockToday(clock string) (time.Time, error) {
	t, err := time.Parse("15:04", clock)
	if err != nil {
		return time.Time{}, &ValidationError{Reason: "start time must be HH:MM"}
	}
	now := e.now()
	return time.Date(now.Year(), now.Month(), now.Day(), t.Hour(), t.Minute(), 0, 0, now.Location()), nil
}
