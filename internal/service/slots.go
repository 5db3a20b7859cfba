// Package service wires the slot engine to the store: every mutation is a
// fetch, a pure engine decision, and a version-guarded partial update.
package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"slotboard/internal/access"
	"slotboard/internal/database"
	"slotboard/internal/engine"
	"slotboard/internal/events"
	"slotboard/internal/metrics"
	"slotboard/internal/models"
)

// Store is the slot persistence contract the service needs.
type Store interface {
	GetSlot(ctx context.Context, id string) (*models.Slot, error)
	ListActiveSlots(ctx context.Context, now time.Time) ([]models.Slot, error)
	ActiveSlotByCreator(ctx context.Context, creator string) (*models.Slot, error)
	InsertSlot(ctx context.Context, slot *models.Slot) error
	UpdateSlotFields(ctx context.Context, id string, version int64, fields map[string]any) error
}

// ChangePublisher announces slot changes. May be nil.
type ChangePublisher interface {
	SlotChanged(ctx context.Context, op, slotID string) error
}

// SlotService validates and applies slot operations for acting identities.
type SlotService struct {
	store   Store
	engine  *engine.Engine
	policy  *access.Policy
	feed    ChangePublisher
	logger  zerolog.Logger
	timeout time.Duration
}

// New creates a slot service. feed may be nil when no change feed is wired.
func New(store Store, eng *engine.Engine, policy *access.Policy, feed ChangePublisher, logger zerolog.Logger) *SlotService {
	return &SlotService{
		store:   store,
		engine:  eng,
		policy:  policy,
		feed:    feed,
		logger:  logger.With().Str("component", "slots").Logger(),
		timeout: 5 * time.Second,
	}
}

// ListActive returns the visible board: active slots starting today or later.
func (s *SlotService) ListActive(ctx context.Context) ([]models.Slot, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()
	return s.store.ListActiveSlots(ctx, time.Now())
}

// Create makes a new slot for identity starting at the given "15:04" clock
// time today. A creator with an active slot is rejected.
func (s *SlotService) Create(ctx context.Context, identity, clock string) (*models.Slot, error) {
	if s.policy.Blocked(identity) {
		return nil, engine.ErrAccessDenied
	}

	slot, err := s.engine.NewSlot(identity, clock)
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	existing, err := s.store.ActiveSlotByCreator(ctx, slot.CreatorName)
	if err != nil {
		return nil, fmt.Errorf("check active slot: %w", err)
	}
	if existing != nil {
		return nil, engine.ErrActiveSlotExists
	}

	if err := s.store.InsertSlot(ctx, slot); err != nil {
		return nil, fmt.Errorf("insert slot: %w", err)
	}

	metrics.IncSlotCreated()
	s.publish(ctx, events.OpInsert, slot.ID)
	s.logger.Info().
		Str("slot_id", slot.ID).
		Str("creator", slot.CreatorName).
		Time("start_time", slot.StartTime).
		Msg("slot created")
	return slot, nil
}

// Join seats identity at the first open seat of the slot.
func (s *SlotService) Join(ctx context.Context, slotID, identity string) error {
	return s.apply(ctx, slotID, identity, "join", func(slot *models.Slot) (engine.Update, error) {
		return s.engine.Join(slot, identity)
	})
}

// Leave vacates identity's seat and clears its note.
func (s *SlotService) Leave(ctx context.Context, slotID, identity string) error {
	return s.apply(ctx, slotID, identity, "leave", func(slot *models.Slot) (engine.Update, error) {
		return s.engine.Leave(slot, identity)
	})
}

// RemoveSelfAsCreator vacates player1 while keeping the slot active.
func (s *SlotService) RemoveSelfAsCreator(ctx context.Context, slotID, identity string) error {
	return s.apply(ctx, slotID, identity, "remove_self", func(slot *models.Slot) (engine.Update, error) {
		return s.engine.RemoveSelfAsCreator(slot, identity)
	})
}

// Cancel moves the slot to cancelled.
func (s *SlotService) Cancel(ctx context.Context, slotID, identity string) error {
	err := s.apply(ctx, slotID, identity, "cancel", func(slot *models.Slot) (engine.Update, error) {
		return s.engine.Cancel(slot, identity)
	})
	if err == nil {
		metrics.IncSlotCancelled()
	}
	return err
}

// EditStartTime replaces the slot's start time with a clock time today.
func (s *SlotService) EditStartTime(ctx context.Context, slotID, identity, clock string) error {
	return s.apply(ctx, slotID, identity, "edit_time", func(slot *models.Slot) (engine.Update, error) {
		return s.engine.EditStartTime(slot, identity, clock)
	})
}

// SetSeatNote writes identity's note on the given zero-based seat.
func (s *SlotService) SetSeatNote(ctx context.Context, slotID, identity string, seat int, text string) error {
	return s.apply(ctx, slotID, identity, "set_note", func(slot *models.Slot) (engine.Update, error) {
		return s.engine.SetSeatNote(slot, identity, seat, text)
	})
}

// JoinQueue appends identity to the slot's waiting queue.
func (s *SlotService) JoinQueue(ctx context.Context, slotID, identity string) error {
	return s.apply(ctx, slotID, identity, "join_queue", func(slot *models.Slot) (engine.Update, error) {
		return s.engine.JoinQueue(slot, identity)
	})
}

// LeaveQueue removes identity from the slot's waiting queue.
func (s *SlotService) LeaveQueue(ctx context.Context, slotID, identity string) error {
	return s.apply(ctx, slotID, identity, "leave_queue", func(slot *models.Slot) (engine.Update, error) {
		return s.engine.LeaveQueue(slot, identity)
	})
}

// apply runs one fetch→decide→guarded-write round, retrying once after a
// version conflict so a racing loser gets the truthful state error instead of
// silently overwriting the winner. A second conflict surfaces to the caller.
func (s *SlotService) apply(ctx context.Context, slotID, identity, op string, decide func(*models.Slot) (engine.Update, error)) error {
	if s.policy.Blocked(identity) {
		metrics.IncSlotMutation(op, "denied")
		return engine.ErrAccessDenied
	}

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	for attempt := 0; ; attempt++ {
		slot, err := s.store.GetSlot(ctx, slotID)
		if err != nil {
			return err
		}

		update, err := decide(slot)
		if err != nil {
			metrics.IncSlotMutation(op, "rejected")
			return err
		}
		if update.IsNoop() {
			metrics.IncSlotMutation(op, "noop")
			return nil
		}

		err = s.store.UpdateSlotFields(ctx, slot.ID, slot.Version, update.Fields)
		if err == nil {
			metrics.IncSlotMutation(op, "ok")
			s.publish(ctx, events.OpUpdate, slot.ID)
			s.logger.Info().
				Str("slot_id", slot.ID).
				Str("identity", models.NormalizeIdentity(identity)).
				Str("op", op).
				Msg("slot updated")
			return nil
		}
		if errors.Is(err, database.ErrVersionConflict) && attempt == 0 {
			// Someone else won the race; re-read and decide again.
			continue
		}
		metrics.IncSlotMutation(op, "error")
		return err
	}
}

func (s *SlotService) publish(ctx context.Context, op, slotID string) {
	if s.feed == nil {
		return
	}
	if err := s.feed.SlotChanged(ctx, op, slotID); err != nil {
		s.logger.Error().Err(err).Str("slot_id", slotID).Msg("publish slot change")
	}
}
