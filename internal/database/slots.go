package database

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"slotboard/internal/models"
)

const slotColumns = `id, creator_name, start_time,
	player1, player2, player3, player4,
	player1_comment, player2_comment, player3_comment, player4_comment,
	waiting_queue, status, reminder_sent, created_at, version`

// updatableSlotFields guards UpdateSlotFields against arbitrary column names.
var updatableSlotFields = map[string]struct{}{
	"player1": {}, "player2": {}, "player3": {}, "player4": {},
	"player1_comment": {}, "player2_comment": {}, "player3_comment": {}, "player4_comment": {},
	"waiting_queue": {}, "status": {}, "start_time": {},
}

// InsertSlot stores a new slot, assigning its id.
func (db *DB) InsertSlot(ctx context.Context, slot *models.Slot) error {
	if slot.ID == "" {
		slot.ID = uuid.NewString()
	}
	queue, err := json.Marshal(slot.WaitingQueue)
	if err != nil {
		return fmt.Errorf("marshal waiting queue: %w", err)
	}

	_, err = db.ExecContext(ctx, `
		INSERT INTO slots (
			id, creator_name, start_time,
			player1, player2, player3, player4,
			player1_comment, player2_comment, player3_comment, player4_comment,
			waiting_queue, status, reminder_sent, created_at, version
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		slot.ID, slot.CreatorName, slot.StartTime,
		slot.Player1, slot.Player2, slot.Player3, slot.Player4,
		slot.Player1Note, slot.Player2Note, slot.Player3Note, slot.Player4Note,
		string(queue), slot.Status, slot.ReminderSent, slot.CreatedAt, slot.Version,
	)
	return err
}

// GetSlot returns a slot by id.
func (db *DB) GetSlot(ctx context.Context, id string) (*models.Slot, error) {
	row := db.QueryRowContext(ctx,
		`SELECT `+slotColumns+` FROM slots WHERE id = ?`, id)
	slot, err := scanSlot(row)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	return slot, err
}

// ListActiveSlots returns the visible board: active slots starting today or
// later, ordered by start time. Past-dated slots are filtered out here rather
// than transitioned to a separate status.
func (db *DB) ListActiveSlots(ctx context.Context, now time.Time) ([]models.Slot, error) {
	startOfDay := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())

	rows, err := db.QueryContext(ctx, `
		SELECT `+slotColumns+` FROM slots
		WHERE status = ? AND start_time >= ?
		ORDER BY start_time`,
		models.StatusActive, startOfDay,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectSlots(rows)
}

// ActiveSlotByCreator returns the creator's active slot, or nil when none.
func (db *DB) ActiveSlotByCreator(ctx context.Context, creator string) (*models.Slot, error) {
	row := db.QueryRowContext(ctx, `
		SELECT `+slotColumns+` FROM slots
		WHERE creator_name = ? AND status = ?
		LIMIT 1`,
		models.NormalizeIdentity(creator), models.StatusActive,
	)
	slot, err := scanSlot(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	return slot, err
}

// UpdateSlotFields applies a partial update guarded by the version the caller
// read. When the row has moved on, no fields are written and
// ErrVersionConflict is returned.
func (db *DB) UpdateSlotFields(ctx context.Context, id string, version int64, fields map[string]any) error {
	if len(fields) == 0 {
		return nil
	}

	names := make([]string, 0, len(fields))
	for name := range fields {
		if _, ok := updatableSlotFields[name]; !ok {
			return fmt.Errorf("field %q is not updatable", name)
		}
		names = append(names, name)
	}
	sort.Strings(names)

	setClauses := make([]string, 0, len(names)+1)
	args := make([]any, 0, len(names)+2)
	for _, name := range names {
		value := fields[name]
		if queue, ok := value.([]string); ok {
			encoded, err := json.Marshal(queue)
			if err != nil {
				return fmt.Errorf("marshal waiting queue: %w", err)
			}
			value = string(encoded)
		}
		setClauses = append(setClauses, name+" = ?")
		args = append(args, value)
	}
	setClauses = append(setClauses, "version = version + 1")
	args = append(args, id, version)

	res, err := db.ExecContext(ctx,
		"UPDATE slots SET "+strings.Join(setClauses, ", ")+" WHERE id = ? AND version = ?",
		args...,
	)
	if err != nil {
		return err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		var exists int
		if err := db.QueryRowContext(ctx,
			"SELECT COUNT(*) FROM slots WHERE id = ?", id,
		).Scan(&exists); err != nil {
			return err
		}
		if exists == 0 {
			return ErrNotFound
		}
		return ErrVersionConflict
	}
	return nil
}

// DueSlots returns active, not-yet-reminded slots starting within the window
// from now, ordered by start time.
func (db *DB) DueSlots(ctx context.Context, now time.Time, window time.Duration) ([]models.Slot, error) {
	rows, err := db.QueryContext(ctx, `
		SELECT `+slotColumns+` FROM slots
		WHERE status = ? AND reminder_sent = 0
		AND start_time >= ? AND start_time <= ?
		ORDER BY start_time`,
		models.StatusActive, now, now.Add(window),
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectSlots(rows)
}

// MarkReminderSent flips the reminder flag. The conditional write makes the
// false→true transition happen at most once; the returned bool reports
// whether this call was the one that flipped it.
func (db *DB) MarkReminderSent(ctx context.Context, id string) (bool, error) {
	res, err := db.ExecContext(ctx,
		"UPDATE slots SET reminder_sent = 1, version = version + 1 WHERE id = ? AND reminder_sent = 0",
		id,
	)
	if err != nil {
		return false, err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return affected > 0, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanSlot(row rowScanner) (*models.Slot, error) {
	var s models.Slot
	var queue string
	err := row.Scan(
		&s.ID, &s.CreatorName, &s.StartTime,
		&s.Player1, &s.Player2, &s.Player3, &s.Player4,
		&s.Player1Note, &s.Player2Note, &s.Player3Note, &s.Player4Note,
		&queue, &s.Status, &s.ReminderSent, &s.CreatedAt, &s.Version,
	)
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal([]byte(queue), &s.WaitingQueue); err != nil {
		return nil, fmt.Errorf("unmarshal waiting queue for slot %s: %w", s.ID, err)
	}
	if s.WaitingQueue == nil {
		s.WaitingQueue = []string{}
	}
	return &s, nil
}

func collectSlots(rows *sql.Rows) ([]models.Slot, error) {
	var slots []models.Slot
	for rows.Next() {
		s, err := scanSlot(rows)
		if err != nil {
			return nil, err
		}
		slots = append(slots, *s)
	}
	return slots, rows.Err()
}
