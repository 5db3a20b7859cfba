package database

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"slotboard/internal/models"
)

func testDB(t *testing.T) *DB {
	t.Helper()
	logger := zerolog.Nop()
	db, err := NewDB(filepath.Join(t.TempDir(), "slotboard.db"), &logger)
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db
}

func storedSlot(creator string, start time.Time) *models.Slot {
	return &models.Slot{
		CreatorName:  creator,
		StartTime:    start,
		Player1:      creator,
		WaitingQueue: []string{},
		Status:       models.StatusActive,
		CreatedAt:    time.Now().UTC(),
		Version:      1,
	}
}

func TestInsertAndGetSlot(t *testing.T) {
	db := testDB(t)
	ctx := context.Background()

	start := time.Now().Add(time.Hour).UTC().Truncate(time.Second)
	slot := storedSlot("alice", start)
	slot.Player2 = "bob"
	slot.Player2Note = "mic broken"
	slot.WaitingQueue = []string{"erin", "frank"}

	require.NoError(t, db.InsertSlot(ctx, slot))
	require.NotEmpty(t, slot.ID)

	got, err := db.GetSlot(ctx, slot.ID)
	require.NoError(t, err)

	assert.Equal(t, slot.ID, got.ID)
	assert.Equal(t, "alice", got.CreatorName)
	assert.Equal(t, "bob", got.Player2)
	assert.Equal(t, "mic broken", got.Player2Note)
	assert.Equal(t, []string{"erin", "frank"}, got.WaitingQueue)
	assert.Equal(t, models.StatusActive, got.Status)
	assert.False(t, got.ReminderSent)
	assert.Equal(t, int64(1), got.Version)
	assert.True(t, got.StartTime.Equal(start), "start_time roundtrip: got %v want %v", got.StartTime, start)
}

func TestGetSlotNotFound(t *testing.T) {
	db := testDB(t)

	_, err := db.GetSlot(context.Background(), "missing")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestEmptyQueueRoundTrip(t *testing.T) {
	db := testDB(t)
	ctx := context.Background()

	slot := storedSlot("alice", time.Now().Add(time.Hour))
	require.NoError(t, db.InsertSlot(ctx, slot))

	got, err := db.GetSlot(ctx, slot.ID)
	require.NoError(t, err)
	assert.NotNil(t, got.WaitingQueue)
	assert.Empty(t, got.WaitingQueue)
}

func TestListActiveSlotsFiltersPastAndCancelled(t *testing.T) {
	db := testDB(t)
	ctx := context.Background()
	now := time.Now()

	today := storedSlot("alice", now.Add(2*time.Hour))
	require.NoError(t, db.InsertSlot(ctx, today))

	yesterday := storedSlot("bob", now.Add(-30*time.Hour))
	require.NoError(t, db.InsertSlot(ctx, yesterday))

	cancelled := storedSlot("carol", now.Add(3*time.Hour))
	cancelled.Status = models.StatusCancelled
	require.NoError(t, db.InsertSlot(ctx, cancelled))

	slots, err := db.ListActiveSlots(ctx, now)
	require.NoError(t, err)

	require.Len(t, slots, 1)
	assert.Equal(t, today.ID, slots[0].ID)
}

func TestListActiveSlotsKeepsEarlierToday(t *testing.T) {
	db := testDB(t)
	ctx := context.Background()

	// A slot that started earlier today is still on the board; only slots
	// from previous days drop off.
	now := time.Date(2025, 6, 10, 20, 0, 0, 0, time.UTC)
	earlier := storedSlot("alice", time.Date(2025, 6, 10, 9, 0, 0, 0, time.UTC))
	require.NoError(t, db.InsertSlot(ctx, earlier))

	slots, err := db.ListActiveSlots(ctx, now)
	require.NoError(t, err)
	require.Len(t, slots, 1)
}

func TestActiveSlotByCreator(t *testing.T) {
	db := testDB(t)
	ctx := context.Background()

	slot := storedSlot("alice", time.Now().Add(time.Hour))
	require.NoError(t, db.InsertSlot(ctx, slot))

	got, err := db.ActiveSlotByCreator(ctx, "ALICE")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, slot.ID, got.ID)

	got, err = db.ActiveSlotByCreator(ctx, "bob")
	require.NoError(t, err)
	assert.Nil(t, got)

	// A cancelled slot does not count.
	require.NoError(t, db.UpdateSlotFields(ctx, slot.ID, 1, map[string]any{"status": models.StatusCancelled}))
	got, err = db.ActiveSlotByCreator(ctx, "alice")
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestUpdateSlotFields(t *testing.T) {
	db := testDB(t)
	ctx := context.Background()

	slot := storedSlot("alice", time.Now().Add(time.Hour))
	require.NoError(t, db.InsertSlot(ctx, slot))

	err := db.UpdateSlotFields(ctx, slot.ID, 1, map[string]any{
		"player2":       "bob",
		"waiting_queue": []string{"erin"},
	})
	require.NoError(t, err)

	got, err := db.GetSlot(ctx, slot.ID)
	require.NoError(t, err)
	assert.Equal(t, "bob", got.Player2)
	assert.Equal(t, []string{"erin"}, got.WaitingQueue)
	assert.Equal(t, int64(2), got.Version)
}

func TestUpdateSlotFieldsVersionGuard(t *testing.T) {
	db := testDB(t)
	ctx := context.Background()

	slot := storedSlot("alice", time.Now().Add(time.Hour))
	require.NoError(t, db.InsertSlot(ctx, slot))

	// Writer A wins.
	require.NoError(t, db.UpdateSlotFields(ctx, slot.ID, 1, map[string]any{"player2": "bob"}))

	// Writer B read version 1 and must lose without clobbering.
	err := db.UpdateSlotFields(ctx, slot.ID, 1, map[string]any{"player2": "carol"})
	assert.ErrorIs(t, err, ErrVersionConflict)

	got, err := db.GetSlot(ctx, slot.ID)
	require.NoError(t, err)
	assert.Equal(t, "bob", got.Player2)
	assert.Equal(t, int64(2), got.Version)
}

func TestUpdateSlotFieldsUnknownSlot(t *testing.T) {
	db := testDB(t)

	err := db.UpdateSlotFields(context.Background(), "missing", 1, map[string]any{"player2": "bob"})
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestUpdateSlotFieldsRejectsUnknownColumn(t *testing.T) {
	db := testDB(t)
	ctx := context.Background()

	slot := storedSlot("alice", time.Now().Add(time.Hour))
	require.NoError(t, db.InsertSlot(ctx, slot))

	err := db.UpdateSlotFields(ctx, slot.ID, 1, map[string]any{"creator_name": "mallory"})
	assert.Error(t, err)
}

func TestDueSlots(t *testing.T) {
	db := testDB(t)
	ctx := context.Background()
	now := time.Now().UTC()
	window := 15 * time.Minute

	due := storedSlot("alice", now.Add(10*time.Minute))
	require.NoError(t, db.InsertSlot(ctx, due))

	tooFar := storedSlot("bob", now.Add(time.Hour))
	require.NoError(t, db.InsertSlot(ctx, tooFar))

	started := storedSlot("carol", now.Add(-time.Minute))
	require.NoError(t, db.InsertSlot(ctx, started))

	reminded := storedSlot("dave", now.Add(5*time.Minute))
	reminded.ReminderSent = true
	require.NoError(t, db.InsertSlot(ctx, reminded))

	slots, err := db.DueSlots(ctx, now, window)
	require.NoError(t, err)

	require.Len(t, slots, 1)
	assert.Equal(t, due.ID, slots[0].ID)
}

func TestMarkReminderSentAtMostOnce(t *testing.T) {
	db := testDB(t)
	ctx := context.Background()

	slot := storedSlot("alice", time.Now().Add(10*time.Minute))
	require.NoError(t, db.InsertSlot(ctx, slot))

	changed, err := db.MarkReminderSent(ctx, slot.ID)
	require.NoError(t, err)
	assert.True(t, changed)

	// Second flip reports no transition.
	changed, err = db.MarkReminderSent(ctx, slot.ID)
	require.NoError(t, err)
	assert.False(t, changed)

	got, err := db.GetSlot(ctx, slot.ID)
	require.NoError(t, err)
	assert.True(t, got.ReminderSent)
}

func TestCredentials(t *testing.T) {
	db := testDB(t)
	ctx := context.Background()

	cred := &models.Credential{
		Username:     "alice",
		PasswordHash: "$2a$10$fakehash",
		CreatedAt:    time.Now().UTC(),
	}
	require.NoError(t, db.CreateCredential(ctx, cred))

	got, err := db.GetCredential(ctx, "Alice")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "alice", got.Username)
	assert.Equal(t, cred.PasswordHash, got.PasswordHash)

	got, err = db.GetCredential(ctx, "nobody")
	require.NoError(t, err)
	assert.Nil(t, got)

	// Username is the primary key.
	assert.Error(t, db.CreateCredential(ctx, cred))
}
