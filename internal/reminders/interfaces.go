package reminders

import (
	"context"
	"time"

	"slotboard/internal/models"
)

// SlotStore provides the due-slot query and the reminder flag.
type SlotStore interface {
	// DueSlots returns active, not-yet-reminded slots starting within the
	// window from now.
	DueSlots(ctx context.Context, now time.Time, window time.Duration) ([]models.Slot, error)

	// MarkReminderSent flips the reminder flag; the bool reports whether this
	// call performed the false→true transition.
	MarkReminderSent(ctx context.Context, slotID string) (bool, error)
}

// Channel delivers a rendered message to the group audience.
type Channel interface {
	Deliver(ctx context.Context, text string) error
}
