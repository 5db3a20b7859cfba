package reminders

import (
	"fmt"
	"strings"

	"slotboard/internal/models"
)

// FormatReminder renders the group reminder for a slot: start time, squad in
// seat order, and any seat notes.
func FormatReminder(slot *models.Slot) string {
	var b strings.Builder

	fmt.Fprintf(&b, "⏰ *SLOT REMINDER!* 🎮\n\n")
	fmt.Fprintf(&b, "Your slot starts at *%s* (in 15 min)\n\n", slot.StartTime.Format("03:04 PM"))
	b.WriteString("📝 *Squad:*")

	n := 0
	for _, player := range slot.Players() {
		n++
		fmt.Fprintf(&b, "\n%d. %s", n, player)
	}
	if n == 0 {
		b.WriteString("\n—")
	}

	seats := slot.Seats()
	notes := slot.Notes()
	first := true
	for i := 0; i < models.SeatCount; i++ {
		if seats[i] == "" || notes[i] == "" {
			continue
		}
		if first {
			b.WriteString("\n")
			first = false
		}
		fmt.Fprintf(&b, "\n💬 %s: %s", seats[i], notes[i])
	}

	b.WriteString("\n\n*GET READY!* 🔥")
	return b.String()
}
