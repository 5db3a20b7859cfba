package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	once sync.Once

	slotCreated = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "slotboard",
			Name:      "slot_created_total",
			Help:      "Count of slots created.",
		},
	)

	slotCancelled = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "slotboard",
			Name:      "slot_cancelled_total",
			Help:      "Count of slots cancelled by their creators.",
		},
	)

	slotMutations = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "slotboard",
			Name:      "slot_mutations_total",
			Help:      "Count of slot mutations by operation and result.",
		},
		[]string{"op", "result"},
	)

	remindersSent = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "slotboard",
			Name:      "reminders_sent_total",
			Help:      "Count of reminders delivered to the group.",
		},
	)

	reminderErrors = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "slotboard",
			Name:      "reminder_errors_total",
			Help:      "Count of failed reminder deliveries.",
		},
	)

	httpRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "slotboard",
			Name:      "http_requests_total",
			Help:      "Count of API requests by handler.",
		},
		[]string{"handler"},
	)
)

// Register registers metrics (idempotent).
func Register() {
	once.Do(func() {
		prometheus.MustRegister(slotCreated, slotCancelled, slotMutations, remindersSent, reminderErrors, httpRequests)
	})
}

func IncSlotCreated() {
	slotCreated.Inc()
}

func IncSlotCancelled() {
	slotCancelled.Inc()
}

func IncSlotMutation(op, result string) {
	slotMutations.WithLabelValues(op, result).Inc()
}

func IncReminderSent() {
	remindersSent.Inc()
}

func IncReminderError() {
	reminderErrors.Inc()
}

func IncHTTP(handler string) {
	httpRequests.WithLabelValues(handler).Inc()
}
