// Package reminders runs the periodic pass that turns due slots into group
// reminders, exactly once per slot in the happy path.
package reminders

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/time/rate"

	"slotboard/internal/metrics"
	"slotboard/internal/models"
)

// Config holds scheduler settings.
type Config struct {
	// TickInterval is how often to look for due slots.
	TickInterval time.Duration
	// Window is the lookahead period before a slot's start time.
	Window time.Duration
	// TickTimeout bounds one whole tick.
	TickTimeout time.Duration
	// MessagesPerSecond and MessageBurst configure the delivery rate limiter.
	MessagesPerSecond float64
	MessageBurst      int
}

// DefaultConfig matches the reference deployment: a 5-minute tick over a
// 15-minute reminder window.
func DefaultConfig() Config {
	return Config{
		TickInterval:      5 * time.Minute,
		Window:            15 * time.Minute,
		TickTimeout:       time.Minute,
		MessagesPerSecond: 20,
		MessageBurst:      30,
	}
}

// Scheduler periodically finds due slots and delivers reminders. Ticks are
// single-flight: a tick that is still running makes the next one a no-op.
type Scheduler struct {
	config  Config
	store   SlotStore
	channel Channel
	limiter *rate.Limiter
	logger  zerolog.Logger
	now     func() time.Time

	mu      sync.Mutex
	ticking bool
}

// NewScheduler creates a reminder scheduler.
func NewScheduler(config Config, store SlotStore, channel Channel, logger zerolog.Logger) *Scheduler {
	defaults := DefaultConfig()
	if config.TickInterval <= 0 {
		config.TickInterval = defaults.TickInterval
	}
	if config.Window <= 0 {
		config.Window = defaults.Window
	}
	if config.TickTimeout <= 0 {
		config.TickTimeout = defaults.TickTimeout
	}
	if config.MessagesPerSecond <= 0 {
		config.MessagesPerSecond = defaults.MessagesPerSecond
	}
	if config.MessageBurst <= 0 {
		config.MessageBurst = defaults.MessageBurst
	}

	return &Scheduler{
		config:  config,
		store:   store,
		channel: channel,
		limiter: rate.NewLimiter(rate.Limit(config.MessagesPerSecond), config.MessageBurst),
		logger:  logger.With().Str("component", "reminders").Logger(),
		now:     time.Now,
	}
}

// Start runs the tick loop until ctx is cancelled.
func (s *Scheduler) Start(ctx context.Context) {
	s.logger.Info().
		Dur("tick_interval", s.config.TickInterval).
		Dur("window", s.config.Window).
		Msg("reminder scheduler started")

	ticker := time.NewTicker(s.config.TickInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.logger.Info().Msg("reminder scheduler stopped")
			return
		case <-ticker.C:
			s.RunNow(ctx)
		}
	}
}

// RunNow executes one tick immediately. A tick still in flight makes this a
// no-op, so ticks never overlap.
func (s *Scheduler) RunNow(ctx context.Context) {
	s.mu.Lock()
	if s.ticking {
		s.mu.Unlock()
		s.logger.Debug().Msg("previous tick still running, skipping")
		return
	}
	s.ticking = true
	s.mu.Unlock()

	defer func() {
		s.mu.Lock()
		s.ticking = false
		s.mu.Unlock()
	}()

	s.tick(ctx)
}

func (s *Scheduler) tick(ctx context.Context) {
	ctx, cancel := context.WithTimeout(ctx, s.config.TickTimeout)
	defer cancel()

	start := s.now()
	due, err := s.store.DueSlots(ctx, start, s.config.Window)
	if err != nil {
		s.logger.Error().Err(err).Msg("fetch due slots")
		return
	}
	if len(due) == 0 {
		return
	}

	var sent, failed int
	for i := range due {
		select {
		case <-ctx.Done():
			s.logger.Info().
				Int("sent", sent).
				Int("remaining", len(due)-sent-failed).
				Msg("tick interrupted")
			return
		default:
		}

		if err := s.processSlot(ctx, &due[i]); err != nil {
			failed++
		} else {
			sent++
		}
	}

	s.logger.Info().
		Int("due", len(due)).
		Int("sent", sent).
		Int("failed", failed).
		Dur("duration", s.now().Sub(start)).
		Msg("reminder tick finished")
}

// processSlot delivers one reminder, then persists the flag. Delivery failure
// leaves the flag unset so the next tick retries; flag failure after a
// successful delivery is logged and accepted (a duplicate beats a missed
// reminder).
func (s *Scheduler) processSlot(ctx context.Context, slot *models.Slot) error {
	if err := s.limiter.Wait(ctx); err != nil {
		return err
	}

	if err := s.channel.Deliver(ctx, FormatReminder(slot)); err != nil {
		metrics.IncReminderError()
		s.logger.Error().Err(err).
			Str("slot_id", slot.ID).
			Time("start_time", slot.StartTime).
			Msg("reminder delivery failed, will retry next tick")
		return err
	}

	metrics.IncReminderSent()

	changed, err := s.store.MarkReminderSent(ctx, slot.ID)
	if err != nil {
		s.logger.Error().Err(err).
			Str("slot_id", slot.ID).
			Msg("reminder delivered but flag not persisted, duplicate possible")
		return nil
	}
	if !changed {
		s.logger.Debug().Str("slot_id", slot.ID).Msg("reminder flag already set")
		return nil
	}

	s.logger.Info().
		Str("slot_id", slot.ID).
		Time("start_time", slot.StartTime).
		Msg("reminder sent")
	return nil
}
