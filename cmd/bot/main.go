package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"slotboard/internal/access"
	"slotboard/internal/api"
	"slotboard/internal/auth"
	"slotboard/internal/bot"
	"slotboard/internal/config"
	"slotboard/internal/database"
	"slotboard/internal/engine"
	"slotboard/internal/events"
	"slotboard/internal/metrics"
	"slotboard/internal/reminders"
	"slotboard/internal/service"
)

func main() {
	// Initialize logger
	output := zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.RFC3339}
	logger := zerolog.New(output).With().Timestamp().Logger()

	_ = godotenv.Load()

	cfg, err := config.Load(os.Getenv("SLOTBOARD_CONFIG_PATH"))
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to load config")
	}

	if cfg.Telegram.BotToken == "" || cfg.Telegram.BotToken == "YOUR_BOT_TOKEN_HERE" {
		logger.Fatal().Msg("set telegram.bot_token in config")
	}
	if cfg.Telegram.GroupChatID == 0 {
		logger.Fatal().Msg("set telegram.group_chat_id in config")
	}

	db, err := database.NewDB(cfg.Database.Path, &logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("open db error")
	}
	defer db.Close()

	var rdb *redis.Client
	if cfg.Redis.Address != "" {
		rdb = redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Address,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
	}

	notifier, err := bot.NewGroupNotifier(cfg.Telegram.BotToken, cfg.Telegram.GroupChatID, cfg.Telegram.Debug, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("create notifier error")
	}

	var feed *events.Publisher
	if rdb != nil {
		feed = events.NewPublisher(rdb, logger)
	}

	policy := access.NewPolicy(cfg.Access.BlockedNames)
	slots := service.New(db, engine.New(), policy, feed, logger)
	authSvc := auth.NewService(db, 0, logger)

	scheduler := reminders.NewScheduler(reminders.Config{
		TickInterval:      cfg.ReminderTick(),
		Window:            cfg.ReminderWindow(),
		MessagesPerSecond: float64(cfg.Reminders.MessagesPerSecond),
		MessageBurst:      cfg.Reminders.MessageBurst,
	}, db, notifier, logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	backups := database.NewBackupService(db, database.BackupConfig{
		Enabled:       cfg.Backup.Enabled,
		Directory:     cfg.Backup.Directory,
		IntervalHours: cfg.Backup.IntervalHours,
		RetentionDays: cfg.Backup.RetentionDays,
	}, logger)
	go backups.Start(ctx)

	if rdb != nil {
		go announceCreatedSlots(ctx, rdb, db, notifier, logger)
	}

	if cfg.API.Port == 0 {
		cfg.API.Port = 8080
	}
	apiServer := api.NewHTTPServer(slots, authSvc, logger)
	go func() {
		if err := apiServer.Run(ctx, cfg.API.Port); err != nil {
			logger.Error().Err(err).Msg("api server error")
		}
	}()

	if cfg.Monitoring.HealthCheckPort == 0 {
		cfg.Monitoring.HealthCheckPort = 8090
	}
	go startHealthServer(ctx, cfg.Monitoring.HealthCheckPort, db, rdb, &logger)

	if cfg.Monitoring.PrometheusEnabled {
		if cfg.Monitoring.PrometheusPort == 0 {
			cfg.Monitoring.PrometheusPort = 9090
		}
		metrics.Register()
		go startMetricsServer(ctx, cfg.Monitoring.PrometheusPort, &logger)
	}

	logger.Info().Msg("slot board bot started")
	scheduler.Start(ctx)
}

// announceCreatedSlots watches the change feed and posts a best-effort group
// announcement for every new slot. Failures are logged and dropped;
// announcements are not required for correctness.
func announceCreatedSlots(ctx context.Context, rdb *redis.Client, db *database.DB, notifier *bot.GroupNotifier, logger zerolog.Logger) {
	sub := events.NewSubscriber(rdb, logger)
	err := sub.Run(ctx, func(change events.Change) {
		if change.Op != events.OpInsert {
			return
		}
		opCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
		defer cancel()

		slot, err := db.GetSlot(opCtx, change.SlotID)
		if err != nil {
			logger.Error().Err(err).Str("slot_id", change.SlotID).Msg("announce: load slot")
			return
		}
		if err := notifier.Deliver(opCtx, bot.FormatCreated(slot)); err != nil {
			logger.Error().Err(err).Str("slot_id", change.SlotID).Msg("announce: deliver")
		}
	})
	if err != nil && ctx.Err() == nil {
		logger.Error().Err(err).Msg("change feed subscriber stopped")
	}
}

func startHealthServer(ctx context.Context, port int, db *database.DB, rdb *redis.Client, logger *zerolog.Logger) {
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	mux.HandleFunc("/readyz", func(w http.ResponseWriter, _ *http.Request) {
		ctxPing, cancel := context.WithTimeout(ctx, time.Second)
		defer cancel()
		if err := db.PingContext(ctxPing); err != nil {
			http.Error(w, "db not ready", http.StatusServiceUnavailable)
			return
		}
		if rdb != nil {
			if err := rdb.Ping(ctxPing).Err(); err != nil {
				http.Error(w, "redis not ready", http.StatusServiceUnavailable)
				return
			}
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ready"))
	})

	srv := &http.Server{Addr: fmt.Sprintf(":%d", port), Handler: mux}
	go func() {
		<-ctx.Done()
		ctxShutdown, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		defer cancel()
		_ = srv.Shutdown(ctxShutdown)
	}()
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Error().Err(err).Msg("health server error")
	}
}

func startMetricsServer(ctx context.Context, port int, logger *zerolog.Logger) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())

	srv := &http.Server{Addr: fmt.Sprintf(":%d", port), Handler: mux}
	go func() {
		<-ctx.Done()
		ctxShutdown, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		defer cancel()
		_ = srv.Shutdown(ctxShutdown)
	}()
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Error().Err(err).Msg("metrics server error")
	}
}
