package main

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/hibiken/asynq"

	"github.com/pressdesk/pressdesk/internal/app"
	"github.com/pressdesk/pressdesk/internal/notifications"
	"github.com/pressdesk/pressdesk/internal/platform/cache"
	"github.com/pressdesk/pressdesk/internal/platform/db"
	"github.com/pressdesk/pressdesk/internal/settings"
)

func main() {
	if app.InTestMode() {
		slog.Default().Info("test mode detected, skipping worker startup")
		return
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := app.LoadConfig()
	if err != nil {
		slog.Default().Error("load config", slog.Any("error", err))
		os.Exit(1)
	}

	logger := app.NewLogger(cfg)

	pool, err := db.New(ctx, cfg.PGDSN)
	if err != nil {
		logger.Error("connect postgres", slog.Any("error", err))
		os.Exit(1)
	}
	defer pool.Close()

	redisClient, err := cache.New(ctx, cfg.RedisAddr)
	if err != nil {
		logger.Warn("redis unavailable, settings cache disabled", slog.Any("error", err))
		redisClient = nil
	}
	defer func() {
		if redisClient == nil {
			return
		}
		if err := redisClient.Close(); err != nil {
			logger.Warn("redis close", slog.Any("error", err))
		}
	}()

	settingsStore := settings.NewStore(pool, redisClient, cfg.SettingsCacheTTL, logger)
	lineClient := notifications.NewLineClient(cfg.LineAPIURL, cfg.LineChannelToken)
	logs := notifications.NewLogRepository(pool)
	notifier := notifications.NewNotifier(pool, lineClient, logs, settingsStore, logger, cfg.BaseURL)

	worker, err := notifications.NewWorker(asynq.RedisClientOpt{Addr: cfg.RedisAddr}, notifier, logger)
	if err != nil {
		logger.Error("init worker", slog.Any("error", err))
		os.Exit(1)
	}

	logger.Info("starting notification worker", slog.String("redis", cfg.RedisAddr))
	if err := worker.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("worker stopped", slog.Any("error", err))
		os.Exit(1)
	}
}
