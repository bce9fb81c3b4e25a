package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/hibiken/asynq"

	"github.com/pressdesk/pressdesk/internal/app"
	"github.com/pressdesk/pressdesk/internal/customers"
	"github.com/pressdesk/pressdesk/internal/documents"
	"github.com/pressdesk/pressdesk/internal/jobs"
	"github.com/pressdesk/pressdesk/internal/notifications"
	"github.com/pressdesk/pressdesk/internal/payments"
	"github.com/pressdesk/pressdesk/internal/platform/cache"
	"github.com/pressdesk/pressdesk/internal/platform/db"
	"github.com/pressdesk/pressdesk/internal/production"
	"github.com/pressdesk/pressdesk/internal/public"
	"github.com/pressdesk/pressdesk/internal/settings"
)

func main() {
	if app.InTestMode() {
		slog.Default().Info("test mode detected, skipping runtime startup")
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

	asynqClient := asynq.NewClient(asynq.RedisClientOpt{Addr: cfg.RedisAddr})
	defer func() {
		if err := asynqClient.Close(); err != nil {
			logger.Warn("asynq close", slog.Any("error", err))
		}
	}()
	dispatcher := notifications.NewDispatcher(asynqClient, settingsStore, logger)

	jobsRepo := jobs.NewRepository(pool)
	jobsService := jobs.NewService(jobsRepo, dispatcher, logger)
	jobsHandler := jobs.NewHandler(logger, jobsService)

	paymentsRepo := payments.NewRepository(pool)
	paymentsService := payments.NewService(paymentsRepo, dispatcher, logger)
	paymentsHandler := payments.NewHandler(logger, paymentsService)

	documentsRepo := documents.NewRepository(pool)
	documentsService := documents.NewService(documentsRepo, settingsStore, logger)
	documentsHandler := documents.NewHandler(logger, documentsService)

	customersRepo := customers.NewRepository(pool)
	customersService := customers.NewService(customersRepo)
	customersHandler := customers.NewHandler(logger, customersService)

	productionRepo := production.NewRepository(pool)
	productionHandler := production.NewHandler(logger, productionRepo)

	settingsHandler := settings.NewHandler(logger, settingsStore)
	publicHandler := public.NewHandler(logger, jobsService)

	router := app.NewRouter(app.RouterParams{
		Logger: logger,
		Config: cfg,
		StaffHandlers: []app.RouteMounter{
			jobsHandler,
			paymentsHandler,
			documentsHandler,
			customersHandler,
			productionHandler,
			settingsHandler,
		},
		PublicHandlers: []app.RouteMounter{
			publicHandler,
		},
	})

	server := &http.Server{
		Addr:         cfg.AppAddr,
		Handler:      router,
		ReadTimeout:  cfg.AppReadTimeout,
		WriteTimeout: cfg.AppWriteTimeout,
	}

	go func() {
		logger.Info("starting http server", slog.String("addr", cfg.AppAddr))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("http server", slog.Any("error", err))
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown", slog.Any("error", err))
	}
}
