package notifications

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/hibiken/asynq"
)

// Cron specs for the scheduled pushes, Asia/Bangkok wall clock.
const (
	CronDailySummary      = "0 8 * * *"
	CronPaymentReminders  = "0 9 * * *"
	CronMaterialAlerts    = "5 9 * * *"
	CronApprovalReminders = "0 10 * * *"
)

// Worker wraps the Asynq server and scheduler for notification processing.
type Worker struct {
	server    *asynq.Server
	mux       *asynq.ServeMux
	scheduler *asynq.Scheduler
	logger    *slog.Logger
}

// NewWorker wires the notifier's handlers and cron entries into an Asynq
// server and scheduler.
func NewWorker(redisOpts asynq.RedisClientOpt, notifier *Notifier, logger *slog.Logger) (*Worker, error) {
	srv := asynq.NewServer(redisOpts, asynq.Config{
		Concurrency: 5,
		Queues: map[string]int{
			QueueDefault: 1,
		},
	})

	mux := asynq.NewServeMux()
	mux.HandleFunc(TaskTypeJobEvent, notifier.HandleJobEvent)
	mux.HandleFunc(TaskTypeDailySummary, notifier.HandleDailySummary)
	mux.HandleFunc(TaskTypePaymentReminders, notifier.HandlePaymentReminders)
	mux.HandleFunc(TaskTypeMaterialAlerts, notifier.HandleMaterialAlerts)
	mux.HandleFunc(TaskTypeApprovalReminders, notifier.HandleApprovalReminders)

	location, err := time.LoadLocation("Asia/Bangkok")
	if err != nil {
		return nil, err
	}
	scheduler := asynq.NewScheduler(redisOpts, &asynq.SchedulerOpts{Location: location})
	crons := []struct {
		spec     string
		taskType string
	}{
		{CronDailySummary, TaskTypeDailySummary},
		{CronPaymentReminders, TaskTypePaymentReminders},
		{CronMaterialAlerts, TaskTypeMaterialAlerts},
		{CronApprovalReminders, TaskTypeApprovalReminders},
	}
	for _, entry := range crons {
		if _, err := scheduler.Register(entry.spec, asynq.NewTask(entry.taskType, nil), asynq.Queue(QueueDefault)); err != nil {
			return nil, err
		}
	}

	return &Worker{server: srv, mux: mux, scheduler: scheduler, logger: logger}, nil
}

// Run starts processing tasks until context cancellation.
func (w *Worker) Run(ctx context.Context) error {
	if w == nil {
		return errors.New("worker: not configured")
	}
	if err := w.scheduler.Start(); err != nil {
		return err
	}
	errCh := make(chan error, 1)
	go func() {
		errCh <- w.server.Run(w.mux)
	}()
	select {
	case <-ctx.Done():
		w.scheduler.Shutdown()
		w.server.Shutdown()
		return ctx.Err()
	case err := <-errCh:
		w.scheduler.Shutdown()
		return err
	}
}
