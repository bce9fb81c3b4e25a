package notifications

import (
	"context"
	"log/slog"

	"github.com/hibiken/asynq"
)

// Settings keys controlling outbound notifications. Each scheduled push has
// its own kill switch so the owner can silence one channel without code
// changes.
const (
	SettingKeyEnabled           = "notification_line_enabled"
	SettingKeyDailySummary      = "notify_daily_summary"
	SettingKeyPaymentReminders  = "notify_payment_reminders"
	SettingKeyMaterialAlerts    = "notify_material_alerts"
	SettingKeyApprovalReminders = "notify_approval_reminders"
	// Reminder lead times in days, tunable without a deploy.
	SettingKeyPaymentReminderDays  = "payment_reminder_days"
	SettingKeyApprovalReminderDays = "approval_reminder_days"
	// SettingKeyOwnerGroupID is the LINE group receiving staff-facing pushes.
	SettingKeyOwnerGroupID = "line_owner_group_id"
)

// SettingsReader reads runtime-tunable values.
type SettingsReader interface {
	Get(ctx context.Context, key, def string) string
	Enabled(ctx context.Context, key string) bool
}

// Dispatcher enqueues notification tasks. It satisfies the job workflow's
// Notifier: Dispatch never returns an error, a failed enqueue only logs.
type Dispatcher struct {
	client   *asynq.Client
	settings SettingsReader
	logger   *slog.Logger
}

// NewDispatcher constructs a dispatcher over an Asynq client.
func NewDispatcher(client *asynq.Client, settings SettingsReader, logger *slog.Logger) *Dispatcher {
	return &Dispatcher{client: client, settings: settings, logger: logger}
}

// Dispatch enqueues a job event notification.
func (d *Dispatcher) Dispatch(ctx context.Context, jobID int64, eventKind string) {
	if !d.settings.Enabled(ctx, SettingKeyEnabled) {
		return
	}
	task, err := NewJobEventTask(JobEventPayload{JobID: jobID, EventKind: eventKind})
	if err != nil {
		d.logger.Error("build notification task", slog.Any("error", err))
		return
	}
	if _, err := d.client.EnqueueContext(ctx, task, asynq.Queue(QueueDefault)); err != nil {
		d.logger.Error("enqueue notification",
			slog.Int64("job_id", jobID),
			slog.String("event", eventKind),
			slog.Any("error", err))
	}
}

// NopDispatcher drops every notification. Used where no queue is wired, for
// example the migration binary and tests.
type NopDispatcher struct{}

func (NopDispatcher) Dispatch(context.Context, int64, string) {}
