package notifications

import (
	"encoding/json"

	"github.com/hibiken/asynq"
)

const (
	// QueueDefault is the default queue name for background jobs.
	QueueDefault = "default"

	// TaskTypeJobEvent delivers one customer notification for a job event.
	TaskTypeJobEvent = "notify:job_event"
	// TaskTypeDailySummary pushes the owner's morning workload summary.
	TaskTypeDailySummary = "notify:daily_summary"
	// TaskTypePaymentReminders nags customers with outstanding balances.
	TaskTypePaymentReminders = "notify:payment_reminders"
	// TaskTypeMaterialAlerts warns about materials at their reorder level.
	TaskTypeMaterialAlerts = "notify:material_alerts"
	// TaskTypeApprovalReminders nags customers sitting on unanswered proofs.
	TaskTypeApprovalReminders = "notify:approval_reminders"
)

// JobEventPayload identifies the job and event behind one notification.
type JobEventPayload struct {
	JobID     int64  `json:"job_id"`
	EventKind string `json:"event_kind"`
}

// NewJobEventTask constructs an Asynq task for one job event.
func NewJobEventTask(payload JobEventPayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskTypeJobEvent, data), nil
}
