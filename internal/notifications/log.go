package notifications

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Delivery outcomes recorded per notification.
const (
	StatusSent    = "sent"
	StatusFailed  = "failed"
	StatusSkipped = "skipped"
)

// Log is one outbound notification attempt.
type Log struct {
	ID        int64     `json:"id"`
	JobID     *int64    `json:"job_id,omitempty"`
	EventKind string    `json:"event_kind"`
	Channel   string    `json:"channel"`
	Recipient string    `json:"recipient"`
	Message   string    `json:"message"`
	Status    string    `json:"status"`
	Error     string    `json:"error,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// LogRepository persists the notification audit trail.
type LogRepository struct {
	pool *pgxpool.Pool
}

// NewLogRepository constructs the repository.
func NewLogRepository(pool *pgxpool.Pool) *LogRepository {
	return &LogRepository{pool: pool}
}

// Insert records one attempt.
func (r *LogRepository) Insert(ctx context.Context, l Log) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO notification_logs (job_id, event_kind, channel, recipient, message, status, error)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		l.JobID, l.EventKind, l.Channel, l.Recipient, l.Message, l.Status, l.Error)
	return err
}

// ListByJob returns a job's notification history newest-first.
func (r *LogRepository) ListByJob(ctx context.Context, jobID int64) ([]Log, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, job_id, event_kind, channel, recipient, message, status, error, created_at
		FROM notification_logs
		WHERE job_id = $1
		ORDER BY created_at DESC`, jobID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Log
	for rows.Next() {
		var l Log
		if err := rows.Scan(&l.ID, &l.JobID, &l.EventKind, &l.Channel, &l.Recipient, &l.Message, &l.Status, &l.Error, &l.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, l)
	}
	return out, rows.Err()
}
