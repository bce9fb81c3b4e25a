package notifications

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/hibiken/asynq"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/pressdesk/pressdesk/internal/platform/db"
)

// Notifier holds the worker-side dependencies shared by all notification
// task handlers.
type Notifier struct {
	Pool     *pgxpool.Pool
	Line     *LineClient
	Logs     *LogRepository
	Settings SettingsReader
	Logger   *slog.Logger
	BaseURL  string
}

// NewNotifier constructs the handler set.
func NewNotifier(pool *pgxpool.Pool, line *LineClient, logs *LogRepository, settings SettingsReader, logger *slog.Logger, baseURL string) *Notifier {
	return &Notifier{Pool: pool, Line: line, Logs: logs, Settings: settings, Logger: logger, BaseURL: baseURL}
}

// jobContact is what a push needs to know about a job and its customer.
type jobContact struct {
	Title         string
	Status        string
	LineID        string
	TrackingToken string
	QuotedPrice   decimal.Decimal
	Discount      decimal.Decimal
}

func (n *Notifier) jobContact(ctx context.Context, jobID int64) (jobContact, error) {
	var c jobContact
	var quoted, discount pgtype.Numeric
	err := n.Pool.QueryRow(ctx, `
		SELECT j.title, j.status, COALESCE(cu.line_id, ''), j.tracking_token, j.quoted_price, j.discount_amount
		FROM jobs j
		JOIN customers cu ON j.customer_id = cu.id
		WHERE j.id = $1`, jobID).
		Scan(&c.Title, &c.Status, &c.LineID, &c.TrackingToken, &quoted, &discount)
	if err != nil {
		return jobContact{}, err
	}
	c.QuotedPrice = db.NumericToDecimal(quoted)
	c.Discount = db.NumericToDecimal(discount)
	return c, nil
}

func (n *Notifier) trackingURL(token string) string {
	return fmt.Sprintf("%s/track/%s", n.BaseURL, token)
}

func (n *Notifier) settingDays(ctx context.Context, key string, def int) int {
	days, err := strconv.Atoi(n.Settings.Get(ctx, key, strconv.Itoa(def)))
	if err != nil || days < 0 {
		return def
	}
	return days
}

// HandleJobEvent processes TaskTypeJobEvent tasks: builds the customer
// message for the event and pushes it over LINE. Delivery problems are
// logged and swallowed so the queue never retries a stale notification.
func (n *Notifier) HandleJobEvent(ctx context.Context, t *asynq.Task) error {
	var payload JobEventPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return asynq.SkipRetry
	}

	contact, err := n.jobContact(ctx, payload.JobID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return asynq.SkipRetry
		}
		return err
	}

	var text string
	switch payload.EventKind {
	case "proof_ready":
		text = ProofReadyMessage(contact.Title, n.trackingURL(contact.TrackingToken))
	case "payment_received":
		amount, balance, err := n.lastPaymentAndBalance(ctx, payload.JobID, contact)
		if err != nil {
			return err
		}
		text = PaymentReceivedMessage(contact.Title, amount, balance)
	default:
		text = StatusChangeMessage(contact.Title, contact.Status, n.trackingURL(contact.TrackingToken))
	}

	n.push(ctx, &payload.JobID, payload.EventKind, contact.LineID, text)
	return nil
}

func (n *Notifier) lastPaymentAndBalance(ctx context.Context, jobID int64, contact jobContact) (decimal.Decimal, decimal.Decimal, error) {
	var lastAmount, totalPaid pgtype.Numeric
	err := n.Pool.QueryRow(ctx, `
		SELECT COALESCE((SELECT amount FROM payments WHERE job_id = $1 ORDER BY received_at DESC, id DESC LIMIT 1), 0),
		       COALESCE((SELECT SUM(amount) FROM payments WHERE job_id = $1), 0)`, jobID).
		Scan(&lastAmount, &totalPaid)
	if err != nil {
		return decimal.Zero, decimal.Zero, err
	}
	balance := contact.QuotedPrice.Sub(contact.Discount).Sub(db.NumericToDecimal(totalPaid))
	return db.NumericToDecimal(lastAmount), balance, nil
}

// push sends one message and records the attempt. A missing recipient is a
// skip, not a failure.
func (n *Notifier) push(ctx context.Context, jobID *int64, eventKind, recipient, text string) {
	entry := Log{JobID: jobID, EventKind: eventKind, Channel: "line", Recipient: recipient, Message: text}
	switch {
	case recipient == "":
		entry.Status = StatusSkipped
		entry.Error = "no line recipient"
	case !n.Line.Enabled():
		entry.Status = StatusSkipped
		entry.Error = ErrDisabled.Error()
	default:
		if err := n.Line.Push(ctx, recipient, text); err != nil {
			entry.Status = StatusFailed
			entry.Error = err.Error()
			n.Logger.Warn("line push failed",
				slog.String("event", eventKind),
				slog.Any("error", err))
		} else {
			entry.Status = StatusSent
		}
	}
	if err := n.Logs.Insert(ctx, entry); err != nil {
		n.Logger.Error("record notification", slog.Any("error", err))
	}
}

// HandleDailySummary pushes the morning workload counts to the owner group.
func (n *Notifier) HandleDailySummary(ctx context.Context, t *asynq.Task) error {
	if !n.Settings.Enabled(ctx, SettingKeyEnabled) || !n.Settings.Enabled(ctx, SettingKeyDailySummary) {
		return nil
	}
	group := n.Settings.Get(ctx, SettingKeyOwnerGroupID, "")

	rows, err := n.Pool.Query(ctx, `
		SELECT status, COUNT(*) FROM jobs
		WHERE status NOT IN ('completed', 'cancelled')
		GROUP BY status
		ORDER BY status`)
	if err != nil {
		return err
	}
	defer rows.Close()

	text := "สรุปงานเช้านี้:"
	active := 0
	for rows.Next() {
		var status string
		var count int
		if err := rows.Scan(&status, &count); err != nil {
			return err
		}
		text += fmt.Sprintf("\n- %s: %d งาน", StatusLabel(status), count)
		active += count
	}
	if err := rows.Err(); err != nil {
		return err
	}

	var dueToday, overdue int
	if err := n.Pool.QueryRow(ctx, `
		SELECT COUNT(*) FILTER (WHERE due_date = CURRENT_DATE),
		       COUNT(*) FILTER (WHERE due_date < CURRENT_DATE)
		FROM jobs
		WHERE status NOT IN ('completed', 'cancelled') AND due_date IS NOT NULL`).
		Scan(&dueToday, &overdue); err != nil {
		return err
	}
	text += fmt.Sprintf("\nครบกำหนดวันนี้ %d งาน เลยกำหนด %d งาน", dueToday, overdue)
	if active == 0 {
		text = "สรุปงานเช้านี้: ไม่มีงานค้างในระบบ"
	}

	n.push(ctx, nil, "daily_summary", group, text)
	return nil
}

// HandlePaymentReminders nags every customer whose delivered or ready job
// still carries a balance.
func (n *Notifier) HandlePaymentReminders(ctx context.Context, t *asynq.Task) error {
	if !n.Settings.Enabled(ctx, SettingKeyEnabled) || !n.Settings.Enabled(ctx, SettingKeyPaymentReminders) {
		return nil
	}

	cutoff := time.Now().AddDate(0, 0, -n.settingDays(ctx, SettingKeyPaymentReminderDays, 1))
	rows, err := n.Pool.Query(ctx, `
		SELECT j.id, j.title, COALESCE(cu.line_id, ''), j.tracking_token,
		       j.quoted_price - j.discount_amount - COALESCE(p.total, 0) AS balance
		FROM jobs j
		JOIN customers cu ON j.customer_id = cu.id
		LEFT JOIN LATERAL (SELECT SUM(amount) AS total FROM payments WHERE job_id = j.id) p ON TRUE
		WHERE j.status IN ('ready', 'completed')
		  AND j.payment_status IN ('unpaid', 'partial')
		  AND j.updated_at < $1
		ORDER BY j.id`, cutoff)
	if err != nil {
		return err
	}
	defer rows.Close()

	type reminder struct {
		jobID   int64
		lineID  string
		message string
	}
	var reminders []reminder
	for rows.Next() {
		var jobID int64
		var title, lineID, token string
		var balance pgtype.Numeric
		if err := rows.Scan(&jobID, &title, &lineID, &token, &balance); err != nil {
			return err
		}
		due := db.NumericToDecimal(balance)
		if !due.IsPositive() {
			continue
		}
		reminders = append(reminders, reminder{
			jobID:   jobID,
			lineID:  lineID,
			message: PaymentReminderMessage(title, due, n.trackingURL(token)),
		})
	}
	if err := rows.Err(); err != nil {
		return err
	}

	for _, rem := range reminders {
		jobID := rem.jobID
		n.push(ctx, &jobID, "payment_reminder", rem.lineID, rem.message)
	}
	return nil
}

// HandleMaterialAlerts warns the owner group about materials at or below
// their reorder level.
func (n *Notifier) HandleMaterialAlerts(ctx context.Context, t *asynq.Task) error {
	if !n.Settings.Enabled(ctx, SettingKeyEnabled) || !n.Settings.Enabled(ctx, SettingKeyMaterialAlerts) {
		return nil
	}
	group := n.Settings.Get(ctx, SettingKeyOwnerGroupID, "")

	rows, err := n.Pool.Query(ctx, `
		SELECT name, unit, stock_qty, reorder_level
		FROM materials
		WHERE active AND stock_qty <= reorder_level
		ORDER BY name`)
	if err != nil {
		return err
	}
	defer rows.Close()

	text := "วัสดุใกล้หมด:"
	count := 0
	for rows.Next() {
		var name, unit string
		var stock, reorder pgtype.Numeric
		if err := rows.Scan(&name, &unit, &stock, &reorder); err != nil {
			return err
		}
		text += fmt.Sprintf("\n- %s เหลือ %s %s (จุดสั่งซื้อ %s)",
			name, db.NumericToDecimal(stock).String(), unit, db.NumericToDecimal(reorder).String())
		count++
	}
	if err := rows.Err(); err != nil {
		return err
	}
	if count == 0 {
		return nil
	}

	n.push(ctx, nil, "material_alert", group, text)
	return nil
}

// HandleApprovalReminders nags customers whose proof has sat unanswered
// past the configured number of days.
func (n *Notifier) HandleApprovalReminders(ctx context.Context, t *asynq.Task) error {
	if !n.Settings.Enabled(ctx, SettingKeyEnabled) || !n.Settings.Enabled(ctx, SettingKeyApprovalReminders) {
		return nil
	}

	cutoff := time.Now().AddDate(0, 0, -n.settingDays(ctx, SettingKeyApprovalReminderDays, 3))
	rows, err := n.Pool.Query(ctx, `
		SELECT j.id, j.title, COALESCE(cu.line_id, ''), j.tracking_token
		FROM jobs j
		JOIN customers cu ON j.customer_id = cu.id
		WHERE j.status = 'awaiting_approval' AND j.updated_at < $1
		ORDER BY j.id`, cutoff)
	if err != nil {
		return err
	}
	defer rows.Close()

	type reminder struct {
		jobID   int64
		lineID  string
		message string
	}
	var reminders []reminder
	for rows.Next() {
		var jobID int64
		var title, lineID, token string
		if err := rows.Scan(&jobID, &title, &lineID, &token); err != nil {
			return err
		}
		reminders = append(reminders, reminder{
			jobID:   jobID,
			lineID:  lineID,
			message: ApprovalReminderMessage(title, n.trackingURL(token)),
		})
	}
	if err := rows.Err(); err != nil {
		return err
	}

	for _, rem := range reminders {
		jobID := rem.jobID
		n.push(ctx, &jobID, "approval_reminder", rem.lineID, rem.message)
	}
	return nil
}
