package jobs

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/pressdesk/pressdesk/internal/platform/db"
)

// Repository provides PostgreSQL backed persistence for jobs.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// TxRepository exposes the operations available inside a transaction.
type TxRepository interface {
	GetForUpdate(ctx context.Context, id int64) (Job, error)
	UpdateStatus(ctx context.Context, id int64, status Status) error
	InsertHistory(ctx context.Context, h StatusHistory) error
	InsertApproval(ctx context.Context, a Approval) error
}

type txRepo struct {
	tx pgx.Tx
}

// WithTx wraps callback in a repeatable-read transaction.
func (r *Repository) WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	return db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		return fn(ctx, &txRepo{tx: tx})
	})
}

const jobColumns = `id, customer_id, product_type_id, assigned_designer, title, description,
	quantity, width_cm, height_cm, quoted_price, deposit_amount, discount_amount,
	status, payment_status, due_date, created_by, created_at, updated_at,
	tracking_token, internal_notes`

// Get returns one job by ID.
func (r *Repository) Get(ctx context.Context, id int64) (Job, error) {
	return scanJob(r.pool.QueryRow(ctx, `SELECT `+jobColumns+` FROM jobs WHERE id = $1`, id))
}

// GetByTrackingToken resolves the unguessable public token to a job.
func (r *Repository) GetByTrackingToken(ctx context.Context, token uuid.UUID) (Job, error) {
	return scanJob(r.pool.QueryRow(ctx, `SELECT `+jobColumns+` FROM jobs WHERE tracking_token = $1`, token))
}

// ListJobsRequest filters the job list.
type ListJobsRequest struct {
	CustomerID    *int64
	Status        *Status
	PaymentStatus *PaymentStatus
	Limit         int
	Offset        int
}

// List returns jobs newest-first with a total count.
func (r *Repository) List(ctx context.Context, req ListJobsRequest) ([]Job, int, error) {
	where := "WHERE 1=1"
	args := []any{}
	argPos := 1
	if req.CustomerID != nil {
		where += fmt.Sprintf(" AND customer_id = $%d", argPos)
		args = append(args, *req.CustomerID)
		argPos++
	}
	if req.Status != nil {
		where += fmt.Sprintf(" AND status = $%d", argPos)
		args = append(args, *req.Status)
		argPos++
	}
	if req.PaymentStatus != nil {
		where += fmt.Sprintf(" AND payment_status = $%d", argPos)
		args = append(args, *req.PaymentStatus)
		argPos++
	}

	var total int
	if err := r.pool.QueryRow(ctx, "SELECT COUNT(*) FROM jobs "+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	query := fmt.Sprintf("SELECT "+jobColumns+" FROM jobs %s ORDER BY created_at DESC, id DESC LIMIT $%d OFFSET $%d", where, argPos, argPos+1)
	args = append(args, req.Limit, req.Offset)
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var out []Job
	for rows.Next() {
		job, err := scanJob(rows)
		if err != nil {
			return nil, 0, err
		}
		out = append(out, job)
	}
	return out, total, rows.Err()
}

// Create inserts a new job and returns its ID.
func (r *Repository) Create(ctx context.Context, job Job) (int64, error) {
	var id int64
	err := r.pool.QueryRow(ctx, `
		INSERT INTO jobs (customer_id, product_type_id, assigned_designer, title, description,
			quantity, width_cm, height_cm, quoted_price, deposit_amount, discount_amount,
			status, payment_status, due_date, created_by, tracking_token, internal_notes)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17)
		RETURNING id`,
		job.CustomerID, job.ProductTypeID, job.AssignedDesigner, job.Title, job.Description,
		job.Quantity, db.DecimalPtrToNumeric(job.WidthCM), db.DecimalPtrToNumeric(job.HeightCM),
		db.DecimalToNumeric(job.QuotedPrice), db.DecimalToNumeric(job.DepositAmount),
		db.DecimalToNumeric(job.DiscountAmount), job.Status, job.PaymentStatus,
		job.DueDate, job.CreatedBy, job.TrackingToken, job.InternalNotes,
	).Scan(&id)
	return id, err
}

// UpdateInput carries optional field edits; payment_status is deliberately
// not touched here, it only moves on payment writes.
type UpdateInput struct {
	Title            *string
	Description      *string
	Quantity         *int
	WidthCM          *decimal.Decimal
	HeightCM         *decimal.Decimal
	QuotedPrice      *decimal.Decimal
	DepositAmount    *decimal.Decimal
	DiscountAmount   *decimal.Decimal
	DueDate          *time.Time
	AssignedDesigner *int64
	InternalNotes    *string
}

// Update applies the provided edits.
func (r *Repository) Update(ctx context.Context, id int64, in UpdateInput) error {
	query := "UPDATE jobs SET updated_at = NOW()"
	var args []any
	argPos := 1
	add := func(col string, v any) {
		query += fmt.Sprintf(", %s = $%d", col, argPos)
		args = append(args, v)
		argPos++
	}
	if in.Title != nil {
		add("title", *in.Title)
	}
	if in.Description != nil {
		add("description", *in.Description)
	}
	if in.Quantity != nil {
		add("quantity", *in.Quantity)
	}
	if in.WidthCM != nil {
		add("width_cm", db.DecimalToNumeric(*in.WidthCM))
	}
	if in.HeightCM != nil {
		add("height_cm", db.DecimalToNumeric(*in.HeightCM))
	}
	if in.QuotedPrice != nil {
		add("quoted_price", db.DecimalToNumeric(*in.QuotedPrice))
	}
	if in.DepositAmount != nil {
		add("deposit_amount", db.DecimalToNumeric(*in.DepositAmount))
	}
	if in.DiscountAmount != nil {
		add("discount_amount", db.DecimalToNumeric(*in.DiscountAmount))
	}
	if in.DueDate != nil {
		add("due_date", *in.DueDate)
	}
	if in.AssignedDesigner != nil {
		add("assigned_designer", *in.AssignedDesigner)
	}
	if in.InternalNotes != nil {
		add("internal_notes", *in.InternalNotes)
	}
	query += fmt.Sprintf(" WHERE id = $%d", argPos)
	args = append(args, id)

	tag, err := r.pool.Exec(ctx, query, args...)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// ListHistory returns the transition log newest-first.
func (r *Repository) ListHistory(ctx context.Context, jobID int64) ([]StatusHistory, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, job_id, from_status, to_status, changed_by, note, changed_at
		FROM job_status_history
		WHERE job_id = $1
		ORDER BY changed_at DESC, id DESC`, jobID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []StatusHistory
	for rows.Next() {
		var h StatusHistory
		var changedBy pgtype.Int8
		if err := rows.Scan(&h.ID, &h.JobID, &h.FromStatus, &h.ToStatus, &changedBy, &h.Note, &h.ChangedAt); err != nil {
			return nil, err
		}
		if changedBy.Valid {
			h.ChangedBy = &changedBy.Int64
		}
		out = append(out, h)
	}
	return out, rows.Err()
}

// SumPayments totals the amounts received against a job.
func (r *Repository) SumPayments(ctx context.Context, jobID int64) (decimal.Decimal, error) {
	var total pgtype.Numeric
	err := r.pool.QueryRow(ctx,
		`SELECT COALESCE(SUM(amount), 0) FROM payments WHERE job_id = $1`, jobID).Scan(&total)
	if err != nil {
		return decimal.Zero, err
	}
	return db.NumericToDecimal(total), nil
}

// GetForUpdate re-reads the job with a row lock so concurrent transitions on
// the same job serialize.
func (t *txRepo) GetForUpdate(ctx context.Context, id int64) (Job, error) {
	return scanJob(t.tx.QueryRow(ctx, `SELECT `+jobColumns+` FROM jobs WHERE id = $1 FOR UPDATE`, id))
}

func (t *txRepo) UpdateStatus(ctx context.Context, id int64, status Status) error {
	tag, err := t.tx.Exec(ctx, `UPDATE jobs SET status = $1, updated_at = NOW() WHERE id = $2`, status, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (t *txRepo) InsertHistory(ctx context.Context, h StatusHistory) error {
	_, err := t.tx.Exec(ctx, `
		INSERT INTO job_status_history (job_id, from_status, to_status, changed_by, note)
		VALUES ($1, $2, $3, $4, $5)`,
		h.JobID, h.FromStatus, h.ToStatus, h.ChangedBy, h.Note)
	return err
}

func (t *txRepo) InsertApproval(ctx context.Context, a Approval) error {
	_, err := t.tx.Exec(ctx, `
		INSERT INTO job_approvals (job_id, decision, revision_notes, decided_by_customer, approved_by_name, approved_by_ip)
		VALUES ($1, $2, $3, $4, $5, $6)`,
		a.JobID, a.Decision, a.RevisionNotes, a.DecidedByCustomer, a.ApprovedByName, a.ApprovedByIP)
	return err
}

func scanJob(row pgx.Row) (Job, error) {
	var job Job
	var assignedDesigner pgtype.Int8
	var widthCM, heightCM, quotedPrice, depositAmount, discountAmount pgtype.Numeric
	var dueDate pgtype.Date
	err := row.Scan(
		&job.ID, &job.CustomerID, &job.ProductTypeID, &assignedDesigner, &job.Title, &job.Description,
		&job.Quantity, &widthCM, &heightCM, &quotedPrice, &depositAmount, &discountAmount,
		&job.Status, &job.PaymentStatus, &dueDate, &job.CreatedBy, &job.CreatedAt, &job.UpdatedAt,
		&job.TrackingToken, &job.InternalNotes,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Job{}, ErrNotFound
		}
		return Job{}, err
	}
	if assignedDesigner.Valid {
		job.AssignedDesigner = &assignedDesigner.Int64
	}
	job.WidthCM = db.NumericToDecimalPtr(widthCM)
	job.HeightCM = db.NumericToDecimalPtr(heightCM)
	job.QuotedPrice = db.NumericToDecimal(quotedPrice)
	job.DepositAmount = db.NumericToDecimal(depositAmount)
	job.DiscountAmount = db.NumericToDecimal(discountAmount)
	if dueDate.Valid {
		d := dueDate.Time
		job.DueDate = &d
	}
	return job, nil
}
