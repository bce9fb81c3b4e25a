package payments

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/pressdesk/pressdesk/internal/jobs"
	"github.com/pressdesk/pressdesk/internal/platform/db"
)

// Repository provides PostgreSQL backed persistence for payments.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// JobPricing is the slice of the job row the reconciler needs.
type JobPricing struct {
	JobID          int64
	QuotedPrice    decimal.Decimal
	DiscountAmount decimal.Decimal
	PaymentStatus  jobs.PaymentStatus
}

// TxRepository exposes the operations of one reconciliation transaction.
type TxRepository interface {
	// GetJobPricingForUpdate row-locks the job so concurrent payment writes
	// against the same job serialize their status recomputation.
	GetJobPricingForUpdate(ctx context.Context, jobID int64) (JobPricing, error)
	InsertPayment(ctx context.Context, p Payment) (int64, time.Time, error)
	SumPayments(ctx context.Context, jobID int64) (decimal.Decimal, error)
	UpdateJobPaymentStatus(ctx context.Context, jobID int64, status jobs.PaymentStatus) error
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

// ListByJob returns a job's payments newest-first.
func (r *Repository) ListByJob(ctx context.Context, jobID int64) ([]Payment, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, job_id, amount, method, bank_account_id, reference_number, is_deposit,
		       received_by, received_at, notes, wht_rate, wht_amount, wht_certificate_no
		FROM payments
		WHERE job_id = $1
		ORDER BY received_at DESC, id DESC`, jobID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Payment
	for rows.Next() {
		p, err := scanPayment(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

// Get returns one payment.
func (r *Repository) Get(ctx context.Context, id int64) (Payment, error) {
	p, err := scanPayment(r.pool.QueryRow(ctx, `
		SELECT id, job_id, amount, method, bank_account_id, reference_number, is_deposit,
		       received_by, received_at, notes, wht_rate, wht_amount, wht_certificate_no
		FROM payments WHERE id = $1`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Payment{}, ErrNotFound
		}
		return Payment{}, err
	}
	return p, nil
}

// ListBankAccounts returns active accounts in display order.
func (r *Repository) ListBankAccounts(ctx context.Context) ([]BankAccount, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, bank_name, account_name, account_number, promptpay_id, is_active, sort_order
		FROM bank_accounts
		WHERE is_active
		ORDER BY sort_order, bank_name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []BankAccount
	for rows.Next() {
		var a BankAccount
		if err := rows.Scan(&a.ID, &a.BankName, &a.AccountName, &a.AccountNumber, &a.PromptPayID, &a.IsActive, &a.SortOrder); err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

// GetBankAccount returns one bank account.
func (r *Repository) GetBankAccount(ctx context.Context, id int64) (BankAccount, error) {
	var a BankAccount
	err := r.pool.QueryRow(ctx, `
		SELECT id, bank_name, account_name, account_number, promptpay_id, is_active, sort_order
		FROM bank_accounts WHERE id = $1`, id).
		Scan(&a.ID, &a.BankName, &a.AccountName, &a.AccountNumber, &a.PromptPayID, &a.IsActive, &a.SortOrder)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return BankAccount{}, ErrNotFound
		}
		return BankAccount{}, err
	}
	return a, nil
}

func (t *txRepo) GetJobPricingForUpdate(ctx context.Context, jobID int64) (JobPricing, error) {
	var p JobPricing
	var quoted, discount pgtype.Numeric
	err := t.tx.QueryRow(ctx, `
		SELECT id, quoted_price, discount_amount, payment_status
		FROM jobs WHERE id = $1 FOR UPDATE`, jobID).
		Scan(&p.JobID, &quoted, &discount, &p.PaymentStatus)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return JobPricing{}, ErrNotFound
		}
		return JobPricing{}, err
	}
	p.QuotedPrice = db.NumericToDecimal(quoted)
	p.DiscountAmount = db.NumericToDecimal(discount)
	return p, nil
}

func (t *txRepo) InsertPayment(ctx context.Context, p Payment) (int64, time.Time, error) {
	var id int64
	var receivedAt time.Time
	err := t.tx.QueryRow(ctx, `
		INSERT INTO payments (job_id, amount, method, bank_account_id, reference_number,
			is_deposit, received_by, notes, wht_rate, wht_amount, wht_certificate_no)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		RETURNING id, received_at`,
		p.JobID, db.DecimalToNumeric(p.Amount), p.Method, p.BankAccountID, p.ReferenceNumber,
		p.IsDeposit, p.ReceivedBy, p.Notes, db.DecimalToNumeric(p.WHTRate),
		db.DecimalToNumeric(p.WHTAmount), p.WHTCertificateNo,
	).Scan(&id, &receivedAt)
	return id, receivedAt, err
}

func (t *txRepo) SumPayments(ctx context.Context, jobID int64) (decimal.Decimal, error) {
	var total pgtype.Numeric
	err := t.tx.QueryRow(ctx,
		`SELECT COALESCE(SUM(amount), 0) FROM payments WHERE job_id = $1`, jobID).Scan(&total)
	if err != nil {
		return decimal.Zero, err
	}
	return db.NumericToDecimal(total), nil
}

func (t *txRepo) UpdateJobPaymentStatus(ctx context.Context, jobID int64, status jobs.PaymentStatus) error {
	_, err := t.tx.Exec(ctx,
		`UPDATE jobs SET payment_status = $1, updated_at = NOW() WHERE id = $2`, status, jobID)
	return err
}

func scanPayment(row pgx.Row) (Payment, error) {
	var p Payment
	var amount, whtRate, whtAmount pgtype.Numeric
	var bankAccountID pgtype.Int8
	err := row.Scan(&p.ID, &p.JobID, &amount, &p.Method, &bankAccountID, &p.ReferenceNumber,
		&p.IsDeposit, &p.ReceivedBy, &p.ReceivedAt, &p.Notes, &whtRate, &whtAmount, &p.WHTCertificateNo)
	if err != nil {
		return Payment{}, err
	}
	p.Amount = db.NumericToDecimal(amount)
	p.WHTRate = db.NumericToDecimal(whtRate)
	p.WHTAmount = db.NumericToDecimal(whtAmount)
	if bankAccountID.Valid {
		p.BankAccountID = &bankAccountID.Int64
	}
	return p, nil
}
