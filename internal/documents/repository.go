package documents

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/pressdesk/pressdesk/internal/platform/db"
)

// Repository provides PostgreSQL backed persistence for documents.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// TxRepository exposes the operations of one issuing transaction.
type TxRepository interface {
	// NextSequence locks the highest-sequence row for (document_type, year)
	// and returns max+1, or 1 when the pair has no rows yet. Callers must
	// insert the reserved number before the transaction commits.
	NextSequence(ctx context.Context, t Type, year int) (int, error)
	InsertDocument(ctx context.Context, d Document) (int64, error)
	InsertItem(ctx context.Context, item Item) (int64, error)
	// FindActive returns the job's non-void document of the given type, if any.
	FindActive(ctx context.Context, jobID int64, t Type) (Document, bool, error)
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

const documentColumns = `id, job_id, document_type, document_number, sequence, year,
	customer_name, customer_address, customer_tax_id,
	subtotal, vat_rate, vat_amount, total_amount,
	issued_by, issued_at, notes, is_void`

// Get returns one document with its items.
func (r *Repository) Get(ctx context.Context, id int64) (Document, error) {
	doc, err := scanDocument(r.pool.QueryRow(ctx, `SELECT `+documentColumns+` FROM documents WHERE id = $1`, id))
	if err != nil {
		return Document{}, err
	}
	doc.Items, err = r.listItems(ctx, id)
	return doc, err
}

// ListByJob returns a job's documents newest-first, voided ones included.
func (r *Repository) ListByJob(ctx context.Context, jobID int64) ([]Document, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT `+documentColumns+` FROM documents WHERE job_id = $1 ORDER BY issued_at DESC, id DESC`, jobID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectDocuments(rows)
}

// ListRequest filters the document list.
type ListRequest struct {
	Type        *Type
	IncludeVoid bool
	Limit       int
	Offset      int
}

// List returns documents newest-first.
func (r *Repository) List(ctx context.Context, req ListRequest) ([]Document, int, error) {
	where := "WHERE 1=1"
	args := []any{}
	argPos := 1
	if !req.IncludeVoid {
		where += " AND NOT is_void"
	}
	if req.Type != nil {
		where += fmt.Sprintf(" AND document_type = $%d", argPos)
		args = append(args, *req.Type)
		argPos++
	}

	var total int
	if err := r.pool.QueryRow(ctx, "SELECT COUNT(*) FROM documents "+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	query := fmt.Sprintf("SELECT "+documentColumns+" FROM documents %s ORDER BY issued_at DESC, id DESC LIMIT $%d OFFSET $%d", where, argPos, argPos+1)
	args = append(args, req.Limit, req.Offset)
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	docs, err := collectDocuments(rows)
	return docs, total, err
}

// Void soft-cancels a document. Amount and identity fields stay untouched.
func (r *Repository) Void(ctx context.Context, id int64) error {
	tag, err := r.pool.Exec(ctx, `UPDATE documents SET is_void = TRUE WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// JobBilling is the billing view of a job used when issuing documents: the
// pricing plus the customer snapshot fields copied onto the document.
type JobBilling struct {
	JobID           int64
	Title           string
	Quantity        int
	QuotedPrice     decimal.Decimal
	DiscountAmount  decimal.Decimal
	ProductTypeName string
	ProductTypeUnit string
	CustomerName    string
	CustomerAddress string
	CustomerTaxID   string
}

// GetJobBilling loads the billing view for a job.
func (r *Repository) GetJobBilling(ctx context.Context, jobID int64) (JobBilling, error) {
	var b JobBilling
	var quoted, discount pgtype.Numeric
	err := r.pool.QueryRow(ctx, `
		SELECT j.id, j.title, j.quantity, j.quoted_price, j.discount_amount,
		       pt.name, pt.unit, c.name, c.billing_address, c.tax_id
		FROM jobs j
		JOIN product_types pt ON j.product_type_id = pt.id
		JOIN customers c ON j.customer_id = c.id
		WHERE j.id = $1`, jobID).
		Scan(&b.JobID, &b.Title, &b.Quantity, &quoted, &discount,
			&b.ProductTypeName, &b.ProductTypeUnit, &b.CustomerName, &b.CustomerAddress, &b.CustomerTaxID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return JobBilling{}, ErrNotFound
		}
		return JobBilling{}, err
	}
	b.QuotedPrice = db.NumericToDecimal(quoted)
	b.DiscountAmount = db.NumericToDecimal(discount)
	return b, nil
}

// AgingRow is one outstanding job in the receivables report.
type AgingRow struct {
	JobID         int64
	Title         string
	CustomerName  string
	CreditDays    int
	JobCreatedAt  time.Time
	InvoiceNumber *string
	InvoiceIssued *time.Time
	Balance       decimal.Decimal
}

// ListOutstanding returns unpaid or partially paid jobs in billable
// statuses, oldest first, with their first active invoice or receipt.
func (r *Repository) ListOutstanding(ctx context.Context) ([]AgingRow, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT j.id, j.title, c.name, COALESCE(ct.credit_days, 0), j.created_at,
		       inv.document_number, inv.issued_at,
		       j.quoted_price - j.discount_amount - COALESCE(paid.total, 0) AS balance
		FROM jobs j
		JOIN customers c ON j.customer_id = c.id
		LEFT JOIN customer_types ct ON c.customer_type_id = ct.id
		LEFT JOIN LATERAL (
			SELECT d.document_number, d.issued_at
			FROM documents d
			WHERE d.job_id = j.id
			  AND d.document_type IN ('tax_invoice', 'receipt')
			  AND NOT d.is_void
			ORDER BY d.issued_at
			LIMIT 1
		) inv ON TRUE
		LEFT JOIN LATERAL (
			SELECT SUM(p.amount) AS total FROM payments p WHERE p.job_id = j.id
		) paid ON TRUE
		WHERE j.payment_status IN ('unpaid', 'partial')
		  AND j.status IN ('approved', 'printing', 'cutting', 'laminating', 'ready', 'completed')
		ORDER BY j.created_at`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []AgingRow
	for rows.Next() {
		var row AgingRow
		var invoiceNumber pgtype.Text
		var invoiceIssued pgtype.Timestamptz
		var balance pgtype.Numeric
		if err := rows.Scan(&row.JobID, &row.Title, &row.CustomerName, &row.CreditDays, &row.JobCreatedAt,
			&invoiceNumber, &invoiceIssued, &balance); err != nil {
			return nil, err
		}
		if invoiceNumber.Valid {
			row.InvoiceNumber = &invoiceNumber.String
		}
		if invoiceIssued.Valid {
			t := invoiceIssued.Time
			row.InvoiceIssued = &t
		}
		row.Balance = db.NumericToDecimal(balance)
		out = append(out, row)
	}
	return out, rows.Err()
}

func (r *Repository) listItems(ctx context.Context, documentID int64) ([]Item, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, document_id, description, quantity, unit, unit_price, amount
		FROM document_items WHERE document_id = $1 ORDER BY id`, documentID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Item
	for rows.Next() {
		var item Item
		var quantity, unitPrice, amount pgtype.Numeric
		if err := rows.Scan(&item.ID, &item.DocumentID, &item.Description, &quantity, &item.Unit, &unitPrice, &amount); err != nil {
			return nil, err
		}
		item.Quantity = db.NumericToDecimal(quantity)
		item.UnitPrice = db.NumericToDecimal(unitPrice)
		item.Amount = db.NumericToDecimal(amount)
		out = append(out, item)
	}
	return out, rows.Err()
}

// NextSequence serializes concurrent allocators for one (type, year) pair by
// locking the current maximum row. Two first-of-year racers have no row to
// lock; the unique index on (document_type, year, sequence) turns that race
// into ErrAllocationFailed for one of them, which retries cleanly.
func (t *txRepo) NextSequence(ctx context.Context, docType Type, year int) (int, error) {
	var max int
	err := t.tx.QueryRow(ctx, `
		SELECT sequence FROM documents
		WHERE document_type = $1 AND year = $2
		ORDER BY sequence DESC
		LIMIT 1
		FOR UPDATE`, docType, year).Scan(&max)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 1, nil
		}
		return 0, fmt.Errorf("%w: %v", ErrAllocationFailed, err)
	}
	return max + 1, nil
}

func (t *txRepo) InsertDocument(ctx context.Context, d Document) (int64, error) {
	var id int64
	err := t.tx.QueryRow(ctx, `
		INSERT INTO documents (job_id, document_type, document_number, sequence, year,
			customer_name, customer_address, customer_tax_id,
			subtotal, vat_rate, vat_amount, total_amount, issued_by, notes, is_void)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, FALSE)
		RETURNING id`,
		d.JobID, d.Type, d.DocumentNumber, d.Sequence, d.Year,
		d.CustomerName, d.CustomerAddress, d.CustomerTaxID,
		db.DecimalToNumeric(d.Subtotal), db.DecimalToNumeric(d.VATRate),
		db.DecimalToNumeric(d.VATAmount), db.DecimalToNumeric(d.TotalAmount),
		d.IssuedBy, d.Notes,
	).Scan(&id)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return 0, fmt.Errorf("%w: %v", ErrAllocationFailed, err)
		}
		return 0, err
	}
	return id, nil
}

func (t *txRepo) InsertItem(ctx context.Context, item Item) (int64, error) {
	var id int64
	err := t.tx.QueryRow(ctx, `
		INSERT INTO document_items (document_id, description, quantity, unit, unit_price, amount)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id`,
		item.DocumentID, item.Description, db.DecimalToNumeric(item.Quantity),
		item.Unit, db.DecimalToNumeric(item.UnitPrice), db.DecimalToNumeric(item.Amount),
	).Scan(&id)
	return id, err
}

func (t *txRepo) FindActive(ctx context.Context, jobID int64, docType Type) (Document, bool, error) {
	doc, err := scanDocument(t.tx.QueryRow(ctx, `
		SELECT `+documentColumns+` FROM documents
		WHERE job_id = $1 AND document_type = $2 AND NOT is_void
		ORDER BY issued_at DESC
		LIMIT 1`, jobID, docType))
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return Document{}, false, nil
		}
		return Document{}, false, err
	}
	return doc, true, nil
}

func collectDocuments(rows pgx.Rows) ([]Document, error) {
	var out []Document
	for rows.Next() {
		doc, err := scanDocument(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, doc)
	}
	return out, rows.Err()
}

func scanDocument(row pgx.Row) (Document, error) {
	var d Document
	var subtotal, vatRate, vatAmount, totalAmount pgtype.Numeric
	err := row.Scan(&d.ID, &d.JobID, &d.Type, &d.DocumentNumber, &d.Sequence, &d.Year,
		&d.CustomerName, &d.CustomerAddress, &d.CustomerTaxID,
		&subtotal, &vatRate, &vatAmount, &totalAmount,
		&d.IssuedBy, &d.IssuedAt, &d.Notes, &d.IsVoid)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Document{}, ErrNotFound
		}
		return Document{}, err
	}
	d.Subtotal = db.NumericToDecimal(subtotal)
	d.VATRate = db.NumericToDecimal(vatRate)
	d.VATAmount = db.NumericToDecimal(vatAmount)
	d.TotalAmount = db.NumericToDecimal(totalAmount)
	return d, nil
}
