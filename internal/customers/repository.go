package customers

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/pressdesk/pressdesk/internal/platform/db"
)

// Repository provides PostgreSQL backed persistence for customers.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

const customerColumns = `id, customer_type_id, name, phone, line_id, email,
	billing_address, tax_id, notes, created_at, updated_at`

// Get returns one customer.
func (r *Repository) Get(ctx context.Context, id int64) (Customer, error) {
	return scanCustomer(r.pool.QueryRow(ctx, `SELECT `+customerColumns+` FROM customers WHERE id = $1`, id))
}

// ListRequest filters the customer list.
type ListRequest struct {
	Search string
	TypeID *int64
	Limit  int
	Offset int
}

// List returns customers ordered by name, with a name/phone search.
func (r *Repository) List(ctx context.Context, req ListRequest) ([]Customer, int, error) {
	where := "WHERE 1=1"
	args := []any{}
	argPos := 1
	if req.Search != "" {
		where += fmt.Sprintf(" AND (name ILIKE $%d OR phone ILIKE $%d)", argPos, argPos)
		args = append(args, "%"+req.Search+"%")
		argPos++
	}
	if req.TypeID != nil {
		where += fmt.Sprintf(" AND customer_type_id = $%d", argPos)
		args = append(args, *req.TypeID)
		argPos++
	}

	var total int
	if err := r.pool.QueryRow(ctx, "SELECT COUNT(*) FROM customers "+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	query := fmt.Sprintf("SELECT "+customerColumns+" FROM customers %s ORDER BY name LIMIT $%d OFFSET $%d", where, argPos, argPos+1)
	args = append(args, req.Limit, req.Offset)
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var out []Customer
	for rows.Next() {
		c, err := scanCustomer(rows)
		if err != nil {
			return nil, 0, err
		}
		out = append(out, c)
	}
	return out, total, rows.Err()
}

// Create inserts a customer and returns it with generated fields.
func (r *Repository) Create(ctx context.Context, c Customer) (Customer, error) {
	err := r.pool.QueryRow(ctx, `
		INSERT INTO customers (customer_type_id, name, phone, line_id, email, billing_address, tax_id, notes)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING id, created_at, updated_at`,
		c.CustomerTypeID, c.Name, c.Phone, c.LineID, c.Email, c.BillingAddress, c.TaxID, c.Notes,
	).Scan(&c.ID, &c.CreatedAt, &c.UpdatedAt)
	return c, err
}

// UpdateInput carries optional fields of a customer update. Nil means keep.
type UpdateInput struct {
	CustomerTypeID *int64
	Name           *string
	Phone          *string
	LineID         *string
	Email          *string
	BillingAddress *string
	TaxID          *string
	Notes          *string
}

// Update applies the non-nil fields and returns the updated row.
func (r *Repository) Update(ctx context.Context, id int64, in UpdateInput) (Customer, error) {
	set := "updated_at = now()"
	args := []any{}
	argPos := 1
	add := func(column string, value any) {
		set += fmt.Sprintf(", %s = $%d", column, argPos)
		args = append(args, value)
		argPos++
	}
	if in.CustomerTypeID != nil {
		add("customer_type_id", *in.CustomerTypeID)
	}
	if in.Name != nil {
		add("name", *in.Name)
	}
	if in.Phone != nil {
		add("phone", *in.Phone)
	}
	if in.LineID != nil {
		add("line_id", *in.LineID)
	}
	if in.Email != nil {
		add("email", *in.Email)
	}
	if in.BillingAddress != nil {
		add("billing_address", *in.BillingAddress)
	}
	if in.TaxID != nil {
		add("tax_id", *in.TaxID)
	}
	if in.Notes != nil {
		add("notes", *in.Notes)
	}

	query := fmt.Sprintf("UPDATE customers SET %s WHERE id = $%d RETURNING "+customerColumns, set, argPos)
	args = append(args, id)
	return scanCustomer(r.pool.QueryRow(ctx, query, args...))
}

// GetSummary returns the customer with job count and outstanding balance.
func (r *Repository) GetSummary(ctx context.Context, id int64) (Summary, error) {
	var s Summary
	var err error
	s.Customer, err = r.Get(ctx, id)
	if err != nil {
		return Summary{}, err
	}
	var outstanding pgtype.Numeric
	err = r.pool.QueryRow(ctx, `
		SELECT COUNT(*),
		       COALESCE(SUM(
		           CASE WHEN j.payment_status IN ('unpaid', 'partial') AND j.status <> 'cancelled'
		                THEN j.quoted_price - j.discount_amount - COALESCE(p.total, 0)
		                ELSE 0 END), 0)
		FROM jobs j
		LEFT JOIN LATERAL (SELECT SUM(amount) AS total FROM payments WHERE job_id = j.id) p ON TRUE
		WHERE j.customer_id = $1`, id).Scan(&s.JobCount, &outstanding)
	if err != nil {
		return Summary{}, err
	}
	s.Outstanding = db.NumericToDecimal(outstanding)
	return s, nil
}

// ListTypes returns all customer types ordered by name.
func (r *Repository) ListTypes(ctx context.Context) ([]CustomerType, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT id, name, credit_days, discount_percent FROM customer_types ORDER BY name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []CustomerType
	for rows.Next() {
		var t CustomerType
		var discount pgtype.Numeric
		if err := rows.Scan(&t.ID, &t.Name, &t.CreditDays, &discount); err != nil {
			return nil, err
		}
		t.DiscountPercent = db.NumericToDecimal(discount)
		out = append(out, t)
	}
	return out, rows.Err()
}

// CreateType inserts a customer type.
func (r *Repository) CreateType(ctx context.Context, t CustomerType) (CustomerType, error) {
	err := r.pool.QueryRow(ctx, `
		INSERT INTO customer_types (name, credit_days, discount_percent)
		VALUES ($1, $2, $3)
		RETURNING id`,
		t.Name, t.CreditDays, db.DecimalToNumeric(t.DiscountPercent),
	).Scan(&t.ID)
	return t, err
}

func scanCustomer(row pgx.Row) (Customer, error) {
	var c Customer
	var typeID pgtype.Int8
	err := row.Scan(&c.ID, &typeID, &c.Name, &c.Phone, &c.LineID, &c.Email,
		&c.BillingAddress, &c.TaxID, &c.Notes, &c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Customer{}, ErrNotFound
		}
		return Customer{}, err
	}
	if typeID.Valid {
		c.CustomerTypeID = &typeID.Int64
	}
	return c, nil
}
