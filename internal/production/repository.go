package production

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/pressdesk/pressdesk/internal/platform/db"
)

// Repository provides PostgreSQL backed persistence for production
// reference data and material stock.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// ListProductTypes returns product types, optionally only active ones.
func (r *Repository) ListProductTypes(ctx context.Context, activeOnly bool) ([]ProductType, error) {
	query := `SELECT id, name, unit, base_price, price_per_sqm, pricing_method, requires_design, requires_sizes, sort_order, active
		FROM product_types`
	if activeOnly {
		query += ` WHERE active`
	}
	query += ` ORDER BY sort_order, name`

	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []ProductType
	for rows.Next() {
		var pt ProductType
		var base, perSqm pgtype.Numeric
		if err := rows.Scan(&pt.ID, &pt.Name, &pt.Unit, &base, &perSqm,
			&pt.PricingMethod, &pt.RequiresDesign, &pt.RequiresSizes, &pt.SortOrder, &pt.Active); err != nil {
			return nil, err
		}
		pt.BasePrice = db.NumericToDecimal(base)
		pt.PricePerSqm = db.NumericToDecimal(perSqm)
		out = append(out, pt)
	}
	return out, rows.Err()
}

// CreateProductType inserts a product type.
func (r *Repository) CreateProductType(ctx context.Context, pt ProductType) (ProductType, error) {
	err := r.pool.QueryRow(ctx, `
		INSERT INTO product_types (name, unit, base_price, price_per_sqm, pricing_method, requires_design, requires_sizes, sort_order, active)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING id`,
		pt.Name, pt.Unit, db.DecimalToNumeric(pt.BasePrice), db.DecimalToNumeric(pt.PricePerSqm),
		pt.PricingMethod, pt.RequiresDesign, pt.RequiresSizes, pt.SortOrder, pt.Active,
	).Scan(&pt.ID)
	return pt, err
}

// ListMaterials returns materials, optionally only those at or below their
// reorder level.
func (r *Repository) ListMaterials(ctx context.Context, lowOnly bool) ([]Material, error) {
	query := `SELECT id, name, unit, stock_qty, reorder_level, cost_per_unit, active, updated_at
		FROM materials WHERE active`
	if lowOnly {
		query += ` AND stock_qty <= reorder_level`
	}
	query += ` ORDER BY name`

	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectMaterials(rows)
}

// CreateMaterial inserts a material.
func (r *Repository) CreateMaterial(ctx context.Context, m Material) (Material, error) {
	err := r.pool.QueryRow(ctx, `
		INSERT INTO materials (name, unit, stock_qty, reorder_level, cost_per_unit, active)
		VALUES ($1, $2, $3, $4, $5, TRUE)
		RETURNING id, updated_at`,
		m.Name, m.Unit, db.DecimalToNumeric(m.StockQty), db.DecimalToNumeric(m.ReorderLevel),
		db.DecimalToNumeric(m.CostPerUnit),
	).Scan(&m.ID, &m.UpdatedAt)
	m.Active = true
	return m, err
}

// AdjustStock sets a material's stock to an absolute quantity, for
// receiving deliveries and stocktake corrections.
func (r *Repository) AdjustStock(ctx context.Context, materialID int64, qty decimal.Decimal) (Material, error) {
	row := r.pool.QueryRow(ctx, `
		UPDATE materials SET stock_qty = $2, updated_at = now()
		WHERE id = $1
		RETURNING id, name, unit, stock_qty, reorder_level, cost_per_unit, active, updated_at`,
		materialID, db.DecimalToNumeric(qty))
	m, err := scanMaterial(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Material{}, ErrNotFound
		}
		return Material{}, err
	}
	return m, nil
}

// RecordUsage inserts a usage row and deducts the quantity from stock in
// one transaction, locking the material row to serialize deductions.
func (r *Repository) RecordUsage(ctx context.Context, u Usage) (Usage, error) {
	err := db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		var stock pgtype.Numeric
		err := tx.QueryRow(ctx,
			`SELECT stock_qty FROM materials WHERE id = $1 FOR UPDATE`, u.MaterialID).Scan(&stock)
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return ErrNotFound
			}
			return err
		}
		if db.NumericToDecimal(stock).LessThan(u.Quantity) {
			return ErrInsufficientStock
		}
		if _, err := tx.Exec(ctx, `
			UPDATE materials SET stock_qty = stock_qty - $2, updated_at = now() WHERE id = $1`,
			u.MaterialID, db.DecimalToNumeric(u.Quantity)); err != nil {
			return err
		}
		return tx.QueryRow(ctx, `
			INSERT INTO material_usages (job_id, material_id, quantity, recorded_by)
			VALUES ($1, $2, $3, $4)
			RETURNING id, recorded_at`,
			u.JobID, u.MaterialID, db.DecimalToNumeric(u.Quantity), u.RecordedBy,
		).Scan(&u.ID, &u.RecordedAt)
	})
	if err != nil {
		return Usage{}, err
	}
	return u, nil
}

// ListUsageByJob returns a job's material usage newest-first.
func (r *Repository) ListUsageByJob(ctx context.Context, jobID int64) ([]Usage, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT u.id, u.job_id, u.material_id, m.name, u.quantity, u.recorded_by, u.recorded_at
		FROM material_usages u
		JOIN materials m ON u.material_id = m.id
		WHERE u.job_id = $1
		ORDER BY u.recorded_at DESC`, jobID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Usage
	for rows.Next() {
		var u Usage
		var qty pgtype.Numeric
		if err := rows.Scan(&u.ID, &u.JobID, &u.MaterialID, &u.Material, &qty, &u.RecordedBy, &u.RecordedAt); err != nil {
			return nil, err
		}
		u.Quantity = db.NumericToDecimal(qty)
		out = append(out, u)
	}
	return out, rows.Err()
}

func collectMaterials(rows pgx.Rows) ([]Material, error) {
	var out []Material
	for rows.Next() {
		m, err := scanMaterial(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

func scanMaterial(row pgx.Row) (Material, error) {
	var m Material
	var stock, reorder, cost pgtype.Numeric
	err := row.Scan(&m.ID, &m.Name, &m.Unit, &stock, &reorder, &cost, &m.Active, &m.UpdatedAt)
	if err != nil {
		return Material{}, err
	}
	m.StockQty = db.NumericToDecimal(stock)
	m.ReorderLevel = db.NumericToDecimal(reorder)
	m.CostPerUnit = db.NumericToDecimal(cost)
	return m, nil
}
