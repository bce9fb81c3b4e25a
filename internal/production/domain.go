package production

import (
	"errors"
	"time"

	"github.com/shopspring/decimal"
)

// Pricing methods for product types.
const (
	PricingFlat    = "flat"
	PricingPerSqm  = "per_sqm"
	PricingPerUnit = "per_unit"
)

// IsValidPricingMethod reports whether m is a known pricing method.
func IsValidPricingMethod(m string) bool {
	return m == PricingFlat || m == PricingPerSqm || m == PricingPerUnit
}

// ProductType is a kind of print work the shop offers, such as vinyl
// banners, stickers or business cards. Unit names end up on documents.
// RequiresDesign tells intake whether a new job goes through the design
// queue or straight to print.
type ProductType struct {
	ID             int64           `json:"id"`
	Name           string          `json:"name"`
	Unit           string          `json:"unit"`
	BasePrice      decimal.Decimal `json:"base_price"`
	PricePerSqm    decimal.Decimal `json:"price_per_sqm"`
	PricingMethod  string          `json:"pricing_method"`
	RequiresDesign bool            `json:"requires_design"`
	RequiresSizes  bool            `json:"requires_sizes"`
	SortOrder      int             `json:"sort_order"`
	Active         bool            `json:"active"`
}

// Material is a stock item consumed by production.
type Material struct {
	ID            int64           `json:"id"`
	Name          string          `json:"name"`
	Unit          string          `json:"unit"`
	StockQty      decimal.Decimal `json:"stock_qty"`
	ReorderLevel  decimal.Decimal `json:"reorder_level"`
	CostPerUnit   decimal.Decimal `json:"cost_per_unit"`
	Active        bool            `json:"active"`
	UpdatedAt     time.Time       `json:"updated_at"`
}

// LowStock reports whether the material has fallen to its reorder level.
func (m Material) LowStock() bool {
	return m.StockQty.LessThanOrEqual(m.ReorderLevel)
}

// Usage records material consumed by one job. Recording usage deducts the
// quantity from stock.
type Usage struct {
	ID         int64           `json:"id"`
	JobID      int64           `json:"job_id"`
	MaterialID int64           `json:"material_id"`
	Material   string          `json:"material,omitempty"`
	Quantity   decimal.Decimal `json:"quantity"`
	RecordedBy int64           `json:"recorded_by"`
	RecordedAt time.Time       `json:"recorded_at"`
}

var (
	ErrNotFound   = errors.New("production: not found")
	ErrValidation = errors.New("production: invalid input")
	// ErrInsufficientStock indicates a usage would drive stock negative.
	ErrInsufficientStock = errors.New("production: insufficient stock")
)
