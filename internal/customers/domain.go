package customers

import (
	"errors"
	"time"

	"github.com/shopspring/decimal"
)

// CustomerType classifies customers for pricing and credit terms. Walk-in
// customers typically carry zero credit days; corporate accounts get terms.
type CustomerType struct {
	ID              int64           `json:"id"`
	Name            string          `json:"name"`
	CreditDays      int             `json:"credit_days"`
	DiscountPercent decimal.Decimal `json:"discount_percent"`
}

// Customer is a print-shop client.
type Customer struct {
	ID             int64     `json:"id"`
	CustomerTypeID *int64    `json:"customer_type_id,omitempty"`
	Name           string    `json:"name"`
	Phone          string    `json:"phone,omitempty"`
	LineID         string    `json:"line_id,omitempty"`
	Email          string    `json:"email,omitempty"`
	BillingAddress string    `json:"billing_address,omitempty"`
	TaxID          string    `json:"tax_id,omitempty"`
	Notes          string    `json:"notes,omitempty"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

// Summary extends a customer with aggregate job figures.
type Summary struct {
	Customer
	JobCount    int             `json:"job_count"`
	Outstanding decimal.Decimal `json:"outstanding"`
}

var (
	ErrNotFound   = errors.New("customers: not found")
	ErrValidation = errors.New("customers: invalid input")
)
