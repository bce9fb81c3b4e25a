package documents

import (
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// Financial document types.
type Type string

const (
	TypeQuotation  Type = "quotation"
	TypeTaxInvoice Type = "tax_invoice"
	TypeReceipt    Type = "receipt"
	TypeCreditNote Type = "credit_note"
)

// IsValidType reports whether t is a known document type.
func IsValidType(t Type) bool {
	switch t {
	case TypeQuotation, TypeTaxInvoice, TypeReceipt, TypeCreditNote:
		return true
	}
	return false
}

// numberPrefixes keeps each type's sequence independent on paper:
// QT-2026-00001, IV-2026-00001, RC-2026-00001, CN-2026-00001.
var numberPrefixes = map[Type]string{
	TypeQuotation:  "QT",
	TypeTaxInvoice: "IV",
	TypeReceipt:    "RC",
	TypeCreditNote: "CN",
}

// Prefix returns the two-letter document number prefix, falling back to TX
// for unmapped types.
func Prefix(t Type) string {
	if p, ok := numberPrefixes[t]; ok {
		return p
	}
	return "TX"
}

// FormatNumber renders the canonical document number: prefix, 4-digit year
// and zero-padded 5-digit sequence joined by hyphens.
func FormatNumber(t Type, year, sequence int) string {
	return fmt.Sprintf("%s-%04d-%05d", Prefix(t), year, sequence)
}

// Document is an issued financial artifact. Identity and amount fields are
// immutable after creation; corrections are made by voiding and reissuing.
type Document struct {
	ID             int64  `json:"id"`
	JobID          int64  `json:"job_id"`
	Type           Type   `json:"document_type"`
	DocumentNumber string `json:"document_number"`
	Sequence       int    `json:"sequence"`
	Year           int    `json:"year"`

	// Customer snapshot at issue time.
	CustomerName    string `json:"customer_name"`
	CustomerAddress string `json:"customer_address,omitempty"`
	CustomerTaxID   string `json:"customer_tax_id,omitempty"`

	Subtotal    decimal.Decimal `json:"subtotal"`
	VATRate     decimal.Decimal `json:"vat_rate"`
	VATAmount   decimal.Decimal `json:"vat_amount"`
	TotalAmount decimal.Decimal `json:"total_amount"`

	IssuedBy int64     `json:"issued_by"`
	IssuedAt time.Time `json:"issued_at"`
	Notes    string    `json:"notes,omitempty"`
	IsVoid   bool      `json:"is_void"`

	Items []Item `json:"items,omitempty"`
}

// Item is one document line.
type Item struct {
	ID          int64           `json:"id"`
	DocumentID  int64           `json:"document_id"`
	Description string          `json:"description"`
	Quantity    decimal.Decimal `json:"quantity"`
	Unit        string          `json:"unit"`
	UnitPrice   decimal.Decimal `json:"unit_price"`
	Amount      decimal.Decimal `json:"amount"`
}

var (
	// ErrNotFound indicates the document does not exist.
	ErrNotFound = errors.New("documents: not found")
	// ErrValidation indicates invalid input.
	ErrValidation = errors.New("documents: invalid input")
	// ErrAllocationFailed indicates the numbering transaction could not
	// complete. Nothing was persisted; the whole operation is safe to retry.
	ErrAllocationFailed = errors.New("documents: sequence allocation failed")
)
