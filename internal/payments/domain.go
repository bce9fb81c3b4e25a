package payments

import (
	"errors"
	"time"

	"github.com/shopspring/decimal"
)

// Payment methods accepted at the counter.
type Method string

const (
	MethodCash         Method = "cash"
	MethodPromptPay    Method = "promptpay"
	MethodBankTransfer Method = "bank_transfer"
	MethodCreditCard   Method = "credit_card"
	MethodCheque       Method = "cheque"
)

// IsValidMethod reports whether m is a known payment method.
func IsValidMethod(m Method) bool {
	switch m {
	case MethodCash, MethodPromptPay, MethodBankTransfer, MethodCreditCard, MethodCheque:
		return true
	}
	return false
}

// Payment is one money-received event against a job. Payments are never
// updated or deleted after creation; corrections go through credit notes.
type Payment struct {
	ID              int64           `json:"id"`
	JobID           int64           `json:"job_id"`
	Amount          decimal.Decimal `json:"amount"`
	Method          Method          `json:"method"`
	BankAccountID   *int64          `json:"bank_account_id,omitempty"`
	ReferenceNumber string          `json:"reference_number,omitempty"`
	IsDeposit       bool            `json:"is_deposit"`
	ReceivedBy      int64           `json:"received_by"`
	ReceivedAt      time.Time       `json:"received_at"`
	Notes           string          `json:"notes,omitempty"`

	// Withholding tax fields for corporate customers.
	WHTRate          decimal.Decimal `json:"wht_rate"`
	WHTAmount        decimal.Decimal `json:"wht_amount"`
	WHTCertificateNo string          `json:"wht_certificate_no,omitempty"`
}

// BankAccount is shop reference data shown on the payment screen.
type BankAccount struct {
	ID            int64  `json:"id"`
	BankName      string `json:"bank_name"`
	AccountName   string `json:"account_name"`
	AccountNumber string `json:"account_number"`
	PromptPayID   string `json:"promptpay_id,omitempty"`
	IsActive      bool   `json:"is_active"`
	SortOrder     int    `json:"sort_order"`
}

var (
	// ErrNotFound indicates the record does not exist.
	ErrNotFound = errors.New("payments: not found")
	// ErrValidation indicates invalid input.
	ErrValidation = errors.New("payments: invalid input")
)
