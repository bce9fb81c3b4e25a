package jobs

import (
	"time"

	"github.com/shopspring/decimal"
)

type CreateJobRequest struct {
	CustomerID       int64            `json:"customer_id" validate:"required,gt=0"`
	ProductTypeID    int64            `json:"product_type_id" validate:"required,gt=0"`
	AssignedDesigner *int64           `json:"assigned_designer,omitempty" validate:"omitempty,gt=0"`
	Title            string           `json:"title" validate:"required,max=200"`
	Description      string           `json:"description,omitempty"`
	Quantity         int              `json:"quantity" validate:"gte=0"`
	WidthCM          *decimal.Decimal `json:"width_cm,omitempty"`
	HeightCM         *decimal.Decimal `json:"height_cm,omitempty"`
	QuotedPrice      decimal.Decimal  `json:"quoted_price"`
	DepositAmount    decimal.Decimal  `json:"deposit_amount"`
	DiscountAmount   decimal.Decimal  `json:"discount_amount"`
	DueDate          *time.Time       `json:"due_date,omitempty"`
	InternalNotes    string           `json:"internal_notes,omitempty"`
}

type UpdateJobRequest struct {
	Title            *string          `json:"title,omitempty" validate:"omitempty,max=200"`
	Description      *string          `json:"description,omitempty"`
	Quantity         *int             `json:"quantity,omitempty" validate:"omitempty,gte=1"`
	WidthCM          *decimal.Decimal `json:"width_cm,omitempty"`
	HeightCM         *decimal.Decimal `json:"height_cm,omitempty"`
	QuotedPrice      *decimal.Decimal `json:"quoted_price,omitempty"`
	DepositAmount    *decimal.Decimal `json:"deposit_amount,omitempty"`
	DiscountAmount   *decimal.Decimal `json:"discount_amount,omitempty"`
	DueDate          *time.Time       `json:"due_date,omitempty"`
	AssignedDesigner *int64           `json:"assigned_designer,omitempty" validate:"omitempty,gt=0"`
	InternalNotes    *string          `json:"internal_notes,omitempty"`
}

type TransitionRequest struct {
	Status Status `json:"status" validate:"required"`
	Note   string `json:"note,omitempty" validate:"max=2000"`
}

// JobResponse augments the job with its derived money figures.
type JobResponse struct {
	Job
	TotalPaid  decimal.Decimal `json:"total_paid"`
	BalanceDue decimal.Decimal `json:"balance_due"`
}

type ListJobsResponse struct {
	Jobs  []Job `json:"jobs"`
	Total int   `json:"total"`
}

type HistoryResponse struct {
	JobID   int64           `json:"job_id"`
	History []StatusHistory `json:"history"`
}

type BalanceResponse struct {
	JobID      int64           `json:"job_id"`
	BalanceDue decimal.Decimal `json:"balance_due"`
}
