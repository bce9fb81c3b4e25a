package jobs

import (
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Job lifecycle statuses.
type Status string

const (
	// Counter intake
	StatusPending Status = "pending"
	// Design workflow
	StatusDesigning        Status = "designing"
	StatusAwaitingApproval Status = "awaiting_approval"
	StatusRevision         Status = "revision"
	StatusApproved         Status = "approved"
	// Production
	StatusPrinting   Status = "printing"
	StatusCutting    Status = "cutting"
	StatusLaminating Status = "laminating"
	// Completion
	StatusReady     Status = "ready"
	StatusCompleted Status = "completed"
	// Special
	StatusCancelled Status = "cancelled"
	StatusOnHold    Status = "on_hold"
)

// allowedTransitions is the directed status graph. Completed and cancelled
// are terminal.
var allowedTransitions = map[Status]map[Status]struct{}{
	StatusPending:          statusSet(StatusDesigning, StatusPrinting, StatusOnHold, StatusCancelled),
	StatusDesigning:        statusSet(StatusAwaitingApproval, StatusRevision, StatusOnHold),
	StatusAwaitingApproval: statusSet(StatusApproved, StatusRevision),
	StatusRevision:         statusSet(StatusAwaitingApproval, StatusOnHold),
	StatusApproved:         statusSet(StatusPrinting, StatusOnHold),
	StatusPrinting:         statusSet(StatusCutting, StatusLaminating, StatusReady),
	StatusCutting:          statusSet(StatusLaminating, StatusReady),
	StatusLaminating:       statusSet(StatusReady),
	StatusReady:            statusSet(StatusCompleted),
	StatusCompleted:        statusSet(),
	StatusCancelled:        statusSet(),
	StatusOnHold:           statusSet(StatusPending, StatusDesigning, StatusPrinting),
}

func statusSet(statuses ...Status) map[Status]struct{} {
	set := make(map[Status]struct{}, len(statuses))
	for _, s := range statuses {
		set[s] = struct{}{}
	}
	return set
}

// IsValidStatus reports whether s is a defined lifecycle status.
func IsValidStatus(s Status) bool {
	_, ok := allowedTransitions[s]
	return ok
}

// CanTransition reports whether from -> to is an edge of the status graph.
func CanTransition(from, to Status) bool {
	_, ok := allowedTransitions[from][to]
	return ok
}

// AllowedNext returns the permitted destination statuses for from, sorted
// for stable presentation.
func AllowedNext(from Status) []Status {
	set := allowedTransitions[from]
	out := make([]Status, 0, len(set))
	for s := range set {
		out = append(out, s)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// PaymentStatus is derived from payments received against the job price.
type PaymentStatus string

const (
	PaymentUnpaid  PaymentStatus = "unpaid"
	PaymentPartial PaymentStatus = "partial"
	PaymentPaid    PaymentStatus = "paid"
)

// DerivePaymentStatus computes the payment status from the paid total and
// the effective price (quoted_price - discount_amount).
func DerivePaymentStatus(totalPaid, quotedPrice, discountAmount decimal.Decimal) PaymentStatus {
	if totalPaid.LessThanOrEqual(decimal.Zero) {
		return PaymentUnpaid
	}
	if totalPaid.GreaterThanOrEqual(quotedPrice.Sub(discountAmount)) {
		return PaymentPaid
	}
	return PaymentPartial
}

// Job is one customer print order.
type Job struct {
	ID               int64            `json:"id"`
	CustomerID       int64            `json:"customer_id"`
	ProductTypeID    int64            `json:"product_type_id"`
	AssignedDesigner *int64           `json:"assigned_designer,omitempty"`
	Title            string           `json:"title"`
	Description      string           `json:"description,omitempty"`
	Quantity         int              `json:"quantity"`
	WidthCM          *decimal.Decimal `json:"width_cm,omitempty"`
	HeightCM         *decimal.Decimal `json:"height_cm,omitempty"`
	QuotedPrice      decimal.Decimal  `json:"quoted_price"`
	DepositAmount    decimal.Decimal  `json:"deposit_amount"`
	DiscountAmount   decimal.Decimal  `json:"discount_amount"`
	Status           Status           `json:"status"`
	PaymentStatus    PaymentStatus    `json:"payment_status"`
	DueDate          *time.Time       `json:"due_date,omitempty"`
	CreatedBy        int64            `json:"created_by"`
	CreatedAt        time.Time        `json:"created_at"`
	UpdatedAt        time.Time        `json:"updated_at"`
	TrackingToken    uuid.UUID        `json:"tracking_token"`
	InternalNotes    string           `json:"internal_notes,omitempty"`
}

// EffectivePrice is the amount the customer owes before payments.
func (j Job) EffectivePrice() decimal.Decimal {
	return j.QuotedPrice.Sub(j.DiscountAmount)
}

// StatusHistory is an immutable record of one status transition.
type StatusHistory struct {
	ID         int64     `json:"id"`
	JobID      int64     `json:"job_id"`
	FromStatus Status    `json:"from_status"`
	ToStatus   Status    `json:"to_status"`
	ChangedBy  *int64    `json:"changed_by,omitempty"`
	Note       string    `json:"note,omitempty"`
	ChangedAt  time.Time `json:"changed_at"`
}

// Approval decision values.
type Decision string

const (
	DecisionApproved Decision = "approved"
	DecisionRevision Decision = "revision"
)

// Approval records a customer design decision, staff-logged or made
// directly through the public tracking page.
type Approval struct {
	ID                int64     `json:"id"`
	JobID             int64     `json:"job_id"`
	Decision          Decision  `json:"decision"`
	RevisionNotes     string    `json:"revision_notes,omitempty"`
	DecidedByCustomer bool      `json:"decided_by_customer"`
	ApprovedByName    string    `json:"approved_by_name,omitempty"`
	ApprovedByIP      string    `json:"approved_by_ip,omitempty"`
	DecidedAt         time.Time `json:"decided_at"`
}

var (
	// ErrNotFound indicates the job does not exist.
	ErrNotFound = errors.New("jobs: not found")
	// ErrValidation indicates invalid input.
	ErrValidation = errors.New("jobs: invalid input")
)

// InvalidTransitionError reports a status change that is not an edge of the
// transition graph. The job is left untouched.
type InvalidTransitionError struct {
	From    Status
	To      Status
	Allowed []Status
}

func (e *InvalidTransitionError) Error() string {
	return fmt.Sprintf("jobs: cannot transition from %q to %q (allowed: %v)", e.From, e.To, e.Allowed)
}

func newInvalidTransition(from, to Status) *InvalidTransitionError {
	return &InvalidTransitionError{From: from, To: to, Allowed: AllowedNext(from)}
}
