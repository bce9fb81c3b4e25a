package jobs

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Outbound notification event kinds emitted by the job workflow.
const (
	EventStatusChange    = "status_change"
	EventProofReady      = "proof_ready"
	EventPaymentReceived = "payment_received"
)

// RepositoryPort describes repository operations used by Service.
type RepositoryPort interface {
	WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error
	Get(ctx context.Context, id int64) (Job, error)
	GetByTrackingToken(ctx context.Context, token uuid.UUID) (Job, error)
	List(ctx context.Context, req ListJobsRequest) ([]Job, int, error)
	Create(ctx context.Context, job Job) (int64, error)
	Update(ctx context.Context, id int64, in UpdateInput) error
	ListHistory(ctx context.Context, jobID int64) ([]StatusHistory, error)
	SumPayments(ctx context.Context, jobID int64) (decimal.Decimal, error)
}

// Notifier dispatches an outbound customer notification for a job event.
// Dispatch is fire-and-forget: failures are logged by the implementation and
// must never surface into the workflow that triggered them.
type Notifier interface {
	Dispatch(ctx context.Context, jobID int64, eventKind string)
}

// Service owns the job workflow: intake, the status state machine and its
// audit trail, and derived balance reads.
type Service struct {
	repo     RepositoryPort
	notifier Notifier
	logger   *slog.Logger
}

// NewService constructs the job service.
func NewService(repo RepositoryPort, notifier Notifier, logger *slog.Logger) *Service {
	return &Service{repo: repo, notifier: notifier, logger: logger}
}

// CreateInput describes a new job from counter intake.
type CreateInput struct {
	CustomerID       int64
	ProductTypeID    int64
	AssignedDesigner *int64
	Title            string
	Description      string
	Quantity         int
	WidthCM          *decimal.Decimal
	HeightCM         *decimal.Decimal
	QuotedPrice      decimal.Decimal
	DepositAmount    decimal.Decimal
	DiscountAmount   decimal.Decimal
	DueDate          *time.Time
	InternalNotes    string
	CreatedBy        int64
}

// Create registers a job in pending status with a fresh tracking token.
func (s *Service) Create(ctx context.Context, input CreateInput) (Job, error) {
	if input.Title == "" || input.CustomerID == 0 || input.ProductTypeID == 0 {
		return Job{}, ErrValidation
	}
	if input.Quantity < 1 {
		input.Quantity = 1
	}
	if input.QuotedPrice.IsNegative() || input.DepositAmount.IsNegative() || input.DiscountAmount.IsNegative() {
		return Job{}, fmt.Errorf("%w: monetary fields must not be negative", ErrValidation)
	}

	job := Job{
		CustomerID:       input.CustomerID,
		ProductTypeID:    input.ProductTypeID,
		AssignedDesigner: input.AssignedDesigner,
		Title:            input.Title,
		Description:      input.Description,
		Quantity:         input.Quantity,
		WidthCM:          input.WidthCM,
		HeightCM:         input.HeightCM,
		QuotedPrice:      input.QuotedPrice,
		DepositAmount:    input.DepositAmount,
		DiscountAmount:   input.DiscountAmount,
		Status:           StatusPending,
		PaymentStatus:    PaymentUnpaid,
		DueDate:          input.DueDate,
		CreatedBy:        input.CreatedBy,
		TrackingToken:    uuid.New(),
		InternalNotes:    input.InternalNotes,
	}
	id, err := s.repo.Create(ctx, job)
	if err != nil {
		return Job{}, fmt.Errorf("create job: %w", err)
	}
	return s.repo.Get(ctx, id)
}

// Get returns one job.
func (s *Service) Get(ctx context.Context, id int64) (Job, error) {
	return s.repo.Get(ctx, id)
}

// GetByTrackingToken resolves a public tracking token.
func (s *Service) GetByTrackingToken(ctx context.Context, token uuid.UUID) (Job, error) {
	return s.repo.GetByTrackingToken(ctx, token)
}

// List returns jobs matching the filter.
func (s *Service) List(ctx context.Context, req ListJobsRequest) ([]Job, int, error) {
	if req.Limit <= 0 || req.Limit > 200 {
		req.Limit = 50
	}
	return s.repo.List(ctx, req)
}

// Update applies detail edits. Price edits do not recompute payment_status;
// that only happens on the next payment write.
func (s *Service) Update(ctx context.Context, id int64, in UpdateInput) (Job, error) {
	if in.QuotedPrice != nil && in.QuotedPrice.IsNegative() {
		return Job{}, fmt.Errorf("%w: quoted_price must not be negative", ErrValidation)
	}
	if in.DiscountAmount != nil && in.DiscountAmount.IsNegative() {
		return Job{}, fmt.Errorf("%w: discount_amount must not be negative", ErrValidation)
	}
	if err := s.repo.Update(ctx, id, in); err != nil {
		return Job{}, err
	}
	return s.repo.Get(ctx, id)
}

// Transition moves a job along the status graph. The current status is
// re-read under a row lock inside the transaction, the new status persisted,
// and exactly one history row appended; all of it commits or none of it does.
// actor is nil for customer-initiated transitions from the public tracking
// page. approval, when non-nil, is recorded in the same transaction.
func (s *Service) Transition(ctx context.Context, jobID int64, newStatus Status, actor *int64, note string, approval *Approval) (Job, error) {
	if !IsValidStatus(newStatus) {
		return Job{}, fmt.Errorf("%w: unknown status %q", ErrValidation, newStatus)
	}

	var updated Job
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		job, err := tx.GetForUpdate(ctx, jobID)
		if err != nil {
			return err
		}
		if !CanTransition(job.Status, newStatus) {
			return newInvalidTransition(job.Status, newStatus)
		}
		if err := tx.UpdateStatus(ctx, jobID, newStatus); err != nil {
			return err
		}
		if err := tx.InsertHistory(ctx, StatusHistory{
			JobID:      jobID,
			FromStatus: job.Status,
			ToStatus:   newStatus,
			ChangedBy:  actor,
			Note:       note,
		}); err != nil {
			return err
		}
		if approval != nil {
			approval.JobID = jobID
			if err := tx.InsertApproval(ctx, *approval); err != nil {
				return err
			}
		}
		updated = job
		updated.Status = newStatus
		return nil
	})
	if err != nil {
		return Job{}, err
	}

	s.dispatch(ctx, jobID, EventStatusChange)
	if newStatus == StatusAwaitingApproval {
		s.dispatch(ctx, jobID, EventProofReady)
	}
	return updated, nil
}

// History returns the transition log newest-first.
func (s *Service) History(ctx context.Context, jobID int64) ([]StatusHistory, error) {
	if _, err := s.repo.Get(ctx, jobID); err != nil {
		return nil, err
	}
	return s.repo.ListHistory(ctx, jobID)
}

// Balance returns quoted_price - discount_amount - total_paid.
func (s *Service) Balance(ctx context.Context, jobID int64) (decimal.Decimal, error) {
	job, err := s.repo.Get(ctx, jobID)
	if err != nil {
		return decimal.Zero, err
	}
	paid, err := s.repo.SumPayments(ctx, jobID)
	if err != nil {
		return decimal.Zero, err
	}
	return job.EffectivePrice().Sub(paid), nil
}

// TotalPaid sums all payments recorded against the job.
func (s *Service) TotalPaid(ctx context.Context, jobID int64) (decimal.Decimal, error) {
	return s.repo.SumPayments(ctx, jobID)
}

func (s *Service) dispatch(ctx context.Context, jobID int64, eventKind string) {
	if s.notifier == nil {
		return
	}
	defer func() {
		if rec := recover(); rec != nil {
			s.logger.Error("notification dispatch panicked",
				slog.Int64("job_id", jobID), slog.String("event", eventKind), slog.Any("panic", rec))
		}
	}()
	s.notifier.Dispatch(ctx, jobID, eventKind)
}
