package payments

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/shopspring/decimal"

	"github.com/pressdesk/pressdesk/internal/jobs"
)

// RepositoryPort describes repository operations used by Service.
type RepositoryPort interface {
	WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error
	ListByJob(ctx context.Context, jobID int64) ([]Payment, error)
	Get(ctx context.Context, id int64) (Payment, error)
	ListBankAccounts(ctx context.Context) ([]BankAccount, error)
	GetBankAccount(ctx context.Context, id int64) (BankAccount, error)
}

// Notifier dispatches fire-and-forget customer notifications.
type Notifier interface {
	Dispatch(ctx context.Context, jobID int64, eventKind string)
}

// Service records payments and keeps the parent job's payment_status
// consistent with the sum of its payments. The recomputation happens only
// here: editing a job's price fields does not touch payment_status until the
// next payment write.
type Service struct {
	repo     RepositoryPort
	notifier Notifier
	logger   *slog.Logger
}

// NewService constructs the payment service.
func NewService(repo RepositoryPort, notifier Notifier, logger *slog.Logger) *Service {
	return &Service{repo: repo, notifier: notifier, logger: logger}
}

// RecordInput describes one received payment.
type RecordInput struct {
	JobID            int64
	Amount           decimal.Decimal
	Method           Method
	BankAccountID    *int64
	ReferenceNumber  string
	IsDeposit        bool
	ReceivedBy       int64
	Notes            string
	WHTRate          decimal.Decimal
	WHTCertificateNo string
}

// Result reports the state of the job after reconciliation.
type Result struct {
	Payment       Payment            `json:"payment"`
	TotalPaid     decimal.Decimal    `json:"total_paid"`
	PaymentStatus jobs.PaymentStatus `json:"payment_status"`
	BalanceDue    decimal.Decimal    `json:"balance_due"`
}

// Record persists the payment and recomputes the job's payment_status in the
// same transaction. The sum is read inside that transaction so concurrent
// writes cannot be double-counted or missed.
func (s *Service) Record(ctx context.Context, input RecordInput) (Result, error) {
	if input.Amount.IsNegative() {
		return Result{}, fmt.Errorf("%w: amount must not be negative", ErrValidation)
	}
	if !IsValidMethod(input.Method) {
		return Result{}, fmt.Errorf("%w: unknown payment method %q", ErrValidation, input.Method)
	}
	if input.Method == MethodBankTransfer && input.BankAccountID == nil {
		return Result{}, fmt.Errorf("%w: bank_transfer requires a bank account", ErrValidation)
	}
	if input.BankAccountID != nil {
		if _, err := s.repo.GetBankAccount(ctx, *input.BankAccountID); err != nil {
			if errors.Is(err, ErrNotFound) {
				return Result{}, fmt.Errorf("%w: bank account not found", ErrValidation)
			}
			return Result{}, err
		}
	}
	if input.WHTRate.IsNegative() {
		return Result{}, fmt.Errorf("%w: wht_rate must not be negative", ErrValidation)
	}

	payment := Payment{
		JobID:            input.JobID,
		Amount:           input.Amount,
		Method:           input.Method,
		BankAccountID:    input.BankAccountID,
		ReferenceNumber:  input.ReferenceNumber,
		IsDeposit:        input.IsDeposit,
		ReceivedBy:       input.ReceivedBy,
		Notes:            input.Notes,
		WHTRate:          input.WHTRate,
		WHTCertificateNo: input.WHTCertificateNo,
		WHTAmount:        input.Amount.Mul(input.WHTRate).Div(decimal.NewFromInt(100)).Round(2),
	}

	var result Result
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		pricing, err := tx.GetJobPricingForUpdate(ctx, input.JobID)
		if err != nil {
			return err
		}

		id, receivedAt, err := tx.InsertPayment(ctx, payment)
		if err != nil {
			return err
		}
		payment.ID = id
		payment.ReceivedAt = receivedAt

		totalPaid, err := tx.SumPayments(ctx, input.JobID)
		if err != nil {
			return err
		}

		derived := jobs.DerivePaymentStatus(totalPaid, pricing.QuotedPrice, pricing.DiscountAmount)
		if derived != pricing.PaymentStatus {
			if err := tx.UpdateJobPaymentStatus(ctx, input.JobID, derived); err != nil {
				return err
			}
		}

		result = Result{
			Payment:       payment,
			TotalPaid:     totalPaid,
			PaymentStatus: derived,
			BalanceDue:    pricing.QuotedPrice.Sub(pricing.DiscountAmount).Sub(totalPaid),
		}
		return nil
	})
	if err != nil {
		return Result{}, err
	}

	s.dispatch(ctx, input.JobID)
	return result, nil
}

func (s *Service) dispatch(ctx context.Context, jobID int64) {
	if s.notifier == nil {
		return
	}
	defer func() {
		if rec := recover(); rec != nil {
			s.logger.Error("notification dispatch panicked",
				slog.Int64("job_id", jobID), slog.Any("panic", rec))
		}
	}()
	s.notifier.Dispatch(ctx, jobID, jobs.EventPaymentReceived)
}

// ListByJob returns a job's payments newest-first.
func (s *Service) ListByJob(ctx context.Context, jobID int64) ([]Payment, error) {
	return s.repo.ListByJob(ctx, jobID)
}

// BankAccounts lists active shop accounts for the payment screen.
func (s *Service) BankAccounts(ctx context.Context) ([]BankAccount, error) {
	return s.repo.ListBankAccounts(ctx)
}
