package payments

import (
	"context"
	"log/slog"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/pressdesk/pressdesk/internal/jobs"
)

type memoryPaymentRepo struct {
	pricing  map[int64]*JobPricing
	payments map[int64][]Payment
	accounts map[int64]BankAccount
	nextID   int64
}

type memoryPaymentTx struct {
	repo *memoryPaymentRepo
}

func newMemoryPaymentRepo() *memoryPaymentRepo {
	return &memoryPaymentRepo{
		pricing:  make(map[int64]*JobPricing),
		payments: make(map[int64][]Payment),
		accounts: make(map[int64]BankAccount),
	}
}

func (r *memoryPaymentRepo) WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	return fn(ctx, &memoryPaymentTx{repo: r})
}

func (r *memoryPaymentRepo) ListByJob(ctx context.Context, jobID int64) ([]Payment, error) {
	return append([]Payment(nil), r.payments[jobID]...), nil
}

func (r *memoryPaymentRepo) Get(ctx context.Context, id int64) (Payment, error) {
	for _, list := range r.payments {
		for _, p := range list {
			if p.ID == id {
				return p, nil
			}
		}
	}
	return Payment{}, ErrNotFound
}

func (r *memoryPaymentRepo) ListBankAccounts(ctx context.Context) ([]BankAccount, error) {
	var out []BankAccount
	for _, a := range r.accounts {
		out = append(out, a)
	}
	return out, nil
}

func (r *memoryPaymentRepo) GetBankAccount(ctx context.Context, id int64) (BankAccount, error) {
	a, ok := r.accounts[id]
	if !ok {
		return BankAccount{}, ErrNotFound
	}
	return a, nil
}

func (t *memoryPaymentTx) GetJobPricingForUpdate(ctx context.Context, jobID int64) (JobPricing, error) {
	p, ok := t.repo.pricing[jobID]
	if !ok {
		return JobPricing{}, ErrNotFound
	}
	return *p, nil
}

func (t *memoryPaymentTx) InsertPayment(ctx context.Context, p Payment) (int64, time.Time, error) {
	t.repo.nextID++
	p.ID = t.repo.nextID
	p.ReceivedAt = time.Now()
	t.repo.payments[p.JobID] = append(t.repo.payments[p.JobID], p)
	return p.ID, p.ReceivedAt, nil
}

func (t *memoryPaymentTx) SumPayments(ctx context.Context, jobID int64) (decimal.Decimal, error) {
	total := decimal.Zero
	for _, p := range t.repo.payments[jobID] {
		total = total.Add(p.Amount)
	}
	return total, nil
}

func (t *memoryPaymentTx) UpdateJobPaymentStatus(ctx context.Context, jobID int64, status jobs.PaymentStatus) error {
	t.repo.pricing[jobID].PaymentStatus = status
	return nil
}

type recordingNotifier struct {
	events []string
}

func (n *recordingNotifier) Dispatch(ctx context.Context, jobID int64, eventKind string) {
	n.events = append(n.events, eventKind)
}

func newTestService(t *testing.T) (*Service, *memoryPaymentRepo, *recordingNotifier) {
	t.Helper()
	repo := newMemoryPaymentRepo()
	notifier := &recordingNotifier{}
	return NewService(repo, notifier, slog.Default()), repo, notifier
}

func seedPricing(repo *memoryPaymentRepo, jobID int64, price, discount int64) {
	repo.pricing[jobID] = &JobPricing{
		JobID:          jobID,
		QuotedPrice:    decimal.NewFromInt(price),
		DiscountAmount: decimal.NewFromInt(discount),
		PaymentStatus:  jobs.PaymentUnpaid,
	}
}

func TestRecordProgressionUnpaidPartialPaid(t *testing.T) {
	svc, repo, notifier := newTestService(t)
	seedPricing(repo, 1, 300, 0)

	res, err := svc.Record(context.Background(), RecordInput{
		JobID: 1, Amount: decimal.NewFromInt(100), Method: MethodCash, ReceivedBy: 7,
	})
	require.NoError(t, err)
	require.Equal(t, jobs.PaymentPartial, res.PaymentStatus)
	require.True(t, res.TotalPaid.Equal(decimal.NewFromInt(100)))
	require.True(t, res.BalanceDue.Equal(decimal.NewFromInt(200)))

	res, err = svc.Record(context.Background(), RecordInput{
		JobID: 1, Amount: decimal.NewFromInt(200), Method: MethodPromptPay, ReceivedBy: 7,
	})
	require.NoError(t, err)
	require.Equal(t, jobs.PaymentPaid, res.PaymentStatus)
	require.True(t, res.TotalPaid.Equal(decimal.NewFromInt(300)))
	require.True(t, res.BalanceDue.IsZero())

	require.Equal(t, jobs.PaymentPaid, repo.pricing[1].PaymentStatus)
	require.Equal(t, []string{jobs.EventPaymentReceived, jobs.EventPaymentReceived}, notifier.events)
}

func TestRecordOverpaymentIsPaid(t *testing.T) {
	svc, repo, _ := newTestService(t)
	seedPricing(repo, 1, 300, 0)

	res, err := svc.Record(context.Background(), RecordInput{
		JobID: 1, Amount: decimal.NewFromInt(350), Method: MethodCash, ReceivedBy: 7,
	})
	require.NoError(t, err)
	require.Equal(t, jobs.PaymentPaid, res.PaymentStatus)
	require.True(t, res.BalanceDue.Equal(decimal.NewFromInt(-50)))
}

func TestRecordDiscountCountsTowardFullPayment(t *testing.T) {
	svc, repo, _ := newTestService(t)
	seedPricing(repo, 1, 300, 50)

	res, err := svc.Record(context.Background(), RecordInput{
		JobID: 1, Amount: decimal.NewFromInt(250), Method: MethodCash, ReceivedBy: 7,
	})
	require.NoError(t, err)
	require.Equal(t, jobs.PaymentPaid, res.PaymentStatus)
}

func TestRecordRejectsNegativeAmount(t *testing.T) {
	svc, repo, notifier := newTestService(t)
	seedPricing(repo, 1, 300, 0)

	_, err := svc.Record(context.Background(), RecordInput{
		JobID: 1, Amount: decimal.NewFromInt(-10), Method: MethodCash, ReceivedBy: 7,
	})
	require.ErrorIs(t, err, ErrValidation)
	require.Empty(t, repo.payments[1])
	require.Empty(t, notifier.events)
}

func TestRecordRejectsUnknownMethod(t *testing.T) {
	svc, repo, _ := newTestService(t)
	seedPricing(repo, 1, 300, 0)

	_, err := svc.Record(context.Background(), RecordInput{
		JobID: 1, Amount: decimal.NewFromInt(10), Method: Method("bitcoin"), ReceivedBy: 7,
	})
	require.ErrorIs(t, err, ErrValidation)
}

func TestRecordBankTransferRequiresAccount(t *testing.T) {
	svc, repo, _ := newTestService(t)
	seedPricing(repo, 1, 300, 0)

	_, err := svc.Record(context.Background(), RecordInput{
		JobID: 1, Amount: decimal.NewFromInt(100), Method: MethodBankTransfer, ReceivedBy: 7,
	})
	require.ErrorIs(t, err, ErrValidation)

	repo.accounts[3] = BankAccount{ID: 3, BankName: "KBank"}
	accountID := int64(3)
	res, err := svc.Record(context.Background(), RecordInput{
		JobID: 1, Amount: decimal.NewFromInt(100), Method: MethodBankTransfer,
		BankAccountID: &accountID, ReceivedBy: 7,
	})
	require.NoError(t, err)
	require.Equal(t, &accountID, res.Payment.BankAccountID)
}

func TestRecordComputesWithholdingTax(t *testing.T) {
	svc, repo, _ := newTestService(t)
	seedPricing(repo, 1, 1000, 0)

	res, err := svc.Record(context.Background(), RecordInput{
		JobID: 1, Amount: decimal.NewFromInt(1000), Method: MethodCash,
		ReceivedBy: 7, WHTRate: decimal.NewFromInt(3), WHTCertificateNo: "WHT-001",
	})
	require.NoError(t, err)
	require.True(t, res.Payment.WHTAmount.Equal(decimal.NewFromInt(30)))
}

func TestRecordReturnsStoredTimestamp(t *testing.T) {
	svc, repo, _ := newTestService(t)
	seedPricing(repo, 1, 300, 0)

	res, err := svc.Record(context.Background(), RecordInput{
		JobID: 1, Amount: decimal.NewFromInt(100), Method: MethodCash, ReceivedBy: 7,
	})
	require.NoError(t, err)
	require.False(t, res.Payment.ReceivedAt.IsZero())
	require.Equal(t, repo.payments[1][0].ReceivedAt, res.Payment.ReceivedAt)
}

type panickingNotifier struct{}

func (panickingNotifier) Dispatch(ctx context.Context, jobID int64, eventKind string) {
	panic("line is down")
}

func TestRecordSurvivesNotifierPanic(t *testing.T) {
	repo := newMemoryPaymentRepo()
	svc := NewService(repo, panickingNotifier{}, slog.Default())
	seedPricing(repo, 1, 300, 0)

	res, err := svc.Record(context.Background(), RecordInput{
		JobID: 1, Amount: decimal.NewFromInt(300), Method: MethodCash, ReceivedBy: 7,
	})
	require.NoError(t, err)
	require.Equal(t, jobs.PaymentPaid, res.PaymentStatus)
	require.Len(t, repo.payments[1], 1)
}

func TestRecordZeroAmountKeepsUnpaid(t *testing.T) {
	svc, repo, _ := newTestService(t)
	seedPricing(repo, 1, 300, 0)

	res, err := svc.Record(context.Background(), RecordInput{
		JobID: 1, Amount: decimal.Zero, Method: MethodCash, ReceivedBy: 7,
	})
	require.NoError(t, err)
	require.Equal(t, jobs.PaymentUnpaid, res.PaymentStatus)
}
