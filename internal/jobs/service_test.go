package jobs

import (
	"context"
	"log/slog"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

type memoryJobRepo struct {
	jobs      map[int64]Job
	history   map[int64][]StatusHistory
	approvals map[int64][]Approval
	payments  map[int64]decimal.Decimal
	nextID    int64
}

type memoryJobTx struct {
	repo *memoryJobRepo
}

func newMemoryJobRepo() *memoryJobRepo {
	return &memoryJobRepo{
		jobs:      make(map[int64]Job),
		history:   make(map[int64][]StatusHistory),
		approvals: make(map[int64][]Approval),
		payments:  make(map[int64]decimal.Decimal),
	}
}

func (r *memoryJobRepo) WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	return fn(ctx, &memoryJobTx{repo: r})
}

func (r *memoryJobRepo) Get(ctx context.Context, id int64) (Job, error) {
	job, ok := r.jobs[id]
	if !ok {
		return Job{}, ErrNotFound
	}
	return job, nil
}

func (r *memoryJobRepo) GetByTrackingToken(ctx context.Context, token uuid.UUID) (Job, error) {
	for _, job := range r.jobs {
		if job.TrackingToken == token {
			return job, nil
		}
	}
	return Job{}, ErrNotFound
}

func (r *memoryJobRepo) List(ctx context.Context, req ListJobsRequest) ([]Job, int, error) {
	var out []Job
	for _, job := range r.jobs {
		if req.Status != nil && job.Status != *req.Status {
			continue
		}
		out = append(out, job)
	}
	return out, len(out), nil
}

func (r *memoryJobRepo) Create(ctx context.Context, job Job) (int64, error) {
	r.nextID++
	job.ID = r.nextID
	job.CreatedAt = time.Now()
	job.UpdatedAt = job.CreatedAt
	r.jobs[job.ID] = job
	return job.ID, nil
}

func (r *memoryJobRepo) Update(ctx context.Context, id int64, in UpdateInput) error {
	job, ok := r.jobs[id]
	if !ok {
		return ErrNotFound
	}
	if in.Title != nil {
		job.Title = *in.Title
	}
	if in.QuotedPrice != nil {
		job.QuotedPrice = *in.QuotedPrice
	}
	if in.DiscountAmount != nil {
		job.DiscountAmount = *in.DiscountAmount
	}
	r.jobs[id] = job
	return nil
}

func (r *memoryJobRepo) ListHistory(ctx context.Context, jobID int64) ([]StatusHistory, error) {
	return append([]StatusHistory(nil), r.history[jobID]...), nil
}

func (r *memoryJobRepo) SumPayments(ctx context.Context, jobID int64) (decimal.Decimal, error) {
	return r.payments[jobID], nil
}

func (t *memoryJobTx) GetForUpdate(ctx context.Context, id int64) (Job, error) {
	return t.repo.Get(ctx, id)
}

func (t *memoryJobTx) UpdateStatus(ctx context.Context, id int64, status Status) error {
	job, ok := t.repo.jobs[id]
	if !ok {
		return ErrNotFound
	}
	job.Status = status
	job.UpdatedAt = time.Now()
	t.repo.jobs[id] = job
	return nil
}

func (t *memoryJobTx) InsertHistory(ctx context.Context, h StatusHistory) error {
	h.ChangedAt = time.Now()
	t.repo.history[h.JobID] = append(t.repo.history[h.JobID], h)
	return nil
}

func (t *memoryJobTx) InsertApproval(ctx context.Context, a Approval) error {
	a.DecidedAt = time.Now()
	t.repo.approvals[a.JobID] = append(t.repo.approvals[a.JobID], a)
	return nil
}

type recordingNotifier struct {
	events []string
}

func (n *recordingNotifier) Dispatch(ctx context.Context, jobID int64, eventKind string) {
	n.events = append(n.events, eventKind)
}

func newTestService(t *testing.T) (*Service, *memoryJobRepo, *recordingNotifier) {
	t.Helper()
	repo := newMemoryJobRepo()
	notifier := &recordingNotifier{}
	return NewService(repo, notifier, slog.Default()), repo, notifier
}

func seedJob(t *testing.T, svc *Service) Job {
	t.Helper()
	job, err := svc.Create(context.Background(), CreateInput{
		CustomerID:    1,
		ProductTypeID: 1,
		Title:         "Vinyl banner 3x2m",
		Quantity:      2,
		QuotedPrice:   decimal.NewFromInt(1500),
		CreatedBy:     7,
	})
	require.NoError(t, err)
	return job
}

func TestCreateDefaults(t *testing.T) {
	svc, _, _ := newTestService(t)

	job, err := svc.Create(context.Background(), CreateInput{
		CustomerID:    1,
		ProductTypeID: 2,
		Title:         "Stickers",
		Quantity:      0,
		CreatedBy:     7,
	})
	require.NoError(t, err)
	require.Equal(t, StatusPending, job.Status)
	require.Equal(t, PaymentUnpaid, job.PaymentStatus)
	require.Equal(t, 1, job.Quantity)
	require.NotEqual(t, uuid.Nil, job.TrackingToken)
}

func TestCreateRejectsNegativeMoney(t *testing.T) {
	svc, _, _ := newTestService(t)

	_, err := svc.Create(context.Background(), CreateInput{
		CustomerID:    1,
		ProductTypeID: 1,
		Title:         "Banner",
		QuotedPrice:   decimal.NewFromInt(-10),
		CreatedBy:     7,
	})
	require.ErrorIs(t, err, ErrValidation)
}

func TestTransitionRecordsHistory(t *testing.T) {
	svc, repo, notifier := newTestService(t)
	job := seedJob(t, svc)
	actor := int64(7)

	updated, err := svc.Transition(context.Background(), job.ID, StatusDesigning, &actor, "assigned to design", nil)
	require.NoError(t, err)
	require.Equal(t, StatusDesigning, updated.Status)

	history := repo.history[job.ID]
	require.Len(t, history, 1)
	require.Equal(t, StatusPending, history[0].FromStatus)
	require.Equal(t, StatusDesigning, history[0].ToStatus)
	require.Equal(t, &actor, history[0].ChangedBy)
	require.Equal(t, "assigned to design", history[0].Note)

	require.Equal(t, []string{EventStatusChange}, notifier.events)
}

func TestTransitionInvalidLeavesJobUntouched(t *testing.T) {
	svc, repo, notifier := newTestService(t)
	job := seedJob(t, svc)
	actor := int64(7)

	_, err := svc.Transition(context.Background(), job.ID, StatusPrinting, &actor, "", nil)

	var invalid *InvalidTransitionError
	require.ErrorAs(t, err, &invalid)
	require.Equal(t, StatusPending, invalid.From)
	require.Equal(t, StatusPrinting, invalid.To)
	require.Equal(t, []Status{StatusCancelled, StatusDesigning, StatusOnHold}, invalid.Allowed)

	require.Equal(t, StatusPending, repo.jobs[job.ID].Status)
	require.Empty(t, repo.history[job.ID])
	require.Empty(t, notifier.events)
}

func TestTransitionUnknownStatus(t *testing.T) {
	svc, _, _ := newTestService(t)
	job := seedJob(t, svc)
	actor := int64(7)

	_, err := svc.Transition(context.Background(), job.ID, Status("shipped"), &actor, "", nil)
	require.ErrorIs(t, err, ErrValidation)
}

func TestTransitionToAwaitingApprovalNotifiesProofReady(t *testing.T) {
	svc, _, notifier := newTestService(t)
	job := seedJob(t, svc)
	actor := int64(7)

	_, err := svc.Transition(context.Background(), job.ID, StatusDesigning, &actor, "", nil)
	require.NoError(t, err)
	_, err = svc.Transition(context.Background(), job.ID, StatusAwaitingApproval, &actor, "", nil)
	require.NoError(t, err)

	require.Equal(t, []string{EventStatusChange, EventStatusChange, EventProofReady}, notifier.events)
}

func TestCustomerDecisionTransition(t *testing.T) {
	svc, repo, _ := newTestService(t)
	job := seedJob(t, svc)
	actor := int64(7)

	_, err := svc.Transition(context.Background(), job.ID, StatusDesigning, &actor, "", nil)
	require.NoError(t, err)
	_, err = svc.Transition(context.Background(), job.ID, StatusAwaitingApproval, &actor, "", nil)
	require.NoError(t, err)

	approval := &Approval{
		Decision:          DecisionApproved,
		DecidedByCustomer: true,
		ApprovedByName:    "Somchai",
		ApprovedByIP:      "203.0.113.9",
	}
	updated, err := svc.Transition(context.Background(), job.ID, StatusApproved, nil, "customer decision via tracking page", approval)
	require.NoError(t, err)
	require.Equal(t, StatusApproved, updated.Status)

	history := repo.history[job.ID]
	require.Len(t, history, 3)
	require.Nil(t, history[2].ChangedBy)

	approvals := repo.approvals[job.ID]
	require.Len(t, approvals, 1)
	require.Equal(t, job.ID, approvals[0].JobID)
	require.True(t, approvals[0].DecidedByCustomer)
	require.Equal(t, "Somchai", approvals[0].ApprovedByName)
}

func TestFullHappyPathHistoryChain(t *testing.T) {
	svc, repo, _ := newTestService(t)
	job := seedJob(t, svc)
	actor := int64(7)

	path := []Status{
		StatusDesigning, StatusAwaitingApproval, StatusApproved,
		StatusPrinting, StatusCutting, StatusLaminating,
		StatusReady, StatusCompleted,
	}
	for _, next := range path {
		_, err := svc.Transition(context.Background(), job.ID, next, &actor, "", nil)
		require.NoError(t, err)
	}

	history := repo.history[job.ID]
	require.Len(t, history, len(path))
	// Each row's from_status links to the previous row's to_status.
	for i := 1; i < len(history); i++ {
		require.Equal(t, history[i-1].ToStatus, history[i].FromStatus)
	}
	require.Equal(t, StatusCompleted, repo.jobs[job.ID].Status)

	// Terminal: nothing moves out of completed.
	_, err := svc.Transition(context.Background(), job.ID, StatusPending, &actor, "", nil)
	var invalid *InvalidTransitionError
	require.ErrorAs(t, err, &invalid)
}

func TestBalanceAfterPriceEdit(t *testing.T) {
	svc, repo, _ := newTestService(t)
	job := seedJob(t, svc)
	repo.payments[job.ID] = decimal.NewFromInt(500)

	balance, err := svc.Balance(context.Background(), job.ID)
	require.NoError(t, err)
	require.True(t, balance.Equal(decimal.NewFromInt(1000)))

	newPrice := decimal.NewFromInt(2000)
	_, err = svc.Update(context.Background(), job.ID, UpdateInput{QuotedPrice: &newPrice})
	require.NoError(t, err)

	// payment_status stays stale until the next payment write.
	require.Equal(t, PaymentUnpaid, repo.jobs[job.ID].PaymentStatus)

	balance, err = svc.Balance(context.Background(), job.ID)
	require.NoError(t, err)
	require.True(t, balance.Equal(decimal.NewFromInt(1500)))
}

func TestPanickingNotifierDoesNotFailTransition(t *testing.T) {
	repo := newMemoryJobRepo()
	svc := NewService(repo, panicNotifier{}, slog.Default())
	job := seedJob(t, svc)
	actor := int64(7)

	updated, err := svc.Transition(context.Background(), job.ID, StatusDesigning, &actor, "", nil)
	require.NoError(t, err)
	require.Equal(t, StatusDesigning, updated.Status)
}

type panicNotifier struct{}

func (panicNotifier) Dispatch(context.Context, int64, string) {
	panic("queue down")
}
