package public

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/pressdesk/pressdesk/internal/jobs"
	_ "github.com/pressdesk/pressdesk/internal/testing/guard"
)

type memoryJobRepo struct {
	jobs     map[int64]jobs.Job
	history  map[int64][]jobs.StatusHistory
	payments map[int64]decimal.Decimal
}

type memoryJobTx struct {
	repo *memoryJobRepo
}

func newMemoryJobRepo() *memoryJobRepo {
	return &memoryJobRepo{
		jobs:     make(map[int64]jobs.Job),
		history:  make(map[int64][]jobs.StatusHistory),
		payments: make(map[int64]decimal.Decimal),
	}
}

func (r *memoryJobRepo) WithTx(ctx context.Context, fn func(context.Context, jobs.TxRepository) error) error {
	return fn(ctx, &memoryJobTx{repo: r})
}

func (r *memoryJobRepo) Get(ctx context.Context, id int64) (jobs.Job, error) {
	job, ok := r.jobs[id]
	if !ok {
		return jobs.Job{}, jobs.ErrNotFound
	}
	return job, nil
}

func (r *memoryJobRepo) GetByTrackingToken(ctx context.Context, token uuid.UUID) (jobs.Job, error) {
	for _, job := range r.jobs {
		if job.TrackingToken == token {
			return job, nil
		}
	}
	return jobs.Job{}, jobs.ErrNotFound
}

func (r *memoryJobRepo) List(ctx context.Context, req jobs.ListJobsRequest) ([]jobs.Job, int, error) {
	return nil, 0, nil
}

func (r *memoryJobRepo) Create(ctx context.Context, job jobs.Job) (int64, error) {
	id := int64(len(r.jobs) + 1)
	job.ID = id
	r.jobs[id] = job
	return id, nil
}

func (r *memoryJobRepo) Update(ctx context.Context, id int64, in jobs.UpdateInput) error {
	return nil
}

func (r *memoryJobRepo) ListHistory(ctx context.Context, jobID int64) ([]jobs.StatusHistory, error) {
	return append([]jobs.StatusHistory(nil), r.history[jobID]...), nil
}

func (r *memoryJobRepo) SumPayments(ctx context.Context, jobID int64) (decimal.Decimal, error) {
	return r.payments[jobID], nil
}

func (t *memoryJobTx) GetForUpdate(ctx context.Context, id int64) (jobs.Job, error) {
	return t.repo.Get(ctx, id)
}

func (t *memoryJobTx) UpdateStatus(ctx context.Context, id int64, status jobs.Status) error {
	job := t.repo.jobs[id]
	job.Status = status
	t.repo.jobs[id] = job
	return nil
}

func (t *memoryJobTx) InsertHistory(ctx context.Context, h jobs.StatusHistory) error {
	h.ChangedAt = time.Now()
	t.repo.history[h.JobID] = append(t.repo.history[h.JobID], h)
	return nil
}

func (t *memoryJobTx) InsertApproval(ctx context.Context, a jobs.Approval) error {
	return nil
}

func newTestRouter(t *testing.T) (*chi.Mux, *memoryJobRepo, uuid.UUID) {
	t.Helper()
	repo := newMemoryJobRepo()
	token := uuid.New()
	repo.jobs[1] = jobs.Job{
		ID:            1,
		Title:         "Vinyl banner",
		Status:        jobs.StatusAwaitingApproval,
		PaymentStatus: jobs.PaymentPartial,
		Quantity:      2,
		QuotedPrice:   decimal.NewFromInt(1500),
		TrackingToken: token,
		InternalNotes: "customer haggled hard", // must never leak
	}
	repo.payments[1] = decimal.NewFromInt(500)

	service := jobs.NewService(repo, nil, slog.Default())
	handler := NewHandler(slog.Default(), service)
	router := chi.NewRouter()
	handler.MountRoutes(router)
	return router, repo, token
}

func TestTrack(t *testing.T) {
	router, _, token := newTestRouter(t)

	req := httptest.NewRequest(http.MethodGet, "/track/"+token.String(), nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)

	var resp TrackingResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Equal(t, "Vinyl banner", resp.Title)
	require.Equal(t, jobs.StatusAwaitingApproval, resp.Status)
	require.True(t, resp.CanDecide)
	require.Equal(t, "500", resp.TotalPaid.String())
	require.Equal(t, "1000", resp.BalanceDue.String())

	require.NotContains(t, rec.Body.String(), "haggled")
}

func TestTrackUnknownToken(t *testing.T) {
	router, _, _ := newTestRouter(t)

	for _, path := range []string{"/track/" + uuid.NewString(), "/track/not-a-uuid"} {
		req := httptest.NewRequest(http.MethodGet, path, nil)
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)
		require.Equal(t, http.StatusNotFound, rec.Code, path)
	}
}

func TestDecideApprove(t *testing.T) {
	router, repo, token := newTestRouter(t)

	body := `{"decision":"approved","name":"Somchai"}`
	req := httptest.NewRequest(http.MethodPost, "/track/"+token.String()+"/decision", strings.NewReader(body))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, jobs.StatusApproved, repo.jobs[1].Status)

	history := repo.history[1]
	require.Len(t, history, 1)
	require.Nil(t, history[0].ChangedBy)
}

func TestDecideRevisionRequiresNotes(t *testing.T) {
	router, repo, token := newTestRouter(t)

	body := `{"decision":"revision","name":"Somchai"}`
	req := httptest.NewRequest(http.MethodPost, "/track/"+token.String()+"/decision", strings.NewReader(body))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	require.Equal(t, http.StatusBadRequest, rec.Code)

	body = `{"decision":"revision","name":"Somchai","revision_notes":"logo too small"}`
	req = httptest.NewRequest(http.MethodPost, "/track/"+token.String()+"/decision", strings.NewReader(body))
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, jobs.StatusRevision, repo.jobs[1].Status)
}

func TestDecideOutsideAwaitingApproval(t *testing.T) {
	router, repo, token := newTestRouter(t)
	job := repo.jobs[1]
	job.Status = jobs.StatusPrinting
	repo.jobs[1] = job

	body := `{"decision":"approved","name":"Somchai"}`
	req := httptest.NewRequest(http.MethodPost, "/track/"+token.String()+"/decision", strings.NewReader(body))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusConflict, rec.Code)
	require.Equal(t, jobs.StatusPrinting, repo.jobs[1].Status)
}
