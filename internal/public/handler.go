// Package public serves the unauthenticated customer tracking pages. A job
// is addressed only by its unguessable tracking token; internal pricing
// notes and staff identities never leave this boundary.
package public

import (
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"

	"github.com/pressdesk/pressdesk/internal/jobs"
	"github.com/pressdesk/pressdesk/internal/platform/httpx"
)

// Handler serves the tracking API.
type Handler struct {
	logger  *slog.Logger
	service *jobs.Service
}

// NewHandler constructs the handler.
func NewHandler(logger *slog.Logger, service *jobs.Service) *Handler {
	return &Handler{logger: logger, service: service}
}

// TrackingResponse is the customer-safe job view.
type TrackingResponse struct {
	Title         string             `json:"title"`
	Status        jobs.Status        `json:"status"`
	PaymentStatus jobs.PaymentStatus `json:"payment_status"`
	Quantity      int                `json:"quantity"`
	DueDate       *time.Time         `json:"due_date,omitempty"`
	TotalAmount   decimal.Decimal    `json:"total_amount"`
	TotalPaid     decimal.Decimal    `json:"total_paid"`
	BalanceDue    decimal.Decimal    `json:"balance_due"`
	CanDecide     bool               `json:"can_decide"`
	History       []TrackingEvent    `json:"history"`
}

// TrackingEvent is one public history entry. Who moved the job stays
// internal.
type TrackingEvent struct {
	Status    jobs.Status `json:"status"`
	ChangedAt time.Time   `json:"changed_at"`
}

// DecisionRequest is the body of a customer design decision.
type DecisionRequest struct {
	Decision      jobs.Decision `json:"decision"`
	Name          string        `json:"name"`
	RevisionNotes string        `json:"revision_notes"`
}

func (h *Handler) Track(w http.ResponseWriter, r *http.Request) {
	job, ok := h.resolve(w, r)
	if !ok {
		return
	}
	var (
		history   []jobs.StatusHistory
		totalPaid decimal.Decimal
	)
	g, ctx := errgroup.WithContext(r.Context())
	g.Go(func() error {
		var err error
		history, err = h.service.History(ctx, job.ID)
		return err
	})
	g.Go(func() error {
		var err error
		totalPaid, err = h.service.TotalPaid(ctx, job.ID)
		return err
	})
	if err := g.Wait(); err != nil {
		h.respondError(w, "tracking page", err)
		return
	}

	resp := TrackingResponse{
		Title:         job.Title,
		Status:        job.Status,
		PaymentStatus: job.PaymentStatus,
		Quantity:      job.Quantity,
		DueDate:       job.DueDate,
		TotalAmount:   job.EffectivePrice(),
		TotalPaid:     totalPaid,
		BalanceDue:    job.EffectivePrice().Sub(totalPaid),
		CanDecide:     job.Status == jobs.StatusAwaitingApproval,
	}
	for _, entry := range history {
		resp.History = append(resp.History, TrackingEvent{Status: entry.ToStatus, ChangedAt: entry.ChangedAt})
	}
	httpx.JSON(w, http.StatusOK, resp)
}

// Decide lets the customer approve the design or send it back, straight
// from the tracking page. The decision rides the same transition path staff
// use, with no actor recorded.
func (h *Handler) Decide(w http.ResponseWriter, r *http.Request) {
	job, ok := h.resolve(w, r)
	if !ok {
		return
	}
	var req DecisionRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "malformed JSON body")
		return
	}

	var target jobs.Status
	switch req.Decision {
	case jobs.DecisionApproved:
		target = jobs.StatusApproved
	case jobs.DecisionRevision:
		target = jobs.StatusRevision
		if req.RevisionNotes == "" {
			httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "revision_notes is required when requesting changes")
			return
		}
	default:
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "decision must be approved or revision")
		return
	}

	approval := &jobs.Approval{
		JobID:             job.ID,
		Decision:          req.Decision,
		RevisionNotes:     req.RevisionNotes,
		DecidedByCustomer: true,
		ApprovedByName:    req.Name,
		ApprovedByIP:      r.RemoteAddr,
	}
	updated, err := h.service.Transition(r.Context(), job.ID, target, nil, "customer decision via tracking page", approval)
	if err != nil {
		h.respondError(w, "customer decision", err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"status": updated.Status})
}

func (h *Handler) resolve(w http.ResponseWriter, r *http.Request) (jobs.Job, bool) {
	token, err := uuid.Parse(chi.URLParam(r, "token"))
	if err != nil {
		// Bad tokens and missing jobs look identical to guessers.
		httpx.Problem(w, http.StatusNotFound, "Not Found", "unknown tracking token")
		return jobs.Job{}, false
	}
	job, err := h.service.GetByTrackingToken(r.Context(), token)
	if err != nil {
		if errors.Is(err, jobs.ErrNotFound) {
			httpx.Problem(w, http.StatusNotFound, "Not Found", "unknown tracking token")
		} else {
			h.respondError(w, "resolve tracking token", err)
		}
		return jobs.Job{}, false
	}
	return job, true
}

func (h *Handler) respondError(w http.ResponseWriter, op string, err error) {
	var invalid *jobs.InvalidTransitionError
	switch {
	case errors.As(err, &invalid):
		httpx.Problem(w, http.StatusConflict, "Conflict", "this job is not awaiting your decision")
	case errors.Is(err, jobs.ErrNotFound):
		httpx.Problem(w, http.StatusNotFound, "Not Found", "unknown tracking token")
	default:
		h.logger.Error(op, slog.Any("error", err))
		httpx.Problem(w, http.StatusInternalServerError, "Internal Server Error", "unexpected error")
	}
}

// MountRoutes attaches the tracking endpoints. These sit outside the staff
// role middleware.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/track/{token}", h.Track)
	r.Post("/track/{token}/decision", h.Decide)
}
