package jobs

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/pressdesk/pressdesk/internal/app"
	"github.com/pressdesk/pressdesk/internal/platform/httpx"
)

// Handler serves the job workflow HTTP API.
type Handler struct {
	logger   *slog.Logger
	service  *Service
	validate *validator.Validate
}

// NewHandler constructs the handler.
func NewHandler(logger *slog.Logger, service *Service) *Handler {
	return &Handler{logger: logger, service: service, validate: validator.New()}
}

func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	var req CreateJobRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "malformed JSON body")
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	actor := app.ActorFromContext(r.Context())

	job, err := h.service.Create(r.Context(), CreateInput{
		CustomerID:       req.CustomerID,
		ProductTypeID:    req.ProductTypeID,
		AssignedDesigner: req.AssignedDesigner,
		Title:            req.Title,
		Description:      req.Description,
		Quantity:         req.Quantity,
		WidthCM:          req.WidthCM,
		HeightCM:         req.HeightCM,
		QuotedPrice:      req.QuotedPrice,
		DepositAmount:    req.DepositAmount,
		DiscountAmount:   req.DiscountAmount,
		DueDate:          req.DueDate,
		InternalNotes:    req.InternalNotes,
		CreatedBy:        actor.ID,
	})
	if err != nil {
		h.respondError(w, "create job", err)
		return
	}
	httpx.JSON(w, http.StatusCreated, job)
}

func (h *Handler) Show(w http.ResponseWriter, r *http.Request) {
	id, ok := h.jobID(w, r)
	if !ok {
		return
	}
	job, err := h.service.Get(r.Context(), id)
	if err != nil {
		h.respondError(w, "get job", err)
		return
	}
	paid, err := h.service.TotalPaid(r.Context(), id)
	if err != nil {
		h.respondError(w, "sum payments", err)
		return
	}
	httpx.JSON(w, http.StatusOK, JobResponse{
		Job:        job,
		TotalPaid:  paid,
		BalanceDue: job.EffectivePrice().Sub(paid),
	})
}

func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	var req ListJobsRequest
	q := r.URL.Query()
	if v := q.Get("customer_id"); v != "" {
		id, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid customer_id")
			return
		}
		req.CustomerID = &id
	}
	if v := q.Get("status"); v != "" {
		status := Status(v)
		if !IsValidStatus(status) {
			httpx.Problem(w, http.StatusBadRequest, "Bad Request", "unknown status filter")
			return
		}
		req.Status = &status
	}
	if v := q.Get("payment_status"); v != "" {
		ps := PaymentStatus(v)
		req.PaymentStatus = &ps
	}
	req.Limit, _ = strconv.Atoi(q.Get("limit"))
	req.Offset, _ = strconv.Atoi(q.Get("offset"))

	list, total, err := h.service.List(r.Context(), req)
	if err != nil {
		h.respondError(w, "list jobs", err)
		return
	}
	httpx.JSON(w, http.StatusOK, ListJobsResponse{Jobs: list, Total: total})
}

func (h *Handler) Update(w http.ResponseWriter, r *http.Request) {
	id, ok := h.jobID(w, r)
	if !ok {
		return
	}
	var req UpdateJobRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "malformed JSON body")
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	job, err := h.service.Update(r.Context(), id, UpdateInput(req))
	if err != nil {
		h.respondError(w, "update job", err)
		return
	}
	httpx.JSON(w, http.StatusOK, job)
}

func (h *Handler) Transition(w http.ResponseWriter, r *http.Request) {
	id, ok := h.jobID(w, r)
	if !ok {
		return
	}
	var req TransitionRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "malformed JSON body")
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}

	var actorID *int64
	if actor := app.ActorFromContext(r.Context()); actor != nil {
		actorID = &actor.ID
	}
	job, err := h.service.Transition(r.Context(), id, req.Status, actorID, req.Note, nil)
	if err != nil {
		h.respondError(w, "transition job", err)
		return
	}
	httpx.JSON(w, http.StatusOK, job)
}

func (h *Handler) History(w http.ResponseWriter, r *http.Request) {
	id, ok := h.jobID(w, r)
	if !ok {
		return
	}
	history, err := h.service.History(r.Context(), id)
	if err != nil {
		h.respondError(w, "job history", err)
		return
	}
	httpx.JSON(w, http.StatusOK, HistoryResponse{JobID: id, History: history})
}

func (h *Handler) Balance(w http.ResponseWriter, r *http.Request) {
	id, ok := h.jobID(w, r)
	if !ok {
		return
	}
	balance, err := h.service.Balance(r.Context(), id)
	if err != nil {
		h.respondError(w, "job balance", err)
		return
	}
	httpx.JSON(w, http.StatusOK, BalanceResponse{JobID: id, BalanceDue: balance})
}

func (h *Handler) jobID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid job ID")
		return 0, false
	}
	return id, true
}

func (h *Handler) respondError(w http.ResponseWriter, op string, err error) {
	var invalid *InvalidTransitionError
	switch {
	case errors.As(err, &invalid):
		httpx.ProblemWith(w, http.StatusUnprocessableEntity, "Invalid Transition", invalid.Error(), map[string]any{
			"from":    invalid.From,
			"to":      invalid.To,
			"allowed": invalid.Allowed,
		})
	case errors.Is(err, ErrNotFound):
		httpx.Problem(w, http.StatusNotFound, "Not Found", "job not found")
	case errors.Is(err, ErrValidation):
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
	default:
		h.logger.Error(op+" failed", slog.Any("error", err))
		httpx.Problem(w, http.StatusInternalServerError, "Internal Error", "")
	}
}
