package payments

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"

	"github.com/pressdesk/pressdesk/internal/app"
	"github.com/pressdesk/pressdesk/internal/platform/httpx"
)

// Handler serves the payment HTTP API.
type Handler struct {
	logger   *slog.Logger
	service  *Service
	validate *validator.Validate
}

// NewHandler constructs the handler.
func NewHandler(logger *slog.Logger, service *Service) *Handler {
	return &Handler{logger: logger, service: service, validate: validator.New()}
}

type RecordPaymentRequest struct {
	Amount           decimal.Decimal `json:"amount"`
	Method           Method          `json:"method" validate:"required"`
	BankAccountID    *int64          `json:"bank_account_id,omitempty" validate:"omitempty,gt=0"`
	ReferenceNumber  string          `json:"reference_number,omitempty" validate:"max=50"`
	IsDeposit        bool            `json:"is_deposit"`
	Notes            string          `json:"notes,omitempty" validate:"max=255"`
	WHTRate          decimal.Decimal `json:"wht_rate"`
	WHTCertificateNo string          `json:"wht_certificate_no,omitempty" validate:"max=50"`
}

func (h *Handler) Record(w http.ResponseWriter, r *http.Request) {
	jobID, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || jobID <= 0 {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid job ID")
		return
	}
	var req RecordPaymentRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "malformed JSON body")
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	actor := app.ActorFromContext(r.Context())

	result, err := h.service.Record(r.Context(), RecordInput{
		JobID:            jobID,
		Amount:           req.Amount,
		Method:           req.Method,
		BankAccountID:    req.BankAccountID,
		ReferenceNumber:  req.ReferenceNumber,
		IsDeposit:        req.IsDeposit,
		ReceivedBy:       actor.ID,
		Notes:            req.Notes,
		WHTRate:          req.WHTRate,
		WHTCertificateNo: req.WHTCertificateNo,
	})
	if err != nil {
		h.respondError(w, "record payment", err)
		return
	}
	httpx.JSON(w, http.StatusCreated, result)
}

func (h *Handler) ListByJob(w http.ResponseWriter, r *http.Request) {
	jobID, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || jobID <= 0 {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid job ID")
		return
	}
	list, err := h.service.ListByJob(r.Context(), jobID)
	if err != nil {
		h.respondError(w, "list payments", err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"job_id": jobID, "payments": list})
}

func (h *Handler) BankAccounts(w http.ResponseWriter, r *http.Request) {
	accounts, err := h.service.BankAccounts(r.Context())
	if err != nil {
		h.respondError(w, "list bank accounts", err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"bank_accounts": accounts})
}

// MountRoutes attaches the payment endpoints. Recording money is counter and
// owner work.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Group(func(r chi.Router) {
		r.Use(app.RequireRole(app.RoleOwner, app.RoleCounter, app.RoleAccountant))
		r.Get("/jobs/{id}/payments", h.ListByJob)
		r.Get("/bank-accounts", h.BankAccounts)
	})
	r.Group(func(r chi.Router) {
		r.Use(app.RequireRole(app.RoleOwner, app.RoleCounter))
		r.Post("/jobs/{id}/payments", h.Record)
	})
}

func (h *Handler) respondError(w http.ResponseWriter, op string, err error) {
	switch {
	case errors.Is(err, ErrNotFound):
		httpx.Problem(w, http.StatusNotFound, "Not Found", "record not found")
	case errors.Is(err, ErrValidation):
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
	default:
		h.logger.Error(op+" failed", slog.Any("error", err))
		httpx.Problem(w, http.StatusInternalServerError, "Internal Error", "")
	}
}
