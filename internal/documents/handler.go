package documents

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

// Handler serves the financial document HTTP API.
type Handler struct {
	logger   *slog.Logger
	service  *Service
	validate *validator.Validate
}

// NewHandler constructs the handler.
func NewHandler(logger *slog.Logger, service *Service) *Handler {
	return &Handler{logger: logger, service: service, validate: validator.New()}
}

// IssueRequest is the body of an issuance call.
type IssueRequest struct {
	Notes  string           `json:"notes"`
	Amount *decimal.Decimal `json:"amount,omitempty"`
}

func (h *Handler) issue(w http.ResponseWriter, r *http.Request, docType Type) {
	jobID, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid job id")
		return
	}
	var req IssueRequest
	if r.ContentLength > 0 {
		if err := httpx.DecodeJSON(r, &req); err != nil {
			httpx.Problem(w, http.StatusBadRequest, "Bad Request", "malformed JSON body")
			return
		}
	}
	actor := app.ActorFromContext(r.Context())

	in := IssueInput{JobID: jobID, IssuedBy: actor.ID, Notes: req.Notes, Amount: req.Amount}
	var doc Document
	switch docType {
	case TypeQuotation:
		doc, err = h.service.IssueQuotation(r.Context(), in)
	case TypeTaxInvoice:
		doc, err = h.service.IssueTaxInvoice(r.Context(), in)
	case TypeReceipt:
		doc, err = h.service.IssueReceipt(r.Context(), in)
	case TypeCreditNote:
		doc, err = h.service.IssueCreditNote(r.Context(), in)
	}
	if err != nil {
		h.respondError(w, "issue document", err)
		return
	}
	httpx.JSON(w, http.StatusCreated, doc)
}

func (h *Handler) IssueQuotation(w http.ResponseWriter, r *http.Request) {
	h.issue(w, r, TypeQuotation)
}

func (h *Handler) IssueTaxInvoice(w http.ResponseWriter, r *http.Request) {
	h.issue(w, r, TypeTaxInvoice)
}

func (h *Handler) IssueReceipt(w http.ResponseWriter, r *http.Request) {
	h.issue(w, r, TypeReceipt)
}

func (h *Handler) IssueCreditNote(w http.ResponseWriter, r *http.Request) {
	h.issue(w, r, TypeCreditNote)
}

func (h *Handler) Show(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid document id")
		return
	}
	doc, err := h.service.Get(r.Context(), id)
	if err != nil {
		h.respondError(w, "get document", err)
		return
	}
	httpx.JSON(w, http.StatusOK, doc)
}

func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	req := ListRequest{IncludeVoid: q.Get("include_void") == "true"}
	if raw := q.Get("type"); raw != "" {
		t := Type(raw)
		if !IsValidType(t) {
			httpx.Problem(w, http.StatusBadRequest, "Bad Request", "unknown document type")
			return
		}
		req.Type = &t
	}
	req.Limit, _ = strconv.Atoi(q.Get("limit"))
	req.Offset, _ = strconv.Atoi(q.Get("offset"))

	docs, total, err := h.service.List(r.Context(), req)
	if err != nil {
		h.respondError(w, "list documents", err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"documents": docs, "total": total})
}

func (h *Handler) ListByJob(w http.ResponseWriter, r *http.Request) {
	jobID, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid job id")
		return
	}
	docs, err := h.service.ListByJob(r.Context(), jobID)
	if err != nil {
		h.respondError(w, "list job documents", err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"documents": docs})
}

func (h *Handler) Void(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid document id")
		return
	}
	if err := h.service.Void(r.Context(), id); err != nil {
		h.respondError(w, "void document", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) Aging(w http.ResponseWriter, r *http.Request) {
	report, err := h.service.Aging(r.Context())
	if err != nil {
		h.respondError(w, "aging report", err)
		return
	}
	httpx.JSON(w, http.StatusOK, report)
}

func (h *Handler) respondError(w http.ResponseWriter, op string, err error) {
	switch {
	case errors.Is(err, ErrNotFound):
		httpx.Problem(w, http.StatusNotFound, "Not Found", "document or job not found")
	case errors.Is(err, ErrValidation):
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
	case errors.Is(err, ErrAllocationFailed):
		httpx.Problem(w, http.StatusConflict, "Number Allocation Conflict", "document numbering conflicted with a concurrent issue, retry the request")
	default:
		h.logger.Error(op, slog.Any("error", err))
		httpx.Problem(w, http.StatusInternalServerError, "Internal Server Error", "unexpected error")
	}
}

// MountRoutes attaches the document endpoints. Issuing is counter and
// accounting work; voiding is reserved for the owner.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Group(func(r chi.Router) {
		r.Use(app.RequireRole(app.RoleOwner, app.RoleCounter, app.RoleDesigner, app.RoleOperator, app.RoleAccountant))
		r.Get("/documents", h.List)
		r.Get("/documents/{id}", h.Show)
		r.Get("/jobs/{id}/documents", h.ListByJob)
	})
	r.Group(func(r chi.Router) {
		r.Use(app.RequireRole(app.RoleOwner, app.RoleCounter, app.RoleAccountant))
		r.Post("/jobs/{id}/quotation", h.IssueQuotation)
		r.Post("/jobs/{id}/tax-invoice", h.IssueTaxInvoice)
		r.Post("/jobs/{id}/receipt", h.IssueReceipt)
		r.Post("/jobs/{id}/credit-note", h.IssueCreditNote)
	})
	r.Group(func(r chi.Router) {
		r.Use(app.RequireRole(app.RoleOwner, app.RoleAccountant))
		r.Get("/reports/aging", h.Aging)
	})
	r.Group(func(r chi.Router) {
		r.Use(app.RequireRole(app.RoleOwner))
		r.Post("/documents/{id}/void", h.Void)
	})
}
