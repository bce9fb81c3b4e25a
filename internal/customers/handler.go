package customers

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

// Handler serves the customer directory HTTP API.
type Handler struct {
	logger   *slog.Logger
	service  *Service
	validate *validator.Validate
}

// NewHandler constructs the handler.
func NewHandler(logger *slog.Logger, service *Service) *Handler {
	return &Handler{logger: logger, service: service, validate: validator.New()}
}

// CreateCustomerRequest is the body of a customer creation.
type CreateCustomerRequest struct {
	CustomerTypeID *int64 `json:"customer_type_id"`
	Name           string `json:"name" validate:"required,max=255"`
	Phone          string `json:"phone" validate:"max=32"`
	LineID         string `json:"line_id" validate:"max=64"`
	Email          string `json:"email" validate:"omitempty,email"`
	BillingAddress string `json:"billing_address"`
	TaxID          string `json:"tax_id" validate:"max=32"`
	Notes          string `json:"notes"`
}

// UpdateCustomerRequest is the body of a customer patch. Absent fields keep
// their value.
type UpdateCustomerRequest struct {
	CustomerTypeID *int64  `json:"customer_type_id"`
	Name           *string `json:"name" validate:"omitempty,max=255"`
	Phone          *string `json:"phone" validate:"omitempty,max=32"`
	LineID         *string `json:"line_id" validate:"omitempty,max=64"`
	Email          *string `json:"email" validate:"omitempty,email"`
	BillingAddress *string `json:"billing_address"`
	TaxID          *string `json:"tax_id" validate:"omitempty,max=32"`
	Notes          *string `json:"notes"`
}

// CreateTypeRequest is the body of a customer type creation.
type CreateTypeRequest struct {
	Name            string          `json:"name" validate:"required,max=100"`
	CreditDays      int             `json:"credit_days" validate:"gte=0,lte=365"`
	DiscountPercent decimal.Decimal `json:"discount_percent"`
}

func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	var req CreateCustomerRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "malformed JSON body")
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	customer, err := h.service.Create(r.Context(), Customer{
		CustomerTypeID: req.CustomerTypeID,
		Name:           req.Name,
		Phone:          req.Phone,
		LineID:         req.LineID,
		Email:          req.Email,
		BillingAddress: req.BillingAddress,
		TaxID:          req.TaxID,
		Notes:          req.Notes,
	})
	if err != nil {
		h.respondError(w, "create customer", err)
		return
	}
	httpx.JSON(w, http.StatusCreated, customer)
}

func (h *Handler) Show(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid customer id")
		return
	}
	summary, err := h.service.GetSummary(r.Context(), id)
	if err != nil {
		h.respondError(w, "get customer", err)
		return
	}
	httpx.JSON(w, http.StatusOK, summary)
}

func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	req := ListRequest{Search: q.Get("search")}
	if raw := q.Get("type_id"); raw != "" {
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid type_id")
			return
		}
		req.TypeID = &id
	}
	req.Limit, _ = strconv.Atoi(q.Get("limit"))
	req.Offset, _ = strconv.Atoi(q.Get("offset"))

	list, total, err := h.service.List(r.Context(), req)
	if err != nil {
		h.respondError(w, "list customers", err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"customers": list, "total": total})
}

func (h *Handler) Update(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid customer id")
		return
	}
	var req UpdateCustomerRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "malformed JSON body")
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	customer, err := h.service.Update(r.Context(), id, UpdateInput(req))
	if err != nil {
		h.respondError(w, "update customer", err)
		return
	}
	httpx.JSON(w, http.StatusOK, customer)
}

func (h *Handler) ListTypes(w http.ResponseWriter, r *http.Request) {
	types, err := h.service.ListTypes(r.Context())
	if err != nil {
		h.respondError(w, "list customer types", err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"customer_types": types})
}

func (h *Handler) CreateType(w http.ResponseWriter, r *http.Request) {
	var req CreateTypeRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "malformed JSON body")
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	created, err := h.service.CreateType(r.Context(), CustomerType{
		Name:            req.Name,
		CreditDays:      req.CreditDays,
		DiscountPercent: req.DiscountPercent,
	})
	if err != nil {
		h.respondError(w, "create customer type", err)
		return
	}
	httpx.JSON(w, http.StatusCreated, created)
}

func (h *Handler) respondError(w http.ResponseWriter, op string, err error) {
	switch {
	case errors.Is(err, ErrNotFound):
		httpx.Problem(w, http.StatusNotFound, "Not Found", "customer not found")
	case errors.Is(err, ErrValidation):
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
	default:
		h.logger.Error(op, slog.Any("error", err))
		httpx.Problem(w, http.StatusInternalServerError, "Internal Server Error", "unexpected error")
	}
}

// MountRoutes attaches the customer endpoints. Directory edits are counter
// work; customer types are owner configuration.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Group(func(r chi.Router) {
		r.Use(app.RequireRole(app.RoleOwner, app.RoleCounter, app.RoleDesigner, app.RoleOperator, app.RoleAccountant))
		r.Get("/customers", h.List)
		r.Get("/customers/{id}", h.Show)
		r.Get("/customer-types", h.ListTypes)
	})
	r.Group(func(r chi.Router) {
		r.Use(app.RequireRole(app.RoleOwner, app.RoleCounter))
		r.Post("/customers", h.Create)
		r.Patch("/customers/{id}", h.Update)
	})
	r.Group(func(r chi.Router) {
		r.Use(app.RequireRole(app.RoleOwner))
		r.Post("/customer-types", h.CreateType)
	})
}
