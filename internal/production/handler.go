package production

import (
	"context"
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

// RepositoryPort is the persistence surface the handler needs.
type RepositoryPort interface {
	ListProductTypes(ctx context.Context, activeOnly bool) ([]ProductType, error)
	CreateProductType(ctx context.Context, pt ProductType) (ProductType, error)
	ListMaterials(ctx context.Context, lowOnly bool) ([]Material, error)
	CreateMaterial(ctx context.Context, m Material) (Material, error)
	AdjustStock(ctx context.Context, materialID int64, qty decimal.Decimal) (Material, error)
	RecordUsage(ctx context.Context, u Usage) (Usage, error)
	ListUsageByJob(ctx context.Context, jobID int64) ([]Usage, error)
}

// Handler serves the production reference data HTTP API.
type Handler struct {
	logger   *slog.Logger
	repo     RepositoryPort
	validate *validator.Validate
}

// NewHandler constructs the handler.
func NewHandler(logger *slog.Logger, repo RepositoryPort) *Handler {
	return &Handler{logger: logger, repo: repo, validate: validator.New()}
}

// CreateProductTypeRequest is the body of a product type creation.
type CreateProductTypeRequest struct {
	Name           string          `json:"name" validate:"required,max=100"`
	Unit           string          `json:"unit" validate:"required,max=32"`
	BasePrice      decimal.Decimal `json:"base_price"`
	PricePerSqm    decimal.Decimal `json:"price_per_sqm"`
	PricingMethod  string          `json:"pricing_method"`
	RequiresDesign *bool           `json:"requires_design"`
	RequiresSizes  bool            `json:"requires_sizes"`
	SortOrder      int             `json:"sort_order" validate:"min=0"`
}

// CreateMaterialRequest is the body of a material creation.
type CreateMaterialRequest struct {
	Name         string          `json:"name" validate:"required,max=100"`
	Unit         string          `json:"unit" validate:"required,max=32"`
	StockQty     decimal.Decimal `json:"stock_qty"`
	ReorderLevel decimal.Decimal `json:"reorder_level"`
	CostPerUnit  decimal.Decimal `json:"cost_per_unit"`
}

// AdjustStockRequest sets a material's absolute stock quantity.
type AdjustStockRequest struct {
	StockQty decimal.Decimal `json:"stock_qty"`
}

// RecordUsageRequest is the body of a usage record.
type RecordUsageRequest struct {
	MaterialID int64           `json:"material_id" validate:"required"`
	Quantity   decimal.Decimal `json:"quantity" validate:"required"`
}

func (h *Handler) ListProductTypes(w http.ResponseWriter, r *http.Request) {
	activeOnly := r.URL.Query().Get("all") != "true"
	types, err := h.repo.ListProductTypes(r.Context(), activeOnly)
	if err != nil {
		h.respondError(w, "list product types", err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"product_types": types})
}

func (h *Handler) CreateProductType(w http.ResponseWriter, r *http.Request) {
	var req CreateProductTypeRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "malformed JSON body")
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	if req.PricingMethod == "" {
		req.PricingMethod = PricingPerUnit
	}
	if !IsValidPricingMethod(req.PricingMethod) {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "pricing_method must be flat, per_sqm or per_unit")
		return
	}
	requiresDesign := true
	if req.RequiresDesign != nil {
		requiresDesign = *req.RequiresDesign
	}
	pt, err := h.repo.CreateProductType(r.Context(), ProductType{
		Name:           req.Name,
		Unit:           req.Unit,
		BasePrice:      req.BasePrice,
		PricePerSqm:    req.PricePerSqm,
		PricingMethod:  req.PricingMethod,
		RequiresDesign: requiresDesign,
		RequiresSizes:  req.RequiresSizes,
		SortOrder:      req.SortOrder,
		Active:         true,
	})
	if err != nil {
		h.respondError(w, "create product type", err)
		return
	}
	httpx.JSON(w, http.StatusCreated, pt)
}

func (h *Handler) ListMaterials(w http.ResponseWriter, r *http.Request) {
	lowOnly := r.URL.Query().Get("low_stock") == "true"
	materials, err := h.repo.ListMaterials(r.Context(), lowOnly)
	if err != nil {
		h.respondError(w, "list materials", err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"materials": materials})
}

func (h *Handler) CreateMaterial(w http.ResponseWriter, r *http.Request) {
	var req CreateMaterialRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "malformed JSON body")
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	if req.StockQty.IsNegative() || req.ReorderLevel.IsNegative() {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "quantities must be non-negative")
		return
	}
	m, err := h.repo.CreateMaterial(r.Context(), Material{
		Name:         req.Name,
		Unit:         req.Unit,
		StockQty:     req.StockQty,
		ReorderLevel: req.ReorderLevel,
		CostPerUnit:  req.CostPerUnit,
	})
	if err != nil {
		h.respondError(w, "create material", err)
		return
	}
	httpx.JSON(w, http.StatusCreated, m)
}

func (h *Handler) AdjustStock(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid material id")
		return
	}
	var req AdjustStockRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "malformed JSON body")
		return
	}
	if req.StockQty.IsNegative() {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "stock_qty must be non-negative")
		return
	}
	m, err := h.repo.AdjustStock(r.Context(), id, req.StockQty)
	if err != nil {
		h.respondError(w, "adjust stock", err)
		return
	}
	httpx.JSON(w, http.StatusOK, m)
}

func (h *Handler) RecordUsage(w http.ResponseWriter, r *http.Request) {
	jobID, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid job id")
		return
	}
	var req RecordUsageRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "malformed JSON body")
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	if !req.Quantity.IsPositive() {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "quantity must be positive")
		return
	}
	actor := app.ActorFromContext(r.Context())
	usage, err := h.repo.RecordUsage(r.Context(), Usage{
		JobID:      jobID,
		MaterialID: req.MaterialID,
		Quantity:   req.Quantity,
		RecordedBy: actor.ID,
	})
	if err != nil {
		h.respondError(w, "record usage", err)
		return
	}
	httpx.JSON(w, http.StatusCreated, usage)
}

func (h *Handler) ListUsage(w http.ResponseWriter, r *http.Request) {
	jobID, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid job id")
		return
	}
	usage, err := h.repo.ListUsageByJob(r.Context(), jobID)
	if err != nil {
		h.respondError(w, "list usage", err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"usage": usage})
}

func (h *Handler) respondError(w http.ResponseWriter, op string, err error) {
	switch {
	case errors.Is(err, ErrNotFound):
		httpx.Problem(w, http.StatusNotFound, "Not Found", "resource not found")
	case errors.Is(err, ErrInsufficientStock):
		httpx.Problem(w, http.StatusConflict, "Insufficient Stock", "not enough material in stock")
	case errors.Is(err, ErrValidation):
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
	default:
		h.logger.Error(op, slog.Any("error", err))
		httpx.Problem(w, http.StatusInternalServerError, "Internal Server Error", "unexpected error")
	}
}

// MountRoutes attaches production endpoints. Reference data edits are owner
// configuration; stock moves belong to operators and counter staff.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Group(func(r chi.Router) {
		r.Use(app.RequireRole(app.RoleOwner, app.RoleCounter, app.RoleDesigner, app.RoleOperator, app.RoleAccountant))
		r.Get("/product-types", h.ListProductTypes)
		r.Get("/materials", h.ListMaterials)
		r.Get("/jobs/{id}/materials", h.ListUsage)
	})
	r.Group(func(r chi.Router) {
		r.Use(app.RequireRole(app.RoleOwner, app.RoleCounter, app.RoleOperator))
		r.Post("/jobs/{id}/materials", h.RecordUsage)
		r.Post("/materials/{id}/stock", h.AdjustStock)
	})
	r.Group(func(r chi.Router) {
		r.Use(app.RequireRole(app.RoleOwner))
		r.Post("/product-types", h.CreateProductType)
		r.Post("/materials", h.CreateMaterial)
	})
}
