package production

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
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/pressdesk/pressdesk/internal/app"
	_ "github.com/pressdesk/pressdesk/internal/testing/guard"
)

type memoryRepo struct {
	productTypes []ProductType
	materials    map[int64]Material
	usages       []Usage
}

func newMemoryRepo() *memoryRepo {
	return &memoryRepo{materials: make(map[int64]Material)}
}

func (r *memoryRepo) ListProductTypes(ctx context.Context, activeOnly bool) ([]ProductType, error) {
	var out []ProductType
	for _, pt := range r.productTypes {
		if activeOnly && !pt.Active {
			continue
		}
		out = append(out, pt)
	}
	return out, nil
}

func (r *memoryRepo) CreateProductType(ctx context.Context, pt ProductType) (ProductType, error) {
	pt.ID = int64(len(r.productTypes) + 1)
	r.productTypes = append(r.productTypes, pt)
	return pt, nil
}

func (r *memoryRepo) ListMaterials(ctx context.Context, lowOnly bool) ([]Material, error) {
	var out []Material
	for _, m := range r.materials {
		if lowOnly && !m.LowStock() {
			continue
		}
		out = append(out, m)
	}
	return out, nil
}

func (r *memoryRepo) CreateMaterial(ctx context.Context, m Material) (Material, error) {
	m.ID = int64(len(r.materials) + 1)
	m.Active = true
	m.UpdatedAt = time.Now()
	r.materials[m.ID] = m
	return m, nil
}

func (r *memoryRepo) AdjustStock(ctx context.Context, materialID int64, qty decimal.Decimal) (Material, error) {
	m, ok := r.materials[materialID]
	if !ok {
		return Material{}, ErrNotFound
	}
	m.StockQty = qty
	r.materials[materialID] = m
	return m, nil
}

func (r *memoryRepo) RecordUsage(ctx context.Context, u Usage) (Usage, error) {
	m, ok := r.materials[u.MaterialID]
	if !ok {
		return Usage{}, ErrNotFound
	}
	if m.StockQty.LessThan(u.Quantity) {
		return Usage{}, ErrInsufficientStock
	}
	m.StockQty = m.StockQty.Sub(u.Quantity)
	r.materials[u.MaterialID] = m
	u.ID = int64(len(r.usages) + 1)
	u.RecordedAt = time.Now()
	r.usages = append(r.usages, u)
	return u, nil
}

func (r *memoryRepo) ListUsageByJob(ctx context.Context, jobID int64) ([]Usage, error) {
	var out []Usage
	for _, u := range r.usages {
		if u.JobID == jobID {
			out = append(out, u)
		}
	}
	return out, nil
}

func newTestRouter(repo *memoryRepo) http.Handler {
	handler := NewHandler(slog.Default(), repo)
	router := chi.NewRouter()
	router.Use(app.ActorMiddleware)
	handler.MountRoutes(router)
	return router
}

func doJSON(t *testing.T, router http.Handler, method, path, body string, role app.Role) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if role != "" {
		req.Header.Set("X-Actor-ID", "7")
		req.Header.Set("X-Actor-Role", string(role))
	}
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func TestCreateProductTypeDefaults(t *testing.T) {
	repo := newMemoryRepo()
	router := newTestRouter(repo)

	rec := doJSON(t, router, http.MethodPost, "/product-types",
		`{"name":"Vinyl Banner","unit":"sqm"}`, app.RoleOwner)
	require.Equal(t, http.StatusCreated, rec.Code)

	var pt ProductType
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &pt))
	require.Equal(t, PricingPerUnit, pt.PricingMethod)
	require.True(t, pt.RequiresDesign)
	require.True(t, pt.Active)
}

func TestCreateProductTypeRejectsUnknownPricing(t *testing.T) {
	router := newTestRouter(newMemoryRepo())

	rec := doJSON(t, router, http.MethodPost, "/product-types",
		`{"name":"Stickers","unit":"sheet","pricing_method":"per_kilo"}`, app.RoleOwner)
	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestCreateProductTypeRoleGuard(t *testing.T) {
	router := newTestRouter(newMemoryRepo())

	rec := doJSON(t, router, http.MethodPost, "/product-types",
		`{"name":"Stickers","unit":"sheet"}`, app.RoleCounter)
	require.Equal(t, http.StatusForbidden, rec.Code)

	rec = doJSON(t, router, http.MethodPost, "/product-types",
		`{"name":"Stickers","unit":"sheet"}`, "")
	require.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestRecordUsageDeductsStock(t *testing.T) {
	repo := newMemoryRepo()
	repo.materials[1] = Material{ID: 1, Name: "Vinyl roll", Unit: "m", StockQty: decimal.NewFromInt(10)}
	router := newTestRouter(repo)

	rec := doJSON(t, router, http.MethodPost, "/jobs/3/materials",
		`{"material_id":1,"quantity":"4"}`, app.RoleOperator)
	require.Equal(t, http.StatusCreated, rec.Code)
	require.Equal(t, "6", repo.materials[1].StockQty.String())

	var u Usage
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &u))
	require.Equal(t, int64(3), u.JobID)
	require.Equal(t, int64(7), u.RecordedBy)
}

func TestRecordUsageInsufficientStock(t *testing.T) {
	repo := newMemoryRepo()
	repo.materials[1] = Material{ID: 1, Name: "Vinyl roll", Unit: "m", StockQty: decimal.NewFromInt(2)}
	router := newTestRouter(repo)

	rec := doJSON(t, router, http.MethodPost, "/jobs/3/materials",
		`{"material_id":1,"quantity":"5"}`, app.RoleOperator)
	require.Equal(t, http.StatusConflict, rec.Code)
	require.Equal(t, "2", repo.materials[1].StockQty.String())
}

func TestRecordUsageRejectsNonPositiveQuantity(t *testing.T) {
	repo := newMemoryRepo()
	repo.materials[1] = Material{ID: 1, Name: "Vinyl roll", Unit: "m", StockQty: decimal.NewFromInt(2)}
	router := newTestRouter(repo)

	rec := doJSON(t, router, http.MethodPost, "/jobs/3/materials",
		`{"material_id":1,"quantity":"0"}`, app.RoleOperator)
	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestListMaterialsLowStockFilter(t *testing.T) {
	repo := newMemoryRepo()
	repo.materials[1] = Material{ID: 1, Name: "Vinyl roll", StockQty: decimal.NewFromInt(1), ReorderLevel: decimal.NewFromInt(5), Active: true}
	repo.materials[2] = Material{ID: 2, Name: "Ink", StockQty: decimal.NewFromInt(50), ReorderLevel: decimal.NewFromInt(5), Active: true}
	router := newTestRouter(repo)

	rec := doJSON(t, router, http.MethodGet, "/materials?low_stock=true", "", app.RoleOwner)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		Materials []Material `json:"materials"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Len(t, resp.Materials, 1)
	require.Equal(t, "Vinyl roll", resp.Materials[0].Name)
}
