package settings

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/pressdesk/pressdesk/internal/app"
	"github.com/pressdesk/pressdesk/internal/platform/httpx"
)

// Handler serves the settings admin API.
type Handler struct {
	logger *slog.Logger
	store  *Store
}

// NewHandler constructs the handler.
func NewHandler(logger *slog.Logger, store *Store) *Handler {
	return &Handler{logger: logger, store: store}
}

// UpsertRequest is the body of a setting write.
type UpsertRequest struct {
	Value       string `json:"value"`
	Description string `json:"description"`
}

func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	list, err := h.store.List(r.Context())
	if err != nil {
		h.logger.Error("list settings", slog.Any("error", err))
		httpx.Problem(w, http.StatusInternalServerError, "Internal Server Error", "unexpected error")
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"settings": list})
}

func (h *Handler) Upsert(w http.ResponseWriter, r *http.Request) {
	key := chi.URLParam(r, "key")
	var req UpsertRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "malformed JSON body")
		return
	}
	if err := h.store.Set(r.Context(), key, req.Value, req.Description); err != nil {
		h.logger.Error("set setting", slog.Any("error", err))
		httpx.Problem(w, http.StatusInternalServerError, "Internal Server Error", "unexpected error")
		return
	}
	httpx.JSON(w, http.StatusOK, Setting{Key: key, Value: req.Value, Description: req.Description})
}

// MountRoutes attaches the settings endpoints. Configuration is owner-only.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Group(func(r chi.Router) {
		r.Use(app.RequireRole(app.RoleOwner))
		r.Get("/settings", h.List)
		r.Put("/settings/{key}", h.Upsert)
	})
}
