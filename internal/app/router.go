package app

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
)

// RouteMounter is implemented by each feature handler.
type RouteMounter interface {
	MountRoutes(r chi.Router)
}

// RouterParams aggregates the handlers wired into the HTTP surface.
type RouterParams struct {
	Logger *slog.Logger
	Config *Config

	// Staff API handlers, mounted under /api.
	StaffHandlers []RouteMounter
	// Public handlers, mounted at the root with no role checks.
	PublicHandlers []RouteMounter
}

// NewRouter constructs the chi.Router with PressDesk defaults.
func NewRouter(params RouterParams) http.Handler {
	r := chi.NewRouter()

	for _, mw := range MiddlewareStack(MiddlewareConfig{
		Logger: params.Logger,
		Config: params.Config,
	}) {
		r.Use(mw)
	}

	r.Use(chimw.Logger)

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})

	r.Route("/api", func(r chi.Router) {
		for _, h := range params.StaffHandlers {
			h.MountRoutes(r)
		}
	})

	for _, h := range params.PublicHandlers {
		h.MountRoutes(r)
	}

	return r
}
