package jobs

import (
	"github.com/go-chi/chi/v5"

	"github.com/pressdesk/pressdesk/internal/app"
)

// MountRoutes attaches the job endpoints. Creation and intake edits are
// counter work; transitions are open to all production roles since the
// state machine itself decides legality.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Group(func(r chi.Router) {
		r.Use(app.RequireRole(app.RoleOwner, app.RoleCounter, app.RoleDesigner, app.RoleOperator, app.RoleAccountant))
		r.Get("/jobs", h.List)
		r.Get("/jobs/{id}", h.Show)
		r.Get("/jobs/{id}/history", h.History)
		r.Get("/jobs/{id}/balance", h.Balance)
	})
	r.Group(func(r chi.Router) {
		r.Use(app.RequireRole(app.RoleOwner, app.RoleCounter))
		r.Post("/jobs", h.Create)
		r.Patch("/jobs/{id}", h.Update)
	})
	r.Group(func(r chi.Router) {
		r.Use(app.RequireRole(app.RoleOwner, app.RoleCounter, app.RoleDesigner, app.RoleOperator))
		r.Post("/jobs/{id}/transition", h.Transition)
	})
}
