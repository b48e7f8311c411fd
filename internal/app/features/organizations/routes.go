package organizations

import (
	"github.com/go-chi/chi/v5"

	sysauth "github.com/canvashub/canvashub/internal/app/system/auth"
	"github.com/canvashub/canvashub/internal/domain/roles"
)

// Routes returns a subrouter serving organization management, mounted
// under /organizations.
func Routes(h *Handler) chi.Router {
	r := chi.NewRouter()
	r.Use(sysauth.RequireSignedIn)

	r.Get("/", h.List)
	r.Get("/{org_id}", h.Get)
	r.Get("/{org_id}/limits", h.Limits)
	r.Put("/{org_id}", h.Update)

	r.Group(func(r chi.Router) {
		r.Use(sysauth.RequireRole(roles.SuperAdmin))
		r.Post("/", h.Create)
		r.Put("/{org_id}/plan", h.SetPlan)
		r.Post("/{org_id}/deactivate", h.Deactivate)
		r.Post("/{org_id}/reactivate", h.Reactivate)
		r.Delete("/{org_id}", h.Delete)
	})
	return r
}
