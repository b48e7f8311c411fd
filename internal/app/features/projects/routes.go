package projects

import (
	"github.com/go-chi/chi/v5"

	sysauth "github.com/canvashub/canvashub/internal/app/system/auth"
)

// Routes returns a subrouter serving the portfolio endpoints, mounted
// under /projects.
func Routes(h *Handler) chi.Router {
	r := chi.NewRouter()
	r.Use(sysauth.RequireSignedIn)

	r.Get("/", h.List)
	r.Get("/{project_id}", h.Get)
	r.Get("/{project_id}/images/{blob_id}", h.Image)

	r.Group(func(r chi.Router) {
		r.Use(sysauth.RequireAdminTier)
		r.Post("/", h.Create)
		r.Put("/{project_id}", h.Update)
		r.Delete("/{project_id}", h.Delete)
	})
	return r
}
