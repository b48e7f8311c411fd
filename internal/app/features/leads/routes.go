package leads

import (
	"github.com/go-chi/chi/v5"

	sysauth "github.com/canvashub/canvashub/internal/app/system/auth"
)

// Routes returns a subrouter serving the lead endpoints, mounted under
// /leads. Fixed paths come before the {lead_id} wildcard.
func Routes(h *Handler) chi.Router {
	r := chi.NewRouter()
	r.Use(sysauth.RequireSignedIn)

	r.Post("/", h.Create)
	r.Get("/", h.List)
	r.Get("/stats", h.Stats)
	r.Get("/export", h.Export)
	r.With(sysauth.RequireApprovalTier).Get("/pending", h.Pending)

	r.Get("/{lead_id}", h.Get)
	r.Get("/{lead_id}/photo", h.Photo)
	r.Post("/{lead_id}/approve", h.Approve)
	r.Post("/{lead_id}/reject", h.Reject)
	r.Post("/{lead_id}/sold", h.MarkSold)
	r.Post("/{lead_id}/superstar", h.MarkSuperstar)
	return r
}
