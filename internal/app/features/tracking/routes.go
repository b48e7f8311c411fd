package tracking

import (
	"github.com/go-chi/chi/v5"

	sysauth "github.com/canvashub/canvashub/internal/app/system/auth"
)

// Routes returns a subrouter serving live tracking, mounted under
// /tracking.
func Routes(h *Handler) chi.Router {
	r := chi.NewRouter()
	r.Use(sysauth.RequireSignedIn)

	r.Post("/update", h.Update)
	r.With(sysauth.RequireApprovalTier).Get("/current", h.Current)
	r.Get("/{username}/path", h.Path)
	r.Get("/{username}/analytics", h.Analytics)
	return r
}
