package leaderboard

import (
	"github.com/go-chi/chi/v5"

	sysauth "github.com/canvashub/canvashub/internal/app/system/auth"
)

// Routes returns a subrouter serving the standings, mounted under
// /leaderboard.
func Routes(h *Handler) chi.Router {
	r := chi.NewRouter()
	r.Use(sysauth.RequireSignedIn)
	r.Get("/leads", h.Leads)
	r.Get("/points", h.Points)
	return r
}
