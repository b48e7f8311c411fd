package competitions

import (
	"github.com/go-chi/chi/v5"

	sysauth "github.com/canvashub/canvashub/internal/app/system/auth"
)

// Routes returns a subrouter serving the competition endpoints, mounted
// under /competitions.
func Routes(h *Handler) chi.Router {
	r := chi.NewRouter()
	r.Use(sysauth.RequireSignedIn)

	r.Get("/", h.List)
	r.Get("/{competition_id}", h.Get)
	r.Get("/{competition_id}/leaderboard", h.Leaderboard)
	r.Get("/{competition_id}/my-stats", h.MyStats)
	r.Get("/{competition_id}/participants", h.Participants)

	r.Group(func(r chi.Router) {
		r.Use(sysauth.RequireApprovalTier)
		r.Post("/", h.Create)
		r.Put("/{competition_id}", h.Update)
		r.Post("/{competition_id}/cancel", h.Cancel)
		r.Put("/{competition_id}/participants", h.SetParticipants)
		r.Get("/{competition_id}/available-participants", h.AvailableParticipants)
		r.Get("/{competition_id}/analytics", h.Analytics)
	})
	return r
}
