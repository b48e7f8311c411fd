package timetracking

import (
	"github.com/go-chi/chi/v5"

	sysauth "github.com/canvashub/canvashub/internal/app/system/auth"
)

// Routes returns a subrouter serving the time clock, mounted under /time.
func Routes(h *Handler) chi.Router {
	r := chi.NewRouter()
	r.Use(sysauth.RequireSignedIn)

	r.Post("/clock-in", h.ClockIn)
	r.Post("/clock-out", h.ClockOut)
	r.Get("/status", h.Status)
	r.Get("/history", h.History)
	r.Get("/daily", h.Daily)

	r.Post("/breaks/start", h.StartBreak)
	r.Post("/breaks/end", h.EndBreak)
	r.Get("/breaks/status", h.BreakStatus)

	r.Group(func(r chi.Router) {
		r.Use(sysauth.RequireApprovalTier)
		r.Post("/breaks/{username}/force-end", h.ForceEndBreak)
		r.Get("/active", h.ActiveUsers)
	})
	return r
}
