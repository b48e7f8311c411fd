package rewards

import (
	"github.com/go-chi/chi/v5"

	sysauth "github.com/canvashub/canvashub/internal/app/system/auth"
)

// Routes returns a subrouter serving the point store, mounted under
// /rewards. Fixed paths come before the {reward_id} wildcard.
func Routes(h *Handler) chi.Router {
	r := chi.NewRouter()
	r.Use(sysauth.RequireSignedIn)

	r.Get("/", h.List)
	r.Get("/points/mine", h.MyPoints)
	r.Get("/redemptions/mine", h.MyRedemptions)

	r.Group(func(r chi.Router) {
		r.Use(sysauth.RequireAdminTier)
		r.Post("/", h.Create)
		r.Get("/analytics", h.Analytics)
		r.Get("/redemptions", h.Redemptions)
		r.Put("/redemptions/{redemption_id}/status", h.SetRedemptionStatus)
		r.Put("/{reward_id}", h.Update)
		r.Delete("/{reward_id}", h.Delete)
	})

	r.Get("/{reward_id}", h.Get)
	r.Post("/{reward_id}/redeem", h.Redeem)
	return r
}
