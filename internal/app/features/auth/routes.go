package auth

import (
	"github.com/go-chi/chi/v5"

	sysauth "github.com/canvashub/canvashub/internal/app/system/auth"
)

// Routes returns a subrouter serving the auth endpoints, mounted under
// /auth.
func Routes(h *Handler) chi.Router {
	r := chi.NewRouter()
	r.Post("/login", h.Login)
	r.With(sysauth.RequireSignedIn).Get("/me", h.Me)
	return r
}
