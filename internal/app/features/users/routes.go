package users

import (
	"github.com/go-chi/chi/v5"

	sysauth "github.com/canvashub/canvashub/internal/app/system/auth"
)

// Routes returns a subrouter serving user management, mounted under
// /users. All endpoints require a signed-in caller; per-target checks
// live in the handlers.
func Routes(h *Handler) chi.Router {
	r := chi.NewRouter()
	r.Use(sysauth.RequireSignedIn)

	r.Post("/", h.Create)
	r.Get("/", h.List)
	r.Get("/{username}", h.Get)
	r.Get("/{username}/stats", h.Stats)
	r.Put("/{username}", h.UpdateProfile)
	r.Put("/{username}/role", h.ChangeRole)
	r.Put("/{username}/password", h.ChangePassword)
	r.Put("/{username}/points", h.EditPoints)
	r.Post("/{username}/deactivate", h.Deactivate)
	r.Post("/{username}/reactivate", h.Reactivate)
	r.Delete("/{username}", h.Delete)
	return r
}
