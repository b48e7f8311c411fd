package news

import (
	"github.com/go-chi/chi/v5"

	sysauth "github.com/canvashub/canvashub/internal/app/system/auth"
)

// Routes returns a subrouter serving the news endpoints, mounted under
// /news.
func Routes(h *Handler) chi.Router {
	r := chi.NewRouter()
	r.Use(sysauth.RequireSignedIn)

	r.Get("/", h.List)
	r.Get("/unread-count", h.UnreadCount)
	r.Get("/{news_id}", h.Get)
	r.Get("/{news_id}/images/{blob_id}", h.Image)
	r.Post("/{news_id}/read", h.MarkRead)

	r.Group(func(r chi.Router) {
		r.Use(sysauth.RequireApprovalTier)
		r.Post("/", h.Create)
		r.Put("/{news_id}", h.Update)
		r.Delete("/{news_id}", h.Delete)
	})

	r.With(sysauth.RequireAdminTier).Put("/{news_id}/pin", h.Pin)
	return r
}
