// Package notifications serves each user's in-app inbox. Writing happens
// elsewhere, through the dispatcher the lead, competition, news, and
// reward flows share.
package notifications

import (
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"

	notificationstore "github.com/canvashub/canvashub/internal/app/store/notifications"
	"github.com/canvashub/canvashub/internal/app/system/apperr"
	"github.com/canvashub/canvashub/internal/app/system/auth"
	"github.com/canvashub/canvashub/internal/app/system/httpjson"
	"github.com/canvashub/canvashub/internal/app/system/timeouts"
)

// Handler holds dependencies for the inbox endpoints.
type Handler struct {
	Notifications *notificationstore.Store
	Log           *zap.Logger
}

func NewHandler(notifications *notificationstore.Store, logger *zap.Logger) *Handler {
	return &Handler{Notifications: notifications, Log: logger}
}

// List handles GET /notifications: the caller's unexpired notices, newest
// first, with read state.
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	actor, _ := auth.CurrentUser(r)

	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Medium(), h.Log, "list notifications")
	defer cancel()

	notices, err := h.Notifications.ListForUser(ctx, actor.Username, time.Now())
	if err != nil {
		httpjson.Error(w, h.Log, err)
		return
	}

	type listed struct {
		ID      string `json:"notification_id"`
		Title   string `json:"title"`
		Message string `json:"message"`
		Type    string `json:"type"`
		Read    bool   `json:"read"`
		Created string `json:"created_at"`
	}
	out := make([]listed, 0, len(notices))
	unread := 0
	for _, n := range notices {
		read := n.ReadByUser(actor.Username)
		if !read {
			unread++
		}
		out = append(out, listed{
			ID:      n.NotificationID,
			Title:   n.Title,
			Message: n.Message,
			Type:    n.Type,
			Read:    read,
			Created: n.CreatedAt.Format(time.RFC3339),
		})
	}
	httpjson.OK(w, map[string]any{"notifications": out, "count": len(out), "unread": unread})
}

// UnreadCount handles GET /notifications/unread-count, the badge poll.
func (h *Handler) UnreadCount(w http.ResponseWriter, r *http.Request) {
	actor, _ := auth.CurrentUser(r)

	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Short(), h.Log, "unread count")
	defer cancel()

	n, err := h.Notifications.UnreadCount(ctx, actor.Username, time.Now())
	if err != nil {
		httpjson.Error(w, h.Log, err)
		return
	}
	httpjson.OK(w, map[string]int64{"unread": n})
}

// MarkRead handles POST /notifications/{notification_id}/read.
func (h *Handler) MarkRead(w http.ResponseWriter, r *http.Request) {
	actor, _ := auth.CurrentUser(r)
	notificationID := chi.URLParam(r, "notification_id")

	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Short(), h.Log, "mark notification read")
	defer cancel()

	err := h.Notifications.MarkRead(ctx, notificationID, actor.Username, time.Now())
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			httpjson.Error(w, h.Log, apperr.NotFoundf("notification %q not found", notificationID))
			return
		}
		httpjson.Error(w, h.Log, err)
		return
	}
	httpjson.OK(w, map[string]string{"status": "read"})
}
