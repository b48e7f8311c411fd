// Package news serves org broadcasts: short-lived posts with sanitized
// HTML content, plan-capped images, pinning, read receipts, and the
// expiry cleanup used by the background sweep.
package news

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"

	"github.com/canvashub/canvashub/internal/app/policy/contentpolicy"
	blobstore "github.com/canvashub/canvashub/internal/app/store/blobs"
	counterstore "github.com/canvashub/canvashub/internal/app/store/counters"
	newsstore "github.com/canvashub/canvashub/internal/app/store/news"
	notificationstore "github.com/canvashub/canvashub/internal/app/store/notifications"
	organizationstore "github.com/canvashub/canvashub/internal/app/store/organizations"
	userstore "github.com/canvashub/canvashub/internal/app/store/users"
	"github.com/canvashub/canvashub/internal/app/system/apperr"
	"github.com/canvashub/canvashub/internal/app/system/auth"
	"github.com/canvashub/canvashub/internal/app/system/htmlsanitize"
	"github.com/canvashub/canvashub/internal/app/system/httpjson"
	"github.com/canvashub/canvashub/internal/app/system/timeouts"
	"github.com/canvashub/canvashub/internal/domain/models"
	"github.com/canvashub/canvashub/internal/domain/planlimits"
	"github.com/canvashub/canvashub/internal/domain/roles"
)

// Allowed expiry windows, in hours.
var expiryHours = map[int]bool{24: true, 48: true, 72: true}

// Handler holds dependencies for the news endpoints.
type Handler struct {
	News     *newsstore.Store
	Orgs     *organizationstore.Store
	Users    *userstore.Store
	Blobs    *blobstore.Store
	Counters *counterstore.Store
	Notify   *notificationstore.Dispatcher
	Log      *zap.Logger
}

func NewHandler(news *newsstore.Store, orgs *organizationstore.Store, users *userstore.Store, blobs *blobstore.Store, counters *counterstore.Store, notify *notificationstore.Dispatcher, logger *zap.Logger) *Handler {
	return &Handler{News: news, Orgs: orgs, Users: users, Blobs: blobs, Counters: counters, Notify: notify, Log: logger}
}

type imagePayload struct {
	ContentType string `json:"content_type"`
	Data        string `json:"data"` // base64
}

type createRequest struct {
	Title       string         `json:"title"`
	Content     string         `json:"content"`
	Priority    string         `json:"priority"`
	TargetRoles []string       `json:"target_roles"`
	ExpiryHours int            `json:"expiry_hours"`
	Pinned      bool           `json:"pinned"`
	Images      []imagePayload `json:"images"`
}

// Create handles POST /news.
func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	actor, _ := auth.CurrentUser(r)

	var req createRequest
	if err := httpjson.Decode(r, &req); err != nil {
		httpjson.Error(w, h.Log, err)
		return
	}
	if req.Title == "" || req.Content == "" {
		httpjson.Error(w, h.Log, apperr.Validationf("title and content are required"))
		return
	}
	if req.ExpiryHours == 0 {
		req.ExpiryHours = 24
	}
	if !expiryHours[req.ExpiryHours] {
		httpjson.Error(w, h.Log, apperr.Validationf("expiry_hours must be 24, 48, or 72"))
		return
	}
	priority := req.Priority
	if priority == "" {
		priority = models.NewsPriorityNormal
	}

	orgID := actor.OrganizationID
	if !contentpolicy.CanManageNews(actor, orgID) || orgID == "" {
		httpjson.Error(w, h.Log, apperr.Deniedf("not allowed to post news"))
		return
	}
	if req.Pinned && !contentpolicy.CanPinNews(actor, orgID) {
		httpjson.Error(w, h.Log, apperr.Deniedf("not allowed to pin posts"))
		return
	}

	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Long(), h.Log, "create news")
	defer cancel()

	org, err := h.Orgs.GetByOrgID(ctx, orgID)
	if err != nil {
		httpjson.Error(w, h.Log, err)
		return
	}
	limits := planlimits.ForPlan(org.Plan)
	if len(req.Images) > limits.MaxNewsImages {
		httpjson.Error(w, h.Log, apperr.Limitf("plan allows at most %d images per post", limits.MaxNewsImages))
		return
	}

	newsID, err := h.Counters.NextScopedID(ctx, counterstore.KindNews, orgID)
	if err != nil {
		httpjson.Error(w, h.Log, err)
		return
	}

	imageIDs := make([]string, 0, len(req.Images))
	for _, img := range req.Images {
		id, err := h.Blobs.Put(ctx, orgID, models.BlobNewsImage, newsID, img.ContentType, img.Data, actor.Username)
		if err != nil {
			httpjson.Error(w, h.Log, err)
			return
		}
		imageIDs = append(imageIDs, id)
	}

	now := time.Now()
	post, err := h.News.Create(ctx, models.News{
		NewsID:         newsID,
		OrganizationID: orgID,
		Title:          req.Title,
		Content:        htmlsanitize.Sanitize(req.Content),
		Priority:       priority,
		TargetRoles:    req.TargetRoles,
		ImageIDs:       imageIDs,
		IsPinned:       req.Pinned,
		ExpiresAt:      now.Add(time.Duration(req.ExpiryHours) * time.Hour),
		CreatedBy:      actor.Username,
	})
	if err != nil {
		httpjson.Error(w, h.Log, err)
		return
	}

	h.notifyAudience(ctx, &post)
	httpjson.Created(w, post)
}

type listedPost struct {
	models.News
	Read bool `json:"read"`
}

// List handles GET /news: the caller's unexpired feed annotated with read
// state.
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	actor, _ := auth.CurrentUser(r)
	if actor.OrganizationID == "" {
		httpjson.Error(w, h.Log, apperr.Validationf("news feeds are organization-scoped"))
		return
	}

	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Medium(), h.Log, "list news")
	defer cancel()

	posts, err := h.News.ListUnexpired(ctx, actor.OrganizationID, string(actor.Role), time.Now())
	if err != nil {
		httpjson.Error(w, h.Log, err)
		return
	}
	readSet, err := h.News.ReadSet(ctx, actor.Username)
	if err != nil {
		httpjson.Error(w, h.Log, err)
		return
	}

	out := make([]listedPost, 0, len(posts))
	unread := 0
	for _, p := range posts {
		lp := listedPost{News: p, Read: readSet[p.NewsID]}
		if !lp.Read {
			unread++
		}
		out = append(out, lp)
	}
	httpjson.OK(w, map[string]any{"news": out, "count": len(out), "unread": unread})
}

// Get handles GET /news/{news_id}.
func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Short(), h.Log, "get news")
	defer cancel()

	post, err := h.loadViewable(ctx, r)
	if err != nil {
		httpjson.Error(w, h.Log, err)
		return
	}
	httpjson.OK(w, post)
}

// UnreadCount handles GET /news/unread-count: the badge number for the
// caller's feed.
func (h *Handler) UnreadCount(w http.ResponseWriter, r *http.Request) {
	actor, _ := auth.CurrentUser(r)
	if actor.OrganizationID == "" {
		httpjson.OK(w, map[string]int{"unread": 0})
		return
	}

	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Short(), h.Log, "news unread count")
	defer cancel()

	posts, err := h.News.ListUnexpired(ctx, actor.OrganizationID, string(actor.Role), time.Now())
	if err != nil {
		httpjson.Error(w, h.Log, err)
		return
	}
	readSet, err := h.News.ReadSet(ctx, actor.Username)
	if err != nil {
		httpjson.Error(w, h.Log, err)
		return
	}

	unread := 0
	for _, p := range posts {
		if !readSet[p.NewsID] {
			unread++
		}
	}
	httpjson.OK(w, map[string]int{"unread": unread})
}

// Image handles GET /news/{news_id}/images/{blob_id}.
func (h *Handler) Image(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Medium(), h.Log, "get news image")
	defer cancel()

	post, err := h.loadViewable(ctx, r)
	if err != nil {
		httpjson.Error(w, h.Log, err)
		return
	}

	blobID := chi.URLParam(r, "blob_id")
	blob, err := h.Blobs.Get(ctx, blobID)
	if err != nil || blob.OwnerID != post.NewsID {
		httpjson.Error(w, h.Log, apperr.NotFoundf("image %q not found", blobID))
		return
	}
	httpjson.OK(w, blob)
}

type updateRequest struct {
	Title       string   `json:"title"`
	Content     string   `json:"content"`
	Priority    string   `json:"priority"`
	TargetRoles []string `json:"target_roles"`
}

// Update handles PUT /news/{news_id}.
func (h *Handler) Update(w http.ResponseWriter, r *http.Request) {
	var req updateRequest
	if err := httpjson.Decode(r, &req); err != nil {
		httpjson.Error(w, h.Log, err)
		return
	}
	if req.Title == "" || req.Content == "" {
		httpjson.Error(w, h.Log, apperr.Validationf("title and content are required"))
		return
	}

	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Medium(), h.Log, "update news")
	defer cancel()

	post, err := h.loadManaged(ctx, r)
	if err != nil {
		httpjson.Error(w, h.Log, err)
		return
	}

	priority := req.Priority
	if priority == "" {
		priority = post.Priority
	}
	err = h.News.Update(ctx, post.NewsID, newsstore.Update{
		Title:       req.Title,
		Content:     htmlsanitize.Sanitize(req.Content),
		Priority:    priority,
		TargetRoles: req.TargetRoles,
	})
	if err != nil {
		httpjson.Error(w, h.Log, err)
		return
	}
	httpjson.OK(w, map[string]string{"status": "updated"})
}

type pinRequest struct {
	Pinned bool `json:"pinned"`
}

// Pin handles PUT /news/{news_id}/pin. Admin tier only.
func (h *Handler) Pin(w http.ResponseWriter, r *http.Request) {
	actor, _ := auth.CurrentUser(r)

	var req pinRequest
	if err := httpjson.Decode(r, &req); err != nil {
		httpjson.Error(w, h.Log, err)
		return
	}

	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Medium(), h.Log, "pin news")
	defer cancel()

	post, err := h.loadViewable(ctx, r)
	if err != nil {
		httpjson.Error(w, h.Log, err)
		return
	}
	if !contentpolicy.CanPinNews(actor, post.OrganizationID) {
		httpjson.Error(w, h.Log, apperr.Deniedf("not allowed to pin posts"))
		return
	}

	if err := h.News.SetPinned(ctx, post.NewsID, req.Pinned); err != nil {
		httpjson.Error(w, h.Log, err)
		return
	}
	httpjson.OK(w, map[string]any{"status": "updated", "pinned": req.Pinned})
}

// Delete handles DELETE /news/{news_id}: the post, its read receipts, and
// its images.
func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Medium(), h.Log, "delete news")
	defer cancel()

	post, err := h.loadManaged(ctx, r)
	if err != nil {
		httpjson.Error(w, h.Log, err)
		return
	}

	if _, err := h.News.Delete(ctx, post.NewsID); err != nil {
		httpjson.Error(w, h.Log, err)
		return
	}
	if _, err := h.Blobs.DeleteByOwner(ctx, models.BlobNewsImage, post.NewsID); err != nil {
		h.Log.Warn("news image cleanup failed", zap.String("news_id", post.NewsID), zap.Error(err))
	}
	httpjson.OK(w, map[string]string{"status": "deleted"})
}

// MarkRead handles POST /news/{news_id}/read.
func (h *Handler) MarkRead(w http.ResponseWriter, r *http.Request) {
	actor, _ := auth.CurrentUser(r)

	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Short(), h.Log, "mark news read")
	defer cancel()

	post, err := h.loadViewable(ctx, r)
	if err != nil {
		httpjson.Error(w, h.Log, err)
		return
	}
	if err := h.News.MarkRead(ctx, post.NewsID, actor.Username, time.Now()); err != nil {
		httpjson.Error(w, h.Log, err)
		return
	}
	httpjson.OK(w, map[string]string{"status": "read"})
}

// notifyAudience pushes a posted notice to the users the post targets.
func (h *Handler) notifyAudience(ctx context.Context, post *models.News) {
	f := userstore.ListFilter{OrgID: post.OrganizationID, ActiveOnly: true}
	users, err := h.Users.List(ctx, f)
	if err != nil {
		h.Log.Warn("news audience lookup failed", zap.Error(err))
		return
	}

	targeted := map[string]bool{}
	for _, role := range post.TargetRoles {
		targeted[role] = true
	}
	var recipients []string
	for _, u := range users {
		if u.Username == post.CreatedBy {
			continue
		}
		if len(targeted) > 0 && !targeted[string(u.Role)] {
			continue
		}
		recipients = append(recipients, u.Username)
	}

	h.Notify.Send(ctx, models.Notification{
		OrganizationID: post.OrganizationID,
		Title:          "News: " + post.Title,
		Message:        excerpt(htmlsanitize.StripTags(post.Content), 140),
		Type:           models.NotifNewsPosted,
		Priority:       post.Priority,
		Recipients:     recipients,
		Data:           map[string]string{"news_id": post.NewsID},
		ExpiresAt:      &post.ExpiresAt,
	})
}

func excerpt(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return fmt.Sprintf("%s...", s[:max])
}

// loadViewable fetches the post in the URL and checks org visibility.
func (h *Handler) loadViewable(ctx context.Context, r *http.Request) (*models.News, error) {
	actor, _ := auth.CurrentUser(r)
	newsID := chi.URLParam(r, "news_id")

	post, err := h.News.GetByNewsID(ctx, newsID)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, apperr.NotFoundf("news post %q not found", newsID)
		}
		return nil, err
	}
	if !contentpolicy.CanViewOrgContent(actor, post.OrganizationID) {
		return nil, apperr.NotFoundf("news post %q not found", newsID)
	}
	return post, nil
}

// loadManaged is loadViewable plus the news management check. Managers
// may edit only their own posts; the admin tier edits any.
func (h *Handler) loadManaged(ctx context.Context, r *http.Request) (*models.News, error) {
	actor, _ := auth.CurrentUser(r)

	post, err := h.loadViewable(ctx, r)
	if err != nil {
		return nil, err
	}
	if !contentpolicy.CanManageNews(actor, post.OrganizationID) {
		return nil, apperr.Deniedf("not allowed to manage this post")
	}
	if actor.Role == roles.Manager && post.CreatedBy != actor.Username {
		return nil, apperr.Deniedf("managers may edit only their own posts")
	}
	return post, nil
}
