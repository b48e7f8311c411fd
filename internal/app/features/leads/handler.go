// Package leads serves the lead lifecycle: capture with GPS and photo,
// the approval queue, sales and superstar flags, stats, search, and CSV
// export. Transitions live in leadflow; this package does the wiring:
// load, authorize, transition, persist, award, notify.
package leads

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"

	"github.com/canvashub/canvashub/internal/app/policy/leadpolicy"
	blobstore "github.com/canvashub/canvashub/internal/app/store/blobs"
	counterstore "github.com/canvashub/canvashub/internal/app/store/counters"
	leadstore "github.com/canvashub/canvashub/internal/app/store/leads"
	notificationstore "github.com/canvashub/canvashub/internal/app/store/notifications"
	userstore "github.com/canvashub/canvashub/internal/app/store/users"
	"github.com/canvashub/canvashub/internal/app/system/apperr"
	"github.com/canvashub/canvashub/internal/app/system/auth"
	"github.com/canvashub/canvashub/internal/app/system/httpjson"
	"github.com/canvashub/canvashub/internal/app/system/timeouts"
	"github.com/canvashub/canvashub/internal/domain/leadflow"
	"github.com/canvashub/canvashub/internal/domain/models"
	"github.com/canvashub/canvashub/internal/domain/roles"
)

// Handler holds dependencies for the lead endpoints.
type Handler struct {
	Leads    *leadstore.Store
	Users    *userstore.Store
	Blobs    *blobstore.Store
	Counters *counterstore.Store
	Notify   *notificationstore.Dispatcher
	Log      *zap.Logger
}

func NewHandler(leads *leadstore.Store, users *userstore.Store, blobs *blobstore.Store, counters *counterstore.Store, notify *notificationstore.Dispatcher, logger *zap.Logger) *Handler {
	return &Handler{Leads: leads, Users: users, Blobs: blobs, Counters: counters, Notify: notify, Log: logger}
}

type photoPayload struct {
	ContentType string `json:"content_type"`
	Data        string `json:"data"` // base64
}

type createRequest struct {
	ClientName               string           `json:"client_name"`
	Phone                    string           `json:"phone"`
	Email                    string           `json:"email"`
	Address                  string           `json:"address"`
	MaritalStatus            string           `json:"marital_status"`
	Location                 *models.GeoPoint `json:"location"`
	ProductsInterested       []string         `json:"products_interested"`
	PreferredAppointmentTime string           `json:"preferred_appointment_time"`
	Notes                    string           `json:"notes"`
	Photo                    *photoPayload    `json:"photo"`
}

// Create handles POST /leads.
func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	actor, _ := auth.CurrentUser(r)

	var req createRequest
	if err := httpjson.Decode(r, &req); err != nil {
		httpjson.Error(w, h.Log, err)
		return
	}
	if req.ClientName == "" {
		httpjson.Error(w, h.Log, apperr.Validationf("client_name is required"))
		return
	}
	if actor.OrganizationID == "" {
		httpjson.Error(w, h.Log, apperr.Deniedf("leads belong to an organization; super admins capture none"))
		return
	}

	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Long(), h.Log, "create lead")
	defer cancel()

	creator, err := h.Users.GetByUsername(ctx, actor.Username)
	if err != nil {
		httpjson.Error(w, h.Log, err)
		return
	}

	leadID, err := h.Counters.NextScopedID(ctx, counterstore.KindLead, actor.OrganizationID)
	if err != nil {
		httpjson.Error(w, h.Log, err)
		return
	}

	lead := models.Lead{
		LeadID:                   leadID,
		OrganizationID:           actor.OrganizationID,
		ClientName:               req.ClientName,
		Phone:                    req.Phone,
		Email:                    req.Email,
		Address:                  req.Address,
		MaritalStatus:            req.MaritalStatus,
		Location:                 req.Location,
		ProductsInterested:       req.ProductsInterested,
		PreferredAppointmentTime: req.PreferredAppointmentTime,
		Notes:                    req.Notes,
	}

	if req.Photo != nil && req.Photo.Data != "" {
		photoID, err := h.Blobs.Put(ctx, actor.OrganizationID, models.BlobLeadPhoto, leadID, req.Photo.ContentType, req.Photo.Data, actor.Username)
		if err != nil {
			httpjson.Error(w, h.Log, err)
			return
		}
		lead.PropertyPhotoID = photoID
	}

	award := leadflow.Create(&lead, creator, time.Now())
	created, err := h.Leads.Create(ctx, lead)
	if err != nil {
		httpjson.Error(w, h.Log, err)
		return
	}
	h.applyAward(ctx, award)
	httpjson.Created(w, created)
}

// List handles GET /leads, scoped by role. Accepts status, q, since, and
// until query parameters.
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	actor, _ := auth.CurrentUser(r)

	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Medium(), h.Log, "list leads")
	defer cancel()

	f, err := h.scopedFilter(ctx, actor)
	if err != nil {
		httpjson.Error(w, h.Log, err)
		return
	}

	q := r.URL.Query()
	f.Query = q.Get("q")
	if status := q.Get("status"); status != "" {
		f.Status = models.LeadStatus(status)
	}
	if since, err := time.Parse(time.RFC3339, q.Get("since")); err == nil {
		f.Since = &since
	}
	if until, err := time.Parse(time.RFC3339, q.Get("until")); err == nil {
		f.Until = &until
	}

	leads, err := h.Leads.List(ctx, f)
	if err != nil {
		httpjson.Error(w, h.Log, err)
		return
	}
	httpjson.OK(w, map[string]any{"leads": leads, "count": len(leads)})
}

// Get handles GET /leads/{lead_id}.
func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Short(), h.Log, "get lead")
	defer cancel()

	lead, err := h.loadAccessible(ctx, r)
	if err != nil {
		httpjson.Error(w, h.Log, err)
		return
	}
	httpjson.OK(w, lead)
}

// Photo handles GET /leads/{lead_id}/photo.
func (h *Handler) Photo(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Short(), h.Log, "get lead photo")
	defer cancel()

	lead, err := h.loadAccessible(ctx, r)
	if err != nil {
		httpjson.Error(w, h.Log, err)
		return
	}
	if lead.PropertyPhotoID == "" {
		httpjson.Error(w, h.Log, apperr.NotFoundf("lead has no photo"))
		return
	}
	blob, err := h.Blobs.Get(ctx, lead.PropertyPhotoID)
	if err != nil {
		httpjson.Error(w, h.Log, apperr.NotFoundf("photo not found"))
		return
	}
	httpjson.OK(w, blob)
}

// scopedFilter converts the actor's list scope into a store filter,
// expanding a manager's team into an explicit creator list.
func (h *Handler) scopedFilter(ctx context.Context, actor *auth.Identity) (leadstore.ListFilter, error) {
	scope := leadpolicy.ListLeads(actor)
	if !scope.CanList {
		return leadstore.ListFilter{}, apperr.Deniedf("not allowed to list leads")
	}

	f := leadstore.ListFilter{}
	if !scope.AllOrgs {
		f.OrgID = scope.OrgID
	}
	switch {
	case scope.CreatorOnly:
		f.Creators = []string{actor.Username}
	case scope.TeamOf != "":
		team, err := h.Users.List(ctx, userstore.ListFilter{
			OrgID:     actor.OrganizationID,
			ManagerID: scope.TeamOf,
			Self:      scope.TeamOf,
		})
		if err != nil {
			return leadstore.ListFilter{}, err
		}
		creators := make([]string, 0, len(team))
		for _, u := range team {
			creators = append(creators, u.Username)
		}
		f.Creators = creators
	}
	return f, nil
}

// loadRaw fetches the lead named in the URL with no access check.
func (h *Handler) loadRaw(ctx context.Context, r *http.Request) (*models.Lead, error) {
	leadID := chi.URLParam(r, "lead_id")
	lead, err := h.Leads.GetByLeadID(ctx, leadID)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, apperr.NotFoundf("lead %q not found", leadID)
		}
		return nil, err
	}
	return lead, nil
}

// loadAccessible fetches the lead in the URL and checks CanAccess against
// the creator's current manager.
func (h *Handler) loadAccessible(ctx context.Context, r *http.Request) (*models.Lead, error) {
	actor, _ := auth.CurrentUser(r)

	lead, err := h.loadRaw(ctx, r)
	if err != nil {
		return nil, err
	}
	if !leadpolicy.CanAccess(actor, lead, h.creatorManager(ctx, lead)) {
		return nil, apperr.Deniedf("not allowed to access this lead")
	}
	return lead, nil
}

// creatorManager resolves the lead creator's current manager_id. Missing
// creators (deleted users) resolve to no manager.
func (h *Handler) creatorManager(ctx context.Context, lead *models.Lead) string {
	creator, err := h.Users.GetByUsername(ctx, lead.CreatedBy)
	if err != nil {
		return ""
	}
	return creator.ManagerID
}

// applyAward writes a transition's point award to the creator's ledger.
// Best effort after the lead itself is persisted; failures are logged.
func (h *Handler) applyAward(ctx context.Context, award *leadflow.PointAward) {
	if award == nil {
		return
	}
	if _, err := h.Users.AwardPoints(ctx, award.Username, award.Points, award.Reason, ""); err != nil {
		h.Log.Error("point award failed",
			zap.String("username", award.Username),
			zap.Int("points", award.Points),
			zap.Error(err))
	}
}

// notifyCreator sends a lifecycle notification to the lead's creator.
func (h *Handler) notifyCreator(ctx context.Context, lead *models.Lead, notifType, title, message string) {
	if lead.CreatedBy == "" || lead.CreatedBy == "deleted_user" {
		return
	}
	h.Notify.Send(ctx, models.Notification{
		OrganizationID: lead.OrganizationID,
		Title:          title,
		Message:        message,
		Type:           notifType,
		Recipients:     []string{lead.CreatedBy},
		Data:           map[string]string{"lead_id": lead.LeadID},
	})
}

// managerRecipients returns the users who review leads for the creator:
// their manager plus the org's admin managers.
func (h *Handler) managerRecipients(ctx context.Context, lead *models.Lead) []string {
	seen := map[string]bool{}
	var out []string
	if mgr := h.creatorManager(ctx, lead); mgr != "" {
		seen[mgr] = true
		out = append(out, mgr)
	}
	admins, err := h.Users.List(ctx, userstore.ListFilter{
		OrgID: lead.OrganizationID, Role: roles.AdminManager, ActiveOnly: true,
	})
	if err != nil {
		return out
	}
	for _, a := range admins {
		if !seen[a.Username] {
			out = append(out, a.Username)
		}
	}
	return out
}
