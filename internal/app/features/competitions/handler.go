// Package competitions serves contest management and leaderboards.
// Competition status is derived from the clock on every read; a
// past-window competition is completed lazily by the first reader, and
// the conditional store update guarantees the prize is awarded once.
package competitions

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"

	"github.com/canvashub/canvashub/internal/app/policy/competitionpolicy"
	competitionstore "github.com/canvashub/canvashub/internal/app/store/competitions"
	counterstore "github.com/canvashub/canvashub/internal/app/store/counters"
	leadstore "github.com/canvashub/canvashub/internal/app/store/leads"
	notificationstore "github.com/canvashub/canvashub/internal/app/store/notifications"
	userstore "github.com/canvashub/canvashub/internal/app/store/users"
	"github.com/canvashub/canvashub/internal/app/system/apperr"
	"github.com/canvashub/canvashub/internal/app/system/auth"
	"github.com/canvashub/canvashub/internal/app/system/httpjson"
	"github.com/canvashub/canvashub/internal/app/system/timeouts"
	"github.com/canvashub/canvashub/internal/domain/models"
	"github.com/canvashub/canvashub/internal/domain/participants"
	"github.com/canvashub/canvashub/internal/domain/roles"
)

// Handler holds dependencies for the competition endpoints.
type Handler struct {
	Comps    *competitionstore.Store
	Users    *userstore.Store
	Leads    *leadstore.Store
	Counters *counterstore.Store
	Notify   *notificationstore.Dispatcher
	Log      *zap.Logger
}

func NewHandler(comps *competitionstore.Store, users *userstore.Store, leads *leadstore.Store, counters *counterstore.Store, notify *notificationstore.Dispatcher, logger *zap.Logger) *Handler {
	return &Handler{Comps: comps, Users: users, Leads: leads, Counters: counters, Notify: notify, Log: logger}
}

type createRequest struct {
	Title                string    `json:"title"`
	Description          string    `json:"description"`
	Type                 string    `json:"type"`
	StartDate            time.Time `json:"start_date"`
	EndDate              time.Time `json:"end_date"`
	PrizeDescription     string    `json:"prize_description"`
	PrizePoints          int       `json:"prize_points"`
	TargetRoles          []string  `json:"target_roles"`
	MinParticipants      int       `json:"min_participants"`
	SelectionMode        string    `json:"participant_selection_mode"`
	SelectedParticipants []string  `json:"selected_participants"`
	OrganizationID       string    `json:"organization_id"`
}

// Create handles POST /competitions.
func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	actor, _ := auth.CurrentUser(r)

	var req createRequest
	if err := httpjson.Decode(r, &req); err != nil {
		httpjson.Error(w, h.Log, err)
		return
	}

	compType, ok := models.ParseCompetitionType(req.Type)
	if !ok {
		httpjson.Error(w, h.Log, apperr.Validationf("unknown competition type %q", req.Type))
		return
	}
	if req.Title == "" {
		httpjson.Error(w, h.Log, apperr.Validationf("title is required"))
		return
	}
	if !req.EndDate.After(req.StartDate) {
		httpjson.Error(w, h.Log, apperr.Validationf("end_date must be after start_date"))
		return
	}
	mode := req.SelectionMode
	if mode == "" {
		mode = models.SelectAll
	}
	if mode != models.SelectAll && mode != models.SelectRoles && mode != models.SelectSpecific {
		httpjson.Error(w, h.Log, apperr.Validationf("unknown participant_selection_mode %q", mode))
		return
	}

	orgID := actor.OrganizationID
	if actor.Role == roles.SuperAdmin {
		orgID = req.OrganizationID
	}
	if orgID == "" {
		httpjson.Error(w, h.Log, apperr.Validationf("organization_id is required"))
		return
	}
	if !competitionpolicy.CanManage(actor, orgID) {
		httpjson.Error(w, h.Log, apperr.Deniedf("not allowed to create competitions"))
		return
	}

	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Long(), h.Log, "create competition")
	defer cancel()

	comp := models.Competition{
		OrganizationID:       orgID,
		Title:                req.Title,
		Description:          req.Description,
		Type:                 compType,
		StartDate:            req.StartDate,
		EndDate:              req.EndDate,
		PrizeDescription:     req.PrizeDescription,
		PrizePoints:          req.PrizePoints,
		TargetRoles:          req.TargetRoles,
		MinParticipants:      req.MinParticipants,
		SelectionMode:        mode,
		SelectedParticipants: req.SelectedParticipants,
		CreatedBy:            actor.Username,
	}
	if err := h.validateParticipants(ctx, &comp); err != nil {
		httpjson.Error(w, h.Log, err)
		return
	}

	id, err := h.Counters.NextScopedID(ctx, counterstore.KindCompetition, orgID)
	if err != nil {
		httpjson.Error(w, h.Log, err)
		return
	}
	comp.CompetitionID = id

	created, err := h.Comps.Create(ctx, comp)
	if err != nil {
		httpjson.Error(w, h.Log, err)
		return
	}
	created.Status = participants.StatusAt(&created, time.Now())
	httpjson.Created(w, created)
}

// List handles GET /competitions for the caller's organization. Status is
// derived per row; rows past their window are completed on read.
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	actor, _ := auth.CurrentUser(r)

	orgID := actor.OrganizationID
	if actor.Role == roles.SuperAdmin {
		orgID = r.URL.Query().Get("org_id")
	}
	if orgID == "" {
		httpjson.Error(w, h.Log, apperr.Validationf("org_id is required"))
		return
	}

	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Long(), h.Log, "list competitions")
	defer cancel()

	comps, err := h.Comps.ListByOrg(ctx, orgID)
	if err != nil {
		httpjson.Error(w, h.Log, err)
		return
	}

	now := time.Now()
	for i := range comps {
		if participants.Due(&comps[i], now) {
			h.complete(ctx, &comps[i])
		}
		comps[i].Status = participants.StatusAt(&comps[i], now)
	}
	httpjson.OK(w, map[string]any{"competitions": comps, "count": len(comps)})
}

// Get handles GET /competitions/{competition_id}.
func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Long(), h.Log, "get competition")
	defer cancel()

	comp, err := h.loadViewable(ctx, r)
	if err != nil {
		httpjson.Error(w, h.Log, err)
		return
	}
	if participants.Due(comp, time.Now()) {
		h.complete(ctx, comp)
	}
	comp.Status = participants.StatusAt(comp, time.Now())
	httpjson.OK(w, comp)
}

type updateRequest struct {
	Title                string    `json:"title"`
	Description          string    `json:"description"`
	PrizeDescription     string    `json:"prize_description"`
	PrizePoints          int       `json:"prize_points"`
	EndDate              time.Time `json:"end_date"`
	TargetRoles          []string  `json:"target_roles"`
	MinParticipants      int       `json:"min_participants"`
	SelectedParticipants []string  `json:"selected_participants"`
}

// Update handles PUT /competitions/{competition_id}. Terminal
// competitions cannot be edited.
func (h *Handler) Update(w http.ResponseWriter, r *http.Request) {
	var req updateRequest
	if err := httpjson.Decode(r, &req); err != nil {
		httpjson.Error(w, h.Log, err)
		return
	}
	if req.Title == "" {
		httpjson.Error(w, h.Log, apperr.Validationf("title is required"))
		return
	}

	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Long(), h.Log, "update competition")
	defer cancel()

	comp, err := h.loadManaged(ctx, r)
	if err != nil {
		httpjson.Error(w, h.Log, err)
		return
	}
	// An omitted end_date keeps the current one.
	endDate := req.EndDate
	if endDate.IsZero() {
		endDate = comp.EndDate
	}
	if !endDate.After(comp.StartDate) {
		httpjson.Error(w, h.Log, apperr.Validationf("end_date must be after start_date"))
		return
	}

	check := *comp
	check.TargetRoles = req.TargetRoles
	check.MinParticipants = req.MinParticipants
	check.SelectedParticipants = req.SelectedParticipants
	if err := h.validateParticipants(ctx, &check); err != nil {
		httpjson.Error(w, h.Log, err)
		return
	}

	err = h.Comps.Apply(ctx, comp.CompetitionID, competitionstore.Update{
		Title:                req.Title,
		Description:          req.Description,
		PrizeDescription:     req.PrizeDescription,
		PrizePoints:          req.PrizePoints,
		EndDate:              endDate,
		TargetRoles:          req.TargetRoles,
		MinParticipants:      req.MinParticipants,
		SelectedParticipants: req.SelectedParticipants,
	})
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			httpjson.Error(w, h.Log, apperr.Invalidf("competition has ended and cannot be edited"))
			return
		}
		httpjson.Error(w, h.Log, err)
		return
	}
	httpjson.OK(w, map[string]string{"status": "updated"})
}

// Cancel handles POST /competitions/{competition_id}/cancel.
func (h *Handler) Cancel(w http.ResponseWriter, r *http.Request) {
	actor, _ := auth.CurrentUser(r)

	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Medium(), h.Log, "cancel competition")
	defer cancel()

	comp, err := h.loadManaged(ctx, r)
	if err != nil {
		httpjson.Error(w, h.Log, err)
		return
	}

	if err := h.Comps.Cancel(ctx, comp.CompetitionID, actor.Username); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			httpjson.Error(w, h.Log, apperr.Invalidf("competition already ended"))
			return
		}
		httpjson.Error(w, h.Log, err)
		return
	}
	httpjson.OK(w, map[string]string{"status": "cancelled"})
}

// validateParticipants enforces the selection-mode rules at write time.
func (h *Handler) validateParticipants(ctx context.Context, comp *models.Competition) error {
	if comp.SelectionMode != models.SelectSpecific {
		return nil
	}
	lookup := map[string]*models.User{}
	for _, name := range comp.SelectedParticipants {
		u, err := h.Users.GetByUsername(ctx, name)
		if err == nil {
			lookup[name] = u
		}
	}
	if err := participants.ValidateSpecific(comp, comp.SelectedParticipants, lookup); err != nil {
		return apperr.Wrap(err, apperr.Validation, err.Error())
	}
	return nil
}

// loadViewable fetches the competition and checks CanView. Cross-tenant
// probes read as NotFound.
func (h *Handler) loadViewable(ctx context.Context, r *http.Request) (*models.Competition, error) {
	actor, _ := auth.CurrentUser(r)
	compID := chi.URLParam(r, "competition_id")

	comp, err := h.Comps.GetByCompetitionID(ctx, compID)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, apperr.NotFoundf("competition %q not found", compID)
		}
		return nil, err
	}
	if !competitionpolicy.CanView(actor, comp) {
		return nil, apperr.NotFoundf("competition %q not found", compID)
	}
	return comp, nil
}

// loadManaged is loadViewable plus the management check.
func (h *Handler) loadManaged(ctx context.Context, r *http.Request) (*models.Competition, error) {
	actor, _ := auth.CurrentUser(r)

	comp, err := h.loadViewable(ctx, r)
	if err != nil {
		return nil, err
	}
	if !competitionpolicy.CanManage(actor, comp.OrganizationID) {
		return nil, apperr.Deniedf("not allowed to manage this competition")
	}
	return comp, nil
}
