// Package organizations serves tenant management: creation with
// sequential org ids, plan changes, activation, and the plan usage
// report.
package organizations

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"

	counterstore "github.com/canvashub/canvashub/internal/app/store/counters"
	organizationstore "github.com/canvashub/canvashub/internal/app/store/organizations"
	projectstore "github.com/canvashub/canvashub/internal/app/store/projects"
	userstore "github.com/canvashub/canvashub/internal/app/store/users"
	"github.com/canvashub/canvashub/internal/app/system/apperr"
	"github.com/canvashub/canvashub/internal/app/system/auth"
	"github.com/canvashub/canvashub/internal/app/system/httpjson"
	"github.com/canvashub/canvashub/internal/app/system/timeouts"
	"github.com/canvashub/canvashub/internal/domain/models"
	"github.com/canvashub/canvashub/internal/domain/planlimits"
	"github.com/canvashub/canvashub/internal/domain/roles"
)

// Handler holds dependencies for organization management.
type Handler struct {
	Orgs     *organizationstore.Store
	Users    *userstore.Store
	Projects *projectstore.Store
	Counters *counterstore.Store
	Log      *zap.Logger
}

func NewHandler(orgs *organizationstore.Store, users *userstore.Store, projects *projectstore.Store, counters *counterstore.Store, logger *zap.Logger) *Handler {
	return &Handler{Orgs: orgs, Users: users, Projects: projects, Counters: counters, Log: logger}
}

type createRequest struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Plan     string `json:"plan"`
	Industry string `json:"industry"`
	Address  string `json:"address"`
	Phone    string `json:"phone"`
}

// Create handles POST /organizations. Super admin only.
func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	actor, _ := auth.CurrentUser(r)

	var req createRequest
	if err := httpjson.Decode(r, &req); err != nil {
		httpjson.Error(w, h.Log, err)
		return
	}
	if req.Name == "" {
		httpjson.Error(w, h.Log, apperr.Validationf("organization name is required"))
		return
	}
	plan := models.PlanBasic
	if req.Plan != "" {
		p, ok := models.ParseOrganizationPlan(req.Plan)
		if !ok {
			httpjson.Error(w, h.Log, apperr.Validationf("unknown plan %q", req.Plan))
			return
		}
		plan = p
	}

	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Long(), h.Log, "create organization")
	defer cancel()

	orgID, err := h.Counters.NextOrgID(ctx)
	if err != nil {
		httpjson.Error(w, h.Log, err)
		return
	}

	org, err := h.Orgs.Create(ctx, models.Organization{
		OrgID:     orgID,
		Name:      req.Name,
		Email:     req.Email,
		Industry:  req.Industry,
		Address:   req.Address,
		Phone:     req.Phone,
		Plan:      plan,
		CreatedBy: actor.Username,
	})
	if err != nil {
		if errors.Is(err, organizationstore.ErrDuplicateOrganization) {
			httpjson.Error(w, h.Log, apperr.Invalidf("organization name already in use"))
			return
		}
		httpjson.Error(w, h.Log, err)
		return
	}
	httpjson.Created(w, org)
}

// List handles GET /organizations. Super admins see everything; everyone
// else sees only their own tenant.
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	actor, _ := auth.CurrentUser(r)

	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Medium(), h.Log, "list organizations")
	defer cancel()

	if actor.Role != roles.SuperAdmin {
		org, err := h.Orgs.GetByOrgID(ctx, actor.OrganizationID)
		if err != nil {
			httpjson.Error(w, h.Log, apperr.NotFoundf("organization not found"))
			return
		}
		httpjson.OK(w, map[string]any{"organizations": []models.Organization{*org}, "count": 1})
		return
	}

	activeOnly := r.URL.Query().Get("active") == "true"
	orgs, err := h.Orgs.List(ctx, activeOnly)
	if err != nil {
		httpjson.Error(w, h.Log, err)
		return
	}
	httpjson.OK(w, map[string]any{"organizations": orgs, "count": len(orgs)})
}

// Get handles GET /organizations/{org_id}.
func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	org, err := h.load(r)
	if err != nil {
		httpjson.Error(w, h.Log, err)
		return
	}
	httpjson.OK(w, org)
}

type updateRequest struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Industry string `json:"industry"`
	Address  string `json:"address"`
	Phone    string `json:"phone"`
}

// Update handles PUT /organizations/{org_id}. Admin tier within the org,
// or super admin.
func (h *Handler) Update(w http.ResponseWriter, r *http.Request) {
	var req updateRequest
	if err := httpjson.Decode(r, &req); err != nil {
		httpjson.Error(w, h.Log, err)
		return
	}
	if req.Name == "" {
		httpjson.Error(w, h.Log, apperr.Validationf("organization name is required"))
		return
	}

	org, err := h.loadManaged(r)
	if err != nil {
		httpjson.Error(w, h.Log, err)
		return
	}

	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Medium(), h.Log, "update organization")
	defer cancel()

	err = h.Orgs.Update(ctx, org.OrgID, organizationstore.Update{
		Name:     req.Name,
		Email:    req.Email,
		Industry: req.Industry,
		Address:  req.Address,
		Phone:    req.Phone,
	})
	if err != nil {
		if errors.Is(err, organizationstore.ErrDuplicateOrganization) {
			httpjson.Error(w, h.Log, apperr.Invalidf("organization name already in use"))
			return
		}
		httpjson.Error(w, h.Log, err)
		return
	}
	httpjson.OK(w, map[string]string{"status": "updated"})
}

type planRequest struct {
	Plan string `json:"plan"`
}

// SetPlan handles PUT /organizations/{org_id}/plan. Super admin only.
func (h *Handler) SetPlan(w http.ResponseWriter, r *http.Request) {
	orgID := chi.URLParam(r, "org_id")

	var req planRequest
	if err := httpjson.Decode(r, &req); err != nil {
		httpjson.Error(w, h.Log, err)
		return
	}
	plan, ok := models.ParseOrganizationPlan(req.Plan)
	if !ok {
		httpjson.Error(w, h.Log, apperr.Validationf("unknown plan %q", req.Plan))
		return
	}

	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Medium(), h.Log, "set organization plan")
	defer cancel()

	if err := h.Orgs.SetPlan(ctx, orgID, plan); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			httpjson.Error(w, h.Log, apperr.NotFoundf("organization %q not found", orgID))
			return
		}
		httpjson.Error(w, h.Log, err)
		return
	}
	httpjson.OK(w, map[string]any{"status": "updated", "plan": plan, "limits": planlimits.ForPlan(plan)})
}

// Deactivate handles POST /organizations/{org_id}/deactivate. Super admin
// only. Users of a deactivated org can no longer sign in.
func (h *Handler) Deactivate(w http.ResponseWriter, r *http.Request) {
	actor, _ := auth.CurrentUser(r)
	orgID := chi.URLParam(r, "org_id")

	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Medium(), h.Log, "deactivate organization")
	defer cancel()

	if err := h.Orgs.Deactivate(ctx, orgID, actor.Username); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			httpjson.Error(w, h.Log, apperr.Invalidf("organization not found or already deactivated"))
			return
		}
		httpjson.Error(w, h.Log, err)
		return
	}
	httpjson.OK(w, map[string]string{"status": "deactivated"})
}

// Reactivate handles POST /organizations/{org_id}/reactivate.
func (h *Handler) Reactivate(w http.ResponseWriter, r *http.Request) {
	orgID := chi.URLParam(r, "org_id")

	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Medium(), h.Log, "reactivate organization")
	defer cancel()

	if err := h.Orgs.Reactivate(ctx, orgID); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			httpjson.Error(w, h.Log, apperr.Invalidf("organization not found or not deactivated"))
			return
		}
		httpjson.Error(w, h.Log, err)
		return
	}
	httpjson.OK(w, map[string]string{"status": "reactivated"})
}

// Delete handles DELETE /organizations/{org_id}. Refused while the org
// still has users.
func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	orgID := chi.URLParam(r, "org_id")

	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Long(), h.Log, "delete organization")
	defer cancel()

	count, err := h.Users.Count(ctx, userstore.ListFilter{OrgID: orgID})
	if err != nil {
		httpjson.Error(w, h.Log, err)
		return
	}
	if count > 0 {
		httpjson.Error(w, h.Log, apperr.Invalidf("organization still has %d users; delete or move them first", count))
		return
	}

	deleted, err := h.Orgs.Delete(ctx, orgID)
	if err != nil {
		httpjson.Error(w, h.Log, err)
		return
	}
	if deleted == 0 {
		httpjson.Error(w, h.Log, apperr.NotFoundf("organization %q not found", orgID))
		return
	}
	httpjson.OK(w, map[string]string{"status": "deleted"})
}

// Limits handles GET /organizations/{org_id}/limits: the plan ceilings
// next to current usage.
func (h *Handler) Limits(w http.ResponseWriter, r *http.Request) {
	org, err := h.load(r)
	if err != nil {
		httpjson.Error(w, h.Log, err)
		return
	}

	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Medium(), h.Log, "organization limits")
	defer cancel()

	users, err := h.Users.Count(ctx, userstore.ListFilter{OrgID: org.OrgID, ActiveOnly: true})
	if err != nil {
		httpjson.Error(w, h.Log, err)
		return
	}
	projects, err := h.Projects.CountByOrg(ctx, org.OrgID)
	if err != nil {
		httpjson.Error(w, h.Log, err)
		return
	}

	limits := planlimits.ForPlan(org.Plan)
	httpjson.OK(w, map[string]any{
		"org_id": org.OrgID,
		"plan":   org.Plan,
		"limits": limits,
		"usage": map[string]any{
			"users":    users,
			"projects": projects,
		},
	})
}

// load fetches the org in the URL and checks view access: members of the
// org or super admins.
func (h *Handler) load(r *http.Request) (*models.Organization, error) {
	actor, _ := auth.CurrentUser(r)
	orgID := chi.URLParam(r, "org_id")

	if actor.Role != roles.SuperAdmin && actor.OrganizationID != orgID {
		return nil, apperr.Deniedf("not allowed to view this organization")
	}

	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Short(), h.Log, "load organization")
	defer cancel()

	org, err := h.Orgs.GetByOrgID(ctx, orgID)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, apperr.NotFoundf("organization %q not found", orgID)
		}
		return nil, err
	}
	return org, nil
}

// loadManaged is load plus the management check: super admin anywhere,
// admin_manager within their own org.
func (h *Handler) loadManaged(r *http.Request) (*models.Organization, error) {
	actor, _ := auth.CurrentUser(r)

	org, err := h.load(r)
	if err != nil {
		return nil, err
	}
	if actor.Role == roles.SuperAdmin {
		return org, nil
	}
	if actor.Role == roles.AdminManager && actor.OrganizationID == org.OrgID {
		return org, nil
	}
	return nil, apperr.Deniedf("not allowed to manage this organization")
}
