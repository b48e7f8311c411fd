// Package users serves user management: creation, listing, profile and
// role changes, activation, passwords, manual point edits, and hard
// deletion with lead anonymization.
package users

import (
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"

	"github.com/canvashub/canvashub/internal/app/policy/userpolicy"
	leadstore "github.com/canvashub/canvashub/internal/app/store/leads"
	organizationstore "github.com/canvashub/canvashub/internal/app/store/organizations"
	userstore "github.com/canvashub/canvashub/internal/app/store/users"
	"github.com/canvashub/canvashub/internal/app/system/apperr"
	"github.com/canvashub/canvashub/internal/app/system/auth"
	"github.com/canvashub/canvashub/internal/app/system/httpjson"
	"github.com/canvashub/canvashub/internal/app/system/normalize"
	"github.com/canvashub/canvashub/internal/app/system/timeouts"
	"github.com/canvashub/canvashub/internal/domain/models"
	"github.com/canvashub/canvashub/internal/domain/planlimits"
	"github.com/canvashub/canvashub/internal/domain/roles"
)

// Handler holds dependencies for user management.
type Handler struct {
	Users *userstore.Store
	Orgs  *organizationstore.Store
	Leads *leadstore.Store
	Log   *zap.Logger
}

func NewHandler(users *userstore.Store, orgs *organizationstore.Store, leads *leadstore.Store, logger *zap.Logger) *Handler {
	return &Handler{Users: users, Orgs: orgs, Leads: leads, Log: logger}
}

type createRequest struct {
	Username       string `json:"username"`
	Password       string `json:"password"`
	Email          string `json:"email"`
	Role           string `json:"role"`
	OrganizationID string `json:"organization_id"`
	ManagerID      string `json:"manager_id"`
	FirstName      string `json:"first_name"`
	LastName       string `json:"last_name"`
	Phone          string `json:"phone"`
}

// Create handles POST /users.
func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	actor, _ := auth.CurrentUser(r)

	var req createRequest
	if err := httpjson.Decode(r, &req); err != nil {
		httpjson.Error(w, h.Log, err)
		return
	}

	role, ok := roles.Parse(req.Role)
	if !ok {
		httpjson.Error(w, h.Log, apperr.Validationf("invalid role %q", req.Role))
		return
	}
	if req.Username == "" || len(req.Password) < 8 {
		httpjson.Error(w, h.Log, apperr.Validationf("username and a password of at least 8 characters are required"))
		return
	}

	// Managers create canvassers on their own team; the org is implied.
	orgID := req.OrganizationID
	if actor.Role != roles.SuperAdmin {
		orgID = actor.OrganizationID
	}
	if !userpolicy.CanCreate(actor, role, orgID) {
		httpjson.Error(w, h.Log, apperr.Deniedf("not allowed to create a %s user", role))
		return
	}

	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Long(), h.Log, "create user")
	defer cancel()

	managerID := normalize.Username(req.ManagerID)
	if role == roles.Canvasser {
		if actor.Role == roles.Manager {
			managerID = actor.Username
		}
		if managerID != "" {
			mgr, err := h.Users.GetByUsername(ctx, managerID)
			if err != nil || mgr.Role != roles.Manager || mgr.OrganizationID != orgID {
				httpjson.Error(w, h.Log, apperr.Validationf("manager_id must name a manager in the same organization"))
				return
			}
		}
	} else {
		managerID = ""
	}

	if role != roles.SuperAdmin {
		org, err := h.Orgs.GetByOrgID(ctx, orgID)
		if err != nil {
			httpjson.Error(w, h.Log, apperr.Validationf("unknown organization %q", orgID))
			return
		}
		if !org.IsActive {
			httpjson.Error(w, h.Log, apperr.Invalidf("organization is deactivated"))
			return
		}
		count, err := h.Users.Count(ctx, userstore.ListFilter{OrgID: orgID, ActiveOnly: true})
		if err != nil {
			httpjson.Error(w, h.Log, err)
			return
		}
		if !planlimits.Allows(org.MaxUsers, int(count)) {
			httpjson.Error(w, h.Log, apperr.Limitf("organization user limit reached (%d)", org.MaxUsers))
			return
		}
	}

	hash, err := auth.HashPassword(req.Password)
	if err != nil {
		httpjson.Error(w, h.Log, err)
		return
	}

	created, err := h.Users.Create(ctx, models.User{
		Username:       req.Username,
		Password:       hash,
		Email:          req.Email,
		Role:           role,
		OrganizationID: orgIDFor(role, orgID),
		ManagerID:      managerID,
		FirstName:      req.FirstName,
		LastName:       req.LastName,
		Phone:          req.Phone,
		CreatedBy:      actor.Username,
	})
	if err != nil {
		if errors.Is(err, userstore.ErrDuplicateUsername) {
			httpjson.Error(w, h.Log, apperr.Invalidf("username or email already in use"))
			return
		}
		httpjson.Error(w, h.Log, err)
		return
	}
	httpjson.Created(w, created)
}

func orgIDFor(role roles.Role, orgID string) string {
	if role == roles.SuperAdmin {
		return ""
	}
	return orgID
}

// List handles GET /users, scoped by role.
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	actor, _ := auth.CurrentUser(r)

	scope := userpolicy.ListUsers(actor)
	if !scope.CanList {
		httpjson.Error(w, h.Log, apperr.Deniedf("not allowed to list users"))
		return
	}

	f := userstore.ListFilter{Query: r.URL.Query().Get("q")}
	if !scope.AllOrgs {
		f.OrgID = scope.OrgID
	}
	if scope.ManagerOnly {
		f.ManagerID = actor.Username
		f.Self = actor.Username
	}
	if role, ok := roles.Parse(r.URL.Query().Get("role")); ok {
		f.Role = role
	}
	if r.URL.Query().Get("active") == "true" {
		f.ActiveOnly = true
	}

	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Medium(), h.Log, "list users")
	defer cancel()

	users, err := h.Users.List(ctx, f)
	if err != nil {
		httpjson.Error(w, h.Log, err)
		return
	}
	httpjson.OK(w, map[string]any{"users": users, "count": len(users)})
}

// Get handles GET /users/{username}.
func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	actor, _ := auth.CurrentUser(r)
	username := chi.URLParam(r, "username")

	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Short(), h.Log, "get user")
	defer cancel()

	u, err := h.Users.GetByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			httpjson.Error(w, h.Log, apperr.NotFoundf("user %q not found", username))
			return
		}
		httpjson.Error(w, h.Log, err)
		return
	}
	if !userpolicy.CanView(actor, u) {
		httpjson.Error(w, h.Log, apperr.Deniedf("not allowed to view this user"))
		return
	}
	httpjson.OK(w, u)
}

// Stats handles GET /users/{username}/stats: lifetime lead production
// plus the current point balance. Visibility matches Get.
func (h *Handler) Stats(w http.ResponseWriter, r *http.Request) {
	actor, _ := auth.CurrentUser(r)
	username := chi.URLParam(r, "username")

	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Medium(), h.Log, "user stats")
	defer cancel()

	u, err := h.Users.GetByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			httpjson.Error(w, h.Log, apperr.NotFoundf("user %q not found", username))
			return
		}
		httpjson.Error(w, h.Log, err)
		return
	}
	if !userpolicy.CanView(actor, u) {
		httpjson.Error(w, h.Log, apperr.Deniedf("not allowed to view this user"))
		return
	}

	metrics, err := h.Leads.MetricsByCreator(ctx, u.OrganizationID, []string{u.Username}, time.Time{}, time.Now())
	if err != nil {
		httpjson.Error(w, h.Log, err)
		return
	}
	m := metrics[u.Username]
	httpjson.OK(w, map[string]any{
		"username":    u.Username,
		"points":      u.Points,
		"total_leads": m.TotalLeads,
		"approved":    m.Approved,
		"sold":        m.Sold,
		"sales_value": m.SalesValue,
	})
}

// loadManaged fetches a user and checks CanManage in one step.
func (h *Handler) loadManaged(r *http.Request, username string) (*models.User, error) {
	actor, _ := auth.CurrentUser(r)

	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Short(), h.Log, "load user")
	defer cancel()

	u, err := h.Users.GetByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, apperr.NotFoundf("user %q not found", username)
		}
		return nil, err
	}
	if !userpolicy.CanManage(actor, u) {
		return nil, apperr.Deniedf("not allowed to manage this user")
	}
	return u, nil
}
