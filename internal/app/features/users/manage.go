package users

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/canvashub/canvashub/internal/app/policy/userpolicy"
	userstore "github.com/canvashub/canvashub/internal/app/store/users"
	"github.com/canvashub/canvashub/internal/app/system/apperr"
	"github.com/canvashub/canvashub/internal/app/system/auth"
	"github.com/canvashub/canvashub/internal/app/system/httpjson"
	"github.com/canvashub/canvashub/internal/app/system/normalize"
	"github.com/canvashub/canvashub/internal/app/system/timeouts"
	"github.com/canvashub/canvashub/internal/domain/roles"
)

type profileRequest struct {
	Email     string `json:"email"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Phone     string `json:"phone"`
}

// UpdateProfile handles PUT /users/{username}.
func (h *Handler) UpdateProfile(w http.ResponseWriter, r *http.Request) {
	username := chi.URLParam(r, "username")

	var req profileRequest
	if err := httpjson.Decode(r, &req); err != nil {
		httpjson.Error(w, h.Log, err)
		return
	}

	if _, err := h.loadManaged(r, username); err != nil {
		httpjson.Error(w, h.Log, err)
		return
	}

	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Medium(), h.Log, "update profile")
	defer cancel()

	err := h.Users.UpdateProfile(ctx, username, userstore.ProfileUpdate{
		Email:     req.Email,
		FirstName: req.FirstName,
		LastName:  req.LastName,
		Phone:     req.Phone,
	})
	if err != nil {
		if errors.Is(err, userstore.ErrDuplicateUsername) {
			httpjson.Error(w, h.Log, apperr.Invalidf("email already in use"))
			return
		}
		httpjson.Error(w, h.Log, err)
		return
	}
	httpjson.OK(w, map[string]string{"status": "updated"})
}

type roleRequest struct {
	Role      string `json:"role"`
	ManagerID string `json:"manager_id"`
}

// ChangeRole handles PUT /users/{username}/role, enforcing the assignment
// table.
func (h *Handler) ChangeRole(w http.ResponseWriter, r *http.Request) {
	actor, _ := auth.CurrentUser(r)
	username := chi.URLParam(r, "username")

	var req roleRequest
	if err := httpjson.Decode(r, &req); err != nil {
		httpjson.Error(w, h.Log, err)
		return
	}
	newRole, ok := roles.Parse(req.Role)
	if !ok {
		httpjson.Error(w, h.Log, apperr.Validationf("invalid role %q", req.Role))
		return
	}

	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Medium(), h.Log, "change role")
	defer cancel()

	target, err := h.Users.GetByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			httpjson.Error(w, h.Log, apperr.NotFoundf("user %q not found", username))
			return
		}
		httpjson.Error(w, h.Log, err)
		return
	}
	if !userpolicy.CanChangeRole(actor, target, newRole) {
		httpjson.Error(w, h.Log, apperr.Deniedf("not allowed to assign role %s", newRole))
		return
	}
	if newRole == roles.Canvasser && req.ManagerID != "" {
		mgr, err := h.Users.GetByUsername(ctx, req.ManagerID)
		if err != nil || mgr.Role != roles.Manager || mgr.OrganizationID != target.OrganizationID {
			httpjson.Error(w, h.Log, apperr.Validationf("manager_id must name a manager in the same organization"))
			return
		}
	}

	if err := h.Users.SetRole(ctx, username, newRole, req.ManagerID); err != nil {
		httpjson.Error(w, h.Log, err)
		return
	}
	httpjson.OK(w, map[string]string{"status": "updated", "role": string(newRole)})
}

type passwordRequest struct {
	OldPassword string `json:"old_password,omitempty"`
	NewPassword string `json:"new_password"`
}

// ChangePassword handles PUT /users/{username}/password. Self-service
// requires the old password; managers and above reset without it.
func (h *Handler) ChangePassword(w http.ResponseWriter, r *http.Request) {
	actor, _ := auth.CurrentUser(r)
	username := chi.URLParam(r, "username")

	var req passwordRequest
	if err := httpjson.Decode(r, &req); err != nil {
		httpjson.Error(w, h.Log, err)
		return
	}
	if len(req.NewPassword) < 8 {
		httpjson.Error(w, h.Log, apperr.Validationf("new password must be at least 8 characters"))
		return
	}

	target, err := h.loadManaged(r, username)
	if err != nil {
		httpjson.Error(w, h.Log, err)
		return
	}
	if actor.Username == target.Username {
		if !auth.CheckPassword(target.Password, req.OldPassword) {
			httpjson.Error(w, h.Log, apperr.Deniedf("old password is incorrect"))
			return
		}
	}

	hash, err := auth.HashPassword(req.NewPassword)
	if err != nil {
		httpjson.Error(w, h.Log, err)
		return
	}

	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Medium(), h.Log, "set password")
	defer cancel()

	if err := h.Users.SetPassword(ctx, username, hash); err != nil {
		httpjson.Error(w, h.Log, err)
		return
	}
	httpjson.OK(w, map[string]string{"status": "password changed"})
}

type deactivateRequest struct {
	Reason string `json:"reason"`
}

// Deactivate handles POST /users/{username}/deactivate.
func (h *Handler) Deactivate(w http.ResponseWriter, r *http.Request) {
	actor, _ := auth.CurrentUser(r)
	username := chi.URLParam(r, "username")

	var req deactivateRequest
	if err := httpjson.Decode(r, &req); err != nil {
		httpjson.Error(w, h.Log, err)
		return
	}
	if actor.Username == normalize.Username(username) {
		httpjson.Error(w, h.Log, apperr.Invalidf("cannot deactivate your own account"))
		return
	}
	if _, err := h.loadManaged(r, username); err != nil {
		httpjson.Error(w, h.Log, err)
		return
	}

	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Medium(), h.Log, "deactivate user")
	defer cancel()

	if err := h.Users.Deactivate(ctx, username, actor.Username, req.Reason); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			httpjson.Error(w, h.Log, apperr.Invalidf("user is already deactivated"))
			return
		}
		httpjson.Error(w, h.Log, err)
		return
	}
	httpjson.OK(w, map[string]string{"status": "deactivated"})
}

// Reactivate handles POST /users/{username}/reactivate.
func (h *Handler) Reactivate(w http.ResponseWriter, r *http.Request) {
	username := chi.URLParam(r, "username")

	if _, err := h.loadManaged(r, username); err != nil {
		httpjson.Error(w, h.Log, err)
		return
	}

	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Medium(), h.Log, "reactivate user")
	defer cancel()

	if err := h.Users.Reactivate(ctx, username); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			httpjson.Error(w, h.Log, apperr.Invalidf("user is not deactivated"))
			return
		}
		httpjson.Error(w, h.Log, err)
		return
	}
	httpjson.OK(w, map[string]string{"status": "reactivated"})
}

// Delete handles DELETE /users/{username}: hard delete with lead
// anonymization instead of cascade.
func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	actor, _ := auth.CurrentUser(r)
	username := chi.URLParam(r, "username")

	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Long(), h.Log, "delete user")
	defer cancel()

	target, err := h.Users.GetByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			httpjson.Error(w, h.Log, apperr.NotFoundf("user %q not found", username))
			return
		}
		httpjson.Error(w, h.Log, err)
		return
	}
	if !userpolicy.CanHardDelete(actor, target) {
		httpjson.Error(w, h.Log, apperr.Deniedf("not allowed to delete this user"))
		return
	}

	anonymized, err := h.Leads.AnonymizeCreator(ctx, target.Username)
	if err != nil {
		httpjson.Error(w, h.Log, err)
		return
	}
	if _, err := h.Users.Delete(ctx, username); err != nil {
		httpjson.Error(w, h.Log, err)
		return
	}
	httpjson.OK(w, map[string]any{"status": "deleted", "leads_anonymized": anonymized})
}

type pointsRequest struct {
	Points int    `json:"points"`
	Mode   string `json:"mode"` // set | add | deduct
	Reason string `json:"reason"`
}

// EditPoints handles PUT /users/{username}/points: manual admin-tier
// balance edits, always paired with a ledger entry.
func (h *Handler) EditPoints(w http.ResponseWriter, r *http.Request) {
	actor, _ := auth.CurrentUser(r)
	username := chi.URLParam(r, "username")

	var req pointsRequest
	if err := httpjson.Decode(r, &req); err != nil {
		httpjson.Error(w, h.Log, err)
		return
	}
	if req.Reason == "" {
		httpjson.Error(w, h.Log, apperr.Validationf("a reason is required for manual point edits"))
		return
	}

	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Medium(), h.Log, "edit points")
	defer cancel()

	target, err := h.Users.GetByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			httpjson.Error(w, h.Log, apperr.NotFoundf("user %q not found", username))
			return
		}
		httpjson.Error(w, h.Log, err)
		return
	}
	if !userpolicy.CanEditPoints(actor, target) {
		httpjson.Error(w, h.Log, apperr.Deniedf("not allowed to edit points"))
		return
	}

	var balance int
	switch req.Mode {
	case "set":
		if req.Points < 0 {
			httpjson.Error(w, h.Log, apperr.Validationf("points cannot be negative"))
			return
		}
		balance, err = h.Users.SetPoints(ctx, username, req.Points, req.Reason, actor.Username)
	case "add":
		balance, err = h.Users.AwardPoints(ctx, username, req.Points, req.Reason, actor.Username)
	case "deduct":
		balance, err = h.Users.DeductPoints(ctx, username, req.Points, req.Reason, actor.Username)
		if errors.Is(err, userstore.ErrInsufficientPoints) {
			httpjson.Error(w, h.Log, apperr.Invalidf("insufficient points"))
			return
		}
	default:
		httpjson.Error(w, h.Log, apperr.Validationf("mode must be set, add, or deduct"))
		return
	}
	if err != nil {
		httpjson.Error(w, h.Log, err)
		return
	}
	httpjson.OK(w, map[string]any{"status": "updated", "points": balance})
}
