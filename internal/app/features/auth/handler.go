// Package auth serves login and the current-user endpoint.
package auth

import (
	"net/http"
	"time"

	"go.uber.org/zap"

	userstore "github.com/canvashub/canvashub/internal/app/store/users"
	sysauth "github.com/canvashub/canvashub/internal/app/system/auth"
	"github.com/canvashub/canvashub/internal/app/system/httpjson"
	"github.com/canvashub/canvashub/internal/app/system/ratelimit"
	"github.com/canvashub/canvashub/internal/app/system/timeouts"
)

// Handler holds dependencies for the auth endpoints.
type Handler struct {
	Users  *userstore.Store
	Tokens *sysauth.Manager
	Limits *ratelimit.LoginLimiter
	Log    *zap.Logger
}

func NewHandler(users *userstore.Store, tokens *sysauth.Manager, logger *zap.Logger) *Handler {
	return &Handler{Users: users, Tokens: tokens, Limits: ratelimit.NewLoginLimiter(), Log: logger}
}

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type loginResponse struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
	Username  string    `json:"username"`
	Role      string    `json:"role"`
	OrgID     string    `json:"organization_id,omitempty"`
}

// Login handles POST /auth/login. Wrong username and wrong password get
// the same answer.
func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := httpjson.Decode(r, &req); err != nil {
		httpjson.Error(w, h.Log, err)
		return
	}

	if ok, reason := h.Limits.Check(r, req.Username); !ok {
		httpjson.Fail(w, http.StatusTooManyRequests, reason)
		return
	}

	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Short(), h.Log, "login")
	defer cancel()

	u, err := h.Users.GetByUsername(ctx, req.Username)
	if err != nil || !u.IsActive || !sysauth.CheckPassword(u.Password, req.Password) {
		httpjson.Fail(w, http.StatusUnauthorized, "invalid credentials")
		return
	}
	h.Limits.ResetUsername(u.Username)

	tok, exp, err := h.Tokens.IssueToken(u, time.Now())
	if err != nil {
		httpjson.Error(w, h.Log, err)
		return
	}

	_ = h.Users.TouchActivity(ctx, u.Username, time.Now())

	httpjson.OK(w, loginResponse{
		Token:     tok,
		ExpiresAt: exp,
		Username:  u.Username,
		Role:      string(u.Role),
		OrgID:     u.OrganizationID,
	})
}

// Me handles GET /auth/me: the full profile behind the caller's token.
func (h *Handler) Me(w http.ResponseWriter, r *http.Request) {
	id, _ := sysauth.CurrentUser(r)

	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Short(), h.Log, "auth me")
	defer cancel()

	u, err := h.Users.GetByUsername(ctx, id.Username)
	if err != nil {
		httpjson.Fail(w, http.StatusUnauthorized, "account no longer exists")
		return
	}
	httpjson.OK(w, u)
}
