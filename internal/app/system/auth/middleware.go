package auth

import (
	"net/http"

	"github.com/canvashub/canvashub/internal/app/system/httpjson"
	"github.com/canvashub/canvashub/internal/domain/roles"
)

// LoadBearerUser parses the Authorization header, if any, and attaches
// the identity to the request context. Requests without a valid token
// pass through anonymous; RequireSignedIn does the gating.
func (m *Manager) LoadBearerUser(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if tok, ok := BearerToken(r); ok {
			if id, err := m.ParseToken(tok); err == nil {
				r = r.WithContext(WithUser(r.Context(), id))
			}
		}
		next.ServeHTTP(w, r)
	})
}

// RequireSignedIn rejects anonymous requests with a 401.
func RequireSignedIn(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if _, ok := CurrentUser(r); !ok {
			httpjson.Fail(w, http.StatusUnauthorized, "authentication required")
			return
		}
		next.ServeHTTP(w, r)
	})
}

// RequireRole admits only the listed roles. Must run after
// RequireSignedIn or LoadBearerUser.
func RequireRole(allowed ...roles.Role) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			id, ok := CurrentUser(r)
			if !ok {
				httpjson.Fail(w, http.StatusUnauthorized, "authentication required")
				return
			}
			for _, role := range allowed {
				if id.Role == role {
					next.ServeHTTP(w, r)
					return
				}
			}
			httpjson.Fail(w, http.StatusForbidden, "insufficient role")
		})
	}
}

// RequireAdminTier admits super_admin and admin_manager only.
func RequireAdminTier(next http.Handler) http.Handler {
	return RequireRole(roles.SuperAdmin, roles.AdminManager)(next)
}

// RequireApprovalTier admits the roles that may act on pending leads.
func RequireApprovalTier(next http.Handler) http.Handler {
	return RequireRole(roles.SuperAdmin, roles.AdminManager, roles.Manager)(next)
}
