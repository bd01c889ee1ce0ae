package middleware

import (
	"net/http"

	"github.com/alexedwards/scs/v2"
	"github.com/duelcircle/duelcircle/internal/httputil"
)

const isAdminKey = "isAdmin"

// RequireAdmin guards the tournament management endpoints. The session flag
// is set by the admin login handler after a successful password check.
func RequireAdmin(sessionManager *scs.SessionManager) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !sessionManager.GetBool(r.Context(), isAdminKey) {
				httputil.Unauthorized(w, "admin login required")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// GrantAdmin marks the current session as an admin session.
func GrantAdmin(sessionManager *scs.SessionManager, r *http.Request) {
	sessionManager.Put(r.Context(), isAdminKey, true)
}
