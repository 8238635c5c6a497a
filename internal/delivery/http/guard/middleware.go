package guard

import (
	"net/http"

	"github.com/mediconnect/platform-api/internal/delivery/http/middleware"
	"github.com/mediconnect/platform-api/internal/domain/entity"
)

// roleFromRequest reads the caller's role from the request context,
// where the Identify middleware left it. Empty means anonymous.
func roleFromRequest(r *http.Request) string {
	roleID, ok := middleware.GetRoleIDFromContext(r.Context())
	if !ok {
		return ""
	}
	return entity.RoleNameByID(roleID)
}

// RequireRole gates a role-scoped view group, issuing redirects per
// Resolve.
func RequireRole(requiredRole string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			decision := Resolve(requiredRole, roleFromRequest(r))
			if !decision.Allowed {
				http.Redirect(w, r, decision.RedirectTo, http.StatusFound)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// AuthView gates the login, registration and forgot-password views,
// bouncing already-authenticated visitors to their landing view.
func AuthView(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		decision := ResolveAuthView(roleFromRequest(r))
		if !decision.Allowed {
			http.Redirect(w, r, decision.RedirectTo, http.StatusFound)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// RedirectToLanding handles a bare role prefix such as /patient by
// redirecting to that role's landing view.
func RedirectToLanding(role string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, LandingPath(role), http.StatusFound)
	}
}
