// internal/middleware/admin_auth.go
package middleware

import (
	"log/slog"
	"net/http"
	"slices"
)

// RequireRole lets the request through only if the authenticated account has
// one of the allowed roles.
func RequireRole(allowedRoles ...string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			account, ok := AccountFromContext(r.Context())
			if !ok {
				slog.Error("RequireRole: no account in context")
				writeJSONError(w, http.StatusUnauthorized, "authentication required")
				return
			}
			if !slices.Contains(allowedRoles, account.Role) {
				slog.Warn("Access denied: insufficient role", "accountID", account.ID, "role", account.Role, "requiredRoles", allowedRoles, "path", r.URL.Path)
				writeJSONError(w, http.StatusForbidden, "forbidden")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
