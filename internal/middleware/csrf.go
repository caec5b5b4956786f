// internal/middleware/csrf.go
package middleware

import (
	"log/slog"
	"net/http"
	"strings"

	"github.com/justinas/nosurf"
)

// NoSurfMiddleware enforces CSRF tokens on cookie-authenticated mutations.
// Bearer-token callers and the listed paths (provider webhooks) are exempt.
func NoSurfMiddleware(next http.Handler, isProduction bool, exemptPaths ...string) http.Handler {
	csrfHandler := nosurf.New(next)

	csrfHandler.SetBaseCookie(http.Cookie{
		HttpOnly: true,
		Path:     "/",
		Secure:   isProduction,
		SameSite: http.SameSiteLaxMode,
	})
	csrfHandler.ExemptPaths(exemptPaths...)
	csrfHandler.ExemptFunc(func(r *http.Request) bool {
		return strings.HasPrefix(r.Header.Get("Authorization"), "Bearer ")
	})

	csrfHandler.SetFailureHandler(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		slog.Warn("CSRF token check failed", "path", r.URL.Path, "method", r.Method, "reason", nosurf.Reason(r))
		writeJSONError(w, http.StatusForbidden, "invalid or missing CSRF token")
	}))

	return csrfHandler
}
