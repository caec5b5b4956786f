package middleware

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/alexedwards/scs/v2"

	"fanplatform.dk/internal/auth"
	"fanplatform.dk/internal/models"
	"fanplatform.dk/internal/store"
)

type contextKey string

const AccountContextKey contextKey = "account"

// SessionAccountKey is the session entry holding the logged-in account id.
const SessionAccountKey = "accountID"

// AccountFromContext returns the account resolved by Authenticate.
func AccountFromContext(ctx context.Context) (*models.Account, bool) {
	a, ok := ctx.Value(AccountContextKey).(*models.Account)
	return a, ok && a != nil
}

func WithAccount(ctx context.Context, a *models.Account) context.Context {
	return context.WithValue(ctx, AccountContextKey, a)
}

// Authenticate resolves the caller from a Bearer token or, failing that, the
// session cookie. Requests without credentials pass through anonymously.
func Authenticate(sessionManager *scs.SessionManager, tokens *auth.TokenIssuer, accounts store.Store) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			var accountID string

			if header := r.Header.Get("Authorization"); header != "" {
				raw, ok := strings.CutPrefix(header, "Bearer ")
				if !ok || tokens == nil {
					writeJSONError(w, http.StatusUnauthorized, "invalid token")
					return
				}
				claims, err := tokens.ParseToken(strings.TrimSpace(raw))
				if err != nil {
					slog.Warn("Rejected bearer token", "path", r.URL.Path, "error", err)
					writeJSONError(w, http.StatusUnauthorized, "invalid token")
					return
				}
				accountID = claims.Subject
			} else if sessionManager != nil {
				accountID = sessionManager.GetString(ctx, SessionAccountKey)
			}

			if accountID != "" {
				account, err := accounts.GetAccountByID(ctx, accountID)
				switch {
				case err == nil:
					ctx = WithAccount(ctx, account)
				case errors.Is(err, store.ErrNotFound):
					slog.Warn("Authenticate: account not found", "accountID", accountID)
					if sessionManager != nil {
						sessionManager.Remove(ctx, SessionAccountKey)
					}
				default:
					slog.Error("Authenticate: failed to load account", "accountID", accountID, "error", err)
					writeJSONError(w, http.StatusInternalServerError, "internal error")
					return
				}
			}

			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RequireAuthentication rejects anonymous callers with 401.
func RequireAuthentication(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if _, ok := AccountFromContext(r.Context()); !ok {
			slog.Warn("Access denied: not authenticated", "path", r.URL.Path)
			writeJSONError(w, http.StatusUnauthorized, "authentication required")
			return
		}
		next.ServeHTTP(w, r)
	})
}
