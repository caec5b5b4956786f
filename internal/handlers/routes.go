package handlers

import (
	"net/http"

	"github.com/alexedwards/scs/v2"

	"fanplatform.dk/internal/auth"
	"fanplatform.dk/internal/events"
	"fanplatform.dk/internal/idempotency"
	"fanplatform.dk/internal/middleware"
	"fanplatform.dk/internal/models"
	"fanplatform.dk/internal/paymentgateway"
	"fanplatform.dk/internal/store"
)

// WebhookPath is exempt from CSRF; providers authenticate with a signature.
const WebhookPath = "/api/webhooks/checkout"

// Deps is everything the API needs. Hub, Mailer, SMS and Limiter are optional.
type Deps struct {
	Store          store.Store
	SessionManager *scs.SessionManager
	Tokens         *auth.TokenIssuer
	Keeper         idempotency.Keeper
	Gateway        paymentgateway.Gateway
	Events         events.Publisher
	Hub            *events.Hub
	Mailer         LinkMailer
	SMS            TextSender
	Limiter        *middleware.RateLimiter
	Uploads        *Uploader

	WebhookSecret string
	RequireAuth   bool
	CSRFEnabled   bool
	IsProduction  bool
}

// NewRouter wires every API route and wraps the mux in the middleware chain:
// access log, session load/save, CSRF (optional), authentication.
func NewRouter(d Deps) http.Handler {
	if d.SessionManager == nil {
		d.SessionManager = scs.New()
	}
	if d.Uploads == nil {
		d.Uploads = NewUploader("./uploads", "")
	}

	feeHandlers := NewFeeHandlers(d.Store, d.Keeper, d.Gateway, d.Events)
	paymentHandlers := NewPaymentHandlers(d.Store, d.Gateway, d.Events, d.Mailer, d.SMS)
	webhookHandlers := NewWebhookHandlers(d.Store, d.Events, d.WebhookSecret)
	profileHandlers := NewProfileHandlers(d.Store, d.Uploads, d.RequireAuth)
	settingsHandlers := NewClubSettingsHandlers(d.Store, d.Uploads)
	activityHandlers := NewActivityHandlers(d.Store, d.RequireAuth)
	authHandlers := NewAuthHandlers(d.Store, d.SessionManager, d.Tokens)
	systemHandlers := &SystemHandlers{Hub: d.Hub}

	// Without enforced auth every route is open; the demo profile stands in for the caller.
	member := func(h http.HandlerFunc) http.Handler { return h }
	admin := member
	if d.RequireAuth {
		requireAdmin := middleware.RequireRole(models.RoleAdmin)
		member = func(h http.HandlerFunc) http.Handler { return middleware.RequireAuthentication(h) }
		admin = func(h http.HandlerFunc) http.Handler { return requireAdmin(h) }
	}
	limited := func(h http.Handler) http.Handler {
		if d.Limiter == nil {
			return h
		}
		return d.Limiter.Middleware(h)
	}

	mux := http.NewServeMux()
	mux.Handle("GET /uploads/", http.StripPrefix("/uploads/", http.FileServer(http.Dir(d.Uploads.Dir))))

	mux.HandleFunc("GET /healthz", systemHandlers.Health)
	mux.HandleFunc("GET /api/csrf-token", systemHandlers.CSRFToken)
	mux.Handle("GET /api/ws", member(systemHandlers.Events))

	// Auth
	mux.Handle("POST /api/auth/signup", limited(http.HandlerFunc(authHandlers.Signup)))
	mux.Handle("POST /api/auth/login", limited(http.HandlerFunc(authHandlers.Login)))
	mux.HandleFunc("POST /api/auth/logout", authHandlers.Logout)

	// Fees and payments
	mux.Handle("GET /api/clubs/{clubId}/fees", member(feeHandlers.ListFees))
	mux.Handle("POST /api/clubs/{clubId}/fees/{feeId}/intent", limited(member(feeHandlers.CreateIntent)))
	mux.Handle("GET /api/payments", member(paymentHandlers.ListPayments))
	mux.Handle("POST /api/payments/{id}/send", limited(admin(paymentHandlers.SendPaymentLink)))
	mux.HandleFunc("POST "+WebhookPath, webhookHandlers.CheckoutWebhook)

	// Profile and club settings
	mux.Handle("GET /api/profile", member(profileHandlers.GetProfile))
	mux.Handle("PUT /api/profile", member(profileHandlers.UpdateProfile))
	mux.Handle("POST /api/uploads/avatar", member(profileHandlers.UploadAvatar))
	mux.Handle("GET /api/clubs/{clubId}/settings", member(settingsHandlers.GetSettings))
	mux.Handle("PUT /api/clubs/{clubId}/settings", admin(settingsHandlers.UpdateSettings))
	mux.Handle("POST /api/uploads/club-logo", admin(settingsHandlers.UploadLogo))

	// Activities
	mux.Handle("GET /api/clubs/{clubId}/activities", member(activityHandlers.ListActivities))
	mux.Handle("POST /api/activities/{id}/rsvp", member(activityHandlers.RSVP))

	var h http.Handler = middleware.Authenticate(d.SessionManager, d.Tokens, d.Store)(mux)
	if d.CSRFEnabled {
		h = middleware.NoSurfMiddleware(h, d.IsProduction, WebhookPath)
	}
	h = d.SessionManager.LoadAndSave(h)
	return middleware.AccessLog(h)
}
