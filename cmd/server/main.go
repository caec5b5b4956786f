// cmd/server/main.go
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/alexedwards/scs/mysqlstore"
	"github.com/alexedwards/scs/v2"
	"github.com/alexedwards/scs/v2/memstore"
	"github.com/google/uuid"

	"fanplatform.dk/internal/auth"
	"fanplatform.dk/internal/config"
	"fanplatform.dk/internal/db"
	"fanplatform.dk/internal/email"
	"fanplatform.dk/internal/events"
	"fanplatform.dk/internal/handlers"
	"fanplatform.dk/internal/idempotency"
	"fanplatform.dk/internal/middleware"
	"fanplatform.dk/internal/models"
	"fanplatform.dk/internal/paymentgateway"
	"fanplatform.dk/internal/sms"
	"fanplatform.dk/internal/store"
)

func main() {
	configPath := getenv("CONFIG_PATH", "configs/config.yaml")
	cfg, err := config.LoadConfig(configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Fatal: failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	config.InitLogger(cfg.AppEnv)
	slog.Info("Starting fan platform API...", "app_env", cfg.AppEnv)

	if err := run(cfg); err != nil {
		slog.Error("Fatal: server exited", "error", err)
		os.Exit(1)
	}
	slog.Info("Server stopped")
}

// run owns every resource of the server; returning lets the deferred
// closers run before main exits.
func run(cfg *config.Config) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	sessionManager := scs.New()
	sessionManager.Lifetime = 24 * time.Hour
	sessionManager.Cookie.Name = "fan_session"
	sessionManager.Cookie.HttpOnly = true
	sessionManager.Cookie.Persist = true
	sessionManager.Cookie.SameSite = http.SameSiteLaxMode
	sessionManager.Cookie.Secure = cfg.IsProduction()
	sessionManager.Cookie.Path = "/"

	var st store.Store
	switch cfg.Storage {
	case config.StorageMySQL:
		conn, err := db.InitDB(ctx, cfg)
		if err != nil {
			return fmt.Errorf("failed to initialize database: %w", err)
		}
		defer conn.Close()
		mysqlStore := db.NewMySQLStore(conn)
		if !cfg.IsProduction() {
			if err := mysqlStore.SeedDemo(ctx, time.Now().UTC()); err != nil {
				slog.Error("Failed to seed demo data", "error", err)
			}
		}
		st = mysqlStore
		sessionManager.Store = mysqlstore.New(conn)
	default:
		st = store.NewSeededMemory(time.Now().UTC())
		sessionManager.Store = memstore.New()
	}
	slog.Info("Session manager initialized", "storage", cfg.Storage, "lifetime", sessionManager.Lifetime, "secure_cookie", sessionManager.Cookie.Secure)

	tokens := auth.NewTokenIssuer(cfg.Auth.JWTSecret, time.Duration(cfg.Auth.TokenTTLHours)*time.Hour)
	if err := ensureAdmin(ctx, st); err != nil {
		slog.Error("Failed to create admin account", "error", err)
	}

	keeper, err := newKeeper(ctx, cfg.Idempotency)
	if err != nil {
		return fmt.Errorf("failed to initialize idempotency keeper: %w", err)
	}

	gateway, err := paymentgateway.New(cfg.Payments)
	if err != nil {
		return fmt.Errorf("failed to initialize payment gateway: %w", err)
	}

	hub := events.NewHub()
	defer hub.Close()
	publishers := events.Multi{hub}
	if len(cfg.Events.KafkaBrokers) > 0 {
		kafka, err := events.NewKafkaPublisher(ctx, cfg.Events.KafkaBrokers, cfg.Events.Topic)
		if err != nil {
			return fmt.Errorf("failed to connect to Kafka: %w", err)
		}
		defer kafka.Close()
		publishers = append(publishers, kafka)
	} else {
		publishers = append(publishers, events.Log{})
	}

	limiter := middleware.NewRateLimiter(cfg.Security.RateLimitRPS, cfg.Security.RateLimitBurst)
	go limiter.RunCleanup(ctx, time.Minute, 3*time.Minute)

	if err := os.MkdirAll(cfg.UploadPath, 0o755); err != nil {
		return fmt.Errorf("failed to create upload directory %s: %w", cfg.UploadPath, err)
	}

	router := handlers.NewRouter(handlers.Deps{
		Store:          st,
		SessionManager: sessionManager,
		Tokens:         tokens,
		Keeper:         keeper,
		Gateway:        gateway,
		Events:         publishers,
		Hub:            hub,
		Mailer:         email.NewSender(cfg.Email, cfg.AppEnv),
		SMS:            sms.NewSender(cfg.SMS),
		Limiter:        limiter,
		Uploads:        handlers.NewUploader(cfg.UploadPath, cfg.BaseURL),
		WebhookSecret:  cfg.Payments.WebhookSecret,
		RequireAuth:    cfg.Auth.RequireAuth,
		CSRFEnabled:    cfg.Security.CSRFEnabled,
		IsProduction:   cfg.IsProduction(),
	})

	addr := fmt.Sprintf(":%d", cfg.Port)
	server := &http.Server{
		Addr:         addr,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	go func() {
		<-ctx.Done()
		slog.Info("Shutting down server...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			slog.Error("Graceful shutdown failed", "error", err)
		}
	}()

	slog.Info("Server listening", "address", fmt.Sprintf("http://localhost%s", addr), "provider", cfg.Payments.Provider, "require_auth", cfg.Auth.RequireAuth)
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("HTTP server failed on %s: %w", addr, err)
	}
	return nil
}

func newKeeper(ctx context.Context, cfg config.IdempotencyConfig) (idempotency.Keeper, error) {
	if cfg.Backend == "redis" {
		rdb, err := idempotency.ConnectRedis(ctx, cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
		if err != nil {
			return nil, err
		}
		return idempotency.NewRedisKeeper(rdb, cfg.TTL()), nil
	}

	keeper := idempotency.NewMemory(cfg.TTL())
	go func() {
		ticker := time.NewTicker(10 * time.Minute)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				keeper.Cleanup()
			}
		}
	}()
	return keeper, nil
}

// ensureAdmin creates the account named by ADMIN_EMAIL/ADMIN_PASSWORD if it does not exist yet.
func ensureAdmin(ctx context.Context, st store.Store) error {
	adminEmail := os.Getenv("ADMIN_EMAIL")
	if adminEmail == "" {
		slog.Info("ADMIN_EMAIL is not set, no admin account is created automatically.")
		return nil
	}
	if _, err := st.GetAccountByEmail(ctx, adminEmail); err == nil {
		slog.Info("Admin account already exists", "email", adminEmail)
		return nil
	} else if !errors.Is(err, store.ErrNotFound) {
		return err
	}

	password := os.Getenv("ADMIN_PASSWORD")
	if !auth.IsPasswordComplex(password) {
		return fmt.Errorf("ADMIN_PASSWORD must be at least 8 characters with letters, digits and symbols")
	}
	hash, err := auth.HashPassword(password)
	if err != nil {
		return err
	}
	err = st.CreateAccount(ctx, models.Account{
		ID:           uuid.NewString(),
		Name:         "Club Admin",
		Email:        adminEmail,
		PasswordHash: hash,
		Role:         models.RoleAdmin,
	})
	if err != nil {
		return err
	}
	slog.Info("Admin account created", "email", adminEmail)
	return nil
}

func getenv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
