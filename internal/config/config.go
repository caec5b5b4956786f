// internal/config/config.go
package config

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

const (
	StorageMemory = "memory"
	StorageMySQL  = "mysql"

	RedirectPopup = "popup"
	RedirectLink  = "link"
)

type DatabaseConfig struct {
	DSN      string `yaml:"dsn"`
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	DBName   string `yaml:"dbname"`
}

// GatewayConfig configures an HTTP checkout gateway. Empty BaseURL means the built-in mock.
type GatewayConfig struct {
	BaseURL   string `yaml:"base_url"`
	Login     string `yaml:"login"`
	Password  string `yaml:"password"`
	ReturnURL string `yaml:"return_url"`
}

type PaymentsConfig struct {
	Provider        string        `yaml:"provider"`
	CheckoutBaseURL string        `yaml:"checkout_base_url"`
	WebhookSecret   string        `yaml:"webhook_secret"`
	Gateway         GatewayConfig `yaml:"gateway"`
}

type IdempotencyConfig struct {
	Backend       string `yaml:"backend"`
	TTLHours      int    `yaml:"ttl_hours"`
	RedisAddr     string `yaml:"redis_addr"`
	RedisPassword string `yaml:"redis_password"`
	RedisDB       int    `yaml:"redis_db"`
}

func (c IdempotencyConfig) TTL() time.Duration {
	return time.Duration(c.TTLHours) * time.Hour
}

type EventsConfig struct {
	KafkaBrokers []string `yaml:"kafka_brokers"`
	Topic        string   `yaml:"topic"`
}

type AuthConfig struct {
	JWTSecret     string `yaml:"jwt_secret"`
	TokenTTLHours int    `yaml:"token_ttl_hours"`
	RequireAuth   bool   `yaml:"require_auth"`
}

type SecurityConfig struct {
	CSRFEnabled    bool    `yaml:"csrf_enabled"`
	RateLimitRPS   float64 `yaml:"rate_limit_rps"`
	RateLimitBurst int     `yaml:"rate_limit_burst"`
}

type EmailConfig struct {
	SMTPhost     string `yaml:"smtp_host"`
	SMTPport     int    `yaml:"smtp_port"`
	SMTPuser     string `yaml:"smtp_user"`
	SMTPpassword string `yaml:"smtp_password"`
	Sender       string `yaml:"sender"`
}

type SMSConfig struct {
	APIURL   string `yaml:"api_url"`
	APIKey   string `yaml:"-"`
	SenderID string `yaml:"sender_id"`
}

// ClientConfig is read by fanctl.
type ClientConfig struct {
	BaseURL      string `yaml:"base_url"`
	ClubID       int64  `yaml:"club_id"`
	RedirectMode string `yaml:"redirect_mode"`
	ClientIDPath string `yaml:"client_id_path"`
	TokenPath    string `yaml:"token_path"`
}

type Config struct {
	SiteName    string            `yaml:"site_name"`
	BaseURL     string            `yaml:"base_url"`
	Port        int               `yaml:"port"`
	AppEnv      string            `yaml:"app_env"`
	Storage     string            `yaml:"storage"`
	UploadPath  string            `yaml:"upload_path"`
	Database    DatabaseConfig    `yaml:"database"`
	Payments    PaymentsConfig    `yaml:"payments"`
	Idempotency IdempotencyConfig `yaml:"idempotency"`
	Events      EventsConfig      `yaml:"events"`
	Auth        AuthConfig        `yaml:"auth"`
	Security    SecurityConfig    `yaml:"security"`
	Email       EmailConfig       `yaml:"email"`
	SMS         SMSConfig         `yaml:"sms"`
	Client      ClientConfig      `yaml:"client"`
}

func (cfg *Config) IsProduction() bool {
	return cfg.AppEnv == "production"
}

func getStringEnvOrDefault(key, defaultValue string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return defaultValue
}

func getIntEnvOrDefault(key string, defaultValue int) int {
	if valueStr, exists := os.LookupEnv(key); exists {
		if value, err := strconv.Atoi(valueStr); err == nil {
			return value
		}
		slog.Warn("Environment variable is not a number, using default", "key", key, "value", valueStr)
	}
	return defaultValue
}

func getBoolEnvOrDefault(key string, defaultValue bool) bool {
	if valueStr, exists := os.LookupEnv(key); exists {
		if value, err := strconv.ParseBool(valueStr); err == nil {
			return value
		}
		slog.Warn("Environment variable is not a boolean, using default", "key", key, "value", valueStr)
	}
	return defaultValue
}

// LoadConfig reads the YAML file, overlays environment variables and validates the result.
// A missing file is not an error: the defaults describe a local in-memory setup.
func LoadConfig(filename string) (*Config, error) {
	if os.Getenv("APP_ENV") != "production" {
		if err := godotenv.Load("configs/.env"); err != nil {
			slog.Debug("configs/.env not loaded", "error", err)
		} else {
			slog.Info("Environment loaded from configs/.env")
		}
	}

	var cfg Config
	file, err := os.Open(filename)
	switch {
	case os.IsNotExist(err):
		slog.Info("Config file not found, using defaults", "path", filename)
	case err != nil:
		return nil, fmt.Errorf("open config file '%s': %w", filename, err)
	default:
		defer file.Close()
		if err := yaml.NewDecoder(file).Decode(&cfg); err != nil {
			return nil, fmt.Errorf("decode YAML from '%s': %w", filename, err)
		}
	}

	applyEnv(&cfg)
	if err := cfg.finalize(); err != nil {
		return nil, err
	}

	slog.Info("Configuration loaded", "app_env", cfg.AppEnv, "port", cfg.Port, "storage", cfg.Storage, "idempotency", cfg.Idempotency.Backend)
	return &cfg, nil
}

func applyEnv(cfg *Config) {
	cfg.AppEnv = getStringEnvOrDefault("APP_ENV", cfg.AppEnv)
	cfg.BaseURL = getStringEnvOrDefault("BASE_URL", cfg.BaseURL)
	cfg.Port = getIntEnvOrDefault("PORT", cfg.Port)
	cfg.Storage = getStringEnvOrDefault("STORAGE", cfg.Storage)
	cfg.UploadPath = getStringEnvOrDefault("UPLOAD_PATH", cfg.UploadPath)

	if dsn := os.Getenv("DATABASE_DSN"); dsn != "" {
		cfg.Database.DSN = dsn
	}
	cfg.Database.Host = getStringEnvOrDefault("DB_HOST", cfg.Database.Host)
	cfg.Database.Port = getIntEnvOrDefault("DB_PORT", cfg.Database.Port)
	cfg.Database.User = getStringEnvOrDefault("DB_USER", cfg.Database.User)
	cfg.Database.Password = getStringEnvOrDefault("DB_PASSWORD", cfg.Database.Password)
	cfg.Database.DBName = getStringEnvOrDefault("DB_NAME", cfg.Database.DBName)

	cfg.Payments.Provider = getStringEnvOrDefault("PAYMENTS_PROVIDER", cfg.Payments.Provider)
	cfg.Payments.CheckoutBaseURL = getStringEnvOrDefault("CHECKOUT_BASE_URL", cfg.Payments.CheckoutBaseURL)
	cfg.Payments.WebhookSecret = getStringEnvOrDefault("WEBHOOK_SECRET", cfg.Payments.WebhookSecret)
	cfg.Payments.Gateway.BaseURL = getStringEnvOrDefault("GATEWAY_BASE_URL", cfg.Payments.Gateway.BaseURL)
	cfg.Payments.Gateway.Login = getStringEnvOrDefault("GATEWAY_LOGIN", cfg.Payments.Gateway.Login)
	cfg.Payments.Gateway.Password = getStringEnvOrDefault("GATEWAY_PASSWORD", cfg.Payments.Gateway.Password)

	cfg.Idempotency.Backend = getStringEnvOrDefault("IDEMPOTENCY_BACKEND", cfg.Idempotency.Backend)
	cfg.Idempotency.RedisAddr = getStringEnvOrDefault("REDIS_ADDR", cfg.Idempotency.RedisAddr)
	cfg.Idempotency.RedisPassword = getStringEnvOrDefault("REDIS_PASSWORD", cfg.Idempotency.RedisPassword)

	if brokers := os.Getenv("KAFKA_BROKERS"); brokers != "" {
		cfg.Events.KafkaBrokers = strings.Split(brokers, ",")
	}

	cfg.Auth.JWTSecret = getStringEnvOrDefault("JWT_SECRET", cfg.Auth.JWTSecret)
	cfg.Auth.RequireAuth = getBoolEnvOrDefault("REQUIRE_AUTH", cfg.Auth.RequireAuth)
	cfg.Security.CSRFEnabled = getBoolEnvOrDefault("CSRF_ENABLED", cfg.Security.CSRFEnabled)

	cfg.Email.SMTPhost = getStringEnvOrDefault("SMTP_HOST", cfg.Email.SMTPhost)
	cfg.Email.SMTPport = getIntEnvOrDefault("SMTP_PORT", cfg.Email.SMTPport)
	cfg.Email.SMTPuser = getStringEnvOrDefault("SMTP_USER", cfg.Email.SMTPuser)
	cfg.Email.SMTPpassword = getStringEnvOrDefault("SMTP_PASSWORD", "")
	cfg.Email.Sender = getStringEnvOrDefault("EMAIL_SENDER", cfg.Email.Sender)
	cfg.SMS.APIKey = os.Getenv("SMS_GATEWAY_API_KEY")

	cfg.Client.BaseURL = getStringEnvOrDefault("FAN_API_URL", cfg.Client.BaseURL)
	cfg.Client.RedirectMode = getStringEnvOrDefault("FAN_REDIRECT_MODE", cfg.Client.RedirectMode)
}

func (cfg *Config) finalize() error {
	if cfg.AppEnv == "" {
		cfg.AppEnv = "development"
	}
	isProduction := cfg.IsProduction()

	if cfg.Port == 0 {
		cfg.Port = 8080
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = fmt.Sprintf("http://localhost:%d", cfg.Port)
	}
	cfg.BaseURL = strings.TrimSuffix(cfg.BaseURL, "/")
	if isProduction && !strings.HasPrefix(cfg.BaseURL, "https://") {
		return fmt.Errorf("BASE_URL must start with https:// in production")
	}
	if cfg.UploadPath == "" {
		cfg.UploadPath = "./uploads"
	}

	switch cfg.Storage {
	case "":
		cfg.Storage = StorageMemory
	case StorageMemory:
	case StorageMySQL:
		if cfg.Database.DSN == "" && cfg.Database.Host == "" {
			return fmt.Errorf("storage is mysql but neither DATABASE_DSN nor DB_HOST is set")
		}
		if cfg.Database.DSN == "" && (cfg.Database.User == "" || cfg.Database.DBName == "") {
			return fmt.Errorf("DB_USER and DB_NAME are required when connecting by host")
		}
		if cfg.Database.Port == 0 {
			cfg.Database.Port = 3306
		}
	default:
		return fmt.Errorf("unknown storage %q (want memory or mysql)", cfg.Storage)
	}

	if cfg.Payments.Provider == "" {
		cfg.Payments.Provider = "stripe"
	}
	if cfg.Payments.Provider != "stripe" && cfg.Payments.Provider != "mobilepay" {
		return fmt.Errorf("unknown payments.provider %q (want stripe or mobilepay)", cfg.Payments.Provider)
	}
	if isProduction && cfg.Payments.WebhookSecret == "" {
		return fmt.Errorf("WEBHOOK_SECRET must be set in production")
	}
	if cfg.Payments.Gateway.ReturnURL == "" {
		cfg.Payments.Gateway.ReturnURL = cfg.BaseURL + "/payments"
	}

	switch cfg.Idempotency.Backend {
	case "":
		cfg.Idempotency.Backend = "memory"
	case "memory":
	case "redis":
		if cfg.Idempotency.RedisAddr == "" {
			cfg.Idempotency.RedisAddr = "localhost:6379"
		}
	default:
		return fmt.Errorf("unknown idempotency.backend %q (want memory or redis)", cfg.Idempotency.Backend)
	}
	if cfg.Idempotency.TTLHours <= 0 {
		cfg.Idempotency.TTLHours = 24
	}
	if cfg.Events.Topic == "" {
		cfg.Events.Topic = "club.payments"
	}

	if cfg.Auth.JWTSecret == "" {
		if isProduction {
			return fmt.Errorf("JWT_SECRET must be set in production")
		}
		slog.Warn("JWT_SECRET is not set, using an insecure development secret")
		cfg.Auth.JWTSecret = "dev-insecure-secret"
	}
	if cfg.Auth.TokenTTLHours <= 0 {
		cfg.Auth.TokenTTLHours = 72
	}
	if isProduction {
		cfg.Auth.RequireAuth = true
	}

	if cfg.Security.RateLimitRPS <= 0 {
		cfg.Security.RateLimitRPS = 5
	}
	if cfg.Security.RateLimitBurst <= 0 {
		cfg.Security.RateLimitBurst = 10
	}
	if isProduction && (cfg.Email.SMTPhost == "" || cfg.Email.Sender == "") {
		slog.Warn("SMTP is not fully configured for production, payment link emails may fail")
	}

	if cfg.Client.BaseURL == "" {
		cfg.Client.BaseURL = cfg.BaseURL
	}
	cfg.Client.BaseURL = strings.TrimSuffix(cfg.Client.BaseURL, "/")
	if cfg.Client.ClubID == 0 {
		cfg.Client.ClubID = 1
	}
	switch cfg.Client.RedirectMode {
	case "":
		cfg.Client.RedirectMode = RedirectPopup
	case RedirectPopup, RedirectLink:
	default:
		return fmt.Errorf("unknown client.redirect_mode %q (want popup or link)", cfg.Client.RedirectMode)
	}
	return nil
}

func InitLogger(appEnv string) {
	var logger *slog.Logger
	logLevel := slog.LevelInfo

	if appEnv == "development" {
		logLevel = slog.LevelDebug
		logger = slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
			Level:     logLevel,
			AddSource: true,
		}))
	} else {
		logger = slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
			Level:     logLevel,
			AddSource: false,
		}))
	}
	slog.SetDefault(logger)
}
