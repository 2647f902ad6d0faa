package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
)

// Config aggregates runtime configuration for the Deejiar API.
type Config struct {
	Environment    string
	HTTPPort       int
	LogLevel       string
	AllowedOrigins []string

	// Data store
	DataStore   string
	DatabaseURL string

	// External identity provider (GoTrue-compatible REST API)
	IdentityURL        string
	IdentityAnonKey    string
	IdentityServiceKey string

	// Billing webhook
	WebhookToken string

	// Admin dashboard
	AdminUsername  string
	AdminPassword  string
	AdminJWTSecret string

	// Account deletion policy
	DeletionGraceDays int
	RecoveryContact   string

	// Map assets
	AssetsDir string

	// Purge notifications (Resend)
	ResendAPIKey string
	NotifyFrom   string
	NotifyTo     string
}

// Load reads configuration from environment variables with sensible defaults for local development.
// Secrets may alternatively be supplied via <NAME>_FILE paths or docker secrets.
func Load() (Config, error) {
	databaseURL, err := getEnvOrFile("DATABASE_URL", "/run/secrets/deejiar_database_url")
	if err != nil {
		return Config{}, err
	}

	anonKey, err := getEnvOrFile("IDENTITY_ANON_KEY", "/run/secrets/deejiar_identity_anon_key")
	if err != nil {
		return Config{}, err
	}

	serviceKey, err := getEnvOrFile("IDENTITY_SERVICE_KEY", "/run/secrets/deejiar_identity_service_key")
	if err != nil {
		return Config{}, err
	}

	webhookToken, err := getEnvOrFile("REVENUECAT_WEBHOOK_AUTH", "/run/secrets/deejiar_webhook_token")
	if err != nil {
		return Config{}, err
	}

	adminPassword, err := getEnvOrFile("ADMIN_PASSWORD", "/run/secrets/deejiar_admin_password")
	if err != nil {
		return Config{}, err
	}

	adminSecret, err := getEnvOrFile("ADMIN_JWT_SECRET", "/run/secrets/deejiar_admin_jwt_secret")
	if err != nil {
		return Config{}, err
	}

	resendKey, err := getEnvOrFile("RESEND_API_KEY", "/run/secrets/deejiar_resend_api_key")
	if err != nil {
		return Config{}, err
	}

	cfg := Config{
		Environment:        getEnv("APP_ENV", "development"),
		LogLevel:           strings.ToLower(getEnv("LOG_LEVEL", "info")),
		AllowedOrigins:     parseCSV(getEnv("ALLOWED_ORIGINS", "https://localhost:5173,https://localhost:5174,capacitor://localhost")),
		DataStore:          strings.ToLower(getEnv("DATA_STORE", "memory")),
		DatabaseURL:        databaseURL,
		IdentityURL:        strings.TrimRight(getEnv("IDENTITY_URL", ""), "/"),
		IdentityAnonKey:    strings.TrimSpace(anonKey),
		IdentityServiceKey: strings.TrimSpace(serviceKey),
		WebhookToken:       strings.TrimSpace(webhookToken),
		AdminUsername:      getEnv("ADMIN_USERNAME", ""),
		AdminPassword:      strings.TrimSpace(adminPassword),
		AdminJWTSecret:     strings.TrimSpace(adminSecret),
		RecoveryContact:    getEnv("RECOVERY_CONTACT", "hi@deejiar.com"),
		AssetsDir:          getEnv("ASSETS_DIR", "assets/map"),
		ResendAPIKey:       strings.TrimSpace(resendKey),
		NotifyFrom:         getEnv("NOTIFY_FROM", "Deejiar System <system@deejiar.com>"),
		NotifyTo:           getEnv("NOTIFY_TO", "hi@deejiar.com"),
	}

	portValue := getEnv("PORT", getEnv("HTTP_PORT", "8000"))
	port, err := strconv.Atoi(portValue)
	if err != nil {
		return Config{}, fmt.Errorf("invalid port %q: %w", portValue, err)
	}
	cfg.HTTPPort = port

	graceValue := getEnv("DELETION_GRACE_DAYS", "30")
	graceDays, err := strconv.Atoi(graceValue)
	if err != nil || graceDays < 0 {
		return Config{}, fmt.Errorf("invalid DELETION_GRACE_DAYS %q", graceValue)
	}
	cfg.DeletionGraceDays = graceDays

	if cfg.DataStore == "postgres" && cfg.DatabaseURL == "" {
		return Config{}, fmt.Errorf("DATA_STORE is postgres but DATABASE_URL is not set")
	}

	return cfg, nil
}

// HTTPAddress returns the address the HTTP server should bind to.
func (c Config) HTTPAddress() string {
	return fmt.Sprintf(":%d", c.HTTPPort)
}

// UseInMemoryStore returns true if the in-memory repository should be used.
func (c Config) UseInMemoryStore() bool {
	return c.DataStore == "memory"
}

func getEnv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

func parseCSV(value string) []string {
	parts := strings.Split(value, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		trimmed := strings.TrimSpace(p)
		if trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}

func getEnvOrFile(key, defaultPath string) (string, error) {
	if value := os.Getenv(key); value != "" {
		return value, nil
	}

	fileKey := key + "_FILE"
	if path := os.Getenv(fileKey); path != "" {
		return readSecret(path, fileKey)
	}

	if defaultPath != "" {
		return readSecret(defaultPath, key)
	}

	return "", nil
}

func readSecret(path, name string) (string, error) {
	contents, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return "", nil
		}
		return "", fmt.Errorf("config: reading %s (%s): %w", name, path, err)
	}

	value := strings.TrimSpace(string(contents))
	if value == "" {
		return "", fmt.Errorf("config: %s (%s) is empty", name, path)
	}
	return value, nil
}
