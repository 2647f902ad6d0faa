package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}

	if cfg.HTTPPort != 8000 {
		t.Fatalf("expected default port 8000, got %d", cfg.HTTPPort)
	}
	if cfg.DataStore != "memory" {
		t.Fatalf("expected memory store by default, got %q", cfg.DataStore)
	}
	if cfg.DeletionGraceDays != 30 {
		t.Fatalf("expected 30-day grace period, got %d", cfg.DeletionGraceDays)
	}
	if !cfg.UseInMemoryStore() {
		t.Fatal("expected UseInMemoryStore to be true by default")
	}
	if len(cfg.AllowedOrigins) == 0 {
		t.Fatal("expected default allowed origins")
	}
}

func TestLoadFromEnvironment(t *testing.T) {
	t.Setenv("PORT", "9000")
	t.Setenv("DATA_STORE", "postgres")
	t.Setenv("DATABASE_URL", "postgres://localhost/deejiar")
	t.Setenv("IDENTITY_URL", "https://identity.example.com/")
	t.Setenv("DELETION_GRACE_DAYS", "7")
	t.Setenv("ALLOWED_ORIGINS", "https://deejiar.com, https://app.deejiar.com")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}

	if cfg.HTTPPort != 9000 {
		t.Fatalf("expected port 9000, got %d", cfg.HTTPPort)
	}
	if cfg.UseInMemoryStore() {
		t.Fatal("expected postgres store")
	}
	if cfg.IdentityURL != "https://identity.example.com" {
		t.Fatalf("expected trailing slash trimmed, got %q", cfg.IdentityURL)
	}
	if cfg.DeletionGraceDays != 7 {
		t.Fatalf("expected 7-day grace period, got %d", cfg.DeletionGraceDays)
	}
	if len(cfg.AllowedOrigins) != 2 || cfg.AllowedOrigins[1] != "https://app.deejiar.com" {
		t.Fatalf("expected parsed origins, got %v", cfg.AllowedOrigins)
	}
	if cfg.HTTPAddress() != ":9000" {
		t.Fatalf("unexpected address %q", cfg.HTTPAddress())
	}
}

func TestLoadPostgresRequiresURL(t *testing.T) {
	t.Setenv("DATA_STORE", "postgres")
	t.Setenv("DATABASE_URL", "")

	if _, err := Load(); err == nil {
		t.Fatal("expected error when postgres store has no DATABASE_URL")
	}
}

func TestLoadInvalidPort(t *testing.T) {
	t.Setenv("PORT", "not-a-port")

	if _, err := Load(); err == nil {
		t.Fatal("expected error for invalid port")
	}
}

func TestLoadInvalidGraceDays(t *testing.T) {
	t.Setenv("DELETION_GRACE_DAYS", "-1")

	if _, err := Load(); err == nil {
		t.Fatal("expected error for negative grace days")
	}
}

func TestSecretFromFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "webhook_token")
	if err := os.WriteFile(path, []byte("  sec-token\n"), 0o600); err != nil {
		t.Fatalf("writing secret file: %v", err)
	}

	t.Setenv("REVENUECAT_WEBHOOK_AUTH", "")
	t.Setenv("REVENUECAT_WEBHOOK_AUTH_FILE", path)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if cfg.WebhookToken != "sec-token" {
		t.Fatalf("expected trimmed secret from file, got %q", cfg.WebhookToken)
	}
}

func TestSecretFileEmpty(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "empty")
	if err := os.WriteFile(path, []byte("   \n"), 0o600); err != nil {
		t.Fatalf("writing secret file: %v", err)
	}

	t.Setenv("ADMIN_JWT_SECRET_FILE", path)

	if _, err := Load(); err == nil {
		t.Fatal("expected error for an empty secret file")
	}
}
