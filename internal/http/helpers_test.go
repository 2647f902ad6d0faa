package http

import (
	"context"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"testing"

	"log/slog"

	"github.com/ledtorch/deejiar/internal/account"
	"github.com/ledtorch/deejiar/internal/billing"
	"github.com/ledtorch/deejiar/internal/config"
	"github.com/ledtorch/deejiar/internal/identity"
	"github.com/ledtorch/deejiar/internal/mapdata"
	"github.com/ledtorch/deejiar/internal/metrics"
)

type providerStub struct {
	sendOtp        func(ctx context.Context, email string, opts identity.OtpOptions) error
	verifyOtp      func(ctx context.Context, email, code string) (identity.VerifyResult, error)
	refreshSession func(ctx context.Context, refreshToken string) (identity.VerifyResult, error)
	getUser        func(ctx context.Context, accessToken string) (identity.Identity, error)
	signOut        func(ctx context.Context, accessToken string) error
	updateMetadata func(ctx context.Context, identityID string, metadata map[string]any) error
	deleteIdentity func(ctx context.Context, identityID string) error
	listIdentities func(ctx context.Context) ([]identity.Identity, error)
}

func (p *providerStub) SendOtp(ctx context.Context, email string, opts identity.OtpOptions) error {
	if p.sendOtp != nil {
		return p.sendOtp(ctx, email, opts)
	}
	return nil
}

func (p *providerStub) VerifyOtp(ctx context.Context, email, code string) (identity.VerifyResult, error) {
	if p.verifyOtp != nil {
		return p.verifyOtp(ctx, email, code)
	}
	return identity.VerifyResult{
		Identity: identity.Identity{ID: "ident-" + email, Email: email, EmailConfirmed: true},
		Session:  identity.Session{AccessToken: "at-" + email, RefreshToken: "rt-" + email, ExpiresIn: 3600},
	}, nil
}

func (p *providerStub) RefreshSession(ctx context.Context, refreshToken string) (identity.VerifyResult, error) {
	if p.refreshSession != nil {
		return p.refreshSession(ctx, refreshToken)
	}
	return identity.VerifyResult{}, identity.ErrRejected
}

func (p *providerStub) GetUser(ctx context.Context, accessToken string) (identity.Identity, error) {
	if p.getUser != nil {
		return p.getUser(ctx, accessToken)
	}
	return identity.Identity{}, identity.ErrRejected
}

func (p *providerStub) SignOut(ctx context.Context, accessToken string) error {
	if p.signOut != nil {
		return p.signOut(ctx, accessToken)
	}
	return nil
}

func (p *providerStub) UpdateMetadata(ctx context.Context, identityID string, metadata map[string]any) error {
	if p.updateMetadata != nil {
		return p.updateMetadata(ctx, identityID, metadata)
	}
	return nil
}

func (p *providerStub) DeleteIdentity(ctx context.Context, identityID string) error {
	if p.deleteIdentity != nil {
		return p.deleteIdentity(ctx, identityID)
	}
	return nil
}

func (p *providerStub) ListIdentities(ctx context.Context) ([]identity.Identity, error) {
	if p.listIdentities != nil {
		return p.listIdentities(ctx)
	}
	return nil, nil
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type testEnv struct {
	router  http.Handler
	repo    *account.InMemoryRepository
	service *account.Service
	cfg     config.Config
}

func newTestEnv(t *testing.T, provider account.Provider) *testEnv {
	t.Helper()

	assets := t.TempDir()
	metaPath := filepath.Join(assets, "meta.json")
	meta := `{"type":"FeatureCollection","features":[{"type":"Feature","properties":{"title":"Blue Bottle Coffee","type":"cafe","storetag":["coffee"]},"geometry":null}]}`
	if err := os.WriteFile(metaPath, []byte(meta), 0o644); err != nil {
		t.Fatalf("writing meta.json: %v", err)
	}

	cfg := config.Config{
		Environment:    "test",
		AllowedOrigins: []string{"https://deejiar.com"},
		WebhookToken:   "hook-token",
		AdminUsername:  "admin",
		AdminPassword:  "admin-password",
		AdminJWTSecret: "test-admin-secret",
		AssetsDir:      assets,
	}

	repo := account.NewInMemoryRepository()
	logger := testLogger()
	svc := account.NewService(repo, provider, logger)
	billingSvc := billing.NewService(repo, logger)
	store := mapdata.NewStore(assets)
	m := metrics.New()

	return &testEnv{
		router:  NewRouter(cfg, svc, billingSvc, store, m, logger),
		repo:    repo,
		service: svc,
		cfg:     cfg,
	}
}
