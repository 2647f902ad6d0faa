package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"log/slog"

	"github.com/ledtorch/deejiar/internal/account"
	"github.com/ledtorch/deejiar/internal/billing"
	"github.com/ledtorch/deejiar/internal/config"
	transporthttp "github.com/ledtorch/deejiar/internal/http"
	"github.com/ledtorch/deejiar/internal/identity"
	"github.com/ledtorch/deejiar/internal/mapdata"
	"github.com/ledtorch/deejiar/internal/metrics"
	"github.com/ledtorch/deejiar/internal/notify"
	"github.com/ledtorch/deejiar/internal/platform/database"
	"github.com/ledtorch/deejiar/internal/platform/logging"
	"github.com/ledtorch/deejiar/internal/platform/migrate"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}

	logger := logging.New(cfg.LogLevel)

	repo, cleanup, err := buildRepository(ctx, cfg, logger)
	if err != nil {
		logger.Error("failed to initialize repository", "error", err)
		os.Exit(1)
	}
	if cleanup != nil {
		defer cleanup()
	}

	provider := identity.NewClient(cfg.IdentityURL, cfg.IdentityAnonKey, cfg.IdentityServiceKey)

	accountOpts := []account.ServiceOption{
		account.WithGracePeriod(time.Duration(cfg.DeletionGraceDays) * 24 * time.Hour),
		account.WithRecoveryContact(cfg.RecoveryContact),
	}
	if cfg.ResendAPIKey != "" {
		notifier := notify.NewClient(&http.Client{Timeout: 12 * time.Second}, cfg.ResendAPIKey, cfg.NotifyFrom, cfg.NotifyTo)
		accountOpts = append(accountOpts, account.WithNotifier(notifier))
	}

	accountSvc := account.NewService(repo, provider, logger, accountOpts...)
	billingSvc := billing.NewService(repo, logger)
	store := mapdata.NewStore(cfg.AssetsDir)
	m := metrics.New()

	router := transporthttp.NewRouter(cfg, accountSvc, billingSvc, store, m, logger)

	srv := &http.Server{
		Addr:              cfg.HTTPAddress(),
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
		MaxHeaderBytes:    http.DefaultMaxHeaderBytes,
	}

	go func() {
		logger.Info("Deejiar API listening", "addr", srv.Addr, "store", cfg.DataStore)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server error", "error", err)
		}
	}()

	<-ctx.Done()
	logger.Info("shutdown signal received")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown failed", "error", err)
	}
}

func buildRepository(ctx context.Context, cfg config.Config, logger *slog.Logger) (account.Repository, func(), error) {
	if cfg.UseInMemoryStore() {
		logger.Info("using in-memory repository")
		return account.NewInMemoryRepository(), nil, nil
	}

	db, err := database.NewPostgres(ctx, cfg.DatabaseURL)
	if err != nil {
		return nil, nil, err
	}

	cleanup := func() {
		_ = db.Close()
	}

	if err := migrate.Apply(ctx, db); err != nil {
		cleanup()
		return nil, nil, err
	}

	logger.Info("connected to postgres")
	return account.NewPostgresRepository(db), cleanup, nil
}
