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

	"bookshell/internal/backend"
	"bookshell/internal/bridge"
	"bookshell/internal/config"
	transporthttp "bookshell/internal/http"
	"bookshell/internal/metrics"
	"bookshell/internal/naver"
	"bookshell/internal/platform/database"
	"bookshell/internal/platform/logging"
	"bookshell/internal/platform/migrate"
	"bookshell/internal/provider"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}

	logger := logging.New(cfg.LogLevel, cfg.Environment)

	for _, name := range cfg.MissingProviders() {
		logger.Warn("provider credentials missing; sign-in for it will be degraded", "provider", name)
	}

	links, cleanup, err := buildLinkRepository(ctx, cfg, logger)
	if err != nil {
		logger.Error("failed to initialize link repository", "error", err)
		os.Exit(1)
	}
	if cleanup != nil {
		defer cleanup()
	}

	backendClient := backend.NewClient(cfg.BackendURL, cfg.BackendAnonKey)
	adminClient := backend.NewAdminClient(cfg.BackendURL, cfg.BackendServiceKey)

	profiles := naver.NewProfileClient()
	naverTokens := naver.NewTokenClient(cfg.NaverClientID, cfg.NaverClientSecret)

	registry, googleConnector := buildProviders(ctx, cfg, naverTokens, logger)
	bridgeSvc := bridge.NewService(profiles, adminClient, links, backendClient, cfg.BackendURL, logger)

	collector := metrics.NewCollector()
	federation := transporthttp.NewFederationHandler(backendClient, nil, collector, logger)
	if googleConnector != nil {
		federation = transporthttp.NewFederationHandler(backendClient, googleConnector, collector, logger)
	}
	deps := transporthttp.RouterDeps{
		Bridge:     transporthttp.NewBridgeHandler(bridgeSvc, collector, logger),
		Federation: federation,
		Session:    transporthttp.NewSessionHandler(backendClient, registry, links, logger),
		Metrics:    collector,
		Logger:     logger,
	}
	router, stopLimiter := transporthttp.NewRouter(cfg, deps)
	defer stopLimiter()

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
		logger.Info("Bookshell auth gateway listening", "addr", srv.Addr, "store", cfg.DataStore, "providers", registry.Names())
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

func buildLinkRepository(ctx context.Context, cfg config.Config, logger *slog.Logger) (bridge.LinkRepository, func(), error) {
	if cfg.UseInMemoryStore() {
		logger.Info("using in-memory link repository")
		return bridge.NewInMemoryLinkRepository(), nil, nil
	}

	db, err := database.NewPostgres(ctx, cfg.DatabaseURL)
	if err != nil {
		return nil, nil, err
	}

	cleanup := func() {
		_ = db.Close()
	}

	if err := migrate.Apply(ctx, db, logger); err != nil {
		cleanup()
		return nil, nil, err
	}

	logger.Info("connected to postgres")
	return bridge.NewPostgresLinkRepository(db), cleanup, nil
}

// buildProviders registers every connector with configured credentials. The
// Google connector doubles as the federation handler's ID-token verifier, so
// it is returned separately and may be nil.
func buildProviders(ctx context.Context, cfg config.Config, naverTokens *naver.TokenClient, logger *slog.Logger) (*provider.Registry, *provider.Google) {
	var connectors []provider.Connector
	var google *provider.Google

	clientIDs := googleClientIDs(cfg)
	if len(clientIDs) > 0 {
		g, err := provider.NewGoogle(ctx, clientIDs)
		if err != nil {
			logger.Warn("google connector unavailable", "error", err)
		} else {
			google = g
			connectors = append(connectors, g)
		}
	}

	if cfg.KakaoAdminKey != "" {
		connectors = append(connectors, provider.NewKakao(cfg.KakaoAdminKey))
	}

	if cfg.NaverClientID != "" && cfg.NaverClientSecret != "" {
		connectors = append(connectors, provider.NewNaver(naverTokens))
	}

	return provider.NewRegistry(connectors...), google
}

func googleClientIDs(cfg config.Config) []string {
	var ids []string
	if cfg.GoogleWebClientID != "" {
		ids = append(ids, cfg.GoogleWebClientID)
	}
	if cfg.GoogleIOSClientID != "" {
		ids = append(ids, cfg.GoogleIOSClientID)
	}
	return ids
}
