package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/dealerops/console-api/internal/config"
	"github.com/dealerops/console-api/internal/handler"
	"github.com/dealerops/console-api/internal/infra/cache"
	"github.com/dealerops/console-api/internal/infra/client"
	"github.com/dealerops/console-api/internal/infra/observability"
	"github.com/dealerops/console-api/internal/infra/resilience"
	"github.com/dealerops/console-api/internal/infra/supabase"
	"github.com/dealerops/console-api/internal/service"

	"go.uber.org/zap"
)

func main() {
	// --- Load .env file (for local development) ---
	_ = config.LoadDotEnv(".env")

	// --- Config ---
	cfg := config.Load()

	// --- Logger ---
	logger := observability.NewLogger(cfg.LogLevel)
	defer logger.Sync()

	logger.Info("configuration loaded",
		zap.Int("port", cfg.Port),
		zap.String("log_level", cfg.LogLevel),
		zap.String("ghl_base_url", cfg.GHLBaseURL),
		zap.String("catalog_api_url", cfg.CatalogAPIURL),
		zap.Duration("http_timeout", cfg.HTTPTimeout),
		zap.Duration("scope_cache_ttl", cfg.ScopeCacheTTL),
		zap.Int("max_retries", cfg.MaxRetries),
		zap.Duration("initial_backoff", cfg.InitialBackoff),
		zap.Int("max_concurrency", cfg.MaxConcurrency),
		zap.Duration("jwt_access_ttl", cfg.JWTAccessTTL),
	)

	if cfg.SupabaseURL == "" {
		logger.Fatal("SUPABASE_URL is required")
	}

	// --- Tracing ---
	shutdown, err := observability.InitTracer(cfg.OTLPEndpoint, "console-api")
	if err != nil {
		logger.Fatal("failed to init tracer", zap.Error(err))
	}
	defer shutdown(context.Background())

	// --- Metrics ---
	metrics := observability.NewMetrics()

	// --- Resilience ---
	resilienceCfg := resilience.Config{
		MaxRetries:     cfg.MaxRetries,
		InitialBackoff: cfg.InitialBackoff,
		MaxConcurrency: cfg.MaxConcurrency,
	}
	supabaseCB := resilience.NewCircuitBreaker("supabase")
	ghlCB := resilience.NewCircuitBreaker("ghl")
	catalogCB := resilience.NewCircuitBreaker("catalog")
	syncBulkhead := resilience.NewBulkhead(cfg.MaxConcurrency)
	rollupBulkhead := resilience.NewBulkhead(cfg.MaxConcurrency)

	// --- Clients ---
	httpClient := &http.Client{Timeout: cfg.HTTPTimeout}

	store := supabase.NewClient(
		httpClient,
		cfg.SupabaseURL,
		cfg.SupabaseAnonKey,
		cfg.SupabaseServiceKey,
		supabaseCB,
		resilienceCfg,
		logger,
	)
	ghl := client.NewGHLClient(
		httpClient,
		cfg.GHLBaseURL,
		cfg.GHLClientID,
		cfg.GHLClientSecret,
		cfg.GHLRedirectURI,
		cfg.GHLAgencyToken,
		cfg.GHLScopes,
		ghlCB,
		resilienceCfg,
	)
	catalog := client.NewCatalogClient(httpClient, cfg.CatalogAPIURL, catalogCB, resilienceCfg)

	// --- Caches ---
	scopeCache := cache.New[[]string](cfg.ScopeCacheTTL)

	// --- Services ---
	providersSvc := service.NewProvidersService(store, catalog, catalog, scopeCache, metrics, logger)
	accountsSvc := service.NewAccountsService(store, logger)
	customValuesSvc := service.NewCustomValuesService(store, store, ghl, providersSvc, syncBulkhead, metrics, logger)
	connectionsSvc := service.NewConnectionsService(store, ghl, metrics, logger)
	contactsSvc := service.NewContactsService(store, ghl, metrics, logger)
	rollupSvc := service.NewRollupService(store, store, contactsSvc, rollupBulkhead, metrics, logger)
	authSvc := service.NewAuthService(store, cfg.JWTSecret, cfg.JWTAccessTTL, logger)

	// --- Router ---
	router := handler.NewRouter(handler.Services{
		Providers:    providersSvc,
		Accounts:     accountsSvc,
		CustomValues: customValuesSvc,
		Connections:  connectionsSvc,
		Contacts:     contactsSvc,
		Rollup:       rollupSvc,
		Auth:         authSvc,
	}, metrics, logger, cfg.CORSOrigins)

	// --- Server ---
	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      router,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// --- Graceful shutdown ---
	go func() {
		logger.Info("server starting", zap.Int("port", cfg.Port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("server failed", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("server shutting down...")
	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Fatal("server forced shutdown", zap.Error(err))
	}

	logger.Info("server stopped")
}
