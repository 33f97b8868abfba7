// Command townscoped is the hosted townscope service.
// It serves the REST API, the dataset webhook, metrics, and a health check.
package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/goccy/go-json"
	_ "github.com/lib/pq"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/townscope/townscope/internal/api"
	"github.com/townscope/townscope/internal/catalog"
	"github.com/townscope/townscope/internal/ingestion"
	"github.com/townscope/townscope/internal/logging"
	"github.com/townscope/townscope/internal/platform"
	"github.com/townscope/townscope/internal/webhook"
	"github.com/townscope/townscope/pkg/scoring"
)

func main() {
	settings, err := platform.LoadSettings()
	if err != nil {
		logging.Fatal().Err(err).Msg("load settings")
	}
	logging.Init(logging.Config{Level: settings.Logging.Level, Format: settings.Logging.Format})

	if err := run(settings); err != nil {
		logging.Fatal().Err(err).Msg("townscoped exited")
	}
}

func run(settings *platform.Settings) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	db, err := sql.Open("postgres", settings.Database.URL)
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	defer db.Close()

	if err := db.PingContext(ctx); err != nil {
		return fmt.Errorf("ping database: %w", err)
	}
	if settings.Database.AutoMigrate {
		if _, err := platform.AutoMigrate(db); err != nil {
			return fmt.Errorf("migrate: %w", err)
		}
	}

	scoringCfg := scoring.Defaults()
	if settings.ScoringConfig != "" {
		scoringCfg, err = scoring.LoadConfig(settings.ScoringConfig)
		if err != nil {
			return err
		}
	}
	engine := scoring.NewEngine(&scoringCfg)

	storage, closeStorage, err := openStorage(ctx, settings.Storage)
	if err != nil {
		return err
	}
	defer closeStorage()

	cache, closeCache, err := openCache(settings.Cache)
	if err != nil {
		return err
	}
	defer closeCache()

	store := catalog.NewService(db)
	ingestSvc := ingestion.NewService(store, storage, engine)
	apiHandler := api.NewHandler(store, ingestSvc, engine, api.Options{
		Cache:       cache,
		RankWorkers: settings.Server.RankWorkers,
	})
	webhookHandler := webhook.NewHandler([]byte(settings.Security.WebhookSecret), ingestSvc, apiHandler.InvalidateResults)

	// Set up HTTP routes
	mux := http.NewServeMux()
	apiHandler.RegisterRoutes(mux)
	mux.Handle("POST /v1/webhooks/datasets", webhookHandler)
	mux.Handle("GET /metrics", promhttp.Handler())
	mux.HandleFunc("GET /healthz", healthHandler(db))

	middleware := []func(http.Handler) http.Handler{
		api.Metrics,
		api.CORS(settings.Server.CORSOrigins...),
	}
	if settings.Security.RateLimitRPS > 0 {
		limiter := api.NewRateLimiter(settings.Security.RateLimitRPS, settings.Security.RateLimitBurst)
		if err := limiter.TrustProxies(settings.Security.TrustedProxies...); err != nil {
			return err
		}
		middleware = append(middleware, limiter.Middleware)
		go cleanupLimiter(ctx, limiter)
	}
	middleware = append(middleware, api.APIKeyAuth(settings.Security.APIKey))

	srv := &http.Server{
		Addr:              ":" + settings.Server.Port,
		Handler:           api.Chain(mux, middleware...),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logging.Info().
			Str("port", settings.Server.Port).
			Str("storage", settings.Storage.Backend).
			Str("cache", cache.Name()).
			Str("scoring_config", scoringCfg.Version()).
			Msg("starting townscoped")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("listen: %w", err)
	case <-ctx.Done():
	}

	logging.Info().Msg("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}

// openStorage builds the configured blob store. Remote backends are wrapped
// in a circuit breaker.
func openStorage(ctx context.Context, s platform.StorageSettings) (ingestion.StorageClient, func(), error) {
	noop := func() {}
	switch s.Backend {
	case "s3":
		client, err := ingestion.NewS3Storage(ctx, ingestion.S3Config{
			Bucket:   s.S3Bucket,
			Region:   s.S3Region,
			Endpoint: s.S3Endpoint,
		})
		if err != nil {
			return nil, nil, fmt.Errorf("s3 storage: %w", err)
		}
		return ingestion.NewBreakerStorage(client, ingestion.DefaultBreakerConfig("s3")), noop, nil
	case "gcs":
		client, err := ingestion.NewGCSStorage(ctx, s.GCSBucket)
		if err != nil {
			return nil, nil, fmt.Errorf("gcs storage: %w", err)
		}
		closer := func() {
			if err := client.Close(); err != nil {
				logging.Warn().Err(err).Msg("close gcs client")
			}
		}
		return ingestion.NewBreakerStorage(client, ingestion.DefaultBreakerConfig("gcs")), closer, nil
	default:
		return ingestion.NewLocalStorage(s.LocalPath), noop, nil
	}
}

// openCache builds the configured ranking cache.
func openCache(s platform.CacheSettings) (api.ResultCache, func(), error) {
	switch s.Backend {
	case "badger":
		db, err := api.OpenBadger(s.BadgerPath)
		if err != nil {
			return nil, nil, err
		}
		return api.NewBadgerResultCache(db, time.Hour), closeQuietly("badger", db), nil
	case "none":
		return api.NoCache(), func() {}, nil
	default:
		return api.NewLRUResultCache(s.Size), func() {}, nil
	}
}

func closeQuietly(name string, c io.Closer) func() {
	return func() {
		if err := c.Close(); err != nil {
			logging.Warn().Err(err).Str("resource", name).Msg("close failed")
		}
	}
}

func cleanupLimiter(ctx context.Context, limiter *api.RateLimiter) {
	ticker := time.NewTicker(5 * time.Minute)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := limiter.Cleanup(10 * time.Minute); n > 0 {
				logging.Debug().Int("removed", n).Msg("pruned idle rate limiters")
			}
		}
	}
}

func healthHandler(db *sql.DB) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		if err := db.PingContext(r.Context()); err != nil {
			w.WriteHeader(http.StatusServiceUnavailable)
			_ = json.NewEncoder(w).Encode(map[string]string{"status": "unavailable", "error": "database unreachable"})
			return
		}
		w.WriteHeader(http.StatusOK)
		_ = json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
	}
}
