package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.uber.org/zap"

	"github.com/openadstack/adselect/internal/analytics"
	"github.com/openadstack/adselect/internal/api"
	"github.com/openadstack/adselect/internal/config"
	"github.com/openadstack/adselect/internal/db"
	"github.com/openadstack/adselect/internal/geoip"
	"github.com/openadstack/adselect/internal/middleware"
	"github.com/openadstack/adselect/internal/observability"
	"github.com/openadstack/adselect/internal/selection"
	"github.com/openadstack/adselect/internal/targeting"
	"github.com/openadstack/adselect/internal/targeting/predicates"
)

func main() {
	cfg := config.Load()

	logger, err := observability.InitLogger(cfg.ServiceName)
	if err != nil {
		fmt.Fprintf(os.Stderr, "init logger: %v\n", err)
		os.Exit(1)
	}

	defer func() {
		if err := logger.Sync(); err != nil {
			fmt.Fprintf(os.Stderr, "failed to sync logger: %v\n", err)
		}
	}()

	if err := run(logger, cfg); err != nil {
		logger.Error("server error", zap.Error(err))
		os.Exit(1)
	}
}

func run(logger *zap.Logger, cfg config.Config) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if cfg.TracingEnabled {
		shutdown, err := observability.InitTracing(ctx, logger, cfg.ServiceName, cfg.TracingEndpoint, cfg.TracingSampleRate)
		if err != nil {
			return fmt.Errorf("init tracing: %w", err)
		}
		defer shutdown()
	}

	pg, err := db.InitPostgres(cfg.PostgresDSN, cfg.DBMaxOpenConns, cfg.DBMaxIdleConns, cfg.DBConnMaxLifetime)
	if err != nil {
		return fmt.Errorf("failed to connect postgres: %w", err)
	}
	defer pg.Close()

	profiles, err := db.InitRedis(cfg.RedisAddr)
	if err != nil {
		return fmt.Errorf("failed to connect redis: %w", err)
	}
	defer profiles.Close()

	registry := predicates.NewRegistry(profiles)

	store := db.NewStore()
	if err := store.Reload(pg, registry); err != nil {
		return fmt.Errorf("failed to load store: %w", err)
	}

	metricsRegistry := observability.NewPrometheusRegistry()

	analyticsSvc, err := analytics.InitClickHouse(cfg.ClickHouseDSN, metricsRegistry)
	if err != nil {
		return fmt.Errorf("failed to connect clickhouse: %w", err)
	}
	defer analyticsSvc.Close()

	geoSvc, err := geoip.Init(cfg.GeoIPDB)
	if err != nil {
		return fmt.Errorf("failed to load geoip db: %w", err)
	}
	defer func() { _ = geoSvc.Close() }()

	// One worker pool shared by all targeting evaluations in the process.
	pool := targeting.NewPool(cfg.PredicateWorkers)
	defer pool.Close()

	engine := selection.NewEngine(store, store, pool, cfg.EvaluationTimeout, logger, metricsRegistry)

	srvDeps := api.NewServer(logger, engine, store, pg, analyticsSvc, geoSvc, metricsRegistry, registry)

	r := mux.NewRouter()
	r.HandleFunc("/advertisement", srvDeps.AdvertisementHandler).Methods("GET")
	r.HandleFunc("/health", srvDeps.HealthHandler).Methods("GET")
	r.HandleFunc("/reload", srvDeps.ReloadHandler).Methods("POST")

	// CRUD routes for campaign management
	crud := r.PathPrefix("/api").Subrouter()
	crud.HandleFunc("/content", srvDeps.ListContent).Methods("GET")
	crud.HandleFunc("/content", srvDeps.CreateContent).Methods("POST")
	crud.HandleFunc("/content/{id}", srvDeps.UpdateContent).Methods("PUT")
	crud.HandleFunc("/content/{id}", srvDeps.DeleteContent).Methods("DELETE")

	crud.HandleFunc("/targeting_groups", srvDeps.ListTargetingGroups).Methods("GET")
	crud.HandleFunc("/targeting_groups", srvDeps.CreateTargetingGroup).Methods("POST")
	crud.HandleFunc("/targeting_groups/{id}", srvDeps.DeleteTargetingGroup).Methods("DELETE")
	crud.HandleFunc("/targeting_groups/{id}/ctr", srvDeps.UpdateClickThroughRate).Methods("PUT")

	r.Handle("/metrics", promhttp.Handler())

	var handler http.Handler = r
	handler = middleware.WithTraceLogger(logger)(handler)
	handler = otelhttp.NewHandler(handler, cfg.ServiceName)

	addr := ":" + cfg.Port
	srv := &http.Server{
		Addr:         addr,
		Handler:      handler,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
	}

	logger.Info("Ad selection server running", zap.String("addr", addr))

	errCh := make(chan error, 1)
	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- fmt.Errorf("listen: %w", err)
		}
	}()

	if cfg.ReloadInterval > 0 {
		ticker := time.NewTicker(cfg.ReloadInterval)
		go func() {
			for {
				select {
				case <-ticker.C:
					if err := srvDeps.Reload(); err != nil {
						logger.Error("auto reload", zap.Error(err))
					}
				case <-ctx.Done():
					ticker.Stop()
					return
				}
			}
		}()
	}

	select {
	case <-ctx.Done():
	case err := <-errCh:
		if err != nil {
			return err
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}

	return nil
}
