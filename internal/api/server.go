package api

import (
	"sync"

	"go.uber.org/zap"

	"github.com/openadstack/adselect/internal/analytics"
	"github.com/openadstack/adselect/internal/db"
	"github.com/openadstack/adselect/internal/geoip"
	"github.com/openadstack/adselect/internal/observability"
	"github.com/openadstack/adselect/internal/selection"
)

// Server groups dependencies for HTTP handlers.
type Server struct {
	Logger    *zap.Logger
	Engine    *selection.Engine
	Store     *db.Store
	PG        *db.Postgres
	Analytics analytics.AnalyticsService
	GeoIP     *geoip.GeoIP
	Metrics   observability.MetricsRegistry
	Hydrator  db.PredicateHydrator

	reloadMu sync.Mutex
}

// NewServer constructs a Server.
func NewServer(logger *zap.Logger, engine *selection.Engine, store *db.Store, pg *db.Postgres, analyticsSvc analytics.AnalyticsService, geo *geoip.GeoIP, metrics observability.MetricsRegistry, hydrator db.PredicateHydrator) *Server {
	if metrics == nil {
		metrics = observability.NewNoOpRegistry()
	}
	return &Server{
		Logger:    logger,
		Engine:    engine,
		Store:     store,
		PG:        pg,
		Analytics: analyticsSvc,
		GeoIP:     geo,
		Metrics:   metrics,
		Hydrator:  hydrator,
	}
}

// Reload refreshes advertisement content and targeting groups from Postgres.
func (s *Server) Reload() error {
	s.reloadMu.Lock()
	defer s.reloadMu.Unlock()
	return s.Store.Reload(s.PG, s.Hydrator)
}
