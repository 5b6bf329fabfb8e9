package analytics

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	_ "github.com/ClickHouse/clickhouse-go/v2"

	"github.com/openadstack/adselect/internal/models"
	"github.com/openadstack/adselect/internal/observability"
)

// ErrUnavailable is returned when the analytics DB is not configured.
var ErrUnavailable = errors.New("analytics unavailable")

// AnalyticsService records selection events for offline analysis.
// Implementations should return ErrUnavailable when the underlying storage
// is not configured.
type AnalyticsService interface {
	// RecordEvent records one selection event. contentID is empty for
	// events without a chosen content item (requests, empty results).
	RecordEvent(ctx context.Context, eventType, requestID, contentID string, rc models.RequestContext) error
}

// Analytics wraps a ClickHouse DB connection.
type Analytics struct {
	DB      *sql.DB
	Metrics observability.MetricsRegistry
}

// EventRecord mirrors a row in the selection_events table.
type EventRecord struct {
	Timestamp     time.Time `json:"timestamp"`
	EventType     string    `json:"event_type"`
	RequestID     string    `json:"request_id"`
	CustomerID    string    `json:"customer_id"`
	MarketplaceID string    `json:"marketplace_id"`
	ContentID     *string   `json:"content_id"`
	DeviceType    *string   `json:"device_type"`
	Country       *string   `json:"country"`
}

// InitClickHouse connects to ClickHouse and ensures the selection_events
// table exists.
func InitClickHouse(dsn string, metrics observability.MetricsRegistry) (*Analytics, error) {
	db, err := sql.Open("clickhouse", dsn)
	if err != nil {
		return nil, fmt.Errorf("clickhouse open: %w", err)
	}
	db.SetMaxOpenConns(25)
	if err := db.PingContext(context.Background()); err != nil {
		return nil, fmt.Errorf("clickhouse ping: %w", err)
	}
	create := `CREATE TABLE IF NOT EXISTS selection_events (
       timestamp      DateTime,
       event_type     String,
       request_id     String,
       customer_id    String,
       marketplace_id String,
       content_id     Nullable(String),
       device_type    Nullable(String),
       country        Nullable(String)
   ) ENGINE=MergeTree() ORDER BY (event_type, timestamp)`
	if _, err := db.ExecContext(context.Background(), create); err != nil {
		return nil, fmt.Errorf("clickhouse create table: %w", err)
	}

	zap.L().Info("Connected to ClickHouse")
	return &Analytics{DB: db, Metrics: metrics}, nil
}

// RecordEvent inserts a single event row into the selection_events table.
func (a *Analytics) RecordEvent(ctx context.Context, eventType, requestID, contentID string, rc models.RequestContext) error {
	if a == nil || a.DB == nil {
		return ErrUnavailable
	}

	var content, deviceType, country sql.NullString
	if contentID != "" {
		content = sql.NullString{String: contentID, Valid: true}
	}
	if rc.DeviceType != "" {
		deviceType = sql.NullString{String: rc.DeviceType, Valid: true}
	}
	if rc.Country != "" {
		country = sql.NullString{String: rc.Country, Valid: true}
	}

	_, err := a.DB.ExecContext(ctx,
		`INSERT INTO selection_events (timestamp, event_type, request_id, customer_id, marketplace_id, content_id, device_type, country)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		time.Now().UTC(), eventType, requestID, rc.CustomerID, rc.MarketplaceID, content, deviceType, country)
	if err != nil {
		return fmt.Errorf("insert event: %w", err)
	}
	if a.Metrics != nil {
		a.Metrics.IncrementEvent(eventType)
	}
	return nil
}

// Close shuts down the ClickHouse connection.
func (a *Analytics) Close() {
	if a != nil && a.DB != nil {
		if err := a.DB.Close(); err != nil {
			zap.L().Error("clickhouse close", zap.Error(err))
		}
	}
}
