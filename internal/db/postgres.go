package db

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/XSAM/otelsql"
	_ "github.com/lib/pq"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"

	"github.com/openadstack/adselect/internal/models"
)

// Postgres wraps a postgres DB connection.
type Postgres struct {
	DB *sql.DB
}

// schemaSQL sets up the necessary tables if they don't exist.
const schemaSQL = `CREATE TABLE IF NOT EXISTS advertisement_content (
    content_id TEXT PRIMARY KEY,
    marketplace_id TEXT NOT NULL,
    renderable_content TEXT NOT NULL DEFAULT ''
);

CREATE INDEX IF NOT EXISTS advertisement_content_marketplace_idx
    ON advertisement_content (marketplace_id);

CREATE TABLE IF NOT EXISTS targeting_groups (
    targeting_group_id TEXT PRIMARY KEY,
    content_id TEXT NOT NULL REFERENCES advertisement_content(content_id) ON DELETE CASCADE,
    click_through_rate DOUBLE PRECISION NOT NULL DEFAULT 0,
    predicates JSONB NOT NULL DEFAULT '[]'
);

CREATE INDEX IF NOT EXISTS targeting_groups_content_idx
    ON targeting_groups (content_id);`

// InitPostgres opens a connection pool to Postgres, instruments it for
// tracing and bootstraps the schema.
func InitPostgres(dsn string, maxOpenConns, maxIdleConns int, connMaxLifetime time.Duration) (*Postgres, error) {
	driverName, err := otelsql.Register("postgres",
		otelsql.WithAttributes(
			attribute.String("db.system", "postgresql"),
		),
	)
	if err != nil {
		return nil, fmt.Errorf("register otelsql: %w", err)
	}

	db, err := sql.Open(driverName, dsn)
	if err != nil {
		return nil, fmt.Errorf("postgres open: %w", err)
	}

	db.SetMaxOpenConns(maxOpenConns)
	db.SetMaxIdleConns(maxIdleConns)
	db.SetConnMaxLifetime(connMaxLifetime)

	if err := db.PingContext(context.Background()); err != nil {
		return nil, fmt.Errorf("postgres ping: %w", err)
	}
	p := &Postgres{DB: db}
	if err := p.ensureSchema(); err != nil {
		return nil, err
	}
	zap.L().Info("Connected to Postgres",
		zap.Int("max_open_conns", maxOpenConns),
		zap.Int("max_idle_conns", maxIdleConns))
	return p, nil
}

// Close terminates the Postgres connection.
func (p *Postgres) Close() {
	if p != nil && p.DB != nil {
		if err := p.DB.Close(); err != nil {
			zap.L().Error("postgres close", zap.Error(err))
		}
	}
}

func (p *Postgres) ensureSchema() error {
	if _, err := p.DB.ExecContext(context.Background(), schemaSQL); err != nil {
		return fmt.Errorf("ensure schema: %w", err)
	}
	return nil
}

// LoadContent returns all advertisement content rows.
func (p *Postgres) LoadContent() ([]models.AdvertisementContent, error) {
	rows, err := p.DB.QueryContext(context.Background(),
		`SELECT content_id, marketplace_id, renderable_content FROM advertisement_content`)
	if err != nil {
		return nil, fmt.Errorf("query content: %w", err)
	}
	defer func() {
		_ = rows.Close()
	}()

	var contents []models.AdvertisementContent
	for rows.Next() {
		var c models.AdvertisementContent
		if err := rows.Scan(&c.ContentID, &c.MarketplaceID, &c.RenderableContent); err != nil {
			return nil, fmt.Errorf("scan content: %w", err)
		}
		contents = append(contents, c)
	}
	return contents, rows.Err()
}

// LoadTargetingGroups returns all targeting groups with their predicate
// specs decoded from JSONB. Hydration of specs into evaluable predicates
// happens in the store layer.
func (p *Postgres) LoadTargetingGroups() ([]models.TargetingGroup, error) {
	rows, err := p.DB.QueryContext(context.Background(),
		`SELECT targeting_group_id, content_id, click_through_rate, predicates FROM targeting_groups`)
	if err != nil {
		return nil, fmt.Errorf("query targeting groups: %w", err)
	}
	defer func() {
		_ = rows.Close()
	}()

	var groups []models.TargetingGroup
	for rows.Next() {
		var tg models.TargetingGroup
		var preds []byte
		if err := rows.Scan(&tg.TargetingGroupID, &tg.ContentID, &tg.ClickThroughRate, &preds); err != nil {
			return nil, fmt.Errorf("scan targeting group: %w", err)
		}
		if len(preds) > 0 {
			if err := json.Unmarshal(preds, &tg.PredicateSpecs); err != nil {
				return nil, fmt.Errorf("decode predicates for group %s: %w", tg.TargetingGroupID, err)
			}
		}
		groups = append(groups, tg)
	}
	return groups, rows.Err()
}

// InsertContent persists a new advertisement content row.
func (p *Postgres) InsertContent(c models.AdvertisementContent) error {
	_, err := p.DB.ExecContext(context.Background(),
		`INSERT INTO advertisement_content (content_id, marketplace_id, renderable_content) VALUES ($1, $2, $3)`,
		c.ContentID, c.MarketplaceID, c.RenderableContent)
	return err
}

// UpdateContent updates an existing advertisement content row.
func (p *Postgres) UpdateContent(c models.AdvertisementContent) error {
	res, err := p.DB.ExecContext(context.Background(),
		`UPDATE advertisement_content SET marketplace_id = $2, renderable_content = $3 WHERE content_id = $1`,
		c.ContentID, c.MarketplaceID, c.RenderableContent)
	if err != nil {
		return err
	}
	return requireRow(res)
}

// DeleteContent removes a content row. Its targeting groups cascade.
func (p *Postgres) DeleteContent(contentID string) error {
	res, err := p.DB.ExecContext(context.Background(),
		`DELETE FROM advertisement_content WHERE content_id = $1`, contentID)
	if err != nil {
		return err
	}
	return requireRow(res)
}

// InsertTargetingGroup persists a new targeting group.
func (p *Postgres) InsertTargetingGroup(tg models.TargetingGroup) error {
	preds, err := json.Marshal(tg.PredicateSpecs)
	if err != nil {
		return fmt.Errorf("encode predicates: %w", err)
	}
	_, err = p.DB.ExecContext(context.Background(),
		`INSERT INTO targeting_groups (targeting_group_id, content_id, click_through_rate, predicates) VALUES ($1, $2, $3, $4)`,
		tg.TargetingGroupID, tg.ContentID, tg.ClickThroughRate, preds)
	return err
}

// DeleteTargetingGroup removes a targeting group.
func (p *Postgres) DeleteTargetingGroup(id string) error {
	res, err := p.DB.ExecContext(context.Background(),
		`DELETE FROM targeting_groups WHERE targeting_group_id = $1`, id)
	if err != nil {
		return err
	}
	return requireRow(res)
}

// UpdateClickThroughRate sets a new observed CTR on a targeting group.
func (p *Postgres) UpdateClickThroughRate(id string, ctr float64) error {
	res, err := p.DB.ExecContext(context.Background(),
		`UPDATE targeting_groups SET click_through_rate = $2 WHERE targeting_group_id = $1`,
		id, ctr)
	if err != nil {
		return err
	}
	return requireRow(res)
}

func requireRow(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}
