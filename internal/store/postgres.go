package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/law-makers/pricewatch/pkg/models"
)

// Pool is the subset of *pgxpool.Pool the store uses
type Pool interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Close()
}

// PostgresStore implements Store using pgxpool
type PostgresStore struct {
	pool Pool
}

// NewPostgres connects a pool to connString and verifies it
func NewPostgres(ctx context.Context, connString string) (*PostgresStore, error) {
	cfg, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, fmt.Errorf("postgres: parse config: %w", err)
	}
	cfg.MaxConns = 10
	cfg.MinConns = 1
	cfg.MaxConnLifetime = 30 * time.Minute
	cfg.MaxConnIdleTime = 5 * time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("postgres: create pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("postgres: ping: %w", err)
	}
	return &PostgresStore{pool: pool}, nil
}

// NewPostgresWithPool wraps an existing pool
func NewPostgresWithPool(pool Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

const postgresMigration = `
CREATE TABLE IF NOT EXISTS categories (
	id          BIGSERIAL PRIMARY KEY,
	name        TEXT NOT NULL UNIQUE,
	description TEXT NOT NULL DEFAULT ''
);

CREATE TABLE IF NOT EXISTS components (
	id           BIGSERIAL PRIMARY KEY,
	name         TEXT NOT NULL,
	manufacturer TEXT NOT NULL DEFAULT '',
	category_id  BIGINT NOT NULL REFERENCES categories(id),
	created_at   TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS prices (
	id           BIGSERIAL PRIMARY KEY,
	component_id BIGINT NOT NULL REFERENCES components(id),
	price        DOUBLE PRECISION NOT NULL CHECK (price > 0),
	site_id      TEXT NOT NULL DEFAULT '',
	url          TEXT NOT NULL DEFAULT '',
	recorded_at  TIMESTAMPTZ NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_components_category_id ON components(category_id);
CREATE INDEX IF NOT EXISTS idx_prices_component_recorded ON prices(component_id, recorded_at DESC);
`

const postgresSelectItems = `
SELECT c.id, c.name, c.manufacturer, cat.name
FROM components c JOIN categories cat ON cat.id = c.category_id`

func (s *PostgresStore) Migrate(ctx context.Context) error {
	if _, err := s.pool.Exec(ctx, postgresMigration); err != nil {
		return fmt.Errorf("postgres: migrate: %w", err)
	}
	return nil
}

func (s *PostgresStore) Close() error {
	s.pool.Close()
	return nil
}

func (s *PostgresStore) Items(ctx context.Context, id *int64) ([]models.CatalogItem, error) {
	if id == nil {
		return s.ListComponents(ctx)
	}

	var item models.CatalogItem
	err := s.pool.QueryRow(ctx, postgresSelectItems+` WHERE c.id = $1`, *id).
		Scan(&item.ID, &item.Name, &item.Manufacturer, &item.Category)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, componentNotFound(*id)
	}
	if err != nil {
		return nil, fmt.Errorf("postgres: get component %d: %w", *id, err)
	}
	return []models.CatalogItem{item}, nil
}

func (s *PostgresStore) ListComponents(ctx context.Context) ([]models.CatalogItem, error) {
	rows, err := s.pool.Query(ctx, postgresSelectItems+` ORDER BY c.id`)
	if err != nil {
		return nil, fmt.Errorf("postgres: list components: %w", err)
	}
	defer rows.Close()

	var items []models.CatalogItem
	for rows.Next() {
		var item models.CatalogItem
		if err := rows.Scan(&item.ID, &item.Name, &item.Manufacturer, &item.Category); err != nil {
			return nil, fmt.Errorf("postgres: scan component: %w", err)
		}
		items = append(items, item)
	}
	return items, rows.Err()
}

func (s *PostgresStore) AddCategory(ctx context.Context, name, description string) (models.Category, error) {
	if err := validateCategory(name); err != nil {
		return models.Category{}, err
	}

	var c models.Category
	err := s.pool.QueryRow(ctx,
		`INSERT INTO categories (name, description) VALUES ($1, $2)
		ON CONFLICT (name) DO UPDATE SET name = EXCLUDED.name
		RETURNING id, name, description`,
		name, description,
	).Scan(&c.ID, &c.Name, &c.Description)
	if err != nil {
		return models.Category{}, fmt.Errorf("postgres: upsert category %s: %w", name, err)
	}
	return c, nil
}

func (s *PostgresStore) AddComponent(ctx context.Context, item models.CatalogItem) (models.CatalogItem, error) {
	if err := validateItem(item); err != nil {
		return models.CatalogItem{}, err
	}

	cat, err := s.AddCategory(ctx, item.Category, "")
	if err != nil {
		return models.CatalogItem{}, err
	}

	err = s.pool.QueryRow(ctx,
		`INSERT INTO components (name, manufacturer, category_id) VALUES ($1, $2, $3) RETURNING id`,
		item.Name, item.Manufacturer, cat.ID,
	).Scan(&item.ID)
	if err != nil {
		return models.CatalogItem{}, fmt.Errorf("postgres: insert component: %w", err)
	}

	item.Category = cat.Name
	return item, nil
}

func (s *PostgresStore) RecordPrice(ctx context.Context, componentID int64, price float64, siteID, url string, ts time.Time) (models.PriceRecord, error) {
	if err := validatePrice(price); err != nil {
		return models.PriceRecord{}, err
	}
	if err := s.exists(ctx, componentID); err != nil {
		return models.PriceRecord{}, err
	}

	rec := models.PriceRecord{
		ComponentID: componentID,
		Price:       price,
		SiteID:      siteID,
		URL:         url,
		Timestamp:   utc(ts),
	}
	err := s.pool.QueryRow(ctx,
		`INSERT INTO prices (component_id, price, site_id, url, recorded_at) VALUES ($1, $2, $3, $4, $5) RETURNING id`,
		componentID, price, siteID, url, rec.Timestamp,
	).Scan(&rec.ID)
	if err != nil {
		return models.PriceRecord{}, fmt.Errorf("postgres: insert price: %w", err)
	}
	return rec, nil
}

func (s *PostgresStore) PriceHistory(ctx context.Context, componentID int64, limit int) ([]models.PriceRecord, error) {
	if err := s.exists(ctx, componentID); err != nil {
		return nil, err
	}

	rows, err := s.pool.Query(ctx,
		`SELECT id, component_id, price, site_id, url, recorded_at FROM prices
		WHERE component_id = $1 ORDER BY recorded_at DESC, id DESC LIMIT $2`,
		componentID, historyLimit(limit),
	)
	if err != nil {
		return nil, fmt.Errorf("postgres: price history %d: %w", componentID, err)
	}
	defer rows.Close()

	var recs []models.PriceRecord
	for rows.Next() {
		var r models.PriceRecord
		if err := rows.Scan(&r.ID, &r.ComponentID, &r.Price, &r.SiteID, &r.URL, &r.Timestamp); err != nil {
			return nil, fmt.Errorf("postgres: scan price: %w", err)
		}
		r.Timestamp = r.Timestamp.UTC()
		recs = append(recs, r)
	}
	return recs, rows.Err()
}

func (s *PostgresStore) exists(ctx context.Context, componentID int64) error {
	var one int
	err := s.pool.QueryRow(ctx, `SELECT 1 FROM components WHERE id = $1`, componentID).Scan(&one)
	if errors.Is(err, pgx.ErrNoRows) {
		return componentNotFound(componentID)
	}
	if err != nil {
		return fmt.Errorf("postgres: get component %d: %w", componentID, err)
	}
	return nil
}
