package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"github.com/law-makers/pricewatch/pkg/models"
)

// SQLiteStore implements Store using modernc.org/sqlite
type SQLiteStore struct {
	db *sql.DB
}

// sqlitePragmas run on every pooled connection
var sqlitePragmas = []string{
	"journal_mode(WAL)",
	"busy_timeout(5000)",
	"synchronous(NORMAL)",
	"foreign_keys(1)",
}

// NewSQLite opens a SQLite database at dsn and configures WAL mode
func NewSQLite(dsn string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", withPragmas(dsn))
	if err != nil {
		return nil, fmt.Errorf("sqlite: open: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("sqlite: ping: %w", err)
	}
	return &SQLiteStore{db: db}, nil
}

// withPragmas adds the connection pragmas to dsn as _pragma parameters.
// Pragmas already named in dsn are left as given.
func withPragmas(dsn string) string {
	var params []string
	for _, p := range sqlitePragmas {
		name := p[:strings.IndexByte(p, '(')]
		if strings.Contains(dsn, "_pragma="+name) {
			continue
		}
		params = append(params, "_pragma="+p)
	}
	if len(params) == 0 {
		return dsn
	}
	sep := "?"
	if strings.Contains(dsn, "?") {
		sep = "&"
	}
	return dsn + sep + strings.Join(params, "&")
}

const sqliteMigration = `
CREATE TABLE IF NOT EXISTS categories (
	id          INTEGER PRIMARY KEY AUTOINCREMENT,
	name        TEXT NOT NULL UNIQUE,
	description TEXT NOT NULL DEFAULT ''
);

CREATE TABLE IF NOT EXISTS components (
	id           INTEGER PRIMARY KEY AUTOINCREMENT,
	name         TEXT NOT NULL,
	manufacturer TEXT NOT NULL DEFAULT '',
	category_id  INTEGER NOT NULL REFERENCES categories(id),
	created_at   DATETIME NOT NULL DEFAULT (datetime('now'))
);

CREATE TABLE IF NOT EXISTS prices (
	id           INTEGER PRIMARY KEY AUTOINCREMENT,
	component_id INTEGER NOT NULL REFERENCES components(id),
	price        REAL NOT NULL,
	site_id      TEXT NOT NULL DEFAULT '',
	url          TEXT NOT NULL DEFAULT '',
	recorded_at  DATETIME NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_components_category_id ON components(category_id);
CREATE INDEX IF NOT EXISTS idx_prices_component_recorded ON prices(component_id, recorded_at);
`

const sqliteSelectItems = `
SELECT c.id, c.name, c.manufacturer, cat.name
FROM components c JOIN categories cat ON cat.id = c.category_id`

func (s *SQLiteStore) Migrate(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, sqliteMigration); err != nil {
		return fmt.Errorf("sqlite: migrate: %w", err)
	}
	return nil
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) Items(ctx context.Context, id *int64) ([]models.CatalogItem, error) {
	if id == nil {
		return s.ListComponents(ctx)
	}

	var item models.CatalogItem
	err := s.db.QueryRowContext(ctx, sqliteSelectItems+` WHERE c.id = ?`, *id).
		Scan(&item.ID, &item.Name, &item.Manufacturer, &item.Category)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, componentNotFound(*id)
	}
	if err != nil {
		return nil, fmt.Errorf("sqlite: get component %d: %w", *id, err)
	}
	return []models.CatalogItem{item}, nil
}

func (s *SQLiteStore) ListComponents(ctx context.Context) ([]models.CatalogItem, error) {
	rows, err := s.db.QueryContext(ctx, sqliteSelectItems+` ORDER BY c.id`)
	if err != nil {
		return nil, fmt.Errorf("sqlite: list components: %w", err)
	}
	defer rows.Close()

	var items []models.CatalogItem
	for rows.Next() {
		var item models.CatalogItem
		if err := rows.Scan(&item.ID, &item.Name, &item.Manufacturer, &item.Category); err != nil {
			return nil, fmt.Errorf("sqlite: scan component: %w", err)
		}
		items = append(items, item)
	}
	return items, rows.Err()
}

func (s *SQLiteStore) AddCategory(ctx context.Context, name, description string) (models.Category, error) {
	if err := validateCategory(name); err != nil {
		return models.Category{}, err
	}

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO categories (name, description) VALUES (?, ?) ON CONFLICT(name) DO NOTHING`,
		name, description,
	)
	if err != nil {
		return models.Category{}, fmt.Errorf("sqlite: insert category: %w", err)
	}

	var c models.Category
	err = s.db.QueryRowContext(ctx,
		`SELECT id, name, description FROM categories WHERE name = ?`, name,
	).Scan(&c.ID, &c.Name, &c.Description)
	if err != nil {
		return models.Category{}, fmt.Errorf("sqlite: get category %s: %w", name, err)
	}
	return c, nil
}

func (s *SQLiteStore) AddComponent(ctx context.Context, item models.CatalogItem) (models.CatalogItem, error) {
	if err := validateItem(item); err != nil {
		return models.CatalogItem{}, err
	}

	cat, err := s.AddCategory(ctx, item.Category, "")
	if err != nil {
		return models.CatalogItem{}, err
	}

	res, err := s.db.ExecContext(ctx,
		`INSERT INTO components (name, manufacturer, category_id, created_at) VALUES (?, ?, ?, ?)`,
		item.Name, item.Manufacturer, cat.ID, time.Now().UTC(),
	)
	if err != nil {
		return models.CatalogItem{}, fmt.Errorf("sqlite: insert component: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return models.CatalogItem{}, fmt.Errorf("sqlite: component id: %w", err)
	}

	item.ID = id
	item.Category = cat.Name
	return item, nil
}

func (s *SQLiteStore) RecordPrice(ctx context.Context, componentID int64, price float64, siteID, url string, ts time.Time) (models.PriceRecord, error) {
	if err := validatePrice(price); err != nil {
		return models.PriceRecord{}, err
	}
	if err := s.exists(ctx, componentID); err != nil {
		return models.PriceRecord{}, err
	}

	ts = utc(ts)
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO prices (component_id, price, site_id, url, recorded_at) VALUES (?, ?, ?, ?, ?)`,
		componentID, price, siteID, url, ts,
	)
	if err != nil {
		return models.PriceRecord{}, fmt.Errorf("sqlite: insert price: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return models.PriceRecord{}, fmt.Errorf("sqlite: price id: %w", err)
	}

	return models.PriceRecord{
		ID:          id,
		ComponentID: componentID,
		Price:       price,
		SiteID:      siteID,
		URL:         url,
		Timestamp:   ts,
	}, nil
}

func (s *SQLiteStore) PriceHistory(ctx context.Context, componentID int64, limit int) ([]models.PriceRecord, error) {
	if err := s.exists(ctx, componentID); err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT id, component_id, price, site_id, url, recorded_at FROM prices
		WHERE component_id = ? ORDER BY recorded_at DESC, id DESC LIMIT ?`,
		componentID, historyLimit(limit),
	)
	if err != nil {
		return nil, fmt.Errorf("sqlite: price history %d: %w", componentID, err)
	}
	defer rows.Close()

	var recs []models.PriceRecord
	for rows.Next() {
		var r models.PriceRecord
		if err := rows.Scan(&r.ID, &r.ComponentID, &r.Price, &r.SiteID, &r.URL, &r.Timestamp); err != nil {
			return nil, fmt.Errorf("sqlite: scan price: %w", err)
		}
		r.Timestamp = r.Timestamp.UTC()
		recs = append(recs, r)
	}
	return recs, rows.Err()
}

func (s *SQLiteStore) exists(ctx context.Context, componentID int64) error {
	var one int
	err := s.db.QueryRowContext(ctx, `SELECT 1 FROM components WHERE id = ?`, componentID).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return componentNotFound(componentID)
	}
	if err != nil {
		return fmt.Errorf("sqlite: get component %d: %w", componentID, err)
	}
	return nil
}
