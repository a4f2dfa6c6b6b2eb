// Package store persists the component catalog and the price time series.
package store

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/law-makers/pricewatch/internal/engine"
	"github.com/law-makers/pricewatch/pkg/models"
)

// ErrNotFound is returned when a referenced component does not exist. It is
// the engine's ErrComponentNotFound so catalog lookups match either.
var ErrNotFound = engine.ErrComponentNotFound

// DefaultHistoryLimit caps PriceHistory when no limit is given
const DefaultHistoryLimit = 100

// Store is the catalog the engine crawls for and the sink it records prices
// into. Implementations are safe for concurrent use.
type Store interface {
	engine.Catalog
	engine.Sink

	// PriceHistory returns a component's prices, newest first
	PriceHistory(ctx context.Context, componentID int64, limit int) ([]models.PriceRecord, error)

	// AddCategory creates a category, or returns the existing one with that name
	AddCategory(ctx context.Context, name, description string) (models.Category, error)
	// AddComponent creates a component, creating its category by name if needed
	AddComponent(ctx context.Context, item models.CatalogItem) (models.CatalogItem, error)
	ListComponents(ctx context.Context) ([]models.CatalogItem, error)

	Migrate(ctx context.Context) error
	Close() error
}

// Open creates a store for driver ("memory", "sqlite" or "postgres") and
// runs its migration
func Open(ctx context.Context, driver, dsn string) (Store, error) {
	var (
		s   Store
		err error
	)
	switch strings.ToLower(driver) {
	case "", "memory":
		s = NewMemory()
	case "sqlite":
		s, err = NewSQLite(dsn)
	case "postgres":
		s, err = NewPostgres(ctx, dsn)
	default:
		return nil, fmt.Errorf("unknown store driver %q", driver)
	}
	if err != nil {
		return nil, err
	}

	if err := s.Migrate(ctx); err != nil {
		s.Close()
		return nil, err
	}
	return s, nil
}

func componentNotFound(id int64) error {
	return fmt.Errorf("component %d: %w", id, ErrNotFound)
}

func validateItem(item models.CatalogItem) error {
	if strings.TrimSpace(item.Name) == "" {
		return errors.New("component name is required")
	}
	if strings.TrimSpace(item.Category) == "" {
		return errors.New("component category is required")
	}
	return nil
}

func validateCategory(name string) error {
	if strings.TrimSpace(name) == "" {
		return errors.New("category name is required")
	}
	return nil
}

func validatePrice(price float64) error {
	if price <= 0 {
		return fmt.Errorf("price must be positive, got %v", price)
	}
	return nil
}

func historyLimit(limit int) int {
	if limit <= 0 {
		return DefaultHistoryLimit
	}
	return limit
}

func utc(ts time.Time) time.Time {
	if ts.IsZero() {
		return time.Now().UTC()
	}
	return ts.UTC()
}
