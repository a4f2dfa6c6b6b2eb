package store

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/law-makers/pricewatch/pkg/models"
)

// MemoryStore keeps everything in process memory. Used for dry runs and tests.
type MemoryStore struct {
	mu         sync.RWMutex
	categories []models.Category
	components []component
	prices     map[int64][]models.PriceRecord
	nextPrice  int64
}

type component struct {
	item       models.CatalogItem
	categoryID int64
}

// NewMemory creates an empty in-memory store
func NewMemory() *MemoryStore {
	return &MemoryStore{prices: make(map[int64][]models.PriceRecord)}
}

// Migrate is a no-op for the memory store
func (s *MemoryStore) Migrate(ctx context.Context) error { return nil }

// Close is a no-op for the memory store
func (s *MemoryStore) Close() error { return nil }

// Items returns one component when id is set, all components otherwise
func (s *MemoryStore) Items(ctx context.Context, id *int64) ([]models.CatalogItem, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if id != nil {
		c, ok := s.find(*id)
		if !ok {
			return nil, componentNotFound(*id)
		}
		return []models.CatalogItem{c.item}, nil
	}
	return s.list(), nil
}

// ListComponents returns all components ordered by ID
func (s *MemoryStore) ListComponents(ctx context.Context) ([]models.CatalogItem, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.list(), nil
}

// AddCategory creates a category or returns the existing one
func (s *MemoryStore) AddCategory(ctx context.Context, name, description string) (models.Category, error) {
	if err := validateCategory(name); err != nil {
		return models.Category{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	return s.category(name, description), nil
}

// AddComponent creates a component in the named category
func (s *MemoryStore) AddComponent(ctx context.Context, item models.CatalogItem) (models.CatalogItem, error) {
	if err := validateItem(item); err != nil {
		return models.CatalogItem{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	cat := s.category(item.Category, "")
	item.ID = int64(len(s.components) + 1)
	item.Category = cat.Name
	s.components = append(s.components, component{item: item, categoryID: cat.ID})
	return item, nil
}

// RecordPrice appends a price observation for a known component
func (s *MemoryStore) RecordPrice(ctx context.Context, componentID int64, price float64, siteID, url string, ts time.Time) (models.PriceRecord, error) {
	if err := validatePrice(price); err != nil {
		return models.PriceRecord{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.find(componentID); !ok {
		return models.PriceRecord{}, componentNotFound(componentID)
	}

	s.nextPrice++
	rec := models.PriceRecord{
		ID:          s.nextPrice,
		ComponentID: componentID,
		Price:       price,
		SiteID:      siteID,
		URL:         url,
		Timestamp:   utc(ts),
	}
	s.prices[componentID] = append(s.prices[componentID], rec)
	return rec, nil
}

// PriceHistory returns up to limit prices, newest first
func (s *MemoryStore) PriceHistory(ctx context.Context, componentID int64, limit int) ([]models.PriceRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if _, ok := s.find(componentID); !ok {
		return nil, componentNotFound(componentID)
	}

	recs := append([]models.PriceRecord(nil), s.prices[componentID]...)
	sort.SliceStable(recs, func(i, j int) bool {
		if recs[i].Timestamp.Equal(recs[j].Timestamp) {
			return recs[i].ID > recs[j].ID
		}
		return recs[i].Timestamp.After(recs[j].Timestamp)
	})
	if n := historyLimit(limit); len(recs) > n {
		recs = recs[:n]
	}
	return recs, nil
}

func (s *MemoryStore) find(id int64) (component, bool) {
	if id < 1 || id > int64(len(s.components)) {
		return component{}, false
	}
	return s.components[id-1], true
}

func (s *MemoryStore) list() []models.CatalogItem {
	items := make([]models.CatalogItem, len(s.components))
	for i, c := range s.components {
		items[i] = c.item
	}
	return items
}

// category must be called with the write lock held
func (s *MemoryStore) category(name, description string) models.Category {
	for _, c := range s.categories {
		if c.Name == name {
			return c
		}
	}
	c := models.Category{ID: int64(len(s.categories) + 1), Name: name, Description: description}
	s.categories = append(s.categories, c)
	return c
}
