package store

import (
	"context"
	"database/sql"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/law-makers/pricewatch/internal/engine"
	"github.com/law-makers/pricewatch/pkg/models"
)

func newTestSQLiteStore(t *testing.T) *SQLiteStore {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "test.db")
	st, err := NewSQLite(dbPath)
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() }) //nolint:errcheck
	require.NoError(t, st.Migrate(context.Background()))
	return st
}

// backends runs fn against every store that needs no external service
func backends(t *testing.T, fn func(t *testing.T, st Store)) {
	t.Run("memory", func(t *testing.T) { fn(t, NewMemory()) })
	t.Run("sqlite", func(t *testing.T) { fn(t, newTestSQLiteStore(t)) })
}

var rtx4070 = models.CatalogItem{Name: "GeForce RTX 4070", Manufacturer: "NVIDIA", Category: "GPU"}

func TestStore_AddAndListComponents(t *testing.T) {
	backends(t, func(t *testing.T, st Store) {
		ctx := context.Background()

		gpu, err := st.AddComponent(ctx, rtx4070)
		require.NoError(t, err)
		assert.NotZero(t, gpu.ID)
		assert.Equal(t, "GPU", gpu.Category)

		cpu, err := st.AddComponent(ctx, models.CatalogItem{Name: "Ryzen 7 7800X3D", Manufacturer: "AMD", Category: "CPU"})
		require.NoError(t, err)

		items, err := st.ListComponents(ctx)
		require.NoError(t, err)
		require.Len(t, items, 2)
		assert.Equal(t, gpu, items[0])
		assert.Equal(t, cpu, items[1])
	})
}

func TestStore_AddComponent_Validation(t *testing.T) {
	backends(t, func(t *testing.T, st Store) {
		ctx := context.Background()

		_, err := st.AddComponent(ctx, models.CatalogItem{Name: "  ", Category: "GPU"})
		assert.Error(t, err)
		_, err = st.AddComponent(ctx, models.CatalogItem{Name: "RTX 4070"})
		assert.Error(t, err)
	})
}

func TestStore_AddCategory_Idempotent(t *testing.T) {
	backends(t, func(t *testing.T, st Store) {
		ctx := context.Background()

		first, err := st.AddCategory(ctx, "GPU", "Graphics cards")
		require.NoError(t, err)
		second, err := st.AddCategory(ctx, "GPU", "")
		require.NoError(t, err)
		assert.Equal(t, first.ID, second.ID)
		assert.Equal(t, "Graphics cards", second.Description)

		_, err = st.AddCategory(ctx, "", "")
		assert.Error(t, err)
	})
}

func TestStore_Items(t *testing.T) {
	backends(t, func(t *testing.T, st Store) {
		ctx := context.Background()
		gpu, err := st.AddComponent(ctx, rtx4070)
		require.NoError(t, err)

		all, err := st.Items(ctx, nil)
		require.NoError(t, err)
		assert.Equal(t, []models.CatalogItem{gpu}, all)

		one, err := st.Items(ctx, &gpu.ID)
		require.NoError(t, err)
		assert.Equal(t, []models.CatalogItem{gpu}, one)

		missing := int64(999)
		_, err = st.Items(ctx, &missing)
		assert.ErrorIs(t, err, engine.ErrComponentNotFound)
		assert.ErrorIs(t, err, ErrNotFound)
	})
}

func TestStore_RecordPrice_RoundTrip(t *testing.T) {
	backends(t, func(t *testing.T, st Store) {
		ctx := context.Background()
		gpu, err := st.AddComponent(ctx, rtx4070)
		require.NoError(t, err)

		ts := time.Date(2024, 3, 1, 10, 30, 0, 0, time.UTC)
		rec, err := st.RecordPrice(ctx, gpu.ID, 54999.5, "amazon_in", "https://www.amazon.in/dp/B0C", ts)
		require.NoError(t, err)
		assert.NotZero(t, rec.ID)
		assert.True(t, ts.Equal(rec.Timestamp))

		history, err := st.PriceHistory(ctx, gpu.ID, 10)
		require.NoError(t, err)
		require.Len(t, history, 1)
		assert.Equal(t, 54999.5, history[0].Price)
		assert.Equal(t, "amazon_in", history[0].SiteID)
		assert.Equal(t, "https://www.amazon.in/dp/B0C", history[0].URL)
		assert.True(t, ts.Equal(history[0].Timestamp))
	})
}

func TestStore_PriceHistory_NewestFirstAndLimit(t *testing.T) {
	backends(t, func(t *testing.T, st Store) {
		ctx := context.Background()
		gpu, err := st.AddComponent(ctx, rtx4070)
		require.NoError(t, err)

		base := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
		for i, p := range []float64{56000, 55000, 54000} {
			_, err := st.RecordPrice(ctx, gpu.ID, p, "amazon_in", "", base.Add(time.Duration(i)*time.Hour))
			require.NoError(t, err)
		}

		history, err := st.PriceHistory(ctx, gpu.ID, 2)
		require.NoError(t, err)
		require.Len(t, history, 2)
		assert.Equal(t, 54000.0, history[0].Price)
		assert.Equal(t, 55000.0, history[1].Price)

		all, err := st.PriceHistory(ctx, gpu.ID, 0)
		require.NoError(t, err)
		assert.Len(t, all, 3)
	})
}

func TestStore_RecordPrice_Rejects(t *testing.T) {
	backends(t, func(t *testing.T, st Store) {
		ctx := context.Background()
		gpu, err := st.AddComponent(ctx, rtx4070)
		require.NoError(t, err)

		_, err = st.RecordPrice(ctx, gpu.ID, 0, "amazon_in", "", time.Now())
		assert.Error(t, err)

		_, err = st.RecordPrice(ctx, 42, 100, "amazon_in", "", time.Now())
		assert.ErrorIs(t, err, ErrNotFound)

		_, err = st.PriceHistory(ctx, 42, 10)
		assert.ErrorIs(t, err, ErrNotFound)
	})
}

func TestOpen(t *testing.T) {
	ctx := context.Background()

	st, err := Open(ctx, "memory", "")
	require.NoError(t, err)
	assert.IsType(t, &MemoryStore{}, st)
	require.NoError(t, st.Close())

	st, err = Open(ctx, "sqlite", filepath.Join(t.TempDir(), "open.db"))
	require.NoError(t, err)
	_, err = st.AddComponent(ctx, rtx4070)
	require.NoError(t, err, "Open should migrate")
	require.NoError(t, st.Close())

	_, err = Open(ctx, "mongo", "")
	assert.ErrorContains(t, err, "unknown store driver")
}

func TestWithPragmas(t *testing.T) {
	assert.Equal(t,
		"app.db?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)&_pragma=synchronous(NORMAL)&_pragma=foreign_keys(1)",
		withPragmas("app.db"))

	got := withPragmas("file:app.db?mode=rwc&_pragma=busy_timeout(100)")
	assert.Contains(t, got, "mode=rwc&_pragma=busy_timeout(100)&_pragma=journal_mode(WAL)")
	assert.NotContains(t, got, "busy_timeout(5000)")
}

func TestSQLite_PragmasOnEveryConnection(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()

	// Hold two connections at once so the pool has to open a second one
	c1, err := st.db.Conn(ctx)
	require.NoError(t, err)
	defer c1.Close()
	c2, err := st.db.Conn(ctx)
	require.NoError(t, err)
	defer c2.Close()

	for _, c := range []*sql.Conn{c1, c2} {
		var fk, timeout int
		require.NoError(t, c.QueryRowContext(ctx, "PRAGMA foreign_keys").Scan(&fk))
		require.NoError(t, c.QueryRowContext(ctx, "PRAGMA busy_timeout").Scan(&timeout))
		assert.Equal(t, 1, fk)
		assert.Equal(t, 5000, timeout)
	}
}
