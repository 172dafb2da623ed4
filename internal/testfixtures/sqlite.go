package testfixtures

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/taisuke/takt/internal/adapters"
	"github.com/taisuke/takt/internal/application"
	"github.com/taisuke/takt/internal/persistence/sqlite"
	"github.com/taisuke/takt/internal/persistence/sqlite/migration"
)

// SQLiteHarness provides repository access backed by a temporary SQLite storage
// instance for integration-style tests. Repositories are exposed through the
// same adapters the server uses.
type SQLiteHarness struct {
	Store     *sqlite.Store
	Events    *adapters.EventRepository
	Items     *adapters.ItemRepository
	Materials *adapters.MaterialRepository

	cleanup func()
}

// Close releases resources associated with the harness.
func (h *SQLiteHarness) Close() {
	if h != nil && h.cleanup != nil {
		h.cleanup()
		h.cleanup = nil
	}
}

// NewSQLiteHarness constructs a SQLiteHarness using a temporary file that is
// migrated automatically. Callers may optionally invoke Close, but the helper
// will also register a cleanup callback with the provided testing.TB.
func NewSQLiteHarness(tb testing.TB) *SQLiteHarness {
	tb.Helper()

	path := filepath.Join(tb.TempDir(), "takt.db")
	store, err := sqlite.Open(context.Background(), migration.TempFileTestSQLiteConfig(path), nil)
	if err != nil {
		tb.Fatalf("failed to open storage: %v", err)
	}

	harness := &SQLiteHarness{
		Store:     store,
		Events:    adapters.NewEventRepository(store.Events),
		Items:     adapters.NewItemRepository(store.Items),
		Materials: adapters.NewMaterialRepository(store.Materials),
		cleanup: func() {
			_ = store.Close()
		},
	}

	tb.Cleanup(harness.Close)
	return harness
}

// SeedEvent stores an event fixture.
func (h *SQLiteHarness) SeedEvent(tb testing.TB, fixture EventFixture) application.Event {
	tb.Helper()
	event := fixture.Application()
	if err := h.Events.CreateEvent(context.Background(), event); err != nil {
		tb.Fatalf("failed to seed event %s: %v", fixture.Slug, err)
	}
	return event
}

// SeedItems stores item fixtures.
func (h *SQLiteHarness) SeedItems(tb testing.TB, fixtures ...ItemFixture) {
	tb.Helper()
	for _, fixture := range fixtures {
		if err := h.Items.CreateItem(context.Background(), fixture.Application()); err != nil {
			tb.Fatalf("failed to seed item %s: %v", fixture.ID, err)
		}
	}
}

// SeedMaterials stores materials.
func (h *SQLiteHarness) SeedMaterials(tb testing.TB, materials ...application.Material) {
	tb.Helper()
	for _, m := range materials {
		if err := h.Materials.CreateMaterial(context.Background(), m); err != nil {
			tb.Fatalf("failed to seed material %s: %v", m.ID, err)
		}
	}
}
