package sqlite

import (
	"context"
	"embed"
	"fmt"
	"io/fs"
	"log/slog"

	"github.com/taisuke/takt/internal/persistence/sqlite/migration"
)

//go:embed schema/*.sql
var schemaFiles embed.FS

// Store bundles the SQLite repositories over one connection pool.
type Store struct {
	pool *ConnectionPool

	Events    *EventRepository
	Items     *ScheduleItemRepository
	Materials *MaterialRepository
}

// Open connects to the database described by config and applies the embedded
// schema migrations.
func Open(ctx context.Context, config migration.SQLiteConfig, logger *slog.Logger) (*Store, error) {
	pool, err := NewConnectionPool(config)
	if err != nil {
		return nil, err
	}

	schema, err := fs.Sub(schemaFiles, "schema")
	if err != nil {
		pool.Close()
		return nil, fmt.Errorf("load embedded schema: %w", err)
	}
	manager := migration.NewManager(migration.NewExecutor(pool.DB()), schema, logger)
	if _, err := manager.RunMigrations(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("apply schema migrations: %w", err)
	}

	return &Store{
		pool:      pool,
		Events:    NewEventRepository(pool),
		Items:     NewScheduleItemRepository(pool),
		Materials: NewMaterialRepository(pool),
	}, nil
}

// Ping checks that the database is reachable.
func (s *Store) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

// Close releases the connection pool.
func (s *Store) Close() error {
	return s.pool.Close()
}
