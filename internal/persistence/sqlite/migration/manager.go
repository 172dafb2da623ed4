package migration

import (
	"context"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"time"
)

// Manager runs pending migrations from a file system.
type Manager struct {
	executor *Executor
	fsys     fs.FS
	logger   *slog.Logger
	now      func() time.Time
}

// NewManager creates a Manager. A nil logger discards output.
func NewManager(executor *Executor, fsys fs.FS, logger *slog.Logger) *Manager {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Manager{
		executor: executor,
		fsys:     fsys,
		logger:   logger.With("component", "migration"),
		now:      time.Now,
	}
}

// RunMigrations applies every pending migration in version order and returns
// the versions it applied. It stops at the first failure.
func (m *Manager) RunMigrations(ctx context.Context) ([]string, error) {
	started := time.Now()
	if err := m.executor.InitializeVersionTable(ctx); err != nil {
		return nil, err
	}

	status, err := m.Status(ctx)
	if err != nil {
		return nil, err
	}
	m.logger.InfoContext(ctx, "migration status",
		"current_version", status.CurrentVersion,
		"pending", len(status.Pending),
	)

	var applied []string
	for _, migration := range status.Pending {
		if err := m.executor.ExecuteMigration(ctx, migration, m.now()); err != nil {
			m.logger.ErrorContext(ctx, "migration failed",
				"version", migration.Version,
				"file", migration.FilePath,
				"error", err,
			)
			return applied, err
		}
		m.logger.InfoContext(ctx, "migration applied",
			"version", migration.Version,
			"description", migration.Description,
		)
		applied = append(applied, migration.Version)
	}

	if len(applied) > 0 {
		m.logger.InfoContext(ctx, "migrations complete",
			"count", len(applied),
			"duration_ms", time.Since(started).Milliseconds(),
		)
	}
	return applied, nil
}

// Status compares the available files with schema_migrations. An applied
// migration whose file content changed is reported as ErrChecksumMismatch.
func (m *Manager) Status(ctx context.Context) (Status, error) {
	available, err := ScanMigrations(m.fsys)
	if err != nil {
		return Status{}, err
	}
	applied, err := m.executor.AppliedMigrations(ctx)
	if err != nil {
		return Status{}, err
	}

	appliedByVersion := make(map[string]AppliedMigration, len(applied))
	for _, record := range applied {
		appliedByVersion[record.Version] = record
	}

	status := Status{Applied: applied}
	if len(applied) > 0 {
		status.CurrentVersion = applied[len(applied)-1].Version
	}
	for _, migration := range available {
		record, ok := appliedByVersion[migration.Version]
		if !ok {
			status.Pending = append(status.Pending, migration)
			continue
		}
		if record.Checksum != "" && record.Checksum != migration.Checksum {
			return Status{}, newMigrationError(migration.Version, migration.FilePath, "verify checksum",
				fmt.Errorf("%w: recorded %s", ErrChecksumMismatch, record.Checksum))
		}
	}
	return status, nil
}
