package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/taisuke/takt/internal/persistence"
)

// MaterialRepository implements persistence.MaterialRepository using SQLite
type MaterialRepository struct {
	pool   *ConnectionPool
	helper *QueryHelper
	mapper *ErrorMapper
	retry  *RetryHelper
}

// NewMaterialRepository creates a new SQLite material repository
func NewMaterialRepository(pool *ConnectionPool) *MaterialRepository {
	return &MaterialRepository{
		pool:   pool,
		helper: NewQueryHelper(pool),
		mapper: NewErrorMapper(),
		retry:  NewRetryHelper(DefaultRetryConfig()),
	}
}

// CreateMaterial inserts a material row.
func (r *MaterialRepository) CreateMaterial(ctx context.Context, material persistence.EventMaterial) error {
	if material.ID == "" || material.EventID == "" {
		return persistence.ErrConstraintViolation
	}
	if material.CreatedAt.IsZero() {
		material.CreatedAt = time.Now().UTC()
	}

	return r.retry.WithRetry(ctx, func() error {
		_, err := r.helper.Exec(ctx, `
			INSERT INTO event_materials (id, event_id, title, url, sort_order, created_at)
			VALUES (?, ?, ?, ?, ?, ?)
		`,
			material.ID,
			material.EventID,
			material.Title,
			material.URL,
			material.SortOrder,
			material.CreatedAt.UTC().Format(time.RFC3339),
		)
		return err
	})
}

// UpdateMaterial overwrites title, url and sort order.
func (r *MaterialRepository) UpdateMaterial(ctx context.Context, material persistence.EventMaterial) error {
	if material.ID == "" {
		return persistence.ErrNotFound
	}
	return r.retry.WithRetry(ctx, func() error {
		result, err := r.helper.Exec(ctx,
			`UPDATE event_materials SET title = ?, url = ?, sort_order = ? WHERE id = ?`,
			material.Title,
			material.URL,
			material.SortOrder,
			material.ID,
		)
		if err != nil {
			return err
		}
		return checkAffected(result)
	})
}

// GetMaterial retrieves a material by ID.
func (r *MaterialRepository) GetMaterial(ctx context.Context, id string) (persistence.EventMaterial, error) {
	if id == "" {
		return persistence.EventMaterial{}, persistence.ErrNotFound
	}
	row := r.helper.QueryRow(ctx,
		`SELECT id, event_id, title, url, sort_order, created_at FROM event_materials WHERE id = ?`, id)
	material, err := scanMaterial(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return persistence.EventMaterial{}, persistence.ErrNotFound
		}
		return persistence.EventMaterial{}, r.mapper.MapError(err)
	}
	return material, nil
}

// ListMaterialsByEvent returns the event's materials by ascending sort order.
// Ties fall back to creation time then id.
func (r *MaterialRepository) ListMaterialsByEvent(ctx context.Context, eventID string) ([]persistence.EventMaterial, error) {
	rows, err := r.helper.Query(ctx, `
		SELECT id, event_id, title, url, sort_order, created_at
		FROM event_materials
		WHERE event_id = ?
		ORDER BY sort_order ASC, created_at ASC, id ASC
	`, eventID)
	if err != nil {
		return nil, r.mapper.MapError(err)
	}
	defer rows.Close()

	var materials []persistence.EventMaterial
	for rows.Next() {
		material, err := scanMaterial(rows)
		if err != nil {
			return nil, r.mapper.MapError(err)
		}
		materials = append(materials, material)
	}
	if err := rows.Err(); err != nil {
		return nil, r.mapper.MapError(err)
	}
	return materials, nil
}

// CountMaterialsByEvent returns how many materials the event currently has.
func (r *MaterialRepository) CountMaterialsByEvent(ctx context.Context, eventID string) (int, error) {
	var count int
	if err := r.helper.QueryRow(ctx, `SELECT COUNT(*) FROM event_materials WHERE event_id = ?`, eventID).Scan(&count); err != nil {
		return 0, r.mapper.MapError(err)
	}
	return count, nil
}

// DeleteMaterial removes a material. Items referencing it keep the dangling id.
func (r *MaterialRepository) DeleteMaterial(ctx context.Context, id string) error {
	if id == "" {
		return persistence.ErrNotFound
	}
	return r.retry.WithRetry(ctx, func() error {
		result, err := r.helper.Exec(ctx, "DELETE FROM event_materials WHERE id = ?", id)
		if err != nil {
			return err
		}
		return checkAffected(result)
	})
}

func scanMaterial(row rowScanner) (persistence.EventMaterial, error) {
	var (
		material     persistence.EventMaterial
		createdAtStr string
	)
	if err := row.Scan(
		&material.ID,
		&material.EventID,
		&material.Title,
		&material.URL,
		&material.SortOrder,
		&createdAtStr,
	); err != nil {
		return persistence.EventMaterial{}, err
	}
	var err error
	if material.CreatedAt, err = time.Parse(time.RFC3339, createdAtStr); err != nil {
		return persistence.EventMaterial{}, fmt.Errorf("failed to parse created_at: %w", err)
	}
	return material, nil
}
