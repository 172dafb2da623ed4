package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/taisuke/takt/internal/persistence"
)

// ScheduleItemRepository implements persistence.ScheduleItemRepository using SQLite
type ScheduleItemRepository struct {
	pool   *ConnectionPool
	helper *QueryHelper
	mapper *ErrorMapper
	retry  *RetryHelper
}

// NewScheduleItemRepository creates a new SQLite schedule item repository
func NewScheduleItemRepository(pool *ConnectionPool) *ScheduleItemRepository {
	return &ScheduleItemRepository{
		pool:   pool,
		helper: NewQueryHelper(pool),
		mapper: NewErrorMapper(),
		retry:  NewRetryHelper(DefaultRetryConfig()),
	}
}

const itemColumns = `id, event_id, start_time, end_time, title, location, note, target,
	assignee, emoji, sort_order, material_ids, created_at, updated_at`

// CreateItem inserts a schedule item. An unknown event yields
// persistence.ErrForeignKeyViolation.
func (r *ScheduleItemRepository) CreateItem(ctx context.Context, item persistence.ScheduleItem) error {
	if item.ID == "" || item.EventID == "" {
		return persistence.ErrConstraintViolation
	}
	stampCreated(&item.CreatedAt, &item.UpdatedAt)

	query := `
		INSERT INTO schedule_items (` + itemColumns + `)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`
	return r.retry.WithRetry(ctx, func() error {
		_, err := r.helper.Exec(ctx, query,
			item.ID,
			item.EventID,
			item.StartTime,
			nullString(item.EndTime),
			item.Title,
			nullString(item.Location),
			nullString(item.Note),
			item.Target,
			nullString(item.Assignee),
			item.Emoji,
			item.SortOrder,
			nullString(item.MaterialIDs),
			item.CreatedAt.UTC().Format(time.RFC3339),
			item.UpdatedAt.UTC().Format(time.RFC3339),
		)
		return err
	})
}

// UpdateItem overwrites every editable column. The owning event never changes.
func (r *ScheduleItemRepository) UpdateItem(ctx context.Context, item persistence.ScheduleItem) error {
	if item.ID == "" {
		return persistence.ErrNotFound
	}
	if item.UpdatedAt.IsZero() {
		item.UpdatedAt = time.Now().UTC()
	}

	query := `
		UPDATE schedule_items
		SET start_time = ?, end_time = ?, title = ?, location = ?, note = ?, target = ?,
			assignee = ?, emoji = ?, sort_order = ?, material_ids = ?, updated_at = ?
		WHERE id = ?
	`
	return r.retry.WithRetry(ctx, func() error {
		result, err := r.helper.Exec(ctx, query,
			item.StartTime,
			nullString(item.EndTime),
			item.Title,
			nullString(item.Location),
			nullString(item.Note),
			item.Target,
			nullString(item.Assignee),
			item.Emoji,
			item.SortOrder,
			nullString(item.MaterialIDs),
			item.UpdatedAt.UTC().Format(time.RFC3339),
			item.ID,
		)
		if err != nil {
			return err
		}
		return checkAffected(result)
	})
}

// GetItem retrieves a schedule item by ID.
func (r *ScheduleItemRepository) GetItem(ctx context.Context, id string) (persistence.ScheduleItem, error) {
	if id == "" {
		return persistence.ScheduleItem{}, persistence.ErrNotFound
	}
	row := r.helper.QueryRow(ctx, `SELECT `+itemColumns+` FROM schedule_items WHERE id = ?`, id)
	item, err := scanItem(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return persistence.ScheduleItem{}, persistence.ErrNotFound
		}
		return persistence.ScheduleItem{}, r.mapper.MapError(err)
	}
	return item, nil
}

// ListItemsByEvent returns the event's items ordered by start time, sort
// order and id.
func (r *ScheduleItemRepository) ListItemsByEvent(ctx context.Context, eventID string) ([]persistence.ScheduleItem, error) {
	rows, err := r.helper.Query(ctx, `
		SELECT `+itemColumns+`
		FROM schedule_items
		WHERE event_id = ?
		ORDER BY start_time ASC, sort_order ASC, id ASC
	`, eventID)
	if err != nil {
		return nil, r.mapper.MapError(err)
	}
	defer rows.Close()

	var items []persistence.ScheduleItem
	for rows.Next() {
		item, err := scanItem(rows)
		if err != nil {
			return nil, r.mapper.MapError(err)
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, r.mapper.MapError(err)
	}
	return items, nil
}

// DeleteItem removes a schedule item by ID.
func (r *ScheduleItemRepository) DeleteItem(ctx context.Context, id string) error {
	if id == "" {
		return persistence.ErrNotFound
	}
	return r.retry.WithRetry(ctx, func() error {
		result, err := r.helper.Exec(ctx, "DELETE FROM schedule_items WHERE id = ?", id)
		if err != nil {
			return err
		}
		return checkAffected(result)
	})
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanItem(row rowScanner) (persistence.ScheduleItem, error) {
	var (
		item                       persistence.ScheduleItem
		endTime, location, note    sql.NullString
		assignee, materialIDs      sql.NullString
		createdAtStr, updatedAtStr string
	)
	if err := row.Scan(
		&item.ID,
		&item.EventID,
		&item.StartTime,
		&endTime,
		&item.Title,
		&location,
		&note,
		&item.Target,
		&assignee,
		&item.Emoji,
		&item.SortOrder,
		&materialIDs,
		&createdAtStr,
		&updatedAtStr,
	); err != nil {
		return persistence.ScheduleItem{}, err
	}

	item.EndTime = stringPtr(endTime)
	item.Location = stringPtr(location)
	item.Note = stringPtr(note)
	item.Assignee = stringPtr(assignee)
	item.MaterialIDs = stringPtr(materialIDs)

	var err error
	if item.CreatedAt, err = time.Parse(time.RFC3339, createdAtStr); err != nil {
		return persistence.ScheduleItem{}, fmt.Errorf("failed to parse created_at: %w", err)
	}
	if item.UpdatedAt, err = time.Parse(time.RFC3339, updatedAtStr); err != nil {
		return persistence.ScheduleItem{}, fmt.Errorf("failed to parse updated_at: %w", err)
	}
	return item, nil
}
