package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/taisuke/takt/internal/persistence"
)

// EventRepository implements persistence.EventRepository using SQLite
type EventRepository struct {
	pool   *ConnectionPool
	helper *QueryHelper
	mapper *ErrorMapper
	retry  *RetryHelper
}

// NewEventRepository creates a new SQLite event repository
func NewEventRepository(pool *ConnectionPool) *EventRepository {
	return &EventRepository{
		pool:   pool,
		helper: NewQueryHelper(pool),
		mapper: NewErrorMapper(),
		retry:  NewRetryHelper(DefaultRetryConfig()),
	}
}

const eventColumns = `id, slug, title, date, venue, edit_password, announcement,
	announcement_updated_at, emergency_contacts, created_at, updated_at`

// CreateEvent inserts a new event. A taken slug yields persistence.ErrDuplicate.
func (r *EventRepository) CreateEvent(ctx context.Context, event persistence.Event) error {
	if event.ID == "" || event.Slug == "" {
		return persistence.ErrConstraintViolation
	}
	stampCreated(&event.CreatedAt, &event.UpdatedAt)

	contacts, err := encodeContacts(event.EmergencyContacts)
	if err != nil {
		return err
	}

	query := `
		INSERT INTO events (` + eventColumns + `)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`
	return r.retry.WithRetry(ctx, func() error {
		_, err := r.helper.Exec(ctx, query,
			event.ID,
			event.Slug,
			event.Title,
			event.Date,
			event.Venue,
			event.EditPassword,
			nullString(event.Announcement),
			nullTime(event.AnnouncementUpdatedAt),
			contacts,
			event.CreatedAt.UTC().Format(time.RFC3339),
			event.UpdatedAt.UTC().Format(time.RFC3339),
		)
		return err
	})
}

// UpdateEvent overwrites title, date, venue and password. Slug, announcement
// and contacts have their own update paths.
func (r *EventRepository) UpdateEvent(ctx context.Context, event persistence.Event) error {
	if event.ID == "" {
		return persistence.ErrNotFound
	}
	if event.UpdatedAt.IsZero() {
		event.UpdatedAt = time.Now().UTC()
	}

	query := `
		UPDATE events
		SET title = ?, date = ?, venue = ?, edit_password = ?, updated_at = ?
		WHERE id = ?
	`
	return r.retry.WithRetry(ctx, func() error {
		result, err := r.helper.Exec(ctx, query,
			event.Title,
			event.Date,
			event.Venue,
			event.EditPassword,
			event.UpdatedAt.UTC().Format(time.RFC3339),
			event.ID,
		)
		if err != nil {
			return err
		}
		return checkAffected(result)
	})
}

// GetEvent retrieves an event by ID.
func (r *EventRepository) GetEvent(ctx context.Context, id string) (persistence.Event, error) {
	if id == "" {
		return persistence.Event{}, persistence.ErrNotFound
	}
	row := r.helper.QueryRow(ctx, `SELECT `+eventColumns+` FROM events WHERE id = ?`, id)
	return r.scanEvent(row)
}

// GetEventBySlug retrieves an event by its public slug.
func (r *EventRepository) GetEventBySlug(ctx context.Context, slug string) (persistence.Event, error) {
	if slug == "" {
		return persistence.Event{}, persistence.ErrNotFound
	}
	row := r.helper.QueryRow(ctx, `SELECT `+eventColumns+` FROM events WHERE slug = ?`, slug)
	return r.scanEvent(row)
}

// UpdateAnnouncement sets or, with nil arguments, clears the announcement.
func (r *EventRepository) UpdateAnnouncement(ctx context.Context, id string, text *string, updatedAt *time.Time) error {
	return r.retry.WithRetry(ctx, func() error {
		result, err := r.helper.Exec(ctx,
			`UPDATE events SET announcement = ?, announcement_updated_at = ? WHERE id = ?`,
			nullString(text),
			nullTime(updatedAt),
			id,
		)
		if err != nil {
			return err
		}
		return checkAffected(result)
	})
}

// ReplaceContacts overwrites the whole emergency contact list.
func (r *EventRepository) ReplaceContacts(ctx context.Context, id string, contacts []persistence.EmergencyContact, updatedAt time.Time) error {
	encoded, err := encodeContacts(contacts)
	if err != nil {
		return err
	}
	return r.retry.WithRetry(ctx, func() error {
		result, err := r.helper.Exec(ctx,
			`UPDATE events SET emergency_contacts = ?, updated_at = ? WHERE id = ?`,
			encoded,
			updatedAt.UTC().Format(time.RFC3339),
			id,
		)
		if err != nil {
			return err
		}
		return checkAffected(result)
	})
}

func (r *EventRepository) scanEvent(row *sql.Row) (persistence.Event, error) {
	var (
		event                      persistence.Event
		announcement               sql.NullString
		announcementUpdatedAt      sql.NullString
		contacts                   string
		createdAtStr, updatedAtStr string
	)
	err := row.Scan(
		&event.ID,
		&event.Slug,
		&event.Title,
		&event.Date,
		&event.Venue,
		&event.EditPassword,
		&announcement,
		&announcementUpdatedAt,
		&contacts,
		&createdAtStr,
		&updatedAtStr,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return persistence.Event{}, persistence.ErrNotFound
		}
		return persistence.Event{}, r.mapper.MapError(err)
	}

	event.Announcement = stringPtr(announcement)
	if announcementUpdatedAt.Valid {
		parsed, err := time.Parse(time.RFC3339, announcementUpdatedAt.String)
		if err != nil {
			return persistence.Event{}, fmt.Errorf("failed to parse announcement_updated_at: %w", err)
		}
		event.AnnouncementUpdatedAt = &parsed
	}
	if event.EmergencyContacts, err = decodeContacts(contacts); err != nil {
		return persistence.Event{}, err
	}
	if event.CreatedAt, err = time.Parse(time.RFC3339, createdAtStr); err != nil {
		return persistence.Event{}, fmt.Errorf("failed to parse created_at: %w", err)
	}
	if event.UpdatedAt, err = time.Parse(time.RFC3339, updatedAtStr); err != nil {
		return persistence.Event{}, fmt.Errorf("failed to parse updated_at: %w", err)
	}
	return event, nil
}

func encodeContacts(contacts []persistence.EmergencyContact) (string, error) {
	if contacts == nil {
		contacts = []persistence.EmergencyContact{}
	}
	encoded, err := json.Marshal(contacts)
	if err != nil {
		return "", fmt.Errorf("failed to encode emergency_contacts: %w", err)
	}
	return string(encoded), nil
}

func decodeContacts(raw string) ([]persistence.EmergencyContact, error) {
	if raw == "" {
		return nil, nil
	}
	var contacts []persistence.EmergencyContact
	if err := json.Unmarshal([]byte(raw), &contacts); err != nil {
		return nil, fmt.Errorf("failed to decode emergency_contacts: %w", err)
	}
	if len(contacts) == 0 {
		return nil, nil
	}
	return contacts, nil
}

func nullString(value *string) sql.NullString {
	if value == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *value, Valid: true}
}

func nullTime(value *time.Time) sql.NullString {
	if value == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: value.UTC().Format(time.RFC3339), Valid: true}
}

func stringPtr(value sql.NullString) *string {
	if !value.Valid {
		return nil
	}
	s := value.String
	return &s
}

func stampCreated(createdAt, updatedAt *time.Time) {
	now := time.Now().UTC()
	if createdAt.IsZero() {
		*createdAt = now
	}
	if updatedAt.IsZero() {
		*updatedAt = *createdAt
	}
}
