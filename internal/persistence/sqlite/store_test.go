package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/taisuke/takt/internal/persistence"
	"github.com/taisuke/takt/internal/persistence/sqlite/migration"
)

var referenceTime = time.Date(2026, time.March, 14, 9, 0, 0, 0, time.UTC)

func setupStore(t *testing.T) *Store {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "takt.db")
	store, err := Open(context.Background(), migration.TempFileTestSQLiteConfig(dbPath), nil)
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	t.Cleanup(func() { store.Close() })
	return store
}

func seedEvent(t *testing.T, store *Store, id, slug string) persistence.Event {
	t.Helper()
	event := persistence.Event{
		ID:           id,
		Slug:         slug,
		Title:        "定期演奏会",
		Date:         "2026-03-14",
		Venue:        "市民ホール",
		EditPassword: "secret",
		CreatedAt:    referenceTime,
		UpdatedAt:    referenceTime,
	}
	if err := store.Events.CreateEvent(context.Background(), event); err != nil {
		t.Fatalf("CreateEvent failed: %v", err)
	}
	return event
}

func strPtr(s string) *string { return &s }

func TestOpenIsIdempotent(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "takt.db")
	config := migration.TempFileTestSQLiteConfig(dbPath)

	first, err := Open(context.Background(), config, nil)
	if err != nil {
		t.Fatalf("first Open failed: %v", err)
	}
	seedEvent(t, first, "event-1", "reopen")
	first.Close()

	second, err := Open(context.Background(), config, nil)
	if err != nil {
		t.Fatalf("second Open failed: %v", err)
	}
	defer second.Close()
	if err := second.Ping(context.Background()); err != nil {
		t.Fatalf("Ping failed: %v", err)
	}
	if _, err := second.Events.GetEventBySlug(context.Background(), "reopen"); err != nil {
		t.Fatalf("expected data to survive reopen: %v", err)
	}
}

func TestEventRepository(t *testing.T) {
	ctx := context.Background()

	t.Run("creates and reads events by id and slug", func(t *testing.T) {
		store := setupStore(t)
		event := seedEvent(t, store, "event-1", "spring-2026")

		bySlug, err := store.Events.GetEventBySlug(ctx, "spring-2026")
		if err != nil {
			t.Fatalf("GetEventBySlug failed: %v", err)
		}
		if bySlug.ID != event.ID || bySlug.Venue != "市民ホール" || bySlug.Announcement != nil {
			t.Fatalf("unexpected event %#v", bySlug)
		}
		if !bySlug.CreatedAt.Equal(referenceTime) {
			t.Fatalf("expected created_at %v, got %v", referenceTime, bySlug.CreatedAt)
		}
		if _, err := store.Events.GetEvent(ctx, "event-1"); err != nil {
			t.Fatalf("GetEvent failed: %v", err)
		}
		if _, err := store.Events.GetEventBySlug(ctx, "missing"); !errors.Is(err, persistence.ErrNotFound) {
			t.Fatalf("expected ErrNotFound, got %v", err)
		}
	})

	t.Run("rejects duplicate slugs", func(t *testing.T) {
		store := setupStore(t)
		seedEvent(t, store, "event-1", "test-1")
		err := store.Events.CreateEvent(ctx, persistence.Event{
			ID: "event-2", Slug: "test-1", Title: "別イベント", Date: "2026-04-01", EditPassword: "x",
		})
		if !errors.Is(err, persistence.ErrDuplicate) {
			t.Fatalf("expected ErrDuplicate, got %v", err)
		}
	})

	t.Run("updates info, announcement and contacts independently", func(t *testing.T) {
		store := setupStore(t)
		event := seedEvent(t, store, "event-1", "update-me")

		event.Title = "春の定期演奏会"
		event.EditPassword = "new-secret"
		event.UpdatedAt = referenceTime.Add(time.Hour)
		if err := store.Events.UpdateEvent(ctx, event); err != nil {
			t.Fatalf("UpdateEvent failed: %v", err)
		}

		at := referenceTime.Add(2 * time.Hour)
		if err := store.Events.UpdateAnnouncement(ctx, event.ID, strPtr("開場が15分遅れます"), &at); err != nil {
			t.Fatalf("UpdateAnnouncement failed: %v", err)
		}

		contacts := []persistence.EmergencyContact{
			{Role: "舞台監督", Name: "田中", Phone: "090-0000-0000"},
			{Role: "会場", Name: "市民ホール", Phone: "03-0000-0000"},
		}
		if err := store.Events.ReplaceContacts(ctx, event.ID, contacts, at); err != nil {
			t.Fatalf("ReplaceContacts failed: %v", err)
		}

		fetched, err := store.Events.GetEvent(ctx, event.ID)
		if err != nil {
			t.Fatalf("GetEvent failed: %v", err)
		}
		if fetched.Title != "春の定期演奏会" || fetched.EditPassword != "new-secret" {
			t.Fatalf("unexpected info %#v", fetched)
		}
		if fetched.Announcement == nil || *fetched.Announcement != "開場が15分遅れます" {
			t.Fatalf("unexpected announcement %v", fetched.Announcement)
		}
		if fetched.AnnouncementUpdatedAt == nil || !fetched.AnnouncementUpdatedAt.Equal(at) {
			t.Fatalf("unexpected announcement time %v", fetched.AnnouncementUpdatedAt)
		}
		if len(fetched.EmergencyContacts) != 2 || fetched.EmergencyContacts[0].Role != "舞台監督" {
			t.Fatalf("unexpected contacts %#v", fetched.EmergencyContacts)
		}

		if err := store.Events.UpdateAnnouncement(ctx, event.ID, nil, nil); err != nil {
			t.Fatalf("clear announcement failed: %v", err)
		}
		cleared, _ := store.Events.GetEvent(ctx, event.ID)
		if cleared.Announcement != nil || cleared.AnnouncementUpdatedAt != nil {
			t.Fatalf("expected cleared announcement, got %#v", cleared)
		}
	})

	t.Run("updates of unknown events report not found", func(t *testing.T) {
		store := setupStore(t)
		if err := store.Events.UpdateAnnouncement(ctx, "nope", nil, nil); !errors.Is(err, persistence.ErrNotFound) {
			t.Fatalf("expected ErrNotFound, got %v", err)
		}
		if err := store.Events.UpdateEvent(ctx, persistence.Event{ID: "nope", Title: "x"}); !errors.Is(err, persistence.ErrNotFound) {
			t.Fatalf("expected ErrNotFound, got %v", err)
		}
	})
}

func TestScheduleItemRepository(t *testing.T) {
	ctx := context.Background()

	t.Run("lists items in start and sort order", func(t *testing.T) {
		store := setupStore(t)
		seedEvent(t, store, "event-1", "order")

		items := []persistence.ScheduleItem{
			{ID: "c", EventID: "event-1", StartTime: "10:00:00", Title: "本番", Target: "全員", Emoji: "🎤", SortOrder: 10},
			{ID: "a", EventID: "event-1", StartTime: "09:00:00", Title: "集合", Target: "全員", Emoji: "📍"},
			{ID: "b", EventID: "event-1", StartTime: "10:00:00", Title: "リハーサル", Target: "金管,打楽器", Emoji: "🎻", SortOrder: -10,
				EndTime: strPtr("10:45:00"), Assignee: strPtr("田中"), MaterialIDs: strPtr("m1,m2")},
		}
		for _, item := range items {
			if err := store.Items.CreateItem(ctx, item); err != nil {
				t.Fatalf("CreateItem(%s) failed: %v", item.ID, err)
			}
		}

		listed, err := store.Items.ListItemsByEvent(ctx, "event-1")
		if err != nil {
			t.Fatalf("ListItemsByEvent failed: %v", err)
		}
		order := []string{listed[0].ID, listed[1].ID, listed[2].ID}
		if order[0] != "a" || order[1] != "b" || order[2] != "c" {
			t.Fatalf("unexpected order %v", order)
		}
		if listed[1].EndTime == nil || *listed[1].EndTime != "10:45:00" || *listed[1].MaterialIDs != "m1,m2" {
			t.Fatalf("unexpected nullable fields %#v", listed[1])
		}
		if listed[0].Location != nil || listed[0].Assignee != nil {
			t.Fatalf("expected null columns to stay nil, got %#v", listed[0])
		}
	})

	t.Run("updates and deletes items", func(t *testing.T) {
		store := setupStore(t)
		seedEvent(t, store, "event-1", "crud")
		item := persistence.ScheduleItem{ID: "i1", EventID: "event-1", StartTime: "13:00:00", Title: "昼食", Target: "全員", Emoji: "🍱"}
		if err := store.Items.CreateItem(ctx, item); err != nil {
			t.Fatalf("CreateItem failed: %v", err)
		}

		item.Title = "昼食休憩"
		item.Location = strPtr("控室")
		if err := store.Items.UpdateItem(ctx, item); err != nil {
			t.Fatalf("UpdateItem failed: %v", err)
		}
		fetched, err := store.Items.GetItem(ctx, "i1")
		if err != nil {
			t.Fatalf("GetItem failed: %v", err)
		}
		if fetched.Title != "昼食休憩" || fetched.Location == nil || *fetched.Location != "控室" {
			t.Fatalf("unexpected item %#v", fetched)
		}

		if err := store.Items.DeleteItem(ctx, "i1"); err != nil {
			t.Fatalf("DeleteItem failed: %v", err)
		}
		if _, err := store.Items.GetItem(ctx, "i1"); !errors.Is(err, persistence.ErrNotFound) {
			t.Fatalf("expected ErrNotFound, got %v", err)
		}
		if err := store.Items.DeleteItem(ctx, "i1"); !errors.Is(err, persistence.ErrNotFound) {
			t.Fatalf("expected ErrNotFound on second delete, got %v", err)
		}
	})

	t.Run("rejects items for unknown events", func(t *testing.T) {
		store := setupStore(t)
		err := store.Items.CreateItem(ctx, persistence.ScheduleItem{ID: "x", EventID: "ghost", StartTime: "09:00:00", Title: "x", Target: "全員", Emoji: "📌"})
		if !errors.Is(err, persistence.ErrForeignKeyViolation) {
			t.Fatalf("expected ErrForeignKeyViolation, got %v", err)
		}
	})

	t.Run("rejects empty titles", func(t *testing.T) {
		store := setupStore(t)
		seedEvent(t, store, "event-1", "empty-title")
		err := store.Items.CreateItem(ctx, persistence.ScheduleItem{ID: "x", EventID: "event-1", StartTime: "09:00:00", Target: "全員", Emoji: "📌"})
		if !errors.Is(err, persistence.ErrConstraintViolation) {
			t.Fatalf("expected ErrConstraintViolation, got %v", err)
		}
	})
}

func TestMaterialRepository(t *testing.T) {
	ctx := context.Background()
	store := setupStore(t)
	seedEvent(t, store, "event-1", "materials")

	materials := []persistence.EventMaterial{
		{ID: "m2", EventID: "event-1", Title: "地図", URL: "https://example.com/map.png", SortOrder: 2, CreatedAt: referenceTime.Add(time.Minute)},
		{ID: "m1", EventID: "event-1", Title: "楽譜", URL: "https://example.com/score.pdf", SortOrder: 1, CreatedAt: referenceTime},
		{ID: "m3", EventID: "event-1", Title: "動画", URL: "https://youtu.be/abc", SortOrder: 2, CreatedAt: referenceTime.Add(2 * time.Minute)},
	}
	for _, m := range materials {
		if err := store.Materials.CreateMaterial(ctx, m); err != nil {
			t.Fatalf("CreateMaterial(%s) failed: %v", m.ID, err)
		}
	}

	count, err := store.Materials.CountMaterialsByEvent(ctx, "event-1")
	if err != nil || count != 3 {
		t.Fatalf("expected 3 materials, got %d (%v)", count, err)
	}

	listed, err := store.Materials.ListMaterialsByEvent(ctx, "event-1")
	if err != nil {
		t.Fatalf("ListMaterialsByEvent failed: %v", err)
	}
	if listed[0].ID != "m1" || listed[1].ID != "m2" || listed[2].ID != "m3" {
		t.Fatalf("unexpected order %v, %v, %v", listed[0].ID, listed[1].ID, listed[2].ID)
	}

	updated := listed[0]
	updated.Title = "楽譜 (改訂版)"
	if err := store.Materials.UpdateMaterial(ctx, updated); err != nil {
		t.Fatalf("UpdateMaterial failed: %v", err)
	}
	fetched, err := store.Materials.GetMaterial(ctx, "m1")
	if err != nil || fetched.Title != "楽譜 (改訂版)" {
		t.Fatalf("unexpected material %#v (%v)", fetched, err)
	}

	if err := store.Materials.DeleteMaterial(ctx, "m2"); err != nil {
		t.Fatalf("DeleteMaterial failed: %v", err)
	}
	count, _ = store.Materials.CountMaterialsByEvent(ctx, "event-1")
	if count != 2 {
		t.Fatalf("expected 2 materials after delete, got %d", count)
	}
}

func TestConnectionPoolWithTransaction(t *testing.T) {
	ctx := context.Background()
	store := setupStore(t)
	seedEvent(t, store, "event-1", "tx")

	boom := errors.New("boom")
	err := store.pool.WithTransaction(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `UPDATE events SET title = 'changed' WHERE id = 'event-1'`); err != nil {
			return err
		}
		return boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("expected boom, got %v", err)
	}
	event, _ := store.Events.GetEvent(ctx, "event-1")
	if event.Title == "changed" {
		t.Fatalf("expected rollback")
	}
}

func TestErrorMapper(t *testing.T) {
	mapper := NewErrorMapper()
	cases := []struct {
		err  error
		want error
	}{
		{sql.ErrNoRows, persistence.ErrNotFound},
		{errors.New("constraint failed: UNIQUE constraint failed: events.slug (2067)"), persistence.ErrDuplicate},
		{errors.New("constraint failed: FOREIGN KEY constraint failed (787)"), persistence.ErrForeignKeyViolation},
		{errors.New("constraint failed: CHECK constraint failed: title <> '' (275)"), persistence.ErrConstraintViolation},
	}
	for _, tc := range cases {
		if got := mapper.MapError(tc.err); !errors.Is(got, tc.want) {
			t.Errorf("MapError(%v) = %v, want %v", tc.err, got, tc.want)
		}
	}
	if mapper.MapError(nil) != nil {
		t.Fatalf("expected nil for nil")
	}
}
