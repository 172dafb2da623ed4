package application

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/taisuke/takt/internal/session"
)

func newEventServiceForTest(repo *eventRepoStub, notifier *recordingNotifier, tokens *tokenIssuerStub) *EventService {
	return NewEventService(repo, tokens, notifier, nil, sequentialIDs("event"), fixedNow())
}

func TestEventService_CreateEvent(t *testing.T) {
	t.Parallel()

	t.Run("trims and stores the event", func(t *testing.T) {
		repo := newEventRepoStub()
		svc := newEventServiceForTest(repo, &recordingNotifier{}, &tokenIssuerStub{})

		event, err := svc.CreateEvent(context.Background(), CreateEventParams{
			Slug:     " test-1 ",
			Title:    " 定期演奏会 ",
			Date:     "2026-10-15",
			Venue:    "市民ホール",
			Password: " secret ",
		})
		if err != nil {
			t.Fatalf("CreateEvent: %v", err)
		}
		if event.ID != "event-1" || event.Slug != "test-1" || event.Title != "定期演奏会" {
			t.Fatalf("unexpected event %+v", event)
		}
		stored, _ := repo.GetEventBySlug(context.Background(), "test-1")
		if stored.EditPassword != "secret" {
			t.Fatalf("expected plaintext password by default, got %q", stored.EditPassword)
		}
	})

	t.Run("rejects malformed input", func(t *testing.T) {
		svc := newEventServiceForTest(newEventRepoStub(), &recordingNotifier{}, &tokenIssuerStub{})

		_, err := svc.CreateEvent(context.Background(), CreateEventParams{Slug: "bad slug!", Date: "15/10/2026"})
		var vErr *ValidationError
		if !errors.As(err, &vErr) {
			t.Fatalf("expected validation error, got %v", err)
		}
		for _, field := range []string{"slug", "title", "date", "password"} {
			if _, ok := vErr.FieldErrors[field]; !ok {
				t.Errorf("expected %s error, got %v", field, vErr.FieldErrors)
			}
		}
	})

	t.Run("duplicate slug maps to ErrSlugTaken", func(t *testing.T) {
		svc := newEventServiceForTest(newEventRepoStub(testEvent), &recordingNotifier{}, &tokenIssuerStub{})

		_, err := svc.CreateEvent(context.Background(), CreateEventParams{Slug: "test-1", Title: "x", Date: "2026-10-15", Password: "p"})
		if !errors.Is(err, ErrSlugTaken) {
			t.Fatalf("expected ErrSlugTaken, got %v", err)
		}
	})

	t.Run("hashes when a hasher is configured", func(t *testing.T) {
		repo := newEventRepoStub()
		hasher := func(p string) (string, error) { return "hashed:" + p, nil }
		svc := NewEventService(repo, &tokenIssuerStub{}, nil, hasher, sequentialIDs("event"), fixedNow())

		if _, err := svc.CreateEvent(context.Background(), CreateEventParams{Slug: "h", Title: "x", Date: "2026-10-15", Password: "p"}); err != nil {
			t.Fatalf("CreateEvent: %v", err)
		}
		stored, _ := repo.GetEventBySlug(context.Background(), "h")
		if stored.EditPassword != "hashed:p" {
			t.Fatalf("expected hashed password, got %q", stored.EditPassword)
		}
	})
}

func TestEventService_UpdateEventInfo(t *testing.T) {
	t.Parallel()

	repo := newEventRepoStub(testEvent)
	notifier := &recordingNotifier{}
	svc := newEventServiceForTest(repo, notifier, &tokenIssuerStub{})

	updated, err := svc.UpdateEventInfo(context.Background(), UpdateEventParams{
		Slug: "test-1", Title: "秋の定期演奏会", Date: "2026-11-01", Venue: "大ホール",
	})
	if err != nil {
		t.Fatalf("UpdateEventInfo: %v", err)
	}
	if updated.Title != "秋の定期演奏会" || updated.EditPassword != "secret" {
		t.Fatalf("unexpected update %+v", updated)
	}

	if _, err := svc.UpdateEventInfo(context.Background(), UpdateEventParams{
		Slug: "test-1", Title: "秋の定期演奏会", Date: "2026-11-01", Password: "new",
	}); err != nil {
		t.Fatalf("UpdateEventInfo with password: %v", err)
	}
	stored, _ := repo.GetEventBySlug(context.Background(), "test-1")
	if stored.EditPassword != "new" {
		t.Fatalf("expected password to change, got %q", stored.EditPassword)
	}
	if notifier.count() != 2 {
		t.Fatalf("expected 2 notifications, got %d", notifier.count())
	}

	if _, err := svc.UpdateEventInfo(context.Background(), UpdateEventParams{Slug: "missing", Title: "x", Date: "2026-11-01"}); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestEventService_Unlock(t *testing.T) {
	t.Parallel()

	tokens := &tokenIssuerStub{}
	svc := newEventServiceForTest(newEventRepoStub(testEvent), &recordingNotifier{}, tokens)

	t.Run("correct password issues token", func(t *testing.T) {
		result, err := svc.Unlock(context.Background(), UnlockParams{Slug: "test-1", Password: " secret ", Scope: session.ScopeEdit, Remember: true})
		if err != nil {
			t.Fatalf("Unlock: %v", err)
		}
		if result.Token.Value != "token-test-1" || !result.Token.Persistent {
			t.Fatalf("unexpected token %+v", result.Token)
		}
	})

	t.Run("wrong password is rejected", func(t *testing.T) {
		if _, err := svc.Unlock(context.Background(), UnlockParams{Slug: "test-1", Password: "nope", Scope: session.ScopeEdit}); !errors.Is(err, ErrInvalidPassword) {
			t.Fatalf("expected ErrInvalidPassword, got %v", err)
		}
		if _, err := svc.Unlock(context.Background(), UnlockParams{Slug: "test-1", Password: "", Scope: session.ScopeEdit}); !errors.Is(err, ErrInvalidPassword) {
			t.Fatalf("expected ErrInvalidPassword for empty password, got %v", err)
		}
	})

	t.Run("unknown scope is a validation error", func(t *testing.T) {
		_, err := svc.Unlock(context.Background(), UnlockParams{Slug: "test-1", Password: "secret", Scope: "admin"})
		var vErr *ValidationError
		if !errors.As(err, &vErr) {
			t.Fatalf("expected validation error, got %v", err)
		}
	})

	t.Run("hashed password verifies", func(t *testing.T) {
		hash, err := CreatePasswordHash("secret", Argon2idParams{Memory: 1024, Iterations: 1, Parallelism: 1, SaltLength: 8, KeyLength: 16})
		if err != nil {
			t.Fatalf("CreatePasswordHash: %v", err)
		}
		hashed := testEvent
		hashed.EditPassword = hash
		svc := newEventServiceForTest(newEventRepoStub(hashed), &recordingNotifier{}, &tokenIssuerStub{})
		if _, err := svc.Unlock(context.Background(), UnlockParams{Slug: "test-1", Password: "secret", Scope: session.ScopeBroadcast}); err != nil {
			t.Fatalf("Unlock: %v", err)
		}
	})
}

func TestEventService_Announcement(t *testing.T) {
	t.Parallel()

	repo := newEventRepoStub(testEvent)
	notifier := &recordingNotifier{}
	svc := newEventServiceForTest(repo, notifier, &tokenIssuerStub{})

	event, err := svc.SetAnnouncement(context.Background(), "test-1", " 開場が15分遅れます ")
	if err != nil {
		t.Fatalf("SetAnnouncement: %v", err)
	}
	if event.Announcement == nil || *event.Announcement != "開場が15分遅れます" || event.AnnouncementUpdatedAt == nil {
		t.Fatalf("unexpected announcement state %+v", event)
	}

	if _, err := svc.SetAnnouncement(context.Background(), "test-1", "  "); err == nil {
		t.Fatalf("expected validation error for blank announcement")
	}

	if _, err := svc.ClearAnnouncement(context.Background(), "test-1"); err != nil {
		t.Fatalf("ClearAnnouncement: %v", err)
	}
	stored, _ := repo.GetEventBySlug(context.Background(), "test-1")
	if stored.Announcement != nil || stored.AnnouncementUpdatedAt != nil {
		t.Fatalf("expected announcement to be cleared, got %+v", stored)
	}
	if got := strings.Join(notifier.topics, ","); got != "test-1:announcement,test-1:announcement" {
		t.Fatalf("unexpected notifications %s", got)
	}
}

func TestEventService_ReplaceContacts(t *testing.T) {
	t.Parallel()

	repo := newEventRepoStub(testEvent)
	svc := newEventServiceForTest(repo, &recordingNotifier{}, &tokenIssuerStub{})

	event, err := svc.ReplaceContacts(context.Background(), "test-1", []Contact{
		{Role: "舞台監督", Name: "田中", Phone: "090-0000-0000"},
		{},
		{Role: " ", Name: " ", Phone: " "},
	})
	if err != nil {
		t.Fatalf("ReplaceContacts: %v", err)
	}
	if len(event.Contacts) != 1 || event.Contacts[0].Name != "田中" {
		t.Fatalf("unexpected contacts %+v", event.Contacts)
	}

	_, err = svc.ReplaceContacts(context.Background(), "test-1", []Contact{{Name: "佐藤"}})
	var vErr *ValidationError
	if !errors.As(err, &vErr) {
		t.Fatalf("expected validation error, got %v", err)
	}
	if _, ok := vErr.FieldErrors["contacts.0.role"]; !ok {
		t.Fatalf("expected role error, got %v", vErr.FieldErrors)
	}
}
