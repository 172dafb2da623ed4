package application

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/taisuke/takt/internal/persistence"
	"github.com/taisuke/takt/internal/session"
)

var slugPattern = regexp.MustCompile(`^[a-zA-Z0-9-_]+$`)

const dateLayout = "2006-01-02"

// EventRepository captures the persistence interactions needed by the event service.
type EventRepository interface {
	CreateEvent(ctx context.Context, event Event) error
	UpdateEvent(ctx context.Context, event Event) error
	GetEventBySlug(ctx context.Context, slug string) (Event, error)
	UpdateAnnouncement(ctx context.Context, id string, text *string, updatedAt *time.Time) error
	ReplaceContacts(ctx context.Context, id string, contacts []Contact, updatedAt time.Time) error
}

// TokenIssuer signs access tokens for unlocked events.
type TokenIssuer interface {
	Issue(slug string, scope session.Scope, remember bool) (session.Token, error)
}

// EventService manages events, their announcement and emergency contacts, and
// the password gate in front of the editor.
type EventService struct {
	events      EventRepository
	tokens      TokenIssuer
	notifier    ChangeNotifier
	hashPass    PasswordHasher
	idGenerator func() string
	now         func() time.Time
	logger      *slog.Logger
}

// NewEventService constructs an EventService with the provided dependencies.
func NewEventService(events EventRepository, tokens TokenIssuer, notifier ChangeNotifier, hasher PasswordHasher, idGenerator func() string, now func() time.Time) *EventService {
	return NewEventServiceWithLogger(events, tokens, notifier, hasher, idGenerator, now, nil)
}

// NewEventServiceWithLogger constructs an EventService with a specified logger.
func NewEventServiceWithLogger(events EventRepository, tokens TokenIssuer, notifier ChangeNotifier, hasher PasswordHasher, idGenerator func() string, now func() time.Time, logger *slog.Logger) *EventService {
	if hasher == nil {
		hasher = PlaintextPasswords
	}
	if idGenerator == nil {
		idGenerator = func() string { return "" }
	}
	if now == nil {
		now = time.Now
	}
	return &EventService{
		events:      events,
		tokens:      tokens,
		notifier:    defaultNotifier(notifier),
		hashPass:    hasher,
		idGenerator: idGenerator,
		now:         now,
		logger:      defaultLogger(logger),
	}
}

func (s *EventService) loggerWith(ctx context.Context, operation string, attrs ...any) *slog.Logger {
	return serviceLogger(ctx, s.logger, "EventService", operation, attrs...)
}

// CreateEvent validates the creation form and stores a new event.
func (s *EventService) CreateEvent(ctx context.Context, params CreateEventParams) (event Event, err error) {
	if s == nil {
		err = fmt.Errorf("EventService is nil")
		return
	}
	if s.events == nil {
		err = fmt.Errorf("event repository not configured")
		return
	}

	params.Slug = strings.TrimSpace(params.Slug)
	logger := s.loggerWith(ctx, "CreateEvent", "slug", params.Slug)
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "failed to create event", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.InfoContext(ctx, "event created", "event_id", event.ID)
	}()

	input := UpdateEventParams(params)
	if vErr := validateEventInput(input, true); vErr.HasErrors() {
		err = vErr
		return
	}

	stored, hashErr := s.hashPass(strings.TrimSpace(params.Password))
	if hashErr != nil {
		err = fmt.Errorf("hash password: %w", hashErr)
		return
	}

	now := s.now()
	event = Event{
		ID:           s.idGenerator(),
		Slug:         params.Slug,
		Title:        strings.TrimSpace(params.Title),
		Date:         strings.TrimSpace(params.Date),
		Venue:        strings.TrimSpace(params.Venue),
		EditPassword: stored,
		Contacts:     []Contact{},
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	if err = s.events.CreateEvent(ctx, event); err != nil {
		err = mapEventRepoError(err)
		event = Event{}
		return
	}
	return
}

// GetEvent returns the event identified by slug.
func (s *EventService) GetEvent(ctx context.Context, slug string) (Event, error) {
	if s == nil || s.events == nil {
		return Event{}, fmt.Errorf("EventService is not configured")
	}
	event, err := s.events.GetEventBySlug(ctx, strings.TrimSpace(slug))
	if err != nil {
		return Event{}, mapEventRepoError(err)
	}
	return event, nil
}

// UpdateEventInfo overwrites title, date and venue, and the password when a new
// one is supplied.
func (s *EventService) UpdateEventInfo(ctx context.Context, params UpdateEventParams) (event Event, err error) {
	logger := s.loggerWith(ctx, "UpdateEventInfo", "slug", params.Slug)
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "failed to update event", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.InfoContext(ctx, "event updated", "event_id", event.ID)
	}()

	if vErr := validateEventInput(params, false); vErr.HasErrors() {
		err = vErr
		return
	}

	event, err = s.GetEvent(ctx, params.Slug)
	if err != nil {
		return
	}

	event.Title = strings.TrimSpace(params.Title)
	event.Date = strings.TrimSpace(params.Date)
	event.Venue = strings.TrimSpace(params.Venue)
	if password := strings.TrimSpace(params.Password); password != "" {
		stored, hashErr := s.hashPass(password)
		if hashErr != nil {
			err = fmt.Errorf("hash password: %w", hashErr)
			return
		}
		event.EditPassword = stored
	}
	event.UpdatedAt = s.now()

	if err = s.events.UpdateEvent(ctx, event); err != nil {
		err = mapEventRepoError(err)
		return
	}
	s.notifier.NotifyChange(ctx, event.Slug, TopicEvent)
	return
}

// Unlock checks the edit password and issues an access token for the requested scope.
func (s *EventService) Unlock(ctx context.Context, params UnlockParams) (result UnlockResult, err error) {
	logger := s.loggerWith(ctx, "Unlock", "slug", params.Slug, "scope", string(params.Scope))
	defer func() {
		if err != nil {
			logger.WarnContext(ctx, "unlock failed", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.InfoContext(ctx, "event unlocked", "remember", params.Remember)
	}()

	if s.tokens == nil {
		err = fmt.Errorf("token issuer not configured")
		return
	}
	if _, ok := session.ParseScope(string(params.Scope)); !ok {
		err = validationFailure("scope", "不明な権限です")
		return
	}

	password := strings.TrimSpace(params.Password)
	if password == "" {
		err = ErrInvalidPassword
		return
	}

	var event Event
	event, err = s.GetEvent(ctx, params.Slug)
	if err != nil {
		return
	}

	if checkErr := CheckPassword(event.EditPassword, password); checkErr != nil {
		if !errors.Is(checkErr, ErrInvalidPassword) {
			logger.ErrorContext(ctx, "stored password is unreadable", "error", checkErr)
		}
		err = ErrInvalidPassword
		return
	}

	var token session.Token
	token, err = s.tokens.Issue(event.Slug, params.Scope, params.Remember)
	if err != nil {
		return
	}
	result = UnlockResult{Event: event, Token: token}
	return
}

// SetAnnouncement replaces the event's announcement and stamps it with the current time.
func (s *EventService) SetAnnouncement(ctx context.Context, slug, text string) (event Event, err error) {
	logger := s.loggerWith(ctx, "SetAnnouncement", "slug", slug)
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "failed to set announcement", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.InfoContext(ctx, "announcement set", "length", len(*event.Announcement))
	}()

	text = strings.TrimSpace(text)
	if text == "" {
		err = validationFailure("announcement", "お知らせを入力してください")
		return
	}

	event, err = s.GetEvent(ctx, slug)
	if err != nil {
		return
	}

	now := s.now()
	if err = s.events.UpdateAnnouncement(ctx, event.ID, &text, &now); err != nil {
		err = mapEventRepoError(err)
		return
	}
	event.Announcement = &text
	event.AnnouncementUpdatedAt = &now
	s.notifier.NotifyChange(ctx, event.Slug, TopicAnnouncement)
	return
}

// ClearAnnouncement removes the announcement and its timestamp.
func (s *EventService) ClearAnnouncement(ctx context.Context, slug string) (event Event, err error) {
	logger := s.loggerWith(ctx, "ClearAnnouncement", "slug", slug)
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "failed to clear announcement", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.InfoContext(ctx, "announcement cleared")
	}()

	event, err = s.GetEvent(ctx, slug)
	if err != nil {
		return
	}
	if err = s.events.UpdateAnnouncement(ctx, event.ID, nil, nil); err != nil {
		err = mapEventRepoError(err)
		return
	}
	event.Announcement = nil
	event.AnnouncementUpdatedAt = nil
	s.notifier.NotifyChange(ctx, event.Slug, TopicAnnouncement)
	return
}

// ReplaceContacts overwrites the emergency contact list. Rows left entirely
// blank are dropped.
func (s *EventService) ReplaceContacts(ctx context.Context, slug string, contacts []Contact) (event Event, err error) {
	logger := s.loggerWith(ctx, "ReplaceContacts", "slug", slug)
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "failed to replace contacts", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.InfoContext(ctx, "contacts replaced", "count", len(event.Contacts))
	}()

	cleaned, vErr := cleanContacts(contacts)
	if vErr.HasErrors() {
		err = vErr
		return
	}

	event, err = s.GetEvent(ctx, slug)
	if err != nil {
		return
	}

	now := s.now()
	if err = s.events.ReplaceContacts(ctx, event.ID, cleaned, now); err != nil {
		err = mapEventRepoError(err)
		return
	}
	event.Contacts = cleaned
	event.UpdatedAt = now
	s.notifier.NotifyChange(ctx, event.Slug, TopicContacts)
	return
}

func validateEventInput(input UpdateEventParams, creating bool) *ValidationError {
	vErr := &ValidationError{}

	slug := strings.TrimSpace(input.Slug)
	if slug == "" {
		vErr.add("slug", "IDを入力してください")
	} else if !slugPattern.MatchString(slug) {
		vErr.add("slug", "IDには英数字・ハイフン・アンダースコアのみ使用できます")
	}
	if strings.TrimSpace(input.Title) == "" {
		vErr.add("title", "イベント名を入力してください")
	}
	if date := strings.TrimSpace(input.Date); date == "" {
		vErr.add("date", "日付を入力してください")
	} else if _, err := time.Parse(dateLayout, date); err != nil {
		vErr.add("date", "日付はYYYY-MM-DD形式で入力してください")
	}
	if creating && strings.TrimSpace(input.Password) == "" {
		vErr.add("password", "編集パスワードを入力してください")
	}

	return vErr
}

func cleanContacts(contacts []Contact) ([]Contact, *ValidationError) {
	vErr := &ValidationError{}
	cleaned := make([]Contact, 0, len(contacts))
	for i, c := range contacts {
		c = Contact{
			Role:  strings.TrimSpace(c.Role),
			Name:  strings.TrimSpace(c.Name),
			Phone: strings.TrimSpace(c.Phone),
		}
		if c.Role == "" && c.Name == "" && c.Phone == "" {
			continue
		}
		if c.Role == "" {
			vErr.add("contacts."+strconv.Itoa(i)+".role", "役割を入力してください")
			continue
		}
		cleaned = append(cleaned, c)
	}
	return cleaned, vErr
}

func mapEventRepoError(err error) error {
	if err == nil {
		return nil
	}
	if isNotFoundError(err) {
		return ErrNotFound
	}
	if errors.Is(err, persistence.ErrDuplicate) {
		return ErrSlugTaken
	}
	if errors.Is(err, persistence.ErrConstraintViolation) {
		return validationFailure("event", "入力内容が不正です")
	}
	return err
}

func isNotFoundError(err error) bool {
	return errors.Is(err, ErrNotFound) || errors.Is(err, persistence.ErrNotFound)
}
