package application

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"strings"
	"time"
)

// MaterialRepository captures the persistence interactions needed for materials.
type MaterialRepository interface {
	CreateMaterial(ctx context.Context, material Material) error
	UpdateMaterial(ctx context.Context, material Material) error
	GetMaterial(ctx context.Context, id string) (Material, error)
	ListMaterialsByEvent(ctx context.Context, eventID string) ([]Material, error)
	CountMaterialsByEvent(ctx context.Context, eventID string) (int, error)
	DeleteMaterial(ctx context.Context, id string) error
}

// MaterialService manages the links attached to an event.
type MaterialService struct {
	events      EventLookup
	materials   MaterialRepository
	notifier    ChangeNotifier
	idGenerator func() string
	now         func() time.Time
	logger      *slog.Logger
}

// NewMaterialService constructs a MaterialService with the provided dependencies.
func NewMaterialService(events EventLookup, materials MaterialRepository, notifier ChangeNotifier, idGenerator func() string, now func() time.Time) *MaterialService {
	return NewMaterialServiceWithLogger(events, materials, notifier, idGenerator, now, nil)
}

// NewMaterialServiceWithLogger constructs a MaterialService with a specified logger.
func NewMaterialServiceWithLogger(events EventLookup, materials MaterialRepository, notifier ChangeNotifier, idGenerator func() string, now func() time.Time, logger *slog.Logger) *MaterialService {
	if idGenerator == nil {
		idGenerator = func() string { return "" }
	}
	if now == nil {
		now = time.Now
	}
	return &MaterialService{
		events:      events,
		materials:   materials,
		notifier:    defaultNotifier(notifier),
		idGenerator: idGenerator,
		now:         now,
		logger:      defaultLogger(logger),
	}
}

func (s *MaterialService) loggerWith(ctx context.Context, operation string, attrs ...any) *slog.Logger {
	return serviceLogger(ctx, s.logger, "MaterialService", operation, attrs...)
}

// CreateMaterial appends a material after the existing ones.
func (s *MaterialService) CreateMaterial(ctx context.Context, params CreateMaterialParams) (material Material, err error) {
	if s == nil {
		err = fmt.Errorf("MaterialService is nil")
		return
	}
	logger := s.loggerWith(ctx, "CreateMaterial", "slug", params.Slug)
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "failed to create material", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.InfoContext(ctx, "material created", "material_id", material.ID)
	}()

	input, vErr := validateMaterialInput(params.Input)
	if vErr.HasErrors() {
		err = vErr
		return
	}

	var event Event
	event, err = s.lookupEvent(ctx, params.Slug)
	if err != nil {
		return
	}

	var count int
	count, err = s.materials.CountMaterialsByEvent(ctx, event.ID)
	if err != nil {
		err = mapScheduleRepoError(err)
		return
	}

	material = Material{
		ID:        s.idGenerator(),
		EventID:   event.ID,
		Title:     input.Title,
		URL:       input.URL,
		SortOrder: count + 1,
		CreatedAt: s.now(),
	}
	if err = s.materials.CreateMaterial(ctx, material); err != nil {
		err = mapScheduleRepoError(err)
		material = Material{}
		return
	}
	s.notifier.NotifyChange(ctx, event.Slug, TopicMaterials)
	return
}

// UpdateMaterial overwrites a material's title and URL, and its position when given.
func (s *MaterialService) UpdateMaterial(ctx context.Context, params UpdateMaterialParams) (material Material, err error) {
	logger := s.loggerWith(ctx, "UpdateMaterial", "slug", params.Slug, "material_id", params.MaterialID)
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "failed to update material", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.InfoContext(ctx, "material updated")
	}()

	input, vErr := validateMaterialInput(params.Input)
	if vErr.HasErrors() {
		err = vErr
		return
	}

	var event Event
	event, err = s.lookupEvent(ctx, params.Slug)
	if err != nil {
		return
	}
	material, err = s.ownedMaterial(ctx, event.ID, params.MaterialID)
	if err != nil {
		return
	}

	material.Title = input.Title
	material.URL = input.URL
	if params.SortOrder != nil {
		material.SortOrder = *params.SortOrder
	}
	if err = s.materials.UpdateMaterial(ctx, material); err != nil {
		err = mapScheduleRepoError(err)
		material = Material{}
		return
	}
	s.notifier.NotifyChange(ctx, event.Slug, TopicMaterials)
	return
}

// DeleteMaterial removes a material. Items still referencing it keep the
// dangling id, which is dropped when the view is built.
func (s *MaterialService) DeleteMaterial(ctx context.Context, slug, materialID string) (err error) {
	logger := s.loggerWith(ctx, "DeleteMaterial", "slug", slug, "material_id", materialID)
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "failed to delete material", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.InfoContext(ctx, "material deleted")
	}()

	var event Event
	event, err = s.lookupEvent(ctx, slug)
	if err != nil {
		return
	}
	if _, err = s.ownedMaterial(ctx, event.ID, materialID); err != nil {
		return
	}
	if err = s.materials.DeleteMaterial(ctx, materialID); err != nil {
		err = mapScheduleRepoError(err)
		return
	}
	s.notifier.NotifyChange(ctx, event.Slug, TopicMaterials)
	return
}

// ListMaterials returns the event's materials in display order.
func (s *MaterialService) ListMaterials(ctx context.Context, slug string) ([]Material, error) {
	event, err := s.lookupEvent(ctx, slug)
	if err != nil {
		return nil, err
	}
	materials, err := s.materials.ListMaterialsByEvent(ctx, event.ID)
	if err != nil {
		return nil, mapScheduleRepoError(err)
	}
	return materials, nil
}

func (s *MaterialService) lookupEvent(ctx context.Context, slug string) (Event, error) {
	if s.events == nil || s.materials == nil {
		return Event{}, fmt.Errorf("material repositories not configured")
	}
	event, err := s.events.GetEventBySlug(ctx, strings.TrimSpace(slug))
	if err != nil {
		return Event{}, mapScheduleRepoError(err)
	}
	return event, nil
}

func (s *MaterialService) ownedMaterial(ctx context.Context, eventID, materialID string) (Material, error) {
	material, err := s.materials.GetMaterial(ctx, strings.TrimSpace(materialID))
	if err != nil {
		return Material{}, mapScheduleRepoError(err)
	}
	if material.EventID != eventID {
		return Material{}, ErrNotFound
	}
	return material, nil
}

func validateMaterialInput(input MaterialInput) (MaterialInput, *ValidationError) {
	vErr := &ValidationError{}
	input.Title = strings.TrimSpace(input.Title)
	input.URL = strings.TrimSpace(input.URL)

	if input.Title == "" {
		vErr.add("title", "資料名を入力してください")
	}
	if input.URL == "" {
		vErr.add("url", "URLを入力してください")
	} else if u, err := url.Parse(input.URL); err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		vErr.add("url", "URLは http:// または https:// で始まる必要があります")
	}
	return input, vErr
}
