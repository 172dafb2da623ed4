package testfixtures

import (
	"log/slog"
	"testing"
	"time"

	"github.com/taisuke/takt/internal/application"
	"github.com/taisuke/takt/internal/realtime"
	"github.com/taisuke/takt/internal/session"
)

// SessionSecret signs tokens issued by factory-built session managers.
const SessionSecret = "test-session-secret-0123456789"

// ServiceFactory assists tests with constructing application services using
// deterministic identifiers and clocks.
type ServiceFactory struct {
	Clock       *Clock
	IDGenerator *IDGenerator
	Location    *time.Location
	Logger      *slog.Logger
}

// ServiceFactoryOption configures a ServiceFactory instance.
type ServiceFactoryOption func(*ServiceFactory)

// NewServiceFactory constructs a ServiceFactory with defaults.
func NewServiceFactory(opts ...ServiceFactoryOption) *ServiceFactory {
	factory := &ServiceFactory{
		Clock:       NewClock(time.Time{}),
		IDGenerator: NewIDGenerator("id"),
		Location:    time.UTC,
	}
	for _, opt := range opts {
		opt(factory)
	}
	if factory.Clock == nil {
		factory.Clock = NewClock(time.Time{})
	}
	if factory.IDGenerator == nil {
		factory.IDGenerator = NewIDGenerator("id")
	}
	if factory.Location == nil {
		factory.Location = time.UTC
	}
	return factory
}

// WithClock overrides the clock used by the factory.
func WithClock(clock *Clock) ServiceFactoryOption {
	return func(factory *ServiceFactory) {
		factory.Clock = clock
	}
}

// WithIDGenerator overrides the identifier generator used by the factory.
func WithIDGenerator(generator *IDGenerator) ServiceFactoryOption {
	return func(factory *ServiceFactory) {
		factory.IDGenerator = generator
	}
}

// WithLocation overrides the zone used for the current-item highlight.
func WithLocation(loc *time.Location) ServiceFactoryOption {
	return func(factory *ServiceFactory) {
		factory.Location = loc
	}
}

// Services bundles every application service over one storage harness.
type Services struct {
	Events    *application.EventService
	Schedule  *application.ScheduleService
	Materials *application.MaterialService
	Views     *application.ViewService
	Sessions  *session.Manager
	Hub       *realtime.Hub
}

// NewServices builds the full service graph over harness. Change
// notifications go to a local hub so tests can subscribe to them.
func (f *ServiceFactory) NewServices(tb testing.TB, harness *SQLiteHarness) Services {
	tb.Helper()

	now := f.Clock.NowFunc()
	ids := f.IDGenerator.NextFunc()

	sessions, err := session.NewManager(SessionSecret, time.Hour, 24*time.Hour, now)
	if err != nil {
		tb.Fatalf("failed to build session manager: %v", err)
	}
	hub := realtime.NewHub(8, now, f.Logger)

	return Services{
		Events:    application.NewEventServiceWithLogger(harness.Events, sessions, hub, nil, ids, now, f.Logger),
		Schedule:  application.NewScheduleServiceWithLogger(harness.Events, harness.Items, harness.Materials, hub, ids, now, f.Logger),
		Materials: application.NewMaterialServiceWithLogger(harness.Events, harness.Materials, hub, ids, now, f.Logger),
		Views:     application.NewViewServiceWithLogger(harness.Events, harness.Items, harness.Materials, f.Location, now, f.Logger),
		Sessions:  sessions,
		Hub:       hub,
	}
}
