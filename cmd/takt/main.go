package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"

	"github.com/taisuke/takt/internal/adapters"
	"github.com/taisuke/takt/internal/application"
	"github.com/taisuke/takt/internal/config"
	httptransport "github.com/taisuke/takt/internal/http"
	"github.com/taisuke/takt/internal/persistence/sqlite"
	"github.com/taisuke/takt/internal/persistence/sqlite/migration"
	"github.com/taisuke/takt/internal/realtime"
	"github.com/taisuke/takt/internal/session"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.LoadWithDotEnv(".env")
	if err != nil {
		slog.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: cfg.LogLevel}))

	if err := run(ctx, cfg, logger); err != nil {
		logger.Error("server encountered error", "error", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg config.Config, logger *slog.Logger) error {
	app, err := newApp(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer app.close()

	app.ticker.Start()
	defer app.ticker.Stop()

	if app.broker != nil {
		go func() {
			if err := app.broker.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
				logger.Error("redis relay stopped", "error", err)
			}
		}()
	}

	server := &http.Server{
		Addr:              cfg.Addr(),
		Handler:           app.handler,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("failed to shutdown server", "error", err)
		}
	}()

	logger.Info("takt listening", "addr", server.Addr, "redis", app.broker != nil)
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// app is the wired service graph behind the HTTP handler.
type app struct {
	handler http.Handler
	store   *sqlite.Store
	hub     *realtime.Hub
	broker  *realtime.RedisBroker
	ticker  *realtime.Ticker
	logger  *slog.Logger
}

func newApp(ctx context.Context, cfg config.Config, logger *slog.Logger) (_ *app, err error) {
	a := &app{logger: logger}
	defer func() {
		if err != nil {
			a.close()
		}
	}()

	store, err := sqlite.Open(ctx, migration.DefaultSQLiteConfig(cfg.SQLiteDSN), logger)
	if err != nil {
		return nil, fmt.Errorf("open storage: %w", err)
	}
	a.store = store

	sessions, err := session.NewManager(cfg.SessionSecret, cfg.SessionTTL, cfg.RememberTTL, nil)
	if err != nil {
		return nil, err
	}

	hub := realtime.NewHub(16, nil, logger)
	a.hub = hub
	ticker, err := realtime.NewTicker(hub, realtime.EveryMinute, cfg.Location, nil)
	if err != nil {
		return nil, err
	}
	a.ticker = ticker

	var broker *realtime.RedisBroker
	if cfg.RedisURL != "" {
		client, err := realtime.NewRedisClient(cfg.RedisURL)
		if err != nil {
			return nil, err
		}
		broker = realtime.NewRedisBroker(client, hub, uuid.NewString(), logger)
		a.broker = broker
		if err := broker.Ping(ctx); err != nil {
			return nil, fmt.Errorf("connect redis: %w", err)
		}
		hub.SetRelay(broker)
	}

	var hasher application.PasswordHasher
	if cfg.HashPasswords {
		hasher = application.Argon2idPasswords
	}

	now := time.Now
	events := adapters.NewEventRepository(store.Events)
	items := adapters.NewItemRepository(store.Items)
	materials := adapters.NewMaterialRepository(store.Materials)

	eventService := application.NewEventServiceWithLogger(events, sessions, hub, hasher, uuid.NewString, now, logger)
	scheduleService := application.NewScheduleServiceWithLogger(events, items, materials, hub, uuid.NewString, now, logger)
	materialService := application.NewMaterialServiceWithLogger(events, materials, hub, uuid.NewString, now, logger)
	viewService := application.NewViewServiceWithLogger(events, items, materials, cfg.Location, now, logger)

	health := store.Ping
	if broker != nil {
		health = func(ctx context.Context) error {
			if err := store.Ping(ctx); err != nil {
				return err
			}
			return broker.Ping(ctx)
		}
	}

	router := httptransport.NewRouter(httptransport.RouterConfig{
		Pages:     httptransport.NewPageHandler(viewService, eventService, sessions, cfg.PublicBaseURL, logger),
		Events:    httptransport.NewEventHandler(eventService, logger),
		Items:     httptransport.NewItemHandler(scheduleService, logger),
		Materials: httptransport.NewMaterialHandler(materialService, logger),
		API:       httptransport.NewAPIHandler(viewService, cfg.Location, cfg.PublicBaseURL, logger),
		Realtime:  realtime.NewWSHandler(hub, logger),
		Access:    sessions,
		Health:    health,
		Logger:    logger,
		Middleware: []func(http.Handler) http.Handler{
			httptransport.RequestLogger(logger),
		},
	})

	a.handler = router
	return a, nil
}

// close releases whatever newApp managed to open.
func (a *app) close() {
	if a.broker != nil {
		if err := a.broker.Close(); err != nil {
			a.logger.Error("failed to close redis client", "error", err)
		}
	}
	if a.store != nil {
		if err := a.store.Close(); err != nil {
			a.logger.Error("failed to close storage", "error", err)
		}
	}
}
