package main

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"net/url"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/taisuke/takt/internal/config"
	"github.com/taisuke/takt/internal/persistence/sqlite"
	"github.com/taisuke/takt/internal/persistence/sqlite/migration"
	"github.com/taisuke/takt/internal/realtime"
)

func testConfig(t *testing.T) config.Config {
	t.Helper()
	return config.Config{
		HTTPPort:      0,
		SQLiteDSN:     "file:" + filepath.Join(t.TempDir(), "takt.db") + "?_pragma=foreign_keys(1)",
		SessionSecret: "main-test-secret-0123456789",
		SessionTTL:    time.Hour,
		RememberTTL:   24 * time.Hour,
		Location:      time.UTC,
	}
}

func TestNewAppServesEvents(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	app, err := newApp(context.Background(), testConfig(t), logger)
	if err != nil {
		t.Fatalf("newApp: %v", err)
	}
	defer app.close()

	server := httptest.NewServer(app.handler)
	defer server.Close()

	resp, err := http.Get(server.URL + "/healthz")
	if err != nil {
		t.Fatalf("GET /healthz: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected healthy storage, got %d", resp.StatusCode)
	}

	client := &http.Client{CheckRedirect: func(*http.Request, []*http.Request) error { return http.ErrUseLastResponse }}
	resp, err = client.PostForm(server.URL+"/events", url.Values{
		"slug": {"main-1"}, "title": {"演奏会"}, "date": {"2026-10-15"}, "password": {"secret"},
	})
	if err != nil {
		t.Fatalf("POST /events: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusSeeOther || !strings.HasPrefix(resp.Header.Get("Location"), "/e/main-1/edit") {
		t.Fatalf("unexpected create response %d %s", resp.StatusCode, resp.Header.Get("Location"))
	}

	resp, err = http.Get(server.URL + "/api/events/main-1")
	if err != nil {
		t.Fatalf("GET api: %v", err)
	}
	body, _ := io.ReadAll(resp.Body)
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK || !strings.Contains(string(body), `"slug":"main-1"`) {
		t.Fatalf("unexpected api response %d %s", resp.StatusCode, body)
	}
	if strings.Contains(string(body), "secret") {
		t.Fatalf("edit password must not be exposed")
	}
}

func TestNewAppRejectsBadRedisURL(t *testing.T) {
	cfg := testConfig(t)
	cfg.RedisURL = "not-a-url"
	if _, err := newApp(context.Background(), cfg, slog.New(slog.NewTextHandler(io.Discard, nil))); err == nil {
		t.Fatalf("expected invalid redis url to fail")
	}
}

func TestNewAppReleasesResourcesWhenRedisIsUnreachable(t *testing.T) {
	cfg := testConfig(t)
	cfg.RedisURL = "redis://127.0.0.1:1/0"
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	_, err := newApp(ctx, cfg, slog.New(slog.NewTextHandler(io.Discard, nil)))
	if err == nil || !strings.Contains(err.Error(), "connect redis") {
		t.Fatalf("expected redis connection failure, got %v", err)
	}
}

func TestAppCloseReleasesBrokerAndStore(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	cfg := testConfig(t)

	store, err := sqlite.Open(context.Background(), migration.DefaultSQLiteConfig(cfg.SQLiteDSN), logger)
	if err != nil {
		t.Fatalf("open storage: %v", err)
	}
	client, err := realtime.NewRedisClient("redis://127.0.0.1:1/0")
	if err != nil {
		t.Fatalf("NewRedisClient: %v", err)
	}
	hub := realtime.NewHub(1, nil, logger)
	a := &app{store: store, hub: hub, broker: realtime.NewRedisBroker(client, hub, "test", logger), logger: logger}

	a.close()

	if err := a.broker.Ping(context.Background()); !errors.Is(err, redis.ErrClosed) {
		t.Fatalf("expected closed redis client, got %v", err)
	}
	if err := store.Ping(context.Background()); err == nil {
		t.Fatalf("expected closed storage")
	}

	(&app{logger: logger}).close()
}
