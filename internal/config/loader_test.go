package config

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"
)

var allKeys = []string{
	"TAKT_HTTP_PORT",
	"TAKT_SQLITE_DSN",
	"TAKT_SESSION_SECRET",
	"TAKT_SESSION_TTL",
	"TAKT_REMEMBER_TTL",
	"TAKT_TIMEZONE",
	"TAKT_PUBLIC_BASE_URL",
	"TAKT_REDIS_URL",
	"TAKT_HASH_PASSWORDS",
	"TAKT_LOG_LEVEL",
}

// clearEnv blanks every key for the duration of the test.
func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range allKeys {
		t.Setenv(key, "")
	}
}

const secret = "0123456789abcdef"

func TestLoader_ParseEnvironment(t *testing.T) {
	t.Run("applies defaults when variables are missing", func(t *testing.T) {
		clearEnv(t)
		t.Setenv("TAKT_SESSION_SECRET", secret)

		cfg, err := Load()
		if err != nil {
			t.Fatalf("Load returned error: %v", err)
		}

		if cfg.HTTPPort != 8080 || cfg.Addr() != ":8080" {
			t.Fatalf("expected default HTTP port 8080, got %d", cfg.HTTPPort)
		}
		if cfg.SQLiteDSN != "file:takt.db?_pragma=foreign_keys(1)" {
			t.Fatalf("unexpected default DSN: %q", cfg.SQLiteDSN)
		}
		if cfg.SessionTTL != 12*time.Hour || cfg.RememberTTL != 720*time.Hour {
			t.Fatalf("unexpected TTLs %s / %s", cfg.SessionTTL, cfg.RememberTTL)
		}
		if cfg.Location == nil || cfg.Location.String() != "Asia/Tokyo" {
			t.Fatalf("expected Asia/Tokyo, got %v", cfg.Location)
		}
		if cfg.HashPasswords || cfg.RedisURL != "" || cfg.LogLevel != slog.LevelInfo {
			t.Fatalf("unexpected optional defaults %+v", cfg)
		}
	})

	t.Run("errors when required values are missing", func(t *testing.T) {
		clearEnv(t)

		_, err := Load()
		if err == nil {
			t.Fatalf("expected error when required values are missing")
		}
		expected := "必須の環境変数が設定されていません: TAKT_SESSION_SECRET"
		if err.Error() != expected {
			t.Fatalf("unexpected error message: %q", err.Error())
		}
	})

	t.Run("parses every field", func(t *testing.T) {
		clearEnv(t)
		t.Setenv("TAKT_SESSION_SECRET", secret)
		t.Setenv("TAKT_HTTP_PORT", "9090")
		t.Setenv("TAKT_SQLITE_DSN", "file:/tmp/takt.db")
		t.Setenv("TAKT_SESSION_TTL", "1h")
		t.Setenv("TAKT_REMEMBER_TTL", "168h")
		t.Setenv("TAKT_TIMEZONE", "UTC")
		t.Setenv("TAKT_PUBLIC_BASE_URL", "https://takt.example.com/")
		t.Setenv("TAKT_REDIS_URL", "redis://localhost:6379/0")
		t.Setenv("TAKT_HASH_PASSWORDS", "true")
		t.Setenv("TAKT_LOG_LEVEL", "debug")

		cfg, err := Load()
		if err != nil {
			t.Fatalf("Load returned error: %v", err)
		}
		if cfg.HTTPPort != 9090 || cfg.SessionTTL != time.Hour || cfg.RememberTTL != 168*time.Hour {
			t.Fatalf("unexpected values %+v", cfg)
		}
		if cfg.PublicBaseURL != "https://takt.example.com" {
			t.Fatalf("expected trailing slash to be trimmed, got %q", cfg.PublicBaseURL)
		}
		if !cfg.HashPasswords || cfg.LogLevel != slog.LevelDebug || cfg.Location != time.UTC {
			t.Fatalf("unexpected values %+v", cfg)
		}
	})

	t.Run("reports invalid values", func(t *testing.T) {
		clearEnv(t)
		t.Setenv("TAKT_SESSION_SECRET", secret)
		t.Setenv("TAKT_HTTP_PORT", "abc")
		t.Setenv("TAKT_SESSION_TTL", "-1h")
		t.Setenv("TAKT_TIMEZONE", "Mars/Olympus")

		_, err := Load()
		if err == nil {
			t.Fatalf("expected error for invalid values")
		}
		expected := "環境変数の値が不正です: TAKT_HTTP_PORT, TAKT_SESSION_TTL, TAKT_TIMEZONE"
		if err.Error() != expected {
			t.Fatalf("unexpected error message: %q", err.Error())
		}
	})
}

func TestLoadWithDotEnv(t *testing.T) {
	clearEnv(t)
	// godotenv only fills unset variables, so drop the blanks set above.
	for _, key := range allKeys {
		os.Unsetenv(key)
	}

	path := filepath.Join(t.TempDir(), ".env")
	content := "TAKT_SESSION_SECRET=" + secret + "\nTAKT_HTTP_PORT=7070\n"
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write .env: %v", err)
	}
	t.Setenv("TAKT_HTTP_PORT", "6060")

	cfg, err := LoadWithDotEnv(path)
	if err != nil {
		t.Fatalf("LoadWithDotEnv: %v", err)
	}
	if cfg.SessionSecret != secret {
		t.Fatalf("expected secret from .env, got %q", cfg.SessionSecret)
	}
	if cfg.HTTPPort != 6060 {
		t.Fatalf("expected process environment to win, got %d", cfg.HTTPPort)
	}

	os.Unsetenv("TAKT_SESSION_SECRET")
	if _, err := LoadWithDotEnv(filepath.Join(t.TempDir(), "missing.env")); err == nil {
		t.Fatalf("expected missing secret error when .env is absent")
	}
}
