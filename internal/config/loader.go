package config

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config captures environment driven configuration values for the Takt server.
type Config struct {
	HTTPPort      int
	SQLiteDSN     string
	SessionSecret string
	SessionTTL    time.Duration
	RememberTTL   time.Duration
	Location      *time.Location
	PublicBaseURL string
	RedisURL      string
	HashPasswords bool
	LogLevel      slog.Level
}

// LoadWithDotEnv reads path (typically ".env") into the process environment
// without overriding variables that are already set, then calls Load. A
// missing file is not an error.
func LoadWithDotEnv(path string) (Config, error) {
	if path != "" {
		if err := godotenv.Load(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return Config{}, fmt.Errorf("%s の読み込みに失敗しました: %w", path, err)
		}
	}
	return Load()
}

// Load parses configuration values from the current process environment.
//
// The loader applies defaults for optional fields while validating required
// values and reporting localized error messages for missing entries.
func Load() (Config, error) {
	cfg := Config{
		HTTPPort:    8080,
		SQLiteDSN:   "file:takt.db?_pragma=foreign_keys(1)",
		SessionTTL:  12 * time.Hour,
		RememberTTL: 30 * 24 * time.Hour,
		LogLevel:    slog.LevelInfo,
	}

	missing := make([]string, 0, 1)
	invalid := make([]string, 0, 2)

	if portValue := env("TAKT_HTTP_PORT"); portValue != "" {
		port, err := strconv.Atoi(portValue)
		if err != nil || port <= 0 || port > 65535 {
			invalid = append(invalid, "TAKT_HTTP_PORT")
		} else {
			cfg.HTTPPort = port
		}
	}

	if dsn := env("TAKT_SQLITE_DSN"); dsn != "" {
		cfg.SQLiteDSN = dsn
	}

	if secret := env("TAKT_SESSION_SECRET"); secret == "" {
		missing = append(missing, "TAKT_SESSION_SECRET")
	} else if len(secret) < 16 {
		invalid = append(invalid, "TAKT_SESSION_SECRET")
	} else {
		cfg.SessionSecret = secret
	}

	cfg.SessionTTL = parseDuration("TAKT_SESSION_TTL", cfg.SessionTTL, &invalid)
	cfg.RememberTTL = parseDuration("TAKT_REMEMBER_TTL", cfg.RememberTTL, &invalid)

	zone := env("TAKT_TIMEZONE")
	if zone == "" {
		zone = "Asia/Tokyo"
	}
	if loc, err := time.LoadLocation(zone); err != nil {
		invalid = append(invalid, "TAKT_TIMEZONE")
	} else {
		cfg.Location = loc
	}

	if base := env("TAKT_PUBLIC_BASE_URL"); base != "" {
		if !strings.HasPrefix(base, "http://") && !strings.HasPrefix(base, "https://") {
			invalid = append(invalid, "TAKT_PUBLIC_BASE_URL")
		} else {
			cfg.PublicBaseURL = strings.TrimRight(base, "/")
		}
	}

	cfg.RedisURL = env("TAKT_REDIS_URL")

	if hashValue := env("TAKT_HASH_PASSWORDS"); hashValue != "" {
		hash, err := strconv.ParseBool(hashValue)
		if err != nil {
			invalid = append(invalid, "TAKT_HASH_PASSWORDS")
		} else {
			cfg.HashPasswords = hash
		}
	}

	if levelValue := env("TAKT_LOG_LEVEL"); levelValue != "" {
		if err := cfg.LogLevel.UnmarshalText([]byte(levelValue)); err != nil {
			invalid = append(invalid, "TAKT_LOG_LEVEL")
		}
	}

	if len(missing) > 0 {
		return Config{}, fmt.Errorf("必須の環境変数が設定されていません: %s", strings.Join(missing, ", "))
	}
	if len(invalid) > 0 {
		return Config{}, fmt.Errorf("環境変数の値が不正です: %s", strings.Join(invalid, ", "))
	}

	return cfg, nil
}

// Addr is the listen address for the HTTP server.
func (c Config) Addr() string {
	return ":" + strconv.Itoa(c.HTTPPort)
}

func env(key string) string {
	return strings.TrimSpace(os.Getenv(key))
}

func parseDuration(key string, fallback time.Duration, invalid *[]string) time.Duration {
	value := env(key)
	if value == "" {
		return fallback
	}
	d, err := time.ParseDuration(value)
	if err != nil || d <= 0 {
		*invalid = append(*invalid, key)
		return fallback
	}
	return d
}
