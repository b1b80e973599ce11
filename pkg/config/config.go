// Package config loads storefront settings from the environment.
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
	"github.com/nikixstore/storefront/pkg/runtime"
)

// Config holds every process setting.
type Config struct {
	DatabaseURL string
	RedisAddr   string
	RedisDB     int

	AdminID      int64
	OrdersChatID int64
	LogLevel     slog.Level

	SizesCachePath  string
	SizesSourceURL  string
	SizesTimeout    time.Duration
	SizesMinDelay   time.Duration
	SizesMaxDelay   time.Duration
	SizesActiveFrom int
	SizesActiveTo   int

	AdminHTTPAddr           string
	OrderIDOffset           int64
	StrictStatusTransitions bool
}

// Load reads an optional .env file and then the environment.
// Variables already set in the environment win over the file.
func Load(envFiles ...string) (*Config, error) {
	if len(envFiles) == 0 {
		envFiles = []string{".env"}
	}
	for _, f := range envFiles {
		if err := godotenv.Load(f); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("load %s: %w", f, err)
		}
	}

	p := &parser{}
	cfg := &Config{
		DatabaseURL: getEnv("DATABASE_URL", ""),
		RedisAddr:   getEnv("REDIS_ADDR", "localhost:6379"),
		RedisDB:     p.int("REDIS_DB", 0),

		AdminID:      p.int64("ADMIN_ID", 0),
		OrdersChatID: p.int64("ORDERS_CHAT_ID", 0),
		LogLevel:     p.level("LOG_LEVEL", slog.LevelInfo),

		SizesCachePath:  getEnv("SIZES_CACHE_PATH", "sizes_cache.json"),
		SizesSourceURL:  getEnv("SIZES_SOURCE_URL", ""),
		SizesTimeout:    p.duration("SIZES_TIMEOUT", 30*time.Second),
		SizesMinDelay:   p.duration("SIZES_MIN_DELAY", 40*time.Minute),
		SizesMaxDelay:   p.duration("SIZES_MAX_DELAY", 80*time.Minute),
		SizesActiveFrom: p.int("SIZES_ACTIVE_FROM", 1),
		SizesActiveTo:   p.int("SIZES_ACTIVE_TO", 22),

		AdminHTTPAddr:           getEnv("ADMIN_HTTP_ADDR", ":8080"),
		OrderIDOffset:           p.int64("ORDER_ID_OFFSET", 2000),
		StrictStatusTransitions: p.bool("STRICT_STATUS_TRANSITIONS", false),
	}
	if p.err != nil {
		return nil, p.err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks cross-field constraints.
func (c *Config) Validate() error {
	if c.SizesMinDelay > c.SizesMaxDelay {
		return &runtime.ValidationError{Field: "SIZES_MIN_DELAY", Message: "must not exceed SIZES_MAX_DELAY"}
	}
	if c.SizesActiveFrom < 0 || c.SizesActiveTo > 24 || c.SizesActiveFrom >= c.SizesActiveTo {
		return &runtime.ValidationError{Field: "SIZES_ACTIVE_FROM", Message: "active window must satisfy 0 <= from < to <= 24"}
	}
	return nil
}

func getEnv(key, defaultValue string) string {
	if value, exists := os.LookupEnv(key); exists {
		return strings.TrimSpace(value)
	}
	return defaultValue
}

// parser keeps the first conversion error.
type parser struct {
	err error
}

func (p *parser) fail(key, raw string, err error) {
	if p.err == nil {
		p.err = &runtime.ValidationError{Field: key, Message: fmt.Sprintf("invalid value %q: %v", raw, err)}
	}
}

func (p *parser) int(key string, def int) int {
	raw := getEnv(key, "")
	if raw == "" {
		return def
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		p.fail(key, raw, err)
		return def
	}
	return v
}

func (p *parser) int64(key string, def int64) int64 {
	raw := getEnv(key, "")
	if raw == "" {
		return def
	}
	v, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		p.fail(key, raw, err)
		return def
	}
	return v
}

func (p *parser) bool(key string, def bool) bool {
	raw := getEnv(key, "")
	if raw == "" {
		return def
	}
	v, err := strconv.ParseBool(raw)
	if err != nil {
		p.fail(key, raw, err)
		return def
	}
	return v
}

func (p *parser) duration(key string, def time.Duration) time.Duration {
	raw := getEnv(key, "")
	if raw == "" {
		return def
	}
	v, err := time.ParseDuration(raw)
	if err != nil {
		p.fail(key, raw, err)
		return def
	}
	return v
}

func (p *parser) level(key string, def slog.Level) slog.Level {
	raw := getEnv(key, "")
	if raw == "" {
		return def
	}
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(raw)); err != nil {
		p.fail(key, raw, err)
		return def
	}
	return lvl
}
