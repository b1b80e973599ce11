package commands

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/redis/go-redis/v9"

	"github.com/nikixstore/storefront/pkg/config"
	"github.com/nikixstore/storefront/pkg/runtime"
	"github.com/nikixstore/storefront/pkg/store"
	"github.com/nikixstore/storefront/pkg/storefront"
)

var _ storefront.Store = (*store.Store)(nil)

// app is one command's connections and service.
type app struct {
	cfg   *config.Config
	log   *slog.Logger
	db    *runtime.DB
	store *store.Store
	rdb   *redis.Client
	svc   *storefront.Service
}

func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(envFile)
	if err != nil {
		return nil, err
	}
	if dbURL != "" {
		cfg.DatabaseURL = dbURL
	}
	if verbose {
		cfg.LogLevel = slog.LevelDebug
	}
	if cfg.DatabaseURL == "" {
		return nil, fmt.Errorf("--db flag or DATABASE_URL is required")
	}
	return cfg, nil
}

func newLogger(cfg *config.Config) *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: cfg.LogLevel}))
}

// openStore connects to the database only.
func openStore(ctx context.Context) (*app, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}
	log := newLogger(cfg)
	slog.SetDefault(log)

	db, err := runtime.ConnectWithURL(ctx, cfg.DatabaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	return &app{cfg: cfg, log: log, db: db, store: store.New(db, log.With("component", "store"))}, nil
}

// openApp connects to the database and Redis and builds the service. The
// service is not initialized; commands that need warm caches call Init.
func openApp(ctx context.Context) (*app, error) {
	a, err := openStore(ctx)
	if err != nil {
		return nil, err
	}
	a.rdb = redis.NewClient(&redis.Options{Addr: a.cfg.RedisAddr, DB: a.cfg.RedisDB})
	a.svc = storefront.New(a.cfg, storefront.Deps{
		Store: a.store,
		Redis: a.rdb,
		Log:   a.log,
	})
	return a, nil
}

func (a *app) Close() {
	if a.rdb != nil {
		_ = a.rdb.Close()
	}
	a.db.Close()
}
