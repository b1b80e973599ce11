// Package storefront wires the catalog, session, drop, order and size
// components into one process-scoped service.
//
// A Service is created with New, made ready with Init and stopped with
// Shutdown. Chat handlers, the admin CLI and the admin HTTP API all call into
// the same Service value instead of reaching for package-level state.
package storefront

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/nikixstore/storefront/pkg/checkout"
	"github.com/nikixstore/storefront/pkg/config"
	"github.com/nikixstore/storefront/pkg/dropgate"
	"github.com/nikixstore/storefront/pkg/importer"
	"github.com/nikixstore/storefront/pkg/models"
	"github.com/nikixstore/storefront/pkg/notify"
	"github.com/nikixstore/storefront/pkg/orders"
	"github.com/nikixstore/storefront/pkg/readcache"
	"github.com/nikixstore/storefront/pkg/session"
	"github.com/nikixstore/storefront/pkg/sizes"
	"github.com/redis/go-redis/v9"
)

// Store is the relational persistence behind the service.
type Store interface {
	readcache.Source
	orders.Store
	dropgate.Store
	importer.Store
	sizes.SourceLister

	Ping(ctx context.Context) error
	AddUser(ctx context.Context, userID int64, userName, firstName string) (bool, error)
	UserIDs(ctx context.Context) ([]int64, error)

	ProductByArticle(ctx context.Context, article string) (*models.Product, error)
	DeleteProduct(ctx context.Context, article string) (bool, error)
	ChangePrice(ctx context.Context, article string, price int) (bool, error)
	EditPostLink(ctx context.Context, article, link string) (bool, error)
	StopDrop(ctx context.Context) (int64, error)
	PhotoLinks(ctx context.Context, article string) (*models.PhotoLinks, error)

	AddToBasket(ctx context.Context, userID int64, article, size string) (int64, error)
	Basket(ctx context.Context, userID int64) ([]models.BasketLine, error)
	BasketCount(ctx context.Context, userID int64) (int64, error)
	RemoveBasketItem(ctx context.Context, userID, basketID int64) (bool, error)
	ClearBasket(ctx context.Context, userID int64) error

	RecentOrders(ctx context.Context, limit int) ([]models.Order, error)
}

// Deps are the collaborators a Service is built from. Store and Redis are
// required; the rest fall back to logging implementations.
type Deps struct {
	Store Store
	Redis *redis.Client
	// Fetcher answers size lookups. Defaults to an HTTP fetcher against
	// the configured size source.
	Fetcher sizes.Fetcher
	// Channel carries the operations chat, Buyers the buyers' chats.
	Channel notify.Surface
	Buyers  notify.Surface
	Alert   notify.Alerter
	Log     *slog.Logger
}

// Service is the storefront core.
type Service struct {
	cfg   *config.Config
	store Store
	rdb   *redis.Client
	alert notify.Alerter
	log   *slog.Logger

	cache    *readcache.Cache
	catalog  *readcache.Catalog
	cursors  *session.Store
	resolver *session.Resolver
	gate     *dropgate.Gate
	engine   *orders.Engine
	wizard   *checkout.Wizard
	sizes    *sizes.Cache
	runner   *sizes.Runner
	importer *importer.Importer

	mu   sync.Mutex
	stop context.CancelFunc
	done chan struct{}
}

// New assembles a Service. It performs no I/O.
func New(cfg *config.Config, deps Deps) *Service {
	log := deps.Log
	if log == nil {
		log = slog.Default()
	}
	alert := deps.Alert
	if alert == nil {
		alert = notify.NewLogAlerter(log)
	}
	channel := deps.Channel
	if channel == nil {
		channel = notify.NewLogSurface(log.With("surface", "channel"))
	}
	buyers := deps.Buyers
	if buyers == nil {
		buyers = notify.NewLogSurface(log.With("surface", "buyers"))
	}
	fetcher := deps.Fetcher
	if fetcher == nil {
		fetcher = sizes.NewHTTPFetcher(cfg.SizesSourceURL, &http.Client{})
	}

	s := &Service{
		cfg:   cfg,
		store: deps.Store,
		rdb:   deps.Redis,
		alert: alert,
		log:   log,
	}
	s.cache = readcache.New(deps.Redis, alert, log.With("component", "readcache"))
	s.catalog = readcache.NewCatalog(s.cache, deps.Store, log.With("component", "catalog"))
	s.sizes = sizes.New(deps.Store, fetcher, alert, sizes.Options{
		Path:    cfg.SizesCachePath,
		Timeout: cfg.SizesTimeout,
	}, log.With("component", "sizes"))
	s.runner = sizes.NewRunner(s.sizes, sizes.Schedule{
		MinDelay:   cfg.SizesMinDelay,
		MaxDelay:   cfg.SizesMaxDelay,
		ActiveFrom: cfg.SizesActiveFrom,
		ActiveTo:   cfg.SizesActiveTo,
	}, alert, log.With("component", "sizes"))
	s.cursors = session.NewStore(deps.Redis)
	s.resolver = session.NewResolver(s.catalog, s.sizes)
	s.gate = dropgate.New(deps.Store, deps.Redis, alert, log.With("component", "dropgate"))

	var transition orders.TransitionFunc
	if cfg.StrictStatusTransitions {
		transition = orders.ForwardOnly
	}
	s.engine = orders.NewEngine(deps.Store, channel, buyers, alert, orders.Config{
		AdminID:      cfg.AdminID,
		OrdersChatID: cfg.OrdersChatID,
		IDOffset:     cfg.OrderIDOffset,
		Transition:   transition,
	}, log.With("component", "orders"))
	s.wizard = checkout.NewWizard(deps.Redis, checkout.DefaultTTL)
	s.importer = importer.New(deps.Store, s.catalog, alert, log.With("component", "importer"))
	return s
}

// Init checks the store, warms every cache and seeds the known users. Only a
// store failure is fatal; cache problems leave the service on its fallbacks.
func (s *Service) Init(ctx context.Context) error {
	start := time.Now()
	if err := s.store.Ping(ctx); err != nil {
		return fmt.Errorf("store: %w", err)
	}
	if err := s.cache.Ping(ctx); err != nil {
		s.log.Warn("redis unreachable, serving from the store", "error", err)
	}
	if err := s.sizes.Load(); err != nil {
		s.log.Warn("sizes not loaded", "error", err)
	}
	if err := s.catalog.Rebuild(ctx); err != nil {
		s.log.Warn("read cache not rebuilt", "error", err)
	}
	if err := s.gate.Warm(ctx); err != nil {
		s.log.Warn("drop gate not warmed", "error", err)
	}
	ids, err := s.store.UserIDs(ctx)
	if err != nil {
		s.log.Warn("users not loaded", "error", err)
	} else if err := s.cache.SeedUsers(ctx, ids); err != nil {
		s.log.Warn("users not seeded", "error", err)
	}
	s.log.Info("storefront ready", "sizes", s.sizes.Len(), "users", len(ids), "took", time.Since(start))
	return nil
}

// StartBackground launches the size refresh loop. It is a no-op when the
// loop is already running.
func (s *Service) StartBackground(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.stop != nil {
		return
	}
	ctx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})
	s.stop, s.done = cancel, done
	go func() {
		defer close(done)
		if err := s.runner.Run(ctx); err != nil {
			s.log.Error("size refresh loop failed", "error", err)
		}
	}()
}

// Shutdown stops background work and persists the size cache.
func (s *Service) Shutdown(ctx context.Context) error {
	s.mu.Lock()
	stop, done := s.stop, s.done
	s.stop, s.done = nil, nil
	s.mu.Unlock()

	if stop != nil {
		stop()
		select {
		case <-done:
		case <-ctx.Done():
			return fmt.Errorf("shutdown: %w", ctx.Err())
		}
	}
	if err := s.sizes.Save(); err != nil {
		return fmt.Errorf("save sizes: %w", err)
	}
	s.log.Info("storefront stopped")
	return nil
}

// IsAdmin reports whether userID is the configured administrator.
func (s *Service) IsAdmin(userID int64) bool {
	return s.cfg.AdminID != 0 && userID == s.cfg.AdminID
}

// Orders returns the order engine.
func (s *Service) Orders() *orders.Engine { return s.engine }

// Checkout returns the checkout wizard for the step-by-step setters.
func (s *Service) Checkout() *checkout.Wizard { return s.wizard }

// Sizes returns the size availability cache.
func (s *Service) Sizes() *sizes.Cache { return s.sizes }

// Drop returns the drop gate.
func (s *Service) Drop() *dropgate.Gate { return s.gate }

// Catalog returns the cached catalog.
func (s *Service) Catalog() *readcache.Catalog { return s.catalog }

var (
	// ErrNotBrowsing is returned when a user navigates without a cursor.
	ErrNotBrowsing = errors.New("user is not browsing")
	// ErrDropLocked is returned when a buyer acts on a drop product they
	// have not unlocked.
	ErrDropLocked = errors.New("drop product is locked")
)
