package storefront

import (
	"context"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/nikixstore/storefront/pkg/importer"
	"github.com/nikixstore/storefront/pkg/models"
	"github.com/nikixstore/storefront/pkg/orders"
	"github.com/nikixstore/storefront/pkg/runtime"
	"github.com/nikixstore/storefront/pkg/sizes"
)

// ImportCatalog loads a catalog CSV. The read cache is rebuilt afterwards.
func (s *Service) ImportCatalog(ctx context.Context, r io.Reader, mode importer.Mode) (importer.Report, error) {
	return s.importer.ImportProducts(ctx, r, mode)
}

// ImportPhotos replaces the extra photo links.
func (s *Service) ImportPhotos(ctx context.Context, r io.Reader) (importer.Report, error) {
	return s.importer.ImportPhotos(ctx, r)
}

// ExportCatalog writes the catalog as an importable CSV.
func (s *Service) ExportCatalog(ctx context.Context, w io.Writer) (int, error) {
	return s.importer.ExportProducts(ctx, w)
}

// DeleteProduct removes one product.
func (s *Service) DeleteProduct(ctx context.Context, article string) error {
	ok, err := s.store.DeleteProduct(ctx, article)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("%s: %w", article, runtime.ErrNotFound)
	}
	return s.RebuildCache(ctx)
}

// DeleteAllProducts empties the catalog and returns how many were removed.
func (s *Service) DeleteAllProducts(ctx context.Context) (int64, error) {
	n, err := s.store.DeleteAllProducts(ctx)
	if err != nil {
		return 0, fmt.Errorf("delete products: %w", err)
	}
	return n, s.RebuildCache(ctx)
}

// ParsePrice reads an operator-typed price such as "12500" or "12 500".
func ParsePrice(text string) (int, error) {
	clean := strings.Map(func(r rune) rune {
		if r == ' ' || r == '\u00a0' {
			return -1
		}
		return r
	}, strings.TrimSpace(text))
	price, err := strconv.Atoi(clean)
	if err != nil || price <= 0 {
		return 0, &runtime.ValidationError{Field: "price", Message: fmt.Sprintf("%q is not a price", text)}
	}
	return price, nil
}

// ChangePrice sets the regular price of article from operator input.
func (s *Service) ChangePrice(ctx context.Context, article, priceText string) (int, error) {
	price, err := ParsePrice(priceText)
	if err != nil {
		return 0, err
	}
	ok, err := s.store.ChangePrice(ctx, article, price)
	if err != nil {
		return 0, err
	}
	if !ok {
		return 0, fmt.Errorf("%s: %w", article, runtime.ErrNotFound)
	}
	s.log.InfoContext(ctx, "price changed", "article", article, "price", price)
	return price, s.RebuildCache(ctx)
}

// EditPostLink sets the channel post link of article.
func (s *Service) EditPostLink(ctx context.Context, article, link string) error {
	link = strings.TrimSpace(link)
	if link == "" {
		return &runtime.ValidationError{Field: "channel_url", Message: "link is required"}
	}
	ok, err := s.store.EditPostLink(ctx, article, link)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("%s: %w", article, runtime.ErrNotFound)
	}
	return s.RebuildCache(ctx)
}

// RebuildCache reloads the read cache from the store. Failures are also
// alerted by the cache itself.
func (s *Service) RebuildCache(ctx context.Context) error {
	return s.catalog.Rebuild(ctx)
}

// OpenDrop starts a drop cycle with a new password and dates. Access granted
// in the previous cycle is revoked.
func (s *Service) OpenDrop(ctx context.Context, password, start, stop string) error {
	password = strings.TrimSpace(password)
	if password == "" {
		return &runtime.ValidationError{Field: "password", Message: "password is required"}
	}
	if err := s.gate.Open(ctx, password, strings.TrimSpace(start), strings.TrimSpace(stop)); err != nil {
		return err
	}
	s.log.InfoContext(ctx, "drop opened", "start", start, "stop", stop)
	return nil
}

// CloseDrop takes every product out of the drop and revokes all access.
func (s *Service) CloseDrop(ctx context.Context) (int64, error) {
	n, err := s.store.StopDrop(ctx)
	if err != nil {
		return 0, fmt.Errorf("stop drop: %w", err)
	}
	if err := s.gate.ClearAllAccess(ctx); err != nil {
		return n, err
	}
	s.log.InfoContext(ctx, "drop closed", "products", n)
	return n, s.RebuildCache(ctx)
}

// DropStatus returns the current drop description.
func (s *Service) DropStatus(ctx context.Context) (models.DropInfo, error) {
	return s.gate.Info(ctx)
}

// SetOrderStatus changes an order's status by its displayed number.
func (s *Service) SetOrderStatus(ctx context.Context, displayID int64, status orders.Status) (*orders.StatusChange, error) {
	id, err := s.engine.InternalID(displayID)
	if err != nil {
		return nil, err
	}
	return s.engine.SetStatus(ctx, id, status)
}

// AdminOrder shows any order to the administrator.
func (s *Service) AdminOrder(ctx context.Context, displayID int64) (*orders.View, error) {
	return s.ShowOrder(ctx, s.cfg.AdminID, displayID)
}

// RecentOrders returns the latest orders of every buyer.
func (s *Service) RecentOrders(ctx context.Context, limit int) ([]OrderSummary, error) {
	if limit <= 0 {
		limit = 50
	}
	list, err := s.store.RecentOrders(ctx, limit)
	if err != nil {
		return nil, err
	}
	return s.summaries(list), nil
}

// RefreshSizes runs one size refresh now.
func (s *Service) RefreshSizes(ctx context.Context) (sizes.Report, error) {
	return s.sizes.Refresh(ctx)
}

// ArticleSizes returns the cached size labels of article.
func (s *Service) ArticleSizes(article string) ([]string, bool) {
	return s.sizes.Get(article)
}

// Health reports the state of the store and of the read cache. A cache
// failure degrades the service but does not stop it.
type Health struct {
	Store error
	Cache error
}

// OK reports whether the store is reachable.
func (h Health) OK() bool { return h.Store == nil }

// Health pings the store and the cache.
func (s *Service) Health(ctx context.Context) Health {
	return Health{
		Store: s.store.Ping(ctx),
		Cache: s.cache.Ping(ctx),
	}
}
