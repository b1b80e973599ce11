package storefront

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/nikixstore/storefront/pkg/dropgate"
	"github.com/nikixstore/storefront/pkg/models"
	"github.com/nikixstore/storefront/pkg/runtime"
	"github.com/nikixstore/storefront/pkg/session"
	"github.com/nikixstore/storefront/pkg/sizes"
)

// NoSizes is shown when a product has no size in stock.
const NoSizes = "Нет в наличии"

// Buyer identifies a chat user.
type Buyer struct {
	ID        int64
	UserName  string
	FirstName string
}

// Card is everything needed to show one product to one buyer.
type Card struct {
	Product models.Product
	// Index and Total place the product in the list being paged.
	Index int
	Total int
	Price dropgate.PriceView
	// Sizes are the labels in stock, in size order. SizeNote explains an
	// empty list.
	Sizes    []string
	SizeNote string
	Photos   []string
	BackMode string
}

// Start records the buyer. It reports whether they were new.
func (s *Service) Start(ctx context.Context, b Buyer) (bool, error) {
	known, err := s.cache.CheckAndAddUser(ctx, b.ID)
	if err == nil && known {
		return false, nil
	}
	if err != nil {
		s.log.WarnContext(ctx, "user set unavailable", "user_id", b.ID, "error", err)
	}
	added, err := s.store.AddUser(ctx, b.ID, b.UserName, b.FirstName)
	if err != nil {
		return false, err
	}
	if added {
		s.log.InfoContext(ctx, "new user", "user_id", b.ID, "user_name", b.UserName)
	}
	return added, nil
}

// Brands returns the brand names offered in the catalog menu.
func (s *Service) Brands(ctx context.Context) ([]string, error) {
	return s.catalog.Brands(ctx)
}

// SizeOptions returns every size label in stock somewhere, in size order.
func (s *Service) SizeOptions() []string {
	return s.sizes.AvailableSizes()
}

// OpenCatalog starts paging through brand ("all" for every brand).
func (s *Service) OpenCatalog(ctx context.Context, userID int64, brand string) (*Card, error) {
	return s.show(ctx, userID, session.Cursor{
		Brand:     brand,
		WatchMode: session.CatalogMode(),
		BackMode:  session.BackRoot,
	})
}

var searchBack = map[string]string{
	session.SearchSeason:  session.BackSearchSeason,
	session.SearchSize:    session.BackSearchSize,
	session.SearchArticle: session.BackSearchArticle,
}

// Search starts paging through the results of a season, size or article
// search. An empty result is session.ErrEmpty.
func (s *Service) Search(ctx context.Context, userID int64, kind, param string) (*Card, error) {
	back, ok := searchBack[kind]
	if !ok {
		return nil, fmt.Errorf("%w: %q", session.ErrUnknownMode, kind)
	}
	param = strings.TrimSpace(param)
	if param == "" {
		return nil, &runtime.ValidationError{Field: kind, Message: "search term is required"}
	}
	return s.show(ctx, userID, session.Cursor{
		WatchMode: session.SearchMode(kind, param),
		BackMode:  back,
	})
}

// Navigate moves the cursor by delta, wrapping at both ends of the list.
func (s *Service) Navigate(ctx context.Context, userID int64, delta int) (*Card, error) {
	cur, err := s.cursor(ctx, userID)
	if err != nil {
		return nil, err
	}
	products, err := s.resolver.Resolve(ctx, cur)
	if err != nil {
		return nil, err
	}
	if len(products) == 0 {
		return nil, session.ErrEmpty
	}
	cur.Position = session.Step(cur.Position, delta, len(products))
	return s.present(ctx, userID, cur, products)
}

// Current shows the product under the cursor. A position left stale by a
// shrinking list is clamped and saved.
func (s *Service) Current(ctx context.Context, userID int64) (*Card, error) {
	cur, err := s.cursor(ctx, userID)
	if err != nil {
		return nil, err
	}
	return s.show(ctx, userID, cur)
}

// Back returns the screen the back button leads to.
func (s *Service) Back(ctx context.Context, userID int64) (string, error) {
	cur, err := s.cursors.GetCursor(ctx, userID)
	if err != nil {
		return session.BackRoot, err
	}
	if cur.BackMode == "" {
		return session.BackRoot, nil
	}
	return cur.BackMode, nil
}

// SetBackMode changes where back leads without moving the cursor.
func (s *Service) SetBackMode(ctx context.Context, userID int64, mode string) error {
	cur, err := s.cursors.GetCursor(ctx, userID)
	if err != nil {
		return err
	}
	cur.BackMode = mode
	return s.cursors.SetCursor(ctx, userID, cur)
}

// ProductCard builds the card of product for userID. A gated product gets
// only the gate prompt: no price, sizes or photos.
func (s *Service) ProductCard(ctx context.Context, userID int64, product models.Product) (*Card, error) {
	price, err := s.gate.Price(ctx, product, userID)
	if err != nil {
		return nil, fmt.Errorf("price %s: %w", product.Article, err)
	}
	card := &Card{Product: product, Price: price}
	if price.Gated {
		return card, nil
	}

	card.Photos = s.photos(ctx, product)
	card.Sizes = s.sizes.InStock(product.Article)
	sizes.SortLabels(card.Sizes)
	if len(card.Sizes) == 0 {
		card.SizeNote = NoSizes
		if raw, _ := s.sizes.Get(product.Article); len(raw) == 1 && raw[0] == sizes.Unverified {
			card.SizeNote = sizes.Unverified
		}
	}
	return card, nil
}

func (s *Service) cursor(ctx context.Context, userID int64) (session.Cursor, error) {
	cur, err := s.cursors.GetCursor(ctx, userID)
	if err != nil {
		return cur, err
	}
	if cur.Empty() {
		return cur, ErrNotBrowsing
	}
	return cur, nil
}

func (s *Service) show(ctx context.Context, userID int64, cur session.Cursor) (*Card, error) {
	view, err := s.resolver.Current(ctx, cur)
	if err != nil {
		return nil, err
	}
	cur.Position = view.Index
	return s.present(ctx, userID, cur, view.Products)
}

// present saves cur and renders the product it points at. A cursor that
// cannot be saved is logged; the buyer still gets the card.
func (s *Service) present(ctx context.Context, userID int64, cur session.Cursor, products []models.Product) (*Card, error) {
	cur.Position = session.Clamp(cur.Position, len(products))
	if err := s.cursors.SetCursor(ctx, userID, cur); err != nil {
		s.log.WarnContext(ctx, "cursor not saved", "user_id", userID, "error", err)
	}
	card, err := s.ProductCard(ctx, userID, products[cur.Position])
	if err != nil {
		return nil, err
	}
	card.Index = cur.Position
	card.Total = len(products)
	card.BackMode = cur.BackMode
	if card.BackMode == "" {
		card.BackMode = session.BackRoot
	}
	return card, nil
}

func (s *Service) photos(ctx context.Context, p models.Product) []string {
	var out []string
	if p.PhotoURL != "" {
		out = append(out, p.PhotoURL)
	}
	links, err := s.store.PhotoLinks(ctx, p.Article)
	if err != nil {
		if !errors.Is(err, runtime.ErrNotFound) {
			s.log.WarnContext(ctx, "photo links unavailable", "article", p.Article, "error", err)
		}
		return out
	}
	for _, u := range []string{links.Photo2, links.Photo3, links.Photo4} {
		if u != "" && u != "0" {
			out = append(out, u)
		}
	}
	return out
}
