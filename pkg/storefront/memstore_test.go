package storefront

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/nikixstore/storefront/pkg/models"
	"github.com/nikixstore/storefront/pkg/runtime"
	"github.com/nikixstore/storefront/pkg/store"
)

// memStore is an in-memory Store for service tests.
type memStore struct {
	mu       sync.Mutex
	products map[string]models.Product
	nextID   int64
	users    map[int64]models.User
	basket   []models.BasketItem
	nextLine int64
	orders   map[int64]models.Order
	items    map[int64][]models.OrderItem
	photos   map[string]models.PhotoLinks
	dropInfo models.DropInfo
	access   map[int64]bool
}

var _ Store = (*memStore)(nil)

func newMemStore() *memStore {
	return &memStore{
		products: make(map[string]models.Product),
		users:    make(map[int64]models.User),
		orders:   make(map[int64]models.Order),
		items:    make(map[int64][]models.OrderItem),
		photos:   make(map[string]models.PhotoLinks),
		dropInfo: models.DropInfo{ID: models.DropInfoID},
		access:   make(map[int64]bool),
	}
}

func (m *memStore) Ping(context.Context) error { return nil }

func (m *memStore) filter(keep func(models.Product) bool) []models.Product {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []models.Product
	for _, p := range m.products {
		if keep(p) {
			out = append(out, p)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	return out
}

func (m *memStore) AllProducts(context.Context) ([]models.Product, error) {
	return m.filter(func(models.Product) bool { return true }), nil
}

func (m *memStore) ProductsByBrand(_ context.Context, brand string) ([]models.Product, error) {
	return m.filter(func(p models.Product) bool { return brand == "all" || p.Brand == brand }), nil
}

func (m *memStore) ProductsBySeasonToken(_ context.Context, token string) ([]models.Product, error) {
	return m.filter(func(p models.Product) bool { return p.InSeason(token) }), nil
}

func (m *memStore) ProductsByArticles(_ context.Context, articles []string) ([]models.Product, error) {
	set := make(map[string]bool, len(articles))
	for _, a := range articles {
		set[a] = true
	}
	return m.filter(func(p models.Product) bool { return set[p.Article] }), nil
}

func (m *memStore) ProductsByArticlePattern(_ context.Context, query string) ([]models.Product, error) {
	q := strings.ToLower(query)
	return m.filter(func(p models.Product) bool { return strings.Contains(strings.ToLower(p.Article), q) }), nil
}

func (m *memStore) Brands(context.Context) ([]string, error) {
	seen := make(map[string]bool)
	for _, p := range m.filter(func(models.Product) bool { return true }) {
		seen[p.Brand] = true
	}
	var out []string
	for b := range seen {
		out = append(out, b)
	}
	sort.Strings(out)
	return out, nil
}

func (m *memStore) ProductByArticle(_ context.Context, article string) (*models.Product, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.products[article]
	if !ok {
		return nil, runtime.ErrNotFound
	}
	return &p, nil
}

func (m *memStore) UpsertProducts(_ context.Context, products []models.Product) []store.RowError {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, p := range products {
		if old, ok := m.products[p.Article]; ok {
			p.ID = old.ID
		} else {
			m.nextID++
			p.ID = m.nextID
		}
		m.products[p.Article] = p
	}
	return nil
}

func (m *memStore) DeleteAllProducts(context.Context) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := int64(len(m.products))
	m.products = make(map[string]models.Product)
	return n, nil
}

func (m *memStore) DeleteProduct(_ context.Context, article string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.products[article]
	delete(m.products, article)
	return ok, nil
}

func (m *memStore) update(article string, change func(*models.Product)) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.products[article]
	if ok {
		change(&p)
		m.products[article] = p
	}
	return ok
}

func (m *memStore) ChangePrice(_ context.Context, article string, price int) (bool, error) {
	return m.update(article, func(p *models.Product) { p.Price = price }), nil
}

func (m *memStore) EditPostLink(_ context.Context, article, link string) (bool, error) {
	return m.update(article, func(p *models.Product) { p.ChannelURL = link }), nil
}

func (m *memStore) StopDrop(context.Context) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var n int64
	for a, p := range m.products {
		if p.IsDrop == 1 {
			p.IsDrop = 0
			m.products[a] = p
			n++
		}
	}
	return n, nil
}

func (m *memStore) SizeSources(context.Context) ([]store.SizeSource, error) {
	var out []store.SizeSource
	for _, p := range m.filter(func(p models.Product) bool { return p.SourceURL != "" }) {
		out = append(out, store.SizeSource{Article: p.Article, URL: p.SourceURL})
	}
	return out, nil
}

func (m *memStore) ReplacePhotoLinks(_ context.Context, rows []models.PhotoLinks) ([]store.RowError, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.photos = make(map[string]models.PhotoLinks)
	for _, r := range rows {
		m.photos[r.Article] = r
	}
	return nil, nil
}

func (m *memStore) PhotoLinks(_ context.Context, article string) (*models.PhotoLinks, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	l, ok := m.photos[article]
	if !ok {
		return nil, runtime.ErrNotFound
	}
	return &l, nil
}

func (m *memStore) AddUser(_ context.Context, userID int64, userName, firstName string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.users[userID]; ok {
		return false, nil
	}
	m.users[userID] = models.User{UserID: userID, UserName: userName, FirstName: firstName}
	return true, nil
}

func (m *memStore) UserIDs(context.Context) ([]int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var ids []int64
	for id := range m.users {
		ids = append(ids, id)
	}
	return ids, nil
}

func (m *memStore) User(_ context.Context, userID int64) (*models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[userID]
	if !ok {
		return nil, runtime.ErrNotFound
	}
	return &u, nil
}

func (m *memStore) AddToBasket(_ context.Context, userID int64, article, size string) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.nextLine++
	m.basket = append(m.basket, models.BasketItem{ID: m.nextLine, UserID: userID, Article: article, Size: size})
	return m.nextLine, nil
}

func (m *memStore) Basket(_ context.Context, userID int64) ([]models.BasketLine, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []models.BasketLine
	for _, b := range m.basket {
		p, ok := m.products[b.Article]
		if b.UserID != userID || !ok {
			continue
		}
		out = append(out, models.BasketLine{
			BasketID: b.ID, UserID: userID, Article: b.Article, Size: b.Size,
			Name: p.Name, Brand: p.Brand, Price: p.Price, DropPrice: p.DropPrice, IsDrop: p.IsDrop,
			PhotoURL: p.PhotoURL, ChannelURL: p.ChannelURL,
		})
	}
	return out, nil
}

func (m *memStore) BasketCount(_ context.Context, userID int64) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var n int64
	for _, b := range m.basket {
		if b.UserID == userID {
			n++
		}
	}
	return n, nil
}

func (m *memStore) RemoveBasketItem(_ context.Context, userID, basketID int64) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i, b := range m.basket {
		if b.ID == basketID && b.UserID == userID {
			m.basket = append(m.basket[:i], m.basket[i+1:]...)
			return true, nil
		}
	}
	return false, nil
}

func (m *memStore) ClearBasket(_ context.Context, userID int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.clearBasketLocked(userID)
	return nil
}

func (m *memStore) clearBasketLocked(userID int64) {
	kept := m.basket[:0]
	for _, b := range m.basket {
		if b.UserID != userID {
			kept = append(kept, b)
		}
	}
	m.basket = kept
}

func (m *memStore) InsertOrder(_ context.Context, order models.Order, items []models.OrderItem, clearBasket bool) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	order.ID = int64(len(m.orders) + 1)
	order.CreatedAt = time.Now()
	m.orders[order.ID] = order
	for i := range items {
		items[i].OrderID = order.ID
	}
	m.items[order.ID] = append([]models.OrderItem(nil), items...)
	if clearBasket {
		m.clearBasketLocked(order.UserID)
	}
	return order.ID, nil
}

func (m *memStore) SetOrderStatus(_ context.Context, orderID int64, status int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	o, ok := m.orders[orderID]
	if !ok {
		return runtime.ErrNotFound
	}
	o.Status = status
	m.orders[orderID] = o
	return nil
}

func (m *memStore) SetOrderMessage(_ context.Context, orderID, handle int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	o, ok := m.orders[orderID]
	if !ok {
		return runtime.ErrNotFound
	}
	o.MessageHandle = handle
	m.orders[orderID] = o
	return nil
}

func (m *memStore) Order(_ context.Context, orderID int64) (*models.Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	o, ok := m.orders[orderID]
	if !ok {
		return nil, runtime.ErrNotFound
	}
	return &o, nil
}

func (m *memStore) OrderItems(_ context.Context, orderID int64) ([]models.OrderItem, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]models.OrderItem(nil), m.items[orderID]...), nil
}

func (m *memStore) ordersWhere(keep func(models.Order) bool) []models.Order {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []models.Order
	for _, o := range m.orders {
		if keep(o) {
			out = append(out, o)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	return out
}

func (m *memStore) OrdersByUser(_ context.Context, userID int64) ([]models.Order, error) {
	return m.ordersWhere(func(o models.Order) bool { return o.UserID == userID }), nil
}

func (m *memStore) RecentOrders(_ context.Context, limit int) ([]models.Order, error) {
	out := m.ordersWhere(func(models.Order) bool { return true })
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (m *memStore) DropInfo(context.Context) (models.DropInfo, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.dropInfo, nil
}

func (m *memStore) SaveDropInfo(_ context.Context, info models.DropInfo) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	info.ID = models.DropInfoID
	m.dropInfo = info
	return nil
}

func (m *memStore) DropAccessUsers(context.Context) ([]int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var ids []int64
	for id := range m.access {
		ids = append(ids, id)
	}
	return ids, nil
}

func (m *memStore) GrantDropAccess(_ context.Context, userID int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.access[userID] = true
	return nil
}

func (m *memStore) ClearDropAccess(context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.access = make(map[int64]bool)
	return nil
}
