// Package sizes keeps the process-wide map of article to in-stock size labels.
//
// The map is refreshed from an external size source on a timer, persisted to
// a JSON file after every refresh and loaded from it at startup.
package sizes

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/nikixstore/storefront/pkg/notify"
	"github.com/nikixstore/storefront/pkg/store"
	"golang.org/x/sync/errgroup"
)

// Unverified is stored for an article whose sizes could never be fetched.
const Unverified = "Не удалось проверить наличие"

// Fetcher returns the size labels currently offered at url.
type Fetcher interface {
	FetchSizes(ctx context.Context, url string) ([]string, error)
}

// SourceLister lists the articles to check and where.
type SourceLister interface {
	SizeSources(ctx context.Context) ([]store.SizeSource, error)
}

// Options configures a Cache.
type Options struct {
	Path    string
	Timeout time.Duration
	Workers int
}

// Cache is the article to sizes map.
type Cache struct {
	mu    sync.RWMutex
	sizes map[string][]string

	opts    Options
	source  SourceLister
	fetcher Fetcher
	alert   notify.Alerter
	log     *slog.Logger
}

// New returns an empty cache. Call Load to warm it from disk.
func New(source SourceLister, fetcher Fetcher, alert notify.Alerter, opts Options, log *slog.Logger) *Cache {
	if log == nil {
		log = slog.Default()
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 30 * time.Second
	}
	if opts.Workers <= 0 {
		opts.Workers = 4
	}
	return &Cache{
		sizes:   make(map[string][]string),
		opts:    opts,
		source:  source,
		fetcher: fetcher,
		alert:   alert,
		log:     log,
	}
}

// Get returns the sizes of article.
func (c *Cache) Get(article string) ([]string, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	s, ok := c.sizes[article]
	if !ok {
		return nil, false
	}
	return append([]string(nil), s...), true
}

// InStock returns the sizes of article that can actually be bought. The
// unverified marker is not a size.
func (c *Cache) InStock(article string) []string {
	sizes, _ := c.Get(article)
	out := sizes[:0]
	for _, s := range sizes {
		if s != Unverified && s != "" {
			out = append(out, s)
		}
	}
	return out
}

// Has reports whether size is in stock for article.
func (c *Cache) Has(article, size string) bool {
	for _, s := range c.InStock(article) {
		if s == size {
			return true
		}
	}
	return false
}

// ArticlesWithSize returns the sorted articles stocking size.
func (c *Cache) ArticlesWithSize(size string) []string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	var out []string
	for article, sizes := range c.sizes {
		for _, s := range sizes {
			if s == size {
				out = append(out, article)
				break
			}
		}
	}
	sort.Strings(out)
	return out
}

// AvailableSizes returns every distinct size label, ordered by size.
func (c *Cache) AvailableSizes() []string {
	c.mu.RLock()
	seen := make(map[string]struct{})
	for _, sizes := range c.sizes {
		for _, s := range sizes {
			if s != "" && s != Unverified {
				seen[s] = struct{}{}
			}
		}
	}
	c.mu.RUnlock()

	out := make([]string, 0, len(seen))
	for s := range seen {
		out = append(out, s)
	}
	SortLabels(out)
	return out
}

// SortLabels orders size labels numerically. A range such as "42-43" sorts
// by its upper bound; labels without a number sort last.
func SortLabels(labels []string) {
	sort.SliceStable(labels, func(i, j int) bool {
		a, aok := sizeKey(labels[i])
		b, bok := sizeKey(labels[j])
		switch {
		case aok && bok && a != b:
			return a < b
		case aok != bok:
			return aok
		}
		return labels[i] < labels[j]
	})
}

func sizeKey(label string) (float64, bool) {
	if i := strings.LastIndex(label, "-"); i >= 0 {
		label = label[i+1:]
	}
	fields := strings.Fields(label)
	if len(fields) == 0 {
		return 0, false
	}
	v, err := strconv.ParseFloat(strings.ReplaceAll(fields[0], ",", "."), 64)
	return v, err == nil
}

// Len returns the number of articles in the cache.
func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.sizes)
}

// Snapshot returns a copy of the whole map.
func (c *Cache) Snapshot() map[string][]string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make(map[string][]string, len(c.sizes))
	for k, v := range c.sizes {
		out[k] = append([]string(nil), v...)
	}
	return out
}

// Load replaces the map with the persisted one. A missing file leaves the
// cache empty.
func (c *Cache) Load() error {
	if c.opts.Path == "" {
		return nil
	}
	raw, err := os.ReadFile(c.opts.Path)
	if errors.Is(err, fs.ErrNotExist) {
		c.log.Info("no persisted sizes, starting cold", "path", c.opts.Path)
		return nil
	}
	if err != nil {
		return fmt.Errorf("read sizes: %w", err)
	}
	loaded := make(map[string][]string)
	if err := json.Unmarshal(raw, &loaded); err != nil {
		return fmt.Errorf("decode sizes %s: %w", c.opts.Path, err)
	}
	c.mu.Lock()
	c.sizes = loaded
	c.mu.Unlock()
	c.log.Info("sizes loaded", "articles", len(loaded), "path", c.opts.Path)
	return nil
}

// Save writes the map to disk through a temporary file.
func (c *Cache) Save() error {
	if c.opts.Path == "" {
		return nil
	}
	raw, err := json.Marshal(c.Snapshot())
	if err != nil {
		return fmt.Errorf("encode sizes: %w", err)
	}
	tmp, err := os.CreateTemp(filepath.Dir(c.opts.Path), ".sizes-*.json")
	if err != nil {
		return fmt.Errorf("save sizes: %w", err)
	}
	defer os.Remove(tmp.Name())
	if _, err := tmp.Write(raw); err != nil {
		tmp.Close()
		return fmt.Errorf("save sizes: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("save sizes: %w", err)
	}
	if err := os.Rename(tmp.Name(), c.opts.Path); err != nil {
		return fmt.Errorf("save sizes: %w", err)
	}
	return nil
}

// Report summarizes one refresh.
type Report struct {
	Checked   int
	Updated   int
	Preserved []string
	Unknown   []string
	Took      time.Duration
}

// Failed returns every article whose fetch failed.
func (r Report) Failed() []string {
	out := append(append([]string(nil), r.Preserved...), r.Unknown...)
	sort.Strings(out)
	return out
}

// Refresh fetches every article's sizes and merges them into the map. A
// failed article keeps its previous sizes, or gets the Unverified marker
// when it had none. The merged map is saved afterwards.
func (c *Cache) Refresh(ctx context.Context) (Report, error) {
	start := time.Now()
	sources, err := c.source.SizeSources(ctx)
	if err != nil {
		return Report{}, fmt.Errorf("list size sources: %w", err)
	}

	type result struct {
		sizes []string
		err   error
	}
	var (
		mu      sync.Mutex
		results = make(map[string]result, len(sources))
	)
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(c.opts.Workers)
	for _, src := range sources {
		g.Go(func() error {
			fctx, cancel := context.WithTimeout(gctx, c.opts.Timeout)
			defer cancel()
			sizes, err := c.fetcher.FetchSizes(fctx, src.URL)
			mu.Lock()
			results[src.Article] = result{sizes: sizes, err: err}
			mu.Unlock()
			// one article never stops the batch
			return nil
		})
	}
	_ = g.Wait()
	if err := ctx.Err(); err != nil {
		return Report{}, err
	}

	rep := Report{Checked: len(results)}
	c.mu.Lock()
	for article, res := range results {
		if res.err == nil {
			c.sizes[article] = res.sizes
			rep.Updated++
			continue
		}
		c.log.Warn("size fetch failed", "article", article, "error", res.err)
		if _, ok := c.sizes[article]; ok {
			rep.Preserved = append(rep.Preserved, article)
			continue
		}
		c.sizes[article] = []string{Unverified}
		rep.Unknown = append(rep.Unknown, article)
	}
	c.mu.Unlock()
	sort.Strings(rep.Preserved)
	sort.Strings(rep.Unknown)
	rep.Took = time.Since(start)

	if err := c.Save(); err != nil {
		c.alert.Alert(ctx, fmt.Sprintf("Не удалось сохранить размеры: %v", err))
		return rep, err
	}
	return rep, nil
}

// Set overwrites the sizes of one article. Used by operators and tests.
func (c *Cache) Set(article string, sizes []string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.sizes[article] = append([]string(nil), sizes...)
}
