// Package engine drives the fixed category -> listing page -> book
// traversal. It runs as a single sequential worker; all pacing lives in
// the fetcher.
package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"sync/atomic"
	"time"

	"github.com/shadowDragonCloud/rosario/internal/config"
	"github.com/shadowDragonCloud/rosario/internal/observability"
	"github.com/shadowDragonCloud/rosario/internal/parser"
	"github.com/shadowDragonCloud/rosario/internal/storage"
	"github.com/shadowDragonCloud/rosario/internal/types"
)

// State represents the crawler's lifecycle state.
type State int32

const (
	StateIdle    State = 0
	StateRunning State = 1
	StateStopped State = 2
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateRunning:
		return "running"
	case StateStopped:
		return "stopped"
	default:
		return "unknown"
	}
}

// Stats tracks crawl statistics.
type Stats struct {
	Categories        atomic.Int64
	CategoriesSkipped atomic.Int64
	PagesFetched      atomic.Int64
	PagesFailed       atomic.Int64
	BooksStored       atomic.Int64
	BooksSkipped      atomic.Int64
	BooksFailed       atomic.Int64
	StartTime         time.Time
}

// Snapshot returns a copy of stats safe for reading.
func (s *Stats) Snapshot() map[string]any {
	return map[string]any{
		"categories":         s.Categories.Load(),
		"categories_skipped": s.CategoriesSkipped.Load(),
		"pages_fetched":      s.PagesFetched.Load(),
		"pages_failed":       s.PagesFailed.Load(),
		"books_stored":       s.BooksStored.Load(),
		"books_skipped":      s.BooksSkipped.Load(),
		"books_failed":       s.BooksFailed.Load(),
		"elapsed":            time.Since(s.StartTime).String(),
	}
}

// Fetcher is the page source the crawler pulls from.
type Fetcher interface {
	Fetch(ctx context.Context, req *types.Request) (*types.Response, error)
}

// Extractor turns pages into traversal targets and records.
type Extractor interface {
	Categories(resp *types.Response) ([]string, error)
	MaxPageCount(resp *types.Response) (int, error)
	BookList(resp *types.Response) ([]string, error)
	Book(resp *types.Response) (*types.BookRecord, error)
}

// Crawler is the traversal orchestrator.
type Crawler struct {
	cfg       config.CrawlConfig
	fetcher   Fetcher
	extractor Extractor
	store     storage.Gateway
	metrics   *observability.Metrics
	logger    *slog.Logger
	stats     Stats
	state     atomic.Int32
}

// New creates a Crawler. metrics may be nil.
func New(cfg config.CrawlConfig, f Fetcher, x Extractor, store storage.Gateway, metrics *observability.Metrics, logger *slog.Logger) *Crawler {
	if cfg.BooksPerPage <= 0 {
		cfg.BooksPerPage = 20
	}
	return &Crawler{
		cfg:       cfg,
		fetcher:   f,
		extractor: x,
		store:     store,
		metrics:   metrics,
		logger:    logger.With("component", "crawler"),
	}
}

// Stats returns the live statistics.
func (c *Crawler) Stats() *Stats {
	return &c.stats
}

// GetState returns the current lifecycle state.
func (c *Crawler) GetState() State {
	return State(c.state.Load())
}

// Run crawls every category. Only a failure to read the category index or
// a cancelled context ends the run early; anything below that is logged
// and the traversal moves on.
func (c *Crawler) Run(ctx context.Context) error {
	if !c.state.CompareAndSwap(int32(StateIdle), int32(StateRunning)) {
		return fmt.Errorf("crawler is %s", c.GetState())
	}
	defer c.state.Store(int32(StateStopped))
	c.stats.StartTime = time.Now()

	c.logger.Info("crawl starting", "root", c.cfg.RootURL, "store", c.store.Name())

	resp, err := c.fetch(ctx, c.cfg.RootURL, c.cfg.Host, types.PageRoot)
	if err != nil {
		return fmt.Errorf("fetch category index: %w", err)
	}
	hrefs, err := c.extractor.Categories(resp)
	if err != nil {
		return fmt.Errorf("parse category index: %w", err)
	}
	c.logger.Info("category index parsed", "categories", len(hrefs))

	for i, href := range hrefs {
		if c.cfg.MaxCategories > 0 && i >= c.cfg.MaxCategories {
			c.logger.Info("category limit reached", "limit", c.cfg.MaxCategories)
			break
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		c.crawlCategory(ctx, c.cfg.Host+href)
	}

	c.logger.Info("crawl finished", "stats", c.stats.Snapshot())
	return ctx.Err()
}

func (c *Crawler) crawlCategory(ctx context.Context, tagURL string) {
	logger := c.logger.With("category", tagURL)
	c.stats.Categories.Add(1)

	resp, err := c.fetch(ctx, tagURL, c.cfg.RootURL, types.PageTag)
	if err != nil {
		c.skipCategory(logger, "category page fetch failed", err)
		return
	}
	count, err := c.extractor.MaxPageCount(resp)
	if err != nil {
		c.skipCategory(logger, "page count unavailable", err)
		return
	}
	if count == 0 {
		c.skipCategory(logger, "page count is zero", nil)
		return
	}
	if c.cfg.MaxPagesPerCategory > 0 && count > c.cfg.MaxPagesPerCategory {
		count = c.cfg.MaxPagesPerCategory
	}
	c.metrics.IncCategory("crawled")
	logger.Info("category page count", "pages", count)

	referrer := tagURL
	for idx := 0; idx < count; idx++ {
		if ctx.Err() != nil {
			return
		}
		pageURL := c.pageURL(tagURL, idx)
		c.crawlPage(ctx, logger, pageURL, referrer)
		referrer = pageURL
	}
}

func (c *Crawler) skipCategory(logger *slog.Logger, reason string, err error) {
	c.stats.CategoriesSkipped.Add(1)
	c.metrics.IncCategory("skipped")
	if err != nil {
		logger.Warn(reason+", skipping category", "error", err)
		return
	}
	logger.Warn(reason + ", skipping category")
}

func (c *Crawler) pageURL(tagURL string, idx int) string {
	return fmt.Sprintf("%s?start=%d&type=T", tagURL, idx*c.cfg.BooksPerPage)
}

func (c *Crawler) crawlPage(ctx context.Context, logger *slog.Logger, pageURL, referrer string) {
	resp, err := c.fetch(ctx, pageURL, referrer, types.PageTag)
	if err != nil {
		c.stats.PagesFailed.Add(1)
		logger.Warn("listing page fetch failed", "url", pageURL, "error", err)
		return
	}
	books, err := c.extractor.BookList(resp)
	if err != nil {
		c.stats.PagesFailed.Add(1)
		logger.Warn("listing page parse failed", "url", pageURL, "error", err)
		return
	}
	c.stats.PagesFetched.Add(1)
	logger.Info("listing page parsed", "url", pageURL, "books", len(books))

	for _, href := range books {
		if ctx.Err() != nil {
			return
		}
		c.crawlBook(ctx, logger, resolve(pageURL, href), pageURL)
	}
}

func (c *Crawler) crawlBook(ctx context.Context, logger *slog.Logger, bookURL, referrer string) {
	id := parser.DeriveBookID(bookURL)
	if id == "" {
		c.bookFailed(logger, bookURL, types.ErrNoBookID)
		return
	}
	if c.store.Contains(id) {
		c.stats.BooksSkipped.Add(1)
		c.metrics.IncBook("skipped")
		logger.Debug("book already stored", "id", id, "url", bookURL)
		return
	}

	resp, err := c.fetch(ctx, bookURL, referrer, types.PageBook)
	if err != nil {
		c.bookFailed(logger, bookURL, err)
		return
	}
	rec, err := c.extractor.Book(resp)
	if err != nil {
		c.bookFailed(logger, bookURL, err)
		return
	}
	logger.Info("book parsed", "title", rec.Title, "url", bookURL)

	if err := c.store.Put(id, rec); err != nil {
		c.stats.BooksFailed.Add(1)
		c.metrics.IncBook("store_failed")
		logger.Error("store book failed", "id", id, "url", bookURL, "error", err)
		return
	}
	c.stats.BooksStored.Add(1)
	c.metrics.IncBook("stored")
	logger.Info("book stored", "title", rec.Title, "id", id)
}

func (c *Crawler) bookFailed(logger *slog.Logger, bookURL string, err error) {
	c.stats.BooksFailed.Add(1)
	c.metrics.IncBook("failed")
	if errors.Is(err, types.ErrEmptyPool) {
		logger.Warn("no proxy available, skipping book", "url", bookURL)
		return
	}
	logger.Warn("book failed", "url", bookURL, "error", err)
}

func (c *Crawler) fetch(ctx context.Context, rawURL, referrer, kind string) (*types.Response, error) {
	req, err := types.NewRequest(rawURL, referrer)
	if err != nil {
		return nil, err
	}
	req.Kind = kind
	return c.fetcher.Fetch(ctx, req)
}

// resolve makes href absolute against the page it was found on.
func resolve(base, href string) string {
	b, err := url.Parse(base)
	if err != nil {
		return href
	}
	h, err := url.Parse(href)
	if err != nil {
		return href
	}
	return b.ResolveReference(h).String()
}
