package fetcher

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/proto"
	"github.com/go-rod/stealth"

	"github.com/shadowDragonCloud/rosario/internal/config"
	"github.com/shadowDragonCloud/rosario/internal/observability"
	"github.com/shadowDragonCloud/rosario/internal/types"
)

// BrowserFetcher renders pages in headless Chromium. Some relay listings
// only fill their tables from script, so discovery can go through it.
// Chromium takes its proxy at launch, so it always fetches direct; it
// shares the pacing discipline of the HTTP fetcher.
type BrowserFetcher struct {
	browser *rod.Browser
	pacing  *PacingClock
	profile HeaderProfile
	timeout time.Duration
	metrics *observability.Metrics
	logger  *slog.Logger
	mu      sync.Mutex
}

// BrowserOption configures the BrowserFetcher.
type BrowserOption func(*BrowserFetcher)

// WithBrowserMetrics records fetch outcomes on m.
func WithBrowserMetrics(m *observability.Metrics) BrowserOption {
	return func(bf *BrowserFetcher) { bf.metrics = m }
}

// NewBrowserFetcher launches Chromium and connects to it.
func NewBrowserFetcher(cfg *config.Config, logger *slog.Logger, opts ...BrowserOption) (*BrowserFetcher, error) {
	controlURL, err := launcher.New().
		Headless(true).
		Set("disable-gpu").
		Set("disable-dev-shm-usage").
		Set("no-sandbox").
		Set("disable-blink-features", "AutomationControlled").
		Launch()
	if err != nil {
		return nil, fmt.Errorf("launch browser: %w", err)
	}

	browser := rod.New().ControlURL(controlURL)
	if err := browser.Connect(); err != nil {
		return nil, fmt.Errorf("connect browser: %w", err)
	}

	bf := &BrowserFetcher{
		browser: browser,
		pacing:  NewPacingClock(cfg.Fetcher.MinDelay, cfg.Fetcher.MaxDelay),
		profile: NewHeaderProfile(&cfg.Fetcher),
		timeout: cfg.Crawl.RequestTimeout,
		logger:  logger.With("component", "browser_fetcher"),
	}
	for _, opt := range opts {
		opt(bf)
	}
	bf.logger.Info("browser fetcher ready")
	return bf, nil
}

// Fetch navigates a fresh stealth page to the URL and returns the rendered
// document.
func (bf *BrowserFetcher) Fetch(ctx context.Context, req *types.Request) (*types.Response, error) {
	if _, err := bf.pacing.Wait(ctx); err != nil {
		return nil, &types.FetchError{URL: req.URLString(), Kind: types.FetchNetwork, Err: err}
	}

	// One tab at a time keeps the rendered traffic as sequential as the
	// HTTP path.
	bf.mu.Lock()
	defer bf.mu.Unlock()

	start := time.Now()
	page, err := stealth.Page(bf.browser)
	if err != nil {
		bf.metrics.ObserveFetch(req.Kind, types.FetchNetwork.String(), 0)
		return nil, &types.FetchError{URL: req.URLString(), Kind: types.FetchNetwork, Err: fmt.Errorf("stealth page: %w", err)}
	}
	defer page.Close()

	page = page.Context(ctx).Timeout(bf.timeout)

	if err := page.SetUserAgent(&proto.NetworkSetUserAgentOverride{
		UserAgent:      bf.profile.UserAgent,
		AcceptLanguage: bf.profile.AcceptLanguage,
	}); err != nil {
		bf.logger.Warn("failed to set user agent", "error", err)
	}
	if req.Referrer != "" {
		if _, err := page.SetExtraHeaders([]string{"Referer", req.Referrer}); err != nil {
			bf.logger.Warn("failed to set referrer", "error", err)
		}
	}

	if err := page.Navigate(req.URLString()); err != nil {
		bf.metrics.ObserveFetch(req.Kind, types.FetchNetwork.String(), 0)
		return nil, &types.FetchError{URL: req.URLString(), Kind: types.FetchNetwork, Err: err}
	}
	if err := page.WaitStable(300 * time.Millisecond); err != nil {
		bf.logger.Warn("page stability timeout, continuing", "url", req.URLString(), "error", err)
	}

	html, err := page.HTML()
	if err != nil {
		bf.metrics.ObserveFetch(req.Kind, types.FetchDecodeText.String(), 0)
		return nil, &types.FetchError{URL: req.URLString(), Kind: types.FetchDecodeText, Err: err}
	}

	finalURL := req.URLString()
	if info, err := page.Info(); err == nil && info != nil {
		finalURL = info.URL
	}

	duration := time.Since(start)
	bf.metrics.ObserveFetch(req.Kind, "ok", duration)
	bf.logger.Debug("browser fetch complete",
		"url", req.URLString(),
		"final_url", finalURL,
		"size", len(html),
		"duration", duration,
	)

	return types.NewBrowserResponse(req, []byte(html), finalURL, duration), nil
}

// Close shuts down the browser.
func (bf *BrowserFetcher) Close() error {
	if bf.browser != nil {
		return bf.browser.Close()
	}
	return nil
}

// Type returns the fetcher type identifier.
func (bf *BrowserFetcher) Type() string {
	return "browser"
}
