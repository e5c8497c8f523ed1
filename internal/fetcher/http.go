package fetcher

import (
	"compress/flate"
	"compress/gzip"
	"context"
	"fmt"
	"io"
	"log/slog"
	"mime"
	"net"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strings"
	"time"

	"github.com/andybalholm/brotli"
	"golang.org/x/net/html/charset"

	"github.com/shadowDragonCloud/rosario/internal/config"
	"github.com/shadowDragonCloud/rosario/internal/observability"
	"github.com/shadowDragonCloud/rosario/internal/types"
)

type proxyKey struct{}

// HTTPFetcher is the paced, relay-routed page fetcher. Every call first
// waits on the shared PacingClock, then picks a relay, then issues a GET
// with the fixed header profile. It never retries.
type HTTPFetcher struct {
	client  *http.Client
	pacing  *PacingClock
	proxies ProxyChooser
	profile HeaderProfile
	timeout time.Duration
	maxBody int64
	metrics *observability.Metrics
	logger  *slog.Logger
}

// HTTPOption configures the HTTPFetcher.
type HTTPOption func(*HTTPFetcher)

// WithProxies routes every request through a relay from c. Without it
// requests go direct.
func WithProxies(c ProxyChooser) HTTPOption {
	return func(f *HTTPFetcher) { f.proxies = c }
}

// WithPacing shares an existing clock instead of creating one from config.
func WithPacing(p *PacingClock) HTTPOption {
	return func(f *HTTPFetcher) { f.pacing = p }
}

// WithMetrics records fetch outcomes on m.
func WithMetrics(m *observability.Metrics) HTTPOption {
	return func(f *HTTPFetcher) { f.metrics = m }
}

// NewHTTPFetcher creates a new HTTP fetcher.
func NewHTTPFetcher(cfg *config.Config, logger *slog.Logger, opts ...HTTPOption) (*HTTPFetcher, error) {
	jar, err := cookiejar.New(nil)
	if err != nil {
		return nil, fmt.Errorf("create cookie jar: %w", err)
	}

	transport := &http.Transport{
		Proxy: proxyFromContext,
		DialContext: (&net.Dialer{
			Timeout:   10 * time.Second,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		MaxIdleConns:        cfg.Fetcher.MaxIdleConns,
		MaxIdleConnsPerHost: cfg.Fetcher.MaxIdleConns / 2,
		IdleConnTimeout:     cfg.Fetcher.IdleConnTimeout,
		TLSHandshakeTimeout: 10 * time.Second,
		DisableCompression:  true, // decoded below, brotli included
	}

	f := &HTTPFetcher{
		client: &http.Client{
			Transport: transport,
			Jar:       jar,
		},
		profile: NewHeaderProfile(&cfg.Fetcher),
		timeout: cfg.Crawl.RequestTimeout,
		maxBody: cfg.Fetcher.MaxBodySize,
		logger:  logger.With("component", "http_fetcher"),
	}
	for _, opt := range opts {
		opt(f)
	}
	if f.pacing == nil {
		f.pacing = NewPacingClock(cfg.Fetcher.MinDelay, cfg.Fetcher.MaxDelay)
	}

	return f, nil
}

// Client exposes the underlying client so tests can swap its transport.
func (f *HTTPFetcher) Client() *http.Client {
	return f.client
}

// Fetch waits for the pacing slot, chooses a relay and GETs the page.
func (f *HTTPFetcher) Fetch(ctx context.Context, req *types.Request) (*types.Response, error) {
	waited, err := f.pacing.Wait(ctx)
	if err != nil {
		return nil, &types.FetchError{URL: req.URLString(), Kind: types.FetchNetwork, Err: err}
	}
	f.metrics.ObservePacing(waited)
	if waited > 0 {
		f.logger.Debug("fetch too fast, slept", "sleep", waited, "url", req.URLString())
	}

	var relay *url.URL
	if f.proxies != nil {
		ep, err := f.proxies.Choose()
		if err != nil {
			f.metrics.IncProxyEmpty()
			return nil, fmt.Errorf("choose proxy for %s: %w", req.URLString(), err)
		}
		f.metrics.IncProxyChosen()
		relay = ep.URL()
		f.logger.Debug("using proxy", "proxy", ep.Addr(), "url", req.URLString())
	}

	if f.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, f.timeout)
		defer cancel()
	}
	if relay != nil {
		ctx = context.WithValue(ctx, proxyKey{}, relay)
	}

	resp, err := f.do(ctx, req, relay)
	if err != nil {
		f.metrics.ObserveFetch(req.Kind, outcomeOf(err), 0)
		return nil, err
	}
	f.metrics.ObserveFetch(req.Kind, "ok", resp.FetchDuration)

	f.logger.Debug("fetch complete",
		"url", req.URLString(),
		"status", resp.StatusCode,
		"size", len(resp.Body),
		"duration", resp.FetchDuration,
	)
	return resp, nil
}

func (f *HTTPFetcher) do(ctx context.Context, req *types.Request, relay *url.URL) (*types.Response, error) {
	proxyStr := ""
	if relay != nil {
		proxyStr = relay.Host
	}
	fail := func(kind types.FetchKind, status int, err error) error {
		return &types.FetchError{URL: req.URLString(), Kind: kind, StatusCode: status, Proxy: proxyStr, Err: err}
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, req.URLString(), nil)
	if err != nil {
		return nil, fail(types.FetchNetwork, 0, err)
	}
	f.profile.Apply(httpReq.Header, req.Referrer)

	start := time.Now()
	httpResp, err := f.client.Do(httpReq)
	if err != nil {
		return nil, fail(types.FetchNetwork, 0, err)
	}
	defer httpResp.Body.Close()

	if httpResp.StatusCode < 200 || httpResp.StatusCode > 299 {
		snippet, _ := io.ReadAll(io.LimitReader(httpResp.Body, 512))
		return nil, fail(types.FetchHTTPStatus, httpResp.StatusCode,
			fmt.Errorf("HTTP %d: %s", httpResp.StatusCode, strings.TrimSpace(string(snippet))))
	}

	contentType := httpResp.Header.Get("Content-Type")
	if !isTextual(contentType) {
		return nil, fail(types.FetchDecodeText, httpResp.StatusCode, fmt.Errorf("non-text content type %q", contentType))
	}

	reader, err := decompressReader(httpResp, httpResp.Body)
	if err != nil {
		return nil, fail(types.FetchDecodeText, httpResp.StatusCode, err)
	}
	reader, err = charset.NewReader(reader, contentType)
	if err != nil {
		return nil, fail(types.FetchDecodeText, httpResp.StatusCode, fmt.Errorf("charset: %w", err))
	}

	// One byte past the limit tells a full page from a cut one.
	if f.maxBody > 0 {
		reader = io.LimitReader(reader, f.maxBody+1)
	}
	body, err := io.ReadAll(reader)
	if err != nil {
		return nil, fail(types.FetchDecodeText, httpResp.StatusCode, fmt.Errorf("read body: %w", err))
	}
	if f.maxBody > 0 && int64(len(body)) > f.maxBody {
		return nil, fail(types.FetchDecodeText, httpResp.StatusCode,
			fmt.Errorf("%w: over %d bytes", types.ErrBodyTooLarge, f.maxBody))
	}
	if len(body) == 0 {
		return nil, fail(types.FetchDecodeText, httpResp.StatusCode, types.ErrEmptyResponse)
	}

	resp := types.NewResponse(req, httpResp, body, time.Since(start))
	resp.Proxy = proxyStr
	return resp, nil
}

// Close releases resources.
func (f *HTTPFetcher) Close() error {
	f.client.CloseIdleConnections()
	return nil
}

// Type returns the fetcher type identifier.
func (f *HTTPFetcher) Type() string {
	return "http"
}

func proxyFromContext(req *http.Request) (*url.URL, error) {
	if u, ok := req.Context().Value(proxyKey{}).(*url.URL); ok {
		return u, nil
	}
	return nil, nil
}

// isTextual accepts a missing content type and any text, HTML, XML or
// JSON media type.
func isTextual(contentType string) bool {
	if contentType == "" {
		return true
	}
	mediaType, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		return false
	}
	switch {
	case strings.HasPrefix(mediaType, "text/"):
		return true
	case strings.HasSuffix(mediaType, "+xml"), strings.HasSuffix(mediaType, "/xml"):
		return true
	case mediaType == "application/json", mediaType == "application/javascript":
		return true
	}
	return false
}

// decompressReader wraps a reader with the appropriate decompressor.
// Handles gzip, deflate, and brotli (br) encodings.
func decompressReader(resp *http.Response, reader io.Reader) (io.Reader, error) {
	switch strings.ToLower(strings.TrimSpace(resp.Header.Get("Content-Encoding"))) {
	case "gzip":
		return gzip.NewReader(reader)
	case "deflate":
		return flate.NewReader(reader), nil
	case "br":
		return brotli.NewReader(reader), nil
	case "", "identity":
		return reader, nil
	default:
		return nil, fmt.Errorf("unsupported content encoding %q", resp.Header.Get("Content-Encoding"))
	}
}

func outcomeOf(err error) string {
	if kind, ok := types.FetchKindOf(err); ok {
		return kind.String()
	}
	return "error"
}
