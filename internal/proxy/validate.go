package proxy

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"github.com/shadowDragonCloud/rosario/internal/config"
	"github.com/shadowDragonCloud/rosario/internal/types"
)

// maxProbeBody bounds how much of a probe response is scanned for the
// block marker.
const maxProbeBody = 2 << 20

var (
	errBlocked   = errors.New("block page returned")
	errNotOK     = errors.New("status is not 200")
	errNoTestURL = errors.New("no test URL configured")
)

// Validator probes candidate relays against a known-good page.
type Validator struct {
	testURL   string
	marker    string
	userAgent string
	timeout   time.Duration
	workers   int
	limiter   *rate.Limiter
	logger    *slog.Logger
}

// NewValidator creates a Validator from the proxy and fetcher config.
func NewValidator(cfg *config.Config, logger *slog.Logger) *Validator {
	workers := cfg.Proxy.ValidateWorkers
	if workers < 1 {
		workers = 1
	}
	burst := int(cfg.Proxy.ValidateRate)
	if burst < 1 {
		burst = 1
	}
	return &Validator{
		testURL:   cfg.Proxy.TestURL,
		marker:    cfg.Proxy.BlockMarker,
		userAgent: cfg.Fetcher.UserAgent,
		timeout:   cfg.Proxy.ValidateTimeout,
		workers:   workers,
		limiter:   rate.NewLimiter(rate.Limit(cfg.Proxy.ValidateRate), burst),
		logger:    logger.With("component", "proxy_validator"),
	}
}

// Check probes the test URL through ep. A nil error means the relay is
// usable: the probe returned exactly 200 and no block marker.
func (v *Validator) Check(ctx context.Context, ep types.ProxyEndpoint) error {
	if v.testURL == "" {
		return errNoTestURL
	}

	client := &http.Client{
		Timeout: v.timeout,
		Transport: &http.Transport{
			Proxy:             http.ProxyURL(ep.URL()),
			DisableKeepAlives: true,
		},
	}
	defer client.CloseIdleConnections()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, v.testURL, nil)
	if err != nil {
		return err
	}
	if v.userAgent != "" {
		req.Header.Set("User-Agent", v.userAgent)
	}

	resp, err := client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("%w: %d", errNotOK, resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxProbeBody))
	if err != nil {
		return fmt.Errorf("read probe body: %w", err)
	}
	if v.marker != "" && strings.Contains(string(body), v.marker) {
		return errBlocked
	}
	return nil
}

// Validate probes every candidate independently and returns the accepted
// subset in input order. A failing candidate never affects the others.
func (v *Validator) Validate(ctx context.Context, candidates []types.ProxyEndpoint) []types.ProxyEndpoint {
	accepted := make([]bool, len(candidates))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(v.workers)

	for i, ep := range candidates {
		g.Go(func() error {
			if err := v.limiter.Wait(gctx); err != nil {
				return nil
			}
			if err := v.Check(gctx, ep); err != nil {
				v.logger.Debug("proxy rejected", "proxy", ep.Addr(), "source", ep.Source, "error", err)
				return nil
			}
			v.logger.Debug("proxy accepted", "proxy", ep.Addr(), "source", ep.Source)
			accepted[i] = true
			return nil
		})
	}
	_ = g.Wait()

	out := make([]types.ProxyEndpoint, 0, len(candidates))
	for i, ok := range accepted {
		if ok {
			out = append(out, candidates[i])
		}
	}

	v.logger.Info("proxy validation complete", "candidates", len(candidates), "accepted", len(out))
	return out
}
