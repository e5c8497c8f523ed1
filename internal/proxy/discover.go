package proxy

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/shadowDragonCloud/rosario/internal/config"
	"github.com/shadowDragonCloud/rosario/internal/types"
)

// PageFetcher retrieves one listing page.
type PageFetcher interface {
	Fetch(ctx context.Context, req *types.Request) (*types.Response, error)
}

// Source is a public site listing free relays.
type Source interface {
	// Name identifies the source in logs and on discovered endpoints.
	Name() string

	// PageURLs returns the listing pages to visit, first page first.
	PageURLs(pages int) []string

	// Parse extracts candidate endpoints from one listing page.
	Parse(resp *types.Response) ([]types.ProxyEndpoint, error)
}

// NewSource returns the source registered under name.
func NewSource(name string, logger *slog.Logger) (Source, error) {
	switch name {
	case "kuaidaili":
		return NewKuaidailiSource(logger), nil
	case "xicidaili":
		return NewXicidailiSource(logger), nil
	default:
		return nil, fmt.Errorf("unknown proxy source %q", name)
	}
}

// Discoverer collects candidate endpoints from every configured source.
type Discoverer struct {
	fetcher PageFetcher
	sources []Source
	pages   int
	logger  *slog.Logger
}

// NewDiscoverer creates a Discoverer visiting pages listing pages per source.
func NewDiscoverer(fetcher PageFetcher, sources []Source, pages int, logger *slog.Logger) *Discoverer {
	return &Discoverer{
		fetcher: fetcher,
		sources: sources,
		pages:   pages,
		logger:  logger.With("component", "proxy_discovery"),
	}
}

// Discover visits every page of every source. Failing pages are logged and
// skipped. Endpoints are de-duplicated by address, first sighting wins.
func (d *Discoverer) Discover(ctx context.Context) []types.ProxyEndpoint {
	seen := make(map[string]struct{})
	var out []types.ProxyEndpoint

	for _, src := range d.sources {
		logger := d.logger.With("source", src.Name())
		logger.Info("begin source")

		found := 0
		referrer := ""
		for _, pageURL := range src.PageURLs(d.pages) {
			if ctx.Err() != nil {
				return out
			}

			req, err := types.NewRequest(pageURL, referrer)
			if err != nil {
				logger.Warn("bad page url", "url", pageURL, "error", err)
				continue
			}
			req.Kind = types.PageProxy
			referrer = pageURL

			resp, err := d.fetcher.Fetch(ctx, req)
			if err != nil {
				logger.Warn("listing page fetch failed", "url", pageURL, "error", err)
				continue
			}

			endpoints, err := src.Parse(resp)
			if err != nil {
				logger.Warn("listing page parse failed", "url", pageURL, "error", err)
				continue
			}
			for _, ep := range endpoints {
				if _, dup := seen[ep.Addr()]; dup {
					continue
				}
				seen[ep.Addr()] = struct{}{}
				out = append(out, ep)
				found++
			}
			logger.Debug("listing page parsed", "url", pageURL, "endpoints", len(endpoints))
		}

		logger.Info("source finished", "found", found)
	}

	return out
}

// Refresher runs the offline discovery, validation and persist cycle.
type Refresher struct {
	discoverer *Discoverer
	validator  *Validator
	file       string
	suffix     string
	logger     *slog.Logger
}

// NewRefresher wires a discovery run to the configured proxy file.
func NewRefresher(cfg *config.ProxyConfig, d *Discoverer, v *Validator, logger *slog.Logger) *Refresher {
	return &Refresher{
		discoverer: d,
		validator:  v,
		file:       cfg.File,
		suffix:     cfg.BackupSuffix,
		logger:     logger.With("component", "proxy_refresh"),
	}
}

// Run discovers candidates, keeps the ones that pass validation and
// rewrites the proxy file with them.
func (r *Refresher) Run(ctx context.Context) ([]types.ProxyEndpoint, error) {
	candidates := r.discoverer.Discover(ctx)
	r.logger.Info("discovery finished, validating", "candidates", len(candidates))

	accepted := r.validator.Validate(ctx, candidates)
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	for _, ep := range accepted {
		r.logger.Info("valid proxy", "proxy", ep.Addr(), "scheme", ep.Scheme, "anonymity", ep.Anonymity, "geo", ep.Geo, "source", ep.Source)
	}

	if err := Persist(r.file, r.suffix, accepted); err != nil {
		return accepted, err
	}
	r.logger.Info("proxy file written", "path", r.file, "count", len(accepted))
	return accepted, nil
}
