package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/shadowDragonCloud/rosario/internal/config"
	"github.com/shadowDragonCloud/rosario/internal/engine"
	"github.com/shadowDragonCloud/rosario/internal/fetcher"
	"github.com/shadowDragonCloud/rosario/internal/observability"
	"github.com/shadowDragonCloud/rosario/internal/parser"
	"github.com/shadowDragonCloud/rosario/internal/proxy"
	"github.com/shadowDragonCloud/rosario/internal/storage"
)

var (
	maxCategories int
	maxPages      int
	storageType   string
	fetcherType   string
	useProxy      bool
)

// crawlCmd creates the "crawl" subcommand.
func crawlCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "crawl",
		Short: "Crawl the book catalog",
		Long: `Fetch the tag index, then every listing page of every category, then
every book not already in storage. Requests are paced one at a time and,
with --use-proxy, each one goes through a relay from the proxy file.`,
		Args: cobra.NoArgs,
		RunE: runCrawl,
	}

	cmd.Flags().IntVar(&maxCategories, "max-categories", -1, "stop after this many categories (0 = all, -1 = use config)")
	cmd.Flags().IntVar(&maxPages, "max-pages", -1, "listing pages per category (0 = all, -1 = use config)")
	cmd.Flags().StringVarP(&storageType, "storage", "s", "", "storage backend: file, jsonl, mongo, multi")
	cmd.Flags().StringVar(&fetcherType, "fetcher", "", "page fetcher: http, browser")
	cmd.Flags().BoolVar(&useProxy, "use-proxy", false, "route requests through the relay pool")

	return cmd
}

func applyCrawlOverrides(cmd *cobra.Command, cfg *config.Config) {
	if maxCategories >= 0 {
		cfg.Crawl.MaxCategories = maxCategories
	}
	if maxPages >= 0 {
		cfg.Crawl.MaxPagesPerCategory = maxPages
	}
	if storageType != "" {
		cfg.Storage.Type = storageType
	}
	if fetcherType != "" {
		cfg.Fetcher.Type = fetcherType
	}
	if cmd.Flags().Changed("use-proxy") {
		cfg.Fetcher.UseProxy = useProxy
	}
}

func runCrawl(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	applyCrawlOverrides(cmd, cfg)
	if err := config.Validate(cfg); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	logger, closer, err := observability.NewLogger(cfg.Logging, verbose)
	if err != nil {
		return fmt.Errorf("create logger: %w", err)
	}
	defer closer.Close()

	var metrics *observability.Metrics
	if cfg.Metrics.Enabled {
		metrics = observability.NewMetrics(logger)
		srv := metrics.StartServer(cfg.Metrics.Port, cfg.Metrics.Path)
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			srv.Shutdown(shutdownCtx)
		}()
	}

	store, err := storage.New(&cfg.Storage, logger)
	if err != nil {
		return fmt.Errorf("create storage: %w", err)
	}
	defer store.Close()

	var pool *proxy.Pool
	if cfg.Fetcher.UseProxy {
		pool = proxy.NewPool(logger)
		if err := pool.LoadFile(cfg.Proxy.File); err != nil {
			return fmt.Errorf("load proxy file: %w", err)
		}
		logger.Info("proxy pool loaded", "path", cfg.Proxy.File, "proxies", pool.Len())
	}

	f, err := newPageFetcher(cfg, pool, metrics, logger)
	if err != nil {
		return err
	}
	defer f.Close()

	crawler := engine.New(cfg.Crawl, f, parser.NewExtractor(logger, metrics), store, metrics, logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	logger.Info("starting crawl",
		"root", cfg.Crawl.RootURL,
		"fetcher", f.Type(),
		"storage", store.Name(),
		"proxy", cfg.Fetcher.UseProxy,
	)

	start := time.Now()
	runErr := crawler.Run(ctx)
	stats := crawler.Stats().Snapshot()

	if errors.Is(runErr, context.Canceled) {
		logger.Info("crawl interrupted", "stats", stats)
	} else if runErr != nil {
		return fmt.Errorf("crawl: %w", runErr)
	}

	fmt.Fprintf(os.Stdout, "\nCrawl finished in %s\n", time.Since(start).Round(time.Millisecond))
	fmt.Fprintf(os.Stdout, "   Categories: %v crawled, %v skipped\n", stats["categories"], stats["categories_skipped"])
	fmt.Fprintf(os.Stdout, "   Pages:      %v fetched, %v failed\n", stats["pages_fetched"], stats["pages_failed"])
	fmt.Fprintf(os.Stdout, "   Books:      %v stored, %v already stored, %v failed\n",
		stats["books_stored"], stats["books_skipped"], stats["books_failed"])
	return nil
}

var errBrowserWithProxies = errors.New("the browser fetcher cannot rotate relays per request; use fetcher.type http with proxies")

// newPageFetcher builds the configured fetcher. pool may be nil; every
// fetch through a pool chooses its own relay, which only the HTTP fetcher
// can do.
func newPageFetcher(cfg *config.Config, pool *proxy.Pool, metrics *observability.Metrics, logger *slog.Logger) (fetcher.Fetcher, error) {
	switch cfg.Fetcher.Type {
	case "browser":
		if pool != nil {
			return nil, errBrowserWithProxies
		}
		bf, err := fetcher.NewBrowserFetcher(cfg, logger, fetcher.WithBrowserMetrics(metrics))
		if err != nil {
			return nil, fmt.Errorf("create browser fetcher: %w", err)
		}
		return bf, nil
	default:
		opts := []fetcher.HTTPOption{fetcher.WithMetrics(metrics)}
		if pool != nil {
			opts = append(opts, fetcher.WithProxies(pool))
		}
		hf, err := fetcher.NewHTTPFetcher(cfg, logger, opts...)
		if err != nil {
			return nil, fmt.Errorf("create http fetcher: %w", err)
		}
		return hf, nil
	}
}
