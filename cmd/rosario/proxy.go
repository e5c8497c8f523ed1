package main

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/shadowDragonCloud/rosario/internal/fetcher"
	"github.com/shadowDragonCloud/rosario/internal/proxy"
)

var sourcePages int

// proxyCmd creates the "proxy" subcommand.
func proxyCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "proxy",
		Short: "Rebuild the proxy file",
		Long: `Scrape the configured public proxy listings, check every candidate
against the validation URL and rewrite the proxy file with the ones that
pass. The previous file is kept with the backup suffix.`,
		Args: cobra.NoArgs,
		RunE: runProxy,
	}

	cmd.Flags().IntVar(&sourcePages, "pages", 0, "listing pages per source (0 = use config)")

	return cmd
}

func runProxy(cmd *cobra.Command, args []string) error {
	cfg, logger, closer, err := loadConfig()
	if err != nil {
		return err
	}
	defer closer.Close()

	if sourcePages > 0 {
		cfg.Proxy.SourcePages = sourcePages
	}

	var sources []proxy.Source
	for _, name := range cfg.Proxy.Sources {
		src, err := proxy.NewSource(name, logger)
		if err != nil {
			return err
		}
		sources = append(sources, src)
	}

	// Listings are fetched direct; the relays are what is being rebuilt.
	var pageFetcher fetcher.Fetcher
	if cfg.Proxy.Render {
		pageFetcher, err = fetcher.NewBrowserFetcher(cfg, logger)
	} else {
		pageFetcher, err = fetcher.NewHTTPFetcher(cfg, logger)
	}
	if err != nil {
		return fmt.Errorf("create listing fetcher: %w", err)
	}
	defer pageFetcher.Close()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	refresher := proxy.NewRefresher(
		&cfg.Proxy,
		proxy.NewDiscoverer(pageFetcher, sources, cfg.Proxy.SourcePages, logger),
		proxy.NewValidator(cfg, logger),
		logger,
	)
	accepted, err := refresher.Run(ctx)
	if err != nil {
		return fmt.Errorf("refresh proxies: %w", err)
	}

	fmt.Printf("\nProxy file %s rewritten with %d relays\n", cfg.Proxy.File, len(accepted))
	return nil
}
