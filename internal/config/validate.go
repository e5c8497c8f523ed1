package config

import (
	"fmt"
	"net/url"
)

// Validate checks the configuration for invalid values.
func Validate(cfg *Config) error {
	if err := ValidateURL(cfg.Crawl.Host); err != nil {
		return fmt.Errorf("crawl.host: %w", err)
	}
	if err := ValidateURL(cfg.Crawl.RootURL); err != nil {
		return fmt.Errorf("crawl.root_url: %w", err)
	}
	if cfg.Crawl.BooksPerPage < 1 {
		return fmt.Errorf("crawl.books_per_page must be >= 1, got %d", cfg.Crawl.BooksPerPage)
	}
	if cfg.Crawl.MaxCategories < 0 {
		return fmt.Errorf("crawl.max_categories must be >= 0, got %d", cfg.Crawl.MaxCategories)
	}
	if cfg.Crawl.MaxPagesPerCategory < 0 {
		return fmt.Errorf("crawl.max_pages_per_category must be >= 0, got %d", cfg.Crawl.MaxPagesPerCategory)
	}
	if cfg.Crawl.RequestTimeout <= 0 {
		return fmt.Errorf("crawl.request_timeout must be > 0")
	}

	if cfg.Fetcher.Type != "http" && cfg.Fetcher.Type != "browser" {
		return fmt.Errorf("fetcher.type must be 'http' or 'browser', got %q", cfg.Fetcher.Type)
	}
	if cfg.Fetcher.Type == "browser" && cfg.Fetcher.UseProxy {
		return fmt.Errorf("fetcher.use_proxy requires fetcher.type 'http'; the browser fetcher always fetches direct")
	}
	if cfg.Fetcher.MinDelay < 0 {
		return fmt.Errorf("fetcher.min_delay must be >= 0")
	}
	if cfg.Fetcher.MaxDelay < cfg.Fetcher.MinDelay {
		return fmt.Errorf("fetcher.max_delay (%s) must be >= fetcher.min_delay (%s)", cfg.Fetcher.MaxDelay, cfg.Fetcher.MinDelay)
	}
	if cfg.Fetcher.MaxBodySize <= 0 {
		return fmt.Errorf("fetcher.max_body_size must be > 0")
	}
	if cfg.Fetcher.UserAgent == "" {
		return fmt.Errorf("fetcher.user_agent must not be empty")
	}

	if cfg.Proxy.File == "" {
		return fmt.Errorf("proxy.file must not be empty")
	}
	if cfg.Proxy.BackupSuffix == "" {
		return fmt.Errorf("proxy.backup_suffix must not be empty")
	}
	if err := ValidateURL(cfg.Proxy.TestURL); err != nil {
		return fmt.Errorf("proxy.test_url: %w", err)
	}
	if cfg.Proxy.ValidateTimeout <= 0 {
		return fmt.Errorf("proxy.validate_timeout must be > 0")
	}
	if cfg.Proxy.ValidateWorkers < 1 {
		return fmt.Errorf("proxy.validate_workers must be >= 1, got %d", cfg.Proxy.ValidateWorkers)
	}
	if cfg.Proxy.ValidateRate <= 0 {
		return fmt.Errorf("proxy.validate_rate must be > 0")
	}
	validSources := map[string]bool{"kuaidaili": true, "xicidaili": true}
	for _, s := range cfg.Proxy.Sources {
		if !validSources[s] {
			return fmt.Errorf("proxy.sources: unknown source %q (valid: kuaidaili, xicidaili)", s)
		}
	}
	if cfg.Proxy.SourcePages < 1 {
		return fmt.Errorf("proxy.source_pages must be >= 1, got %d", cfg.Proxy.SourcePages)
	}

	validStorageTypes := map[string]bool{
		"file": true, "jsonl": true, "mongo": true, "multi": true,
	}
	if !validStorageTypes[cfg.Storage.Type] {
		return fmt.Errorf("storage.type %q is not supported (valid: file, jsonl, mongo, multi)", cfg.Storage.Type)
	}
	if (cfg.Storage.Type == "mongo" || cfg.Storage.Type == "multi") && cfg.Storage.MongoURI == "" {
		return fmt.Errorf("storage.mongo_uri is required for storage.type %q", cfg.Storage.Type)
	}
	if cfg.Storage.Dir == "" {
		return fmt.Errorf("storage.dir must not be empty")
	}

	validLogLevels := map[string]bool{
		"debug": true, "info": true, "warn": true, "error": true,
	}
	if !validLogLevels[cfg.Logging.Level] {
		return fmt.Errorf("logging.level must be debug/info/warn/error, got %q", cfg.Logging.Level)
	}
	if cfg.Logging.Format != "text" && cfg.Logging.Format != "json" {
		return fmt.Errorf("logging.format must be 'text' or 'json', got %q", cfg.Logging.Format)
	}

	if cfg.Metrics.Enabled {
		if cfg.Metrics.Port < 1 || cfg.Metrics.Port > 65535 {
			return fmt.Errorf("metrics.port must be 1-65535, got %d", cfg.Metrics.Port)
		}
	}

	return nil
}

// ValidateURL checks if a URL string is an absolute http(s) URL.
func ValidateURL(rawURL string) error {
	u, err := url.Parse(rawURL)
	if err != nil {
		return fmt.Errorf("invalid URL: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("URL scheme must be http or https, got %q", u.Scheme)
	}
	if u.Host == "" {
		return fmt.Errorf("URL must have a host")
	}
	return nil
}
