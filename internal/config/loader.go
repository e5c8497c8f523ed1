package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
)

// Load reads configuration from file and environment.
// Priority (highest to lowest): env vars > config file > defaults.
// CLI flags are applied by the caller afterwards.
func Load(configPath string) (*Config, error) {
	cfg := DefaultConfig()

	v := viper.New()
	v.SetConfigType("yaml")

	setDefaults(v, cfg)

	v.SetEnvPrefix("ROSARIO")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("rosario")
		v.AddConfigPath(".")
		v.AddConfigPath("./configs")
		home, err := os.UserHomeDir()
		if err == nil {
			v.AddConfigPath(filepath.Join(home, ".rosario"))
		}
	}

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok && configPath != "" {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	return cfg, nil
}

// setDefaults registers default values in viper so env overrides resolve
// for keys absent from the file.
func setDefaults(v *viper.Viper, cfg *Config) {
	v.SetDefault("crawl.host", cfg.Crawl.Host)
	v.SetDefault("crawl.root_url", cfg.Crawl.RootURL)
	v.SetDefault("crawl.books_per_page", cfg.Crawl.BooksPerPage)
	v.SetDefault("crawl.max_categories", cfg.Crawl.MaxCategories)
	v.SetDefault("crawl.max_pages_per_category", cfg.Crawl.MaxPagesPerCategory)
	v.SetDefault("crawl.request_timeout", cfg.Crawl.RequestTimeout)

	v.SetDefault("fetcher.type", cfg.Fetcher.Type)
	v.SetDefault("fetcher.min_delay", cfg.Fetcher.MinDelay)
	v.SetDefault("fetcher.max_delay", cfg.Fetcher.MaxDelay)
	v.SetDefault("fetcher.max_body_size", cfg.Fetcher.MaxBodySize)
	v.SetDefault("fetcher.idle_conn_timeout", cfg.Fetcher.IdleConnTimeout)
	v.SetDefault("fetcher.max_idle_conns", cfg.Fetcher.MaxIdleConns)
	v.SetDefault("fetcher.user_agent", cfg.Fetcher.UserAgent)
	v.SetDefault("fetcher.accept_language", cfg.Fetcher.AcceptLanguage)
	v.SetDefault("fetcher.use_proxy", cfg.Fetcher.UseProxy)

	v.SetDefault("proxy.file", cfg.Proxy.File)
	v.SetDefault("proxy.backup_suffix", cfg.Proxy.BackupSuffix)
	v.SetDefault("proxy.test_url", cfg.Proxy.TestURL)
	v.SetDefault("proxy.block_marker", cfg.Proxy.BlockMarker)
	v.SetDefault("proxy.validate_timeout", cfg.Proxy.ValidateTimeout)
	v.SetDefault("proxy.validate_workers", cfg.Proxy.ValidateWorkers)
	v.SetDefault("proxy.validate_rate", cfg.Proxy.ValidateRate)
	v.SetDefault("proxy.sources", cfg.Proxy.Sources)
	v.SetDefault("proxy.source_pages", cfg.Proxy.SourcePages)
	v.SetDefault("proxy.render", cfg.Proxy.Render)

	v.SetDefault("storage.type", cfg.Storage.Type)
	v.SetDefault("storage.dir", cfg.Storage.Dir)
	v.SetDefault("storage.jsonl_path", cfg.Storage.JSONLPath)
	v.SetDefault("storage.mongo_uri", cfg.Storage.MongoURI)
	v.SetDefault("storage.mongo_database", cfg.Storage.MongoDatabase)
	v.SetDefault("storage.mongo_collection", cfg.Storage.MongoCollection)
	v.SetDefault("storage.cache_size", cfg.Storage.CacheSize)

	v.SetDefault("logging.level", cfg.Logging.Level)
	v.SetDefault("logging.format", cfg.Logging.Format)
	v.SetDefault("logging.file", cfg.Logging.File)
	v.SetDefault("logging.max_size_mb", cfg.Logging.MaxSizeMB)
	v.SetDefault("logging.max_backups", cfg.Logging.MaxBackups)
	v.SetDefault("logging.max_age_days", cfg.Logging.MaxAgeDays)

	v.SetDefault("metrics.enabled", cfg.Metrics.Enabled)
	v.SetDefault("metrics.port", cfg.Metrics.Port)
	v.SetDefault("metrics.path", cfg.Metrics.Path)
}
