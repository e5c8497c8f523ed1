package config

import (
	"time"
)

// Version is set at build time via ldflags.
var Version = "dev"

// Config is the root configuration for rosario.
type Config struct {
	Crawl   CrawlConfig   `mapstructure:"crawl"   yaml:"crawl"`
	Fetcher FetcherConfig `mapstructure:"fetcher" yaml:"fetcher"`
	Proxy   ProxyConfig   `mapstructure:"proxy"   yaml:"proxy"`
	Storage StorageConfig `mapstructure:"storage" yaml:"storage"`
	Logging LoggingConfig `mapstructure:"logging" yaml:"logging"`
	Metrics MetricsConfig `mapstructure:"metrics" yaml:"metrics"`
}

// CrawlConfig controls the category -> page -> book traversal.
type CrawlConfig struct {
	Host                string        `mapstructure:"host"                   yaml:"host"`
	RootURL             string        `mapstructure:"root_url"               yaml:"root_url"`
	BooksPerPage        int           `mapstructure:"books_per_page"         yaml:"books_per_page"`
	MaxCategories       int           `mapstructure:"max_categories"         yaml:"max_categories"`
	MaxPagesPerCategory int           `mapstructure:"max_pages_per_category" yaml:"max_pages_per_category"`
	RequestTimeout      time.Duration `mapstructure:"request_timeout"        yaml:"request_timeout"`
}

// FetcherConfig controls the paced page fetcher.
type FetcherConfig struct {
	Type            string        `mapstructure:"type"              yaml:"type"`
	MinDelay        time.Duration `mapstructure:"min_delay"         yaml:"min_delay"`
	MaxDelay        time.Duration `mapstructure:"max_delay"         yaml:"max_delay"`
	MaxBodySize     int64         `mapstructure:"max_body_size"     yaml:"max_body_size"`
	IdleConnTimeout time.Duration `mapstructure:"idle_conn_timeout" yaml:"idle_conn_timeout"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"    yaml:"max_idle_conns"`
	UserAgent       string        `mapstructure:"user_agent"        yaml:"user_agent"`
	AcceptLanguage  string        `mapstructure:"accept_language"   yaml:"accept_language"`
	UseProxy        bool          `mapstructure:"use_proxy"         yaml:"use_proxy"`
}

// ProxyConfig controls the relay pool and its offline refresh.
type ProxyConfig struct {
	File            string        `mapstructure:"file"             yaml:"file"`
	BackupSuffix    string        `mapstructure:"backup_suffix"    yaml:"backup_suffix"`
	TestURL         string        `mapstructure:"test_url"         yaml:"test_url"`
	BlockMarker     string        `mapstructure:"block_marker"     yaml:"block_marker"`
	ValidateTimeout time.Duration `mapstructure:"validate_timeout" yaml:"validate_timeout"`
	ValidateWorkers int           `mapstructure:"validate_workers" yaml:"validate_workers"`
	ValidateRate    float64       `mapstructure:"validate_rate"    yaml:"validate_rate"`
	Sources         []string      `mapstructure:"sources"          yaml:"sources"`
	SourcePages     int           `mapstructure:"source_pages"     yaml:"source_pages"`
	Render          bool          `mapstructure:"render"           yaml:"render"`
}

// StorageConfig controls where book records go.
type StorageConfig struct {
	Type            string `mapstructure:"type"             yaml:"type"`
	Dir             string `mapstructure:"dir"              yaml:"dir"`
	JSONLPath       string `mapstructure:"jsonl_path"       yaml:"jsonl_path"`
	MongoURI        string `mapstructure:"mongo_uri"        yaml:"mongo_uri"`
	MongoDatabase   string `mapstructure:"mongo_database"   yaml:"mongo_database"`
	MongoCollection string `mapstructure:"mongo_collection" yaml:"mongo_collection"`
	CacheSize       int    `mapstructure:"cache_size"       yaml:"cache_size"`
}

// LoggingConfig controls logging behavior.
type LoggingConfig struct {
	Level      string `mapstructure:"level"        yaml:"level"`
	Format     string `mapstructure:"format"       yaml:"format"`
	File       string `mapstructure:"file"         yaml:"file"`
	MaxSizeMB  int    `mapstructure:"max_size_mb"  yaml:"max_size_mb"`
	MaxBackups int    `mapstructure:"max_backups"  yaml:"max_backups"`
	MaxAgeDays int    `mapstructure:"max_age_days" yaml:"max_age_days"`
}

// MetricsConfig controls Prometheus metrics.
type MetricsConfig struct {
	Enabled bool   `mapstructure:"enabled" yaml:"enabled"`
	Port    int    `mapstructure:"port"    yaml:"port"`
	Path    string `mapstructure:"path"    yaml:"path"`
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		Crawl: CrawlConfig{
			Host:           "https://book.douban.com",
			RootURL:        "https://book.douban.com/tag/",
			BooksPerPage:   20,
			RequestTimeout: 15 * time.Second,
		},
		Fetcher: FetcherConfig{
			Type:            "http",
			MinDelay:        2 * time.Second,
			MaxDelay:        5 * time.Second,
			MaxBodySize:     10 * 1024 * 1024, // 10MB
			IdleConnTimeout: 90 * time.Second,
			MaxIdleConns:    16,
			UserAgent:       "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/81.0.4044.138 Safari/537.36",
			AcceptLanguage:  "zh-CN,zh;q=0.9",
			UseProxy:        true,
		},
		Proxy: ProxyConfig{
			File:            "proxy",
			BackupSuffix:    ".old",
			TestURL:         "https://book.douban.com",
			BlockMarker:     "sec.douban.com",
			ValidateTimeout: 3 * time.Second,
			ValidateWorkers: 16,
			ValidateRate:    20,
			Sources:         []string{"kuaidaili", "xicidaili"},
			SourcePages:     5,
		},
		Storage: StorageConfig{
			Type:            "file",
			Dir:             "books",
			JSONLPath:       "books.jsonl",
			MongoDatabase:   "rosario",
			MongoCollection: "books",
			CacheSize:       4096,
		},
		Logging: LoggingConfig{
			Level:      "info",
			Format:     "text",
			File:       "logs/rosario.log",
			MaxSizeMB:  50,
			MaxBackups: 5,
			MaxAgeDays: 30,
		},
		Metrics: MetricsConfig{
			Enabled: false,
			Port:    9090,
			Path:    "/metrics",
		},
	}
}
