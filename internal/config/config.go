// Package config loads and validates the monitor configuration.
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"netscope/internal/logging"
)

// Category is one entry in the ordered traffic classification table.
// Earlier entries win when a hostname matches keywords from more than
// one category.
type Category struct {
	Name     string   `yaml:"name"`
	Keywords []string `yaml:"keywords"`
}

// DNSConfig controls reverse DNS resolution.
type DNSConfig struct {
	Timeout   string   `yaml:"timeout"`
	CacheSize int      `yaml:"cache_size"`
	Servers   []string `yaml:"servers"` // empty means use the system resolver config
}

// ProcessConfig controls connection-to-process mapping.
type ProcessConfig struct {
	RefreshEvery  int    `yaml:"refresh_every"`
	LookupTimeout string `yaml:"lookup_timeout"`
	CacheSize     int    `yaml:"cache_size"`
}

// AggregatorConfig controls the in-memory statistics windows.
type AggregatorConfig struct {
	RecentSize     int    `yaml:"recent_size"`
	HistorySize    int    `yaml:"history_size"`
	SampleInterval string `yaml:"sample_interval"`
}

// Config is the top-level configuration for the monitor.
type Config struct {
	Interface  string           `yaml:"interface"`
	Filter     string           `yaml:"filter"`
	QueueSize  int              `yaml:"queue_size"`
	BatchSize  int              `yaml:"batch_size"`
	DBPath     string           `yaml:"db_path"`
	APIAddr    string           `yaml:"api_addr"`
	DNS        DNSConfig        `yaml:"dns"`
	Process    ProcessConfig    `yaml:"process"`
	Aggregator AggregatorConfig `yaml:"aggregator"`
	Categories []Category       `yaml:"categories"`
	Log        logging.Config   `yaml:"log"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Interface: "en0",
		Filter:    "tcp or udp",
		QueueSize: 1000,
		BatchSize: 10,
		DBPath:    "netscope.db",
		APIAddr:   "127.0.0.1:8542",
		DNS: DNSConfig{
			Timeout:   "2s",
			CacheSize: 1000,
		},
		Process: ProcessConfig{
			RefreshEvery:  10,
			LookupTimeout: "2s",
			CacheSize:     500,
		},
		Aggregator: AggregatorConfig{
			RecentSize:     100,
			HistorySize:    100,
			SampleInterval: "1s",
		},
		Categories: DefaultCategories(),
		Log: logging.Config{
			Level:  "info",
			Format: "json",
		},
	}
}

// DefaultCategories returns the built-in classification table. Order
// matters: categories are tried first to last.
func DefaultCategories() []Category {
	return []Category{
		{Name: "Streaming", Keywords: []string{
			"youtube", "youtu.be", "netflix", "hulu", "spotify", "twitch",
			"vimeo", "dailymotion", "soundcloud", "tidal", "pandora",
			"disneyplus", "hbomax", "primevideo", "appletv",
		}},
		{Name: "Social Media", Keywords: []string{
			"facebook", "fb.com", "instagram", "twitter", "tiktok",
			"linkedin", "reddit", "snapchat", "pinterest", "whatsapp",
			"telegram", "discord", "slack",
		}},
		{Name: "Development", Keywords: []string{
			"github", "gitlab", "bitbucket", "stackoverflow", "stackexchange",
			"npmjs", "pypi", "docker", "kubernetes", "jenkins",
		}},
		{Name: "Cloud Services", Keywords: []string{
			"amazonaws", "aws", "azure", "googlecloud", "gcp",
			"cloudflare", "digitalocean", "heroku", "vercel",
		}},
		{Name: "Shopping", Keywords: []string{
			"amazon", "ebay", "shopify", "etsy", "walmart",
			"alibaba", "aliexpress", "target",
		}},
		{Name: "Communication", Keywords: []string{
			"zoom", "teams", "meet.google", "webex", "skype",
			"gotomeeting", "bluejeans",
		}},
		{Name: "Gaming", Keywords: []string{
			"steam", "epicgames", "origin", "battle.net", "playstation",
			"xbox", "nintendo", "twitch",
		}},
		{Name: "News", Keywords: []string{
			"nytimes", "cnn", "bbc", "reuters", "bloomberg",
			"theguardian", "wsj", "washingtonpost",
		}},
		{Name: "Apple Services", Keywords: []string{
			"apple.com", "icloud", "itunes", "appstore", "apple-dns",
		}},
	}
}

// Load reads a YAML config file layered over the defaults. An empty
// path returns the defaults unchanged. Keys absent from the file keep
// their default values.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

func (c *Config) validate() error {
	if c.QueueSize <= 0 {
		return fmt.Errorf("queue_size must be positive, got %d", c.QueueSize)
	}
	if c.BatchSize <= 0 {
		return fmt.Errorf("batch_size must be positive, got %d", c.BatchSize)
	}
	if c.DNS.CacheSize <= 0 {
		return fmt.Errorf("dns.cache_size must be positive, got %d", c.DNS.CacheSize)
	}
	if c.Process.RefreshEvery <= 0 {
		return fmt.Errorf("process.refresh_every must be positive, got %d", c.Process.RefreshEvery)
	}
	if c.Process.CacheSize <= 0 {
		return fmt.Errorf("process.cache_size must be positive, got %d", c.Process.CacheSize)
	}
	for _, field := range []struct {
		name, value string
	}{
		{"dns.timeout", c.DNS.Timeout},
		{"process.lookup_timeout", c.Process.LookupTimeout},
		{"aggregator.sample_interval", c.Aggregator.SampleInterval},
	} {
		if _, err := time.ParseDuration(field.value); err != nil {
			return fmt.Errorf("%s: %w", field.name, err)
		}
	}
	for i, cat := range c.Categories {
		if cat.Name == "" {
			return fmt.Errorf("categories[%d]: name must not be empty", i)
		}
	}
	return nil
}
