// Package config loads the application configuration from an INI file.
package config

import (
	"fmt"
	"net/url"
	"time"

	"gopkg.in/ini.v1"
)

// SQLServer holds the Azure SQL destination and the reporting query.
// The connection authenticates with the operator's Azure AD identity;
// no credentials live in the file.
type SQLServer struct {
	Server   string `ini:"server"`
	Database string `ini:"database"`
	Table    string `ini:"table"`
	Query    string `ini:"query"`
}

// MongoDB holds the message-store destination for the sync flow.
type MongoDB struct {
	URI        string `ini:"uri"`
	Database   string `ini:"database"`
	Collection string `ini:"collection"`
}

// Scraper holds browser attachment and grid traversal settings.
type Scraper struct {
	Endpoint       string        `ini:"endpoint"`
	ListingURL     string        `ini:"listing_url"`
	CheckpointFile string        `ini:"checkpoint_file"`
	MaxRows        int           `ini:"max_rows"`
	ScrollAmount   int           `ini:"scroll_amount"`
	ScrollWait     time.Duration `ini:"scroll_wait"`
	SearchWait     time.Duration `ini:"search_wait"`
	BatchInterval  int           `ini:"batch_interval"`
	StallLimit     int           `ini:"stall_limit"`
	PreScrollLimit int           `ini:"pre_scroll_limit"`
}

// Loader holds CSV upload settings.
type Loader struct {
	BatchSize int `ini:"batch_size"`
}

// Config is the full application configuration. It is loaded once at
// startup and passed explicitly to each component.
type Config struct {
	SQLServer SQLServer
	MongoDB   MongoDB
	Scraper   Scraper
	Loader    Loader
}

// DefaultConfig returns the built-in settings for the fixed target site.
func DefaultConfig() *Config {
	return &Config{
		Scraper: Scraper{
			Endpoint:       "http://localhost:9222",
			ListingURL:     "https://checkmydeck.ofdgn.com/all-games?sort=deck-compat-last-change-desc",
			CheckpointFile: "scraped_data.csv",
			MaxRows:        200000,
			ScrollAmount:   500,
			ScrollWait:     10 * time.Second,
			SearchWait:     3 * time.Second,
			BatchInterval:  10,
			StallLimit:     3,
			PreScrollLimit: 100,
		},
		Loader: Loader{
			BatchSize: 50,
		},
	}
}

// Load reads the INI file at path on top of the defaults and validates the
// result. Section and key names match the original config.ini layout.
func Load(path string) (*Config, error) {
	file, err := ini.Load(path)
	if err != nil {
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}

	cfg := DefaultConfig()
	sections := map[string]interface{}{
		"sqlserver": &cfg.SQLServer,
		"mongodb":   &cfg.MongoDB,
		"scraper":   &cfg.Scraper,
		"loader":    &cfg.Loader,
	}
	for name, target := range sections {
		if !file.HasSection(name) {
			continue
		}
		if err := file.Section(name).MapTo(target); err != nil {
			return nil, fmt.Errorf("parse [%s] section: %w", name, err)
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate ensures every required key is present and coherent before any
// connection attempt is made.
func (c *Config) Validate() error {
	if c.SQLServer.Server == "" {
		return fmt.Errorf("[sqlserver] server is required")
	}
	if c.SQLServer.Database == "" {
		return fmt.Errorf("[sqlserver] database is required")
	}
	if c.SQLServer.Table == "" {
		return fmt.Errorf("[sqlserver] table is required")
	}
	if c.SQLServer.Query == "" {
		return fmt.Errorf("[sqlserver] query is required")
	}

	if c.MongoDB.URI == "" {
		return fmt.Errorf("[mongodb] uri is required")
	}
	if c.MongoDB.Database == "" {
		return fmt.Errorf("[mongodb] database is required")
	}
	if c.MongoDB.Collection == "" {
		return fmt.Errorf("[mongodb] collection is required")
	}

	if c.Scraper.Endpoint == "" {
		return fmt.Errorf("[scraper] endpoint is required")
	}
	parsed, err := url.Parse(c.Scraper.Endpoint)
	if err != nil || parsed.Host == "" {
		return fmt.Errorf("[scraper] endpoint must be a URL with a host")
	}
	if c.Scraper.ListingURL == "" {
		return fmt.Errorf("[scraper] listing_url is required")
	}
	if c.Scraper.CheckpointFile == "" {
		return fmt.Errorf("[scraper] checkpoint_file is required")
	}
	if c.Scraper.MaxRows <= 0 {
		return fmt.Errorf("[scraper] max_rows must be positive")
	}
	if c.Scraper.ScrollAmount <= 0 {
		return fmt.Errorf("[scraper] scroll_amount must be positive")
	}
	if c.Scraper.ScrollWait < 0 {
		return fmt.Errorf("[scraper] scroll_wait cannot be negative")
	}
	if c.Scraper.SearchWait < 0 {
		return fmt.Errorf("[scraper] search_wait cannot be negative")
	}
	if c.Scraper.BatchInterval <= 0 {
		return fmt.Errorf("[scraper] batch_interval must be positive")
	}
	if c.Scraper.StallLimit <= 0 {
		return fmt.Errorf("[scraper] stall_limit must be positive")
	}
	if c.Scraper.PreScrollLimit <= 0 {
		return fmt.Errorf("[scraper] pre_scroll_limit must be positive")
	}

	if c.Loader.BatchSize <= 0 {
		return fmt.Errorf("[loader] batch_size must be positive")
	}

	return nil
}
