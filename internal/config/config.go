// Package config handles configuration loading for the HearthMap tile server.
package config

import (
	"fmt"
	"net/url"
	"os"

	"gopkg.in/yaml.v3"
)

// Config represents the server configuration.
type Config struct {
	Server   ServerConfig   `yaml:"server"`
	Database DatabaseConfig `yaml:"database"`
	Style    StyleConfig    `yaml:"style"`
	Tiles    TilesConfig    `yaml:"tiles"`
	Cache    CacheConfig    `yaml:"cache"`
	Logging  LoggingConfig  `yaml:"logging"`
}

// ServerConfig contains HTTP server settings.
type ServerConfig struct {
	Port                   int      `yaml:"port"`
	CORSOrigins            []string `yaml:"cors_origins"`
	RateLimitRequests      int      `yaml:"rate_limit_requests"` // per window per IP, 0 disables
	RateLimitWindowSeconds int      `yaml:"rate_limit_window_seconds"`
}

// DatabaseConfig contains the property store settings.
type DatabaseConfig struct {
	Driver string `yaml:"driver"` // "postgres" or "sqlite"
	DSN    string `yaml:"dsn"`
}

// StyleConfig contains base-style and map-asset settings.
type StyleConfig struct {
	UpstreamURL     string `yaml:"upstream_url"`
	CacheTTLSeconds int    `yaml:"cache_ttl_seconds"`
	SpritesDir      string `yaml:"sprites_dir"`
	FontsDir        string `yaml:"fonts_dir"`
}

// TilesConfig contains tile generation settings. ClusterMaxZoom is the single
// source of truth for the clustering cutover: tiles below it carry clusters,
// tiles at or above it carry individual points. The style layer builder reads
// the same field, so the rendered layers can never disagree with the tiles.
type TilesConfig struct {
	ClusterMaxZoom  int     `yaml:"cluster_max_zoom"`
	GridFactor      float64 `yaml:"grid_factor"` // cluster cell as a fraction of tile width
	CacheTTLSeconds int     `yaml:"cache_ttl_seconds"`
	SlowThresholdMS int     `yaml:"slow_threshold_ms"`
}

// CacheConfig contains in-memory cache sizing.
type CacheConfig struct {
	TileSizeMB int `yaml:"tile_size_mb"`
}

// LoggingConfig contains log output settings.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"` // "json" or "console"
}

// Load reads configuration from a YAML file. The file is decoded over the
// defaults, so omitted keys keep their default value while explicitly set
// keys win even when set to zero (a cluster_max_zoom of 0 means "individual
// points at every zoom", not "use the default").
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		// Return default config if file doesn't exist
		return cfg, nil
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Port:                   8080,
			CORSOrigins:            []string{"http://localhost:3000", "http://localhost:5173"},
			RateLimitRequests:      0,
			RateLimitWindowSeconds: 60,
		},
		Database: DatabaseConfig{
			Driver: "sqlite",
			DSN:    "./data/properties.db",
		},
		Style: StyleConfig{
			UpstreamURL:     "https://demotiles.maplibre.org/style.json",
			CacheTTLSeconds: 60,
			SpritesDir:      "./assets/sprites",
			FontsDir:        "./assets/fonts",
		},
		Tiles: TilesConfig{
			ClusterMaxZoom:  17,
			GridFactor:      0.5,
			CacheTTLSeconds: 30,
			SlowThresholdMS: 500,
		},
		Cache: CacheConfig{
			TileSizeMB: 256,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
		},
	}
}

// Validate checks the configuration for values the server cannot run with.
// It is called once at startup so misconfiguration fails fast instead of
// surfacing as malformed tiles or mismatched style layers later.
func (c *Config) Validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port %d out of range", c.Server.Port)
	}
	switch c.Database.Driver {
	case "postgres", "sqlite":
	default:
		return fmt.Errorf("database.driver %q not supported (want postgres or sqlite)", c.Database.Driver)
	}
	if c.Database.DSN == "" {
		return fmt.Errorf("database.dsn is required")
	}
	if c.Style.UpstreamURL == "" {
		return fmt.Errorf("style.upstream_url is required")
	}
	if _, err := url.ParseRequestURI(c.Style.UpstreamURL); err != nil {
		return fmt.Errorf("style.upstream_url: %w", err)
	}
	if c.Style.CacheTTLSeconds <= 0 {
		return fmt.Errorf("style.cache_ttl_seconds must be positive, got %d", c.Style.CacheTTLSeconds)
	}
	if c.Tiles.ClusterMaxZoom < 0 || c.Tiles.ClusterMaxZoom > 22 {
		return fmt.Errorf("tiles.cluster_max_zoom %d out of range [0, 22]", c.Tiles.ClusterMaxZoom)
	}
	// A cell wider than the tile would merge every property in the tile into
	// one cluster and break the per-cell grouping contract.
	if c.Tiles.GridFactor <= 0 || c.Tiles.GridFactor > 1 {
		return fmt.Errorf("tiles.grid_factor %v out of range (0, 1]", c.Tiles.GridFactor)
	}
	if c.Tiles.CacheTTLSeconds <= 0 {
		return fmt.Errorf("tiles.cache_ttl_seconds must be positive, got %d", c.Tiles.CacheTTLSeconds)
	}
	return nil
}
