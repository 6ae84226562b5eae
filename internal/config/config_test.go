package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestLoad_FullFile(t *testing.T) {
	content := `
server:
  port: 9000
  cors_origins: ["https://app.hearthmap.example"]
database:
  driver: postgres
  dsn: "host=localhost dbname=hearthmap sslmode=disable"
style:
  upstream_url: "https://styles.example.com/streets/style.json"
  cache_ttl_seconds: 120
tiles:
  cluster_max_zoom: 15
  grid_factor: 0.25
`
	cfg := loadFromString(t, content)

	if cfg.Server.Port != 9000 {
		t.Errorf("expected port 9000, got %d", cfg.Server.Port)
	}
	if cfg.Database.Driver != "postgres" {
		t.Errorf("expected postgres driver, got %q", cfg.Database.Driver)
	}
	if cfg.Style.CacheTTLSeconds != 120 {
		t.Errorf("expected style TTL 120, got %d", cfg.Style.CacheTTLSeconds)
	}
	if cfg.Tiles.ClusterMaxZoom != 15 {
		t.Errorf("expected cluster max zoom 15, got %d", cfg.Tiles.ClusterMaxZoom)
	}
	if cfg.Tiles.GridFactor != 0.25 {
		t.Errorf("expected grid factor 0.25, got %v", cfg.Tiles.GridFactor)
	}
}

func TestLoad_DefaultsApplied(t *testing.T) {
	content := `
server:
  port: 9000
`
	cfg := loadFromString(t, content)

	if cfg.Server.Port != 9000 {
		t.Errorf("expected port 9000, got %d", cfg.Server.Port)
	}
	if cfg.Database.Driver != "sqlite" {
		t.Errorf("expected default sqlite driver, got %q", cfg.Database.Driver)
	}
	if cfg.Tiles.ClusterMaxZoom != 17 {
		t.Errorf("expected default cluster max zoom 17, got %d", cfg.Tiles.ClusterMaxZoom)
	}
	if cfg.Tiles.GridFactor != 0.5 {
		t.Errorf("expected default grid factor 0.5, got %v", cfg.Tiles.GridFactor)
	}
	if cfg.Tiles.CacheTTLSeconds != 30 {
		t.Errorf("expected default tile TTL 30, got %d", cfg.Tiles.CacheTTLSeconds)
	}
	if cfg.Style.CacheTTLSeconds != 60 {
		t.Errorf("expected default style TTL 60, got %d", cfg.Style.CacheTTLSeconds)
	}
	if cfg.Cache.TileSizeMB != 256 {
		t.Errorf("expected default cache size 256, got %d", cfg.Cache.TileSizeMB)
	}
	if cfg.Logging.Level != "info" {
		t.Errorf("expected default log level info, got %q", cfg.Logging.Level)
	}
}

func TestLoad_ExplicitZeroIsNotUnset(t *testing.T) {
	content := `
tiles:
  cluster_max_zoom: 0
`
	cfg := loadFromString(t, content)

	// cluster_max_zoom 0 means individual points at every zoom; it must not
	// be rewritten to the default.
	if cfg.Tiles.ClusterMaxZoom != 0 {
		t.Errorf("explicit cluster_max_zoom 0 rewritten to %d", cfg.Tiles.ClusterMaxZoom)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("cluster_max_zoom 0 should validate: %v", err)
	}

	// An explicit zero grid factor is a misconfiguration and surfaces as a
	// validation error rather than being silently replaced.
	cfg = loadFromString(t, "tiles:\n  grid_factor: 0\n")
	if cfg.Tiles.GridFactor != 0 {
		t.Errorf("explicit grid_factor 0 rewritten to %v", cfg.Tiles.GridFactor)
	}
	if err := cfg.Validate(); err == nil {
		t.Error("expected grid_factor 0 to fail validation")
	}
}

func TestLoad_MissingFile(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	if err != nil {
		t.Fatalf("missing file should fall back to defaults, got error: %v", err)
	}
	if cfg.Server.Port != 8080 {
		t.Errorf("expected default port 8080, got %d", cfg.Server.Port)
	}
}

func TestValidate(t *testing.T) {
	valid := func() *Config { return DefaultConfig() }

	cases := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{"defaults are valid", func(c *Config) {}, ""},
		{"port zero", func(c *Config) { c.Server.Port = 0 }, "server.port"},
		{"port too large", func(c *Config) { c.Server.Port = 70000 }, "server.port"},
		{"unknown driver", func(c *Config) { c.Database.Driver = "mysql" }, "database.driver"},
		{"empty dsn", func(c *Config) { c.Database.DSN = "" }, "database.dsn"},
		{"empty upstream", func(c *Config) { c.Style.UpstreamURL = "" }, "style.upstream_url"},
		{"bad upstream", func(c *Config) { c.Style.UpstreamURL = "not a url" }, "style.upstream_url"},
		{"negative style ttl", func(c *Config) { c.Style.CacheTTLSeconds = -1 }, "style.cache_ttl_seconds"},
		{"cluster zoom negative", func(c *Config) { c.Tiles.ClusterMaxZoom = -1 }, "cluster_max_zoom"},
		{"cluster zoom above pyramid", func(c *Config) { c.Tiles.ClusterMaxZoom = 23 }, "cluster_max_zoom"},
		{"grid factor zero", func(c *Config) { c.Tiles.GridFactor = 0 }, "grid_factor"},
		{"grid factor above one", func(c *Config) { c.Tiles.GridFactor = 1.5 }, "grid_factor"},
		{"negative tile ttl", func(c *Config) { c.Tiles.CacheTTLSeconds = -30 }, "tiles.cache_ttl_seconds"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := valid()
			tc.mutate(cfg)
			err := cfg.Validate()
			if tc.wantErr == "" {
				if err != nil {
					t.Fatalf("expected valid config, got %v", err)
				}
				return
			}
			if err == nil {
				t.Fatalf("expected error containing %q, got nil", tc.wantErr)
			}
			if !strings.Contains(err.Error(), tc.wantErr) {
				t.Fatalf("expected error containing %q, got %q", tc.wantErr, err)
			}
		})
	}
}

func TestValidate_ClusterZoomBoundaries(t *testing.T) {
	for _, zoom := range []int{0, 22} {
		cfg := DefaultConfig()
		cfg.Tiles.ClusterMaxZoom = zoom
		if err := cfg.Validate(); err != nil {
			t.Errorf("cluster_max_zoom %d should be accepted: %v", zoom, err)
		}
	}
}

func loadFromString(t *testing.T, content string) *Config {
	t.Helper()

	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("failed to write temp config: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("failed to load config: %v", err)
	}
	return cfg
}
