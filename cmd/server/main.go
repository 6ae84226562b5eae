// Package main is the entry point for the HearthMap tile server.
package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/hearthmap/tiles/internal/api"
	"github.com/hearthmap/tiles/internal/cache"
	"github.com/hearthmap/tiles/internal/config"
	"github.com/hearthmap/tiles/internal/logging"
	"github.com/hearthmap/tiles/internal/service"
	"github.com/hearthmap/tiles/internal/store"
)

func main() {
	// Parse command line flags
	configPath := flag.String("config", "config/server.yaml", "Path to configuration file")
	flag.Parse()

	// A .env file is optional; deployments usually pass the DSN through it.
	_ = godotenv.Load()

	// Load configuration
	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load configuration: %v\n", err)
		os.Exit(1)
	}
	if dsn := os.Getenv("HEARTHMAP_DATABASE_DSN"); dsn != "" {
		cfg.Database.DSN = dsn
	}
	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "invalid configuration: %v\n", err)
		os.Exit(1)
	}

	logging.Init(logging.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
	})
	log := logging.Logger()

	log.Info().Int("port", cfg.Server.Port).Msg("starting HearthMap tile server")

	// Open the property store
	propertyStore, err := store.New(cfg.Database.Driver, cfg.Database.DSN)
	if err != nil {
		log.Fatal().Err(err).Str("driver", cfg.Database.Driver).Msg("failed to open property store")
	}
	defer propertyStore.Close()
	log.Info().Str("driver", cfg.Database.Driver).Msg("property store ready")

	// Initialize cache manager (encoded tiles + glyph ranges)
	cacheManager, err := cache.NewManager(cache.Config{
		TileCacheSizeMB: cfg.Cache.TileSizeMB,
		TileTTL:         time.Duration(cfg.Tiles.CacheTTLSeconds) * time.Second,
		AssetCacheSize:  1000,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialize cache")
	}
	defer cacheManager.Close()

	// Initialize services
	tileService := service.NewTileService(service.TileServiceConfig{
		Store: propertyStore,
		Cache: cacheManager,
		Tiles: cfg.Tiles,
	})
	styleService := service.NewStyleService(service.StyleServiceConfig{
		Style: cfg.Style,
		Tiles: cfg.Tiles,
	})

	// Set up HTTP router
	router := api.NewRouter(api.RouterConfig{
		Tiles:  tileService,
		Styles: styleService,
		Cache:  cacheManager,
		Server: cfg.Server,
		Style:  cfg.Style,
	})

	// Create HTTP server
	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	// Start server in goroutine
	go func() {
		log.Info().Str("addr", server.Addr).Msg("server listening")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("server failed")
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("shutting down server")

	// Graceful shutdown with timeout
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("server forced to shutdown")
	}

	log.Info().Msg("server stopped")
}
