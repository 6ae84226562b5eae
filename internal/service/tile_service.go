// Package service provides business logic for the tile server.
package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/encoding/mvt"
	"github.com/paulmach/orb/geojson"
	"github.com/rs/zerolog"

	"github.com/hearthmap/tiles/internal/cache"
	"github.com/hearthmap/tiles/internal/config"
	"github.com/hearthmap/tiles/internal/logging"
	"github.com/hearthmap/tiles/internal/metrics"
	"github.com/hearthmap/tiles/internal/store"
	"github.com/hearthmap/tiles/internal/style"
	"github.com/hearthmap/tiles/pkg/slippy"
)

// TileServiceConfig contains tile service configuration.
type TileServiceConfig struct {
	Store store.Store
	Cache *cache.Manager
	Tiles config.TilesConfig
}

// TileService generates the property vector tiles.
type TileService struct {
	store store.Store
	cache *cache.Manager
	tiles config.TilesConfig
	log   zerolog.Logger
}

// NewTileService creates a new tile service.
func NewTileService(cfg TileServiceConfig) *TileService {
	return &TileService{
		store: cfg.Store,
		cache: cfg.Cache,
		tiles: cfg.Tiles,
		log:   logging.With().Str("component", "tiles").Logger(),
	}
}

// GetTile returns the encoded vector tile for t. An empty payload with a
// nil error means the tile has no features; callers serve it as no-content.
func (s *TileService) GetTile(ctx context.Context, t slippy.Tile) ([]byte, error) {
	key := cache.TileKey(t.Z, t.X, t.Y)
	if data, ok := s.cache.GetTile(key); ok {
		metrics.TileCacheHitsTotal.Inc()
		return data, nil
	}
	metrics.TileCacheMissesTotal.Inc()

	start := time.Now()
	data, mode, err := s.generate(ctx, t)
	if err != nil {
		return nil, err
	}

	elapsed := time.Since(start)
	metrics.TileGenerationMs.WithLabelValues(mode).Observe(float64(elapsed.Milliseconds()))
	if s.tiles.SlowThresholdMS > 0 && elapsed.Milliseconds() > int64(s.tiles.SlowThresholdMS) {
		// Advisory only. Slow tiles are still returned; a late tile beats a
		// missing one.
		s.log.Warn().
			Str("tile", t.String()).
			Str("mode", mode).
			Int64("duration_ms", elapsed.Milliseconds()).
			Msg("slow tile generation")
	}

	if len(data) == 0 {
		metrics.TileEmptyTotal.Inc()
	}
	s.cache.SetTile(key, data)

	return data, nil
}

// generate runs the zoom-appropriate store query and encodes the result.
// Below the cluster cutover properties are aggregated into grid cells; at
// or above it every property is rendered individually, ghosts included.
func (s *TileService) generate(ctx context.Context, t slippy.Tile) ([]byte, string, error) {
	bound := t.Bound()

	if t.Z < s.tiles.ClusterMaxZoom {
		gridSize := s.tiles.GridFactor * slippy.WidthDegrees(t.Z)
		clusters, err := s.store.AggregateProperties(ctx, bound, gridSize)
		if err != nil {
			return nil, "cluster", fmt.Errorf("failed to aggregate properties: %w", err)
		}
		if len(clusters) == 0 {
			return nil, "cluster", nil
		}
		data, err := encodeTile(t, clusterCollection(clusters))
		return data, "cluster", err
	}

	rows, err := s.store.ListProperties(ctx, bound)
	if err != nil {
		return nil, "point", fmt.Errorf("failed to list properties: %w", err)
	}
	if len(rows) == 0 {
		return nil, "point", nil
	}
	data, err := encodeTile(t, pointCollection(rows))
	return data, "point", err
}

// clusterCollection builds one point feature per cluster summary. A
// singleton cluster also carries its member's id so the client can treat
// it as a tappable property.
func clusterCollection(clusters []store.ClusterRow) *geojson.FeatureCollection {
	fc := geojson.NewFeatureCollection()
	for _, c := range clusters {
		f := geojson.NewFeature(orb.Point{c.Lon, c.Lat})
		f.Properties["point_count"] = c.Count
		f.Properties["has_active"] = c.HasActive
		f.Properties["total_activity"] = c.TotalActivity
		f.Properties["max_activity"] = c.MaxActivity
		f.Properties["member_ids"] = strings.Join(c.MemberIDs, ",")
		if c.Count == 1 && len(c.MemberIDs) == 1 {
			f.Properties["id"] = c.MemberIDs[0]
		}
		fc.Append(f)
	}
	return fc
}

// pointCollection builds one feature per property with the full field set
// client styling rules branch on.
func pointCollection(rows []store.PropertyRow) *geojson.FeatureCollection {
	fc := geojson.NewFeatureCollection()
	for _, p := range rows {
		f := geojson.NewFeature(orb.Point{p.Lon, p.Lat})
		f.Properties["id"] = p.ID
		f.Properties["address"] = p.Address
		f.Properties["city"] = p.City
		f.Properties["zip"] = p.Zip
		f.Properties["activity_score"] = p.ActivityScore
		f.Properties["is_ghost"] = p.IsGhost()
		fc.Append(f)
	}
	return fc
}

// encodeTile projects the collection into tile-local coordinates and
// encodes it as a vector tile with a single named layer. The layer name
// must match the source-layer the style's property layers read from.
func encodeTile(t slippy.Tile, fc *geojson.FeatureCollection) ([]byte, error) {
	layers := mvt.NewLayers(map[string]*geojson.FeatureCollection{
		style.SourceLayerName: fc,
	})
	layers.ProjectToTile(t.Maptile())
	layers.Clip(mvt.MapboxGLDefaultExtentBound)

	data, err := mvt.Marshal(layers)
	if err != nil {
		return nil, fmt.Errorf("failed to encode tile: %w", err)
	}
	return data, nil
}
