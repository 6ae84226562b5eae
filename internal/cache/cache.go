// Package cache provides caching for encoded tiles and static map assets.
package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/allegro/bigcache/v3"
	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/klauspost/compress/zstd"
)

// Config contains cache configuration.
type Config struct {
	TileCacheSizeMB int
	TileTTL         time.Duration
	AssetCacheSize  int
}

// Manager manages the encoded-tile cache and the asset file cache. Tile
// entries are stored zstd-compressed and expire on the TTL so the cache
// never outlives the public Cache-Control window; assets (glyph ranges)
// are immutable files and only rotate out under LRU pressure.
type Manager struct {
	tileCache  *bigcache.BigCache
	assetCache *lru.Cache[string, []byte]
	encoder    *zstd.Encoder
	decoder    *zstd.Decoder
}

// NewManager creates a new cache manager.
func NewManager(cfg Config) (*Manager, error) {
	// Configure tile cache
	tileCacheConfig := bigcache.Config{
		Shards:             1024,
		LifeWindow:         cfg.TileTTL,
		CleanWindow:        cfg.TileTTL / 2,
		MaxEntriesInWindow: 100000,
		MaxEntrySize:       100 * 1024, // 100KB per tile
		HardMaxCacheSize:   cfg.TileCacheSizeMB,
		Verbose:            false,
	}

	tileCache, err := bigcache.New(context.Background(), tileCacheConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create tile cache: %w", err)
	}

	assetCache, err := lru.New[string, []byte](cfg.AssetCacheSize)
	if err != nil {
		return nil, fmt.Errorf("failed to create asset cache: %w", err)
	}

	encoder, err := zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedFastest))
	if err != nil {
		return nil, fmt.Errorf("failed to create zstd encoder: %w", err)
	}
	decoder, err := zstd.NewReader(nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create zstd decoder: %w", err)
	}

	return &Manager{
		tileCache:  tileCache,
		assetCache: assetCache,
		encoder:    encoder,
		decoder:    decoder,
	}, nil
}

// GetTile retrieves an encoded tile from cache. An empty value is a valid
// hit: it records that the tile had no features.
func (m *Manager) GetTile(key string) ([]byte, bool) {
	stored, err := m.tileCache.Get(key)
	if err != nil {
		return nil, false
	}
	data, err := m.decoder.DecodeAll(stored, nil)
	if err != nil {
		// A corrupt entry is a miss; the caller regenerates and overwrites.
		return nil, false
	}
	return data, true
}

// SetTile stores an encoded tile in cache, compressed.
func (m *Manager) SetTile(key string, data []byte) error {
	return m.tileCache.Set(key, m.encoder.EncodeAll(data, nil))
}

// GetAsset retrieves a static asset from cache.
func (m *Manager) GetAsset(key string) ([]byte, bool) {
	return m.assetCache.Get(key)
}

// SetAsset stores a static asset in cache.
func (m *Manager) SetAsset(key string, data []byte) {
	m.assetCache.Add(key, data)
}

// TileKey generates a cache key for a property tile.
func TileKey(z, x, y int) string {
	return fmt.Sprintf("tile:%d/%d/%d", z, x, y)
}

// FontKey generates a cache key for a glyph range file.
func FontKey(fontstack, fileRange string) string {
	return fmt.Sprintf("font:%s/%s", fontstack, fileRange)
}

// Stats returns cache statistics.
func (m *Manager) Stats() map[string]interface{} {
	return map[string]interface{}{
		"tile_cache_len":  m.tileCache.Len(),
		"tile_cache_cap":  m.tileCache.Capacity(),
		"asset_cache_len": m.assetCache.Len(),
	}
}

// Close closes the cache manager.
func (m *Manager) Close() error {
	m.encoder.Close()
	m.decoder.Close()
	return m.tileCache.Close()
}
