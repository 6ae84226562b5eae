package cache

import (
	"testing"
	"time"
)

func newTestManager(t *testing.T) *Manager {
	t.Helper()

	m, err := NewManager(Config{
		TileCacheSizeMB: 16,
		TileTTL:         30 * time.Second,
		AssetCacheSize:  8,
	})
	if err != nil {
		t.Fatalf("failed to create manager: %v", err)
	}
	t.Cleanup(func() { m.Close() })
	return m
}

func TestTileKey(t *testing.T) {
	if got := TileKey(14, 2620, 6331); got != "tile:14/2620/6331" {
		t.Fatalf("expected %q, got %q", "tile:14/2620/6331", got)
	}
}

func TestFontKey(t *testing.T) {
	if got := FontKey("Noto Sans Regular", "0-255.pbf"); got != "font:Noto Sans Regular/0-255.pbf" {
		t.Fatalf("unexpected key %q", got)
	}
}

func TestTileRoundTrip(t *testing.T) {
	m := newTestManager(t)

	key := TileKey(10, 163, 395)
	if _, ok := m.GetTile(key); ok {
		t.Fatal("expected miss before set")
	}

	payload := []byte{0x1a, 0x2b, 0x3c}
	if err := m.SetTile(key, payload); err != nil {
		t.Fatalf("SetTile: %v", err)
	}

	got, ok := m.GetTile(key)
	if !ok {
		t.Fatal("expected hit after set")
	}
	if string(got) != string(payload) {
		t.Fatalf("expected %v, got %v", payload, got)
	}
}

func TestTileEmptyPayloadIsAHit(t *testing.T) {
	m := newTestManager(t)

	key := TileKey(9, 1, 1)
	if err := m.SetTile(key, []byte{}); err != nil {
		t.Fatalf("SetTile: %v", err)
	}

	got, ok := m.GetTile(key)
	if !ok {
		t.Fatal("expected hit for cached empty tile")
	}
	if len(got) != 0 {
		t.Fatalf("expected empty payload, got %d bytes", len(got))
	}
}

func TestAssetRoundTrip(t *testing.T) {
	m := newTestManager(t)

	key := FontKey("Noto Sans Regular", "0-255.pbf")
	if _, ok := m.GetAsset(key); ok {
		t.Fatal("expected miss before set")
	}

	m.SetAsset(key, []byte("glyphs"))
	got, ok := m.GetAsset(key)
	if !ok || string(got) != "glyphs" {
		t.Fatalf("expected cached glyphs, got %q (hit=%v)", got, ok)
	}
}
