package api

import (
	"net/http"
	"os"
	"path/filepath"
	"testing"
)

func writeFontFixture(t *testing.T, fontsDir, fontstack, name string, data []byte) {
	t.Helper()
	dir := filepath.Join(fontsDir, fontstack)
	if err := os.MkdirAll(dir, 0755); err != nil {
		t.Fatalf("failed to create font dir: %v", err)
	}
	if err := os.WriteFile(filepath.Join(dir, name), data, 0644); err != nil {
		t.Fatalf("failed to write font fixture: %v", err)
	}
}

func TestFontEndpoint(t *testing.T) {
	ts := setupTestServer(t, nil, "")
	glyphs := []byte{0x0a, 0x10, 0x20}
	writeFontFixture(t, ts.fontsDir, "Noto Sans Regular", "0-255.pbf", glyphs)

	resp := get(t, ts.server.URL+"/fonts/Noto%20Sans%20Regular/0-255.pbf")
	assertStatusCode(t, resp, http.StatusOK)
	assertHeader(t, resp, "Content-Type", "application/x-protobuf")
	assertHeader(t, resp, "Cache-Control", "public, max-age=86400")
	if body := readBody(t, resp); string(body) != string(glyphs) {
		t.Errorf("unexpected glyph payload: %v", body)
	}

	// A second request is served from the asset cache even after the file
	// disappears from disk.
	if err := os.Remove(filepath.Join(ts.fontsDir, "Noto Sans Regular", "0-255.pbf")); err != nil {
		t.Fatalf("failed to remove fixture: %v", err)
	}
	resp = get(t, ts.server.URL+"/fonts/Noto%20Sans%20Regular/0-255.pbf")
	assertStatusCode(t, resp, http.StatusOK)
	if body := readBody(t, resp); string(body) != string(glyphs) {
		t.Error("glyph range not served from cache")
	}
}

func TestFontEndpoint_Missing(t *testing.T) {
	ts := setupTestServer(t, nil, "")

	resp := get(t, ts.server.URL+"/fonts/Noto%20Sans%20Regular/0-255.pbf")
	assertStatusCode(t, resp, http.StatusNotFound)
}

func TestSpriteEndpoint(t *testing.T) {
	ts := setupTestServer(t, nil, "")

	resp := get(t, ts.server.URL+"/sprites/sprite.json")
	assertStatusCode(t, resp, http.StatusOK)
	assertHeader(t, resp, "Cache-Control", "public, max-age=86400")
}

func TestSpriteEndpoint_Missing(t *testing.T) {
	ts := setupTestServer(t, nil, "")

	resp := get(t, ts.server.URL+"/sprites/sprite@4x.png")
	assertStatusCode(t, resp, http.StatusNotFound)
}

func TestAssetEndpoints_Traversal(t *testing.T) {
	ts := setupTestServer(t, nil, "")

	// Plant a file just outside the asset roots.
	secret := filepath.Join(filepath.Dir(ts.spritesDir), "secret.txt")
	if err := os.WriteFile(secret, []byte("nope"), 0644); err != nil {
		t.Fatalf("failed to write fixture: %v", err)
	}

	paths := []string{
		"/sprites/..%2Fsecret.txt",
		"/fonts/..%2F..%2Fsecret/0-255.pbf",
		"/fonts/stack/..%2F..%2Fsecret.txt",
	}
	for _, p := range paths {
		resp := get(t, ts.server.URL+p)
		if resp.StatusCode == http.StatusOK {
			t.Errorf("%s escaped the asset root", p)
		}
		readBody(t, resp)
	}
}

func TestSanitizedJoin(t *testing.T) {
	root := t.TempDir()

	if _, err := sanitizedJoin(root, "stack", "0-255.pbf"); err != nil {
		t.Errorf("plain segments rejected: %v", err)
	}
	if _, err := sanitizedJoin(root, "..", "etc", "passwd"); err == nil {
		t.Error("expected traversal to be rejected")
	}
	if _, err := sanitizedJoin(root, "stack", "../../escape"); err == nil {
		t.Error("expected nested traversal to be rejected")
	}
}
