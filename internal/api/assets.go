package api

import (
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/hearthmap/tiles/internal/cache"
)

// fontHandler serves glyph range files for a fontstack. Ranges are small
// immutable files requested by every map client, so they are kept in the
// asset cache after the first read.
func fontHandler(dir string, mgr *cache.Manager) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		fontstack := chi.URLParam(r, "fontstack")
		fileRange := chi.URLParam(r, "range")

		key := cache.FontKey(fontstack, fileRange)
		if data, ok := mgr.GetAsset(key); ok {
			writeFont(w, data)
			return
		}

		path, err := sanitizedJoin(dir, fontstack, fileRange+".pbf")
		if err != nil {
			http.Error(w, "invalid font path", http.StatusBadRequest)
			return
		}
		data, err := os.ReadFile(path)
		if err != nil {
			http.NotFound(w, r)
			return
		}

		mgr.SetAsset(key, data)
		writeFont(w, data)
	}
}

func writeFont(w http.ResponseWriter, data []byte) {
	w.Header().Set("Content-Type", "application/x-protobuf")
	w.Header().Set("Cache-Control", "public, max-age=86400")
	w.Write(data)
}

// spriteHandler serves the sprite sheet files (sprite.json, sprite.png and
// their pixel-ratio variants).
func spriteHandler(dir string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		filename := chi.URLParam(r, "filename")

		path, err := sanitizedJoin(dir, filename)
		if err != nil {
			http.Error(w, "invalid sprite path", http.StatusBadRequest)
			return
		}
		info, err := os.Stat(path)
		if err != nil || info.IsDir() {
			http.NotFound(w, r)
			return
		}

		w.Header().Set("Cache-Control", "public, max-age=86400")
		http.ServeFile(w, r, path)
	}
}

// sanitizedJoin joins request-supplied segments under root and rejects any
// result that escapes it.
func sanitizedJoin(root string, segments ...string) (string, error) {
	path := filepath.Join(append([]string{root}, segments...)...)
	cleanRoot := filepath.Clean(root)
	if path != cleanRoot && !strings.HasPrefix(path, cleanRoot+string(filepath.Separator)) {
		return "", fmt.Errorf("path escapes %s", cleanRoot)
	}
	return path, nil
}
