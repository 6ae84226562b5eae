// Package api provides HTTP handlers for the tile server.
package api

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-chi/httprate"
	"github.com/goccy/go-json"

	"github.com/hearthmap/tiles/internal/cache"
	"github.com/hearthmap/tiles/internal/config"
	"github.com/hearthmap/tiles/internal/logging"
	"github.com/hearthmap/tiles/internal/metrics"
	"github.com/hearthmap/tiles/internal/service"
	"github.com/hearthmap/tiles/internal/style"
	"github.com/hearthmap/tiles/pkg/slippy"
)

// RouterConfig contains router configuration.
type RouterConfig struct {
	Tiles  *service.TileService
	Styles *service.StyleService
	Cache  *cache.Manager
	Server config.ServerConfig
	Style  config.StyleConfig
}

// NewRouter creates a new HTTP router.
func NewRouter(cfg RouterConfig) *chi.Mux {
	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(requestLogger)
	r.Use(middleware.Recoverer)
	// Tiles are protobuf, which chi does not compress by default.
	r.Use(middleware.Compress(5, "application/json", "application/x-protobuf"))

	// CORS
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.Server.CORSOrigins,
		AllowedMethods:   []string{"GET", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		ExposedHeaders:   []string{"X-Tile-Generation-Time"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	// Rate limit
	if cfg.Server.RateLimitRequests > 0 {
		window := time.Duration(cfg.Server.RateLimitWindowSeconds) * time.Second
		r.Use(httprate.LimitByIP(cfg.Server.RateLimitRequests, window))
	}

	// Health check
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	})

	// Prometheus metrics
	r.Method(http.MethodGet, "/metrics", metrics.Handler())

	// Tile endpoints
	r.Route("/tiles", func(r chi.Router) {
		r.Get("/style.json", styleHandler(cfg.Styles))
		r.Get("/properties.json", tileJSONHandler())
		r.Get("/properties/{z}/{x}/{y}.pbf", tileHandler(cfg.Tiles))
	})

	// Self-hosted map assets
	r.Get("/fonts/{fontstack}/{range}.pbf", fontHandler(cfg.Style.FontsDir, cfg.Cache))
	r.Get("/sprites/{filename}", spriteHandler(cfg.Style.SpritesDir))

	// Cache diagnostics
	r.Get("/api/cache/stats", cacheStatsHandler(cfg.Cache))

	return r
}

// tileHandler serves the property vector tiles. Tile addresses are
// validated before any work happens; out-of-range coordinates are rejected,
// never clamped.
func tileHandler(svc *service.TileService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		z, err := strconv.Atoi(chi.URLParam(r, "z"))
		if err != nil {
			http.Error(w, "invalid z", http.StatusBadRequest)
			return
		}
		x, err := strconv.Atoi(chi.URLParam(r, "x"))
		if err != nil {
			http.Error(w, "invalid x", http.StatusBadRequest)
			return
		}
		y, err := strconv.Atoi(chi.URLParam(r, "y"))
		if err != nil {
			http.Error(w, "invalid y", http.StatusBadRequest)
			return
		}

		tile := slippy.Tile{Z: z, X: x, Y: y}
		if !tile.Valid() {
			http.Error(w, "tile address out of range", http.StatusBadRequest)
			return
		}

		start := time.Now()
		data, err := svc.GetTile(r.Context(), tile)
		if err != nil {
			metrics.TileRequestsTotal.WithLabelValues("error").Inc()
			http.Error(w, "failed to generate tile", http.StatusInternalServerError)
			return
		}

		w.Header().Set("X-Tile-Generation-Time", strconv.FormatInt(time.Since(start).Milliseconds(), 10))
		w.Header().Set("Cache-Control", "public, max-age=30, stale-while-revalidate=60")

		if len(data) == 0 {
			metrics.TileRequestsTotal.WithLabelValues("empty").Inc()
			w.WriteHeader(http.StatusNoContent)
			return
		}

		metrics.TileRequestsTotal.WithLabelValues("ok").Inc()
		w.Header().Set("Content-Type", "application/x-protobuf")
		w.Write(data)
	}
}

// styleHandler serves the composed style document.
func styleHandler(svc *service.StyleService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		data, err := svc.GetStyle(r.Context(), requestBaseURL(r))
		if err != nil {
			if errors.Is(err, service.ErrUpstreamStyle) {
				http.Error(w, "upstream style unavailable", http.StatusBadGateway)
				return
			}
			http.Error(w, "failed to compose style", http.StatusInternalServerError)
			return
		}

		w.Header().Set("Content-Type", "application/json")
		w.Header().Set("Cache-Control", "public, max-age=60")
		w.Write(data)
	}
}

// tileJSONHandler serves the TileJSON descriptor for the property source.
func tileJSONHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		world := slippy.Tile{Z: 0, X: 0, Y: 0}.Bound()
		doc := map[string]interface{}{
			"tilejson": "3.0.0",
			"name":     style.SourceName,
			"tiles":    []string{requestBaseURL(r) + style.TilePathTemplate},
			"minzoom":  slippy.MinZoom,
			"maxzoom":  slippy.MaxZoom,
			"bounds":   []float64{world.Min[0], world.Min[1], world.Max[0], world.Max[1]},
		}

		w.Header().Set("Content-Type", "application/json")
		w.Header().Set("Cache-Control", "public, max-age=60")
		json.NewEncoder(w).Encode(doc)
	}
}

// cacheStatsHandler reports cache occupancy for operational debugging.
func cacheStatsHandler(mgr *cache.Manager) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(mgr.Stats())
	}
}

// requestLogger emits one structured log line per request so request logs
// land on the same zerolog stream as everything else.
func requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

		next.ServeHTTP(ww, r)

		logger := logging.Logger()
		logger.Info().
			Str("component", "http").
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", ww.Status()).
			Int("bytes", ww.BytesWritten()).
			Dur("duration", time.Since(start)).
			Str("request_id", middleware.GetReqID(r.Context())).
			Msg("request")
	})
}

// requestBaseURL reconstructs the URL clients reached us on, honoring the
// scheme and host a proxy forwarded.
func requestBaseURL(r *http.Request) string {
	scheme := "http"
	if r.TLS != nil {
		scheme = "https"
	}
	if proto := r.Header.Get("X-Forwarded-Proto"); proto != "" {
		scheme = proto
	}
	host := r.Host
	if forwarded := r.Header.Get("X-Forwarded-Host"); forwarded != "" {
		host = forwarded
	}
	return scheme + "://" + host
}
