// Package metrics exposes Prometheus collectors for the tile server.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	TileRequestsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "hearthmap_tile_requests_total",
		Help: "Total property tile requests by outcome",
	}, []string{"status"})
	TileGenerationMs = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "hearthmap_tile_generation_ms",
		Help:    "Tile generation duration in milliseconds",
		Buckets: []float64{1, 5, 10, 20, 50, 100, 200, 500, 1000, 2000},
	}, []string{"mode"})
	TileEmptyTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "hearthmap_tile_empty_total",
		Help: "Total tiles generated with no features",
	})
	TileCacheHitsTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "hearthmap_tile_cache_hits_total",
		Help: "Total encoded-tile cache hits",
	})
	TileCacheMissesTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "hearthmap_tile_cache_misses_total",
		Help: "Total encoded-tile cache misses",
	})
	StyleRequestsTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "hearthmap_style_requests_total",
		Help: "Total style document requests",
	})
	StyleUpstreamFetchesTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "hearthmap_style_upstream_fetches_total",
		Help: "Total base style fetches from the upstream provider",
	})
	StyleUpstreamFailuresTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "hearthmap_style_upstream_failures_total",
		Help: "Total failed base style fetches",
	})
	StoreQueryDurationMs = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "hearthmap_store_query_duration_ms",
		Help:    "Property store query duration in milliseconds",
		Buckets: []float64{1, 5, 10, 20, 50, 100, 200, 500, 1000},
	}, []string{"query"})
)

func init() {
	prometheus.MustRegister(TileRequestsTotal)
	prometheus.MustRegister(TileGenerationMs)
	prometheus.MustRegister(TileEmptyTotal)
	prometheus.MustRegister(TileCacheHitsTotal)
	prometheus.MustRegister(TileCacheMissesTotal)
	prometheus.MustRegister(StyleRequestsTotal)
	prometheus.MustRegister(StyleUpstreamFetchesTotal)
	prometheus.MustRegister(StyleUpstreamFailuresTotal)
	prometheus.MustRegister(StoreQueryDurationMs)
}

// Handler returns the HTTP handler that serves the registered collectors.
func Handler() http.Handler { return promhttp.Handler() }
