package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"

	"github.com/hearthmap/tiles/internal/config"
	"github.com/hearthmap/tiles/internal/logging"
	"github.com/hearthmap/tiles/internal/metrics"
	"github.com/hearthmap/tiles/internal/style"
)

// ErrUpstreamStyle marks a failed base style fetch. Handlers map it to a
// gateway error; the previous cached document, if still fresh, keeps
// serving until its TTL runs out.
var ErrUpstreamStyle = errors.New("upstream style unavailable")

// maxStyleDocumentBytes bounds how much of an upstream response is read.
// Base styles are a few hundred KB; anything larger is misbehaving.
const maxStyleDocumentBytes = 8 << 20

// StyleServiceConfig contains style service configuration.
type StyleServiceConfig struct {
	Style config.StyleConfig
	Tiles config.TilesConfig

	// Client overrides the upstream HTTP client, for tests.
	Client *http.Client
}

// StyleService composes the served style document: the upstream base
// cartography plus the property layers, building extrusion and sprite
// availability filtering, cached in a single slot.
type StyleService struct {
	upstream string
	ttl      time.Duration
	client   *http.Client
	builder  *style.LayerBuilder
	manifest *style.Manifest
	log      zerolog.Logger

	entry atomic.Pointer[styleEntry]
}

type styleEntry struct {
	doc       *style.Document
	fetchedAt time.Time
}

// NewStyleService creates a style service. A missing or unreadable sprite
// manifest disables sprite filtering instead of failing startup.
func NewStyleService(cfg StyleServiceConfig) *StyleService {
	log := logging.With().Str("component", "style").Logger()

	client := cfg.Client
	if client == nil {
		client = &http.Client{Timeout: 10 * time.Second}
	}

	manifest, err := style.LoadManifest(cfg.Style.SpritesDir)
	if err != nil {
		log.Warn().Err(err).Str("dir", cfg.Style.SpritesDir).
			Msg("sprite manifest unavailable, sprite filtering disabled")
		manifest = nil
	}

	return &StyleService{
		upstream: cfg.Style.UpstreamURL,
		ttl:      time.Duration(cfg.Style.CacheTTLSeconds) * time.Second,
		client:   client,
		builder:  style.NewLayerBuilder(cfg.Tiles),
		manifest: manifest,
		log:      log,
	}
}

// GetStyle returns the composed style document with the requester's base
// URL patched into the self-hosted asset references.
func (s *StyleService) GetStyle(ctx context.Context, baseURL string) ([]byte, error) {
	metrics.StyleRequestsTotal.Inc()

	doc, err := s.cachedDocument(ctx)
	if err != nil {
		return nil, err
	}

	// The cached document is shared across requests and must stay
	// host-neutral, so each request patches a private copy.
	patched := doc.Clone()
	patched.PatchHost(baseURL)
	return patched.Marshal()
}

// cachedDocument returns the cached composition while it is fresh and
// recomposes it otherwise. A failed recompose leaves the slot untouched.
func (s *StyleService) cachedDocument(ctx context.Context) (*style.Document, error) {
	if e := s.entry.Load(); e != nil && time.Since(e.fetchedAt) < s.ttl {
		return e.doc, nil
	}

	doc, err := s.compose(ctx)
	if err != nil {
		return nil, err
	}

	s.entry.Store(&styleEntry{doc: doc, fetchedAt: time.Now()})
	return doc, nil
}

func (s *StyleService) compose(ctx context.Context) (*style.Document, error) {
	base, err := s.fetchUpstream(ctx)
	if err != nil {
		metrics.StyleUpstreamFailuresTotal.Inc()
		return nil, fmt.Errorf("%w: %v", ErrUpstreamStyle, err)
	}

	layers := base.Layers()

	// 3D buildings go immediately below the first label layer so volumes
	// render beneath text, and the flat building fills cross-fade out as
	// the volumes appear.
	if extrusion := style.BuildingExtrusion(base); extrusion != nil {
		idx := style.LabelInsertionIndex(layers)
		layers = append(layers[:idx], append([]style.Layer{extrusion}, layers[idx:]...)...)
		style.FadeBuildingFills(layers, style.ExtrusionMinZoom)
	}

	layers = append(layers, s.builder.PropertyLayers()...)

	kept, dropped, patched := style.FilterLayers(layers, s.manifest)
	if dropped > 0 || patched > 0 {
		s.log.Info().
			Int("dropped", dropped).
			Int("patched", patched).
			Msg("sprite availability filter applied")
	}

	base.SetLayers(kept)
	base.SetSource(style.SourceName, s.builder.TileSource())
	base.SetSprite(style.SpritePath)
	base.SetGlyphs(style.GlyphPathTemplate)

	return base, nil
}

func (s *StyleService) fetchUpstream(ctx context.Context) (*style.Document, error) {
	metrics.StyleUpstreamFetchesTotal.Inc()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.upstream, nil)
	if err != nil {
		return nil, err
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxStyleDocumentBytes))
	if err != nil {
		return nil, err
	}
	return style.Parse(body)
}
