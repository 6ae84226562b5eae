package style

import (
	"strings"

	"github.com/hearthmap/tiles/internal/config"
)

// SourceName is the vector source the synthesized property layers read from.
const SourceName = "properties"

// SourceLayerName is the single layer encoded into every property tile.
const SourceLayerName = "properties"

// ExtrusionMinZoom is where 3D buildings appear and flat building fills
// start fading out.
const ExtrusionMinZoom = 15.0

// Self-hosted asset paths, stored host-relative in the composed document
// and made absolute per request by PatchHost.
const (
	TilePathTemplate  = "/tiles/properties/{z}/{x}/{y}.pbf"
	SpritePath        = "/sprites/sprite"
	GlyphPathTemplate = "/fonts/{fontstack}/{range}.pbf"
)

// LayerBuilder synthesizes the property layers merged into the base style.
// It reads the same TilesConfig as the tile generators, so the layer
// visibility ranges can never drift from the clustering cutover.
type LayerBuilder struct {
	tiles config.TilesConfig
}

// NewLayerBuilder creates a layer builder.
func NewLayerBuilder(tiles config.TilesConfig) *LayerBuilder {
	return &LayerBuilder{tiles: tiles}
}

// TileSource returns the vector source definition for the property tiles.
func (b *LayerBuilder) TileSource() map[string]interface{} {
	return map[string]interface{}{
		"type":    "vector",
		"tiles":   []interface{}{TilePathTemplate},
		"minzoom": 0.0,
		"maxzoom": 22.0,
	}
}

// PropertyLayers returns the cluster and point layers. Cluster layers stop
// exactly where point layers begin; both read the cutover from the shared
// config, closing the zoom gap a mismatched pair of literals used to cause.
func (b *LayerBuilder) PropertyLayers() []Layer {
	cutover := float64(b.tiles.ClusterMaxZoom)

	return []Layer{
		{
			"id":           "properties-clusters",
			"type":         "circle",
			"source":       SourceName,
			"source-layer": SourceLayerName,
			"maxzoom":      cutover,
			"filter":       []interface{}{"has", "point_count"},
			"paint": map[string]interface{}{
				"circle-color": []interface{}{
					"step", []interface{}{"get", "point_count"},
					"#7aa5f9", 10.0, "#5c85e8", 50.0, "#3f63c9",
				},
				"circle-radius": []interface{}{
					"step", []interface{}{"get", "point_count"},
					14.0, 10.0, 20.0, 50.0, 28.0,
				},
				"circle-opacity":      0.85,
				"circle-stroke-width": 1.5,
				"circle-stroke-color": "#ffffff",
			},
		},
		{
			"id":           "properties-cluster-count",
			"type":         "symbol",
			"source":       SourceName,
			"source-layer": SourceLayerName,
			"maxzoom":      cutover,
			"filter":       []interface{}{">", []interface{}{"get", "point_count"}, 1.0},
			"layout": map[string]interface{}{
				"text-field":            []interface{}{"to-string", []interface{}{"get", "point_count"}},
				"text-font":             []interface{}{"Noto Sans Bold"},
				"text-size":             12.0,
				"text-allow-overlap":    true,
				"text-ignore-placement": true,
			},
			"paint": map[string]interface{}{
				"text-color": "#ffffff",
			},
		},
		{
			"id":           "properties-points",
			"type":         "circle",
			"source":       SourceName,
			"source-layer": SourceLayerName,
			"minzoom":      cutover,
			"filter":       []interface{}{"==", []interface{}{"get", "is_ghost"}, false},
			"paint": map[string]interface{}{
				"circle-color": []interface{}{
					"interpolate", []interface{}{"linear"}, []interface{}{"get", "activity_score"},
					0.0, "#4f8df0",
					10.0, "#f0784f",
				},
				"circle-radius":       6.0,
				"circle-stroke-width": 2.0,
				"circle-stroke-color": "#ffffff",
			},
		},
		{
			"id":           "properties-ghosts",
			"type":         "circle",
			"source":       SourceName,
			"source-layer": SourceLayerName,
			"minzoom":      cutover,
			"filter":       []interface{}{"==", []interface{}{"get", "is_ghost"}, true},
			"paint": map[string]interface{}{
				"circle-color":        "#9aa3ad",
				"circle-opacity":      0.4,
				"circle-radius":       4.0,
				"circle-stroke-width": 1.0,
				"circle-stroke-color": "#ffffff",
			},
		},
	}
}

// BuildingExtrusion returns a 3D building layer bound to the base style's
// own building source. Returns nil when the base style has no building
// layers to extrude from.
func BuildingExtrusion(base *Document) Layer {
	source := ""
	for _, l := range base.Layers() {
		if l.SourceLayer() == "building" && l.Source() != "" {
			source = l.Source()
			break
		}
	}
	if source == "" {
		return nil
	}

	return Layer{
		"id":           "building-3d",
		"type":         "fill-extrusion",
		"source":       source,
		"source-layer": "building",
		"minzoom":      ExtrusionMinZoom,
		"paint": map[string]interface{}{
			"fill-extrusion-color": "#d9d0c9",
			"fill-extrusion-height": []interface{}{
				"coalesce", []interface{}{"get", "render_height"}, []interface{}{"get", "height"}, 8.0,
			},
			"fill-extrusion-base": []interface{}{
				"coalesce", []interface{}{"get", "render_min_height"}, []interface{}{"get", "min_height"}, 0.0,
			},
			"fill-extrusion-opacity": 0.85,
		},
	}
}

// LabelInsertionIndex returns the position of the first label layer, where
// the extrusion layer belongs so building volumes render beneath text.
// Falls back to the end when the style has no label layers.
func LabelInsertionIndex(layers []Layer) int {
	for i, l := range layers {
		if l.Type() == "symbol" && l.HasTextField() {
			return i
		}
	}
	return len(layers)
}

// FadeBuildingFills cross-fades the base style's flat building fills into
// the 3D extrusion: full opacity at fromZoom, zero half a zoom level later.
// Fills whose opacity is already an expression are left alone; rewriting
// them would discard the base style's own ramp. Returns how many layers
// were rewritten.
func FadeBuildingFills(layers []Layer, fromZoom float64) int {
	faded := 0
	for _, l := range layers {
		if l.Type() != "fill" || l.SourceLayer() != "building" {
			continue
		}
		paint := l.Paint()
		opacity := 1.0
		if v, ok := paint["fill-opacity"]; ok {
			num, literal := v.(float64)
			if !literal {
				continue
			}
			opacity = num
		}
		paint["fill-opacity"] = []interface{}{
			"interpolate", []interface{}{"linear"}, []interface{}{"zoom"},
			fromZoom, opacity,
			fromZoom + 0.5, 0.0,
		}
		faded++
	}
	return faded
}

// PatchHost rewrites the host-relative self-hosted asset URLs (tile source,
// sprite, glyphs) onto the requesting host. Must only be called on a deep
// copy of the cached document; third-party absolute URLs pass through
// untouched.
func (d *Document) PatchHost(baseURL string) {
	baseURL = strings.TrimSuffix(baseURL, "/")

	if s := d.Sprite(); strings.HasPrefix(s, "/") {
		d.SetSprite(baseURL + s)
	}
	if g := d.Glyphs(); strings.HasPrefix(g, "/") {
		d.SetGlyphs(baseURL + g)
	}
	if src := d.Source(SourceName); src != nil {
		if tiles, ok := src["tiles"].([]interface{}); ok {
			for i, t := range tiles {
				if ts, ok := t.(string); ok && strings.HasPrefix(ts, "/") {
					tiles[i] = baseURL + ts
				}
			}
		}
	}
}
