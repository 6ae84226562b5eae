// Package style models MapLibre style documents and the property-layer
// synthesis applied on top of a fetched base style.
package style

import (
	"fmt"

	"github.com/goccy/go-json"
)

// Document is a parsed style document. The base style is third-party JSON of
// arbitrary shape, so the root stays a generic map; typed access goes
// through the Layer helpers.
type Document struct {
	root map[string]interface{}
}

// Layer is one entry of the document's layers array.
type Layer map[string]interface{}

// Parse decodes a style document.
func Parse(data []byte) (*Document, error) {
	var root map[string]interface{}
	if err := json.Unmarshal(data, &root); err != nil {
		return nil, fmt.Errorf("parse style document: %w", err)
	}
	return &Document{root: root}, nil
}

// Marshal encodes the document back to JSON.
func (d *Document) Marshal() ([]byte, error) {
	return json.Marshal(d.root)
}

// Clone returns a deep copy. The style cache hands the same document to
// concurrent requests, and each request patches host-specific URLs into it,
// so readers must never share nested maps with the cached copy.
func (d *Document) Clone() *Document {
	return &Document{root: copyValue(d.root).(map[string]interface{})}
}

func copyValue(v interface{}) interface{} {
	switch val := v.(type) {
	case map[string]interface{}:
		out := make(map[string]interface{}, len(val))
		for k, item := range val {
			out[k] = copyValue(item)
		}
		return out
	case []interface{}:
		out := make([]interface{}, len(val))
		for i, item := range val {
			out[i] = copyValue(item)
		}
		return out
	default:
		return val
	}
}

// Layers returns the document's layers in order.
func (d *Document) Layers() []Layer {
	raw, _ := d.root["layers"].([]interface{})
	layers := make([]Layer, 0, len(raw))
	for _, item := range raw {
		if m, ok := item.(map[string]interface{}); ok {
			layers = append(layers, Layer(m))
		}
	}
	return layers
}

// SetLayers replaces the document's layers.
func (d *Document) SetLayers(layers []Layer) {
	raw := make([]interface{}, len(layers))
	for i, l := range layers {
		raw[i] = map[string]interface{}(l)
	}
	d.root["layers"] = raw
}

// Sprite returns the sprite URL, if any.
func (d *Document) Sprite() string {
	s, _ := d.root["sprite"].(string)
	return s
}

// SetSprite sets the sprite URL.
func (d *Document) SetSprite(url string) {
	d.root["sprite"] = url
}

// Glyphs returns the glyph URL template, if any.
func (d *Document) Glyphs() string {
	s, _ := d.root["glyphs"].(string)
	return s
}

// SetGlyphs sets the glyph URL template.
func (d *Document) SetGlyphs(url string) {
	d.root["glyphs"] = url
}

// SetSource adds or replaces a named source.
func (d *Document) SetSource(name string, source map[string]interface{}) {
	sources, ok := d.root["sources"].(map[string]interface{})
	if !ok {
		sources = map[string]interface{}{}
		d.root["sources"] = sources
	}
	sources[name] = source
}

// Source returns the named source, or nil.
func (d *Document) Source(name string) map[string]interface{} {
	sources, _ := d.root["sources"].(map[string]interface{})
	src, _ := sources[name].(map[string]interface{})
	return src
}

// ID returns the layer id.
func (l Layer) ID() string {
	s, _ := l["id"].(string)
	return s
}

// Type returns the layer type (fill, symbol, circle, ...).
func (l Layer) Type() string {
	s, _ := l["type"].(string)
	return s
}

// Source returns the layer's source name.
func (l Layer) Source() string {
	s, _ := l["source"].(string)
	return s
}

// SourceLayer returns the layer's source-layer name.
func (l Layer) SourceLayer() string {
	s, _ := l["source-layer"].(string)
	return s
}

// Layout returns the layout block, creating it when absent.
func (l Layer) Layout() map[string]interface{} {
	m, ok := l["layout"].(map[string]interface{})
	if !ok {
		m = map[string]interface{}{}
		l["layout"] = m
	}
	return m
}

// Paint returns the paint block, creating it when absent.
func (l Layer) Paint() map[string]interface{} {
	m, ok := l["paint"].(map[string]interface{})
	if !ok {
		m = map[string]interface{}{}
		l["paint"] = m
	}
	return m
}

// IconImage returns the raw icon-image layout value, or nil.
func (l Layer) IconImage() interface{} {
	layout, ok := l["layout"].(map[string]interface{})
	if !ok {
		return nil
	}
	return layout["icon-image"]
}

// SetIconImage replaces the icon-image layout value.
func (l Layer) SetIconImage(v interface{}) {
	l.Layout()["icon-image"] = v
}

// HasTextField reports whether the layer renders text, which is what makes
// it a label layer for insertion purposes.
func (l Layer) HasTextField() bool {
	layout, ok := l["layout"].(map[string]interface{})
	if !ok {
		return false
	}
	_, ok = layout["text-field"]
	return ok
}
