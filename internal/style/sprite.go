package style

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/goccy/go-json"
)

// Manifest is the set of icon names actually present in the self-hosted
// sprite atlas. Loaded once at startup and read-only afterwards.
type Manifest struct {
	names map[string]struct{}
}

// LoadManifest reads the sprite index file (sprite.json) from dir.
func LoadManifest(dir string) (*Manifest, error) {
	data, err := os.ReadFile(filepath.Join(dir, "sprite.json"))
	if err != nil {
		return nil, fmt.Errorf("read sprite manifest: %w", err)
	}
	m, err := ParseManifest(data)
	if err != nil {
		return nil, fmt.Errorf("sprite manifest %s: %w", filepath.Join(dir, "sprite.json"), err)
	}
	return m, nil
}

// ParseManifest builds a manifest from raw sprite index JSON. The index maps
// sprite names to atlas coordinates; only the names matter here.
func ParseManifest(data []byte) (*Manifest, error) {
	var index map[string]json.RawMessage
	if err := json.Unmarshal(data, &index); err != nil {
		return nil, err
	}
	names := make(map[string]struct{}, len(index))
	for name := range index {
		names[name] = struct{}{}
	}
	return &Manifest{names: names}, nil
}

// Has reports whether the atlas contains the named sprite.
func (m *Manifest) Has(name string) bool {
	_, ok := m.names[name]
	return ok
}

// Len returns the number of sprites in the atlas.
func (m *Manifest) Len() int {
	return len(m.names)
}

// FilterLayers applies the sprite-availability policy to symbol layers and
// returns the surviving set plus drop/patch counts. A nil manifest disables
// filtering entirely and passes every layer through.
//
// Policy by icon reference kind: a literal name is dropped when missing from
// the atlas; a data-driven expression is patched so unresolvable names
// degrade to "no icon" at render time; a static candidate set is dropped
// only when every candidate is missing. Candidates that cannot be
// enumerated pass through untouched.
func FilterLayers(layers []Layer, m *Manifest) (kept []Layer, dropped, patched int) {
	if m == nil {
		return layers, 0, 0
	}

	kept = make([]Layer, 0, len(layers))
	for _, l := range layers {
		if l.Type() != "symbol" {
			kept = append(kept, l)
			continue
		}
		switch ref := ClassifyIconImage(l.IconImage()).(type) {
		case IconNone:
			kept = append(kept, l)
		case IconLiteral:
			if m.Has(ref.Name) {
				kept = append(kept, l)
			} else {
				dropped++
			}
		case IconDataDriven:
			l.SetIconImage(DegradeIconExpression(l.IconImage()))
			kept = append(kept, l)
			patched++
		case IconCandidates:
			if len(ref.Names) == 0 {
				kept = append(kept, l)
				continue
			}
			available := false
			for _, name := range ref.Names {
				if m.Has(name) {
					available = true
					break
				}
			}
			if available {
				kept = append(kept, l)
			} else {
				dropped++
			}
		}
	}
	return kept, dropped, patched
}
