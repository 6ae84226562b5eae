// Package slippy provides Web-Mercator slippy-map tile math.
package slippy

import (
	"fmt"
	"math"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/maptile"
)

// Zoom limits for tile addresses accepted by the server.
const (
	MinZoom = 0
	MaxZoom = 22
)

// Tile addresses one slippy-map tile. X runs west to east, Y north to south.
type Tile struct {
	Z int
	X int
	Y int
}

// Valid reports whether the address is inside the tile pyramid:
// zoom in [MinZoom, MaxZoom] and x/y in [0, 2^zoom).
func (t Tile) Valid() bool {
	if t.Z < MinZoom || t.Z > MaxZoom {
		return false
	}
	n := 1 << uint(t.Z)
	return t.X >= 0 && t.X < n && t.Y >= 0 && t.Y < n
}

// Bound returns the tile's geographic bounding box in WGS84 degrees.
// Longitude spans linearly; latitude follows the inverse Gudermannian so
// tiles are square in projected space.
func (t Tile) Bound() orb.Bound {
	n := math.Exp2(float64(t.Z))

	minLon := float64(t.X)/n*360.0 - 180.0
	maxLon := float64(t.X+1)/n*360.0 - 180.0

	maxLat := mercatorLat(math.Pi * (1 - 2*float64(t.Y)/n))
	minLat := mercatorLat(math.Pi * (1 - 2*float64(t.Y+1)/n))

	return orb.Bound{
		Min: orb.Point{minLon, minLat},
		Max: orb.Point{maxLon, maxLat},
	}
}

// Maptile converts to the orb tile type used by the MVT encoder.
func (t Tile) Maptile() maptile.Tile {
	return maptile.New(uint32(t.X), uint32(t.Y), maptile.Zoom(t.Z))
}

// String renders the address as z/x/y.
func (t Tile) String() string {
	return fmt.Sprintf("%d/%d/%d", t.Z, t.X, t.Y)
}

// WidthDegrees returns the longitudinal width of one tile at the given zoom.
func WidthDegrees(zoom int) float64 {
	return 360.0 / math.Exp2(float64(zoom))
}

func mercatorLat(y float64) float64 {
	return 180.0 / math.Pi * math.Atan(math.Sinh(y))
}
