package slippy

import (
	"math"
	"testing"

	"github.com/paulmach/orb/maptile"
)

func TestValid(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name string
		tile Tile
		want bool
	}{
		{"world", Tile{0, 0, 0}, true},
		{"mid zoom", Tile{10, 511, 340}, true},
		{"max zoom corner", Tile{22, (1 << 22) - 1, (1 << 22) - 1}, true},
		{"zoom below range", Tile{-1, 0, 0}, false},
		{"zoom above range", Tile{23, 0, 0}, false},
		{"x negative", Tile{5, -1, 3}, false},
		{"x overflow", Tile{5, 32, 3}, false},
		{"y negative", Tile{5, 3, -1}, false},
		{"y overflow", Tile{5, 3, 32}, false},
	}

	for _, tc := range cases {
		if got := tc.tile.Valid(); got != tc.want {
			t.Errorf("%s: Valid(%v) = %v, want %v", tc.name, tc.tile, got, tc.want)
		}
	}
}

func TestBoundWorld(t *testing.T) {
	t.Parallel()

	b := Tile{0, 0, 0}.Bound()
	if b.Min[0] != -180 || b.Max[0] != 180 {
		t.Fatalf("world tile longitude span = [%v, %v], want [-180, 180]", b.Min[0], b.Max[0])
	}
	// Web-Mercator latitude limit.
	if math.Abs(b.Max[1]-85.0511287798) > 1e-6 {
		t.Fatalf("world tile max latitude = %v, want ~85.0511", b.Max[1])
	}
	if math.Abs(b.Min[1]+85.0511287798) > 1e-6 {
		t.Fatalf("world tile min latitude = %v, want ~-85.0511", b.Min[1])
	}
}

func TestBoundOrdering(t *testing.T) {
	t.Parallel()

	tiles := []Tile{
		{1, 0, 0}, {1, 1, 1},
		{10, 163, 395}, {14, 2620, 6331},
		{22, 1 << 21, 1 << 20},
	}
	for _, tile := range tiles {
		b := tile.Bound()
		if b.Min[0] >= b.Max[0] {
			t.Errorf("%v: min lon %v not below max lon %v", tile, b.Min[0], b.Max[0])
		}
		if b.Min[1] >= b.Max[1] {
			t.Errorf("%v: min lat %v not below max lat %v", tile, b.Min[1], b.Max[1])
		}
	}
}

func TestBoundAdjacency(t *testing.T) {
	t.Parallel()

	// Horizontally adjacent tiles share a meridian, vertically adjacent a parallel.
	left := Tile{12, 1000, 1500}.Bound()
	right := Tile{12, 1001, 1500}.Bound()
	if math.Abs(left.Max[0]-right.Min[0]) > 1e-9 {
		t.Fatalf("horizontal neighbors do not share an edge: %v vs %v", left.Max[0], right.Min[0])
	}

	upper := Tile{12, 1000, 1500}.Bound()
	lower := Tile{12, 1000, 1501}.Bound()
	if math.Abs(upper.Min[1]-lower.Max[1]) > 1e-9 {
		t.Fatalf("vertical neighbors do not share an edge: %v vs %v", upper.Min[1], lower.Max[1])
	}
}

func TestBoundMatchesMaptile(t *testing.T) {
	t.Parallel()

	tiles := []Tile{
		{0, 0, 0},
		{5, 9, 12},
		{10, 163, 395},
		{17, 38597, 49260},
	}
	for _, tile := range tiles {
		got := tile.Bound()
		want := maptile.New(uint32(tile.X), uint32(tile.Y), maptile.Zoom(tile.Z)).Bound()
		for i := 0; i < 2; i++ {
			if math.Abs(got.Min[i]-want.Min[i]) > 1e-8 {
				t.Errorf("%v: bound min[%d] = %v, want %v", tile, i, got.Min[i], want.Min[i])
			}
			if math.Abs(got.Max[i]-want.Max[i]) > 1e-8 {
				t.Errorf("%v: bound max[%d] = %v, want %v", tile, i, got.Max[i], want.Max[i])
			}
		}
	}
}

func TestWidthDegrees(t *testing.T) {
	t.Parallel()

	if got := WidthDegrees(0); got != 360 {
		t.Fatalf("WidthDegrees(0) = %v, want 360", got)
	}
	if got := WidthDegrees(10); math.Abs(got-0.3515625) > 1e-12 {
		t.Fatalf("WidthDegrees(10) = %v, want 0.3515625", got)
	}
	// Each zoom halves the width.
	for z := 0; z < 22; z++ {
		if math.Abs(WidthDegrees(z)-2*WidthDegrees(z+1)) > 1e-12 {
			t.Fatalf("WidthDegrees(%d) is not twice WidthDegrees(%d)", z, z+1)
		}
	}
}

func TestString(t *testing.T) {
	t.Parallel()

	if got := (Tile{14, 2620, 6331}).String(); got != "14/2620/6331" {
		t.Fatalf("String() = %q, want %q", got, "14/2620/6331")
	}
}
