// Package store provides access to the geospatial property database behind
// the tile engine.
package store

import (
	"context"
	"fmt"

	"github.com/paulmach/orb"
)

// PropertyRow is one property as the tile engine sees it: a point location
// plus the listing/activity annotations the generators branch on.
type PropertyRow struct {
	ID      string
	Address string
	City    string
	Zip     string
	Lon     float64
	Lat     float64

	HasActiveListing bool
	ActivityScore    int
}

// IsGhost reports whether the property has neither an active listing nor any
// recorded social activity. Ghosts are hidden on clustered tiles and shown
// dimmed on point tiles.
func (p PropertyRow) IsGhost() bool {
	return !p.HasActiveListing && p.ActivityScore == 0
}

// ClusterRow is one aggregated grid cell. Lon/Lat is the centroid of the
// member geometries, so markers stay anchored to real data instead of cell
// corners. MemberIDs is sorted ascending.
type ClusterRow struct {
	Lon   float64
	Lat   float64
	Count int

	HasActive     bool
	TotalActivity int
	MaxActivity   int
	MemberIDs     []string
}

// Store answers the two spatial queries the tile generators issue. Both
// treat the bound edges as inclusive, so a property sitting exactly on a
// shared tile edge may appear in both tiles' results; cross-tile
// deduplication is not attempted.
type Store interface {
	// ListProperties returns every property inside bound, ordered by id.
	ListProperties(ctx context.Context, bound orb.Bound) ([]PropertyRow, error)

	// AggregateProperties groups the non-ghost properties inside bound into
	// square cells of gridSize degrees and returns one summary row per
	// occupied cell, ordered by smallest member id.
	AggregateProperties(ctx context.Context, bound orb.Bound, gridSize float64) ([]ClusterRow, error)

	Close() error
}

// New opens the backend named by driver.
func New(driver, dsn string) (Store, error) {
	switch driver {
	case "postgres":
		return OpenPostgres(dsn)
	case "sqlite":
		return OpenSQLite(dsn)
	default:
		return nil, fmt.Errorf("unknown store driver %q", driver)
	}
}
