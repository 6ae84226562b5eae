package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/lib/pq"
	"github.com/paulmach/orb"

	"github.com/hearthmap/tiles/internal/metrics"
)

// PostgresStore reads properties from a PostGIS-enabled database. The grid
// aggregation is pushed down to SQL so low-zoom tiles never pull the full
// result set over the wire.
type PostgresStore struct {
	db *sql.DB
}

// OpenPostgres opens a connection pool against the given DSN and verifies
// the database is reachable.
func OpenPostgres(dsn string) (*PostgresStore, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	db.SetMaxOpenConns(50)
	db.SetMaxIdleConns(25)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	return &PostgresStore{db: db}, nil
}

// Close closes the connection pool.
func (s *PostgresStore) Close() error {
	return s.db.Close()
}

// ListProperties returns every property intersecting bound, ordered by id.
func (s *PostgresStore) ListProperties(ctx context.Context, bound orb.Bound) ([]PropertyRow, error) {
	start := time.Now()
	defer func() {
		metrics.StoreQueryDurationMs.WithLabelValues("list").Observe(float64(time.Since(start).Milliseconds()))
	}()

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, address, city, zip, ST_X(geom), ST_Y(geom), has_active_listing, activity_score
		FROM properties
		WHERE geom && ST_MakeEnvelope($1, $2, $3, $4, 4326)
		ORDER BY id
	`, bound.Min[0], bound.Min[1], bound.Max[0], bound.Max[1])
	if err != nil {
		return nil, fmt.Errorf("list properties: %w", err)
	}
	defer rows.Close()

	var props []PropertyRow
	for rows.Next() {
		var p PropertyRow
		if err := rows.Scan(&p.ID, &p.Address, &p.City, &p.Zip, &p.Lon, &p.Lat, &p.HasActiveListing, &p.ActivityScore); err != nil {
			return nil, fmt.Errorf("scan property: %w", err)
		}
		props = append(props, p)
	}
	return props, rows.Err()
}

// AggregateProperties groups the non-ghost properties inside bound into
// floor-anchored grid cells and summarizes each cell in SQL. The cell
// partition is floor(coord / gridSize) on both axes, the same buckets
// AggregatePoints computes in Go, so both backends emit identical tiles
// for identical data. Cell centers are the centroid of the member points,
// and member ids come back ordered so the result is stable across
// identical requests.
func (s *PostgresStore) AggregateProperties(ctx context.Context, bound orb.Bound, gridSize float64) ([]ClusterRow, error) {
	start := time.Now()
	defer func() {
		metrics.StoreQueryDurationMs.WithLabelValues("aggregate").Observe(float64(time.Since(start).Milliseconds()))
	}()

	rows, err := s.db.QueryContext(ctx, `
		SELECT ST_X(center), ST_Y(center), point_count, has_active, total_activity, max_activity, member_ids
		FROM (
			SELECT ST_Centroid(ST_Collect(geom)) AS center,
			       COUNT(*) AS point_count,
			       BOOL_OR(has_active_listing) AS has_active,
			       COALESCE(SUM(activity_score), 0) AS total_activity,
			       COALESCE(MAX(activity_score), 0) AS max_activity,
			       ARRAY_AGG(id ORDER BY id) AS member_ids
			FROM properties
			WHERE geom && ST_MakeEnvelope($1, $2, $3, $4, 4326)
			  AND (has_active_listing OR activity_score > 0)
			GROUP BY floor(ST_X(geom) / $5), floor(ST_Y(geom) / $5)
		) cells
		ORDER BY member_ids[1]
	`, bound.Min[0], bound.Min[1], bound.Max[0], bound.Max[1], gridSize)
	if err != nil {
		return nil, fmt.Errorf("aggregate properties: %w", err)
	}
	defer rows.Close()

	var clusters []ClusterRow
	for rows.Next() {
		var c ClusterRow
		var members pq.StringArray
		if err := rows.Scan(&c.Lon, &c.Lat, &c.Count, &c.HasActive, &c.TotalActivity, &c.MaxActivity, &members); err != nil {
			return nil, fmt.Errorf("scan cluster: %w", err)
		}
		c.MemberIDs = []string(members)
		clusters = append(clusters, c)
	}
	return clusters, rows.Err()
}
