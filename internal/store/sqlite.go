package store

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/paulmach/orb"
	_ "modernc.org/sqlite"

	"github.com/hearthmap/tiles/internal/metrics"
)

// SQLiteStore is the embedded backend for development and single-box
// deployments. It has no spatial extension, so bound queries are plain
// range scans over the lon/lat columns and the grid aggregation runs in Go
// via AggregatePoints.
type SQLiteStore struct {
	db *sql.DB
}

// OpenSQLite opens (creating if necessary) the database at path and ensures
// the properties schema exists.
func OpenSQLite(path string) (*SQLiteStore, error) {
	// Ensure directory exists
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create directory for sqlite: %w", err)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open sqlite: %w", err)
	}

	// Enable WAL mode for better concurrency
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to enable WAL: %w", err)
	}

	s := &SQLiteStore{db: db}
	if err := s.EnsureSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate: %w", err)
	}
	return s, nil
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// EnsureSchema creates the properties table and its spatial index when they
// do not exist yet, so a fresh dev box can serve tiles without the social
// app's migration stack.
func (s *SQLiteStore) EnsureSchema() error {
	schema := `
	CREATE TABLE IF NOT EXISTS properties (
		id TEXT PRIMARY KEY,
		address TEXT NOT NULL DEFAULT '',
		city TEXT NOT NULL DEFAULT '',
		zip TEXT NOT NULL DEFAULT '',
		lon REAL NOT NULL,
		lat REAL NOT NULL,
		has_active_listing INTEGER NOT NULL DEFAULT 0,
		activity_score INTEGER NOT NULL DEFAULT 0
	);

	CREATE INDEX IF NOT EXISTS idx_properties_lon_lat ON properties(lon, lat);
	`
	_, err := s.db.Exec(schema)
	return err
}

// ListProperties returns every property inside bound, ordered by id.
func (s *SQLiteStore) ListProperties(ctx context.Context, bound orb.Bound) ([]PropertyRow, error) {
	start := time.Now()
	defer func() {
		metrics.StoreQueryDurationMs.WithLabelValues("list").Observe(float64(time.Since(start).Milliseconds()))
	}()

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, address, city, zip, lon, lat, has_active_listing, activity_score
		FROM properties
		WHERE lon BETWEEN ? AND ? AND lat BETWEEN ? AND ?
		ORDER BY id
	`, bound.Min[0], bound.Max[0], bound.Min[1], bound.Max[1])
	if err != nil {
		return nil, fmt.Errorf("list properties: %w", err)
	}
	defer rows.Close()

	return scanProperties(rows)
}

// AggregateProperties selects the non-ghost properties inside bound and
// groups them with the shared Go grid helper.
func (s *SQLiteStore) AggregateProperties(ctx context.Context, bound orb.Bound, gridSize float64) ([]ClusterRow, error) {
	start := time.Now()
	defer func() {
		metrics.StoreQueryDurationMs.WithLabelValues("aggregate").Observe(float64(time.Since(start).Milliseconds()))
	}()

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, address, city, zip, lon, lat, has_active_listing, activity_score
		FROM properties
		WHERE lon BETWEEN ? AND ? AND lat BETWEEN ? AND ?
		  AND (has_active_listing = 1 OR activity_score > 0)
		ORDER BY id
	`, bound.Min[0], bound.Max[0], bound.Min[1], bound.Max[1])
	if err != nil {
		return nil, fmt.Errorf("aggregate properties: %w", err)
	}
	defer rows.Close()

	props, err := scanProperties(rows)
	if err != nil {
		return nil, err
	}
	return AggregatePoints(props, gridSize), nil
}

func scanProperties(rows *sql.Rows) ([]PropertyRow, error) {
	var props []PropertyRow
	for rows.Next() {
		var p PropertyRow
		var active int
		if err := rows.Scan(&p.ID, &p.Address, &p.City, &p.Zip, &p.Lon, &p.Lat, &active, &p.ActivityScore); err != nil {
			return nil, fmt.Errorf("scan property: %w", err)
		}
		p.HasActiveListing = active != 0
		props = append(props, p)
	}
	return props, rows.Err()
}
