// Package store persists plate sightings locally so operators can audit what
// the camera saw, independent of what the ledger accepted. The trigger
// snapshots on disk are indexed by their sighting rows.
package store

import (
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/golang-migrate/migrate/v4"
	migratesqlite "github.com/golang-migrate/migrate/v4/database/sqlite"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/google/uuid"
	"gonum.org/v1/gonum/stat"
	_ "modernc.org/sqlite"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// Sighting is one recorded plate sighting.
type Sighting struct {
	SightingID   string  `json:"sighting_id"`
	TrackID      int64   `json:"track_id"`
	Plate        string  `json:"plate"`
	Confidence   float64 `json:"confidence"`
	SnapshotPath string  `json:"snapshot_path,omitempty"`
	Reported     bool    `json:"reported"`
	CreatedAt    float64 `json:"created_at"`
}

// SightingSummary holds aggregate statistics over a set of sightings.
type SightingSummary struct {
	TotalCount    int     `json:"total_count"`
	UniquePlates  int     `json:"unique_plates"`
	AvgConfidence float64 `json:"avg_confidence"`
	P50Confidence float64 `json:"p50_confidence"`
	P95Confidence float64 `json:"p95_confidence"`
}

// SightingStore handles database operations for plate_sightings.
type SightingStore struct {
	db *sql.DB
}

// Open opens (creating if necessary) the sighting database at path and runs
// pending migrations. Use ":memory:" for tests.
func Open(path string) (*SightingStore, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sighting db %s: %w", path, err)
	}
	// modernc sqlite serialises writes; a single connection avoids
	// SQLITE_BUSY under the in-memory driver as well.
	db.SetMaxOpenConns(1)

	if err := migrateUp(db); err != nil {
		db.Close()
		return nil, err
	}

	return &SightingStore{db: db}, nil
}

func migrateUp(db *sql.DB) error {
	src, err := iofs.New(migrationsFS, "migrations")
	if err != nil {
		return fmt.Errorf("load embedded migrations: %w", err)
	}

	driver, err := migratesqlite.WithInstance(db, &migratesqlite.Config{})
	if err != nil {
		return fmt.Errorf("prepare migration driver: %w", err)
	}

	m, err := migrate.NewWithInstance("iofs", src, "sqlite", driver)
	if err != nil {
		return fmt.Errorf("prepare migrations: %w", err)
	}
	// Note: we don't close m because it would close the underlying DB
	// connection.

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("migration up failed: %w", err)
	}
	return nil
}

// Close closes the underlying database.
func (s *SightingStore) Close() error {
	return s.db.Close()
}

// InsertSighting inserts a sighting, assigning a UUID and creation time if
// unset.
func (s *SightingStore) InsertSighting(sg *Sighting) error {
	if sg.SightingID == "" {
		sg.SightingID = uuid.New().String()
	}
	if sg.CreatedAt == 0 {
		sg.CreatedAt = float64(time.Now().UnixNano()) / 1e9
	}

	_, err := s.db.Exec(`
		INSERT INTO plate_sightings (
			sighting_id, track_id, plate, confidence, snapshot_path, reported, created_at
		) VALUES (?, ?, ?, ?, ?, ?, ?)
	`, sg.SightingID, sg.TrackID, sg.Plate, sg.Confidence, sg.SnapshotPath, sg.Reported, sg.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to insert sighting: %w", err)
	}
	return nil
}

// ListSightings retrieves sightings with optional filters, newest first.
func (s *SightingStore) ListSightings(plate string, startUnix, endUnix float64, limit int) ([]*Sighting, error) {
	query := `
		SELECT sighting_id, track_id, plate, confidence, snapshot_path, reported, created_at
		FROM plate_sightings
		WHERE 1=1
	`
	args := []interface{}{}

	if plate != "" {
		query += " AND plate = ?"
		args = append(args, plate)
	}
	if startUnix > 0 {
		query += " AND created_at >= ?"
		args = append(args, startUnix)
	}
	if endUnix > 0 {
		query += " AND created_at <= ?"
		args = append(args, endUnix)
	}

	query += " ORDER BY created_at DESC"

	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query sightings: %w", err)
	}
	defer rows.Close()

	sightings := []*Sighting{}
	for rows.Next() {
		sg := &Sighting{}
		var snapshotPath sql.NullString
		if err := rows.Scan(&sg.SightingID, &sg.TrackID, &sg.Plate, &sg.Confidence,
			&snapshotPath, &sg.Reported, &sg.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan sighting: %w", err)
		}
		sg.SnapshotPath = snapshotPath.String
		sightings = append(sightings, sg)
	}
	return sightings, rows.Err()
}

// Summary computes aggregate confidence statistics over the sightings in the
// given time window (0 means unbounded on that side).
func (s *SightingStore) Summary(startUnix, endUnix float64) (*SightingSummary, error) {
	query := `SELECT plate, confidence FROM plate_sightings WHERE 1=1`
	args := []interface{}{}

	if startUnix > 0 {
		query += " AND created_at >= ?"
		args = append(args, startUnix)
	}
	if endUnix > 0 {
		query += " AND created_at <= ?"
		args = append(args, endUnix)
	}

	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query summary: %w", err)
	}
	defer rows.Close()

	var confidences []float64
	plates := make(map[string]bool)
	for rows.Next() {
		var plate string
		var conf float64
		if err := rows.Scan(&plate, &conf); err != nil {
			return nil, fmt.Errorf("failed to scan summary row: %w", err)
		}
		plates[plate] = true
		confidences = append(confidences, conf)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	summary := &SightingSummary{
		TotalCount:   len(confidences),
		UniquePlates: len(plates),
	}
	if len(confidences) == 0 {
		return summary, nil
	}

	sort.Float64s(confidences)
	summary.AvgConfidence = stat.Mean(confidences, nil)
	summary.P50Confidence = stat.Quantile(0.50, stat.Empirical, confidences, nil)
	summary.P95Confidence = stat.Quantile(0.95, stat.Empirical, confidences, nil)
	return summary, nil
}
