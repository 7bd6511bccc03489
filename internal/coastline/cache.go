package coastline

import (
	"database/sql"
	"encoding/json"
	"fmt"

	_ "modernc.org/sqlite"

	"github.com/coastflow/coastflow/internal/geo"
)

// DB is the on-disk polygon cache. A tier fetched once is persisted so
// later sessions can load it without touching the network. The schema
// mirrors the provisioned database, so a provisioned file and a session
// cache are interchangeable.
type DB struct {
	db *sql.DB
}

// OpenDB opens (and if necessary creates) a coastline cache database.
func OpenDB(path string) (*DB, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("opening coastline database: %w", err)
	}
	db.Exec("PRAGMA journal_mode=WAL")
	db.Exec("PRAGMA synchronous=NORMAL")

	if err := ensureSchema(db); err != nil {
		db.Close()
		return nil, err
	}
	return &DB{db: db}, nil
}

// Close closes the underlying database.
func (d *DB) Close() error { return d.db.Close() }

func ensureSchema(db *sql.DB) error {
	_, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS coastline_polygons (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			tier INTEGER NOT NULL,
			geometry TEXT NOT NULL,
			bbox_min_lat REAL NOT NULL,
			bbox_max_lat REAL NOT NULL,
			bbox_min_lng REAL NOT NULL,
			bbox_max_lng REAL NOT NULL
		);

		CREATE INDEX IF NOT EXISTS idx_coastline_tier ON coastline_polygons(tier);
		CREATE INDEX IF NOT EXISTS idx_coastline_bbox ON coastline_polygons(
			tier, bbox_min_lat, bbox_max_lat, bbox_min_lng, bbox_max_lng
		);
	`)
	if err != nil {
		return fmt.Errorf("creating coastline schema: %w", err)
	}
	return nil
}

// geometry is the stored JSON shape: outer ring first, holes after, each
// ring a list of [lng, lat] pairs.
type storedGeometry [][][2]float64

func encodeGeometry(p Polygon) (string, error) {
	rings := make(storedGeometry, 0, 1+len(p.Holes))
	rings = append(rings, encodeRing(p.Outer))
	for _, h := range p.Holes {
		rings = append(rings, encodeRing(h))
	}
	b, err := json.Marshal(rings)
	if err != nil {
		return "", fmt.Errorf("encoding geometry: %w", err)
	}
	return string(b), nil
}

func encodeRing(r Ring) [][2]float64 {
	out := make([][2]float64, len(r))
	for i, pt := range r {
		out[i] = [2]float64{pt.Lng, pt.Lat}
	}
	return out
}

func decodeGeometry(s string) (Polygon, error) {
	var rings storedGeometry
	if err := json.Unmarshal([]byte(s), &rings); err != nil {
		return Polygon{}, fmt.Errorf("decoding geometry: %w", err)
	}
	if len(rings) == 0 {
		return Polygon{}, fmt.Errorf("stored polygon has no rings")
	}
	outer := decodeRing(rings[0])
	holes := make([]Ring, 0, len(rings)-1)
	for _, rc := range rings[1:] {
		holes = append(holes, decodeRing(rc))
	}
	return NewPolygon(outer, holes...), nil
}

func decodeRing(coords [][2]float64) Ring {
	r := make(Ring, len(coords))
	for i, c := range coords {
		r[i] = geo.Point{Lng: c[0], Lat: c[1]}
	}
	return r
}

// LoadTier reads a tier's polygons. Returns (nil, nil) when the tier is
// not present.
func (d *DB) LoadTier(tier Tier) (*PolygonSet, error) {
	rows, err := d.db.Query(
		"SELECT geometry FROM coastline_polygons WHERE tier = ?", int(tier))
	if err != nil {
		return nil, fmt.Errorf("querying coastline polygons: %w", err)
	}
	defer rows.Close()

	var polys []Polygon
	for rows.Next() {
		var g string
		if err := rows.Scan(&g); err != nil {
			return nil, fmt.Errorf("scanning coastline row: %w", err)
		}
		p, err := decodeGeometry(g)
		if err != nil {
			return nil, err
		}
		polys = append(polys, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating coastline rows: %w", err)
	}
	if len(polys) == 0 {
		return nil, nil
	}
	return NewPolygonSet(tier, polys), nil
}

// StoreTier replaces a tier's polygons with the given set.
func (d *DB) StoreTier(set *PolygonSet) error {
	tx, err := d.db.Begin()
	if err != nil {
		return fmt.Errorf("starting cache transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.Exec(
		"DELETE FROM coastline_polygons WHERE tier = ?", int(set.Tier)); err != nil {
		return fmt.Errorf("clearing cached tier: %w", err)
	}

	stmt, err := tx.Prepare(`
		INSERT INTO coastline_polygons
			(tier, geometry, bbox_min_lat, bbox_max_lat, bbox_min_lng, bbox_max_lng)
		VALUES (?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("preparing cache insert: %w", err)
	}
	defer stmt.Close()

	for _, p := range set.Polygons {
		g, err := encodeGeometry(p)
		if err != nil {
			return err
		}
		b := p.Bounds()
		if _, err := stmt.Exec(int(set.Tier), g,
			b.MinLat, b.MaxLat, b.MinLng, b.MaxLng); err != nil {
			return fmt.Errorf("inserting cached polygon: %w", err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing cache transaction: %w", err)
	}
	return nil
}
