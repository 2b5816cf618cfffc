package store

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	_ "modernc.org/sqlite"

	"github.com/chico-rentals/rental-cli/internal/model"
)

// SQLiteStore implements Store using modernc.org/sqlite. It is meant for
// local runs and tests; the location column is not spatially indexed.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLite opens a SQLite database at the given path and configures WAL mode.
func NewSQLite(dsn string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: open")
	}
	// Pragmas are per connection; a single writer connection keeps them applied.
	db.SetMaxOpenConns(1)
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close() //nolint:errcheck
			return nil, eris.Wrapf(err, "sqlite: exec %s", pragma)
		}
	}
	return &SQLiteStore{db: db}, nil
}

const sqliteMigration = `
CREATE TABLE IF NOT EXISTS properties (
	id                TEXT PRIMARY KEY,
	apn               TEXT NOT NULL UNIQUE,
	address           TEXT NOT NULL,
	city              TEXT NOT NULL,
	zip_code          TEXT NOT NULL,
	county            TEXT NOT NULL,
	state             TEXT NOT NULL,
	latitude          REAL NOT NULL,
	longitude         REAL NOT NULL,
	census_tract      TEXT,
	enrichment_status TEXT NOT NULL,
	property_type     TEXT NOT NULL DEFAULT 'unknown',
	management_type   TEXT NOT NULL DEFAULT 'unknown',
	is_available      INTEGER NOT NULL DEFAULT 0,
	bedrooms          INTEGER,
	bathrooms         REAL,
	rent              INTEGER,
	listing_source    TEXT,
	listing_url       TEXT,
	created_at        DATETIME NOT NULL DEFAULT (datetime('now'))
);

CREATE INDEX IF NOT EXISTS idx_properties_city ON properties(city);
CREATE INDEX IF NOT EXISTS idx_properties_enrichment_status ON properties(enrichment_status);
`

func (s *SQLiteStore) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, sqliteMigration)
	return eris.Wrap(err, "sqlite: migrate")
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) Exists(ctx context.Context, key string) (bool, error) {
	var exists bool
	err := s.db.QueryRowContext(ctx, `SELECT EXISTS (SELECT 1 FROM properties WHERE apn = ?)`, key).Scan(&exists)
	if err != nil {
		return false, eris.Wrap(err, "sqlite: exists")
	}
	return exists, nil
}

func (s *SQLiteStore) Insert(ctx context.Context, p *model.Property) (bool, error) {
	if p.ID == "" {
		p.ID = uuid.New().String()
	}
	if p.CreatedAt.IsZero() {
		p.CreatedAt = time.Now().UTC()
	}

	res, err := s.db.ExecContext(ctx, `INSERT INTO properties (
		id, apn, address, city, zip_code, county, state, latitude, longitude,
		census_tract, enrichment_status, property_type, management_type, is_available,
		bedrooms, bathrooms, rent, listing_source, listing_url, created_at
	) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	ON CONFLICT(apn) DO NOTHING`,
		p.ID, p.APN, p.Address, p.City, p.ZipCode, p.County, p.State, p.Latitude, p.Longitude,
		p.CensusTract, string(p.EnrichmentStatus), p.PropertyType, p.ManagementType, p.IsAvailable,
		p.Bedrooms, p.Bathrooms, p.Rent, nullString(p.ListingSource), nullString(p.ListingURL), p.CreatedAt,
	)
	if err != nil {
		return false, eris.Wrapf(err, "sqlite: insert property %s", p.APN)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, eris.Wrap(err, "sqlite: rows affected")
	}
	return n == 1, nil
}

func (s *SQLiteStore) Get(ctx context.Context, key string) (*model.Property, error) {
	var (
		p                  model.Property
		status             string
		tract, source, url sql.NullString
		beds, rent         sql.NullInt64
		baths              sql.NullFloat64
	)
	err := s.db.QueryRowContext(ctx, `SELECT id, apn, address, city, zip_code, county, state, latitude, longitude,
		census_tract, enrichment_status, property_type, management_type, is_available,
		bedrooms, bathrooms, rent, listing_source, listing_url, created_at
		FROM properties WHERE apn = ?`, key).Scan(
		&p.ID, &p.APN, &p.Address, &p.City, &p.ZipCode, &p.County, &p.State, &p.Latitude, &p.Longitude,
		&tract, &status, &p.PropertyType, &p.ManagementType, &p.IsAvailable,
		&beds, &baths, &rent, &source, &url, &p.CreatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, eris.Wrapf(err, "sqlite: get property %s", key)
	}

	p.EnrichmentStatus = model.Status(status)
	if tract.Valid {
		p.CensusTract = &tract.String
	}
	if beds.Valid {
		v := int(beds.Int64)
		p.Bedrooms = &v
	}
	if baths.Valid {
		p.Bathrooms = &baths.Float64
	}
	if rent.Valid {
		v := int(rent.Int64)
		p.Rent = &v
	}
	p.ListingSource = source.String
	p.ListingURL = url.String
	return &p, nil
}

func (s *SQLiteStore) Count(ctx context.Context) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, `SELECT count(*) FROM properties`).Scan(&n); err != nil {
		return 0, eris.Wrap(err, "sqlite: count properties")
	}
	return n, nil
}
