package store

import (
	"context"
	"embed"
	"errors"
	"io/fs"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/rotisserie/eris"
	"github.com/twpayne/go-geom"
	"github.com/twpayne/go-geom/encoding/ewkb"
	"go.uber.org/zap"

	"github.com/chico-rentals/rental-cli/internal/db"
	"github.com/chico-rentals/rental-cli/internal/model"
)

//go:embed migrations/*.sql
var migrationFS embed.FS

// migrationLockID serializes concurrent migrate runs via pg_advisory_xact_lock.
const migrationLockID = 4207001

// PostgresStore implements Store on a PostGIS database.
type PostgresStore struct {
	pool db.Pool
}

// NewPostgres connects and returns a PostgresStore that owns the pool.
func NewPostgres(ctx context.Context, dsn string, cfg *db.PoolConfig) (*PostgresStore, error) {
	pool, err := db.Connect(ctx, dsn, cfg)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: connect")
	}
	return &PostgresStore{pool: pool}, nil
}

// NewPostgresFromPool wraps an existing pool.
func NewPostgresFromPool(pool db.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

// Pool returns the underlying pool.
func (s *PostgresStore) Pool() db.Pool {
	return s.pool
}

func (s *PostgresStore) Exists(ctx context.Context, key string) (bool, error) {
	var exists bool
	err := s.pool.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM properties WHERE apn = $1)`, key).Scan(&exists)
	if err != nil {
		return false, eris.Wrap(err, "postgres: exists")
	}
	return exists, nil
}

const insertProperty = `INSERT INTO properties (
	id, apn, address, city, zip_code, county, state, latitude, longitude, location,
	census_tract, enrichment_status, property_type, management_type, is_available,
	bedrooms, bathrooms, rent, listing_source, listing_url, created_at
) VALUES (
	$1, $2, $3, $4, $5, $6, $7, $8, $9, ST_GeomFromEWKB($10),
	$11, $12, $13, $14, $15, $16, $17, $18, $19, $20, $21
) ON CONFLICT (apn) DO NOTHING`

func (s *PostgresStore) Insert(ctx context.Context, p *model.Property) (bool, error) {
	if p.ID == "" {
		p.ID = uuid.New().String()
	}
	if p.CreatedAt.IsZero() {
		p.CreatedAt = time.Now().UTC()
	}
	loc, err := encodePoint(p.Longitude, p.Latitude)
	if err != nil {
		return false, err
	}

	tag, err := s.pool.Exec(ctx, insertProperty,
		p.ID, p.APN, p.Address, p.City, p.ZipCode, p.County, p.State,
		p.Latitude, p.Longitude, loc,
		p.CensusTract, string(p.EnrichmentStatus), p.PropertyType, p.ManagementType, p.IsAvailable,
		p.Bedrooms, p.Bathrooms, p.Rent, nullString(p.ListingSource), nullString(p.ListingURL), p.CreatedAt,
	)
	if err != nil {
		return false, eris.Wrapf(err, "postgres: insert property %s", p.APN)
	}
	return tag.RowsAffected() == 1, nil
}

const selectProperty = `SELECT id, apn, address, city, zip_code, county, state, latitude, longitude,
	census_tract, enrichment_status, property_type, management_type, is_available,
	bedrooms, bathrooms, rent, COALESCE(listing_source, ''), COALESCE(listing_url, ''), created_at
FROM properties WHERE apn = $1`

func (s *PostgresStore) Get(ctx context.Context, key string) (*model.Property, error) {
	var (
		p      model.Property
		status string
	)
	err := s.pool.QueryRow(ctx, selectProperty, key).Scan(
		&p.ID, &p.APN, &p.Address, &p.City, &p.ZipCode, &p.County, &p.State, &p.Latitude, &p.Longitude,
		&p.CensusTract, &status, &p.PropertyType, &p.ManagementType, &p.IsAvailable,
		&p.Bedrooms, &p.Bathrooms, &p.Rent, &p.ListingSource, &p.ListingURL, &p.CreatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, eris.Wrapf(err, "postgres: get property %s", key)
	}
	p.EnrichmentStatus = model.Status(status)
	return &p, nil
}

func (s *PostgresStore) Count(ctx context.Context) (int, error) {
	var n int
	if err := s.pool.QueryRow(ctx, `SELECT count(*) FROM properties`).Scan(&n); err != nil {
		return 0, eris.Wrap(err, "postgres: count properties")
	}
	return n, nil
}

// Migrate applies pending embedded migrations in lexicographic order inside
// one transaction, recording each in schema_migrations. The advisory lock is
// transaction scoped, so it lives and dies with the connection running the
// migrations and is released on commit or rollback.
func (s *PostgresStore) Migrate(ctx context.Context) error {
	log := zap.L().With(zap.String("component", "store.migrate"))

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return eris.Wrap(err, "postgres: begin migration")
	}
	committed := false
	defer func() {
		if committed {
			return
		}
		if err := tx.Rollback(ctx); err != nil && !errors.Is(err, pgx.ErrTxClosed) {
			log.Warn("postgres: migration rollback failed", zap.Error(err))
		}
	}()

	if _, err := tx.Exec(ctx, "SELECT pg_advisory_xact_lock($1)", migrationLockID); err != nil {
		return eris.Wrap(err, "postgres: acquire migration lock")
	}

	if _, err := tx.Exec(ctx, `CREATE TABLE IF NOT EXISTS schema_migrations (
		filename   TEXT PRIMARY KEY,
		applied_at TIMESTAMPTZ NOT NULL DEFAULT now()
	)`); err != nil {
		return eris.Wrap(err, "postgres: ensure migration table")
	}

	applied, err := appliedMigrations(ctx, tx)
	if err != nil {
		return err
	}

	entries, err := fs.ReadDir(migrationFS, "migrations")
	if err != nil {
		return eris.Wrap(err, "postgres: read migrations")
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].Name() < entries[j].Name() })

	var names []string
	for _, entry := range entries {
		name := entry.Name()
		if applied[name] {
			continue
		}
		data, err := migrationFS.ReadFile("migrations/" + name)
		if err != nil {
			return eris.Wrapf(err, "postgres: read migration %s", name)
		}
		if _, err := tx.Exec(ctx, string(data)); err != nil {
			return eris.Wrapf(err, "postgres: apply migration %s", name)
		}
		if _, err := tx.Exec(ctx, "INSERT INTO schema_migrations (filename) VALUES ($1)", name); err != nil {
			return eris.Wrapf(err, "postgres: record migration %s", name)
		}
		names = append(names, name)
	}

	if err := tx.Commit(ctx); err != nil {
		return eris.Wrap(err, "postgres: commit migrations")
	}
	committed = true

	for _, name := range names {
		log.Info("migration applied", zap.String("file", name))
	}
	return nil
}

func appliedMigrations(ctx context.Context, tx pgx.Tx) (map[string]bool, error) {
	rows, err := tx.Query(ctx, "SELECT filename FROM schema_migrations")
	if err != nil {
		return nil, eris.Wrap(err, "postgres: query applied migrations")
	}
	defer rows.Close()

	applied := make(map[string]bool)
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, eris.Wrap(err, "postgres: scan migration row")
		}
		applied[name] = true
	}
	return applied, rows.Err()
}

func (s *PostgresStore) Close() error {
	s.pool.Close()
	return nil
}

// encodePoint returns an SRID 4326 EWKB point for the location column.
func encodePoint(lng, lat float64) ([]byte, error) {
	pt := geom.NewPointFlat(geom.XY, []float64{lng, lat}).SetSRID(4326)
	data, err := ewkb.Marshal(pt, ewkb.NDR)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: encode location")
	}
	return data, nil
}

func nullString(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
