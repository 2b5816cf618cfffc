package store

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/pashagolub/pgxmock/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/twpayne/go-geom"
	"github.com/twpayne/go-geom/encoding/ewkb"
	"go.uber.org/zap"

	"github.com/chico-rentals/rental-cli/internal/model"
)

func init() {
	zap.ReplaceGlobals(zap.NewNop())
}

// newMockPostgresStore creates a PostgresStore backed by pgxmock for unit testing.
func newMockPostgresStore(t *testing.T) (*PostgresStore, pgxmock.PgxPoolIface) {
	t.Helper()
	mock, err := pgxmock.NewPool(pgxmock.QueryMatcherOption(pgxmock.QueryMatcherRegexp))
	require.NoError(t, err)
	t.Cleanup(func() { mock.Close() })

	return NewPostgresFromPool(mock), mock
}

func testProperty() *model.Property {
	tract := "06007000103"
	return &model.Property{
		APN:              "007-101-022",
		Address:          "1234 ESPLANADE",
		City:             "CHICO",
		ZipCode:          "95926",
		County:           "Butte",
		State:            "CA",
		Latitude:         39.7469,
		Longitude:        -121.8375,
		CensusTract:      &tract,
		EnrichmentStatus: model.StatusComplete,
		PropertyType:     "unknown",
		ManagementType:   "unknown",
	}
}

func TestPostgresStore_Exists(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectQuery(`SELECT EXISTS \(SELECT 1 FROM properties WHERE apn = \$1\)`).
		WithArgs("007-101-022").
		WillReturnRows(pgxmock.NewRows([]string{"exists"}).AddRow(true))

	ok, err := s.Exists(context.Background(), "007-101-022")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_Exists_Error(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectQuery(`SELECT EXISTS`).
		WithArgs("007-101-022").
		WillReturnError(errors.New("connection reset"))

	_, err := s.Exists(context.Background(), "007-101-022")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "postgres: exists")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_Insert(t *testing.T) {
	s, mock := newMockPostgresStore(t)
	p := testProperty()

	mock.ExpectExec(`INSERT INTO properties .* ST_GeomFromEWKB\(\$10\).* ON CONFLICT \(apn\) DO NOTHING`).
		WithArgs(
			pgxmock.AnyArg(), "007-101-022", "1234 ESPLANADE", "CHICO", "95926", "Butte", "CA",
			39.7469, -121.8375, pgxmock.AnyArg(),
			p.CensusTract, "complete", "unknown", "unknown", false,
			pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(),
		).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	inserted, err := s.Insert(context.Background(), p)
	require.NoError(t, err)
	assert.True(t, inserted)
	assert.NotEmpty(t, p.ID)
	assert.False(t, p.CreatedAt.IsZero())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_Insert_Conflict(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectExec(`ON CONFLICT \(apn\) DO NOTHING`).
		WithArgs(
			pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(),
			pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(),
			pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(),
			pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(),
			pgxmock.AnyArg(),
		).
		WillReturnResult(pgxmock.NewResult("INSERT", 0))

	inserted, err := s.Insert(context.Background(), testProperty())
	require.NoError(t, err)
	assert.False(t, inserted)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_Insert_Error(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectExec(`INSERT INTO properties`).
		WillReturnError(errors.New("value too long for type character varying(5)"))

	_, err := s.Insert(context.Background(), testProperty())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "value too long")
}

func TestPostgresStore_Get(t *testing.T) {
	s, mock := newMockPostgresStore(t)
	created := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	tract := "06007000103"
	beds, baths, rent := 3, 2.0, 1850

	mock.ExpectQuery(`SELECT id, apn, .* FROM properties WHERE apn = \$1`).
		WithArgs("007-101-022").
		WillReturnRows(pgxmock.NewRows([]string{
			"id", "apn", "address", "city", "zip_code", "county", "state", "latitude", "longitude",
			"census_tract", "enrichment_status", "property_type", "management_type", "is_available",
			"bedrooms", "bathrooms", "rent", "listing_source", "listing_url", "created_at",
		}).AddRow(
			"id-1", "007-101-022", "1234 ESPLANADE", "CHICO", "95926", "Butte", "CA", 39.7469, -121.8375,
			&tract, "partial", "single_family", "private", true,
			&beds, &baths, &rent, "craigslist", "https://chico.craigslist.org/apa/1.html", created,
		))

	p, err := s.Get(context.Background(), "007-101-022")
	require.NoError(t, err)
	require.NotNil(t, p)
	assert.Equal(t, "id-1", p.ID)
	assert.Equal(t, model.StatusPartial, p.EnrichmentStatus)
	require.NotNil(t, p.CensusTract)
	assert.Equal(t, tract, *p.CensusTract)
	require.NotNil(t, p.Rent)
	assert.Equal(t, 1850, *p.Rent)
	assert.Equal(t, "craigslist", p.ListingSource)
	assert.Equal(t, created, p.CreatedAt)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_Get_NotFound(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectQuery(`FROM properties WHERE apn = \$1`).
		WithArgs("999-999-999").
		WillReturnError(pgx.ErrNoRows)

	p, err := s.Get(context.Background(), "999-999-999")
	require.NoError(t, err)
	assert.Nil(t, p)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_Count(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectQuery(`SELECT count\(\*\) FROM properties`).
		WillReturnRows(pgxmock.NewRows([]string{"count"}).AddRow(42))

	n, err := s.Count(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 42, n)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func expectMigrationLock(mock pgxmock.PgxPoolIface) {
	mock.ExpectBegin()
	mock.ExpectExec(`SELECT pg_advisory_xact_lock\(\$1\)`).
		WithArgs(migrationLockID).
		WillReturnResult(pgxmock.NewResult("SELECT", 1))
}

func TestPostgresStore_Migrate_Fresh(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	expectMigrationLock(mock)
	mock.ExpectExec(`CREATE TABLE IF NOT EXISTS schema_migrations`).
		WillReturnResult(pgxmock.NewResult("CREATE", 0))
	mock.ExpectQuery(`SELECT filename FROM schema_migrations`).
		WillReturnRows(pgxmock.NewRows([]string{"filename"}))
	for _, name := range []string{"001_properties.sql", "002_properties_status.sql"} {
		mock.ExpectExec(`CREATE`).WillReturnResult(pgxmock.NewResult("CREATE", 0))
		mock.ExpectExec(`INSERT INTO schema_migrations`).
			WithArgs(name).
			WillReturnResult(pgxmock.NewResult("INSERT", 1))
	}
	mock.ExpectCommit()

	require.NoError(t, s.Migrate(context.Background()))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_Migrate_SkipsApplied(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	expectMigrationLock(mock)
	mock.ExpectExec(`CREATE TABLE IF NOT EXISTS schema_migrations`).
		WillReturnResult(pgxmock.NewResult("CREATE", 0))
	mock.ExpectQuery(`SELECT filename FROM schema_migrations`).
		WillReturnRows(pgxmock.NewRows([]string{"filename"}).AddRow("001_properties.sql"))
	mock.ExpectExec(`idx_properties_enrichment_status`).
		WillReturnResult(pgxmock.NewResult("CREATE", 0))
	mock.ExpectExec(`INSERT INTO schema_migrations`).
		WithArgs("002_properties_status.sql").
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	mock.ExpectCommit()

	require.NoError(t, s.Migrate(context.Background()))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_Migrate_ApplyErrorRollsBack(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	expectMigrationLock(mock)
	mock.ExpectExec(`CREATE TABLE IF NOT EXISTS schema_migrations`).
		WillReturnResult(pgxmock.NewResult("CREATE", 0))
	mock.ExpectQuery(`SELECT filename FROM schema_migrations`).
		WillReturnRows(pgxmock.NewRows([]string{"filename"}))
	mock.ExpectExec(`CREATE EXTENSION`).
		WillReturnError(errors.New("permission denied to create extension"))
	mock.ExpectRollback()

	err := s.Migrate(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "001_properties.sql")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_Migrate_LockError(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectBegin()
	mock.ExpectExec(`SELECT pg_advisory_xact_lock`).
		WithArgs(migrationLockID).
		WillReturnError(errors.New("canceling statement due to lock timeout"))
	mock.ExpectRollback()

	err := s.Migrate(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "acquire migration lock")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_Migrate_BeginError(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectBegin().WillReturnError(errors.New("connection refused"))

	err := s.Migrate(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "begin migration")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestEncodePoint(t *testing.T) {
	data, err := encodePoint(-121.8375, 39.7469)
	require.NoError(t, err)

	g, err := ewkb.Unmarshal(data)
	require.NoError(t, err)
	pt, ok := g.(*geom.Point)
	require.True(t, ok)
	assert.Equal(t, 4326, pt.SRID())
	assert.InDelta(t, -121.8375, pt.X(), 1e-12)
	assert.InDelta(t, 39.7469, pt.Y(), 1e-12)
}
