package database

import (
	"database/sql"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openEmpty(t *testing.T) *DB {
	t.Helper()
	db, err := OpenMemory()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db
}

func migrationCount(t *testing.T, db *DB) int {
	t.Helper()
	var n int
	require.NoError(t, db.Conn().QueryRow(`SELECT COUNT(*) FROM _migrations`).Scan(&n))
	return n
}

func schemaSQL(t *testing.T, db *DB) []string {
	t.Helper()
	rows, err := db.Conn().Query(`SELECT COALESCE(sql, '') FROM sqlite_master ORDER BY type, name`)
	require.NoError(t, err)
	defer rows.Close()

	var out []string
	for rows.Next() {
		var s string
		require.NoError(t, rows.Scan(&s))
		out = append(out, s)
	}
	require.NoError(t, rows.Err())
	return out
}

func TestMigrateNewStore(t *testing.T) {
	db := openEmpty(t)

	applied, err := db.Migrate()
	require.NoError(t, err)

	var names []string
	for _, m := range Migrations() {
		names = append(names, m.Name)
	}
	assert.Equal(t, names, applied)

	recorded, err := db.AppliedMigrations()
	require.NoError(t, err)
	assert.Equal(t, names, recorded)
}

func TestMigrateIsIdempotent(t *testing.T) {
	db := openEmpty(t)

	_, err := db.Migrate()
	require.NoError(t, err)
	before := migrationCount(t, db)
	schemaBefore := schemaSQL(t, db)

	applied, err := db.Migrate()
	require.NoError(t, err)
	assert.Empty(t, applied)
	assert.Equal(t, before, migrationCount(t, db))
	assert.Equal(t, schemaBefore, schemaSQL(t, db))
}

func TestMigrationsAreSortedByName(t *testing.T) {
	ms := Migrations()
	for i := 1; i < len(ms); i++ {
		assert.Less(t, ms[i-1].Name, ms[i].Name)
	}
}

func TestMigrateLegacyStoreWithoutBookkeeping(t *testing.T) {
	db := openEmpty(t)

	// Schema written before migrations were tracked
	_, err := db.Conn().Exec(`CREATE TABLE rides (
		id INTEGER PRIMARY KEY,
		distance_km REAL NOT NULL,
		timestamp TEXT NOT NULL,
		duration TEXT,
		comment TEXT,
		segments INTEGER DEFAULT 1 CHECK(segments > 0)
	)`)
	require.NoError(t, err)
	_, err = db.Conn().Exec(`INSERT INTO rides (distance_km, timestamp, duration, comment, segments) VALUES
		(12.5, '2025-08-01T09:30:00', '1:2:3', 'commute', 1),
		(3.0, '2025-08-02T18:00:00', '', NULL, 2),
		(7.0, '2025-08-03T18:00:00', '0:45', 'short', 1)`)
	require.NoError(t, err)

	applied, err := db.Migrate()
	require.NoError(t, err)
	assert.Len(t, applied, len(Migrations()))
	assert.Equal(t, len(Migrations()), migrationCount(t, db))

	rides, err := db.ListLatestRides(-1)
	require.NoError(t, err)
	require.Len(t, rides, 3)

	require.NotNil(t, rides[0].Duration)
	assert.Equal(t, int64(3723), int64(rides[0].Duration.Seconds()))
	assert.Nil(t, rides[1].Duration)
	assert.Equal(t, int64(2), rides[1].Segments)
	require.NotNil(t, rides[2].Duration)
	assert.Equal(t, int64(45*60), int64(rides[2].Duration.Seconds()))
	assert.False(t, rides[0].HasGPX())

	// Old text column is gone
	var n int
	require.NoError(t, db.Conn().QueryRow(`SELECT COUNT(*) FROM pragma_table_info('rides') WHERE name = 'duration'`).Scan(&n))
	assert.Zero(t, n)

	// Running again does nothing
	applied, err = db.Migrate()
	require.NoError(t, err)
	assert.Empty(t, applied)
}

func TestMigrateAppliesOnlyPending(t *testing.T) {
	db := openEmpty(t)

	all := Migrations()
	applied, err := RunMigrations(db, all[:2])
	require.NoError(t, err)
	assert.Equal(t, []string{all[0].Name, all[1].Name}, applied)

	applied, err = RunMigrations(db, all)
	require.NoError(t, err)
	require.Len(t, applied, len(all)-2)
	assert.Equal(t, all[2].Name, applied[0])
}

func TestMigrateFailureRollsBackEverything(t *testing.T) {
	db := openEmpty(t)

	boom := errors.New("boom")
	ms := []Migration{
		Migrations()[0],
		{Name: "m01_create_things", Apply: func(tx *sql.Tx) error {
			_, err := tx.Exec(`CREATE TABLE things (id INTEGER PRIMARY KEY)`)
			return err
		}},
		{Name: "m02_fail", Apply: func(tx *sql.Tx) error { return boom }},
	}

	applied, err := RunMigrations(db, ms)
	require.Error(t, err)
	assert.Nil(t, applied)
	assert.ErrorIs(t, err, boom)

	var migErr *MigrationError
	require.ErrorAs(t, err, &migErr)
	assert.Equal(t, "m02_fail", migErr.Name)

	// Neither the tables nor the bookkeeping rows were committed
	var n int
	require.NoError(t, db.Conn().QueryRow(`SELECT COUNT(*) FROM sqlite_master WHERE name IN ('things', '_migrations')`).Scan(&n))
	assert.Zero(t, n)

	recorded, err := db.AppliedMigrations()
	require.NoError(t, err)
	assert.Empty(t, recorded)
}

func TestMigrateConflictingSchemaFails(t *testing.T) {
	db := openEmpty(t)

	// An aliases table the migration does not expect
	_, err := db.Conn().Exec(`CREATE TABLE aliases (id INTEGER PRIMARY KEY)`)
	require.NoError(t, err)

	_, err = db.Migrate()
	var migErr *MigrationError
	require.ErrorAs(t, err, &migErr)
	assert.Equal(t, "m04_add_aliases_table", migErr.Name)

	recorded, err := db.AppliedMigrations()
	require.NoError(t, err)
	assert.Empty(t, recorded)
}

func TestMigrateRejectsUnknownMigrations(t *testing.T) {
	db := setupTestDB(t)

	_, err := db.Conn().Exec(`INSERT INTO _migrations (name) VALUES ('m99_from_the_future')`)
	require.NoError(t, err)

	_, err = db.Migrate()
	assert.ErrorIs(t, err, ErrSchemaTooNew)
}

func TestMigrateRejectsDuplicateNames(t *testing.T) {
	db := openEmpty(t)

	m := Migrations()[0]
	_, err := RunMigrations(db, []Migration{m, m})
	assert.Error(t, err)
}

func TestParseLegacyDuration(t *testing.T) {
	cases := []struct {
		in      string
		want    *int64
		wantErr bool
	}{
		{in: "", want: nil},
		{in: "0:0:0", want: nil},
		{in: "1:2:3", want: ptr(int64(3723))},
		{in: "26:00:00", want: ptr(int64(26 * 3600))},
		{in: "0:37", want: ptr(int64(37 * 60))},
		{in: "abc", wantErr: true},
		{in: "1:2:3:4", wantErr: true},
	}
	for _, tc := range cases {
		got, err := parseLegacyDuration(tc.in)
		if tc.wantErr {
			assert.Error(t, err, tc.in)
			continue
		}
		require.NoError(t, err, tc.in)
		assert.Equal(t, tc.want, got, tc.in)
	}
}
