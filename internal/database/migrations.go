package database

import (
	"database/sql"
	"fmt"
	"slices"
	"strconv"
	"strings"
	"time"
)

// registered migrations; names are permanent once released
var migrations = []Migration{
	{
		Name: "m00_add_migrations_table",
		Apply: func(tx *sql.Tx) error {
			_, err := tx.Exec(`CREATE TABLE ` + MigrationsTable + ` (
				id INTEGER PRIMARY KEY,
				name TEXT NOT NULL UNIQUE,
				timestamp TEXT DEFAULT CURRENT_TIMESTAMP NOT NULL
			)`)
			return err
		},
	},
	{
		// IF NOT EXISTS adopts stores created before migrations were tracked
		Name: "m01_add_rides_table",
		Apply: func(tx *sql.Tx) error {
			_, err := tx.Exec(`CREATE TABLE IF NOT EXISTS rides (
				id INTEGER PRIMARY KEY,
				distance_km REAL NOT NULL,
				timestamp TEXT NOT NULL,
				duration TEXT,
				comment TEXT,
				segments INTEGER DEFAULT 1 CHECK(segments > 0)
			)`)
			return err
		},
	},
	{
		Name:  "m02_change_duration_to_int",
		Apply: changeDurationToInt,
	},
	{
		Name: "m03_add_gpx_column",
		Apply: func(tx *sql.Tx) error {
			ok, err := columnExists(tx, "rides", "gpx")
			if err != nil || ok {
				return err
			}
			if _, err := tx.Exec(`ALTER TABLE rides ADD COLUMN gpx TEXT`); err != nil {
				return fmt.Errorf("add rides.gpx: %w", err)
			}
			return nil
		},
	},
	{
		Name: "m04_add_aliases_table",
		Apply: func(tx *sql.Tx) error {
			_, err := tx.Exec(`CREATE TABLE aliases (
				id INTEGER PRIMARY KEY,
				name TEXT NOT NULL UNIQUE,
				distance_km REAL,
				duration_s INTEGER CHECK(duration_s > 0),
				comment TEXT,
				segments INTEGER DEFAULT 1 CHECK(segments > 0)
			)`)
			return err
		},
	},
	{
		Name: "m05_add_indexes",
		Apply: func(tx *sql.Tx) error {
			statements := []string{
				`CREATE UNIQUE INDEX IF NOT EXISTS idx_migrations_name ON ` + MigrationsTable + `(name)`,
				`CREATE UNIQUE INDEX IF NOT EXISTS idx_aliases_name ON aliases(name)`,
				`CREATE INDEX IF NOT EXISTS idx_rides_timestamp ON rides(timestamp DESC)`,
			}
			for _, stmt := range statements {
				if _, err := tx.Exec(stmt); err != nil {
					return fmt.Errorf("apply index statement: %w", err)
				}
			}
			return nil
		},
	},
}

// Migrations returns the registered migrations in execution order
func Migrations() []Migration {
	return slices.Clone(migrations)
}

// changeDurationToInt replaces the text duration column ("h:m:s") with
// duration_s holding whole seconds
func changeDurationToInt(tx *sql.Tx) error {
	ok, err := columnExists(tx, "rides", "duration")
	if err != nil || !ok {
		return err
	}

	type converted struct {
		id      int64
		seconds *int64
	}

	rows, err := tx.Query(`SELECT id, duration FROM rides`)
	if err != nil {
		return fmt.Errorf("read durations: %w", err)
	}
	var values []converted
	for rows.Next() {
		var id int64
		var text sql.NullString
		if err := rows.Scan(&id, &text); err != nil {
			rows.Close()
			return fmt.Errorf("scan duration: %w", err)
		}
		seconds, err := parseLegacyDuration(text.String)
		if err != nil {
			rows.Close()
			return fmt.Errorf("ride %d: %w", id, err)
		}
		values = append(values, converted{id: id, seconds: seconds})
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return fmt.Errorf("iterate durations: %w", err)
	}
	rows.Close()

	if _, err := tx.Exec(`ALTER TABLE rides ADD COLUMN duration_s INTEGER CHECK(duration_s > 0)`); err != nil {
		return fmt.Errorf("add rides.duration_s: %w", err)
	}
	for _, v := range values {
		if _, err := tx.Exec(`UPDATE rides SET duration_s = ? WHERE id = ?`, v.seconds, v.id); err != nil {
			return fmt.Errorf("set duration of ride %d: %w", v.id, err)
		}
	}
	if _, err := tx.Exec(`ALTER TABLE rides DROP COLUMN duration`); err != nil {
		return fmt.Errorf("drop rides.duration: %w", err)
	}
	return nil
}

// parseLegacyDuration reads "h:m:s" or "h:m". Empty and zero durations
// become NULL.
func parseLegacyDuration(text string) (*int64, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, nil
	}

	parts := strings.Split(text, ":")
	if len(parts) != 2 && len(parts) != 3 {
		return nil, fmt.Errorf("invalid duration %q", text)
	}
	units := []time.Duration{time.Hour, time.Minute, time.Second}
	var d time.Duration
	for i, p := range parts {
		n, err := strconv.Atoi(strings.TrimSpace(p))
		if err != nil || n < 0 {
			return nil, fmt.Errorf("invalid duration %q", text)
		}
		d += time.Duration(n) * units[i]
	}

	if d == 0 {
		return nil, nil
	}
	seconds := int64(d / time.Second)
	return &seconds, nil
}
