package database

import (
	"database/sql"
	"fmt"
	"log/slog"
	"slices"
	"strings"

	"github.com/prometheus/client_golang/prometheus"

	"kmtracker/internal/metrics"
)

// MigrationsTable records the names of applied migrations
const MigrationsTable = "_migrations"

// Migration is one named schema change. Names sort in execution order.
type Migration struct {
	Name  string
	Apply func(tx *sql.Tx) error
}

// RunMigrations applies every migration whose name is not yet recorded, in
// name order, and returns the names it applied. All pending migrations and
// their bookkeeping rows are committed in a single transaction.
func RunMigrations(db *DB, migrations []Migration) ([]string, error) {
	timer := prometheus.NewTimer(metrics.DBOperationDuration.WithLabelValues(metrics.DBOpMigrate, MigrationsTable))
	defer timer.ObserveDuration()

	applied, err := runMigrations(db, migrations)
	if err != nil {
		metrics.MigrationRunsTotal.WithLabelValues(metrics.ResultFailure).Inc()
		return nil, err
	}
	metrics.MigrationRunsTotal.WithLabelValues(metrics.ResultSuccess).Inc()
	metrics.MigrationsAppliedTotal.Add(float64(len(applied)))
	return applied, nil
}

func runMigrations(db *DB, migrations []Migration) ([]string, error) {
	ordered := slices.Clone(migrations)
	slices.SortFunc(ordered, func(a, b Migration) int { return strings.Compare(a.Name, b.Name) })
	for i := 1; i < len(ordered); i++ {
		if ordered[i].Name == ordered[i-1].Name {
			return nil, fmt.Errorf("duplicate migration name %q", ordered[i].Name)
		}
	}

	tx, err := db.conn.Begin()
	if err != nil {
		return nil, fmt.Errorf("failed to begin migration transaction: %w", err)
	}
	defer tx.Rollback()

	done, err := appliedMigrations(tx)
	if err != nil {
		return nil, err
	}

	known := make(map[string]bool, len(ordered))
	for _, m := range ordered {
		known[m.Name] = true
	}
	for name := range done {
		if !known[name] {
			return nil, fmt.Errorf("%w: unknown migration %q", ErrSchemaTooNew, name)
		}
	}

	var applied []string
	for _, m := range ordered {
		if done[m.Name] {
			continue
		}

		slog.Info("Performing migration", "name", m.Name)
		if err := m.Apply(tx); err != nil {
			return nil, &MigrationError{Name: m.Name, Err: err}
		}

		if _, err := tx.Exec("INSERT INTO "+MigrationsTable+" (name) VALUES (?)", m.Name); err != nil {
			return nil, &MigrationError{Name: m.Name, Err: fmt.Errorf("failed to record migration: %w", err)}
		}
		applied = append(applied, m.Name)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit migrations: %w", err)
	}

	return applied, nil
}

// appliedMigrations returns the recorded migration names. A store without
// the bookkeeping table has applied nothing.
func appliedMigrations(tx *sql.Tx) (map[string]bool, error) {
	exists, err := tableExists(tx, MigrationsTable)
	if err != nil {
		return nil, err
	}
	done := make(map[string]bool)
	if !exists {
		return done, nil
	}

	rows, err := tx.Query("SELECT name FROM " + MigrationsTable)
	if err != nil {
		return nil, fmt.Errorf("failed to query applied migrations: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("failed to scan migration name: %w", err)
		}
		done[name] = true
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating migrations: %w", err)
	}
	return done, nil
}

// AppliedMigrations lists recorded migration names in name order
func (db *DB) AppliedMigrations() ([]string, error) {
	tx, err := db.conn.Begin()
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	done, err := appliedMigrations(tx)
	if err != nil {
		return nil, err
	}
	names := make([]string, 0, len(done))
	for name := range done {
		names = append(names, name)
	}
	slices.Sort(names)
	return names, nil
}

func tableExists(tx *sql.Tx, table string) (bool, error) {
	var n int
	err := tx.QueryRow(`SELECT COUNT(*) FROM sqlite_master WHERE type = 'table' AND name = ?`, table).Scan(&n)
	if err != nil {
		return false, fmt.Errorf("failed to check for table %s: %w", table, err)
	}
	return n > 0, nil
}

func columnExists(tx *sql.Tx, table, column string) (bool, error) {
	var n int
	err := tx.QueryRow(`SELECT COUNT(*) FROM pragma_table_info(?) WHERE name = ?`, table, column).Scan(&n)
	if err != nil {
		return false, fmt.Errorf("failed to check for column %s.%s: %w", table, column, err)
	}
	return n > 0, nil
}
