package database

import (
	"database/sql"
	"errors"
	"fmt"
	"slices"
	"strings"

	"github.com/jmoiron/sqlx"
	"github.com/prometheus/client_golang/prometheus"

	"kmtracker/internal/metrics"
)

// Hydrate builds a record from a raw row keyed by column name. Columns
// missing from the row are left absent.
func Hydrate[T any](s *Schema[T], raw map[string]any) (*T, error) {
	var rec T
	for _, c := range s.Columns {
		v, err := c.Field.Parse(raw[c.Name])
		if err != nil {
			return nil, fmt.Errorf("failed to parse %s.%s: %w", s.Table, c.Name, err)
		}
		c.Set(&rec, v)
	}
	return &rec, nil
}

// Save writes rec to its table. Records without a primary key are inserted
// and receive the generated key; records with one update every non-key
// column of the matching row. Afterwards rec holds exactly the values
// stored in the row.
func Save[T any](db *DB, s *Schema[T], rec *T) error {
	if asInt64(s.Key().Get(rec)) == 0 {
		return insert(db, s, rec)
	}
	return update(db, s, rec)
}

func insert[T any](db *DB, s *Schema[T], rec *T) error {
	timer := prometheus.NewTimer(metrics.DBOperationDuration.WithLabelValues(metrics.DBOpInsert, s.Table))
	defer timer.ObserveDuration()

	cols := s.Values()
	names := make([]string, len(cols))
	args, err := serializeValues(s, rec)
	if err != nil {
		return err
	}
	for i, c := range cols {
		names[i] = c.Name
	}

	query := fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)",
		s.Table, strings.Join(names, ", "), strings.TrimSuffix(strings.Repeat("?, ", len(cols)), ", "))

	result, err := db.conn.Exec(query, args...)
	if err != nil {
		metrics.DBOperationErrorsTotal.WithLabelValues(metrics.DBOpInsert, s.Table).Inc()
		return fmt.Errorf("failed to insert into %s: %w", s.Table, err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get %s id: %w", s.Table, err)
	}
	s.Key().Set(rec, id)
	return writeBack(s, rec, args)
}

func update[T any](db *DB, s *Schema[T], rec *T) error {
	timer := prometheus.NewTimer(metrics.DBOperationDuration.WithLabelValues(metrics.DBOpUpdate, s.Table))
	defer timer.ObserveDuration()

	cols := s.Values()
	setters := make([]string, len(cols))
	for i, c := range cols {
		setters[i] = c.Name + " = ?"
	}
	args, err := serializeValues(s, rec)
	if err != nil {
		return err
	}
	key := s.Key()
	args = append(args, key.Get(rec))

	query := fmt.Sprintf("UPDATE %s SET %s WHERE %s = ?", s.Table, strings.Join(setters, ", "), key.Name)

	result, err := db.conn.Exec(query, args...)
	if err != nil {
		metrics.DBOperationErrorsTotal.WithLabelValues(metrics.DBOpUpdate, s.Table).Inc()
		return fmt.Errorf("failed to update %s: %w", s.Table, err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("%s with %s %v: %w", s.Table, key.Name, key.Get(rec), ErrNotFound)
	}
	return writeBack(s, rec, args)
}

// writeBack sets the non-key fields of rec from the serialized values that
// were written, so defaults and storage precision show on the record
func writeBack[T any](s *Schema[T], rec *T, stored []any) error {
	for i, c := range s.Values() {
		v, err := c.Field.Parse(stored[i])
		if err != nil {
			return fmt.Errorf("failed to parse %s.%s: %w", s.Table, c.Name, err)
		}
		c.Set(rec, v)
	}
	return nil
}

func serializeValues[T any](s *Schema[T], rec *T) ([]any, error) {
	cols := s.Values()
	args := make([]any, len(cols))
	for i, c := range cols {
		v, err := c.Field.Serialize(c.Get(rec))
		if err != nil {
			return nil, fmt.Errorf("failed to serialize %s.%s: %w", s.Table, c.Name, err)
		}
		args[i] = v
	}
	return args, nil
}

// GetByKey retrieves a record by primary key
func GetByKey[T any](db *DB, s *Schema[T], id int64) (*T, error) {
	timer := prometheus.NewTimer(metrics.DBOperationDuration.WithLabelValues(metrics.DBOpGetByKey, s.Table))
	defer timer.ObserveDuration()

	query := fmt.Sprintf("%s WHERE %s = ?", s.selectQuery(), s.Key().Name)
	rec, err := getOne(db, s, query, id)
	if errors.Is(err, ErrNotFound) {
		return nil, fmt.Errorf("no %s entry with %s %d: %w", s.Table, s.Key().Name, id, ErrNotFound)
	}
	if err != nil {
		metrics.DBOperationErrorsTotal.WithLabelValues(metrics.DBOpGetByKey, s.Table).Inc()
		return nil, err
	}
	return rec, nil
}

// GetMostRecent retrieves the record with the highest primary key
func GetMostRecent[T any](db *DB, s *Schema[T]) (*T, error) {
	timer := prometheus.NewTimer(metrics.DBOperationDuration.WithLabelValues(metrics.DBOpGetMostRecent, s.Table))
	defer timer.ObserveDuration()

	key := s.Key().Name
	query := fmt.Sprintf("%s WHERE %s = (SELECT MAX(%s) FROM %s)", s.selectQuery(), key, key, s.Table)
	rec, err := getOne(db, s, query)
	if errors.Is(err, ErrNotFound) {
		return nil, fmt.Errorf("no %s entries: %w", s.Table, ErrNotFound)
	}
	if err != nil {
		metrics.DBOperationErrorsTotal.WithLabelValues(metrics.DBOpGetMostRecent, s.Table).Inc()
		return nil, err
	}
	return rec, nil
}

// ListMostRecent returns the n most recent records, ordered oldest first.
// A negative n returns every record.
func ListMostRecent[T any](db *DB, s *Schema[T], n int) ([]*T, error) {
	timer := prometheus.NewTimer(metrics.DBOperationDuration.WithLabelValues(metrics.DBOpListMostRecent, s.Table))
	defer timer.ObserveDuration()

	if n < 0 {
		n = -1 // SQLite treats a negative LIMIT as unbounded
	}
	query := fmt.Sprintf("%s ORDER BY %s DESC, %s DESC LIMIT ?", s.selectQuery(), s.recencyColumn(), s.Key().Name)
	recs, err := list(db, s, query, n)
	if err != nil {
		metrics.DBOperationErrorsTotal.WithLabelValues(metrics.DBOpListMostRecent, s.Table).Inc()
		return nil, err
	}
	slices.Reverse(recs)
	return recs, nil
}

// Pretty renders every column of rec for display, keyed by column name
func Pretty[T any](s *Schema[T], rec *T) map[string]string {
	out := make(map[string]string, len(s.Columns))
	for _, c := range s.Columns {
		out[c.Name] = c.Field.Pretty(c.Get(rec))
	}
	return out
}

func getOne[T any](db *DB, s *Schema[T], query string, args ...any) (*T, error) {
	raw := make(map[string]any, len(s.Columns))
	err := db.conn.QueryRowx(query, args...).MapScan(raw)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get %s: %w", s.Table, err)
	}
	return Hydrate(s, raw)
}

func list[T any](db *DB, s *Schema[T], query string, args ...any) ([]*T, error) {
	rows, err := db.conn.Queryx(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list %s: %w", s.Table, err)
	}
	defer rows.Close()

	return scanAll(s, rows)
}

func scanAll[T any](s *Schema[T], rows *sqlx.Rows) ([]*T, error) {
	var recs []*T
	for rows.Next() {
		raw := make(map[string]any, len(s.Columns))
		if err := rows.MapScan(raw); err != nil {
			return nil, fmt.Errorf("failed to scan %s: %w", s.Table, err)
		}
		rec, err := Hydrate(s, raw)
		if err != nil {
			return nil, err
		}
		recs = append(recs, rec)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating %s: %w", s.Table, err)
	}

	return recs, nil
}
