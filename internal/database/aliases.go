package database

import (
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"kmtracker/internal/metrics"
)

// Alias is a named set of default values for new rides
type Alias struct {
	ID       int64
	Name     string
	Distance *float64
	Duration *time.Duration
	Comment  *string
	Segments int64
}

// AliasSchema declares the aliases table
var AliasSchema = &Schema[Alias]{
	Table: "aliases",
	Columns: []Column[Alias]{
		{
			Name: "id", Label: "ID", Field: IdentityField,
			Get: func(a *Alias) any { return a.ID },
			Set: func(a *Alias, v any) { a.ID = asInt64(v) },
		},
		{
			Name: "name", Label: "Name", Field: IdentityField,
			Get: func(a *Alias) any { return a.Name },
			Set: func(a *Alias, v any) { a.Name = asString(v) },
		},
		{
			Name: "distance_km", Label: "Distance (km)", Field: FloatField,
			Get: func(a *Alias) any { return optional(a.Distance) },
			Set: func(a *Alias, v any) { a.Distance = setOptional[float64](v) },
		},
		{
			Name: "duration_s", Label: "Duration (hh:mm:ss)", Field: DurationField,
			Get: func(a *Alias) any { return optional(a.Duration) },
			Set: func(a *Alias, v any) { a.Duration = setOptional[time.Duration](v) },
		},
		{
			Name: "comment", Label: "Comment", Field: IdentityField,
			Get: func(a *Alias) any { return optional(a.Comment) },
			Set: func(a *Alias, v any) { a.Comment = optionalString(v) },
		},
		{
			Name: "segments", Label: "Segments", Field: IdentityField,
			Get: func(a *Alias) any {
				if a.Segments == 0 {
					return int64(DefaultSegments)
				}
				return a.Segments
			},
			Set: func(a *Alias, v any) {
				a.Segments = asInt64(v)
				if a.Segments == 0 {
					a.Segments = DefaultSegments
				}
			},
		},
	},
}

// CreateAlias inserts a new alias. A duplicate name fails with the store's
// UNIQUE constraint error (see IsUniqueViolation).
func (db *DB) CreateAlias(a *Alias) error {
	if a.ID != 0 {
		return fmt.Errorf("alias %q already has id %d", a.Name, a.ID)
	}
	if err := Save(db, AliasSchema, a); err != nil {
		return fmt.Errorf("failed to create alias %q: %w", a.Name, err)
	}
	return nil
}

// SaveAlias inserts a when it has no ID and updates it otherwise
func (db *DB) SaveAlias(a *Alias) error {
	return Save(db, AliasSchema, a)
}

// GetAlias retrieves an alias by ID
func (db *DB) GetAlias(id int64) (*Alias, error) {
	return GetByKey(db, AliasSchema, id)
}

// GetAliasByName retrieves an alias by its unique name
func (db *DB) GetAliasByName(name string) (*Alias, error) {
	timer := prometheus.NewTimer(metrics.DBOperationDuration.WithLabelValues(metrics.DBOpGetByName, AliasSchema.Table))
	defer timer.ObserveDuration()

	a, err := getOne(db, AliasSchema, AliasSchema.selectQuery()+" WHERE name = ?", name)
	if err == ErrNotFound {
		return nil, fmt.Errorf("no alias named %q: %w", name, ErrNotFound)
	}
	if err != nil {
		metrics.DBOperationErrorsTotal.WithLabelValues(metrics.DBOpGetByName, AliasSchema.Table).Inc()
		return nil, err
	}
	return a, nil
}

// ListAliases returns all aliases ordered by name
func (db *DB) ListAliases() ([]*Alias, error) {
	timer := prometheus.NewTimer(metrics.DBOperationDuration.WithLabelValues(metrics.DBOpList, AliasSchema.Table))
	defer timer.ObserveDuration()

	aliases, err := list(db, AliasSchema, AliasSchema.selectQuery()+" ORDER BY name ASC")
	if err != nil {
		metrics.DBOperationErrorsTotal.WithLabelValues(metrics.DBOpList, AliasSchema.Table).Inc()
		return nil, err
	}
	return aliases, nil
}
