package database

import "strings"

// Column binds one stored column to a field codec and to the struct member
// of T that holds its domain value. Get and Set exchange domain values
// (nil meaning absent), never raw storage values.
type Column[T any] struct {
	Name  string
	Label string
	Field Field
	Get   func(rec *T) any
	Set   func(rec *T, v any)
}

// Schema declares the ordered columns of one table. The first column is
// the integer primary key; it is assigned by the store and never updated.
type Schema[T any] struct {
	Table string
	// RecencyColumn orders ListMostRecent; the primary key when empty
	RecencyColumn string
	Columns       []Column[T]
}

// Key returns the primary key column
func (s *Schema[T]) Key() Column[T] {
	return s.Columns[0]
}

// Values returns the non-key columns in declaration order
func (s *Schema[T]) Values() []Column[T] {
	return s.Columns[1:]
}

// Column looks up a column by name
func (s *Schema[T]) Column(name string) (Column[T], bool) {
	for _, c := range s.Columns {
		if c.Name == name {
			return c, true
		}
	}
	return Column[T]{}, false
}

// Labels returns the display labels in declaration order
func (s *Schema[T]) Labels() []string {
	labels := make([]string, len(s.Columns))
	for i, c := range s.Columns {
		labels[i] = c.Label
	}
	return labels
}

func (s *Schema[T]) columnList() string {
	names := make([]string, len(s.Columns))
	for i, c := range s.Columns {
		names[i] = c.Name
	}
	return strings.Join(names, ", ")
}

func (s *Schema[T]) selectQuery() string {
	return "SELECT " + s.columnList() + " FROM " + s.Table
}

func (s *Schema[T]) recencyColumn() string {
	if s.RecencyColumn == "" {
		return s.Key().Name
	}
	return s.RecencyColumn
}

// Accessors shared by the entity declarations. Pointer members map nil to
// an absent value.

func optional[V any](p *V) any {
	if p == nil {
		return nil
	}
	return *p
}

func setOptional[V any](v any) *V {
	if v == nil {
		return nil
	}
	x, ok := v.(V)
	if !ok {
		return nil
	}
	return &x
}

func asInt64(v any) int64 {
	switch x := v.(type) {
	case int64:
		return x
	case int:
		return int64(x)
	case float64:
		return int64(x)
	}
	return 0
}

func asString(v any) string {
	switch x := v.(type) {
	case string:
		return x
	case []byte:
		return string(x)
	}
	return ""
}

func optionalString(v any) *string {
	switch v.(type) {
	case string, []byte:
		s := asString(v)
		return &s
	}
	return nil
}
