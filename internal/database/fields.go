package database

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"
)

// Codec converts a single column between its stored and domain form.
// Parse(Serialize(v)) gives back v; for datetimes that holds under
// time.Time.Equal, with the result in time.Local.
type Codec interface {
	Parse(raw any) (any, error)
	Serialize(v any) (any, error)
	Pretty(v any) string
}

// Field is the closed set of column codecs. A nil domain value always
// means "absent" and maps to SQL NULL.
type Field uint8

const (
	// IdentityField stores values unchanged
	IdentityField Field = iota
	// DatetimeField stores a time.Time as local ISO-8601 text and reads it
	// back in time.Local
	DatetimeField
	// DurationField stores a time.Duration as whole seconds
	DurationField
	// FloatField stores a float64 and displays it with one decimal
	FloatField
)

// TimestampLayout is the ISO-8601 form written to datetime columns.
// Timestamps are stored as local wall-clock time without an offset.
const TimestampLayout = "2006-01-02T15:04:05.999999999"

const dateLayout = "2006-01-02"

// layouts accepted when reading datetime columns, most specific first
var timestampLayouts = []string{
	time.RFC3339Nano,
	TimestampLayout,
	"2006-01-02 15:04:05.999999999Z07:00",
	"2006-01-02 15:04:05.999999999",
	dateLayout,
}

func (f Field) String() string {
	switch f {
	case IdentityField:
		return "identity"
	case DatetimeField:
		return "datetime"
	case DurationField:
		return "duration"
	case FloatField:
		return "float"
	}
	return fmt.Sprintf("field(%d)", uint8(f))
}

// Parse converts a raw value as returned by the driver into the domain value
func (f Field) Parse(raw any) (any, error) {
	if raw == nil {
		return nil, nil
	}
	switch f {
	case IdentityField:
		return raw, nil
	case DatetimeField:
		return parseTimestamp(raw)
	case DurationField:
		switch v := raw.(type) {
		case int64:
			return time.Duration(v) * time.Second, nil
		case float64:
			return time.Duration(math.Round(v)) * time.Second, nil
		}
		return nil, fmt.Errorf("duration column: unexpected %T", raw)
	case FloatField:
		switch v := raw.(type) {
		case float64:
			return v, nil
		case int64:
			return float64(v), nil
		}
		return nil, fmt.Errorf("float column: unexpected %T", raw)
	}
	return nil, fmt.Errorf("unknown %s", f)
}

// Serialize converts a domain value into the value written to the store
func (f Field) Serialize(v any) (any, error) {
	if v == nil {
		return nil, nil
	}
	switch f {
	case IdentityField:
		return v, nil
	case DatetimeField:
		t, ok := v.(time.Time)
		if !ok {
			return nil, fmt.Errorf("datetime column: unexpected %T", v)
		}
		return t.Local().Format(TimestampLayout), nil
	case DurationField:
		d, ok := v.(time.Duration)
		if !ok {
			return nil, fmt.Errorf("duration column: unexpected %T", v)
		}
		return int64(d / time.Second), nil
	case FloatField:
		x, ok := v.(float64)
		if !ok {
			return nil, fmt.Errorf("float column: unexpected %T", v)
		}
		return x, nil
	}
	return nil, fmt.Errorf("unknown %s", f)
}

// Pretty renders a domain value for display. Absent values render as "".
func (f Field) Pretty(v any) string {
	if v == nil {
		return ""
	}
	switch f {
	case DatetimeField:
		if t, ok := v.(time.Time); ok {
			return t.Format(dateLayout)
		}
	case DurationField:
		if d, ok := v.(time.Duration); ok {
			return FormatDuration(d)
		}
	case FloatField:
		if x, ok := v.(float64); ok {
			return FormatFloat(x)
		}
	}
	return fmt.Sprint(v)
}

// FormatDuration renders d as HH:MM:SS where HH counts total hours
func FormatDuration(d time.Duration) string {
	secs := int64(d / time.Second)
	sign := ""
	if secs < 0 {
		sign = "-"
		secs = -secs
	}
	return fmt.Sprintf("%s%02d:%02d:%02d", sign, secs/3600, secs%3600/60, secs%60)
}

// FormatFloat rounds x to one decimal place
func FormatFloat(x float64) string {
	return strconv.FormatFloat(math.Round(x*10)/10, 'f', 1, 64)
}

func parseTimestamp(raw any) (any, error) {
	var s string
	switch v := raw.(type) {
	case string:
		s = v
	case []byte:
		s = string(v)
	case time.Time:
		return v, nil
	default:
		return nil, fmt.Errorf("datetime column: unexpected %T", raw)
	}

	s = strings.TrimSpace(s)
	if s == "" {
		return nil, nil
	}
	for _, layout := range timestampLayouts {
		if t, err := time.ParseInLocation(layout, s, time.Local); err == nil {
			return t, nil
		}
	}
	return nil, fmt.Errorf("datetime column: cannot parse %q", s)
}
