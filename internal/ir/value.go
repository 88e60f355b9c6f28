package ir

import (
	"encoding/json"
	"fmt"
	"math"
	"time"
)

// Value is a sealed interface over the scalar values the query layer handles.
// Only Null, String, Int, Float, Bool, Date and DateTime implement it.
type Value interface {
	irValue() // Sealed - only these types implement it
}

// Null represents SQL NULL / JSON null.
type Null struct{}

func (Null) irValue() {}

// MarshalJSON implements json.Marshaler for Null.
func (Null) MarshalJSON() ([]byte, error) {
	return []byte("null"), nil
}

// String represents a text value.
type String string

func (String) irValue() {}

// Int represents an integral number.
type Int int64

func (Int) irValue() {}

// Float represents a non-integral number.
type Float float64

func (Float) irValue() {}

// Bool represents a boolean value.
type Bool bool

func (Bool) irValue() {}

// DateLayout is the wire format of a Date.
const DateLayout = "2006-01-02"

// Date is a calendar date without a time component.
type Date struct {
	Year  int
	Month time.Month
	Day   int
}

func (Date) irValue() {}

// DateOf returns the calendar date of t in t's location.
func DateOf(t time.Time) Date {
	y, m, d := t.Date()
	return Date{Year: y, Month: m, Day: d}
}

// String formats the date as YYYY-MM-DD.
func (d Date) String() string {
	return fmt.Sprintf("%04d-%02d-%02d", d.Year, int(d.Month), d.Day)
}

// Time returns midnight UTC of the date.
func (d Date) Time() time.Time {
	return time.Date(d.Year, d.Month, d.Day, 0, 0, 0, 0, time.UTC)
}

// MarshalJSON encodes the date as a "YYYY-MM-DD" string.
func (d Date) MarshalJSON() ([]byte, error) {
	return json.Marshal(d.String())
}

// DateTime is a full timestamp.
type DateTime time.Time

func (DateTime) irValue() {}

// Time returns the underlying time.Time.
func (dt DateTime) Time() time.Time {
	return time.Time(dt)
}

// MarshalJSON encodes the timestamp as RFC 3339 with nanoseconds.
func (dt DateTime) MarshalJSON() ([]byte, error) {
	return json.Marshal(time.Time(dt).Format(time.RFC3339Nano))
}

// FromAny converts a decoded JSON value (or a native Go scalar) into a Value.
//
// Integral float64 values, which is how encoding/json decodes every number
// into an interface, become Int so the engine sees an integer parameter.
func FromAny(v any) (Value, error) {
	switch val := v.(type) {
	case nil:
		return Null{}, nil
	case Value:
		return val, nil
	case string:
		return String(val), nil
	case []byte:
		return String(val), nil
	case bool:
		return Bool(val), nil
	case int:
		return Int(val), nil
	case int8:
		return Int(val), nil
	case int16:
		return Int(val), nil
	case int32:
		return Int(val), nil
	case int64:
		return Int(val), nil
	case uint8:
		return Int(val), nil
	case uint16:
		return Int(val), nil
	case uint32:
		return Int(val), nil
	case uint:
		if uint64(val) > math.MaxInt64 {
			return nil, fmt.Errorf("integer %d overflows int64", val)
		}
		return Int(val), nil
	case uint64:
		if val > math.MaxInt64 {
			return nil, fmt.Errorf("integer %d overflows int64", val)
		}
		return Int(val), nil
	case float32:
		return fromFloat(float64(val)), nil
	case float64:
		return fromFloat(val), nil
	case json.Number:
		if i, err := val.Int64(); err == nil {
			return Int(i), nil
		}
		f, err := val.Float64()
		if err != nil {
			return nil, fmt.Errorf("invalid number %q: %w", val.String(), err)
		}
		return Float(f), nil
	case time.Time:
		return DateTime(val), nil
	case []any, map[string]any:
		return nil, fmt.Errorf("composite value %T is not a scalar", v)
	default:
		return nil, fmt.Errorf("unsupported value type: %T", v)
	}
}

// FromAnySlice converts every element of vals with FromAny.
func FromAnySlice(vals []any) ([]Value, error) {
	out := make([]Value, len(vals))
	for i, v := range vals {
		conv, err := FromAny(v)
		if err != nil {
			return nil, fmt.Errorf("[%d]: %w", i, err)
		}
		out[i] = conv
	}
	return out, nil
}

func fromFloat(f float64) Value {
	if f == math.Trunc(f) && !math.IsInf(f, 0) && math.Abs(f) < 1<<53 {
		return Int(int64(f))
	}
	return Float(f)
}

// IsNull reports whether v is nil or Null.
func IsNull(v Value) bool {
	if v == nil {
		return true
	}
	_, ok := v.(Null)
	return ok
}

// Param converts a Value into a database/sql driver argument.
// Dates are sent as "YYYY-MM-DD" text, which every supported engine accepts
// for a DATE column.
func Param(v Value) (any, error) {
	switch val := v.(type) {
	case nil, Null:
		return nil, nil
	case String:
		return string(val), nil
	case Int:
		return int64(val), nil
	case Float:
		return float64(val), nil
	case Bool:
		return bool(val), nil
	case Date:
		return val.String(), nil
	case DateTime:
		return time.Time(val), nil
	default:
		return nil, fmt.Errorf("unsupported Value type for SQL parameter: %T", v)
	}
}

// Native converts a Value back into a plain Go value for result rows.
func Native(v Value) any {
	switch val := v.(type) {
	case nil, Null:
		return nil
	case String:
		return string(val)
	case Int:
		return int64(val)
	case Float:
		return float64(val)
	case Bool:
		return bool(val)
	case Date:
		return val
	case DateTime:
		return time.Time(val)
	default:
		return val
	}
}
