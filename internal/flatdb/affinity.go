package flatdb

import (
	"encoding/json"
	"math"
	"strconv"
	"strings"
)

// Type coercion maps decoded values to the declared column type.
//
// Decoded type (CSV field or JSON value) → coerced Go type:
//
//	"" / null / absent → default of the column ("" or 0)
//	"12" / 12          → int64 for INTEGER, float64 for REAL, "12" for TEXT
//	"1.5" / 1.5        → int64(1) for INTEGER, float64 for REAL, "1.5" for TEXT
//	true / false       → 1 / 0 for numeric columns, "1" / "0" for TEXT
//	"abc"              → 0 for numeric columns, "abc" for TEXT
//	[...] / {...}      → 0 for numeric columns, JSON-encoded for TEXT
//
// Numeric strings are trimmed before parsing, so " 7 " is 7.

// Affinity is the coercion class of a column.
type Affinity int

const (
	// AffinityTEXT converts numeric values to their string representation.
	AffinityTEXT Affinity = iota
	// AffinityINTEGER forces integer representation.
	AffinityINTEGER
	// AffinityREAL forces floating point representation.
	AffinityREAL
)

// Affinity returns the coercion class for a column type.
func (c ColumnType) Affinity() Affinity {
	switch c {
	case ColumnTypeInteger:
		return AffinityINTEGER
	case ColumnTypeReal:
		return AffinityREAL
	default:
		return AffinityTEXT
	}
}

// CoerceValue applies type coercion to a value based on affinity.
//
// Values that cannot be coerced are returned unchanged; nil passes through.
func CoerceValue(value any, affinity Affinity) any {
	if value == nil {
		return nil
	}
	switch affinity {
	case AffinityINTEGER:
		return coerceToInteger(value)
	case AffinityREAL:
		return coerceToReal(value)
	default:
		return coerceToText(value)
	}
}

// Normalize returns a new field map holding exactly the schema's columns,
// each coerced to its declared type.
//
// Absent, null, blank and non-coercible values become the column default.
// Keys that are not columns are dropped. The input is not modified.
func (s *Schema) Normalize(fields map[string]any) map[string]any {
	out := make(map[string]any, len(s.Columns))
	for _, c := range s.Columns {
		out[c.Name] = normalizeValue(fields[c.Name], c.Type)
	}
	return out
}

func normalizeValue(value any, t ColumnType) any {
	switch t {
	case ColumnTypeInteger:
		if i, ok := CoerceValue(value, AffinityINTEGER).(int64); ok {
			return i
		}
		return int64(0)
	case ColumnTypeReal:
		if f, ok := CoerceValue(value, AffinityREAL).(float64); ok && !math.IsNaN(f) && !math.IsInf(f, 0) {
			return f
		}
		return float64(0)
	default:
		switch v := CoerceValue(value, AffinityTEXT).(type) {
		case nil:
			return ""
		case string:
			return v
		default:
			b, err := json.Marshal(v)
			if err != nil {
				return ""
			}
			return string(b)
		}
	}
}

func coerceToText(value any) any {
	switch v := value.(type) {
	case string:
		return v
	case json.Number:
		return v.String()
	case float64:
		if v == math.Trunc(v) && !math.IsInf(v, 0) && !math.IsNaN(v) && math.Abs(v) < 1e15 {
			return strconv.FormatInt(int64(v), 10)
		}
		return strconv.FormatFloat(v, 'f', -1, 64)
	case int64:
		return strconv.FormatInt(v, 10)
	case int:
		return strconv.Itoa(v)
	case bool:
		if v {
			return "1"
		}
		return "0"
	default:
		return value
	}
}

func coerceToInteger(value any) any {
	switch v := value.(type) {
	case int64:
		return v
	case int:
		return int64(v)
	case float64:
		if i, ok := floatToInt(v); ok {
			return i
		}
		return v
	case json.Number:
		return coerceToInteger(v.String())
	case string:
		s := strings.TrimSpace(v)
		if i, err := strconv.ParseInt(s, 10, 64); err == nil {
			return i
		}
		if f, err := strconv.ParseFloat(s, 64); err == nil {
			if i, ok := floatToInt(f); ok {
				return i
			}
		}
		return v
	case bool:
		if v {
			return int64(1)
		}
		return int64(0)
	default:
		return value
	}
}

func coerceToReal(value any) any {
	switch v := value.(type) {
	case float64:
		return v
	case int64:
		return float64(v)
	case int:
		return float64(v)
	case json.Number:
		return coerceToReal(v.String())
	case string:
		if f, err := strconv.ParseFloat(strings.TrimSpace(v), 64); err == nil {
			return f
		}
		return v
	case bool:
		if v {
			return float64(1)
		}
		return float64(0)
	default:
		return value
	}
}

// floatToInt truncates f toward zero if the result fits in an int64.
func floatToInt(f float64) (int64, bool) {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	t := math.Trunc(f)
	if t < math.MinInt64 || t >= math.MaxInt64 {
		return 0, false
	}
	return int64(t), true
}
