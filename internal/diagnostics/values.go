package diagnostics

import (
	"encoding/json"
	"fmt"
	"math"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// Float converts a raw column value to float64. Nulls and anything
// non-numeric become 0.
func Float(v any) float64 {
	var f float64
	switch n := v.(type) {
	case json.Number:
		parsed, err := n.Float64()
		if err != nil {
			return 0
		}
		f = parsed
	case float64:
		f = n
	case float32:
		f = float64(n)
	case int:
		f = float64(n)
	case int64:
		f = float64(n)
	default:
		return 0
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0
	}
	return f
}

// Int converts a raw column value to int64, truncating fractional values.
// Nulls become 0.
func Int(v any) int64 {
	if n, ok := v.(json.Number); ok {
		if i, err := n.Int64(); err == nil {
			return i
		}
	}
	return int64(Float(v))
}

// String converts a raw column value to a string. Nulls become "".
func String(v any) string {
	switch s := v.(type) {
	case nil:
		return ""
	case string:
		return s
	default:
		return fmt.Sprint(s)
	}
}

// Column returns row[i], or nil when the row is too short.
func Column(row []any, i int) any {
	if i < 0 || i >= len(row) {
		return nil
	}
	return row[i]
}

// MicrosToMillis converts a raw microsecond value to milliseconds.
func MicrosToMillis(v any) float64 {
	return Float(v) / 1000
}

// Percent converts a raw fraction to a percentage.
func Percent(v any) float64 {
	return Float(v) * 100
}

// Ratio divides num by den, returning 0 when den is 0.
func Ratio(num, den float64) float64 {
	if den == 0 {
		return 0
	}
	return num / den
}

// ResourceLabel returns the display name for a resource type: short
// acronyms are upper-cased, anything else is title-cased.
func ResourceLabel(resourceType string) string {
	switch strings.ToLower(resourceType) {
	case "cpu", "gpu":
		return strings.ToUpper(resourceType)
	default:
		// Casers carry state, so each call gets its own.
		return cases.Title(language.English).String(resourceType)
	}
}
