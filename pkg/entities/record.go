package entities

import (
	"math"
	"strconv"
	"strings"
)

// Record is one row of tabular model input keyed by column name.
// Values are float64 or string, a nil or absent value is missing.
type Record map[string]any

// IsMissing reports whether a raw value counts as missing. The training data
// spells missing values as "NaN" with varying case and padding.
func IsMissing(value any) bool {
	switch v := value.(type) {
	case nil:
		return true
	case string:
		trimmed := strings.TrimSpace(v)

		return trimmed == "" || strings.EqualFold(trimmed, "nan")
	case float64:
		return math.IsNaN(v)
	default:
		return false
	}
}

func (r Record) Missing(column string) bool {
	return IsMissing(r[column])
}

// Float returns the column as a number, parsing strings when needed.
func (r Record) Float(column string) (float64, bool) {
	if r.Missing(column) {
		return 0, false
	}

	switch v := r[column].(type) {
	case float64:
		return v, true
	case int:
		return float64(v), true
	case int64:
		return float64(v), true
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
		if err != nil {
			return 0, false
		}

		return f, true
	default:
		return 0, false
	}
}

// String returns the column as text, numbers are formatted without trailing zeros.
func (r Record) String(column string) (string, bool) {
	if r.Missing(column) {
		return "", false
	}

	switch v := r[column].(type) {
	case string:
		return v, true
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64), true
	default:
		return "", false
	}
}

// HasMissing reports whether any column is missing.
func (r Record) HasMissing() bool {
	for column := range r {
		if r.Missing(column) {
			return true
		}
	}

	return false
}
