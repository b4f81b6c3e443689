// Package values decodes CSV cells into typed values and infers column types.
//
// Decoded values are nil (NULL), string, int64, float64, bool or time.Time.
package values

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/vvka-141/pgingest/pkg/pgingest"
)

// DateLayouts are the date formats recognized without an explicit layout.
var DateLayouts = []string{
	"2006-01-02",
	"2006/01/02",
	"02.01.2006",
	"02/01/2006",
	"01/02/2006",
	"2 Jan 2006",
	"02-Jan-2006",
	"20060102",
}

// TimestampLayouts are the timestamp formats recognized without an explicit layout.
var TimestampLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02 15:04:05",
	"2006-01-02 15:04:05.999999999",
	"2006-01-02T15:04:05",
	"2006-01-02 15:04",
	"2006/01/02 15:04:05",
	"02/01/2006 15:04:05",
	"01/02/2006 15:04:05",
	"01/02/2006 03:04:05 PM",
	"2006-01-02T15:04:05Z0700",
	"2006-01-02 15:04:05 -0700",
}

// IsInt reports whether s is a base-10 integer that fits in int64.
func IsInt(s string) bool {
	_, err := strconv.ParseInt(strings.TrimSpace(s), 10, 64)
	return err == nil
}

// IsReal reports whether s is a finite floating point number.
func IsReal(s string) bool {
	_, err := parseReal(s)
	return err == nil
}

// IsBool reports whether s spells true or false in any case. Decode accepts
// more spellings (yes/no, t/f, y/n) for columns declared boolean, but those
// are too common in text flag columns to drive inference.
func IsBool(s string) bool {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "true", "false":
		return true
	}
	return false
}

// Infer picks the narrowest type every non-empty sample satisfies, trying
// integer, boolean, real, then date or timestamp, then text. For date and
// timestamp columns it also returns the first layout matching every sample.
func Infer(samples []string) (pgingest.FieldType, string) {
	nonEmpty := make([]string, 0, len(samples))
	for _, s := range samples {
		if t := strings.TrimSpace(s); t != "" {
			nonEmpty = append(nonEmpty, t)
		}
	}
	if len(nonEmpty) == 0 {
		return pgingest.FieldText, ""
	}

	switch {
	case all(nonEmpty, IsInt):
		return pgingest.FieldInteger, ""
	case all(nonEmpty, IsBool):
		return pgingest.FieldBoolean, ""
	case all(nonEmpty, IsReal):
		return pgingest.FieldReal, ""
	}

	if layout := commonLayout(nonEmpty, DateLayouts); layout != "" {
		return pgingest.FieldDate, layout
	}
	if layout := commonLayout(nonEmpty, TimestampLayouts); layout != "" {
		return pgingest.FieldTimestamp, layout
	}
	return pgingest.FieldText, ""
}

// Decode converts a raw cell to t. Empty cells decode to nil except for text
// columns, where only a truly empty string is NULL. For date and timestamp
// columns a non-empty layout is the only one accepted; without one the
// built-in layouts are tried in order.
func Decode(s string, t pgingest.FieldType, layout string) (any, error) {
	if s == "" {
		return nil, nil
	}
	if t == pgingest.FieldText {
		return s, nil
	}

	trimmed := strings.TrimSpace(s)
	if trimmed == "" {
		return nil, nil
	}

	switch t {
	case pgingest.FieldInteger:
		v, err := strconv.ParseInt(trimmed, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid integer %q", s)
		}
		return v, nil
	case pgingest.FieldReal:
		return parseReal(trimmed)
	case pgingest.FieldBoolean:
		return parseBool(trimmed)
	case pgingest.FieldDate:
		ts, err := parseTime(trimmed, layout, DateLayouts, TimestampLayouts)
		if err != nil {
			return nil, fmt.Errorf("invalid date: %w", err)
		}
		y, m, d := ts.Date()
		return time.Date(y, m, d, 0, 0, 0, 0, time.UTC), nil
	case pgingest.FieldTimestamp:
		ts, err := parseTime(trimmed, layout, TimestampLayouts, DateLayouts)
		if err != nil {
			return nil, fmt.Errorf("invalid timestamp: %w", err)
		}
		return ts, nil
	default:
		return nil, fmt.Errorf("unsupported field type %v", t)
	}
}

// Convert changes an already decoded value to t.
func Convert(v any, t pgingest.FieldType, layout string) (any, error) {
	switch x := v.(type) {
	case nil:
		return nil, nil
	case string:
		return Decode(x, t, layout)
	case int64:
		switch t {
		case pgingest.FieldInteger:
			return x, nil
		case pgingest.FieldReal:
			return float64(x), nil
		case pgingest.FieldText:
			return strconv.FormatInt(x, 10), nil
		case pgingest.FieldBoolean:
			if x == 0 || x == 1 {
				return x == 1, nil
			}
		case pgingest.FieldDate, pgingest.FieldTimestamp:
			return Decode(strconv.FormatInt(x, 10), t, layout)
		}
	case float64:
		switch t {
		case pgingest.FieldReal:
			return x, nil
		case pgingest.FieldInteger:
			if x == math.Trunc(x) && math.Abs(x) < 1<<63 {
				return int64(x), nil
			}
		case pgingest.FieldText:
			return strconv.FormatFloat(x, 'f', -1, 64), nil
		}
	case bool:
		switch t {
		case pgingest.FieldBoolean:
			return x, nil
		case pgingest.FieldText:
			return strconv.FormatBool(x), nil
		case pgingest.FieldInteger:
			if x {
				return int64(1), nil
			}
			return int64(0), nil
		}
	case time.Time:
		switch t {
		case pgingest.FieldTimestamp:
			return x, nil
		case pgingest.FieldDate:
			y, m, d := x.Date()
			return time.Date(y, m, d, 0, 0, 0, 0, time.UTC), nil
		case pgingest.FieldText:
			if layout != "" {
				return x.Format(layout), nil
			}
			return x.Format(time.RFC3339Nano), nil
		}
	default:
		return nil, fmt.Errorf("unsupported value type %T", v)
	}
	return nil, fmt.Errorf("cannot convert %v (%T) to %s", v, v, t)
}

func parseReal(s string) (float64, error) {
	v, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, fmt.Errorf("invalid real %q", s)
	}
	return v, nil
}

func parseBool(s string) (bool, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "true", "t", "yes", "y", "1":
		return true, nil
	case "false", "f", "no", "n", "0":
		return false, nil
	}
	return false, fmt.Errorf("invalid boolean %q", s)
}

func parseTime(s, layout string, primary, secondary []string) (time.Time, error) {
	if layout != "" {
		ts, err := time.Parse(layout, s)
		if err != nil {
			return time.Time{}, fmt.Errorf("%q does not match layout %q", s, layout)
		}
		return ts, nil
	}
	for _, layouts := range [][]string{primary, secondary} {
		for _, l := range layouts {
			if ts, err := time.Parse(l, s); err == nil {
				return ts, nil
			}
		}
	}
	return time.Time{}, fmt.Errorf("no layout matches %q", s)
}

func commonLayout(samples []string, layouts []string) string {
	for _, layout := range layouts {
		ok := true
		for _, s := range samples {
			if _, err := time.Parse(layout, s); err != nil {
				ok = false
				break
			}
		}
		if ok {
			return layout
		}
	}
	return ""
}

func all(vals []string, fn func(string) bool) bool {
	for _, v := range vals {
		if !fn(v) {
			return false
		}
	}
	return true
}
