// Package fields reads typed values out of untyped store records.
//
// Every accessor takes an ordered list of alternate keys and returns the
// value of the first key that is present with a usable type. Records written
// by older clients used different names for the same attribute; listing the
// canonical name first and the legacy names after it resolves them once at
// the decode boundary.
package fields

import (
	"fmt"
	"math"
	"time"
)

// DecodeError describes one record that could not be decoded.
type DecodeError struct {
	Collection string
	ID         string
	Field      string
	Reason     string
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("decode %s/%s: field %q %s", e.Collection, e.ID, e.Field, e.Reason)
}

// Map is an untyped record.
type Map map[string]interface{}

// Has reports whether any of keys is present with a non-nil value.
func (m Map) Has(keys ...string) bool {
	for _, k := range keys {
		if v, ok := m[k]; ok && v != nil {
			return true
		}
	}
	return false
}

// String returns the first string value among keys.
func (m Map) String(keys ...string) (string, bool) {
	for _, k := range keys {
		if s, ok := m[k].(string); ok {
			return s, true
		}
	}
	return "", false
}

// StringSlice returns the first list of strings among keys. A bare string is
// read as a one-element list. Non-string elements are skipped.
func (m Map) StringSlice(keys ...string) ([]string, bool) {
	for _, k := range keys {
		switch v := m[k].(type) {
		case []string:
			return append([]string(nil), v...), true
		case []interface{}:
			out := make([]string, 0, len(v))
			for _, item := range v {
				if s, ok := item.(string); ok {
					out = append(out, s)
				}
			}
			return out, true
		case string:
			if v == "" {
				continue
			}
			return []string{v}, true
		}
	}
	return nil, false
}

// Float returns the first numeric value among keys.
func (m Map) Float(keys ...string) (float64, bool) {
	for _, k := range keys {
		if f, ok := toFloat(m[k]); ok {
			return f, true
		}
	}
	return 0, false
}

// Int returns the first integral numeric value among keys.
func (m Map) Int(keys ...string) (int, bool) {
	for _, k := range keys {
		f, ok := toFloat(m[k])
		if !ok || f != math.Trunc(f) {
			continue
		}
		return int(f), true
	}
	return 0, false
}

// Bool returns the first boolean value among keys.
func (m Map) Bool(keys ...string) (bool, bool) {
	for _, k := range keys {
		if b, ok := m[k].(bool); ok {
			return b, true
		}
	}
	return false, false
}

// Time returns the first timestamp among keys. Timestamps may be stored as
// time.Time, as seconds since the Unix epoch, or as RFC 3339 strings.
func (m Map) Time(keys ...string) (time.Time, bool) {
	for _, k := range keys {
		switch v := m[k].(type) {
		case time.Time:
			return v, true
		case *time.Time:
			if v != nil {
				return *v, true
			}
		case string:
			if t, err := time.Parse(time.RFC3339Nano, v); err == nil {
				return t, true
			}
		default:
			if f, ok := toFloat(v); ok {
				sec, frac := math.Modf(f)
				return time.Unix(int64(sec), int64(frac*1e9)).UTC(), true
			}
		}
	}
	return time.Time{}, false
}

// Sub returns the first nested record among keys.
func (m Map) Sub(keys ...string) (Map, bool) {
	for _, k := range keys {
		switch v := m[k].(type) {
		case map[string]interface{}:
			return Map(v), true
		case Map:
			return v, true
		}
	}
	return nil, false
}

func toFloat(v interface{}) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case int32:
		return float64(n), true
	default:
		return 0, false
	}
}
