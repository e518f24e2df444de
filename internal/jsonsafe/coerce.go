// Package jsonsafe converts driver-native result-set cell values into
// values that marshal to JSON without losing their structural identity:
// character LOBs become plain strings, temporal values become ISO-8601 UTC
// strings, and so on. Coerce passes byte slices through as text; it does
// not base64-encode them, which only CoerceBinary does. Coercion never
// fails - an unrecognized or unconvertible value reduces to nil rather
// than propagating an error to the caller, per the collector/executor
// contract that a single bad cell must not abort a result set.
package jsonsafe

import (
	"encoding/base64"
	"fmt"
	"strings"
	"time"
)

// Coerce converts v, a value as returned by database/sql row scanning (or
// a driver-specific equivalent pulled from an any-typed cell), into a
// value safe to pass to encoding/json.Marshal.
func Coerce(v interface{}) interface{} {
	if v == nil {
		return nil
	}

	switch val := v.(type) {
	case []byte:
		return coerceBytes(val)
	case string:
		return val
	case bool, int, int8, int16, int32, int64, uint, uint8, uint16, uint32, uint64, float32, float64:
		return val
	case time.Time:
		return coerceTime(val)
	case *time.Time:
		if val == nil {
			return nil
		}
		return coerceTime(*val)
	case []interface{}:
		return coerceArray(val)
	case error:
		// Some drivers surface per-cell decode failures as an error value
		// embedded in the row; reduce to null rather than propagate.
		return nil
	default:
		// Covers fmt.Stringer and any other struct-shaped driver type;
		// routed through the panic-safe fallback since a misbehaving
		// String()/Format() must not escape coercion.
		return coerceUnknown(v)
	}
}

// coerceBytes decides between the character-LOB and byte-LOB policies.
// Without a column type name to disambiguate VARCHAR-as-bytes from a true
// BLOB, byte slices are treated as text (database/sql commonly hands back
// []byte for TEXT/VARCHAR columns under certain drivers). Callers that know the
// column is a binary LOB should base64-encode before calling Coerce, or
// use CoerceBinary directly.
func coerceBytes(b []byte) interface{} {
	return string(b)
}

// CoerceBinary applies the byte-LOB policy explicitly: base64 text.
func CoerceBinary(b []byte) string {
	return base64.StdEncoding.EncodeToString(b)
}

// coerceTime renders a temporal value as ISO-8601 in UTC. A zero Location
// (no zone information from the driver) is treated as already UTC rather
// than shifted.
func coerceTime(t time.Time) string {
	if t.Location() == time.Local {
		t = t.UTC()
	} else if t.Location() == nil {
		t = time.Date(t.Year(), t.Month(), t.Day(), t.Hour(), t.Minute(), t.Second(), t.Nanosecond(), time.UTC)
	}
	return t.UTC().Format(time.RFC3339Nano)
}

// coerceArray recursively coerces each element, producing a homogeneous
// JSON array. Coercion failures within an element reduce that element to
// nil without aborting the rest of the array.
func coerceArray(vals []interface{}) []interface{} {
	out := make([]interface{}, len(vals))
	for i, v := range vals {
		out[i] = Coerce(v)
	}
	return out
}

// coerceUnknown handles struct-shaped driver types (e.g. database-specific
// numeric or composite wrappers) by falling back to their string form.
// A panic from a misbehaving Stringer/Format implementation reduces the
// value to nil: fmt recovers such panics itself and embeds a
// "%!v(PANIC=...)" marker in the output, which is detected here; the
// recover covers any panic fmt does not absorb.
func coerceUnknown(v interface{}) (result interface{}) {
	defer func() {
		if recover() != nil {
			result = nil
		}
	}()
	s := fmt.Sprintf("%v", v)
	if strings.Contains(s, "(PANIC=") {
		return nil
	}
	return s
}
