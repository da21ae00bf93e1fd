package events

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"
)

// ResolveString resolves candidates and renders the result as a string.
// The second return is false when nothing resolved.
func ResolveString(e RawEvent, candidates []FieldPath) (string, bool) {
	v := Resolve(e, candidates, nil)
	if v == nil {
		return "", false
	}
	return AsString(v), true
}

// ResolveStringOr is ResolveString with a literal default.
func ResolveStringOr(e RawEvent, candidates []FieldPath, def string) string {
	if s, ok := ResolveString(e, candidates); ok {
		return s
	}
	return def
}

// ResolveFloat resolves candidates and coerces the result to a number.
// Values that cannot be read as a number yield def.
func ResolveFloat(e RawEvent, candidates []FieldPath, def float64) float64 {
	v := Resolve(e, candidates, nil)
	if v == nil {
		return def
	}
	f, ok := AsFloat(v)
	if !ok {
		return def
	}
	return f
}

// AsString renders a scalar event value as text.
func AsString(v interface{}) string {
	switch val := v.(type) {
	case string:
		return val
	case time.Time:
		return val.UTC().Format(time.RFC3339Nano)
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64)
	case float32:
		return strconv.FormatFloat(float64(val), 'f', -1, 32)
	case int:
		return strconv.Itoa(val)
	case int32:
		return strconv.FormatInt(int64(val), 10)
	case int64:
		return strconv.FormatInt(val, 10)
	case bool:
		return strconv.FormatBool(val)
	case json.Number:
		return val.String()
	case fmt.Stringer:
		return val.String()
	default:
		return fmt.Sprint(val)
	}
}

// AsFloat coerces numeric event values, including numeric strings.
// NaN and infinities are rejected so an amount is always a finite number.
func AsFloat(v interface{}) (float64, bool) {
	switch val := v.(type) {
	case float64:
		return finite(val)
	case float32:
		return finite(float64(val))
	case int:
		return float64(val), true
	case int32:
		return float64(val), true
	case int64:
		return float64(val), true
	case json.Number:
		f, err := val.Float64()
		if err != nil {
			return 0, false
		}
		return finite(f)
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(val), 64)
		if err != nil {
			return 0, false
		}
		return finite(f)
	default:
		return 0, false
	}
}

func finite(f float64) (float64, bool) {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	return f, true
}
