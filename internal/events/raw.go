package events

import (
	"math"
	"strings"
)

// PayloadKey is the top-level key under which producers nest mirrored fields.
const PayloadKey = "payload"

// RawEvent is one heterogeneous event document as read from the event store
// or a JSONL file. It has no required shape beyond key access.
type RawEvent map[string]interface{}

// FieldPath is a candidate location for a value: either a top-level key
// ("amount") or a key nested one level under the payload ("payload.amount").
type FieldPath struct {
	Key    string
	Nested bool
}

// Top returns a top-level field path.
func Top(key string) FieldPath {
	return FieldPath{Key: key}
}

// Payload returns a field path nested under the payload mapping.
func Payload(key string) FieldPath {
	return FieldPath{Key: key, Nested: true}
}

// ParsePath parses "key" or "payload.key" into a FieldPath.
func ParsePath(s string) FieldPath {
	if rest, ok := strings.CutPrefix(s, PayloadKey+"."); ok && rest != "" {
		return Payload(rest)
	}
	return Top(s)
}

// Paths parses a list of dotted paths.
func Paths(ss ...string) []FieldPath {
	out := make([]FieldPath, len(ss))
	for i, s := range ss {
		out[i] = ParsePath(s)
	}
	return out
}

// String renders the path in dotted form.
func (p FieldPath) String() string {
	if p.Nested {
		return PayloadKey + "." + p.Key
	}
	return p.Key
}

// NestedPayload returns the payload mapping, or nil when it is absent or is
// not a mapping.
func (e RawEvent) NestedPayload() map[string]interface{} {
	switch p := e[PayloadKey].(type) {
	case map[string]interface{}:
		return p
	case RawEvent:
		return p
	default:
		return nil
	}
}

// Lookup returns the value at path and whether it is present and non-null.
func (e RawEvent) Lookup(path FieldPath) (interface{}, bool) {
	var v interface{}
	var ok bool
	if path.Nested {
		p := e.NestedPayload()
		if p == nil {
			return nil, false
		}
		v, ok = p[path.Key]
	} else {
		v, ok = e[path.Key]
	}
	if !ok || IsNull(v) {
		return nil, false
	}
	return v, true
}

// Has reports whether the value at path is present and non-null.
func (e RawEvent) Has(path FieldPath) bool {
	_, ok := e.Lookup(path)
	return ok
}

// HasAny reports whether any of the paths is present and non-null.
func (e RawEvent) HasAny(paths []FieldPath) bool {
	for _, p := range paths {
		if e.Has(p) {
			return true
		}
	}
	return false
}

// Resolve walks candidates in order and returns the first present,
// non-null value, or def when none resolves.
func Resolve(e RawEvent, candidates []FieldPath, def interface{}) interface{} {
	for _, c := range candidates {
		if v, ok := e.Lookup(c); ok {
			return v
		}
	}
	return def
}

// IsNull reports whether v counts as absent: nil or a NaN float.
func IsNull(v interface{}) bool {
	switch x := v.(type) {
	case nil:
		return true
	case float64:
		return math.IsNaN(x)
	case float32:
		return math.IsNaN(float64(x))
	default:
		return false
	}
}
