package gcs

import (
	"fmt"
	"path"
	"strings"
)

const scheme = "gs://"

// IsURI reports whether s is a gs:// URI.
func IsURI(s string) bool {
	return strings.HasPrefix(s, scheme)
}

// ParseURI splits "gs://bucket/path/to/object" into bucket and object path.
// The object path may be empty for a bucket-only URI.
func ParseURI(uri string) (bucket, object string, err error) {
	if !IsURI(uri) {
		return "", "", fmt.Errorf("invalid GCS URI: %s", uri)
	}

	trimmed := strings.TrimPrefix(uri, scheme)
	parts := strings.SplitN(trimmed, "/", 2)
	if parts[0] == "" {
		return "", "", fmt.Errorf("invalid GCS URI (no bucket): %s", uri)
	}
	if len(parts) == 1 {
		return parts[0], "", nil
	}
	return parts[0], parts[1], nil
}

// JoinURI builds a gs:// URI from a bucket and object path.
func JoinURI(bucket, object string) string {
	return scheme + bucket + "/" + strings.TrimPrefix(object, "/")
}

// Filename returns the last path element of a local path or GCS URI.
// e.g., "gs://bucket/live/2024-01-01_events.jsonl" → "2024-01-01_events.jsonl"
func Filename(p string) string {
	if IsURI(p) {
		_, object, err := ParseURI(p)
		if err != nil || object == "" {
			return strings.TrimPrefix(p, scheme)
		}
		return path.Base(object)
	}
	return path.Base(p)
}
