package ingest

import (
	"crypto/sha256"
	"encoding/hex"
	"time"

	"github.com/dvloznov/commercepulse/internal/events"
	"github.com/dvloznov/commercepulse/internal/transform"
)

// missingRecordID is hashed in place of an absent record identifier so the
// derived event_id stays stable across runs.
const missingRecordID = "None"

var (
	recordIDKeys    = []string{"id", "order_id", "payment_id"}
	recordTimeChain = events.Paths("created_at", "timestamp")
)

// EventID derives the deterministic event_id of a bootstrapped record.
func EventID(vendor, recordID, eventType string) string {
	sum := sha256.Sum256([]byte(vendor + "_" + recordID + "_" + eventType))
	return hex.EncodeToString(sum[:])
}

// WrapRecord turns a historical record into a synthetic event.
func WrapRecord(record map[string]interface{}, eventType string, now time.Time) events.RawEvent {
	r := events.RawEvent(record)

	// A vendor_id that is present but null is kept as null and hashed as
	// "None"; only a missing key falls back to the unknown vendor.
	var vendor interface{} = transform.DefaultUnknownVendor
	if v, ok := record["vendor_id"]; ok {
		vendor = v
	}
	eventTime := events.ResolveStringOr(r, recordTimeChain, now.UTC().Format(time.RFC3339Nano))

	return events.RawEvent{
		"event_id":    EventID(hashText(vendor), hashText(recordID(record)), eventType),
		"event_type":  eventType,
		"event_time":  eventTime,
		"vendor":      vendor,
		"payload":     record,
		"ingested_at": now.UTC(),
	}
}

// recordID returns the first truthy identifier. When none is truthy the last
// candidate's raw value is used, so "" and 0 are hashed as themselves.
func recordID(record map[string]interface{}) interface{} {
	var v interface{}
	for _, key := range recordIDKeys {
		v = record[key]
		if truthy(v) {
			return v
		}
	}
	return v
}

func truthy(v interface{}) bool {
	switch x := v.(type) {
	case nil:
		return false
	case bool:
		return x
	case string:
		return x != ""
	case float64:
		return x != 0
	case map[string]interface{}:
		return len(x) > 0
	case []interface{}:
		return len(x) > 0
	default:
		return true
	}
}

func hashText(v interface{}) string {
	switch x := v.(type) {
	case nil:
		return missingRecordID
	case bool:
		if x {
			return "True"
		}
		return "False"
	default:
		return events.AsString(x)
	}
}
