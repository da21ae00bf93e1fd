package ingest

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/dvloznov/commercepulse/internal/events"
	"github.com/dvloznov/commercepulse/internal/eventstore"
	"github.com/dvloznov/commercepulse/internal/gcs"
	"github.com/dvloznov/commercepulse/internal/jobs"
)

// mockStore is a mock implementation of eventstore.Store for testing.
type mockStore struct {
	ensureIndexesFunc func(ctx context.Context) error
	upsertEventsFunc  func(ctx context.Context, evts []events.RawEvent) (eventstore.UpsertResult, error)
	countFunc         func(ctx context.Context) (int64, error)

	upserted []events.RawEvent
}

func (m *mockStore) EnsureIndexes(ctx context.Context) error {
	if m.ensureIndexesFunc != nil {
		return m.ensureIndexesFunc(ctx)
	}
	return nil
}

func (m *mockStore) UpsertEvents(ctx context.Context, evts []events.RawEvent) (eventstore.UpsertResult, error) {
	m.upserted = append(m.upserted, evts...)
	if m.upsertEventsFunc != nil {
		return m.upsertEventsFunc(ctx, evts)
	}
	return eventstore.UpsertResult{Upserted: int64(len(evts))}, nil
}

func (m *mockStore) ScanAll(ctx context.Context) ([]events.RawEvent, error) {
	return m.upserted, nil
}

func (m *mockStore) Count(ctx context.Context) (int64, error) {
	if m.countFunc != nil {
		return m.countFunc(ctx)
	}
	return int64(len(m.upserted)), nil
}

// mockFiles serves file contents from a map.
type mockFiles struct {
	files map[string]string
}

func (m *mockFiles) ReadFile(ctx context.Context, p string) ([]byte, error) {
	data, ok := m.files[p]
	if !ok {
		return nil, fmt.Errorf("%w: %s", gcs.ErrNotFound, p)
	}
	return []byte(data), nil
}

func (m *mockFiles) List(ctx context.Context, dir, ext string) ([]string, error) {
	var out []string
	for p := range m.files {
		if filepath.Dir(p) == dir && filepath.Ext(p) == ext {
			out = append(out, p)
		}
	}
	return out, nil
}

var fixedNow = time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

func newTestIngester(store *mockStore, files map[string]string) *Ingester {
	in := NewIngester(store, &mockFiles{files: files})
	in.now = func() time.Time { return fixedNow }
	return in
}

func TestEventID(t *testing.T) {
	// sha256("v1_o1_order")
	a := EventID("v1", "o1", "order")
	if len(a) != 64 {
		t.Fatalf("EventID length = %d, want 64", len(a))
	}
	if a != EventID("v1", "o1", "order") {
		t.Error("EventID is not deterministic")
	}
	if a == EventID("v1", "o1", "payment") {
		t.Error("EventID should differ per event type")
	}
}

func TestWrapRecord(t *testing.T) {
	tests := []struct {
		name       string
		record     map[string]interface{}
		wantVendor interface{}
		wantID     string
		wantTime   string
	}{
		{
			name:       "full record",
			record:     map[string]interface{}{"vendor_id": "v1", "id": "o1", "created_at": "2024-01-01"},
			wantVendor: "v1",
			wantID:     EventID("v1", "o1", "order"),
			wantTime:   "2024-01-01",
		},
		{
			name:       "falls back to order_id and timestamp",
			record:     map[string]interface{}{"vendor_id": "v1", "order_id": "o9", "timestamp": "t"},
			wantVendor: "v1",
			wantID:     EventID("v1", "o9", "order"),
			wantTime:   "t",
		},
		{
			name:       "missing vendor and id",
			record:     map[string]interface{}{"total": 5.0},
			wantVendor: "unknown_vendor",
			wantID:     EventID("unknown_vendor", "None", "order"),
			wantTime:   fixedNow.Format(time.RFC3339Nano),
		},
		{
			name:       "null vendor is hashed as None",
			record:     map[string]interface{}{"vendor_id": nil, "id": "o1", "created_at": "c"},
			wantVendor: nil,
			wantID:     EventID("None", "o1", "order"),
			wantTime:   "c",
		},
		{
			name:       "empty and zero ids fall through",
			record:     map[string]interface{}{"vendor_id": "v1", "id": "", "order_id": 0.0, "payment_id": "p7", "created_at": "c"},
			wantVendor: "v1",
			wantID:     EventID("v1", "p7", "order"),
			wantTime:   "c",
		},
		{
			name:       "falsy last candidate is hashed as itself",
			record:     map[string]interface{}{"vendor_id": "v1", "id": nil, "payment_id": "", "created_at": "c"},
			wantVendor: "v1",
			wantID:     EventID("v1", "", "order"),
			wantTime:   "c",
		},
		{
			name:       "numeric id",
			record:     map[string]interface{}{"vendor_id": "v1", "id": 42.0, "created_at": "c"},
			wantVendor: "v1",
			wantID:     EventID("v1", "42", "order"),
			wantTime:   "c",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := WrapRecord(tt.record, "order", fixedNow)
			if e["vendor"] != tt.wantVendor {
				t.Errorf("vendor = %v, want %v", e["vendor"], tt.wantVendor)
			}
			if e["event_id"] != tt.wantID {
				t.Errorf("event_id = %v, want %v", e["event_id"], tt.wantID)
			}
			if e["event_time"] != tt.wantTime {
				t.Errorf("event_time = %v, want %v", e["event_time"], tt.wantTime)
			}
			if e["event_type"] != "order" {
				t.Errorf("event_type = %v", e["event_type"])
			}
			if _, ok := e.NestedPayload()["total"]; tt.name == "missing vendor and id" && !ok {
				t.Error("payload should carry the source record")
			}
		})
	}
}

func TestBootstrap(t *testing.T) {
	store := &mockStore{}
	in := newTestIngester(store, map[string]string{
		"orders.json":   `[{"vendor_id":"v1","id":"o1"},{"vendor_id":"v1","id":"o2"}]`,
		"payments.json": `{"vendor_id":"v1","payment_id":"p1","order_id":"o1"}`,
	})

	report, err := in.Bootstrap(context.Background(), map[string]string{
		"order":   "orders.json",
		"payment": "payments.json",
		"refund":  "refunds.json",
	})
	if err != nil {
		t.Fatalf("Bootstrap() error = %v", err)
	}

	if report.Files != 2 {
		t.Errorf("Files = %d, want 2 (missing file skipped)", report.Files)
	}
	if report.Events != 3 || report.Upserted != 3 {
		t.Errorf("Events = %d, Upserted = %d, want 3", report.Events, report.Upserted)
	}

	// event types are processed in sorted order
	if store.upserted[0]["event_type"] != "order" || store.upserted[2]["event_type"] != "payment" {
		t.Errorf("unexpected upsert order: %v, %v", store.upserted[0]["event_type"], store.upserted[2]["event_type"])
	}
	// the payment has no id so order_id is used ahead of payment_id
	if store.upserted[2]["event_id"] != EventID("v1", "o1", "payment") {
		t.Errorf("payment event_id = %v", store.upserted[2]["event_id"])
	}
}

func TestBootstrap_Errors(t *testing.T) {
	t.Run("index failure", func(t *testing.T) {
		store := &mockStore{ensureIndexesFunc: func(ctx context.Context) error { return errors.New("denied") }}
		in := newTestIngester(store, nil)
		if _, err := in.Bootstrap(context.Background(), map[string]string{"order": "x"}); err == nil {
			t.Error("expected error")
		}
	})

	t.Run("malformed file", func(t *testing.T) {
		in := newTestIngester(&mockStore{}, map[string]string{"orders.json": `{not json`})
		if _, err := in.Bootstrap(context.Background(), map[string]string{"order": "orders.json"}); err == nil {
			t.Error("expected decode error")
		}
	})
}

func TestIngestFile(t *testing.T) {
	data := `{"event_id":"e1","event_type":"order_created","payload":{"order_id":"o1"}}

not json
[1,2]
{"event_type":"payment_succeeded"}
{"event_id":"e2","event_type":"refund_issued"}
`
	store := &mockStore{}
	in := newTestIngester(store, map[string]string{"live/a.jsonl": data})

	report, err := in.IngestFile(context.Background(), "live/a.jsonl")
	if err != nil {
		t.Fatalf("IngestFile() error = %v", err)
	}

	if report.Events != 2 {
		t.Errorf("Events = %d, want 2", report.Events)
	}
	if report.Skipped != 3 {
		t.Errorf("Skipped = %d, want 3", report.Skipped)
	}
	for _, e := range store.upserted {
		if e["ingested_at"] != fixedNow {
			t.Errorf("ingested_at = %v, want %v", e["ingested_at"], fixedNow)
		}
	}
}

func TestDecodeLines_SkipReasons(t *testing.T) {
	_, skipped, err := decodeLines([]byte("null\n{\"a\":1}\n"), fixedNow)
	if err != nil {
		t.Fatal(err)
	}
	want := []skippedLine{{line: 1, reason: "not a JSON object"}, {line: 2, reason: "missing event_id"}}
	if len(skipped) != len(want) {
		t.Fatalf("skipped = %v, want %v", skipped, want)
	}
	for i := range want {
		if skipped[i] != want[i] {
			t.Errorf("skipped[%d] = %v, want %v", i, skipped[i], want[i])
		}
	}
}

func TestIngestLive(t *testing.T) {
	store := &mockStore{}
	in := newTestIngester(store, map[string]string{
		"live/a.jsonl": `{"event_id":"e1"}`,
		"live/b.jsonl": `{"event_id":"e2"}` + "\n" + `{"event_id":"e3"}`,
		"live/c.txt":   `{"event_id":"ignored"}`,
	})

	report, err := in.IngestLive(context.Background(), "live")
	if err != nil {
		t.Fatalf("IngestLive() error = %v", err)
	}
	if report.Files != 2 || report.Events != 3 {
		t.Errorf("report = %+v, want 2 files and 3 events", report)
	}
}

func TestIngestFile_StoreError(t *testing.T) {
	store := &mockStore{
		upsertEventsFunc: func(ctx context.Context, evts []events.RawEvent) (eventstore.UpsertResult, error) {
			return eventstore.UpsertResult{}, errors.New("connection reset")
		},
	}
	in := newTestIngester(store, map[string]string{"a.jsonl": `{"event_id":"e1"}`})

	if _, err := in.IngestFile(context.Background(), "a.jsonl"); err == nil {
		t.Error("expected store error to propagate")
	}
}

func TestJobHandler(t *testing.T) {
	in := newTestIngester(&mockStore{}, map[string]string{"a.jsonl": `{"event_id":"e1"}`})
	handler := in.JobHandler()

	job := &jobs.IngestFileJob{Path: "a.jsonl"}
	if err := handler(context.Background(), job); err != nil {
		t.Fatalf("handler error = %v", err)
	}
	if job.Events != 1 {
		t.Errorf("Events = %d, want 1", job.Events)
	}

	missing := &jobs.IngestFileJob{Path: "missing.jsonl"}
	if err := handler(context.Background(), missing); !errors.Is(err, gcs.ErrNotFound) {
		t.Errorf("error = %v, want ErrNotFound", err)
	}
}

func TestIsLiveFileEvent(t *testing.T) {
	tests := []struct {
		ev   fsnotify.Event
		want bool
	}{
		{fsnotify.Event{Name: "a.jsonl", Op: fsnotify.Create}, true},
		{fsnotify.Event{Name: "a.jsonl", Op: fsnotify.Write}, true},
		{fsnotify.Event{Name: "a.jsonl", Op: fsnotify.Remove}, false},
		{fsnotify.Event{Name: "a.json", Op: fsnotify.Create}, false},
		{fsnotify.Event{Name: "a.jsonl.tmp", Op: fsnotify.Write}, false},
	}
	for _, tt := range tests {
		if got := IsLiveFileEvent(tt.ev); got != tt.want {
			t.Errorf("IsLiveFileEvent(%v) = %v, want %v", tt.ev, got, tt.want)
		}
	}
}

// recordingPublisher captures published paths.
type recordingPublisher struct {
	paths chan string
}

func (p *recordingPublisher) PublishIngestFile(ctx context.Context, job *jobs.IngestFileJob) (bool, error) {
	p.paths <- job.Path
	return true, nil
}

func (p *recordingPublisher) Close() error { return nil }

func TestWatcher_Run(t *testing.T) {
	dir := t.TempDir()
	existing := filepath.Join(dir, "existing.jsonl")
	if err := os.WriteFile(existing, []byte(`{"event_id":"e1"}`), 0o644); err != nil {
		t.Fatal(err)
	}

	pub := &recordingPublisher{paths: make(chan string, 16)}
	w := NewWatcher(dir, pub)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- w.Run(ctx) }()

	select {
	case p := <-pub.paths:
		if p != existing {
			t.Errorf("first published = %s, want %s", p, existing)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("existing file was not published")
	}

	created := filepath.Join(dir, "new.jsonl")
	if err := os.WriteFile(created, []byte(`{"event_id":"e2"}`), 0o644); err != nil {
		t.Fatal(err)
	}

	deadline := time.After(2 * time.Second)
	for found := false; !found; {
		select {
		case p := <-pub.paths:
			found = p == created
		case <-deadline:
			t.Fatal("new file was not published")
		}
	}

	cancel()
	if err := <-done; err != nil {
		t.Errorf("Run() error = %v", err)
	}
}
