package ingest

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/dvloznov/commercepulse/internal/events"
	"github.com/dvloznov/commercepulse/internal/eventstore"
	"github.com/dvloznov/commercepulse/internal/gcs"
	"github.com/dvloznov/commercepulse/internal/logger"
	"github.com/dvloznov/commercepulse/internal/metrics"
)

// Source labels used in logs and metrics.
const (
	SourceBootstrap = "bootstrap"
	SourceLive      = "live"
)

// LiveFileExt is the extension of live event files.
const LiveFileExt = ".jsonl"

// Report summarizes one ingestion call.
type Report struct {
	Files    int
	Events   int
	Skipped  int
	Upserted int64
	Modified int64
}

func (r *Report) add(o Report) {
	r.Files += o.Files
	r.Events += o.Events
	r.Skipped += o.Skipped
	r.Upserted += o.Upserted
	r.Modified += o.Modified
}

// Ingester loads flat files into the event store.
type Ingester struct {
	store eventstore.Store
	files gcs.FileSource
	now   func() time.Time
}

// NewIngester creates an Ingester.
func NewIngester(store eventstore.Store, files gcs.FileSource) *Ingester {
	return &Ingester{store: store, files: files, now: time.Now}
}

// Bootstrap loads each historical file (event type → path), wrapping every
// record as a synthetic event with a deterministic event_id. Missing files
// are skipped with a warning.
func (in *Ingester) Bootstrap(ctx context.Context, files map[string]string) (Report, error) {
	log := logger.Component(ctx, "ingest")

	if err := in.store.EnsureIndexes(ctx); err != nil {
		return Report{}, err
	}

	eventTypes := make([]string, 0, len(files))
	for et := range files {
		eventTypes = append(eventTypes, et)
	}
	sort.Strings(eventTypes)

	var total Report
	for _, eventType := range eventTypes {
		path := files[eventType]

		data, err := in.files.ReadFile(ctx, path)
		if errors.Is(err, gcs.ErrNotFound) {
			log.Warn().Str("file", path).Msg("Skipping bootstrap file: not found")
			continue
		}
		if err != nil {
			return total, fmt.Errorf("Bootstrap: reading %s: %w", path, err)
		}

		records, err := decodeRecords(data)
		if err != nil {
			return total, fmt.Errorf("Bootstrap: decoding %s: %w", path, err)
		}

		now := in.now()
		evts := make([]events.RawEvent, 0, len(records))
		for _, rec := range records {
			evts = append(evts, WrapRecord(rec, eventType, now))
		}

		res, err := in.store.UpsertEvents(ctx, evts)
		if err != nil {
			return total, fmt.Errorf("Bootstrap: %s: %w", eventType, err)
		}
		metrics.EventsIngested.WithLabelValues(SourceBootstrap).Add(float64(len(evts)))

		total.add(Report{Files: 1, Events: len(evts), Upserted: res.Upserted, Modified: res.Modified})
		log.Info().
			Str("event_type", eventType).
			Str("file", path).
			Int("records", len(records)).
			Msg("Loaded bootstrap records")
	}

	log.Info().Int64("written", total.Upserted+total.Modified).Msg("Bootstrap complete")
	return total, nil
}

// decodeRecords accepts either a JSON array of objects or a single object.
func decodeRecords(data []byte) ([]map[string]interface{}, error) {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) > 0 && trimmed[0] == '[' {
		var list []map[string]interface{}
		if err := json.Unmarshal(trimmed, &list); err != nil {
			return nil, err
		}
		return list, nil
	}

	var single map[string]interface{}
	if err := json.Unmarshal(trimmed, &single); err != nil {
		return nil, err
	}
	return []map[string]interface{}{single}, nil
}

// IngestLive loads every *.jsonl file under dir (local or gs:// prefix).
func (in *Ingester) IngestLive(ctx context.Context, dir string) (Report, error) {
	log := logger.Component(ctx, "ingest")

	if err := in.store.EnsureIndexes(ctx); err != nil {
		return Report{}, err
	}

	paths, err := in.files.List(ctx, dir, LiveFileExt)
	if err != nil {
		return Report{}, fmt.Errorf("IngestLive: %w", err)
	}

	var total Report
	for _, p := range paths {
		r, err := in.IngestFile(ctx, p)
		if err != nil {
			return total, err
		}
		total.add(r)
	}

	count, err := in.store.Count(ctx)
	if err != nil {
		return total, err
	}
	log.Info().
		Int("files", total.Files).
		Int("events", total.Events).
		Int("skipped", total.Skipped).
		Int64("stored", count).
		Msg("Live ingestion complete")
	return total, nil
}

// IngestFile loads one JSONL file. Blank lines are ignored; lines that are
// not JSON objects or lack an event_id are skipped and counted.
func (in *Ingester) IngestFile(ctx context.Context, path string) (Report, error) {
	log := logger.Component(ctx, "ingest").With().Str("file", path).Logger()

	data, err := in.files.ReadFile(ctx, path)
	if err != nil {
		return Report{}, fmt.Errorf("IngestFile: reading %s: %w", path, err)
	}

	evts, skipped, err := decodeLines(data, in.now().UTC())
	if err != nil {
		return Report{}, fmt.Errorf("IngestFile: scanning %s: %w", path, err)
	}
	for _, s := range skipped {
		log.Warn().Int("line", s.line).Str("reason", s.reason).Msg("Skipping event")
	}
	metrics.EventsSkipped.WithLabelValues(SourceLive).Add(float64(len(skipped)))

	res, err := in.store.UpsertEvents(ctx, evts)
	if err != nil {
		return Report{}, fmt.Errorf("IngestFile: %s: %w", path, err)
	}
	metrics.EventsIngested.WithLabelValues(SourceLive).Add(float64(len(evts)))

	log.Info().Int("events", len(evts)).Int("skipped", len(skipped)).Msg("Ingested live events")
	return Report{
		Files:    1,
		Events:   len(evts),
		Skipped:  len(skipped),
		Upserted: res.Upserted,
		Modified: res.Modified,
	}, nil
}

type skippedLine struct {
	line   int
	reason string
}

func decodeLines(data []byte, now time.Time) ([]events.RawEvent, []skippedLine, error) {
	var (
		evts    []events.RawEvent
		skipped []skippedLine
	)

	sc := bufio.NewScanner(bytes.NewReader(data))
	sc.Buffer(make([]byte, 64*1024), 16*1024*1024)
	line := 0
	for sc.Scan() {
		line++
		raw := bytes.TrimSpace(sc.Bytes())
		if len(raw) == 0 {
			continue
		}

		var e events.RawEvent
		if err := json.Unmarshal(raw, &e); err != nil || e == nil {
			skipped = append(skipped, skippedLine{line: line, reason: "not a JSON object"})
			continue
		}
		if !e.Has(events.Top(eventstore.EventIDField)) {
			skipped = append(skipped, skippedLine{line: line, reason: "missing event_id"})
			continue
		}
		e["ingested_at"] = now
		evts = append(evts, e)
	}
	return evts, skipped, sc.Err()
}
