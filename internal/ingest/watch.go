package ingest

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/fsnotify/fsnotify"

	"github.com/dvloznov/commercepulse/internal/jobs"
	"github.com/dvloznov/commercepulse/internal/logger"
)

// Watcher publishes an ingestion job whenever a live events file is created
// or written in a local directory.
type Watcher struct {
	dir       string
	publisher jobs.Publisher
}

// NewWatcher creates a Watcher for dir.
func NewWatcher(dir string, publisher jobs.Publisher) *Watcher {
	return &Watcher{dir: dir, publisher: publisher}
}

// Run enqueues the files already present in the directory, then watches it
// until ctx is cancelled.
func (w *Watcher) Run(ctx context.Context) error {
	log := logger.Component(ctx, "watcher").With().Str("dir", w.dir).Logger()

	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("live watcher: %w", err)
	}
	defer fw.Close()

	if err := fw.Add(w.dir); err != nil {
		return fmt.Errorf("live watcher add %s: %w", w.dir, err)
	}

	existing, err := filepath.Glob(filepath.Join(w.dir, "*"+LiveFileExt))
	if err != nil {
		return fmt.Errorf("live watcher: listing %s: %w", w.dir, err)
	}
	for _, p := range existing {
		w.publish(ctx, p)
	}

	log.Info().Int("existing", len(existing)).Msg("Watching live events directory")

	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-fw.Events:
			if !ok {
				return nil
			}
			if IsLiveFileEvent(ev) {
				w.publish(ctx, ev.Name)
			}
		case err, ok := <-fw.Errors:
			if !ok {
				return nil
			}
			log.Warn().Err(err).Msg("Watcher error")
		}
	}
}

func (w *Watcher) publish(ctx context.Context, path string) {
	log := logger.Component(ctx, "watcher")

	job := &jobs.IngestFileJob{Path: path}
	published, err := w.publisher.PublishIngestFile(ctx, job)
	if err != nil {
		log.Error().Err(err).Str("file", path).Msg("Failed to enqueue live file")
		return
	}
	if !published {
		log.Debug().Str("file", path).Msg("Live file already queued")
		return
	}
	log.Info().Str("file", path).Str("job_id", job.JobID).Msg("Enqueued live file")
}

// IsLiveFileEvent reports whether ev creates or writes a *.jsonl file.
func IsLiveFileEvent(ev fsnotify.Event) bool {
	if !ev.Has(fsnotify.Create) && !ev.Has(fsnotify.Write) {
		return false
	}
	return strings.HasSuffix(ev.Name, LiveFileExt)
}

// JobHandler adapts IngestFile to the jobs queue.
func (in *Ingester) JobHandler() jobs.JobHandler {
	return func(ctx context.Context, job jobs.Job) error {
		fileJob, ok := job.(*jobs.IngestFileJob)
		if !ok {
			return fmt.Errorf("unexpected job type: %T", job)
		}
		r, err := in.IngestFile(ctx, fileJob.Path)
		if err != nil {
			return err
		}
		fileJob.Events = r.Events
		return nil
	}
}
