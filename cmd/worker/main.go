package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/dvloznov/commercepulse/internal/api"
	"github.com/dvloznov/commercepulse/internal/config"
	"github.com/dvloznov/commercepulse/internal/eventstore"
	"github.com/dvloznov/commercepulse/internal/gcs"
	"github.com/dvloznov/commercepulse/internal/ingest"
	"github.com/dvloznov/commercepulse/internal/jobs"
	"github.com/dvloznov/commercepulse/internal/jobs/inmemory"
	"github.com/dvloznov/commercepulse/internal/logger"
	"github.com/dvloznov/commercepulse/internal/metrics"
)

func main() {
	configPath := flag.String("config", "", "Path to YAML config file")
	dir := flag.String("dir", "", "Live events directory to watch (overrides config)")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	if *dir != "" {
		cfg.Sources.LiveDir = *dir
	}

	log := logger.NewWithOptions(logger.Options{Level: cfg.Log.Level, JSON: cfg.Log.JSON})
	if err := cfg.Validate(); err != nil {
		log.Fatal().Err(err).Msg("Invalid configuration")
	}
	if gcs.IsURI(cfg.Sources.LiveDir) {
		log.Fatal().Str("dir", cfg.Sources.LiveDir).Msg("The worker can only watch a local directory; use 'commercepulse ingest' for gs:// prefixes")
	}

	// Create context that cancels on interrupt
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	ctx = logger.WithContext(ctx, log)

	connectCtx, connectCancel := context.WithTimeout(ctx, 30*time.Second)
	store, err := eventstore.Connect(connectCtx, cfg.Mongo.URI, cfg.Mongo.Database, cfg.Mongo.Collection)
	if err == nil {
		err = store.EnsureIndexes(connectCtx)
	}
	connectCancel()
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to prepare event store")
	}
	defer store.Close(context.Background())

	files := gcs.NewSource()
	defer files.Close()

	in := ingest.NewIngester(store, files)

	jobStore := inmemory.NewStore()
	jobQueue := inmemory.NewQueue(inmemory.Options{
		BufferSize: cfg.Worker.QueueSize,
		Workers:    cfg.Worker.Workers,
		MaxRetries: cfg.Worker.MaxRetries,
	}, jobStore)

	log.Info().Str("dir", cfg.Sources.LiveDir).Msg("Starting worker service")

	handle := in.JobHandler()
	handler := func(ctx context.Context, job jobs.Job) error {
		jlog := log.With().Str("job_id", job.GetID()).Logger()
		jlog.Info().Msg("Processing ingest job")

		if err := handle(ctx, job); err != nil {
			jlog.Error().Err(err).Msg("Ingest job failed")
			return err
		}

		jlog.Info().Msg("Ingest job completed successfully")
		return nil
	}

	// Start consuming jobs
	if err := jobQueue.Start(ctx, handler); err != nil {
		log.Fatal().Err(err).Msg("Failed to start job consumer")
	}

	watchErr := make(chan error, 1)
	go func() {
		watchErr <- ingest.NewWatcher(cfg.Sources.LiveDir, jobQueue).Run(ctx)
	}()

	var server *http.Server
	if cfg.Worker.AdminAddr != "" {
		server = api.NewServer(cfg.Worker.AdminAddr, api.Deps{
			Jobs:      jobStore,
			Publisher: jobQueue,
			LiveDir:   cfg.Sources.LiveDir,
			Gatherer:  metrics.Registry,
			Log:       log,
		})
		go func() {
			log.Info().Str("addr", cfg.Worker.AdminAddr).Msg("Starting admin server")
			if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				log.Error().Err(err).Msg("Admin server stopped")
			}
		}()
	}

	log.Info().Msg("Worker service started, waiting for files...")

	// Wait for interrupt signal or watcher failure
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	select {
	case <-quit:
	case err := <-watchErr:
		if err != nil {
			log.Error().Err(err).Msg("Watcher stopped")
		}
	}

	log.Info().Msg("Shutting down worker service...")

	// Cancel context to stop the watcher and workers
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if server != nil {
		if err := server.Shutdown(shutdownCtx); err != nil {
			log.Error().Err(err).Msg("Admin server forced to shutdown")
		}
	}

	// Stop the queue and wait for in-flight jobs
	if err := jobQueue.Stop(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Error during graceful shutdown")
	}

	failed, _ := jobStore.ListJobs(shutdownCtx, jobs.JobFilter{Status: jobs.JobStatusFailed})
	for _, j := range failed {
		log.Warn().Str("job_id", j.JobID).Str("file", j.Path).Str("error", j.Error).Msg("Job failed permanently")
	}

	log.Info().Msg("Worker service exited")
}
