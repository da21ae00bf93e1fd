package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/rs/zerolog"

	"github.com/dvloznov/commercepulse/internal/config"
	"github.com/dvloznov/commercepulse/internal/eventstore"
	"github.com/dvloznov/commercepulse/internal/gcs"
	"github.com/dvloznov/commercepulse/internal/ingest"
	"github.com/dvloznov/commercepulse/internal/logger"
	"github.com/dvloznov/commercepulse/internal/metrics"
	"github.com/dvloznov/commercepulse/internal/pipeline"
	"github.com/dvloznov/commercepulse/internal/transform"
	"github.com/dvloznov/commercepulse/internal/warehouse"
)

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	switch os.Args[1] {
	case "bootstrap":
		runBootstrap(os.Args[2:])
	case "ingest":
		runIngest(os.Args[2:])
	case "transform":
		runTransform(os.Args[2:])
	case "help", "-h", "--help":
		printUsage()
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n\n", os.Args[1])
		printUsage()
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Println("CommercePulse CLI")
	fmt.Println("\nUsage:")
	fmt.Println("  commercepulse <command> [options]")
	fmt.Println("\nCommands:")
	fmt.Println("  bootstrap  Load historical JSON files into the raw event store")
	fmt.Println("  ingest     Load live JSONL event files into the raw event store")
	fmt.Println("  transform  Rebuild the fact tables in BigQuery from the raw event store")
	fmt.Println("  help       Show this help message")
	fmt.Println("\nRun 'commercepulse <command> -h' for more information on a command.")
}

// setup parses the common flags and returns the loaded config and logger.
func setup(fs *flag.FlagSet, args []string) (*config.Config, zerolog.Logger) {
	configPath := fs.String("config", "", "Path to YAML config file")
	logLevel := fs.String("log-level", "", "Log level (overrides config)")
	fs.Parse(args)

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	if *logLevel != "" {
		cfg.Log.Level = *logLevel
	}

	log := logger.NewWithOptions(logger.Options{Level: cfg.Log.Level, JSON: cfg.Log.JSON})
	if err := cfg.Validate(); err != nil {
		log.Fatal().Err(err).Msg("Invalid configuration")
	}
	return cfg, log
}

func connectStore(ctx context.Context, cfg *config.Config, log zerolog.Logger) *eventstore.MongoStore {
	store, err := eventstore.Connect(ctx, cfg.Mongo.URI, cfg.Mongo.Database, cfg.Mongo.Collection)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to event store")
	}
	log.Info().
		Str("database", cfg.Mongo.Database).
		Str("collection", cfg.Mongo.Collection).
		Msg("Connected to event store")
	return store
}

func runBootstrap(args []string) {
	fs := flag.NewFlagSet("bootstrap", flag.ExitOnError)
	timeout := fs.Duration("timeout", 10*time.Minute, "Overall timeout")
	cfg, log := setup(fs, args)

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()
	ctx = logger.WithContext(ctx, log)

	store := connectStore(ctx, cfg, log)
	defer store.Close(context.Background())

	files := gcs.NewSource()
	defer files.Close()

	report, err := ingest.NewIngester(store, files).Bootstrap(ctx, cfg.Sources.Bootstrap)
	if err != nil {
		log.Fatal().Err(err).Msg("Bootstrap failed")
	}
	pushMetrics(ctx, cfg, log, "bootstrap")

	fmt.Printf("Bootstrap complete: %d files, %d records, %d inserted, %d updated.\n",
		report.Files, report.Events, report.Upserted, report.Modified)
}

func runIngest(args []string) {
	fs := flag.NewFlagSet("ingest", flag.ExitOnError)
	dir := fs.String("dir", "", "Live events directory or gs:// prefix (overrides config)")
	file := fs.String("file", "", "Ingest a single JSONL file instead of the whole directory")
	timeout := fs.Duration("timeout", 10*time.Minute, "Overall timeout")
	cfg, log := setup(fs, args)

	if *dir != "" {
		cfg.Sources.LiveDir = *dir
	}

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()
	ctx = logger.WithContext(ctx, log)

	store := connectStore(ctx, cfg, log)
	defer store.Close(context.Background())

	files := gcs.NewSource()
	defer files.Close()

	in := ingest.NewIngester(store, files)

	var (
		report ingest.Report
		err    error
	)
	if *file != "" {
		if err := store.EnsureIndexes(ctx); err != nil {
			log.Fatal().Err(err).Msg("Failed to ensure indexes")
		}
		report, err = in.IngestFile(ctx, *file)
	} else {
		report, err = in.IngestLive(ctx, cfg.Sources.LiveDir)
	}
	if err != nil {
		log.Fatal().Err(err).Msg("Ingestion failed")
	}
	pushMetrics(ctx, cfg, log, "ingest")

	fmt.Printf("Ingestion complete: %d files, %d events, %d skipped.\n",
		report.Files, report.Events, report.Skipped)
}

func runTransform(args []string) {
	fs := flag.NewFlagSet("transform", flag.ExitOnError)
	timeout := fs.Duration("timeout", 30*time.Minute, "Overall timeout")
	cfg, log := setup(fs, args)

	if err := cfg.ValidateWarehouse(); err != nil {
		log.Fatal().Err(err).Msg("Invalid configuration")
	}

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()
	ctx = logger.WithContext(ctx, log)

	store := connectStore(ctx, cfg, log)
	defer store.Close(context.Background())

	writer, err := warehouse.NewBigQueryWriter(ctx, cfg.BigQuery.ProjectID, cfg.BigQuery.DatasetID, cfg.BigQuery.Location)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create BigQuery writer")
	}
	defer writer.Close()

	summary, err := pipeline.RunTransform(ctx, pipeline.TransformDeps{
		Source:     store,
		Reconciler: transform.NewReconciler(cfg.ReconcilePolicy()),
		Loader:     warehouse.NewLoader(writer),
		Pusher: pipeline.PusherFunc(func(ctx context.Context, instance string) error {
			return metrics.Push(ctx, cfg.Metrics.PushgatewayURL, cfg.Metrics.Job, instance)
		}),
	})
	if err != nil {
		log.Fatal().Err(err).Msg("Transform failed")
	}

	fmt.Printf("Transform %s complete: %d events, %d orders, %d payments, %d refunds, %d excluded.\n",
		summary.RunID, summary.Fetched, summary.Orders, summary.Payments, summary.Refunds, summary.Excluded)
}

// pushMetrics pushes ingestion counters; a failed push is logged, not fatal.
func pushMetrics(ctx context.Context, cfg *config.Config, log zerolog.Logger, instance string) {
	if err := metrics.Push(ctx, cfg.Metrics.PushgatewayURL, cfg.Metrics.Job, instance); err != nil {
		log.Warn().Err(err).Msg("Failed to push metrics")
	}
}
