// Package main builds the aligned, imputed and labelled dataset.
// Executes: (optional ingest) → labels → dataset → CSVs → report
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"affect-lab/internal/alignment"
	"affect-lab/internal/app"
	"affect-lab/internal/domain"
	"affect-lab/internal/labels"
	"affect-lab/internal/normalization"
	"affect-lab/internal/observability"
	"affect-lab/internal/reporting"
	"affect-lab/internal/storage"
	"affect-lab/internal/tracker"
)

func main() {
	app.LoadEnvFile()

	// Parse flags (env vars as defaults)
	configPath := flag.String("config", os.Getenv("TRACKER_CONFIG"), "Tracker YAML config path")
	dumpPath := flag.String("dump", "", "Ingest a raw tracker JSON dump before building")
	postgresDSN := flag.String("postgres-dsn", os.Getenv("POSTGRES_DSN"), "PostgreSQL connection string")
	clickhouseDSN := flag.String("clickhouse-dsn", os.Getenv("CLICKHOUSE_DSN"), "ClickHouse connection string (optional)")
	useMemory := flag.Bool("use-memory", false, "Use in-memory storage instead of PostgreSQL")
	migrate := flag.Bool("migrate", true, "Apply schema migrations before running")
	appLabels := flag.String("app-labels", "", "App emotion export (CSV)")
	manualLabels := flag.String("manual-labels", "", "Manual emotion log (JSON)")
	startDate := flag.String("start", "", "First date (YYYY-MM-DD, default --days before --end)")
	endDate := flag.String("end", "", "Last date (YYYY-MM-DD, default today)")
	days := flag.Int("days", -1, "Window length in days (default from config)")
	outputDir := flag.String("output-dir", "data/new", "Output directory for CSVs and report")
	verbose := flag.Bool("verbose", false, "Verbose output")

	flag.Parse()

	logger := log.New(os.Stdout, "[pipeline] ", log.LstdFlags|log.Lshortfile)

	cfg, err := tracker.LoadConfig(*configPath)
	if err != nil {
		logger.Fatalf("Failed to load tracker config: %v", err)
	}
	if *dumpPath != "" {
		cfg.DumpPath = *dumpPath
	}
	if *days >= 0 {
		cfg.WindowDays = *days
	}
	loc, err := cfg.Location()
	if err != nil {
		logger.Fatalf("Invalid timezone: %v", err)
	}
	if !*useMemory && *postgresDSN == "" {
		logger.Fatal("--postgres-dsn is required (use --use-memory for in-memory storage)")
	}

	window, err := resolveWindow(*startDate, *endDate, cfg.WindowDays, loc)
	if err != nil {
		logger.Fatalf("Invalid window: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		fmt.Printf("\nReceived signal %v, cancelling pipeline...\n", sig)
		cancel()
	}()

	stores, cleanup, err := app.OpenStores(ctx, app.StoreOptions{
		PostgresDSN:   *postgresDSN,
		ClickhouseDSN: *clickhouseDSN,
		UseMemory:     *useMemory,
		Migrate:       *migrate,
	})
	if err != nil {
		logger.Fatalf("Failed to create stores: %v", err)
	}
	defer cleanup()

	start := time.Now()
	if err := run(ctx, logger, cfg, stores, window, *appLabels, *manualLabels, *outputDir, *verbose); err != nil {
		observability.RecordPipelineRun("total", "error", time.Since(start).Seconds())
		logger.Fatalf("Pipeline failed: %v", err)
	}
	observability.RecordPipelineRun("total", "ok", time.Since(start).Seconds())
	observability.DefaultMetrics.LastSuccessfulPipeline.SetToCurrentTime()
	logger.Printf("Pipeline complete in %s", time.Since(start).Round(time.Millisecond))
}

func run(
	ctx context.Context,
	logger *log.Logger,
	cfg tracker.Config,
	stores *app.Stores,
	window normalization.Window,
	appLabels, manualLabels, outputDir string,
	verbose bool,
) error {
	loc, err := cfg.Location()
	if err != nil {
		return err
	}

	// Phase 1: ingest from the dump when one is configured
	if cfg.DumpPath != "" {
		fmt.Println("=== Ingest ===")
		runner, _, err := app.NewIngestRunner(cfg, stores, logger)
		if err != nil {
			return fmt.Errorf("create ingest runner: %w", err)
		}
		days := int(window.End.Sub(window.Start).Hours() / 24)
		if _, err := runner.Run(ctx, window.End, days); err != nil {
			return fmt.Errorf("ingest: %w", err)
		}
	}

	// Phase 2: labels
	if appLabels != "" || manualLabels != "" {
		fmt.Println("=== Labels ===")
		loaded, err := labels.NewLoader(loc).LoadFiles(appLabels, manualLabels)
		if err != nil {
			return err
		}
		inserted, skipped, err := storeLabels(ctx, stores.Labels, loaded)
		if err != nil {
			return err
		}
		fmt.Printf("Labels: %d loaded, %d stored, %d already present\n", len(loaded), inserted, skipped)
	}

	// Phase 3: dataset
	fmt.Println("=== Dataset ===")
	runner := normalization.NewRunner(stores.Readings, stores.Scalars, stores.Labels, stores.Dataset,
		alignment.NewEngine(loc), logger)

	rows, err := runner.BuildDataset(ctx, window)
	if err != nil {
		return fmt.Errorf("build dataset: %w", err)
	}
	labelled, err := runner.LabelledDataset(ctx, window)
	if err != nil {
		return fmt.Errorf("build labelled dataset: %w", err)
	}
	fmt.Printf("Rows: %d, labelled: %d\n", len(rows), len(labelled))

	// Phase 4: output
	fmt.Println("=== Output ===")
	if err := reporting.WriteDataset(outputDir, rows, labelled); err != nil {
		return err
	}
	report := reporting.NewGenerator().Generate(rows, labelled)
	md := reporting.RenderMarkdown(report)
	if err := reporting.WriteFile(filepath.Join(outputDir, "DATASET_REPORT.md"), md); err != nil {
		return err
	}
	if verbose {
		fmt.Println(md)
	}
	fmt.Printf("Written to %s\n", outputDir)
	return nil
}

// storeLabels inserts labels one by one so already stored ones are skipped.
func storeLabels(ctx context.Context, store storage.LabelStore, loaded []*domain.EmotionLabel) (inserted, skipped int, err error) {
	for _, l := range loaded {
		err := store.Insert(ctx, l)
		switch {
		case err == nil:
			inserted++
			observability.RecordLabel(l.Source.String())
		case errors.Is(err, storage.ErrDuplicateKey):
			skipped++
		default:
			return inserted, skipped, fmt.Errorf("store label at %d: %w", l.TimestampMs, err)
		}
	}
	return inserted, skipped, nil
}

// resolveWindow turns date flags into an inclusive window of whole local days.
func resolveWindow(startDate, endDate string, days int, loc *time.Location) (normalization.Window, error) {
	end := time.Now().In(loc)
	if endDate != "" {
		t, err := time.ParseInLocation(time.DateOnly, endDate, loc)
		if err != nil {
			return normalization.Window{}, fmt.Errorf("--end: %w", err)
		}
		end = t
	}
	endDay := time.Date(end.Year(), end.Month(), end.Day(), 0, 0, 0, 0, loc)

	startDay := endDay.AddDate(0, 0, -days)
	if startDate != "" {
		t, err := time.ParseInLocation(time.DateOnly, startDate, loc)
		if err != nil {
			return normalization.Window{}, fmt.Errorf("--start: %w", err)
		}
		startDay = t
	}
	if startDay.After(endDay) {
		return normalization.Window{}, fmt.Errorf("start %s after end %s", startDay.Format(time.DateOnly), endDay.Format(time.DateOnly))
	}

	return normalization.Window{
		Start: startDay,
		End:   endDay.AddDate(0, 0, 1).Add(-time.Millisecond),
	}, nil
}
