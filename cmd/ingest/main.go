// Package main fetches a window of tracker days into the reading stores.
package main

import (
	"context"
	"flag"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"affect-lab/internal/app"
	"affect-lab/internal/ingestion"
	"affect-lab/internal/observability"
	"affect-lab/internal/tracker"
)

func main() {
	app.LoadEnvFile()

	// Parse flags (env vars as defaults)
	configPath := flag.String("config", os.Getenv("TRACKER_CONFIG"), "Tracker YAML config path")
	dumpPath := flag.String("dump", "", "Read days from a raw JSON dump instead of the tracker API")
	postgresDSN := flag.String("postgres-dsn", os.Getenv("POSTGRES_DSN"), "PostgreSQL connection string")
	useMemory := flag.Bool("use-memory", false, "Use in-memory storage instead of PostgreSQL")
	migrate := flag.Bool("migrate", true, "Apply schema migrations before ingesting")
	endDate := flag.String("end", "", "Last date to fetch (YYYY-MM-DD, default today in the tracker timezone)")
	days := flag.Int("days", -1, "Days before --end to fetch (default from config)")
	catchUp := flag.Bool("catch-up", false, "Start from the last ingested date, reaching back at most --days")
	metricsAddr := flag.String("metrics-addr", "", "Prometheus metrics HTTP address (empty to disable)")

	flag.Parse()

	logger := log.New(os.Stdout, "[ingest] ", log.LstdFlags|log.Lshortfile)

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
	if !*useMemory && *postgresDSN == "" {
		logger.Fatal("--postgres-dsn is required (use --use-memory for in-memory storage)")
	}

	if *metricsAddr != "" {
		go func() {
			mux := http.NewServeMux()
			mux.Handle("/metrics", observability.Handler())
			logger.Printf("Starting metrics server on %s", *metricsAddr)
			if err := http.ListenAndServe(*metricsAddr, mux); err != nil && err != http.ErrServerClosed {
				logger.Printf("Metrics server error: %v", err)
			}
		}()
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		logger.Printf("Received signal %v, cancelling ingest...", sig)
		cancel()
	}()

	stores, cleanup, err := app.OpenStores(ctx, app.StoreOptions{
		PostgresDSN: *postgresDSN,
		UseMemory:   *useMemory,
		Migrate:     *migrate,
	})
	if err != nil {
		logger.Fatalf("Failed to create stores: %v", err)
	}
	defer cleanup()

	runner, loc, err := app.NewIngestRunner(cfg, stores, logger)
	if err != nil {
		logger.Fatalf("Failed to create tracker source: %v", err)
	}

	end := time.Now().In(loc)
	if *endDate != "" {
		end, err = time.ParseInLocation(time.DateOnly, *endDate, loc)
		if err != nil {
			logger.Fatalf("Invalid --end: %v", err)
		}
	}

	var res *ingestion.Result
	if *catchUp {
		res, err = runner.CatchUp(ctx, end, cfg.WindowDays)
	} else {
		res, err = runner.Run(ctx, end, cfg.WindowDays)
	}
	if err != nil {
		logger.Fatalf("Ingest failed: %v", err)
	}

	logger.Printf("Done: %d dates requested, %d skipped, %d failed, %d readings stored",
		len(res.Dates), len(res.Skipped), len(res.Failed), res.Readings)
	if len(res.Failed) > 0 {
		logger.Printf("Failed dates: %v", res.Failed)
	}
}
