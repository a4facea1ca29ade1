// Package main prints a one-shot valence/arousal prediction as JSON.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"affect-lab/internal/alignment"
	"affect-lab/internal/app"
	"affect-lab/internal/domain"
	"affect-lab/internal/lookup"
	"affect-lab/internal/normalization"
	"affect-lab/internal/prediction"
	"affect-lab/internal/tracker"
)

// historyWindow is how far before the target records are aligned.
const historyWindow = 24 * time.Hour

func main() {
	app.LoadEnvFile()

	configPath := flag.String("config", os.Getenv("TRACKER_CONFIG"), "Tracker YAML config path")
	dumpPath := flag.String("dump", "", "Align a raw tracker JSON dump instead of stored readings")
	postgresDSN := flag.String("postgres-dsn", os.Getenv("POSTGRES_DSN"), "PostgreSQL connection string")
	valencePath := flag.String("valence-model", app.EnvOr("VALENCE_MODEL", "models/valence.json"), "Valence model JSON")
	arousalPath := flag.String("arousal-model", app.EnvOr("AROUSAL_MODEL", "models/arousal.json"), "Arousal model JSON")
	timestamp := flag.String("timestamp", "", "Target time (RFC3339 or local YYYY-MM-DD HH:MM:SS, default now)")
	tolerance := flag.Duration("tolerance", lookup.DefaultTolerance, "Maximum distance to a matching record")
	noFallback := flag.Bool("no-future-fallback", false, "Fail instead of using the latest record for future targets")

	flag.Parse()

	// Diagnostics go to stderr so stdout stays valid JSON.
	logger := log.New(os.Stderr, "[predict] ", log.LstdFlags|log.Lshortfile)

	cfg, err := tracker.LoadConfig(*configPath)
	if err != nil {
		fail(logger, fmt.Errorf("load tracker config: %w", err))
	}
	if *dumpPath != "" {
		cfg.DumpPath = *dumpPath
	}
	loc, err := cfg.Location()
	if err != nil {
		fail(logger, err)
	}

	target := time.Now()
	if *timestamp != "" {
		target, err = lookup.ParseTimeIn(*timestamp, loc)
		if err != nil {
			fail(logger, err)
		}
	}

	valence, err := prediction.LoadModel(*valencePath)
	if err != nil {
		fail(logger, err)
	}
	arousal, err := prediction.LoadModel(*arousalPath)
	if err != nil {
		fail(logger, err)
	}

	ctx := context.Background()
	end := target.Add(*tolerance)
	if now := time.Now(); !*noFallback && now.After(end) {
		end = now
	}
	window := normalization.Window{Start: target.Add(-historyWindow), End: end}

	var records []*domain.AlignedRecord
	if cfg.DumpPath != "" {
		records, err = alignDump(ctx, cfg, loc, window, logger)
	} else {
		records, err = alignStored(ctx, *postgresDSN, loc, window, logger)
	}
	if err != nil {
		fail(logger, err)
	}

	ix, err := lookup.NewIndex(records,
		lookup.WithTolerance(*tolerance),
		lookup.WithFutureFallback(!*noFallback),
		lookup.WithLocation(loc))
	if err != nil {
		fail(logger, err)
	}

	predictor := prediction.NewPredictor(valence, arousal, loc)
	predictor.SetIndex(ix)

	p, err := predictor.Predict(ctx, target)
	if err != nil {
		fail(logger, err)
	}
	if p.Substituted {
		logger.Printf("Target %s is beyond the data, used %s", target.In(loc).Format(time.DateTime),
			time.UnixMilli(p.ResolvedMs).In(loc).Format(time.DateTime))
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(p); err != nil {
		fail(logger, err)
	}
}

// alignDump aligns the dump days covering w without touching any store.
func alignDump(ctx context.Context, cfg tracker.Config, loc *time.Location, w normalization.Window, logger *log.Logger) ([]*domain.AlignedRecord, error) {
	source, err := cfg.NewSource()
	if err != nil {
		return nil, err
	}
	days := int(w.End.Sub(w.Start).Hours()/24) + 1
	fetched, err := tracker.NewFetcher(source, loc, logger).FetchWindow(ctx, w.End, days)
	if err != nil {
		return nil, err
	}

	reference, secondaries, scalars := alignment.FromDays(fetched.Days)
	all := alignment.NewEngine(loc).Align(reference, secondaries, scalars)

	startMs, endMs := w.Start.UnixMilli(), w.End.UnixMilli()
	records := make([]*domain.AlignedRecord, 0, len(all))
	for _, rec := range all {
		if rec.TimestampMs >= startMs && rec.TimestampMs <= endMs {
			records = append(records, rec)
		}
	}
	return records, nil
}

// alignStored aligns w from the PostgreSQL stores.
func alignStored(ctx context.Context, dsn string, loc *time.Location, w normalization.Window, logger *log.Logger) ([]*domain.AlignedRecord, error) {
	stores, cleanup, err := app.OpenStores(ctx, app.StoreOptions{PostgresDSN: dsn})
	if err != nil {
		return nil, err
	}
	defer cleanup()

	runner := normalization.NewRunner(stores.Readings, stores.Scalars, stores.Labels, nil, alignment.NewEngine(loc), logger)
	return runner.Align(ctx, w)
}

// fail logs err and prints it as a JSON error object before exiting.
func fail(logger *log.Logger, err error) {
	logger.Printf("Error: %v", err)
	json.NewEncoder(os.Stdout).Encode(map[string]string{"error": err.Error()})
	os.Exit(1)
}
