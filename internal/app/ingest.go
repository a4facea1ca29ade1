package app

import (
	"log"
	"time"

	"affect-lab/internal/ingestion"
	"affect-lab/internal/tracker"
)

// NewIngestRunner builds an ingestion runner for the tracker described by cfg.
func NewIngestRunner(cfg tracker.Config, stores *Stores, logger *log.Logger) (*ingestion.Runner, *time.Location, error) {
	loc, err := cfg.Location()
	if err != nil {
		return nil, nil, err
	}
	source, err := cfg.NewSource()
	if err != nil {
		return nil, nil, err
	}
	runner := ingestion.NewRunner(ingestion.RunnerOptions{
		Fetcher:  tracker.NewFetcher(source, loc, logger),
		Readings: stores.Readings,
		Scalars:  stores.Scalars,
		Progress: stores.Progress,
		Location: loc,
		Logger:   logger,
	})
	return runner, loc, nil
}
