// Package main runs the live service:
// - Refresh (scheduled): optional tracker catch-up ingest, then re-alignment of the recent tail
// - Prediction (scheduled): valence/arousal at the current time, pushed to WebSocket clients
// - HTTP: emotion labels, on-demand predictions, health, status and metrics
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"sort"
	"sync"
	"syscall"
	"time"

	"affect-lab/internal/alignment"
	"affect-lab/internal/app"
	"affect-lab/internal/domain"
	"affect-lab/internal/ingestion"
	"affect-lab/internal/lookup"
	"affect-lab/internal/normalization"
	"affect-lab/internal/observability"
	"affect-lab/internal/prediction"
	"affect-lab/internal/tracker"
	"affect-lab/internal/transport"
)

// Server holds all components of the live service.
type Server struct {
	// Configuration
	refreshInterval time.Duration
	predictInterval time.Duration
	history         time.Duration
	resync          time.Duration // tail re-aligned on each refresh
	tolerance       time.Duration
	ingestDays      int // most days a catch-up ingest reaches back

	// Components
	stores      *app.Stores
	ingest      *ingestion.Runner // nil when ingestion is disabled
	aligner     *normalization.Runner
	predictor   *prediction.Predictor
	broadcaster *transport.Broadcaster
	predictions chan *domain.Prediction
	loc         *time.Location
	logger      *log.Logger
	now         func() time.Time

	// State
	mu             sync.Mutex
	started        time.Time
	lastRefresh    time.Time
	refreshRunning bool
	refreshRuns    int
	batch          []*domain.AlignedRecord
	latestRecord   time.Time
	lastPrediction *domain.Prediction
}

const (
	defaultResync        = time.Hour
	defaultMaxIngestDays = 7
	predictionBufferSize = 8
)

func main() {
	// Load .env file if exists
	app.LoadEnvFile()

	// Parse flags (env vars as defaults)
	configPath := flag.String("config", os.Getenv("TRACKER_CONFIG"), "Tracker YAML config path")
	postgresDSN := flag.String("postgres-dsn", os.Getenv("POSTGRES_DSN"), "PostgreSQL connection string")
	clickhouseDSN := flag.String("clickhouse-dsn", os.Getenv("CLICKHOUSE_DSN"), "ClickHouse connection string (optional)")
	useMemory := flag.Bool("use-memory", false, "Use in-memory storage instead of PostgreSQL")
	migrate := flag.Bool("migrate", false, "Run database migrations on startup")
	valencePath := flag.String("valence-model", app.EnvOr("VALENCE_MODEL", "models/valence.json"), "Valence model JSON")
	arousalPath := flag.String("arousal-model", app.EnvOr("AROUSAL_MODEL", "models/arousal.json"), "Arousal model JSON")
	noIngest := flag.Bool("no-ingest", false, "Only read stored readings, never call the tracker")
	refreshInterval := flag.Duration("refresh-interval", 5*time.Minute, "Ingest and re-align interval")
	predictInterval := flag.Duration("predict-interval", 2*time.Minute, "Live prediction interval")
	history := flag.Duration("history", 24*time.Hour, "Aligned history kept for predictions")
	resync := flag.Duration("resync", defaultResync, "Recent history re-aligned on each refresh")
	ingestDays := flag.Int("max-ingest-days", defaultMaxIngestDays, "Most days a catch-up ingest fetches")
	tolerance := flag.Duration("tolerance", lookup.DefaultTolerance, "Maximum distance to a matching record")
	addr := flag.String("addr", app.EnvOr("HTTP_ADDR", ":8080"), "HTTP listen address")

	flag.Parse()

	// Setup logger
	logger := log.New(os.Stdout, "[server] ", log.LstdFlags|log.Lshortfile)

	if !*useMemory && *postgresDSN == "" {
		logger.Fatal("--postgres-dsn is required (use --use-memory for in-memory storage)")
	}

	cfg, err := tracker.LoadConfig(*configPath)
	if err != nil {
		logger.Fatalf("Failed to load tracker config: %v", err)
	}
	loc, err := cfg.Location()
	if err != nil {
		logger.Fatalf("Invalid timezone: %v", err)
	}

	valence, err := prediction.LoadModel(*valencePath)
	if err != nil {
		logger.Fatalf("Failed to load valence model: %v", err)
	}
	arousal, err := prediction.LoadModel(*arousalPath)
	if err != nil {
		logger.Fatalf("Failed to load arousal model: %v", err)
	}

	// Create context with cancellation
	ctx, cancel := context.WithCancel(context.Background())

	// Create stores
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

	server := newServer(stores, loc, prediction.NewPredictor(valence, arousal, loc), logger)
	server.refreshInterval = *refreshInterval
	server.predictInterval = *predictInterval
	server.history = *history
	server.resync = *resync
	server.ingestDays = *ingestDays
	server.tolerance = *tolerance

	if !*noIngest {
		if err := cfg.Validate(); err != nil {
			logger.Fatalf("Invalid tracker config: %v", err)
		}
		server.ingest, _, err = app.NewIngestRunner(cfg, stores, logger)
		if err != nil {
			logger.Fatalf("Failed to create ingest runner: %v", err)
		}
	}

	// Channel to signal completion
	done := make(chan error, 1)

	// Handle shutdown signals
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		sig := <-sigCh
		logger.Printf("Received signal %v, initiating graceful shutdown...", sig)
		cancel()

		// Wait for second signal for immediate shutdown
		select {
		case sig := <-sigCh:
			logger.Printf("Received second signal %v, forcing immediate shutdown", sig)
			os.Exit(1)
		case <-time.After(30 * time.Second):
			logger.Println("Graceful shutdown timed out after 30s, forcing exit")
			os.Exit(1)
		case <-done:
			// Normal shutdown completed
		}
	}()

	httpServer := &http.Server{Addr: *addr, Handler: server.routes()}
	go func() {
		logger.Printf("Starting HTTP server on %s", *addr)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Printf("HTTP server error: %v", err)
		}
	}()

	err = server.Run(ctx)

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	server.broadcaster.Close()
	httpServer.Shutdown(shutdownCtx)
	shutdownCancel()

	done <- err
	cancel()

	if err != nil && !errors.Is(err, context.Canceled) {
		logger.Fatalf("Server error: %v", err)
	}

	logger.Println("Shutdown complete")
}

// newServer creates a server with default intervals.
func newServer(stores *app.Stores, loc *time.Location, predictor *prediction.Predictor, logger *log.Logger) *Server {
	return &Server{
		refreshInterval: 5 * time.Minute,
		predictInterval: 2 * time.Minute,
		history:         24 * time.Hour,
		resync:          defaultResync,
		tolerance:       lookup.DefaultTolerance,
		ingestDays:      defaultMaxIngestDays,
		stores:          stores,
		aligner:         normalization.NewRunner(stores.Readings, stores.Scalars, stores.Labels, nil, alignment.NewEngine(loc), logger),
		predictor:       predictor,
		broadcaster:     transport.NewBroadcaster(logger),
		predictions:     make(chan *domain.Prediction, predictionBufferSize),
		loc:             loc,
		logger:          logger,
		now:             time.Now,
		started:         time.Now(),
	}
}

// Run starts the refresh and prediction loops.
func (s *Server) Run(ctx context.Context) error {
	s.logger.Println("Starting server...")

	// Fill the index before the first prediction
	s.refresh(ctx)

	errCh := make(chan error, 3)

	go func() {
		if err := s.broadcaster.BroadcastFromChannel(ctx, s.predictions); err != nil && !errors.Is(err, context.Canceled) {
			errCh <- fmt.Errorf("broadcaster: %w", err)
		}
	}()

	go func() {
		if err := s.runScheduler(ctx, s.refreshInterval, s.refresh); err != nil && !errors.Is(err, context.Canceled) {
			errCh <- fmt.Errorf("refresh scheduler: %w", err)
		}
	}()

	go func() {
		if err := s.runScheduler(ctx, s.predictInterval, s.predictNow); err != nil && !errors.Is(err, context.Canceled) {
			errCh <- fmt.Errorf("prediction scheduler: %w", err)
		}
	}()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case err := <-errCh:
		return err
	}
}

// runScheduler calls fn every interval until ctx is done.
func (s *Server) runScheduler(ctx context.Context, interval time.Duration, fn func(context.Context)) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			fn(ctx)
		}
	}
}

// refresh ingests recent tracker days and rebuilds the prediction index.
func (s *Server) refresh(ctx context.Context) {
	s.mu.Lock()
	if s.refreshRunning {
		s.mu.Unlock()
		s.logger.Println("Refresh already running, skipping...")
		return
	}
	s.refreshRunning = true
	s.mu.Unlock()

	defer func() {
		s.mu.Lock()
		s.refreshRunning = false
		s.lastRefresh = s.now()
		s.refreshRuns++
		s.mu.Unlock()
	}()

	start := time.Now()
	now := s.now()

	if s.ingest != nil {
		if _, err := s.ingest.CatchUp(ctx, now, s.ingestDays); err != nil {
			// Stale data still serves predictions
			s.logger.Printf("Ingest error: %v", err)
		}
	}

	s.mu.Lock()
	prior := s.batch
	s.mu.Unlock()

	historyStart := now.Add(-s.history)
	window := normalization.Window{Start: historyStart, End: now}
	if n := len(prior); n > 0 {
		// Only the tail can have changed since the last refresh.
		tail := time.UnixMilli(prior[n-1].TimestampMs).Add(-s.resync)
		if tail.After(window.Start) {
			window.Start = tail
		}
	}

	records, err := s.aligner.Align(ctx, window)
	if err != nil {
		s.logger.Printf("Alignment error: %v", err)
		observability.RecordPipelineRun("refresh", "error", time.Since(start).Seconds())
		return
	}
	batch := dropBefore(alignment.MergeBatches(prior, records), historyStart)

	ix, err := lookup.NewIndex(batch,
		lookup.WithTolerance(s.tolerance),
		lookup.WithLocation(s.loc))
	if err != nil {
		s.logger.Printf("Index error: %v", err)
		observability.RecordPipelineRun("refresh", "error", time.Since(start).Seconds())
		return
	}
	s.predictor.SetIndex(ix)

	s.mu.Lock()
	s.batch = batch
	if latest := ix.Latest(); latest != nil {
		s.latestRecord = time.UnixMilli(latest.TimestampMs).In(s.loc)
	}
	s.mu.Unlock()

	s.logger.Printf("Refreshed %d aligned records (%d re-aligned from %s) in %v",
		ix.Len(), len(records), window.Start.In(s.loc).Format(time.DateTime), time.Since(start))
	observability.RecordPipelineRun("refresh", "ok", time.Since(start).Seconds())
}

// dropBefore returns the suffix of sorted records at or after t.
func dropBefore(records []*domain.AlignedRecord, t time.Time) []*domain.AlignedRecord {
	ms := t.UnixMilli()
	i := sort.Search(len(records), func(i int) bool {
		return records[i].TimestampMs >= ms
	})
	return records[i:]
}

// predictNow predicts at the current time and pushes the result to clients.
func (s *Server) predictNow(ctx context.Context) {
	p, err := s.predictor.Predict(ctx, s.now())
	if err != nil {
		s.logger.Printf("Live prediction failed: %v", err)
		if err := s.broadcaster.BroadcastError(err); err != nil {
			s.logger.Printf("Broadcast error: %v", err)
		}
		return
	}

	s.mu.Lock()
	s.lastPrediction = p
	s.mu.Unlock()

	select {
	case s.predictions <- p:
	default:
		s.logger.Println("Prediction queue full, dropping frame")
	}
}
