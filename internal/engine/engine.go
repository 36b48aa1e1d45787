// Package engine owns the scan lifecycle: submission, background execution,
// and the pending -> processing -> complete/failed state machine.
package engine

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/webshepherd/webshepherd/internal/htmldoc"
	"github.com/webshepherd/webshepherd/internal/metrics"
	"github.com/webshepherd/webshepherd/internal/rules"
	"github.com/webshepherd/webshepherd/internal/scan"
)

// Config controls Engine behavior.
type Config struct {
	// ExecTimeout bounds one background scan execution end to end. The
	// fetcher applies its own, tighter network timeout.
	ExecTimeout time.Duration
}

// Engine drives scans through their state machine. Each submitted scan runs
// as an independent goroutine; after creation, that goroutine is the only
// writer of its record.
type Engine struct {
	store   scan.Store
	fetcher scan.Fetcher
	idGen   scan.IDGenerator
	clock   scan.Clock
	cfg     Config
	logger  *zap.Logger
	wg      sync.WaitGroup
}

// New constructs an Engine.
func New(
	store scan.Store,
	fetcher scan.Fetcher,
	idGen scan.IDGenerator,
	clock scan.Clock,
	cfg Config,
	logger *zap.Logger,
) *Engine {
	if cfg.ExecTimeout <= 0 {
		cfg.ExecTimeout = time.Minute
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Engine{
		store:   store,
		fetcher: fetcher,
		idGen:   idGen,
		clock:   clock,
		cfg:     cfg,
		logger:  logger,
	}
}

// Submit creates a pending scan record, schedules its execution, and returns
// immediately. It never blocks on the scan itself.
func (e *Engine) Submit(ctx context.Context, url string) (scan.Scan, error) {
	id, err := e.idGen.NewID()
	if err != nil {
		return scan.Scan{}, fmt.Errorf("generate scan id: %w", err)
	}
	record := scan.Scan{
		ID:        id,
		URL:       url,
		Status:    scan.StatusPending,
		CreatedAt: e.clock.Now(),
	}
	if err := e.store.Create(ctx, record); err != nil {
		return scan.Scan{}, fmt.Errorf("create scan: %w", err)
	}

	e.wg.Add(1)
	go func() {
		defer e.wg.Done()
		// Detached from the request context: a client that stops polling
		// must not cancel the scan.
		execCtx, cancel := context.WithTimeout(context.Background(), e.cfg.ExecTimeout)
		defer cancel()
		e.execute(execCtx, record)
	}()

	return record, nil
}

// Get returns the current snapshot of a scan. It never blocks on an in-flight
// execution.
func (e *Engine) Get(ctx context.Context, id string) (scan.Scan, error) {
	return e.store.Get(ctx, id)
}

// Stats returns aggregate counters across all scans.
func (e *Engine) Stats(ctx context.Context) (scan.Stats, error) {
	now := e.clock.Now()
	dayStart := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	return e.store.Stats(ctx, dayStart)
}

// Wait blocks until all in-flight scans finish. Used by shutdown and tests.
func (e *Engine) Wait() {
	e.wg.Wait()
}

// execute drives one scan through fetch -> parse -> rules -> aggregate and
// records exactly one terminal transition.
func (e *Engine) execute(ctx context.Context, record scan.Scan) {
	logger := e.logger.With(zap.String("scan_id", record.ID), zap.String("url", record.URL))
	start := e.clock.Now()

	record.Status = scan.StatusProcessing
	if err := e.store.Update(ctx, record); err != nil {
		logger.Error("mark processing failed", zap.Error(err))
		return
	}

	result, err := e.fetcher.Fetch(ctx, record.URL)
	if err != nil {
		e.fail(ctx, record, start, err, logger)
		return
	}

	doc, err := htmldoc.Parse(result.Body)
	if err != nil {
		e.fail(ctx, record, start, err, logger)
		return
	}

	findings := rules.Run(doc, record.URL, logger)
	score, counters, issues := rules.Aggregate(findings)

	completed := e.clock.Now()
	durationMs := completed.Sub(start).Milliseconds()

	record.Status = scan.StatusComplete
	record.Score = &score
	record.Findings = findings
	record.Counters = counters
	record.Issues = issues
	record.CompletedAt = &completed
	record.DurationMs = &durationMs

	if err := e.store.Update(ctx, record); err != nil {
		logger.Error("record completion failed", zap.Error(err))
		return
	}
	metrics.ObserveScan(string(scan.StatusComplete), completed.Sub(start))
	logger.Info("scan complete",
		zap.Float64("score", score),
		zap.Int("failures", counters.Failures),
		zap.Int("warnings", counters.Warnings),
	)
}

// fail records the failed terminal state. No partial findings are ever kept.
func (e *Engine) fail(ctx context.Context, record scan.Scan, start time.Time, cause error, logger *zap.Logger) {
	completed := e.clock.Now()
	durationMs := completed.Sub(start).Milliseconds()

	record.Status = scan.StatusFailed
	record.Error = cause.Error()
	record.Score = nil
	record.Findings = nil
	record.CompletedAt = &completed
	record.DurationMs = &durationMs

	if err := e.store.Update(ctx, record); err != nil {
		logger.Error("record failure failed", zap.Error(err))
		return
	}
	metrics.ObserveScan(string(scan.StatusFailed), completed.Sub(start))
	logger.Warn("scan failed", zap.String("reason", cause.Error()))
}
