package batch

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"go.uber.org/zap"

	"github.com/dgnsrekt/intraday-dashboard/internal/api"
	"github.com/dgnsrekt/intraday-dashboard/internal/dashboard"
	"github.com/dgnsrekt/intraday-dashboard/internal/data"
)

// Builder produces a snapshot for one symbol
type Builder interface {
	Build(ctx context.Context, symbol string) (*dashboard.Snapshot, error)
}

// Handler runs after a snapshot is built, e.g. to export or alert. A
// handler error marks the symbol as failed.
type Handler func(ctx context.Context, snap *dashboard.Snapshot) error

type Runner struct {
	builder  Builder
	handlers []Handler
	workers  int
	logger   *zap.Logger
}

type Result struct {
	Total     int
	Success   int
	NotFound  int
	Failed    int
	Warnings  int
	Breakouts []string
	Errors    []string
	// Snapshots holds the successful snapshots in input order
	Snapshots []*dashboard.Snapshot
}

type taskResult struct {
	index    int
	symbol   string
	snapshot *dashboard.Snapshot
	notFound bool
	err      error
}

func NewRunner(builder Builder, workers int, logger *zap.Logger, handlers ...Handler) *Runner {
	if workers < 1 {
		workers = 1
	}
	return &Runner{
		builder:  builder,
		handlers: handlers,
		workers:  workers,
		logger:   logger,
	}
}

// Execute builds snapshots for symbols on a bounded worker pool. Per-symbol
// failures are counted in the result; the returned error is only set when
// ctx is cancelled before all symbols ran.
func (r *Runner) Execute(ctx context.Context, symbols []string) (*Result, error) {
	result := &Result{Total: len(symbols)}

	if len(symbols) == 0 {
		return result, nil
	}

	jobs := make(chan int, len(symbols))
	results := make(chan taskResult, len(symbols))

	// Start workers
	var wg sync.WaitGroup
	for i := 0; i < r.workers; i++ {
		wg.Add(1)
		go func(workerID int) {
			defer wg.Done()
			r.worker(ctx, workerID, symbols, jobs, results)
		}(i)
	}

	// Send jobs
	go func() {
		defer close(jobs)
		for i := range symbols {
			select {
			case <-ctx.Done():
				return
			case jobs <- i:
			}
		}
	}()

	// Wait for workers and close results
	go func() {
		wg.Wait()
		close(results)
	}()

	ordered := make([]*dashboard.Snapshot, len(symbols))
	done := 0
	for tr := range results {
		done++
		switch {
		case tr.notFound:
			result.NotFound++
		case tr.err != nil:
			result.Failed++
			result.Errors = append(result.Errors, fmt.Sprintf("%s: %v", tr.symbol, tr.err))
		default:
			result.Success++
			ordered[tr.index] = tr.snapshot
			result.Warnings += len(tr.snapshot.Warnings)
		}
	}

	for _, snap := range ordered {
		if snap == nil {
			continue
		}
		result.Snapshots = append(result.Snapshots, snap)
		if snap.Summary != nil && snap.Summary.Breakout {
			result.Breakouts = append(result.Breakouts, snap.Symbol)
		}
	}

	if done < len(symbols) {
		return result, fmt.Errorf("batch interrupted after %d of %d symbols: %w", done, len(symbols), ctx.Err())
	}
	return result, nil
}

func (r *Runner) worker(ctx context.Context, id int, symbols []string, jobs <-chan int, results chan<- taskResult) {
	for idx := range jobs {
		select {
		case <-ctx.Done():
			return
		default:
		}

		result := r.process(ctx, idx, symbols[idx])
		r.logger.Debug("symbol processed",
			zap.Int("worker", id),
			zap.String("symbol", result.symbol),
			zap.Bool("ok", result.err == nil && !result.notFound))

		select {
		case <-ctx.Done():
			return
		case results <- result:
		}
	}
}

func (r *Runner) process(ctx context.Context, idx int, symbol string) taskResult {
	result := taskResult{index: idx, symbol: symbol}

	snap, err := r.builder.Build(ctx, symbol)
	if err != nil {
		if errors.Is(err, api.ErrNotFound) || errors.Is(err, data.ErrNotFound) {
			r.logger.Debug("not found", zap.String("symbol", symbol))
			result.notFound = true
			return result
		}
		result.err = err
		return result
	}
	result.symbol = snap.Symbol

	for _, h := range r.handlers {
		if err := h(ctx, snap); err != nil {
			result.err = err
			return result
		}
	}

	result.snapshot = snap
	return result
}
