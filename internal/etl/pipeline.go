package etl

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/stockpulse/stockpulse/internal/domain/models"
	"github.com/stockpulse/stockpulse/internal/logger"
	"github.com/stockpulse/stockpulse/internal/marketdata"
	"github.com/stockpulse/stockpulse/internal/storage"
)

// State is the lifecycle of a Pipeline: NotStarted until the first run,
// Running while a run is in flight, Completed after the last run finished.
type State int32

const (
	NotStarted State = iota
	Running
	Completed
)

func (s State) String() string {
	switch s {
	case Running:
		return "running"
	case Completed:
		return "completed"
	default:
		return "not_started"
	}
}

// Pipeline drives the fetch → transform → load sequence over a symbol list.
//
// Symbols are processed strictly sequentially. A failure for one symbol is
// recorded in the run result and does not abort the run: the pipeline is
// best effort across the symbol set. Overlapping runs are rejected with
// ErrRunInProgress.
type Pipeline struct {
	fetcher marketdata.Fetcher
	repo    storage.BarsRepository

	mu    sync.Mutex // held for the duration of one run
	state atomic.Int32
}

// NewPipeline constructs a Pipeline over the given fetcher and repository.
func NewPipeline(fetcher marketdata.Fetcher, repo storage.BarsRepository) *Pipeline {
	return &Pipeline{fetcher: fetcher, repo: repo}
}

// State returns the pipeline's current lifecycle state.
func (p *Pipeline) State() State { return State(p.state.Load()) }

// Run executes one full pipeline pass over the given symbols and returns
// the aggregate result.
//
// Behavior:
//   - Ensures the store schema exists before the first write (idempotent).
//   - For each symbol in order: fetch, transform, load; any stage error is
//     converted into a failure entry and the run proceeds to the next symbol.
//   - After all symbols are attempted, the summary is written to the run
//     log and returned to the caller.
//
// Errors are returned only for run-level failures (overlapping invocation,
// schema creation); per-symbol failures never propagate past the result.
func (p *Pipeline) Run(ctx context.Context, symbols []string) (models.RunResult, error) {
	if !p.mu.TryLock() {
		return models.RunResult{}, ErrRunInProgress
	}
	defer p.mu.Unlock()

	p.state.Store(int32(Running))
	defer p.state.Store(int32(Completed))

	res := models.RunResult{
		RunID:     uuid.NewString(),
		StartedAt: time.Now().UTC(),
	}

	logger.L().Info().
		Str("run_id", res.RunID).
		Int("symbols", len(symbols)).
		Msg("pipeline run start")

	if err := p.repo.EnsureSchema(); err != nil {
		return res, fmt.Errorf("ensure schema: %w", err)
	}

	for _, symbol := range symbols {
		res.Symbols = append(res.Symbols, p.runSymbol(ctx, symbol))
	}
	res.FinishedAt = time.Now().UTC()

	if err := p.repo.RecordRun(res); err != nil {
		// The run itself succeeded; a run-log failure is not worth failing it.
		logger.L().Warn().Str("run_id", res.RunID).Err(err).Msg("record run failed")
	}

	logger.L().Info().
		Str("run_id", res.RunID).
		Int("succeeded", res.Succeeded()).
		Int("failed", res.Failed()).
		Dur("elapsed", res.FinishedAt.Sub(res.StartedAt)).
		Msg("pipeline run done")

	return res, nil
}

// runSymbol performs fetch → transform → load for one symbol and converts
// any stage failure into a result entry.
func (p *Pipeline) runSymbol(ctx context.Context, symbol string) models.SymbolResult {
	payload, err := p.fetcher.Fetch(ctx, symbol)
	if err != nil {
		return failed(symbol, classifyFetch(err), err)
	}

	bars, err := Transform(symbol, payload)
	if err != nil {
		return failed(symbol, classifyTransform(err), err)
	}

	rows, err := p.repo.UpsertBars(bars)
	if err != nil {
		return failed(symbol, KindStorage, err)
	}

	logger.L().Info().Str("symbol", symbol).Int("rows", rows).Msg("symbol loaded")
	return models.SymbolResult{Symbol: symbol, Rows: rows}
}

func failed(symbol string, kind Kind, err error) models.SymbolResult {
	logger.L().Error().Str("symbol", symbol).Str("kind", string(kind)).Err(err).Msg("symbol failed")
	return models.SymbolResult{Symbol: symbol, ErrKind: string(kind), ErrMsg: err.Error()}
}
