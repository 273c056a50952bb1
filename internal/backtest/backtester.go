// Package backtest orchestrates the simulation pipeline: fetch bars, enrich
// indicators, generate signals, fold positions, aggregate returns, compute
// the performance report.
package backtest

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/replaykit/replay/internal/core"
	"github.com/replaykit/replay/internal/indicator"
	"github.com/replaykit/replay/internal/perf"
	"github.com/replaykit/replay/internal/returns"
	"github.com/replaykit/replay/internal/simulate"
	"github.com/replaykit/replay/internal/strategy"
)

// HistoryProvider supplies ordered historical OHLCV bars. Retry and backoff
// behavior belongs to the implementation, not the engine.
type HistoryProvider interface {
	FetchHistory(ctx context.Context, symbol string, start, end time.Time, interval string) ([]core.Bar, error)
}

// RunConfig describes one backtest run.
type RunConfig struct {
	Symbol    string
	Benchmark string // optional benchmark symbol
	Start     time.Time
	End       time.Time
	Interval  string

	Indicators indicator.Config
	Simulate   simulate.Config
	Returns    returns.Config
	Perf       perf.Config
}

// Result is the complete output of one run. It is never mutated after Run
// returns.
type Result struct {
	ID       string
	Strategy string
	Symbol   string
	Start    time.Time
	End      time.Time

	Signals []core.Signal
	States  []simulate.State
	Records []returns.Record
	Report  perf.Report

	Bars         int
	Switches     int
	DegradedBars int
	Clips        int
	Elapsed      time.Duration
}

// Backtester runs strategies against a history provider.
type Backtester struct {
	provider HistoryProvider
	logger   *zap.Logger
}

// New creates a Backtester. A nil logger is replaced with a no-op.
func New(provider HistoryProvider, logger *zap.Logger) *Backtester {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Backtester{provider: provider, logger: logger}
}

// Run executes one backtest. Each stage consumes the complete output of the
// previous one; nothing is shared with other runs, so concurrent Runs on
// the same Backtester are safe.
func (b *Backtester) Run(ctx context.Context, strat strategy.Strategy, cfg RunConfig) (*Result, error) {
	started := time.Now()

	series, err := b.fetchSeries(ctx, cfg.Symbol, cfg)
	if err != nil {
		return nil, err
	}

	var benchmark *core.Series
	if cfg.Benchmark != "" {
		benchmark, err = b.fetchSeries(ctx, cfg.Benchmark, cfg)
		if err != nil {
			return nil, err
		}
		series, benchmark = alignByTime(series, benchmark)
		if series.Len() == 0 {
			return nil, core.WrapError(core.ErrNoData,
				&core.Misalignment{What: "benchmark overlap", Got: 0, Want: 1})
		}
	}

	required := strat.RequiredFields()
	trimmed, err := series.TrimWarmup(required)
	if err != nil {
		return nil, err
	}
	if benchmark != nil {
		// Rotation-style variants read the regime from the benchmark, so it
		// must clear the same warm-up.
		if benchmark, err = benchmark.TrimWarmup(required); err != nil {
			return nil, err
		}
		trimmed, benchmark = alignByTime(trimmed, benchmark)
	}
	if trimmed.Len() == 0 {
		return nil, core.WrapError(core.ErrEmptySeries,
			&core.FieldMissing{Symbol: cfg.Symbol, Field: "post-warmup bars"})
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	signals, err := strat.Generate(trimmed, benchmark)
	if err != nil {
		return nil, err
	}

	sim, err := simulate.Simulate(trimmed, signals, strat.Mapping(), cfg.Simulate)
	if err != nil {
		return nil, err
	}

	agg, err := returns.Aggregate(sim.States, trimmed, cfg.Returns)
	if err != nil {
		return nil, err
	}

	var benchReturns []float64
	if benchmark != nil {
		benchReturns = simpleReturns(benchmark.Closes())
	}

	report, err := perf.Compute(agg.Records, signals, benchReturns, cfg.Perf)
	if err != nil {
		return nil, err
	}

	res := &Result{
		ID:           uuid.NewString(),
		Strategy:     strat.Name(),
		Symbol:       cfg.Symbol,
		Start:        cfg.Start,
		End:          cfg.End,
		Signals:      signals,
		States:       sim.States,
		Records:      agg.Records,
		Report:       report,
		Bars:         trimmed.Len(),
		Switches:     sim.Switches,
		DegradedBars: sim.DegradedBars,
		Clips:        agg.Clips + report.Clips,
		Elapsed:      time.Since(started),
	}

	b.logger.Info("backtest complete",
		zap.String("run_id", res.ID),
		zap.String("strategy", res.Strategy),
		zap.String("symbol", res.Symbol),
		zap.Int("bars", res.Bars),
		zap.Int("switches", res.Switches),
		zap.Float64("total_return", report.TotalReturn),
		zap.Duration("elapsed", res.Elapsed),
	)
	if res.Clips > 0 || res.DegradedBars > 0 {
		b.logger.Warn("stability guards triggered during run",
			zap.String("run_id", res.ID),
			zap.Int("clips", res.Clips),
			zap.Int("degraded_bars", res.DegradedBars),
		)
	}

	return res, nil
}

// fetchSeries pulls bars, enriches indicators and validates ordering.
func (b *Backtester) fetchSeries(ctx context.Context, symbol string, cfg RunConfig) (*core.Series, error) {
	bars, err := b.provider.FetchHistory(ctx, symbol, cfg.Start, cfg.End, cfg.Interval)
	if err != nil {
		return nil, err
	}
	if len(bars) == 0 {
		return nil, core.WrapError(core.ErrEmptySeries, &core.FieldMissing{Symbol: symbol, Field: "bars"})
	}

	series, err := core.NewSeries(symbol, cfg.Interval, bars)
	if err != nil {
		return nil, err
	}
	return indicator.Enrich(series, cfg.Indicators)
}

// alignByTime reduces both series to their common timestamps, preserving
// order. The engine requires bar-for-bar alignment; intersecting here is
// data preparation, the strict alignment checks stay in the stages.
func alignByTime(a, b *core.Series) (*core.Series, *core.Series) {
	inB := make(map[time.Time]core.Bar, b.Len())
	for _, bar := range b.Bars {
		inB[bar.Time] = bar
	}

	var aBars, bBars []core.Bar
	for _, bar := range a.Bars {
		if match, ok := inB[bar.Time]; ok {
			aBars = append(aBars, bar)
			bBars = append(bBars, match)
		}
	}

	// Ordering was validated on the inputs and intersection preserves it.
	alignedA, _ := core.NewSeries(a.Symbol, a.Interval, aBars)
	alignedB, _ := core.NewSeries(b.Symbol, b.Interval, bBars)
	return alignedA, alignedB
}

// simpleReturns is the unmodeled percentage change of a close series, with
// bar 0 at zero.
func simpleReturns(closes []float64) []float64 {
	out := make([]float64, len(closes))
	for i := 1; i < len(closes); i++ {
		if closes[i-1] > 0 {
			out[i] = closes[i]/closes[i-1] - 1
		}
	}
	return out
}
