package backtest

import (
	"context"
	"runtime"
	"sync"

	"go.uber.org/zap"

	"github.com/replaykit/replay/internal/metrics"
	"github.com/replaykit/replay/internal/strategy"
)

// RunSpec pairs a strategy with its run configuration.
type RunSpec struct {
	Strategy strategy.Strategy
	Config   RunConfig
}

// Outcome is one sweep entry: either a result or the error that run hit.
type Outcome struct {
	Spec   RunSpec
	Result *Result
	Err    error
}

// Runner executes independent runs in parallel. Runs share nothing mutable,
// so the only coordination is collecting outcomes.
type Runner struct {
	bt      *Backtester
	workers int
	logger  *zap.Logger
	metrics *metrics.Registry
}

// NewRunner creates a Runner. workers <= 0 uses one worker per CPU. A nil
// metrics registry disables instrumentation.
func NewRunner(bt *Backtester, workers int, logger *zap.Logger, reg *metrics.Registry) *Runner {
	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Runner{bt: bt, workers: workers, logger: logger, metrics: reg}
}

// RunAll executes every spec and returns one outcome per spec, in input
// order. A cancelled context fails the remaining runs with the context
// error.
func (r *Runner) RunAll(ctx context.Context, specs []RunSpec) []Outcome {
	outcomes := make([]Outcome, len(specs))
	jobs := make(chan int, len(specs))

	var wg sync.WaitGroup
	for w := 0; w < r.workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range jobs {
				outcomes[i] = r.runOne(ctx, specs[i])
			}
		}()
	}

	for i := range specs {
		jobs <- i
	}
	close(jobs)
	wg.Wait()

	return outcomes
}

func (r *Runner) runOne(ctx context.Context, spec RunSpec) Outcome {
	res, err := r.bt.Run(ctx, spec.Strategy, spec.Config)
	out := Outcome{Spec: spec, Result: res, Err: err}

	if r.metrics != nil {
		if err != nil {
			r.metrics.RunFinished(spec.Strategy.Name(), "error", 0)
		} else {
			r.metrics.RunFinished(spec.Strategy.Name(), "ok", res.Elapsed)
			r.metrics.AddClipEvents("aggregate", res.Clips)
			r.metrics.AddClipEvents("degraded_capital", res.DegradedBars)
		}
	}

	if err != nil {
		r.logger.Warn("run failed",
			zap.String("strategy", spec.Strategy.Name()),
			zap.String("symbol", spec.Config.Symbol),
			zap.Error(err),
		)
	}
	return out
}
