// Package perf reduces a simulated return series to a scalar performance
// report, optionally relative to a benchmark return series.
package perf

import (
	"math"

	"github.com/replaykit/replay/internal/core"
	"github.com/replaykit/replay/internal/returns"
)

// Default guard bounds. They exist to keep degenerate inputs from producing
// infinite or sign-flipped metrics; a triggered bound is counted so the
// caller can surface it.
const (
	DefaultMetricBound   = 1e6
	DefaultDrawdownFloor = -0.99
)

// Config holds the reporting parameters.
type Config struct {
	RiskFreeRate   float64
	PeriodsPerYear int
	MetricBound    float64 // magnitude cap on return metrics
	DrawdownFloor  float64 // lower cap on max drawdown
}

// Report is the performance summary of one simulation run. Benchmark
// metrics are populated only when HasBenchmark is set. Beta is NaN when the
// benchmark variance is zero and is then omitted from Map.
type Report struct {
	TotalReturn      float64
	AnnualReturn     float64
	AnnualVolatility float64
	SharpeRatio      float64
	MaxDrawdown      float64
	TradeCount       int
	WinRate          float64
	Observations     int // non-missing return observations

	HasBenchmark     bool
	TrackingError    float64
	InformationRatio float64
	Beta             float64

	Clips int // guard bounds triggered while reporting
}

// Compute builds the report. Signals must align with the records when
// supplied; a benchmark return series must align as well. An empty record
// series yields an empty report, not an error.
func Compute(records []returns.Record, signals []core.Signal, benchmark []float64, cfg Config) (Report, error) {
	if len(records) == 0 {
		return Report{}, nil
	}
	if signals != nil && len(signals) != len(records) {
		return Report{}, core.WrapError(core.ErrAlignment, &core.Misalignment{
			What: "signal sequence", Got: len(signals), Want: len(records),
		})
	}
	if benchmark != nil && len(benchmark) != len(records) {
		return Report{}, core.WrapError(core.ErrAlignment, &core.Misalignment{
			What: "benchmark returns", Got: len(benchmark), Want: len(records),
		})
	}

	bound := cfg.MetricBound
	if bound <= 0 {
		bound = DefaultMetricBound
	}
	floor := cfg.DrawdownFloor
	if floor >= 0 {
		floor = DefaultDrawdownFloor
	}
	ppy := float64(cfg.PeriodsPerYear)
	if ppy <= 0 {
		ppy = 252
	}

	rep := Report{}

	// Sample of defined per-bar returns.
	var sample []float64
	for _, rec := range records {
		if rec.Missing {
			continue
		}
		sample = append(sample, rec.Return)
	}
	rep.Observations = len(sample)

	total := records[len(records)-1].Cumulative - 1
	var clipped bool
	rep.TotalReturn, clipped = clampAbs(total, bound)
	if clipped {
		rep.Clips++
	}

	if rep.Observations > 0 {
		annual := math.Pow(1+rep.TotalReturn, ppy/float64(rep.Observations)) - 1
		rep.AnnualReturn, clipped = clampAbs(annual, bound)
		if clipped {
			rep.Clips++
		}
	}

	rep.AnnualVolatility = stddev(sample) * math.Sqrt(ppy)
	if rep.AnnualVolatility != 0 {
		rep.SharpeRatio = (rep.AnnualReturn - cfg.RiskFreeRate) / rep.AnnualVolatility
	}
	// Zero volatility leaves Sharpe at 0 by convention, not as "no signal".

	rep.MaxDrawdown = maxDrawdown(records, floor, &rep.Clips)

	for _, sig := range signals {
		if sig.Action.IsTrade() {
			rep.TradeCount++
		}
	}
	if rep.TradeCount > 0 {
		wins := 0
		for _, r := range sample {
			if r > 0 {
				wins++
			}
		}
		rep.WinRate = float64(wins) / float64(rep.TradeCount)
		// The raw ratio can exceed 1 because wins are counted per bar but
		// trades per signal; clamp into the documented range.
		if rep.WinRate > 1 {
			rep.WinRate = 1
			rep.Clips++
		}
	}

	if benchmark != nil {
		computeRelative(&rep, records, benchmark, ppy)
	}

	return rep, nil
}

// computeRelative fills the benchmark-relative metrics over the non-missing
// observations.
func computeRelative(rep *Report, records []returns.Record, benchmark []float64, ppy float64) {
	rep.HasBenchmark = true

	var strat, bench, excess []float64
	for i, rec := range records {
		if rec.Missing {
			continue
		}
		strat = append(strat, rec.Return)
		bench = append(bench, benchmark[i])
		excess = append(excess, rec.Return-benchmark[i])
	}

	rep.TrackingError = stddev(excess) * math.Sqrt(ppy)
	if rep.TrackingError != 0 {
		rep.InformationRatio = mean(excess) * ppy / rep.TrackingError
	}

	if v := variance(bench); v != 0 {
		rep.Beta = covariance(strat, bench) / v
	} else {
		rep.Beta = math.NaN()
	}
}

// maxDrawdown is the minimum of cumulative over its running maximum, minus
// one. Always <= 0; floored against corrupted series.
func maxDrawdown(records []returns.Record, floor float64, clips *int) float64 {
	var dd float64
	runningMax := math.Inf(-1)
	for _, rec := range records {
		if rec.Cumulative > runningMax {
			runningMax = rec.Cumulative
		}
		if runningMax <= 0 {
			continue
		}
		d := rec.Cumulative/runningMax - 1
		if d < dd {
			dd = d
		}
	}
	if dd < floor {
		*clips++
		return floor
	}
	return dd
}

// IsEmpty reports whether this is the zero report produced for an empty
// input series.
func (r Report) IsEmpty() bool { return r == Report{} }

// Map renders the report as metric name to value, the shape consumed by the
// console table and the archive documents. An empty report renders empty.
func (r Report) Map() map[string]float64 {
	if r.IsEmpty() {
		return map[string]float64{}
	}
	m := map[string]float64{
		"total_return":          r.TotalReturn,
		"annual_return":         r.AnnualReturn,
		"annualized_volatility": r.AnnualVolatility,
		"sharpe_ratio":          r.SharpeRatio,
		"max_drawdown":          r.MaxDrawdown,
		"trade_count":           float64(r.TradeCount),
		"win_rate":              r.WinRate,
	}
	if r.HasBenchmark {
		m["tracking_error"] = r.TrackingError
		m["information_ratio"] = r.InformationRatio
		if !math.IsNaN(r.Beta) {
			m["beta"] = r.Beta
		}
	}
	return m
}

func clampAbs(v, bound float64) (float64, bool) {
	if v > bound {
		return bound, true
	}
	if v < -bound {
		return -bound, true
	}
	if math.IsNaN(v) {
		return 0, true
	}
	return v, false
}

func mean(xs []float64) float64 {
	if len(xs) == 0 {
		return 0
	}
	var sum float64
	for _, x := range xs {
		sum += x
	}
	return sum / float64(len(xs))
}

// stddev is the sample standard deviation; fewer than two points is 0.
func stddev(xs []float64) float64 {
	if len(xs) < 2 {
		return 0
	}
	m := mean(xs)
	var sq float64
	for _, x := range xs {
		sq += (x - m) * (x - m)
	}
	return math.Sqrt(sq / float64(len(xs)-1))
}

// variance is the population variance, matching the beta denominator.
func variance(xs []float64) float64 {
	if len(xs) == 0 {
		return 0
	}
	m := mean(xs)
	var sq float64
	for _, x := range xs {
		sq += (x - m) * (x - m)
	}
	return sq / float64(len(xs))
}

// covariance is the population covariance of equal-length samples.
func covariance(xs, ys []float64) float64 {
	if len(xs) == 0 || len(xs) != len(ys) {
		return 0
	}
	mx, my := mean(xs), mean(ys)
	var sum float64
	for i := range xs {
		sum += (xs[i] - mx) * (ys[i] - my)
	}
	return sum / float64(len(xs))
}
