package perf

import (
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/replaykit/replay/internal/core"
	"github.com/replaykit/replay/internal/returns"
)

// recordsFrom builds a return series in the shape Aggregate produces: a
// missing bar 0 followed by one record per return.
func recordsFrom(rets []float64) []returns.Record {
	recs := make([]returns.Record, len(rets)+1)
	recs[0] = returns.Record{Index: 0, Missing: true, Cumulative: 1}
	cum := 1.0
	for i, r := range rets {
		cum *= 1 + r
		recs[i+1] = returns.Record{Index: i + 1, Return: r, Cumulative: cum}
	}
	return recs
}

func holdSignals(n int) []core.Signal {
	sigs := make([]core.Signal, n)
	for i := range sigs {
		sigs[i] = core.Signal{Index: i, Action: core.ActionHold}
	}
	return sigs
}

func TestComputeEmpty(t *testing.T) {
	rep, err := Compute(nil, nil, nil, Config{})
	require.NoError(t, err)
	assert.True(t, rep.IsEmpty())
	assert.Empty(t, rep.Map())
}

func TestComputeAlignment(t *testing.T) {
	recs := recordsFrom([]float64{0.01, 0.02})

	_, err := Compute(recs, holdSignals(2), nil, Config{})
	require.Error(t, err)
	assert.True(t, errors.Is(err, core.ErrAlignment))

	_, err = Compute(recs, nil, []float64{0.01}, Config{})
	require.Error(t, err)
	assert.True(t, errors.Is(err, core.ErrAlignment))
}

func TestComputeConstantPrice(t *testing.T) {
	recs := recordsFrom(make([]float64, 20))
	rep, err := Compute(recs, holdSignals(len(recs)), nil, Config{RiskFreeRate: 0.02, PeriodsPerYear: 252})
	require.NoError(t, err)

	assert.Zero(t, rep.TotalReturn)
	assert.Zero(t, rep.AnnualReturn)
	assert.Zero(t, rep.AnnualVolatility)
	assert.Zero(t, rep.SharpeRatio, "zero volatility pins Sharpe at 0")
	assert.Zero(t, rep.MaxDrawdown)
	assert.Zero(t, rep.TradeCount)
	assert.Zero(t, rep.WinRate)
	assert.Equal(t, 20, rep.Observations)
}

func TestComputeTotalAndAnnual(t *testing.T) {
	recs := recordsFrom([]float64{0.10, -0.05})
	rep, err := Compute(recs, nil, nil, Config{PeriodsPerYear: 252})
	require.NoError(t, err)

	wantTotal := 1.10*0.95 - 1
	assert.InDelta(t, wantTotal, rep.TotalReturn, 1e-12)
	wantAnnual := math.Pow(1+wantTotal, 252.0/2) - 1
	assert.InDelta(t, wantAnnual, rep.AnnualReturn, 1e-9)
}

func TestComputeMaxDrawdown(t *testing.T) {
	recs := recordsFrom([]float64{0.10, -0.20, 0.05})
	rep, err := Compute(recs, nil, nil, Config{PeriodsPerYear: 252})
	require.NoError(t, err)

	assert.InDelta(t, -0.20, rep.MaxDrawdown, 1e-12)
	assert.LessOrEqual(t, rep.MaxDrawdown, 0.0)
}

func TestComputeDrawdownZeroWhenNonDecreasing(t *testing.T) {
	recs := recordsFrom([]float64{0.01, 0, 0.02, 0.005})
	rep, err := Compute(recs, nil, nil, Config{PeriodsPerYear: 252})
	require.NoError(t, err)
	assert.Zero(t, rep.MaxDrawdown)
}

func TestComputeTradeCountAndWinRate(t *testing.T) {
	recs := recordsFrom([]float64{0.01, -0.01, 0.02, 0.01})
	sigs := holdSignals(len(recs))
	sigs[1].Action = core.ActionBuy
	sigs[3].Action = core.ActionSell
	sigs[4].Action = core.ActionBuy

	rep, err := Compute(recs, sigs, nil, Config{PeriodsPerYear: 252})
	require.NoError(t, err)

	assert.Equal(t, 3, rep.TradeCount)
	assert.InDelta(t, 1.0, rep.WinRate, 1e-12) // 3 winning bars over 3 trades
	assert.Zero(t, rep.Clips)
}

func TestComputeWinRateClamped(t *testing.T) {
	recs := recordsFrom([]float64{0.01, 0.02, 0.03})
	sigs := holdSignals(len(recs))
	sigs[1].Action = core.ActionBuy

	rep, err := Compute(recs, sigs, nil, Config{PeriodsPerYear: 252})
	require.NoError(t, err)

	assert.Equal(t, 1, rep.TradeCount)
	assert.Equal(t, 1.0, rep.WinRate, "ratio above 1 clamps")
	assert.Equal(t, 1, rep.Clips)
}

func TestComputeBenchmarkIdentical(t *testing.T) {
	rets := []float64{0.01, -0.02, 0.015, 0.005}
	recs := recordsFrom(rets)
	bench := make([]float64, len(recs))
	for i, rec := range recs {
		bench[i] = rec.Return
	}

	rep, err := Compute(recs, nil, bench, Config{PeriodsPerYear: 252})
	require.NoError(t, err)

	assert.True(t, rep.HasBenchmark)
	assert.Zero(t, rep.TrackingError)
	assert.Zero(t, rep.InformationRatio)
	assert.InDelta(t, 1.0, rep.Beta, 1e-12)
	assert.Contains(t, rep.Map(), "beta")
}

func TestComputeBetaUndefinedOnFlatBenchmark(t *testing.T) {
	recs := recordsFrom([]float64{0.01, -0.02, 0.015})
	bench := make([]float64, len(recs)) // constant zero: no variance

	rep, err := Compute(recs, nil, bench, Config{PeriodsPerYear: 252})
	require.NoError(t, err)

	assert.True(t, math.IsNaN(rep.Beta))
	assert.NotContains(t, rep.Map(), "beta")
	assert.Contains(t, rep.Map(), "tracking_error")
}

func TestComputeMetricBound(t *testing.T) {
	recs := recordsFrom([]float64{0.5, 0.5})
	rep, err := Compute(recs, nil, nil, Config{PeriodsPerYear: 252, MetricBound: 1.0})
	require.NoError(t, err)

	assert.Equal(t, 1.0, rep.TotalReturn, "total of +125%% clamps at the bound")
	assert.Equal(t, 1.0, rep.AnnualReturn)
	assert.Equal(t, 2, rep.Clips)
}

func TestComputeIdempotent(t *testing.T) {
	recs := recordsFrom([]float64{0.01, -0.03, 0.02})
	cfg := Config{RiskFreeRate: 0.02, PeriodsPerYear: 252}

	a, err := Compute(recs, nil, nil, cfg)
	require.NoError(t, err)
	b, err := Compute(recs, nil, nil, cfg)
	require.NoError(t, err)
	assert.Equal(t, a, b)
}

func TestStddevDegenerate(t *testing.T) {
	assert.Zero(t, stddev(nil))
	assert.Zero(t, stddev([]float64{0.5}))
}
