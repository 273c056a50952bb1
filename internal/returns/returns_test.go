package returns

import (
	"errors"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/replaykit/replay/internal/core"
	"github.com/replaykit/replay/internal/simulate"
)

func makeSeries(t *testing.T, closes []float64) *core.Series {
	t.Helper()
	base := time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC)
	bars := make([]core.Bar, len(closes))
	for i, c := range closes {
		bars[i] = core.Bar{Symbol: "TEST", Time: base.AddDate(0, 0, i), Close: c}
	}
	s, err := core.NewSeries("TEST", "1d", bars)
	require.NoError(t, err)
	return s
}

func heldStates(asset core.Asset, n int) []simulate.State {
	states := make([]simulate.State, n)
	for i := range states {
		states[i] = simulate.State{Index: i, Asset: asset, PositionSize: 1, Capital: 100_000}
	}
	return states
}

func TestAggregateEmpty(t *testing.T) {
	res, err := Aggregate(nil, makeSeries(t, nil), Config{})
	require.NoError(t, err)
	assert.Empty(t, res.Records)
	assert.Zero(t, res.Clips)
}

func TestAggregateMisaligned(t *testing.T) {
	_, err := Aggregate(heldStates(core.AssetCash, 2), makeSeries(t, []float64{1, 2, 3}), Config{})
	require.Error(t, err)
	assert.True(t, errors.Is(err, core.ErrAlignment))
}

func TestAggregateFirstBarMissing(t *testing.T) {
	res, err := Aggregate(heldStates(core.AssetEquity, 2), makeSeries(t, []float64{100, 110}), Config{})
	require.NoError(t, err)

	first := res.Records[0]
	assert.True(t, first.Missing)
	assert.Zero(t, first.Return)
	assert.InDelta(t, 1.0, first.Cumulative, 1e-12)
}

func TestAggregateEquityTracksPrice(t *testing.T) {
	series := makeSeries(t, []float64{100, 110, 99})
	res, err := Aggregate(heldStates(core.AssetEquity, 3), series, Config{})
	require.NoError(t, err)

	assert.InDelta(t, 0.10, res.Records[1].Return, 1e-12)
	assert.InDelta(t, -0.10, res.Records[2].Return, 1e-12)
	assert.InDelta(t, 0.99, res.Records[2].Cumulative, 1e-12)
}

func TestAggregateFlatEquityEarnsNothing(t *testing.T) {
	states := heldStates(core.AssetEquity, 2)
	states[0].PositionSize = 0
	res, err := Aggregate(states, makeSeries(t, []float64{100, 200}), Config{})
	require.NoError(t, err)
	assert.Zero(t, res.Records[1].Return)
}

func TestAggregateCashEarnsNothing(t *testing.T) {
	res, err := Aggregate(heldStates(core.AssetCash, 3), makeSeries(t, []float64{100, 150, 75}), Config{})
	require.NoError(t, err)
	for _, rec := range res.Records {
		assert.Zero(t, rec.Return)
	}
	assert.InDelta(t, 1.0, res.Records[2].Cumulative, 1e-12)
}

func TestAggregateDefensiveAccruesYield(t *testing.T) {
	cfg := Config{RiskFreeRate: 0.02, PeriodsPerYear: 252}
	res, err := Aggregate(heldStates(core.AssetDefensive, 3), makeSeries(t, []float64{100, 90, 80}), cfg)
	require.NoError(t, err)

	want := math.Pow(1.02, 1.0/252) - 1
	assert.InDelta(t, want, res.Records[1].Return, 1e-12)
	assert.InDelta(t, want, res.Records[2].Return, 1e-12, "yield is independent of price moves")
}

func TestAggregateLeveragedMultiplies(t *testing.T) {
	cfg := Config{Leverage: 3, LeverageClip: 0.3}
	res, err := Aggregate(heldStates(core.AssetLeveraged, 2), makeSeries(t, []float64{100, 105}), cfg)
	require.NoError(t, err)
	assert.InDelta(t, 0.15, res.Records[1].Return, 1e-12)
	assert.Zero(t, res.Clips)
}

func TestAggregateLeverageClip(t *testing.T) {
	cfg := Config{Leverage: 3, LeverageClip: 0.3}
	series := makeSeries(t, []float64{100, 120, 90})
	res, err := Aggregate(heldStates(core.AssetLeveraged, 3), series, cfg)
	require.NoError(t, err)

	assert.InDelta(t, 0.3, res.Records[1].Return, 1e-12, "3x of +20%% clips at +30%%")
	assert.InDelta(t, -0.3, res.Records[2].Return, 1e-12, "3x of -25%% clips at -30%%")
	assert.Equal(t, 2, res.Clips)
}

func TestAggregateCostDrag(t *testing.T) {
	series := makeSeries(t, []float64{100, 100})
	states := heldStates(core.AssetEquity, 2)
	states[1].Cost = 150

	res, err := Aggregate(states, series, Config{})
	require.NoError(t, err)
	assert.InDelta(t, -150.0/100_000, res.Records[1].Return, 1e-12)
}

func TestAggregateWipeoutFloorsCompounding(t *testing.T) {
	series := makeSeries(t, []float64{100, 0})
	res, err := Aggregate(heldStates(core.AssetEquity, 2), series, Config{})
	require.NoError(t, err)

	rec := res.Records[1]
	assert.InDelta(t, -0.99, rec.Return, 1e-12)
	assert.Positive(t, rec.Cumulative)
	assert.Equal(t, 1, res.Clips)
}

func TestAggregateCumulativeStaysPositive(t *testing.T) {
	closes := []float64{100, 1, 100, 1, 100}
	cfg := Config{Leverage: 3, LeverageClip: 0.3}
	res, err := Aggregate(heldStates(core.AssetLeveraged, len(closes)), makeSeries(t, closes), cfg)
	require.NoError(t, err)
	for _, rec := range res.Records {
		assert.Positive(t, rec.Cumulative, "bar %d", rec.Index)
	}
}

func TestPeriodYield(t *testing.T) {
	assert.Zero(t, periodYield(0.02, 0))
	daily := periodYield(0.02, 252)
	assert.InDelta(t, 0.02, math.Pow(1+daily, 252)-1, 1e-12)
}
