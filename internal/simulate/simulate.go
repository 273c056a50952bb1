// Package simulate converts a signal sequence into a held-asset and capital
// state sequence, charging transaction costs on asset switches.
//
// The simulation is a strict left fold: state i is a function of state i-1,
// signal i and bar i's close only. Transition is exported so the
// no-lookahead invariant can be exercised bar by bar in tests.
package simulate

import (
	"github.com/replaykit/replay/internal/core"
	"github.com/replaykit/replay/internal/strategy"
)

// Config holds the cost model.
type Config struct {
	InitialCapital float64
	CostRate       float64 // fraction of capital per switch
	SlippageRate   float64 // additional fraction per switch
}

// State is one bar's simulation record.
type State struct {
	Index        int
	Asset        core.Asset
	PositionSize float64 // quantity of the held asset, 0 for cash
	Capital      float64 // cost basis in currency units, never negative
	Cost         float64 // transaction cost charged on this bar
	Degraded     bool    // an arithmetic guard fired while producing this state
}

// Result is the full state sequence plus guard counters.
type Result struct {
	States       []State
	Switches     int // cost-charged asset changes; a first-bar entry is not one
	DegradedBars int
}

// Simulate folds the signals over the series. An empty series passes
// through as an empty result. The signal sequence must align with the
// series bar-for-bar.
func Simulate(series *core.Series, signals []core.Signal, mapping strategy.AssetMapping, cfg Config) (Result, error) {
	if series.Len() == 0 {
		return Result{}, nil
	}
	if len(signals) != series.Len() {
		return Result{}, core.WrapError(core.ErrAlignment, &core.Misalignment{
			What: "signal sequence", Got: len(signals), Want: series.Len(),
		})
	}

	res := Result{States: make([]State, series.Len())}

	st := initialState(series.Bars[0], signals[0], mapping, cfg)
	res.States[0] = st
	if st.Degraded {
		res.DegradedBars++
	}

	for i := 1; i < series.Len(); i++ {
		next := Transition(st, series.Bars[i], signals[i], mapping, cfg)
		next.Index = i
		res.States[i] = next
		if next.Asset != st.Asset {
			res.Switches++
		}
		if next.Degraded {
			res.DegradedBars++
		}
		st = next
	}

	return res, nil
}

// initialState builds bar 0's state. No transaction cost is ever charged on
// the first bar: variants that are "already positioned" (EnterOnFirstBar)
// size the position against bar 0's close for free, everything else starts
// flat in cash.
func initialState(bar core.Bar, sig core.Signal, mapping strategy.AssetMapping, cfg Config) State {
	st := State{Asset: core.AssetCash, Capital: cfg.InitialCapital}
	if !mapping.EnterOnFirstBar {
		return st
	}

	desired := desiredAsset(st.Asset, sig, mapping)
	if desired == core.AssetCash {
		return st
	}
	st.Asset = desired
	if bar.Close > 0 {
		st.PositionSize = st.Capital / bar.Close
	} else {
		st.Degraded = true
	}
	return st
}

// Transition computes the next state from the previous state, the current
// bar and the current signal. It never reads anything else.
func Transition(prev State, bar core.Bar, sig core.Signal, mapping strategy.AssetMapping, cfg Config) State {
	next := State{
		Asset:        prev.Asset,
		PositionSize: prev.PositionSize,
		Capital:      prev.Capital,
	}

	desired := desiredAsset(prev.Asset, sig, mapping)
	if desired == prev.Asset {
		return next
	}

	cost := prev.Capital * (cfg.CostRate + cfg.SlippageRate)
	if cost > prev.Capital {
		// Clamp rather than let capital go negative; the run is flagged
		// degraded instead of failing.
		cost = prev.Capital
		next.Degraded = true
	}

	next.Asset = desired
	next.Cost = cost
	next.Capital = prev.Capital - cost

	switch {
	case desired == core.AssetCash:
		next.PositionSize = 0
	case bar.Close > 0:
		next.PositionSize = next.Capital / bar.Close
	default:
		next.PositionSize = 0
		next.Degraded = true
	}

	return next
}

// desiredAsset maps a signal to the asset the account should hold. A Hold
// with no open position is a no-op; with an open position the variant's
// hold policy decides.
func desiredAsset(held core.Asset, sig core.Signal, mapping strategy.AssetMapping) core.Asset {
	switch sig.Action {
	case core.ActionBuy:
		return mapping.Buy
	case core.ActionSell:
		return mapping.Sell
	default:
		if held == core.AssetCash || mapping.OnHold == strategy.HoldStay {
			return held
		}
		return mapping.Sell
	}
}
