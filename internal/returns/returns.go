// Package returns converts a simulation state sequence into per-bar and
// compounding cumulative returns.
package returns

import (
	"math"

	"github.com/replaykit/replay/internal/core"
	"github.com/replaykit/replay/internal/simulate"
)

// DefaultLeverageClip bounds a single leveraged bar return. It is a
// stability guard for the compounding product, not a modeling claim.
const DefaultLeverageClip = 0.3

// compoundingFloor keeps 1+r strictly positive so the cumulative product
// can represent a wipeout without flipping sign.
const compoundingFloor = -0.99

// Config holds the per-asset return models.
type Config struct {
	RiskFreeRate   float64 // annualized yield of the defensive asset
	PeriodsPerYear int     // 252 for daily bars
	Leverage       float64 // return multiple of the leveraged asset
	LeverageClip   float64 // symmetric per-bar bound on leveraged returns
}

// Record is one bar's return. Cumulative is the product of (1+Return) since
// the start and is strictly positive. Missing marks bars whose return is
// undefined (bar 0, or a guarded NaN) and recorded as 0.
type Record struct {
	Index      int
	Return     float64
	Cumulative float64
	Missing    bool
}

// Result is the return series plus a count of triggered stability clips.
// A non-zero clip count means the input was degenerate enough to hit a
// guard; callers should surface it rather than absorb it.
type Result struct {
	Records []Record
	Clips   int
}

// Aggregate computes per-bar returns from the asset held over each interval
// (i-1, i]. Transaction costs charged at bar i drag that bar's return down
// by cost over the prior bar's capital.
func Aggregate(states []simulate.State, series *core.Series, cfg Config) (Result, error) {
	if len(states) == 0 && series.Len() == 0 {
		return Result{}, nil
	}
	if len(states) != series.Len() {
		return Result{}, core.WrapError(core.ErrAlignment, &core.Misalignment{
			What: "state sequence", Got: len(states), Want: series.Len(),
		})
	}

	clip := cfg.LeverageClip
	if clip <= 0 {
		clip = DefaultLeverageClip
	}

	res := Result{Records: make([]Record, len(states))}
	cumulative := 1.0

	for i := range states {
		rec := Record{Index: i}

		if i == 0 {
			rec.Missing = true
		} else {
			r, clipped := barReturn(states[i-1], series.Bars[i-1].Close, series.Bars[i].Close, cfg, clip)
			if clipped {
				res.Clips++
			}

			// Cost drag: zero or undefined prior capital means no drag.
			if prev := states[i-1].Capital; prev > 0 && states[i].Cost > 0 {
				r -= states[i].Cost / prev
			}

			if math.IsNaN(r) || math.IsInf(r, 0) {
				r = 0
				rec.Missing = true
			}
			if 1+r <= 0 {
				r = compoundingFloor
				res.Clips++
			}
			rec.Return = r
		}

		cumulative *= 1 + rec.Return
		rec.Cumulative = cumulative
		res.Records[i] = rec
	}

	return res, nil
}

// barReturn models the return of the asset held over (i-1, i].
func barReturn(held simulate.State, prevClose, close float64, cfg Config, clip float64) (r float64, clipped bool) {
	var pct float64
	if prevClose > 0 {
		pct = close/prevClose - 1
	}

	switch held.Asset {
	case core.AssetDefensive:
		return periodYield(cfg.RiskFreeRate, cfg.PeriodsPerYear), false
	case core.AssetLeveraged:
		r = cfg.Leverage * pct
		if r > clip {
			return clip, true
		}
		if r < -clip {
			return -clip, true
		}
		return r, false
	case core.AssetEquity:
		// Binary invested-or-flat: the position indicator, not the share
		// count, scales the price change.
		if held.PositionSize > 0 {
			return pct, false
		}
		return 0, false
	default: // cash
		return 0, false
	}
}

// periodYield converts an annualized rate to a per-period compounding yield.
func periodYield(annual float64, periodsPerYear int) float64 {
	if periodsPerYear <= 0 {
		return 0
	}
	return math.Pow(1+annual, 1/float64(periodsPerYear)) - 1
}
