// Package rotation implements the trend-following asset-rotation variant:
// hold a leveraged growth asset while the signal series trades above all of
// a fixed set of moving averages, otherwise park in a defensive asset.
package rotation

import (
	"fmt"
	"strings"

	"github.com/replaykit/replay/internal/core"
	"github.com/replaykit/replay/internal/indicator"
	"github.com/replaykit/replay/internal/strategy"
)

// DefaultPeriods is the classic 30/60/120/200 trend filter.
var DefaultPeriods = []int{30, 60, 120, 200}

// Rotation resolves every bar to one of two regimes; there is no Hold
// state. Buy means "hold the leveraged asset", Sell means "hold the
// defensive asset". When a benchmark series is supplied the regime is read
// from the benchmark's closes and moving averages instead of the traded
// symbol's.
type Rotation struct {
	periods []int
	fields  []string
}

// New creates the variant for the given moving-average periods. Nil or
// empty periods fall back to DefaultPeriods.
func New(periods []int) *Rotation {
	if len(periods) == 0 {
		periods = DefaultPeriods
	}
	fields := make([]string, len(periods))
	for i, p := range periods {
		fields[i] = indicator.SMAField(p)
	}
	return &Rotation{periods: periods, fields: fields}
}

func (r *Rotation) Name() string { return "rotation" }

func (r *Rotation) Description() string {
	parts := make([]string, len(r.periods))
	for i, p := range r.periods {
		parts[i] = fmt.Sprintf("%d", p)
	}
	return fmt.Sprintf("trend rotation above SMA %s", strings.Join(parts, "/"))
}

func (r *Rotation) RequiredFields() []string { return r.fields }

// Mapping: the regime asset is entered on bar 0 without a transaction cost,
// since every bar including the first resolves to a regime.
func (r *Rotation) Mapping() strategy.AssetMapping {
	return strategy.AssetMapping{
		Buy:             core.AssetLeveraged,
		Sell:            core.AssetDefensive,
		OnHold:          strategy.HoldStay,
		EnterOnFirstBar: true,
	}
}

// Generate reads the regime from the benchmark series when one is supplied,
// otherwise from the primary series. The signal source must align with the
// primary series bar-for-bar. Bars inside the moving-average warm-up are
// the caller's responsibility to trim; Generate rejects them rather than
// defaulting silently.
func (r *Rotation) Generate(series, benchmark *core.Series) ([]core.Signal, error) {
	source := series
	if benchmark != nil {
		if benchmark.Len() != series.Len() {
			return nil, core.WrapError(core.ErrAlignment, &core.Misalignment{
				What: "benchmark series", Got: benchmark.Len(), Want: series.Len(),
			})
		}
		source = benchmark
	}

	for _, name := range r.fields {
		if !source.HasField(name) {
			return nil, core.WrapError(core.ErrMissingField,
				&core.FieldMissing{Symbol: source.Symbol, Field: name})
		}
	}

	signals := make([]core.Signal, source.Len())
	for i, bar := range source.Bars {
		above, err := r.aboveAll(bar)
		if err != nil {
			return nil, err
		}

		sig := core.Signal{Index: i, Time: bar.Time}
		if above {
			sig.Action = core.ActionBuy
			sig.Reason = "close above all moving averages"
		} else {
			sig.Action = core.ActionSell
			sig.Reason = "close at or below a moving average"
		}
		signals[i] = sig
	}

	return signals, nil
}

// aboveAll reports whether the close is strictly above every configured
// moving average. A bar missing any average is undefined, not a regime.
func (r *Rotation) aboveAll(bar core.Bar) (bool, error) {
	for _, name := range r.fields {
		ma, ok := bar.Field(name)
		if !ok {
			return false, core.WrapError(core.ErrMissingField,
				&core.FieldMissing{Symbol: bar.Symbol, Field: name})
		}
		if bar.Close <= ma {
			return false, nil
		}
	}
	return true, nil
}
