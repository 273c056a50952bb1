// Package crossover implements the oscillator/crossover strategy variant:
// RSI thresholds plus MACD and moving-average crossovers.
package crossover

import (
	"fmt"

	"github.com/replaykit/replay/internal/core"
	"github.com/replaykit/replay/internal/indicator"
	"github.com/replaykit/replay/internal/strategy"
)

// Crossover generates signals from RSI levels, MACD/signal-line crosses and
// fast/slow moving-average crosses.
//
// Rule precedence is fixed and last-writer-wins: the RSI rule is evaluated
// first, then the MACD cross, then the MA cross. A later rule firing on the
// same bar overwrites the earlier decision.
type Crossover struct {
	overbought float64
	oversold   float64
	fastField  string
	slowField  string
}

// New creates the variant with the given RSI thresholds and SMA pair.
func New(overbought, oversold float64, fastPeriod, slowPeriod int) *Crossover {
	return &Crossover{
		overbought: overbought,
		oversold:   oversold,
		fastField:  indicator.SMAField(fastPeriod),
		slowField:  indicator.SMAField(slowPeriod),
	}
}

func (c *Crossover) Name() string { return "crossover" }

func (c *Crossover) Description() string {
	return fmt.Sprintf("RSI(%g/%g) + MACD cross + %s/%s cross",
		c.oversold, c.overbought, c.fastField, c.slowField)
}

func (c *Crossover) RequiredFields() []string {
	return []string{
		indicator.FieldRSI,
		indicator.FieldMACD,
		indicator.FieldSignalLine,
		c.fastField,
		c.slowField,
	}
}

// Mapping: Buy invests fully in the symbol, Sell flattens to cash, and a
// Hold while invested stays invested.
func (c *Crossover) Mapping() strategy.AssetMapping {
	return strategy.AssetMapping{
		Buy:    core.AssetEquity,
		Sell:   core.AssetCash,
		OnHold: strategy.HoldStay,
	}
}

// Generate emits one signal per bar. Bar 0 is always Hold: the lagged
// comparisons behind the crossover rules are undefined there.
func (c *Crossover) Generate(series, _ *core.Series) ([]core.Signal, error) {
	for _, name := range c.RequiredFields() {
		if !series.HasField(name) {
			return nil, core.WrapError(core.ErrMissingField,
				&core.FieldMissing{Symbol: series.Symbol, Field: name})
		}
	}

	signals := make([]core.Signal, series.Len())
	for i, bar := range series.Bars {
		sig := core.Signal{Index: i, Time: bar.Time, Action: core.ActionHold}
		if i == 0 {
			signals[i] = sig
			continue
		}
		prev := series.Bars[i-1]

		if rsi, ok := bar.Field(indicator.FieldRSI); ok {
			if rsi < c.oversold {
				sig.Action = core.ActionBuy
				sig.Reason = fmt.Sprintf("RSI %.1f below %g", rsi, c.oversold)
			} else if rsi > c.overbought {
				sig.Action = core.ActionSell
				sig.Reason = fmt.Sprintf("RSI %.1f above %g", rsi, c.overbought)
			}
		}

		if act, reason, ok := cross(prev, bar, indicator.FieldMACD, indicator.FieldSignalLine); ok {
			sig.Action = act
			sig.Reason = "MACD " + reason
		}

		if act, reason, ok := cross(prev, bar, c.fastField, c.slowField); ok {
			sig.Action = act
			sig.Reason = fmt.Sprintf("%s/%s %s", c.fastField, c.slowField, reason)
		}

		signals[i] = sig
	}

	return signals, nil
}

// cross detects a strict crossing of the fast field over the slow field
// between the previous and current bar. Bars missing either field (warm-up)
// never produce a cross.
func cross(prev, curr core.Bar, fastName, slowName string) (core.Action, string, bool) {
	prevFast, ok1 := prev.Field(fastName)
	prevSlow, ok2 := prev.Field(slowName)
	currFast, ok3 := curr.Field(fastName)
	currSlow, ok4 := curr.Field(slowName)
	if !ok1 || !ok2 || !ok3 || !ok4 {
		return core.ActionHold, "", false
	}

	if prevFast <= prevSlow && currFast > currSlow {
		return core.ActionBuy, "crossed above", true
	}
	if prevFast >= prevSlow && currFast < currSlow {
		return core.ActionSell, "crossed below", true
	}
	return core.ActionHold, "", false
}
