// Package strategy defines the signal-generation contract shared by the
// closed set of built-in strategy variants.
package strategy

import "github.com/replaykit/replay/internal/core"

// HoldPolicy fixes what a Hold signal means while a position is open. With
// no open position a Hold is always a no-op.
type HoldPolicy int

const (
	// HoldStay keeps the current asset on a Hold signal.
	HoldStay HoldPolicy = iota
	// HoldFlatten moves to the variant's sell asset on a Hold signal.
	HoldFlatten
)

// AssetMapping fixes how a variant's signals translate into held assets.
// The two Sell semantics in the built-in variants differ on purpose: the
// crossover variant flattens to cash, the rotation variant parks in an
// interest-bearing defensive asset. They are kept distinct rather than
// unified because conflating them silently changes backtest results.
type AssetMapping struct {
	Buy    core.Asset
	Sell   core.Asset
	OnHold HoldPolicy

	// EnterOnFirstBar treats bar 0 as already positioned in the asset the
	// first signal resolves to, sized against bar 0's close with no
	// transaction cost.
	EnterOnFirstBar bool
}

// Strategy generates one signal per bar of a series. Implementations are
// pure and deterministic: the same series always yields the same signals.
type Strategy interface {
	Name() string
	Description() string

	// RequiredFields lists the indicator fields the series schema must
	// provide. Generate fails with a data error if any is absent.
	RequiredFields() []string

	// Mapping returns the variant's signal-to-asset policy.
	Mapping() AssetMapping

	// Generate maps each bar to a signal. The benchmark series is optional;
	// variants that do not use one ignore it. The returned slice has
	// exactly one signal per bar of the primary series.
	Generate(series, benchmark *core.Series) ([]core.Signal, error)
}
