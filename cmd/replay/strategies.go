package main

import (
	"fmt"
	"time"

	"github.com/replaykit/replay/internal/backtest"
	"github.com/replaykit/replay/internal/config"
	"github.com/replaykit/replay/internal/core"
	"github.com/replaykit/replay/internal/indicator"
	"github.com/replaykit/replay/internal/perf"
	"github.com/replaykit/replay/internal/returns"
	"github.com/replaykit/replay/internal/simulate"
	"github.com/replaykit/replay/internal/strategy"
	"github.com/replaykit/replay/internal/strategy/crossover"
	"github.com/replaykit/replay/internal/strategy/rotation"
)

// buildStrategy instantiates one of the built-in variants by name.
func buildStrategy(name string, cfg *config.Config) (strategy.Strategy, error) {
	switch name {
	case "crossover":
		cc := cfg.Strategies.Crossover
		return crossover.New(cc.RSIOverbought, cc.RSIOversold, cc.FastPeriod, cc.SlowPeriod), nil
	case "rotation":
		return rotation.New(cfg.Strategies.Rotation.Periods), nil
	default:
		return nil, core.WrapError(core.ErrUnknownStrategy, fmt.Errorf("%q (have: crossover, rotation)", name))
	}
}

// indicatorConfig selects the enrichment the named variant needs.
func indicatorConfig(name string, cfg *config.Config) indicator.Config {
	switch name {
	case "rotation":
		return indicator.Config{SMAPeriods: cfg.Strategies.Rotation.Periods}
	default:
		cc := cfg.Strategies.Crossover
		return indicator.Config{
			SMAPeriods: []int{cc.FastPeriod, cc.SlowPeriod},
			RSIPeriod:  indicator.DefaultRSIPeriod,
			MACD:       true,
		}
	}
}

// runConfig assembles the engine configuration for one run.
func runConfig(cfg *config.Config, stratName, symbol, benchmark string, from, to time.Time) backtest.RunConfig {
	bt := cfg.Backtest
	return backtest.RunConfig{
		Symbol:     symbol,
		Benchmark:  benchmark,
		Start:      from,
		End:        to,
		Interval:   "1d",
		Indicators: indicatorConfig(stratName, cfg),
		Simulate: simulate.Config{
			InitialCapital: bt.InitialCapital,
			CostRate:       bt.TransactionCostRate,
			SlippageRate:   bt.SlippageRate,
		},
		Returns: returns.Config{
			RiskFreeRate:   bt.RiskFreeRate,
			PeriodsPerYear: bt.PeriodsPerYear,
			Leverage:       bt.Leverage,
			LeverageClip:   bt.LeverageClip,
		},
		Perf: perf.Config{
			RiskFreeRate:   bt.RiskFreeRate,
			PeriodsPerYear: bt.PeriodsPerYear,
			MetricBound:    bt.MetricBound,
			DrawdownFloor:  bt.DrawdownFloor,
		},
	}
}

// loadConfig reads the config file or falls back to defaults.
func loadConfig() (*config.Config, error) {
	if cfgFile == "" {
		return config.Defaults(), nil
	}
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return nil, err
	}
	return cfg, cfg.Validate()
}
