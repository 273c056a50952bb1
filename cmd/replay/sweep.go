package main

import (
	"fmt"
	"os"
	"time"

	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/replaykit/replay/internal/backtest"
	"github.com/replaykit/replay/internal/logger"
	"github.com/replaykit/replay/internal/metrics"
	"github.com/replaykit/replay/internal/provider/yahoo"
)

var (
	sweepSymbols    []string
	sweepStrategies []string
	sweepBenchmark  string
	sweepFrom       string
	sweepTo         string
)

var sweepCmd = &cobra.Command{
	Use:   "sweep",
	Short: "Run many symbol/strategy combinations in parallel",
	Long: `Run every symbol x strategy combination on a worker pool. Runs are
independent, so they execute concurrently; one failed run does not stop
the rest.`,
	RunE: runSweep,
}

func init() {
	sweepCmd.Flags().StringSliceVar(&sweepSymbols, "symbols", nil, "symbols to sweep (required)")
	sweepCmd.Flags().StringSliceVar(&sweepStrategies, "strategies", []string{"crossover"}, "strategy variants to sweep")
	sweepCmd.Flags().StringVar(&sweepBenchmark, "benchmark", "", "benchmark symbol for relative metrics")
	sweepCmd.Flags().StringVar(&sweepFrom, "from", "", "start date YYYY-MM-DD (required)")
	sweepCmd.Flags().StringVar(&sweepTo, "to", "", "end date YYYY-MM-DD (default today)")

	sweepCmd.MarkFlagRequired("symbols")
	sweepCmd.MarkFlagRequired("from")

	rootCmd.AddCommand(sweepCmd)
}

func runSweep(cmd *cobra.Command, args []string) error {
	from, to, err := parseRange(sweepFrom, sweepTo)
	if err != nil {
		return err
	}

	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	log := logger.Must(debug)
	defer log.Sync()

	var specs []backtest.RunSpec
	for _, stratName := range sweepStrategies {
		strat, err := buildStrategy(stratName, cfg)
		if err != nil {
			return err
		}
		for _, symbol := range sweepSymbols {
			specs = append(specs, backtest.RunSpec{
				Strategy: strat,
				Config:   runConfig(cfg, stratName, symbol, sweepBenchmark, from, to),
			})
		}
	}

	var reg *metrics.Registry
	if cfg.Metrics.Enabled {
		reg = metrics.NewRegistry()
		go func() {
			if err := reg.Serve(cmd.Context(), cfg.Metrics.Addr); err != nil {
				log.Warn("metrics listener failed", zap.Error(err))
			}
		}()
	}

	provider := yahoo.New(
		yahoo.WithRateLimit(cfg.Provider.RequestsPerMinute),
		yahoo.WithRetry(cfg.Provider.MaxAttempts, time.Duration(cfg.Provider.BackoffSeconds)*time.Second),
		yahoo.WithLogger(log),
	)
	runner := backtest.NewRunner(backtest.New(provider, log), cfg.Backtest.Workers, log, reg)

	outcomes := runner.RunAll(cmd.Context(), specs)

	table := tablewriter.NewWriter(os.Stdout)
	table.Header("Strategy", "Symbol", "Bars", "Total Ret", "Sharpe", "Max DD", "Trades", "Status")
	failed := 0
	for _, out := range outcomes {
		if out.Err != nil {
			failed++
			table.Append(out.Spec.Strategy.Name(), out.Spec.Config.Symbol,
				"-", "-", "-", "-", "-", out.Err.Error())
			continue
		}
		rep := out.Result.Report
		table.Append(
			out.Spec.Strategy.Name(),
			out.Spec.Config.Symbol,
			fmt.Sprintf("%d", out.Result.Bars),
			fmt.Sprintf("%.2f%%", rep.TotalReturn*100),
			fmt.Sprintf("%.2f", rep.SharpeRatio),
			fmt.Sprintf("%.2f%%", rep.MaxDrawdown*100),
			fmt.Sprintf("%d", rep.TradeCount),
			"ok",
		)
	}
	table.Render()

	for _, out := range outcomes {
		if out.Err == nil {
			if err := persistResult(cmd.Context(), cfg, out.Result); err != nil {
				return err
			}
		}
	}

	if failed > 0 {
		fmt.Printf("%d of %d runs failed\n", failed, len(outcomes))
	}
	return nil
}
