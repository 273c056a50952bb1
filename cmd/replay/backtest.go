package main

import (
	"context"
	"fmt"
	"os"
	"sort"
	"time"

	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"

	"github.com/replaykit/replay/internal/archive"
	"github.com/replaykit/replay/internal/backtest"
	"github.com/replaykit/replay/internal/config"
	"github.com/replaykit/replay/internal/logger"
	"github.com/replaykit/replay/internal/provider/yahoo"
	"github.com/replaykit/replay/internal/store"
)

var (
	backtestSymbol    string
	backtestBenchmark string
	backtestFrom      string
	backtestTo        string
	backtestOutput    string
	backtestFormat    string
)

var backtestCmd = &cobra.Command{
	Use:   "backtest [strategy]",
	Short: "Run one strategy against historical data",
	Long:  "Run a strategy against historical data and print the performance report",
	Args:  cobra.ExactArgs(1),
	RunE:  runBacktest,
}

func init() {
	backtestCmd.Flags().StringVar(&backtestSymbol, "symbol", "", "symbol to backtest (required)")
	backtestCmd.Flags().StringVar(&backtestBenchmark, "benchmark", "", "benchmark symbol for relative metrics")
	backtestCmd.Flags().StringVar(&backtestFrom, "from", "", "start date YYYY-MM-DD (required)")
	backtestCmd.Flags().StringVar(&backtestTo, "to", "", "end date YYYY-MM-DD (default today)")
	backtestCmd.Flags().StringVar(&backtestOutput, "output", "", "write the report document to this file")
	backtestCmd.Flags().StringVar(&backtestFormat, "format", "json", "report document format: json or yaml")

	backtestCmd.MarkFlagRequired("symbol")
	backtestCmd.MarkFlagRequired("from")

	rootCmd.AddCommand(backtestCmd)
}

func runBacktest(cmd *cobra.Command, args []string) error {
	stratName := args[0]

	from, to, err := parseRange(backtestFrom, backtestTo)
	if err != nil {
		return err
	}

	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	strat, err := buildStrategy(stratName, cfg)
	if err != nil {
		return err
	}

	log := logger.Must(debug)
	defer log.Sync()

	provider := yahoo.New(
		yahoo.WithRateLimit(cfg.Provider.RequestsPerMinute),
		yahoo.WithRetry(cfg.Provider.MaxAttempts, time.Duration(cfg.Provider.BackoffSeconds)*time.Second),
		yahoo.WithLogger(log),
	)
	bt := backtest.New(provider, log)

	fmt.Println("=== REPLAY Backtest ===")
	fmt.Printf("Strategy:  %s (%s)\n", strat.Name(), strat.Description())
	fmt.Printf("Symbol:    %s\n", backtestSymbol)
	if backtestBenchmark != "" {
		fmt.Printf("Benchmark: %s\n", backtestBenchmark)
	}
	fmt.Printf("Period:    %s to %s\n", from.Format("2006-01-02"), to.Format("2006-01-02"))
	fmt.Printf("Capital:   %.2f\n", cfg.Backtest.InitialCapital)
	fmt.Println()

	res, err := bt.Run(cmd.Context(),
		strat, runConfig(cfg, stratName, backtestSymbol, backtestBenchmark, from, to))
	if err != nil {
		return err
	}

	fmt.Printf("Simulated %d bars, %d asset switches", res.Bars, res.Switches)
	if res.Clips > 0 || res.DegradedBars > 0 {
		fmt.Printf(" (guards: %d clips, %d degraded bars)", res.Clips, res.DegradedBars)
	}
	fmt.Println()
	printReport(res)

	if backtestOutput != "" {
		doc, err := archive.NewDocument(res).Encode(backtestFormat)
		if err != nil {
			return err
		}
		if err := os.WriteFile(backtestOutput, doc, 0o644); err != nil {
			return fmt.Errorf("writing report: %w", err)
		}
		fmt.Printf("Report written to %s\n", backtestOutput)
	}

	return persistResult(cmd.Context(), cfg, res)
}

// printReport renders the metric table.
func printReport(res *backtest.Result) {
	metrics := res.Report.Map()
	if len(metrics) == 0 {
		fmt.Println("No metrics: empty result series")
		return
	}

	names := make([]string, 0, len(metrics))
	for name := range metrics {
		names = append(names, name)
	}
	sort.Strings(names)

	table := tablewriter.NewWriter(os.Stdout)
	table.Header("Metric", "Value")
	for _, name := range names {
		table.Append(name, formatMetric(name, metrics[name]))
	}
	table.Render()
}

func formatMetric(name string, v float64) string {
	switch name {
	case "trade_count":
		return fmt.Sprintf("%d", int(v))
	case "total_return", "annual_return", "max_drawdown", "win_rate", "annualized_volatility", "tracking_error":
		return fmt.Sprintf("%.2f%%", v*100)
	default:
		return fmt.Sprintf("%.4f", v)
	}
}

// persistResult saves the run to the configured store and archive.
func persistResult(ctx context.Context, cfg *config.Config, res *backtest.Result) error {
	if cfg.Store.Enabled {
		st, err := store.Open(cfg.Store.Path)
		if err != nil {
			return err
		}
		defer st.Close()
		if err := st.SaveRun(ctx, res); err != nil {
			return err
		}
	}

	if cfg.Archive.Enabled {
		backend, err := archiveBackend(cfg.Archive)
		if err != nil {
			return err
		}
		key, err := archive.SaveReport(ctx, backend, res, cfg.Archive.Format)
		if err != nil {
			return err
		}
		fmt.Printf("Report archived as %s\n", key)
	}

	return nil
}

func archiveBackend(cfg config.ArchiveConfig) (archive.Storage, error) {
	switch cfg.Type {
	case "s3":
		return archive.NewS3(archive.S3Config{
			Bucket:    cfg.S3.Bucket,
			Endpoint:  cfg.S3.Endpoint,
			Region:    cfg.S3.Region,
			AccessKey: cfg.S3.AccessKey,
			SecretKey: cfg.S3.SecretKey,
			Prefix:    cfg.S3.Prefix,
		}), nil
	default:
		return archive.NewLocalFS(cfg.Path)
	}
}

func parseRange(fromStr, toStr string) (time.Time, time.Time, error) {
	from, err := time.Parse("2006-01-02", fromStr)
	if err != nil {
		return time.Time{}, time.Time{}, fmt.Errorf("invalid from date (expected YYYY-MM-DD): %w", err)
	}

	to := time.Now().UTC()
	if toStr != "" {
		to, err = time.Parse("2006-01-02", toStr)
		if err != nil {
			return time.Time{}, time.Time{}, fmt.Errorf("invalid to date (expected YYYY-MM-DD): %w", err)
		}
	}

	if to.Before(from) {
		return time.Time{}, time.Time{}, fmt.Errorf("end date must be after start date")
	}
	return from, to, nil
}
