package main

import (
	"fmt"
	"os"

	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"

	"github.com/replaykit/replay/internal/store"
)

var (
	historySymbol string
	historyLimit  int
)

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "List stored backtest runs",
	RunE:  runHistory,
}

func init() {
	historyCmd.Flags().StringVar(&historySymbol, "symbol", "", "filter by symbol")
	historyCmd.Flags().IntVar(&historyLimit, "limit", 20, "maximum rows")

	rootCmd.AddCommand(historyCmd)
}

func runHistory(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if !cfg.Store.Enabled {
		return fmt.Errorf("run store is not enabled in config")
	}

	st, err := store.Open(cfg.Store.Path)
	if err != nil {
		return err
	}
	defer st.Close()

	rows, err := st.ListRuns(cmd.Context(), historySymbol, historyLimit)
	if err != nil {
		return err
	}
	if len(rows) == 0 {
		fmt.Println("No stored runs")
		return nil
	}

	table := tablewriter.NewWriter(os.Stdout)
	table.Header("When", "Strategy", "Symbol", "Total Ret", "Sharpe", "Max DD", "Trades", "Win Rate")
	for _, r := range rows {
		table.Append(
			r.CreatedAt.Format("2006-01-02 15:04"),
			r.Strategy,
			r.Symbol,
			fmt.Sprintf("%.2f%%", r.TotalReturn*100),
			fmt.Sprintf("%.2f", r.Sharpe),
			fmt.Sprintf("%.2f%%", r.MaxDrawdown*100),
			fmt.Sprintf("%d", r.TradeCount),
			fmt.Sprintf("%.0f%%", r.WinRate*100),
		)
	}
	table.Render()
	return nil
}
