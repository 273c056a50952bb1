package store

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/replaykit/replay/internal/backtest"
	"github.com/replaykit/replay/internal/perf"
)

func openTestStore(t *testing.T) *RunStore {
	t.Helper()
	st, err := Open(filepath.Join(t.TempDir(), "runs.db"))
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	t.Cleanup(func() { st.Close() })
	return st
}

func result(id, strategy, symbol string, totalReturn float64) *backtest.Result {
	return &backtest.Result{
		ID:       id,
		Strategy: strategy,
		Symbol:   symbol,
		Start:    time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC),
		End:      time.Date(2024, 6, 28, 0, 0, 0, 0, time.UTC),
		Bars:     120,
		Switches: 3,
		Report: perf.Report{
			TotalReturn:  totalReturn,
			AnnualReturn: totalReturn * 2,
			SharpeRatio:  1.2,
			MaxDrawdown:  -0.05,
			TradeCount:   3,
			WinRate:      0.5,
			Observations: 119,
		},
	}
}

func TestSaveAndListRuns(t *testing.T) {
	st := openTestStore(t)
	ctx := context.Background()

	if err := st.SaveRun(ctx, result("r1", "crossover", "AAPL", 0.10)); err != nil {
		t.Fatalf("SaveRun() error = %v", err)
	}
	if err := st.SaveRun(ctx, result("r2", "rotation", "TQQQ", 0.25)); err != nil {
		t.Fatalf("SaveRun() error = %v", err)
	}

	rows, err := st.ListRuns(ctx, "", 10)
	if err != nil {
		t.Fatalf("ListRuns() error = %v", err)
	}
	if len(rows) != 2 {
		t.Fatalf("ListRuns() = %d rows, want 2", len(rows))
	}

	byID := map[string]Row{}
	for _, r := range rows {
		byID[r.ID] = r
	}
	r1, ok := byID["r1"]
	if !ok {
		t.Fatal("run r1 not listed")
	}
	if r1.Strategy != "crossover" || r1.Symbol != "AAPL" {
		t.Errorf("r1 = %+v, want crossover/AAPL", r1)
	}
	if r1.TotalReturn != 0.10 || r1.TradeCount != 3 {
		t.Errorf("r1 summary = %+v, want total 0.10 trades 3", r1)
	}
	if r1.CreatedAt.IsZero() {
		t.Error("created_at should be set")
	}
}

func TestListRunsFilterAndLimit(t *testing.T) {
	st := openTestStore(t)
	ctx := context.Background()

	for i, sym := range []string{"AAPL", "AAPL", "MSFT"} {
		res := result(string(rune('a'+i)), "crossover", sym, 0.1)
		if err := st.SaveRun(ctx, res); err != nil {
			t.Fatalf("SaveRun() error = %v", err)
		}
	}

	rows, err := st.ListRuns(ctx, "AAPL", 10)
	if err != nil {
		t.Fatalf("ListRuns() error = %v", err)
	}
	if len(rows) != 2 {
		t.Errorf("ListRuns(AAPL) = %d rows, want 2", len(rows))
	}

	rows, err = st.ListRuns(ctx, "", 1)
	if err != nil {
		t.Fatalf("ListRuns() error = %v", err)
	}
	if len(rows) != 1 {
		t.Errorf("ListRuns(limit 1) = %d rows, want 1", len(rows))
	}
}

func TestSaveRunDuplicateID(t *testing.T) {
	st := openTestStore(t)
	ctx := context.Background()

	if err := st.SaveRun(ctx, result("dup", "crossover", "AAPL", 0.1)); err != nil {
		t.Fatalf("SaveRun() error = %v", err)
	}
	if err := st.SaveRun(ctx, result("dup", "crossover", "AAPL", 0.1)); err == nil {
		t.Error("SaveRun() with a duplicate id should fail")
	}
}

func TestOpenIsIdempotent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "runs.db")

	st, err := Open(path)
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	if err := st.SaveRun(context.Background(), result("r1", "crossover", "AAPL", 0.1)); err != nil {
		t.Fatalf("SaveRun() error = %v", err)
	}
	st.Close()

	// Reopening applies the schema again and keeps the data.
	st2, err := Open(path)
	if err != nil {
		t.Fatalf("reopen error = %v", err)
	}
	defer st2.Close()

	rows, err := st2.ListRuns(context.Background(), "", 10)
	if err != nil {
		t.Fatalf("ListRuns() error = %v", err)
	}
	if len(rows) != 1 {
		t.Errorf("rows after reopen = %d, want 1", len(rows))
	}
}
