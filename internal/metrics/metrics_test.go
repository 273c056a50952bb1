package metrics

import (
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestRunFinished(t *testing.T) {
	reg := NewRegistry()

	reg.RunFinished("crossover", "ok", 50*time.Millisecond)
	reg.RunFinished("crossover", "ok", 30*time.Millisecond)
	reg.RunFinished("rotation", "error", 0)

	got := testutil.ToFloat64(reg.runsTotal.WithLabelValues("crossover", "ok"))
	if got != 2 {
		t.Errorf("runs_total{crossover,ok} = %v, want 2", got)
	}
	got = testutil.ToFloat64(reg.runsTotal.WithLabelValues("rotation", "error"))
	if got != 1 {
		t.Errorf("runs_total{rotation,error} = %v, want 1", got)
	}
}

func TestAddClipEvents(t *testing.T) {
	reg := NewRegistry()

	reg.AddClipEvents("aggregate", 3)
	reg.AddClipEvents("aggregate", 0) // no-op
	reg.AddClipEvents("degraded_capital", 1)

	if got := testutil.ToFloat64(reg.clipEvents.WithLabelValues("aggregate")); got != 3 {
		t.Errorf("clip_events{aggregate} = %v, want 3", got)
	}
	if got := testutil.ToFloat64(reg.clipEvents.WithLabelValues("degraded_capital")); got != 1 {
		t.Errorf("clip_events{degraded_capital} = %v, want 1", got)
	}
}

func TestRegistryGathers(t *testing.T) {
	reg := NewRegistry()
	reg.RunFinished("crossover", "ok", time.Millisecond)

	families, err := reg.Gather()
	if err != nil {
		t.Fatalf("Gather() error = %v", err)
	}

	var names []string
	for _, f := range families {
		names = append(names, f.GetName())
	}
	joined := strings.Join(names, ",")
	for _, want := range []string{"replay_runs_total", "replay_run_duration_seconds"} {
		if !strings.Contains(joined, want) {
			t.Errorf("gathered families missing %s: %v", want, names)
		}
	}
}
