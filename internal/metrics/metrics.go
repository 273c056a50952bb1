// Package metrics instruments long-running sweeps with Prometheus
// collectors. The engine itself stays uninstrumented; only the runner and
// the CLI touch this package.
package metrics

import (
	"context"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Registry holds all Prometheus metrics.
type Registry struct {
	*prometheus.Registry

	runsTotal   *prometheus.CounterVec
	runDuration prometheus.Histogram
	clipEvents  *prometheus.CounterVec
}

// NewRegistry creates a registry with all metrics registered.
func NewRegistry() *Registry {
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector())
	reg.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	r := &Registry{
		Registry: reg,

		runsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "replay_runs_total",
				Help: "Total number of backtest runs finished",
			},
			[]string{"strategy", "status"},
		),
		runDuration: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "replay_run_duration_seconds",
				Help:    "Backtest run duration in seconds",
				Buckets: prometheus.DefBuckets,
			},
		),
		clipEvents: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "replay_clip_events_total",
				Help: "Stability clips and degraded-capital bars observed",
			},
			[]string{"kind"},
		),
	}

	reg.MustRegister(r.runsTotal)
	reg.MustRegister(r.runDuration)
	reg.MustRegister(r.clipEvents)

	return r
}

// RunFinished records one finished run.
func (r *Registry) RunFinished(strategy, status string, elapsed time.Duration) {
	r.runsTotal.WithLabelValues(strategy, status).Inc()
	if elapsed > 0 {
		r.runDuration.Observe(elapsed.Seconds())
	}
}

// AddClipEvents records triggered stability guards.
func (r *Registry) AddClipEvents(kind string, n int) {
	if n > 0 {
		r.clipEvents.WithLabelValues(kind).Add(float64(n))
	}
}

// Serve exposes the registry on addr at /metrics until the context ends.
func (r *Registry) Serve(ctx context.Context, addr string) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(r.Registry, promhttp.HandlerOpts{}))

	srv := &http.Server{Addr: addr, Handler: mux}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		srv.Shutdown(shutdownCtx)
	}()

	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}
