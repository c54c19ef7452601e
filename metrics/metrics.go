// Package metrics exposes the Prometheus counters a host can scrape to
// observe many interp.Machine runs at once. Grounded on the teacher's
// metrics.GlobalMetricsRegistry singleton (metrics/prometheus.go): one
// process-wide prometheus.Registry, created once and handed out by
// Registry(), rather than a registry per Machine.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

var registry *prometheus.Registry

var (
	signals = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "tinder_signals_total",
		Help: "Count of Run() boundary signals by kind (Imported, Yielded, Halted, TinderBurn).",
	}, []string{"kind"})

	catchHits = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "tinder_catch_hits_total",
		Help: "Count of faults recovered by a script's own catch table, by exception name.",
	}, []string{"exception"})

	stepsPerRun = prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "tinder_run_steps",
		Help:    "Instructions executed per Run() call.",
		Buckets: prometheus.ExponentialBuckets(1, 4, 10),
	})

	budgetExhausted = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "tinder_budget_exhausted_total",
		Help: "Count of runs that hit MaxSteps before reaching a boundary signal.",
	})
)

func init() {
	Reset()
}

// Reset builds a fresh global registry and clears the signal and catch
// counters. The steps histogram and the budget counter are registered again
// as they are; their accumulated values are not cleared. Tests that spin up
// many Machines in the same process call this between runs to avoid
// "duplicate collector" registration panics, the same problem
// ResetGlobalMetricsRegistry solves for the teacher's test suite.
func Reset() {
	signals.Reset()
	catchHits.Reset()
	registry = prometheus.NewRegistry()
	registry.MustRegister(signals, catchHits, stepsPerRun, budgetExhausted)
}

// Registry returns the process-wide registry these counters are registered
// against, for a host that wants to add its own collectors or expose a
// /metrics endpoint.
func Registry() *prometheus.Registry {
	return registry
}

// ObserveSignal records one Run() boundary outcome.
func ObserveSignal(kind string) {
	signals.WithLabelValues(kind).Inc()
}

// ObserveCatch records one recovered fault.
func ObserveCatch(exception string) {
	catchHits.WithLabelValues(exception).Inc()
}

// ObserveRun records how many instructions a single Run() call executed.
func ObserveRun(steps int) {
	stepsPerRun.Observe(float64(steps))
}

// ObserveBudgetExhausted records one MaxSteps-exhaustion fatal.
func ObserveBudgetExhausted() {
	budgetExhausted.Inc()
}
