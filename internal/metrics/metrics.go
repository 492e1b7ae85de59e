// Package metrics holds the Prometheus collectors for table actions, option
// fetches and sessions. A Metrics value is constructed per process and
// injected; a nil *Metrics is valid and records nothing.
package metrics

import "github.com/prometheus/client_golang/prometheus"

// Action outcomes.
const (
	OutcomeSucceeded = "succeeded"
	OutcomeFailed    = "failed"
	OutcomeCancelled = "cancelled"
)

// Option fetch results.
const (
	FetchOK     = "ok"
	FetchError  = "error"
	FetchStale  = "stale"
	FetchCached = "cached"
)

// Metrics groups all collectors.
type Metrics struct {
	actionRuns     *prometheus.CounterVec
	rowMutations   *prometheus.CounterVec
	optionFetches  *prometheus.CounterVec
	activeSessions prometheus.Gauge
}

// New creates the collectors and registers them on reg.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		actionRuns: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "entityui_action_runs_total",
				Help: "Bulk and row action invocations by outcome."},
			[]string{"entity", "action", "outcome"},
		),
		rowMutations: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "entityui_row_mutations_total",
				Help: "Per-row mutations issued by sequential bulk actions."},
			[]string{"entity", "result"},
		),
		optionFetches: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "entityui_option_fetches_total",
				Help: "Dependent-field option fetches by result."},
			[]string{"field", "result"},
		),
		activeSessions: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "entityui_active_sessions",
				Help: "Open renderer sessions."},
		),
	}
	reg.MustRegister(m.actionRuns, m.rowMutations, m.optionFetches, m.activeSessions)
	return m
}

// ActionFinished records one action invocation.
func (m *Metrics) ActionFinished(entity, action, outcome string) {
	if m == nil {
		return
	}
	m.actionRuns.WithLabelValues(entity, action, outcome).Inc()
}

// RowMutated records one row mutation inside a bulk action.
func (m *Metrics) RowMutated(entity string, err error) {
	if m == nil {
		return
	}
	result := FetchOK
	if err != nil {
		result = FetchError
	}
	m.rowMutations.WithLabelValues(entity, result).Inc()
}

// OptionFetch records one dependent-field fetch result.
func (m *Metrics) OptionFetch(field, result string) {
	if m == nil {
		return
	}
	m.optionFetches.WithLabelValues(field, result).Inc()
}

// SessionOpened and SessionClosed track the session gauge.
func (m *Metrics) SessionOpened() {
	if m == nil {
		return
	}
	m.activeSessions.Inc()
}

func (m *Metrics) SessionClosed() {
	if m == nil {
		return
	}
	m.activeSessions.Dec()
}
