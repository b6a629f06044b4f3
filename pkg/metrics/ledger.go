package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// LedgerMetrics records ledger mutation and recompute outcomes.
type LedgerMetrics struct {
	transitions *prometheus.CounterVec
	recompute   *prometheus.HistogramVec
	invariants  *prometheus.CounterVec
	conflicts   prometheus.Counter
}

// NewLedgerMetrics registers the ledger metrics on the provided registerer.
func NewLedgerMetrics(reg prometheus.Registerer) *LedgerMetrics {
	if reg == nil {
		return &LedgerMetrics{}
	}
	transitions := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "ledger_transitions_total",
		Help: "Ledger entry status transitions by action.",
	}, []string{"action"})
	recompute := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "ledger_summary_recompute_seconds",
		Help:    "Duration of order summary recomputes in seconds.",
		Buckets: prometheus.DefBuckets,
	}, []string{"trigger"})
	invariants := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "ledger_invariant_violations_total",
		Help: "Summary recomputes that detected an impossible state.",
	}, []string{"reason"})
	conflicts := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "ledger_concurrency_conflicts_total",
		Help: "Optimistic transition checks lost to a concurrent writer.",
	})
	reg.MustRegister(transitions, recompute, invariants, conflicts)
	return &LedgerMetrics{
		transitions: transitions,
		recompute:   recompute,
		invariants:  invariants,
		conflicts:   conflicts,
	}
}

// IncTransition increments the transition counter for the named action.
func (m *LedgerMetrics) IncTransition(action string) {
	if m == nil || m.transitions == nil {
		return
	}
	m.transitions.WithLabelValues(normalizeLabel(action)).Inc()
}

// ObserveRecompute records how long a summary recompute took.
func (m *LedgerMetrics) ObserveRecompute(trigger string, duration time.Duration) {
	if m == nil || m.recompute == nil {
		return
	}
	m.recompute.WithLabelValues(normalizeLabel(trigger)).Observe(duration.Seconds())
}

// IncInvariantViolation counts a detected impossible ledger state.
func (m *LedgerMetrics) IncInvariantViolation(reason string) {
	if m == nil || m.invariants == nil {
		return
	}
	m.invariants.WithLabelValues(normalizeLabel(reason)).Inc()
}

// IncConcurrencyConflict counts a lost optimistic transition.
func (m *LedgerMetrics) IncConcurrencyConflict() {
	if m == nil || m.conflicts == nil {
		return
	}
	m.conflicts.Inc()
}

func normalizeLabel(value string) string {
	if value == "" {
		return "unknown"
	}
	return value
}
