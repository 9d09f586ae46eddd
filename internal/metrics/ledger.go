package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Ledger records the outcome of balance-affecting operations.
type Ledger struct {
	applied   *prometheus.CounterVec
	rejected  *prometheus.CounterVec
	conflicts prometheus.Counter
	decisions *prometheus.CounterVec
}

// NewLedger registers the ledger metrics on the provided registerer. A nil registerer
// yields a no-op recorder.
func NewLedger(reg prometheus.Registerer) *Ledger {
	if reg == nil {
		return &Ledger{}
	}
	applied := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "wallet_ledger_entries_applied_total",
		Help: "Ledger entries appended, by kind.",
	}, []string{"kind"})
	rejected := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "wallet_ledger_entries_rejected_total",
		Help: "Ledger applications rejected, by kind and reason.",
	}, []string{"kind", "reason"})
	conflicts := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "wallet_ledger_store_conflicts_total",
		Help: "Optimistic store conflicts observed while appending entries.",
	})
	decisions := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "wallet_recharge_decisions_total",
		Help: "Recharge requests moved out of pending, by decision.",
	}, []string{"decision"})
	reg.MustRegister(applied, rejected, conflicts, decisions)
	return &Ledger{applied: applied, rejected: rejected, conflicts: conflicts, decisions: decisions}
}

// IncApplied counts a committed entry.
func (l *Ledger) IncApplied(kind string) {
	if l == nil || l.applied == nil {
		return
	}
	l.applied.WithLabelValues(normalizeLabel(kind)).Inc()
}

// IncRejected counts a refused application.
func (l *Ledger) IncRejected(kind, reason string) {
	if l == nil || l.rejected == nil {
		return
	}
	l.rejected.WithLabelValues(normalizeLabel(kind), normalizeLabel(reason)).Inc()
}

// IncConflict counts one optimistic write that lost.
func (l *Ledger) IncConflict() {
	if l == nil || l.conflicts == nil {
		return
	}
	l.conflicts.Inc()
}

// IncDecision counts a recharge decision.
func (l *Ledger) IncDecision(decision string) {
	if l == nil || l.decisions == nil {
		return
	}
	l.decisions.WithLabelValues(normalizeLabel(decision)).Inc()
}

func normalizeLabel(v string) string {
	if v == "" {
		return "unknown"
	}
	return v
}
