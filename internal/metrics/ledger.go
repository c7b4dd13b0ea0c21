package metrics

import "github.com/prometheus/client_golang/prometheus"

// Pass ledger Prometheus metrics.
var (
	PassesRemaining = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "tether",
			Name:      "passes_remaining",
			Help:      "Passes left in the current month",
		},
	)

	PassesPerMonth = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "tether",
			Name:      "passes_per_month",
			Help:      "Active monthly pass quota",
		},
	)

	PassesPendingPerMonth = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "tether",
			Name:      "passes_pending_per_month",
			Help:      "Quota scheduled for the next month, -1 when none",
		},
	)

	PassesUsedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "tether",
			Name:      "passes_used_total",
			Help:      "Total passes consumed",
		},
	)

	PassRejectionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "tether",
			Name:      "pass_rejections_total",
			Help:      "Pass requests rejected, by reason",
		},
		[]string{"reason"}, // "empty_reason" / "reason_too_long" / "no_passes_remaining" / "storage"
	)

	RolloversTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "tether",
			Name:      "ledger_rollovers_total",
			Help:      "Month rollovers applied to the pass ledger",
		},
	)

	LedgerDegraded = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "tether",
			Name:      "ledger_degraded",
			Help:      "1 when the last ledger write failed",
		},
	)

	ProximityChecksTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "tether",
			Name:      "proximity_checks_total",
			Help:      "Proximity checks, by outcome",
		},
		[]string{"result"}, // "nearby" / "away" / "error"
	)
)

var ledgerMetricsRegistered bool

// RegisterLedgerMetrics registers the pass ledger and proximity metrics. Must be called once from main.
func RegisterLedgerMetrics() {
	if ledgerMetricsRegistered {
		return
	}
	prometheus.MustRegister(PassesRemaining)
	prometheus.MustRegister(PassesPerMonth)
	prometheus.MustRegister(PassesPendingPerMonth)
	prometheus.MustRegister(PassesUsedTotal)
	prometheus.MustRegister(PassRejectionsTotal)
	prometheus.MustRegister(RolloversTotal)
	prometheus.MustRegister(LedgerDegraded)
	prometheus.MustRegister(ProximityChecksTotal)
	ledgerMetricsRegistered = true
}
