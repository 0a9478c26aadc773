package orchestrator

import (
	"github.com/prometheus/client_golang/prometheus"
)

// metrics holds the orchestra's Prometheus instrumentation: cycle
// latency, scanner batch latency, open positions, and kill-switch
// status, the way the health endpoint's fields are mirrored for
// scraping (§5/§7).
type metrics struct {
	cycleDuration   prometheus.Histogram
	cyclesTotal     *prometheus.CounterVec
	scanDuration    prometheus.Histogram
	openPositions   prometheus.Gauge
	killSwitch      prometheus.Gauge
	stateTransitions *prometheus.CounterVec
}

func newMetrics(reg prometheus.Registerer) *metrics {
	m := &metrics{
		cycleDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "breakout_orchestrator_cycle_duration_seconds",
			Help:    "Duration of one orchestrator cycle.",
			Buckets: prometheus.DefBuckets,
		}),
		cyclesTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "breakout_orchestrator_cycles_total",
			Help: "Count of cycles run, labeled by state.",
		}, []string{"state"}),
		scanDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "breakout_scanner_batch_duration_seconds",
			Help:    "Duration of one scanner batch pass.",
			Buckets: prometheus.DefBuckets,
		}),
		openPositions: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "breakout_orchestrator_open_positions",
			Help: "Number of currently open positions.",
		}),
		killSwitch: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "breakout_orchestrator_kill_switch_active",
			Help: "1 if the kill switch is latched, 0 otherwise.",
		}),
		stateTransitions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "breakout_orchestrator_state_transitions_total",
			Help: "Count of state transitions, labeled by from/to state.",
		}, []string{"from", "to"}),
	}
	if reg != nil {
		reg.MustRegister(m.cycleDuration, m.cyclesTotal, m.scanDuration, m.openPositions, m.killSwitch, m.stateTransitions)
	}
	return m
}
