// Package metrics exposes Prometheus collectors for the print controller.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Job outcomes used as label values
const (
	OutcomeCompleted = "completed"
	OutcomeStopped   = "stopped"
	OutcomeFailed    = "failed"
)

// Metrics bundles every collector. A nil *Metrics is valid and records nothing.
type Metrics struct {
	jobsStarted     prometheus.Counter
	jobsFinished    *prometheus.CounterVec
	linesExecuted   prometheus.Counter
	estops          prometheus.Counter
	axisPosition    *prometheus.GaugeVec
	settingsUpdates *prometheus.CounterVec
	moveDuration    prometheus.Histogram
}

// New creates the collectors and registers them with reg
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		jobsStarted: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "printd_jobs_started_total",
			Help: "Total number of gcode jobs started",
		}),
		jobsFinished: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "printd_jobs_finished_total",
				Help: "Total number of gcode jobs finished, by outcome",
			},
			[]string{"outcome"},
		),
		linesExecuted: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "printd_gcode_lines_executed_total",
			Help: "Total number of gcode lines executed",
		}),
		estops: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "printd_emergency_stops_total",
			Help: "Total number of emergency stops",
		}),
		axisPosition: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "printd_axis_position_mm",
				Help: "Last reached axis position in millimeters",
			},
			[]string{"axis"},
		),
		settingsUpdates: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "printd_axis_settings_updates_total",
				Help: "Total number of applied axis settings updates",
			},
			[]string{"axis"},
		),
		moveDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "printd_move_duration_seconds",
			Help:    "Planned duration of executed moves",
			Buckets: prometheus.ExponentialBuckets(0.001, 4, 10),
		}),
	}

	reg.MustRegister(
		m.jobsStarted,
		m.jobsFinished,
		m.linesExecuted,
		m.estops,
		m.axisPosition,
		m.settingsUpdates,
		m.moveDuration,
	)
	return m
}

// JobStarted counts a started job
func (m *Metrics) JobStarted() {
	if m == nil {
		return
	}
	m.jobsStarted.Inc()
}

// JobFinished counts a finished job by outcome
func (m *Metrics) JobFinished(outcome string) {
	if m == nil {
		return
	}
	m.jobsFinished.WithLabelValues(outcome).Inc()
}

// LineExecuted counts one executed gcode line
func (m *Metrics) LineExecuted() {
	if m == nil {
		return
	}
	m.linesExecuted.Inc()
}

// EmergencyStop counts an emergency stop
func (m *Metrics) EmergencyStop() {
	if m == nil {
		return
	}
	m.estops.Inc()
}

// AxisPosition records the reached position of an axis
func (m *Metrics) AxisPosition(axis string, mm float64) {
	if m == nil {
		return
	}
	m.axisPosition.WithLabelValues(axis).Set(mm)
}

// SettingsUpdated counts an applied settings update
func (m *Metrics) SettingsUpdated(axis string) {
	if m == nil {
		return
	}
	m.settingsUpdates.WithLabelValues(axis).Inc()
}

// MoveDuration observes the planned duration of a move in seconds
func (m *Metrics) MoveDuration(seconds float64) {
	if m == nil {
		return
	}
	m.moveDuration.Observe(seconds)
}
