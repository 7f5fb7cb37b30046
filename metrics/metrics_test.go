package metrics

import (
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestNilMetricsRecordNothing(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.JobStarted()
		m.JobFinished(OutcomeCompleted)
		m.LineExecuted()
		m.EmergencyStop()
		m.AxisPosition("x", 1)
		m.SettingsUpdated("x")
		m.MoveDuration(0.5)
	})
}

func TestMetricsCount(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := New(reg)

	m.JobStarted()
	m.JobStarted()
	m.JobFinished(OutcomeFailed)
	m.LineExecuted()
	m.AxisPosition("z", 12.5)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.jobsStarted))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.jobsFinished.WithLabelValues(OutcomeFailed)))
	assert.Equal(t, 12.5, testutil.ToFloat64(m.axisPosition.WithLabelValues("z")))

	expected := `
# HELP printd_gcode_lines_executed_total Total number of gcode lines executed
# TYPE printd_gcode_lines_executed_total counter
printd_gcode_lines_executed_total 1
`
	assert.NoError(t, testutil.GatherAndCompare(reg, strings.NewReader(expected), "printd_gcode_lines_executed_total"))
}
