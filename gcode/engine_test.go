package gcode

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/devadigapratham/printd/axis"
	"github.com/devadigapratham/printd/errlog"
	"github.com/devadigapratham/printd/metrics"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestController(t *testing.T) *axis.Controller {
	t.Helper()
	defaults := axis.Settings{ReferenceSpeed: 100, ReferenceAccelDecel: 2000, ReferenceJerk: 0}
	configs := map[axis.ID]axis.Config{
		axis.X: {Defaults: defaults, Travel: 200},
		axis.Y: {Defaults: defaults, Travel: 200},
		axis.Z: {Defaults: defaults, Travel: 200},
	}
	c, err := axis.NewController(context.Background(), configs, axis.WithTimeScale(1))
	require.NoError(t, err)
	return c
}

func newTestEngine(t *testing.T, opts ...EngineOption) (*Engine, *axis.Controller) {
	t.Helper()
	c := newTestController(t)
	e := NewEngine(c, opts...)
	t.Cleanup(func() { _ = e.Close() })
	return e, c
}

func writeGCode(t *testing.T, lines ...string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "job.gcode")
	require.NoError(t, os.WriteFile(path, []byte(strings.Join(lines, "\n")+"\n"), 0o644))
	return path
}

// slowJob dwells long enough per line for a test to observe the printing state
func slowJob(t *testing.T, lines int) string {
	t.Helper()
	out := make([]string, lines)
	for i := range out {
		out[i] = "G4 P50"
	}
	return writeGCode(t, out...)
}

func counterValue(t *testing.T, reg *prometheus.Registry, name string) float64 {
	t.Helper()
	families, err := reg.Gather()
	require.NoError(t, err)
	for _, mf := range families {
		if mf.GetName() != name {
			continue
		}
		var sum float64
		for _, m := range mf.GetMetric() {
			sum += m.GetCounter().GetValue()
		}
		return sum
	}
	return 0
}

func TestEngineStartsStopped(t *testing.T) {
	e, _ := newTestEngine(t)
	assert.Equal(t, Status{State: StateStopped}, e.Status())
	assert.NoError(t, e.LastError())
	assert.Empty(t, e.History())
}

func TestEngineStart(t *testing.T) {
	e, _ := newTestEngine(t)
	path := slowJob(t, 100)

	require.NoError(t, e.Start(path))

	st := e.Status()
	assert.Equal(t, StatePrinting, st.State)
	assert.Equal(t, path, st.Path)
	assert.GreaterOrEqual(t, st.Line, 0)
	assert.NotEmpty(t, st.JobID)
}

func TestEngineStartOpenFailure(t *testing.T) {
	e, _ := newTestEngine(t)

	err := e.Start(filepath.Join(t.TempDir(), "missing.gcode"))
	assert.ErrorIs(t, err, ErrOpenFailed)
	assert.ErrorIs(t, err, os.ErrNotExist)
	assert.Equal(t, Status{State: StateStopped}, e.Status())
}

func TestEngineStartRejectsDirectory(t *testing.T) {
	e, _ := newTestEngine(t)

	assert.ErrorIs(t, e.Start(t.TempDir()), ErrOpenFailed)
	assert.Equal(t, Status{State: StateStopped}, e.Status())
}

func TestEngineStartUnreadableFile(t *testing.T) {
	if os.Geteuid() == 0 {
		t.Skip("root can read any file")
	}
	e, _ := newTestEngine(t)
	path := writeGCode(t, "G28")
	require.NoError(t, os.Chmod(path, 0))

	assert.ErrorIs(t, e.Start(path), ErrOpenFailed)
	assert.Equal(t, StateStopped, e.Status().State)
}

func TestEngineSecondStartConflicts(t *testing.T) {
	e, _ := newTestEngine(t)
	first := slowJob(t, 100)
	second := writeGCode(t, "G28")

	require.NoError(t, e.Start(first))
	assert.ErrorIs(t, e.Start(second), ErrConflict)

	st := e.Status()
	assert.Equal(t, StatePrinting, st.State)
	assert.Equal(t, first, st.Path)

	require.NoError(t, e.Pause())
	assert.ErrorIs(t, e.Start(second), ErrConflict)
	assert.Equal(t, first, e.Status().Path)
}

func TestEnginePauseContinue(t *testing.T) {
	e, _ := newTestEngine(t)
	path := slowJob(t, 100)
	require.NoError(t, e.Start(path))

	require.NoError(t, e.Pause())
	paused := e.Status()
	assert.Equal(t, StatePaused, paused.State)
	assert.Equal(t, path, paused.Path)

	// the reported line stays put while the line in flight completes
	time.Sleep(120 * time.Millisecond)
	parked := e.Status()
	assert.Equal(t, paused, parked)
	time.Sleep(120 * time.Millisecond)
	assert.Equal(t, paused, e.Status())

	assert.ErrorIs(t, e.Pause(), ErrConflict)

	require.NoError(t, e.Continue())
	resumed := e.Status()
	assert.Equal(t, StatePrinting, resumed.State)
	assert.Equal(t, path, resumed.Path)
	assert.GreaterOrEqual(t, resumed.Line, paused.Line)

	assert.ErrorIs(t, e.Continue(), ErrConflict)
	assert.Eventually(t, func() bool {
		return e.Status().Line > parked.Line
	}, 2*time.Second, 10*time.Millisecond)
}

func TestEngineCommandsWhileStopped(t *testing.T) {
	e, _ := newTestEngine(t)

	assert.ErrorIs(t, e.Pause(), ErrConflict)
	assert.ErrorIs(t, e.Continue(), ErrConflict)
	assert.NoError(t, e.Stop())
	assert.NoError(t, e.Stop())
	assert.Equal(t, Status{State: StateStopped}, e.Status())
}

func TestEngineAutoStopsAtEndOfStream(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := metrics.New(reg)
	e, c := newTestEngine(t, WithEngineMetrics(m))
	path := writeGCode(t,
		"; short job",
		"G21",
		"G90",
		"G1 X1 Y2 F6000",
		"",
		"G92 Z5",
	)

	require.NoError(t, e.Start(path))
	require.Eventually(t, func() bool {
		return e.Status().State == StateStopped
	}, 5*time.Second, 10*time.Millisecond)

	assert.Equal(t, Status{State: StateStopped}, e.Status())
	assert.NoError(t, e.LastError())

	pos := c.Positions()
	assert.Equal(t, 1.0, pos[axis.X])
	assert.Equal(t, 2.0, pos[axis.Y])
	assert.Equal(t, 5.0, pos[axis.Z])

	hist := e.History()
	require.Len(t, hist, 1)
	assert.Equal(t, metrics.OutcomeCompleted, hist[0].Outcome)
	assert.Equal(t, 6, hist[0].Lines)
	assert.Equal(t, path, hist[0].Path)

	assert.Equal(t, 6.0, counterValue(t, reg, "printd_gcode_lines_executed_total"))

	// a finished job frees the engine for the next start
	require.NoError(t, e.Start(path))
}

func TestEngineStop(t *testing.T) {
	for _, pauseFirst := range []bool{false, true} {
		name := "from_printing"
		if pauseFirst {
			name = "from_paused"
		}
		t.Run(name, func(t *testing.T) {
			e, _ := newTestEngine(t)
			require.NoError(t, e.Start(slowJob(t, 100)))
			if pauseFirst {
				require.NoError(t, e.Pause())
			}

			require.NoError(t, e.Stop())
			assert.Equal(t, Status{State: StateStopped}, e.Status())

			hist := e.History()
			require.Len(t, hist, 1)
			assert.Equal(t, metrics.OutcomeStopped, hist[0].Outcome)

			// the stopped loop must not change anything afterwards
			time.Sleep(120 * time.Millisecond)
			assert.Equal(t, Status{State: StateStopped}, e.Status())
			assert.Len(t, e.History(), 1)
		})
	}
}

func TestEngineStopInterruptsLongDwell(t *testing.T) {
	e, _ := newTestEngine(t)
	require.NoError(t, e.Start(writeGCode(t, "G4 S600")))
	time.Sleep(20 * time.Millisecond)

	start := time.Now()
	require.NoError(t, e.Close())
	assert.Less(t, time.Since(start), 2*time.Second)
	assert.Equal(t, StateStopped, e.Status().State)
}

func TestEngineEStop(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := metrics.New(reg)
	e, _ := newTestEngine(t, WithEngineMetrics(m))

	require.NoError(t, e.EStop())
	require.NoError(t, e.Start(slowJob(t, 100)))
	require.NoError(t, e.EStop())

	assert.Equal(t, StateStopped, e.Status().State)
	assert.Equal(t, 2.0, counterValue(t, reg, "printd_emergency_stops_total"))
}

func TestEngineFatalLineError(t *testing.T) {
	errs := errlog.New(0)
	e, c := newTestEngine(t, WithErrorLog(errs))
	path := writeGCode(t,
		"G1 X10",
		"G1 X500",
		"G1 X20",
	)

	require.NoError(t, e.Start(path))
	require.Eventually(t, func() bool {
		return e.Status().State == StateStopped
	}, 5*time.Second, 10*time.Millisecond)

	err := e.LastError()
	require.Error(t, err)
	assert.ErrorIs(t, err, axis.ErrOutOfBounds)
	assert.Contains(t, err.Error(), "line 2")

	pos, perr := c.Position(axis.X)
	require.NoError(t, perr)
	assert.Equal(t, 10.0, pos)

	hist := e.History()
	require.Len(t, hist, 1)
	assert.Equal(t, metrics.OutcomeFailed, hist[0].Outcome)
	assert.Equal(t, 1, hist[0].Lines)

	entry, ok := errs.Last()
	require.True(t, ok)
	assert.Equal(t, err.Error(), entry.Text)
}

func TestEngineHistoryIsBounded(t *testing.T) {
	e, _ := newTestEngine(t, WithHistorySize(2))
	path := writeGCode(t, "G28")

	for i := 0; i < 3; i++ {
		require.NoError(t, e.Start(path))
		require.Eventually(t, func() bool {
			return e.Status().State == StateStopped
		}, 5*time.Second, 10*time.Millisecond)
	}
	assert.Len(t, e.History(), 2)
}

func TestEngineConcurrentCommands(t *testing.T) {
	e, _ := newTestEngine(t)
	path := slowJob(t, 20)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			for n := 0; n < 20; n++ {
				switch (i + n) % 5 {
				case 0:
					_ = e.Start(path)
				case 1:
					_ = e.Pause()
				case 2:
					_ = e.Continue()
				case 3:
					_ = e.Stop()
				default:
					st := e.Status()
					if st.State == StateStopped {
						assert.Empty(t, st.Path)
					} else {
						assert.Equal(t, path, st.Path)
					}
				}
			}
		}(i)
	}
	wg.Wait()

	require.NoError(t, e.Close())
	assert.Equal(t, Status{State: StateStopped}, e.Status())
}
