// Package gcode executes gcode files against the axis controller.
package gcode

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"sync"

	"github.com/devadigapratham/printd/errlog"
	"github.com/devadigapratham/printd/metrics"
	"github.com/hashicorp/go-hclog"
)

var (
	// ErrConflict is returned when a command is not valid in the current state
	ErrConflict = errors.New("command conflicts with engine state")
	// ErrOpenFailed is returned when the source of a job cannot be opened
	ErrOpenFailed = errors.New("failed to open gcode source")
	// ErrInvalidArgument is returned for a malformed gcode argument
	ErrInvalidArgument = errors.New("invalid gcode argument")
)

const (
	defaultHistorySize = 50
	maxLineLength      = 1 << 20
)

// Engine runs at most one gcode job at a time on a background goroutine.
type Engine struct {
	machine Machine
	logger  hclog.Logger
	metrics *metrics.Metrics
	errors  *errlog.Registry

	// cmdMu serializes start, stop, estop, pause and continue
	cmdMu sync.Mutex

	// mu guards everything below; cond parks the loop while paused
	mu      sync.Mutex
	cond    *sync.Cond
	state   State
	job     *job
	lastErr error
	history history

	wg sync.WaitGroup
}

// EngineOption configures an Engine
type EngineOption func(*Engine)

// WithEngineLogger sets the logger
func WithEngineLogger(logger hclog.Logger) EngineOption {
	return func(e *Engine) {
		e.logger = logger.Named("gcode")
	}
}

// WithEngineMetrics sets the metrics collectors
func WithEngineMetrics(m *metrics.Metrics) EngineOption {
	return func(e *Engine) {
		e.metrics = m
	}
}

// WithErrorLog records fatal job errors in reg
func WithErrorLog(reg *errlog.Registry) EngineOption {
	return func(e *Engine) {
		e.errors = reg
	}
}

// WithHistorySize sets how many finished jobs are kept
func WithHistorySize(n int) EngineOption {
	return func(e *Engine) {
		if n > 0 {
			e.history.limit = n
		}
	}
}

// NewEngine creates a stopped engine driving machine
func NewEngine(machine Machine, opts ...EngineOption) *Engine {
	e := &Engine{
		machine: machine,
		logger:  hclog.NewNullLogger(),
		state:   StateStopped,
		history: history{limit: defaultHistorySize},
	}
	e.cond = sync.NewCond(&e.mu)
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Start opens path and begins executing it. The file is opened before
// returning, so an unreadable path fails here and leaves the engine stopped.
// Only regular files are accepted and the open happens outside cmdMu.
func (e *Engine) Start(path string) error {
	if err := e.checkStopped(); err != nil {
		return err
	}

	f, err := openSource(path)
	if err != nil {
		e.logger.Error("failed to open gcode", "path", path, "error", err)
		return fmt.Errorf("%w: %w", ErrOpenFailed, err)
	}

	e.cmdMu.Lock()
	defer e.cmdMu.Unlock()

	// another start may have won while the file was being opened
	if err := e.checkStopped(); err != nil {
		f.Close()
		return err
	}

	j := newJob(path)

	e.mu.Lock()
	e.job = j
	e.state = StatePrinting
	e.mu.Unlock()

	e.metrics.JobStarted()
	e.logger.Info("job started", "job", j.id, "path", path)

	e.wg.Add(1)
	go e.run(j, f)
	return nil
}

func (e *Engine) checkStopped() error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.state != StateStopped {
		return fmt.Errorf("%w: cannot start while %s %q", ErrConflict, e.state, e.job.path)
	}
	return nil
}

// openSource opens path for reading. Stat runs first so a fifo or device
// is rejected without an open that could block.
func openSource(path string) (*os.File, error) {
	fi, err := os.Stat(path)
	if err != nil {
		return nil, err
	}
	if !fi.Mode().IsRegular() {
		return nil, fmt.Errorf("%s: not a regular file", path)
	}
	return os.Open(path)
}

// Stop ends the current job. Stopping a stopped engine succeeds.
func (e *Engine) Stop() error {
	e.cmdMu.Lock()
	defer e.cmdMu.Unlock()

	if rec, ok := e.stop(); ok {
		e.logger.Info("job stopped", "job", rec.ID, "line", rec.Lines)
	}
	return nil
}

// EStop halts motion immediately and ends the current job
func (e *Engine) EStop() error {
	e.cmdMu.Lock()
	defer e.cmdMu.Unlock()

	e.metrics.EmergencyStop()
	if rec, ok := e.stop(); ok {
		e.logger.Warn("emergency stop", "job", rec.ID, "line", rec.Lines)
	} else {
		e.logger.Warn("emergency stop with no active job")
	}
	return nil
}

func (e *Engine) stop() (JobRecord, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()

	j := e.job
	if j == nil {
		return JobRecord{}, false
	}
	j.cancel()
	e.job = nil
	e.state = StateStopped
	rec := j.record(metrics.OutcomeStopped, nil)
	e.history.add(rec)
	e.cond.Broadcast()

	e.metrics.JobFinished(metrics.OutcomeStopped)
	return rec, true
}

// Pause parks the job after the line in flight. Only valid while printing.
// The reported line is frozen at the last line completed before the pause;
// a line still in flight finishes and shows up once the job continues.
func (e *Engine) Pause() error {
	e.cmdMu.Lock()
	defer e.cmdMu.Unlock()

	e.mu.Lock()
	defer e.mu.Unlock()

	if e.state != StatePrinting {
		return fmt.Errorf("%w: cannot pause while %s", ErrConflict, e.state)
	}
	e.state = StatePaused
	e.job.frozen = e.job.line
	e.logger.Info("job paused", "job", e.job.id, "line", e.job.line)
	return nil
}

// Continue resumes a paused job at the next line. Only valid while paused.
func (e *Engine) Continue() error {
	e.cmdMu.Lock()
	defer e.cmdMu.Unlock()

	e.mu.Lock()
	defer e.mu.Unlock()

	if e.state != StatePaused {
		return fmt.Errorf("%w: cannot continue while %s", ErrConflict, e.state)
	}
	e.state = StatePrinting
	e.cond.Broadcast()
	e.logger.Info("job continued", "job", e.job.id, "line", e.job.line)
	return nil
}

// Status returns a snapshot of the engine state
func (e *Engine) Status() Status {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.job == nil {
		return Status{State: e.state}
	}
	line := e.job.line
	if e.state == StatePaused {
		line = e.job.frozen
	}
	return Status{
		State: e.state,
		JobID: e.job.id,
		Path:  e.job.path,
		Line:  line,
	}
}

// LastError returns the error that ended the most recent failed job
func (e *Engine) LastError() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.lastErr
}

// History returns finished jobs, oldest first
func (e *Engine) History() []JobRecord {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.history.list()
}

// Close stops the current job and waits for its goroutine to exit
func (e *Engine) Close() error {
	err := e.Stop()
	e.wg.Wait()
	return err
}

// run is the read-execute-advance loop of one job. It exits as soon as j is
// no longer the engine's job.
func (e *Engine) run(j *job, f *os.File) {
	defer e.wg.Done()
	defer f.Close()

	in := newInterpreter(e.machine, e.logger.With("job", j.id))
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineLength)

	for {
		if !e.waitRunnable(j) {
			return
		}

		if !scanner.Scan() {
			err := scanner.Err()
			if err != nil {
				err = fmt.Errorf("read %s: %w", j.path, err)
			}
			e.finish(j, err)
			return
		}

		if err := in.execLine(j.ctx, scanner.Text()); err != nil {
			if j.ctx.Err() != nil {
				// stopped while the line was in flight
				return
			}
			e.finish(j, fmt.Errorf("%s line %d: %w", j.path, e.lineOf(j)+1, err))
			return
		}

		e.mu.Lock()
		if e.job != j {
			e.mu.Unlock()
			return
		}
		j.line++
		e.mu.Unlock()
		e.metrics.LineExecuted()
	}
}

// waitRunnable blocks while the job is paused and reports whether it is still current
func (e *Engine) waitRunnable(j *job) bool {
	e.mu.Lock()
	defer e.mu.Unlock()

	for e.job == j && e.state == StatePaused {
		e.cond.Wait()
	}
	return e.job == j
}

func (e *Engine) lineOf(j *job) int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return j.line
}

// finish ends j after end of stream or a fatal error
func (e *Engine) finish(j *job, err error) {
	e.mu.Lock()
	if e.job != j {
		e.mu.Unlock()
		return
	}
	j.cancel()
	e.job = nil
	e.state = StateStopped

	outcome := metrics.OutcomeCompleted
	if err != nil && !errors.Is(err, io.EOF) {
		outcome = metrics.OutcomeFailed
		e.lastErr = err
	}
	rec := j.record(outcome, err)
	e.history.add(rec)
	e.cond.Broadcast()
	e.mu.Unlock()

	e.metrics.JobFinished(outcome)
	if outcome == metrics.OutcomeFailed {
		e.errors.Insert(err)
		e.logger.Error("job failed", "job", j.id, "line", rec.Lines, "error", err)
		return
	}
	e.logger.Info("job completed", "job", j.id, "lines", rec.Lines)
}
