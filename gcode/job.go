package gcode

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// State of the execution engine
type State string

const (
	StateStopped  State = "stopped"
	StatePrinting State = "printing"
	StatePaused   State = "paused"
)

// Status is a consistent snapshot of the engine. Path, Line and JobID are
// only set while a job exists.
type Status struct {
	State State
	JobID string
	Path  string
	// Line counts fully executed lines of the job
	Line int
}

// Active reports whether a job exists
func (s Status) Active() bool {
	return s.State != StateStopped
}

// JobRecord describes a finished job
type JobRecord struct {
	ID        string    `json:"id"`
	Path      string    `json:"path"`
	Lines     int       `json:"lines"`
	Outcome   string    `json:"outcome"`
	Error     string    `json:"error,omitempty"`
	StartedAt time.Time `json:"started_at"`
	EndedAt   time.Time `json:"ended_at"`
}

type job struct {
	id   string
	path string
	line int
	// frozen is the line reported while paused
	frozen  int
	started time.Time
	ctx     context.Context
	cancel  context.CancelFunc
}

func newJob(path string) *job {
	ctx, cancel := context.WithCancel(context.Background())
	return &job{
		id:      uuid.New().String(),
		path:    path,
		started: time.Now(),
		ctx:     ctx,
		cancel:  cancel,
	}
}

func (j *job) record(outcome string, err error) JobRecord {
	rec := JobRecord{
		ID:        j.id,
		Path:      j.path,
		Lines:     j.line,
		Outcome:   outcome,
		StartedAt: j.started,
		EndedAt:   time.Now(),
	}
	if err != nil {
		rec.Error = err.Error()
	}
	return rec
}

// history keeps the most recent job records, oldest first
type history struct {
	records []JobRecord
	limit   int
}

func (h *history) add(rec JobRecord) {
	h.records = append(h.records, rec)
	if len(h.records) > h.limit {
		h.records = append(h.records[:0:0], h.records[len(h.records)-h.limit:]...)
	}
}

func (h *history) list() []JobRecord {
	out := make([]JobRecord, len(h.records))
	copy(out, h.records)
	return out
}
