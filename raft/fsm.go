package raft

import (
	"encoding/json"
	"fmt"
	"io"
	"sync"

	"github.com/devadigapratham/printd/axis"
	"github.com/hashicorp/raft"
)

// CommandType names a replicated operation
type CommandType string

const (
	// SaveSettings replaces the settings of one axis
	SaveSettings CommandType = "save_settings"
)

// Command is one entry of the replicated log
type Command struct {
	Type     CommandType   `json:"type"`
	Axis     axis.ID       `json:"axis"`
	Settings axis.Settings `json:"settings"`
}

// Marshal encodes the command for the log
func (c *Command) Marshal() ([]byte, error) {
	return json.Marshal(c)
}

// FSM is the replicated axis settings table
type FSM struct {
	mu       sync.RWMutex
	settings map[axis.ID]axis.Settings
	onChange func(axis.ID, axis.Settings)
}

// OnChange registers fn to be called with every settings value the FSM
// applies or restores. fn runs on the raft apply goroutine and must not
// write to the cluster.
func (f *FSM) OnChange(fn func(axis.ID, axis.Settings)) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.onChange = fn
}

// NewFSM creates an empty settings table
func NewFSM() *FSM {
	return &FSM{
		settings: make(map[axis.ID]axis.Settings),
	}
}

// Apply applies a Raft log entry to the FSM
func (f *FSM) Apply(log *raft.Log) interface{} {
	var cmd Command
	if err := json.Unmarshal(log.Data, &cmd); err != nil {
		return fmt.Errorf("failed to unmarshal command: %w", err)
	}

	switch cmd.Type {
	case SaveSettings:
		if _, err := axis.ParseID(string(cmd.Axis)); err != nil {
			return err
		}
		if err := cmd.Settings.Validate(); err != nil {
			return err
		}
		f.mu.Lock()
		f.settings[cmd.Axis] = cmd.Settings
		notify := f.onChange
		f.mu.Unlock()

		if notify != nil {
			notify(cmd.Axis, cmd.Settings)
		}
		return nil

	default:
		return fmt.Errorf("unknown command type: %s", cmd.Type)
	}
}

// Get returns the replicated settings of an axis
func (f *FSM) Get(id axis.ID) (axis.Settings, bool) {
	f.mu.RLock()
	defer f.mu.RUnlock()

	s, ok := f.settings[id]
	return s, ok
}

// Snapshot returns a snapshot of the FSM state
func (f *FSM) Snapshot() (raft.FSMSnapshot, error) {
	f.mu.RLock()
	defer f.mu.RUnlock()

	settings := make(map[axis.ID]axis.Settings, len(f.settings))
	for k, v := range f.settings {
		settings[k] = v
	}
	return &fsmSnapshot{Settings: settings}, nil
}

// Restore replaces the FSM state with a snapshot
func (f *FSM) Restore(rc io.ReadCloser) error {
	defer rc.Close()

	var snapshot fsmSnapshot
	if err := json.NewDecoder(rc).Decode(&snapshot); err != nil {
		return fmt.Errorf("decode snapshot: %w", err)
	}
	if snapshot.Settings == nil {
		snapshot.Settings = make(map[axis.ID]axis.Settings)
	}

	f.mu.Lock()
	f.settings = snapshot.Settings
	notify := f.onChange
	f.mu.Unlock()

	if notify != nil {
		for id, settings := range snapshot.Settings {
			notify(id, settings)
		}
	}
	return nil
}

// fsmSnapshot implements the raft.FSMSnapshot interface
type fsmSnapshot struct {
	Settings map[axis.ID]axis.Settings `json:"settings"`
}

// Persist saves the snapshot to the provided sink
func (s *fsmSnapshot) Persist(sink raft.SnapshotSink) error {
	err := func() error {
		if err := json.NewEncoder(sink).Encode(s); err != nil {
			return err
		}
		return sink.Close()
	}()

	if err != nil {
		sink.Cancel()
		return err
	}
	return nil
}

// Release is a no-op
func (s *fsmSnapshot) Release() {}
