package raft

import (
	"context"

	"github.com/devadigapratham/printd/axis"
)

// Store persists axis settings through the replicated log. Reads are served
// from the local FSM, writes must go through the leader.
type Store struct {
	node *Node
}

// NewStore creates a settings store on node
func NewStore(node *Node) *Store {
	return &Store{node: node}
}

// Load returns the replicated settings of an axis
func (s *Store) Load(ctx context.Context, id axis.ID) (axis.Settings, error) {
	if err := ctx.Err(); err != nil {
		return axis.Settings{}, err
	}
	settings, ok := s.node.GetFSM().Get(id)
	if !ok {
		return axis.Settings{}, axis.ErrNotStored
	}
	return settings, nil
}

// Save commits the settings of an axis to the cluster
func (s *Store) Save(ctx context.Context, id axis.ID, settings axis.Settings) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return s.node.Apply(&Command{
		Type:     SaveSettings,
		Axis:     id,
		Settings: settings,
	})
}

// Watch calls fn with every settings value committed by the cluster,
// then once for each axis already in the table
func (s *Store) Watch(fn func(axis.ID, axis.Settings)) {
	fsm := s.node.GetFSM()
	fsm.OnChange(fn)
	for _, id := range axis.IDs() {
		if settings, ok := fsm.Get(id); ok {
			fn(id, settings)
		}
	}
}

// Close shuts the node down
func (s *Store) Close() error {
	return s.node.Shutdown()
}
