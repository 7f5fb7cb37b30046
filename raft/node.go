// Package raft replicates axis settings across controllers with hashicorp/raft.
package raft

import (
	"errors"
	"fmt"
	"io"
	"net"
	"os"
	"path/filepath"
	"time"

	"github.com/hashicorp/go-hclog"
	"github.com/hashicorp/raft"
	raftboltdb "github.com/hashicorp/raft-boltdb/v2"
)

// ErrNotLeader is returned for writes on a follower
var ErrNotLeader = errors.New("not the raft leader")

const applyTimeout = 5 * time.Second

// Node represents a node in the Raft cluster
type Node struct {
	id        string
	raft      *raft.Raft
	fsm       *FSM
	transport raft.Transport
	closers   []io.Closer
}

// Config represents the configuration for a Raft node
type Config struct {
	NodeID    string
	RaftAddr  string
	RaftDir   string
	Bootstrap bool
	Logger    hclog.Logger
}

// NewNode creates a node persisting its log in BoltDB under RaftDir and
// talking to peers over TCP
func NewNode(config *Config) (*Node, error) {
	logger := config.Logger
	if logger == nil {
		logger = hclog.NewNullLogger()
	}
	if err := os.MkdirAll(config.RaftDir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create raft directory: %w", err)
	}

	logStore, err := raftboltdb.NewBoltStore(filepath.Join(config.RaftDir, "raft-log.db"))
	if err != nil {
		return nil, fmt.Errorf("failed to create BoltDB log store: %w", err)
	}

	stableStore, err := raftboltdb.NewBoltStore(filepath.Join(config.RaftDir, "raft-stable.db"))
	if err != nil {
		logStore.Close()
		return nil, fmt.Errorf("failed to create BoltDB stable store: %w", err)
	}

	snapshotStore, err := raft.NewFileSnapshotStoreWithLogger(config.RaftDir, 3, logger.Named("snapshot"))
	if err != nil {
		logStore.Close()
		stableStore.Close()
		return nil, fmt.Errorf("failed to create snapshot store: %w", err)
	}

	addr, err := net.ResolveTCPAddr("tcp", config.RaftAddr)
	if err != nil {
		logStore.Close()
		stableStore.Close()
		return nil, fmt.Errorf("failed to resolve TCP address: %w", err)
	}
	transport, err := raft.NewTCPTransportWithLogger(config.RaftAddr, addr, 3, 10*time.Second, logger.Named("transport"))
	if err != nil {
		logStore.Close()
		stableStore.Close()
		return nil, fmt.Errorf("failed to create TCP transport: %w", err)
	}

	raftConfig := raft.DefaultConfig()
	raftConfig.SnapshotInterval = 20 * time.Second
	raftConfig.SnapshotThreshold = 1024

	n, err := newNode(config, raftConfig, logStore, stableStore, snapshotStore, transport)
	if err != nil {
		transport.Close()
		logStore.Close()
		stableStore.Close()
		return nil, err
	}
	n.closers = append(n.closers, logStore, stableStore)
	return n, nil
}

func newNode(config *Config, raftConfig *raft.Config, logs raft.LogStore, stable raft.StableStore,
	snapshots raft.SnapshotStore, transport raft.Transport) (*Node, error) {
	logger := config.Logger
	if logger == nil {
		logger = hclog.NewNullLogger()
	}
	raftConfig.LocalID = raft.ServerID(config.NodeID)
	raftConfig.Logger = logger.Named("raft")

	fsm := NewFSM()
	r, err := raft.NewRaft(raftConfig, fsm, logs, stable, snapshots, transport)
	if err != nil {
		return nil, fmt.Errorf("failed to create Raft instance: %w", err)
	}

	if config.Bootstrap {
		configuration := raft.Configuration{
			Servers: []raft.Server{
				{
					ID:      raft.ServerID(config.NodeID),
					Address: transport.LocalAddr(),
				},
			},
		}
		f := r.BootstrapCluster(configuration)
		if err := f.Error(); err != nil && !errors.Is(err, raft.ErrCantBootstrap) {
			r.Shutdown()
			return nil, fmt.Errorf("failed to bootstrap cluster: %w", err)
		}
	}

	return &Node{
		id:        config.NodeID,
		raft:      r,
		fsm:       fsm,
		transport: transport,
	}, nil
}

// Apply applies a command to the Raft log
func (n *Node) Apply(cmd *Command) error {
	if !n.Leader() {
		return fmt.Errorf("%w: leader is %q", ErrNotLeader, n.LeaderAddress())
	}

	data, err := cmd.Marshal()
	if err != nil {
		return fmt.Errorf("failed to marshal command: %w", err)
	}

	future := n.raft.Apply(data, applyTimeout)
	if err := future.Error(); err != nil {
		return fmt.Errorf("failed to apply command to Raft log: %w", err)
	}
	if appErr, ok := future.Response().(error); ok && appErr != nil {
		return fmt.Errorf("command application failed: %w", appErr)
	}
	return nil
}

// Join adds a voter to the cluster. Only the leader can do this.
func (n *Node) Join(nodeID, addr string) error {
	if !n.Leader() {
		return ErrNotLeader
	}
	future := n.raft.AddVoter(raft.ServerID(nodeID), raft.ServerAddress(addr), 0, 0)
	if err := future.Error(); err != nil {
		return fmt.Errorf("failed to add node: %w", err)
	}
	return nil
}

// Leave removes a server from the cluster. Only the leader can do this.
func (n *Node) Leave(nodeID string) error {
	if !n.Leader() {
		return ErrNotLeader
	}
	future := n.raft.RemoveServer(raft.ServerID(nodeID), 0, 0)
	if err := future.Error(); err != nil {
		return fmt.Errorf("failed to remove node: %w", err)
	}
	return nil
}

// GetFSM returns the FSM
func (n *Node) GetFSM() *FSM {
	return n.fsm
}

// ID returns the server id of this node
func (n *Node) ID() string {
	return n.id
}

// Leader returns true if this node is the leader
func (n *Node) Leader() bool {
	return n.raft.State() == raft.Leader
}

// LeaderAddress returns the address of the current leader
func (n *Node) LeaderAddress() string {
	addr, _ := n.raft.LeaderWithID()
	return string(addr)
}

// State returns the current state of the Raft node
func (n *Node) State() raft.RaftState {
	return n.raft.State()
}

// WaitForLeader blocks until the cluster has a leader or timeout passes
func (n *Node) WaitForLeader(timeout time.Duration) error {
	deadline := time.After(timeout)
	ticker := time.NewTicker(10 * time.Millisecond)
	defer ticker.Stop()

	for {
		if n.LeaderAddress() != "" {
			return nil
		}
		select {
		case <-ticker.C:
		case <-deadline:
			return fmt.Errorf("no leader elected within %s", timeout)
		}
	}
}

// Barrier waits until every committed entry is applied to the FSM.
// Only the leader can issue it.
func (n *Node) Barrier(timeout time.Duration) error {
	if err := n.raft.Barrier(timeout).Error(); err != nil {
		return fmt.Errorf("raft barrier: %w", err)
	}
	return nil
}

// Shutdown stops the Raft node and closes its stores
func (n *Node) Shutdown() error {
	var err error
	if n.raft != nil {
		err = n.raft.Shutdown().Error()
	}
	if c, ok := n.transport.(io.Closer); ok {
		c.Close()
	}
	for _, c := range n.closers {
		c.Close()
	}
	return err
}
