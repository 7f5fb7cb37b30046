package raft

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// Transport carries cluster membership requests over HTTP
type Transport struct {
	node   *Node
	client *http.Client
}

// NewTransport creates a new Transport
func NewTransport(node *Node) *Transport {
	return &Transport{
		node:   node,
		client: &http.Client{Timeout: 5 * time.Second},
	}
}

type joinRequest struct {
	NodeID   string `json:"node_id"`
	NodeAddr string `json:"node_addr"`
}

type leaveRequest struct {
	NodeID string `json:"node_id"`
}

// JoinCluster asks the node serving HTTP at leaderURL to add this node
func (t *Transport) JoinCluster(ctx context.Context, leaderURL, nodeID, nodeAddr string) error {
	return t.post(ctx, leaderURL, "/raft/join", joinRequest{NodeID: nodeID, NodeAddr: nodeAddr})
}

// LeaveCluster asks the node serving HTTP at leaderURL to remove nodeID
func (t *Transport) LeaveCluster(ctx context.Context, leaderURL, nodeID string) error {
	return t.post(ctx, leaderURL, "/raft/leave", leaveRequest{NodeID: nodeID})
}

func (t *Transport) post(ctx context.Context, baseURL, path string, payload interface{}) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, strings.TrimRight(baseURL, "/")+path, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := t.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return fmt.Errorf("received non-success response %d: %s", resp.StatusCode, strings.TrimSpace(string(msg)))
	}
	return nil
}

// RaftHandler serves /raft/join and /raft/leave
func (t *Transport) RaftHandler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("/raft/join", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}

		var req joinRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, fmt.Sprintf("Failed to decode request: %v", err), http.StatusBadRequest)
			return
		}
		if req.NodeID == "" || req.NodeAddr == "" {
			http.Error(w, "node_id and node_addr are required", http.StatusBadRequest)
			return
		}

		if err := t.node.Join(req.NodeID, req.NodeAddr); err != nil {
			writeMembershipError(w, err)
			return
		}
		w.WriteHeader(http.StatusOK)
	})

	mux.HandleFunc("/raft/leave", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}

		var req leaveRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, fmt.Sprintf("Failed to decode request: %v", err), http.StatusBadRequest)
			return
		}
		if req.NodeID == "" {
			http.Error(w, "node_id is required", http.StatusBadRequest)
			return
		}

		if err := t.node.Leave(req.NodeID); err != nil {
			writeMembershipError(w, err)
			return
		}
		w.WriteHeader(http.StatusOK)
	})

	return mux
}

func writeMembershipError(w http.ResponseWriter, err error) {
	if errors.Is(err, ErrNotLeader) {
		http.Error(w, "Not the leader", http.StatusConflict)
		return
	}
	http.Error(w, err.Error(), http.StatusInternalServerError)
}
