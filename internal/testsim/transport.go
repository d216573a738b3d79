// Package testsim is the deterministic-test harness for the consensus
// module: an in-memory transport with partition/heal/latency controls,
// a small cluster builder, and invariant checks run against a live
// cluster's state. An in-memory LocalTransport and invariant-checking
// harness generalized from raw KV commands to chat commands.
package testsim

import (
	"context"
	"sync"
	"time"

	"github.com/vzdtic/chat-raft/pkg/raft"
)

// LocalTransport is an in-process raft.Transport implementation that
// routes RPCs directly to other nodes' handlers registered under the
// same *Network, with optional partitioning and artificial latency —
// deterministic substitutes for pkg/transport/grpcpeer in tests.
type LocalTransport struct {
	nodeID  string
	network *Network
}

// Network is the shared switchboard every node's LocalTransport dials
// through. One Network per simulated cluster.
type Network struct {
	mu        sync.RWMutex
	handlers  map[string]peerHandler
	partition map[string]map[string]bool // nodeID -> set of nodeIDs it cannot reach
	latency   map[string]time.Duration
}

type peerHandler interface {
	HandleRequestVote(*raft.RequestVoteRequest) *raft.RequestVoteResponse
	HandleAppendEntries(*raft.AppendEntriesRequest) *raft.AppendEntriesResponse
	HandleInstallSnapshot(*raft.InstallSnapshotRequest) *raft.InstallSnapshotResponse
}

// NewNetwork builds an empty switchboard.
func NewNetwork() *Network {
	return &Network{
		handlers:  make(map[string]peerHandler),
		partition: make(map[string]map[string]bool),
		latency:   make(map[string]time.Duration),
	}
}

// Register returns a raft.Transport bound to this network for nodeID to
// dial peers with. Call Attach once the node itself exists, since the
// node is its own RPC handler and can't be constructed before its
// transport.
func (n *Network) Register(nodeID string) *LocalTransport {
	return &LocalTransport{nodeID: nodeID, network: n}
}

// Attach registers the node that will answer inbound RPCs addressed to
// nodeID.
func (n *Network) Attach(nodeID string, handler peerHandler) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.handlers[nodeID] = handler
}

// Partition cuts communication from->to in one direction; call it both
// ways to fully isolate a node.
func (n *Network) Partition(from, to string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.partition[from] == nil {
		n.partition[from] = make(map[string]bool)
	}
	n.partition[from][to] = true
}

// Heal reverses a prior Partition call.
func (n *Network) Heal(from, to string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.partition[from] != nil {
		delete(n.partition[from], to)
	}
}

// Isolate partitions nodeID from every other registered node, in both
// directions.
func (n *Network) Isolate(nodeID string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	for peer := range n.handlers {
		if peer == nodeID {
			continue
		}
		if n.partition[nodeID] == nil {
			n.partition[nodeID] = make(map[string]bool)
		}
		n.partition[nodeID][peer] = true
		if n.partition[peer] == nil {
			n.partition[peer] = make(map[string]bool)
		}
		n.partition[peer][nodeID] = true
	}
}

// HealAll clears every partition in the network.
func (n *Network) HealAll() {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.partition = make(map[string]map[string]bool)
}

// SetLatency adds an artificial delay to every RPC from->to.
func (n *Network) SetLatency(from, to string, d time.Duration) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.latency[from+"->"+to] = d
}

func (n *Network) blocked(from, to string) bool {
	n.mu.RLock()
	defer n.mu.RUnlock()
	return n.partition[from][to]
}

func (n *Network) delay(from, to string) time.Duration {
	n.mu.RLock()
	defer n.mu.RUnlock()
	return n.latency[from+"->"+to]
}

func (n *Network) handlerFor(id string) (peerHandler, bool) {
	n.mu.RLock()
	defer n.mu.RUnlock()
	h, ok := n.handlers[id]
	return h, ok
}

func (t *LocalTransport) wait(ctx context.Context, target string) error {
	d := t.network.delay(t.nodeID, target)
	if d <= 0 {
		return nil
	}
	select {
	case <-time.After(d):
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (t *LocalTransport) RequestVote(ctx context.Context, target string, req *raft.RequestVoteRequest) (*raft.RequestVoteResponse, error) {
	if t.network.blocked(t.nodeID, target) {
		return nil, context.DeadlineExceeded
	}
	if err := t.wait(ctx, target); err != nil {
		return nil, err
	}
	h, ok := t.network.handlerFor(target)
	if !ok {
		return nil, context.DeadlineExceeded
	}
	return h.HandleRequestVote(req), nil
}

func (t *LocalTransport) AppendEntries(ctx context.Context, target string, req *raft.AppendEntriesRequest) (*raft.AppendEntriesResponse, error) {
	if t.network.blocked(t.nodeID, target) {
		return nil, context.DeadlineExceeded
	}
	if err := t.wait(ctx, target); err != nil {
		return nil, err
	}
	h, ok := t.network.handlerFor(target)
	if !ok {
		return nil, context.DeadlineExceeded
	}
	return h.HandleAppendEntries(req), nil
}

func (t *LocalTransport) InstallSnapshot(ctx context.Context, target string, req *raft.InstallSnapshotRequest) (*raft.InstallSnapshotResponse, error) {
	if t.network.blocked(t.nodeID, target) {
		return nil, context.DeadlineExceeded
	}
	if err := t.wait(ctx, target); err != nil {
		return nil, err
	}
	h, ok := t.network.handlerFor(target)
	if !ok {
		return nil, context.DeadlineExceeded
	}
	return h.HandleInstallSnapshot(req), nil
}
