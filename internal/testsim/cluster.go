package testsim

import (
	"fmt"
	"io"
	"testing"
	"time"

	"github.com/vzdtic/chat-raft/internal/chatlog"
	"github.com/vzdtic/chat-raft/pkg/chatstate"
	"github.com/vzdtic/chat-raft/pkg/raft"
)

// Node bundles one simulated cluster member's consensus module, state
// machine, and transport, for tests that need to reach past raft.Raft's
// public surface (e.g. to inspect the CSM directly).
type Node struct {
	ID        string
	Raft      *raft.Raft
	CSM       *chatstate.Store
	Transport *LocalTransport
}

// Cluster is a set of in-memory nodes sharing one Network, for
// election/replication/fault-injection tests.
type Cluster struct {
	Network *Network
	Nodes   map[string]*Node
}

// NewCluster builds a size-node cluster rooted at separate temp
// directories, with fast timers suited to unit tests.
func NewCluster(t testing.TB, size int) *Cluster {
	t.Helper()

	network := NewNetwork()
	peers := make(map[string]string)
	ids := make([]string, size)
	for i := 0; i < size; i++ {
		ids[i] = fmt.Sprintf("node-%d", i+1)
		peers[ids[i]] = ids[i] // address is just the ID; LocalTransport ignores it
	}

	c := &Cluster{Network: network, Nodes: make(map[string]*Node)}

	for _, id := range ids {
		peerSet := make(map[string]string)
		for otherID, addr := range peers {
			if otherID != id {
				peerSet[otherID] = addr
			}
		}

		cfg := raft.DefaultConfig(id)
		cfg.Peers = peerSet
		cfg.DataDir = t.TempDir()
		cfg.ElectionTimeoutMin = 40 * time.Millisecond
		cfg.ElectionTimeoutMax = 80 * time.Millisecond
		cfg.HeartbeatInterval = 10 * time.Millisecond

		transport := network.Register(id)
		csm := chatstate.New()
		logger := chatlog.New(io.Discard, id, "testsim")

		node, err := raft.New(cfg, transport, csm, logger, nil)
		if err != nil {
			t.Fatalf("create node %s: %v", id, err)
		}
		network.Attach(id, node)

		c.Nodes[id] = &Node{ID: id, Raft: node, CSM: csm, Transport: transport}
	}

	return c
}

// Start launches every node's event loop.
func (c *Cluster) Start() {
	for _, n := range c.Nodes {
		n.Raft.Start()
	}
}

// Stop halts every node.
func (c *Cluster) Stop() {
	for _, n := range c.Nodes {
		n.Raft.Stop()
	}
}

// Leader returns the first node that currently believes itself leader,
// or nil if none does.
func (c *Cluster) Leader() *Node {
	for _, n := range c.Nodes {
		if n.Raft.IsLeader() {
			return n
		}
	}
	return nil
}

// AwaitLeader polls until a single leader emerges or timeout elapses.
func AwaitLeader(t testing.TB, c *Cluster, timeout time.Duration) *Node {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if l := c.Leader(); l != nil {
			return l
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("no leader elected within %s", timeout)
	return nil
}
