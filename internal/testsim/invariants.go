package testsim

import "fmt"

// InvariantChecker runs safety checks against a live cluster: at most one
// leader per term, commit indexes that never move backwards, and agreement
// on cluster size. It does not compare log entries or the applied state's
// contents across nodes.
type InvariantChecker struct {
	cluster *Cluster
}

// NewInvariantChecker builds a checker bound to cluster.
func NewInvariantChecker(cluster *Cluster) *InvariantChecker {
	return &InvariantChecker{cluster: cluster}
}

// CheckElectionSafety verifies at most one node believes itself leader
// for any given term.
func (c *InvariantChecker) CheckElectionSafety() error {
	leadersByTerm := make(map[uint64][]string)
	for id, n := range c.cluster.Nodes {
		if n.Raft.IsLeader() {
			term, _ := n.Raft.GetState()
			leadersByTerm[term] = append(leadersByTerm[term], id)
		}
	}
	for term, leaders := range leadersByTerm {
		if len(leaders) > 1 {
			return fmt.Errorf("election safety violated: term %d has multiple leaders: %v", term, leaders)
		}
	}
	return nil
}

// CheckCommitMonotonic verifies every node's commit index only moves
// forward between two observations a and b of the same node set.
func (c *InvariantChecker) CheckCommitMonotonic(prev map[string]uint64) (map[string]uint64, error) {
	current := make(map[string]uint64, len(c.cluster.Nodes))
	for id, n := range c.cluster.Nodes {
		idx := n.Raft.GetCommitIndex()
		current[id] = idx
		if prevIdx, ok := prev[id]; ok && idx < prevIdx {
			return current, fmt.Errorf("commit index regressed on %s: %d -> %d", id, prevIdx, idx)
		}
	}
	return current, nil
}

// CheckQuorumSize verifies every node's view of cluster size agrees —
// a guard against the membership table silently diverging, which would
// be possible if this module ever grew runtime membership change.
func (c *InvariantChecker) CheckQuorumSize() error {
	var want int
	first := true
	for id, n := range c.cluster.Nodes {
		size := n.Raft.GetClusterSize()
		if first {
			want = size
			first = false
			continue
		}
		if size != want {
			return fmt.Errorf("cluster size view diverged: %s sees %d, expected %d", id, size, want)
		}
	}
	return nil
}
