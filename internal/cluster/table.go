// Package cluster is the static peer table: a fixed-at-start voting
// membership with quorum-size bookkeeping. Runtime membership change is
// out of scope: the table is populated once by NewTable and has no
// add/remove operations. Its quorum math is exercised live by pkg/raft's
// elections.
package cluster

import "sync"

// Member is one participant in the fixed cluster.
type Member struct {
	ID        string
	PeerAddr  string
	Voting    bool
}

// Table is the read-mostly membership set consensus and RPC code consult.
type Table struct {
	mu      sync.RWMutex
	members map[string]Member
}

// NewTable builds a Table from a nodeID->peerAddr map plus the local node.
func NewTable(selfID string, peers map[string]string) *Table {
	t := &Table{members: make(map[string]Member)}
	t.members[selfID] = Member{ID: selfID, Voting: true}
	for id, addr := range peers {
		t.members[id] = Member{ID: id, PeerAddr: addr, Voting: true}
	}
	return t
}

// Members returns a snapshot of all members.
func (t *Table) Members() []Member {
	t.mu.RLock()
	defer t.mu.RUnlock()

	out := make([]Member, 0, len(t.members))
	for _, m := range t.members {
		out = append(out, m)
	}
	return out
}

// PeerIDs returns every voting member ID other than self.
func (t *Table) PeerIDs(selfID string) []string {
	t.mu.RLock()
	defer t.mu.RUnlock()

	out := make([]string, 0, len(t.members))
	for id, m := range t.members {
		if id != selfID && m.Voting {
			out = append(out, id)
		}
	}
	return out
}

// Address returns the peer address for id, if known.
func (t *Table) Address(id string) (string, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	m, ok := t.members[id]
	return m.PeerAddr, ok
}

// Size returns the total voting membership count.
func (t *Table) Size() int {
	t.mu.RLock()
	defer t.mu.RUnlock()

	n := 0
	for _, m := range t.members {
		if m.Voting {
			n++
		}
	}
	return n
}

// Quorum returns the majority size for the current voting membership.
func (t *Table) Quorum() int {
	return t.Size()/2 + 1
}
