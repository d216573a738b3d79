// Package raft is the Consensus Module and Apply Pipeline: leader
// election, log replication, commit-index advancement, and the
// single-consumer loop that applies committed entries into the Chat
// State Machine. Runtime membership change (ConfigChange entries,
// AddNode/RemoveNode) is out of scope and not implemented.
package raft

import (
	"context"
	"fmt"
	"math/rand"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/vzdtic/chat-raft/internal/chaterr"
	"github.com/vzdtic/chat-raft/internal/chatlog"
	"github.com/vzdtic/chat-raft/internal/cluster"
	"github.com/vzdtic/chat-raft/pkg/chatstate"
	"github.com/vzdtic/chat-raft/pkg/wal"
)

// Raft implements the consensus module for one node.
type Raft struct {
	mu      sync.RWMutex
	config  *Config
	state   *NodeState
	wal     *wal.WAL
	csm     *chatstate.Store
	members *cluster.Table

	// commitCh signals the single apply worker goroutine (see applyLoop)
	// that the commit index advanced; it is never read anywhere else, so
	// applyCommittedEntries has exactly one caller and its
	// GetLastApplied -> csm.Apply -> SetLastApplied sequence can't race
	// with itself.
	commitCh  chan struct{}
	shutdownC chan struct{}
	stopOnce  sync.Once

	transport Transport

	pendingMu sync.Mutex
	pending   map[uint64]chan ApplyResult

	heartbeatAckCount int64 // atomic

	rand *rand.Rand

	logger  *chatlog.Logger
	metrics *Collector
}

// New constructs a Raft node, recovering any prior state from disk.
func New(config *Config, transport Transport, csm *chatstate.Store, logger *chatlog.Logger, metrics *Collector) (*Raft, error) {
	walInstance, err := wal.New(config.DataDir)
	if err != nil {
		return nil, fmt.Errorf("create durable store: %w", err)
	}

	if metrics == nil {
		metrics = noopCollector()
	}

	r := &Raft{
		config:    config,
		state:     NewNodeState(),
		wal:       walInstance,
		csm:       csm,
		members:   cluster.NewTable(config.NodeID, config.Peers),
		commitCh:  make(chan struct{}, 1),
		shutdownC: make(chan struct{}),
		transport: transport,
		pending:   make(map[uint64]chan ApplyResult),
		rand:      rand.New(rand.NewSource(time.Now().UnixNano())),
		logger:    logger,
		metrics:   metrics,
	}

	if err := r.recoverState(); err != nil {
		return nil, fmt.Errorf("recover state: %w", err)
	}

	return r, nil
}

func (r *Raft) recoverState() error {
	r.state.SetCurrentTerm(r.wal.GetCurrentTerm())
	r.state.SetVotedFor(r.wal.GetVotedFor())

	snapshot, err := r.wal.LoadSnapshot()
	if err == nil && snapshot != nil {
		if err := r.csm.Restore(snapshot.Data); err != nil {
			return fmt.Errorf("restore snapshot into CSM: %w", err)
		}
		r.state.SetLastApplied(snapshot.Metadata.LastIncludedIndex)
		r.state.SetCommitIndex(snapshot.Metadata.LastIncludedIndex)
	}

	for _, entry := range r.wal.GetAllEntries() {
		if entry.Index > r.state.GetLastApplied() && entry.Index <= r.state.GetCommitIndex() {
			if entry.Type == wal.EntryNormal && len(entry.Command) > 0 {
				if _, err := r.csm.Apply(entry.Command); err != nil {
					r.logger.Printf("failed to apply entry %d during recovery: %v", entry.Index, err)
				}
			}
			r.state.SetLastApplied(entry.Index)
		}
	}

	return nil
}

// Start begins the node's main event loop and its single apply worker.
func (r *Raft) Start() {
	go r.run()
	go r.applyLoop()
}

// applyLoop is the single consumer of commitCh: every commit-index
// advance anywhere in the node (leader replication acks, follower
// AppendEntries) only signals this goroutine rather than calling
// applyCommittedEntries directly, so entries are applied exactly once,
// in order, by one goroutine.
func (r *Raft) applyLoop() {
	for {
		select {
		case <-r.shutdownC:
			return
		case <-r.commitCh:
			r.applyCommittedEntries()
		}
	}
}

// notifyApply wakes applyLoop. The send is non-blocking and the channel
// is buffered 1: a pending signal already means "re-check the commit
// index," so a second signal arriving before it's drained is redundant,
// not lost work.
func (r *Raft) notifyApply() {
	select {
	case r.commitCh <- struct{}{}:
	default:
	}
}

// Stop halts the node. Safe to call more than once.
func (r *Raft) Stop() {
	r.stopOnce.Do(func() {
		close(r.shutdownC)
		r.wal.Close()
	})
}

func (r *Raft) run() {
	for {
		select {
		case <-r.shutdownC:
			return
		default:
		}

		switch r.state.GetState() {
		case Follower:
			r.runFollower()
		case Candidate:
			r.runCandidate()
		case Leader:
			r.runLeader()
		}
	}
}

func (r *Raft) runFollower() {
	timeout := r.randomElectionTimeout()
	r.state.SetElectionTimeout(timeout)
	r.state.SetLastHeartbeat(time.Now())
	r.metrics.IsLeaderGauge.Set(0)

	for r.state.GetState() == Follower {
		select {
		case <-r.shutdownC:
			return
		case <-time.After(10 * time.Millisecond):
			if time.Since(r.state.GetLastHeartbeat()) > r.state.GetElectionTimeout() {
				r.logger.Printf("election timeout, becoming candidate (term %d)", r.state.GetCurrentTerm())
				r.state.SetState(Candidate)
				return
			}
		}
	}
}

func (r *Raft) runCandidate() {
	newTerm := r.state.GetCurrentTerm() + 1
	r.state.SetCurrentTerm(newTerm)
	r.state.SetVotedFor(r.config.NodeID)
	r.persistState()
	r.metrics.Elections.Inc()
	r.metrics.CurrentTerm.Set(float64(newTerm))

	done := make(chan bool, 1)
	go r.startElection(done)

	timer := time.NewTimer(r.randomElectionTimeout())
	defer timer.Stop()

	select {
	case <-r.shutdownC:
		return
	case won := <-done:
		if won {
			r.becomeLeader()
		} else if r.state.GetState() == Candidate {
			r.state.SetState(Follower)
		}
	case <-timer.C:
		r.logger.Printf("election timed out without quorum, retrying")
	}
}

func (r *Raft) startElection(done chan<- bool) {
	peers := r.members.PeerIDs(r.config.NodeID)
	quorum := r.members.Quorum()

	req := &RequestVoteRequest{
		Term:         r.state.GetCurrentTerm(),
		CandidateID:  r.config.NodeID,
		LastLogIndex: r.wal.GetLastIndex(),
		LastLogTerm:  r.wal.GetLastTerm(),
	}

	voteCh := make(chan bool, len(peers))
	votes := 1 // self

	for _, peer := range peers {
		go func(peerID string) {
			ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
			defer cancel()

			resp, err := r.transport.RequestVote(ctx, peerID, req)
			if err != nil {
				voteCh <- false
				return
			}
			if resp.Term > r.state.GetCurrentTerm() {
				r.stepDown(resp.Term)
				voteCh <- false
				return
			}
			voteCh <- resp.VoteGranted
		}(peer)
	}

	for i := 0; i < len(peers); i++ {
		if r.state.GetState() != Candidate {
			done <- false
			return
		}
		if <-voteCh {
			votes++
		}
		if votes >= quorum {
			done <- true
			return
		}
	}
	done <- false
}

func (r *Raft) becomeLeader() {
	r.logger.Printf("became leader (term %d)", r.state.GetCurrentTerm())
	r.state.SetState(Leader)
	r.state.SetLeaderId(r.config.NodeID)
	r.metrics.IsLeaderGauge.Set(1)

	r.state.ResetLeaderState(r.members.PeerIDs(r.config.NodeID), r.wal.GetLastIndex())
	r.appendNoopEntry()
}

func (r *Raft) appendNoopEntry() {
	entry := wal.Entry{
		Term:  r.state.GetCurrentTerm(),
		Index: r.wal.GetLastIndex() + 1,
		Type:  wal.EntryNoop,
	}
	if err := r.wal.AppendEntries([]wal.Entry{entry}); err != nil {
		r.logger.Errorf("failed to append no-op entry: %v", err)
	}
}

func (r *Raft) runLeader() {
	ticker := time.NewTicker(r.config.HeartbeatInterval)
	defer ticker.Stop()

	r.sendHeartbeats()

	for r.state.GetState() == Leader {
		select {
		case <-r.shutdownC:
			return
		case <-ticker.C:
			r.sendHeartbeats()
		}
	}
}

func (r *Raft) sendHeartbeats() {
	peers := r.members.PeerIDs(r.config.NodeID)
	atomic.StoreInt64(&r.heartbeatAckCount, 1) // self

	for _, peer := range peers {
		go r.replicateToFollower(peer)
	}
}

func (r *Raft) replicateToFollower(peerID string) {
	if r.state.GetState() != Leader {
		return
	}

	nextIndex := r.state.GetNextIndex(peerID)
	if nextIndex == 0 {
		nextIndex = 1
	}

	prevLogIndex := nextIndex - 1
	var prevLogTerm uint64
	if prevLogIndex > 0 {
		entry := r.wal.GetEntry(prevLogIndex)
		if entry != nil {
			prevLogTerm = entry.Term
		} else if snap, err := r.wal.LoadSnapshot(); err == nil && snap != nil && snap.Metadata.LastIncludedIndex >= prevLogIndex {
			r.sendSnapshot(peerID, snap)
			return
		}
	}

	entries := r.entriesForReplication(nextIndex)

	req := &AppendEntriesRequest{
		Term:         r.state.GetCurrentTerm(),
		LeaderID:     r.config.NodeID,
		PrevLogIndex: prevLogIndex,
		PrevLogTerm:  prevLogTerm,
		Entries:      entries,
		LeaderCommit: r.state.GetCommitIndex(),
	}

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()

	resp, err := r.transport.AppendEntries(ctx, peerID, req)
	if err != nil {
		return
	}
	if resp.Term > r.state.GetCurrentTerm() {
		r.stepDown(resp.Term)
		return
	}

	if resp.Success {
		atomic.AddInt64(&r.heartbeatAckCount, 1)
		if len(entries) > 0 {
			match := entries[len(entries)-1].Index
			r.state.SetMatchIndex(peerID, match)
			r.state.SetNextIndex(peerID, match+1)
			r.updateCommitIndex()
		}
		return
	}

	if resp.ConflictIndex > 0 {
		r.state.SetNextIndex(peerID, resp.ConflictIndex)
	} else if nextIndex > 1 {
		r.state.SetNextIndex(peerID, nextIndex-1)
	}
}

func (r *Raft) entriesForReplication(start uint64) []LogEntry {
	last := r.wal.GetLastIndex()
	if start > last {
		return nil
	}
	walEntries := r.wal.GetEntries(start, last)
	out := make([]LogEntry, len(walEntries))
	for i, e := range walEntries {
		out[i] = LogEntry{Term: e.Term, Index: e.Index, Command: e.Command, Type: EntryType(e.Type)}
	}
	return out
}

func (r *Raft) sendSnapshot(peerID string, snapshot *wal.Snapshot) {
	req := &InstallSnapshotRequest{
		Term:              r.state.GetCurrentTerm(),
		LeaderID:          r.config.NodeID,
		LastIncludedIndex: snapshot.Metadata.LastIncludedIndex,
		LastIncludedTerm:  snapshot.Metadata.LastIncludedTerm,
		Data:              snapshot.Data,
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	resp, err := r.transport.InstallSnapshot(ctx, peerID, req)
	if err != nil {
		return
	}
	if resp.Term > r.state.GetCurrentTerm() {
		r.stepDown(resp.Term)
		return
	}

	r.state.SetNextIndex(peerID, snapshot.Metadata.LastIncludedIndex+1)
	r.state.SetMatchIndex(peerID, snapshot.Metadata.LastIncludedIndex)
}

// updateCommitIndex advances commitIndex to the highest index replicated on
// a majority of voting members, but only when that index's entry was
// written in the current term — committing a prior-term entry by count
// alone can be un-committed by a later leader (Raft §5.4.2).
func (r *Raft) updateCommitIndex() {
	matchIndices := []uint64{r.wal.GetLastIndex()} // leader's own log
	for _, peer := range r.members.PeerIDs(r.config.NodeID) {
		matchIndices = append(matchIndices, r.state.GetMatchIndex(peer))
	}

	sort.Slice(matchIndices, func(i, j int) bool { return matchIndices[i] > matchIndices[j] })
	newCommitIndex := matchIndices[len(matchIndices)/2]

	if newCommitIndex <= r.state.GetCommitIndex() {
		return
	}
	entry := r.wal.GetEntry(newCommitIndex)
	if entry == nil || entry.Term != r.state.GetCurrentTerm() {
		return
	}

	r.state.SetCommitIndex(newCommitIndex)
	r.notifyApply()
}

func (r *Raft) applyCommittedEntries() {
	commitIndex := r.state.GetCommitIndex()
	lastApplied := r.state.GetLastApplied()

	for lastApplied < commitIndex {
		lastApplied++
		entry := r.wal.GetEntry(lastApplied)
		if entry == nil {
			continue
		}

		var result ApplyResult
		result.Index = entry.Index

		switch wal.EntryType(entry.Type) {
		case wal.EntryNormal:
			if len(entry.Command) > 0 {
				resp, err := r.csm.Apply(entry.Command)
				result.Response = resp
				result.Error = err
			}
		case wal.EntryNoop:
			// resolves any pending ReadIndex barrier waiting on this index
		}

		r.state.SetLastApplied(lastApplied)
		r.metrics.LogSize.Set(float64(r.wal.Size()))

		r.pendingMu.Lock()
		if ch, ok := r.pending[entry.Index]; ok {
			ch <- result
			close(ch)
			delete(r.pending, entry.Index)
		}
		r.pendingMu.Unlock()

		if r.wal.Size() > r.config.SnapshotThreshold {
			go r.takeSnapshot()
		}
	}
}

func (r *Raft) takeSnapshot() {
	data, err := r.csm.Snapshot()
	if err != nil {
		r.logger.Errorf("failed to snapshot CSM: %v", err)
		return
	}

	lastApplied := r.state.GetLastApplied()
	lastEntry := r.wal.GetEntry(lastApplied)
	if lastEntry == nil {
		return
	}

	snapshot := wal.Snapshot{
		Metadata: wal.SnapshotMetadata{LastIncludedIndex: lastApplied, LastIncludedTerm: lastEntry.Term},
		Data:     data,
	}
	if err := r.wal.SaveSnapshot(snapshot); err != nil {
		r.logger.Errorf("failed to save snapshot: %v", err)
	}
}

func (r *Raft) stepDown(term uint64) {
	r.state.SetCurrentTerm(term)
	r.state.SetState(Follower)
	r.state.SetVotedFor("")
	r.persistState()
	r.metrics.CurrentTerm.Set(float64(term))
	r.metrics.IsLeaderGauge.Set(0)
	r.failPendingAsNotLeader()
}

// failPendingAsNotLeader wakes every caller still blocked on a pending
// log entry with a NotLeader error carrying the current leader hint, so
// SubmitCommand/ReadIndex redirect as soon as this node loses
// leadership instead of waiting out their own context deadline.
func (r *Raft) failPendingAsNotLeader() {
	r.pendingMu.Lock()
	defer r.pendingMu.Unlock()

	hint := r.state.GetLeaderId()
	for index, ch := range r.pending {
		ch <- ApplyResult{Error: chaterr.NotLeader(hint)}
		close(ch)
		delete(r.pending, index)
	}
}

func (r *Raft) persistState() {
	if err := r.wal.Save(r.state.GetCurrentTerm(), r.state.GetVotedFor(), r.wal.GetAllEntries()); err != nil {
		r.logger.Errorf("failed to persist state: %v", err)
	}
}

func (r *Raft) randomElectionTimeout() time.Duration {
	span := r.config.ElectionTimeoutMax - r.config.ElectionTimeoutMin
	if span <= 0 {
		return r.config.ElectionTimeoutMin
	}
	return r.config.ElectionTimeoutMin + time.Duration(r.rand.Int63n(int64(span)))
}

// HandleRequestVote implements the RequestVote RPC (§5.2, §5.4).
func (r *Raft) HandleRequestVote(req *RequestVoteRequest) *RequestVoteResponse {
	r.mu.Lock()
	defer r.mu.Unlock()

	resp := &RequestVoteResponse{Term: r.state.GetCurrentTerm()}

	if req.Term < r.state.GetCurrentTerm() {
		return resp
	}
	if req.Term > r.state.GetCurrentTerm() {
		r.stepDown(req.Term)
		resp.Term = req.Term
	}

	votedFor := r.state.GetVotedFor()
	lastLogIndex := r.wal.GetLastIndex()
	lastLogTerm := r.wal.GetLastTerm()

	canVote := votedFor == "" || votedFor == req.CandidateID
	logUpToDate := req.LastLogTerm > lastLogTerm ||
		(req.LastLogTerm == lastLogTerm && req.LastLogIndex >= lastLogIndex)

	if canVote && logUpToDate {
		r.state.SetVotedFor(req.CandidateID)
		r.state.SetLastHeartbeat(time.Now())
		resp.VoteGranted = true
		r.persistState()
	}
	return resp
}

// HandleAppendEntries implements the AppendEntries RPC (§5.3), including
// conflict-index/conflict-term accelerated log backtracking.
func (r *Raft) HandleAppendEntries(req *AppendEntriesRequest) *AppendEntriesResponse {
	r.mu.Lock()
	defer r.mu.Unlock()

	resp := &AppendEntriesResponse{Term: r.state.GetCurrentTerm()}

	if req.Term < r.state.GetCurrentTerm() {
		return resp
	}

	r.state.SetLastHeartbeat(time.Now())
	r.state.SetLeaderId(req.LeaderID)

	if req.Term > r.state.GetCurrentTerm() {
		r.stepDown(req.Term)
		resp.Term = req.Term
	}
	if r.state.GetState() != Follower {
		r.state.SetState(Follower)
	}

	if req.PrevLogIndex > 0 {
		prevEntry := r.wal.GetEntry(req.PrevLogIndex)
		if prevEntry == nil {
			resp.ConflictIndex = r.wal.GetLastIndex() + 1
			return resp
		}
		if prevEntry.Term != req.PrevLogTerm {
			resp.ConflictTerm = prevEntry.Term
			resp.ConflictIndex = req.PrevLogIndex
			for idx := req.PrevLogIndex - 1; idx > 0; idx-- {
				e := r.wal.GetEntry(idx)
				if e == nil || e.Term != resp.ConflictTerm {
					resp.ConflictIndex = idx + 1
					break
				}
				if idx == 1 {
					resp.ConflictIndex = 1
				}
			}
			r.wal.TruncateAfter(req.PrevLogIndex - 1)
			return resp
		}
	}

	if len(req.Entries) > 0 {
		newEntries := make([]wal.Entry, 0, len(req.Entries))
		for _, e := range req.Entries {
			existing := r.wal.GetEntry(e.Index)
			if existing != nil {
				if existing.Term == e.Term {
					continue
				}
				r.wal.TruncateAfter(e.Index - 1)
			}
			newEntries = append(newEntries, wal.Entry{Term: e.Term, Index: e.Index, Command: e.Command, Type: wal.EntryType(e.Type)})
		}
		if len(newEntries) > 0 {
			if err := r.wal.AppendEntries(newEntries); err != nil {
				r.logger.Errorf("failed to append entries: %v", err)
				return resp
			}
		}
	}

	resp.Success = true
	resp.MatchIndex = r.wal.GetLastIndex()

	if req.LeaderCommit > r.state.GetCommitIndex() {
		newCommit := req.LeaderCommit
		if last := r.wal.GetLastIndex(); last < newCommit {
			newCommit = last
		}
		r.state.SetCommitIndex(newCommit)
		r.notifyApply()
	}

	return resp
}

// HandleInstallSnapshot implements the InstallSnapshot RPC.
func (r *Raft) HandleInstallSnapshot(req *InstallSnapshotRequest) *InstallSnapshotResponse {
	r.mu.Lock()
	defer r.mu.Unlock()

	resp := &InstallSnapshotResponse{Term: r.state.GetCurrentTerm()}
	if req.Term < r.state.GetCurrentTerm() {
		return resp
	}
	if req.Term > r.state.GetCurrentTerm() {
		r.stepDown(req.Term)
		resp.Term = req.Term
	}

	r.state.SetLastHeartbeat(time.Now())
	r.state.SetLeaderId(req.LeaderID)

	if err := r.csm.Restore(req.Data); err != nil {
		r.logger.Errorf("failed to restore snapshot into CSM: %v", err)
		return resp
	}

	snapshot := wal.Snapshot{
		Metadata: wal.SnapshotMetadata{LastIncludedIndex: req.LastIncludedIndex, LastIncludedTerm: req.LastIncludedTerm},
		Data:     req.Data,
	}
	if err := r.wal.SaveSnapshot(snapshot); err != nil {
		r.logger.Errorf("failed to save snapshot: %v", err)
	}

	r.state.SetCommitIndex(req.LastIncludedIndex)
	r.state.SetLastApplied(req.LastIncludedIndex)
	return resp
}

// Propose appends command to the log as leader and returns its index plus
// a channel that receives the ApplyResult once committed. Callers not
// currently the leader get an immediate error on the returned channel.
func (r *Raft) Propose(command []byte) (uint64, <-chan ApplyResult) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.state.GetState() != Leader {
		ch := make(chan ApplyResult, 1)
		ch <- ApplyResult{Error: chaterr.NotLeader(r.state.GetLeaderId())}
		close(ch)
		return 0, ch
	}

	index := r.wal.GetLastIndex() + 1
	entry := wal.Entry{Term: r.state.GetCurrentTerm(), Index: index, Command: command, Type: wal.EntryNormal}

	if err := r.wal.AppendEntries([]wal.Entry{entry}); err != nil {
		ch := make(chan ApplyResult, 1)
		ch <- ApplyResult{Error: fmt.Errorf("append entry: %w", err)}
		close(ch)
		return 0, ch
	}

	ch := make(chan ApplyResult, 1)
	r.pendingMu.Lock()
	r.pending[index] = ch
	r.pendingMu.Unlock()

	go r.sendHeartbeats()
	return index, ch
}

// ReadIndex implements a linearizable read barrier: a no-op entry is
// proposed and, once it commits, the node's state machine is guaranteed to
// reflect every write committed before the read began.
func (r *Raft) ReadIndex(ctx context.Context) error {
	r.mu.Lock()
	if r.state.GetState() != Leader {
		hint := r.state.GetLeaderId()
		r.mu.Unlock()
		return chaterr.NotLeader(hint)
	}

	index := r.wal.GetLastIndex() + 1
	entry := wal.Entry{Term: r.state.GetCurrentTerm(), Index: index, Type: wal.EntryNoop}
	if err := r.wal.AppendEntries([]wal.Entry{entry}); err != nil {
		r.mu.Unlock()
		return fmt.Errorf("append read barrier: %w", err)
	}

	ch := make(chan ApplyResult, 1)
	r.pendingMu.Lock()
	r.pending[index] = ch
	r.pendingMu.Unlock()
	r.mu.Unlock()

	go r.sendHeartbeats()

	select {
	case result := <-ch:
		return result.Error
	case <-ctx.Done():
		r.pendingMu.Lock()
		delete(r.pending, index)
		r.pendingMu.Unlock()
		return ctx.Err()
	case <-r.shutdownC:
		return ErrNodeStopped
	}
}

// GetState reports the current term and whether this node believes itself
// to be leader.
func (r *Raft) GetState() (uint64, bool) {
	return r.state.GetCurrentTerm(), r.state.IsLeader()
}

func (r *Raft) GetNodeID() string      { return r.config.NodeID }
func (r *Raft) IsLeader() bool         { return r.state.IsLeader() }
func (r *Raft) GetLeaderID() string    { return r.state.GetLeaderId() }
func (r *Raft) GetCommitIndex() uint64 { return r.state.GetCommitIndex() }
func (r *Raft) GetClusterSize() int    { return r.members.Size() }

// SubmitCommand is the entry point request-routing glue calls: propose an
// already-encoded chatstate.Command and block until it is applied.
func (r *Raft) SubmitCommand(ctx context.Context, raw []byte) (chatstate.Result, error) {
	start := time.Now()
	_, ch := r.Propose(raw)
	select {
	case result := <-ch:
		if result.Error != nil {
			return chatstate.Result{}, result.Error
		}
		r.metrics.CommitLatency.Observe(time.Since(start).Seconds())
		res, _ := result.Response.(chatstate.Result)
		return res, nil
	case <-ctx.Done():
		return chatstate.Result{}, ctx.Err()
	}
}
