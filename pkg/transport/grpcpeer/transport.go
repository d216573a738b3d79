// Package grpcpeer is the Consensus Module's real peer RPC transport: a
// dial-cache client keyed by node ID plus a server adapter forwarding to
// *raft.Raft, speaking the api/chatpb wire contract.
package grpcpeer

import (
	"context"
	"fmt"
	"net"
	"sync"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"

	"github.com/vzdtic/chat-raft/api/chatpb"
	"github.com/vzdtic/chat-raft/pkg/raft"
)

// Handler is implemented by *raft.Raft; kept as an interface so this
// package doesn't force a single consensus-module type on callers in
// tests.
type Handler interface {
	HandleRequestVote(*raft.RequestVoteRequest) *raft.RequestVoteResponse
	HandleAppendEntries(*raft.AppendEntriesRequest) *raft.AppendEntriesResponse
	HandleInstallSnapshot(*raft.InstallSnapshotRequest) *raft.InstallSnapshotResponse
}

// Transport implements raft.Transport over gRPC, and also hosts the
// server side of the Peer service for incoming RPCs.
type Transport struct {
	mu          sync.RWMutex
	localAddr   string
	handler     Handler
	server      *grpc.Server
	listener    net.Listener
	connections map[string]*grpc.ClientConn
	clients     map[string]chatpb.PeerServiceClient
	peerAddrs   map[string]string
	timeout     time.Duration
}

// New builds a Transport that will listen on localAddr and dial peerAddrs
// (nodeID -> address) lazily on first use.
func New(localAddr string, peerAddrs map[string]string) *Transport {
	return &Transport{
		localAddr:   localAddr,
		connections: make(map[string]*grpc.ClientConn),
		clients:     make(map[string]chatpb.PeerServiceClient),
		peerAddrs:   peerAddrs,
		timeout:     5 * time.Second,
	}
}

// SetHandler attaches the consensus module this transport serves RPCs
// into. Must be called before Start.
func (t *Transport) SetHandler(h Handler) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.handler = h
}

// Start opens the listening socket and begins serving the Peer service.
func (t *Transport) Start() error {
	listener, err := net.Listen("tcp", t.localAddr)
	if err != nil {
		return fmt.Errorf("peer transport listen: %w", err)
	}
	t.listener = listener

	t.server = grpc.NewServer()
	chatpb.RegisterPeerServiceServer(t.server, &peerServer{t: t})

	go func() {
		_ = t.server.Serve(listener)
	}()
	return nil
}

// Stop closes all dialed connections and gracefully stops the server.
func (t *Transport) Stop() {
	t.mu.Lock()
	defer t.mu.Unlock()

	for _, conn := range t.connections {
		conn.Close()
	}
	if t.server != nil {
		t.server.GracefulStop()
	}
	if t.listener != nil {
		t.listener.Close()
	}
}

func (t *Transport) getClient(target string) (chatpb.PeerServiceClient, error) {
	t.mu.RLock()
	if client, ok := t.clients[target]; ok {
		t.mu.RUnlock()
		return client, nil
	}
	t.mu.RUnlock()

	t.mu.Lock()
	defer t.mu.Unlock()

	if client, ok := t.clients[target]; ok {
		return client, nil
	}

	addr, ok := t.peerAddrs[target]
	if !ok {
		return nil, fmt.Errorf("unknown peer: %s", target)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	conn, err := grpc.DialContext(ctx, addr,
		grpc.WithTransportCredentials(insecure.NewCredentials()),
		grpc.WithBlock(),
	)
	if err != nil {
		return nil, fmt.Errorf("dial peer %s at %s: %w", target, addr, err)
	}

	client := chatpb.NewPeerServiceClient(conn)
	t.connections[target] = conn
	t.clients[target] = client
	return client, nil
}

// --- raft.Transport (client side) ---

func (t *Transport) RequestVote(ctx context.Context, target string, req *raft.RequestVoteRequest) (*raft.RequestVoteResponse, error) {
	client, err := t.getClient(target)
	if err != nil {
		return nil, err
	}
	resp, err := client.RequestVote(ctx, &chatpb.RequestVoteRequest{
		Term:         req.Term,
		CandidateID:  req.CandidateID,
		LastLogIndex: req.LastLogIndex,
		LastLogTerm:  req.LastLogTerm,
	})
	if err != nil {
		return nil, err
	}
	return &raft.RequestVoteResponse{Term: resp.Term, VoteGranted: resp.VoteGranted}, nil
}

func (t *Transport) AppendEntries(ctx context.Context, target string, req *raft.AppendEntriesRequest) (*raft.AppendEntriesResponse, error) {
	client, err := t.getClient(target)
	if err != nil {
		return nil, err
	}

	entries := make([]chatpb.LogEntry, len(req.Entries))
	for i, e := range req.Entries {
		entries[i] = chatpb.LogEntry{Term: e.Term, Index: e.Index, Command: e.Command, Type: int32(e.Type)}
	}

	resp, err := client.AppendEntries(ctx, &chatpb.AppendEntriesRequest{
		Term:         req.Term,
		LeaderID:     req.LeaderID,
		PrevLogIndex: req.PrevLogIndex,
		PrevLogTerm:  req.PrevLogTerm,
		Entries:      entries,
		LeaderCommit: req.LeaderCommit,
	})
	if err != nil {
		return nil, err
	}
	return &raft.AppendEntriesResponse{
		Term:          resp.Term,
		Success:       resp.Success,
		MatchIndex:    resp.MatchIndex,
		ConflictIndex: resp.ConflictIndex,
		ConflictTerm:  resp.ConflictTerm,
	}, nil
}

func (t *Transport) InstallSnapshot(ctx context.Context, target string, req *raft.InstallSnapshotRequest) (*raft.InstallSnapshotResponse, error) {
	client, err := t.getClient(target)
	if err != nil {
		return nil, err
	}
	resp, err := client.InstallSnapshot(ctx, &chatpb.InstallSnapshotRequest{
		Term:              req.Term,
		LeaderID:          req.LeaderID,
		LastIncludedIndex: req.LastIncludedIndex,
		LastIncludedTerm:  req.LastIncludedTerm,
		Data:              req.Data,
	})
	if err != nil {
		return nil, err
	}
	return &raft.InstallSnapshotResponse{Term: resp.Term}, nil
}

// --- server side ---

type peerServer struct {
	t *Transport
}

func (s *peerServer) RequestVote(ctx context.Context, req *chatpb.RequestVoteRequest) (*chatpb.RequestVoteResponse, error) {
	s.t.mu.RLock()
	h := s.t.handler
	s.t.mu.RUnlock()
	if h == nil {
		return nil, fmt.Errorf("peer transport: no handler attached")
	}

	resp := h.HandleRequestVote(&raft.RequestVoteRequest{
		Term:         req.Term,
		CandidateID:  req.CandidateID,
		LastLogIndex: req.LastLogIndex,
		LastLogTerm:  req.LastLogTerm,
	})
	return &chatpb.RequestVoteResponse{Term: resp.Term, VoteGranted: resp.VoteGranted}, nil
}

func (s *peerServer) AppendEntries(ctx context.Context, req *chatpb.AppendEntriesRequest) (*chatpb.AppendEntriesResponse, error) {
	s.t.mu.RLock()
	h := s.t.handler
	s.t.mu.RUnlock()
	if h == nil {
		return nil, fmt.Errorf("peer transport: no handler attached")
	}

	entries := make([]raft.LogEntry, len(req.Entries))
	for i, e := range req.Entries {
		entries[i] = raft.LogEntry{Term: e.Term, Index: e.Index, Command: e.Command, Type: raft.EntryType(e.Type)}
	}

	resp := h.HandleAppendEntries(&raft.AppendEntriesRequest{
		Term:         req.Term,
		LeaderID:     req.LeaderID,
		PrevLogIndex: req.PrevLogIndex,
		PrevLogTerm:  req.PrevLogTerm,
		Entries:      entries,
		LeaderCommit: req.LeaderCommit,
	})
	return &chatpb.AppendEntriesResponse{
		Term:          resp.Term,
		Success:       resp.Success,
		MatchIndex:    resp.MatchIndex,
		ConflictIndex: resp.ConflictIndex,
		ConflictTerm:  resp.ConflictTerm,
	}, nil
}

func (s *peerServer) InstallSnapshot(ctx context.Context, req *chatpb.InstallSnapshotRequest) (*chatpb.InstallSnapshotResponse, error) {
	s.t.mu.RLock()
	h := s.t.handler
	s.t.mu.RUnlock()
	if h == nil {
		return nil, fmt.Errorf("peer transport: no handler attached")
	}

	resp := h.HandleInstallSnapshot(&raft.InstallSnapshotRequest{
		Term:              req.Term,
		LeaderID:          req.LeaderID,
		LastIncludedIndex: req.LastIncludedIndex,
		LastIncludedTerm:  req.LastIncludedTerm,
		Data:              req.Data,
	})
	return &chatpb.InstallSnapshotResponse{Term: resp.Term}, nil
}
