// Package grpcclient is the client-facing RPC façade: CreateAccount,
// Login/Logout, DeleteAccount, ListUsers, SendMessage, PopUnread,
// GetReadMessages, DeleteMessages, GetCounts, and the SubscribeToMessages
// server-stream. A not-leader redirect is surfaced as a gRPC
// FailedPrecondition status whose message ends in "leader_hint=<id>" when
// the current leader's node ID is known. Session-gated mailbox operations and online-aware
// notification fan-out are the application semantics underneath.
package grpcclient

import (
	"context"
	"fmt"
	"net"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/vzdtic/chat-raft/api/chatpb"
	"github.com/vzdtic/chat-raft/internal/auth"
	"github.com/vzdtic/chat-raft/internal/chaterr"
	"github.com/vzdtic/chat-raft/pkg/chatstate"
	"github.com/vzdtic/chat-raft/pkg/raft"
	"github.com/vzdtic/chat-raft/pkg/session"
)

// Server implements chatpb.ClientServiceServer on top of the consensus
// module, the chat state machine, and the session registry.
type Server struct {
	node     *raft.Raft
	csm      *chatstate.Store
	sessions *session.Registry
	hasher   auth.Hasher

	grpcServer *grpc.Server
	listener   net.Listener
}

// New builds the client façade. node and csm must be the same pair
// backing one local raft node; sessions is the process-local online
// registry (SendMessage's leader-computed online hint and
// SubscribeToMessages both consult it).
func New(node *raft.Raft, csm *chatstate.Store, sessions *session.Registry, hasher auth.Hasher) *Server {
	return &Server{node: node, csm: csm, sessions: sessions, hasher: hasher}
}

// Start opens a listener and serves the ClientService on it.
func (s *Server) Start(addr string) error {
	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("client transport listen: %w", err)
	}
	s.listener = listener
	s.grpcServer = grpc.NewServer()
	chatpb.RegisterClientServiceServer(s.grpcServer, s)

	go func() {
		_ = s.grpcServer.Serve(listener)
	}()
	return nil
}

func (s *Server) Stop() {
	if s.grpcServer != nil {
		s.grpcServer.GracefulStop()
	}
	if s.listener != nil {
		s.listener.Close()
	}
}

// toStatus translates the chaterr taxonomy to gRPC status codes at this
// one boundary — nowhere else in the module references grpc/codes.
func toStatus(err error) error {
	if err == nil {
		return nil
	}

	var ce *chaterr.Error
	if !chaterr.As(err, &ce) {
		return status.Error(codes.Internal, err.Error())
	}

	switch ce.Kind {
	case chaterr.KindNotLeader:
		if ce.LeaderHint != "" {
			return status.Errorf(codes.FailedPrecondition, "not the leader; leader_hint=%s", ce.LeaderHint)
		}
		return status.Error(codes.FailedPrecondition, "not the leader")
	case chaterr.KindUnavailable:
		return status.Error(codes.Unavailable, ce.Message)
	case chaterr.KindInvalidArgument:
		return status.Error(codes.InvalidArgument, ce.Message)
	case chaterr.KindAlreadyExists:
		return status.Error(codes.AlreadyExists, ce.Message)
	case chaterr.KindNotFound:
		return status.Error(codes.NotFound, ce.Message)
	case chaterr.KindUnauthenticated:
		return status.Error(codes.Unauthenticated, ce.Message)
	case chaterr.KindTimeout:
		return status.Error(codes.DeadlineExceeded, ce.Message)
	default:
		return status.Error(codes.Internal, ce.Message)
	}
}

// requireLeader gates every unary client RPC, including reads like Login
// and ListUsers that a lower-linearizability deployment could serve from
// any replica. That's a deliberate, stricter-than-required choice here: it
// keeps one request path (propose-or-reject, ReadIndex-barrier-or-reject)
// instead of a second stale-read code path per handler, at the cost of
// rejecting reads a follower could otherwise answer. SubscribeToMessages
// is not gated: it only streams from this node's own session registry.
func (s *Server) requireLeader() error {
	if !s.node.IsLeader() {
		return chaterr.NotLeader(s.node.GetLeaderID())
	}
	return nil
}

// usernameFor resolves a ConnectionID to the account it authenticated as.
func (s *Server) usernameFor(connID string) (string, error) {
	username, ok := s.sessions.Username(connID)
	if !ok {
		return "", chaterr.Unauthenticated("not logged in")
	}
	return username, nil
}

func (s *Server) CreateAccount(ctx context.Context, req *chatpb.CreateAccountRequest) (*chatpb.CreateAccountResponse, error) {
	if err := s.requireLeader(); err != nil {
		return nil, toStatus(err)
	}
	if req.Username == "" || req.Password == "" {
		return nil, toStatus(chaterr.InvalidArgument("username and password are required"))
	}

	hash, salt, err := s.hasher.Derive(req.Password)
	if err != nil {
		return nil, toStatus(chaterr.Internal("derive credential", err))
	}

	cmd := chatstate.Command{Kind: chatstate.CmdCreateAccount, Username: req.Username, PasswordHash: hash, PasswordSalt: salt}
	raw, err := chatstate.Encode(cmd)
	if err != nil {
		return nil, toStatus(chaterr.Internal("encode command", err))
	}
	if _, err := s.node.SubmitCommand(ctx, raw); err != nil {
		return nil, toStatus(err)
	}
	return &chatpb.CreateAccountResponse{}, nil
}

func (s *Server) Login(ctx context.Context, req *chatpb.LoginRequest) (*chatpb.LoginResponse, error) {
	if err := s.requireLeader(); err != nil {
		return nil, toStatus(err)
	}
	if err := s.node.ReadIndex(ctx); err != nil {
		return nil, toStatus(err)
	}

	acct, ok := s.csm.GetAccount(req.Username)
	if !ok || !s.hasher.Verify(req.Password, acct.PasswordHash, acct.PasswordSalt) {
		return nil, toStatus(chaterr.Unauthenticated("invalid username or password"))
	}

	connID := session.NewConnectionID()
	s.sessions.Authenticate(connID, req.Username)
	return &chatpb.LoginResponse{ConnectionID: connID}, nil
}

func (s *Server) Logout(ctx context.Context, req *chatpb.LogoutRequest) (*chatpb.LogoutResponse, error) {
	if err := s.requireLeader(); err != nil {
		return nil, toStatus(err)
	}
	s.sessions.Logout(req.ConnectionID)
	return &chatpb.LogoutResponse{}, nil
}

func (s *Server) DeleteAccount(ctx context.Context, req *chatpb.DeleteAccountRequest) (*chatpb.DeleteAccountResponse, error) {
	if err := s.requireLeader(); err != nil {
		return nil, toStatus(err)
	}
	username, err := s.usernameFor(req.ConnectionID)
	if err != nil {
		return nil, toStatus(err)
	}

	cmd := chatstate.Command{Kind: chatstate.CmdDeleteAccount, Username: username}
	raw, err := chatstate.Encode(cmd)
	if err != nil {
		return nil, toStatus(chaterr.Internal("encode command", err))
	}
	if _, err := s.node.SubmitCommand(ctx, raw); err != nil {
		return nil, toStatus(err)
	}
	s.sessions.Logout(req.ConnectionID)
	return &chatpb.DeleteAccountResponse{}, nil
}

func (s *Server) ListUsers(ctx context.Context, req *chatpb.ListUsersRequest) (*chatpb.ListUsersResponse, error) {
	if err := s.requireLeader(); err != nil {
		return nil, toStatus(err)
	}
	if err := s.node.ReadIndex(ctx); err != nil {
		return nil, toStatus(err)
	}

	pattern := req.Pattern
	if pattern == "" {
		pattern = "*"
	}
	users, err := s.csm.ListUsers(pattern)
	if err != nil {
		return nil, toStatus(err)
	}
	return &chatpb.ListUsersResponse{Usernames: users}, nil
}

func (s *Server) SendMessage(ctx context.Context, req *chatpb.SendMessageRequest) (*chatpb.SendMessageResponse, error) {
	if err := s.requireLeader(); err != nil {
		return nil, toStatus(err)
	}
	username, err := s.usernameFor(req.ConnectionID)
	if err != nil {
		return nil, toStatus(err)
	}

	// The online hint is computed here, at the leader, from this process's
	// own session registry — never recomputed when followers apply the
	// command, since a follower's registry reflects connections dialed
	// into it, not the leader. "Online" means the recipient has a live
	// SubscribeToMessages stream on this node, so a message routed into
	// Read is always pushed to someone.
	online := s.sessions.SubscriberCount(req.Recipient) > 0

	cmd := chatstate.Command{
		Kind:            chatstate.CmdSendMessage,
		Username:        username,
		Recipient:       req.Recipient,
		Body:            req.Body,
		RecipientOnline: online,
	}
	raw, err := chatstate.Encode(cmd)
	if err != nil {
		return nil, toStatus(chaterr.Internal("encode command", err))
	}
	res, err := s.node.SubmitCommand(ctx, raw)
	if err != nil {
		return nil, toStatus(err)
	}

	// The live push fans out only when the applied result says the
	// message was delivered as read, not from the local `online` var
	// above — that keeps the notification driven by the one replicated,
	// deterministic decision every node agrees on.
	if res.DeliveredAsRead {
		s.sessions.Notify(req.Recipient, session.Notification{MessageID: res.AssignedID, Sender: username, Body: req.Body})
	}

	return &chatpb.SendMessageResponse{MessageID: res.AssignedID}, nil
}

func (s *Server) PopUnread(ctx context.Context, req *chatpb.PopUnreadRequest) (*chatpb.PopUnreadResponse, error) {
	if err := s.requireLeader(); err != nil {
		return nil, toStatus(err)
	}
	username, err := s.usernameFor(req.ConnectionID)
	if err != nil {
		return nil, toStatus(err)
	}

	cmd := chatstate.Command{Kind: chatstate.CmdPopUnread, Username: username, Count: int(req.Count)}
	raw, err := chatstate.Encode(cmd)
	if err != nil {
		return nil, toStatus(chaterr.Internal("encode command", err))
	}
	res, err := s.node.SubmitCommand(ctx, raw)
	if err != nil {
		return nil, toStatus(err)
	}

	out := make([]chatpb.Message, len(res.PoppedMessages))
	for i, m := range res.PoppedMessages {
		out[i] = chatpb.Message{ID: m.ID, Sender: m.Sender, Body: m.Body}
	}
	return &chatpb.PopUnreadResponse{Messages: out}, nil
}

func (s *Server) GetReadMessages(ctx context.Context, req *chatpb.GetReadMessagesRequest) (*chatpb.GetReadMessagesResponse, error) {
	if err := s.requireLeader(); err != nil {
		return nil, toStatus(err)
	}
	username, err := s.usernameFor(req.ConnectionID)
	if err != nil {
		return nil, toStatus(err)
	}
	if err := s.node.ReadIndex(ctx); err != nil {
		return nil, toStatus(err)
	}

	messages, err := s.csm.GetReadMessages(username)
	if err != nil {
		return nil, toStatus(err)
	}
	out := make([]chatpb.Message, len(messages))
	for i, m := range messages {
		out[i] = chatpb.Message{ID: m.ID, Sender: m.Sender, Body: m.Body}
	}
	return &chatpb.GetReadMessagesResponse{Messages: out}, nil
}

func (s *Server) DeleteMessages(ctx context.Context, req *chatpb.DeleteMessagesRequest) (*chatpb.DeleteMessagesResponse, error) {
	if err := s.requireLeader(); err != nil {
		return nil, toStatus(err)
	}
	username, err := s.usernameFor(req.ConnectionID)
	if err != nil {
		return nil, toStatus(err)
	}

	cmd := chatstate.Command{Kind: chatstate.CmdDeleteMessages, Username: username, MessageIDs: req.MessageIDs}
	raw, err := chatstate.Encode(cmd)
	if err != nil {
		return nil, toStatus(chaterr.Internal("encode command", err))
	}
	if _, err := s.node.SubmitCommand(ctx, raw); err != nil {
		return nil, toStatus(err)
	}
	return &chatpb.DeleteMessagesResponse{}, nil
}

func (s *Server) GetCounts(ctx context.Context, req *chatpb.GetCountsRequest) (*chatpb.GetCountsResponse, error) {
	if err := s.requireLeader(); err != nil {
		return nil, toStatus(err)
	}
	username, err := s.usernameFor(req.ConnectionID)
	if err != nil {
		return nil, toStatus(err)
	}
	if err := s.node.ReadIndex(ctx); err != nil {
		return nil, toStatus(err)
	}

	counts, err := s.csm.GetCounts(username)
	if err != nil {
		return nil, toStatus(err)
	}
	return &chatpb.GetCountsResponse{Unread: int32(counts.Unread), Read: int32(counts.Read)}, nil
}

// SubscribeToMessages streams notifications for the authenticated
// account until the client disconnects.
func (s *Server) SubscribeToMessages(req *chatpb.SubscribeRequest, stream chatpb.ClientService_SubscribeToMessagesServer) error {
	username, err := s.usernameFor(req.ConnectionID)
	if err != nil {
		return toStatus(err)
	}

	ch, unsubscribe := s.sessions.Subscribe(req.ConnectionID, username)
	defer unsubscribe()

	ctx := stream.Context()
	for {
		select {
		case <-ctx.Done():
			return nil
		case n := <-ch:
			if err := stream.Send(&chatpb.MessageNotification{MessageID: n.MessageID, Sender: n.Sender, Body: n.Body}); err != nil {
				return err
			}
		}
	}
}
