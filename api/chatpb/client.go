package chatpb

import (
	"context"

	"google.golang.org/grpc"
)

// Client RPC message types, grounded on the original chat system's
// protocol (create/login/send/pop/list/delete/counts/subscribe) and
// adapted to return a ConnectionID from Login that callers present to
// every subsequent call, since gRPC calls are not tied to one long-lived
// TCP session the way the original's custom_protocol.py sessions were.

type CreateAccountRequest struct {
	Username string
	Password string
}

type CreateAccountResponse struct{}

type LoginRequest struct {
	Username string
	Password string
}

type LoginResponse struct {
	ConnectionID string
}

type LogoutRequest struct {
	ConnectionID string
}

type LogoutResponse struct{}

type DeleteAccountRequest struct {
	ConnectionID string
}

type DeleteAccountResponse struct{}

type ListUsersRequest struct {
	Pattern string
}

type ListUsersResponse struct {
	Usernames []string
}

type SendMessageRequest struct {
	ConnectionID string
	Recipient    string
	Body         string
}

type SendMessageResponse struct {
	MessageID uint64
}

type PopUnreadRequest struct {
	ConnectionID string
	Count        int32
}

type Message struct {
	ID     uint64
	Sender string
	Body   string
}

type PopUnreadResponse struct {
	Messages []Message
}

type GetReadMessagesRequest struct {
	ConnectionID string
}

type GetReadMessagesResponse struct {
	Messages []Message
}

type DeleteMessagesRequest struct {
	ConnectionID string
	MessageIDs   []uint64
}

type DeleteMessagesResponse struct{}

type GetCountsRequest struct {
	ConnectionID string
}

type GetCountsResponse struct {
	Unread int32
	Read   int32
}

type SubscribeRequest struct {
	ConnectionID string
}

type MessageNotification struct {
	MessageID uint64
	Sender    string
	Body      string
}

// ClientServiceServer is implemented by pkg/transport/grpcclient's server
// adapter, which forwards to the application façade.
type ClientServiceServer interface {
	CreateAccount(context.Context, *CreateAccountRequest) (*CreateAccountResponse, error)
	Login(context.Context, *LoginRequest) (*LoginResponse, error)
	Logout(context.Context, *LogoutRequest) (*LogoutResponse, error)
	DeleteAccount(context.Context, *DeleteAccountRequest) (*DeleteAccountResponse, error)
	ListUsers(context.Context, *ListUsersRequest) (*ListUsersResponse, error)
	SendMessage(context.Context, *SendMessageRequest) (*SendMessageResponse, error)
	PopUnread(context.Context, *PopUnreadRequest) (*PopUnreadResponse, error)
	GetReadMessages(context.Context, *GetReadMessagesRequest) (*GetReadMessagesResponse, error)
	DeleteMessages(context.Context, *DeleteMessagesRequest) (*DeleteMessagesResponse, error)
	GetCounts(context.Context, *GetCountsRequest) (*GetCountsResponse, error)
	SubscribeToMessages(*SubscribeRequest, ClientService_SubscribeToMessagesServer) error
}

type ClientService_SubscribeToMessagesServer interface {
	Send(*MessageNotification) error
	grpc.ServerStream
}

type clientServiceSubscribeToMessagesServer struct {
	grpc.ServerStream
}

func (x *clientServiceSubscribeToMessagesServer) Send(m *MessageNotification) error {
	return x.ServerStream.SendMsg(m)
}

type ClientServiceClient interface {
	CreateAccount(ctx context.Context, in *CreateAccountRequest, opts ...grpc.CallOption) (*CreateAccountResponse, error)
	Login(ctx context.Context, in *LoginRequest, opts ...grpc.CallOption) (*LoginResponse, error)
	Logout(ctx context.Context, in *LogoutRequest, opts ...grpc.CallOption) (*LogoutResponse, error)
	DeleteAccount(ctx context.Context, in *DeleteAccountRequest, opts ...grpc.CallOption) (*DeleteAccountResponse, error)
	ListUsers(ctx context.Context, in *ListUsersRequest, opts ...grpc.CallOption) (*ListUsersResponse, error)
	SendMessage(ctx context.Context, in *SendMessageRequest, opts ...grpc.CallOption) (*SendMessageResponse, error)
	PopUnread(ctx context.Context, in *PopUnreadRequest, opts ...grpc.CallOption) (*PopUnreadResponse, error)
	GetReadMessages(ctx context.Context, in *GetReadMessagesRequest, opts ...grpc.CallOption) (*GetReadMessagesResponse, error)
	DeleteMessages(ctx context.Context, in *DeleteMessagesRequest, opts ...grpc.CallOption) (*DeleteMessagesResponse, error)
	GetCounts(ctx context.Context, in *GetCountsRequest, opts ...grpc.CallOption) (*GetCountsResponse, error)
	SubscribeToMessages(ctx context.Context, in *SubscribeRequest, opts ...grpc.CallOption) (ClientService_SubscribeToMessagesClient, error)
}

type ClientService_SubscribeToMessagesClient interface {
	Recv() (*MessageNotification, error)
	grpc.ClientStream
}

type clientServiceSubscribeToMessagesClient struct {
	grpc.ClientStream
}

func (x *clientServiceSubscribeToMessagesClient) Recv() (*MessageNotification, error) {
	m := new(MessageNotification)
	if err := x.ClientStream.RecvMsg(m); err != nil {
		return nil, err
	}
	return m, nil
}

type clientServiceClient struct {
	cc grpc.ClientConnInterface
}

func NewClientServiceClient(cc grpc.ClientConnInterface) ClientServiceClient {
	return &clientServiceClient{cc: cc}
}

func (c *clientServiceClient) CreateAccount(ctx context.Context, in *CreateAccountRequest, opts ...grpc.CallOption) (*CreateAccountResponse, error) {
	out := new(CreateAccountResponse)
	if err := c.cc.Invoke(ctx, "/chatpb.ClientService/CreateAccount", in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *clientServiceClient) Login(ctx context.Context, in *LoginRequest, opts ...grpc.CallOption) (*LoginResponse, error) {
	out := new(LoginResponse)
	if err := c.cc.Invoke(ctx, "/chatpb.ClientService/Login", in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *clientServiceClient) Logout(ctx context.Context, in *LogoutRequest, opts ...grpc.CallOption) (*LogoutResponse, error) {
	out := new(LogoutResponse)
	if err := c.cc.Invoke(ctx, "/chatpb.ClientService/Logout", in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *clientServiceClient) DeleteAccount(ctx context.Context, in *DeleteAccountRequest, opts ...grpc.CallOption) (*DeleteAccountResponse, error) {
	out := new(DeleteAccountResponse)
	if err := c.cc.Invoke(ctx, "/chatpb.ClientService/DeleteAccount", in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *clientServiceClient) ListUsers(ctx context.Context, in *ListUsersRequest, opts ...grpc.CallOption) (*ListUsersResponse, error) {
	out := new(ListUsersResponse)
	if err := c.cc.Invoke(ctx, "/chatpb.ClientService/ListUsers", in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *clientServiceClient) SendMessage(ctx context.Context, in *SendMessageRequest, opts ...grpc.CallOption) (*SendMessageResponse, error) {
	out := new(SendMessageResponse)
	if err := c.cc.Invoke(ctx, "/chatpb.ClientService/SendMessage", in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *clientServiceClient) PopUnread(ctx context.Context, in *PopUnreadRequest, opts ...grpc.CallOption) (*PopUnreadResponse, error) {
	out := new(PopUnreadResponse)
	if err := c.cc.Invoke(ctx, "/chatpb.ClientService/PopUnread", in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *clientServiceClient) GetReadMessages(ctx context.Context, in *GetReadMessagesRequest, opts ...grpc.CallOption) (*GetReadMessagesResponse, error) {
	out := new(GetReadMessagesResponse)
	if err := c.cc.Invoke(ctx, "/chatpb.ClientService/GetReadMessages", in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *clientServiceClient) DeleteMessages(ctx context.Context, in *DeleteMessagesRequest, opts ...grpc.CallOption) (*DeleteMessagesResponse, error) {
	out := new(DeleteMessagesResponse)
	if err := c.cc.Invoke(ctx, "/chatpb.ClientService/DeleteMessages", in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *clientServiceClient) GetCounts(ctx context.Context, in *GetCountsRequest, opts ...grpc.CallOption) (*GetCountsResponse, error) {
	out := new(GetCountsResponse)
	if err := c.cc.Invoke(ctx, "/chatpb.ClientService/GetCounts", in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *clientServiceClient) SubscribeToMessages(ctx context.Context, in *SubscribeRequest, opts ...grpc.CallOption) (ClientService_SubscribeToMessagesClient, error) {
	stream, err := c.cc.NewStream(ctx, &ClientService_ServiceDesc.Streams[0], "/chatpb.ClientService/SubscribeToMessages", opts...)
	if err != nil {
		return nil, err
	}
	x := &clientServiceSubscribeToMessagesClient{stream}
	if err := x.ClientStream.SendMsg(in); err != nil {
		return nil, err
	}
	if err := x.ClientStream.CloseSend(); err != nil {
		return nil, err
	}
	return x, nil
}

func RegisterClientServiceServer(s grpc.ServiceRegistrar, srv ClientServiceServer) {
	s.RegisterService(&ClientService_ServiceDesc, srv)
}

func _ClientService_CreateAccount_Handler(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
	in := new(CreateAccountRequest)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(ClientServiceServer).CreateAccount(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: "/chatpb.ClientService/CreateAccount"}
	handler := func(ctx context.Context, req interface{}) (interface{}, error) {
		return srv.(ClientServiceServer).CreateAccount(ctx, req.(*CreateAccountRequest))
	}
	return interceptor(ctx, in, info, handler)
}

func _ClientService_Login_Handler(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
	in := new(LoginRequest)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(ClientServiceServer).Login(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: "/chatpb.ClientService/Login"}
	handler := func(ctx context.Context, req interface{}) (interface{}, error) {
		return srv.(ClientServiceServer).Login(ctx, req.(*LoginRequest))
	}
	return interceptor(ctx, in, info, handler)
}

func _ClientService_Logout_Handler(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
	in := new(LogoutRequest)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(ClientServiceServer).Logout(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: "/chatpb.ClientService/Logout"}
	handler := func(ctx context.Context, req interface{}) (interface{}, error) {
		return srv.(ClientServiceServer).Logout(ctx, req.(*LogoutRequest))
	}
	return interceptor(ctx, in, info, handler)
}

func _ClientService_DeleteAccount_Handler(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
	in := new(DeleteAccountRequest)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(ClientServiceServer).DeleteAccount(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: "/chatpb.ClientService/DeleteAccount"}
	handler := func(ctx context.Context, req interface{}) (interface{}, error) {
		return srv.(ClientServiceServer).DeleteAccount(ctx, req.(*DeleteAccountRequest))
	}
	return interceptor(ctx, in, info, handler)
}

func _ClientService_ListUsers_Handler(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
	in := new(ListUsersRequest)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(ClientServiceServer).ListUsers(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: "/chatpb.ClientService/ListUsers"}
	handler := func(ctx context.Context, req interface{}) (interface{}, error) {
		return srv.(ClientServiceServer).ListUsers(ctx, req.(*ListUsersRequest))
	}
	return interceptor(ctx, in, info, handler)
}

func _ClientService_SendMessage_Handler(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
	in := new(SendMessageRequest)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(ClientServiceServer).SendMessage(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: "/chatpb.ClientService/SendMessage"}
	handler := func(ctx context.Context, req interface{}) (interface{}, error) {
		return srv.(ClientServiceServer).SendMessage(ctx, req.(*SendMessageRequest))
	}
	return interceptor(ctx, in, info, handler)
}

func _ClientService_PopUnread_Handler(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
	in := new(PopUnreadRequest)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(ClientServiceServer).PopUnread(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: "/chatpb.ClientService/PopUnread"}
	handler := func(ctx context.Context, req interface{}) (interface{}, error) {
		return srv.(ClientServiceServer).PopUnread(ctx, req.(*PopUnreadRequest))
	}
	return interceptor(ctx, in, info, handler)
}

func _ClientService_GetReadMessages_Handler(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
	in := new(GetReadMessagesRequest)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(ClientServiceServer).GetReadMessages(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: "/chatpb.ClientService/GetReadMessages"}
	handler := func(ctx context.Context, req interface{}) (interface{}, error) {
		return srv.(ClientServiceServer).GetReadMessages(ctx, req.(*GetReadMessagesRequest))
	}
	return interceptor(ctx, in, info, handler)
}

func _ClientService_DeleteMessages_Handler(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
	in := new(DeleteMessagesRequest)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(ClientServiceServer).DeleteMessages(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: "/chatpb.ClientService/DeleteMessages"}
	handler := func(ctx context.Context, req interface{}) (interface{}, error) {
		return srv.(ClientServiceServer).DeleteMessages(ctx, req.(*DeleteMessagesRequest))
	}
	return interceptor(ctx, in, info, handler)
}

func _ClientService_GetCounts_Handler(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
	in := new(GetCountsRequest)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(ClientServiceServer).GetCounts(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: "/chatpb.ClientService/GetCounts"}
	handler := func(ctx context.Context, req interface{}) (interface{}, error) {
		return srv.(ClientServiceServer).GetCounts(ctx, req.(*GetCountsRequest))
	}
	return interceptor(ctx, in, info, handler)
}

func _ClientService_SubscribeToMessages_Handler(srv interface{}, stream grpc.ServerStream) error {
	m := new(SubscribeRequest)
	if err := stream.RecvMsg(m); err != nil {
		return err
	}
	return srv.(ClientServiceServer).SubscribeToMessages(m, &clientServiceSubscribeToMessagesServer{stream})
}

var ClientService_ServiceDesc = grpc.ServiceDesc{
	ServiceName: "chatpb.ClientService",
	HandlerType: (*ClientServiceServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "CreateAccount", Handler: _ClientService_CreateAccount_Handler},
		{MethodName: "Login", Handler: _ClientService_Login_Handler},
		{MethodName: "Logout", Handler: _ClientService_Logout_Handler},
		{MethodName: "DeleteAccount", Handler: _ClientService_DeleteAccount_Handler},
		{MethodName: "ListUsers", Handler: _ClientService_ListUsers_Handler},
		{MethodName: "SendMessage", Handler: _ClientService_SendMessage_Handler},
		{MethodName: "PopUnread", Handler: _ClientService_PopUnread_Handler},
		{MethodName: "GetReadMessages", Handler: _ClientService_GetReadMessages_Handler},
		{MethodName: "DeleteMessages", Handler: _ClientService_DeleteMessages_Handler},
		{MethodName: "GetCounts", Handler: _ClientService_GetCounts_Handler},
	},
	Streams: []grpc.StreamDesc{
		{
			StreamName:    "SubscribeToMessages",
			Handler:       _ClientService_SubscribeToMessages_Handler,
			ServerStreams: true,
		},
	},
	Metadata: "chatpb/client.proto",
}
