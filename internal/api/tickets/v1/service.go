package ticketsv1

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/emptypb"
)

// ServiceName is the fully qualified gRPC service name.
const ServiceName = "tickets.v1.Tickets"

const (
	Tickets_Login_FullMethodName           = "/tickets.v1.Tickets/Login"
	Tickets_IssueCollection_FullMethodName = "/tickets.v1.Tickets/IssueCollection"
	Tickets_IssueTicket_FullMethodName     = "/tickets.v1.Tickets/IssueTicket"
	Tickets_UseTicket_FullMethodName       = "/tickets.v1.Tickets/UseTicket"
	Tickets_BurnTicket_FullMethodName      = "/tickets.v1.Tickets/BurnTicket"
	Tickets_GetTicket_FullMethodName       = "/tickets.v1.Tickets/GetTicket"
	Tickets_GetTreasury_FullMethodName     = "/tickets.v1.Tickets/GetTreasury"
	Tickets_Airdrop_FullMethodName         = "/tickets.v1.Tickets/Airdrop"
	Tickets_Balance_FullMethodName         = "/tickets.v1.Tickets/Balance"
)

// TicketsServer is the server API for the Tickets service.
type TicketsServer interface {
	Login(context.Context, *LoginRequest) (*LoginResponse, error)
	IssueCollection(context.Context, *IssueCollectionRequest) (*IssueCollectionResponse, error)
	IssueTicket(context.Context, *IssueTicketRequest) (*IssueTicketResponse, error)
	UseTicket(context.Context, *UseTicketRequest) (*UseTicketResponse, error)
	BurnTicket(context.Context, *BurnTicketRequest) (*emptypb.Empty, error)
	GetTicket(context.Context, *GetTicketRequest) (*GetTicketResponse, error)
	GetTreasury(context.Context, *GetTreasuryRequest) (*GetTreasuryResponse, error)
	Airdrop(context.Context, *AirdropRequest) (*emptypb.Empty, error)
	Balance(context.Context, *BalanceRequest) (*BalanceResponse, error)
}

// UnimplementedTicketsServer answers every method with codes.Unimplemented.
type UnimplementedTicketsServer struct{}

func (UnimplementedTicketsServer) Login(context.Context, *LoginRequest) (*LoginResponse, error) {
	return nil, status.Error(codes.Unimplemented, "method Login not implemented")
}
func (UnimplementedTicketsServer) IssueCollection(context.Context, *IssueCollectionRequest) (*IssueCollectionResponse, error) {
	return nil, status.Error(codes.Unimplemented, "method IssueCollection not implemented")
}
func (UnimplementedTicketsServer) IssueTicket(context.Context, *IssueTicketRequest) (*IssueTicketResponse, error) {
	return nil, status.Error(codes.Unimplemented, "method IssueTicket not implemented")
}
func (UnimplementedTicketsServer) UseTicket(context.Context, *UseTicketRequest) (*UseTicketResponse, error) {
	return nil, status.Error(codes.Unimplemented, "method UseTicket not implemented")
}
func (UnimplementedTicketsServer) BurnTicket(context.Context, *BurnTicketRequest) (*emptypb.Empty, error) {
	return nil, status.Error(codes.Unimplemented, "method BurnTicket not implemented")
}
func (UnimplementedTicketsServer) GetTicket(context.Context, *GetTicketRequest) (*GetTicketResponse, error) {
	return nil, status.Error(codes.Unimplemented, "method GetTicket not implemented")
}
func (UnimplementedTicketsServer) GetTreasury(context.Context, *GetTreasuryRequest) (*GetTreasuryResponse, error) {
	return nil, status.Error(codes.Unimplemented, "method GetTreasury not implemented")
}
func (UnimplementedTicketsServer) Airdrop(context.Context, *AirdropRequest) (*emptypb.Empty, error) {
	return nil, status.Error(codes.Unimplemented, "method Airdrop not implemented")
}
func (UnimplementedTicketsServer) Balance(context.Context, *BalanceRequest) (*BalanceResponse, error) {
	return nil, status.Error(codes.Unimplemented, "method Balance not implemented")
}

// RegisterTicketsServer registers srv on s.
func RegisterTicketsServer(s grpc.ServiceRegistrar, srv TicketsServer) {
	s.RegisterService(&Tickets_ServiceDesc, srv)
}

// unary builds a method descriptor that decodes Req and dispatches to call through the interceptor chain.
func unary[Req, Resp any](name, full string, call func(TicketsServer, context.Context, *Req) (Resp, error)) grpc.MethodDesc {
	return grpc.MethodDesc{
		MethodName: name,
		Handler: func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
			in := new(Req)
			if err := dec(in); err != nil {
				return nil, err
			}
			if interceptor == nil {
				out, err := call(srv.(TicketsServer), ctx, in)
				return out, err
			}
			info := &grpc.UnaryServerInfo{Server: srv, FullMethod: full}
			handler := func(ctx context.Context, req any) (any, error) {
				out, err := call(srv.(TicketsServer), ctx, req.(*Req))
				return out, err
			}
			return interceptor(ctx, in, info, handler)
		},
	}
}

// Tickets_ServiceDesc is the grpc.ServiceDesc for the Tickets service.
var Tickets_ServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*TicketsServer)(nil),
	Methods: []grpc.MethodDesc{
		unary("Login", Tickets_Login_FullMethodName, TicketsServer.Login),
		unary("IssueCollection", Tickets_IssueCollection_FullMethodName, TicketsServer.IssueCollection),
		unary("IssueTicket", Tickets_IssueTicket_FullMethodName, TicketsServer.IssueTicket),
		unary("UseTicket", Tickets_UseTicket_FullMethodName, TicketsServer.UseTicket),
		unary("BurnTicket", Tickets_BurnTicket_FullMethodName, TicketsServer.BurnTicket),
		unary("GetTicket", Tickets_GetTicket_FullMethodName, TicketsServer.GetTicket),
		unary("GetTreasury", Tickets_GetTreasury_FullMethodName, TicketsServer.GetTreasury),
		unary("Airdrop", Tickets_Airdrop_FullMethodName, TicketsServer.Airdrop),
		unary("Balance", Tickets_Balance_FullMethodName, TicketsServer.Balance),
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "tickets/v1/tickets.proto",
}

// TicketsClient is the client API for the Tickets service.
type TicketsClient interface {
	Login(ctx context.Context, in *LoginRequest, opts ...grpc.CallOption) (*LoginResponse, error)
	IssueCollection(ctx context.Context, in *IssueCollectionRequest, opts ...grpc.CallOption) (*IssueCollectionResponse, error)
	IssueTicket(ctx context.Context, in *IssueTicketRequest, opts ...grpc.CallOption) (*IssueTicketResponse, error)
	UseTicket(ctx context.Context, in *UseTicketRequest, opts ...grpc.CallOption) (*UseTicketResponse, error)
	BurnTicket(ctx context.Context, in *BurnTicketRequest, opts ...grpc.CallOption) (*emptypb.Empty, error)
	GetTicket(ctx context.Context, in *GetTicketRequest, opts ...grpc.CallOption) (*GetTicketResponse, error)
	GetTreasury(ctx context.Context, in *GetTreasuryRequest, opts ...grpc.CallOption) (*GetTreasuryResponse, error)
	Airdrop(ctx context.Context, in *AirdropRequest, opts ...grpc.CallOption) (*emptypb.Empty, error)
	Balance(ctx context.Context, in *BalanceRequest, opts ...grpc.CallOption) (*BalanceResponse, error)
}

type ticketsClient struct {
	cc grpc.ClientConnInterface
}

// NewTicketsClient returns a client that speaks the JSON content-subtype.
func NewTicketsClient(cc grpc.ClientConnInterface) TicketsClient {
	return &ticketsClient{cc: cc}
}

func invoke[Resp any](ctx context.Context, cc grpc.ClientConnInterface, method string, in any, opts []grpc.CallOption) (*Resp, error) {
	out := new(Resp)
	opts = append([]grpc.CallOption{grpc.CallContentSubtype(CodecName)}, opts...)
	if err := cc.Invoke(ctx, method, in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *ticketsClient) Login(ctx context.Context, in *LoginRequest, opts ...grpc.CallOption) (*LoginResponse, error) {
	return invoke[LoginResponse](ctx, c.cc, Tickets_Login_FullMethodName, in, opts)
}

func (c *ticketsClient) IssueCollection(ctx context.Context, in *IssueCollectionRequest, opts ...grpc.CallOption) (*IssueCollectionResponse, error) {
	return invoke[IssueCollectionResponse](ctx, c.cc, Tickets_IssueCollection_FullMethodName, in, opts)
}

func (c *ticketsClient) IssueTicket(ctx context.Context, in *IssueTicketRequest, opts ...grpc.CallOption) (*IssueTicketResponse, error) {
	return invoke[IssueTicketResponse](ctx, c.cc, Tickets_IssueTicket_FullMethodName, in, opts)
}

func (c *ticketsClient) UseTicket(ctx context.Context, in *UseTicketRequest, opts ...grpc.CallOption) (*UseTicketResponse, error) {
	return invoke[UseTicketResponse](ctx, c.cc, Tickets_UseTicket_FullMethodName, in, opts)
}

func (c *ticketsClient) BurnTicket(ctx context.Context, in *BurnTicketRequest, opts ...grpc.CallOption) (*emptypb.Empty, error) {
	return invoke[emptypb.Empty](ctx, c.cc, Tickets_BurnTicket_FullMethodName, in, opts)
}

func (c *ticketsClient) GetTicket(ctx context.Context, in *GetTicketRequest, opts ...grpc.CallOption) (*GetTicketResponse, error) {
	return invoke[GetTicketResponse](ctx, c.cc, Tickets_GetTicket_FullMethodName, in, opts)
}

func (c *ticketsClient) GetTreasury(ctx context.Context, in *GetTreasuryRequest, opts ...grpc.CallOption) (*GetTreasuryResponse, error) {
	return invoke[GetTreasuryResponse](ctx, c.cc, Tickets_GetTreasury_FullMethodName, in, opts)
}

func (c *ticketsClient) Airdrop(ctx context.Context, in *AirdropRequest, opts ...grpc.CallOption) (*emptypb.Empty, error) {
	return invoke[emptypb.Empty](ctx, c.cc, Tickets_Airdrop_FullMethodName, in, opts)
}

func (c *ticketsClient) Balance(ctx context.Context, in *BalanceRequest, opts ...grpc.CallOption) (*BalanceResponse, error) {
	return invoke[BalanceResponse](ctx, c.cc, Tickets_Balance_FullMethodName, in, opts)
}
