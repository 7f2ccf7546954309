// Package grpcserver exposes the tickets gRPC API handlers.
package grpcserver

import (
	"context"
	"errors"
	"strings"

	"github.com/mr-tron/base58"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/peer"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/emptypb"

	pb "github.com/and161185/nft-tickets/internal/api/tickets/v1"
	"github.com/and161185/nft-tickets/internal/authority"
	"github.com/and161185/nft-tickets/internal/convert"
	"github.com/and161185/nft-tickets/internal/service"
)

// Server wires services into gRPC handlers.
type Server struct {
	pb.UnimplementedTicketsServer
	auth    service.AuthService
	tickets service.TicketService
	dev     bool
}

// New constructs a gRPC server with injected services. Airdrops are served only when dev is set.
func New(auth service.AuthService, tickets service.TicketService, dev bool) *Server {
	return &Server{auth: auth, tickets: tickets, dev: dev}
}

func remoteIP(ctx context.Context) string {
	if p, ok := peer.FromContext(ctx); ok && p.Addr != nil {
		return p.Addr.String()
	}
	return ""
}

// --- Auth ---

// Login verifies a signed login message and opens a session.
func (s *Server) Login(ctx context.Context, req *pb.LoginRequest) (*pb.LoginResponse, error) {
	key, err := convert.Key("public_key", req.PublicKey)
	if err != nil {
		return nil, toStatus("login", err)
	}
	sig, err := base58.Decode(req.Signature)
	if err != nil || len(sig) == 0 {
		return nil, status.Error(codes.InvalidArgument, "login: bad signature encoding")
	}
	sess, err := s.auth.Login(ctx, key, req.UnixTs, sig, remoteIP(ctx))
	if err != nil {
		return nil, toStatus("login", err)
	}
	return convert.ToProtoSession(sess), nil
}

// caller returns the session key placed in context by AuthUnary, or parses the bearer token itself
// when the handler runs without the interceptor.
func (s *Server) caller(ctx context.Context) (authority.KeySigner, error) {
	if k, ok := CallerFromCtx(ctx); ok {
		return k, nil
	}
	tok, err := bearerTokenFromMD(ctx)
	if err != nil {
		return authority.KeySigner{}, status.Error(codes.Unauthenticated, "no auth")
	}
	k, err := s.auth.Authenticate(tok)
	if err != nil {
		return authority.KeySigner{}, status.Error(codes.Unauthenticated, "invalid token")
	}
	return k, nil
}

// --- Issuance ---

// IssueCollection creates an event collection with its treasury, paid by the caller.
func (s *Server) IssueCollection(ctx context.Context, req *pb.IssueCollectionRequest) (*pb.IssueCollectionResponse, error) {
	payer, err := s.caller(ctx)
	if err != nil {
		return nil, err
	}
	in, err := convert.FromProtoIssueCollection(payer, req)
	if err != nil {
		return nil, toStatus("issue collection", err)
	}
	c, err := s.tickets.IssueCollection(ctx, in)
	if err != nil {
		return nil, toStatus("issue collection", err)
	}
	return &pb.IssueCollectionResponse{Collection: convert.ToProtoCollection(c)}, nil
}

// IssueTicket sells one ticket of a collection to the caller (or the named recipient).
func (s *Server) IssueTicket(ctx context.Context, req *pb.IssueTicketRequest) (*pb.IssueTicketResponse, error) {
	payer, err := s.caller(ctx)
	if err != nil {
		return nil, err
	}
	in, err := convert.FromProtoIssueTicket(payer, req)
	if err != nil {
		return nil, toStatus("issue ticket", err)
	}
	t, err := s.tickets.IssueTicket(ctx, in)
	if err != nil {
		return nil, toStatus("issue ticket", err)
	}
	return &pb.IssueTicketResponse{Ticket: convert.ToProtoTicket(t)}, nil
}

// --- Redemption & revocation ---

// UseTicket redeems one use of a ticket held by the caller.
func (s *Server) UseTicket(ctx context.Context, req *pb.UseTicketRequest) (*pb.UseTicketResponse, error) {
	owner, err := s.caller(ctx)
	if err != nil {
		return nil, err
	}
	in, err := convert.FromProtoUseTicket(owner, req)
	if err != nil {
		return nil, toStatus("use ticket", err)
	}
	u, err := s.tickets.Use(ctx, in)
	if err != nil {
		return nil, toStatus("use ticket", err)
	}
	return &pb.UseTicketResponse{Uses: convert.ToProtoUses(&u)}, nil
}

// BurnTicket revokes a ticket; the caller must administer the collection.
func (s *Server) BurnTicket(ctx context.Context, req *pb.BurnTicketRequest) (*emptypb.Empty, error) {
	admin, err := s.caller(ctx)
	if err != nil {
		return nil, err
	}
	in, err := convert.FromProtoBurnTicket(admin, req)
	if err != nil {
		return nil, toStatus("burn ticket", err)
	}
	if err = s.tickets.Burn(ctx, in); err != nil {
		return nil, toStatus("burn ticket", err)
	}
	return &emptypb.Empty{}, nil
}

// --- Queries ---

// GetTicket returns a ticket and, when holder is given, the holder's balance of it.
func (s *Server) GetTicket(ctx context.Context, req *pb.GetTicketRequest) (*pb.GetTicketResponse, error) {
	if _, err := s.caller(ctx); err != nil {
		return nil, err
	}
	mint, err := convert.Key("mint", req.Mint)
	if err != nil {
		return nil, toStatus("get ticket", err)
	}
	holder, err := convert.OptionalKey("holder", req.Holder)
	if err != nil {
		return nil, toStatus("get ticket", err)
	}
	t, err := s.tickets.GetTicket(ctx, mint, holder)
	if err != nil {
		return nil, toStatus("get ticket", err)
	}
	return &pb.GetTicketResponse{Ticket: convert.ToProtoTicket(t)}, nil
}

// GetTreasury returns the treasury of a collection.
func (s *Server) GetTreasury(ctx context.Context, req *pb.GetTreasuryRequest) (*pb.GetTreasuryResponse, error) {
	if _, err := s.caller(ctx); err != nil {
		return nil, err
	}
	col, err := convert.Key("collection", req.Collection)
	if err != nil {
		return nil, toStatus("get treasury", err)
	}
	t, err := s.tickets.GetTreasury(ctx, col)
	if err != nil {
		return nil, toStatus("get treasury", err)
	}
	return &pb.GetTreasuryResponse{Treasury: convert.ToProtoTreasury(t)}, nil
}

// Balance returns the lamports of an address; an empty address means the caller.
func (s *Server) Balance(ctx context.Context, req *pb.BalanceRequest) (*pb.BalanceResponse, error) {
	k, err := s.caller(ctx)
	if err != nil {
		return nil, err
	}
	addr, err := convert.OptionalKey("address", req.Address)
	if err != nil {
		return nil, toStatus("balance", err)
	}
	if req.Address == "" {
		addr = k.Key()
	}
	lamports, err := s.tickets.Balance(ctx, addr)
	if err != nil {
		return nil, toStatus("balance", err)
	}
	return &pb.BalanceResponse{Lamports: lamports}, nil
}

// Airdrop credits lamports in dev mode.
func (s *Server) Airdrop(ctx context.Context, req *pb.AirdropRequest) (*emptypb.Empty, error) {
	k, err := s.caller(ctx)
	if err != nil {
		return nil, err
	}
	if !s.dev {
		return nil, status.Error(codes.PermissionDenied, "airdrop: disabled outside dev mode")
	}
	to, err := convert.OptionalKey("to", req.To)
	if err != nil {
		return nil, toStatus("airdrop", err)
	}
	if req.To == "" {
		to = k.Key()
	}
	if err = s.tickets.Airdrop(ctx, to, req.Lamports); err != nil {
		return nil, toStatus("airdrop", err)
	}
	return &emptypb.Empty{}, nil
}

func bearerTokenFromMD(ctx context.Context) (string, error) {
	md, ok := metadata.FromIncomingContext(ctx)
	if !ok {
		return "", errors.New("no metadata")
	}
	for _, v := range md.Get("authorization") {
		v = strings.TrimSpace(v)
		if len(v) >= 7 && strings.EqualFold(v[:7], "bearer ") {
			t := strings.TrimSpace(v[7:])
			if t != "" {
				return t, nil
			}
		}
	}
	return "", errors.New("no bearer token")
}
