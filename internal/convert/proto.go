// Package convert maps wire messages to domain requests and back.
package convert

import (
	"fmt"
	"math"
	"time"

	"github.com/blocto/solana-go-sdk/common"
	"github.com/mr-tron/base58"
	"google.golang.org/protobuf/types/known/timestamppb"

	pb "github.com/and161185/nft-tickets/internal/api/tickets/v1"
	"github.com/and161185/nft-tickets/internal/authority"
	"github.com/and161185/nft-tickets/internal/errs"
	"github.com/and161185/nft-tickets/internal/metadata"
	"github.com/and161185/nft-tickets/internal/model"
)

// --- helpers ---

func ts(t time.Time) *timestamppb.Timestamp {
	if t.IsZero() {
		return nil
	}
	return timestamppb.New(t)
}

func unixTS(sec uint64) *timestamppb.Timestamp {
	if sec == 0 || sec > math.MaxInt64 {
		return nil
	}
	return timestamppb.New(time.Unix(int64(sec), 0).UTC())
}

// Key parses a required base58 key.
func Key(field, s string) (common.PublicKey, error) {
	if s == "" {
		return common.PublicKey{}, fmt.Errorf("%w: %s is required", errs.ErrInvalidArgument, field)
	}
	k, err := authority.ParseKey(s)
	if err != nil {
		return common.PublicKey{}, fmt.Errorf("%s: %w", field, err)
	}
	return k, nil
}

// OptionalKey parses a base58 key; the empty string yields the zero key.
func OptionalKey(field, s string) (common.PublicKey, error) {
	if s == "" {
		return common.PublicKey{}, nil
	}
	return Key(field, s)
}

func keyPtr(field, s string) (*common.PublicKey, error) {
	if s == "" {
		return nil, nil
	}
	k, err := Key(field, s)
	if err != nil {
		return nil, err
	}
	return &k, nil
}

func b58(k common.PublicKey) string {
	if k == (common.PublicKey{}) {
		return ""
	}
	return k.ToBase58()
}

func fields(name, symbol, uri string, bps uint32) (model.Fields, error) {
	if bps > math.MaxUint16 {
		return model.Fields{}, fmt.Errorf("%w: seller fee %d", errs.ErrInvalidArgument, bps)
	}
	return model.Fields{Name: name, Symbol: symbol, URI: uri, SellerFeeBasisPoints: uint16(bps)}, nil
}

// MintSigner parses a caller-named mint. sig must be the mint key's signature over the payer's
// public key bytes. Both empty yields nil.
func MintSigner(payer common.PublicKey, mint, sig string) (*authority.KeySigner, error) {
	if mint == "" && sig == "" {
		return nil, nil
	}
	key, err := Key("mint", mint)
	if err != nil {
		return nil, err
	}
	raw, err := base58.Decode(sig)
	if err != nil || len(raw) == 0 {
		return nil, fmt.Errorf("%w: mint_signature encoding", errs.ErrInvalidArgument)
	}
	signer, err := authority.VerifySignature(key, payer.Bytes(), raw)
	if err != nil {
		return nil, fmt.Errorf("mint_signature: %w", err)
	}
	return &signer, nil
}

// --- requests (client -> server) ---

// FromProtoIssueCollection builds an IssueRoot paid by payer.
func FromProtoIssueCollection(payer authority.KeySigner, in *pb.IssueCollectionRequest) (model.IssueRoot, error) {
	if in == nil {
		return model.IssueRoot{}, fmt.Errorf("%w: nil request", errs.ErrInvalidArgument)
	}
	f, err := fields(in.Name, in.Symbol, in.Uri, in.SellerFeeBasisPoints)
	if err != nil {
		return model.IssueRoot{}, err
	}
	admin, err := OptionalKey("authority", in.Authority)
	if err != nil {
		return model.IssueRoot{}, err
	}
	mint, err := MintSigner(payer.Key(), in.Mint, in.MintSignature)
	if err != nil {
		return model.IssueRoot{}, err
	}
	meta, err := keyPtr("metadata", in.Metadata)
	if err != nil {
		return model.IssueRoot{}, err
	}
	var eventTS uint64
	if in.EventAt != nil {
		if err = in.EventAt.CheckValid(); err != nil {
			return model.IssueRoot{}, fmt.Errorf("%w: event_at: %v", errs.ErrInvalidArgument, err)
		}
		sec := in.EventAt.GetSeconds()
		if sec < 0 {
			return model.IssueRoot{}, fmt.Errorf("%w: event_at before 1970", errs.ErrInvalidArgument)
		}
		eventTS = uint64(sec)
	}
	return model.IssueRoot{
		Payer:     payer,
		Fields:    f,
		Authority: admin,
		Price:     in.Price,
		EventTS:   eventTS,
		Mint:      mint,
		Metadata:  meta,
	}, nil
}

// FromProtoIssueTicket builds an IssueMember paid by payer.
func FromProtoIssueTicket(payer authority.KeySigner, in *pb.IssueTicketRequest) (model.IssueMember, error) {
	if in == nil {
		return model.IssueMember{}, fmt.Errorf("%w: nil request", errs.ErrInvalidArgument)
	}
	collection, err := Key("collection", in.Collection)
	if err != nil {
		return model.IssueMember{}, err
	}
	f, err := fields(in.Name, in.Symbol, in.Uri, in.SellerFeeBasisPoints)
	if err != nil {
		return model.IssueMember{}, err
	}
	recipient, err := OptionalKey("recipient", in.Recipient)
	if err != nil {
		return model.IssueMember{}, err
	}
	mint, err := MintSigner(payer.Key(), in.Mint, in.MintSignature)
	if err != nil {
		return model.IssueMember{}, err
	}
	meta, err := keyPtr("metadata", in.Metadata)
	if err != nil {
		return model.IssueMember{}, err
	}
	edition, err := keyPtr("master_edition", in.MasterEdition)
	if err != nil {
		return model.IssueMember{}, err
	}
	return model.IssueMember{
		Payer:         payer,
		Collection:    collection,
		Fields:        f,
		IsMutable:     in.IsMutable,
		Recipient:     recipient,
		Mint:          mint,
		Metadata:      meta,
		MasterEdition: edition,
	}, nil
}

// FromProtoUseTicket builds a UseTicket signed by owner. A missing metadata address is derived from the mint.
func FromProtoUseTicket(owner authority.KeySigner, in *pb.UseTicketRequest) (model.UseTicket, error) {
	if in == nil {
		return model.UseTicket{}, fmt.Errorf("%w: nil request", errs.ErrInvalidArgument)
	}
	mint, err := Key("mint", in.Mint)
	if err != nil {
		return model.UseTicket{}, err
	}
	meta, err := OptionalKey("metadata", in.Metadata)
	if err != nil {
		return model.UseTicket{}, err
	}
	if meta == (common.PublicKey{}) {
		if meta, err = metadata.MetadataAddress(mint); err != nil {
			return model.UseTicket{}, err
		}
	}
	tokenAccount, err := OptionalKey("token_account", in.TokenAccount)
	if err != nil {
		return model.UseTicket{}, err
	}
	return model.UseTicket{Owner: owner, Mint: mint, Metadata: meta, TokenAccount: tokenAccount}, nil
}

// FromProtoBurnTicket builds a BurnTicket signed by the administrator.
func FromProtoBurnTicket(admin authority.KeySigner, in *pb.BurnTicketRequest) (model.BurnTicket, error) {
	if in == nil {
		return model.BurnTicket{}, fmt.Errorf("%w: nil request", errs.ErrInvalidArgument)
	}
	mint, err := Key("mint", in.Mint)
	if err != nil {
		return model.BurnTicket{}, err
	}
	collection, err := Key("collection", in.Collection)
	if err != nil {
		return model.BurnTicket{}, err
	}
	tokenAccount, err := Key("token_account", in.TokenAccount)
	if err != nil {
		return model.BurnTicket{}, err
	}
	return model.BurnTicket{Authority: admin, Mint: mint, Collection: collection, TokenAccount: tokenAccount}, nil
}

// --- responses (server -> client) ---

// ToProtoSession converts a session into a login response.
func ToProtoSession(s model.Session) *pb.LoginResponse {
	return &pb.LoginResponse{AccessToken: s.AccessToken, ExpiresAt: ts(s.ExpiresAt)}
}

// ToProtoTreasury converts a treasury view.
func ToProtoTreasury(t model.Treasury) *pb.Treasury {
	return &pb.Treasury{
		Address:        t.Address.ToBase58(),
		Authority:      t.Authority.ToBase58(),
		CollectionMint: t.CollectionMint.ToBase58(),
		EventAt:        unixTS(t.EventTS),
		Bump:           uint32(t.Bump),
		Price:          t.Price,
		Balance:        t.Balance,
		Payments:       int64(t.Payments),
	}
}

// ToProtoCollection converts an issued collection root.
func ToProtoCollection(c model.Collection) *pb.Collection {
	return &pb.Collection{
		Mint:          c.Mint.ToBase58(),
		Metadata:      c.Metadata.ToBase58(),
		MasterEdition: c.MasterEdition.ToBase58(),
		MintAuthority: c.MintAuthority.ToBase58(),
		Treasury:      ToProtoTreasury(c.Treasury),
	}
}

// ToProtoUses converts a use counter; nil stays nil.
func ToProtoUses(u *model.Uses) *pb.Uses {
	if u == nil {
		return nil
	}
	return &pb.Uses{Remaining: u.Remaining, Total: u.Total}
}

// ToProtoTicket converts a ticket.
func ToProtoTicket(t model.Ticket) *pb.Ticket {
	return &pb.Ticket{
		Mint:                 t.Mint.ToBase58(),
		Metadata:             t.Metadata.ToBase58(),
		MasterEdition:        t.MasterEdition.ToBase58(),
		TokenAccount:         b58(t.TokenAccount),
		Holder:               b58(t.Holder),
		Amount:               t.Amount,
		Collection:           b58(t.Collection),
		Verified:             t.Verified,
		Name:                 t.Fields.Name,
		Symbol:               t.Fields.Symbol,
		Uri:                  t.Fields.URI,
		SellerFeeBasisPoints: uint32(t.Fields.SellerFeeBasisPoints),
		Uses:                 ToProtoUses(t.Uses),
	}
}
