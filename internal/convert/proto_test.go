package convert

import (
	"crypto/ed25519"
	"errors"
	"testing"
	"time"

	"github.com/blocto/solana-go-sdk/common"
	"github.com/blocto/solana-go-sdk/types"
	"github.com/mr-tron/base58"
	"google.golang.org/protobuf/types/known/timestamppb"

	pb "github.com/and161185/nft-tickets/internal/api/tickets/v1"
	"github.com/and161185/nft-tickets/internal/authority"
	"github.com/and161185/nft-tickets/internal/errs"
	"github.com/and161185/nft-tickets/internal/metadata"
	"github.com/and161185/nft-tickets/internal/model"
)

func newKey() common.PublicKey { return types.NewAccount().PublicKey }

func TestKey_RequiredAndOptional(t *testing.T) {
	t.Parallel()

	if _, err := Key("mint", ""); !errors.Is(err, errs.ErrInvalidArgument) {
		t.Fatalf("empty required key: %v", err)
	}
	if _, err := Key("mint", "not-base58-0OIl"); !errors.Is(err, errs.ErrInvalidArgument) {
		t.Fatalf("bad key: %v", err)
	}
	k, err := OptionalKey("recipient", "")
	if err != nil || k != (common.PublicKey{}) {
		t.Fatalf("empty optional key: %v %v", k, err)
	}
	want := newKey()
	got, err := Key("mint", want.ToBase58())
	if err != nil || got != want {
		t.Fatalf("roundtrip: %v %v", got, err)
	}
}

func TestFromProtoIssueCollection(t *testing.T) {
	t.Parallel()

	payer := authority.Trusted(newKey())
	admin := newKey()
	event := time.Date(2030, 1, 2, 3, 4, 5, 0, time.UTC)

	got, err := FromProtoIssueCollection(payer, &pb.IssueCollectionRequest{
		Name:                 "Gala",
		Symbol:               "GALA",
		Uri:                  "https://example.org/gala.json",
		SellerFeeBasisPoints: 500,
		Price:                1_000,
		EventAt:              timestamppb.New(event),
		Authority:            admin.ToBase58(),
	})
	if err != nil {
		t.Fatalf("FromProtoIssueCollection: %v", err)
	}
	if got.Payer.Key() != payer.Key() || got.Authority != admin || got.Price != 1_000 {
		t.Fatalf("unexpected request: %+v", got)
	}
	if got.EventTS != uint64(event.Unix()) || got.Metadata != nil {
		t.Fatalf("event/metadata mismatch: %+v", got)
	}
	if got.Fields.SellerFeeBasisPoints != 500 || got.Fields.URI != "https://example.org/gala.json" {
		t.Fatalf("fields mismatch: %+v", got.Fields)
	}

	if _, err = FromProtoIssueCollection(payer, &pb.IssueCollectionRequest{SellerFeeBasisPoints: 70_000}); !errors.Is(err, errs.ErrInvalidArgument) {
		t.Fatalf("oversized fee: %v", err)
	}
	if _, err = FromProtoIssueCollection(payer, nil); !errors.Is(err, errs.ErrInvalidArgument) {
		t.Fatalf("nil request: %v", err)
	}
}

func TestFromProtoIssueTicket(t *testing.T) {
	t.Parallel()

	payer := authority.Trusted(newKey())
	col := newKey()
	if _, err := FromProtoIssueTicket(payer, &pb.IssueTicketRequest{Name: "x"}); !errors.Is(err, errs.ErrInvalidArgument) {
		t.Fatalf("missing collection: %v", err)
	}

	meta := newKey()
	got, err := FromProtoIssueTicket(payer, &pb.IssueTicketRequest{Collection: col.ToBase58(), Name: "Seat", Metadata: meta.ToBase58()})
	if err != nil {
		t.Fatalf("FromProtoIssueTicket: %v", err)
	}
	if got.Collection != col || got.Recipient != (common.PublicKey{}) {
		t.Fatalf("unexpected: %+v", got)
	}
	if got.Metadata == nil || *got.Metadata != meta || got.MasterEdition != nil {
		t.Fatalf("addresses: %+v", got)
	}
}

func TestFromProtoIssueTicket_NamedMint(t *testing.T) {
	t.Parallel()

	payer := authority.Trusted(newKey())
	mint := types.NewAccount()
	sig := base58.Encode(ed25519.Sign(mint.PrivateKey, payer.Key().Bytes()))
	req := &pb.IssueTicketRequest{Collection: newKey().ToBase58(), Name: "Seat", Mint: mint.PublicKey.ToBase58(), MintSignature: sig}

	got, err := FromProtoIssueTicket(payer, req)
	if err != nil {
		t.Fatalf("FromProtoIssueTicket: %v", err)
	}
	if got.Mint == nil || got.Mint.Key() != mint.PublicKey {
		t.Fatalf("mint: %+v", got.Mint)
	}
	if err = authority.Authorize(*got.Mint, mint.PublicKey, common.SystemProgramID); err != nil {
		t.Fatalf("mint signer not authorized: %v", err)
	}

	// signature by another key, or over another payer
	other := base58.Encode(ed25519.Sign(types.NewAccount().PrivateKey, payer.Key().Bytes()))
	for name, r := range map[string]*pb.IssueTicketRequest{
		"missing signature": {Collection: req.Collection, Mint: req.Mint},
		"bad encoding":      {Collection: req.Collection, Mint: req.Mint, MintSignature: "0OIl"},
		"wrong signer":      {Collection: req.Collection, Mint: req.Mint, MintSignature: other},
	} {
		if _, err = FromProtoIssueTicket(payer, r); err == nil {
			t.Fatalf("%s: want error", name)
		}
	}
	if _, err = FromProtoIssueTicket(authority.Trusted(newKey()), req); !errors.Is(err, errs.ErrUnauthorized) {
		t.Fatalf("foreign payer: %v", err)
	}
	if _, err = FromProtoIssueCollection(payer, &pb.IssueCollectionRequest{MintSignature: sig}); !errors.Is(err, errs.ErrInvalidArgument) {
		t.Fatalf("signature without mint: %v", err)
	}
}

func TestFromProtoUseTicket_DerivesMetadata(t *testing.T) {
	t.Parallel()

	owner := authority.Trusted(newKey())
	mint := newKey()
	got, err := FromProtoUseTicket(owner, &pb.UseTicketRequest{Mint: mint.ToBase58()})
	if err != nil {
		t.Fatalf("FromProtoUseTicket: %v", err)
	}
	want, _ := metadata.MetadataAddress(mint)
	if got.Metadata != want || got.TokenAccount != (common.PublicKey{}) {
		t.Fatalf("derived metadata mismatch: %+v", got)
	}
}

func TestFromProtoBurnTicket_RequiresAll(t *testing.T) {
	t.Parallel()

	admin := authority.Trusted(newKey())
	_, err := FromProtoBurnTicket(admin, &pb.BurnTicketRequest{Mint: newKey().ToBase58(), Collection: newKey().ToBase58()})
	if !errors.Is(err, errs.ErrInvalidArgument) {
		t.Fatalf("missing token account: %v", err)
	}
}

func TestToProtoTicket(t *testing.T) {
	t.Parallel()

	tk := model.Ticket{
		Mint:     newKey(),
		Metadata: newKey(),
		Holder:   newKey(),
		Amount:   1,
		Verified: true,
		Fields:   model.Fields{Name: "Seat", SellerFeeBasisPoints: 250},
		Uses:     &model.Uses{Remaining: 1, Total: 1},
	}
	p := ToProtoTicket(tk)
	if p.Mint != tk.Mint.ToBase58() || p.Holder != tk.Holder.ToBase58() {
		t.Fatalf("keys mismatch: %+v", p)
	}
	if p.TokenAccount != "" || p.Collection != "" {
		t.Fatalf("zero keys must be empty: %+v", p)
	}
	if p.Uses == nil || p.Uses.Remaining != 1 || p.SellerFeeBasisPoints != 250 || !p.Verified {
		t.Fatalf("payload mismatch: %+v", p)
	}
	if ToProtoUses(nil) != nil {
		t.Fatalf("nil uses must stay nil")
	}
}

func TestToProtoTreasury_EventAt(t *testing.T) {
	t.Parallel()

	tr := model.Treasury{Address: newKey(), EventTS: 1_900_000_000, Bump: 254, Payments: 3}
	p := ToProtoTreasury(tr)
	if p.EventAt == nil || p.EventAt.GetSeconds() != 1_900_000_000 {
		t.Fatalf("event_at: %v", p.EventAt)
	}
	if p.Bump != 254 || p.Payments != 3 {
		t.Fatalf("payload: %+v", p)
	}
	if ToProtoTreasury(model.Treasury{}).EventAt != nil {
		t.Fatalf("zero event must be nil")
	}
}
