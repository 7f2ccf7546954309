package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/blocto/solana-go-sdk/common"
	"github.com/blocto/solana-go-sdk/types"
	"go.uber.org/zap"

	"github.com/and161185/nft-tickets/internal/authority"
	"github.com/and161185/nft-tickets/internal/clock"
	"github.com/and161185/nft-tickets/internal/errs"
	"github.com/and161185/nft-tickets/internal/ledger"
	"github.com/and161185/nft-tickets/internal/metadata"
	"github.com/and161185/nft-tickets/internal/model"
	"github.com/and161185/nft-tickets/internal/system"
	"github.com/and161185/nft-tickets/internal/token"
	"github.com/and161185/nft-tickets/internal/treasury"
)

// TicketService issues, redeems and revokes event tickets.
type TicketService interface {
	// Issue dispatches a tagged issuance request.
	Issue(ctx context.Context, req model.Issuance) (model.Issued, error)
	// IssueCollection creates the collection root of an event together with its treasury.
	IssueCollection(ctx context.Context, req model.IssueRoot) (model.Collection, error)
	// IssueTicket pays the treasury, mints one ticket and verifies it into the collection atomically.
	IssueTicket(ctx context.Context, req model.IssueMember) (model.Ticket, error)
	// Use consumes one use of a ticket and returns the counter after the use.
	Use(ctx context.Context, req model.UseTicket) (model.Uses, error)
	// Burn permanently destroys a ticket.
	Burn(ctx context.Context, req model.BurnTicket) error
	// GetTicket returns a ticket and, when holder is set, the holder's balance of it.
	GetTicket(ctx context.Context, mint, holder common.PublicKey) (model.Ticket, error)
	// GetTreasury returns the treasury of a collection with its balance and payment count.
	GetTreasury(ctx context.Context, collection common.PublicKey) (model.Treasury, error)
	// Airdrop credits lamports to an account.
	Airdrop(ctx context.Context, to common.PublicKey, amount uint64) error
	// Balance returns the lamports of an account.
	Balance(ctx context.Context, addr common.PublicKey) (uint64, error)
}

// Deps groups the collaborators of TicketServiceImpl.
type Deps struct {
	Store      ledger.Store
	Deriver    *authority.Deriver
	System     *system.Program
	Tokens     *token.Program
	Registry   *metadata.Registry
	Treasuries *treasury.Ledger
	Clock      clock.Clock
	Log        *zap.Logger
}

// NewDeps wires the collaborators over one store for the given program id.
func NewDeps(store ledger.Store, program common.PublicKey, clk clock.Clock, log *zap.Logger) Deps {
	deriver := authority.NewDeriver(program)
	sys := system.New(store)
	tokens := token.New(store, program)
	return Deps{
		Store:      store,
		Deriver:    deriver,
		System:     sys,
		Tokens:     tokens,
		Registry:   metadata.New(store, tokens, program),
		Treasuries: treasury.New(store, deriver, sys),
		Clock:      clk,
		Log:        log,
	}
}

type TicketServiceImpl struct {
	Deps
	newMint func() common.PublicKey
}

var _ TicketService = (*TicketServiceImpl)(nil)

// NewTicketService constructs TicketService.
func NewTicketService(d Deps) *TicketServiceImpl {
	if d.Log == nil {
		d.Log = zap.NewNop()
	}
	if d.Clock == nil {
		d.Clock = clock.NewSystem()
	}
	return &TicketServiceImpl{
		Deps:    d,
		newMint: func() common.PublicKey { return types.NewAccount().PublicKey },
	}
}

// Issue resolves the request variant.
func (s *TicketServiceImpl) Issue(ctx context.Context, req model.Issuance) (model.Issued, error) {
	switch r := req.(type) {
	case model.IssueRoot:
		c, err := s.IssueCollection(ctx, r)
		if err != nil {
			return model.Issued{}, err
		}
		return model.Issued{Root: &c}, nil
	case model.IssueMember:
		t, err := s.IssueTicket(ctx, r)
		if err != nil {
			return model.Issued{}, err
		}
		return model.Issued{Member: &t}, nil
	default:
		return model.Issued{}, fmt.Errorf("%w: issuance %T", errs.ErrInvalidArgument, req)
	}
}

// IssueCollection creates a mint with zero supply, its sized-collection record, master edition and treasury.
// The mint's derived authority holds both mint and update authority.
func (s *TicketServiceImpl) IssueCollection(ctx context.Context, req model.IssueRoot) (model.Collection, error) {
	mint, err := s.mintKey(req.Mint)
	if err != nil {
		return model.Collection{}, err
	}
	meta, edition, err := addresses(mint)
	if err != nil {
		return model.Collection{}, err
	}
	if req.Metadata != nil && *req.Metadata != meta {
		return model.Collection{}, fmt.Errorf("%w: got %s, want %s", errs.ErrMetadataAddressMismatch, req.Metadata.ToBase58(), meta.ToBase58())
	}
	mintAuth, err := s.Deriver.Derive(authority.LabelMintAuthority, mint)
	if err != nil {
		return model.Collection{}, err
	}
	admin := req.Authority
	if admin == (common.PublicKey{}) {
		admin = req.Payer.Key()
	}

	var out model.Collection
	err = s.Store.WithTx(ctx, func(ctx context.Context) error {
		t, err := s.Treasuries.Create(ctx, req.Payer, admin, mint, req.Price, req.EventTS)
		if err != nil {
			return err
		}
		freeze := mintAuth.Key()
		if err = s.Tokens.CreateMint(ctx, mint, 0, mintAuth.Key(), &freeze); err != nil {
			return err
		}
		err = s.Registry.CreateRecord(ctx, metadata.CreateParams{
			Metadata:        meta,
			Mint:            mint,
			MintAuthority:   mintAuth,
			UpdateAuthority: mintAuth.Key(),
			MasterEdition:   &edition,
			Record: metadata.Record{
				Name:                 req.Fields.Name,
				Symbol:               req.Fields.Symbol,
				URI:                  req.Fields.URI,
				SellerFeeBasisPoints: req.Fields.SellerFeeBasisPoints,
				Creators:             []metadata.Creator{{Address: mintAuth.Key(), Share: 100}},
				IsMutable:            true,
				TokenStandard:        metadata.TokenStandardNonFungible,
				CollectionDetails:    &metadata.CollectionDetails{Size: 0},
			},
		})
		if err != nil {
			return err
		}
		out = model.Collection{
			Mint:          mint,
			Metadata:      meta,
			MasterEdition: edition,
			MintAuthority: mintAuth.Key(),
			Treasury:      treasuryView(t),
		}
		return nil
	})
	if err != nil {
		return model.Collection{}, err
	}

	s.Log.Info("collection issued",
		zap.String("mint", mint.ToBase58()),
		zap.String("treasury", out.Treasury.Address.ToBase58()),
		zap.String("authority", admin.ToBase58()),
		zap.Uint64("price", req.Price),
	)
	return out, nil
}

// IssueTicket runs payment, mint, record creation and collection verification as one unit.
func (s *TicketServiceImpl) IssueTicket(ctx context.Context, req model.IssueMember) (model.Ticket, error) {
	mint, err := s.mintKey(req.Mint)
	if err != nil {
		return model.Ticket{}, err
	}
	meta, edition, err := addresses(mint)
	if err != nil {
		return model.Ticket{}, err
	}
	if req.Metadata != nil && *req.Metadata != meta {
		return model.Ticket{}, fmt.Errorf("%w: got %s, want %s", errs.ErrBadMetadataPda, req.Metadata.ToBase58(), meta.ToBase58())
	}
	if req.MasterEdition != nil && *req.MasterEdition != edition {
		return model.Ticket{}, fmt.Errorf("%w: got %s, want %s", errs.ErrBadEditionPda, req.MasterEdition.ToBase58(), edition.ToBase58())
	}
	collectionMeta, err := metadata.MetadataAddress(req.Collection)
	if err != nil {
		return model.Ticket{}, err
	}
	collectionAuth, err := s.Deriver.Derive(authority.LabelMintAuthority, req.Collection)
	if err != nil {
		return model.Ticket{}, err
	}
	itemAuth, err := s.Deriver.Derive(authority.LabelMintAuthority, mint)
	if err != nil {
		return model.Ticket{}, err
	}
	recipient := req.Recipient
	if recipient == (common.PublicKey{}) {
		recipient = req.Payer.Key()
	}

	var out model.Ticket
	err = s.Store.WithTx(ctx, func(ctx context.Context) error {
		t, err := s.Treasuries.Load(ctx, req.Collection)
		if err != nil {
			return err
		}
		if ends := t.EventTime(); !ends.IsZero() && !s.Clock.Now().Before(ends) {
			return fmt.Errorf("%w: at %s", errs.ErrEventEnded, ends)
		}
		if _, err = s.Treasuries.CollectPayment(ctx, t, req.Payer); err != nil {
			return err
		}
		freeze := itemAuth.Key()
		if err = s.Tokens.CreateMint(ctx, mint, 0, itemAuth.Key(), &freeze); err != nil {
			return err
		}
		ata, err := s.Tokens.EnsureAssociatedAccount(ctx, recipient, mint)
		if err != nil {
			return err
		}
		if err = s.Tokens.MintTo(ctx, mint, ata, itemAuth, 1); err != nil {
			return err
		}
		err = s.Registry.CreateRecord(ctx, metadata.CreateParams{
			Metadata:        meta,
			Mint:            mint,
			MintAuthority:   itemAuth,
			UpdateAuthority: itemAuth.Key(),
			MasterEdition:   &edition,
			Record: metadata.Record{
				Name:                 req.Fields.Name,
				Symbol:               req.Fields.Symbol,
				URI:                  req.Fields.URI,
				SellerFeeBasisPoints: req.Fields.SellerFeeBasisPoints,
				Creators:             []metadata.Creator{{Address: itemAuth.Key(), Share: 100}},
				IsMutable:            req.IsMutable,
				TokenStandard:        metadata.TokenStandardNonFungible,
				Collection:           &metadata.Collection{Key: req.Collection},
				Uses:                 &metadata.Uses{Method: metadata.UseSingle, Remaining: 1, Total: 1},
			},
		})
		if err != nil {
			return err
		}
		err = s.Registry.SetAndVerifySizedCollectionItem(ctx, metadata.VerifyParams{
			Metadata:            meta,
			ItemAuthority:       itemAuth,
			CollectionAuthority: collectionAuth,
			CollectionMint:      req.Collection,
			CollectionMetadata:  collectionMeta,
		})
		if err != nil {
			return err
		}
		out, err = s.ticket(ctx, mint, recipient)
		return err
	})
	if err != nil {
		return model.Ticket{}, err
	}

	s.Log.Info("ticket issued",
		zap.String("mint", mint.ToBase58()),
		zap.String("collection", req.Collection.ToBase58()),
		zap.String("recipient", recipient.ToBase58()),
	)
	return out, nil
}

// Use consumes exactly one use. The counter only moves down.
func (s *TicketServiceImpl) Use(ctx context.Context, req model.UseTicket) (model.Uses, error) {
	tokenAccount := req.TokenAccount
	if tokenAccount == (common.PublicKey{}) {
		ata, err := token.AssociatedAddress(req.Owner.Key(), req.Mint)
		if err != nil {
			return model.Uses{}, err
		}
		tokenAccount = ata
	}

	var out model.Uses
	err := s.Store.WithTx(ctx, func(ctx context.Context) error {
		rec, err := s.Registry.Read(ctx, req.Metadata)
		if errors.Is(err, errs.ErrNotFound) {
			return fmt.Errorf("%w: %w", errs.ErrInvalidMetadata, err)
		}
		if err != nil {
			return err
		}
		switch {
		case rec.Mint != req.Mint:
			return fmt.Errorf("%w: record is for %s", errs.ErrMetadataMintMismatch, rec.Mint.ToBase58())
		case rec.Uses == nil:
			return errs.ErrNoUsesConfigured
		case rec.Uses.Remaining < 1:
			return errs.ErrNoRemainingUses
		}
		before := rec.Uses.Remaining

		err = s.Registry.Utilize(ctx, metadata.UtilizeParams{
			Metadata:     req.Metadata,
			TokenAccount: tokenAccount,
			Owner:        req.Owner,
			Count:        1,
		})
		if err != nil {
			return err
		}

		after, err := s.Registry.Read(ctx, req.Metadata)
		if err != nil {
			return fmt.Errorf("%w: %w", errs.ErrUseFailed, err)
		}
		if after.Uses == nil || after.Uses.Remaining != before-1 {
			return errs.ErrUseFailed
		}
		out = model.Uses{Remaining: after.Uses.Remaining, Total: after.Uses.Total}
		return nil
	})
	if err != nil {
		return model.Uses{}, err
	}

	s.Log.Info("ticket used",
		zap.String("mint", req.Mint.ToBase58()),
		zap.String("owner", req.Owner.Key().ToBase58()),
		zap.Uint64("remaining", out.Remaining),
	)
	return out, nil
}

// Burn revokes a ticket on behalf of the event administrator; the mint's derived authority signs the burn.
func (s *TicketServiceImpl) Burn(ctx context.Context, req model.BurnTicket) error {
	if req.TokenAccount == (common.PublicKey{}) {
		return fmt.Errorf("%w: token account required", errs.ErrInvalidArgument)
	}
	meta, edition, err := addresses(req.Mint)
	if err != nil {
		return err
	}
	collectionMeta, err := metadata.MetadataAddress(req.Collection)
	if err != nil {
		return err
	}
	itemAuth, err := s.Deriver.Derive(authority.LabelMintAuthority, req.Mint)
	if err != nil {
		return err
	}

	err = s.Store.WithTx(ctx, func(ctx context.Context) error {
		t, err := s.Treasuries.Load(ctx, req.Collection)
		if err != nil {
			return err
		}
		if err = authority.Authorize(req.Authority, t.Authority, s.Deriver.Program()); err != nil {
			return err
		}
		rec, err := s.Registry.Read(ctx, meta)
		if err != nil {
			return err
		}
		if rec.Collection == nil || rec.Collection.Key != req.Collection {
			return errs.ErrCollectionMismatch
		}
		return s.Registry.Burn(ctx, metadata.BurnParams{
			Authority:          itemAuth,
			Metadata:           meta,
			Mint:               req.Mint,
			MasterEdition:      edition,
			TokenAccount:       req.TokenAccount,
			CollectionMetadata: &collectionMeta,
		})
	})
	if err != nil {
		return err
	}

	s.Log.Info("ticket burned",
		zap.String("mint", req.Mint.ToBase58()),
		zap.String("collection", req.Collection.ToBase58()),
		zap.String("authority", req.Authority.Key().ToBase58()),
	)
	return nil
}

// GetTicket reads a ticket.
func (s *TicketServiceImpl) GetTicket(ctx context.Context, mint, holder common.PublicKey) (model.Ticket, error) {
	return s.ticket(ctx, mint, holder)
}

// GetTreasury reads the treasury of a collection.
func (s *TicketServiceImpl) GetTreasury(ctx context.Context, collection common.PublicKey) (model.Treasury, error) {
	t, err := s.Treasuries.Load(ctx, collection)
	if err != nil {
		return model.Treasury{}, err
	}
	v := treasuryView(t)
	if v.Balance, err = s.Treasuries.Balance(ctx, t); err != nil {
		return model.Treasury{}, err
	}
	payments, err := s.Treasuries.Payments(ctx, t)
	if err != nil {
		return model.Treasury{}, err
	}
	v.Payments = len(payments)
	return v, nil
}

// Airdrop credits lamports.
func (s *TicketServiceImpl) Airdrop(ctx context.Context, to common.PublicKey, amount uint64) error {
	if err := s.System.Airdrop(ctx, to, amount); err != nil {
		return err
	}
	s.Log.Info("airdrop", zap.String("to", to.ToBase58()), zap.Uint64("lamports", amount))
	return nil
}

// Balance returns lamports held at addr.
func (s *TicketServiceImpl) Balance(ctx context.Context, addr common.PublicKey) (uint64, error) {
	return s.System.Balance(ctx, addr)
}

func (s *TicketServiceImpl) ticket(ctx context.Context, mint, holder common.PublicKey) (model.Ticket, error) {
	meta, edition, err := addresses(mint)
	if err != nil {
		return model.Ticket{}, err
	}
	rec, err := s.Registry.Read(ctx, meta)
	if err != nil {
		return model.Ticket{}, fmt.Errorf("ticket %s: %w", mint.ToBase58(), err)
	}
	out := model.Ticket{
		Mint:          mint,
		Metadata:      meta,
		MasterEdition: edition,
		Fields: model.Fields{
			Name:                 rec.Name,
			Symbol:               rec.Symbol,
			URI:                  rec.URI,
			SellerFeeBasisPoints: rec.SellerFeeBasisPoints,
		},
	}
	if rec.Collection != nil {
		out.Collection = rec.Collection.Key
		out.Verified = rec.Collection.Verified
	}
	if rec.Uses != nil {
		out.Uses = &model.Uses{Remaining: rec.Uses.Remaining, Total: rec.Uses.Total}
	}
	if holder == (common.PublicKey{}) {
		return out, nil
	}
	ata, err := token.AssociatedAddress(holder, mint)
	if err != nil {
		return model.Ticket{}, err
	}
	out.Holder = holder
	out.TokenAccount = ata
	acc, err := s.Tokens.GetAccount(ctx, ata)
	switch {
	case errors.Is(err, errs.ErrNotFound):
	case err != nil:
		return model.Ticket{}, err
	default:
		out.Amount = acc.Amount
	}
	return out, nil
}

// mintKey returns the caller-named mint, or a fresh key when none is given.
func (s *TicketServiceImpl) mintKey(signer *authority.KeySigner) (common.PublicKey, error) {
	if signer == nil {
		return s.newMint(), nil
	}
	if err := authority.Authorize(*signer, signer.Key(), ledger.SystemProgramID); err != nil {
		return common.PublicKey{}, fmt.Errorf("mint: %w", err)
	}
	return signer.Key(), nil
}

func addresses(mint common.PublicKey) (meta, edition common.PublicKey, err error) {
	if meta, err = metadata.MetadataAddress(mint); err != nil {
		return
	}
	edition, err = metadata.EditionAddress(mint)
	return
}

func treasuryView(t treasury.Treasury) model.Treasury {
	return model.Treasury{
		Address:        t.Address,
		Authority:      t.Authority,
		CollectionMint: t.CollectionMint,
		EventTS:        t.EventTS,
		Bump:           t.Bump,
		Price:          t.Price,
	}
}
