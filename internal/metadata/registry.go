// Package metadata is the metadata registry: per-mint records carrying name, creators,
// collection membership and the use counter, plus master editions.
package metadata

import (
	"context"
	"errors"
	"fmt"

	"github.com/blocto/solana-go-sdk/common"
	"github.com/blocto/solana-go-sdk/program/metaplex/token_metadata"

	"github.com/and161185/nft-tickets/internal/authority"
	"github.com/and161185/nft-tickets/internal/errs"
	"github.com/and161185/nft-tickets/internal/ledger"
	"github.com/and161185/nft-tickets/internal/token"
)

// MetadataAddress returns the record address derived from mint.
func MetadataAddress(mint common.PublicKey) (common.PublicKey, error) {
	return token_metadata.GetTokenMetaPubkey(mint)
}

// EditionAddress returns the master edition address derived from mint.
func EditionAddress(mint common.PublicKey) (common.PublicKey, error) {
	return token_metadata.GetMasterEdition(mint)
}

// Registry reads and writes registry accounts.
type Registry struct {
	store   ledger.Store
	tokens  *token.Program
	invoker common.PublicKey
}

// New constructs the registry. Derived-authority proofs are honoured when issued for invoker.
func New(store ledger.Store, tokens *token.Program, invoker common.PublicKey) *Registry {
	return &Registry{store: store, tokens: tokens, invoker: invoker}
}

// CreateParams describes a new record.
type CreateParams struct {
	Metadata        common.PublicKey
	Mint            common.PublicKey
	MintAuthority   authority.Signer
	UpdateAuthority common.PublicKey
	Record          Record

	// MasterEdition, when set, also creates the master edition with zero print supply.
	MasterEdition *common.PublicKey
}

// CreateRecord stores a metadata record for a mint. The signer must be the mint authority.
func (r *Registry) CreateRecord(ctx context.Context, p CreateParams) error {
	if err := checkAddress(p.Metadata, p.Mint, MetadataAddress, errs.ErrBadMetadataPda); err != nil {
		return err
	}
	if p.MasterEdition != nil {
		if err := checkAddress(*p.MasterEdition, p.Mint, EditionAddress, errs.ErrBadEditionPda); err != nil {
			return err
		}
	}
	rec := p.Record
	rec.Kind = KindMetadataV1
	rec.Mint = p.Mint
	rec.UpdateAuthority = p.UpdateAuthority
	if err := rec.validate(); err != nil {
		return err
	}
	for _, c := range rec.Creators {
		if c.Verified && (p.MintAuthority == nil || c.Address != p.MintAuthority.Key()) {
			return fmt.Errorf("%w: creator %s cannot be verified by this signer", errs.ErrAuthorityMismatch, c.Address.ToBase58())
		}
	}

	return r.store.WithTx(ctx, func(ctx context.Context) error {
		m, err := r.tokens.GetMint(ctx, p.Mint)
		if err != nil {
			return err
		}
		if m.MintAuthority == nil {
			return fmt.Errorf("%w: mint %s has no authority", errs.ErrAuthorityMismatch, p.Mint.ToBase58())
		}
		if err = authority.Authorize(p.MintAuthority, *m.MintAuthority, r.invoker); err != nil {
			return err
		}
		data, err := encodeRecord(rec)
		if err != nil {
			return err
		}
		if err = r.store.Create(ctx, &ledger.Account{Address: p.Metadata, Owner: ledger.MetadataProgramID, Data: data}); err != nil {
			return err
		}
		if p.MasterEdition == nil {
			return nil
		}
		if m.Decimals != 0 || m.Supply > 1 {
			return fmt.Errorf("%w: master edition needs a non-divisible mint", errs.ErrInvalidArgument)
		}
		zero := uint64(0)
		edata, err := encodeEdition(Edition{Kind: KindMasterEditionV2, MaxSupply: &zero})
		if err != nil {
			return err
		}
		return r.store.Create(ctx, &ledger.Account{Address: *p.MasterEdition, Owner: ledger.MetadataProgramID, Data: edata})
	})
}

// VerifyParams names the accounts of a sized collection verification.
type VerifyParams struct {
	Metadata            common.PublicKey
	ItemAuthority       authority.Signer
	CollectionAuthority authority.Signer
	CollectionMint      common.PublicKey
	CollectionMetadata  common.PublicKey
}

// SetAndVerifySizedCollectionItem marks the item's collection reference verified and grows the root by one.
// Both the root's and the item's update authorities must sign.
func (r *Registry) SetAndVerifySizedCollectionItem(ctx context.Context, p VerifyParams) error {
	if err := checkAddress(p.CollectionMetadata, p.CollectionMint, MetadataAddress, errs.ErrBadMetadataPda); err != nil {
		return err
	}
	if p.Metadata == p.CollectionMetadata {
		return fmt.Errorf("%w: a root cannot join itself", errs.ErrCollectionMismatch)
	}
	return r.store.WithTx(ctx, func(ctx context.Context) error {
		itemAcc, item, err := r.load(ctx, p.Metadata)
		if err != nil {
			return err
		}
		rootAcc, root, err := r.load(ctx, p.CollectionMetadata)
		if err != nil {
			return err
		}
		switch {
		case root.Mint != p.CollectionMint:
			return fmt.Errorf("%w: root record belongs to %s", errs.ErrMetadataMintMismatch, root.Mint.ToBase58())
		case root.CollectionDetails == nil:
			return errs.ErrNotSizedCollection
		case item.Collection == nil || item.Collection.Key != p.CollectionMint:
			return errs.ErrCollectionMismatch
		case item.Collection.Verified:
			return errs.ErrAlreadyVerified
		}
		if err = authority.Authorize(p.CollectionAuthority, root.UpdateAuthority, r.invoker); err != nil {
			return fmt.Errorf("collection authority: %w", err)
		}
		if err = authority.Authorize(p.ItemAuthority, item.UpdateAuthority, r.invoker); err != nil {
			return fmt.Errorf("item authority: %w", err)
		}
		item.Collection.Verified = true
		root.CollectionDetails.Size++
		if err = r.save(ctx, itemAcc, item); err != nil {
			return err
		}
		return r.save(ctx, rootAcc, root)
	})
}

// UtilizeParams names the accounts of a use.
type UtilizeParams struct {
	Metadata     common.PublicKey
	TokenAccount common.PublicKey
	Owner        authority.Signer
	Count        uint64
}

// Utilize consumes Count uses. The owner must hold the token.
func (r *Registry) Utilize(ctx context.Context, p UtilizeParams) error {
	if p.Count == 0 {
		return fmt.Errorf("%w: zero uses", errs.ErrInvalidArgument)
	}
	return r.store.WithTx(ctx, func(ctx context.Context) error {
		acc, rec, err := r.load(ctx, p.Metadata)
		if err != nil {
			return err
		}
		if rec.Uses == nil {
			return errs.ErrNoUsesConfigured
		}
		if rec.Uses.Remaining < p.Count {
			return fmt.Errorf("%w: %d left", errs.ErrNoRemainingUses, rec.Uses.Remaining)
		}
		holding, err := r.tokens.GetAccount(ctx, p.TokenAccount)
		if err != nil {
			return err
		}
		if holding.Mint != rec.Mint {
			return fmt.Errorf("%w: token account holds %s", errs.ErrMetadataMintMismatch, holding.Mint.ToBase58())
		}
		if holding.Amount < 1 {
			return fmt.Errorf("%w: token account is empty", errs.ErrAuthorityMismatch)
		}
		if err = authority.Authorize(p.Owner, holding.Owner, r.invoker); err != nil {
			return err
		}
		rec.Uses.Remaining -= p.Count
		return r.save(ctx, acc, rec)
	})
}

// Read returns the record stored at addr.
func (r *Registry) Read(ctx context.Context, addr common.PublicKey) (Record, error) {
	_, rec, err := r.load(ctx, addr)
	return rec, err
}

// ReadEdition returns the master edition stored at addr.
func (r *Registry) ReadEdition(ctx context.Context, addr common.PublicKey) (Edition, error) {
	acc, err := r.store.Get(ctx, addr)
	if err != nil {
		return Edition{}, err
	}
	if acc.Owner != ledger.MetadataProgramID {
		return Edition{}, fmt.Errorf("%w: %s not owned by the registry", errs.ErrInvalidMetadata, addr.ToBase58())
	}
	return decodeEdition(acc.Data)
}

// BurnParams names the accounts of a burn.
type BurnParams struct {
	Authority     authority.Signer
	Metadata      common.PublicKey
	Mint          common.PublicKey
	MasterEdition common.PublicKey
	TokenAccount  common.PublicKey

	// CollectionMetadata is required when the item is a verified collection member.
	CollectionMetadata *common.PublicKey
}

// Burn destroys the token balance, the record and the master edition.
// The signer must be the record's update authority and the mint authority.
func (r *Registry) Burn(ctx context.Context, p BurnParams) error {
	if err := checkAddress(p.Metadata, p.Mint, MetadataAddress, errs.ErrBadMetadataPda); err != nil {
		return err
	}
	if err := checkAddress(p.MasterEdition, p.Mint, EditionAddress, errs.ErrBadEditionPda); err != nil {
		return err
	}
	return r.store.WithTx(ctx, func(ctx context.Context) error {
		_, rec, err := r.load(ctx, p.Metadata)
		if err != nil {
			return err
		}
		if rec.Mint != p.Mint {
			return errs.ErrMetadataMintMismatch
		}
		if err = authority.Authorize(p.Authority, rec.UpdateAuthority, r.invoker); err != nil {
			return err
		}
		if c := rec.Collection; c != nil && c.Verified {
			if p.CollectionMetadata == nil {
				return fmt.Errorf("%w: collection metadata required", errs.ErrCollectionMismatch)
			}
			if err = checkAddress(*p.CollectionMetadata, c.Key, MetadataAddress, errs.ErrCollectionMismatch); err != nil {
				return err
			}
			rootAcc, root, err := r.load(ctx, *p.CollectionMetadata)
			if err != nil {
				return err
			}
			if root.CollectionDetails != nil && root.CollectionDetails.Size > 0 {
				root.CollectionDetails.Size--
				if err = r.save(ctx, rootAcc, root); err != nil {
					return err
				}
			}
		}
		if err = r.tokens.Burn(ctx, p.Mint, p.TokenAccount, p.Authority); err != nil {
			return err
		}
		if err = r.store.Delete(ctx, p.Metadata); err != nil {
			return err
		}
		if err = r.store.Delete(ctx, p.MasterEdition); err != nil && !errors.Is(err, errs.ErrNotFound) {
			return err
		}
		return nil
	})
}

func (r *Registry) load(ctx context.Context, addr common.PublicKey) (*ledger.Account, Record, error) {
	acc, err := r.store.Get(ctx, addr)
	if err != nil {
		return nil, Record{}, err
	}
	if acc.Owner != ledger.MetadataProgramID {
		return nil, Record{}, fmt.Errorf("%w: %s not owned by the registry", errs.ErrInvalidMetadata, addr.ToBase58())
	}
	rec, err := DecodeRecord(acc.Data)
	if err != nil {
		return nil, Record{}, err
	}
	return acc, rec, nil
}

func (r *Registry) save(ctx context.Context, acc *ledger.Account, rec Record) error {
	data, err := encodeRecord(rec)
	if err != nil {
		return err
	}
	acc.Data = data
	return r.store.Update(ctx, acc)
}

func checkAddress(got, mint common.PublicKey, derive func(common.PublicKey) (common.PublicKey, error), mismatch error) error {
	want, err := derive(mint)
	if err != nil {
		return err
	}
	if got != want {
		return fmt.Errorf("%w: got %s, want %s", mismatch, got.ToBase58(), want.ToBase58())
	}
	return nil
}
