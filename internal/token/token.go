// Package token is the token ledger: mints, holdings, mint-to and burn.
package token

import (
	"context"
	"errors"
	"fmt"

	"github.com/blocto/solana-go-sdk/common"

	"github.com/and161185/nft-tickets/internal/authority"
	"github.com/and161185/nft-tickets/internal/errs"
	"github.com/and161185/nft-tickets/internal/ledger"
)

// Program operates on accounts owned by the token program id.
// Derived-authority proofs are honoured when issued for invoker.
type Program struct {
	store   ledger.Store
	invoker common.PublicKey
}

// New constructs the token ledger.
func New(store ledger.Store, invoker common.PublicKey) *Program {
	return &Program{store: store, invoker: invoker}
}

// AssociatedAddress returns the canonical holding account of owner for mint.
func AssociatedAddress(owner, mint common.PublicKey) (common.PublicKey, error) {
	ata, _, err := common.FindAssociatedTokenAddress(owner, mint)
	if err != nil {
		return common.PublicKey{}, fmt.Errorf("associated token address: %w", err)
	}
	return ata, nil
}

// CreateMint initializes a new mint with zero supply.
func (p *Program) CreateMint(ctx context.Context, mint common.PublicKey, decimals uint8, mintAuthority common.PublicKey, freeze *common.PublicKey) error {
	data, err := encodeMint(Mint{Decimals: decimals, MintAuthority: &mintAuthority, FreezeAuthority: freeze})
	if err != nil {
		return err
	}
	return p.store.Create(ctx, &ledger.Account{Address: mint, Owner: ledger.TokenProgramID, Data: data})
}

// EnsureAssociatedAccount returns the associated holding account, creating it empty when missing.
func (p *Program) EnsureAssociatedAccount(ctx context.Context, owner, mint common.PublicKey) (common.PublicKey, error) {
	ata, err := AssociatedAddress(owner, mint)
	if err != nil {
		return common.PublicKey{}, err
	}
	err = p.store.WithTx(ctx, func(ctx context.Context) error {
		if _, err := p.GetMint(ctx, mint); err != nil {
			return err
		}
		existing, err := p.GetAccount(ctx, ata)
		switch {
		case err == nil:
			if existing.Mint != mint || existing.Owner != owner {
				return fmt.Errorf("%w: associated account %s", errs.ErrInvalidArgument, ata.ToBase58())
			}
			return nil
		case !errors.Is(err, errs.ErrNotFound):
			return err
		}
		data, err := encodeAccount(Account{Mint: mint, Owner: owner})
		if err != nil {
			return err
		}
		return p.store.Create(ctx, &ledger.Account{Address: ata, Owner: ledger.TokenProgramID, Data: data})
	})
	if err != nil {
		return common.PublicKey{}, err
	}
	return ata, nil
}

// MintTo issues amount units of mint into dest. The signer must be the mint authority.
func (p *Program) MintTo(ctx context.Context, mint, dest common.PublicKey, signer authority.Signer, amount uint64) error {
	if amount == 0 {
		return fmt.Errorf("%w: zero amount", errs.ErrInvalidArgument)
	}
	return p.store.WithTx(ctx, func(ctx context.Context) error {
		macc, m, err := p.loadMint(ctx, mint)
		if err != nil {
			return err
		}
		if m.MintAuthority == nil {
			return fmt.Errorf("%w: mint %s has fixed supply", errs.ErrAuthorityMismatch, mint.ToBase58())
		}
		if err = authority.Authorize(signer, *m.MintAuthority, p.invoker); err != nil {
			return err
		}
		dacc, holding, err := p.loadAccount(ctx, dest)
		if err != nil {
			return err
		}
		if holding.Mint != mint {
			return fmt.Errorf("%w: account %s holds another mint", errs.ErrInvalidArgument, dest.ToBase58())
		}
		if m.Supply+amount < m.Supply {
			return fmt.Errorf("%w: supply overflow", errs.ErrInvalidArgument)
		}
		m.Supply += amount
		holding.Amount += amount
		if err = p.save(ctx, macc, m); err != nil {
			return err
		}
		return p.saveAccount(ctx, dacc, holding)
	})
}

// Burn destroys the whole balance of tokenAccount and closes it. The signer must be the mint authority.
func (p *Program) Burn(ctx context.Context, mint, tokenAccount common.PublicKey, signer authority.Signer) error {
	return p.store.WithTx(ctx, func(ctx context.Context) error {
		macc, m, err := p.loadMint(ctx, mint)
		if err != nil {
			return err
		}
		if m.MintAuthority == nil {
			return fmt.Errorf("%w: mint %s has no authority", errs.ErrAuthorityMismatch, mint.ToBase58())
		}
		if err = authority.Authorize(signer, *m.MintAuthority, p.invoker); err != nil {
			return err
		}
		_, holding, err := p.loadAccount(ctx, tokenAccount)
		if err != nil {
			return err
		}
		if holding.Mint != mint {
			return fmt.Errorf("%w: account %s holds another mint", errs.ErrInvalidArgument, tokenAccount.ToBase58())
		}
		m.Supply -= holding.Amount
		if err = p.save(ctx, macc, m); err != nil {
			return err
		}
		return p.store.Delete(ctx, tokenAccount)
	})
}

// GetMint reads a mint.
func (p *Program) GetMint(ctx context.Context, mint common.PublicKey) (Mint, error) {
	_, m, err := p.loadMint(ctx, mint)
	return m, err
}

// GetAccount reads a holding account.
func (p *Program) GetAccount(ctx context.Context, addr common.PublicKey) (Account, error) {
	_, a, err := p.loadAccount(ctx, addr)
	return a, err
}

func (p *Program) loadMint(ctx context.Context, addr common.PublicKey) (*ledger.Account, Mint, error) {
	acc, err := p.store.Get(ctx, addr)
	if err != nil {
		return nil, Mint{}, fmt.Errorf("mint %s: %w", addr.ToBase58(), err)
	}
	if acc.Owner != ledger.TokenProgramID {
		return nil, Mint{}, fmt.Errorf("%w: %s is not a mint", errs.ErrInvalidArgument, addr.ToBase58())
	}
	m, err := decodeMint(acc.Data)
	if err != nil {
		return nil, Mint{}, fmt.Errorf("mint %s: %w", addr.ToBase58(), err)
	}
	return acc, m, nil
}

func (p *Program) loadAccount(ctx context.Context, addr common.PublicKey) (*ledger.Account, Account, error) {
	acc, err := p.store.Get(ctx, addr)
	if err != nil {
		return nil, Account{}, fmt.Errorf("token account %s: %w", addr.ToBase58(), err)
	}
	if acc.Owner != ledger.TokenProgramID {
		return nil, Account{}, fmt.Errorf("%w: %s is not a token account", errs.ErrInvalidArgument, addr.ToBase58())
	}
	a, err := decodeAccount(acc.Data)
	if err != nil {
		return nil, Account{}, fmt.Errorf("token account %s: %w", addr.ToBase58(), err)
	}
	return acc, a, nil
}

func (p *Program) save(ctx context.Context, acc *ledger.Account, m Mint) error {
	data, err := encodeMint(m)
	if err != nil {
		return err
	}
	acc.Data = data
	return p.store.Update(ctx, acc)
}

func (p *Program) saveAccount(ctx context.Context, acc *ledger.Account, a Account) error {
	data, err := encodeAccount(a)
	if err != nil {
		return err
	}
	acc.Data = data
	return p.store.Update(ctx, acc)
}
