// Package system is the native value ledger: plain accounts holding lamports.
package system

import (
	"context"
	"errors"
	"fmt"

	"github.com/blocto/solana-go-sdk/common"

	"github.com/and161185/nft-tickets/internal/authority"
	"github.com/and161185/nft-tickets/internal/errs"
	"github.com/and161185/nft-tickets/internal/ledger"
)

// Program moves lamports between accounts.
type Program struct {
	store ledger.Store
}

// New constructs the native value ledger over store.
func New(store ledger.Store) *Program {
	return &Program{store: store}
}

// Transfer moves amount lamports from the signer's account to to.
// A missing destination is created as a system account.
func (p *Program) Transfer(ctx context.Context, from authority.KeySigner, to common.PublicKey, amount uint64) error {
	return p.store.WithTx(ctx, func(ctx context.Context) error {
		src, err := p.store.Get(ctx, from.Key())
		if errors.Is(err, errs.ErrNotFound) {
			return fmt.Errorf("%w: payer %s has no account", errs.ErrInsufficientFunds, from.Key().ToBase58())
		}
		if err != nil {
			return err
		}
		if err = authority.Authorize(from, src.Address, ledger.SystemProgramID); err != nil {
			return err
		}
		if src.Lamports < amount {
			return fmt.Errorf("%w: have %d, need %d", errs.ErrInsufficientFunds, src.Lamports, amount)
		}
		if amount == 0 || src.Address == to {
			return nil
		}
		src.Lamports -= amount
		if err = p.store.Update(ctx, src); err != nil {
			return err
		}
		return p.credit(ctx, to, amount)
	})
}

// Airdrop mints lamports out of thin air. Only wired in development mode.
func (p *Program) Airdrop(ctx context.Context, to common.PublicKey, amount uint64) error {
	if amount == 0 {
		return fmt.Errorf("%w: zero airdrop", errs.ErrInvalidArgument)
	}
	return p.store.WithTx(ctx, func(ctx context.Context) error {
		return p.credit(ctx, to, amount)
	})
}

// Balance returns the lamports held at addr; unknown accounts hold zero.
func (p *Program) Balance(ctx context.Context, addr common.PublicKey) (uint64, error) {
	acc, err := p.store.Get(ctx, addr)
	if errors.Is(err, errs.ErrNotFound) {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	return acc.Lamports, nil
}

func (p *Program) credit(ctx context.Context, to common.PublicKey, amount uint64) error {
	return p.store.Credit(ctx, to, amount)
}
