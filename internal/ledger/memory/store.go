// Package memory is an in-process ledger store used in dev mode and tests.
//
// A single mutex is held for the whole of WithTx, so transactions are serializable; on error the
// account map and payment journal are restored to the snapshot taken when the transaction began.
package memory

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/blocto/solana-go-sdk/common"

	"github.com/and161185/nft-tickets/internal/errs"
	"github.com/and161185/nft-tickets/internal/ledger"
)

// Store keeps accounts in a map.
type Store struct {
	mu       sync.Mutex
	accounts map[common.PublicKey]ledger.Account
	payments []ledger.Payment
	now      func() time.Time
}

var _ ledger.Store = (*Store)(nil)

// New returns an empty store.
func New() *Store {
	return &Store{
		accounts: make(map[common.PublicKey]ledger.Account),
		now:      func() time.Time { return time.Now().UTC() },
	}
}

type txKey struct{}

func (s *Store) inTx(ctx context.Context) bool {
	owner, _ := ctx.Value(txKey{}).(*Store)
	return owner == s
}

// lock takes the mutex unless the caller already runs inside this store's transaction.
func (s *Store) lock(ctx context.Context) func() {
	if s.inTx(ctx) {
		return func() {}
	}
	s.mu.Lock()
	return s.mu.Unlock
}

// WithTx runs fn under the store lock and rolls back on error or panic.
func (s *Store) WithTx(ctx context.Context, fn func(ctx context.Context) error) (err error) {
	if s.inTx(ctx) {
		return fn(ctx)
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	snapshot := make(map[common.PublicKey]ledger.Account, len(s.accounts))
	for k, v := range s.accounts {
		snapshot[k] = v
	}
	journalLen := len(s.payments)

	committed := false
	defer func() {
		if !committed {
			s.accounts = snapshot
			s.payments = s.payments[:journalLen]
		}
	}()

	if err = fn(context.WithValue(ctx, txKey{}, s)); err != nil {
		return err
	}
	committed = true
	return nil
}

// Get returns a copy of the stored account.
func (s *Store) Get(ctx context.Context, addr common.PublicKey) (*ledger.Account, error) {
	defer s.lock(ctx)()
	acc, ok := s.accounts[addr]
	if !ok {
		return nil, errs.ErrNotFound
	}
	c := acc.Clone()
	return &c, nil
}

// Create inserts a new account.
func (s *Store) Create(ctx context.Context, acc *ledger.Account) error {
	defer s.lock(ctx)()
	if _, ok := s.accounts[acc.Address]; ok {
		return errs.ErrAlreadyInitialized
	}
	s.accounts[acc.Address] = acc.Clone()
	return nil
}

// Credit adds lamports to addr, creating a system account if needed.
func (s *Store) Credit(ctx context.Context, addr common.PublicKey, amount uint64) error {
	defer s.lock(ctx)()
	acc, ok := s.accounts[addr]
	if !ok {
		s.accounts[addr] = ledger.Account{Address: addr, Owner: ledger.SystemProgramID, Lamports: amount}
		return nil
	}
	if acc.Lamports+amount < acc.Lamports {
		return fmt.Errorf("%w: balance overflow", errs.ErrInvalidArgument)
	}
	acc.Lamports += amount
	s.accounts[addr] = acc
	return nil
}

// Update overwrites an existing account.
func (s *Store) Update(ctx context.Context, acc *ledger.Account) error {
	defer s.lock(ctx)()
	if _, ok := s.accounts[acc.Address]; !ok {
		return errs.ErrNotFound
	}
	s.accounts[acc.Address] = acc.Clone()
	return nil
}

// Delete removes an account.
func (s *Store) Delete(ctx context.Context, addr common.PublicKey) error {
	defer s.lock(ctx)()
	if _, ok := s.accounts[addr]; !ok {
		return errs.ErrNotFound
	}
	delete(s.accounts, addr)
	return nil
}

// AppendPayment appends to the journal, stamping CreatedAt when unset.
func (s *Store) AppendPayment(ctx context.Context, p ledger.Payment) error {
	defer s.lock(ctx)()
	if p.CreatedAt.IsZero() {
		p.CreatedAt = s.now()
	}
	s.payments = append(s.payments, p)
	return nil
}

// Payments lists payments into a treasury in insertion order.
func (s *Store) Payments(ctx context.Context, treasury common.PublicKey) ([]ledger.Payment, error) {
	defer s.lock(ctx)()
	var out []ledger.Payment
	for _, p := range s.payments {
		if p.Treasury == treasury {
			out = append(out, p)
		}
	}
	return out, nil
}

// Len reports the number of stored accounts.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.accounts)
}
