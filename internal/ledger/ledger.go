// Package ledger defines the account model and the storage contract shared by all programs.
package ledger

import (
	"context"
	"time"

	"github.com/blocto/solana-go-sdk/common"
	"github.com/gofrs/uuid/v5"
)

// Well-known program ids that own ledger accounts.
var (
	SystemProgramID   = common.SystemProgramID
	TokenProgramID    = common.TokenProgramID
	MetadataProgramID = common.MetaplexTokenMetaProgramID
)

// Account is a single addressable ledger entry. Owner is the program allowed to change Data.
type Account struct {
	Address  common.PublicKey
	Owner    common.PublicKey
	Lamports uint64
	Data     []byte
}

// Clone returns a deep copy so callers never alias stored bytes.
func (a Account) Clone() Account {
	a.Data = append([]byte(nil), a.Data...)
	return a
}

// Payment is one append-only entry of a treasury's payment history.
type Payment struct {
	ID        uuid.UUID
	Treasury  common.PublicKey
	Payer     common.PublicKey
	Amount    uint64
	CreatedAt time.Time
}

// Store persists accounts. All mutations of one logical operation run inside WithTx.
type Store interface {
	// WithTx runs fn atomically. Nested calls join the outer transaction; an error undoes everything.
	WithTx(ctx context.Context, fn func(ctx context.Context) error) error

	// Get loads an account (locked for update inside a transaction).
	Get(ctx context.Context, addr common.PublicKey) (*Account, error)

	// Create inserts a new account; fails with errs.ErrAlreadyInitialized if the address is taken.
	Create(ctx context.Context, acc *Account) error

	// Credit adds lamports to addr, creating a system-owned account when none exists.
	// Concurrent first credits to the same address must both succeed.
	Credit(ctx context.Context, addr common.PublicKey, amount uint64) error

	// Update overwrites an existing account.
	Update(ctx context.Context, acc *Account) error

	// Delete removes an account permanently.
	Delete(ctx context.Context, addr common.PublicKey) error

	// AppendPayment records a treasury payment.
	AppendPayment(ctx context.Context, p Payment) error

	// Payments lists payments into a treasury, oldest first.
	Payments(ctx context.Context, treasury common.PublicKey) ([]Payment, error)
}
