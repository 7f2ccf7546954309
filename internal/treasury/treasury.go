// Package treasury keeps the per-collection escrow record and collects ticket payments into it.
package treasury

import (
	"bytes"
	"context"
	"crypto/sha256"
	"errors"
	"fmt"
	"time"

	"github.com/blocto/solana-go-sdk/common"
	"github.com/gofrs/uuid/v5"
	"github.com/near/borsh-go"

	"github.com/and161185/nft-tickets/internal/authority"
	"github.com/and161185/nft-tickets/internal/errs"
	"github.com/and161185/nft-tickets/internal/ledger"
	"github.com/and161185/nft-tickets/internal/system"
)

// RecordSize is the encoded size of a treasury account: discriminator plus fixed-width fields.
const RecordSize = 8 + 32 + 32 + 8 + 1 + 8

var discriminator = func() [8]byte {
	sum := sha256.Sum256([]byte("account:Treasury"))
	var d [8]byte
	copy(d[:], sum[:8])
	return d
}()

// Treasury is the escrow of one collection.
type Treasury struct {
	Address        common.PublicKey
	Authority      common.PublicKey
	CollectionMint common.PublicKey
	EventTS        uint64
	Bump           uint8
	Price          uint64
}

// EventTime returns the event timestamp; the zero time means open ended.
func (t Treasury) EventTime() time.Time {
	if t.EventTS == 0 {
		return time.Time{}
	}
	return time.Unix(int64(t.EventTS), 0).UTC()
}

type layout struct {
	Authority      common.PublicKey
	CollectionMint common.PublicKey
	EventTS        uint64
	Bump           uint8
	Price          uint64
}

func encode(t Treasury) ([]byte, error) {
	body, err := borsh.Serialize(layout{
		Authority:      t.Authority,
		CollectionMint: t.CollectionMint,
		EventTS:        t.EventTS,
		Bump:           t.Bump,
		Price:          t.Price,
	})
	if err != nil {
		return nil, err
	}
	return append(discriminator[:], body...), nil
}

func decode(addr common.PublicKey, data []byte) (t Treasury, err error) {
	if len(data) != RecordSize || !bytes.Equal(data[:8], discriminator[:]) {
		return Treasury{}, fmt.Errorf("%w: %s is not a treasury", errs.ErrInvalidArgument, addr.ToBase58())
	}
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%w: treasury decode: %v", errs.ErrInvalidArgument, r)
		}
	}()
	var l layout
	if err = borsh.Deserialize(&l, data[8:]); err != nil {
		return Treasury{}, fmt.Errorf("%w: treasury decode: %v", errs.ErrInvalidArgument, err)
	}
	return Treasury{
		Address:        addr,
		Authority:      l.Authority,
		CollectionMint: l.CollectionMint,
		EventTS:        l.EventTS,
		Bump:           l.Bump,
		Price:          l.Price,
	}, nil
}

// Ledger creates, reads and funds treasuries.
type Ledger struct {
	store   ledger.Store
	deriver *authority.Deriver
	system  *system.Program
}

// New constructs a treasury ledger.
func New(store ledger.Store, deriver *authority.Deriver, sys *system.Program) *Ledger {
	return &Ledger{store: store, deriver: deriver, system: sys}
}

// Address returns the treasury address of a collection.
func (l *Ledger) Address(collection common.PublicKey) (common.PublicKey, error) {
	key, _, err := l.deriver.Address(authority.LabelTreasury, collection)
	return key, err
}

// Create initializes the treasury of collection. Lamports already sent to the address are kept.
func (l *Ledger) Create(ctx context.Context, payer authority.KeySigner, admin, collection common.PublicKey, price, eventTS uint64) (Treasury, error) {
	proof, err := l.deriver.Derive(authority.LabelTreasury, collection)
	if err != nil {
		return Treasury{}, err
	}
	if err = authority.Authorize(payer, payer.Key(), l.deriver.Program()); err != nil {
		return Treasury{}, err
	}
	t := Treasury{
		Address:        proof.Key(),
		Authority:      admin,
		CollectionMint: collection,
		EventTS:        eventTS,
		Bump:           proof.Bump(),
		Price:          price,
	}
	data, err := encode(t)
	if err != nil {
		return Treasury{}, err
	}

	err = l.store.WithTx(ctx, func(ctx context.Context) error {
		acc, err := l.store.Get(ctx, t.Address)
		switch {
		case errors.Is(err, errs.ErrNotFound):
			return l.store.Create(ctx, &ledger.Account{Address: t.Address, Owner: l.deriver.Program(), Data: data})
		case err != nil:
			return err
		case acc.Owner != ledger.SystemProgramID || len(acc.Data) != 0:
			return fmt.Errorf("treasury %s: %w", t.Address.ToBase58(), errs.ErrAlreadyInitialized)
		}
		acc.Owner = l.deriver.Program()
		acc.Data = data
		return l.store.Update(ctx, acc)
	})
	if err != nil {
		return Treasury{}, err
	}
	return t, nil
}

// Load reads the treasury of collection.
func (l *Ledger) Load(ctx context.Context, collection common.PublicKey) (Treasury, error) {
	addr, err := l.Address(collection)
	if err != nil {
		return Treasury{}, err
	}
	acc, err := l.store.Get(ctx, addr)
	if err != nil {
		return Treasury{}, fmt.Errorf("treasury of %s: %w", collection.ToBase58(), err)
	}
	if acc.Owner != l.deriver.Program() {
		return Treasury{}, fmt.Errorf("treasury of %s: %w", collection.ToBase58(), errs.ErrNotFound)
	}
	t, err := decode(addr, acc.Data)
	if err != nil {
		return Treasury{}, err
	}
	if t.CollectionMint != collection {
		return Treasury{}, fmt.Errorf("%w: treasury %s funds %s", errs.ErrCollectionMismatch, addr.ToBase58(), t.CollectionMint.ToBase58())
	}
	return t, nil
}

// CollectPayment moves exactly t.Price from payer into the treasury and journals it.
func (l *Ledger) CollectPayment(ctx context.Context, t Treasury, payer authority.KeySigner) (ledger.Payment, error) {
	var p ledger.Payment
	err := l.store.WithTx(ctx, func(ctx context.Context) error {
		if err := l.system.Transfer(ctx, payer, t.Address, t.Price); err != nil {
			return err
		}
		id, err := uuid.NewV4()
		if err != nil {
			return err
		}
		p = ledger.Payment{ID: id, Treasury: t.Address, Payer: payer.Key(), Amount: t.Price}
		return l.store.AppendPayment(ctx, p)
	})
	if err != nil {
		return ledger.Payment{}, err
	}
	return p, nil
}

// Balance returns the lamports held by the treasury.
func (l *Ledger) Balance(ctx context.Context, t Treasury) (uint64, error) {
	return l.system.Balance(ctx, t.Address)
}

// Payments returns the payment history of the treasury.
func (l *Ledger) Payments(ctx context.Context, t Treasury) ([]ledger.Payment, error) {
	return l.store.Payments(ctx, t.Address)
}
