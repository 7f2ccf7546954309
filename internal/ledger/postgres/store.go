package postgres

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/blocto/solana-go-sdk/common"
	"github.com/gofrs/uuid/v5"
	"github.com/jackc/pgx/v5"

	"github.com/and161185/nft-tickets/internal/errs"
	"github.com/and161185/nft-tickets/internal/ledger"
)

// Store implements ledger.Store using PostgreSQL.
type Store struct{ db *DB }

var _ ledger.Store = (*Store)(nil)

// NewStore constructs a ledger store.
func NewStore(db *DB) *Store { return &Store{db: db} }

func (s *Store) q(ctx context.Context) querier {
	if tx := txFromContext(ctx); tx != nil {
		return tx
	}
	return s.db.Pool
}

// WithTx runs fn in a transaction carried by the context. Errors and panics roll back.
func (s *Store) WithTx(ctx context.Context, fn func(ctx context.Context) error) (err error) {
	if txFromContext(ctx) != nil {
		return fn(ctx)
	}
	tx, err := s.db.Pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return err
	}
	defer func() {
		if r := recover(); r != nil {
			_ = tx.Rollback(ctx)
			panic(r)
		}
		if err != nil {
			_ = tx.Rollback(ctx)
			return
		}
		if e := tx.Commit(ctx); e != nil {
			err = e
		}
	}()
	return fn(context.WithValue(ctx, txKey{}, tx))
}

// Get loads an account; rows are locked when called inside WithTx.
func (s *Store) Get(ctx context.Context, addr common.PublicKey) (*ledger.Account, error) {
	const sel = `SELECT owner, lamports, data FROM accounts WHERE address=$1`
	const selLock = `SELECT owner, lamports, data FROM accounts WHERE address=$1 FOR UPDATE`
	q := sel
	if txFromContext(ctx) != nil {
		q = selLock
	}
	var (
		owner    []byte
		lamports int64
		data     []byte
	)
	if err := s.q(ctx).QueryRow(ctx, q, addr.Bytes()).Scan(&owner, &lamports, &data); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, errs.ErrNotFound
		}
		return nil, err
	}
	if len(owner) != len(common.PublicKey{}) || lamports < 0 {
		return nil, fmt.Errorf("account %s: corrupt row", addr.ToBase58())
	}
	return &ledger.Account{
		Address:  addr,
		Owner:    common.PublicKeyFromBytes(owner),
		Lamports: uint64(lamports),
		Data:     data,
	}, nil
}

// Create inserts a new account.
func (s *Store) Create(ctx context.Context, acc *ledger.Account) error {
	lamports, err := toBigint(acc.Lamports)
	if err != nil {
		return err
	}
	const ins = `INSERT INTO accounts (address, owner, lamports, data) VALUES ($1,$2,$3,$4)`
	_, err = s.q(ctx).Exec(ctx, ins, acc.Address.Bytes(), acc.Owner.Bytes(), lamports, nonNil(acc.Data))
	if isUniqueViolation(err) {
		return errs.ErrAlreadyInitialized
	}
	return err
}

// Credit upserts addr, adding amount to an existing balance. Concurrent first credits
// to one address serialize on the row.
func (s *Store) Credit(ctx context.Context, addr common.PublicKey, amount uint64) error {
	lamports, err := toBigint(amount)
	if err != nil {
		return err
	}
	const ups = `INSERT INTO accounts (address, owner, lamports, data) VALUES ($1,$2,$3,$4)
ON CONFLICT (address) DO UPDATE SET lamports = accounts.lamports + EXCLUDED.lamports, updated_at=now()`
	_, err = s.q(ctx).Exec(ctx, ups, addr.Bytes(), ledger.SystemProgramID.Bytes(), lamports, []byte{})
	if isOutOfRange(err) {
		return fmt.Errorf("%w: balance overflow", errs.ErrInvalidArgument)
	}
	return err
}

// Update overwrites owner, lamports and data of an existing account.
func (s *Store) Update(ctx context.Context, acc *ledger.Account) error {
	lamports, err := toBigint(acc.Lamports)
	if err != nil {
		return err
	}
	const upd = `UPDATE accounts SET owner=$2, lamports=$3, data=$4, updated_at=now() WHERE address=$1`
	tag, err := s.q(ctx).Exec(ctx, upd, acc.Address.Bytes(), acc.Owner.Bytes(), lamports, nonNil(acc.Data))
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return errs.ErrNotFound
	}
	return nil
}

// Delete removes an account.
func (s *Store) Delete(ctx context.Context, addr common.PublicKey) error {
	const del = `DELETE FROM accounts WHERE address=$1`
	tag, err := s.q(ctx).Exec(ctx, del, addr.Bytes())
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return errs.ErrNotFound
	}
	return nil
}

// AppendPayment inserts a payment journal row.
func (s *Store) AppendPayment(ctx context.Context, p ledger.Payment) error {
	amount, err := toBigint(p.Amount)
	if err != nil {
		return err
	}
	const ins = `INSERT INTO payments (id, treasury, payer, amount) VALUES ($1,$2,$3,$4)`
	_, err = s.q(ctx).Exec(ctx, ins, p.ID, p.Treasury.Bytes(), p.Payer.Bytes(), amount)
	return err
}

// Payments lists payments into a treasury in insertion order.
func (s *Store) Payments(ctx context.Context, treasury common.PublicKey) ([]ledger.Payment, error) {
	const q = `
SELECT id, payer, amount, created_at
FROM payments
WHERE treasury=$1
ORDER BY created_at ASC, id ASC`
	rows, err := s.q(ctx).Query(ctx, q, treasury.Bytes())
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []ledger.Payment
	for rows.Next() {
		var (
			id     uuid.UUID
			payer  []byte
			amount int64
			ts     time.Time
		)
		if err = rows.Scan(&id, &payer, &amount, &ts); err != nil {
			return nil, err
		}
		out = append(out, ledger.Payment{
			ID:        id,
			Treasury:  treasury,
			Payer:     common.PublicKeyFromBytes(payer),
			Amount:    uint64(amount),
			CreatedAt: ts,
		})
	}
	return out, rows.Err()
}

func toBigint(v uint64) (int64, error) {
	if v > math.MaxInt64 {
		return 0, fmt.Errorf("%w: amount %d overflows bigint", errs.ErrInvalidArgument, v)
	}
	return int64(v), nil
}

func nonNil(b []byte) []byte {
	if b == nil {
		return []byte{}
	}
	return b
}
