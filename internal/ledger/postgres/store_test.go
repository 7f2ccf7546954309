package postgres

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/blocto/solana-go-sdk/common"
	"github.com/blocto/solana-go-sdk/types"
	"github.com/gofrs/uuid/v5"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	pgxmock "github.com/pashagolub/pgxmock/v3"
	"github.com/stretchr/testify/require"

	"github.com/and161185/nft-tickets/internal/errs"
	"github.com/and161185/nft-tickets/internal/ledger"
)

func newDB(t *testing.T) (*DB, pgxmock.PgxPoolIface) {
	t.Helper()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	return &DB{Pool: mock}, mock
}

func newKey() common.PublicKey { return types.NewAccount().PublicKey }

func TestStore_Get_OK(t *testing.T) {
	db, mock := newDB(t)
	defer mock.Close()
	s := NewStore(db)

	addr, owner := newKey(), newKey()
	mock.ExpectQuery(`SELECT owner, lamports, data FROM accounts WHERE address=\$1`).
		WithArgs(addr.Bytes()).
		WillReturnRows(pgxmock.NewRows([]string{"owner", "lamports", "data"}).
			AddRow(owner.Bytes(), int64(42), []byte{1, 2}))

	acc, err := s.Get(context.Background(), addr)
	require.NoError(t, err)
	require.Equal(t, owner, acc.Owner)
	require.Equal(t, uint64(42), acc.Lamports)
	require.Equal(t, []byte{1, 2}, acc.Data)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestStore_Get_NotFound(t *testing.T) {
	db, mock := newDB(t)
	defer mock.Close()
	s := NewStore(db)

	addr := newKey()
	mock.ExpectQuery(`SELECT owner, lamports, data FROM accounts WHERE address=\$1`).
		WithArgs(addr.Bytes()).
		WillReturnError(pgx.ErrNoRows)

	_, err := s.Get(context.Background(), addr)
	require.ErrorIs(t, err, errs.ErrNotFound)
}

func TestStore_WithTx_LocksAndCommits(t *testing.T) {
	db, mock := newDB(t)
	defer mock.Close()
	s := NewStore(db)

	addr, owner := newKey(), newKey()
	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT owner, lamports, data FROM accounts WHERE address=\$1 FOR UPDATE`).
		WithArgs(addr.Bytes()).
		WillReturnRows(pgxmock.NewRows([]string{"owner", "lamports", "data"}).
			AddRow(owner.Bytes(), int64(10), []byte{}))
	mock.ExpectExec(`UPDATE accounts SET owner=\$2, lamports=\$3, data=\$4, updated_at=now\(\) WHERE address=\$1`).
		WithArgs(addr.Bytes(), owner.Bytes(), int64(15), []byte{}).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))
	mock.ExpectCommit()

	err := s.WithTx(context.Background(), func(ctx context.Context) error {
		acc, err := s.Get(ctx, addr)
		if err != nil {
			return err
		}
		acc.Lamports += 5
		// nested call joins the outer transaction
		return s.WithTx(ctx, func(ctx context.Context) error { return s.Update(ctx, acc) })
	})
	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestStore_WithTx_RollsBackOnError(t *testing.T) {
	db, mock := newDB(t)
	defer mock.Close()
	s := NewStore(db)

	boom := errors.New("boom")
	acc := &ledger.Account{Address: newKey(), Owner: ledger.SystemProgramID, Lamports: 1}

	mock.ExpectBegin()
	mock.ExpectExec(`INSERT INTO accounts \(address, owner, lamports, data\) VALUES \(\$1,\$2,\$3,\$4\)`).
		WithArgs(acc.Address.Bytes(), acc.Owner.Bytes(), int64(1), []byte{}).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	mock.ExpectRollback()

	err := s.WithTx(context.Background(), func(ctx context.Context) error {
		if err := s.Create(ctx, acc); err != nil {
			return err
		}
		return boom
	})
	require.ErrorIs(t, err, boom)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestStore_WithTx_RollsBackOnPanic(t *testing.T) {
	db, mock := newDB(t)
	defer mock.Close()
	s := NewStore(db)

	acc := &ledger.Account{Address: newKey(), Owner: ledger.SystemProgramID, Lamports: 1}

	mock.ExpectBegin()
	mock.ExpectExec(`INSERT INTO accounts \(address, owner, lamports, data\) VALUES \(\$1,\$2,\$3,\$4\)`).
		WithArgs(acc.Address.Bytes(), acc.Owner.Bytes(), int64(1), []byte{}).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	mock.ExpectRollback()

	require.PanicsWithValue(t, "boom", func() {
		_ = s.WithTx(context.Background(), func(ctx context.Context) error {
			require.NoError(t, s.Create(ctx, acc))
			panic("boom")
		})
	})
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestStore_Create_Duplicate(t *testing.T) {
	db, mock := newDB(t)
	defer mock.Close()
	s := NewStore(db)

	acc := &ledger.Account{Address: newKey(), Owner: ledger.SystemProgramID}
	mock.ExpectExec(`INSERT INTO accounts`).
		WithArgs(acc.Address.Bytes(), acc.Owner.Bytes(), int64(0), []byte{}).
		WillReturnError(&pgconn.PgError{Code: "23505"})

	require.ErrorIs(t, s.Create(context.Background(), acc), errs.ErrAlreadyInitialized)
}

func TestStore_Create_Overflow(t *testing.T) {
	db, mock := newDB(t)
	defer mock.Close()
	s := NewStore(db)

	acc := &ledger.Account{Address: newKey(), Owner: ledger.SystemProgramID, Lamports: ^uint64(0)}
	require.ErrorIs(t, s.Create(context.Background(), acc), errs.ErrInvalidArgument)
}

func TestStore_Credit_Upserts(t *testing.T) {
	db, mock := newDB(t)
	defer mock.Close()
	s := NewStore(db)

	addr := newKey()
	mock.ExpectExec(`INSERT INTO accounts \(address, owner, lamports, data\) VALUES \(\$1,\$2,\$3,\$4\)\s+ON CONFLICT \(address\) DO UPDATE SET lamports = accounts.lamports \+ EXCLUDED.lamports`).
		WithArgs(addr.Bytes(), ledger.SystemProgramID.Bytes(), int64(5), []byte{}).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	mock.ExpectExec(`ON CONFLICT \(address\) DO UPDATE`).
		WithArgs(addr.Bytes(), ledger.SystemProgramID.Bytes(), int64(5), []byte{}).
		WillReturnError(&pgconn.PgError{Code: "22003"})

	require.NoError(t, s.Credit(context.Background(), addr, 5))
	require.ErrorIs(t, s.Credit(context.Background(), addr, 5), errs.ErrInvalidArgument)
	require.ErrorIs(t, s.Credit(context.Background(), addr, ^uint64(0)), errs.ErrInvalidArgument)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestStore_Update_Missing(t *testing.T) {
	db, mock := newDB(t)
	defer mock.Close()
	s := NewStore(db)

	acc := &ledger.Account{Address: newKey(), Owner: ledger.SystemProgramID}
	mock.ExpectExec(`UPDATE accounts`).
		WithArgs(acc.Address.Bytes(), acc.Owner.Bytes(), int64(0), []byte{}).
		WillReturnResult(pgxmock.NewResult("UPDATE", 0))

	require.ErrorIs(t, s.Update(context.Background(), acc), errs.ErrNotFound)
}

func TestStore_Delete(t *testing.T) {
	db, mock := newDB(t)
	defer mock.Close()
	s := NewStore(db)

	addr := newKey()
	mock.ExpectExec(`DELETE FROM accounts WHERE address=\$1`).
		WithArgs(addr.Bytes()).
		WillReturnResult(pgxmock.NewResult("DELETE", 1))
	require.NoError(t, s.Delete(context.Background(), addr))

	mock.ExpectExec(`DELETE FROM accounts WHERE address=\$1`).
		WithArgs(addr.Bytes()).
		WillReturnResult(pgxmock.NewResult("DELETE", 0))
	require.ErrorIs(t, s.Delete(context.Background(), addr), errs.ErrNotFound)
}

func TestStore_Payments(t *testing.T) {
	db, mock := newDB(t)
	defer mock.Close()
	s := NewStore(db)

	treasury, payer := newKey(), newKey()
	id := uuid.Must(uuid.NewV4())
	ts := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)

	mock.ExpectExec(`INSERT INTO payments \(id, treasury, payer, amount\) VALUES \(\$1,\$2,\$3,\$4\)`).
		WithArgs(id, treasury.Bytes(), payer.Bytes(), int64(500)).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	require.NoError(t, s.AppendPayment(context.Background(), ledger.Payment{
		ID: id, Treasury: treasury, Payer: payer, Amount: 500,
	}))

	mock.ExpectQuery(`SELECT id, payer, amount, created_at\s+FROM payments\s+WHERE treasury=\$1`).
		WithArgs(treasury.Bytes()).
		WillReturnRows(pgxmock.NewRows([]string{"id", "payer", "amount", "created_at"}).
			AddRow(id, payer.Bytes(), int64(500), ts))

	got, err := s.Payments(context.Background(), treasury)
	require.NoError(t, err)
	require.Len(t, got, 1)
	require.Equal(t, ledger.Payment{ID: id, Treasury: treasury, Payer: payer, Amount: 500, CreatedAt: ts}, got[0])
	require.NoError(t, mock.ExpectationsWereMet())
}
