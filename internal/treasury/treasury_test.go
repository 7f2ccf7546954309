package treasury

import (
	"context"
	"testing"

	"github.com/blocto/solana-go-sdk/common"
	"github.com/blocto/solana-go-sdk/types"
	"github.com/stretchr/testify/require"

	"github.com/and161185/nft-tickets/internal/authority"
	"github.com/and161185/nft-tickets/internal/errs"
	"github.com/and161185/nft-tickets/internal/ledger"
	"github.com/and161185/nft-tickets/internal/ledger/memory"
	"github.com/and161185/nft-tickets/internal/system"
)

var program = common.PublicKeyFromString("UdaXXAyGLw94jH4e3nqFmHdkKvPe1rgUxi9h8N1V4cT")

func newLedger() (*Ledger, *system.Program, *memory.Store) {
	store := memory.New()
	sys := system.New(store)
	return New(store, authority.NewDeriver(program), sys), sys, store
}

func TestRecordIsFixedWidth(t *testing.T) {
	data, err := encode(Treasury{Price: 1, EventTS: 2, Bump: 255})
	require.NoError(t, err)
	require.Len(t, data, RecordSize)

	addr := types.NewAccount().PublicKey
	got, err := decode(addr, data)
	require.NoError(t, err)
	require.Equal(t, Treasury{Address: addr, Price: 1, EventTS: 2, Bump: 255}, got)

	data[0] ^= 0xff
	_, err = decode(addr, data)
	require.ErrorIs(t, err, errs.ErrInvalidArgument)
	_, err = decode(addr, data[:RecordSize-1])
	require.ErrorIs(t, err, errs.ErrInvalidArgument)
}

func TestCreateLoadCollect(t *testing.T) {
	ctx := context.Background()
	l, sys, _ := newLedger()
	admin := authority.FromAccount(types.NewAccount())
	collection := types.NewAccount().PublicKey

	tr, err := l.Create(ctx, admin, admin.Key(), collection, 500, 1_900_000_000)
	require.NoError(t, err)
	want, bump, err := authority.NewDeriver(program).Address(authority.LabelTreasury, collection)
	require.NoError(t, err)
	require.Equal(t, want, tr.Address)
	require.Equal(t, bump, tr.Bump)

	_, err = l.Create(ctx, admin, admin.Key(), collection, 1, 0)
	require.ErrorIs(t, err, errs.ErrAlreadyInitialized)

	loaded, err := l.Load(ctx, collection)
	require.NoError(t, err)
	require.Equal(t, tr, loaded)
	require.Equal(t, int64(1_900_000_000), loaded.EventTime().Unix())

	payer := types.NewAccount()
	require.NoError(t, sys.Airdrop(ctx, payer.PublicKey, 800))
	p, err := l.CollectPayment(ctx, loaded, authority.FromAccount(payer))
	require.NoError(t, err)
	require.Equal(t, uint64(500), p.Amount)

	_, err = l.CollectPayment(ctx, loaded, authority.FromAccount(payer))
	require.ErrorIs(t, err, errs.ErrInsufficientFunds)

	bal, err := l.Balance(ctx, loaded)
	require.NoError(t, err)
	require.Equal(t, uint64(500), bal)
	ps, err := l.Payments(ctx, loaded)
	require.NoError(t, err)
	require.Len(t, ps, 1)
	require.Equal(t, payer.PublicKey, ps[0].Payer)
}

func TestLoad_Missing(t *testing.T) {
	ctx := context.Background()
	l, _, store := newLedger()
	collection := types.NewAccount().PublicKey

	_, err := l.Load(ctx, collection)
	require.ErrorIs(t, err, errs.ErrNotFound)

	addr, err := l.Address(collection)
	require.NoError(t, err)
	require.NoError(t, store.Create(ctx, &ledger.Account{Address: addr, Owner: ledger.SystemProgramID, Lamports: 5}))
	_, err = l.Load(ctx, collection)
	require.ErrorIs(t, err, errs.ErrNotFound)

	require.True(t, Treasury{}.EventTime().IsZero())
}
