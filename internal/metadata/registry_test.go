package metadata

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
	"github.com/and161185/nft-tickets/internal/token"
)

var program = common.PublicKeyFromString("UdaXXAyGLw94jH4e3nqFmHdkKvPe1rgUxi9h8N1V4cT")

type fixture struct {
	ctx     context.Context
	store   *memory.Store
	tokens  *token.Program
	reg     *Registry
	deriver *authority.Deriver
}

func newFixture() *fixture {
	store := memory.New()
	tokens := token.New(store, program)
	return &fixture{
		ctx:     context.Background(),
		store:   store,
		tokens:  tokens,
		reg:     New(store, tokens, program),
		deriver: authority.NewDeriver(program),
	}
}

// mint creates a mint with a derived authority and returns its addresses.
func (f *fixture) mint(t *testing.T) (common.PublicKey, authority.Proof, common.PublicKey, common.PublicKey) {
	t.Helper()
	mint := types.NewAccount().PublicKey
	proof, err := f.deriver.Derive(authority.LabelMintAuthority, mint)
	require.NoError(t, err)
	require.NoError(t, f.tokens.CreateMint(f.ctx, mint, 0, proof.Key(), nil))
	meta, err := MetadataAddress(mint)
	require.NoError(t, err)
	ed, err := EditionAddress(mint)
	require.NoError(t, err)
	return mint, proof, meta, ed
}

func (f *fixture) root(t *testing.T) (common.PublicKey, authority.Proof, common.PublicKey) {
	t.Helper()
	mint, proof, meta, ed := f.mint(t)
	require.NoError(t, f.reg.CreateRecord(f.ctx, CreateParams{
		Metadata: meta, Mint: mint, MintAuthority: proof, UpdateAuthority: proof.Key(), MasterEdition: &ed,
		Record: Record{Name: "Root", CollectionDetails: &CollectionDetails{}},
	}))
	return mint, proof, meta
}

func TestRecordCodec(t *testing.T) {
	r := Record{
		Kind:                 KindMetadataV1,
		UpdateAuthority:      types.NewAccount().PublicKey,
		Mint:                 types.NewAccount().PublicKey,
		Name:                 "Ticket",
		Symbol:               "TIX",
		URI:                  "https://example.org/t.json",
		SellerFeeBasisPoints: 250,
		Creators:             []Creator{{Address: types.NewAccount().PublicKey, Share: 100}},
		IsMutable:            true,
		Collection:           &Collection{Key: types.NewAccount().PublicKey},
		Uses:                 &Uses{Method: UseSingle, Remaining: 1, Total: 1},
	}
	data, err := encodeRecord(r)
	require.NoError(t, err)
	got, err := DecodeRecord(data)
	require.NoError(t, err)
	require.Equal(t, r, got)
	require.Nil(t, got.CollectionDetails)

	for _, bad := range [][]byte{nil, {4}, {9, 0, 0}, data[:len(data)-3]} {
		_, err := DecodeRecord(bad)
		require.ErrorIs(t, err, errs.ErrInvalidMetadata)
	}

	// remaining above total is never accepted from storage
	r.Uses = &Uses{Method: UseSingle, Remaining: 2, Total: 1}
	data, err = encodeRecord(r)
	require.NoError(t, err)
	_, err = DecodeRecord(data)
	require.ErrorIs(t, err, errs.ErrInvalidMetadata)
}

func TestDecodeRecord_OversizedPrefixes(t *testing.T) {
	head := make([]byte, 1+2*32)
	head[0] = byte(KindMetadataV1)
	huge := []byte{0xF0, 0xFF, 0xFF, 0xFF}
	empty := []byte{0, 0, 0, 0}

	cases := map[string][]byte{
		"name":           append(append([]byte{}, head...), huge...),
		"name over max":  append(append([]byte{}, head...), 33, 0, 0, 0),
		"name past end":  append(append([]byte{}, head...), 5, 0, 0, 0, 'a'),
		"symbol":         append(append(append([]byte{}, head...), empty...), huge...),
		"creators":       append(append(append(append(append(append([]byte{}, head...), empty...), empty...), empty...), 0, 0), huge...),
		"creators count": append(append(append(append(append(append([]byte{}, head...), empty...), empty...), empty...), 0, 0), 6, 0, 0, 0),
	}
	for name, data := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := DecodeRecord(data)
			require.ErrorIs(t, err, errs.ErrInvalidMetadata)
		})
	}
}

func TestCreateRecord_Validation(t *testing.T) {
	f := newFixture()
	mint, proof, meta, ed := f.mint(t)
	base := CreateParams{Metadata: meta, Mint: mint, MintAuthority: proof, UpdateAuthority: proof.Key()}

	wrong := types.NewAccount().PublicKey
	p := base
	p.Metadata = wrong
	require.ErrorIs(t, f.reg.CreateRecord(f.ctx, p), errs.ErrBadMetadataPda)

	p = base
	p.MasterEdition = &wrong
	require.ErrorIs(t, f.reg.CreateRecord(f.ctx, p), errs.ErrBadEditionPda)

	invalid := []Record{
		{Name: "this name is far too long for a metadata record"},
		{Symbol: "TOOLONGSYMBOL"},
		{SellerFeeBasisPoints: 10001},
		{Creators: []Creator{{Address: wrong, Share: 60}}},
		{Collection: &Collection{Verified: true, Key: wrong}},
		{Uses: &Uses{Method: UseBurn, Remaining: 1, Total: 1}},
		{Uses: &Uses{Method: UseSingle, Remaining: 2, Total: 2}},
	}
	for i, r := range invalid {
		p = base
		p.Record = r
		require.ErrorIs(t, f.reg.CreateRecord(f.ctx, p), errs.ErrInvalidArgument, "case %d", i)
	}

	p = base
	p.Record = Record{Creators: []Creator{{Address: wrong, Verified: true, Share: 100}}}
	require.ErrorIs(t, f.reg.CreateRecord(f.ctx, p), errs.ErrAuthorityMismatch)

	p = base
	p.MintAuthority = authority.FromAccount(types.NewAccount())
	require.ErrorIs(t, f.reg.CreateRecord(f.ctx, p), errs.ErrAuthorityMismatch)

	p = base
	p.MasterEdition = &ed
	require.NoError(t, f.reg.CreateRecord(f.ctx, p))
	require.ErrorIs(t, f.reg.CreateRecord(f.ctx, p), errs.ErrAlreadyInitialized)

	e, err := f.reg.ReadEdition(f.ctx, ed)
	require.NoError(t, err)
	require.Equal(t, KindMasterEditionV2, e.Kind)
	require.Equal(t, uint64(0), *e.MaxSupply)
}

func TestVerifyCollectionItem(t *testing.T) {
	f := newFixture()
	rootMint, rootProof, rootMeta := f.root(t)
	mint, proof, meta, _ := f.mint(t)
	require.NoError(t, f.reg.CreateRecord(f.ctx, CreateParams{
		Metadata: meta, Mint: mint, MintAuthority: proof, UpdateAuthority: proof.Key(),
		Record: Record{Name: "Item", Collection: &Collection{Key: rootMint}},
	}))
	params := VerifyParams{
		Metadata: meta, ItemAuthority: proof, CollectionAuthority: rootProof,
		CollectionMint: rootMint, CollectionMetadata: rootMeta,
	}

	bad := params
	bad.CollectionAuthority = proof
	require.ErrorIs(t, f.reg.SetAndVerifySizedCollectionItem(f.ctx, bad), errs.ErrAuthorityMismatch)
	bad = params
	bad.ItemAuthority = rootProof
	require.ErrorIs(t, f.reg.SetAndVerifySizedCollectionItem(f.ctx, bad), errs.ErrAuthorityMismatch)

	require.NoError(t, f.reg.SetAndVerifySizedCollectionItem(f.ctx, params))
	require.ErrorIs(t, f.reg.SetAndVerifySizedCollectionItem(f.ctx, params), errs.ErrAlreadyVerified)

	item, err := f.reg.Read(f.ctx, meta)
	require.NoError(t, err)
	require.True(t, item.Collection.Verified)
	root, err := f.reg.Read(f.ctx, rootMeta)
	require.NoError(t, err)
	require.Equal(t, uint64(1), root.CollectionDetails.Size)
}

func TestVerifyCollectionItem_NotSized(t *testing.T) {
	f := newFixture()
	plainMint, plainProof, plainMeta, _ := f.mint(t)
	require.NoError(t, f.reg.CreateRecord(f.ctx, CreateParams{
		Metadata: plainMeta, Mint: plainMint, MintAuthority: plainProof, UpdateAuthority: plainProof.Key(),
	}))
	mint, proof, meta, _ := f.mint(t)
	require.NoError(t, f.reg.CreateRecord(f.ctx, CreateParams{
		Metadata: meta, Mint: mint, MintAuthority: proof, UpdateAuthority: proof.Key(),
		Record: Record{Collection: &Collection{Key: plainMint}},
	}))
	err := f.reg.SetAndVerifySizedCollectionItem(f.ctx, VerifyParams{
		Metadata: meta, ItemAuthority: proof, CollectionAuthority: plainProof,
		CollectionMint: plainMint, CollectionMetadata: plainMeta,
	})
	require.ErrorIs(t, err, errs.ErrNotSizedCollection)
}

func TestUtilize(t *testing.T) {
	f := newFixture()
	mint, proof, meta, _ := f.mint(t)
	holder := types.NewAccount()
	ata, err := f.tokens.EnsureAssociatedAccount(f.ctx, holder.PublicKey, mint)
	require.NoError(t, err)
	require.NoError(t, f.reg.CreateRecord(f.ctx, CreateParams{
		Metadata: meta, Mint: mint, MintAuthority: proof, UpdateAuthority: proof.Key(),
		Record: Record{Uses: &Uses{Method: UseMultiple, Remaining: 2, Total: 2}},
	}))
	p := UtilizeParams{Metadata: meta, TokenAccount: ata, Owner: authority.FromAccount(holder), Count: 1}

	// holding account is still empty
	require.ErrorIs(t, f.reg.Utilize(f.ctx, p), errs.ErrAuthorityMismatch)
	require.NoError(t, f.tokens.MintTo(f.ctx, mint, ata, proof, 1))

	require.ErrorIs(t, f.reg.Utilize(f.ctx, UtilizeParams{Metadata: meta, TokenAccount: ata, Owner: p.Owner}), errs.ErrInvalidArgument)
	require.NoError(t, f.reg.Utilize(f.ctx, p))
	require.NoError(t, f.reg.Utilize(f.ctx, p))
	require.ErrorIs(t, f.reg.Utilize(f.ctx, p), errs.ErrNoRemainingUses)

	rec, err := f.reg.Read(f.ctx, meta)
	require.NoError(t, err)
	require.Equal(t, uint64(0), rec.Uses.Remaining)
}

func TestRead_ForeignOwner(t *testing.T) {
	f := newFixture()
	addr := types.NewAccount().PublicKey
	require.NoError(t, f.store.Create(f.ctx, &ledger.Account{Address: addr, Owner: ledger.SystemProgramID, Data: []byte{4}}))
	_, err := f.reg.Read(f.ctx, addr)
	require.ErrorIs(t, err, errs.ErrInvalidMetadata)
	_, err = f.reg.Read(f.ctx, types.NewAccount().PublicKey)
	require.ErrorIs(t, err, errs.ErrNotFound)
}
