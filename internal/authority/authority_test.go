package authority

import (
	"crypto/ed25519"
	"testing"

	"github.com/blocto/solana-go-sdk/common"
	"github.com/blocto/solana-go-sdk/types"
	"github.com/stretchr/testify/require"

	"github.com/and161185/nft-tickets/internal/errs"
)

var program = common.PublicKeyFromString("UdaXXAyGLw94jH4e3nqFmHdkKvPe1rgUxi9h8N1V4cT")

func TestDerive_DeterministicAndOffCurve(t *testing.T) {
	d := NewDeriver(program)
	mint := types.NewAccount().PublicKey

	a, err := d.Derive(LabelTreasury, mint)
	require.NoError(t, err)
	b, err := d.Derive(LabelTreasury, mint)
	require.NoError(t, err)
	require.Equal(t, a.Key(), b.Key())
	require.Equal(t, a.Bump(), b.Bump())
	require.False(t, OnCurve(a.Key()))
	require.NoError(t, a.Verify(program))

	want, _, err := common.FindProgramAddress([][]byte{[]byte("treasury"), mint.Bytes()}, program)
	require.NoError(t, err)
	require.Equal(t, want, a.Key())

	key, bump, err := d.Address(LabelTreasury, mint)
	require.NoError(t, err)
	require.Equal(t, a.Key(), key)
	require.Equal(t, a.Bump(), bump)
}

func TestDerive_DistinctPerOwnerAndLabel(t *testing.T) {
	d := NewDeriver(program)
	m1 := types.NewAccount().PublicKey
	m2 := types.NewAccount().PublicKey

	t1, _, err := d.Address(LabelTreasury, m1)
	require.NoError(t, err)
	t2, _, err := d.Address(LabelTreasury, m2)
	require.NoError(t, err)
	a1, _, err := d.Address(LabelMintAuthority, m1)
	require.NoError(t, err)

	require.NotEqual(t, t1, t2)
	require.NotEqual(t, t1, a1)

	other := NewDeriver(types.NewAccount().PublicKey)
	o1, _, err := other.Address(LabelTreasury, m1)
	require.NoError(t, err)
	require.NotEqual(t, t1, o1)
}

func TestDerive_RejectsBadLabels(t *testing.T) {
	d := NewDeriver(program)
	_, err := d.Derive("")
	require.ErrorIs(t, err, errs.ErrInvalidArgument)
	_, err = d.Derive("this-label-is-definitely-longer-than-32-bytes")
	require.ErrorIs(t, err, errs.ErrInvalidArgument)
}

func TestProof_Verify_RejectsTampering(t *testing.T) {
	d := NewDeriver(program)
	p, err := d.Derive(LabelMintAuthority, types.NewAccount().PublicKey)
	require.NoError(t, err)

	require.ErrorIs(t, p.Verify(types.NewAccount().PublicKey), errs.ErrInvalidProof)

	forged := p
	forged.bump--
	require.ErrorIs(t, forged.Verify(program), errs.ErrInvalidProof)

	forged = p
	forged.owners = []common.PublicKey{types.NewAccount().PublicKey}
	require.ErrorIs(t, forged.Verify(program), errs.ErrInvalidProof)
}

func TestAuthorize(t *testing.T) {
	d := NewDeriver(program)
	acc := types.NewAccount()
	proof, err := d.Derive(LabelMintAuthority, acc.PublicKey)
	require.NoError(t, err)

	require.NoError(t, Authorize(proof, proof.Key(), program))
	require.NoError(t, Authorize(FromAccount(acc), acc.PublicKey, program))

	require.ErrorIs(t, Authorize(nil, acc.PublicKey, program), errs.ErrAuthorityMismatch)
	require.ErrorIs(t, Authorize(FromAccount(acc), proof.Key(), program), errs.ErrAuthorityMismatch)
	require.ErrorIs(t, Authorize(proof, proof.Key(), types.NewAccount().PublicKey), errs.ErrInvalidProof)
	require.ErrorIs(t, Authorize(KeySigner{key: acc.PublicKey}, acc.PublicKey, program), errs.ErrAuthorityMismatch)

	// a plain key cannot impersonate a derived identity
	require.ErrorIs(t, Authorize(Trusted(proof.Key()), proof.Key(), program), errs.ErrAuthorityMismatch)
}

func TestVerifySignature(t *testing.T) {
	acc := types.NewAccount()
	msg := []byte("hello")
	sig := ed25519.Sign(acc.PrivateKey, msg)

	s, err := VerifySignature(acc.PublicKey, msg, sig)
	require.NoError(t, err)
	require.Equal(t, acc.PublicKey, s.Key())

	_, err = VerifySignature(acc.PublicKey, []byte("other"), sig)
	require.ErrorIs(t, err, errs.ErrUnauthorized)
	_, err = VerifySignature(acc.PublicKey, msg, sig[:10])
	require.ErrorIs(t, err, errs.ErrUnauthorized)
}

func TestParseKey(t *testing.T) {
	acc := types.NewAccount()
	got, err := ParseKey(acc.PublicKey.ToBase58())
	require.NoError(t, err)
	require.Equal(t, acc.PublicKey, got)

	for _, bad := range []string{"", "0OIl", "abc", "1" + acc.PublicKey.ToBase58()} {
		_, err := ParseKey(bad)
		require.ErrorIs(t, err, errs.ErrInvalidArgument, bad)
	}
}
