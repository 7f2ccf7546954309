package token

import (
	"fmt"

	"github.com/blocto/solana-go-sdk/common"
	"github.com/near/borsh-go"

	"github.com/and161185/nft-tickets/internal/errs"
)

// Mint is the state of a token identity.
type Mint struct {
	Decimals        uint8
	Supply          uint64
	MintAuthority   *common.PublicKey
	FreezeAuthority *common.PublicKey
}

// Account is a holding of one mint by one owner.
type Account struct {
	Mint   common.PublicKey
	Owner  common.PublicKey
	Amount uint64
}

// coption is a fixed-width optional key: the key slot is always present.
type coption struct {
	Tag uint32
	Key common.PublicKey
}

func someKey(k *common.PublicKey) coption {
	if k == nil {
		return coption{}
	}
	return coption{Tag: 1, Key: *k}
}

func (o coption) ptr() (*common.PublicKey, error) {
	switch o.Tag {
	case 0:
		return nil, nil
	case 1:
		k := o.Key
		return &k, nil
	default:
		return nil, fmt.Errorf("bad option tag %d", o.Tag)
	}
}

type mintLayout struct {
	MintAuthority   coption
	Supply          uint64
	Decimals        uint8
	Initialized     bool
	FreezeAuthority coption
}

type accountLayout struct {
	Mint   common.PublicKey
	Owner  common.PublicKey
	Amount uint64
}

// MintSize and AccountSize are the encoded sizes of the two layouts.
const (
	MintSize    = 36 + 8 + 1 + 1 + 36
	AccountSize = 32 + 32 + 8
)

func encodeMint(m Mint) ([]byte, error) {
	return borsh.Serialize(mintLayout{
		MintAuthority:   someKey(m.MintAuthority),
		Supply:          m.Supply,
		Decimals:        m.Decimals,
		Initialized:     true,
		FreezeAuthority: someKey(m.FreezeAuthority),
	})
}

func decodeMint(data []byte) (m Mint, err error) {
	if len(data) != MintSize {
		return Mint{}, fmt.Errorf("%w: mint size %d", errs.ErrInvalidArgument, len(data))
	}
	var l mintLayout
	if err = safeDecode(&l, data); err != nil {
		return Mint{}, err
	}
	if !l.Initialized {
		return Mint{}, fmt.Errorf("%w: mint not initialized", errs.ErrInvalidArgument)
	}
	m = Mint{Decimals: l.Decimals, Supply: l.Supply}
	if m.MintAuthority, err = l.MintAuthority.ptr(); err != nil {
		return Mint{}, fmt.Errorf("%w: %v", errs.ErrInvalidArgument, err)
	}
	if m.FreezeAuthority, err = l.FreezeAuthority.ptr(); err != nil {
		return Mint{}, fmt.Errorf("%w: %v", errs.ErrInvalidArgument, err)
	}
	return m, nil
}

func encodeAccount(a Account) ([]byte, error) {
	return borsh.Serialize(accountLayout(a))
}

func decodeAccount(data []byte) (Account, error) {
	if len(data) != AccountSize {
		return Account{}, fmt.Errorf("%w: token account size %d", errs.ErrInvalidArgument, len(data))
	}
	var l accountLayout
	if err := safeDecode(&l, data); err != nil {
		return Account{}, err
	}
	return Account(l), nil
}

func safeDecode(v any, data []byte) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%w: decode panic: %v", errs.ErrInvalidArgument, r)
		}
	}()
	if err = borsh.Deserialize(v, data); err != nil {
		return fmt.Errorf("%w: %v", errs.ErrInvalidArgument, err)
	}
	return nil
}
