package metadata

import (
	"encoding/binary"
	"fmt"

	"github.com/blocto/solana-go-sdk/common"
	"github.com/near/borsh-go"

	"github.com/and161185/nft-tickets/internal/errs"
)

// Kind tags the account type stored by the registry.
type Kind borsh.Enum

const (
	KindUninitialized   Kind = 0
	KindMetadataV1      Kind = 4
	KindMasterEditionV2 Kind = 6
)

// UseMethod is how a use is consumed.
type UseMethod borsh.Enum

const (
	UseBurn UseMethod = iota
	UseMultiple
	UseSingle
)

// TokenStandard describes the kind of asset a record belongs to.
type TokenStandard borsh.Enum

const (
	TokenStandardNonFungible TokenStandard = iota
)

// Field limits enforced on create.
const (
	MaxNameLength   = 32
	MaxSymbolLength = 10
	MaxURILength    = 200
	MaxCreators     = 5
	MaxBasisPoints  = 10000
)

// Creator is a royalty recipient.
type Creator struct {
	Address  common.PublicKey
	Verified bool
	Share    uint8
}

// Collection references the collection root of an item.
type Collection struct {
	Verified bool
	Key      common.PublicKey
}

// Uses is the bounded redemption counter.
type Uses struct {
	Method    UseMethod
	Remaining uint64
	Total     uint64
}

// CollectionDetails marks a sized collection root.
type CollectionDetails struct {
	Size uint64
}

// Record is the metadata attached to one mint.
type Record struct {
	Kind                 Kind
	UpdateAuthority      common.PublicKey
	Mint                 common.PublicKey
	Name                 string
	Symbol               string
	URI                  string
	SellerFeeBasisPoints uint16
	Creators             []Creator
	PrimarySaleHappened  bool
	IsMutable            bool
	TokenStandard        TokenStandard
	Collection           *Collection
	Uses                 *Uses
	CollectionDetails    *CollectionDetails
}

// Edition is a master edition record.
type Edition struct {
	Kind      Kind
	Supply    uint64
	MaxSupply *uint64
}

// optional slots are fixed width; Present distinguishes absent from zero.
type optCollection struct {
	Present  bool
	Verified bool
	Key      common.PublicKey
}

type optUses struct {
	Present   bool
	Method    UseMethod
	Remaining uint64
	Total     uint64
}

type optU64 struct {
	Present bool
	Value   uint64
}

type recordLayout struct {
	Kind                 Kind
	UpdateAuthority      common.PublicKey
	Mint                 common.PublicKey
	Name                 string
	Symbol               string
	URI                  string
	SellerFeeBasisPoints uint16
	Creators             []Creator
	PrimarySaleHappened  bool
	IsMutable            bool
	TokenStandard        TokenStandard
	Collection           optCollection
	Uses                 optUses
	CollectionDetails    optU64
}

type editionLayout struct {
	Kind      Kind
	Supply    uint64
	MaxSupply optU64
}

func encodeRecord(r Record) ([]byte, error) {
	l := recordLayout{
		Kind:                 r.Kind,
		UpdateAuthority:      r.UpdateAuthority,
		Mint:                 r.Mint,
		Name:                 r.Name,
		Symbol:               r.Symbol,
		URI:                  r.URI,
		SellerFeeBasisPoints: r.SellerFeeBasisPoints,
		Creators:             r.Creators,
		PrimarySaleHappened:  r.PrimarySaleHappened,
		IsMutable:            r.IsMutable,
		TokenStandard:        r.TokenStandard,
	}
	if r.Collection != nil {
		l.Collection = optCollection{Present: true, Verified: r.Collection.Verified, Key: r.Collection.Key}
	}
	if r.Uses != nil {
		l.Uses = optUses{Present: true, Method: r.Uses.Method, Remaining: r.Uses.Remaining, Total: r.Uses.Total}
	}
	if r.CollectionDetails != nil {
		l.CollectionDetails = optU64{Present: true, Value: r.CollectionDetails.Size}
	}
	return borsh.Serialize(l)
}

// DecodeRecord parses record bytes. Malformed input yields errs.ErrInvalidMetadata, never a panic.
func DecodeRecord(data []byte) (Record, error) {
	if err := checkRecordPrefixes(data); err != nil {
		return Record{}, err
	}
	var l recordLayout
	if err := safeDecode(&l, data); err != nil {
		return Record{}, err
	}
	if l.Kind != KindMetadataV1 {
		return Record{}, fmt.Errorf("%w: account kind %d", errs.ErrInvalidMetadata, l.Kind)
	}
	r := Record{
		Kind:                 l.Kind,
		UpdateAuthority:      l.UpdateAuthority,
		Mint:                 l.Mint,
		Name:                 l.Name,
		Symbol:               l.Symbol,
		URI:                  l.URI,
		SellerFeeBasisPoints: l.SellerFeeBasisPoints,
		Creators:             l.Creators,
		PrimarySaleHappened:  l.PrimarySaleHappened,
		IsMutable:            l.IsMutable,
		TokenStandard:        l.TokenStandard,
	}
	if l.Collection.Present {
		r.Collection = &Collection{Verified: l.Collection.Verified, Key: l.Collection.Key}
	}
	if l.Uses.Present {
		if l.Uses.Method > UseSingle || l.Uses.Remaining > l.Uses.Total {
			return Record{}, fmt.Errorf("%w: corrupt uses", errs.ErrInvalidMetadata)
		}
		r.Uses = &Uses{Method: l.Uses.Method, Remaining: l.Uses.Remaining, Total: l.Uses.Total}
	}
	if l.CollectionDetails.Present {
		r.CollectionDetails = &CollectionDetails{Size: l.CollectionDetails.Value}
	}
	return r, nil
}

func encodeEdition(e Edition) ([]byte, error) {
	l := editionLayout{Kind: e.Kind, Supply: e.Supply}
	if e.MaxSupply != nil {
		l.MaxSupply = optU64{Present: true, Value: *e.MaxSupply}
	}
	return borsh.Serialize(l)
}

func decodeEdition(data []byte) (Edition, error) {
	var l editionLayout
	if err := safeDecode(&l, data); err != nil {
		return Edition{}, err
	}
	if l.Kind != KindMasterEditionV2 {
		return Edition{}, fmt.Errorf("%w: account kind %d", errs.ErrInvalidMetadata, l.Kind)
	}
	e := Edition{Kind: l.Kind, Supply: l.Supply}
	if l.MaxSupply.Present {
		v := l.MaxSupply.Value
		e.MaxSupply = &v
	}
	return e, nil
}

// creatorSize is the encoded width of one Creator.
const creatorSize = len(common.PublicKey{}) + 2

// checkRecordPrefixes walks the variable-length fields of a record and rejects length prefixes
// that exceed the field limits or the remaining input, so borsh never sizes an allocation from them.
func checkRecordPrefixes(data []byte) error {
	off := 1 + 2*len(common.PublicKey{})
	prefix := func(field string, limit, width int) error {
		if len(data)-off < 4 {
			return fmt.Errorf("%w: truncated before %s", errs.ErrInvalidMetadata, field)
		}
		n := binary.LittleEndian.Uint32(data[off:])
		off += 4
		if n > uint32(limit) || int(n)*width > len(data)-off {
			return fmt.Errorf("%w: %s length %d out of range", errs.ErrInvalidMetadata, field, n)
		}
		off += int(n) * width
		return nil
	}
	for _, f := range []struct {
		name  string
		limit int
	}{{"name", MaxNameLength}, {"symbol", MaxSymbolLength}, {"uri", MaxURILength}} {
		if err := prefix(f.name, f.limit, 1); err != nil {
			return err
		}
	}
	off += 2 // seller fee basis points
	return prefix("creators", MaxCreators, creatorSize)
}

func safeDecode(v any, data []byte) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%w: %v", errs.ErrInvalidMetadata, r)
		}
	}()
	if len(data) == 0 {
		return fmt.Errorf("%w: empty", errs.ErrInvalidMetadata)
	}
	if err = borsh.Deserialize(v, data); err != nil {
		return fmt.Errorf("%w: %v", errs.ErrInvalidMetadata, err)
	}
	return nil
}

func (r Record) validate() error {
	switch {
	case len(r.Name) > MaxNameLength:
		return fmt.Errorf("%w: name longer than %d bytes", errs.ErrInvalidArgument, MaxNameLength)
	case len(r.Symbol) > MaxSymbolLength:
		return fmt.Errorf("%w: symbol longer than %d bytes", errs.ErrInvalidArgument, MaxSymbolLength)
	case len(r.URI) > MaxURILength:
		return fmt.Errorf("%w: uri longer than %d bytes", errs.ErrInvalidArgument, MaxURILength)
	case r.SellerFeeBasisPoints > MaxBasisPoints:
		return fmt.Errorf("%w: seller fee %d bps", errs.ErrInvalidArgument, r.SellerFeeBasisPoints)
	case len(r.Creators) > MaxCreators:
		return fmt.Errorf("%w: too many creators", errs.ErrInvalidArgument)
	}
	if len(r.Creators) > 0 {
		total := 0
		seen := make(map[common.PublicKey]struct{}, len(r.Creators))
		for _, c := range r.Creators {
			if _, dup := seen[c.Address]; dup {
				return fmt.Errorf("%w: duplicate creator %s", errs.ErrInvalidArgument, c.Address.ToBase58())
			}
			seen[c.Address] = struct{}{}
			total += int(c.Share)
		}
		if total != 100 {
			return fmt.Errorf("%w: creator shares sum to %d", errs.ErrInvalidArgument, total)
		}
	}
	if r.Collection != nil && r.Collection.Verified {
		return fmt.Errorf("%w: collection must start unverified", errs.ErrInvalidArgument)
	}
	if u := r.Uses; u != nil {
		switch {
		case u.Method != UseSingle && u.Method != UseMultiple:
			return fmt.Errorf("%w: unsupported use method %d", errs.ErrInvalidArgument, u.Method)
		case u.Total == 0 || u.Remaining > u.Total:
			return fmt.Errorf("%w: uses %d/%d", errs.ErrInvalidArgument, u.Remaining, u.Total)
		case u.Method == UseSingle && u.Total != 1:
			return fmt.Errorf("%w: single use must have total 1", errs.ErrInvalidArgument)
		}
	}
	return nil
}
