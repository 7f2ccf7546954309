// Package model defines domain entities and requests used by services and transport.
package model

import (
	"time"

	"github.com/blocto/solana-go-sdk/common"

	"github.com/and161185/nft-tickets/internal/authority"
)

// Session is an issued access token.
type Session struct {
	AccessToken string
	ExpiresAt   time.Time
}

// Fields are the descriptive metadata of an issued token.
type Fields struct {
	Name                 string
	Symbol               string
	URI                  string
	SellerFeeBasisPoints uint16
}

// Issuance is a request to issue either a collection root or a collection member.
type Issuance interface {
	issuance()
}

// IssueRoot issues a collection root and its treasury.
type IssueRoot struct {
	Payer  authority.KeySigner
	Fields Fields

	// Authority administers the event; the zero key means the payer.
	Authority common.PublicKey
	Price     uint64
	EventTS   uint64

	// Mint names the collection mint; nil means a fresh key is generated.
	// The signer must have proven possession of the key.
	Mint *authority.KeySigner

	// Metadata is the record address the caller expects; it must match the derived one.
	Metadata *common.PublicKey
}

// IssueMember issues one ticket into an existing collection.
type IssueMember struct {
	Payer      authority.KeySigner
	Collection common.PublicKey
	Fields     Fields
	IsMutable  bool

	// Recipient receives the ticket; the zero key means the payer.
	Recipient common.PublicKey

	// Mint names the ticket mint; nil means a fresh key is generated.
	Mint *authority.KeySigner

	// Metadata and MasterEdition are the addresses the caller expects; they must match the derived ones.
	Metadata      *common.PublicKey
	MasterEdition *common.PublicKey
}

func (IssueRoot) issuance()   {}
func (IssueMember) issuance() {}

// Issued is the outcome of an Issuance: exactly one field is set.
type Issued struct {
	Root   *Collection
	Member *Ticket
}

// Collection is an issued collection root with its treasury.
type Collection struct {
	Mint          common.PublicKey
	Metadata      common.PublicKey
	MasterEdition common.PublicKey
	MintAuthority common.PublicKey
	Treasury      Treasury
}

// Treasury is the escrow view of a collection.
type Treasury struct {
	Address        common.PublicKey
	Authority      common.PublicKey
	CollectionMint common.PublicKey
	EventTS        uint64
	Bump           uint8
	Price          uint64
	Balance        uint64
	Payments       int
}

// Uses is the redemption counter of a ticket.
type Uses struct {
	Remaining uint64
	Total     uint64
}

// Ticket is an issued collection member.
type Ticket struct {
	Mint          common.PublicKey
	Metadata      common.PublicKey
	MasterEdition common.PublicKey
	TokenAccount  common.PublicKey
	Holder        common.PublicKey
	Amount        uint64
	Collection    common.PublicKey
	Verified      bool
	Fields        Fields
	Uses          *Uses
}

// UseTicket redeems one use of a ticket.
type UseTicket struct {
	Owner        authority.KeySigner
	Mint         common.PublicKey
	Metadata     common.PublicKey
	TokenAccount common.PublicKey
}

// BurnTicket revokes a ticket. Authority must be the event administrator.
type BurnTicket struct {
	Authority    authority.KeySigner
	Mint         common.PublicKey
	Collection   common.PublicKey
	TokenAccount common.PublicKey
}
