// Package ticketsv1 is the wire contract of the tickets.v1.Tickets gRPC service.
//
// Messages travel as JSON (see Codec); keys and signatures are base58 strings.
package ticketsv1

import "google.golang.org/protobuf/types/known/timestamppb"

type LoginRequest struct {
	PublicKey string `json:"public_key"`
	UnixTs    int64  `json:"unix_ts"`
	Signature string `json:"signature"`
}

type LoginResponse struct {
	AccessToken string                 `json:"access_token"`
	ExpiresAt   *timestamppb.Timestamp `json:"expires_at,omitempty"`
}

type IssueCollectionRequest struct {
	Name                 string                 `json:"name"`
	Symbol               string                 `json:"symbol"`
	Uri                  string                 `json:"uri"`
	SellerFeeBasisPoints uint32                 `json:"seller_fee_basis_points"`
	Price                uint64                 `json:"price"`
	EventAt              *timestamppb.Timestamp `json:"event_at,omitempty"`
	Authority            string                 `json:"authority,omitempty"`
	Mint                 string                 `json:"mint,omitempty"`
	MintSignature        string                 `json:"mint_signature,omitempty"`
	Metadata             string                 `json:"metadata,omitempty"`
}

type IssueCollectionResponse struct {
	Collection *Collection `json:"collection"`
}

type IssueTicketRequest struct {
	Collection           string `json:"collection"`
	Name                 string `json:"name"`
	Symbol               string `json:"symbol"`
	Uri                  string `json:"uri"`
	SellerFeeBasisPoints uint32 `json:"seller_fee_basis_points"`
	IsMutable            bool   `json:"is_mutable"`
	Recipient            string `json:"recipient,omitempty"`
	Mint                 string `json:"mint,omitempty"`
	MintSignature        string `json:"mint_signature,omitempty"`
	Metadata             string `json:"metadata,omitempty"`
	MasterEdition        string `json:"master_edition,omitempty"`
}

type IssueTicketResponse struct {
	Ticket *Ticket `json:"ticket"`
}

type UseTicketRequest struct {
	Mint         string `json:"mint"`
	Metadata     string `json:"metadata,omitempty"`
	TokenAccount string `json:"token_account,omitempty"`
}

type UseTicketResponse struct {
	Uses *Uses `json:"uses"`
}

type BurnTicketRequest struct {
	Mint         string `json:"mint"`
	Collection   string `json:"collection"`
	TokenAccount string `json:"token_account"`
}

type GetTicketRequest struct {
	Mint   string `json:"mint"`
	Holder string `json:"holder,omitempty"`
}

type GetTicketResponse struct {
	Ticket *Ticket `json:"ticket"`
}

type GetTreasuryRequest struct {
	Collection string `json:"collection"`
}

type GetTreasuryResponse struct {
	Treasury *Treasury `json:"treasury"`
}

type AirdropRequest struct {
	To       string `json:"to"`
	Lamports uint64 `json:"lamports"`
}

type BalanceRequest struct {
	Address string `json:"address"`
}

type BalanceResponse struct {
	Lamports uint64 `json:"lamports"`
}

type Collection struct {
	Mint          string    `json:"mint"`
	Metadata      string    `json:"metadata"`
	MasterEdition string    `json:"master_edition"`
	MintAuthority string    `json:"mint_authority"`
	Treasury      *Treasury `json:"treasury"`
}

type Treasury struct {
	Address        string                 `json:"address"`
	Authority      string                 `json:"authority"`
	CollectionMint string                 `json:"collection_mint"`
	EventAt        *timestamppb.Timestamp `json:"event_at,omitempty"`
	Bump           uint32                 `json:"bump"`
	Price          uint64                 `json:"price"`
	Balance        uint64                 `json:"balance"`
	Payments       int64                  `json:"payments"`
}

type Uses struct {
	Remaining uint64 `json:"remaining"`
	Total     uint64 `json:"total"`
}

type Ticket struct {
	Mint                 string `json:"mint"`
	Metadata             string `json:"metadata"`
	MasterEdition        string `json:"master_edition"`
	TokenAccount         string `json:"token_account,omitempty"`
	Holder               string `json:"holder,omitempty"`
	Amount               uint64 `json:"amount"`
	Collection           string `json:"collection"`
	Verified             bool   `json:"verified"`
	Name                 string `json:"name"`
	Symbol               string `json:"symbol"`
	Uri                  string `json:"uri"`
	SellerFeeBasisPoints uint32 `json:"seller_fee_basis_points"`
	Uses                 *Uses  `json:"uses,omitempty"`
}
