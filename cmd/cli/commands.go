package main

import (
	"context"
	"crypto/ed25519"
	"errors"
	"flag"
	"fmt"
	"time"

	"github.com/blocto/solana-go-sdk/types"
	"github.com/mr-tron/base58"
	"google.golang.org/protobuf/types/known/timestamppb"

	pb "github.com/and161185/nft-tickets/internal/api/tickets/v1"
	"github.com/and161185/nft-tickets/internal/service"
)

func cmdKeygen(args []string) error {
	fs := flag.NewFlagSet("keygen", flag.ContinueOnError)
	out := fs.String("out", "", "keypair file to create")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *out == "" {
		return errors.New("need -out")
	}
	acc := types.NewAccount()
	if err := saveKeypair(*out, acc); err != nil {
		return err
	}
	fmt.Println(acc.PublicKey.ToBase58())
	return nil
}

// loginRequest signs the login message for acc at ts.
func loginRequest(acc types.Account, ts time.Time) *pb.LoginRequest {
	unix := ts.Unix()
	sig := ed25519.Sign(acc.PrivateKey, service.LoginMessage(acc.PublicKey, unix))
	return &pb.LoginRequest{
		PublicKey: acc.PublicKey.ToBase58(),
		UnixTs:    unix,
		Signature: base58.Encode(sig),
	}
}

func cmdLogin(ctx context.Context, g globals) error {
	acc, err := loadKeypair(g.keypair)
	if err != nil {
		return err
	}
	cc, cli, err := dial(g, "")
	if err != nil {
		return err
	}
	defer cc.Close()

	resp, err := cli.Login(ctx, loginRequest(acc, time.Now()))
	if err != nil {
		return err
	}
	exp := time.Now().Add(15 * time.Minute)
	if resp.ExpiresAt != nil {
		exp = resp.ExpiresAt.AsTime()
	}
	if err := saveToken(acc.PublicKey.ToBase58(), resp.AccessToken, exp); err != nil {
		return err
	}
	fmt.Println("ok", acc.PublicKey.ToBase58())
	return nil
}

func cmdAirdrop(ctx context.Context, g globals, args []string) error {
	fs := flag.NewFlagSet("airdrop", flag.ContinueOnError)
	lamports := fs.Uint64("lamports", 0, "amount")
	to := fs.String("to", "", "recipient (default: keypair)")
	if err := fs.Parse(args); err != nil {
		return err
	}
	cc, cli, err := session(g)
	if err != nil {
		return err
	}
	defer cc.Close()

	if _, err = cli.Airdrop(ctx, &pb.AirdropRequest{To: *to, Lamports: *lamports}); err != nil {
		return err
	}
	fmt.Println("ok")
	return nil
}

func cmdBalance(ctx context.Context, g globals, args []string) error {
	fs := flag.NewFlagSet("balance", flag.ContinueOnError)
	addr := fs.String("address", "", "account (default: keypair)")
	if err := fs.Parse(args); err != nil {
		return err
	}
	cc, cli, err := session(g)
	if err != nil {
		return err
	}
	defer cc.Close()

	resp, err := cli.Balance(ctx, &pb.BalanceRequest{Address: *addr})
	if err != nil {
		return err
	}
	fmt.Println(resp.Lamports)
	return nil
}

// parseEvent accepts an RFC3339 timestamp; empty means open ended.
func parseEvent(s string) (*timestamppb.Timestamp, error) {
	if s == "" {
		return nil, nil
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return nil, fmt.Errorf("bad -event: %w", err)
	}
	return timestamppb.New(t), nil
}

func cmdIssueCollection(ctx context.Context, g globals, args []string) error {
	fs := flag.NewFlagSet("issue-collection", flag.ContinueOnError)
	name := fs.String("name", "", "collection name")
	symbol := fs.String("symbol", "", "symbol")
	uri := fs.String("uri", "", "metadata uri")
	fee := fs.Uint("fee", 0, "seller fee, basis points")
	price := fs.Uint64("price", 0, "ticket price, lamports")
	event := fs.String("event", "", "event time (RFC3339); sales close then")
	admin := fs.String("authority", "", "event administrator (default: keypair)")
	mintKP := fs.String("mint-keypair", "", "keypair naming the collection mint (default: server-generated)")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *name == "" {
		return errors.New("need -name")
	}
	at, err := parseEvent(*event)
	if err != nil {
		return err
	}
	mint, mintSig, err := namedMint(g, *mintKP)
	if err != nil {
		return err
	}
	cc, cli, err := session(g)
	if err != nil {
		return err
	}
	defer cc.Close()

	resp, err := cli.IssueCollection(ctx, &pb.IssueCollectionRequest{
		Name:                 *name,
		Symbol:               *symbol,
		Uri:                  *uri,
		SellerFeeBasisPoints: uint32(*fee),
		Price:                *price,
		EventAt:              at,
		Authority:            *admin,
		Mint:                 mint,
		MintSignature:        mintSig,
	})
	if err != nil {
		return err
	}
	printJSON(resp.Collection)
	return nil
}

func cmdIssueTicket(ctx context.Context, g globals, args []string) error {
	fs := flag.NewFlagSet("issue-ticket", flag.ContinueOnError)
	col := fs.String("collection", "", "collection mint")
	name := fs.String("name", "", "ticket name")
	symbol := fs.String("symbol", "", "symbol")
	uri := fs.String("uri", "", "metadata uri")
	fee := fs.Uint("fee", 0, "seller fee, basis points")
	mutable := fs.Bool("mutable", false, "allow metadata updates")
	recipient := fs.String("recipient", "", "ticket holder (default: keypair)")
	mintKP := fs.String("mint-keypair", "", "keypair naming the ticket mint (default: server-generated)")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *col == "" || *name == "" {
		return errors.New("need -collection and -name")
	}
	mint, mintSig, err := namedMint(g, *mintKP)
	if err != nil {
		return err
	}
	cc, cli, err := session(g)
	if err != nil {
		return err
	}
	defer cc.Close()

	resp, err := cli.IssueTicket(ctx, &pb.IssueTicketRequest{
		Collection:           *col,
		Name:                 *name,
		Symbol:               *symbol,
		Uri:                  *uri,
		SellerFeeBasisPoints: uint32(*fee),
		IsMutable:            *mutable,
		Recipient:            *recipient,
		Mint:                 mint,
		MintSignature:        mintSig,
	})
	if err != nil {
		return err
	}
	printJSON(resp.Ticket)
	return nil
}

func cmdUse(ctx context.Context, g globals, args []string) error {
	fs := flag.NewFlagSet("use", flag.ContinueOnError)
	mint := fs.String("mint", "", "ticket mint")
	tokenAccount := fs.String("token-account", "", "holding account (default: associated account)")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *mint == "" {
		return errors.New("need -mint")
	}
	cc, cli, err := session(g)
	if err != nil {
		return err
	}
	defer cc.Close()

	resp, err := cli.UseTicket(ctx, &pb.UseTicketRequest{Mint: *mint, TokenAccount: *tokenAccount})
	if err != nil {
		return err
	}
	printJSON(resp.Uses)
	return nil
}

func cmdBurn(ctx context.Context, g globals, args []string) error {
	fs := flag.NewFlagSet("burn", flag.ContinueOnError)
	mint := fs.String("mint", "", "ticket mint")
	col := fs.String("collection", "", "collection mint")
	tokenAccount := fs.String("token-account", "", "holding account")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *mint == "" || *col == "" || *tokenAccount == "" {
		return errors.New("need -mint, -collection and -token-account")
	}
	cc, cli, err := session(g)
	if err != nil {
		return err
	}
	defer cc.Close()

	if _, err = cli.BurnTicket(ctx, &pb.BurnTicketRequest{Mint: *mint, Collection: *col, TokenAccount: *tokenAccount}); err != nil {
		return err
	}
	fmt.Println("ok")
	return nil
}

func cmdTicket(ctx context.Context, g globals, args []string) error {
	fs := flag.NewFlagSet("ticket", flag.ContinueOnError)
	mint := fs.String("mint", "", "ticket mint")
	holder := fs.String("holder", "", "holder to report the balance of")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *mint == "" {
		return errors.New("need -mint")
	}
	cc, cli, err := session(g)
	if err != nil {
		return err
	}
	defer cc.Close()

	resp, err := cli.GetTicket(ctx, &pb.GetTicketRequest{Mint: *mint, Holder: *holder})
	if err != nil {
		return err
	}
	printJSON(resp.Ticket)
	return nil
}

// treasuryView flattens the event timestamp for printing.
type treasuryView struct {
	*pb.Treasury
	EventAt string `json:"event_at,omitempty"`
}

func cmdTreasury(ctx context.Context, g globals, args []string) error {
	fs := flag.NewFlagSet("treasury", flag.ContinueOnError)
	col := fs.String("collection", "", "collection mint")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *col == "" {
		return errors.New("need -collection")
	}
	cc, cli, err := session(g)
	if err != nil {
		return err
	}
	defer cc.Close()

	resp, err := cli.GetTreasury(ctx, &pb.GetTreasuryRequest{Collection: *col})
	if err != nil {
		return err
	}
	printJSON(treasuryView{Treasury: resp.Treasury, EventAt: tsString(resp.Treasury.EventAt)})
	return nil
}

// namedMint loads the mint keypair at path and signs the payer's key with it.
// An empty path leaves the choice of mint to the server.
func namedMint(g globals, path string) (mint, sig string, err error) {
	if path == "" {
		return "", "", nil
	}
	payer, err := loadKeypair(g.keypair)
	if err != nil {
		return "", "", err
	}
	acc, err := loadKeypair(path)
	if err != nil {
		return "", "", err
	}
	return acc.PublicKey.ToBase58(), base58.Encode(ed25519.Sign(acc.PrivateKey, payer.PublicKey.Bytes())), nil
}
