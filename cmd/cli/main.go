// Command tk is a CLI client for the tickets service.
package main

import (
	"context"
	"crypto/tls"
	"crypto/x509"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/blocto/solana-go-sdk/types"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/timestamppb"

	pb "github.com/and161185/nft-tickets/internal/api/tickets/v1"
)

// ---- config/token store ----

type tokenFile struct {
	PublicKey   string    `json:"public_key"`
	AccessToken string    `json:"access_token"`
	ExpiresAt   time.Time `json:"expires_at"`
}

func cfgDir() string {
	if v := os.Getenv("XDG_CONFIG_HOME"); v != "" {
		return filepath.Join(v, "nft-tickets")
	}
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".config", "nft-tickets")
}

func tokenPath() string { return filepath.Join(cfgDir(), "token.json") }

func saveToken(key, tok string, exp time.Time) error {
	if err := os.MkdirAll(cfgDir(), 0o700); err != nil {
		return err
	}
	f, err := os.OpenFile(tokenPath(), os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o600)
	if err != nil {
		return err
	}
	defer f.Close()
	enc := json.NewEncoder(f)
	enc.SetIndent("", "  ")
	return enc.Encode(tokenFile{PublicKey: key, AccessToken: tok, ExpiresAt: exp})
}

// loadToken returns the cached session; it must belong to key when key is set.
func loadToken(key string) (string, error) {
	b, err := os.ReadFile(tokenPath())
	if err != nil {
		return "", err
	}
	var tf tokenFile
	if err := json.Unmarshal(b, &tf); err != nil {
		return "", err
	}
	if tf.AccessToken == "" || time.Now().After(tf.ExpiresAt) {
		return "", errors.New("no valid token (login required)")
	}
	if key != "" && tf.PublicKey != key {
		return "", fmt.Errorf("cached session belongs to %s (login required)", tf.PublicKey)
	}
	return tf.AccessToken, nil
}

// ---- keypairs ----

func defaultKeypairPath() string {
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".config", "solana", "id.json")
}

// loadKeypair reads a solana-keygen JSON file: an array of the 64 secret key bytes.
func loadKeypair(path string) (types.Account, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return types.Account{}, err
	}
	var ints []int
	if err := json.Unmarshal(b, &ints); err != nil {
		return types.Account{}, fmt.Errorf("keypair %s: not a json byte array: %w", path, err)
	}
	if len(ints) != 64 {
		return types.Account{}, fmt.Errorf("keypair %s: want 64 bytes, got %d", path, len(ints))
	}
	raw := make([]byte, len(ints))
	for i, v := range ints {
		if v < 0 || v > 255 {
			return types.Account{}, fmt.Errorf("keypair %s: byte out of range at %d: %d", path, i, v)
		}
		raw[i] = byte(v)
	}
	return types.AccountFromBytes(raw)
}

// saveKeypair writes acc in the solana-keygen format, refusing to overwrite.
func saveKeypair(path string, acc types.Account) error {
	ints := make([]int, len(acc.PrivateKey))
	for i, v := range acc.PrivateKey {
		ints[i] = int(v)
	}
	b, err := json.Marshal(ints)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return err
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o600)
	if err != nil {
		return err
	}
	defer f.Close()
	_, err = f.Write(b)
	return err
}

// ---- grpc dial ----

type bearerCreds struct {
	token  string
	secure bool
}

func (b bearerCreds) GetRequestMetadata(context.Context, ...string) (map[string]string, error) {
	return map[string]string{"authorization": "Bearer " + b.token}, nil
}
func (b bearerCreds) RequireTransportSecurity() bool { return b.secure }

func loadTLS(caPath string, insecure bool) (credentials.TransportCredentials, error) {
	if insecure {
		return credentials.NewTLS(&tls.Config{InsecureSkipVerify: true}), nil
	}
	if caPath == "" {
		return credentials.NewClientTLSFromCert(nil, ""), nil
	}
	pem, err := os.ReadFile(caPath)
	if err != nil {
		return nil, err
	}
	pool := x509.NewCertPool()
	if !pool.AppendCertsFromPEM(pem) {
		return nil, errors.New("bad CA cert")
	}
	return credentials.NewTLS(&tls.Config{RootCAs: pool}), nil
}

// globals are the connection flags shared by every command.
type globals struct {
	addr      string
	caPath    string
	insecure  bool
	plaintext bool
	keypair   string
}

func dial(g globals, bearer string) (*grpc.ClientConn, pb.TicketsClient, error) {
	var creds credentials.TransportCredentials
	if g.plaintext {
		creds = insecure.NewCredentials()
	} else {
		var err error
		if creds, err = loadTLS(g.caPath, g.insecure); err != nil {
			return nil, nil, err
		}
	}
	opts := []grpc.DialOption{grpc.WithTransportCredentials(creds)}
	if bearer != "" {
		opts = append(opts, grpc.WithPerRPCCredentials(bearerCreds{token: bearer, secure: !g.plaintext}))
	}
	cc, err := grpc.NewClient(g.addr, opts...)
	if err != nil {
		return nil, nil, err
	}
	return cc, pb.NewTicketsClient(cc), nil
}

// session dials with the cached token of the configured keypair.
func session(g globals) (*grpc.ClientConn, pb.TicketsClient, error) {
	acc, err := loadKeypair(g.keypair)
	if err != nil {
		return nil, nil, err
	}
	token, err := loadToken(acc.PublicKey.ToBase58())
	if err != nil {
		return nil, nil, err
	}
	return dial(g, token)
}

// ---- utils ----

func printJSON(v any) {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	_ = enc.Encode(v)
}

func usage() {
	fmt.Fprintf(os.Stderr, `tk CLI
Usage:
  tk -addr HOST:PORT [-cacert file | -insecure | -plaintext] [-keypair file] <cmd> [args]

Commands:
  version
  keygen            -out <file>
  login                                                   (signs with -keypair, saves token)
  airdrop           -lamports <n> [-to <key>]             (dev servers only)
  balance           [-address <key>]
  issue-collection  -name -symbol -uri [-fee <bps>] -price <lamports> [-event <RFC3339>] [-authority <key>] [-mint-keypair <file>]
  issue-ticket      -collection <mint> -name -symbol -uri [-fee <bps>] [-mutable] [-recipient <key>] [-mint-keypair <file>]
  use               -mint <key> [-token-account <key>]
  burn              -mint <key> -collection <mint> -token-account <key>
  ticket            -mint <key> [-holder <key>]
  treasury          -collection <mint>
`)
	os.Exit(2)
}

// ---- main ----

var (
	version   = "dev"
	buildDate = "unknown"
)

// main dispatches subcommands and configures TLS/auth for RPC calls.
func main() {
	// global flags
	var g globals
	flag.StringVar(&g.addr, "addr", "localhost:8443", "server addr")
	flag.StringVar(&g.caPath, "cacert", "", "CA cert (PEM)")
	flag.BoolVar(&g.insecure, "insecure", false, "skip cert verify (dev)")
	flag.BoolVar(&g.plaintext, "plaintext", false, "no TLS at all (dev servers started with -insecure)")
	flag.StringVar(&g.keypair, "keypair", defaultKeypairPath(), "solana-keygen JSON keypair")
	flag.Usage = usage
	flag.Parse()

	if flag.NArg() < 1 {
		usage()
	}
	cmd, args := flag.Arg(0), flag.Args()[1:]

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	var err error
	switch cmd {
	case "version":
		fmt.Printf("tk %s (%s)\n", version, buildDate)
	case "keygen":
		err = cmdKeygen(args)
	case "login":
		err = cmdLogin(ctx, g)
	case "airdrop":
		err = cmdAirdrop(ctx, g, args)
	case "balance":
		err = cmdBalance(ctx, g, args)
	case "issue-collection":
		err = cmdIssueCollection(ctx, g, args)
	case "issue-ticket":
		err = cmdIssueTicket(ctx, g, args)
	case "use":
		err = cmdUse(ctx, g, args)
	case "burn":
		err = cmdBurn(ctx, g, args)
	case "ticket":
		err = cmdTicket(ctx, g, args)
	case "treasury":
		err = cmdTreasury(ctx, g, args)
	default:
		usage()
	}
	if err != nil {
		fail(err)
	}
}

// ---- helpers ----

func tsString(ts *timestamppb.Timestamp) string {
	if ts == nil {
		return ""
	}
	return ts.AsTime().UTC().Format(time.RFC3339)
}

func fail(err error) {
	if s, ok := status.FromError(err); ok {
		fmt.Fprintf(os.Stderr, "rpc error: code=%s msg=%s\n", s.Code(), s.Message())
		os.Exit(1)
	}
	fmt.Fprintln(os.Stderr, err)
	os.Exit(1)
}
