// Package authority derives program-controlled identities and checks who may act on ledger accounts.
//
// A derived identity is a pure function of a domain label, the owning entities and the program id.
// It lies off the ed25519 curve, so no private key exists for it; the program authorizes as that
// identity by presenting a Proof (label, owners, bump) that anyone can recompute but only the
// program's Deriver hands out.
package authority

import (
	"crypto/ed25519"
	"fmt"

	"filippo.io/edwards25519"
	"github.com/blocto/solana-go-sdk/common"
	"github.com/blocto/solana-go-sdk/types"
	"github.com/mr-tron/base58"

	"github.com/and161185/nft-tickets/internal/errs"
)

// Domain labels used by the tickets program.
const (
	LabelTreasury      = "treasury"
	LabelMintAuthority = "mint_authority"
)

const (
	maxSeedLen = 32
	maxSeeds   = 16
)

// Signer is an identity that has authorized the current operation.
type Signer interface {
	Key() common.PublicKey
}

// Deriver produces derived identities and their proofs for one program.
type Deriver struct {
	program common.PublicKey
}

// NewDeriver returns a deriver bound to the given program id.
func NewDeriver(program common.PublicKey) *Deriver {
	return &Deriver{program: program}
}

// Program returns the program id the deriver is bound to.
func (d *Deriver) Program() common.PublicKey { return d.program }

// Derive returns the identity for (label, owners...) together with its proof.
func (d *Deriver) Derive(label string, owners ...common.PublicKey) (Proof, error) {
	seeds, err := seedsFor(label, owners)
	if err != nil {
		return Proof{}, err
	}
	key, bump, err := common.FindProgramAddress(seeds, d.program)
	if err != nil {
		return Proof{}, fmt.Errorf("find program address %q: %w", label, err)
	}
	return Proof{
		label:   label,
		owners:  append([]common.PublicKey(nil), owners...),
		bump:    bump,
		key:     key,
		program: d.program,
	}, nil
}

// Address returns only the derived identity and its bump.
func (d *Deriver) Address(label string, owners ...common.PublicKey) (common.PublicKey, uint8, error) {
	p, err := d.Derive(label, owners...)
	if err != nil {
		return common.PublicKey{}, 0, err
	}
	return p.key, p.bump, nil
}

// Proof is a self-certifying derived authority.
type Proof struct {
	label   string
	owners  []common.PublicKey
	bump    uint8
	key     common.PublicKey
	program common.PublicKey
}

// Key returns the derived identity.
func (p Proof) Key() common.PublicKey { return p.key }

// Bump returns the derivation bump stored alongside records.
func (p Proof) Bump() uint8 { return p.bump }

// Label returns the domain label of the proof.
func (p Proof) Label() string { return p.label }

// Verify recomputes the identity from the proof under program.
func (p Proof) Verify(program common.PublicKey) error {
	if p.program != program {
		return fmt.Errorf("%w: foreign program %s", errs.ErrInvalidProof, p.program.ToBase58())
	}
	seeds, err := seedsFor(p.label, p.owners)
	if err != nil {
		return fmt.Errorf("%w: %v", errs.ErrInvalidProof, err)
	}
	seeds = append(seeds, []byte{p.bump})
	key, err := common.CreateProgramAddress(seeds, program)
	if err != nil || key != p.key {
		return errs.ErrInvalidProof
	}
	return nil
}

func seedsFor(label string, owners []common.PublicKey) ([][]byte, error) {
	if label == "" || len(label) > maxSeedLen {
		return nil, fmt.Errorf("%w: label %q", errs.ErrInvalidArgument, label)
	}
	if len(owners)+2 > maxSeeds {
		return nil, fmt.Errorf("%w: too many owners", errs.ErrInvalidArgument)
	}
	seeds := make([][]byte, 0, len(owners)+2)
	seeds = append(seeds, []byte(label))
	for _, o := range owners {
		seeds = append(seeds, o.Bytes())
	}
	return seeds, nil
}

// KeySigner is an ordinary ed25519 key that proved possession of its private half.
type KeySigner struct {
	key      common.PublicKey
	verified bool
}

// Key returns the signer's public key.
func (k KeySigner) Key() common.PublicKey { return k.key }

// FromAccount wraps a locally held keypair.
func FromAccount(acc types.Account) KeySigner {
	return KeySigner{key: acc.PublicKey, verified: true}
}

// VerifySignature checks sig over msg and returns a signer for key.
func VerifySignature(key common.PublicKey, msg, sig []byte) (KeySigner, error) {
	if len(sig) != ed25519.SignatureSize || !ed25519.Verify(ed25519.PublicKey(key.Bytes()), msg, sig) {
		return KeySigner{}, errs.ErrUnauthorized
	}
	return KeySigner{key: key, verified: true}, nil
}

// Trusted returns a signer for a key authenticated upstream (a session token issued after
// VerifySignature).
func Trusted(key common.PublicKey) KeySigner {
	return KeySigner{key: key, verified: true}
}

// Authorize reports whether s may act as expected. Proofs must verify under program;
// plain keys must be verified and lie on the curve.
func Authorize(s Signer, expected, program common.PublicKey) error {
	if s == nil {
		return fmt.Errorf("%w: no signer", errs.ErrAuthorityMismatch)
	}
	if s.Key() != expected {
		return fmt.Errorf("%w: want %s, got %s", errs.ErrAuthorityMismatch, expected.ToBase58(), s.Key().ToBase58())
	}
	switch v := s.(type) {
	case Proof:
		return v.Verify(program)
	case KeySigner:
		if !v.verified || !OnCurve(v.key) {
			return fmt.Errorf("%w: unverified key", errs.ErrAuthorityMismatch)
		}
		return nil
	default:
		return fmt.Errorf("%w: unsupported signer %T", errs.ErrAuthorityMismatch, s)
	}
}

// OnCurve reports whether key is a valid ed25519 point, i.e. could have a private key.
func OnCurve(key common.PublicKey) bool {
	_, err := new(edwards25519.Point).SetBytes(key.Bytes())
	return err == nil
}

// ParseKey decodes a base58 public key, rejecting anything that is not exactly 32 bytes.
func ParseKey(s string) (common.PublicKey, error) {
	b, err := base58.Decode(s)
	if err != nil {
		return common.PublicKey{}, fmt.Errorf("%w: key %q: %v", errs.ErrInvalidArgument, s, err)
	}
	if len(b) != len(common.PublicKey{}) {
		return common.PublicKey{}, fmt.Errorf("%w: key %q has %d bytes", errs.ErrInvalidArgument, s, len(b))
	}
	return common.PublicKeyFromBytes(b), nil
}
