// Package errs contains sentinel errors used across layers for stable error mapping.
package errs

import "errors"

// Common sentinels across store/service layers.
var (
	// ErrNotFound indicates the requested account does not exist.
	ErrNotFound = errors.New("not found")

	// ErrAlreadyInitialized indicates an account already exists at the target address.
	ErrAlreadyInitialized = errors.New("already initialized")

	// ErrUnauthorized indicates failed session authentication.
	ErrUnauthorized = errors.New("unauthorized")

	// ErrRateLimited indicates temporary login lock due to rate limiting.
	ErrRateLimited = errors.New("rate limited")
)

// Address/identity mismatch: a supplied address differs from its deterministic derivation.
var (
	ErrMetadataAddressMismatch = errors.New("metadata address mismatch")
	ErrBadMetadataPda          = errors.New("bad metadata pda")
	ErrBadEditionPda           = errors.New("bad master edition pda")
)

// Authority failures.
var (
	// ErrAuthorityMismatch indicates the signer is not the authority the account expects.
	ErrAuthorityMismatch = errors.New("authority mismatch")

	// ErrInvalidProof indicates a derived-authority proof does not reproduce its identity.
	ErrInvalidProof = errors.New("invalid derivation proof")
)

// ErrInsufficientFunds indicates the payer cannot cover the transfer.
var ErrInsufficientFunds = errors.New("insufficient funds")

// State precondition failures.
var (
	ErrInvalidMetadata      = errors.New("invalid metadata")
	ErrMetadataMintMismatch = errors.New("metadata mint mismatch")
	ErrNoUsesConfigured     = errors.New("no uses configured")
	ErrNoRemainingUses      = errors.New("no remaining uses")
	ErrCollectionMismatch   = errors.New("collection mismatch")
	ErrNotSizedCollection   = errors.New("not a sized collection")
	ErrAlreadyVerified      = errors.New("collection already verified")
	ErrEventEnded           = errors.New("event ended")
	ErrInvalidArgument      = errors.New("invalid argument")
)

// ErrUseFailed indicates the use counter did not move as expected. It is an invariant breach.
var ErrUseFailed = errors.New("use failed")
