package grpcserver

import (
	"context"
	"errors"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/and161185/nft-tickets/internal/errs"
)

var codeBySentinel = []struct {
	err  error
	code codes.Code
}{
	{errs.ErrUnauthorized, codes.Unauthenticated},
	{errs.ErrRateLimited, codes.ResourceExhausted},

	{errs.ErrMetadataAddressMismatch, codes.InvalidArgument},
	{errs.ErrBadMetadataPda, codes.InvalidArgument},
	{errs.ErrBadEditionPda, codes.InvalidArgument},
	{errs.ErrInvalidArgument, codes.InvalidArgument},

	{errs.ErrAuthorityMismatch, codes.PermissionDenied},
	{errs.ErrInvalidProof, codes.PermissionDenied},

	{errs.ErrAlreadyInitialized, codes.AlreadyExists},
	{errs.ErrUseFailed, codes.Internal},

	// state checks come before ErrNotFound: a missing record behind ErrInvalidMetadata is still a precondition.
	{errs.ErrInsufficientFunds, codes.FailedPrecondition},
	{errs.ErrInvalidMetadata, codes.FailedPrecondition},
	{errs.ErrMetadataMintMismatch, codes.FailedPrecondition},
	{errs.ErrNoUsesConfigured, codes.FailedPrecondition},
	{errs.ErrNoRemainingUses, codes.FailedPrecondition},
	{errs.ErrCollectionMismatch, codes.FailedPrecondition},
	{errs.ErrNotSizedCollection, codes.FailedPrecondition},
	{errs.ErrAlreadyVerified, codes.FailedPrecondition},
	{errs.ErrEventEnded, codes.FailedPrecondition},

	{errs.ErrNotFound, codes.NotFound},
}

// toStatus maps domain errors onto gRPC status codes. Unknown errors become Internal without details.
func toStatus(op string, err error) error {
	if err == nil {
		return nil
	}
	if _, ok := status.FromError(err); ok {
		return err
	}
	switch {
	case errors.Is(err, context.Canceled):
		return status.Error(codes.Canceled, op+": canceled")
	case errors.Is(err, context.DeadlineExceeded):
		return status.Error(codes.DeadlineExceeded, op+": deadline exceeded")
	}
	for _, m := range codeBySentinel {
		if errors.Is(err, m.err) {
			return status.Errorf(m.code, "%s: %v", op, err)
		}
	}
	return status.Errorf(codes.Internal, "%s: internal error", op)
}
