package grpcserver

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/and161185/nft-tickets/internal/errs"
)

func TestToStatus(t *testing.T) {
	t.Parallel()

	cases := []struct {
		err  error
		want codes.Code
	}{
		{errs.ErrUnauthorized, codes.Unauthenticated},
		{errs.ErrRateLimited, codes.ResourceExhausted},
		{fmt.Errorf("x: %w", errs.ErrMetadataAddressMismatch), codes.InvalidArgument},
		{errs.ErrBadEditionPda, codes.InvalidArgument},
		{errs.ErrAuthorityMismatch, codes.PermissionDenied},
		{errs.ErrInvalidProof, codes.PermissionDenied},
		{errs.ErrInsufficientFunds, codes.FailedPrecondition},
		{errs.ErrEventEnded, codes.FailedPrecondition},
		{errs.ErrNoRemainingUses, codes.FailedPrecondition},
		{fmt.Errorf("%w: %w", errs.ErrInvalidMetadata, errs.ErrNotFound), codes.FailedPrecondition},
		{errs.ErrAlreadyInitialized, codes.AlreadyExists},
		{errs.ErrNotFound, codes.NotFound},
		{errs.ErrUseFailed, codes.Internal},
		{context.DeadlineExceeded, codes.DeadlineExceeded},
		{errors.New("boom"), codes.Internal},
		{status.Error(codes.Aborted, "kept"), codes.Aborted},
	}
	for _, tc := range cases {
		if got := status.Code(toStatus("op", tc.err)); got != tc.want {
			t.Fatalf("%v: got %s, want %s", tc.err, got, tc.want)
		}
	}
	if toStatus("op", nil) != nil {
		t.Fatalf("nil must stay nil")
	}
	if msg := status.Convert(toStatus("op", errors.New("secret"))).Message(); msg != "op: internal error" {
		t.Fatalf("internal details leaked: %q", msg)
	}
}
