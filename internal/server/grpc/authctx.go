package grpcserver

import (
	"context"

	"github.com/and161185/nft-tickets/internal/authority"
)

type ctxKey string

const callerKey ctxKey = "tk.caller"

// WithCaller stores the authenticated session key in context.
func WithCaller(ctx context.Context, k authority.KeySigner) context.Context {
	return context.WithValue(ctx, callerKey, k)
}

// CallerFromCtx fetches the session key from context.
func CallerFromCtx(ctx context.Context) (authority.KeySigner, bool) {
	v := ctx.Value(callerKey)
	if v == nil {
		return authority.KeySigner{}, false
	}
	k, ok := v.(authority.KeySigner)
	return k, ok
}
