// Package service contains application services for ticket issuance and session authentication.
package service

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/blocto/solana-go-sdk/common"
	"github.com/golang-jwt/jwt/v5"
	"go.uber.org/zap"

	"github.com/and161185/nft-tickets/internal/authority"
	"github.com/and161185/nft-tickets/internal/clock"
	"github.com/and161185/nft-tickets/internal/errs"
	"github.com/and161185/nft-tickets/internal/limiter"
	"github.com/and161185/nft-tickets/internal/model"
)

// LoginMessage is the text a wallet signs to open a session.
func LoginMessage(key common.PublicKey, unixTS int64) []byte {
	return []byte("nft-tickets login:" + key.ToBase58() + ":" + strconv.FormatInt(unixTS, 10))
}

// AuthService defines session operations.
type AuthService interface {
	// Login verifies a signed login message and issues an access token.
	Login(ctx context.Context, key common.PublicKey, unixTS int64, sig []byte, ip string) (model.Session, error)
	// Authenticate resolves an access token into the key that opened the session.
	Authenticate(token string) (authority.KeySigner, error)
}

type AuthServiceImpl struct {
	signKey   []byte
	accessTTL time.Duration
	skew      time.Duration
	lim       limiter.Limiter
	clock     clock.Clock
	log       *zap.Logger
}

// NewAuthService constructs AuthService with required dependencies.
func NewAuthService(signKey []byte, accessTTL, skew time.Duration, lim limiter.Limiter, clk clock.Clock, log *zap.Logger) *AuthServiceImpl {
	if clk == nil {
		clk = clock.NewSystem()
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &AuthServiceImpl{signKey: signKey, accessTTL: accessTTL, skew: skew, lim: lim, clock: clk, log: log}
}

// Login authenticates with rate limiting by (key, ip).
func (s *AuthServiceImpl) Login(ctx context.Context, key common.PublicKey, unixTS int64, sig []byte, ip string) (model.Session, error) {
	subject := key.ToBase58()
	ipHash := limiter.HashIP(ip)

	allowed, _, err := s.lim.Allow(ctx, subject, ipHash)
	if err != nil {
		return model.Session{}, err
	}
	if !allowed {
		return model.Session{}, errs.ErrRateLimited
	}

	now := s.clock.Now()
	signedAt := time.Unix(unixTS, 0)
	fresh := signedAt.After(now.Add(-s.skew)) && signedAt.Before(now.Add(s.skew))
	if _, verr := authority.VerifySignature(key, LoginMessage(key, unixTS), sig); verr != nil || !fresh {
		if blocked, _, ferr := s.lim.Failure(ctx, subject, ipHash); ferr == nil && blocked {
			return model.Session{}, errs.ErrRateLimited
		}
		return model.Session{}, errs.ErrUnauthorized
	}

	_ = s.lim.Success(ctx, subject, ipHash)

	access, exp, err := s.issueAccessToken(subject, now)
	if err != nil {
		return model.Session{}, err
	}
	s.log.Debug("session opened", zap.String("key", subject), zap.Time("expires", exp))
	return model.Session{AccessToken: access, ExpiresAt: exp}, nil
}

// issueAccessToken creates a signed HS256 JWT for the given subject.
func (s *AuthServiceImpl) issueAccessToken(subject string, now time.Time) (string, time.Time, error) {
	exp := now.Add(s.accessTTL)
	claims := jwt.RegisteredClaims{
		Subject:   subject,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(exp),
	}
	tok := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := tok.SignedString(s.signKey)
	return signed, exp, err
}

// Authenticate verifies an HS256 token and returns the subject as a trusted signer.
func (s *AuthServiceImpl) Authenticate(token string) (authority.KeySigner, error) {
	var claims jwt.RegisteredClaims
	parsed, err := jwt.ParseWithClaims(token, &claims, func(t *jwt.Token) (any, error) {
		if t.Method != jwt.SigningMethodHS256 {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return s.signKey, nil
	},
		jwt.WithTimeFunc(s.clock.Now),
		jwt.WithLeeway(30*time.Second),
		jwt.WithExpirationRequired(),
	)
	if err != nil || !parsed.Valid {
		return authority.KeySigner{}, errs.ErrUnauthorized
	}
	key, err := authority.ParseKey(claims.Subject)
	if err != nil {
		return authority.KeySigner{}, errs.ErrUnauthorized
	}
	return authority.Trusted(key), nil
}
