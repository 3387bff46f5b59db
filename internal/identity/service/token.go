package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/cobaltleaf/doorman/internal/identity/domain"
	"github.com/cobaltleaf/doorman/internal/identity/store"
	"github.com/cobaltleaf/doorman/pkg/cryptox"
	"github.com/cobaltleaf/doorman/pkg/idx"
	"github.com/cobaltleaf/doorman/pkg/jwtx"
)

// TokenService issues access/refresh token pairs and rotates access tokens
// off stored refresh tokens. Access tokens are self-contained and never
// stored; refresh tokens are opaque and persisted by fingerprint only.
type TokenService struct {
	Signer     *jwtx.Signer
	Store      store.Store
	Issuer     string
	AccessTTL  time.Duration
	RefreshTTL time.Duration
}

func (s *TokenService) accessTTL() time.Duration {
	if s.AccessTTL > 0 {
		return s.AccessTTL
	}
	return jwtx.DefaultAccessTokenTTL
}

func (s *TokenService) refreshTTL() time.Duration {
	if s.RefreshTTL > 0 {
		return s.RefreshTTL
	}
	return jwtx.DefaultRefreshTokenTTL
}

// AccessTokenTTL reports the effective access-token lifetime.
func (s *TokenService) AccessTokenTTL() time.Duration {
	return s.accessTTL()
}

// Issue mints a token pair for an authenticated identity. An identity may
// hold several live refresh tokens at once, one per device or session.
func (s *TokenService) Issue(ctx context.Context, ident domain.Identity) (*domain.TokenPair, error) {
	now := time.Now().UTC()

	accessToken, err := s.signAccess(ident, now)
	if err != nil {
		return nil, fmt.Errorf("sign access token: %w", err)
	}

	refreshOpaque, err := cryptox.GenerateToken(cryptox.TokenSize256)
	if err != nil {
		return nil, fmt.Errorf("generate refresh token: %w", err)
	}

	refresh := domain.RefreshToken{
		ID:         idx.New().String(),
		OwnerID:    ident.ID,
		TokenHash:  cryptox.FingerprintToken(refreshOpaque),
		ExpiresAt:  now.Add(s.refreshTTL()),
		CreatedAt:  now,
		LastUsedAt: now,
	}

	if err := s.Store.RefreshTokens().CreateRefreshToken(ctx, refresh); err != nil {
		return nil, fmt.Errorf("store refresh token: %w", err)
	}

	return &domain.TokenPair{
		AccessToken:  accessToken,
		RefreshToken: refreshOpaque,
		TokenType:    "Bearer",
		ExpiresIn:    s.accessTTL(),
	}, nil
}

// Rotate exchanges a live refresh token for a fresh access token. The
// refresh token itself is deliberately not re-issued: it stays valid until
// expiry or revocation, so a device keeps a single long-lived credential.
//
// Failure kinds are reported precisely (not found vs revoked vs expired) so
// clients and the audit trail can tell a stale token from a revoked one.
func (s *TokenService) Rotate(ctx context.Context, refreshOpaque string) (string, error) {
	now := time.Now().UTC()

	if refreshOpaque == "" {
		return "", ErrRefreshNotFound
	}

	// 1. Look up the persisted row by token fingerprint.
	fp := cryptox.FingerprintToken(refreshOpaque)
	refresh, err := s.Store.RefreshTokens().GetRefreshTokenByHash(ctx, fp)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return "", ErrRefreshNotFound
		}
		return "", fmt.Errorf("load refresh token: %w", err)
	}

	// 2. Revocation outranks expiry.
	if refresh.Revoked {
		return "", ErrRefreshRevoked
	}
	if now.After(refresh.ExpiresAt) {
		return "", ErrRefreshExpired
	}

	// 3. Re-check the owner against the live directory. A refresh token
	// must die with its owner's account.
	ident, err := s.Store.Identities().GetIdentityByID(ctx, refresh.OwnerID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return "", ErrInactiveIdentity
		}
		return "", fmt.Errorf("load owner: %w", err)
	}
	if !ident.Active {
		return "", ErrInactiveIdentity
	}

	// 4. Mint the new access token and record the use.
	accessToken, err := s.signAccess(ident, now)
	if err != nil {
		return "", fmt.Errorf("sign access token: %w", err)
	}

	if err := s.Store.RefreshTokens().TouchRefreshToken(ctx, refresh.ID, now); err != nil {
		return "", fmt.Errorf("touch refresh token: %w", err)
	}

	return accessToken, nil
}

// RevokeAll revokes every live refresh token the owner holds. Idempotent:
// revoking an already-revoked set is a no-op, and revocation never
// un-happens.
func (s *TokenService) RevokeAll(ctx context.Context, ownerID string) error {
	if err := s.Store.RefreshTokens().RevokeAllOwnerRefreshTokens(ctx, ownerID); err != nil {
		return fmt.Errorf("revoke refresh tokens: %w", err)
	}
	return nil
}

func (s *TokenService) signAccess(ident domain.Identity, now time.Time) (string, error) {
	claims := jwtx.NewAccessClaims(
		ident.ID,           // subject
		ident.Email,        // email
		ident.Role,         // role
		string(ident.Kind), // kind
		s.Issuer,           // issuer
		s.accessTTL(),      // token lifetime
		now,                // current time
	)
	return s.Signer.Sign(claims)
}
