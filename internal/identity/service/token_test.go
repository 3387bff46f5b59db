package service_test

import (
	"context"
	"testing"
	"time"

	"github.com/cobaltleaf/doorman/internal/identity/domain"
	"github.com/cobaltleaf/doorman/internal/identity/service"
	"github.com/cobaltleaf/doorman/pkg/cryptox"
	"github.com/cobaltleaf/doorman/pkg/idx"
	"github.com/stretchr/testify/require"
)

func TestTokenIssue(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	ident := h.register(t, "alice@example.com", "correct horse battery")

	pair, err := h.tokens.Issue(ctx, ident)
	require.NoError(t, err)
	require.NotEmpty(t, pair.AccessToken)
	require.NotEmpty(t, pair.RefreshToken)
	require.Equal(t, "Bearer", pair.TokenType)

	// The access token names the identity.
	got, err := h.authz.Authenticate(ctx, pair.AccessToken)
	require.NoError(t, err)
	require.Equal(t, ident.ID, got.ID)

	// The refresh token is persisted by fingerprint, never raw.
	stored, err := h.store.RefreshTokens().GetRefreshTokenByHash(ctx, cryptox.FingerprintToken(pair.RefreshToken))
	require.NoError(t, err)
	require.Equal(t, ident.ID, stored.OwnerID)
	require.NotEqual(t, pair.RefreshToken, stored.TokenHash)
}

func TestTokenIssueMultipleSessions(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	ident := h.register(t, "alice@example.com", "correct horse battery")

	first, err := h.tokens.Issue(ctx, ident)
	require.NoError(t, err)
	second, err := h.tokens.Issue(ctx, ident)
	require.NoError(t, err)
	require.NotEqual(t, first.RefreshToken, second.RefreshToken)

	// Both sessions rotate independently.
	_, err = h.tokens.Rotate(ctx, first.RefreshToken)
	require.NoError(t, err)
	_, err = h.tokens.Rotate(ctx, second.RefreshToken)
	require.NoError(t, err)
}

func TestTokenRotate(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	ident := h.register(t, "alice@example.com", "correct horse battery")

	pair, err := h.tokens.Issue(ctx, ident)
	require.NoError(t, err)

	access, err := h.tokens.Rotate(ctx, pair.RefreshToken)
	require.NoError(t, err)
	require.NotEmpty(t, access)

	got, err := h.authz.Authenticate(ctx, access)
	require.NoError(t, err)
	require.Equal(t, ident.ID, got.ID)

	// The refresh token survives rotation and keeps working.
	_, err = h.tokens.Rotate(ctx, pair.RefreshToken)
	require.NoError(t, err)

	stored, err := h.store.RefreshTokens().GetRefreshTokenByHash(ctx, cryptox.FingerprintToken(pair.RefreshToken))
	require.NoError(t, err)
	require.WithinDuration(t, time.Now(), stored.LastUsedAt, 5*time.Second)
}

func TestTokenRotateFailureKinds(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	ident := h.register(t, "alice@example.com", "correct horse battery")

	t.Run("unknown token", func(t *testing.T) {
		opaque, err := cryptox.GenerateToken(cryptox.TokenSize256)
		require.NoError(t, err)

		_, err = h.tokens.Rotate(ctx, opaque)
		require.ErrorIs(t, err, service.ErrRefreshNotFound)
	})

	t.Run("empty token", func(t *testing.T) {
		_, err := h.tokens.Rotate(ctx, "")
		require.ErrorIs(t, err, service.ErrRefreshNotFound)
	})

	t.Run("revoked token", func(t *testing.T) {
		pair, err := h.tokens.Issue(ctx, ident)
		require.NoError(t, err)
		require.NoError(t, h.tokens.RevokeAll(ctx, ident.ID))

		_, err = h.tokens.Rotate(ctx, pair.RefreshToken)
		require.ErrorIs(t, err, service.ErrRefreshRevoked)
	})

	t.Run("expired token", func(t *testing.T) {
		opaque, err := cryptox.GenerateToken(cryptox.TokenSize256)
		require.NoError(t, err)
		now := time.Now().UTC()
		require.NoError(t, h.store.RefreshTokens().CreateRefreshToken(ctx, domain.RefreshToken{
			ID:         idx.New().String(),
			OwnerID:    ident.ID,
			TokenHash:  cryptox.FingerprintToken(opaque),
			ExpiresAt:  now.Add(-time.Minute),
			CreatedAt:  now.Add(-time.Hour),
			LastUsedAt: now.Add(-time.Hour),
		}))

		_, err = h.tokens.Rotate(ctx, opaque)
		require.ErrorIs(t, err, service.ErrRefreshExpired)
	})

	t.Run("revocation outranks expiry", func(t *testing.T) {
		opaque, err := cryptox.GenerateToken(cryptox.TokenSize256)
		require.NoError(t, err)
		now := time.Now().UTC()
		require.NoError(t, h.store.RefreshTokens().CreateRefreshToken(ctx, domain.RefreshToken{
			ID:         idx.New().String(),
			OwnerID:    ident.ID,
			TokenHash:  cryptox.FingerprintToken(opaque),
			Revoked:    true,
			ExpiresAt:  now.Add(-time.Minute),
			CreatedAt:  now.Add(-time.Hour),
			LastUsedAt: now.Add(-time.Hour),
		}))

		_, err = h.tokens.Rotate(ctx, opaque)
		require.ErrorIs(t, err, service.ErrRefreshRevoked)
	})

	t.Run("deactivated owner", func(t *testing.T) {
		other := h.register(t, "bob@example.com", "another passphrase")
		pair, err := h.tokens.Issue(ctx, other)
		require.NoError(t, err)

		require.NoError(t, h.store.Identities().SetActive(ctx, other.ID, false))

		_, err = h.tokens.Rotate(ctx, pair.RefreshToken)
		require.ErrorIs(t, err, service.ErrInactiveIdentity)
	})
}

func TestTokenRevokeAll(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	ident := h.register(t, "alice@example.com", "correct horse battery")

	first, err := h.tokens.Issue(ctx, ident)
	require.NoError(t, err)
	second, err := h.tokens.Issue(ctx, ident)
	require.NoError(t, err)

	require.NoError(t, h.tokens.RevokeAll(ctx, ident.ID))

	for _, pair := range []*domain.TokenPair{first, second} {
		_, err := h.tokens.Rotate(ctx, pair.RefreshToken)
		require.ErrorIs(t, err, service.ErrRefreshRevoked)
	}

	// Idempotent, including for owners with nothing to revoke.
	require.NoError(t, h.tokens.RevokeAll(ctx, ident.ID))
	require.NoError(t, h.tokens.RevokeAll(ctx, "no-such-owner"))
}
