package service_test

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/cobaltleaf/doorman/internal/identity/domain"
	"github.com/cobaltleaf/doorman/internal/identity/service"
	"github.com/cobaltleaf/doorman/internal/identity/store"
	"github.com/cobaltleaf/doorman/pkg/cryptox"
	"github.com/cobaltleaf/doorman/pkg/idx"
	"github.com/stretchr/testify/require"
)

func TestHousekeepingCleanup(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	now := time.Now().UTC()

	ident := h.register(t, "alice@example.com", "correct horse battery")

	// Live and expired challenges.
	_, err := h.challenges.Issue(ctx, "alice@example.com", domain.PurposeLogin)
	require.NoError(t, err)
	require.NoError(t, h.store.Challenges().UpsertChallenge(ctx, domain.Challenge{
		ID:          idx.New().String(),
		Email:       "stale@example.com",
		Purpose:     domain.PurposeLogin,
		CodeHash:    "h",
		MaxAttempts: 3,
		ExpiresAt:   now.Add(-time.Minute),
		CreatedAt:   now.Add(-time.Hour),
		LastUsedAt:  now.Add(-time.Hour),
	}))

	// Live and expired refresh tokens.
	pair, err := h.tokens.Issue(ctx, ident)
	require.NoError(t, err)
	staleOpaque, err := cryptox.GenerateToken(cryptox.TokenSize256)
	require.NoError(t, err)
	require.NoError(t, h.store.RefreshTokens().CreateRefreshToken(ctx, domain.RefreshToken{
		ID:         idx.New().String(),
		OwnerID:    ident.ID,
		TokenHash:  cryptox.FingerprintToken(staleOpaque),
		ExpiresAt:  now.Add(-time.Minute),
		CreatedAt:  now.Add(-time.Hour),
		LastUsedAt: now.Add(-time.Hour),
	}))

	// Fresh and aged-out audit events.
	require.NoError(t, h.store.AuditEvents().AppendAuditEvent(ctx, domain.AuditEvent{
		ID: idx.New().String(), Kind: domain.AuditAuthSuccess,
		Email: "ancient@example.com", Outcome: domain.OutcomeSuccess,
		CreatedAt: now.Add(-60 * 24 * time.Hour),
	}))
	require.NoError(t, h.store.AuditEvents().AppendAuditEvent(ctx, domain.AuditEvent{
		ID: idx.New().String(), Kind: domain.AuditAuthSuccess,
		Email: "recent@example.com", Outcome: domain.OutcomeSuccess,
		CreatedAt: now,
	}))

	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	hk := service.NewHousekeepingService(h.store, log, time.Hour, 30*24*time.Hour)
	hk.Cleanup()

	// Expired rows are gone, live ones untouched.
	_, err = h.store.Challenges().GetChallenge(ctx, "stale@example.com", domain.PurposeLogin)
	require.ErrorIs(t, err, store.ErrNotFound)
	_, err = h.store.Challenges().GetChallenge(ctx, "alice@example.com", domain.PurposeLogin)
	require.NoError(t, err)

	_, err = h.store.RefreshTokens().GetRefreshTokenByHash(ctx, cryptox.FingerprintToken(staleOpaque))
	require.ErrorIs(t, err, store.ErrNotFound)
	_, err = h.store.RefreshTokens().GetRefreshTokenByHash(ctx, cryptox.FingerprintToken(pair.RefreshToken))
	require.NoError(t, err)

	ancient, err := h.store.AuditEvents().ListAuditEventsByEmail(ctx, "ancient@example.com", 10)
	require.NoError(t, err)
	require.Empty(t, ancient)
	recent, err := h.store.AuditEvents().ListAuditEventsByEmail(ctx, "recent@example.com", 10)
	require.NoError(t, err)
	require.Len(t, recent, 1)
}

func TestHousekeepingStartStop(t *testing.T) {
	h := newHarness(t)

	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	hk := service.NewHousekeepingService(h.store, log, 10*time.Millisecond, time.Hour)

	hk.Start()
	time.Sleep(30 * time.Millisecond)
	hk.Stop() // blocks until the worker exits
}
