package service_test

import (
	"context"
	"testing"
	"time"

	"github.com/cobaltleaf/doorman/internal/identity/domain"
	"github.com/cobaltleaf/doorman/internal/identity/service"
	"github.com/cobaltleaf/doorman/pkg/idx"
	"github.com/stretchr/testify/require"
)

func TestRegistrationFlow(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	require.NoError(t, h.accounts.BeginRegistration(ctx, "Alice@Example.com"))
	code := h.notifier.lastCode("alice@example.com", domain.PurposeRegistration)
	require.Len(t, code, 6)

	pair, err := h.accounts.CompleteRegistration(ctx, "alice@example.com", code, "correct horse battery", domain.KindUser)
	require.NoError(t, err)
	require.NotEmpty(t, pair.AccessToken)
	require.NotEmpty(t, pair.RefreshToken)

	ident, err := h.store.Identities().GetIdentityByEmail(ctx, "alice@example.com")
	require.NoError(t, err)
	require.Equal(t, "user", ident.Role)
	require.True(t, ident.Active)
	require.NotEqual(t, "correct horse battery", ident.PasswordHash)
}

func TestBeginRegistrationExistingEmail(t *testing.T) {
	h := newHarness(t)
	h.register(t, "alice@example.com", "correct horse battery")

	err := h.accounts.BeginRegistration(context.Background(), "alice@example.com")
	require.ErrorIs(t, err, service.ErrIdentityExists)
}

func TestCompleteRegistrationBadCode(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	require.NoError(t, h.accounts.BeginRegistration(ctx, "alice@example.com"))
	code := h.notifier.lastCode("alice@example.com", domain.PurposeRegistration)
	wrong := "000000"
	if code == wrong {
		wrong = "000001"
	}

	_, err := h.accounts.CompleteRegistration(ctx, "alice@example.com", wrong, "pw", domain.KindUser)
	require.ErrorIs(t, err, service.ErrCodeMismatch)

	// No identity was created.
	_, err = h.store.Identities().GetIdentityByEmail(ctx, "alice@example.com")
	require.Error(t, err)
}

func TestTenantRegistration(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	require.NoError(t, h.accounts.BeginRegistration(ctx, "acme@example.com"))
	code := h.notifier.lastCode("acme@example.com", domain.PurposeRegistration)

	_, err := h.accounts.CompleteRegistration(ctx, "acme@example.com", code, "tenant passphrase", domain.KindTenant)
	require.NoError(t, err)

	ident, err := h.store.Identities().GetIdentityByEmail(ctx, "acme@example.com")
	require.NoError(t, err)
	require.Equal(t, domain.KindTenant, ident.Kind)
	require.Equal(t, "tenant", ident.Role)

	perms, err := h.authz.ResolvePermissions(ctx, ident)
	require.NoError(t, err)
	require.Empty(t, perms)
}

func TestCompleteRegistrationConflictKeepsCode(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	require.NoError(t, h.accounts.BeginRegistration(ctx, "alice@example.com"))
	code := h.notifier.lastCode("alice@example.com", domain.PurposeRegistration)

	// The email gets taken between code issuance and completion.
	now := time.Now().UTC()
	taken := domain.Identity{
		ID:           idx.New().String(),
		Email:        "alice@example.com",
		Kind:         domain.KindUser,
		Role:         "user",
		Active:       true,
		PasswordHash: "placeholder",
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	require.NoError(t, h.store.Identities().CreateIdentity(ctx, taken))

	_, err := h.accounts.CompleteRegistration(ctx, "alice@example.com", code, "pw", domain.KindUser)
	require.ErrorIs(t, err, service.ErrIdentityExists)

	// Consume and create roll back as a unit: the code is still unspent.
	challenge, err := h.store.Challenges().GetChallenge(ctx, "alice@example.com", domain.PurposeRegistration)
	require.NoError(t, err)
	require.NotEmpty(t, challenge.ID)
}

func TestLogin(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	ident := h.register(t, "alice@example.com", "correct horse battery")

	t.Run("success records last login", func(t *testing.T) {
		pair, err := h.accounts.Login(ctx, "ALICE@example.com", "correct horse battery")
		require.NoError(t, err)
		require.NotEmpty(t, pair.AccessToken)

		got, err := h.store.Identities().GetIdentityByID(ctx, ident.ID)
		require.NoError(t, err)
		require.NotNil(t, got.LastLoginAt)
	})

	t.Run("wrong password is generic", func(t *testing.T) {
		_, err := h.accounts.Login(ctx, "alice@example.com", "wrong")
		require.ErrorIs(t, err, service.ErrInvalidCredentials)
	})

	t.Run("unknown email is the same generic failure", func(t *testing.T) {
		_, err := h.accounts.Login(ctx, "nobody@example.com", "whatever")
		require.ErrorIs(t, err, service.ErrInvalidCredentials)
	})

	t.Run("inactive identity is the same generic failure", func(t *testing.T) {
		require.NoError(t, h.store.Identities().SetActive(ctx, ident.ID, false))
		defer func() {
			require.NoError(t, h.store.Identities().SetActive(ctx, ident.ID, true))
		}()

		_, err := h.accounts.Login(ctx, "alice@example.com", "correct horse battery")
		require.ErrorIs(t, err, service.ErrInvalidCredentials)
	})

	t.Run("audit keeps the precise failure kinds", func(t *testing.T) {
		events := h.waitAudit(t, "alice@example.com", 6)

		var reasons []string
		for _, e := range events {
			if e.Kind == domain.AuditAuthFailure {
				reasons = append(reasons, e.Message)
			}
		}
		require.Contains(t, reasons, "password mismatch")
		require.Contains(t, reasons, "inactive identity")
	})
}

func TestPasswordResetFlow(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	ident := h.register(t, "alice@example.com", "old passphrase")

	// An open session that must die with the reset.
	pair, err := h.tokens.Issue(ctx, ident)
	require.NoError(t, err)

	require.NoError(t, h.accounts.BeginPasswordReset(ctx, "alice@example.com"))
	code := h.notifier.lastCode("alice@example.com", domain.PurposePasswordReset)
	require.Len(t, code, 6)

	require.NoError(t, h.accounts.CompletePasswordReset(ctx, "alice@example.com", code, "new passphrase"))

	// Old password dead, new one works.
	_, err = h.accounts.Login(ctx, "alice@example.com", "old passphrase")
	require.ErrorIs(t, err, service.ErrInvalidCredentials)
	_, err = h.accounts.Login(ctx, "alice@example.com", "new passphrase")
	require.NoError(t, err)

	// Pre-reset refresh tokens were revoked.
	_, err = h.tokens.Rotate(ctx, pair.RefreshToken)
	require.ErrorIs(t, err, service.ErrRefreshRevoked)
}

func TestBeginPasswordResetUnknownEmail(t *testing.T) {
	h := newHarness(t)

	// Reported as success so responses don't enumerate accounts.
	require.NoError(t, h.accounts.BeginPasswordReset(context.Background(), "nobody@example.com"))
	require.Empty(t, h.notifier.lastCode("nobody@example.com", domain.PurposePasswordReset))
}

func TestResendCode(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	require.NoError(t, h.accounts.BeginRegistration(ctx, "alice@example.com"))
	first := h.notifier.lastCode("alice@example.com", domain.PurposeRegistration)

	require.NoError(t, h.accounts.ResendCode(ctx, "alice@example.com", domain.PurposeRegistration))
	second := h.notifier.lastCode("alice@example.com", domain.PurposeRegistration)

	// The resent code is the live one.
	_, err := h.accounts.CompleteRegistration(ctx, "alice@example.com", second, "pw", domain.KindUser)
	require.NoError(t, err)
	_ = first
}

func TestLogout(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	ident := h.register(t, "alice@example.com", "correct horse battery")

	pair, err := h.tokens.Issue(ctx, ident)
	require.NoError(t, err)

	require.NoError(t, h.accounts.Logout(ctx, ident.ID))

	_, err = h.tokens.Rotate(ctx, pair.RefreshToken)
	require.ErrorIs(t, err, service.ErrRefreshRevoked)

	// Logging out twice is fine.
	require.NoError(t, h.accounts.Logout(ctx, ident.ID))
}
