package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/cobaltleaf/doorman/internal/identity/domain"
	"github.com/cobaltleaf/doorman/internal/identity/notify"
	"github.com/cobaltleaf/doorman/internal/identity/store"
	"github.com/cobaltleaf/doorman/pkg/cryptox"
	"github.com/cobaltleaf/doorman/pkg/idx"
	"github.com/cobaltleaf/doorman/pkg/slogx"
)

// DefaultRole is assigned to self-registered identities.
const DefaultRole = "user"

// AccountService orchestrates registration, login, and password recovery on
// top of the challenge and token engines. It owns the account-level audit
// trail; the engines below it stay audit-free.
type AccountService struct {
	Store      store.Store
	Challenges *ChallengeService
	Tokens     *TokenService
	Audit      *AuditService
	Notifier   notify.Notifier
}

// BeginRegistration starts a registration flow: the email must be free, and
// a registration code is issued and delivered.
func (s *AccountService) BeginRegistration(ctx context.Context, email string) error {
	email = normalizeEmail(email)

	_, err := s.Store.Identities().GetIdentityByEmail(ctx, email)
	if err == nil {
		s.Audit.Record(ctx, domain.AuditEvent{
			Kind:    domain.AuditChallengeRejected,
			Email:   email,
			Outcome: domain.OutcomeFailure,
			Message: "registration attempted for existing email",
		})
		return ErrIdentityExists
	}
	if !errors.Is(err, store.ErrNotFound) {
		return fmt.Errorf("check email: %w", err)
	}

	if _, err := s.Challenges.Issue(ctx, email, domain.PurposeRegistration); err != nil {
		return err
	}

	s.Audit.Record(ctx, domain.AuditEvent{
		Kind:    domain.AuditChallengeIssued,
		Email:   email,
		Message: "registration code issued",
	})
	return nil
}

// CompleteRegistration validates the registration code and creates the
// identity with a hashed password, then issues a token pair. Consuming the
// code and creating the identity happen in one transaction: if the email was
// taken in the meantime the code stays unspent, and the unique email
// constraint resolves the creation race.
func (s *AccountService) CompleteRegistration(ctx context.Context, email, code, password string, kind domain.Kind) (*domain.TokenPair, error) {
	l := slogx.FromContext(ctx)
	email = normalizeEmail(email)

	if !kind.Valid() {
		kind = domain.KindUser
	}

	challenge, err := s.Challenges.check(ctx, email, domain.PurposeRegistration, code)
	if err != nil {
		s.Audit.Record(ctx, domain.AuditEvent{
			Kind:    domain.AuditChallengeRejected,
			Email:   email,
			Outcome: domain.OutcomeFailure,
			Message: err.Error(),
		})
		return nil, err
	}

	hash, err := cryptox.HashPassword(password)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	now := time.Now().UTC()
	role := DefaultRole
	if kind == domain.KindTenant {
		role = "tenant"
	}
	ident := domain.Identity{
		ID:           idx.New().String(),
		Email:        email,
		Kind:         kind,
		Role:         role,
		Active:       true,
		PasswordHash: hash,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	err = s.Store.WithTx(ctx, func(tx store.Tx) error {
		if err := s.Challenges.consume(ctx, tx, challenge.ID); err != nil {
			return err
		}
		return tx.Identities().CreateIdentity(ctx, ident)
	})
	if err != nil {
		if errors.Is(err, store.ErrAlreadyExists) {
			return nil, ErrIdentityExists
		}
		if errors.Is(err, ErrChallengeNotFound) {
			s.Audit.Record(ctx, domain.AuditEvent{
				Kind:    domain.AuditChallengeRejected,
				Email:   email,
				Outcome: domain.OutcomeFailure,
				Message: err.Error(),
			})
			return nil, err
		}
		return nil, fmt.Errorf("create identity: %w", err)
	}

	s.Audit.Record(ctx, domain.AuditEvent{
		Kind:       domain.AuditIdentityCreated,
		IdentityID: ident.ID,
		Email:      email,
		Message:    "identity registered",
		Metadata:   map[string]string{"kind": string(kind), "role": role},
	})

	pair, err := s.Tokens.Issue(ctx, ident)
	if err != nil {
		return nil, err
	}
	s.Audit.Record(ctx, domain.AuditEvent{
		Kind:       domain.AuditTokenIssued,
		IdentityID: ident.ID,
		Email:      email,
	})

	// Welcome notice is best-effort; the account exists either way.
	if err := s.Notifier.SendNotice(ctx, email, "Welcome",
		"Your account has been created."); err != nil {
		l.Warn("welcome notice delivery failed", "email", email, "err", err)
	}

	return pair, nil
}

// Login verifies the password for an active identity and issues a token
// pair. All failure shapes collapse to ErrInvalidCredentials so the response
// leaks nothing about which part was wrong; the audit trail keeps the
// precise reason.
func (s *AccountService) Login(ctx context.Context, email, password string) (*domain.TokenPair, error) {
	email = normalizeEmail(email)

	fail := func(reason string) (*domain.TokenPair, error) {
		s.Audit.Record(ctx, domain.AuditEvent{
			Kind:    domain.AuditAuthFailure,
			Email:   email,
			Outcome: domain.OutcomeFailure,
			Message: reason,
		})
		return nil, ErrInvalidCredentials
	}

	ident, err := s.Store.Identities().GetIdentityByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return fail("unknown email")
		}
		return nil, fmt.Errorf("load identity: %w", err)
	}

	if !ident.Active {
		return fail("inactive identity")
	}

	if err := cryptox.VerifyPassword(password, ident.PasswordHash); err != nil {
		if errors.Is(err, cryptox.ErrPasswordMismatch) {
			return fail("password mismatch")
		}
		return nil, fmt.Errorf("verify password: %w", err)
	}

	now := time.Now().UTC()
	if err := s.Store.Identities().UpdateLastLogin(ctx, ident.ID, now); err != nil {
		return nil, fmt.Errorf("record login: %w", err)
	}

	pair, err := s.Tokens.Issue(ctx, ident)
	if err != nil {
		return nil, err
	}

	s.Audit.Record(ctx, domain.AuditEvent{
		Kind:       domain.AuditAuthSuccess,
		IdentityID: ident.ID,
		Email:      email,
	})
	return pair, nil
}

// ResendCode re-issues the challenge for (email, purpose). The previous code
// is replaced and the attempt budget resets.
func (s *AccountService) ResendCode(ctx context.Context, email string, purpose domain.Purpose) error {
	email = normalizeEmail(email)

	if _, err := s.Challenges.Issue(ctx, email, purpose); err != nil {
		return err
	}

	s.Audit.Record(ctx, domain.AuditEvent{
		Kind:     domain.AuditChallengeIssued,
		Email:    email,
		Message:  "code re-issued",
		Metadata: map[string]string{"purpose": string(purpose)},
	})
	return nil
}

// BeginPasswordReset issues a password-reset code. An unknown email is
// reported to the caller as success to avoid account enumeration; the audit
// trail records the real outcome.
func (s *AccountService) BeginPasswordReset(ctx context.Context, email string) error {
	email = normalizeEmail(email)

	ident, err := s.Store.Identities().GetIdentityByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			s.Audit.Record(ctx, domain.AuditEvent{
				Kind:    domain.AuditChallengeRejected,
				Email:   email,
				Outcome: domain.OutcomeFailure,
				Message: "password reset for unknown email",
			})
			return nil
		}
		return fmt.Errorf("load identity: %w", err)
	}

	if _, err := s.Challenges.Issue(ctx, email, domain.PurposePasswordReset); err != nil {
		return err
	}

	s.Audit.Record(ctx, domain.AuditEvent{
		Kind:       domain.AuditChallengeIssued,
		IdentityID: ident.ID,
		Email:      email,
		Message:    "password reset code issued",
	})
	return nil
}

// CompletePasswordReset validates the reset code, sets the new password, and
// revokes every refresh token the identity holds. Existing sessions must not
// survive a password change.
func (s *AccountService) CompletePasswordReset(ctx context.Context, email, code, newPassword string) error {
	email = normalizeEmail(email)

	ident, err := s.Store.Identities().GetIdentityByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return ErrChallengeNotFound
		}
		return fmt.Errorf("load identity: %w", err)
	}

	if err := s.Challenges.Validate(ctx, email, domain.PurposePasswordReset, code); err != nil {
		s.Audit.Record(ctx, domain.AuditEvent{
			Kind:       domain.AuditChallengeRejected,
			IdentityID: ident.ID,
			Email:      email,
			Outcome:    domain.OutcomeFailure,
			Message:    err.Error(),
		})
		return err
	}

	hash, err := cryptox.HashPassword(newPassword)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}

	if err := s.Store.Identities().UpdatePasswordHash(ctx, ident.ID, hash); err != nil {
		return fmt.Errorf("set password: %w", err)
	}

	if err := s.Tokens.RevokeAll(ctx, ident.ID); err != nil {
		return err
	}

	s.Audit.Record(ctx, domain.AuditEvent{
		Kind:       domain.AuditPasswordReset,
		IdentityID: ident.ID,
		Email:      email,
		Message:    "password reset, all sessions revoked",
	})
	return nil
}

// Logout revokes every refresh token the identity holds. Already-issued
// access tokens ride out their short lifetime.
func (s *AccountService) Logout(ctx context.Context, identityID string) error {
	if err := s.Tokens.RevokeAll(ctx, identityID); err != nil {
		return err
	}

	s.Audit.Record(ctx, domain.AuditEvent{
		Kind:       domain.AuditTokensRevoked,
		IdentityID: identityID,
		Message:    "logout",
	})
	return nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
