package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/cobaltleaf/doorman/internal/identity/domain"
	"github.com/cobaltleaf/doorman/internal/identity/notify"
	"github.com/cobaltleaf/doorman/internal/identity/store"
	"github.com/cobaltleaf/doorman/pkg/cryptox"
	"github.com/cobaltleaf/doorman/pkg/idx"
	"github.com/cobaltleaf/doorman/pkg/slogx"
)

const (
	// DefaultChallengeTTL is how long an issued code stays valid.
	DefaultChallengeTTL = 15 * time.Minute

	// DefaultMaxAttempts is the guess budget per challenge. Three tries
	// against a six-digit space keeps the brute-force odds negligible.
	DefaultMaxAttempts = 3

	// DefaultCodeLength is the number of digits in an issued code.
	DefaultCodeLength = 6
)

// IssuedChallenge is what Issue hands back to callers. The plaintext code is
// not included: it goes straight to the principal via the notifier and is
// never persisted or exposed to orchestration.
type IssuedChallenge struct {
	ExpiresAt time.Time
}

// ChallengeService issues and validates one-time numeric codes. Each
// (email, purpose) pair holds at most one live challenge; issuing again
// replaces the previous code and resets the attempt budget.
type ChallengeService struct {
	Store       store.Store
	Notifier    notify.Notifier
	TTL         time.Duration
	MaxAttempts int
	CodeLength  int
}

func (s *ChallengeService) ttl() time.Duration {
	if s.TTL > 0 {
		return s.TTL
	}
	return DefaultChallengeTTL
}

func (s *ChallengeService) maxAttempts() int {
	if s.MaxAttempts > 0 {
		return s.MaxAttempts
	}
	return DefaultMaxAttempts
}

func (s *ChallengeService) codeLength() int {
	if s.CodeLength > 0 {
		return s.CodeLength
	}
	return DefaultCodeLength
}

// Issue creates a fresh challenge for (email, purpose) and dispatches the
// code through the notifier. Any prior challenge for the pair is replaced
// atomically. If delivery fails the stored challenge survives, so a resend
// can follow without reissuing.
func (s *ChallengeService) Issue(ctx context.Context, email string, purpose domain.Purpose) (IssuedChallenge, error) {
	l := slogx.FromContext(ctx)

	if !purpose.Valid() {
		return IssuedChallenge{}, ErrInvalidPurpose
	}

	code, err := cryptox.GenerateNumericCode(s.codeLength())
	if err != nil {
		return IssuedChallenge{}, fmt.Errorf("generate code: %w", err)
	}

	now := time.Now().UTC()
	challenge := domain.Challenge{
		ID:          idx.New().String(),
		Email:       email,
		Purpose:     purpose,
		CodeHash:    cryptox.FingerprintToken(code),
		MaxAttempts: s.maxAttempts(),
		ExpiresAt:   now.Add(s.ttl()),
		CreatedAt:   now,
		LastUsedAt:  now,
	}

	if err := s.Store.Challenges().UpsertChallenge(ctx, challenge); err != nil {
		return IssuedChallenge{}, fmt.Errorf("store challenge: %w", err)
	}

	if err := s.Notifier.SendCode(ctx, email, purpose, code); err != nil {
		l.Warn("challenge code delivery failed",
			"email", email,
			"purpose", string(purpose),
			"err", err,
		)
		return IssuedChallenge{}, fmt.Errorf("%w: %w", ErrDeliveryFailed, err)
	}

	return IssuedChallenge{ExpiresAt: challenge.ExpiresAt}, nil
}

// Validate checks a submitted code against the live challenge for
// (email, purpose). Outcomes, in priority order:
//
//  1. no live challenge            -> ErrChallengeNotFound
//  2. wrong code                   -> ErrCodeMismatch, or ErrTooManyAttempts
//     once the budget is exhausted (the challenge is then deleted)
//  3. correct code past expiry     -> ErrChallengeExpired
//  4. correct code, budget spent   -> ErrTooManyAttempts
//  5. correct code in window       -> consumed, nil
//
// A successful validation consumes the challenge; of two concurrent correct
// submissions exactly one wins.
func (s *ChallengeService) Validate(ctx context.Context, email string, purpose domain.Purpose, code string) error {
	challenge, err := s.check(ctx, email, purpose, code)
	if err != nil {
		return err
	}
	return s.consume(ctx, s.Store, challenge.ID)
}

// check runs the validation ladder but leaves a correct in-window challenge
// in place, so orchestration can consume it inside a wider transaction
// together with its follow-up write. Attempt accounting for wrong codes
// commits immediately and is never rolled back with the caller's work.
func (s *ChallengeService) check(ctx context.Context, email string, purpose domain.Purpose, code string) (domain.Challenge, error) {
	now := time.Now().UTC()

	challenge, err := s.Store.Challenges().GetChallenge(ctx, email, purpose)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return domain.Challenge{}, ErrChallengeNotFound
		}
		return domain.Challenge{}, fmt.Errorf("load challenge: %w", err)
	}

	if cryptox.FingerprintToken(code) != challenge.CodeHash {
		attempts, err := s.Store.Challenges().IncrementChallengeAttempts(ctx, challenge.ID)
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				return domain.Challenge{}, ErrChallengeNotFound
			}
			return domain.Challenge{}, fmt.Errorf("record attempt: %w", err)
		}
		if attempts >= challenge.MaxAttempts {
			// Budget spent: kill the challenge so further guesses are
			// pointless. A consume race here just means someone else
			// already removed it.
			if err := s.Store.Challenges().ConsumeChallenge(ctx, challenge.ID); err != nil && !errors.Is(err, store.ErrNotFound) {
				return domain.Challenge{}, fmt.Errorf("discard exhausted challenge: %w", err)
			}
			return domain.Challenge{}, ErrTooManyAttempts
		}
		return domain.Challenge{}, ErrCodeMismatch
	}

	// Expiry is judged against the stored timestamp, never sweep timing.
	// The record stays for the sweeper so a late retry still reports
	// expiry rather than a confusing not-found.
	if challenge.Expired(now) {
		return domain.Challenge{}, ErrChallengeExpired
	}

	if challenge.Exhausted() {
		if err := s.Store.Challenges().ConsumeChallenge(ctx, challenge.ID); err != nil && !errors.Is(err, store.ErrNotFound) {
			return domain.Challenge{}, fmt.Errorf("discard exhausted challenge: %w", err)
		}
		return domain.Challenge{}, ErrTooManyAttempts
	}

	return challenge, nil
}

// consume deletes a checked challenge through st, which may be a transaction.
func (s *ChallengeService) consume(ctx context.Context, st store.Store, id string) error {
	if err := st.Challenges().ConsumeChallenge(ctx, id); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			// Another request consumed it between check and delete.
			return ErrChallengeNotFound
		}
		return fmt.Errorf("consume challenge: %w", err)
	}
	return nil
}
