package service_test

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/cobaltleaf/doorman/internal/identity/domain"
	"github.com/cobaltleaf/doorman/internal/identity/service"
	"github.com/cobaltleaf/doorman/internal/identity/store/drivers/sqlite"
	"github.com/cobaltleaf/doorman/pkg/cryptox"
	"github.com/cobaltleaf/doorman/pkg/jwtx"
	"github.com/stretchr/testify/require"
)

// fakeNotifier captures deliveries so tests can read the issued codes.
type fakeNotifier struct {
	mu    sync.Mutex
	codes map[string]string // email|purpose -> last code
	fail  error
}

func newFakeNotifier() *fakeNotifier {
	return &fakeNotifier{codes: make(map[string]string)}
}

func (f *fakeNotifier) SendCode(_ context.Context, email string, purpose domain.Purpose, code string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.fail != nil {
		return f.fail
	}
	f.codes[email+"|"+string(purpose)] = code
	return nil
}

func (f *fakeNotifier) SendNotice(_ context.Context, _, _, _ string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.fail
}

func (f *fakeNotifier) lastCode(email string, purpose domain.Purpose) string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.codes[email+"|"+string(purpose)]
}

func (f *fakeNotifier) setFailure(err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.fail = err
}

type harness struct {
	store      *sqlite.Store
	notifier   *fakeNotifier
	challenges *service.ChallengeService
	tokens     *service.TokenService
	authz      *service.AuthzService
	accounts   *service.AccountService
	audit      *service.AuditService
	roles      *service.RolesService
	signer     *jwtx.Signer
}

func newHarness(t *testing.T) *harness {
	t.Helper()

	cryptox.SetPepperPath(filepath.Join(t.TempDir(), "pepper"))

	st, err := sqlite.NewStore(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = st.Close() })
	require.NoError(t, st.ApplyMigrations())

	signer, err := jwtx.NewEphemeralSigner("test-key")
	require.NoError(t, err)

	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	notifier := newFakeNotifier()

	challenges := &service.ChallengeService{Store: st, Notifier: notifier}
	tokens := &service.TokenService{
		Signer: signer,
		Store:  st,
		Issuer: "doorman-test",
	}
	authz := &service.AuthzService{
		Verifier: jwtx.NewVerifier(signer.PublicKey(), "doorman-test", 0),
		Store:    st,
	}
	audit := service.NewAuditService(st, log, 64)
	t.Cleanup(audit.Close)

	accounts := &service.AccountService{
		Store:      st,
		Challenges: challenges,
		Tokens:     tokens,
		Audit:      audit,
		Notifier:   notifier,
	}

	return &harness{
		store:      st,
		notifier:   notifier,
		challenges: challenges,
		tokens:     tokens,
		authz:      authz,
		accounts:   accounts,
		audit:      audit,
		roles:      &service.RolesService{Store: st},
		signer:     signer,
	}
}

// register runs a full registration flow and returns the created identity.
func (h *harness) register(t *testing.T, email, password string) domain.Identity {
	t.Helper()
	ctx := context.Background()

	require.NoError(t, h.accounts.BeginRegistration(ctx, email))
	code := h.notifier.lastCode(email, domain.PurposeRegistration)
	require.Len(t, code, 6)

	_, err := h.accounts.CompleteRegistration(ctx, email, code, password, domain.KindUser)
	require.NoError(t, err)

	ident, err := h.store.Identities().GetIdentityByEmail(ctx, email)
	require.NoError(t, err)
	return ident
}

var errSMTPDown = errors.New("smtp unreachable")

// waitAudit polls until the async audit writer has persisted at least n
// events for the email.
func (h *harness) waitAudit(t *testing.T, email string, n int) []domain.AuditEvent {
	t.Helper()
	ctx := context.Background()

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		events, err := h.audit.Recent(ctx, email, 50)
		require.NoError(t, err)
		if len(events) >= n {
			return events
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatalf("audit trail for %s never reached %d events", email, n)
	return nil
}
