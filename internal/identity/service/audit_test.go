package service_test

import (
	"context"
	"io"
	"log/slog"
	"testing"

	"github.com/cobaltleaf/doorman/internal/identity/domain"
	"github.com/cobaltleaf/doorman/internal/identity/service"
	"github.com/cobaltleaf/doorman/internal/identity/store/drivers/sqlite"
	"github.com/stretchr/testify/require"
)

func TestAuditRecordAndDrain(t *testing.T) {
	st, err := sqlite.NewStore(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = st.Close() })
	require.NoError(t, st.ApplyMigrations())

	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	audit := service.NewAuditService(st, log, 8)

	for range 5 {
		audit.Record(context.Background(), domain.AuditEvent{
			Kind:  domain.AuditAuthSuccess,
			Email: "alice@example.com",
		})
	}

	// Close drains the queue before returning, so everything queued so far
	// is durable afterwards.
	audit.Close()

	events, err := st.AuditEvents().ListAuditEventsByEmail(context.Background(), "alice@example.com", 10)
	require.NoError(t, err)
	require.Len(t, events, 5)

	for _, e := range events {
		require.NotEmpty(t, e.ID)
		require.Equal(t, domain.OutcomeSuccess, e.Outcome)
		require.False(t, e.CreatedAt.IsZero())
	}
}

func TestAuditRecordAfterClose(t *testing.T) {
	st, err := sqlite.NewStore(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = st.Close() })
	require.NoError(t, st.ApplyMigrations())

	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	audit := service.NewAuditService(st, log, 8)
	audit.Close()

	// Recording after close is a silent no-op, never a panic.
	audit.Record(context.Background(), domain.AuditEvent{Kind: domain.AuditAuthSuccess})
	audit.Close()
}

func TestAuditNilReceiver(t *testing.T) {
	var audit *service.AuditService
	audit.Record(context.Background(), domain.AuditEvent{Kind: domain.AuditAuthSuccess})
	audit.Close()
	require.Zero(t, audit.Dropped())
}
