package sqlite

import (
	"context"
	"encoding/json"
	"time"

	"github.com/cobaltleaf/doorman/internal/identity/domain"
)

type auditEventsRepo struct {
	db dbtx
}

const appendAuditEventSQL = `
INSERT INTO audit_events (id, kind, identity_id, email, outcome, message, metadata, created_at)
VALUES (?, ?, ?, ?, ?, ?, ?, ?)`

func (r *auditEventsRepo) AppendAuditEvent(ctx context.Context, e domain.AuditEvent) error {
	meta := "{}"
	if len(e.Metadata) > 0 {
		raw, err := json.Marshal(e.Metadata)
		if err != nil {
			return err
		}
		meta = string(raw)
	}

	_, err := r.db.ExecContext(ctx, appendAuditEventSQL,
		e.ID, string(e.Kind), e.IdentityID, e.Email,
		e.Outcome, e.Message, meta, e.CreatedAt.UTC(),
	)
	return err
}

const listAuditEventsByEmailSQL = `
SELECT id, kind, identity_id, email, outcome, message, metadata, created_at
FROM audit_events
WHERE email = ?
ORDER BY created_at DESC
LIMIT ?`

func (r *auditEventsRepo) ListAuditEventsByEmail(ctx context.Context, email string, limit int) ([]domain.AuditEvent, error) {
	rows, err := r.db.QueryContext(ctx, listAuditEventsByEmailSQL, email, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var events []domain.AuditEvent
	for rows.Next() {
		var e domain.AuditEvent
		var kind, meta string
		if err := rows.Scan(&e.ID, &kind, &e.IdentityID, &e.Email,
			&e.Outcome, &e.Message, &meta, &e.CreatedAt); err != nil {
			return nil, err
		}
		e.Kind = domain.AuditKind(kind)
		if meta != "" && meta != "{}" {
			if err := json.Unmarshal([]byte(meta), &e.Metadata); err != nil {
				return nil, err
			}
		}
		events = append(events, e)
	}
	return events, rows.Err()
}

func (r *auditEventsRepo) DeleteAuditEventsBefore(ctx context.Context, cutoff time.Time) error {
	_, err := r.db.ExecContext(ctx,
		`DELETE FROM audit_events WHERE created_at < ?`, cutoff.UTC())
	return err
}
