package service

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/cobaltleaf/doorman/internal/identity/domain"
	"github.com/cobaltleaf/doorman/internal/identity/store"
	"github.com/google/uuid"
)

// DefaultAuditBufferSize bounds the queue between callers and the writer
// goroutine. Full queue drops the event rather than blocking the caller.
const DefaultAuditBufferSize = 256

// AuditService records security-relevant events through a buffered async
// writer. Record is fire-and-forget: the primary operation never waits on,
// and never fails because of, the audit trail.
type AuditService struct {
	store store.Store
	log   *slog.Logger

	ch        chan domain.AuditEvent
	done      chan struct{}
	wg        sync.WaitGroup
	dropped   atomic.Uint64
	closed    atomic.Bool
	closeOnce sync.Once
}

func NewAuditService(st store.Store, log *slog.Logger, bufferSize int) *AuditService {
	if bufferSize <= 0 {
		bufferSize = DefaultAuditBufferSize
	}

	s := &AuditService{
		store: st,
		log:   log,
		ch:    make(chan domain.AuditEvent, bufferSize),
		done:  make(chan struct{}),
	}

	s.wg.Add(1)
	go s.run()

	return s
}

func (s *AuditService) run() {
	defer s.wg.Done()

	for {
		select {
		case event := <-s.ch:
			s.write(event)
		case <-s.done:
			// Drain what is already queued, then stop.
			for {
				select {
				case event := <-s.ch:
					s.write(event)
				default:
					return
				}
			}
		}
	}
}

func (s *AuditService) write(event domain.AuditEvent) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := s.store.AuditEvents().AppendAuditEvent(ctx, event); err != nil {
		s.log.Error("audit event write failed",
			"kind", string(event.Kind),
			"err", err,
		)
	}
}

// Record queues one event. Missing ID, outcome, and timestamp are filled in.
// When the queue is full the event is dropped and counted; callers are never
// blocked or failed by auditing.
func (s *AuditService) Record(ctx context.Context, event domain.AuditEvent) {
	if s == nil || s.closed.Load() {
		return
	}

	if event.ID == "" {
		event.ID = uuid.NewString()
	}
	if event.Outcome == "" {
		event.Outcome = domain.OutcomeSuccess
	}
	if event.CreatedAt.IsZero() {
		event.CreatedAt = time.Now().UTC()
	}

	select {
	case s.ch <- event:
	case <-s.done:
	default:
		s.dropped.Add(1)
	}
}

// Recent returns the newest events recorded for an email address.
func (s *AuditService) Recent(ctx context.Context, email string, limit int) ([]domain.AuditEvent, error) {
	if limit <= 0 {
		limit = 50
	}
	return s.store.AuditEvents().ListAuditEventsByEmail(ctx, email, limit)
}

// Dropped reports how many events were discarded because the queue was full.
func (s *AuditService) Dropped() uint64 {
	if s == nil {
		return 0
	}
	return s.dropped.Load()
}

// Close stops accepting events, drains the queue, and waits for the writer.
func (s *AuditService) Close() {
	if s == nil {
		return
	}
	s.closeOnce.Do(func() {
		s.closed.Store(true)
		close(s.done)
		s.wg.Wait()
	})
}
