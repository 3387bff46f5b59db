package service

import (
	"context"
	"log/slog"
	"time"

	"github.com/cobaltleaf/doorman/internal/identity/store"
)

// DefaultAuditRetention is how long audit events are kept before the sweeper
// prunes them.
const DefaultAuditRetention = 30 * 24 * time.Hour

// HousekeepingService periodically deletes expired challenges, dead refresh
// tokens, and aged-out audit events to prevent unbounded table growth. It is
// hygiene only: validation decisions never depend on sweep timing.
type HousekeepingService struct {
	Store          store.Store
	Logger         *slog.Logger
	Interval       time.Duration
	AuditRetention time.Duration

	// Internal channels for lifecycle management
	stopCh chan struct{}
	doneCh chan struct{}
}

// NewHousekeepingService creates a new housekeeping service with the given
// interval. If interval is 0 or negative, defaults to 1 hour.
func NewHousekeepingService(st store.Store, logger *slog.Logger, interval, auditRetention time.Duration) *HousekeepingService {
	if interval <= 0 {
		interval = 1 * time.Hour
	}
	if auditRetention <= 0 {
		auditRetention = DefaultAuditRetention
	}

	return &HousekeepingService{
		Store:          st,
		Logger:         logger,
		Interval:       interval,
		AuditRetention: auditRetention,
		stopCh:         make(chan struct{}),
		doneCh:         make(chan struct{}),
	}
}

// Start begins the background worker that periodically runs cleanup.
// This is non-blocking and should be called after the database is ready.
// Call Stop() to gracefully shutdown the worker.
func (s *HousekeepingService) Start() {
	go s.run()
	s.Logger.Info("housekeeping service started", "interval", s.Interval)
}

// Stop gracefully shuts down the background worker.
// Blocks until the worker has finished any in-progress cleanup.
func (s *HousekeepingService) Stop() {
	close(s.stopCh)
	<-s.doneCh
	s.Logger.Info("housekeeping service stopped")
}

func (s *HousekeepingService) run() {
	defer close(s.doneCh)

	ticker := time.NewTicker(s.Interval)
	defer ticker.Stop()

	// Run cleanup immediately on startup
	s.Cleanup()

	for {
		select {
		case <-ticker.C:
			s.Cleanup()
		case <-s.stopCh:
			return
		}
	}
}

// Cleanup performs one sweep. Each deletion is independent; a failure in one
// never stops the others.
func (s *HousekeepingService) Cleanup() {
	ctx := context.Background()
	s.Logger.Debug("starting housekeeping cleanup")

	var successful int

	if err := s.Store.Challenges().DeleteExpiredChallenges(ctx); err != nil {
		s.Logger.Error("failed to delete expired challenges", "error", err)
	} else {
		successful++
	}

	if err := s.Store.RefreshTokens().DeleteExpiredRefreshTokens(ctx); err != nil {
		s.Logger.Error("failed to delete expired refresh tokens", "error", err)
	} else {
		successful++
	}

	cutoff := time.Now().Add(-s.AuditRetention)
	if err := s.Store.AuditEvents().DeleteAuditEventsBefore(ctx, cutoff); err != nil {
		s.Logger.Error("failed to prune audit events", "error", err)
	} else {
		successful++
	}

	s.Logger.Info("housekeeping cleanup completed", "successful_cleanups", successful)
}
