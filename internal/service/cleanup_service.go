package service

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/edusphere/course-api/internal/models"
	"github.com/edusphere/course-api/pkg/config"
	"github.com/edusphere/course-api/pkg/jobs"
)

// CleanupService reclaims temporary attachments that were uploaded but never
// committed. It sweeps once at startup and then on a fixed interval, removing
// attachments older than the configured maximum age from their modules and
// queueing their stored bytes for deletion.
type CleanupService struct {
	modules ModuleStore
	queue   BackgroundQueue
	cfg     config.SweeperConfig
	metrics *MetricsService
	logger  *zap.Logger

	// baseDelay is the unit for the exponential retry backoff
	// (baseDelay, 2*baseDelay, 4*baseDelay, ...). Tests shrink it.
	baseDelay time.Duration
	now       func() time.Time
}

// NewCleanupService constructs the sweeper. queue and metrics may be nil.
func NewCleanupService(modules ModuleStore, queue BackgroundQueue, cfg config.SweeperConfig, metrics *MetricsService, logger *zap.Logger) *CleanupService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.MaxRetries <= 0 {
		cfg.MaxRetries = 3
	}
	return &CleanupService{
		modules:   modules,
		queue:     queue,
		cfg:       cfg,
		metrics:   metrics,
		logger:    logger,
		baseDelay: time.Second,
		now:       time.Now,
	}
}

// Start launches the sweep loop. It runs one sweep immediately and then one
// per interval until the context is cancelled.
func (s *CleanupService) Start(ctx context.Context) {
	if !s.cfg.Enabled {
		s.logger.Info("attachment sweeper disabled")
		return
	}

	go func() {
		s.logger.Info("attachment sweeper started",
			zap.Duration("interval", s.cfg.Interval),
			zap.Duration("max_age", s.cfg.MaxAge))

		s.Sweep(ctx)

		ticker := time.NewTicker(s.cfg.Interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				s.logger.Info("attachment sweeper stopped")
				return
			case <-ticker.C:
				s.Sweep(ctx)
			}
		}
	}()
}

// Sweep runs a single reclamation pass. A failure on one module never stops
// the pass; remaining modules are still processed.
func (s *CleanupService) Sweep(ctx context.Context) {
	modules, err := s.findCandidates(ctx)
	if err != nil {
		s.logger.Error("sweep aborted, candidate query failed", zap.Error(err))
		s.recordSweep("query_failed", 0)
		return
	}
	if len(modules) == 0 {
		s.recordSweep("clean", 0)
		return
	}

	cutoff := s.now().UTC().Add(-s.cfg.MaxAge)
	var reclaimed, failed int
	for i := range modules {
		n, err := s.sweepModule(ctx, &modules[i], cutoff)
		if err != nil {
			failed++
			s.logger.Error("failed to sweep module",
				zap.String("module_id", modules[i].ID), zap.Error(err))
			continue
		}
		reclaimed += n
	}

	outcome := "ok"
	if failed > 0 {
		outcome = "partial"
	}
	s.recordSweep(outcome, reclaimed)

	s.logger.Info("sweep finished",
		zap.Int("candidates", len(modules)),
		zap.Int("attachments_reclaimed", reclaimed),
		zap.Int("modules_failed", failed))
}

func (s *CleanupService) recordSweep(outcome string, reclaimed int) {
	if s.metrics != nil {
		s.metrics.RecordSweep(outcome, reclaimed)
	}
}

func (s *CleanupService) findCandidates(ctx context.Context) ([]models.Module, error) {
	var modules []models.Module
	err := s.withRetries(ctx, func() error {
		qctx, cancel := context.WithTimeout(ctx, s.cfg.QueryTimeout)
		defer cancel()
		var err error
		modules, err = s.modules.FindWithTemporaryAttachments(qctx)
		return err
	})
	return modules, err
}

func (s *CleanupService) sweepModule(ctx context.Context, module *models.Module, cutoff time.Time) (int, error) {
	removed := module.RemoveStaleAttachments(cutoff)
	if len(removed) == 0 {
		return 0, nil
	}

	err := s.withRetries(ctx, func() error {
		sctx, cancel := context.WithTimeout(ctx, s.cfg.SaveTimeout)
		defer cancel()
		return s.modules.Save(sctx, module)
	})
	if err != nil {
		return 0, err
	}

	for _, a := range removed {
		s.enqueueDelete(a.Locator)
	}
	return len(removed), nil
}

// withRetries runs fn once and then up to MaxRetries more times, backing off
// exponentially between attempts (baseDelay, 2x, 4x, ...). The final error is
// returned when every attempt fails.
func (s *CleanupService) withRetries(ctx context.Context, fn func() error) error {
	var err error
	for attempt := 0; attempt <= s.cfg.MaxRetries; attempt++ {
		if attempt > 0 {
			delay := s.baseDelay << (attempt - 1)
			timer := time.NewTimer(delay)
			select {
			case <-ctx.Done():
				timer.Stop()
				return ctx.Err()
			case <-timer.C:
			}
		}
		if err = fn(); err == nil {
			return nil
		}
		s.logger.Warn("sweep operation failed",
			zap.Int("attempt", attempt+1),
			zap.Int("max_retries", s.cfg.MaxRetries),
			zap.Error(err))
	}
	return err
}

func (s *CleanupService) enqueueDelete(locator string) {
	if s.queue == nil || locator == "" {
		return
	}
	err := s.queue.Enqueue(jobs.Job{
		ID:      uuid.NewString(),
		Type:    JobTypeDeleteFile,
		Locator: locator,
	})
	if err != nil {
		s.logger.Warn("failed to enqueue file delete", zap.String("locator", locator), zap.Error(err))
	}
}
