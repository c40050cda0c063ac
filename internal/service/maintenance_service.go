package service

import (
	"context"
	"time"

	"pos-service/internal/apperror"
	"pos-service/internal/broker"
	"pos-service/internal/models"
	"pos-service/internal/util"

	"go.uber.org/zap"
)

const flushLockName = "flush-history"

// MaintenanceService runs destructive back-office jobs
type MaintenanceService struct {
	repo      MaintenanceRepository
	reports   *ReportService
	publisher EventPublisher
	locker    Locker
	logger    *zap.Logger
}

// NewMaintenanceService creates a new maintenance service. publisher, locker and reports may be nil.
func NewMaintenanceService(repo MaintenanceRepository, reports *ReportService, publisher EventPublisher, locker Locker) *MaintenanceService {
	return &MaintenanceService{
		repo:      repo,
		reports:   reports,
		publisher: publisherOrNop(publisher),
		locker:    locker,
		logger:    util.GetLogger(),
	}
}

// FlushHistory deletes all bills and restarts numbering at 1. The catalog and
// operators are kept. It fails as a whole or not at all.
func (s *MaintenanceService) FlushHistory(ctx context.Context) (*models.FlushResult, error) {
	ctx, span := util.StartSpan(ctx, "MaintenanceService.FlushHistory")
	defer span.End()

	if s.locker != nil {
		token, ok, err := s.locker.AcquireLock(ctx, flushLockName, time.Minute)
		if err != nil {
			return nil, util.RecordError(span, err)
		}
		if !ok {
			return nil, apperror.ErrDuplicateRequest.WithMessage("a flush is already running")
		}
		defer func() {
			if err := s.locker.ReleaseLock(context.Background(), flushLockName, token); err != nil {
				s.logger.Warn("Failed to release flush lock", zap.Error(err))
			}
		}()
	}

	result, err := s.repo.FlushHistory(ctx)
	if err != nil {
		return nil, util.RecordError(span, err)
	}

	s.logger.Warn("Bill history flushed", zap.Int64("bills", result.Bills), zap.Int64("lines", result.Lines))

	if s.reports != nil {
		if err := s.reports.InvalidateReports(ctx); err != nil {
			s.logger.Warn("Failed to clear report cache", zap.Error(err))
		}
	}

	event := &models.HistoryFlushedEvent{
		BaseEvent: broker.NewBaseEvent(models.EventTypeHistoryFlushed),
		Bills:     result.Bills,
		Lines:     result.Lines,
	}
	if err := s.publisher.PublishHistoryFlushed(ctx, event); err != nil {
		s.logger.Error("Failed to publish HistoryFlushed event", zap.Error(err))
	}
	return result, nil
}
