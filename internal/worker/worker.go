package worker

import (
	"context"

	"pos-service/internal/broker"
	"pos-service/internal/models"
	"pos-service/internal/util"

	"go.uber.org/zap"
)

// ReportInvalidator drops cached report results.
type ReportInvalidator interface {
	InvalidateReports(ctx context.Context) error
}

// ReportCacheWorker consumes bill events and invalidates cached reports so the
// next read recomputes from the store.
type ReportCacheWorker struct {
	consumer     *broker.Consumer
	eventHandler *broker.EventHandler
	reports      ReportInvalidator
}

// NewReportCacheWorker creates a new report cache worker
func NewReportCacheWorker(consumer *broker.Consumer, reports ReportInvalidator) *ReportCacheWorker {
	w := &ReportCacheWorker{
		consumer: consumer,
		reports:  reports,
	}
	w.eventHandler = NewReportEventHandler(reports)
	return w
}

// NewReportEventHandler registers cache invalidation for every bill event type.
func NewReportEventHandler(reports ReportInvalidator) *broker.EventHandler {
	log := util.GetLogger()
	invalidate := func(ctx context.Context, reason string, billID int64) error {
		log.Debug("Invalidating report cache", zap.String("reason", reason), zap.Int64("bill_id", billID))
		return reports.InvalidateReports(ctx)
	}

	eh := broker.NewEventHandler()
	eh.OnBillCreated(func(ctx context.Context, e *models.BillCreatedEvent) error {
		return invalidate(ctx, e.EventType, e.BillID)
	})
	eh.OnBillLineRefunded(func(ctx context.Context, e *models.BillLineRefundedEvent) error {
		return invalidate(ctx, e.EventType, e.BillID)
	})
	eh.OnBillStatusChanged(func(ctx context.Context, e *models.BillStatusChangedEvent) error {
		return invalidate(ctx, e.EventType, e.BillID)
	})
	eh.OnHistoryFlushed(func(ctx context.Context, e *models.HistoryFlushedEvent) error {
		return invalidate(ctx, e.EventType, 0)
	})
	return eh
}

// Start blocks consuming until ctx is cancelled
func (w *ReportCacheWorker) Start(ctx context.Context) error {
	util.GetLogger().Info("Starting report cache worker")
	return w.consumer.StartConsuming(ctx, w.eventHandler.HandleMessage)
}

// Stop stops the worker
func (w *ReportCacheWorker) Stop() error {
	util.GetLogger().Info("Stopping report cache worker")
	return w.consumer.Close()
}
