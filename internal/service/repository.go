package service

import (
	"context"
	"time"

	"pos-service/internal/models"

	"github.com/shopspring/decimal"
)

// CatalogRepository persists catalog items
type CatalogRepository interface {
	ListItems(ctx context.Context) ([]models.Item, error)
	ListCategories(ctx context.Context) ([]string, error)
	GetItemByID(ctx context.Context, id int64) (*models.Item, error)
	GetItemByCode(ctx context.Context, code string) (*models.Item, error)
	GetItemsByIDs(ctx context.Context, ids []int64) ([]models.Item, error)
	GetItemsByCodes(ctx context.Context, codes []string) ([]models.Item, error)
	CreateItem(ctx context.Context, item *models.Item) error
	UpdateItemPrice(ctx context.Context, id int64, price decimal.Decimal) (*models.Item, error)
	DeleteItem(ctx context.Context, id int64) error
}

// BillRepository persists bills and their audit records. RefundLine and
// SetStatus run apply while the bill is locked and persist its effect atomically.
type BillRepository interface {
	CreateBill(ctx context.Context, bill *models.Bill, codeFor func(id int64) string) error
	GetBillByID(ctx context.Context, id int64) (*models.Bill, error)
	GetBillBySeqCode(ctx context.Context, code string) (*models.Bill, error)
	GetBillByIdempotencyKey(ctx context.Context, key string) (*models.Bill, error)
	GetLatestBill(ctx context.Context) (*models.Bill, error)
	ListBills(ctx context.Context, seqCode string, limit int) ([]models.Bill, error)
	RefundLine(ctx context.Context, billID, lineID int64,
		apply func(bill *models.Bill, line *models.BillLine) (*models.LineRefund, error)) (*models.Bill, error)
	SetStatus(ctx context.Context, billID int64,
		apply func(bill *models.Bill) (*models.StatusTransition, error)) (*models.Bill, error)
	ListStatusTransitions(ctx context.Context, billID int64) ([]models.StatusTransition, error)
	ListLineRefunds(ctx context.Context, billID int64) ([]models.LineRefund, error)
}

// ReportRepository runs the aggregate queries behind the reports
type ReportRepository interface {
	ListBillSummaries(ctx context.Context, status models.BillStatus, from, to time.Time) ([]models.BillSummary, error)
	ItemSales(ctx context.Context, status models.BillStatus, from, to *time.Time) ([]models.ItemSales, error)
	CategorySales(ctx context.Context, status models.BillStatus) ([]models.CategorySales, error)
}

type OperatorRepository interface {
	GetOperatorByUsername(ctx context.Context, username string) (*models.Operator, error)
	GetOperatorByID(ctx context.Context, id int64) (*models.Operator, error)
}

type MaintenanceRepository interface {
	FlushHistory(ctx context.Context) (*models.FlushResult, error)
}

// Repository is everything a backing store provides.
type Repository interface {
	CatalogRepository
	BillRepository
	ReportRepository
	OperatorRepository
	MaintenanceRepository
	Init(ctx context.Context, operators []models.Operator, menu []models.Item) error
	Ping(ctx context.Context) error
	Close() error
}

// EventPublisher emits bill events
type EventPublisher interface {
	PublishBillCreated(ctx context.Context, event *models.BillCreatedEvent) error
	PublishBillLineRefunded(ctx context.Context, event *models.BillLineRefundedEvent) error
	PublishBillStatusChanged(ctx context.Context, event *models.BillStatusChangedEvent) error
	PublishHistoryFlushed(ctx context.Context, event *models.HistoryFlushedEvent) error
}

// Cache stores JSON values with expiry
type Cache interface {
	GetJSON(ctx context.Context, key string, dest interface{}) (bool, error)
	SetJSON(ctx context.Context, key string, value interface{}, ttl time.Duration) error
	DeletePrefix(ctx context.Context, prefix string) (int64, error)
}

// ReportInvalidator drops cached report results after a bill changes
type ReportInvalidator interface {
	InvalidateReports(ctx context.Context) error
}

// Locker guards operations that must not run twice at once
type Locker interface {
	AcquireLock(ctx context.Context, name string, ttl time.Duration) (string, bool, error)
	ReleaseLock(ctx context.Context, name, token string) error
}

type nopPublisher struct{}

func (nopPublisher) PublishBillCreated(context.Context, *models.BillCreatedEvent) error {
	return nil
}

func (nopPublisher) PublishBillLineRefunded(context.Context, *models.BillLineRefundedEvent) error {
	return nil
}

func (nopPublisher) PublishBillStatusChanged(context.Context, *models.BillStatusChangedEvent) error {
	return nil
}

func (nopPublisher) PublishHistoryFlushed(context.Context, *models.HistoryFlushedEvent) error {
	return nil
}

type nopCache struct{}

func (nopCache) GetJSON(context.Context, string, interface{}) (bool, error) {
	return false, nil
}

func (nopCache) SetJSON(context.Context, string, interface{}, time.Duration) error {
	return nil
}

func (nopCache) DeletePrefix(context.Context, string) (int64, error) {
	return 0, nil
}

type nopInvalidator struct{}

func (nopInvalidator) InvalidateReports(context.Context) error {
	return nil
}

func invalidatorOrNop(r ReportInvalidator) ReportInvalidator {
	if r == nil {
		return nopInvalidator{}
	}
	return r
}

func publisherOrNop(p EventPublisher) EventPublisher {
	if p == nil {
		return nopPublisher{}
	}
	return p
}

func cacheOrNop(c Cache) Cache {
	if c == nil {
		return nopCache{}
	}
	return c
}
