package service

import (
	"context"
	"encoding/json"
	"strings"
	"sync"
	"testing"
	"time"

	"pos-service/internal/memstore"
	"pos-service/internal/models"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingPublisher struct {
	created  []*models.BillCreatedEvent
	refunded []*models.BillLineRefundedEvent
	status   []*models.BillStatusChangedEvent
	flushed  []*models.HistoryFlushedEvent
}

func (p *recordingPublisher) PublishBillCreated(_ context.Context, e *models.BillCreatedEvent) error {
	p.created = append(p.created, e)
	return nil
}

func (p *recordingPublisher) PublishBillLineRefunded(_ context.Context, e *models.BillLineRefundedEvent) error {
	p.refunded = append(p.refunded, e)
	return nil
}

func (p *recordingPublisher) PublishBillStatusChanged(_ context.Context, e *models.BillStatusChangedEvent) error {
	p.status = append(p.status, e)
	return nil
}

func (p *recordingPublisher) PublishHistoryFlushed(_ context.Context, e *models.HistoryFlushedEvent) error {
	p.flushed = append(p.flushed, e)
	return nil
}

// memCache is a Cache backed by a map, JSON encoded like the Redis client.
type memCache struct {
	mu   sync.Mutex
	data map[string][]byte
}

func newMemCache() *memCache {
	return &memCache{data: map[string][]byte{}}
}

func (c *memCache) GetJSON(_ context.Context, key string, dest interface{}) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	raw, ok := c.data[key]
	if !ok {
		return false, nil
	}
	return true, json.Unmarshal(raw, dest)
}

func (c *memCache) SetJSON(_ context.Context, key string, value interface{}, _ time.Duration) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.data[key] = raw
	return nil
}

func (c *memCache) DeletePrefix(_ context.Context, prefix string) (int64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	var n int64
	for k := range c.data {
		if strings.HasPrefix(k, prefix) {
			delete(c.data, k)
			n++
		}
	}
	return n, nil
}

type fixture struct {
	t         *testing.T
	ctx       context.Context
	now       time.Time
	store     *memstore.Store
	cache     *memCache
	publisher *recordingPublisher
	catalog   *CatalogService
	billing   *BillingService
	refunds   *RefundService
	reports   *ReportService
	admin     *models.Operator
	staff     *models.Operator
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{
		t:         t,
		ctx:       context.Background(),
		now:       time.Date(2025, 3, 10, 15, 0, 0, 0, time.UTC),
		cache:     newMemCache(),
		publisher: &recordingPublisher{},
	}
	f.store = memstore.New(memstore.WithClock(func() time.Time { return f.now }))
	require.NoError(t, f.store.Init(f.ctx, []models.Operator{
		{Username: "admin", PasswordHash: "x", Role: models.RoleAdmin},
		{Username: "amar", PasswordHash: "x", Role: models.RoleStaff},
	}, nil))

	var err error
	f.admin, err = f.store.GetOperatorByUsername(f.ctx, "admin")
	require.NoError(t, err)
	f.staff, err = f.store.GetOperatorByUsername(f.ctx, "amar")
	require.NoError(t, err)

	f.catalog = NewCatalogService(f.store, f.cache, time.Minute)
	f.reports = NewReportService(f.store, f.cache, time.Minute, time.UTC)
	f.reports.now = func() time.Time { return f.now }
	f.billing = NewBillingService(f.store, f.store, f.publisher, f.reports, LenientCartPolicy{}, DefaultSequenceFormat)
	f.refunds = NewRefundService(f.store, f.publisher, f.reports, PermissivePolicy{})
	return f
}

func (f *fixture) item(code, category string, price int64) *models.Item {
	f.t.Helper()
	p := decimal.NewFromInt(price)
	item, err := f.catalog.CreateItem(f.ctx, &CreateItemRequest{
		Code:     code,
		Name:     "Item " + code,
		Category: category,
		Price:    &p,
	})
	require.NoError(f.t, err)
	return item
}

func (f *fixture) bill(entries ...CartEntry) *models.Bill {
	f.t.Helper()
	bill, err := f.billing.CreateBill(f.ctx, &CreateBillRequest{Items: entries}, f.staff, "")
	require.NoError(f.t, err)
	return bill
}

func assertMoney(t *testing.T, expected int64, got decimal.Decimal) {
	t.Helper()
	assert.Truef(t, got.Equal(decimal.NewFromInt(expected)), "expected %d, got %s", expected, got.String())
}
