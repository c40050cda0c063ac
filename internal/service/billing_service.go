package service

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"pos-service/internal/apperror"
	"pos-service/internal/broker"
	"pos-service/internal/models"
	"pos-service/internal/util"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// MaxBillListSize caps the admin bill search
const MaxBillListSize = 50

// BillingService rings up bills and serves bill lookups
type BillingService struct {
	catalog   CatalogRepository
	bills     BillRepository
	publisher EventPublisher
	reports   ReportInvalidator
	policy    CartPolicy
	seq       SequenceFormat
	logger    *zap.Logger
}

// NewBillingService creates a new billing service. publisher and reports may be nil.
func NewBillingService(
	catalog CatalogRepository,
	bills BillRepository,
	publisher EventPublisher,
	reports ReportInvalidator,
	policy CartPolicy,
	seq SequenceFormat,
) *BillingService {
	if policy == nil {
		policy = LenientCartPolicy{}
	}
	return &BillingService{
		catalog:   catalog,
		bills:     bills,
		publisher: publisherOrNop(publisher),
		reports:   invalidatorOrNop(reports),
		policy:    policy,
		seq:       seq,
		logger:    util.GetLogger(),
	}
}

// CreateBillRequest represents a request to ring up a bill
type CreateBillRequest struct {
	CustomerName string      `json:"customer_name"`
	Items        []CartEntry `json:"items"`
}

// CreateBill prices the cart from the catalog and stores the bill with its
// sequence code in one transaction. A repeated idempotency key returns the
// bill created first, or DUPLICATE_REQUEST when the request body differs.
func (s *BillingService) CreateBill(ctx context.Context, req *CreateBillRequest, operator *models.Operator, idempotencyKey string) (*models.Bill, error) {
	ctx, span := util.StartSpan(ctx, "BillingService.CreateBill")
	defer span.End()

	var requestHash string
	idempotencyKey = strings.TrimSpace(idempotencyKey)
	if idempotencyKey != "" {
		var err error
		if requestHash, err = hashRequest(req); err != nil {
			return nil, util.RecordError(span, err)
		}
		existing, err := s.bills.GetBillByIdempotencyKey(ctx, idempotencyKey)
		if err != nil {
			return nil, fmt.Errorf("failed to check idempotency: %w", err)
		}
		if existing != nil {
			return s.replay(existing, idempotencyKey, requestHash)
		}
	}

	lines, err := s.buildLines(ctx, req.Items)
	if err != nil {
		util.BillsRejectedTotal.WithLabelValues("invalid_items").Inc()
		return nil, util.RecordError(span, err)
	}
	if len(lines) == 0 {
		util.BillsRejectedTotal.WithLabelValues("empty").Inc()
		return nil, apperror.ErrEmptyBill
	}

	bill := &models.Bill{
		Status: models.BillStatusActive,
		Lines:  lines,
	}
	if name := strings.TrimSpace(req.CustomerName); name != "" {
		bill.CustomerName = &name
	}
	bill.OperatorID = operatorID(operator)
	if idempotencyKey != "" {
		bill.IdempotencyKey = &idempotencyKey
		bill.RequestHash = &requestHash
	}
	bill.TotalAmount = bill.ExpectedTotal()

	if err := s.bills.CreateBill(ctx, bill, s.seq.Code); err != nil {
		if errors.Is(err, apperror.ErrDuplicateRequest) && idempotencyKey != "" {
			// lost a race with a concurrent request carrying the same key
			existing, getErr := s.bills.GetBillByIdempotencyKey(ctx, idempotencyKey)
			if getErr != nil {
				return nil, util.RecordError(span, fmt.Errorf("failed to load bill for idempotency key: %w", getErr))
			}
			if existing == nil {
				return nil, util.RecordError(span, err)
			}
			return s.replay(existing, idempotencyKey, requestHash)
		}
		util.BillsRejectedTotal.WithLabelValues("db_error").Inc()
		return nil, util.RecordError(span, fmt.Errorf("failed to create bill: %w", err))
	}

	util.BillsCreatedTotal.Inc()
	util.BillRevenueTotal.Add(bill.TotalAmount.InexactFloat64())
	s.logger.Info("Bill created",
		zap.Int64("bill_id", bill.ID),
		zap.String("seq_code", bill.SeqCode),
		zap.String("total", bill.TotalAmount.StringFixed(2)))

	s.publishCreated(ctx, bill)
	if err := s.reports.InvalidateReports(ctx); err != nil {
		s.logger.Warn("Failed to clear report cache", zap.Error(err))
	}

	created, err := s.bills.GetBillByID(ctx, bill.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to load created bill: %w", err)
	}
	return created, nil
}

// replay returns the bill stored under an idempotency key if it was created
// from the same request body.
func (s *BillingService) replay(existing *models.Bill, key, requestHash string) (*models.Bill, error) {
	if existing.RequestHash != nil && *existing.RequestHash != requestHash {
		util.BillsRejectedTotal.WithLabelValues("idempotency_mismatch").Inc()
		return nil, apperror.ErrDuplicateRequest.WithMessage("idempotency key %q was already used for a different bill", key)
	}
	s.logger.Info("Duplicate bill request detected",
		zap.String("idempotency_key", key),
		zap.Int64("bill_id", existing.ID))
	return existing, nil
}

func hashRequest(req *CreateBillRequest) (string, error) {
	raw, err := json.Marshal(req)
	if err != nil {
		return "", fmt.Errorf("failed to encode bill request: %w", err)
	}
	sum := sha256.Sum256(raw)
	return hex.EncodeToString(sum[:]), nil
}

// buildLines resolves cart entries against the catalog. Prices always come
// from the catalog, never from the client.
func (s *BillingService) buildLines(ctx context.Context, entries []CartEntry) ([]models.BillLine, error) {
	var ids []int64
	var codes []string
	for _, e := range entries {
		if e.ItemID > 0 {
			ids = append(ids, e.ItemID)
		} else if code := strings.TrimSpace(e.Code); code != "" {
			codes = append(codes, strings.ToUpper(code))
		}
	}

	byID := map[int64]*models.Item{}
	byCode := map[string]*models.Item{}
	if len(ids) > 0 {
		items, err := s.catalog.GetItemsByIDs(ctx, ids)
		if err != nil {
			return nil, err
		}
		for i := range items {
			byID[items[i].ID] = &items[i]
		}
	}
	if len(codes) > 0 {
		items, err := s.catalog.GetItemsByCodes(ctx, codes)
		if err != nil {
			return nil, err
		}
		for i := range items {
			byCode[items[i].Code] = &items[i]
		}
	}

	lines := make([]models.BillLine, 0, len(entries))
	for i, e := range entries {
		if e.Quantity <= 0 {
			if err := s.policy.Invalid(i, e, "quantity must be > 0"); err != nil {
				return nil, err
			}
			continue
		}

		var item *models.Item
		if e.ItemID > 0 {
			item = byID[e.ItemID]
		} else {
			item = byCode[strings.ToUpper(strings.TrimSpace(e.Code))]
		}
		if item == nil {
			if err := s.policy.Invalid(i, e, "unknown item"); err != nil {
				return nil, err
			}
			continue
		}

		lines = append(lines, models.BillLine{
			ItemID:    item.ID,
			ItemCode:  item.Code,
			ItemName:  item.Name,
			UnitPrice: item.Price,
			Quantity:  e.Quantity,
			LineTotal: item.Price.Mul(decimal.NewFromInt(int64(e.Quantity))),
		})
	}
	return lines, nil
}

func (s *BillingService) publishCreated(ctx context.Context, bill *models.Bill) {
	lines := make([]models.BillLineData, 0, len(bill.Lines))
	for _, l := range bill.Lines {
		lines = append(lines, models.BillLineData{ItemID: l.ItemID, Quantity: l.Quantity, UnitPrice: l.UnitPrice})
	}
	event := &models.BillCreatedEvent{
		BaseEvent:   broker.NewBaseEvent(models.EventTypeBillCreated),
		BillID:      bill.ID,
		SeqCode:     bill.SeqCode,
		OperatorID:  bill.OperatorID,
		TotalAmount: bill.TotalAmount,
		Lines:       lines,
	}
	if err := s.publisher.PublishBillCreated(ctx, event); err != nil {
		s.logger.Error("Failed to publish BillCreated event", zap.Int64("bill_id", bill.ID), zap.Error(err))
	}
}

// GetBill retrieves a bill snapshot by id
func (s *BillingService) GetBill(ctx context.Context, id int64) (*models.Bill, error) {
	return s.bills.GetBillByID(ctx, id)
}

// GetBillBySeqCode looks a bill up by its printed code, ignoring case and padding whitespace
func (s *BillingService) GetBillBySeqCode(ctx context.Context, code string) (*models.Bill, error) {
	code = NormalizeSequenceCode(code)
	if code == "" {
		return nil, apperror.NotFound("bill")
	}
	return s.bills.GetBillBySeqCode(ctx, code)
}

// GetLatestBill returns the most recent bill, or EMPTY_HISTORY
func (s *BillingService) GetLatestBill(ctx context.Context) (*models.Bill, error) {
	return s.bills.GetLatestBill(ctx)
}

// ListBills returns recent bills, newest first, optionally filtered by exact sequence code
func (s *BillingService) ListBills(ctx context.Context, q string, limit int) ([]models.Bill, error) {
	if limit <= 0 || limit > MaxBillListSize {
		limit = MaxBillListSize
	}
	return s.bills.ListBills(ctx, NormalizeSequenceCode(q), limit)
}
