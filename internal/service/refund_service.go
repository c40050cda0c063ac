package service

import (
	"context"
	"fmt"
	"strings"

	"pos-service/internal/apperror"
	"pos-service/internal/broker"
	"pos-service/internal/models"
	"pos-service/internal/util"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// RefundService applies partial line refunds and whole-bill status changes
type RefundService struct {
	bills     BillRepository
	publisher EventPublisher
	reports   ReportInvalidator
	policy    StatusPolicy
	logger    *zap.Logger
}

// NewRefundService creates a new refund service. publisher and reports may be nil.
func NewRefundService(bills BillRepository, publisher EventPublisher, reports ReportInvalidator, policy StatusPolicy) *RefundService {
	if policy == nil {
		policy = PermissivePolicy{}
	}
	return &RefundService{
		bills:     bills,
		publisher: publisherOrNop(publisher),
		reports:   invalidatorOrNop(reports),
		policy:    policy,
		logger:    util.GetLogger(),
	}
}

// RefundLineRequest represents a partial refund of one bill line
type RefundLineRequest struct {
	Quantity int    `json:"qty"`
	Note     string `json:"note"`
}

// SetStatusRequest represents a whole-bill status change
type SetStatusRequest struct {
	Status string `json:"status"`
	Note   string `json:"note"`
}

// RefundLine refunds qty units of one line at the line's frozen unit price.
// The bill total drops by the refunded amount and the bill status is left alone.
// Each call refunds again; callers must not retry blindly.
func (s *RefundService) RefundLine(ctx context.Context, billID, lineID int64, req *RefundLineRequest, operator *models.Operator) (*models.Bill, error) {
	ctx, span := util.StartSpan(ctx, "RefundService.RefundLine")
	defer span.End()

	qty := req.Quantity
	reason := strings.TrimSpace(req.Note)
	var refund *models.LineRefund

	bill, err := s.bills.RefundLine(ctx, billID, lineID, func(bill *models.Bill, line *models.BillLine) (*models.LineRefund, error) {
		if qty <= 0 {
			return nil, apperror.ErrInvalidQuantity
		}
		available := line.Remaining()
		if qty > available {
			return nil, apperror.InsufficientQuantity(qty, available)
		}

		amount := line.UnitPrice.Mul(decimal.NewFromInt(int64(qty)))
		line.RefundedQty += qty
		bill.TotalAmount = bill.TotalAmount.Sub(amount)
		if reason != "" {
			bill.AppendNote(RefundNote(line.ID, qty, line.UnitPrice, amount, reason))
		}

		refund = &models.LineRefund{
			BillID:     bill.ID,
			BillLineID: line.ID,
			Quantity:   qty,
			UnitPrice:  line.UnitPrice,
			Amount:     amount,
			Reason:     reason,
			OperatorID: operatorID(operator),
		}
		return refund, nil
	})
	if err != nil {
		util.RefundsFailedTotal.WithLabelValues(errorLabel(err)).Inc()
		return nil, util.RecordError(span, err)
	}

	util.LineRefundsTotal.Inc()
	util.RefundedAmountTotal.Add(refund.Amount.InexactFloat64())
	s.logger.Info("Bill line refunded",
		zap.Int64("bill_id", billID),
		zap.Int64("line_id", lineID),
		zap.Int("qty", qty),
		zap.String("amount", refund.Amount.StringFixed(2)),
		zap.String("new_total", bill.TotalAmount.StringFixed(2)))

	event := &models.BillLineRefundedEvent{
		BaseEvent:    broker.NewBaseEvent(models.EventTypeBillLineRefunded),
		BillID:       billID,
		BillLineID:   lineID,
		Quantity:     qty,
		Amount:       refund.Amount,
		NewBillTotal: bill.TotalAmount,
	}
	if err := s.publisher.PublishBillLineRefunded(ctx, event); err != nil {
		s.logger.Error("Failed to publish BillLineRefunded event", zap.Error(err))
	}
	s.invalidateReports(ctx)
	return bill, nil
}

// SetStatus overwrites the bill status after the policy approves the move.
// Line quantities and the total are never touched.
func (s *RefundService) SetStatus(ctx context.Context, billID int64, req *SetStatusRequest, operator *models.Operator) (*models.Bill, error) {
	ctx, span := util.StartSpan(ctx, "RefundService.SetStatus")
	defer span.End()

	to, ok := models.ParseBillStatus(req.Status)
	if !ok {
		return nil, apperror.ErrInvalidStatus.WithMessage("invalid status %q", strings.TrimSpace(req.Status))
	}
	note := strings.TrimSpace(req.Note)
	var from models.BillStatus

	bill, err := s.bills.SetStatus(ctx, billID, func(bill *models.Bill) (*models.StatusTransition, error) {
		if err := s.policy.Allow(bill, to); err != nil {
			return nil, err
		}
		from = bill.Status
		bill.Status = to
		if note != "" {
			bill.AppendNote(StatusNote(from, to, note))
		}
		return &models.StatusTransition{
			BillID:     bill.ID,
			FromStatus: from,
			ToStatus:   to,
			Note:       note,
			OperatorID: operatorID(operator),
		}, nil
	})
	if err != nil {
		return nil, util.RecordError(span, err)
	}

	util.StatusChangesTotal.WithLabelValues(string(to)).Inc()
	s.logger.Info("Bill status changed",
		zap.Int64("bill_id", billID),
		zap.String("from", string(from)),
		zap.String("to", string(to)))

	event := &models.BillStatusChangedEvent{
		BaseEvent:  broker.NewBaseEvent(models.EventTypeBillStatusChanged),
		BillID:     billID,
		FromStatus: from,
		ToStatus:   to,
		Note:       note,
	}
	if err := s.publisher.PublishBillStatusChanged(ctx, event); err != nil {
		s.logger.Error("Failed to publish BillStatusChanged event", zap.Error(err))
	}
	s.invalidateReports(ctx)
	return bill, nil
}

func (s *RefundService) invalidateReports(ctx context.Context) {
	if err := s.reports.InvalidateReports(ctx); err != nil {
		s.logger.Warn("Failed to clear report cache", zap.Error(err))
	}
}

// History returns the status transitions and refunds recorded for a bill
func (s *RefundService) History(ctx context.Context, billID int64) (*models.BillHistory, error) {
	if _, err := s.bills.GetBillByID(ctx, billID); err != nil {
		return nil, err
	}
	transitions, err := s.bills.ListStatusTransitions(ctx, billID)
	if err != nil {
		return nil, err
	}
	refunds, err := s.bills.ListLineRefunds(ctx, billID)
	if err != nil {
		return nil, err
	}
	return &models.BillHistory{BillID: billID, Transitions: transitions, Refunds: refunds}, nil
}

// RefundNote renders the fragment appended to a bill note after a refund.
func RefundNote(lineID int64, qty int, unitPrice, amount decimal.Decimal, reason string) string {
	return fmt.Sprintf("[Item refund BI#%d: %d x %s = %s | %s]",
		lineID, qty, unitPrice.StringFixed(2), amount.StringFixed(2), reason)
}

// StatusNote renders the fragment appended to a bill note after a status change.
func StatusNote(from, to models.BillStatus, note string) string {
	return fmt.Sprintf("[Status %s -> %s | %s]", from, to, note)
}

func operatorID(op *models.Operator) *int64 {
	if op == nil {
		return nil
	}
	id := op.ID
	return &id
}

func errorLabel(err error) string {
	if appErr, ok := apperror.As(err); ok {
		return strings.ToLower(appErr.Code)
	}
	return "internal"
}
