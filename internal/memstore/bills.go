package memstore

import (
	"context"
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"pos-service/internal/apperror"
	"pos-service/internal/models"
)

func (s *Store) CreateBill(_ context.Context, bill *models.Bill, codeFor func(id int64) string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if bill.IdempotencyKey != nil {
		for _, b := range s.bills {
			if b.IdempotencyKey != nil && *b.IdempotencyKey == *bill.IdempotencyKey {
				return apperror.ErrDuplicateRequest
			}
		}
	}
	for _, l := range bill.Lines {
		if _, ok := s.items[l.ItemID]; !ok {
			return apperror.NotFound("item")
		}
	}

	s.nextBillID++
	bill.ID = s.nextBillID
	bill.SeqCode = codeFor(bill.ID)
	bill.CreatedAt = s.now()
	for i := range bill.Lines {
		s.nextLineID++
		bill.Lines[i].ID = s.nextLineID
		bill.Lines[i].BillID = bill.ID
	}

	s.bills[bill.ID] = cloneBill(bill)
	return nil
}

func (s *Store) GetBillByID(_ context.Context, id int64) (*models.Bill, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	b, ok := s.bills[id]
	if !ok {
		return nil, apperror.NotFound("bill")
	}
	return s.view(b), nil
}

func (s *Store) GetBillBySeqCode(_ context.Context, code string) (*models.Bill, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, b := range s.bills {
		if b.SeqCode == code {
			return s.view(b), nil
		}
	}
	return nil, apperror.NotFound("bill")
}

func (s *Store) GetLatestBill(context.Context) (*models.Bill, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var latest *models.Bill
	for _, b := range s.bills {
		if latest == nil || b.ID > latest.ID {
			latest = b
		}
	}
	if latest == nil {
		return nil, apperror.ErrEmptyHistory
	}
	return s.view(latest), nil
}

func (s *Store) GetBillByIdempotencyKey(_ context.Context, key string) (*models.Bill, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, b := range s.bills {
		if b.IdempotencyKey != nil && *b.IdempotencyKey == key {
			return s.view(b), nil
		}
	}
	return nil, nil
}

func (s *Store) ListBills(_ context.Context, seqCode string, limit int) ([]models.Bill, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	bills := []models.Bill{}
	for _, b := range s.sortedBills() {
		if seqCode != "" && b.SeqCode != seqCode {
			continue
		}
		v := s.view(b)
		v.Lines = nil
		bills = append(bills, *v)
	}
	// newest first
	for i, j := 0, len(bills)-1; i < j; i, j = i+1, j-1 {
		bills[i], bills[j] = bills[j], bills[i]
	}
	if limit > 0 && len(bills) > limit {
		bills = bills[:limit]
	}
	return bills, nil
}

// RefundLine applies the refund to a copy and only commits it when apply succeeds.
func (s *Store) RefundLine(_ context.Context, billID, lineID int64,
	apply func(bill *models.Bill, line *models.BillLine) (*models.LineRefund, error)) (*models.Bill, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	stored, ok := s.bills[billID]
	if !ok {
		return nil, apperror.NotFound("bill")
	}
	work := s.view(stored)
	line, ok := work.Line(lineID)
	if !ok {
		return nil, apperror.ErrLineMismatch
	}

	refund, err := apply(work, line)
	if err != nil {
		return nil, err
	}

	s.nextRefundID++
	refund.ID = s.nextRefundID
	refund.CreatedAt = s.now()
	s.refunds = append(s.refunds, *refund)
	s.bills[billID] = cloneBill(work)
	return work, nil
}

func (s *Store) SetStatus(_ context.Context, billID int64,
	apply func(bill *models.Bill) (*models.StatusTransition, error)) (*models.Bill, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	stored, ok := s.bills[billID]
	if !ok {
		return nil, apperror.NotFound("bill")
	}
	work := s.view(stored)

	transition, err := apply(work)
	if err != nil {
		return nil, err
	}

	s.nextTransitionID++
	transition.ID = s.nextTransitionID
	transition.CreatedAt = s.now()
	s.transitions = append(s.transitions, *transition)
	s.bills[billID] = cloneBill(work)
	return work, nil
}

func (s *Store) ListStatusTransitions(_ context.Context, billID int64) ([]models.StatusTransition, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := []models.StatusTransition{}
	for _, t := range s.transitions {
		if t.BillID == billID {
			out = append(out, t)
		}
	}
	return out, nil
}

func (s *Store) ListLineRefunds(_ context.Context, billID int64) ([]models.LineRefund, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := []models.LineRefund{}
	for _, r := range s.refunds {
		if r.BillID == billID {
			out = append(out, r)
		}
	}
	return out, nil
}

func (s *Store) FlushHistory(context.Context) (*models.FlushResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	result := &models.FlushResult{Bills: int64(len(s.bills))}
	for _, b := range s.bills {
		result.Lines += int64(len(b.Lines))
	}

	s.bills = map[int64]*models.Bill{}
	s.transitions = nil
	s.refunds = nil
	s.nextBillID = 0
	s.nextLineID = 0
	s.nextTransitionID = 0
	s.nextRefundID = 0
	return result, nil
}

func (s *Store) ListBillSummaries(_ context.Context, status models.BillStatus, from, to time.Time) ([]models.BillSummary, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := []models.BillSummary{}
	for _, b := range s.sortedBills() {
		if b.Status != status || b.CreatedAt.Before(from) || !b.CreatedAt.Before(to) {
			continue
		}
		out = append(out, models.BillSummary{
			ID:           b.ID,
			SeqCode:      b.SeqCode,
			CreatedAt:    b.CreatedAt,
			TotalAmount:  b.TotalAmount,
			OperatorName: s.operatorName(b.OperatorID),
		})
	}
	return out, nil
}

func (s *Store) ItemSales(_ context.Context, status models.BillStatus, from, to *time.Time) ([]models.ItemSales, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	byItem := map[int64]*models.ItemSales{}
	for _, b := range s.bills {
		if b.Status != status {
			continue
		}
		if from != nil && to != nil && (b.CreatedAt.Before(*from) || !b.CreatedAt.Before(*to)) {
			continue
		}
		for _, l := range b.Lines {
			row, ok := byItem[l.ItemID]
			if !ok {
				it := s.items[l.ItemID]
				row = &models.ItemSales{ItemID: it.ID, Name: it.Name, Code: it.Code, Category: it.Category, Revenue: decimal.Zero}
				byItem[l.ItemID] = row
			}
			row.Quantity += int64(l.Remaining())
			row.Revenue = row.Revenue.Add(l.NetAmount())
		}
	}

	out := []models.ItemSales{}
	for _, row := range byItem {
		if row.Quantity > 0 {
			out = append(out, *row)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Quantity != out[j].Quantity {
			return out[i].Quantity > out[j].Quantity
		}
		return out[i].Name < out[j].Name
	})
	return out, nil
}

func (s *Store) CategorySales(_ context.Context, status models.BillStatus) ([]models.CategorySales, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	byCategory := map[string]decimal.Decimal{}
	for _, b := range s.bills {
		if b.Status != status {
			continue
		}
		for _, l := range b.Lines {
			cat := s.items[l.ItemID].Category
			byCategory[cat] = byCategory[cat].Add(l.NetAmount())
		}
	}

	out := make([]models.CategorySales, 0, len(byCategory))
	for cat, rev := range byCategory {
		out = append(out, models.CategorySales{Category: cat, Revenue: rev})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Category < out[j].Category })
	return out, nil
}

// sortedBills returns stored bills oldest first. Callers hold the lock.
func (s *Store) sortedBills() []*models.Bill {
	bills := make([]*models.Bill, 0, len(s.bills))
	for _, b := range s.bills {
		bills = append(bills, b)
	}
	sort.Slice(bills, func(i, j int) bool {
		if !bills[i].CreatedAt.Equal(bills[j].CreatedAt) {
			return bills[i].CreatedAt.Before(bills[j].CreatedAt)
		}
		return bills[i].ID < bills[j].ID
	})
	return bills
}

// view copies a stored bill and fills the joined columns.
func (s *Store) view(b *models.Bill) *models.Bill {
	v := cloneBill(b)
	v.OperatorName = s.operatorName(b.OperatorID)
	for i := range v.Lines {
		it := s.items[v.Lines[i].ItemID]
		v.Lines[i].ItemCode = it.Code
		v.Lines[i].ItemName = it.Name
	}
	return v
}

func (s *Store) operatorName(id *int64) *string {
	if id == nil {
		return nil
	}
	op, ok := s.operators[*id]
	if !ok {
		return nil
	}
	name := op.Username
	return &name
}

func cloneBill(b *models.Bill) *models.Bill {
	cp := *b
	cp.Lines = append([]models.BillLine(nil), b.Lines...)
	if b.CustomerName != nil {
		name := *b.CustomerName
		cp.CustomerName = &name
	}
	return &cp
}
