// Package memstore keeps the catalog and bill history in process memory.
// It backs STORE_DRIVER=memory for demos and the service tests.
package memstore

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"pos-service/internal/apperror"
	"pos-service/internal/models"
)

type Store struct {
	mu  sync.RWMutex
	now func() time.Time

	items       map[int64]models.Item
	operators   map[int64]models.Operator
	bills       map[int64]*models.Bill
	transitions []models.StatusTransition
	refunds     []models.LineRefund

	nextItemID       int64
	nextOperatorID   int64
	nextBillID       int64
	nextLineID       int64
	nextTransitionID int64
	nextRefundID     int64
}

type Option func(*Store)

// WithClock overrides the time source used for created_at stamps.
func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

func New(opts ...Option) *Store {
	s := &Store{
		now:       time.Now,
		items:     map[int64]models.Item{},
		operators: map[int64]models.Operator{},
		bills:     map[int64]*models.Bill{},
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Init seeds operators and, when the catalog is empty, the menu.
func (s *Store) Init(_ context.Context, operators []models.Operator, menu []models.Item) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, op := range operators {
		if s.operatorByUsername(op.Username) != nil {
			continue
		}
		s.nextOperatorID++
		op.ID = s.nextOperatorID
		op.CreatedAt = s.now()
		s.operators[op.ID] = op
	}

	if len(s.items) == 0 {
		for _, item := range menu {
			s.nextItemID++
			item.ID = s.nextItemID
			item.CreatedAt = s.now()
			s.items[item.ID] = item
		}
	}
	return nil
}

func (s *Store) Ping(context.Context) error { return nil }

func (s *Store) Close() error { return nil }

func (s *Store) ListItems(context.Context) ([]models.Item, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	items := make([]models.Item, 0, len(s.items))
	for _, it := range s.items {
		items = append(items, it)
	}
	sort.Slice(items, func(i, j int) bool {
		if items[i].Category != items[j].Category {
			return items[i].Category < items[j].Category
		}
		return items[i].Name < items[j].Name
	})
	return items, nil
}

func (s *Store) ListCategories(context.Context) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	seen := map[string]bool{}
	categories := []string{}
	for _, it := range s.items {
		if !seen[it.Category] {
			seen[it.Category] = true
			categories = append(categories, it.Category)
		}
	}
	sort.Strings(categories)
	return categories, nil
}

func (s *Store) GetItemByID(_ context.Context, id int64) (*models.Item, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	it, ok := s.items[id]
	if !ok {
		return nil, apperror.NotFound("item")
	}
	return &it, nil
}

func (s *Store) GetItemByCode(_ context.Context, code string) (*models.Item, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if it := s.itemByCode(code); it != nil {
		cp := *it
		return &cp, nil
	}
	return nil, apperror.NotFound("item")
}

func (s *Store) GetItemsByIDs(_ context.Context, ids []int64) ([]models.Item, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	items := []models.Item{}
	for _, id := range ids {
		if it, ok := s.items[id]; ok {
			items = append(items, it)
		}
	}
	return items, nil
}

func (s *Store) GetItemsByCodes(_ context.Context, codes []string) ([]models.Item, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	items := []models.Item{}
	for _, code := range codes {
		if it := s.itemByCode(code); it != nil {
			items = append(items, *it)
		}
	}
	return items, nil
}

func (s *Store) CreateItem(_ context.Context, item *models.Item) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.itemByCode(item.Code) != nil {
		return apperror.ErrDuplicateCode
	}
	s.nextItemID++
	item.ID = s.nextItemID
	item.CreatedAt = s.now()
	s.items[item.ID] = *item
	return nil
}

func (s *Store) UpdateItemPrice(_ context.Context, id int64, price decimal.Decimal) (*models.Item, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	it, ok := s.items[id]
	if !ok {
		return nil, apperror.NotFound("item")
	}
	it.Price = price
	s.items[id] = it
	return &it, nil
}

func (s *Store) DeleteItem(_ context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.items[id]; !ok {
		return apperror.NotFound("item")
	}
	for _, b := range s.bills {
		for _, l := range b.Lines {
			if l.ItemID == id {
				return apperror.ErrItemInUse
			}
		}
	}
	delete(s.items, id)
	return nil
}

func (s *Store) itemByCode(code string) *models.Item {
	code = strings.ToUpper(code)
	for _, it := range s.items {
		if it.Code == code {
			it := it
			return &it
		}
	}
	return nil
}

func (s *Store) GetOperatorByUsername(_ context.Context, username string) (*models.Operator, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if op := s.operatorByUsername(username); op != nil {
		return op, nil
	}
	return nil, apperror.NotFound("operator")
}

func (s *Store) GetOperatorByID(_ context.Context, id int64) (*models.Operator, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	op, ok := s.operators[id]
	if !ok {
		return nil, apperror.NotFound("operator")
	}
	return &op, nil
}

func (s *Store) operatorByUsername(username string) *models.Operator {
	for _, op := range s.operators {
		if op.Username == username {
			op := op
			return &op
		}
	}
	return nil
}
