package service

import (
	"context"
	"strings"
	"time"

	"pos-service/internal/apperror"
	"pos-service/internal/models"
	"pos-service/internal/util"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

const (
	catalogCachePrefix = "catalog:"
	catalogCacheKey    = catalogCachePrefix + "items"
)

// CatalogService manages sellable items
type CatalogService struct {
	repo     CatalogRepository
	cache    Cache
	cacheTTL time.Duration
	logger   *zap.Logger
}

// NewCatalogService creates a new catalog service. cache may be nil.
func NewCatalogService(repo CatalogRepository, cache Cache, cacheTTL time.Duration) *CatalogService {
	return &CatalogService{
		repo:     repo,
		cache:    cacheOrNop(cache),
		cacheTTL: cacheTTL,
		logger:   util.GetLogger(),
	}
}

// CreateItemRequest represents a request to add an item to the catalog
type CreateItemRequest struct {
	Code     string           `json:"code" validate:"required,max=20"`
	Name     string           `json:"name" validate:"required,max=120"`
	Category string           `json:"category" validate:"required,max=80"`
	Price    *decimal.Decimal `json:"price" validate:"required"`
}

// ListItems returns the catalog ordered by category, name
func (s *CatalogService) ListItems(ctx context.Context) ([]models.Item, error) {
	ctx, span := util.StartSpan(ctx, "CatalogService.ListItems")
	defer span.End()

	var items []models.Item
	if hit, err := s.cache.GetJSON(ctx, catalogCacheKey, &items); err != nil {
		s.logger.Warn("Catalog cache read failed", zap.Error(err))
	} else if hit {
		return items, nil
	}

	items, err := s.repo.ListItems(ctx)
	if err != nil {
		return nil, util.RecordError(span, err)
	}

	if err := s.cache.SetJSON(ctx, catalogCacheKey, items, s.cacheTTL); err != nil {
		s.logger.Warn("Catalog cache write failed", zap.Error(err))
	}
	return items, nil
}

func (s *CatalogService) ListCategories(ctx context.Context) ([]string, error) {
	return s.repo.ListCategories(ctx)
}

// Lookup resolves an item by numeric id or product code
func (s *CatalogService) Lookup(ctx context.Context, id int64, code string) (*models.Item, error) {
	if id > 0 {
		return s.repo.GetItemByID(ctx, id)
	}
	code = strings.ToUpper(strings.TrimSpace(code))
	if code == "" {
		return nil, apperror.ErrInvalidInput.WithMessage("item id or code is required")
	}
	return s.repo.GetItemByCode(ctx, code)
}

// CreateItem adds an item. The product code is stored upper-case.
func (s *CatalogService) CreateItem(ctx context.Context, req *CreateItemRequest) (*models.Item, error) {
	ctx, span := util.StartSpan(ctx, "CatalogService.CreateItem")
	defer span.End()

	req.Code = strings.ToUpper(strings.TrimSpace(req.Code))
	req.Name = strings.TrimSpace(req.Name)
	req.Category = strings.TrimSpace(req.Category)
	if err := validateStruct(req); err != nil {
		return nil, err
	}
	if req.Price.IsNegative() {
		return nil, apperror.ErrInvalidPrice
	}

	item := &models.Item{
		Code:     req.Code,
		Name:     req.Name,
		Category: req.Category,
		Price:    req.Price.Round(2),
	}
	if err := s.repo.CreateItem(ctx, item); err != nil {
		return nil, util.RecordError(span, err)
	}

	s.logger.Info("Item created", zap.Int64("item_id", item.ID), zap.String("code", item.Code))
	s.invalidate(ctx)
	return item, nil
}

// UpdatePrice changes the catalog price. Existing bill lines keep their price.
func (s *CatalogService) UpdatePrice(ctx context.Context, id int64, price decimal.Decimal) (*models.Item, error) {
	ctx, span := util.StartSpan(ctx, "CatalogService.UpdatePrice")
	defer span.End()

	if price.IsNegative() {
		return nil, apperror.ErrInvalidPrice
	}

	item, err := s.repo.UpdateItemPrice(ctx, id, price.Round(2))
	if err != nil {
		return nil, util.RecordError(span, err)
	}

	s.logger.Info("Item price updated", zap.Int64("item_id", id), zap.String("price", item.Price.StringFixed(2)))
	s.invalidate(ctx)
	return item, nil
}

// DeleteItem removes an item that has never been sold
func (s *CatalogService) DeleteItem(ctx context.Context, id int64) error {
	ctx, span := util.StartSpan(ctx, "CatalogService.DeleteItem")
	defer span.End()

	if err := s.repo.DeleteItem(ctx, id); err != nil {
		return util.RecordError(span, err)
	}

	s.logger.Info("Item deleted", zap.Int64("item_id", id))
	s.invalidate(ctx)
	return nil
}

func (s *CatalogService) invalidate(ctx context.Context) {
	if _, err := s.cache.DeletePrefix(ctx, catalogCachePrefix); err != nil {
		s.logger.Warn("Catalog cache invalidation failed", zap.Error(err))
	}
}
