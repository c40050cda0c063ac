package store

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"pos-service/internal/apperror"
	"pos-service/internal/models"

	"github.com/jmoiron/sqlx"
	"github.com/shopspring/decimal"
)

// ListItems returns the catalog ordered by category, name
func (s *Store) ListItems(ctx context.Context) ([]models.Item, error) {
	items := []models.Item{}
	err := s.db.SelectContext(ctx, &items, "SELECT * FROM items ORDER BY category, name")
	return items, err
}

// ListCategories returns distinct categories in alphabetical order
func (s *Store) ListCategories(ctx context.Context) ([]string, error) {
	categories := []string{}
	err := s.db.SelectContext(ctx, &categories, "SELECT DISTINCT category FROM items ORDER BY category")
	return categories, err
}

// GetItemByID retrieves an item by ID
func (s *Store) GetItemByID(ctx context.Context, id int64) (*models.Item, error) {
	var item models.Item
	err := s.db.GetContext(ctx, &item, "SELECT * FROM items WHERE id = $1", id)
	if err == sql.ErrNoRows {
		return nil, apperror.NotFound("item")
	}
	if err != nil {
		return nil, err
	}
	return &item, nil
}

// GetItemByCode retrieves an item by product code
func (s *Store) GetItemByCode(ctx context.Context, code string) (*models.Item, error) {
	var item models.Item
	err := s.db.GetContext(ctx, &item, "SELECT * FROM items WHERE product_code = $1", strings.ToUpper(code))
	if err == sql.ErrNoRows {
		return nil, apperror.NotFound("item")
	}
	if err != nil {
		return nil, err
	}
	return &item, nil
}

// GetItemsByIDs retrieves multiple items by IDs. Unknown ids are skipped.
func (s *Store) GetItemsByIDs(ctx context.Context, ids []int64) ([]models.Item, error) {
	if len(ids) == 0 {
		return []models.Item{}, nil
	}

	query, args, err := sqlx.In("SELECT * FROM items WHERE id IN (?)", ids)
	if err != nil {
		return nil, err
	}
	query = s.db.Rebind(query)

	var items []models.Item
	err = s.db.SelectContext(ctx, &items, query, args...)
	return items, err
}

// GetItemsByCodes retrieves multiple items by product code. Unknown codes are skipped.
func (s *Store) GetItemsByCodes(ctx context.Context, codes []string) ([]models.Item, error) {
	if len(codes) == 0 {
		return []models.Item{}, nil
	}

	upper := make([]string, len(codes))
	for i, c := range codes {
		upper[i] = strings.ToUpper(c)
	}

	query, args, err := sqlx.In("SELECT * FROM items WHERE product_code IN (?)", upper)
	if err != nil {
		return nil, err
	}
	query = s.db.Rebind(query)

	var items []models.Item
	err = s.db.SelectContext(ctx, &items, query, args...)
	return items, err
}

// CreateItem inserts a catalog item
func (s *Store) CreateItem(ctx context.Context, item *models.Item) error {
	query := `
		INSERT INTO items (product_code, name, category, price)
		VALUES ($1, $2, $3, $4)
		RETURNING id, created_at`

	err := s.db.QueryRowxContext(ctx, query, item.Code, item.Name, item.Category, item.Price).
		Scan(&item.ID, &item.CreatedAt)
	if err != nil {
		return translate(err, apperror.ErrDuplicateCode, nil)
	}
	return nil
}

// UpdateItemPrice sets a new price. Past bill lines keep their frozen unit price.
func (s *Store) UpdateItemPrice(ctx context.Context, id int64, price decimal.Decimal) (*models.Item, error) {
	var item models.Item
	err := s.db.GetContext(ctx, &item, "UPDATE items SET price = $1 WHERE id = $2 RETURNING *", price, id)
	if err == sql.ErrNoRows {
		return nil, apperror.NotFound("item")
	}
	if err != nil {
		return nil, fmt.Errorf("failed to update price: %w", err)
	}
	return &item, nil
}

// DeleteItem removes an item that no bill line references
func (s *Store) DeleteItem(ctx context.Context, id int64) error {
	res, err := s.db.ExecContext(ctx, "DELETE FROM items WHERE id = $1", id)
	if err != nil {
		return translate(err, nil, apperror.ErrItemInUse)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return apperror.NotFound("item")
	}
	return nil
}
