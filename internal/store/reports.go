package store

import (
	"context"
	"time"

	"pos-service/internal/models"
)

// ListBillSummaries returns bills with the given status created in [from, to), oldest first
func (s *Store) ListBillSummaries(ctx context.Context, status models.BillStatus, from, to time.Time) ([]models.BillSummary, error) {
	bills := []models.BillSummary{}
	err := s.db.SelectContext(ctx, &bills, `
		SELECT b.id, b.seq_code, b.created_at, b.total_amount, o.username AS operator_name
		FROM bills b LEFT JOIN operators o ON o.id = b.operator_id
		WHERE b.status = $1 AND b.created_at >= $2 AND b.created_at < $3
		ORDER BY b.created_at, b.id`,
		status, from, to)
	return bills, err
}

// ItemSales sums net quantity and revenue per item for bills with the given
// status, optionally limited to [from, to). Fully refunded items are left out.
func (s *Store) ItemSales(ctx context.Context, status models.BillStatus, from, to *time.Time) ([]models.ItemSales, error) {
	query := `
		SELECT i.id AS item_id, i.name, i.product_code, i.category,
		       SUM(l.quantity - l.refunded_qty) AS total_qty,
		       SUM(l.unit_price * (l.quantity - l.refunded_qty)) AS total_revenue
		FROM bill_lines l
		JOIN bills b ON b.id = l.bill_id
		JOIN items i ON i.id = l.item_id
		WHERE b.status = $1`
	args := []interface{}{status}
	if from != nil && to != nil {
		query += ` AND b.created_at >= $2 AND b.created_at < $3`
		args = append(args, *from, *to)
	}
	query += `
		GROUP BY i.id, i.name, i.product_code, i.category
		HAVING SUM(l.quantity - l.refunded_qty) > 0
		ORDER BY total_qty DESC, i.name`

	rows := []models.ItemSales{}
	err := s.db.SelectContext(ctx, &rows, query, args...)
	return rows, err
}

// CategorySales sums net revenue per category for bills with the given status
func (s *Store) CategorySales(ctx context.Context, status models.BillStatus) ([]models.CategorySales, error) {
	rows := []models.CategorySales{}
	err := s.db.SelectContext(ctx, &rows, `
		SELECT i.category, SUM(l.unit_price * (l.quantity - l.refunded_qty)) AS revenue
		FROM bill_lines l
		JOIN bills b ON b.id = l.bill_id
		JOIN items i ON i.id = l.item_id
		WHERE b.status = $1
		GROUP BY i.category
		ORDER BY i.category`,
		status)
	return rows, err
}
