package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// BillSummary is one row of the sales-by-range table.
type BillSummary struct {
	ID           int64           `db:"id" json:"id"`
	SeqCode      string          `db:"seq_code" json:"seq_code"`
	CreatedAt    time.Time       `db:"created_at" json:"time"`
	TotalAmount  decimal.Decimal `db:"total_amount" json:"total"`
	OperatorName *string         `db:"operator_name" json:"staff"`
}

// SalesReport aggregates ACTIVE bills of one period.
type SalesReport struct {
	Granularity string          `json:"type"`
	Period      string          `json:"date"`
	TotalSales  decimal.Decimal `json:"total_sales"`
	BillCount   int             `json:"bill_count"`
	Bills       []BillSummary   `json:"bills"`
}

// ItemSales is net quantity and revenue per catalog item.
type ItemSales struct {
	ItemID   int64           `db:"item_id" json:"item_id"`
	Name     string          `db:"name" json:"name"`
	Code     string          `db:"product_code" json:"code"`
	Category string          `db:"category" json:"category"`
	Quantity int64           `db:"total_qty" json:"qty"`
	Revenue  decimal.Decimal `db:"total_revenue" json:"revenue"`
}

// CategorySales is net revenue per category.
type CategorySales struct {
	Category string          `db:"category" json:"category"`
	Revenue  decimal.Decimal `db:"revenue" json:"revenue"`
}

// Analysis feeds the dashboard charts.
type Analysis struct {
	CategorySplit map[string]decimal.Decimal `json:"category_split"`
	TrendLabels   []string                   `json:"trend_labels"`
	TrendData     []decimal.Decimal          `json:"trend_data"`
}
