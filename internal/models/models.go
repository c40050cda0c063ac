package models

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Item represents a sellable catalog entry. Price is tax inclusive.
type Item struct {
	ID        int64           `db:"id" json:"id"`
	Code      string          `db:"product_code" json:"code"`
	Name      string          `db:"name" json:"name"`
	Category  string          `db:"category" json:"category"`
	Price     decimal.Decimal `db:"price" json:"price"`
	CreatedAt time.Time       `db:"created_at" json:"created_at"`
}

// Operator is a user allowed to ring up bills.
type Operator struct {
	ID           int64     `db:"id" json:"id"`
	Username     string    `db:"username" json:"username"`
	PasswordHash string    `db:"password_hash" json:"-"`
	Role         string    `db:"role" json:"role"`
	CreatedAt    time.Time `db:"created_at" json:"created_at"`
}

// Operator roles
const (
	RoleAdmin = "admin"
	RoleStaff = "staff"
)

// IsAdmin reports whether the operator may use back-office endpoints.
func (o *Operator) IsAdmin() bool {
	return o != nil && o.Role == RoleAdmin
}

// BillStatus is the lifecycle state of a bill.
type BillStatus string

// Bill statuses
const (
	BillStatusActive    BillStatus = "ACTIVE"
	BillStatusRefunded  BillStatus = "REFUNDED"
	BillStatusCancelled BillStatus = "CANCELLED"
)

// ParseBillStatus accepts any casing and surrounding whitespace.
func ParseBillStatus(s string) (BillStatus, bool) {
	switch st := BillStatus(strings.ToUpper(strings.TrimSpace(s))); st {
	case BillStatusActive, BillStatusRefunded, BillStatusCancelled:
		return st, true
	}
	return "", false
}

// Bill represents one sales transaction
type Bill struct {
	ID             int64           `db:"id" json:"id"`
	SeqCode        string          `db:"seq_code" json:"seq_code"`
	CreatedAt      time.Time       `db:"created_at" json:"created_at"`
	CustomerName   *string         `db:"customer_name" json:"customer_name"`
	TotalAmount    decimal.Decimal `db:"total_amount" json:"total_amount"`
	Status         BillStatus      `db:"status" json:"status"`
	Note           string          `db:"note" json:"note"`
	OperatorID     *int64          `db:"operator_id" json:"operator_id,omitempty"`
	OperatorName   *string         `db:"operator_name" json:"operator"`
	IdempotencyKey *string         `db:"idempotency_key" json:"-"`
	RequestHash    *string         `db:"request_hash" json:"-"`
	Lines          []BillLine      `db:"-" json:"lines,omitempty"`
}

// BillLine is an item-and-quantity entry priced at sale time
type BillLine struct {
	ID          int64           `db:"id" json:"id"`
	BillID      int64           `db:"bill_id" json:"bill_id"`
	ItemID      int64           `db:"item_id" json:"item_id"`
	ItemCode    string          `db:"item_code" json:"code"`
	ItemName    string          `db:"item_name" json:"name"`
	UnitPrice   decimal.Decimal `db:"unit_price" json:"unit_price"`
	Quantity    int             `db:"quantity" json:"quantity"`
	RefundedQty int             `db:"refunded_qty" json:"refunded_qty"`
	LineTotal   decimal.Decimal `db:"line_total" json:"line_total"`
}

// Remaining is the number of units that can still be refunded.
func (l BillLine) Remaining() int {
	return l.Quantity - l.RefundedQty
}

// NetAmount is the value of the units not refunded.
func (l BillLine) NetAmount() decimal.Decimal {
	return l.UnitPrice.Mul(decimal.NewFromInt(int64(l.Remaining())))
}

// ExpectedTotal recomputes the bill total from its lines.
func (b *Bill) ExpectedTotal() decimal.Decimal {
	total := decimal.Zero
	for _, l := range b.Lines {
		total = total.Add(l.NetAmount())
	}
	return total
}

// HasRefunds reports whether any line has refunded units.
func (b *Bill) HasRefunds() bool {
	for _, l := range b.Lines {
		if l.RefundedQty > 0 {
			return true
		}
	}
	return false
}

// Line returns the line with the given id, if it is on this bill.
func (b *Bill) Line(lineID int64) (*BillLine, bool) {
	for i := range b.Lines {
		if b.Lines[i].ID == lineID {
			return &b.Lines[i], true
		}
	}
	return nil, false
}

// AppendNote adds a fragment to the bill note, never overwriting it.
func (b *Bill) AppendNote(fragment string) {
	fragment = strings.TrimSpace(fragment)
	if fragment == "" {
		return
	}
	if b.Note == "" {
		b.Note = fragment
		return
	}
	b.Note = b.Note + " " + fragment
}

// StatusTransition is an append-only record of a status change.
type StatusTransition struct {
	ID         int64      `db:"id" json:"id"`
	BillID     int64      `db:"bill_id" json:"bill_id"`
	FromStatus BillStatus `db:"from_status" json:"from_status"`
	ToStatus   BillStatus `db:"to_status" json:"to_status"`
	Note       string     `db:"note" json:"note"`
	OperatorID *int64     `db:"operator_id" json:"operator_id,omitempty"`
	CreatedAt  time.Time  `db:"created_at" json:"created_at"`
}

// LineRefund is an append-only record of a partial refund.
type LineRefund struct {
	ID         int64           `db:"id" json:"id"`
	BillID     int64           `db:"bill_id" json:"bill_id"`
	BillLineID int64           `db:"bill_line_id" json:"bill_line_id"`
	Quantity   int             `db:"quantity" json:"quantity"`
	UnitPrice  decimal.Decimal `db:"unit_price" json:"unit_price"`
	Amount     decimal.Decimal `db:"amount" json:"amount"`
	Reason     string          `db:"reason" json:"reason"`
	OperatorID *int64          `db:"operator_id" json:"operator_id,omitempty"`
	CreatedAt  time.Time       `db:"created_at" json:"created_at"`
}

// BillHistory groups the audit trail of a bill.
type BillHistory struct {
	BillID      int64              `json:"bill_id"`
	Transitions []StatusTransition `json:"transitions"`
	Refunds     []LineRefund       `json:"refunds"`
}

// FlushResult reports what a history flush removed.
type FlushResult struct {
	Bills int64 `json:"bills"`
	Lines int64 `json:"lines"`
}
