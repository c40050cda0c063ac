package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Event types
const (
	EventTypeBillCreated       = "BILL_CREATED"
	EventTypeBillLineRefunded  = "BILL_LINE_REFUNDED"
	EventTypeBillStatusChanged = "BILL_STATUS_CHANGED"
	EventTypeHistoryFlushed    = "HISTORY_FLUSHED"
)

// BaseEvent contains common fields for all events
type BaseEvent struct {
	EventID   string    `json:"event_id"`
	EventType string    `json:"event_type"`
	Timestamp time.Time `json:"timestamp"`
}

// BillCreatedEvent published when a bill is rung up
type BillCreatedEvent struct {
	BaseEvent
	BillID      int64           `json:"bill_id"`
	SeqCode     string          `json:"seq_code"`
	OperatorID  *int64          `json:"operator_id,omitempty"`
	TotalAmount decimal.Decimal `json:"total_amount"`
	Lines       []BillLineData  `json:"lines"`
}

// BillLineRefundedEvent published after a partial refund
type BillLineRefundedEvent struct {
	BaseEvent
	BillID       int64           `json:"bill_id"`
	BillLineID   int64           `json:"bill_line_id"`
	Quantity     int             `json:"quantity"`
	Amount       decimal.Decimal `json:"amount"`
	NewBillTotal decimal.Decimal `json:"new_bill_total"`
}

// BillStatusChangedEvent published after a status write
type BillStatusChangedEvent struct {
	BaseEvent
	BillID     int64      `json:"bill_id"`
	FromStatus BillStatus `json:"from_status"`
	ToStatus   BillStatus `json:"to_status"`
	Note       string     `json:"note,omitempty"`
}

// HistoryFlushedEvent published by the maintenance flush
type HistoryFlushedEvent struct {
	BaseEvent
	Bills int64 `json:"bills"`
	Lines int64 `json:"lines"`
}

// BillLineData represents line data in events
type BillLineData struct {
	ItemID    int64           `json:"item_id"`
	Quantity  int             `json:"quantity"`
	UnitPrice decimal.Decimal `json:"unit_price"`
}
