package store

import (
	"context"
	"database/sql"
	"fmt"

	"pos-service/internal/apperror"
	"pos-service/internal/models"

	"github.com/jmoiron/sqlx"
)

const billColumns = `
	b.id, b.seq_code, b.created_at, b.customer_name, b.total_amount, b.status,
	b.note, b.operator_id, o.username AS operator_name, b.idempotency_key,
	b.request_hash`

const billFrom = `FROM bills b LEFT JOIN operators o ON o.id = b.operator_id`

const lineQuery = `
	SELECT l.id, l.bill_id, l.item_id, i.product_code AS item_code, i.name AS item_name,
	       l.unit_price, l.quantity, l.refunded_qty, l.line_total
	FROM bill_lines l JOIN items i ON i.id = l.item_id
	WHERE l.bill_id = $1
	ORDER BY l.id`

// CreateBill reserves the next bill id, derives the sequence code from it and
// writes the bill with all its lines in one transaction.
func (s *Store) CreateBill(ctx context.Context, bill *models.Bill, codeFor func(id int64) string) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	var id int64
	if err := tx.GetContext(ctx, &id, "SELECT nextval(pg_get_serial_sequence('bills', 'id'))"); err != nil {
		return fmt.Errorf("failed to reserve bill id: %w", err)
	}
	bill.ID = id
	bill.SeqCode = codeFor(id)

	err = tx.QueryRowxContext(ctx, `
		INSERT INTO bills (id, seq_code, customer_name, total_amount, status, note, operator_id,
		                   idempotency_key, request_hash)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING created_at`,
		bill.ID, bill.SeqCode, bill.CustomerName, bill.TotalAmount, bill.Status, bill.Note,
		bill.OperatorID, bill.IdempotencyKey, bill.RequestHash).Scan(&bill.CreatedAt)
	if err != nil {
		return translate(err, apperror.ErrDuplicateRequest, nil)
	}

	for i := range bill.Lines {
		line := &bill.Lines[i]
		line.BillID = bill.ID
		err := tx.GetContext(ctx, &line.ID, `
			INSERT INTO bill_lines (bill_id, item_id, unit_price, quantity, refunded_qty, line_total)
			VALUES ($1, $2, $3, $4, $5, $6)
			RETURNING id`,
			line.BillID, line.ItemID, line.UnitPrice, line.Quantity, line.RefundedQty, line.LineTotal)
		if err != nil {
			return fmt.Errorf("failed to insert bill line: %w", err)
		}
	}

	return tx.Commit()
}

// GetBillByID retrieves a bill with its lines
func (s *Store) GetBillByID(ctx context.Context, id int64) (*models.Bill, error) {
	return s.getBill(ctx, s.db, "SELECT "+billColumns+" "+billFrom+" WHERE b.id = $1", id)
}

// GetBillBySeqCode retrieves a bill by its exact sequence code
func (s *Store) GetBillBySeqCode(ctx context.Context, code string) (*models.Bill, error) {
	return s.getBill(ctx, s.db, "SELECT "+billColumns+" "+billFrom+" WHERE b.seq_code = $1", code)
}

// GetLatestBill retrieves the most recently created bill
func (s *Store) GetLatestBill(ctx context.Context) (*models.Bill, error) {
	bill, err := s.getBill(ctx, s.db, "SELECT "+billColumns+" "+billFrom+" ORDER BY b.id DESC LIMIT 1")
	if apperror.KindOf(err) == apperror.KindNotFound {
		return nil, apperror.ErrEmptyHistory
	}
	return bill, err
}

// GetBillByIdempotencyKey returns nil, nil when no bill carries the key
func (s *Store) GetBillByIdempotencyKey(ctx context.Context, key string) (*models.Bill, error) {
	bill, err := s.getBill(ctx, s.db, "SELECT "+billColumns+" "+billFrom+" WHERE b.idempotency_key = $1", key)
	if apperror.KindOf(err) == apperror.KindNotFound {
		return nil, nil
	}
	return bill, err
}

// ListBills returns the most recent bills, optionally matching one sequence code.
// Lines are not loaded.
func (s *Store) ListBills(ctx context.Context, seqCode string, limit int) ([]models.Bill, error) {
	bills := []models.Bill{}
	var err error
	if seqCode != "" {
		err = s.db.SelectContext(ctx, &bills,
			"SELECT "+billColumns+" "+billFrom+" WHERE b.seq_code = $1 ORDER BY b.created_at DESC, b.id DESC LIMIT $2",
			seqCode, limit)
	} else {
		err = s.db.SelectContext(ctx, &bills,
			"SELECT "+billColumns+" "+billFrom+" ORDER BY b.created_at DESC, b.id DESC LIMIT $1", limit)
	}
	return bills, err
}

// RefundLine locks the bill and line, lets apply validate and mutate them, then
// persists the new refunded quantity, total, note and refund record atomically.
func (s *Store) RefundLine(ctx context.Context, billID, lineID int64,
	apply func(bill *models.Bill, line *models.BillLine) (*models.LineRefund, error)) (*models.Bill, error) {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	bill, err := s.getBill(ctx, tx, "SELECT "+billColumns+" "+billFrom+" WHERE b.id = $1 FOR UPDATE OF b", billID)
	if err != nil {
		return nil, err
	}
	if _, err := tx.ExecContext(ctx, "SELECT 1 FROM bill_lines WHERE id = $1 FOR UPDATE", lineID); err != nil {
		return nil, fmt.Errorf("failed to lock bill line: %w", err)
	}

	line, ok := bill.Line(lineID)
	if !ok {
		return nil, apperror.ErrLineMismatch
	}

	refund, err := apply(bill, line)
	if err != nil {
		return nil, err
	}

	if _, err := tx.ExecContext(ctx,
		"UPDATE bill_lines SET refunded_qty = $1 WHERE id = $2",
		line.RefundedQty, line.ID); err != nil {
		return nil, fmt.Errorf("failed to update bill line: %w", err)
	}
	if _, err := tx.ExecContext(ctx,
		"UPDATE bills SET total_amount = $1, note = $2 WHERE id = $3",
		bill.TotalAmount, bill.Note, bill.ID); err != nil {
		return nil, fmt.Errorf("failed to update bill: %w", err)
	}

	err = tx.QueryRowxContext(ctx, `
		INSERT INTO bill_line_refunds (bill_id, bill_line_id, quantity, unit_price, amount, reason, operator_id)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id, created_at`,
		refund.BillID, refund.BillLineID, refund.Quantity, refund.UnitPrice, refund.Amount,
		refund.Reason, refund.OperatorID).Scan(&refund.ID, &refund.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to record refund: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}
	return bill, nil
}

// SetStatus locks the bill, lets apply decide the transition, then persists the
// status, note and transition record atomically.
func (s *Store) SetStatus(ctx context.Context, billID int64,
	apply func(bill *models.Bill) (*models.StatusTransition, error)) (*models.Bill, error) {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	bill, err := s.getBill(ctx, tx, "SELECT "+billColumns+" "+billFrom+" WHERE b.id = $1 FOR UPDATE OF b", billID)
	if err != nil {
		return nil, err
	}

	transition, err := apply(bill)
	if err != nil {
		return nil, err
	}

	if _, err := tx.ExecContext(ctx,
		"UPDATE bills SET status = $1, note = $2 WHERE id = $3",
		bill.Status, bill.Note, bill.ID); err != nil {
		return nil, fmt.Errorf("failed to update bill status: %w", err)
	}

	err = tx.QueryRowxContext(ctx, `
		INSERT INTO bill_status_log (bill_id, from_status, to_status, note, operator_id)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, created_at`,
		transition.BillID, transition.FromStatus, transition.ToStatus, transition.Note,
		transition.OperatorID).Scan(&transition.ID, &transition.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to record status transition: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}
	return bill, nil
}

// ListStatusTransitions returns the status log of a bill, oldest first
func (s *Store) ListStatusTransitions(ctx context.Context, billID int64) ([]models.StatusTransition, error) {
	transitions := []models.StatusTransition{}
	err := s.db.SelectContext(ctx, &transitions,
		"SELECT * FROM bill_status_log WHERE bill_id = $1 ORDER BY id", billID)
	return transitions, err
}

// ListLineRefunds returns the refunds of a bill, oldest first
func (s *Store) ListLineRefunds(ctx context.Context, billID int64) ([]models.LineRefund, error) {
	refunds := []models.LineRefund{}
	err := s.db.SelectContext(ctx, &refunds,
		"SELECT * FROM bill_line_refunds WHERE bill_id = $1 ORDER BY id", billID)
	return refunds, err
}

func (s *Store) getBill(ctx context.Context, q sqlx.QueryerContext, query string, args ...interface{}) (*models.Bill, error) {
	var bill models.Bill
	err := sqlx.GetContext(ctx, q, &bill, query, args...)
	if err == sql.ErrNoRows {
		return nil, apperror.NotFound("bill")
	}
	if err != nil {
		return nil, err
	}

	bill.Lines = []models.BillLine{}
	if err := sqlx.SelectContext(ctx, q, &bill.Lines, lineQuery, bill.ID); err != nil {
		return nil, fmt.Errorf("failed to load bill lines: %w", err)
	}
	return &bill, nil
}
