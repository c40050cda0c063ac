package store

import (
	"context"
	"fmt"

	"pos-service/internal/models"
)

// FlushHistory deletes every bill, line, refund and status record and resets
// their id sequences so the next bill is number 1. Catalog and operators stay.
func (s *Store) FlushHistory(ctx context.Context) (*models.FlushResult, error) {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	var result models.FlushResult
	if err := tx.GetContext(ctx, &result.Bills, "SELECT COUNT(*) FROM bills"); err != nil {
		return nil, err
	}
	if err := tx.GetContext(ctx, &result.Lines, "SELECT COUNT(*) FROM bill_lines"); err != nil {
		return nil, err
	}

	if _, err := tx.ExecContext(ctx,
		"TRUNCATE bill_line_refunds, bill_status_log, bill_lines, bills RESTART IDENTITY"); err != nil {
		return nil, fmt.Errorf("failed to truncate bill history: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}
	return &result, nil
}
