package store

import (
	"context"
	"database/sql"

	"pos-service/internal/apperror"
	"pos-service/internal/models"
)

// GetOperatorByUsername retrieves an operator for login
func (s *Store) GetOperatorByUsername(ctx context.Context, username string) (*models.Operator, error) {
	var op models.Operator
	err := s.db.GetContext(ctx, &op, "SELECT * FROM operators WHERE username = $1", username)
	if err == sql.ErrNoRows {
		return nil, apperror.NotFound("operator")
	}
	if err != nil {
		return nil, err
	}
	return &op, nil
}

// GetOperatorByID retrieves an operator by ID
func (s *Store) GetOperatorByID(ctx context.Context, id int64) (*models.Operator, error) {
	var op models.Operator
	err := s.db.GetContext(ctx, &op, "SELECT * FROM operators WHERE id = $1", id)
	if err == sql.ErrNoRows {
		return nil, apperror.NotFound("operator")
	}
	if err != nil {
		return nil, err
	}
	return &op, nil
}
