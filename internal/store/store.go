package store

import (
	"context"
	_ "embed"
	"errors"
	"fmt"
	"time"

	"pos-service/internal/apperror"
	"pos-service/internal/models"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
)

//go:embed schema.sql
var schemaSQL string

// Postgres error codes
const (
	pqUniqueViolation     = "23505"
	pqForeignKeyViolation = "23503"
)

type Store struct {
	db *sqlx.DB
}

// NewStore creates a new database store
func NewStore(databaseURL string) (*Store, error) {
	db, err := sqlx.Connect("postgres", databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return &Store{db: db}, nil
}

// Close closes the database connection
func (s *Store) Close() error {
	return s.db.Close()
}

// Ping is used by the readiness probe.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Init creates the schema and seeds operators and, on an empty catalog, the menu.
// It is called once at startup.
func (s *Store) Init(ctx context.Context, operators []models.Operator, menu []models.Item) error {
	if _, err := s.db.ExecContext(ctx, schemaSQL); err != nil {
		return fmt.Errorf("failed to apply schema: %w", err)
	}

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	for _, op := range operators {
		_, err := tx.ExecContext(ctx,
			"INSERT INTO operators (username, password_hash, role) VALUES ($1, $2, $3) ON CONFLICT (username) DO NOTHING",
			op.Username, op.PasswordHash, op.Role)
		if err != nil {
			return fmt.Errorf("failed to seed operator %s: %w", op.Username, err)
		}
	}

	var itemCount int
	if err := tx.GetContext(ctx, &itemCount, "SELECT COUNT(*) FROM items"); err != nil {
		return err
	}
	if itemCount == 0 {
		for _, item := range menu {
			_, err := tx.ExecContext(ctx,
				"INSERT INTO items (product_code, name, category, price) VALUES ($1, $2, $3, $4) ON CONFLICT (product_code) DO NOTHING",
				item.Code, item.Name, item.Category, item.Price)
			if err != nil {
				return fmt.Errorf("failed to seed item %s: %w", item.Code, err)
			}
		}
	}

	return tx.Commit()
}

func pqCode(err error) string {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return string(pqErr.Code)
	}
	return ""
}

// translate maps constraint violations to domain errors.
func translate(err error, onUnique, onForeignKey *apperror.Error) error {
	switch pqCode(err) {
	case pqUniqueViolation:
		if onUnique != nil {
			return onUnique
		}
	case pqForeignKeyViolation:
		if onForeignKey != nil {
			return onForeignKey
		}
	}
	return err
}
