package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"

	"github.com/ignite/newsletter/internal/auth"
)

// OperatorRepo implements auth.CredentialStore against the users table.
type OperatorRepo struct{ db *sql.DB }

// NewOperatorRepo creates a Postgres-backed operator repository.
func NewOperatorRepo(db *sql.DB) *OperatorRepo { return &OperatorRepo{db: db} }

func (r *OperatorRepo) FindOperator(ctx context.Context, username, passwordHash string) (uuid.UUID, error) {
	var id uuid.UUID
	err := r.db.QueryRowContext(ctx, `
		SELECT user_id FROM users WHERE username = $1 AND password_hash = $2
	`, username, passwordHash).Scan(&id)
	if err == sql.ErrNoRows {
		return uuid.Nil, auth.ErrInvalidCredentials
	}
	if err != nil {
		return uuid.Nil, fmt.Errorf("find operator: %w", err)
	}
	return id, nil
}

// CreateOperator inserts an operator credential and returns its id.
func (r *OperatorRepo) CreateOperator(ctx context.Context, username, passwordHash string) (uuid.UUID, error) {
	id := uuid.New()
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO users (user_id, username, password_hash) VALUES ($1, $2, $3)
	`, id, username, passwordHash)
	if err != nil {
		if isUniqueViolation(err) {
			return uuid.Nil, auth.ErrOperatorExists
		}
		return uuid.Nil, fmt.Errorf("create operator: %w", err)
	}
	return id, nil
}
