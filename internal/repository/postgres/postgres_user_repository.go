package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"

	"github.com/nofumex/onion-shop/internal/models"
	pkgerrors "github.com/nofumex/onion-shop/pkg/errors"
)

type PostgresUserRepository struct {
	db *sql.DB
}

func NewPostgresUserRepository(db *sql.DB) *PostgresUserRepository {
	return &PostgresUserRepository{db: db}
}

func (r *PostgresUserRepository) Register(ctx context.Context, userID int64, username string) error {
	query := `
	INSERT INTO users (id, username, balance)
	VALUES ($1, $2, 0)
	ON CONFLICT (id) DO UPDATE SET username = EXCLUDED.username
	WHERE users.username IS DISTINCT FROM EXCLUDED.username
	`
	if _, err := r.db.ExecContext(ctx, query, userID, username); err != nil {
		slog.Error("failed to register user", "method", "Register", "user_id", userID, "error", err)
		return fmt.Errorf("failed to register user: %w", err)
	}
	return nil
}

func (r *PostgresUserRepository) GetByUsername(ctx context.Context, username string) (*models.User, error) {
	if username == "" {
		return nil, pkgerrors.ErrInvalidInput
	}

	// Handles are not unique; ORDER BY id keeps the arbitrary first match
	// stable run to run.
	query := `
	SELECT id, username, balance, created_at
	FROM users
	WHERE LOWER(username) = LOWER($1)
	ORDER BY id
	LIMIT 1
	`
	var user models.User
	err := r.db.QueryRowContext(ctx, query, username).Scan(
		&user.ID,
		&user.Username,
		&user.Balance,
		&user.CreatedAt,
	)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		return nil, pkgerrors.ErrIdentityNotFound
	case err != nil:
		return nil, fmt.Errorf("failed to get user by username: %w", err)
	}
	return &user, nil
}

func (r *PostgresUserRepository) GetBalance(ctx context.Context, userID int64) (int64, error) {
	var balance int64
	query := `SELECT COALESCE((SELECT balance FROM users WHERE id = $1), 0)`
	if err := r.db.QueryRowContext(ctx, query, userID).Scan(&balance); err != nil {
		slog.Error("failed to get balance", "method", "GetBalance", "user_id", userID, "error", err)
		return 0, fmt.Errorf("failed to get balance: %w", err)
	}
	return balance, nil
}

func (r *PostgresUserRepository) ChangeBalance(ctx context.Context, userID int64, delta int64) (newBalance int64, err error) {
	// Upsert keeps the read-modify-write on the server side: an unknown
	// identity is created at 0 and the delta applied in one statement.
	query := `
	INSERT INTO users (id, balance)
	VALUES ($1, $2)
	ON CONFLICT (id) DO UPDATE SET balance = users.balance + $2
	RETURNING balance
	`
	err = r.db.QueryRowContext(ctx, query, userID, delta).Scan(&newBalance)
	if err != nil {
		slog.Error("failed to change balance", "method", "ChangeBalance", "user_id", userID, "delta", delta, "error", err)
		return 0, fmt.Errorf("failed to change balance: %w", err)
	}
	return newBalance, nil
}

func (r *PostgresUserRepository) CountUsers(ctx context.Context) (int64, error) {
	var count int64
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM users`).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count users: %w", err)
	}
	return count, nil
}
