package repository

import (
	"context"

	"github.com/nofumex/onion-shop/internal/models"
)

type UserRepository interface {
	// Register upserts the account; the handle is rewritten only when it
	// differs from the stored value.
	Register(ctx context.Context, userID int64, username string) error
	// GetByUsername matches case-insensitively; the caller strips any
	// leading "@".
	GetByUsername(ctx context.Context, username string) (*models.User, error)
	// GetBalance returns 0 for an unknown identity.
	GetBalance(ctx context.Context, userID int64) (int64, error)
	// ChangeBalance atomically applies delta, creating the account at
	// balance 0 first when absent. No floor is enforced here.
	ChangeBalance(ctx context.Context, userID int64, delta int64) (newBalance int64, err error)
	CountUsers(ctx context.Context) (int64, error)
}
