package repository

import (
	"context"

	"github.com/mpetrenko/contacts-api/internal/domain/entity"
)

// UserRepository defines the interface for user-related database operations.
// GetByEmail returns (nil, nil) when no user matches; callers treat that as
// "not found" rather than an error.
type UserRepository interface {
	Create(ctx context.Context, email, passwordHash string) (*entity.User, error)
	GetByEmail(ctx context.Context, email string) (*entity.User, error)
	GetByID(ctx context.Context, id int64) (*entity.User, error)

	// SetRefreshToken unconditionally overwrites the stored refresh token,
	// revoking any other active session for the user.
	SetRefreshToken(ctx context.Context, id int64, token string) error

	// RotateRefreshToken atomically replaces old with next and reports
	// whether the swap happened. A false result means another request
	// rotated first and the presented token is stale.
	RotateRefreshToken(ctx context.Context, id int64, old, next string) (bool, error)

	ClearRefreshToken(ctx context.Context, id int64) error
	ConfirmEmail(ctx context.Context, email string) error
	UpdatePassword(ctx context.Context, email, passwordHash string) error
	UpdateAvatar(ctx context.Context, id int64, url string) error
}
