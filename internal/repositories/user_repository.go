package repositories

import (
	"context"

	"kedai/internal/models"
)

// UserRepository defines the interface for user data access.
type UserRepository interface {
	Create(ctx context.Context, user *models.User) error
	GetByUsername(ctx context.Context, username string) (*models.User, error)
	GetByEmail(ctx context.Context, email string) (*models.User, error)
	GetByID(ctx context.Context, id string) (*models.User, error)
	// Update saves the profile fields and password hash of user. It never
	// writes the loyalty balance.
	Update(ctx context.Context, user *models.User) error
	// AddLoyaltyPoints atomically adds delta to the user's balance.
	AddLoyaltyPoints(ctx context.Context, id string, delta int64) error
}
