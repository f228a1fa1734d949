package ports

import (
	"context"

	"github.com/compupay/hr-backend/internal/core/domain"
	"github.com/compupay/hr-backend/internal/core/query"
)

// UserRepository persists users. Every read ignores soft-deleted users.
type UserRepository interface {
	// FindByEmail returns the user with its position, or domain.ErrUserNotFound.
	FindByEmail(ctx context.Context, email string) (*domain.User, error)
	// FindByID returns the user with the requested relations, or domain.ErrUserNotFound.
	FindByID(ctx context.Context, id string, include query.Include) (*domain.User, error)
	ExistsByEmail(ctx context.Context, email string) (bool, error)
	// Create inserts user and returns the stored row; a duplicate email yields
	// domain.ErrEmailTaken.
	Create(ctx context.Context, user *domain.User) (*domain.User, error)
	UpdatePassword(ctx context.Context, email, passwordHash string) error
	SoftDelete(ctx context.Context, id string) error
	// List runs a compiled descriptor and returns one page plus the total match count.
	List(ctx context.Context, d query.Descriptor) ([]*domain.User, int64, error)
}
