package service

import (
	"context"
	"fmt"
	"time"

	"github.com/compupay/hr-backend/internal/core/domain"
	"github.com/compupay/hr-backend/internal/core/ports"
	"github.com/compupay/hr-backend/internal/core/query"
)

// CredentialStore owns user lookup and password verification and mutation.
// Plaintext passwords never leave it.
type CredentialStore struct {
	users  ports.UserRepository
	hasher ports.PasswordHasher
	now    func() time.Time
}

func NewCredentialStore(users ports.UserRepository, hasher ports.PasswordHasher) *CredentialStore {
	return &CredentialStore{users: users, hasher: hasher, now: time.Now}
}

func (s *CredentialStore) FindByEmail(ctx context.Context, email string) (*domain.User, error) {
	return s.users.FindByEmail(ctx, email)
}

func (s *CredentialStore) FindByID(ctx context.Context, id string, include query.Include) (*domain.User, error) {
	return s.users.FindByID(ctx, id, include)
}

func (s *CredentialStore) EmailRegistered(ctx context.Context, email string) (bool, error) {
	return s.users.ExistsByEmail(ctx, email)
}

// Verify reports whether password matches the stored hash of user.
func (s *CredentialStore) Verify(user *domain.User, password string) bool {
	if user == nil || user.PasswordHash == "" {
		return false
	}
	return s.hasher.Matches(user.PasswordHash, password)
}

func (s *CredentialStore) Hash(password string) (string, error) {
	hash, err := s.hasher.Hash(password)
	if err != nil {
		return "", fmt.Errorf("hash password: %w", err)
	}
	return hash, nil
}

// Create stores a user whose password is already hashed.
func (s *CredentialStore) Create(ctx context.Context, user *domain.User) (*domain.User, error) {
	now := s.now().UTC()
	user.CreatedAt, user.UpdatedAt = now, now
	return s.users.Create(ctx, user)
}

func (s *CredentialStore) UpdatePassword(ctx context.Context, email, password string) error {
	hash, err := s.Hash(password)
	if err != nil {
		return err
	}
	return s.users.UpdatePassword(ctx, email, hash)
}
