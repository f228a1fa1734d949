package ports

import (
	"context"

	"github.com/compupay/hr-backend/internal/core/domain"
)

// RegisterInput carries a validated registration payload.
type RegisterInput struct {
	FirstName string
	LastName  string
	Email     string
	Password  string
	Role      domain.Role
}

// LoginResult is returned by a successful login.
type LoginResult struct {
	AccessToken  string
	RefreshToken string
	Role         domain.Role
	Position     string
	User         *domain.User
}

type AuthService interface {
	Login(ctx context.Context, email, password string) (*LoginResult, error)
	Register(ctx context.Context, input RegisterInput) error
	SendOTP(ctx context.Context, email string) (string, error)
	ForgotPassword(ctx context.Context, email string) error
	VerifyOTP(ctx context.Context, email, code string) (string, error)
	ResetPassword(ctx context.Context, resetToken, newPassword string) error
	Refresh(ctx context.Context, refreshToken string) (string, error)
	// Authenticate resolves a bearer access token to its user.
	Authenticate(ctx context.Context, accessToken string) (*domain.User, error)
	Profile(ctx context.Context, userID string) (*domain.User, error)
}
