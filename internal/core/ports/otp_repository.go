package ports

import (
	"context"

	"github.com/compupay/hr-backend/internal/core/domain"
)

// OtpRepository stores at most one OTP per email.
type OtpRepository interface {
	// Upsert replaces any record for otp.Email.
	Upsert(ctx context.Context, otp *domain.Otp) error
	// FindByEmail returns (nil, nil) when no record exists.
	FindByEmail(ctx context.Context, email string) (*domain.Otp, error)
	Delete(ctx context.Context, email string) error
}
