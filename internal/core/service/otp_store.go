package service

import (
	"context"
	"crypto/rand"
	"crypto/subtle"
	"fmt"
	"math/big"
	"time"

	"github.com/compupay/hr-backend/internal/core/domain"
	"github.com/compupay/hr-backend/internal/core/ports"
)

// OtpPolicy holds the OTP validity window and the code length per purpose.
type OtpPolicy struct {
	TTL            time.Duration
	ResetDigits    int
	RegisterDigits int
}

// DefaultOtpPolicy keeps the historical lengths: six digits for password
// reset, five for registration.
var DefaultOtpPolicy = OtpPolicy{TTL: 5 * time.Minute, ResetDigits: 6, RegisterDigits: 5}

func (p OtpPolicy) digits(purpose domain.OtpPurpose) int {
	d := p.ResetDigits
	if purpose == domain.OtpRegistration {
		d = p.RegisterDigits
	}
	if d <= 0 {
		d = 6
	}
	return d
}

// OtpStore issues and consumes one-time codes, one active code per email.
type OtpStore struct {
	repo   ports.OtpRepository
	policy OtpPolicy
	now    func() time.Time
}

func NewOtpStore(repo ports.OtpRepository, policy OtpPolicy) *OtpStore {
	if policy.TTL <= 0 {
		policy.TTL = DefaultOtpPolicy.TTL
	}
	return &OtpStore{repo: repo, policy: policy, now: time.Now}
}

// TTL is the validity window applied to new codes.
func (s *OtpStore) TTL() time.Duration { return s.policy.TTL }

// Issue generates a code for purpose, replaces any record held for email and
// returns the plaintext code.
func (s *OtpStore) Issue(ctx context.Context, email string, purpose domain.OtpPurpose) (string, error) {
	code, err := randomCode(s.policy.digits(purpose))
	if err != nil {
		return "", fmt.Errorf("generate otp: %w", err)
	}

	now := s.now().UTC()
	otp := &domain.Otp{
		Email:     email,
		Code:      code,
		ExpiredAt: now.Add(s.policy.TTL),
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.repo.Upsert(ctx, otp); err != nil {
		return "", fmt.Errorf("store otp: %w", err)
	}
	return code, nil
}

// VerifyAndConsume deletes the record for email when code matches and has not
// expired. It returns domain.ErrInvalidOTP for a missing record or a wrong
// code and domain.ErrOTPExpired past the expiry.
func (s *OtpStore) VerifyAndConsume(ctx context.Context, email, code string) error {
	record, err := s.repo.FindByEmail(ctx, email)
	if err != nil {
		return fmt.Errorf("find otp: %w", err)
	}
	if record == nil || subtle.ConstantTimeCompare([]byte(record.Code), []byte(code)) != 1 {
		return domain.ErrInvalidOTP
	}
	if record.Expired(s.now()) {
		return domain.ErrOTPExpired
	}
	if err := s.repo.Delete(ctx, email); err != nil {
		return fmt.Errorf("consume otp: %w", err)
	}
	return nil
}

// randomCode returns a uniformly random number with exactly digits digits.
func randomCode(digits int) (string, error) {
	low := new(big.Int).Exp(big.NewInt(10), big.NewInt(int64(digits-1)), nil)
	span := new(big.Int).Sub(new(big.Int).Mul(low, big.NewInt(10)), low)
	n, err := rand.Int(rand.Reader, span)
	if err != nil {
		return "", err
	}
	return n.Add(n, low).String(), nil
}
