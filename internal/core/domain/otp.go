package domain

import "time"

// OtpPurpose selects the code length and mail template of an issued OTP.
type OtpPurpose string

const (
	OtpPasswordReset OtpPurpose = "password_reset"
	OtpRegistration  OtpPurpose = "registration"
)

// Otp is the single active one-time code for an email address.
type Otp struct {
	Email     string
	Code      string
	ExpiredAt time.Time
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Expired reports whether the code is past its expiry at instant now.
func (o *Otp) Expired(now time.Time) bool {
	return o.ExpiredAt.Before(now)
}
