package domain

// TokenType discriminates access from refresh tokens inside the payload.
type TokenType string

const (
	TokenAccess  TokenType = "access"
	TokenRefresh TokenType = "refresh"
)

// SessionClaims is the payload of access and refresh tokens.
type SessionClaims struct {
	UserID   string    `json:"id"`
	Role     Role      `json:"role"`
	Position string    `json:"position,omitempty"`
	Type     TokenType `json:"type"`
}

// ResetClaims is the payload of a password-reset token issued after OTP verification.
type ResetClaims struct {
	Email string `json:"email"`
}
