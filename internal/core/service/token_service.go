package service

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/compupay/hr-backend/internal/core/domain"
)

var (
	ErrTokenInvalid   = errors.New("invalid token")
	ErrTokenExpired   = errors.New("token expired")
	ErrTokenSignature = errors.New("invalid signature")
)

type sessionClaims struct {
	domain.SessionClaims
	jwt.RegisteredClaims
}

type resetClaims struct {
	domain.ResetClaims
	jwt.RegisteredClaims
}

// TokenService signs and verifies HS256 tokens. It does not interpret the
// token type claim; callers decide which types they accept.
type TokenService struct {
	secret []byte
	now    func() time.Time
}

func NewTokenService(secret string) *TokenService {
	return &TokenService{secret: []byte(secret), now: time.Now}
}

func (s *TokenService) IssueSession(claims domain.SessionClaims, ttl time.Duration) (string, error) {
	return s.sign(&sessionClaims{
		SessionClaims:    claims,
		RegisteredClaims: s.window(claims.UserID, ttl),
	})
}

func (s *TokenService) VerifySession(token string) (domain.SessionClaims, error) {
	var c sessionClaims
	if err := s.parse(token, &c); err != nil {
		return domain.SessionClaims{}, err
	}
	return c.SessionClaims, nil
}

func (s *TokenService) IssueReset(claims domain.ResetClaims, ttl time.Duration) (string, error) {
	return s.sign(&resetClaims{
		ResetClaims:      claims,
		RegisteredClaims: s.window("", ttl),
	})
}

func (s *TokenService) VerifyReset(token string) (domain.ResetClaims, error) {
	var c resetClaims
	if err := s.parse(token, &c); err != nil {
		return domain.ResetClaims{}, err
	}
	return c.ResetClaims, nil
}

func (s *TokenService) window(subject string, ttl time.Duration) jwt.RegisteredClaims {
	now := s.now()
	return jwt.RegisteredClaims{
		Subject:   subject,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
	}
}

func (s *TokenService) sign(claims jwt.Claims) (string, error) {
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
}

// parse maps every jwt failure onto one of ErrTokenInvalid, ErrTokenExpired
// and ErrTokenSignature.
func (s *TokenService) parse(token string, claims jwt.Claims) error {
	if token == "" {
		return ErrTokenInvalid
	}
	tkn, err := jwt.ParseWithClaims(token, claims, func(*jwt.Token) (any, error) {
		return s.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(s.now),
		jwt.WithExpirationRequired(),
	)
	switch {
	case err == nil && tkn.Valid:
		return nil
	case errors.Is(err, jwt.ErrTokenExpired):
		return ErrTokenExpired
	case errors.Is(err, jwt.ErrTokenSignatureInvalid):
		return ErrTokenSignature
	default:
		return ErrTokenInvalid
	}
}
