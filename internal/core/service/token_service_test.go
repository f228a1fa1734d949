package service

import (
	"errors"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/compupay/hr-backend/internal/core/domain"
)

func TestTokenService_SessionRoundTrip(t *testing.T) {
	s := NewTokenService("secret")

	tok, err := s.IssueSession(domain.SessionClaims{UserID: "u1", Role: domain.RoleAdmin, Type: domain.TokenRefresh}, time.Hour)
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	claims, err := s.VerifySession(tok)
	if err != nil {
		t.Fatalf("verify: %v", err)
	}
	if claims.UserID != "u1" || claims.Role != domain.RoleAdmin || claims.Type != domain.TokenRefresh {
		t.Fatalf("unexpected claims %+v", claims)
	}
}

func TestTokenService_Failures(t *testing.T) {
	clock := &fakeClock{now: time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)}
	s := NewTokenService("secret")
	s.now = clock.Now

	valid, _ := s.IssueSession(domain.SessionClaims{UserID: "u1", Type: domain.TokenAccess}, time.Minute)

	other := NewTokenService("other")
	other.now = clock.Now
	foreign, _ := other.IssueSession(domain.SessionClaims{UserID: "u1"}, time.Minute)

	unsigned, err := jwt.NewWithClaims(jwt.SigningMethodNone, jwt.MapClaims{
		"id":  "u1",
		"exp": clock.now.Add(time.Hour).Unix(),
	}).SignedString(jwt.UnsafeAllowNoneSignatureType)
	if err != nil {
		t.Fatalf("sign none: %v", err)
	}

	noExpiry, _ := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{"id": "u1"}).SignedString([]byte("secret"))

	tests := []struct {
		name  string
		token string
		want  error
	}{
		{"empty", "", ErrTokenInvalid},
		{"malformed", "abc.def", ErrTokenInvalid},
		{"foreign secret", foreign, ErrTokenSignature},
		{"alg none", unsigned, ErrTokenSignature},
		{"missing exp", noExpiry, ErrTokenInvalid},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := s.VerifySession(tt.token); !errors.Is(err, tt.want) {
				t.Fatalf("expected %v, got %v", tt.want, err)
			}
		})
	}

	clock.Advance(2 * time.Minute)
	if _, err := s.VerifySession(valid); !errors.Is(err, ErrTokenExpired) {
		t.Fatalf("expected ErrTokenExpired, got %v", err)
	}
}

func TestTokenService_ResetCarriesEmail(t *testing.T) {
	s := NewTokenService("secret")

	tok, err := s.IssueReset(domain.ResetClaims{Email: "a@b.c"}, time.Minute)
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	claims, err := s.VerifyReset(tok)
	if err != nil {
		t.Fatalf("verify: %v", err)
	}
	if claims.Email != "a@b.c" {
		t.Fatalf("expected email a@b.c, got %q", claims.Email)
	}
}
