package middleware

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"
)

type stubLimiter struct {
	allowed bool
	reset   time.Duration
	err     error
	keys    []string
}

func (s *stubLimiter) Allow(_ context.Context, key string) (bool, time.Duration, error) {
	s.keys = append(s.keys, key)
	return s.allowed, s.reset, s.err
}

func runLimited(t *testing.T, limiter Limiter) (*httptest.ResponseRecorder, bool, error) {
	t.Helper()
	e := echo.New()
	req := httptest.NewRequest(http.MethodPost, "/v1/auth/login", nil)
	req.RemoteAddr = "10.0.0.7:5555"
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	c.SetPath("/v1/auth/login")

	called := false
	err := RateLimit(limiter, zerolog.Nop())(func(c echo.Context) error {
		called = true
		return c.NoContent(http.StatusOK)
	})(c)
	return rec, called, err
}

func TestRateLimit_Allows(t *testing.T) {
	limiter := &stubLimiter{allowed: true}
	_, called, err := runLimited(t, limiter)
	if err != nil || !called {
		t.Fatalf("expected pass-through, err=%v called=%v", err, called)
	}
	if limiter.keys[0] != "/v1/auth/login:10.0.0.7" {
		t.Fatalf("unexpected key %q", limiter.keys[0])
	}
}

func TestRateLimit_Rejects(t *testing.T) {
	rec, called, err := runLimited(t, &stubLimiter{allowed: false, reset: 1500 * time.Millisecond})
	if called {
		t.Fatalf("next must not run")
	}
	var he *echo.HTTPError
	if !errors.As(err, &he) || he.Code != http.StatusTooManyRequests {
		t.Fatalf("expected 429, got %v", err)
	}
	if rec.Header().Get("Retry-After") != "2" {
		t.Fatalf("expected Retry-After 2, got %q", rec.Header().Get("Retry-After"))
	}
}

func TestRateLimit_FailsOpen(t *testing.T) {
	_, called, err := runLimited(t, &stubLimiter{err: errors.New("redis down")})
	if err != nil || !called {
		t.Fatalf("limiter failure must let the request through, err=%v called=%v", err, called)
	}
}
