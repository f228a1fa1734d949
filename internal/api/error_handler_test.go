package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/compupay/hr-backend/internal/core/domain"
)

func TestHTTPErrorHandler(t *testing.T) {
	tests := []struct {
		name    string
		err     error
		code    int
		message string
		details int
	}{
		{"bad request with details", domain.BadRequest("Validation error", domain.FieldError{Field: "email", Message: "email is required"}), http.StatusBadRequest, "Validation error", 1},
		{"wrapped unauthorized", fmt.Errorf("auth: %w", domain.ErrInvalidRefreshToken), http.StatusUnauthorized, "Invalid refresh token", 0},
		{"forbidden", domain.ErrForbidden, http.StatusForbidden, "access forbidden", 0},
		{"not found", domain.NotFound("User not found"), http.StatusNotFound, "User not found", 0},
		{"bad gateway", domain.BadGateway("smtp", "Failed to send email"), http.StatusBadGateway, "Failed to send email", 0},
		{"echo 404", echo.ErrNotFound, http.StatusNotFound, "Route not found", 0},
		{"echo 429", echo.NewHTTPError(http.StatusTooManyRequests, "slow down"), http.StatusTooManyRequests, "slow down", 0},
		{"echo 500", echo.ErrInternalServerError, http.StatusInternalServerError, "internal server error", 0},
		{"unexpected", errors.New("db exploded"), http.StatusInternalServerError, "internal server error", 0},
	}

	h := NewHTTPErrorHandler(zerolog.Nop())
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := echo.New()
			rec := httptest.NewRecorder()
			c := e.NewContext(httptest.NewRequest(http.MethodGet, "/", nil), rec)

			h(tt.err, c)

			if rec.Code != tt.code {
				t.Fatalf("expected %d, got %d", tt.code, rec.Code)
			}
			var body errorResponse
			if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
				t.Fatalf("invalid json: %v", err)
			}
			if body.Success || body.Message != tt.message || len(body.Errors) != tt.details {
				t.Fatalf("unexpected body %+v", body)
			}
		})
	}
}

func TestHTTPErrorHandler_Head(t *testing.T) {
	e := echo.New()
	rec := httptest.NewRecorder()
	c := e.NewContext(httptest.NewRequest(http.MethodHead, "/", nil), rec)

	NewHTTPErrorHandler(zerolog.Nop())(domain.ErrForbidden, c)

	if rec.Code != http.StatusForbidden || rec.Body.Len() != 0 {
		t.Fatalf("expected empty 403, got %d %q", rec.Code, rec.Body.String())
	}
}
