package service

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/compupay/hr-backend/internal/core/domain"
	"github.com/compupay/hr-backend/internal/core/ports"
)

func TestAuthService_Register_Success(t *testing.T) {
	f := newAuthFixture()

	err := f.svc.Register(context.Background(), ports.RegisterInput{
		FirstName: "Alice",
		LastName:  "Doe",
		Email:     "alice@example.com",
		Password:  "Secret#123",
	})
	if err != nil {
		t.Fatalf("Register returned error: %v", err)
	}
	if f.tx.calls != 1 {
		t.Fatalf("expected registration inside one transaction, got %d", f.tx.calls)
	}

	user := f.users.byEmail["alice@example.com"]
	if user == nil {
		t.Fatalf("expected user to be stored")
	}
	if user.PasswordHash == "Secret#123" {
		t.Fatalf("expected password to be hashed")
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte("Secret#123")); err != nil {
		t.Fatalf("stored hash does not match password: %v", err)
	}
	if user.Role != domain.RoleAdmin {
		t.Fatalf("expected default role ADMIN, got %s", user.Role)
	}
}

func TestAuthService_Register_EmailTaken(t *testing.T) {
	f := newAuthFixture()
	f.register(t, "bob@example.com", "Secret#123")

	err := f.svc.Register(context.Background(), ports.RegisterInput{Email: "bob@example.com", Password: "Other#123"})
	if !errors.Is(err, domain.ErrEmailTaken) {
		t.Fatalf("expected ErrEmailTaken, got %v", err)
	}
}

func TestAuthService_Register_InvalidRole(t *testing.T) {
	f := newAuthFixture()

	err := f.svc.Register(context.Background(), ports.RegisterInput{Email: "x@example.com", Password: "Secret#123", Role: "ROOT"})
	if domain.KindOf(err) != domain.KindBadRequest {
		t.Fatalf("expected bad request, got %v", err)
	}
	if len(f.users.byEmail) != 0 {
		t.Fatalf("user should not be created")
	}
}

func TestAuthService_Login_Success(t *testing.T) {
	f := newAuthFixture()
	f.register(t, "carol@example.com", "Secret#123")
	f.users.byEmail["carol@example.com"].Position = &domain.Position{Name: "Engineer"}

	res, err := f.svc.Login(context.Background(), "carol@example.com", "Secret#123")
	if err != nil {
		t.Fatalf("login failed: %v", err)
	}
	if res.AccessToken == "" || res.RefreshToken == "" {
		t.Fatalf("expected both tokens")
	}
	if res.Position != "Engineer" || res.Role != domain.RoleEmployee {
		t.Fatalf("unexpected result: %+v", res)
	}

	access, err := f.tokens.VerifySession(res.AccessToken)
	if err != nil {
		t.Fatalf("access token invalid: %v", err)
	}
	if access.Type != domain.TokenAccess || access.UserID != res.User.ID || access.Position != "Engineer" {
		t.Fatalf("unexpected access claims: %+v", access)
	}
	refresh, err := f.tokens.VerifySession(res.RefreshToken)
	if err != nil {
		t.Fatalf("refresh token invalid: %v", err)
	}
	if refresh.Type != domain.TokenRefresh {
		t.Fatalf("expected refresh type, got %s", refresh.Type)
	}
}

func TestAuthService_Login_EnumerationResistant(t *testing.T) {
	f := newAuthFixture()
	f.register(t, "dave@example.com", "Goodpass#1")

	_, wrongPass := f.svc.Login(context.Background(), "dave@example.com", "Badpass#1")
	_, noUser := f.svc.Login(context.Background(), "ghost@example.com", "Goodpass#1")

	if !errors.Is(wrongPass, domain.ErrInvalidCredentials) || !errors.Is(noUser, domain.ErrInvalidCredentials) {
		t.Fatalf("expected ErrInvalidCredentials twice, got %v / %v", wrongPass, noUser)
	}
	if wrongPass.Error() != noUser.Error() {
		t.Fatalf("messages differ: %q vs %q", wrongPass.Error(), noUser.Error())
	}
}

func TestAuthService_ForgotPassword(t *testing.T) {
	f := newAuthFixture()
	f.register(t, "erin@example.com", "Secret#123")

	if err := f.svc.ForgotPassword(context.Background(), "erin@example.com"); err != nil {
		t.Fatalf("forgot password failed: %v", err)
	}

	record := f.otps.records["erin@example.com"]
	if len(record.Code) != 6 {
		t.Fatalf("expected 6 digit code, got %q", record.Code)
	}
	if want := f.clock.now.Add(5 * time.Minute); !record.ExpiredAt.Equal(want) {
		t.Fatalf("expected expiry %v, got %v", want, record.ExpiredAt)
	}
	msg := f.resetMail.last()
	if msg.To != "erin@example.com" || !strings.Contains(msg.Text, record.Code) || !strings.Contains(msg.HTML, record.Code) {
		t.Fatalf("unexpected mail: %+v", msg)
	}
}

func TestAuthService_ForgotPassword_UnknownEmail(t *testing.T) {
	f := newAuthFixture()

	err := f.svc.ForgotPassword(context.Background(), "nobody@example.com")
	if !errors.Is(err, domain.ErrEmailNotRegistered) {
		t.Fatalf("expected ErrEmailNotRegistered, got %v", err)
	}
	if len(f.resetMail.sent) != 0 {
		t.Fatalf("no mail expected")
	}
}

func TestAuthService_SendOTP(t *testing.T) {
	f := newAuthFixture()

	code, err := f.svc.SendOTP(context.Background(), "new@example.com")
	if err != nil {
		t.Fatalf("send otp failed: %v", err)
	}
	if len(code) != 5 {
		t.Fatalf("expected 5 digit code, got %q", code)
	}
	if f.tx.calls != 1 {
		t.Fatalf("expected one transaction, got %d", f.tx.calls)
	}
	if f.otps.records["new@example.com"].Code != code {
		t.Fatalf("stored code mismatch")
	}
	if msg := f.regMail.last(); msg.Subject != "Your OTP Code" || !strings.Contains(msg.Text, code) {
		t.Fatalf("unexpected mail: %+v", msg)
	}
}

func TestAuthService_SendOTP_EmailRegistered(t *testing.T) {
	f := newAuthFixture()
	f.register(t, "old@example.com", "Secret#123")

	if _, err := f.svc.SendOTP(context.Background(), "old@example.com"); !errors.Is(err, domain.ErrEmailRegistered) {
		t.Fatalf("expected ErrEmailRegistered, got %v", err)
	}
	if _, ok := f.otps.records["old@example.com"]; ok {
		t.Fatalf("otp must not be stored")
	}
	if len(f.regMail.sent) != 0 {
		t.Fatalf("no mail expected")
	}
}

func TestAuthService_ResetPasswordFlow(t *testing.T) {
	f := newAuthFixture()
	ctx := context.Background()
	f.register(t, "frank@example.com", "Oldpass#123")

	if err := f.svc.ForgotPassword(ctx, "frank@example.com"); err != nil {
		t.Fatalf("forgot password: %v", err)
	}
	code := f.otps.records["frank@example.com"].Code

	token, err := f.svc.VerifyOTP(ctx, "frank@example.com", code)
	if err != nil {
		t.Fatalf("verify otp: %v", err)
	}
	if err := f.svc.ResetPassword(ctx, token, "Newpass#456"); err != nil {
		t.Fatalf("reset password: %v", err)
	}

	if _, err := f.svc.Login(ctx, "frank@example.com", "Newpass#456"); err != nil {
		t.Fatalf("new password should verify: %v", err)
	}
	if _, err := f.svc.Login(ctx, "frank@example.com", "Oldpass#123"); !errors.Is(err, domain.ErrInvalidCredentials) {
		t.Fatalf("old password should no longer verify, got %v", err)
	}
}

func TestAuthService_ResetPassword_BadTokens(t *testing.T) {
	f := newAuthFixture()
	ctx := context.Background()
	f.register(t, "gina@example.com", "Oldpass#123")

	token, err := f.tokens.IssueReset(domain.ResetClaims{Email: "gina@example.com"}, 10*time.Minute)
	if err != nil {
		t.Fatalf("issue: %v", err)
	}

	tampered := token[:len(token)-2] + "xx"
	if err := f.svc.ResetPassword(ctx, tampered, "Newpass#456"); !errors.Is(err, domain.ErrInvalidResetToken) {
		t.Fatalf("tampered: expected ErrInvalidResetToken, got %v", err)
	}
	if err := f.svc.ResetPassword(ctx, "", "Newpass#456"); !errors.Is(err, domain.ErrInvalidResetToken) {
		t.Fatalf("empty: expected ErrInvalidResetToken, got %v", err)
	}

	f.clock.Advance(11 * time.Minute)
	if err := f.svc.ResetPassword(ctx, token, "Newpass#456"); !errors.Is(err, domain.ErrInvalidResetToken) {
		t.Fatalf("expired: expected ErrInvalidResetToken, got %v", err)
	}

	if _, err := f.svc.Login(ctx, "gina@example.com", "Oldpass#123"); err != nil {
		t.Fatalf("password must be unchanged: %v", err)
	}
}

func TestAuthService_Refresh(t *testing.T) {
	f := newAuthFixture()
	ctx := context.Background()
	f.register(t, "hank@example.com", "Secret#123")

	res, err := f.svc.Login(ctx, "hank@example.com", "Secret#123")
	if err != nil {
		t.Fatalf("login: %v", err)
	}

	if _, err := f.svc.Refresh(ctx, res.AccessToken); !errors.Is(err, domain.ErrInvalidRefreshToken) {
		t.Fatalf("access token must be rejected, got %v", err)
	}
	if _, err := f.svc.Refresh(ctx, ""); !errors.Is(err, domain.ErrRefreshTokenMissing) {
		t.Fatalf("expected ErrRefreshTokenMissing, got %v", err)
	}

	access, err := f.svc.Refresh(ctx, res.RefreshToken)
	if err != nil {
		t.Fatalf("refresh: %v", err)
	}
	claims, err := f.tokens.VerifySession(access)
	if err != nil {
		t.Fatalf("new access token invalid: %v", err)
	}
	if claims.UserID != res.User.ID || claims.Type != domain.TokenAccess {
		t.Fatalf("unexpected claims: %+v", claims)
	}
}

func TestAuthService_Refresh_UserGone(t *testing.T) {
	f := newAuthFixture()
	ctx := context.Background()
	f.register(t, "ivy@example.com", "Secret#123")
	res, _ := f.svc.Login(ctx, "ivy@example.com", "Secret#123")

	if err := f.users.SoftDelete(ctx, res.User.ID); err != nil {
		t.Fatalf("soft delete: %v", err)
	}
	if _, err := f.svc.Refresh(ctx, res.RefreshToken); !errors.Is(err, domain.ErrUserNotFound) {
		t.Fatalf("expected ErrUserNotFound, got %v", err)
	}
}

func TestAuthService_Authenticate(t *testing.T) {
	f := newAuthFixture()
	ctx := context.Background()
	f.register(t, "jack@example.com", "Secret#123")
	res, _ := f.svc.Login(ctx, "jack@example.com", "Secret#123")

	user, err := f.svc.Authenticate(ctx, res.AccessToken)
	if err != nil {
		t.Fatalf("authenticate: %v", err)
	}
	if user.Email != "jack@example.com" {
		t.Fatalf("unexpected user %+v", user)
	}

	cases := map[string]struct {
		token string
		msg   string
	}{
		"missing":       {"", "No token provided"},
		"refresh":       {res.RefreshToken, "Invalid token"},
		"garbage":       {"not-a-token", "Invalid token"},
		"bad signature": {NewTokenService("other").mustIssue(t, user.ID), "Invalid signature"},
	}
	for name, tc := range cases {
		_, err := f.svc.Authenticate(ctx, tc.token)
		if domain.KindOf(err) != domain.KindUnauthorized || err.Error() != tc.msg {
			t.Fatalf("%s: expected unauthorized %q, got %v", name, tc.msg, err)
		}
	}

	f.clock.Advance(25 * time.Hour)
	if _, err := f.svc.Authenticate(ctx, res.AccessToken); err == nil || err.Error() != "Token expired" {
		t.Fatalf("expected Token expired, got %v", err)
	}
}

func (s *TokenService) mustIssue(t *testing.T, userID string) string {
	t.Helper()
	tok, err := s.IssueSession(domain.SessionClaims{UserID: userID, Type: domain.TokenAccess}, time.Hour)
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	return tok
}
