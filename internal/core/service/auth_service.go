package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/compupay/hr-backend/internal/api/metrics"
	"github.com/compupay/hr-backend/internal/core/domain"
	"github.com/compupay/hr-backend/internal/core/ports"
	"github.com/compupay/hr-backend/internal/core/query"
)

// TokenTTLs are the validity windows of issued tokens. Access and refresh
// tokens both default to one day.
type TokenTTLs struct {
	Access  time.Duration
	Refresh time.Duration
	Reset   time.Duration
}

var DefaultTokenTTLs = TokenTTLs{Access: 24 * time.Hour, Refresh: 24 * time.Hour, Reset: 10 * time.Minute}

// AuthDeps groups the collaborators of AuthService.
type AuthDeps struct {
	Credentials *CredentialStore
	Otps        *OtpStore
	Tokens      *TokenService
	Tx          ports.Transactor
	// ResetMail delivers forgot-password codes, RegistrationMail registration
	// codes.
	ResetMail        MailDelivery
	RegistrationMail MailDelivery
	FromName         string
	TTLs             TokenTTLs
	Log              zerolog.Logger
}

// AuthService implements the login, registration, OTP, password reset and
// refresh flows.
type AuthService struct {
	creds            *CredentialStore
	otps             *OtpStore
	tokens           *TokenService
	tx               ports.Transactor
	resetMail        MailDelivery
	registrationMail MailDelivery
	fromName         string
	ttls             TokenTTLs
	log              zerolog.Logger
}

func NewAuthService(deps AuthDeps) *AuthService {
	ttls := deps.TTLs
	if ttls.Access <= 0 {
		ttls.Access = DefaultTokenTTLs.Access
	}
	if ttls.Refresh <= 0 {
		ttls.Refresh = DefaultTokenTTLs.Refresh
	}
	if ttls.Reset <= 0 {
		ttls.Reset = DefaultTokenTTLs.Reset
	}
	return &AuthService{
		creds:            deps.Credentials,
		otps:             deps.Otps,
		tokens:           deps.Tokens,
		tx:               deps.Tx,
		resetMail:        deps.ResetMail,
		registrationMail: deps.RegistrationMail,
		fromName:         deps.FromName,
		ttls:             ttls,
		log:              deps.Log,
	}
}

// profileInclude lists the relations returned by Profile.
var profileInclude = query.Include{
	"department":          {},
	"position":            {},
	"employee_allowances": {Include: query.Include{"allowance": {}}},
	"employee_deductions": {Include: query.Include{"deduction": {}}},
	"payroll":             {},
}

// Login answers "Invalid credentials" both for an unknown email and for a
// wrong password.
func (s *AuthService) Login(ctx context.Context, email, password string) (*ports.LoginResult, error) {
	user, err := s.creds.FindByEmail(ctx, email)
	if errors.Is(err, domain.ErrUserNotFound) {
		metrics.AuthAttemptsTotal.WithLabelValues("login", "rejected").Inc()
		return nil, domain.ErrInvalidCredentials
	}
	if err != nil {
		return nil, fmt.Errorf("login: %w", err)
	}
	if !s.creds.Verify(user, password) {
		metrics.AuthAttemptsTotal.WithLabelValues("login", "rejected").Inc()
		return nil, domain.ErrInvalidCredentials
	}

	claims := domain.SessionClaims{UserID: user.ID, Role: user.Role, Position: user.PositionName()}

	claims.Type = domain.TokenAccess
	access, err := s.tokens.IssueSession(claims, s.ttls.Access)
	if err != nil {
		return nil, fmt.Errorf("login: sign access token: %w", err)
	}
	claims.Type = domain.TokenRefresh
	refresh, err := s.tokens.IssueSession(claims, s.ttls.Refresh)
	if err != nil {
		return nil, fmt.Errorf("login: sign refresh token: %w", err)
	}

	metrics.AuthAttemptsTotal.WithLabelValues("login", "ok").Inc()
	s.log.Info().Str("user_id", user.ID).Msg("user logged in")

	return &ports.LoginResult{
		AccessToken:  access,
		RefreshToken: refresh,
		Role:         user.Role,
		Position:     user.PositionName(),
		User:         user,
	}, nil
}

// Register checks email uniqueness and inserts the user in one transaction.
func (s *AuthService) Register(ctx context.Context, in ports.RegisterInput) error {
	role := in.Role
	if role == "" {
		role = domain.RoleAdmin
	}
	if !role.Valid() {
		return domain.BadRequest("Invalid role", domain.FieldError{Field: "role", Message: "role must be one of: ADMIN EMPLOYEE SUPER_ADMIN"})
	}

	hash, err := s.creds.Hash(in.Password)
	if err != nil {
		return fmt.Errorf("register: %w", err)
	}

	err = s.tx.WithinTransaction(ctx, func(ctx context.Context) error {
		taken, err := s.creds.EmailRegistered(ctx, in.Email)
		if err != nil {
			return err
		}
		if taken {
			return domain.ErrEmailTaken
		}

		created, err := s.creds.Create(ctx, &domain.User{
			FirstName:    in.FirstName,
			LastName:     in.LastName,
			Email:        in.Email,
			PasswordHash: hash,
			Role:         role,
		})
		if err != nil {
			return err
		}
		if created == nil || created.ID == "" {
			return domain.ErrRegistrationFailed
		}
		return nil
	})
	if err != nil {
		metrics.AuthAttemptsTotal.WithLabelValues("register", "rejected").Inc()
		if domain.KindOf(err) != domain.KindInternal {
			return err
		}
		return fmt.Errorf("register: %w", err)
	}

	metrics.AuthAttemptsTotal.WithLabelValues("register", "ok").Inc()
	s.log.Info().Str("email", in.Email).Msg("user registered")
	return nil
}

// SendOTP issues a registration code for an email that is not registered yet.
// The mail is delivered in the background; the code is returned for the
// caller's own use and must not be exposed to clients.
func (s *AuthService) SendOTP(ctx context.Context, email string) (string, error) {
	var code string
	err := s.tx.WithinTransaction(ctx, func(ctx context.Context) error {
		taken, err := s.creds.EmailRegistered(ctx, email)
		if err != nil {
			return err
		}
		if taken {
			return domain.ErrEmailRegistered
		}
		code, err = s.otps.Issue(ctx, email, domain.OtpRegistration)
		return err
	})
	if err != nil {
		if domain.KindOf(err) != domain.KindInternal {
			return "", err
		}
		return "", fmt.Errorf("send otp: %w", err)
	}

	metrics.OtpIssuedTotal.WithLabelValues(string(domain.OtpRegistration)).Inc()
	minutes := int(s.otps.TTL().Minutes())
	s.registrationMail.Deliver(ctx, ports.MailMessage{
		To:       email,
		FromName: s.fromName,
		Subject:  "Your OTP Code",
		Text:     fmt.Sprintf("Your OTP code is %s. It is valid for %d minutes.", code, minutes),
	})
	return code, nil
}

// ForgotPassword issues a password-reset code and sends it before returning.
func (s *AuthService) ForgotPassword(ctx context.Context, email string) error {
	if _, err := s.creds.FindByEmail(ctx, email); err != nil {
		if errors.Is(err, domain.ErrUserNotFound) {
			return domain.ErrEmailNotRegistered
		}
		return fmt.Errorf("forgot password: %w", err)
	}

	code, err := s.otps.Issue(ctx, email, domain.OtpPasswordReset)
	if err != nil {
		return fmt.Errorf("forgot password: %w", err)
	}
	metrics.OtpIssuedTotal.WithLabelValues(string(domain.OtpPasswordReset)).Inc()

	minutes := int(s.otps.TTL().Minutes())
	s.resetMail.Deliver(ctx, ports.MailMessage{
		To:       email,
		FromName: s.fromName,
		Subject:  "Reset Password OTP",
		Text:     fmt.Sprintf("Your OTP is %s. Valid for %d minutes.", code, minutes),
		HTML:     fmt.Sprintf("<p>Your OTP is <b>%s</b>. Valid for %d minutes.</p>", code, minutes),
	})
	s.log.Info().Str("email", email).Msg("forgot password otp issued")
	return nil
}

// VerifyOTP consumes the code and returns a reset token bound to email.
func (s *AuthService) VerifyOTP(ctx context.Context, email, code string) (string, error) {
	if err := s.otps.VerifyAndConsume(ctx, email, code); err != nil {
		metrics.AuthAttemptsTotal.WithLabelValues("verify_otp", "rejected").Inc()
		return "", err
	}
	token, err := s.tokens.IssueReset(domain.ResetClaims{Email: email}, s.ttls.Reset)
	if err != nil {
		return "", fmt.Errorf("verify otp: sign reset token: %w", err)
	}
	metrics.AuthAttemptsTotal.WithLabelValues("verify_otp", "ok").Inc()
	return token, nil
}

func (s *AuthService) ResetPassword(ctx context.Context, resetToken, newPassword string) error {
	claims, err := s.tokens.VerifyReset(resetToken)
	if err != nil || claims.Email == "" {
		return domain.ErrInvalidResetToken
	}
	if err := s.creds.UpdatePassword(ctx, claims.Email, newPassword); err != nil {
		if errors.Is(err, domain.ErrUserNotFound) {
			return domain.ErrInvalidResetToken
		}
		return fmt.Errorf("reset password: %w", err)
	}
	s.log.Info().Str("email", claims.Email).Msg("password reset")
	return nil
}

// Refresh exchanges a refresh token for a new access token.
func (s *AuthService) Refresh(ctx context.Context, refreshToken string) (string, error) {
	if refreshToken == "" {
		return "", domain.ErrRefreshTokenMissing
	}
	claims, err := s.tokens.VerifySession(refreshToken)
	if err != nil || claims.Type != domain.TokenRefresh || claims.UserID == "" {
		s.log.Warn().Err(err).Msg("invalid refresh token")
		return "", domain.ErrInvalidRefreshToken
	}

	user, err := s.creds.FindByID(ctx, claims.UserID, query.Include{"position": {}})
	if errors.Is(err, domain.ErrUserNotFound) {
		s.log.Warn().Str("user_id", claims.UserID).Msg("user not found for refresh token")
		return "", domain.ErrUserNotFound
	}
	if err != nil {
		return "", fmt.Errorf("refresh: %w", err)
	}

	access, err := s.tokens.IssueSession(domain.SessionClaims{
		UserID:   user.ID,
		Role:     user.Role,
		Position: user.PositionName(),
		Type:     domain.TokenAccess,
	}, s.ttls.Access)
	if err != nil {
		return "", fmt.Errorf("refresh: sign access token: %w", err)
	}
	return access, nil
}

// Authenticate verifies an access token and loads its user.
func (s *AuthService) Authenticate(ctx context.Context, accessToken string) (*domain.User, error) {
	if accessToken == "" {
		return nil, domain.Unauthorized("No token provided")
	}
	claims, err := s.tokens.VerifySession(accessToken)
	switch {
	case errors.Is(err, ErrTokenExpired):
		return nil, domain.Unauthorized("Token expired")
	case errors.Is(err, ErrTokenSignature):
		return nil, domain.Unauthorized("Invalid signature")
	case err != nil:
		return nil, domain.Unauthorized("Invalid token")
	}
	if claims.UserID == "" || claims.Type != domain.TokenAccess {
		return nil, domain.Unauthorized("Invalid token")
	}

	user, err := s.creds.FindByID(ctx, claims.UserID, query.Include{"position": {}})
	if errors.Is(err, domain.ErrUserNotFound) {
		return nil, domain.Unauthorized("Token valid, but user not found")
	}
	if err != nil {
		return nil, fmt.Errorf("authenticate: %w", err)
	}
	return user, nil
}

// Profile returns the user with every profile relation included.
func (s *AuthService) Profile(ctx context.Context, userID string) (*domain.User, error) {
	user, err := s.creds.FindByID(ctx, userID, profileInclude)
	if err != nil {
		if errors.Is(err, domain.ErrUserNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("profile: %w", err)
	}
	return user, nil
}
