package handler

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/compupay/hr-backend/internal/core/domain"
	"github.com/compupay/hr-backend/internal/core/ports"
)

const refreshCookieName = "refresh_token"

// CookieOptions controls the refresh token cookie set on login.
type CookieOptions struct {
	Secure bool
	MaxAge time.Duration
}

type AuthHandler struct {
	authService ports.AuthService
	cookie      CookieOptions
}

func NewAuthHandler(authService ports.AuthService, cookie CookieOptions) *AuthHandler {
	if cookie.MaxAge <= 0 {
		cookie.MaxAge = 7 * 24 * time.Hour
	}
	return &AuthHandler{authService: authService, cookie: cookie}
}

type loginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

type loginResponse struct {
	Role     domain.Role `json:"role"`
	Position string      `json:"position"`
}

type registerRequest struct {
	FirstName            string `json:"first_name" validate:"required,max=100"`
	LastName             string `json:"last_name" validate:"required,max=100"`
	Email                string `json:"email" validate:"required,email"`
	Password             string `json:"password" validate:"required,strongpassword"`
	PasswordConfirmation string `json:"password_confirmation" validate:"required,eqfield=Password"`
	Role                 string `json:"role" validate:"omitempty,oneof=ADMIN EMPLOYEE SUPER_ADMIN"`
}

type emailRequest struct {
	Email string `json:"email" validate:"required,email"`
}

type verifyOTPRequest struct {
	Email string `json:"email" validate:"required,email"`
	OTP   string `json:"otp" validate:"required,numeric,min=4,max=8"`
}

type verifyOTPResponse struct {
	ResetToken string `json:"reset_token"`
}

type resetPasswordRequest struct {
	ResetToken              string `json:"reset_token" validate:"required"`
	NewPassword             string `json:"new_password" validate:"required,strongpassword"`
	NewPasswordConfirmation string `json:"new_password_confirmation" validate:"required,eqfield=NewPassword"`
}

type refreshRequest struct {
	RefreshToken string `json:"refresh_token"`
}

// bindAndValidate decodes the JSON body into req and runs its validate tags.
func bindAndValidate(c echo.Context, req any) error {
	if err := c.Bind(req); err != nil {
		return domain.BadRequest("Invalid payload")
	}
	return c.Validate(req)
}

// Login authenticates a user. The access token is returned in the
// Authorization header and the refresh token in an http-only cookie.
//
// @Summary      Login
// @Tags         auth
// @Accept       json
// @Produce      json
// @Param        body  body      loginRequest  true  "Login credentials"
// @Success      200   {object}  envelope{data=loginResponse}
// @Failure      400   {object}  map[string]any
// @Router       /v1/auth/login [post]
func (h *AuthHandler) Login(c echo.Context) error {
	var req loginRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}

	res, err := h.authService.Login(c.Request().Context(), req.Email, req.Password)
	if err != nil {
		return err
	}

	c.SetCookie(&http.Cookie{
		Name:     refreshCookieName,
		Value:    res.RefreshToken,
		Path:     "/",
		HttpOnly: true,
		Secure:   h.cookie.Secure,
		SameSite: http.SameSiteStrictMode,
		MaxAge:   int(h.cookie.MaxAge.Seconds()),
	})
	c.Response().Header().Set(echo.HeaderAuthorization, "Bearer "+res.AccessToken)

	return respond(c, http.StatusOK, loginResponse{Role: res.Role, Position: res.Position}, "Login successful")
}

// Register creates a user account.
//
// @Summary      Register a new user
// @Tags         auth
// @Accept       json
// @Produce      json
// @Param        body  body      registerRequest  true  "User registration details"
// @Success      201   {object}  envelope
// @Failure      400   {object}  map[string]any
// @Router       /v1/auth/register [post]
func (h *AuthHandler) Register(c echo.Context) error {
	var req registerRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}

	err := h.authService.Register(c.Request().Context(), ports.RegisterInput{
		FirstName: req.FirstName,
		LastName:  req.LastName,
		Email:     req.Email,
		Password:  req.Password,
		Role:      domain.Role(req.Role),
	})
	if err != nil {
		return err
	}
	return respond(c, http.StatusCreated, nil, "Registration successful")
}

// SendOTP mails a registration code to an unregistered address.
//
// @Summary      Send registration OTP
// @Tags         auth
// @Accept       json
// @Produce      json
// @Param        body  body      emailRequest  true  "Email address"
// @Success      200   {object}  envelope
// @Failure      400   {object}  map[string]any
// @Router       /v1/auth/send-otp [post]
func (h *AuthHandler) SendOTP(c echo.Context) error {
	var req emailRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}
	if _, err := h.authService.SendOTP(c.Request().Context(), req.Email); err != nil {
		return err
	}
	return respond(c, http.StatusOK, nil, "OTP sent successfully")
}

// ForgetPassword mails a password reset code to a registered address.
//
// @Summary      Request password reset OTP
// @Tags         auth
// @Accept       json
// @Produce      json
// @Param        body  body      emailRequest  true  "Email address"
// @Success      200   {object}  envelope
// @Failure      400   {object}  map[string]any
// @Router       /v1/auth/forget-password [post]
func (h *AuthHandler) ForgetPassword(c echo.Context) error {
	var req emailRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}
	if err := h.authService.ForgotPassword(c.Request().Context(), req.Email); err != nil {
		return err
	}
	return respond(c, http.StatusOK, nil, "OTP has been sent to your email")
}

// VerifyOTP exchanges a valid code for a reset token.
//
// @Summary      Verify OTP
// @Tags         auth
// @Accept       json
// @Produce      json
// @Param        body  body      verifyOTPRequest  true  "Email and code"
// @Success      200   {object}  envelope{data=verifyOTPResponse}
// @Failure      400   {object}  map[string]any
// @Router       /v1/auth/verify-otp [post]
func (h *AuthHandler) VerifyOTP(c echo.Context) error {
	var req verifyOTPRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}
	token, err := h.authService.VerifyOTP(c.Request().Context(), req.Email, req.OTP)
	if err != nil {
		return err
	}
	return respond(c, http.StatusOK, verifyOTPResponse{ResetToken: token}, "OTP verified")
}

// ResetPassword sets a new password for the email bound to the reset token.
//
// @Summary      Reset password
// @Tags         auth
// @Accept       json
// @Produce      json
// @Param        body  body      resetPasswordRequest  true  "Reset token and new password"
// @Success      200   {object}  envelope
// @Failure      400   {object}  map[string]any
// @Router       /v1/auth/reset-password [post]
func (h *AuthHandler) ResetPassword(c echo.Context) error {
	var req resetPasswordRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}
	if err := h.authService.ResetPassword(c.Request().Context(), req.ResetToken, req.NewPassword); err != nil {
		return err
	}
	return respond(c, http.StatusOK, nil, "Password reset successful")
}

// Refresh issues a new access token. The refresh token is read from the
// refresh_token cookie, or from the body when the cookie is absent.
//
// @Summary      Refresh access token
// @Tags         auth
// @Accept       json
// @Produce      json
// @Param        body  body      refreshRequest  false  "Refresh token when no cookie is sent"
// @Success      200   {object}  envelope
// @Failure      401   {object}  map[string]any
// @Router       /v1/auth/refresh [post]
func (h *AuthHandler) Refresh(c echo.Context) error {
	var token string
	if cookie, err := c.Cookie(refreshCookieName); err == nil {
		token = cookie.Value
	}
	if token == "" {
		var req refreshRequest
		if c.Request().ContentLength != 0 {
			if err := c.Bind(&req); err != nil {
				return domain.BadRequest("Invalid payload")
			}
		}
		token = req.RefreshToken
	}

	access, err := h.authService.Refresh(c.Request().Context(), token)
	if err != nil {
		return err
	}
	c.Response().Header().Set(echo.HeaderAuthorization, "Bearer "+access)
	return respond(c, http.StatusOK, nil, "Token refreshed successfully")
}

// Me returns the authenticated user's profile with all its relations.
//
// @Summary      Current user profile
// @Tags         auth
// @Produce      json
// @Security     BearerAuth
// @Success      200   {object}  envelope{data=domain.User}
// @Failure      401   {object}  map[string]any
// @Router       /v1/auth/me [get]
func (h *AuthHandler) Me(c echo.Context) error {
	id, err := ctxUserID(c)
	if err != nil {
		return err
	}
	user, err := h.authService.Profile(c.Request().Context(), id)
	if err != nil {
		return err
	}
	return respond(c, http.StatusOK, user, "User profile retrieved successfully")
}
