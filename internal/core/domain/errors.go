package domain

import "errors"

// Kind classifies an Error; the API boundary maps each kind to one HTTP status.
type Kind int

const (
	KindInternal Kind = iota
	KindBadRequest
	KindUnauthorized
	KindForbidden
	KindNotFound
	KindBadGateway
)

func (k Kind) String() string {
	switch k {
	case KindBadRequest:
		return "bad_request"
	case KindUnauthorized:
		return "unauthorized"
	case KindForbidden:
		return "forbidden"
	case KindNotFound:
		return "not_found"
	case KindBadGateway:
		return "bad_gateway"
	default:
		return "internal"
	}
}

// FieldError describes a single offending input field.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// Error is the single error type raised by the service layer. Values are built
// only through the constructors below.
type Error struct {
	Kind     Kind
	Message  string
	Upstream string
	Details  []FieldError
}

func (e *Error) Error() string {
	if e.Upstream != "" {
		return e.Upstream + ": " + e.Message
	}
	return e.Message
}

func BadRequest(msg string, details ...FieldError) *Error {
	return &Error{Kind: KindBadRequest, Message: msg, Details: details}
}

func Unauthorized(msg string) *Error {
	return &Error{Kind: KindUnauthorized, Message: msg}
}

func Forbidden(msg string) *Error {
	return &Error{Kind: KindForbidden, Message: msg}
}

func NotFound(msg string) *Error {
	return &Error{Kind: KindNotFound, Message: msg}
}

// BadGateway reports a failure of an upstream adapter (object storage, mail relay).
func BadGateway(upstream, msg string) *Error {
	return &Error{Kind: KindBadGateway, Message: msg, Upstream: upstream}
}

var (
	ErrInvalidCredentials  = BadRequest("Invalid credentials")
	ErrEmailTaken          = BadRequest("Email already taken.", FieldError{Field: "email", Message: "Email already taken."})
	ErrEmailRegistered     = BadRequest("Email already registered")
	ErrEmailNotRegistered  = BadRequest("Email not registered")
	ErrRegistrationFailed  = BadRequest("Failed to register")
	ErrInvalidOTP          = BadRequest("Invalid OTP")
	ErrOTPExpired          = BadRequest("OTP expired")
	ErrInvalidResetToken   = BadRequest("Invalid or expired reset token")
	ErrRefreshTokenMissing = Unauthorized("Refresh token not found")
	ErrInvalidRefreshToken = Unauthorized("Invalid refresh token")
	ErrUserNotFound        = Unauthorized("user not found")
	ErrForbidden           = Forbidden("access forbidden")
	ErrRouteNotFound       = NotFound("Route not found")
)

// KindOf returns the kind of the first *Error in err's chain, KindInternal otherwise.
func KindOf(err error) Kind {
	var de *Error
	if errors.As(err, &de) {
		return de.Kind
	}
	return KindInternal
}
