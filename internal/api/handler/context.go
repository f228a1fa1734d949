package handler

import (
	"github.com/labstack/echo/v4"

	"github.com/compupay/hr-backend/internal/api/middleware"
	"github.com/compupay/hr-backend/internal/core/domain"
)

// ctxUserID returns the id of the user resolved by the Auth middleware. An
// empty id means the middleware did not run; reject with 401.
func ctxUserID(c echo.Context) (string, error) {
	id, _ := c.Get(middleware.ContextUserID).(string)
	if id == "" {
		return "", domain.Unauthorized("No token provided")
	}
	return id, nil
}
