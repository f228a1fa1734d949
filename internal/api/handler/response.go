package handler

import "github.com/labstack/echo/v4"

// envelope is the success body shared by every endpoint.
type envelope struct {
	Success bool      `json:"success"`
	Data    any       `json:"data,omitempty"`
	Message string    `json:"message"`
	Meta    *pageMeta `json:"meta,omitempty"`
}

type pageMeta struct {
	Total      int64 `json:"total"`
	Page       int   `json:"page,omitempty"`
	Limit      int   `json:"limit,omitempty"`
	TotalPages int   `json:"total_pages,omitempty"`
}

func respond(c echo.Context, status int, data any, message string) error {
	return c.JSON(status, envelope{Success: true, Data: data, Message: message})
}
