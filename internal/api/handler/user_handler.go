package handler

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/compupay/hr-backend/internal/core/domain"
	"github.com/compupay/hr-backend/internal/core/ports"
)

type UserHandler struct {
	userService ports.UserService
}

func NewUserHandler(userService ports.UserService) *UserHandler {
	return &UserHandler{userService: userService}
}

// List returns one page of users matching the query string.
//
// @Summary      List users
// @Tags         users
// @Produce      json
// @Security     BearerAuth
// @Param        search            query  string  false  "Free-text search"
// @Param        get_all           query  bool    false  "Return every row"
// @Param        pagination[page]  query  int     false  "1-based page"
// @Param        pagination[limit] query  int     false  "Page size"
// @Param        include_relation  query  []string false "Relations to include" collectionFormat(csv)
// @Success      200   {object}  envelope{data=[]domain.User}
// @Failure      400   {object}  map[string]any
// @Failure      401   {object}  map[string]any
// @Failure      403   {object}  map[string]any
// @Router       /v1/users [get]
func (h *UserHandler) List(c echo.Context) error {
	req, err := decodeListRequest(c.QueryParams())
	if err != nil {
		return err
	}

	page, err := h.userService.List(c.Request().Context(), req)
	if err != nil {
		return err
	}

	items := page.Items
	if items == nil {
		items = []*domain.User{}
	}
	return c.JSON(http.StatusOK, envelope{
		Success: true,
		Data:    items,
		Message: "Users retrieved successfully",
		Meta: &pageMeta{
			Total:      page.Total,
			Page:       page.Page,
			Limit:      page.Limit,
			TotalPages: page.TotalPages,
		},
	})
}

// Delete soft-deletes a user.
//
// @Summary      Delete user
// @Tags         users
// @Produce      json
// @Security     BearerAuth
// @Param        id   path      string  true  "User id"
// @Success      200  {object}  envelope
// @Failure      401  {object}  map[string]any
// @Failure      403  {object}  map[string]any
// @Router       /v1/users/{id} [delete]
func (h *UserHandler) Delete(c echo.Context) error {
	id := c.Param("id")
	if err := h.userService.Delete(c.Request().Context(), id); err != nil {
		if errors.Is(err, domain.ErrUserNotFound) {
			return domain.NotFound("User not found")
		}
		return err
	}
	return respond(c, http.StatusOK, nil, "User deleted successfully")
}
