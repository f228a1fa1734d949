package ports

import (
	"context"

	"github.com/compupay/hr-backend/internal/core/domain"
	"github.com/compupay/hr-backend/internal/core/query"
)

// UserPage is one page of a user listing. Page and Limit are zero when the
// caller requested every row.
type UserPage struct {
	Items      []*domain.User
	Total      int64
	Page       int
	Limit      int
	TotalPages int
}

type UserService interface {
	List(ctx context.Context, req query.Request) (*UserPage, error)
	Delete(ctx context.Context, id string) error
}
