package service

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/compupay/hr-backend/internal/api/metrics"
	"github.com/compupay/hr-backend/internal/core/ports"
	"github.com/compupay/hr-backend/internal/core/query"
)

// UserQueryConfig is what GET /v1/users lets callers search, filter, order
// and include.
var UserQueryConfig = query.Config{
	SearchableFields: []string{
		"first_name",
		"last_name",
		"email",
		"employment_status",
		"department.name",
		"position.name",
	},
	FilterableFields: []string{"role", "employment_status", "department_id", "position_id"},
	OrderableFields:  []string{"first_name", "last_name", "email", "created_at", "updated_at"},
	Relations: query.Relations{
		"department":          nil,
		"position":            nil,
		"employee_allowances": query.Relations{"allowance": nil},
		"employee_deductions": query.Relations{"deduction": nil},
		"payroll":             nil,
	},
	Select: map[string]query.Selection{
		"department": {Fields: []string{"name", "code"}},
		"position":   {Fields: []string{"name"}},
		"employee_allowances": {Children: map[string]query.Selection{
			"allowance": {Fields: []string{"name", "amount"}},
		}},
		"employee_deductions": {Children: map[string]query.Selection{
			"deduction": {Fields: []string{"name", "amount"}},
		}},
	},
	JSONSearchableFields: []query.JSONField{{Field: "metadata", Path: []string{"address", "city"}}},
	MaxLimit:             100,
}

// notDeleted scopes every listing to live users.
var notDeleted = query.Equals{Field: "is_deleted", Value: false}

type UserService struct {
	repo ports.UserRepository
	log  zerolog.Logger
}

func NewUserService(repo ports.UserRepository, log zerolog.Logger) *UserService {
	return &UserService{repo: repo, log: log}
}

func (s *UserService) List(ctx context.Context, req query.Request) (*ports.UserPage, error) {
	start := time.Now()
	d := query.Compile(UserQueryConfig, req, notDeleted)

	items, total, err := s.repo.List(ctx, d)
	metrics.ListQueryDuration.WithLabelValues("users").Observe(time.Since(start).Seconds())
	if err != nil {
		s.log.Error().Err(err).Msg("failed to list users")
		return nil, fmt.Errorf("list users: %w", err)
	}

	page := &ports.UserPage{Items: items, Total: total}
	if w := d.Window; w != nil {
		page.Page = w.Page
		page.Limit = w.Take
		page.TotalPages = int((total + int64(w.Take) - 1) / int64(w.Take))
	}
	return page, nil
}

func (s *UserService) Delete(ctx context.Context, id string) error {
	if err := s.repo.SoftDelete(ctx, id); err != nil {
		return err
	}
	s.log.Info().Str("user_id", id).Msg("user soft-deleted")
	return nil
}
