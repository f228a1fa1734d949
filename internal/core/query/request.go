package query

// Reserved keys inside Request.Filter.
const (
	FilterCreatedAt    = "created_at"
	FilterCreatedRange = "created_range"
	FilterUpdatedAt    = "updated_at"
	FilterUpdatedRange = "updated_range"
	FilterIsNull       = "is_null"
	FilterIsNotNull    = "is_not_null"
)

// Request is the decoded listing request as sent by a client.
type Request struct {
	GetAll          bool           `mapstructure:"get_all"`
	Pagination      *PageRequest   `mapstructure:"pagination"`
	OrderBy         []OrderRequest `mapstructure:"order_by"`
	IncludeRelation []string       `mapstructure:"include_relation"`
	Search          string         `mapstructure:"search"`
	Filter          map[string]any `mapstructure:"filter"`
}

// PageRequest carries 1-based page numbers; zero values mean "use the default".
type PageRequest struct {
	Page  int `mapstructure:"page"`
	Limit int `mapstructure:"limit"`
}

type OrderRequest struct {
	Field     string `mapstructure:"field"`
	Direction string `mapstructure:"direction"`
}
