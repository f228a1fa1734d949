// Package query compiles an untyped listing request (search, filters, date
// ranges, null checks, relation inclusion, ordering, pagination) into a
// storage-agnostic Descriptor. Compilation is pure and never fails: unknown
// fields are dropped and malformed values fall back to permissive defaults.
package query

const (
	DefaultPage  = 1
	DefaultLimit = 10
)

// Relations is the configured relation graph of a model. A relation whose
// value is empty is a leaf; a non-empty value lists its sub-relations.
type Relations map[string]Relations

// Selection restricts the fields returned for a relation. Children holds the
// selections of sub-relations when the relation itself is nested.
type Selection struct {
	Fields   []string
	Children map[string]Selection
}

// DateFields names the creation and update timestamp fields of a model.
type DateFields struct {
	CreatedAt string
	UpdatedAt string
}

// JSONField is a structured-document field searchable at a sub-path.
type JSONField struct {
	Field string
	Path  []string
}

// Config describes what a resource allows callers to search, filter, order
// and include. All fields are optional.
type Config struct {
	SearchableFields     []string
	FilterableFields     []string
	OrderableFields      []string
	Relations            Relations
	Select               map[string]Selection
	DateFields           DateFields
	JSONSearchableFields []JSONField

	// DefaultLimit replaces DefaultLimit for this model when positive.
	DefaultLimit int
	// MaxLimit caps the page size when positive.
	MaxLimit int
}

func (c Config) createdField() string {
	if c.DateFields.CreatedAt != "" {
		return c.DateFields.CreatedAt
	}
	return "created_at"
}

func (c Config) updatedField() string {
	if c.DateFields.UpdatedAt != "" {
		return c.DateFields.UpdatedAt
	}
	return "updated_at"
}

func (c Config) defaultLimit() int {
	if c.DefaultLimit > 0 {
		return c.DefaultLimit
	}
	return DefaultLimit
}
