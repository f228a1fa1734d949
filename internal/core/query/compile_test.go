package query

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func employeeConfig() Config {
	return Config{
		SearchableFields: []string{"first_name", "department.name", "employment_status"},
		FilterableFields: []string{"role", "department_id"},
		OrderableFields:  []string{"first_name", "created_at"},
		Relations: Relations{
			"department": nil,
			"position":   nil,
			"employee_allowances": Relations{
				"allowance": nil,
			},
		},
		Select: map[string]Selection{
			"position": {Fields: []string{"name"}},
			"employee_allowances": {Children: map[string]Selection{
				"allowance": {Fields: []string{"name", "amount"}},
			}},
		},
		JSONSearchableFields: []JSONField{{Field: "metadata", Path: []string{"address", "city"}}},
	}
}

func TestCompile_EmptyRequest(t *testing.T) {
	d := Compile(employeeConfig(), Request{})

	assert.Empty(t, d.Where)
	assert.Empty(t, d.OrderBy)
	assert.Empty(t, d.Include)
	require.NotNil(t, d.Window)
	assert.Equal(t, Window{Page: 1, Skip: 0, Take: 10}, *d.Window)
}

func TestCompile_GetAllDisablesPagination(t *testing.T) {
	d := Compile(Config{}, Request{GetAll: true, Pagination: &PageRequest{Page: 3, Limit: 5}})
	assert.Nil(t, d.Window)
}

func TestCompile_Pagination(t *testing.T) {
	tests := []struct {
		name string
		cfg  Config
		page *PageRequest
		want Window
	}{
		{"explicit", Config{}, &PageRequest{Page: 3, Limit: 20}, Window{Page: 3, Skip: 40, Take: 20}},
		{"defaults page", Config{}, &PageRequest{Limit: 5}, Window{Page: 1, Skip: 0, Take: 5}},
		{"non-positive falls back", Config{}, &PageRequest{Page: -2, Limit: 0}, Window{Page: 1, Skip: 0, Take: 10}},
		{"model default", Config{DefaultLimit: 25}, nil, Window{Page: 1, Skip: 0, Take: 25}},
		{"capped", Config{MaxLimit: 50}, &PageRequest{Page: 2, Limit: 500}, Window{Page: 2, Skip: 50, Take: 50}},
		{"huge page clamped", Config{MaxLimit: 100}, &PageRequest{Page: 100000000000000000, Limit: 100},
			Window{Page: math.MaxInt / 100, Skip: (math.MaxInt/100 - 1) * 100, Take: 100}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := Compile(tt.cfg, Request{Pagination: tt.page})
			require.NotNil(t, d.Window)
			assert.Equal(t, tt.want, *d.Window)
		})
	}
}

func TestCompile_FixedWhereComesFirst(t *testing.T) {
	fixed := Equals{Field: "is_deleted", Value: false}
	d := Compile(employeeConfig(), Request{Filter: map[string]any{"role": "ADMIN"}}, fixed)

	require.Len(t, d.Where, 2)
	assert.Equal(t, fixed, d.Where[0])
	assert.Equal(t, Equals{Field: "role", Value: "ADMIN"}, d.Where[1])
}

func TestCompile_Search(t *testing.T) {
	d := Compile(employeeConfig(), Request{Search: "ana"})

	require.Len(t, d.Where, 1)
	or, ok := d.Where[0].(Or)
	require.True(t, ok, "expected Or, got %T", d.Where[0])
	assert.Equal(t, Or{
		Contains{Field: "first_name", Value: "ana"},
		Relation{Name: "department", Where: Contains{Field: "name", Value: "ana"}},
		Equals{Field: "employment_status", Value: "ANA", Fold: true},
		JSONContains{Field: "metadata", Path: []string{"address", "city"}, Value: "ana"},
	}, or)
}

func TestCompile_SearchEnumFieldUsesEquality(t *testing.T) {
	cfg := Config{SearchableFields: []string{"payroll.process_state", "status"}}
	d := Compile(cfg, Request{Search: "pending"})

	or := d.Where[0].(Or)
	assert.Equal(t, Relation{Name: "payroll", Where: Equals{Field: "process_state", Value: "PENDING", Fold: true}}, or[0])
	assert.Equal(t, Equals{Field: "status", Value: "PENDING", Fold: true}, or[1])
	for _, c := range or {
		_, isContains := c.(Contains)
		assert.False(t, isContains)
	}
}

func TestCompile_DeepSearchPathFoldsRight(t *testing.T) {
	cfg := Config{SearchableFields: []string{"employee_allowances.allowance.name"}}
	d := Compile(cfg, Request{Search: "meal"})

	assert.Equal(t, Or{
		Relation{Name: "employee_allowances", Where: Relation{Name: "allowance", Where: Contains{Field: "name", Value: "meal"}}},
	}, d.Where[0])
	assert.Equal(t, [][]string{{"employee_allowances"}, {"employee_allowances", "allowance"}}, d.RelationPaths())
}

func TestCompile_BlankSearchIgnored(t *testing.T) {
	d := Compile(employeeConfig(), Request{Search: "   "})
	assert.Empty(t, d.Where)
}

func TestCompile_FilterIgnoresUnlistedFields(t *testing.T) {
	d := Compile(employeeConfig(), Request{Filter: map[string]any{
		"role":          "EMPLOYEE",
		"password_hash": "x",
		"department_id": nil,
	}})

	assert.ElementsMatch(t, And{
		Equals{Field: "role", Value: "EMPLOYEE"},
		Equals{Field: "department_id", Value: nil},
	}, d.Where)
}

func TestCompile_FilterDropsObjectAndListValues(t *testing.T) {
	d := Compile(employeeConfig(), Request{Filter: map[string]any{
		"role":          map[string]any{"$ne": "ADMIN"},
		"department_id": []any{"a", "b"},
	}})
	assert.Empty(t, d.Where)

	d = Compile(employeeConfig(), Request{Filter: map[string]any{"role": "ADMIN", "department_id": int64(4)}})
	assert.ElementsMatch(t, And{
		Equals{Field: "role", Value: "ADMIN"},
		Equals{Field: "department_id", Value: int64(4)},
	}, d.Where)
}

func TestCompile_DateExactWinsOverRange(t *testing.T) {
	d := Compile(Config{}, Request{Filter: map[string]any{
		"created_at":    "2024-03-01",
		"created_range": map[string]any{"start": "2024-01-01"},
	}})

	want := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	assert.Equal(t, And{Equals{Field: "created_at", Value: want}}, d.Where)
}

func TestCompile_DateRanges(t *testing.T) {
	cfg := Config{DateFields: DateFields{CreatedAt: "joined_at"}}
	d := Compile(cfg, Request{Filter: map[string]any{
		"created_range": map[string]any{"start": "2024-01-01", "end": "2024-01-31T23:59:59Z"},
		"updated_range": map[string]any{"end": "2024-02-01"},
	}})

	require.Len(t, d.Where, 2)
	created := d.Where[0].(Range)
	assert.Equal(t, "joined_at", created.Field)
	require.NotNil(t, created.Gte)
	require.NotNil(t, created.Lte)
	assert.Equal(t, time.Date(2024, 1, 31, 23, 59, 59, 0, time.UTC), *created.Lte)

	updated := d.Where[1].(Range)
	assert.Equal(t, "updated_at", updated.Field)
	assert.Nil(t, updated.Gte)
	assert.NotNil(t, updated.Lte)
}

func TestCompile_MalformedDatesDegrade(t *testing.T) {
	d := Compile(Config{}, Request{Filter: map[string]any{
		"created_at":    "yesterday",
		"updated_range": "nope",
	}})
	assert.Empty(t, d.Where)
}

func TestCompile_NullChecks(t *testing.T) {
	d := Compile(Config{}, Request{Filter: map[string]any{
		"is_null":     []any{"department_id", "position_id"},
		"is_not_null": "deleted_at",
	}})

	assert.Equal(t, And{
		And{IsNull{Field: "department_id"}, IsNull{Field: "position_id"}},
		Not{IsNull{Field: "deleted_at"}},
	}, d.Where)
}

func TestCompile_IncludeFlatRelation(t *testing.T) {
	cfg := Config{Relations: Relations{"department": nil}}

	d := Compile(cfg, Request{IncludeRelation: []string{"department"}})
	assert.Equal(t, Include{"department": &IncludeNode{}}, d.Include)

	cfg.Select = map[string]Selection{"department": {Fields: []string{"name"}}}
	d = Compile(cfg, Request{IncludeRelation: []string{"department"}})
	assert.Equal(t, Include{"department": &IncludeNode{Select: []string{"name"}}}, d.Include)
}

func TestCompile_IncludeNestedAndUnknown(t *testing.T) {
	d := Compile(employeeConfig(), Request{IncludeRelation: []string{"employee_allowances", "position", "salary"}})

	assert.Equal(t, Include{
		"employee_allowances": &IncludeNode{Include: Include{
			"allowance": &IncludeNode{Select: []string{"name", "amount"}},
		}},
		"position": &IncludeNode{Select: []string{"name"}},
	}, d.Include)
	assert.Equal(t, []string{"employee_allowances", "position"}, d.Include.Names())
}

func TestCompile_OrderBy(t *testing.T) {
	d := Compile(employeeConfig(), Request{OrderBy: []OrderRequest{
		{Field: "created_at", Direction: "DESC"},
		{Field: "password_hash", Direction: "asc"},
		{Field: "first_name"},
		{Field: "first_name", Direction: "sideways"},
	}})

	assert.Equal(t, []Order{
		{Field: "created_at", Direction: Desc},
		{Field: "first_name", Direction: Asc},
		{Field: "first_name", Direction: Asc},
	}, d.OrderBy)
}
