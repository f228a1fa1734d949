package query

import "time"

// Condition is a node of the filter predicate tree. The set of node types is
// closed: Equals, Contains, JSONContains, Range, IsNull, Relation, And, Or, Not.
type Condition interface {
	condition()
}

// Equals matches Field == Value. Fold requests case-insensitive comparison of
// string values.
type Equals struct {
	Field string
	Value any
	Fold  bool
}

// Contains matches a case-insensitive substring of Field.
type Contains struct {
	Field string
	Value string
}

// JSONContains matches a case-insensitive substring of the value found at Path
// inside the structured document stored in Field.
type JSONContains struct {
	Field string
	Path  []string
	Value string
}

// Range bounds Field inclusively; either bound may be nil.
type Range struct {
	Field string
	Gte   *time.Time
	Lte   *time.Time
}

// IsNull matches a null or absent Field.
type IsNull struct {
	Field string
}

// Relation applies Where to the records reached through relation Name.
type Relation struct {
	Name  string
	Where Condition
}

// And holds when every member holds. An empty And matches everything.
type And []Condition

// Or holds when at least one member holds.
type Or []Condition

// Not holds when none of its members holds.
type Not []Condition

func (Equals) condition()       {}
func (Contains) condition()     {}
func (JSONContains) condition() {}
func (Range) condition()        {}
func (IsNull) condition()       {}
func (Relation) condition()     {}
func (And) condition()          {}
func (Or) condition()           {}
func (Not) condition()          {}
