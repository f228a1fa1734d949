package query

import (
	"sort"
	"strings"
)

type Direction string

const (
	Asc  Direction = "asc"
	Desc Direction = "desc"
)

type Order struct {
	Field     string
	Direction Direction
}

// IncludeNode describes how one relation is included. A node with neither
// Select nor Include includes the relation in full.
type IncludeNode struct {
	Select  []string
	Include Include
}

// Include maps relation names to their inclusion node.
type Include map[string]*IncludeNode

// Names returns the relation names in lexical order.
func (in Include) Names() []string {
	names := make([]string, 0, len(in))
	for name := range in {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Window is a pagination window. Page is kept alongside Skip and Take so
// responses can report it.
type Window struct {
	Page int
	Skip int
	Take int
}

// Descriptor is the compiled form of a Request.
type Descriptor struct {
	Where   And
	OrderBy []Order
	Include Include
	// Window is nil when the caller asked for every row.
	Window *Window
}

// RelationPaths lists every relation path traversed by the predicate tree,
// e.g. [["department"], ["employee_allowances", "allowance"]].
func (d Descriptor) RelationPaths() [][]string {
	var paths [][]string
	seen := map[string]struct{}{}
	var walk func(c Condition, prefix []string)
	walk = func(c Condition, prefix []string) {
		switch n := c.(type) {
		case Relation:
			p := append(append([]string{}, prefix...), n.Name)
			key := strings.Join(p, ".")
			if _, ok := seen[key]; !ok {
				seen[key] = struct{}{}
				paths = append(paths, p)
			}
			walk(n.Where, p)
		case And:
			for _, m := range n {
				walk(m, prefix)
			}
		case Or:
			for _, m := range n {
				walk(m, prefix)
			}
		case Not:
			for _, m := range n {
				walk(m, prefix)
			}
		}
	}
	walk(d.Where, nil)
	return paths
}
