package query

import (
	"fmt"
	"math"
	"reflect"
	"slices"
	"strings"
	"time"
)

// enumMarkers flags field paths holding enum values. Such fields are matched
// by equality against the upper-cased search term.
var enumMarkers = []string{"status", "process"}

var dateLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02",
}

// Compile turns req into a Descriptor under cfg. fixedWhere is prepended to the
// predicate tree unchanged; callers use it for scoping such as soft deletion.
func Compile(cfg Config, req Request, fixedWhere ...Condition) Descriptor {
	where := append(And{}, fixedWhere...)

	if search := searchConditions(cfg, req.Search); len(search) > 0 {
		where = append(where, search)
	}
	where = append(where, filterConditions(cfg, req.Filter)...)
	where = append(where, dateConditions(req.Filter, FilterCreatedAt, FilterCreatedRange, cfg.createdField())...)
	where = append(where, dateConditions(req.Filter, FilterUpdatedAt, FilterUpdatedRange, cfg.updatedField())...)

	if fields := stringList(req.Filter[FilterIsNull]); len(fields) > 0 {
		group := make(And, 0, len(fields))
		for _, f := range fields {
			group = append(group, IsNull{Field: f})
		}
		where = append(where, group)
	}
	if fields := stringList(req.Filter[FilterIsNotNull]); len(fields) > 0 {
		group := make(Not, 0, len(fields))
		for _, f := range fields {
			group = append(group, IsNull{Field: f})
		}
		where = append(where, group)
	}

	return Descriptor{
		Where:   where,
		OrderBy: orderBy(cfg, req.OrderBy),
		Include: include(cfg, req.IncludeRelation),
		Window:  window(cfg, req),
	}
}

func searchConditions(cfg Config, search string) Or {
	if strings.TrimSpace(search) == "" {
		return nil
	}

	var or Or
	for _, path := range cfg.SearchableFields {
		parts := strings.Split(path, ".")
		leaf := parts[len(parts)-1]

		var cond Condition = Contains{Field: leaf, Value: search}
		if isEnumField(path) {
			cond = Equals{Field: leaf, Value: strings.ToUpper(search), Fold: true}
		}
		for i := len(parts) - 2; i >= 0; i-- {
			cond = Relation{Name: parts[i], Where: cond}
		}
		or = append(or, cond)
	}
	for _, jf := range cfg.JSONSearchableFields {
		or = append(or, JSONContains{Field: jf.Field, Path: slices.Clone(jf.Path), Value: search})
	}
	return or
}

func isEnumField(path string) bool {
	for _, m := range enumMarkers {
		if strings.Contains(path, m) {
			return true
		}
	}
	return false
}

func filterConditions(cfg Config, filter map[string]any) []Condition {
	var out []Condition
	for _, field := range cfg.FilterableFields {
		if val, ok := filter[field]; ok && isScalar(val) {
			out = append(out, Equals{Field: field, Value: val})
		}
	}
	return out
}

// isScalar rejects objects and lists, which would otherwise reach the store
// as operator documents.
func isScalar(v any) bool {
	if v == nil {
		return true
	}
	switch reflect.TypeOf(v).Kind() {
	case reflect.Map, reflect.Slice, reflect.Array, reflect.Struct, reflect.Pointer:
		_, isTime := v.(time.Time)
		return isTime
	}
	return true
}

// dateConditions prefers an exact value under exactKey over a range under
// rangeKey. Unparseable dates are ignored.
func dateConditions(filter map[string]any, exactKey, rangeKey, field string) []Condition {
	if raw, ok := filter[exactKey]; ok && !isZero(raw) {
		if t, ok := parseTime(raw); ok {
			return []Condition{Equals{Field: field, Value: t}}
		}
		return nil
	}

	bounds, ok := filter[rangeKey].(map[string]any)
	if !ok {
		return nil
	}
	r := Range{Field: field}
	if t, ok := parseTime(bounds["start"]); ok {
		r.Gte = &t
	}
	if t, ok := parseTime(bounds["end"]); ok {
		r.Lte = &t
	}
	if r.Gte == nil && r.Lte == nil {
		return nil
	}
	return []Condition{r}
}

func include(cfg Config, names []string) Include {
	out := Include{}
	for _, name := range names {
		rel, ok := cfg.Relations[name]
		if !ok {
			continue
		}
		sel := cfg.Select[name]
		switch {
		case len(rel) > 0:
			out[name] = &IncludeNode{Include: nestedInclude(rel, sel.Children)}
		case len(sel.Fields) > 0:
			out[name] = &IncludeNode{Select: slices.Clone(sel.Fields)}
		default:
			out[name] = &IncludeNode{}
		}
	}
	return out
}

// nestedInclude includes every sub-relation of rels, recursively, applying the
// matching selection at each level.
func nestedInclude(rels Relations, selects map[string]Selection) Include {
	out := make(Include, len(rels))
	for name, sub := range rels {
		sel := selects[name]
		switch {
		case len(sub) > 0:
			out[name] = &IncludeNode{Include: nestedInclude(sub, sel.Children)}
		case len(sel.Fields) > 0:
			out[name] = &IncludeNode{Select: slices.Clone(sel.Fields)}
		default:
			out[name] = &IncludeNode{}
		}
	}
	return out
}

func orderBy(cfg Config, reqs []OrderRequest) []Order {
	var out []Order
	for _, r := range reqs {
		if !slices.Contains(cfg.OrderableFields, r.Field) {
			continue
		}
		dir := Asc
		if strings.EqualFold(r.Direction, string(Desc)) {
			dir = Desc
		}
		out = append(out, Order{Field: r.Field, Direction: dir})
	}
	return out
}

func window(cfg Config, req Request) *Window {
	if req.GetAll {
		return nil
	}
	page, limit := DefaultPage, cfg.defaultLimit()
	if p := req.Pagination; p != nil {
		if p.Page > 0 {
			page = p.Page
		}
		if p.Limit > 0 {
			limit = p.Limit
		}
	}
	if cfg.MaxLimit > 0 && limit > cfg.MaxLimit {
		limit = cfg.MaxLimit
	}
	// Keep (page-1)*limit within int.
	if maxPage := math.MaxInt / limit; page > maxPage {
		page = maxPage
	}
	return &Window{Page: page, Skip: (page - 1) * limit, Take: limit}
}

func parseTime(v any) (time.Time, bool) {
	switch t := v.(type) {
	case time.Time:
		return t, !t.IsZero()
	case string:
		s := strings.TrimSpace(t)
		for _, layout := range dateLayouts {
			if parsed, err := time.Parse(layout, s); err == nil {
				return parsed, true
			}
		}
	case int64:
		return time.UnixMilli(t).UTC(), true
	case int:
		return time.UnixMilli(int64(t)).UTC(), true
	case float64:
		return time.UnixMilli(int64(t)).UTC(), true
	}
	return time.Time{}, false
}

// stringList accepts a list or a single scalar and returns its string members.
func stringList(v any) []string {
	switch l := v.(type) {
	case nil:
		return nil
	case []string:
		return l
	case []any:
		out := make([]string, 0, len(l))
		for _, item := range l {
			if s := fmt.Sprint(item); item != nil && s != "" {
				out = append(out, s)
			}
		}
		return out
	case string:
		if l == "" {
			return nil
		}
		return []string{l}
	}
	return nil
}

func isZero(v any) bool {
	switch t := v.(type) {
	case nil:
		return true
	case string:
		return t == ""
	case bool:
		return !t
	}
	return false
}
