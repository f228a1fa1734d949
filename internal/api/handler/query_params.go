package handler

import (
	"fmt"
	"net/url"
	"reflect"
	"sort"
	"strconv"
	"strings"

	"github.com/go-viper/mapstructure/v2"

	"github.com/compupay/hr-backend/internal/core/domain"
	"github.com/compupay/hr-backend/internal/core/query"
)

const maxQueryDepth = 5

// decodeListRequest reads the listing contract from the query string.
// Nested keys use brackets or dots: pagination[page]=2, pagination.limit=5,
// order_by[0][field]=email, include_relation[]=department, filter[is_null][]=x.
func decodeListRequest(values url.Values) (query.Request, error) {
	var req query.Request

	tree, err := parseQuery(values)
	if err != nil {
		return req, domain.BadRequest("Invalid query string", domain.FieldError{Field: "query", Message: err.Error()})
	}

	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           &req,
		WeaklyTypedInput: true,
		DecodeHook: mapstructure.ComposeDecodeHookFunc(
			mapstructure.StringToSliceHookFunc(","),
			zeroUnparseableScalars,
		),
	})
	if err != nil {
		return req, err
	}
	if err := dec.Decode(tree); err != nil {
		return req, domain.BadRequest("Invalid query string", domain.FieldError{Field: "query", Message: err.Error()})
	}
	return req, nil
}

// zeroUnparseableScalars lets pagination[limit]=abc and friends fall back to
// their defaults instead of failing the request.
func zeroUnparseableScalars(from, to reflect.Type, data any) (any, error) {
	str, ok := data.(string)
	if !ok || from.Kind() != reflect.String {
		return data, nil
	}
	var err error
	switch to.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		_, err = strconv.ParseInt(str, 0, to.Bits())
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		_, err = strconv.ParseUint(str, 0, to.Bits())
	case reflect.Float32, reflect.Float64:
		_, err = strconv.ParseFloat(str, to.Bits())
	case reflect.Bool:
		_, err = strconv.ParseBool(str)
	default:
		return data, nil
	}
	if err != nil {
		return reflect.Zero(to).Interface(), nil
	}
	return data, nil
}

// parseQuery builds a nested value tree from the query string and coerces
// scalar strings other than the search term: "null" to nil, "true"/"false" to bools, canonical integers
// and decimals to numbers.
func parseQuery(values url.Values) (map[string]any, error) {
	keys := make([]string, 0, len(values))
	for k := range values {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	root := map[string]any{}
	for _, key := range keys {
		path, err := splitKey(key)
		if err != nil {
			return nil, err
		}
		for _, raw := range values[key] {
			var val any = raw
			if path[0] != "search" {
				val = coerce(raw)
			}
			if err := insert(root, path, val); err != nil {
				return nil, fmt.Errorf("%s: %w", key, err)
			}
		}
	}
	for k, child := range root {
		root[k] = normalize(child)
	}
	return root, nil
}

// splitKey turns a[b][c], a.b.c and a[] into path segments; "" marks an append.
func splitKey(key string) ([]string, error) {
	head, rest, hasBracket := strings.Cut(key, "[")
	path := strings.Split(head, ".")
	if hasBracket {
		rest = "[" + rest
		for rest != "" {
			if rest[0] != '[' {
				return nil, fmt.Errorf("malformed key %q", key)
			}
			end := strings.IndexByte(rest, ']')
			if end < 0 {
				return nil, fmt.Errorf("malformed key %q", key)
			}
			path = append(path, rest[1:end])
			rest = rest[end+1:]
		}
	}
	if len(path) > maxQueryDepth {
		return nil, fmt.Errorf("key %q nested too deeply", key)
	}
	for i, seg := range path {
		if seg == "" && (i == 0 || i != len(path)-1) {
			return nil, fmt.Errorf("malformed key %q", key)
		}
	}
	return path, nil
}

func insert(node map[string]any, path []string, val any) error {
	for i, seg := range path {
		last := i == len(path)-1
		if last && seg == "" {
			return fmt.Errorf("append without a key")
		}
		if last || (i == len(path)-2 && path[i+1] == "") {
			appendValue := !last
			existing, ok := node[seg]
			switch {
			case !ok && appendValue:
				node[seg] = []any{val}
			case !ok:
				node[seg] = val
			default:
				switch cur := existing.(type) {
				case []any:
					node[seg] = append(cur, val)
				case map[string]any:
					return fmt.Errorf("%q is both a value and an object", seg)
				default:
					node[seg] = []any{cur, val}
				}
			}
			return nil
		}

		next, ok := node[seg]
		if !ok {
			child := map[string]any{}
			node[seg] = child
			node = child
			continue
		}
		child, ok := next.(map[string]any)
		if !ok {
			return fmt.Errorf("%q is both a value and an object", seg)
		}
		node = child
	}
	return nil
}

// normalize turns maps whose keys are all array indexes into slices.
func normalize(v any) any {
	switch t := v.(type) {
	case map[string]any:
		for k, child := range t {
			t[k] = normalize(child)
		}
		if len(t) == 0 {
			return t
		}
		idx := make([]int, 0, len(t))
		byIdx := make(map[int]any, len(t))
		for k, child := range t {
			n, err := strconv.Atoi(k)
			if err != nil || n < 0 || strconv.Itoa(n) != k {
				return t
			}
			idx = append(idx, n)
			byIdx[n] = child
		}
		sort.Ints(idx)
		out := make([]any, 0, len(idx))
		for _, n := range idx {
			out = append(out, byIdx[n])
		}
		return out
	case []any:
		for i, child := range t {
			t[i] = normalize(child)
		}
		return t
	default:
		return v
	}
}

func coerce(s string) any {
	switch strings.ToLower(s) {
	case "null":
		return nil
	case "true":
		return true
	case "false":
		return false
	}
	if n, err := strconv.ParseInt(s, 10, 64); err == nil && strconv.FormatInt(n, 10) == s {
		return n
	}
	if f, err := strconv.ParseFloat(s, 64); err == nil && strings.Contains(s, ".") && strconv.FormatFloat(f, 'f', -1, 64) == s {
		return f
	}
	return s
}
