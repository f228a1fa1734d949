package mongo

import (
	"fmt"
	"regexp"
	"slices"
	"strings"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/compupay/hr-backend/internal/core/query"
)

// RelationSpec realises one relation as a $lookup against another collection.
type RelationSpec struct {
	Collection   string
	LocalField   string
	ForeignField string
	// Many keeps the lookup result as an array; otherwise it is unwound to a
	// single embedded document or left absent.
	Many      bool
	Relations map[string]RelationSpec
}

// Schema describes how a collection's relations and reference fields map
// onto MongoDB.
type Schema struct {
	Relations map[string]RelationSpec
	// ObjectIDFields hold ObjectIDs; hex string filter values on them are
	// converted before matching.
	ObjectIDFields []string
}

// Pipeline translates a compiled descriptor into an aggregation pipeline:
// lookups needed by the predicate, $match, $sort, the page window, and finally
// the included relations.
func (s Schema) Pipeline(d query.Descriptor) (mongo.Pipeline, error) {
	pipeline, err := s.matchStages(d)
	if err != nil {
		return nil, err
	}

	sort := bson.D{}
	for _, o := range d.OrderBy {
		dir := 1
		if o.Direction == query.Desc {
			dir = -1
		}
		sort = append(sort, bson.E{Key: o.Field, Value: dir})
	}
	sort = append(sort, bson.E{Key: "_id", Value: 1})
	pipeline = append(pipeline, bson.D{{Key: "$sort", Value: sort}})

	if w := d.Window; w != nil {
		pipeline = append(pipeline,
			bson.D{{Key: "$skip", Value: int64(w.Skip)}},
			bson.D{{Key: "$limit", Value: int64(w.Take)}},
		)
	}

	includes, err := s.IncludeStages(d.Include)
	if err != nil {
		return nil, err
	}
	return append(pipeline, includes...), nil
}

// CountPipeline counts the documents matched by d, ignoring window and order.
func (s Schema) CountPipeline(d query.Descriptor) (mongo.Pipeline, error) {
	pipeline, err := s.matchStages(d)
	if err != nil {
		return nil, err
	}
	return append(pipeline, bson.D{{Key: "$count", Value: "total"}}), nil
}

func (s Schema) matchStages(d query.Descriptor) (mongo.Pipeline, error) {
	var pipeline mongo.Pipeline

	paths := d.RelationPaths()
	var joined []string
	if len(paths) > 0 {
		tree := pathTree(paths)
		for _, name := range tree.Names() {
			spec, ok := s.Relations[name]
			if !ok {
				return nil, fmt.Errorf("unknown relation %q", name)
			}
			stage, err := lookupStage(name, spec, tree[name].Include, nil)
			if err != nil {
				return nil, err
			}
			pipeline = append(pipeline, stage)
			joined = append(joined, name)
		}
	}

	match, err := s.Filter(d.Where)
	if err != nil {
		return nil, err
	}
	pipeline = append(pipeline, bson.D{{Key: "$match", Value: match}})

	if len(joined) > 0 {
		pipeline = append(pipeline, bson.D{{Key: "$unset", Value: joined}})
	}
	return pipeline, nil
}

// IncludeStages returns the lookups that embed the relations named by in.
func (s Schema) IncludeStages(in query.Include) (mongo.Pipeline, error) {
	var pipeline mongo.Pipeline
	for _, name := range in.Names() {
		spec, ok := s.Relations[name]
		if !ok {
			return nil, fmt.Errorf("unknown relation %q", name)
		}
		node := in[name]
		var sel []string
		var nested query.Include
		if node != nil {
			sel, nested = node.Select, node.Include
		}
		stage, err := lookupStage(name, spec, nested, sel)
		if err != nil {
			return nil, err
		}
		pipeline = append(pipeline, stage)
		if !spec.Many {
			pipeline = append(pipeline, unwindStage(name))
		}
	}
	return pipeline, nil
}

func lookupStage(name string, spec RelationSpec, nested query.Include, sel []string) (bson.D, error) {
	sub := mongo.Pipeline{}
	for _, child := range nested.Names() {
		childSpec, ok := spec.Relations[child]
		if !ok {
			return nil, fmt.Errorf("unknown relation %q under %q", child, name)
		}
		node := nested[child]
		var childSel []string
		var grand query.Include
		if node != nil {
			childSel, grand = node.Select, node.Include
		}
		stage, err := lookupStage(child, childSpec, grand, childSel)
		if err != nil {
			return nil, err
		}
		sub = append(sub, stage)
		if !childSpec.Many {
			sub = append(sub, unwindStage(child))
		}
	}
	if len(sel) > 0 {
		proj := bson.D{}
		for _, f := range sel {
			proj = append(proj, bson.E{Key: f, Value: 1})
		}
		for _, child := range nested.Names() {
			if !slices.Contains(sel, child) {
				proj = append(proj, bson.E{Key: child, Value: 1})
			}
		}
		sub = append(sub, bson.D{{Key: "$project", Value: proj}})
	}

	return bson.D{{Key: "$lookup", Value: bson.D{
		{Key: "from", Value: spec.Collection},
		{Key: "localField", Value: spec.LocalField},
		{Key: "foreignField", Value: spec.ForeignField},
		{Key: "pipeline", Value: sub},
		{Key: "as", Value: name},
	}}}, nil
}

func unwindStage(name string) bson.D {
	return bson.D{{Key: "$unwind", Value: bson.D{
		{Key: "path", Value: "$" + name},
		{Key: "preserveNullAndEmptyArrays", Value: true},
	}}}
}

// pathTree folds relation paths into a nested Include so shared prefixes are
// looked up once.
func pathTree(paths [][]string) query.Include {
	root := query.Include{}
	for _, p := range paths {
		level := root
		for _, name := range p {
			node, ok := level[name]
			if !ok {
				node = &query.IncludeNode{Include: query.Include{}}
				level[name] = node
			}
			level = node.Include
		}
	}
	return root
}

// Filter translates a predicate tree into a $match document. Relation nodes
// become dotted paths into the looked-up documents.
func (s Schema) Filter(c query.Condition) (bson.D, error) {
	return s.translate(c, "")
}

func (s Schema) translate(c query.Condition, prefix string) (bson.D, error) {
	switch n := c.(type) {
	case nil:
		return bson.D{}, nil
	case query.Equals:
		field := prefix + n.Field
		if str, ok := n.Value.(string); ok && n.Fold {
			return bson.D{{Key: field, Value: primitive.Regex{Pattern: "^" + regexp.QuoteMeta(str) + "$", Options: "i"}}}, nil
		}
		return bson.D{{Key: field, Value: bson.D{{Key: "$eq", Value: s.value(field, n.Value)}}}}, nil
	case query.Contains:
		return bson.D{{Key: prefix + n.Field, Value: containsRegex(n.Value)}}, nil
	case query.JSONContains:
		field := prefix + strings.Join(append([]string{n.Field}, n.Path...), ".")
		return bson.D{{Key: field, Value: containsRegex(n.Value)}}, nil
	case query.Range:
		bounds := bson.D{}
		if n.Gte != nil {
			bounds = append(bounds, bson.E{Key: "$gte", Value: *n.Gte})
		}
		if n.Lte != nil {
			bounds = append(bounds, bson.E{Key: "$lte", Value: *n.Lte})
		}
		if len(bounds) == 0 {
			return bson.D{}, nil
		}
		return bson.D{{Key: prefix + n.Field, Value: bounds}}, nil
	case query.IsNull:
		return bson.D{{Key: prefix + n.Field, Value: nil}}, nil
	case query.Relation:
		return s.translate(n.Where, prefix+n.Name+".")
	case query.And:
		if len(n) == 0 {
			return bson.D{}, nil
		}
		parts, err := s.translateAll(n, prefix)
		if err != nil {
			return nil, err
		}
		return bson.D{{Key: "$and", Value: parts}}, nil
	case query.Or:
		if len(n) == 0 {
			return bson.D{{Key: "$expr", Value: false}}, nil
		}
		parts, err := s.translateAll(n, prefix)
		if err != nil {
			return nil, err
		}
		return bson.D{{Key: "$or", Value: parts}}, nil
	case query.Not:
		if len(n) == 0 {
			return bson.D{}, nil
		}
		parts, err := s.translateAll(n, prefix)
		if err != nil {
			return nil, err
		}
		return bson.D{{Key: "$nor", Value: parts}}, nil
	default:
		return nil, fmt.Errorf("unsupported condition %T", c)
	}
}

func (s Schema) translateAll(conds []query.Condition, prefix string) (bson.A, error) {
	parts := make(bson.A, 0, len(conds))
	for _, c := range conds {
		d, err := s.translate(c, prefix)
		if err != nil {
			return nil, err
		}
		parts = append(parts, d)
	}
	return parts, nil
}

func (s Schema) value(field string, v any) any {
	str, ok := v.(string)
	if !ok || !slices.Contains(s.ObjectIDFields, field) {
		return v
	}
	if oid, err := primitive.ObjectIDFromHex(str); err == nil {
		return oid
	}
	return v
}

func containsRegex(term string) primitive.Regex {
	return primitive.Regex{Pattern: regexp.QuoteMeta(term), Options: "i"}
}
