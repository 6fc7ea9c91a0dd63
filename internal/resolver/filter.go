package resolver

import (
	"fmt"
	"log/slog"
	"reflect"
	"slices"
	"strings"

	"golang.org/x/text/cases"

	"github.com/roach88/relsync/internal/graph"
	"github.com/roach88/relsync/internal/ir"
	"github.com/roach88/relsync/internal/queryir"
)

// Comparison operators accepted inside an operator object such as
// {"total": {"$gte": 10}}.
var comparisons = map[string]queryir.CompareOp{
	"$ne":  queryir.OpNotEqual,
	"$lt":  queryir.OpLess,
	"$lte": queryir.OpLessEqual,
	"$gt":  queryir.OpGreater,
	"$gte": queryir.OpGreaterEqual,
}

// fold case-folds s for LIKE patterns. A Caser is stateful, so each call
// gets its own.
func fold(s string) string {
	return cases.Fold().String(s)
}

// translate turns a filter on d into a predicate.
//
// Keys are processed in sorted order so equal filters yield equal SQL. A
// custom builder registered for a key overrides everything else. Keys that
// are neither allowed attributes, relation aliases nor "$and"/"$or" are
// dropped.
func (p *planner) translate(d *graph.Descriptor, f ir.Filter) (queryir.Predicate, error) {
	if len(f) == 0 {
		return nil, nil
	}
	allowed, err := allowedAttributes(d, p.scope)
	if err != nil {
		return nil, err
	}

	var preds []queryir.Predicate
	for _, key := range ir.SortedKeys(f) {
		value := f[key]

		if build, ok := d.FilterBuilder(key); ok {
			pred, err := build(p.ctx, value)
			if err != nil {
				return nil, fmt.Errorf("filter %s.%s: %w", d.Name(), key, err)
			}
			if pred != nil {
				preds = append(preds, pred)
			}
			continue
		}

		var pred queryir.Predicate
		switch {
		case key == ir.FilterAnd || key == ir.FilterOr:
			pred, err = p.junction(d, key, value)
		case slices.Contains(allowed, key):
			pred, err = attributePredicate(d, key, value)
		default:
			if rel, ok := d.Relation(key); ok && !rel.Virtual {
				pred, err = p.relationPredicate(rel, value)
			} else {
				slog.Debug("dropping filter key", "model", d.Name(), "key", key)
			}
		}
		if err != nil {
			return nil, err
		}
		if pred != nil {
			preds = append(preds, pred)
		}
	}
	return queryir.AndOf(preds...), nil
}

// junction translates the list under "$and" or "$or".
func (p *planner) junction(d *graph.Descriptor, key string, value any) (queryir.Predicate, error) {
	filters, ok := filterList(value)
	if !ok {
		return nil, ir.NewConfigError(ir.ErrCodeInvalidQuery, d.Name(), "%s expects a list of filters, got %T", key, value)
	}
	var preds []queryir.Predicate
	for _, f := range filters {
		pred, err := p.translate(d, f)
		if err != nil {
			return nil, err
		}
		if pred == nil {
			pred = queryir.And{}
		}
		preds = append(preds, pred)
	}
	if key == ir.FilterOr {
		return queryir.Or{Predicates: preds}, nil
	}
	return queryir.And{Predicates: preds}, nil
}

// relationPredicate filters on related rows. An object value requires a
// related row matching it; null requires that there is none.
func (p *planner) relationPredicate(rel graph.Relation, value any) (queryir.Predicate, error) {
	if value == nil {
		exists, err := p.exists(rel, nil)
		if err != nil {
			return nil, err
		}
		return queryir.Not{Predicate: exists}, nil
	}

	f, ok := asFilter(value)
	if !ok {
		slog.Debug("dropping relation filter", "model", rel.Source, "alias", rel.Alias, "type", fmt.Sprintf("%T", value))
		return nil, nil
	}
	target, err := p.registry.Descriptor(rel.Target)
	if err != nil {
		return nil, err
	}
	inner, err := p.translate(target, f)
	if err != nil {
		return nil, err
	}
	return p.exists(rel, inner)
}

// exists builds the correlated sub query matching rows related through rel
// that satisfy filter. The relation's static scope is applied too.
func (p *planner) exists(rel graph.Relation, filter queryir.Predicate) (queryir.Predicate, error) {
	target, err := p.registry.Descriptor(rel.Target)
	if err != nil {
		return nil, err
	}
	scope, err := p.relationScope(rel, target)
	if err != nil {
		return nil, err
	}

	ex := queryir.Exists{
		Table:  target.Table(),
		Link:   queryir.Link{Key: rel.TargetKey, Parent: rel.SourceKey},
		Filter: queryir.AndOf(filter, scope),
	}
	if rel.Type == ir.RelationManyToMany {
		through, err := p.registry.Descriptor(rel.Through)
		if err != nil {
			return nil, err
		}
		ex.Link.Through = through.Table()
		ex.Link.ThroughKey = rel.ForeignKey
		ex.Link.ThroughOther = rel.OtherKey
	}
	return ex, nil
}

// relationScope translates the static filter declared on a relation. It is
// trusted configuration, so every attribute of the target is allowed.
func (p *planner) relationScope(rel graph.Relation, target *graph.Descriptor) (queryir.Predicate, error) {
	if len(rel.Scope) == 0 {
		return nil, nil
	}
	trusted := &planner{ctx: p.ctx, registry: p.registry, scope: graph.DefaultScope}
	pred, err := trusted.translate(target, rel.Scope)
	if err != nil {
		return nil, fmt.Errorf("relation %s.%s scope: %w", rel.Source, rel.Alias, err)
	}
	return pred, nil
}

// attributePredicate translates the value of one attribute key:
// null is IS NULL, a list is IN, a string is a case-insensitive substring
// match, an operator object compares, anything else is equality.
func attributePredicate(d *graph.Descriptor, key string, value any) (queryir.Predicate, error) {
	field := queryir.F(key)

	switch v := value.(type) {
	case nil:
		return queryir.IsNull{Field: field}, nil
	case string:
		return queryir.Like{Field: field, Pattern: "%" + escapeLike(fold(v)) + "%"}, nil
	case []byte:
		return queryir.Equals{Field: field, Value: string(v)}, nil
	}

	if values, ok := listValues(value); ok {
		return queryir.In{Field: field, Values: values}, nil
	}
	if ops, ok := asFilter(value); ok {
		if attr, _ := d.Attribute(key); attr.Type != ir.TypeJSON {
			return operatorPredicate(d, field, ops)
		}
	}
	return queryir.Equals{Field: field, Value: value}, nil
}

// operatorPredicate translates an operator object on one field.
func operatorPredicate(d *graph.Descriptor, field queryir.Field, ops ir.Filter) (queryir.Predicate, error) {
	var preds []queryir.Predicate
	for _, op := range ir.SortedKeys(ops) {
		v := ops[op]
		switch op {
		case "$eq":
			preds = append(preds, queryir.Equals{Field: field, Value: v})
		case "$in":
			values, ok := listValues(v)
			if !ok {
				return nil, ir.NewConfigError(ir.ErrCodeInvalidQuery, d.Name(), "%s: $in expects a list", field.Name)
			}
			preds = append(preds, queryir.In{Field: field, Values: values})
		case "$like":
			s, ok := v.(string)
			if !ok {
				return nil, ir.NewConfigError(ir.ErrCodeInvalidQuery, d.Name(), "%s: $like expects a string", field.Name)
			}
			preds = append(preds, queryir.Like{Field: field, Pattern: fold(s)})
		case "$ne":
			if v == nil {
				preds = append(preds, queryir.Not{Predicate: queryir.IsNull{Field: field}})
				continue
			}
			preds = append(preds, queryir.Compare{Field: field, Op: comparisons[op], Value: v})
		default:
			cmp, ok := comparisons[op]
			if !ok {
				return nil, ir.NewConfigError(ir.ErrCodeInvalidQuery, d.Name(), "%s: unknown operator %q", field.Name, op)
			}
			preds = append(preds, queryir.Compare{Field: field, Op: cmp, Value: v})
		}
	}
	return queryir.AndOf(preds...), nil
}

// escapeLike escapes the LIKE wildcards of user input.
func escapeLike(s string) string {
	return strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(s)
}

// listValues returns the elements of any slice or array except []byte.
func listValues(v any) ([]any, bool) {
	if list, ok := v.([]any); ok {
		return list, true
	}
	rv := reflect.ValueOf(v)
	if rv.Kind() != reflect.Slice && rv.Kind() != reflect.Array {
		return nil, false
	}
	if rv.Type().Elem().Kind() == reflect.Uint8 {
		return nil, false
	}
	out := make([]any, rv.Len())
	for i := range out {
		out[i] = rv.Index(i).Interface()
	}
	return out, true
}

func asFilter(v any) (ir.Filter, bool) {
	switch f := v.(type) {
	case ir.Filter:
		return f, true
	case map[string]any:
		return ir.Filter(f), true
	case ir.Row:
		return ir.Filter(f), true
	}
	return nil, false
}

func filterList(v any) ([]ir.Filter, bool) {
	switch list := v.(type) {
	case []ir.Filter:
		return list, true
	case []map[string]any:
		out := make([]ir.Filter, len(list))
		for i, m := range list {
			out[i] = m
		}
		return out, true
	}
	items, ok := listValues(v)
	if !ok {
		return nil, false
	}
	out := make([]ir.Filter, 0, len(items))
	for _, item := range items {
		f, ok := asFilter(item)
		if !ok {
			return nil, false
		}
		out = append(out, f)
	}
	return out, true
}
