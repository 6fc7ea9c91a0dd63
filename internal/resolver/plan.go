package resolver

import (
	"context"
	"fmt"
	"slices"
	"strconv"

	"github.com/roach88/relsync/internal/graph"
	"github.com/roach88/relsync/internal/ir"
	"github.com/roach88/relsync/internal/queryir"
)

// planner builds one read plan. It is used once.
type planner struct {
	ctx      context.Context
	registry Registry
	scope    string
}

func (p *planner) plan(d *graph.Descriptor, q ir.Query) (queryir.Plan, error) {
	columns, err := d.SanitizeScoped(p.scope, q.Attributes)
	if err != nil {
		return queryir.Plan{}, err
	}

	var filter queryir.Predicate
	if q.ByID != nil {
		if filter, err = byID(d, q.ByID); err != nil {
			return queryir.Plan{}, err
		}
	} else if len(q.Filters) > 0 {
		if filter, err = p.translate(d, q.Filters); err != nil {
			return queryir.Plan{}, err
		}
	}

	var chain []string
	if q.ByID == nil && q.Order != nil {
		chain = q.Order.Chain
	}
	includes, required, err := p.includes(d, q.Include, chain)
	if err != nil {
		return queryir.Plan{}, err
	}

	sel := queryir.Select{
		From:   d.Table(),
		Filter: queryir.AndOf(append([]queryir.Predicate{filter}, required...)...),
	}

	hidden := linkColumns(columns, includes)
	if len(columns)+len(hidden) == 0 {
		hidden = fallbackColumns(d)
	}
	sel.Columns = queryir.Columns(append(slices.Clone(columns), hidden...)...)

	if q.ByID == nil {
		if sel.Joins, sel.Order, err = p.order(d, q.Order); err != nil {
			return queryir.Plan{}, err
		}
		if q.Pagination != nil {
			sel.Offset = max(q.Pagination.Skip, 0)
			sel.Limit = max(q.Pagination.Take, 0)
		}
	}

	return queryir.Plan{Select: sel, Includes: includes, Hidden: hidden}, nil
}

// byID builds the equality predicate on every primary key.
func byID(d *graph.Descriptor, ids map[string]any) (queryir.Predicate, error) {
	pks := d.PrimaryKeys()
	if len(pks) == 0 {
		return nil, ir.NewConfigError(ir.ErrCodeMissingPrimaryKey, d.Name(), "byId on a model without primary keys")
	}
	preds := make([]queryir.Predicate, 0, len(pks))
	for _, pk := range pks {
		v, ok := ids[pk]
		if !ok || v == nil {
			return nil, ir.NewConfigError(ir.ErrCodeMissingPrimaryKey, d.Name(), "byId is missing primary key %q", pk)
		}
		preds = append(preds, queryir.Equals{Field: queryir.F(pk), Value: v})
	}
	return queryir.AndOf(preds...), nil
}

// includes builds the include nodes of d for include and the order chain,
// and returns the EXISTS predicates of the required ones.
func (p *planner) includes(d *graph.Descriptor, include map[string]*ir.SubQuery, chain []string) ([]queryir.Include, []queryir.Predicate, error) {
	aliases := ir.SortedKeys(include)
	if len(chain) > 0 && !slices.Contains(aliases, chain[0]) {
		aliases = append(aliases, chain[0])
	}

	var (
		out      []queryir.Include
		required []queryir.Predicate
	)
	for _, alias := range aliases {
		rel, ok := d.Relation(alias)
		if !ok || rel.Virtual {
			continue
		}
		target, err := p.registry.Descriptor(rel.Target)
		if err != nil {
			return nil, nil, err
		}

		sub := include[alias]
		if sub == nil {
			sub = &ir.SubQuery{}
		}
		var rest []string
		if len(chain) > 0 && chain[0] == alias {
			rest = chain[1:]
		}

		inc, err := p.include(rel, target, sub, rest)
		if err != nil {
			return nil, nil, err
		}
		if inc.Required {
			exists, err := p.exists(rel, inc.Filter)
			if err != nil {
				return nil, nil, err
			}
			required = append(required, exists)
		}
		out = append(out, inc)
	}
	return out, required, nil
}

func (p *planner) include(rel graph.Relation, target *graph.Descriptor, sub *ir.SubQuery, chain []string) (queryir.Include, error) {
	columns := target.SanitizeAttributes(sub.Attributes)
	if allowed, err := allowedAttributes(target, p.scope); err == nil {
		columns = sanitizeAgainst(allowed, columns)
	}

	filter, err := p.translate(target, sub.Filters)
	if err != nil {
		return queryir.Include{}, fmt.Errorf("include %s: %w", rel.Alias, err)
	}
	scope, err := p.relationScope(rel, target)
	if err != nil {
		return queryir.Include{}, err
	}

	nested, required, err := p.includes(target, sub.Include, chain)
	if err != nil {
		return queryir.Include{}, err
	}

	inc := queryir.Include{
		Alias:     rel.Alias,
		Table:     target.Table(),
		Columns:   columns,
		Filter:    queryir.AndOf(append([]queryir.Predicate{filter, scope}, required...)...),
		Required:  sub.Required,
		Many:      rel.Many(),
		ParentKey: rel.SourceKey,
		ChildKey:  rel.TargetKey,
		Order:     defaultOrder(target),
		Includes:  nested,
	}
	if rel.Type == ir.RelationManyToMany {
		through, err := p.registry.Descriptor(rel.Through)
		if err != nil {
			return queryir.Include{}, err
		}
		inc.Through = &queryir.Through{Table: through.Table(), ParentKey: rel.ForeignKey, ChildKey: rel.OtherKey}
	}

	inc.Hidden = linkColumns(columns, nested)
	if len(columns)+len(inc.Hidden) == 0 && inc.Through != nil {
		inc.Hidden = fallbackColumns(target)
	}
	return inc, nil
}

// order builds the ORDER BY terms and the LEFT JOINs an order chain needs.
// A disallowed order field falls back to the default order.
func (p *planner) order(d *graph.Descriptor, o *ir.Order) ([]queryir.Join, []queryir.OrderTerm, error) {
	if o != nil && o.Ordering == ir.OrderNone {
		return nil, nil, nil
	}

	if o != nil && o.Field != "" {
		if !o.Ordering.Valid() {
			return nil, nil, ir.NewConfigError(ir.ErrCodeInvalidQuery, d.Name(), "invalid ordering %q", o.Ordering)
		}

		var joins []queryir.Join
		cur, source := d, ""
		for i, alias := range o.Chain {
			rel, ok := cur.Relation(alias)
			if !ok || rel.Virtual {
				return nil, nil, ir.NewConfigError(ir.ErrCodeInvalidQuery, cur.Name(), "order chain: unknown relation %q", alias)
			}
			if rel.Many() {
				return nil, nil, ir.NewConfigError(ir.ErrCodeInvalidQuery, cur.Name(), "order chain: relation %q is to-many", alias)
			}
			target, err := p.registry.Descriptor(rel.Target)
			if err != nil {
				return nil, nil, err
			}
			join := queryir.Join{
				Kind:   queryir.LeftJoin,
				Table:  target.Table(),
				Alias:  "j" + strconv.Itoa(i+1),
				Key:    rel.TargetKey,
				Parent: queryir.On(source, rel.SourceKey),
			}
			joins = append(joins, join)
			cur, source = target, join.Alias
		}

		if allowed, err := allowedAttributes(cur, p.scope); err == nil && slices.Contains(allowed, o.Field) {
			terms := []queryir.OrderTerm{{Field: queryir.On(source, o.Field), Desc: o.Direction() == ir.OrderDesc}}
			return joins, tiebreak(d, terms), nil
		}
	}

	return nil, tiebreak(d, defaultOrder(d)), nil
}

// defaultOrder returns the descriptor's default order as terms.
func defaultOrder(d *graph.Descriptor) []queryir.OrderTerm {
	o := d.DefaultOrder()
	if o == nil {
		return nil
	}
	return tiebreak(d, []queryir.OrderTerm{{Field: queryir.F(o.Field), Desc: o.Direction() == ir.OrderDesc}})
}

// tiebreak appends the primary keys not already ordered on so equal sort
// keys come back in a stable order.
func tiebreak(d *graph.Descriptor, terms []queryir.OrderTerm) []queryir.OrderTerm {
	if len(terms) == 0 {
		return terms
	}
	for _, pk := range d.PrimaryKeys() {
		if !slices.Contains(terms, queryir.OrderTerm{Field: queryir.F(pk)}) &&
			!slices.Contains(terms, queryir.OrderTerm{Field: queryir.F(pk), Desc: true}) {
			terms = append(terms, queryir.OrderTerm{Field: queryir.F(pk)})
		}
	}
	return terms
}

// linkColumns lists the parent keys of includes that are not already
// projected.
func linkColumns(columns []string, includes []queryir.Include) []string {
	var hidden []string
	for _, inc := range includes {
		if !slices.Contains(columns, inc.ParentKey) && !slices.Contains(hidden, inc.ParentKey) {
			hidden = append(hidden, inc.ParentKey)
		}
	}
	return hidden
}

// fallbackColumns is fetched when nothing visible is: a select needs at
// least one column.
func fallbackColumns(d *graph.Descriptor) []string {
	if pks := d.PrimaryKeys(); len(pks) > 0 {
		return pks[:1]
	}
	return []string{d.Attributes()[0].Name}
}

// allowedAttributes is the scope's allow-list on a related model. Related
// models that do not declare the scope expose every attribute.
func allowedAttributes(d *graph.Descriptor, scope string) ([]string, error) {
	allowed, err := d.AllowedAttributes(scope)
	if err != nil {
		if code, _ := ir.ConfigErrorCodeOf(err); code == ir.ErrCodeUnknownScope {
			return d.AllowedAttributes(graph.DefaultScope)
		}
		return nil, err
	}
	return allowed, nil
}

func sanitizeAgainst(allowed, requested []string) []string {
	out := make([]string, 0, len(requested))
	for _, name := range requested {
		if slices.Contains(allowed, name) {
			out = append(out, name)
		}
	}
	return out
}
