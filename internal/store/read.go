package store

import (
	"context"
	"fmt"
	"slices"

	"github.com/roach88/relsync/internal/binding"
	"github.com/roach88/relsync/internal/graph"
	"github.com/roach88/relsync/internal/ir"
	"github.com/roach88/relsync/internal/queryir"
)

const (
	// parentColumn carries the parent key of a many-to-many include row.
	parentColumn = "__parent"

	// throughAlias is the join alias of the through table.
	throughAlias = "j1"

	// maxInList bounds the keys of one include query.
	maxInList = 500
)

// table is the binding.Table of one model.
type table struct {
	store *Store
	desc  *graph.Descriptor
}

var _ binding.Table = (*table)(nil)

func (t *table) Model() string {
	return t.desc.Name()
}

// FindOne returns the first row of plan, or nil when none matches.
func (t *table) FindOne(ctx context.Context, tx binding.Tx, plan queryir.Plan) (ir.Row, error) {
	plan.Select.Limit = 1
	rows, err := t.FindAll(ctx, tx, plan)
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, nil
	}
	return rows[0], nil
}

// FindAll returns every row of plan with includes attached.
func (t *table) FindAll(ctx context.Context, tx binding.Tx, plan queryir.Plan) ([]ir.Row, error) {
	if plan.Select.From == "" {
		plan.Select.From = t.desc.Table()
	}
	if err := queryir.Validate(plan); err != nil {
		return nil, fmt.Errorf("find %s: invalid plan: %w", t.desc.Name(), err)
	}

	rows, err := t.store.query(ctx, tx, plan.Select)
	if err != nil {
		return nil, fmt.Errorf("find %s: %w", t.desc.Name(), err)
	}
	normalize(t.desc, rows)

	if err := t.store.loadIncludes(ctx, tx, rows, plan.Includes); err != nil {
		return nil, fmt.Errorf("find %s: %w", t.desc.Name(), err)
	}
	strip(rows, plan.Hidden)
	return rows, nil
}

// FindAndCountAll returns the rows of plan and the number of rows that
// match its filter regardless of pagination.
func (t *table) FindAndCountAll(ctx context.Context, tx binding.Tx, plan queryir.Plan) ([]ir.Row, int64, error) {
	rows, err := t.FindAll(ctx, tx, plan)
	if err != nil {
		return nil, 0, err
	}

	from := plan.Select.From
	if from == "" {
		from = t.desc.Table()
	}
	res, err := t.store.query(ctx, tx, queryir.Count{From: from, Filter: plan.Select.Filter})
	if err != nil {
		return nil, 0, fmt.Errorf("count %s: %w", t.desc.Name(), err)
	}
	if len(res) != 1 {
		return nil, 0, fmt.Errorf("count %s: expected one row, got %d", t.desc.Name(), len(res))
	}
	for _, v := range res[0] {
		n, ok := v.(int64)
		if !ok {
			return nil, 0, fmt.Errorf("count %s: unexpected %T", t.desc.Name(), v)
		}
		return rows, n, nil
	}
	return nil, 0, fmt.Errorf("count %s: empty result", t.desc.Name())
}

// loadIncludes attaches every include of incs to parents, then recurses
// into the fetched rows. Each include node costs one query per chunk of
// maxInList parent keys.
func (s *Store) loadIncludes(ctx context.Context, tx binding.Tx, parents []ir.Row, incs []queryir.Include) error {
	for _, inc := range incs {
		children, err := s.fetchInclude(ctx, tx, parents, inc)
		if err != nil {
			return fmt.Errorf("include %s: %w", inc.Alias, err)
		}
		if err := s.loadIncludes(ctx, tx, children, inc.Includes); err != nil {
			return err
		}

		match := inc.ChildKey
		if inc.Through != nil {
			match = parentColumn
		}
		groups := make(map[string][]ir.Row)
		for _, child := range children {
			k := keyOf(child[match])
			groups[k] = append(groups[k], child)
		}

		drop := hiddenColumns(inc)
		strip(children, drop)

		for _, parent := range parents {
			var matched []ir.Row
			if v := parent[inc.ParentKey]; v != nil {
				matched = groups[keyOf(v)]
			}
			switch {
			case inc.Many:
				if matched == nil {
					matched = []ir.Row{}
				}
				parent[inc.Alias] = matched
			case len(matched) > 0:
				parent[inc.Alias] = matched[0]
			default:
				parent[inc.Alias] = nil
			}
		}
	}
	return nil
}

// fetchInclude reads the rows of inc related to parents.
func (s *Store) fetchInclude(ctx context.Context, tx binding.Tx, parents []ir.Row, inc queryir.Include) ([]ir.Row, error) {
	keys := distinctKeys(parents, inc.ParentKey)
	if len(keys) == 0 {
		return nil, nil
	}

	var children []ir.Row
	for chunk := range slices.Chunk(keys, maxInList) {
		rows, err := s.query(ctx, tx, includeSelect(inc, chunk))
		if err != nil {
			return nil, err
		}
		children = append(children, rows...)
	}

	if d, ok := s.byTable[inc.Table]; ok {
		normalize(d, children)
	}
	return children, nil
}

// includeSelect builds the select of one include chunk. It fetches the
// visible columns, the hidden linking columns and the child key.
func includeSelect(inc queryir.Include, keys []any) queryir.Select {
	names := slices.Clone(inc.Columns)
	for _, c := range inc.Hidden {
		if !slices.Contains(names, c) {
			names = append(names, c)
		}
	}
	if inc.Through == nil && !slices.Contains(names, inc.ChildKey) {
		names = append(names, inc.ChildKey)
	}

	sel := queryir.Select{
		From:    inc.Table,
		Columns: queryir.Columns(names...),
		Order:   inc.Order,
	}

	if inc.Through == nil {
		sel.Filter = queryir.AndOf(queryir.In{Field: queryir.F(inc.ChildKey), Values: keys}, inc.Filter)
		return sel
	}

	parent := queryir.On(throughAlias, inc.Through.ParentKey)
	sel.Joins = []queryir.Join{{
		Kind:   queryir.InnerJoin,
		Table:  inc.Through.Table,
		Alias:  throughAlias,
		Key:    inc.Through.ChildKey,
		Parent: queryir.F(inc.ChildKey),
	}}
	sel.Columns = append(sel.Columns, queryir.Column{Field: parent, As: parentColumn})
	sel.Filter = queryir.AndOf(queryir.In{Field: parent, Values: keys}, inc.Filter)
	return sel
}

// hiddenColumns lists the columns of inc rows that only served linking.
func hiddenColumns(inc queryir.Include) []string {
	var drop []string
	for _, c := range inc.Hidden {
		if !slices.Contains(inc.Columns, c) {
			drop = append(drop, c)
		}
	}
	if inc.Through == nil && !slices.Contains(inc.Columns, inc.ChildKey) {
		drop = append(drop, inc.ChildKey)
	}
	return append(drop, parentColumn)
}

// distinctKeys collects the non-nil values of column across rows in first
// occurrence order.
func distinctKeys(rows []ir.Row, column string) []any {
	seen := make(map[string]bool)
	var keys []any
	for _, r := range rows {
		v := r[column]
		if v == nil {
			continue
		}
		k := keyOf(v)
		if seen[k] {
			continue
		}
		seen[k] = true
		keys = append(keys, v)
	}
	return keys
}

// keyOf renders a key value for grouping. Parent and child keys are both
// read from the database, so equal keys share a Go type.
func keyOf(v any) string {
	return fmt.Sprintf("%T:%v", v, v)
}

func strip(rows []ir.Row, columns []string) {
	if len(columns) == 0 {
		return
	}
	for _, r := range rows {
		for _, c := range columns {
			delete(r, c)
		}
	}
}
