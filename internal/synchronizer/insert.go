package synchronizer

import (
	"context"
	"fmt"
	"log/slog"
	"reflect"
	"time"

	"github.com/roach88/relsync/internal/binding"
	"github.com/roach88/relsync/internal/graph"
	"github.com/roach88/relsync/internal/ir"
)

// DefaultNow is the datetime default value resolved to the clock at insert.
const DefaultNow = "now"

// insert writes one row and cascades into its relations: key-holding
// relations (MASTER, SUPERCLASS) before the row, every other relation after.
func (s *Synchronizer) insert(ctx context.Context, tx binding.Tx, req ir.MutateRequest) (ir.SyncResult, error) {
	d := s.model
	data := req.Data.Clone()

	nested := make(map[string]any)
	for _, rel := range d.Relations() {
		v, ok := data[rel.Alias]
		if !ok {
			continue
		}
		delete(data, rel.Alias)
		if !rel.Virtual && v != nil {
			nested[rel.Alias] = v
		}
	}

	for _, rel := range d.Relations() {
		v, ok := nested[rel.Alias]
		if !ok || !rel.Type.SourceHoldsKey() {
			continue
		}
		key, res, err := s.insertMaster(ctx, tx, req, rel, v)
		if err != nil || !res.OK() {
			return res, err
		}
		data[rel.ForeignKey] = key
	}

	if err := s.applyDefaults(data); err != nil {
		return ir.SyncResult{}, err
	}
	if errs := s.validateRow(data, d.InsertableAttributes(), true); len(errs) > 0 {
		return ir.Failure(errs...), nil
	}

	row, err := s.table.Create(ctx, tx, data, d.InsertableAttributes())
	if err != nil {
		return ir.SyncResult{}, fmt.Errorf("insert %s: %w", d.Name(), err)
	}
	slog.Debug("row inserted", "model", d.Name(), "request_id", req.RequestID)

	for _, rel := range d.Relations() {
		v, ok := nested[rel.Alias]
		if !ok || rel.Type.SourceHoldsKey() {
			continue
		}
		res, err := s.insertDetails(ctx, tx, req, rel, row[rel.SourceKey], v)
		if err != nil || !res.OK() {
			return res, err
		}
	}

	return ir.Success(row.Pick(d.PrimaryKeys()...)), nil
}

// insertMaster inserts the row a key-holding relation points at and returns
// the key to store in the relation's foreign key.
func (s *Synchronizer) insertMaster(ctx context.Context, tx binding.Tx, req ir.MutateRequest, rel graph.Relation, v any) (any, ir.SyncResult, error) {
	target, err := s.registry.Descriptor(rel.Target)
	if err != nil {
		return nil, ir.SyncResult{}, err
	}
	if len(target.PrimaryKeys()) != 1 {
		return nil, ir.SyncResult{}, ir.NewConfigError(ir.ErrCodeCompositeKey, s.model.Name(),
			"relation %q: %s has %d primary keys", rel.Alias, target.Name(), len(target.PrimaryKeys()))
	}
	child, ok := asRow(v)
	if !ok {
		return nil, ir.SyncResult{}, ir.NewConfigError(ir.ErrCodeInvalidRequest, s.model.Name(),
			"relation %q expects an object, got %T", rel.Alias, v)
	}
	child = mergeScope(child, rel.Scope)

	res, err := s.registry.Sync(ctx, tx, nestedInsert(req, rel.Target, child))
	if err != nil {
		return nil, ir.SyncResult{}, err
	}
	if !res.OK() {
		return nil, prefixErrors(res, rel.Alias), nil
	}

	key, ok := res.GeneratedIDs[rel.TargetKey]
	if !ok {
		key = child[rel.TargetKey]
	}
	return key, res, nil
}

// insertDetails inserts every nested item of a relation whose key lives on
// the other side, injecting parentKey into each.
func (s *Synchronizer) insertDetails(ctx context.Context, tx binding.Tx, req ir.MutateRequest, rel graph.Relation, parentKey, v any) (ir.SyncResult, error) {
	items, many, err := nestedItems(v)
	if err != nil {
		return ir.SyncResult{}, ir.NewConfigError(ir.ErrCodeInvalidRequest, s.model.Name(), "relation %q: %v", rel.Alias, err)
	}

	for i, item := range items {
		path := rel.Alias
		if many {
			path = fmt.Sprintf("%s[%d]", rel.Alias, i)
		}

		var res ir.SyncResult
		if rel.Type == ir.RelationManyToMany {
			res, err = s.insertLink(ctx, tx, req, rel, parentKey, item)
		} else {
			child := mergeScope(item.Clone(), rel.Scope)
			child[rel.ForeignKey] = parentKey
			res, err = s.registry.Sync(ctx, tx, nestedInsert(req, rel.Target, child))
		}
		if err != nil {
			return ir.SyncResult{}, err
		}
		if !res.OK() {
			return prefixErrors(res, path), nil
		}
	}
	return ir.Success(nil), nil
}

// insertLink writes one MANY_TO_MANY item. An item made only of through
// model fields is the link row itself. Anything else is a new target row,
// inserted first and then linked.
func (s *Synchronizer) insertLink(ctx context.Context, tx binding.Tx, req ir.MutateRequest, rel graph.Relation, parentKey any, item ir.Row) (ir.SyncResult, error) {
	through, err := s.registry.Descriptor(rel.Through)
	if err != nil {
		return ir.SyncResult{}, err
	}

	link := item.Clone()
	if !describes(through, item) {
		target, err := s.registry.Descriptor(rel.Target)
		if err != nil {
			return ir.SyncResult{}, err
		}
		if len(target.PrimaryKeys()) != 1 {
			return ir.SyncResult{}, ir.NewConfigError(ir.ErrCodeCompositeKey, s.model.Name(),
				"relation %q: %s has %d primary keys", rel.Alias, target.Name(), len(target.PrimaryKeys()))
		}
		res, err := s.registry.Sync(ctx, tx, nestedInsert(req, rel.Target, mergeScope(item.Clone(), rel.Scope)))
		if err != nil || !res.OK() {
			return res, err
		}
		other, ok := res.GeneratedIDs[rel.TargetKey]
		if !ok {
			other = item[rel.TargetKey]
		}
		link = ir.Row{rel.OtherKey: other}
	}
	link[rel.ForeignKey] = parentKey
	return s.registry.Sync(ctx, tx, nestedInsert(req, rel.Through, link))
}

// applyDefaults fills absent attributes from their declared defaults and
// generates missing uuid and ulid primary keys.
func (s *Synchronizer) applyDefaults(data ir.Row) error {
	for _, a := range s.model.Attributes() {
		if v, ok := data[a.Name]; ok && v != nil {
			continue
		}
		if a.Primary && !a.AutoIncrement && (a.Type == ir.TypeUUID || a.Type == ir.TypeULID) {
			key, err := s.keys.NewKey(a.Type)
			if err != nil {
				return fmt.Errorf("%s.%s: %w", s.model.Name(), a.Name, err)
			}
			data[a.Name] = key
			continue
		}
		if _, ok := data[a.Name]; ok || a.DefaultValue == nil {
			continue
		}
		data[a.Name] = s.defaultValue(a)
	}
	return nil
}

func (s *Synchronizer) defaultValue(a ir.Attribute) any {
	if a.Type == ir.TypeDatetime && a.DefaultValue == DefaultNow {
		return s.clock.Now().UTC().Truncate(time.Microsecond)
	}
	return a.DefaultValue
}

// nestedInsert builds the insert of a related row, carrying the request id
// of the top-level request.
func nestedInsert(parent ir.MutateRequest, model string, data ir.Row) ir.MutateRequest {
	req := ir.NewInsert(model, data)
	req.RequestID = parent.RequestID
	return req
}

// mergeScope copies the scalar equality terms of a relation scope into
// data, leaving values the caller supplied untouched.
func mergeScope(data ir.Row, scope ir.Filter) ir.Row {
	for k, v := range scope {
		if _, ok := data[k]; ok || k == ir.FilterAnd || k == ir.FilterOr {
			continue
		}
		switch reflect.ValueOf(v).Kind() {
		case reflect.Map, reflect.Slice, reflect.Array:
			continue
		}
		data[k] = v
	}
	return data
}

// describes reports whether every key of item is an attribute or relation
// alias of d.
func describes(d *graph.Descriptor, item ir.Row) bool {
	for k := range item {
		if d.HasAttribute(k) {
			continue
		}
		if _, ok := d.Relation(k); ok {
			continue
		}
		return false
	}
	return true
}

// nestedItems normalizes nested relation data to a list of rows. many
// reports whether the input was a list.
func nestedItems(v any) (items []ir.Row, many bool, err error) {
	if row, ok := asRow(v); ok {
		return []ir.Row{row}, false, nil
	}
	rv := reflect.ValueOf(v)
	if rv.Kind() != reflect.Slice && rv.Kind() != reflect.Array {
		return nil, false, fmt.Errorf("expects an object or a list, got %T", v)
	}
	items = make([]ir.Row, 0, rv.Len())
	for i := range rv.Len() {
		row, ok := asRow(rv.Index(i).Interface())
		if !ok {
			return nil, true, fmt.Errorf("item %d is %T, not an object", i, rv.Index(i).Interface())
		}
		items = append(items, row)
	}
	return items, true, nil
}

func asRow(v any) (ir.Row, bool) {
	switch m := v.(type) {
	case ir.Row:
		return m, true
	case map[string]any:
		return ir.Row(m), true
	case ir.Filter:
		return ir.Row(m), true
	default:
		return nil, false
	}
}

// prefixErrors qualifies nested error fields with the relation path.
func prefixErrors(res ir.SyncResult, path string) ir.SyncResult {
	errs := make([]ir.ValidationError, len(res.Errors))
	for i, e := range res.Errors {
		if e.Field == "" {
			e.Field = path
		} else {
			e.Field = path + "." + e.Field
		}
		errs[i] = e
	}
	res.Errors = errs
	res.GeneratedIDs = nil
	return res
}
