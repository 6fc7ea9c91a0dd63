package store

import (
	"context"
	"fmt"

	"github.com/roach88/relsync/internal/binding"
	"github.com/roach88/relsync/internal/ir"
	"github.com/roach88/relsync/internal/queryir"
)

// Create inserts one row holding the attributes of data that are listed in
// attributes. The returned row holds the written values plus the generated
// auto-increment key, if the model has one.
func (t *table) Create(ctx context.Context, tx binding.Tx, data ir.Row, attributes []string) (ir.Row, error) {
	ins := queryir.Insert{Table: t.desc.Table()}
	written := make(ir.Row, len(attributes))

	for _, name := range attributes {
		v, ok := data[name]
		if !ok {
			continue
		}
		attr, ok := t.desc.Attribute(name)
		if !ok {
			continue
		}
		enc, err := encodeValue(attr.Type, v)
		if err != nil {
			return nil, fmt.Errorf("create %s: %s: %w", t.desc.Name(), name, err)
		}
		ins.Columns = append(ins.Columns, name)
		ins.Values = append(ins.Values, enc)
		written[name] = decodeValue(attr.Type, enc)
	}

	res, err := t.store.exec(ctx, tx, ins)
	if err != nil {
		return nil, fmt.Errorf("create %s: %w", t.desc.Name(), err)
	}

	if pk := t.autoIncrementKey(); pk != "" && written[pk] == nil {
		id, err := res.LastInsertId()
		if err != nil {
			return nil, fmt.Errorf("create %s: last insert id: %w", t.desc.Name(), err)
		}
		written[pk] = id
	}
	return written, nil
}

// Update writes the attributes of data listed in attributes on every row
// matching where. Nothing is written when no listed attribute is present.
func (t *table) Update(ctx context.Context, tx binding.Tx, data ir.Row, where queryir.Predicate, attributes []string) (int64, error) {
	up := queryir.Update{Table: t.desc.Table(), Filter: where}
	for _, name := range attributes {
		v, ok := data[name]
		if !ok {
			continue
		}
		attr, ok := t.desc.Attribute(name)
		if !ok {
			continue
		}
		enc, err := encodeValue(attr.Type, v)
		if err != nil {
			return 0, fmt.Errorf("update %s: %s: %w", t.desc.Name(), name, err)
		}
		up.Set = append(up.Set, queryir.Assignment{Column: name, Value: enc})
	}
	if len(up.Set) == 0 {
		return 0, nil
	}

	res, err := t.store.exec(ctx, tx, up)
	if err != nil {
		return 0, fmt.Errorf("update %s: %w", t.desc.Name(), err)
	}
	return res.RowsAffected()
}

// Destroy deletes every row matching where.
func (t *table) Destroy(ctx context.Context, tx binding.Tx, where queryir.Predicate) (int64, error) {
	res, err := t.store.exec(ctx, tx, queryir.Delete{Table: t.desc.Table(), Filter: where})
	if err != nil {
		return 0, fmt.Errorf("destroy %s: %w", t.desc.Name(), err)
	}
	return res.RowsAffected()
}

// autoIncrementKey returns the model's auto-increment primary key, or ""
// unless the model has exactly one primary key and it is auto-increment.
func (t *table) autoIncrementKey() string {
	pks := t.desc.PrimaryKeys()
	if len(pks) != 1 {
		return ""
	}
	attr, _ := t.desc.Attribute(pks[0])
	if !attr.AutoIncrement {
		return ""
	}
	return pks[0]
}
