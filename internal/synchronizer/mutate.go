package synchronizer

import (
	"context"
	"fmt"
	"log/slog"
	"slices"

	"github.com/roach88/relsync/internal/binding"
	"github.com/roach88/relsync/internal/ir"
	"github.com/roach88/relsync/internal/queryir"
)

// update writes the mutable attributes present in data to the row selected
// by the primary key values in data.
func (s *Synchronizer) update(ctx context.Context, tx binding.Tx, req ir.MutateRequest) (ir.SyncResult, error) {
	d := s.model
	where, keys, err := s.keyPredicate(req.Data)
	if err != nil {
		return ir.SyncResult{}, err
	}

	var fields []string
	for _, name := range d.MutableAttributes() {
		if _, ok := req.Data[name]; !ok {
			continue
		}
		if req.Attributes != nil && !slices.Contains(req.Attributes, name) {
			continue
		}
		fields = append(fields, name)
	}
	if len(fields) == 0 {
		slog.Debug("update skipped, nothing to write", "model", d.Name(), "request_id", req.RequestID)
		return ir.Success(keys), nil
	}

	if errs := s.validateRow(req.Data, fields, false); len(errs) > 0 {
		return ir.Failure(errs...), nil
	}

	n, err := s.table.Update(ctx, tx, req.Data, where, fields)
	if err != nil {
		return ir.SyncResult{}, fmt.Errorf("update %s: %w", d.Name(), err)
	}
	slog.Debug("rows updated", "model", d.Name(), "rows", n, "request_id", req.RequestID)
	return ir.Success(keys), nil
}

// remove deletes the row selected by the primary key values in the
// request identifiers. Dependent rows follow the declared cascade actions.
func (s *Synchronizer) remove(ctx context.Context, tx binding.Tx, req ir.MutateRequest) (ir.SyncResult, error) {
	where, keys, err := s.keyPredicate(req.Identifiers)
	if err != nil {
		return ir.SyncResult{}, err
	}
	n, err := s.table.Destroy(ctx, tx, where)
	if err != nil {
		return ir.SyncResult{}, fmt.Errorf("remove %s: %w", s.model.Name(), err)
	}
	slog.Debug("rows removed", "model", s.model.Name(), "rows", n, "request_id", req.RequestID)
	return ir.Success(keys), nil
}

// keyPredicate builds an equality test over the primary key values present
// in row. A model without primary keys, or a row carrying none, is a
// configuration error.
func (s *Synchronizer) keyPredicate(row ir.Row) (queryir.Predicate, ir.Row, error) {
	pks := s.model.PrimaryKeys()
	if len(pks) == 0 {
		return nil, nil, ir.NewConfigError(ir.ErrCodeMissingPrimaryKey, s.model.Name(), "model has no primary key")
	}
	keys := ir.Row{}
	var parts []queryir.Predicate
	for _, pk := range pks {
		v, ok := row[pk]
		if !ok || v == nil {
			continue
		}
		keys[pk] = v
		parts = append(parts, queryir.Equals{Field: queryir.F(pk), Value: v})
	}
	if len(parts) == 0 {
		return nil, nil, ir.NewConfigError(ir.ErrCodeMissingPrimaryKey, s.model.Name(), "no primary key value supplied")
	}
	if len(parts) == 1 {
		return parts[0], keys, nil
	}
	return queryir.And{Predicates: parts}, keys, nil
}
