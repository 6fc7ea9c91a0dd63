// Package resolver turns declarative queries into read plans and executes
// them against a model's storage binding.
package resolver

import (
	"context"
	"fmt"

	"github.com/roach88/relsync/internal/binding"
	"github.com/roach88/relsync/internal/graph"
	"github.com/roach88/relsync/internal/ir"
	"github.com/roach88/relsync/internal/queryir"
)

// Registry is the part of the pool a resolver needs: descriptors of the
// models it traverses.
type Registry interface {
	Descriptor(model string) (*graph.Descriptor, error)
}

// Resolver reads one model.
type Resolver struct {
	model    *graph.Descriptor
	table    binding.Table
	registry Registry
}

// New creates the resolver of model backed by table. It must be
// initialized with a Registry before use.
func New(model *graph.Descriptor, table binding.Table) *Resolver {
	return &Resolver{model: model, table: table}
}

// Initialize binds the registry used to reach related models.
func (r *Resolver) Initialize(reg Registry) {
	r.registry = reg
}

// Model returns the name of the resolved model.
func (r *Resolver) Model() string {
	return r.model.Name()
}

// Resolve executes q under scope.
//
// With ByID every primary key must be present; the result holds the one
// matching row or none, and filters, order, pagination and count are
// ignored. Otherwise the full plan runs and Count is filled when asked for.
func (r *Resolver) Resolve(ctx context.Context, tx binding.Tx, scope string, q ir.Query) (ir.ResolveResult, error) {
	plan, err := r.Plan(ctx, scope, q)
	if err != nil {
		return ir.ResolveResult{}, err
	}

	if q.ByID != nil {
		row, err := r.table.FindOne(ctx, tx, plan)
		if err != nil {
			return ir.ResolveResult{}, fmt.Errorf("resolve %s: %w", r.model.Name(), err)
		}
		if row == nil {
			return ir.ResolveResult{Data: []ir.Row{}}, nil
		}
		return ir.ResolveResult{Data: []ir.Row{row}}, nil
	}

	if q.Count {
		rows, n, err := r.table.FindAndCountAll(ctx, tx, plan)
		if err != nil {
			return ir.ResolveResult{}, fmt.Errorf("resolve %s: %w", r.model.Name(), err)
		}
		return ir.ResolveResult{Data: rows, Count: &n}, nil
	}

	rows, err := r.table.FindAll(ctx, tx, plan)
	if err != nil {
		return ir.ResolveResult{}, fmt.Errorf("resolve %s: %w", r.model.Name(), err)
	}
	return ir.ResolveResult{Data: rows}, nil
}

// Plan builds the read plan of q without executing it.
func (r *Resolver) Plan(ctx context.Context, scope string, q ir.Query) (queryir.Plan, error) {
	if r.registry == nil {
		return queryir.Plan{}, ir.NewConfigError(ir.ErrCodeNoResolver, r.model.Name(), "resolver is not initialized")
	}
	p := &planner{ctx: ctx, registry: r.registry, scope: scope}
	return p.plan(r.model, q)
}
