package pool

import (
	"context"

	"github.com/roach88/relsync/internal/binding"
	"github.com/roach88/relsync/internal/graph"
	"github.com/roach88/relsync/internal/ir"
	"github.com/roach88/relsync/internal/resolver"
	"github.com/roach88/relsync/internal/synchronizer"
)

// Resolver reads one model. *resolver.Resolver implements it.
type Resolver interface {
	Initialize(reg resolver.Registry)
	Resolve(ctx context.Context, tx binding.Tx, scope string, q ir.Query) (ir.ResolveResult, error)
}

// Synchronizer writes one model. *synchronizer.Synchronizer implements it.
type Synchronizer interface {
	Initialize(reg synchronizer.Registry)
	Sync(ctx context.Context, tx binding.Tx, req ir.MutateRequest) (ir.SyncResult, error)
}

var (
	_ Resolver     = (*resolver.Resolver)(nil)
	_ Synchronizer = (*synchronizer.Synchronizer)(nil)
)

// Provider binds a model's descriptor, table, resolver and synchronizer.
// Either of resolver and synchronizer may be nil; the matching operations
// then fail with a configuration error.
type Provider struct {
	desc         *graph.Descriptor
	table        binding.Table
	resolver     Resolver
	synchronizer Synchronizer
}

// NewProvider creates the provider of desc. Pass an untyped nil to leave
// the resolver or synchronizer unbound.
func NewProvider(desc *graph.Descriptor, table binding.Table, r Resolver, s Synchronizer) *Provider {
	return &Provider{desc: desc, table: table, resolver: r, synchronizer: s}
}

// Model returns the provided model's name.
func (p *Provider) Model() string { return p.desc.Name() }

// Descriptor returns the provided model's descriptor.
func (p *Provider) Descriptor() *graph.Descriptor { return p.desc }

// Table returns the provided model's storage handle.
func (p *Provider) Table() binding.Table { return p.table }

// Initialize hands the assembled pool to the resolver and synchronizer.
func (p *Provider) Initialize(pool *Pool) {
	if p.resolver != nil {
		p.resolver.Initialize(pool)
	}
	if p.synchronizer != nil {
		p.synchronizer.Initialize(pool)
	}
}

// Select resolves q under scope.
func (p *Provider) Select(ctx context.Context, tx binding.Tx, scope string, q ir.Query) (ir.ResolveResult, error) {
	if p.resolver == nil {
		return ir.ResolveResult{}, ir.NewConfigError(ir.ErrCodeNoResolver, p.Model(), "no resolver bound")
	}
	return p.resolver.Resolve(ctx, tx, scope, q)
}

// Insert inserts data, cascading into nested relation data.
func (p *Provider) Insert(ctx context.Context, tx binding.Tx, data ir.Row) (ir.SyncResult, error) {
	return p.sync(ctx, tx, ir.NewInsert(p.Model(), data))
}

// Update writes the mutable attributes of data, optionally narrowed to
// attributes, on the row its primary key selects.
func (p *Provider) Update(ctx context.Context, tx binding.Tx, data ir.Row, attributes ...string) (ir.SyncResult, error) {
	return p.sync(ctx, tx, ir.NewUpdate(p.Model(), data, attributes...))
}

// Remove deletes the row identifiers select.
func (p *Provider) Remove(ctx context.Context, tx binding.Tx, identifiers ir.Row) (ir.SyncResult, error) {
	return p.sync(ctx, tx, ir.NewRemove(p.Model(), identifiers))
}

func (p *Provider) sync(ctx context.Context, tx binding.Tx, req ir.MutateRequest) (ir.SyncResult, error) {
	if p.synchronizer == nil {
		return ir.SyncResult{}, ir.NewConfigError(ir.ErrCodeNoSynchronizer, p.Model(), "no synchronizer bound")
	}
	return p.synchronizer.Sync(ctx, tx, req)
}
