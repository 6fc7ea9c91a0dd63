// Package pool is the single entry point for reads and writes: it routes a
// query or mutate request to the provider of its model.
//
// Construction order is graph, then resolvers and synchronizers, then
// providers, then the pool. The pool initializes every provider once, in
// registration order, handing it the fully assembled pool so resolvers and
// synchronizers can reach related models.
package pool

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/roach88/relsync/internal/binding"
	"github.com/roach88/relsync/internal/graph"
	"github.com/roach88/relsync/internal/ir"
	"github.com/roach88/relsync/internal/resolver"
	"github.com/roach88/relsync/internal/synchronizer"
)

// RequestIDGenerator produces correlation ids for mutate requests that
// arrive without one.
type RequestIDGenerator interface {
	Generate() string
}

// UUIDv7Generator generates time-ordered request ids.
//
// Thread-safety: UUIDv7Generator is stateless and safe for concurrent use.
type UUIDv7Generator struct{}

// Generate returns a new UUIDv7 string, falling back to a random UUID if
// the clock read fails.
func (UUIDv7Generator) Generate() string {
	id, err := uuid.NewV7()
	if err != nil {
		return uuid.NewString()
	}
	return id.String()
}

// Option configures a Pool.
type Option func(*options)

type options struct {
	ids       RequestIDGenerator
	syncOpts  []synchronizer.Option
	modelOpts map[string][]synchronizer.Option
}

// WithRequestIDs sets the generator of missing request ids.
func WithRequestIDs(gen RequestIDGenerator) Option {
	return func(o *options) { o.ids = gen }
}

// WithSyncOptions applies opts to every synchronizer FromGraph builds.
func WithSyncOptions(opts ...synchronizer.Option) Option {
	return func(o *options) { o.syncOpts = append(o.syncOpts, opts...) }
}

// WithModelSyncOptions applies opts to the synchronizer of one model, after
// the options of WithSyncOptions. Use it to install interceptors.
func WithModelSyncOptions(model string, opts ...synchronizer.Option) Option {
	return func(o *options) { o.modelOpts[model] = append(o.modelOpts[model], opts...) }
}

// Pool routes requests to providers by model name.
//
// A Pool is immutable after New and safe for concurrent use as long as its
// providers are.
type Pool struct {
	providers map[string]*Provider
	order     []string
	ids       RequestIDGenerator
}

var (
	_ resolver.Registry     = (*Pool)(nil)
	_ synchronizer.Registry = (*Pool)(nil)
)

func buildOptions(opts []Option) options {
	o := options{ids: UUIDv7Generator{}, modelOpts: make(map[string][]synchronizer.Option)}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// New registers providers and initializes each once, in order. A model
// registered twice is a configuration error.
func New(providers []*Provider, opts ...Option) (*Pool, error) {
	o := buildOptions(opts)
	p := &Pool{
		providers: make(map[string]*Provider, len(providers)),
		order:     make([]string, 0, len(providers)),
		ids:       o.ids,
	}
	for _, prov := range providers {
		if _, dup := p.providers[prov.Model()]; dup {
			return nil, ir.NewConfigError(ir.ErrCodeDuplicate, prov.Model(), "provider registered twice")
		}
		p.providers[prov.Model()] = prov
		p.order = append(p.order, prov.Model())
	}
	for _, name := range p.order {
		p.providers[name].Initialize(p)
	}
	slog.Debug("pool assembled", "models", len(p.order))
	return p, nil
}

// FromGraph builds a provider with a resolver and a synchronizer for every
// model of g, backed by the tables of source, in graph order.
func FromGraph(g *graph.Graph, source binding.Source, opts ...Option) (*Pool, error) {
	o := buildOptions(opts)
	providers := make([]*Provider, 0, len(g.Names()))
	for _, d := range g.Models() {
		table, err := source.Table(d.Name())
		if err != nil {
			return nil, err
		}
		syncOpts := append(append([]synchronizer.Option{}, o.syncOpts...), o.modelOpts[d.Name()]...)
		providers = append(providers, NewProvider(d, table,
			resolver.New(d, table),
			synchronizer.New(d, table, syncOpts...),
		))
	}
	return New(providers, opts...)
}

// Models returns the registered model names in registration order.
func (p *Pool) Models() []string {
	return append([]string(nil), p.order...)
}

// Provider returns the provider of model.
func (p *Pool) Provider(model string) (*Provider, error) {
	prov, ok := p.providers[model]
	if !ok {
		return nil, ir.NewConfigError(ir.ErrCodeUnknownModel, model, "no provider registered")
	}
	return prov, nil
}

// Descriptor returns the descriptor of model.
func (p *Pool) Descriptor(model string) (*graph.Descriptor, error) {
	prov, err := p.Provider(model)
	if err != nil {
		return nil, err
	}
	return prov.Descriptor(), nil
}

// Resolve runs q against model under scope inside tx.
func (p *Pool) Resolve(ctx context.Context, tx binding.Tx, model, scope string, q ir.Query) (ir.ResolveResult, error) {
	start := time.Now()
	defer func() { operationDuration.WithLabelValues("resolve").Observe(time.Since(start).Seconds()) }()

	prov, err := p.Provider(model)
	if err != nil {
		resolveTotal.WithLabelValues(unknownLabel, outcomeConfigError).Inc()
		return ir.ResolveResult{}, err
	}

	res, err := prov.Select(ctx, tx, scope, q)
	switch {
	case err == nil:
		resolveTotal.WithLabelValues(model, outcomeOK).Inc()
		slog.Debug("resolve", "model", model, "scope", scope, "rows", len(res.Data))
	case ir.IsConfigError(err):
		resolveTotal.WithLabelValues(model, outcomeConfigError).Inc()
	default:
		resolveTotal.WithLabelValues(model, outcomeError).Inc()
		slog.Error("resolve failed", "model", model, "error", err)
	}
	return res, err
}

// Sync executes req inside tx. A request without a RequestID is assigned
// one; nested requests inherit it.
//
// Configuration problems return an error. Business and storage failures
// come back in the result; the caller must roll back tx whenever the
// result carries errors.
func (p *Pool) Sync(ctx context.Context, tx binding.Tx, req ir.MutateRequest) (ir.SyncResult, error) {
	start := time.Now()
	defer func() { operationDuration.WithLabelValues("sync").Observe(time.Since(start).Seconds()) }()

	if req.RequestID == "" {
		req.RequestID = p.ids.Generate()
	}
	if req.Type == "" {
		req.Type = ir.RequestTypeMutate
	}
	action := string(req.Action)
	if !req.Action.Valid() {
		action = unknownLabel
	}

	prov, err := p.Provider(req.Model)
	if err != nil {
		syncTotal.WithLabelValues(unknownLabel, action, outcomeConfigError).Inc()
		return ir.SyncResult{}, err
	}

	res, err := prov.sync(ctx, tx, req)
	if err != nil {
		outcome := outcomeConfigError
		if !ir.IsConfigError(err) {
			outcome = outcomeError
		}
		syncTotal.WithLabelValues(req.Model, action, outcome).Inc()
		return ir.SyncResult{}, err
	}

	outcome := outcomeOK
	switch {
	case res.TransactionFailed:
		outcome = outcomeFailed
	case !res.OK():
		outcome = outcomeRejected
	}
	syncTotal.WithLabelValues(req.Model, action, outcome).Inc()

	if slog.Default().Enabled(ctx, slog.LevelDebug) {
		attrs := []any{
			"model", req.Model,
			"action", action,
			"request_id", req.RequestID,
			"outcome", outcome,
			"errors", len(res.Errors),
		}
		if hash, err := ir.RequestHash(req); err != nil {
			attrs = append(attrs, "request_hash_error", err)
		} else {
			attrs = append(attrs, "request_hash", hash)
		}
		slog.Debug("sync", attrs...)
	}
	return res, nil
}
