// Package synchronizer executes mutate requests against one model and
// cascades them through the relation graph.
//
// A Synchronizer never begins or ends a transaction. Every cascaded write
// runs in the transaction it was handed, and on failure it returns the
// accumulated errors without compensating writes: the caller rolls back.
package synchronizer

import (
	"context"
	"log/slog"

	"github.com/go-playground/validator/v10"

	"github.com/roach88/relsync/internal/binding"
	"github.com/roach88/relsync/internal/graph"
	"github.com/roach88/relsync/internal/ir"
)

// Registry is the part of the pool a synchronizer needs: descriptors of
// related models and a way to sync them.
type Registry interface {
	Descriptor(model string) (*graph.Descriptor, error)
	Sync(ctx context.Context, tx binding.Tx, req ir.MutateRequest) (ir.SyncResult, error)
}

// Behavior performs one mutation.
type Behavior func(ctx context.Context, tx binding.Tx, req ir.MutateRequest) (ir.SyncResult, error)

// Interceptor wraps the default behavior of an action. It may run logic
// before or after calling next, or replace it entirely.
type Interceptor func(ctx context.Context, tx binding.Tx, req ir.MutateRequest, next Behavior) (ir.SyncResult, error)

// Option configures a Synchronizer.
type Option func(*Synchronizer)

// WithInsertInterceptor installs the insert interceptor.
func WithInsertInterceptor(i Interceptor) Option {
	return func(s *Synchronizer) { s.interceptors[ir.ActionInsert] = i }
}

// WithUpdateInterceptor installs the update interceptor.
func WithUpdateInterceptor(i Interceptor) Option {
	return func(s *Synchronizer) { s.interceptors[ir.ActionUpdate] = i }
}

// WithRemoveInterceptor installs the remove interceptor.
func WithRemoveInterceptor(i Interceptor) Option {
	return func(s *Synchronizer) { s.interceptors[ir.ActionRemove] = i }
}

// WithClock sets the clock used for "now" default values.
func WithClock(c Clock) Option {
	return func(s *Synchronizer) { s.clock = c }
}

// WithKeys sets the generator of uuid and ulid primary keys.
func WithKeys(k KeyGenerator) Option {
	return func(s *Synchronizer) { s.keys = k }
}

// WithValidator replaces the validator that runs attribute tags. Use it to
// register custom validation functions.
func WithValidator(v *validator.Validate) Option {
	return func(s *Synchronizer) { s.validate = v }
}

// Synchronizer writes one model.
type Synchronizer struct {
	model        *graph.Descriptor
	table        binding.Table
	registry     Registry
	interceptors map[ir.MutateAction]Interceptor
	clock        Clock
	keys         KeyGenerator
	validate     *validator.Validate
}

// New creates the synchronizer of model backed by table. It must be
// initialized with a Registry before use.
func New(model *graph.Descriptor, table binding.Table, opts ...Option) *Synchronizer {
	s := &Synchronizer{
		model:        model,
		table:        table,
		interceptors: make(map[ir.MutateAction]Interceptor),
		clock:        SystemClock{},
		keys:         RandomKeys{},
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.validate == nil {
		s.validate = validator.New()
	}
	return s
}

// Initialize binds the registry used to cascade into related models.
func (s *Synchronizer) Initialize(reg Registry) {
	s.registry = reg
}

// Model returns the name of the synchronized model.
func (s *Synchronizer) Model() string {
	return s.model.Name()
}

// Sync executes req inside tx.
//
// Configuration problems are returned as an error before anything is
// written. Every other failure is returned as data: validation errors in
// the result, and storage or interceptor errors converted to a result with
// TransactionFailed set. The caller must roll back tx whenever the result
// carries errors.
func (s *Synchronizer) Sync(ctx context.Context, tx binding.Tx, req ir.MutateRequest) (ir.SyncResult, error) {
	if s.registry == nil {
		return ir.SyncResult{}, ir.NewConfigError(ir.ErrCodeNoSynchronizer, s.model.Name(), "synchronizer is not initialized")
	}
	if req.Model != "" && req.Model != s.model.Name() {
		return ir.SyncResult{}, ir.NewConfigError(ir.ErrCodeInvalidRequest, s.model.Name(), "request for model %q", req.Model)
	}

	var behavior Behavior
	switch req.Action {
	case ir.ActionInsert:
		behavior = s.insert
	case ir.ActionUpdate:
		behavior = s.update
	case ir.ActionRemove:
		behavior = s.remove
	default:
		return ir.SyncResult{}, ir.NewConfigError(ir.ErrCodeInvalidRequest, s.model.Name(), "unknown action %q", req.Action)
	}

	var (
		res ir.SyncResult
		err error
	)
	if hook := s.interceptors[req.Action]; hook != nil {
		res, err = hook(ctx, tx, req, behavior)
	} else {
		res, err = behavior(ctx, tx, req)
	}

	if err != nil {
		if ir.IsConfigError(err) {
			return ir.SyncResult{}, err
		}
		slog.Warn("sync failed", "model", s.model.Name(), "action", req.Action, "request_id", req.RequestID, "error", err)
		return transactionFailure(err), nil
	}
	return res, nil
}

// transactionFailure converts an unexpected error into a result. Constraint
// violations keep their specific key.
func transactionFailure(err error) ir.SyncResult {
	key, ok := binding.ConstraintKey(err)
	if !ok {
		key = ir.KeyTransactionFailed
	}
	res := ir.Failure(ir.ValidationError{Key: key, Message: err.Error()})
	res.TransactionFailed = true
	return res
}
