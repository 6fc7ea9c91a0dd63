package harness

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/roach88/relsync/internal/binding"
	"github.com/roach88/relsync/internal/compiler"
	"github.com/roach88/relsync/internal/graph"
	"github.com/roach88/relsync/internal/ir"
	"github.com/roach88/relsync/internal/pool"
	"github.com/roach88/relsync/internal/store"
	"github.com/roach88/relsync/internal/synchronizer"
	"github.com/roach88/relsync/internal/testutil"
)

// Harness executes the steps of one scenario.
type Harness struct {
	store *store.Store
	pool  *pool.Pool
}

// Run executes a scenario and returns the result.
//
// Each scenario runs in a fresh in-memory database for isolation.
// Deterministic helpers ensure reproducible results.
//
// Execution flow:
// 1. Load and compile the CUE schema
// 2. Build the relation graph and migrate a fresh in-memory database
// 3. Execute every step in its own transaction
// 4. Check each step against its expect clause
//
// A returned error means the scenario could not be executed. Unmet
// expectations are reported in Result.Errors.
func Run(scenario *Scenario) (*Result, error) {
	loaded, errs := compiler.LoadSchema(scenario.Schema, compiler.LoadModeCollectAll)
	if len(errs) > 0 {
		return nil, fmt.Errorf("failed to load schema: %w", errors.Join(errs...))
	}

	g, err := graph.New(loaded.Models)
	if err != nil {
		return nil, fmt.Errorf("failed to build relation graph: %w", err)
	}

	st, err := store.Open(store.MemoryPath, g)
	if err != nil {
		return nil, fmt.Errorf("failed to create in-memory store: %w", err)
	}
	defer st.Close()

	ctx := context.Background()
	if err := st.Migrate(ctx); err != nil {
		return nil, err
	}

	p, err := pool.FromGraph(g, st,
		pool.WithRequestIDs(testutil.NewFixedRequestIDs()),
		pool.WithSyncOptions(
			synchronizer.WithClock(testutil.NewDeterministicClock()),
			synchronizer.WithKeys(testutil.NewSequentialKeys()),
		),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to assemble pool: %w", err)
	}

	h := &Harness{store: st, pool: p}
	result := NewResult()
	for i, step := range scenario.Steps {
		event, err := h.execute(ctx, i, step)
		if err != nil {
			return nil, fmt.Errorf("step %d: %w", i, err)
		}
		result.Trace = append(result.Trace, event)

		for _, msg := range checkExpect(event, step.Expect) {
			result.AddError(fmt.Sprintf("%s: %s", stepLabel(i, step), msg))
		}
	}

	slog.Debug("scenario finished", "name", scenario.Name, "steps", len(scenario.Steps), "pass", result.Pass)
	return result, nil
}

func stepLabel(i int, step Step) string {
	if step.Name != "" {
		return fmt.Sprintf("step %d (%s)", i, step.Name)
	}
	return fmt.Sprintf("step %d", i)
}

func (h *Harness) execute(ctx context.Context, i int, step Step) (TraceEvent, error) {
	if step.Mutate != nil {
		return h.mutate(ctx, i, step.Mutate)
	}
	return h.resolve(ctx, i, *step.Resolve)
}

func (h *Harness) mutate(ctx context.Context, i int, raw map[string]any) (TraceEvent, error) {
	req, err := decodeRequest(raw)
	if err != nil {
		return TraceEvent{}, err
	}
	event := TraceEvent{Step: i, Kind: KindMutate, Model: req.Model, Action: string(req.Action)}

	var res ir.SyncResult
	_, err = h.store.WithTx(ctx, func(tx binding.Tx) (bool, error) {
		var err error
		res, err = h.pool.Sync(ctx, tx, req)
		return err == nil && res.OK(), err
	})
	if err == nil {
		event.Result = res
		return event, nil
	}
	code, ok := ir.ConfigErrorCodeOf(err)
	if !ok {
		return event, err
	}
	event.ConfigError = string(code)
	return event, nil
}

func (h *Harness) resolve(ctx context.Context, i int, step ResolveStep) (TraceEvent, error) {
	q, err := decodeQuery(step.Query)
	if err != nil {
		return TraceEvent{}, err
	}
	event := TraceEvent{Step: i, Kind: KindResolve, Model: step.Model, Scope: step.Scope}

	res, err := h.pool.Resolve(ctx, h.store.DB(), step.Model, step.Scope, q)
	if err == nil {
		event.Result = res
		return event, nil
	}
	code, ok := ir.ConfigErrorCodeOf(err)
	if !ok {
		return event, err
	}
	event.ConfigError = string(code)
	return event, nil
}
