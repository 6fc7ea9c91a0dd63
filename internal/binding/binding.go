// Package binding defines the storage contract the resolver and
// synchronizer run against.
//
// A Table performs row primitives for one model inside a caller-supplied
// transaction. The core never begins, commits or rolls back a transaction:
// that belongs to whoever hands it a Tx.
package binding

import (
	"context"
	"database/sql"

	"github.com/roach88/relsync/internal/ir"
	"github.com/roach88/relsync/internal/queryir"
)

// Tx is the transaction handle threaded through every call. *sql.Tx
// satisfies it.
type Tx interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
}

var _ Tx = (*sql.Tx)(nil)

// Table is the per-model storage handle.
//
// Reads take a complete Plan: the root select plus the include tree. Rows
// come back projected to the plan's columns with related rows nested under
// their alias.
type Table interface {
	// Model returns the model name the table stores.
	Model() string

	// FindOne returns the first row of plan, or nil when none matches.
	FindOne(ctx context.Context, tx Tx, plan queryir.Plan) (ir.Row, error)

	// FindAll returns every row of plan.
	FindAll(ctx context.Context, tx Tx, plan queryir.Plan) ([]ir.Row, error)

	// FindAndCountAll returns the rows of plan and the number of rows
	// matching its filter with pagination ignored.
	FindAndCountAll(ctx context.Context, tx Tx, plan queryir.Plan) ([]ir.Row, int64, error)

	// Create writes data restricted to attributes and returns the written
	// row including generated keys.
	Create(ctx context.Context, tx Tx, data ir.Row, attributes []string) (ir.Row, error)

	// Update writes data restricted to attributes on rows matching where
	// and returns the number of affected rows.
	Update(ctx context.Context, tx Tx, data ir.Row, where queryir.Predicate, attributes []string) (int64, error)

	// Destroy deletes rows matching where and returns how many were removed.
	Destroy(ctx context.Context, tx Tx, where queryir.Predicate) (int64, error)
}

// Source hands out tables by model name.
type Source interface {
	Table(model string) (Table, error)
}
