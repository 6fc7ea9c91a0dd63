package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"

	"github.com/mattn/go-sqlite3"

	"github.com/roach88/relsync/internal/binding"
	"github.com/roach88/relsync/internal/graph"
	"github.com/roach88/relsync/internal/ir"
	"github.com/roach88/relsync/internal/queryir"
	"github.com/roach88/relsync/internal/querysql"
)

// MemoryPath opens a private in-memory database.
const MemoryPath = ":memory:"

// Store provides SQLite-backed storage for the models of one graph.
type Store struct {
	db      *sql.DB
	graph   *graph.Graph
	byTable map[string]*graph.Descriptor
	tables  map[string]*table
}

var _ binding.Source = (*Store)(nil)

// Open creates or opens a SQLite database at the given path.
// Applies required pragmas; call Migrate to create the model tables.
//
// The database is configured with:
//   - WAL mode for concurrent reads during writes
//   - NORMAL synchronous mode (balance durability/performance)
//   - 5-second busy timeout for lock contention
//   - Foreign key enforcement
//
// MemoryPath opens a private in-memory database.
func Open(path string, g *graph.Graph) (*Store, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	// SQLite only supports one writer at a time, and an in-memory database
	// exists per connection, so keep exactly one.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if err := applyPragmas(db, path == MemoryPath); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to apply pragmas: %w", err)
	}

	slog.Debug("store opened", "path", path, "models", len(g.Names()))
	return New(db, g), nil
}

// New wraps an existing database handle. No pragmas are applied.
func New(db *sql.DB, g *graph.Graph) *Store {
	s := &Store{
		db:      db,
		graph:   g,
		byTable: make(map[string]*graph.Descriptor),
		tables:  make(map[string]*table),
	}
	for _, d := range g.Models() {
		s.byTable[d.Table()] = d
		s.tables[d.Name()] = &table{store: s, desc: d}
	}
	return s
}

// Close closes the database connection.
func (s *Store) Close() error {
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}

// DB returns the underlying sql.DB for direct queries.
// Use with caution - prefer using Store methods when available.
func (s *Store) DB() *sql.DB {
	return s.db
}

// Graph returns the relation graph the store was built for.
func (s *Store) Graph() *graph.Graph {
	return s.graph
}

// Table returns the storage handle of model.
func (s *Store) Table(model string) (binding.Table, error) {
	t, ok := s.tables[model]
	if !ok {
		return nil, ir.NewConfigError(ir.ErrCodeUnknownModel, model, "no table for model")
	}
	return t, nil
}

// WithTx runs fn inside a transaction. The transaction commits when fn
// returns commit=true and no error; otherwise it is rolled back. WithTx
// reports whether it committed.
func (s *Store) WithTx(ctx context.Context, fn func(tx binding.Tx) (commit bool, err error)) (bool, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return false, fmt.Errorf("begin transaction: %w", err)
	}

	commit, err := fn(tx)
	if err != nil || !commit {
		if rbErr := tx.Rollback(); rbErr != nil {
			return false, errors.Join(err, fmt.Errorf("rollback: %w", rbErr))
		}
		slog.Debug("transaction rolled back", "error", err)
		return false, err
	}

	if err := tx.Commit(); err != nil {
		return false, fmt.Errorf("commit: %w", err)
	}
	return true, nil
}

// applyPragmas sets required SQLite configuration. WAL is skipped for
// in-memory databases, which do not support it.
func applyPragmas(db *sql.DB, memory bool) error {
	pragmas := []string{
		"PRAGMA synchronous = NORMAL",
		"PRAGMA busy_timeout = 5000",
		"PRAGMA foreign_keys = ON",
	}
	if !memory {
		pragmas = append([]string{"PRAGMA journal_mode = WAL"}, pragmas...)
	}

	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			return fmt.Errorf("failed to execute %q: %w", pragma, err)
		}
	}

	return nil
}

// exec compiles and runs one write inside tx.
func (s *Store) exec(ctx context.Context, tx binding.Tx, stmt queryir.Statement) (sql.Result, error) {
	query, params, err := querysql.NewSQLCompiler().CompileStatement(stmt)
	if err != nil {
		return nil, err
	}
	slog.Debug("store exec", "sql", query, "params", len(params))

	res, err := tx.ExecContext(ctx, query, params...)
	if err != nil {
		return nil, classify(err)
	}
	return res, nil
}

// query compiles and runs one read inside tx and scans every row.
func (s *Store) query(ctx context.Context, tx binding.Tx, q queryir.Query) ([]ir.Row, error) {
	query, params, err := querysql.NewSQLCompiler().Compile(q)
	if err != nil {
		return nil, err
	}
	slog.Debug("store query", "sql", query, "params", len(params))

	rows, err := tx.QueryContext(ctx, query, params...)
	if err != nil {
		return nil, classify(err)
	}
	defer rows.Close()

	return scanRows(rows)
}

// classify wraps SQLite constraint violations in *binding.ConstraintError.
func classify(err error) error {
	var se sqlite3.Error
	if !errors.As(err, &se) {
		return err
	}

	var key string
	switch se.ExtendedCode {
	case sqlite3.ErrConstraintUnique, sqlite3.ErrConstraintPrimaryKey:
		key = ir.KeyUniqueViolation
	case sqlite3.ErrConstraintForeignKey:
		key = ir.KeyForeignKey
	case sqlite3.ErrConstraintNotNull:
		key = ir.KeyNotNull
	case sqlite3.ErrConstraintCheck:
		key = ir.KeyCheck
	default:
		return err
	}
	return &binding.ConstraintError{Key: key, Err: err}
}

// verifyPragma checks that a pragma is set to the expected value.
// Used for testing.
func (s *Store) verifyPragma(name, expected string) error {
	var value string
	query := fmt.Sprintf("PRAGMA %s", name)
	if err := s.db.QueryRow(query).Scan(&value); err != nil {
		return fmt.Errorf("failed to query %s: %w", name, err)
	}
	if value != expected {
		return fmt.Errorf("%s = %q, expected %q", name, value, expected)
	}
	return nil
}
