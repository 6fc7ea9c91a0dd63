package cli

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/roach88/relsync/internal/compiler"
	"github.com/roach88/relsync/internal/config"
	"github.com/roach88/relsync/internal/graph"
	"github.com/roach88/relsync/internal/pool"
	"github.com/roach88/relsync/internal/store"
)

// loadGraph compiles the schema directory and builds the relation graph.
func loadGraph(dir string) (*graph.Graph, error) {
	loaded, errs := compiler.LoadSchema(dir, compiler.LoadModeCollectAll)
	if len(errs) > 0 {
		return nil, WrapExitError(ExitCommandError, "failed to load schema", errors.Join(errs...))
	}
	g, err := graph.New(loaded.Models)
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "invalid schema", err)
	}
	return g, nil
}

// openPool opens and migrates the configured database and assembles a pool
// over every model of the schema. The caller closes the store.
func openPool(ctx context.Context, cfg *config.Config) (*store.Store, *pool.Pool, error) {
	g, err := loadGraph(cfg.SchemaDir)
	if err != nil {
		return nil, nil, err
	}

	st, err := store.Open(cfg.Database, g)
	if err != nil {
		return nil, nil, WrapExitError(ExitCommandError, "failed to open database", err)
	}
	if err := st.Migrate(ctx); err != nil {
		st.Close()
		return nil, nil, WrapExitError(ExitCommandError, "failed to migrate database", err)
	}

	p, err := pool.FromGraph(g, st)
	if err != nil {
		st.Close()
		return nil, nil, WrapExitError(ExitCommandError, "failed to assemble pool", err)
	}
	return st, p, nil
}

// readDocument decodes a JSON document given inline, as "-" for stdin, or
// as @path for a file.
func readDocument(arg string, stdin io.Reader, v any) error {
	var r io.Reader
	switch {
	case arg == "-":
		r = stdin
	case strings.HasPrefix(arg, "@"):
		f, err := os.Open(arg[1:])
		if err != nil {
			return err
		}
		defer f.Close()
		r = f
	default:
		r = strings.NewReader(arg)
	}

	dec := json.NewDecoder(r)
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return fmt.Errorf("decode JSON: %w", err)
	}
	return nil
}
