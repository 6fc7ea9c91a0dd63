package testutil

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/roach88/relsync/internal/graph"
	"github.com/roach88/relsync/internal/store"
)

// ShopGraph builds the relation graph of ShopModels.
func ShopGraph(t testing.TB, opts ...graph.Option) *graph.Graph {
	t.Helper()
	g, err := graph.New(ShopModels(), opts...)
	require.NoError(t, err)
	return g
}

// OpenStore opens a migrated in-memory store for g that is closed when the
// test ends.
func OpenStore(t testing.TB, g *graph.Graph) *store.Store {
	t.Helper()
	st, err := store.Open(store.MemoryPath, g)
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })
	require.NoError(t, st.Migrate(context.Background()))
	return st
}
