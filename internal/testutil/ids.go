package testutil

import (
	"encoding/binary"
	"fmt"
	"sync"

	"github.com/oklog/ulid/v2"

	"github.com/roach88/relsync/internal/ir"
)

// SequentialKeys generates predictable primary keys for uuid and ulid
// attributes: the n-th key of a run is derived from n alone.
//
// Thread-safety: SequentialKeys is safe for concurrent use via internal mutex.
type SequentialKeys struct {
	mu sync.Mutex
	n  uint64
}

// NewSequentialKeys creates a generator whose first key has sequence 1.
func NewSequentialKeys() *SequentialKeys {
	return &SequentialKeys{}
}

// NewKey returns the next key for an attribute of type t.
func (k *SequentialKeys) NewKey(t ir.AttributeType) (string, error) {
	k.mu.Lock()
	k.n++
	n := k.n
	k.mu.Unlock()

	switch t {
	case ir.TypeUUID:
		return fmt.Sprintf("00000000-0000-7000-8000-%012d", n), nil
	case ir.TypeULID:
		var id ulid.ULID
		binary.BigEndian.PutUint64(id[8:], n)
		return id.String(), nil
	default:
		return "", fmt.Errorf("no generated keys for type %q", t)
	}
}

// FixedRequestIDs returns predetermined request ids in order, then
// "req-<n>" once they run out.
//
// This enables deterministic test execution and golden snapshot comparison.
//
// Thread-safety: FixedRequestIDs is safe for concurrent use via internal mutex.
type FixedRequestIDs struct {
	mu  sync.Mutex
	ids []string
	idx int
}

// NewFixedRequestIDs creates a generator that returns ids in order.
//
// Example:
//
//	gen := NewFixedRequestIDs("a", "b")
//	gen.Generate() // "a"
//	gen.Generate() // "b"
//	gen.Generate() // "req-3"
func NewFixedRequestIDs(ids ...string) *FixedRequestIDs {
	return &FixedRequestIDs{ids: ids}
}

// Generate returns the next request id.
func (g *FixedRequestIDs) Generate() string {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.idx++
	if g.idx <= len(g.ids) {
		return g.ids[g.idx-1]
	}
	return fmt.Sprintf("req-%d", g.idx)
}
