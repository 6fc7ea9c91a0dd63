package harness

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/roach88/relsync/internal/ir"
)

func ptr[T any](v T) *T { return &v }

func TestCheckExpect_Sync(t *testing.T) {
	failed := ir.SyncResult{
		Errors:            []ir.ValidationError{{Key: "UNIQUE_VIOLATION", Field: "email"}},
		TransactionFailed: true,
	}
	ok := ir.Success(ir.Row{"id": int64(3)})

	tests := []struct {
		name   string
		result ir.SyncResult
		expect *Expect
		want   []string
	}{
		{name: "no expectation", result: failed, expect: nil},
		{name: "success", result: ok, expect: &Expect{Errors: []string{}, Generated: []string{"id"}}},
		{
			name:   "keys in any order",
			result: ir.Failure(ir.ValidationError{Key: "B"}, ir.ValidationError{Key: "A"}),
			expect: &Expect{Errors: []string{"A", "B"}},
		},
		{name: "failure matched", result: failed, expect: &Expect{Errors: []string{"UNIQUE_VIOLATION"}, Fields: []string{"email"}, TransactionFailed: true}},
		{
			name:   "unexpected transaction failure",
			result: failed,
			expect: &Expect{},
			want:   []string{"transaction_failed: expected false, got true"},
		},
		{
			name:   "wrong keys and fields",
			result: failed,
			expect: &Expect{Errors: []string{"X"}, Fields: []string{"name"}, TransactionFailed: true},
			want: []string{
				"errors: expected [X], got [UNIQUE_VIOLATION]",
				"fields: expected [name], got [email]",
			},
		},
		{
			name:   "missing generated key",
			result: ok,
			expect: &Expect{Generated: []string{"uuid"}},
			want:   []string{`generated: missing "uuid" in map[id:3]`},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := checkExpect(TraceEvent{Kind: KindMutate, Result: tt.result}, tt.expect)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestCheckExpect_Resolve(t *testing.T) {
	at := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	res := ir.ResolveResult{
		Data: []ir.Row{
			{"id": int64(1), "at": at, "items": []ir.Row{{"sku": "A"}, {"sku": "B"}}, "customer": ir.Row{"name": "Jim"}},
		},
		Count: ptr(int64(1)),
	}

	tests := []struct {
		name   string
		result ir.ResolveResult
		expect *Expect
		want   []string
	}{
		{
			name:   "subset with nested includes",
			result: res,
			expect: &Expect{Count: ptr(int64(1)), Rows: []map[string]any{{
				"id":       1,
				"at":       "2026-01-01T00:00:00Z",
				"items":    []any{map[string]any{"sku": "A"}, map[string]any{"sku": "B"}},
				"customer": map[string]any{"name": "Jim"},
			}}},
		},
		{
			name:   "wrong count",
			result: res,
			expect: &Expect{Count: ptr(int64(2))},
			want:   []string{"count: expected 2, got 1"},
		},
		{
			name:   "count not requested",
			result: ir.ResolveResult{Data: []ir.Row{}},
			expect: &Expect{Count: ptr(int64(0))},
			want:   []string{"count: expected 0, query did not count"},
		},
		{
			name:   "row count differs",
			result: res,
			expect: &Expect{Rows: []map[string]any{}},
			want:   []string{"rows: expected 0, got 1"},
		},
		{
			name:   "include length differs",
			result: res,
			expect: &Expect{Rows: []map[string]any{{"items": []any{map[string]any{"sku": "A"}}}}},
			want:   []string{"rows[0]: expected subset map[items:[map[sku:A]]], got map[at:2026-01-01T00:00:00Z customer:map[name:Jim] id:1 items:[map[sku:A] map[sku:B]]]"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := checkExpect(TraceEvent{Kind: KindResolve, Result: tt.result}, tt.expect)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestCheckExpect_ConfigError(t *testing.T) {
	event := TraceEvent{Kind: KindResolve, ConfigError: "UNKNOWN_MODEL"}

	assert.Nil(t, checkExpect(event, &Expect{ConfigError: "UNKNOWN_MODEL"}))
	assert.Equal(t, []string{`unexpected config error "UNKNOWN_MODEL"`}, checkExpect(event, nil))
	assert.Equal(t, []string{`config error: expected "UNKNOWN_SCOPE", got "UNKNOWN_MODEL"`},
		checkExpect(event, &Expect{ConfigError: "UNKNOWN_SCOPE"}))
	assert.Equal(t, []string{`config error: expected "NO_RESOLVER", got ""`},
		checkExpect(TraceEvent{Result: ir.ResolveResult{}}, &Expect{ConfigError: "NO_RESOLVER"}))
}

func TestSubset(t *testing.T) {
	assert.True(t, subset(nil, nil))
	assert.True(t, subset(map[string]any{}, map[string]any{"a": 1.0}))
	assert.False(t, subset(map[string]any{"a": nil}, map[string]any{}))
	assert.True(t, subset(map[string]any{"a": nil}, map[string]any{"a": nil}))
	assert.False(t, subset([]any{1.0}, []any{1.0, 2.0}))
	assert.False(t, subset(map[string]any{"a": 1.0}, []any{}))
	assert.False(t, subset(1.0, "1"))
}
