package harness

import (
	"encoding/json"
	"fmt"
	"reflect"
	"slices"

	"github.com/roach88/relsync/internal/ir"
)

// checkExpect compares a step's event against its expect clause and
// returns one message per mismatch.
func checkExpect(event TraceEvent, expect *Expect) []string {
	if expect == nil {
		if event.ConfigError != "" {
			return []string{fmt.Sprintf("unexpected config error %q", event.ConfigError)}
		}
		return nil
	}

	if event.ConfigError != "" || expect.ConfigError != "" {
		if event.ConfigError != expect.ConfigError {
			return []string{fmt.Sprintf("config error: expected %q, got %q", expect.ConfigError, event.ConfigError)}
		}
		return nil
	}

	switch res := event.Result.(type) {
	case ir.SyncResult:
		return checkSync(res, expect)
	case ir.ResolveResult:
		return checkResolve(res, expect)
	default:
		return []string{fmt.Sprintf("unexpected result type %T", event.Result)}
	}
}

func checkSync(res ir.SyncResult, expect *Expect) []string {
	var msgs []string

	if expect.Errors != nil {
		keys := make([]string, len(res.Errors))
		for i, e := range res.Errors {
			keys[i] = e.Key
		}
		if !sameElements(expect.Errors, keys) {
			msgs = append(msgs, fmt.Sprintf("errors: expected %v, got %v", expect.Errors, keys))
		}
	}

	if expect.Fields != nil {
		fields := make([]string, len(res.Errors))
		for i, e := range res.Errors {
			fields[i] = e.Field
		}
		if !sameElements(expect.Fields, fields) {
			msgs = append(msgs, fmt.Sprintf("fields: expected %v, got %v", expect.Fields, fields))
		}
	}

	if expect.TransactionFailed != res.TransactionFailed {
		msgs = append(msgs, fmt.Sprintf("transaction_failed: expected %t, got %t", expect.TransactionFailed, res.TransactionFailed))
	}

	for _, key := range expect.Generated {
		if v, ok := res.GeneratedIDs[key]; !ok || v == nil {
			msgs = append(msgs, fmt.Sprintf("generated: missing %q in %v", key, res.GeneratedIDs))
		}
	}
	return msgs
}

func checkResolve(res ir.ResolveResult, expect *Expect) []string {
	var msgs []string

	if expect.Count != nil {
		switch {
		case res.Count == nil:
			msgs = append(msgs, fmt.Sprintf("count: expected %d, query did not count", *expect.Count))
		case *res.Count != *expect.Count:
			msgs = append(msgs, fmt.Sprintf("count: expected %d, got %d", *expect.Count, *res.Count))
		}
	}

	if expect.Rows != nil {
		if len(expect.Rows) != len(res.Data) {
			return append(msgs, fmt.Sprintf("rows: expected %d, got %d", len(expect.Rows), len(res.Data)))
		}
		for i := range expect.Rows {
			want, err := normalize(expect.Rows[i])
			if err != nil {
				return append(msgs, fmt.Sprintf("rows[%d]: %v", i, err))
			}
			got, err := normalize(res.Data[i])
			if err != nil {
				return append(msgs, fmt.Sprintf("rows[%d]: %v", i, err))
			}
			if !subset(want, got) {
				msgs = append(msgs, fmt.Sprintf("rows[%d]: expected subset %v, got %v", i, want, got))
			}
		}
	}
	return msgs
}

// normalize converts v to its generic JSON form so YAML ints and stored
// int64s (or times and their RFC 3339 text) compare equal.
func normalize(v any) (any, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	var out any
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// subset reports whether expected is contained in actual: maps match on
// the expected keys only, lists match element by element with equal
// length, and scalars match exactly.
func subset(expected, actual any) bool {
	switch exp := expected.(type) {
	case map[string]any:
		act, ok := actual.(map[string]any)
		if !ok {
			return false
		}
		for k, v := range exp {
			av, exists := act[k]
			if !exists || !subset(v, av) {
				return false
			}
		}
		return true
	case []any:
		act, ok := actual.([]any)
		if !ok || len(act) != len(exp) {
			return false
		}
		for i := range exp {
			if !subset(exp[i], act[i]) {
				return false
			}
		}
		return true
	default:
		return reflect.DeepEqual(expected, actual)
	}
}

func sameElements(a, b []string) bool {
	x, y := slices.Clone(a), slices.Clone(b)
	slices.Sort(x)
	slices.Sort(y)
	return slices.Equal(x, y)
}
